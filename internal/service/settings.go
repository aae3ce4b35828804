package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cpu_throttle/internal/config"
	"cpu_throttle/internal/logger"
	"cpu_throttle/internal/models"
)

var ErrOutOfRange = errors.New("value out of range")

type SettingsService struct {
	rt     *Runtime
	events *EventLogService
	log    *logger.Logger
}

func NewSettingsService(rt *Runtime, events *EventLogService, log *logger.Logger) *SettingsService {
	return &SettingsService{rt: rt, events: events, log: log}
}

// SetSafeMax clamps kHz to the hardware maximum; values below the hardware minimum
// unset the ceiling. The stored value is returned.
func (s *SettingsService) SetSafeMax(ctx context.Context, kHz int) int {
	if kHz > s.rt.Limits.MaxFreq {
		kHz = s.rt.Limits.MaxFreq
	}
	if kHz < s.rt.Limits.MinFreq {
		kHz = 0
	}
	s.rt.State.SafeMax = kHz
	s.changed(ctx, "safe_max", kHz)
	return kHz
}

// SetSafeMin clamps kHz into the hardware range. The stored value is returned.
func (s *SettingsService) SetSafeMin(ctx context.Context, kHz int) int {
	kHz = max(kHz, s.rt.Limits.MinFreq)
	kHz = min(kHz, s.rt.Limits.MaxFreq)
	s.rt.State.SafeMin = kHz
	s.changed(ctx, "safe_min", kHz)
	return kHz
}

// SetTempMax rejects values outside [50,110] and keeps the previous value.
func (s *SettingsService) SetTempMax(ctx context.Context, celsius int) error {
	if celsius < models.TempMaxLow || celsius > models.TempMaxHigh {
		return fmt.Errorf("%w: temp_max must be %d-%d°C", ErrOutOfRange, models.TempMaxLow, models.TempMaxHigh)
	}
	s.rt.State.TempMax = celsius
	s.changed(ctx, "temp_max", celsius)
	return nil
}

func (s *SettingsService) SetThermalZone(ctx context.Context, zone int) error {
	if zone < models.AutoZone || zone > models.MaxZoneIndex {
		return fmt.Errorf("%w: thermal_zone must be %d..%d", ErrOutOfRange, models.AutoZone, models.MaxZoneIndex)
	}
	s.rt.State.ThermalZone = zone
	s.changed(ctx, "thermal_zone", zone)
	return nil
}

func (s *SettingsService) SetUseAvgTemp(ctx context.Context, on bool) {
	s.rt.State.UseAvgTemp = on
	s.changed(ctx, "use_avg_temp", on)
}

// SetExcludedTypes replaces the excluded zone types. "none", "clear" and "" empty
// the list.
func (s *SettingsService) SetExcludedTypes(ctx context.Context, csv string) []string {
	types := config.SplitTypes(csv)
	s.rt.State.ExcludedTypes = types
	s.changed(ctx, "excluded_types", strings.Join(types, ","))
	return append([]string{}, types...)
}

func (s *SettingsService) ExcludedTypes() []string {
	return append([]string{}, s.rt.State.ExcludedTypes...)
}

// applyProfile copies the values a profile sets. temp_max is range-checked first so a
// bad profile changes nothing.
func (s *SettingsService) applyProfile(ctx context.Context, p models.Profile) error {
	if p.TempMax != nil && (*p.TempMax < models.TempMaxLow || *p.TempMax > models.TempMaxHigh) {
		return fmt.Errorf("%w: profile %s temp_max %d", ErrOutOfRange, p.Name, *p.TempMax)
	}
	if p.SafeMin != nil {
		s.rt.State.SafeMin = *p.SafeMin
	}
	if p.SafeMax != nil {
		s.rt.State.SafeMax = *p.SafeMax
	}
	if p.TempMax != nil {
		s.rt.State.TempMax = *p.TempMax
	}
	s.log.Infow("profile_applied", "name", p.Name,
		"safe_min", s.rt.State.SafeMin, "safe_max", s.rt.State.SafeMax, "temp_max", s.rt.State.TempMax)
	return nil
}

func (s *SettingsService) changed(ctx context.Context, key string, value any) {
	s.log.Infow("setting_changed", "key", key, "value", value)
	s.events.Record(ctx, models.EventSetting, key+" changed", map[string]any{key: value})
}
