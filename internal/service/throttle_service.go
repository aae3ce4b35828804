package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cpu_throttle/internal/logger"
	"cpu_throttle/internal/metrics"
	"cpu_throttle/internal/models"
	"cpu_throttle/internal/throttle"
)

// ErrSensor is returned by Tick when no temperature could be read. It is fatal to
// the daemon.
var ErrSensor = errors.New("temperature sensor unavailable")

type ThrottleService struct {
	rt       *Runtime
	sensor   TempSource
	actuator FreqWriter
	hub      *Hub
	events   *EventLogService
	metrics  *metrics.Metrics
	log      *logger.Logger
}

func NewThrottleService(rt *Runtime, sensor TempSource, actuator FreqWriter, hub *Hub, events *EventLogService, m *metrics.Metrics, log *logger.Logger) *ThrottleService {
	return &ThrottleService{rt: rt, sensor: sensor, actuator: actuator, hub: hub, events: events, metrics: m, log: log}
}

// Tick samples the temperature, runs one control step and writes the cap when it
// passes the dead-band. Per-core write failures are logged and do not end the tick.
func (s *ThrottleService) Tick(ctx context.Context, now time.Time) error {
	sample, err := s.sensor.Sample(s.rt.State, now)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSensor, err)
	}

	prev := s.rt.Anchor.LastAppliedFreq
	d, anchor := throttle.Step(sample.TempC, s.rt.Settings(), s.rt.Bounds(), s.rt.Anchor)
	s.rt.Anchor = anchor
	s.rt.Reading = models.Reading{
		TempC:     sample.TempC,
		FreqKHz:   anchor.LastAppliedFreq,
		Source:    sample.Source,
		UpdatedAt: sample.Timestamp,
	}
	s.metrics.Temperature.Set(float64(sample.TempC))

	if d.Apply {
		cores, werr := s.actuator.Apply(d.Candidate)
		s.rt.FreqWrites++
		s.metrics.FreqWrites.Inc()
		s.metrics.AppliedFreq.Set(float64(d.Candidate))
		if werr != nil {
			s.metrics.WriteErrors.Inc()
			s.log.Errorw("throttle_write_failed", "freq_khz", d.Candidate, "err", werr)
		}
		s.log.Infow("throttle_applied",
			"temp_c", sample.TempC, "freq_khz", d.Candidate, "prev_khz", prev,
			"effective_max", d.EffectiveMax, "cores", cores, "dry_run", s.rt.DryRun)
		s.events.Record(ctx, models.EventThrottle, "frequency cap changed", map[string]any{
			"temp_c":   sample.TempC,
			"freq_khz": d.Candidate,
			"prev_khz": prev,
			"sensor":   sample.Source,
		})
	} else {
		s.log.Debugw("throttle_hold", "temp_c", sample.TempC, "target_khz", d.Target, "freq_khz", anchor.LastAppliedFreq)
	}

	s.rt.Ticks++
	s.log.RotateIfDue(now)
	s.hub.Publish(s.rt.Status())
	return nil
}
