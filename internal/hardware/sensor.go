// Package hardware reads thermal zones and CPU frequency bounds from sysfs and writes
// per-core frequency caps.
package hardware

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"cpu_throttle/internal/models"

	"github.com/prometheus/procfs/sysfs"
)

// DefaultSysfsRoot is the sysfs mount point on a live system.
const DefaultSysfsRoot = "/sys"

var (
	ErrNoZone      = errors.New("no usable thermal zone")
	ErrZoneMissing = errors.New("thermal zone not found")
)

// preferredTypes ranks zone types for automatic selection; earlier wins.
var preferredTypes = []string{"x86_pkg_temp", "coretemp", "k10temp", "zenpower", "cpu", "soc", "acpitz"}

// Sensor samples CPU temperature from an explicit file or from the thermal class.
type Sensor struct {
	fs   sysfs.FS
	path string
}

// NewSensor opens sysfs at root. A non-empty path pins the sensor to one temperature
// file when zone selection is automatic.
func NewSensor(root, path string) (*Sensor, error) {
	fs, err := sysfs.NewFS(root)
	if err != nil {
		return nil, fmt.Errorf("open sysfs at %q: %w", root, err)
	}
	return &Sensor{fs: fs, path: path}, nil
}

// IsExcluded reports whether a zone type contains any excluded token. Matching is
// substring containment on lowercase text, so "amd" also excludes "amdgpu".
func IsExcluded(zoneType string, excluded []string) bool {
	t := strings.ToLower(zoneType)
	for _, tok := range excluded {
		if tok != "" && strings.Contains(t, tok) {
			return true
		}
	}
	return false
}

// Zones lists thermal zones ordered by index, marking the excluded ones.
func (s *Sensor) Zones(excluded []string) ([]models.ThermalZone, error) {
	stats, err := s.fs.ClassThermalZoneStats()
	if err != nil {
		return nil, fmt.Errorf("read thermal zones: %w", err)
	}
	zones := make([]models.ThermalZone, 0, len(stats))
	for _, st := range stats {
		idx, err := strconv.Atoi(st.Name)
		if err != nil {
			continue
		}
		zones = append(zones, models.ThermalZone{
			Index:    idx,
			Type:     st.Type,
			TempC:    int(st.Temp / 1000),
			Excluded: IsExcluded(st.Type, excluded),
		})
	}
	slices.SortFunc(zones, func(a, b models.ThermalZone) int { return a.Index - b.Index })
	return zones, nil
}

// Describe names the temperature source the current settings select.
func (s *Sensor) Describe(c models.ControlState) string {
	switch {
	case c.UseAvgTemp:
		return "average"
	case c.ThermalZone >= 0:
		return fmt.Sprintf("thermal_zone%d", c.ThermalZone)
	case s.path != "":
		return s.path
	default:
		return "auto"
	}
}

// Sample reads the temperature selected by c.
func (s *Sensor) Sample(c models.ControlState, now time.Time) (models.ThermalSample, error) {
	if s.path != "" && c.ThermalZone == models.AutoZone && !c.UseAvgTemp {
		t, err := readMillidegrees(s.path)
		if err != nil {
			return models.ThermalSample{}, err
		}
		return models.ThermalSample{TempC: t, Source: s.path, Timestamp: now}, nil
	}

	zones, err := s.Zones(c.ExcludedTypes)
	if err != nil {
		return models.ThermalSample{}, err
	}
	usable := slices.DeleteFunc(slices.Clone(zones), func(z models.ThermalZone) bool { return z.Excluded })

	switch {
	case c.UseAvgTemp:
		if len(usable) == 0 {
			return models.ThermalSample{}, ErrNoZone
		}
		sum := 0
		for _, z := range usable {
			sum += z.TempC
		}
		return models.ThermalSample{TempC: sum / len(usable), Source: "average", Timestamp: now}, nil

	case c.ThermalZone >= 0:
		for _, z := range zones {
			if z.Index == c.ThermalZone {
				return models.ThermalSample{TempC: z.TempC, Source: zoneName(z), Timestamp: now}, nil
			}
		}
		return models.ThermalSample{}, fmt.Errorf("%w: thermal_zone%d", ErrZoneMissing, c.ThermalZone)

	default:
		z, ok := pickZone(usable)
		if !ok {
			return models.ThermalSample{}, ErrNoZone
		}
		return models.ThermalSample{TempC: z.TempC, Source: zoneName(z), Timestamp: now}, nil
	}
}

// pickZone chooses the zone whose type ranks highest in preferredTypes, falling back
// to the lowest index.
func pickZone(zones []models.ThermalZone) (models.ThermalZone, bool) {
	if len(zones) == 0 {
		return models.ThermalZone{}, false
	}
	for _, pref := range preferredTypes {
		for _, z := range zones {
			if strings.Contains(strings.ToLower(z.Type), pref) {
				return z, true
			}
		}
	}
	return zones[0], true
}

func zoneName(z models.ThermalZone) string {
	return fmt.Sprintf("thermal_zone%d (%s)", z.Index, z.Type)
}

func readMillidegrees(path string) (int, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read temperature %q: %w", path, err)
	}
	v, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil {
		return 0, fmt.Errorf("parse temperature %q: %w", path, err)
	}
	return v / 1000, nil
}
