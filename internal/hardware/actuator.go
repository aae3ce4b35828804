package hardware

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"cpu_throttle/internal/models"

	"github.com/prometheus/procfs/sysfs"
	"go.uber.org/multierr"
)

const scalingMaxFile = "scaling_max_freq"

var ErrNoBounds = errors.New("cpu frequency bounds unavailable")

// Actuator writes a frequency cap to every core.
type Actuator struct {
	fs     sysfs.FS
	root   string
	dryRun bool
}

// NewActuator opens sysfs at root. With dryRun set, Apply resolves targets but
// writes nothing.
func NewActuator(root string, dryRun bool) (*Actuator, error) {
	fs, err := sysfs.NewFS(root)
	if err != nil {
		return nil, fmt.Errorf("open sysfs at %q: %w", root, err)
	}
	return &Actuator{fs: fs, root: root, dryRun: dryRun}, nil
}

// DryRun reports whether writes are suppressed.
func (a *Actuator) DryRun() bool { return a.dryRun }

// Bounds returns cpuinfo_min_freq/cpuinfo_max_freq of cpu0, or of the first core
// reporting both.
func (a *Actuator) Bounds() (models.Limits, error) {
	cpus, err := a.fs.SystemCpufreq()
	if err != nil {
		return models.Limits{}, fmt.Errorf("%w: %v", ErrNoBounds, err)
	}
	var found *sysfs.SystemCPUCpufreqStats
	for i := range cpus {
		c := &cpus[i]
		if c.CpuinfoMinimumFrequency == nil || c.CpuinfoMaximumFrequency == nil {
			continue
		}
		if found == nil || c.Name == "0" {
			found = c
		}
	}
	if found == nil || *found.CpuinfoMinimumFrequency == 0 || *found.CpuinfoMaximumFrequency == 0 {
		return models.Limits{}, ErrNoBounds
	}
	return models.Limits{
		MinFreq: int(*found.CpuinfoMinimumFrequency),
		MaxFreq: int(*found.CpuinfoMaximumFrequency),
	}, nil
}

// Apply writes freq (kHz) to every cpuN/cpufreq/scaling_max_freq and returns the
// number of cores targeted. A failing core does not stop the others.
func (a *Actuator) Apply(freq int) (int, error) {
	paths, err := filepath.Glob(filepath.Join(a.root, "devices/system/cpu/cpu[0-9]*/cpufreq", scalingMaxFile))
	if err != nil {
		return 0, err
	}
	if a.dryRun {
		return len(paths), nil
	}
	var errs error
	value := []byte(strconv.Itoa(freq))
	written := 0
	for _, p := range paths {
		if werr := os.WriteFile(p, value, 0o644); werr != nil {
			errs = multierr.Append(errs, fmt.Errorf("write %s: %w", p, werr))
			continue
		}
		written++
	}
	return written, errs
}
