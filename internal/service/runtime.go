package service

import (
	"time"

	"cpu_throttle"
	"cpu_throttle/internal/models"
	"cpu_throttle/internal/throttle"
)

// Runtime is the daemon's single control context. It is owned by the reactor
// goroutine: every service reads and mutates it from there, so it carries no locks.
// Other goroutines only ever see Status snapshots published through the Hub.
type Runtime struct {
	State   models.ControlState
	Limits  models.Limits
	Reading models.Reading
	Anchor  throttle.Anchor
	DryRun  bool

	StartedAt  time.Time
	Ticks      uint64
	FreqWrites uint64

	exit    bool
	restart bool
}

func NewRuntime(state models.ControlState, limits models.Limits, dryRun bool, now time.Time) *Runtime {
	return &Runtime{State: state, Limits: limits, DryRun: dryRun, StartedAt: now}
}

func (r *Runtime) Bounds() throttle.Bounds {
	return throttle.Bounds{MinFreq: r.Limits.MinFreq, MaxFreqLimit: r.Limits.MaxFreq}
}

func (r *Runtime) Settings() throttle.Settings {
	return throttle.Settings{TempMax: r.State.TempMax, SafeMin: r.State.SafeMin, SafeMax: r.State.SafeMax}
}

// RequestExit asks the reactor to stop after the current iteration.
func (r *Runtime) RequestExit() { r.exit = true }

// RequestRestart asks the reactor to stop and the process to re-exec itself.
func (r *Runtime) RequestRestart() {
	r.exit = true
	r.restart = true
}

func (r *Runtime) ExitRequested() bool    { return r.exit }
func (r *Runtime) RestartRequested() bool { return r.restart }

// Status copies the current state into an immutable snapshot.
func (r *Runtime) Status() cpu_throttle.Status {
	return cpu_throttle.Status{
		Temperature:   r.Reading.TempC,
		Frequency:     r.Reading.FreqKHz,
		SafeMin:       r.State.SafeMin,
		SafeMax:       r.State.SafeMax,
		TempMax:       r.State.TempMax,
		Sensor:        r.Reading.Source,
		ThermalZone:   r.State.ThermalZone,
		UseAvgTemp:    r.State.UseAvgTemp,
		ExcludedTypes: append([]string{}, r.State.ExcludedTypes...),
		ActiveSkin:    r.State.ActiveSkin,
		DryRun:        r.DryRun,
		UpdatedAt:     r.Reading.UpdatedAt,
	}
}
