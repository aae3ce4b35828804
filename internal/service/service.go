package service

import (
	"context"
	"io"
	"time"

	"cpu_throttle"
	"cpu_throttle/internal/logger"
	"cpu_throttle/internal/metrics"
	"cpu_throttle/internal/models"
	"cpu_throttle/internal/repository"
)

// Settings mutates the user-tunable control values.
type Settings interface {
	SetSafeMax(ctx context.Context, kHz int) int
	SetSafeMin(ctx context.Context, kHz int) int
	SetTempMax(ctx context.Context, celsius int) error
	SetThermalZone(ctx context.Context, zone int) error
	SetUseAvgTemp(ctx context.Context, on bool)
	SetExcludedTypes(ctx context.Context, csv string) []string
	ExcludedTypes() []string
}

// Monitoring exposes read-only views of the control state and hardware.
type Monitoring interface {
	Status() cpu_throttle.Status
	Metrics() cpu_throttle.Metrics
	Limits() models.Limits
	Zones() ([]models.ThermalZone, error)
	Version() string
}

// Profiles manages named key=value override files.
type Profiles interface {
	List() ([]string, error)
	Entries() ([]cpu_throttle.ProfileEntry, error)
	Get(name string) (string, error)
	Save(ctx context.Context, name, content string) error
	SaveBase64(ctx context.Context, name, encoded string) error
	Delete(ctx context.Context, name string) error
	Load(ctx context.Context, name string) (models.Profile, error)
}

// Skins manages installed UI bundles and the active selection.
type Skins interface {
	List() ([]models.Skin, error)
	Install(ctx context.Context, r io.Reader, size int64) (models.Skin, error)
	Activate(ctx context.Context, id string) error
	Deactivate(ctx context.Context, id string) error
	Remove(ctx context.Context, id string) error
	Reset(ctx context.Context) error
	Active() (models.Skin, bool)
}

// Daemon controls the process lifecycle.
type Daemon interface {
	Shutdown(ctx context.Context)
	Restart(ctx context.Context)
}

// Throttle runs one control step.
type Throttle interface {
	Tick(ctx context.Context, now time.Time) error
}

// EventLog exposes the append-only control journal.
type EventLog interface {
	Record(ctx context.Context, typ, description string, meta any)
	List(ctx context.Context, f LogFilter) ([]models.ThrottleEvent, error)
}

// Stream hands immutable status snapshots to goroutines outside the reactor.
type Stream interface {
	Subscribe() (<-chan cpu_throttle.Status, func())
	Last() cpu_throttle.Status
}

// TempSource reads temperatures from the thermal subsystem.
type TempSource interface {
	Sample(c models.ControlState, now time.Time) (models.ThermalSample, error)
	Zones(excluded []string) ([]models.ThermalZone, error)
	Describe(c models.ControlState) string
}

// FreqWriter applies a frequency cap to every core.
type FreqWriter interface {
	Apply(freq int) (int, error)
}

// SkinInstaller installs an uploaded archive.
type SkinInstaller interface {
	InstallReader(ctx context.Context, r io.Reader, size int64) (models.Skin, error)
}

// Service aggregates all sub-services.
type Service struct {
	Settings
	Monitoring
	Profiles
	Skins
	Daemon
	Throttle
	EventLog
	Stream
}

// Deps are the collaborators NewService wires together.
type Deps struct {
	Runtime   *Runtime
	Repos     *repository.Repository
	Sensor    TempSource
	Actuator  FreqWriter
	Installer SkinInstaller
	Metrics   *metrics.Metrics
	Log       *logger.Logger
}

func NewService(d Deps) *Service {
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	if d.Metrics == nil {
		d.Metrics = metrics.New()
	}
	events := NewEventLogService(d.Repos.Events, d.Log)
	hub := NewHub()
	settings := NewSettingsService(d.Runtime, events, d.Log)
	return &Service{
		Settings:   settings,
		Monitoring: NewMonitoringService(d.Runtime, d.Sensor),
		Profiles:   NewProfileService(d.Repos.Profiles, settings, events, d.Log),
		Skins:      NewSkinService(d.Runtime, d.Repos.Skins, d.Installer, events, d.Metrics, d.Log),
		Daemon:     NewDaemonService(d.Runtime, events, d.Log),
		Throttle:   NewThrottleService(d.Runtime, d.Sensor, d.Actuator, hub, events, d.Metrics, d.Log),
		EventLog:   events,
		Stream:     hub,
	}
}
