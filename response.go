package cpu_throttle

import "time"

// Version is reported by the version verb and /api/daemon/version.
const Version = "2.0"

// Status is the live control snapshot shared by the socket, HTTP and stream surfaces.
type Status struct {
	Temperature   int       `json:"temperature"` // °C
	Frequency     int       `json:"frequency"`   // kHz, last applied cap
	SafeMin       int       `json:"safe_min"`
	SafeMax       int       `json:"safe_max"`
	TempMax       int       `json:"temp_max"`
	Sensor        string    `json:"sensor"`
	ThermalZone   int       `json:"thermal_zone"`
	UseAvgTemp    bool      `json:"use_avg_temp"`
	ExcludedTypes []string  `json:"excluded_types"`
	ActiveSkin    string    `json:"active_skin"`
	DryRun        bool      `json:"dry_run"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Metrics is the controller's internal view, served by /api/metrics.
type Metrics struct {
	Temperature   int     `json:"temperature"`
	Frequency     int     `json:"frequency"`
	CPUMinFreq    int     `json:"cpu_min_freq"`
	CPUMaxFreq    int     `json:"cpu_max_freq"`
	EffectiveMax  int     `json:"effective_max"`
	ThrottleStart int     `json:"throttle_start"`
	AnchorTemp    int     `json:"last_throttle_temp"`
	Ticks         uint64  `json:"ticks"`
	FreqWrites    uint64  `json:"freq_writes"`
	UptimeSeconds float64 `json:"uptime_s"`
}

// ProfileEntry is one profile as listed over HTTP.
type ProfileEntry struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// StreamEnvelope wraps a pushed websocket message.
type StreamEnvelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}
