package models

import "time"

// Temperature bounds accepted for TempMax, in °C.
const (
	TempMaxLow     = 50
	TempMaxHigh    = 110
	DefaultTempMax = 95
	AutoZone       = -1
	MaxZoneIndex   = 100
)

// ControlState is the mutable control record. It is owned by the reactor goroutine;
// only command handlers mutate it.
//
// SafeMin <= SafeMax is not enforced: either may be 0 (unset) and callers must not
// assume the pair is ordered.
type ControlState struct {
	SafeMin       int      `json:"safe_min"`       // kHz, 0 = unset
	SafeMax       int      `json:"safe_max"`       // kHz, 0 = unset
	TempMax       int      `json:"temp_max"`       // °C
	ThermalZone   int      `json:"thermal_zone"`   // -1 = auto
	UseAvgTemp    bool     `json:"use_avg_temp"`   // average over non-excluded zones
	ExcludedTypes []string `json:"excluded_types"` // lowercase zone type tokens
	ActiveSkin    string   `json:"active_skin"`    // skin id or ""
}

// Limits are the immutable hardware bounds read once at startup.
type Limits struct {
	MinFreq    int    `json:"cpu_min_freq"` // kHz
	MaxFreq    int    `json:"cpu_max_freq"` // kHz
	TempSensor string `json:"temp_sensor"`
}

// ThermalSample is one temperature reading. It is consumed by a single tick and discarded.
type ThermalSample struct {
	TempC     int
	Source    string
	Timestamp time.Time
}

// Reading is the last observed temperature and the cap currently computed for it.
type Reading struct {
	TempC     int       `json:"temperature"`
	FreqKHz   int       `json:"frequency"`
	Source    string    `json:"sensor"`
	UpdatedAt time.Time `json:"updated_at"`
}
