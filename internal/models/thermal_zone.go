package models

// ThermalZone is one OS sensor endpoint.
type ThermalZone struct {
	Index    int    `json:"index"`
	Type     string `json:"type"`
	TempC    int    `json:"temperature"`
	Excluded bool   `json:"excluded"`
}
