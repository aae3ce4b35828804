package models

// Profile is a named set of optional control overrides persisted as key=value lines.
type Profile struct {
	Name    string `json:"name"`
	SafeMin *int   `json:"safe_min,omitempty"`
	SafeMax *int   `json:"safe_max,omitempty"`
	TempMax *int   `json:"temp_max,omitempty"`
}
