package models

// Skin is an installed UI bundle living in <skins_dir>/<ID>.
type Skin struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	AllowExtraJS bool   `json:"allow_extra_js"`
	Active       bool   `json:"active"`
	Path         string `json:"-"`
}
