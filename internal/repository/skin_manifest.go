package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ManifestFile is the only structured file inside a skin bundle.
const ManifestFile = "manifest.json"

const maxSkinIDLen = 64

var ErrInvalidManifest = errors.New("invalid skin manifest")

// Manifest is the identity block of a skin bundle.
type Manifest struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	AllowExtraJS bool   `json:"allow_extra_js"`
}

// ParseManifest decodes manifest.json. Bundles in the wild are not always valid JSON,
// so on a decode failure the keys are recovered by scanning for their quoted tokens.
func ParseManifest(data []byte) (Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err == nil {
		return m, nil
	}
	s := string(data)
	m = Manifest{
		ID:           quotedValueAfter(s, `"id"`),
		Name:         quotedValueAfter(s, `"name"`),
		AllowExtraJS: boolAfter(s, `"allow_extra_js"`),
	}
	if m.ID == "" && m.Name == "" && !strings.Contains(s, `"id"`) {
		return Manifest{}, ErrInvalidManifest
	}
	return m, nil
}

// quotedValueAfter returns the first double-quoted string following key.
func quotedValueAfter(s, key string) string {
	i := strings.Index(s, key)
	if i < 0 {
		return ""
	}
	rest := s[i+len(key):]
	open := strings.IndexByte(rest, '"')
	if open < 0 {
		return ""
	}
	rest = rest[open+1:]
	end := strings.IndexByte(rest, '"')
	if end < 0 {
		return ""
	}
	return rest[:end]
}

// boolAfter reports whether the first value following key is true, quoted or not.
func boolAfter(s, key string) bool {
	i := strings.Index(s, key)
	if i < 0 {
		return false
	}
	rest := strings.TrimLeft(s[i+len(key):], " \t\r\n:\"")
	return strings.HasPrefix(rest, "true")
}

// ValidateSkinID accepts ids usable as a single path component.
func ValidateSkinID(id string) error {
	if id == "" || len(id) > maxSkinIDLen || id == "." || strings.Contains(id, "..") || strings.HasPrefix(id, ".") {
		return fmt.Errorf("%w: skin id %q", ErrInvalidName, id)
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '_', r == '.':
		default:
			return fmt.Errorf("%w: skin id %q", ErrInvalidName, id)
		}
	}
	return nil
}
