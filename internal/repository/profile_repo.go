package repository

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"cpu_throttle/internal/models"

	"github.com/spf13/afero"
)

// legacyProfileExt is the suffix older clients append when saving a profile.
const legacyProfileExt = ".config"

// ProfileFiles stores one key=value file per profile. There is no locking; the last
// writer wins.
type ProfileFiles struct {
	fs  afero.Fs
	dir string
}

func NewProfileFiles(fs afero.Fs, dir string) *ProfileFiles {
	return &ProfileFiles{fs: fs, dir: dir}
}

// List returns profile names in lexical order. A missing directory is an empty list.
func (r *ProfileFiles) List() ([]string, error) {
	entries, err := afero.ReadDir(r.fs, r.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.Mode().IsRegular() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		name := strings.TrimSuffix(e.Name(), legacyProfileExt)
		if !slices.Contains(names, name) {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names, nil
}

// Read returns the raw content of a profile, falling back to <name>.config.
//
// name is joined to the directory as given; callers on untrusted surfaces validate it
// first with ValidateProfileName.
func (r *ProfileFiles) Read(name string) (string, error) {
	for _, p := range r.candidates(name) {
		b, err := afero.ReadFile(r.fs, p)
		if err == nil {
			return string(b), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("read profile %q: %w", name, err)
		}
	}
	return "", fmt.Errorf("profile %q: %w", name, ErrNotFound)
}

// Write overwrites the whole profile file, creating the directory when needed.
func (r *ProfileFiles) Write(name, content string) error {
	if name == "" {
		return ErrInvalidName
	}
	if err := r.fs.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("create profile dir: %w", err)
	}
	if err := afero.WriteFile(r.fs, filepath.Join(r.dir, name), []byte(content), 0o644); err != nil {
		return fmt.Errorf("write profile %q: %w", name, err)
	}
	return nil
}

func (r *ProfileFiles) Delete(name string) error {
	for _, p := range r.candidates(name) {
		err := r.fs.Remove(p)
		if err == nil {
			return nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("delete profile %q: %w", name, err)
		}
	}
	return fmt.Errorf("profile %q: %w", name, ErrNotFound)
}

func (r *ProfileFiles) candidates(name string) []string {
	p := filepath.Join(r.dir, name)
	return []string{p, p + legacyProfileExt}
}

// ValidateProfileName rejects names that could escape the profile directory.
func ValidateProfileName(name string) error {
	if name == "" || strings.Contains(name, "/") || strings.Contains(name, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// ParseProfile reads safe_min, safe_max and temp_max from key=value lines. Unknown
// keys, comments and malformed numbers are ignored.
func ParseProfile(name, content string) models.Profile {
	p := models.Profile{Name: name}
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		v, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			continue
		}
		switch strings.TrimSpace(key) {
		case "safe_min":
			p.SafeMin = &v
		case "safe_max":
			p.SafeMax = &v
		case "temp_max":
			p.TempMax = &v
		}
	}
	return p
}

// FormatProfile renders the values that are set, one key=value per line.
func FormatProfile(p models.Profile) string {
	var b strings.Builder
	write := func(key string, v *int) {
		if v != nil {
			fmt.Fprintf(&b, "%s=%d\n", key, *v)
		}
	}
	write("safe_min", p.SafeMin)
	write("safe_max", p.SafeMax)
	write("temp_max", p.TempMax)
	return b.String()
}
