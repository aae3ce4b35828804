package repository

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"

	"cpu_throttle/internal/models"

	"github.com/spf13/afero"
	"go.uber.org/multierr"
)

// activeSkinFile holds the id of the active skin inside the skins root.
const activeSkinFile = ".active"

// SkinFiles keeps one directory per skin id under root.
type SkinFiles struct {
	fs   afero.Fs
	root string
}

func NewSkinFiles(fs afero.Fs, root string) *SkinFiles {
	return &SkinFiles{fs: fs, root: root}
}

func (r *SkinFiles) Root() string { return r.root }

// List returns installed skins. Ids are deduplicated case-insensitively after trimming;
// later duplicates are skipped silently.
func (r *SkinFiles) List() ([]models.Skin, error) {
	entries, err := afero.ReadDir(r.fs, r.root)
	if errors.Is(err, fs.ErrNotExist) {
		return []models.Skin{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list skins: %w", err)
	}
	active := r.Active()
	seen := make(map[string]struct{}, len(entries))
	out := make([]models.Skin, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(e.Name()))
		if _, dup := seen[key]; dup || key == "" {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r.load(e.Name(), active))
	}
	slices.SortFunc(out, func(a, b models.Skin) int { return strings.Compare(a.ID, b.ID) })
	return out, nil
}

func (r *SkinFiles) Get(id string) (models.Skin, error) {
	if err := ValidateSkinID(id); err != nil {
		return models.Skin{}, err
	}
	st, err := r.fs.Stat(filepath.Join(r.root, id))
	if err != nil || !st.IsDir() {
		return models.Skin{}, fmt.Errorf("skin %q: %w", id, ErrNotFound)
	}
	return r.load(id, r.Active()), nil
}

// load builds a Skin from its directory; a missing or broken manifest only loses the
// display name.
func (r *SkinFiles) load(id, active string) models.Skin {
	dir := filepath.Join(r.root, id)
	s := models.Skin{ID: id, Name: id, Path: dir, Active: id == active}
	data, err := afero.ReadFile(r.fs, filepath.Join(dir, ManifestFile))
	if err != nil {
		return s
	}
	if m, err := ParseManifest(data); err == nil {
		if m.Name != "" {
			s.Name = m.Name
		}
		s.AllowExtraJS = m.AllowExtraJS
	}
	return s
}

// Remove deletes the skin directory and clears the active marker when it pointed at id.
func (r *SkinFiles) Remove(id string) error {
	if _, err := r.Get(id); err != nil {
		return err
	}
	err := RemoveTree(r.fs, filepath.Join(r.root, id))
	if r.Active() == id {
		err = multierr.Append(err, r.SetActive(""))
	}
	return err
}

// Active returns the persisted active skin id, or "" when none is set.
func (r *SkinFiles) Active() string {
	b, err := afero.ReadFile(r.fs, filepath.Join(r.root, activeSkinFile))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}

// SetActive persists id as the active skin. An empty id removes the marker.
func (r *SkinFiles) SetActive(id string) error {
	p := filepath.Join(r.root, activeSkinFile)
	if id == "" {
		if err := r.fs.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("clear active skin: %w", err)
		}
		return nil
	}
	if err := r.fs.MkdirAll(r.root, 0o755); err != nil {
		return fmt.Errorf("create skins dir: %w", err)
	}
	if err := afero.WriteFile(r.fs, p, []byte(id+"\n"), 0o644); err != nil {
		return fmt.Errorf("persist active skin: %w", err)
	}
	return nil
}

// RemoveTree deletes path and everything below it by walking the directory itself.
// Symlinks are removed, never followed. A missing path is not an error.
func RemoveTree(fsys afero.Fs, path string) error {
	st, err := lstat(fsys, path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if st.IsDir() {
		entries, err := afero.ReadDir(fsys, path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		for _, e := range entries {
			if err := RemoveTree(fsys, filepath.Join(path, e.Name())); err != nil {
				return err
			}
		}
	}
	if err := fsys.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}

func lstat(fsys afero.Fs, path string) (fs.FileInfo, error) {
	if l, ok := fsys.(afero.Lstater); ok {
		st, _, err := l.LstatIfPossible(path)
		return st, err
	}
	return fsys.Stat(path)
}
