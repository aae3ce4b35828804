// Package installer unpacks skin archives and installs them into the skins directory.
//
// Extraction, copying and ownership changes run as child processes through a Runner;
// directory creation, removal and the final rename use the filesystem directly.
package installer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"cpu_throttle/internal/logger"
	"cpu_throttle/internal/models"
	"cpu_throttle/internal/repository"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"go.uber.org/multierr"
)

const (
	manifestSearchDepth = 3
	stagePrefix         = "cpu_throttle_skin_"
	uploadPattern       = "cpu_throttle_upload_*"
)

var (
	ErrExtract          = errors.New("archive extraction failed")
	ErrManifestMissing  = errors.New("manifest.json not found")
	ErrInstall          = errors.New("skin install failed")
	ErrIncompleteUpload = errors.New("archive shorter than declared")
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zipMagic  = []byte("PK")
)

type archiveKind int

const (
	kindUnknown archiveKind = iota
	kindGzip
	kindZip
)

func (k archiveKind) String() string {
	switch k {
	case kindGzip:
		return "gzip"
	case kindZip:
		return "zip"
	default:
		return "unknown"
	}
}

// Installer turns an archive on disk into <SkinsDir>/<id>.
type Installer struct {
	SkinsDir string
	// Owner is passed to chown -R when running with elevated privilege.
	Owner string
	// TempDir is the parent of staging directories and upload files; "" means os.TempDir.
	TempDir string
	Runner  Runner
	IsRoot  func() bool

	fs  afero.Fs
	log *logger.Logger
}

func New(skinsDir, owner string, runner Runner, log *logger.Logger) *Installer {
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Installer{
		SkinsDir: skinsDir,
		Owner:    owner,
		Runner:   runner,
		IsRoot:   func() bool { return os.Geteuid() == 0 },
		fs:       afero.NewOsFs(),
		log:      log,
	}
}

// InstallReader stores exactly size bytes of r in a private temp file and installs it.
// The temp file is always removed.
func (in *Installer) InstallReader(ctx context.Context, r io.Reader, size int64) (skin models.Skin, err error) {
	f, err := os.CreateTemp(in.TempDir, uploadPattern)
	if err != nil {
		return models.Skin{}, fmt.Errorf("create upload file: %w", err)
	}
	defer func() {
		err = multierr.Append(err, os.Remove(f.Name()))
	}()

	src := &sourceReader{r: r}
	n, cerr := io.CopyN(f, src, size)
	if closeErr := f.Close(); cerr == nil {
		cerr = closeErr
	}
	switch {
	case n < size && (src.err != nil || cerr == nil || errors.Is(cerr, io.EOF)):
		// a stalled or closed peer, never the temp file
		return models.Skin{}, fmt.Errorf("%w: got %d of %d bytes: %v", ErrIncompleteUpload, n, size, src.err)
	case cerr != nil:
		return models.Skin{}, fmt.Errorf("write upload file: %w", cerr)
	}
	return in.Install(ctx, f.Name())
}

// sourceReader remembers the last read error so upload failures can be told apart
// from temp file failures.
type sourceReader struct {
	r   io.Reader
	err error
}

func (s *sourceReader) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	if err != nil {
		s.err = err
	}
	return n, err
}

// Install extracts archive, locates its manifest and installs the bundle. On any
// failure the destination is left as it was; the staging directory is always removed.
func (in *Installer) Install(ctx context.Context, archive string) (skin models.Skin, err error) {
	stage, err := os.MkdirTemp(in.TempDir, stagePrefix)
	if err != nil {
		return models.Skin{}, fmt.Errorf("create staging dir: %w", err)
	}
	defer func() {
		err = multierr.Append(err, repository.RemoveTree(in.fs, stage))
	}()

	kind, err := classify(archive)
	if err != nil {
		return models.Skin{}, err
	}
	in.log.Debugw("skin_extract", "archive", archive, "kind", kind.String(), "stage", stage)
	if err := in.extract(ctx, kind, archive, stage); err != nil {
		return models.Skin{}, err
	}

	src, err := normalize(stage)
	if err != nil {
		return models.Skin{}, err
	}
	manifestPath, err := findManifest(src, manifestSearchDepth)
	if err != nil {
		return models.Skin{}, err
	}
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return models.Skin{}, fmt.Errorf("read manifest: %w", err)
	}
	m, err := repository.ParseManifest(data)
	if err != nil {
		return models.Skin{}, err
	}
	root := filepath.Dir(manifestPath)
	if m.ID == "" {
		m.ID = filepath.Base(root)
	}
	if err := repository.ValidateSkinID(m.ID); err != nil {
		return models.Skin{}, err
	}

	dest, err := in.place(ctx, root, m.ID)
	if err != nil {
		return models.Skin{}, err
	}
	name := m.Name
	if name == "" {
		name = m.ID
	}
	return models.Skin{ID: m.ID, Name: name, AllowExtraJS: m.AllowExtraJS, Path: dest}, nil
}

// classify inspects the leading bytes of the archive.
func classify(archive string) (archiveKind, error) {
	f, err := os.Open(archive)
	if err != nil {
		return kindUnknown, fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()
	head := make([]byte, 4)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return kindUnknown, fmt.Errorf("read archive header: %w", err)
	}
	head = head[:n]
	switch {
	case bytes.HasPrefix(head, gzipMagic):
		return kindGzip, nil
	case bytes.HasPrefix(head, zipMagic):
		return kindZip, nil
	default:
		return kindUnknown, nil
	}
}

func extractCommands(kind archiveKind, archive, stage string) [][]string {
	tarGz := []string{"tar", "-xzf", archive, "-C", stage}
	tarPlain := []string{"tar", "-xf", archive, "-C", stage}
	unzip := []string{"unzip", "-q", archive, "-d", stage}
	switch kind {
	case kindGzip:
		return [][]string{tarGz, tarPlain}
	case kindZip:
		return [][]string{unzip}
	default:
		return [][]string{tarGz, tarPlain, unzip}
	}
}

// extract tries each extractor for kind in order, clearing the staging directory
// between attempts.
func (in *Installer) extract(ctx context.Context, kind archiveKind, archive, stage string) error {
	var errs error
	for i, argv := range extractCommands(kind, archive, stage) {
		if i > 0 {
			if err := in.clearDir(stage); err != nil {
				return multierr.Append(errs, err)
			}
		}
		err := in.Runner.Run(ctx, argv[0], argv[1:]...)
		if err == nil {
			return nil
		}
		in.log.Debugw("skin_extract_attempt_failed", "cmd", argv[0], "err", err)
		errs = multierr.Append(errs, err)
	}
	return fmt.Errorf("%w (%s): %v", ErrExtract, kind, errs)
}

func (in *Installer) clearDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := repository.RemoveTree(in.fs, filepath.Join(dir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

// normalize returns the single non-hidden top-level directory of stage when there is
// exactly one top-level entry, otherwise stage itself.
func normalize(stage string) (string, error) {
	entries, err := os.ReadDir(stage)
	if err != nil {
		return "", fmt.Errorf("read staging dir: %w", err)
	}
	visible := slices.DeleteFunc(entries, func(e fs.DirEntry) bool { return e.Name()[0] == '.' })
	if len(visible) == 1 && visible[0].IsDir() {
		return filepath.Join(stage, visible[0].Name()), nil
	}
	return stage, nil
}

type searchDir struct {
	path  string
	depth int
}

// findManifest searches breadth-first, so the shallowest manifest wins. Symlinked
// directories are not entered.
func findManifest(root string, maxDepth int) (string, error) {
	queue := []searchDir{{root, 0}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		candidate := filepath.Join(cur.path, repository.ManifestFile)
		if st, err := os.Lstat(candidate); err == nil && st.Mode().IsRegular() {
			return candidate, nil
		}
		if cur.depth >= maxDepth {
			continue
		}
		entries, err := os.ReadDir(cur.path)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() {
				queue = append(queue, searchDir{filepath.Join(cur.path, e.Name()), cur.depth + 1})
			}
		}
	}
	return "", ErrManifestMissing
}

// place copies root into a hidden sibling of the destination and swaps it in.
func (in *Installer) place(ctx context.Context, root, id string) (dest string, err error) {
	if err := in.fs.MkdirAll(in.SkinsDir, 0o755); err != nil {
		return "", fmt.Errorf("%w: create skins dir: %v", ErrInstall, err)
	}
	dest = filepath.Join(in.SkinsDir, id)
	work := filepath.Join(in.SkinsDir, "."+id+".installing-"+uuid.NewString())
	if err := in.fs.MkdirAll(work, 0o755); err != nil {
		return "", fmt.Errorf("%w: create %s: %v", ErrInstall, work, err)
	}
	defer func() {
		if err != nil {
			err = multierr.Append(err, repository.RemoveTree(in.fs, work))
		}
	}()

	if err := in.Runner.Run(ctx, "cp", "-a", root+"/.", work); err != nil {
		return "", fmt.Errorf("%w: copy: %v", ErrInstall, err)
	}
	if in.Owner != "" && in.IsRoot != nil && in.IsRoot() {
		if err := in.Runner.Run(ctx, "chown", "-R", in.Owner, work); err != nil {
			return "", fmt.Errorf("%w: chown: %v", ErrInstall, err)
		}
	}
	if err := repository.RemoveTree(in.fs, dest); err != nil {
		return "", fmt.Errorf("%w: remove previous %s: %v", ErrInstall, id, err)
	}
	if err := in.fs.Rename(work, dest); err != nil {
		return "", fmt.Errorf("%w: rename into place: %v", ErrInstall, err)
	}
	in.log.Infow("skin_installed", "id", id, "dest", dest)
	return dest, nil
}
