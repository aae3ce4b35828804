package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"cpu_throttle/internal/models"

	"github.com/spf13/afero"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrInvalidName = errors.New("invalid name")
)

type ProfileRepo interface {
	List() ([]string, error)
	Read(name string) (string, error)
	Write(name, content string) error
	Delete(name string) error
}

type SkinRepo interface {
	List() ([]models.Skin, error)
	Get(id string) (models.Skin, error)
	Remove(id string) error
	Active() string
	SetActive(id string) error
	Root() string
}

type EventRepo interface {
	Append(ctx context.Context, e models.ThrottleEvent) error
	List(ctx context.Context, from, to time.Time, typ string) ([]models.ThrottleEvent, error)
}

type Repository struct {
	Profiles ProfileRepo
	Skins    SkinRepo
	Events   EventRepo
}

// NewRepository wires the flat-file stores on fs. A nil db selects the no-op journal.
func NewRepository(fs afero.Fs, profileDir, skinsDir string, db *sql.DB) *Repository {
	var events EventRepo = NopEvents{}
	if db != nil {
		events = NewEventSQLite(db)
	}
	return &Repository{
		Profiles: NewProfileFiles(fs, profileDir),
		Skins:    NewSkinFiles(fs, skinsDir),
		Events:   events,
	}
}
