package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"cpu_throttle"
	"cpu_throttle/internal/logger"
	"cpu_throttle/internal/models"
	"cpu_throttle/internal/repository"
)

var (
	ErrPayloadTooLarge = errors.New("payload too large")
	ErrInvalidBase64   = errors.New("invalid base64 payload")
)

// ProfileService stores profiles and applies them to the control state. Names are
// used as given; surfaces exposed to untrusted input validate them first.
type ProfileService struct {
	repo     repository.ProfileRepo
	settings *SettingsService
	events   *EventLogService
	log      *logger.Logger
}

func NewProfileService(repo repository.ProfileRepo, settings *SettingsService, events *EventLogService, log *logger.Logger) *ProfileService {
	return &ProfileService{repo: repo, settings: settings, events: events, log: log}
}

func (s *ProfileService) List() ([]string, error) { return s.repo.List() }

// Entries returns every profile with its content. Unreadable profiles are skipped.
func (s *ProfileService) Entries() ([]cpu_throttle.ProfileEntry, error) {
	names, err := s.repo.List()
	if err != nil {
		return nil, err
	}
	out := make([]cpu_throttle.ProfileEntry, 0, len(names))
	for _, n := range names {
		content, err := s.repo.Read(n)
		if err != nil {
			s.log.Warnw("profile_read_failed", "name", n, "err", err)
			continue
		}
		out = append(out, cpu_throttle.ProfileEntry{Name: n, Content: content})
	}
	return out, nil
}

func (s *ProfileService) Get(name string) (string, error) { return s.repo.Read(name) }

func (s *ProfileService) Save(ctx context.Context, name, content string) error {
	if len(content) > MaxProfileBytes {
		return ErrPayloadTooLarge
	}
	if err := s.repo.Write(name, content); err != nil {
		return err
	}
	s.log.Infow("profile_saved", "name", name, "bytes", len(content))
	s.events.Record(ctx, models.EventProfile, "profile saved", map[string]any{"name": name, "bytes": len(content)})
	return nil
}

// SaveBase64 decodes encoded (standard alphabet) and saves it as the profile content.
func (s *ProfileService) SaveBase64(ctx context.Context, name, encoded string) error {
	if base64.StdEncoding.DecodedLen(len(encoded)) > MaxProfileBytes {
		return ErrPayloadTooLarge
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBase64, err)
	}
	return s.Save(ctx, name, string(raw))
}

func (s *ProfileService) Delete(ctx context.Context, name string) error {
	if err := s.repo.Delete(name); err != nil {
		return err
	}
	s.log.Infow("profile_deleted", "name", name)
	s.events.Record(ctx, models.EventProfile, "profile deleted", map[string]any{"name": name})
	return nil
}

// Load reads a profile and applies its values to the control state.
func (s *ProfileService) Load(ctx context.Context, name string) (models.Profile, error) {
	content, err := s.repo.Read(name)
	if err != nil {
		return models.Profile{}, err
	}
	p := repository.ParseProfile(name, content)
	if err := s.settings.applyProfile(ctx, p); err != nil {
		return models.Profile{}, err
	}
	s.events.Record(ctx, models.EventProfile, "profile loaded", map[string]any{"name": name})
	return p, nil
}
