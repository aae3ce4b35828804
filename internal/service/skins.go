package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cpu_throttle/internal/logger"
	"cpu_throttle/internal/metrics"
	"cpu_throttle/internal/models"
	"cpu_throttle/internal/repository"
)

var ErrSkinNotActive = errors.New("skin is not active")

type SkinService struct {
	rt        *Runtime
	repo      repository.SkinRepo
	installer SkinInstaller
	events    *EventLogService
	metrics   *metrics.Metrics
	log       *logger.Logger
}

func NewSkinService(rt *Runtime, repo repository.SkinRepo, installer SkinInstaller, events *EventLogService, m *metrics.Metrics, log *logger.Logger) *SkinService {
	rt.State.ActiveSkin = repo.Active()
	return &SkinService{rt: rt, repo: repo, installer: installer, events: events, metrics: m, log: log}
}

func (s *SkinService) List() ([]models.Skin, error) { return s.repo.List() }

// Install reads size bytes of archive from r and installs it under the skins root.
func (s *SkinService) Install(ctx context.Context, r io.Reader, size int64) (models.Skin, error) {
	if size > MaxSkinBytes {
		s.metrics.SkinInstalls.WithLabelValues("rejected").Inc()
		return models.Skin{}, ErrPayloadTooLarge
	}
	skin, err := s.installer.InstallReader(ctx, r, size)
	if err != nil {
		s.metrics.SkinInstalls.WithLabelValues("failed").Inc()
		s.log.Warnw("skin_install_failed", "bytes", size, "err", err)
		return models.Skin{}, err
	}
	s.metrics.SkinInstalls.WithLabelValues("installed").Inc()
	s.log.Infow("skin_installed", "id", skin.ID, "name", skin.Name)
	s.events.Record(ctx, models.EventSkin, "skin installed", map[string]any{"id": skin.ID, "bytes": size})
	skin.Active = skin.ID == s.rt.State.ActiveSkin
	return skin, nil
}

func (s *SkinService) Activate(ctx context.Context, id string) error {
	if _, err := s.repo.Get(id); err != nil {
		return err
	}
	if err := s.repo.SetActive(id); err != nil {
		return fmt.Errorf("activate skin %s: %w", id, err)
	}
	s.rt.State.ActiveSkin = id
	s.log.Infow("skin_activated", "id", id)
	s.events.Record(ctx, models.EventSkin, "skin activated", map[string]any{"id": id})
	return nil
}

// Deactivate clears the active selection. id must name the active skin.
func (s *SkinService) Deactivate(ctx context.Context, id string) error {
	if id == "" || id != s.rt.State.ActiveSkin {
		return fmt.Errorf("%w: %s", ErrSkinNotActive, id)
	}
	return s.clear(ctx, id, "skin deactivated")
}

func (s *SkinService) Remove(ctx context.Context, id string) error {
	if err := s.repo.Remove(id); err != nil {
		return err
	}
	if s.rt.State.ActiveSkin == id {
		s.rt.State.ActiveSkin = ""
	}
	s.log.Infow("skin_removed", "id", id)
	s.events.Record(ctx, models.EventSkin, "skin removed", map[string]any{"id": id})
	return nil
}

// Reset returns the UI to the built-in web root.
func (s *SkinService) Reset(ctx context.Context) error {
	return s.clear(ctx, s.rt.State.ActiveSkin, "default skin restored")
}

// Active returns the active skin when it is still installed.
func (s *SkinService) Active() (models.Skin, bool) {
	id := s.rt.State.ActiveSkin
	if id == "" {
		return models.Skin{}, false
	}
	skin, err := s.repo.Get(id)
	if err != nil {
		return models.Skin{}, false
	}
	skin.Active = true
	return skin, true
}

func (s *SkinService) clear(ctx context.Context, id, description string) error {
	if err := s.repo.SetActive(""); err != nil {
		return fmt.Errorf("clear active skin: %w", err)
	}
	s.rt.State.ActiveSkin = ""
	s.log.Infow("skin_cleared", "id", id)
	s.events.Record(ctx, models.EventSkin, description, map[string]any{"id": id})
	return nil
}
