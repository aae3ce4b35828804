package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"cpu_throttle/internal/logger"
	"cpu_throttle/internal/models"
	"cpu_throttle/internal/repository"
)

// journalTimeout bounds one journal write so a slow disk cannot stall the reactor.
const journalTimeout = 2 * time.Second

var errInvalidTimeRange = errors.New("invalid time range: From must be <= To")

type EventLogService struct {
	eventRepo repository.EventRepo
	log       *logger.Logger
}

func NewEventLogService(eventRepo repository.EventRepo, log *logger.Logger) *EventLogService {
	if log == nil {
		log = logger.Nop()
	}
	return &EventLogService{eventRepo: eventRepo, log: log}
}

// Record appends a control event. Journal failures are logged and never reach the
// caller: losing an entry must not fail the command that produced it.
func (s *EventLogService) Record(ctx context.Context, typ, description string, meta any) {
	ctx, cancel := context.WithTimeout(ctx, journalTimeout)
	defer cancel()
	err := s.eventRepo.Append(ctx, models.ThrottleEvent{
		OccurredAt:  time.Now().UTC(),
		Type:        typ,
		Description: description,
		Metadata:    meta,
	})
	if err != nil {
		s.log.Warnw("journal_append_failed", "type", typ, "err", err)
	}
}

func (s *EventLogService) List(ctx context.Context, f LogFilter) ([]models.ThrottleEvent, error) {
	from, to, typ, err := normalizeAndValidateFilter(f)
	if err != nil {
		return nil, err
	}
	return s.eventRepo.List(ctx, from, to, typ)
}

// normalizeAndValidateFilter prepares query parameters and validates the time range.
func normalizeAndValidateFilter(f LogFilter) (time.Time, time.Time, string, error) {
	from := normalizeToUTC(f.From)
	to := normalizeToUTC(f.To)

	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return time.Time{}, time.Time{}, "", errInvalidTimeRange
	}
	return from, to, normalizeEventType(f.Type), nil
}

// normalizeToUTC returns t in UTC, preserving zero time values.
func normalizeToUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}

func normalizeEventType(s string) string {
	return strings.TrimSpace(strings.ToUpper(s))
}
