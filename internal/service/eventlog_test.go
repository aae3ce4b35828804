package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"cpu_throttle/internal/logger"
	"cpu_throttle/internal/models"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// fakeEventRepo keeps appended events and the last List query.
type fakeEventRepo struct {
	appended  []models.ThrottleEvent
	appendErr error
	deadline  bool

	gotFrom, gotTo time.Time
	gotType        string
	listCalls      int
	events         []models.ThrottleEvent
	listErr        error
}

func (f *fakeEventRepo) Append(ctx context.Context, e models.ThrottleEvent) error {
	_, f.deadline = ctx.Deadline()
	f.appended = append(f.appended, e)
	return f.appendErr
}

func (f *fakeEventRepo) List(_ context.Context, from, to time.Time, typ string) ([]models.ThrottleEvent, error) {
	f.listCalls++
	f.gotFrom, f.gotTo, f.gotType = from, to, typ
	return f.events, f.listErr
}

func observedLogger() (*logger.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return &logger.Logger{SugaredLogger: zap.New(core).Sugar()}, logs
}

func TestRecord_AppendsUTCEventWithDeadline(t *testing.T) {
	repo := &fakeEventRepo{}
	s := NewEventLogService(repo, nil)

	meta := map[string]any{"temp": 92, "freq": 1800000}
	before := time.Now().UTC()
	s.Record(context.Background(), models.EventThrottle, "throttled to 1800000 kHz", meta)

	if len(repo.appended) != 1 {
		t.Fatalf("appended %d events, want 1", len(repo.appended))
	}
	e := repo.appended[0]
	if e.Type != models.EventThrottle || e.Description != "throttled to 1800000 kHz" {
		t.Fatalf("event = %+v", e)
	}
	if e.OccurredAt.Location() != time.UTC || e.OccurredAt.Before(before) {
		t.Fatalf("OccurredAt = %v, want UTC not before %v", e.OccurredAt, before)
	}
	if got, ok := e.Metadata.(map[string]any); !ok || got["temp"] != 92 {
		t.Fatalf("metadata = %#v", e.Metadata)
	}
	if !repo.deadline {
		t.Fatal("append should run with a deadline")
	}
}

func TestRecord_FailureIsLoggedNotReturned(t *testing.T) {
	repo := &fakeEventRepo{appendErr: errors.New("database is locked")}
	log, logs := observedLogger()
	s := NewEventLogService(repo, log)

	s.Record(context.Background(), models.EventSkin, "skin ocean activated", nil)

	entries := logs.FilterMessage("journal_append_failed").All()
	if len(entries) != 1 {
		t.Fatalf("got %d warnings, want 1", len(entries))
	}
	if entries[0].Level != zapcore.WarnLevel {
		t.Fatalf("level = %v", entries[0].Level)
	}
	if got := entries[0].ContextMap()["type"]; got != models.EventSkin {
		t.Fatalf("type field = %v", got)
	}
}

func TestList_NormalizesFilter(t *testing.T) {
	plus3 := time.FixedZone("UTC+3", 3*3600)
	from := time.Date(2025, 8, 1, 3, 0, 0, 0, plus3)
	to := time.Date(2025, 8, 2, 3, 0, 0, 0, plus3)
	want := []models.ThrottleEvent{{EventID: "e7", Type: models.EventProfile}}

	repo := &fakeEventRepo{events: want}
	s := NewEventLogService(repo, nil)

	got, err := s.List(context.Background(), LogFilter{From: from, To: to, Type: "  profile "})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 || got[0].EventID != "e7" {
		t.Fatalf("events = %+v", got)
	}
	if !repo.gotFrom.Equal(time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)) || repo.gotFrom.Location() != time.UTC {
		t.Fatalf("from = %v", repo.gotFrom)
	}
	if !repo.gotTo.Equal(to) || repo.gotTo.Location() != time.UTC {
		t.Fatalf("to = %v", repo.gotTo)
	}
	if repo.gotType != models.EventProfile {
		t.Fatalf("type = %q", repo.gotType)
	}
}

func TestList_OpenBoundsStayZero(t *testing.T) {
	repo := &fakeEventRepo{}
	s := NewEventLogService(repo, nil)

	if _, err := s.List(context.Background(), LogFilter{}); err != nil {
		t.Fatalf("List: %v", err)
	}
	if !repo.gotFrom.IsZero() || !repo.gotTo.IsZero() || repo.gotType != "" {
		t.Fatalf("query = %v %v %q", repo.gotFrom, repo.gotTo, repo.gotType)
	}
}

func TestList_Errors(t *testing.T) {
	now := time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)
	storeErr := errors.New("disk I/O error")

	tests := []struct {
		name      string
		filter    LogFilter
		repoErr   error
		want      error
		wantCalls int
	}{
		{
			name:   "from after to",
			filter: LogFilter{From: now, To: now.Add(-time.Minute)},
			want:   errInvalidTimeRange,
		},
		{
			name:      "store failure",
			filter:    LogFilter{From: now.Add(-time.Hour), To: now},
			repoErr:   storeErr,
			want:      storeErr,
			wantCalls: 1,
		},
		{
			name:      "equal bounds allowed",
			filter:    LogFilter{From: now, To: now},
			wantCalls: 1,
		},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			repo := &fakeEventRepo{listErr: tc.repoErr}
			_, err := NewEventLogService(repo, nil).List(context.Background(), tc.filter)
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
			if repo.listCalls != tc.wantCalls {
				t.Fatalf("store calls = %d, want %d", repo.listCalls, tc.wantCalls)
			}
		})
	}
}
