package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"cpu_throttle/internal/models"

	"github.com/google/uuid"
)

const insertEventSQL = `
		INSERT INTO throttle_events (id, occurred_at, type, message, meta)
		VALUES (?, ?, ?, ?, ?)
	`

const selectEventsSQL = `SELECT id, occurred_at, type, message, meta FROM throttle_events`

// occurred_at is stored as fixed-width UTC text so range filters compare lexically.
const eventTimeLayout = "2006-01-02 15:04:05.000"

type EventSQLite struct {
	db *sql.DB
}

func NewEventSQLite(db *sql.DB) *EventSQLite { return &EventSQLite{db: db} }

// Append inserts one event. A missing id gets a uuid and a zero time becomes now.
// Metadata that cannot be encoded is dropped rather than failing the write.
func (r *EventSQLite) Append(ctx context.Context, e models.ThrottleEvent) error {
	id := e.EventID
	if id == "" {
		id = uuid.NewString()
	}
	at := e.OccurredAt
	if at.IsZero() {
		at = time.Now()
	}
	var meta sql.NullString
	if e.Metadata != nil {
		if b, err := json.Marshal(e.Metadata); err == nil {
			meta = sql.NullString{String: string(b), Valid: true}
		}
	}
	_, err := r.db.ExecContext(ctx, insertEventSQL,
		id, at.UTC().Format(eventTimeLayout), strings.ToUpper(strings.TrimSpace(e.Type)), e.Description, meta)
	return err
}

// List returns events filtered by [from, to] (inclusive) and/or type, oldest first.
// Zero bounds and an empty type are not applied.
func (r *EventSQLite) List(ctx context.Context, from, to time.Time, typ string) ([]models.ThrottleEvent, error) {
	var where []string
	var args []any
	add := func(clause string, v any) {
		where = append(where, clause)
		args = append(args, v)
	}
	if !from.IsZero() {
		add("occurred_at >= ?", from.UTC().Format(eventTimeLayout))
	}
	if !to.IsZero() {
		add("occurred_at <= ?", to.UTC().Format(eventTimeLayout))
	}
	if typ = strings.ToUpper(strings.TrimSpace(typ)); typ != "" {
		add("type = ?", typ)
	}

	q := selectEventsSQL
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	rows, err := r.db.QueryContext(ctx, q+" ORDER BY occurred_at ASC", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []models.ThrottleEvent{}
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// scanEvent reads one row. Metadata that is not valid JSON is returned as the raw string.
func scanEvent(rows *sql.Rows) (models.ThrottleEvent, error) {
	var (
		ev   models.ThrottleEvent
		meta sql.NullString
	)
	if err := rows.Scan(&ev.EventID, &ev.OccurredAt, &ev.Type, &ev.Description, &meta); err != nil {
		return ev, err
	}
	ev.OccurredAt = ev.OccurredAt.UTC()
	if meta.Valid && meta.String != "" {
		var v any
		if json.Unmarshal([]byte(meta.String), &v) == nil {
			ev.Metadata = v
		} else {
			ev.Metadata = meta.String
		}
	}
	return ev, nil
}

// NopEvents is the journal used when no events database is configured.
type NopEvents struct{}

func (NopEvents) Append(context.Context, models.ThrottleEvent) error { return nil }

func (NopEvents) List(context.Context, time.Time, time.Time, string) ([]models.ThrottleEvent, error) {
	return []models.ThrottleEvent{}, nil
}
