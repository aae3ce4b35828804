package models

import "time"

// Journal event types.
const (
	EventThrottle = "THROTTLE"
	EventSetting  = "SETTING"
	EventProfile  = "PROFILE"
	EventSkin     = "SKIN"
	EventDaemon   = "DAEMON"
)

// ThrottleEvent is a single journal entry.
type ThrottleEvent struct {
	EventID     string    `json:"event_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"`        // THROTTLE | SETTING | PROFILE | SKIN | DAEMON
	Description string    `json:"description"` // human-readable
	Metadata    any       `json:"metadata,omitempty"`
}
