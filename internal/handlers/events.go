package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cpu_throttle/internal/service"

	"github.com/gin-gonic/gin"
)

// queryLayouts are tried in order. A date-only value has no clock part.
var queryLayouts = []struct {
	layout   string
	dateOnly bool
}{
	{time.RFC3339, false},
	{"2006-01-02 15:04:05", false},
	{"2006-01-02", true},
}

var errEventRange = errors.New("'from' must be <= 'to'")

// @Summary      List journal events
// @Description  Journal entries oldest first. Bounds are inclusive; a date-only 'to' ends at 23:59:59.999999999Z.
// @Tags         events
// @Produce      json
// @Param        from  query   string  false  "RFC3339, 'YYYY-MM-DD HH:MM:SS' or 'YYYY-MM-DD'"  example(2025-08-01)
// @Param        to    query   string  false  "Same formats as from"  example(2025-08-31)
// @Param        type  query   string  false  "Event type"  Enums(THROTTLE,SETTING,PROFILE,SKIN,DAEMON)
// @Success      200   {object}  map[string]interface{}  "count, events"
// @Failure      400   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/events [get]
func (h *Handler) getEvents(c *gin.Context) {
	f, err := parseEventFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	events, err := h.services.EventLog.List(c.Request.Context(), f)
	if err != nil {
		if h.log != nil {
			h.log.Errorw("events_list_failed", "err", err, "from", f.From, "to", f.To, "type", f.Type)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load events"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":  len(events),
		"events": events,
	})
}

// parseEventFilter reads from/to/type. A date-only "to" covers the whole day.
// Errors are safe to show to the caller.
func parseEventFilter(c *gin.Context) (service.LogFilter, error) {
	f := service.LogFilter{Type: strings.ToUpper(strings.TrimSpace(c.Query("type")))}
	if qs := c.Query("from"); qs != "" {
		t, _, err := parseQueryTime(qs)
		if err != nil {
			return f, fmt.Errorf("invalid 'from': %w", err)
		}
		f.From = t
	}
	if qs := c.Query("to"); qs != "" {
		t, wholeDay, err := parseQueryTime(qs)
		if err != nil {
			return f, fmt.Errorf("invalid 'to': %w", err)
		}
		if wholeDay {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		f.To = t
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.From.After(f.To) {
		return f, errEventRange
	}
	return f, nil
}

func parseQueryTime(s string) (time.Time, bool, error) {
	for _, l := range queryLayouts {
		if t, err := time.Parse(l.layout, s); err == nil {
			return t.UTC(), l.dateOnly, nil
		}
	}
	return time.Time{}, false, fmt.Errorf("%q is not RFC3339, 'YYYY-MM-DD HH:MM:SS' or 'YYYY-MM-DD'", s)
}
