package handlers

import (
	"net/http"
	"strconv"
	"time"

	"cpu_throttle"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	streamWriteTimeout = 10 * time.Second
	streamIdleTimeout  = time.Minute
	streamPingEvery    = 50 * time.Second
	streamReadLimit    = 4 << 10

	// push cadence bounds; one sample per control tick is the default
	defaultInterval = time.Second
	maxInterval     = 10 * time.Second

	envelopeStatus = "status"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// @Summary      Live status stream
// @Description  Upgrades to a websocket and pushes {"type":"status","data":...} at most once per interval.
// @Tags         monitoring
// @Param        interval     query  string  false  "Go duration, max 10s"  example(500ms)
// @Param        interval_ms  query  int     false  "Milliseconds, max 10000"
// @Success      101
// @Router       /api/stream [get]
func (h *Handler) wsConnect(c *gin.Context) {
	interval := h.parseInterval(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		if h.log != nil {
			h.log.Errorw("ws_upgrade_failed", "err", err)
		}
		return
	}

	// The connection is hijacked; the stream outlives this request.
	go h.stream(conn, interval)
}

func (h *Handler) stream(conn *websocket.Conn, interval time.Duration) {
	defer func() { _ = conn.Close() }()

	conn.SetReadLimit(streamReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(streamIdleTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamIdleTimeout))
	})

	// Clients never send data; reading only services control frames and notices close.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	updates, cancel := h.services.Stream.Subscribe()
	defer cancel()

	push := time.NewTicker(interval)
	defer push.Stop()
	ping := time.NewTicker(streamPingEvery)
	defer ping.Stop()

	if err := h.sendStatus(conn, h.services.Stream.Last()); err != nil {
		h.streamClosed("initial", err)
		return
	}

	var pending *cpu_throttle.Status
	for {
		select {
		case <-done:
			return
		case st, ok := <-updates:
			if !ok {
				return
			}
			pending = &st
		case <-push.C:
			if pending == nil {
				continue
			}
			if err := h.sendStatus(conn, *pending); err != nil {
				h.streamClosed("status", err)
				return
			}
			pending = nil
		case <-ping.C:
			deadline := time.Now().Add(streamWriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				h.streamClosed("ping", err)
				return
			}
		}
	}
}

// parseInterval reads ?interval=500ms or ?interval_ms=500. Values outside
// (0, maxInterval] fall back to one second.
func (h *Handler) parseInterval(c *gin.Context) time.Duration {
	d, err := time.ParseDuration(c.Query("interval"))
	if err != nil {
		ms, _ := strconv.Atoi(c.Query("interval_ms"))
		d = time.Duration(ms) * time.Millisecond
	}
	if d <= 0 || d > maxInterval {
		return defaultInterval
	}
	return d
}

func (h *Handler) sendStatus(conn *websocket.Conn, st cpu_throttle.Status) error {
	_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
	return conn.WriteJSON(cpu_throttle.StreamEnvelope{Type: envelopeStatus, Data: st})
}

func (h *Handler) streamClosed(stage string, err error) {
	if h.log != nil {
		h.log.Debugw("stream_closed", "stage", stage, "err", err)
	}
}
