package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"cpu_throttle"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

func TestParseInterval(t *testing.T) {
	h := NewHandler(newMocks().service(), nil, Options{})

	cases := map[string]time.Duration{
		"":                             time.Second,
		"?interval=200ms":              200 * time.Millisecond,
		"?interval_ms=150":             150 * time.Millisecond,
		"?interval=20s":                time.Second,
		"?interval_ms=20000":           time.Second,
		"?interval=0s":                 time.Second,
		"?interval=bogus":              time.Second,
		"?interval_ms=NaN":             time.Second,
		"?interval=2s&interval_ms=150": 2 * time.Second,
		"?interval=x&interval_ms=250":  250 * time.Millisecond,
	}
	for query, want := range cases {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/api/stream"+query, nil)
		if got := h.parseInterval(c); got != want {
			t.Errorf("parseInterval(%q) = %v, want %v", query, got, want)
		}
	}
}

type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func dialStream(t *testing.T, m *mocks) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(newTestRouter(m))
	t.Cleanup(srv.Close)

	u, _ := url.Parse(srv.URL)
	u.Scheme = "ws"
	u.Path = "/api/stream"
	q := u.Query()
	q.Set("interval_ms", "20") // fast ticks for the test
	u.RawQuery = q.Encode()

	dialer := websocket.Dialer{HandshakeTimeout: 2 * time.Second}
	conn, _, err := dialer.Dial(u.String(), nil)
	if err != nil {
		t.Fatalf("dial error: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readStatus(t *testing.T, conn *websocket.Conn) cpu_throttle.Status {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(1 * time.Second))
	var env envelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read: %v", err)
	}
	if env.Type != "status" || len(env.Data) == 0 {
		t.Fatalf("bad envelope: %+v", env)
	}
	var st cpu_throttle.Status
	if err := json.Unmarshal(env.Data, &st); err != nil {
		t.Fatalf("unmarshal status: %v", err)
	}
	return st
}

func TestWebSocket_StatusStream_InitialAndUpdate(t *testing.T) {
	m := newMocks()
	m.stream.last = cpu_throttle.Status{Temperature: 55, Frequency: 3000000, TempMax: 95}
	conn := dialStream(t, m)

	st := readStatus(t, conn)
	if st.Temperature != 55 || st.Frequency != 3000000 || st.TempMax != 95 {
		t.Fatalf("unexpected initial status: %+v", st)
	}

	m.stream.ch <- cpu_throttle.Status{Temperature: 80, Frequency: 800000, TempMax: 95}
	st = readStatus(t, conn)
	if st.Temperature != 80 || st.Frequency != 800000 {
		t.Fatalf("unexpected update: %+v", st)
	}
}

func TestWebSocket_ClosedSubscription_Closes(t *testing.T) {
	m := newMocks()
	conn := dialStream(t, m)
	_ = readStatus(t, conn)

	close(m.stream.ch)

	_ = conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
	var raw json.RawMessage
	if err := conn.ReadJSON(&raw); err == nil {
		t.Fatalf("expected read error (closed), got message: %s", string(raw))
	}
}
