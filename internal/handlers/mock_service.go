package handlers

import (
	"context"
	"io"
	"sync"
	"time"

	"cpu_throttle"
	"cpu_throttle/internal/models"
	"cpu_throttle/internal/repository"
	"cpu_throttle/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"
)

// ---- Service Mocks ----

type mockSettings struct {
	safeMax, safeMin int
	tempMaxErr       error
	lastTempMax      int
	lastZone         int
	avg              bool
	types            []string
}

func (m *mockSettings) SetSafeMax(_ context.Context, kHz int) int { m.safeMax = min(kHz, 3000000); return m.safeMax }
func (m *mockSettings) SetSafeMin(_ context.Context, kHz int) int { m.safeMin = kHz; return kHz }
func (m *mockSettings) SetTempMax(_ context.Context, c int) error {
	if m.tempMaxErr != nil {
		return m.tempMaxErr
	}
	m.lastTempMax = c
	return nil
}
func (m *mockSettings) SetThermalZone(_ context.Context, z int) error {
	if z < -1 || z > 100 {
		return service.ErrOutOfRange
	}
	m.lastZone = z
	return nil
}
func (m *mockSettings) SetUseAvgTemp(_ context.Context, on bool) { m.avg = on }
func (m *mockSettings) SetExcludedTypes(_ context.Context, csv string) []string {
	m.types = []string{csv}
	return m.types
}
func (m *mockSettings) ExcludedTypes() []string { return m.types }

type mockMonitoring struct {
	status  cpu_throttle.Status
	zones   []models.ThermalZone
	zoneErr error
}

func (m *mockMonitoring) Status() cpu_throttle.Status   { return m.status }
func (m *mockMonitoring) Metrics() cpu_throttle.Metrics { return cpu_throttle.Metrics{Ticks: 3} }
func (m *mockMonitoring) Limits() models.Limits {
	return models.Limits{MinFreq: 800000, MaxFreq: 3000000, TempSensor: "auto"}
}
func (m *mockMonitoring) Zones() ([]models.ThermalZone, error) { return m.zones, m.zoneErr }
func (m *mockMonitoring) Version() string                      { return cpu_throttle.Version }

// mockProfiles keeps profiles in a map.
type mockProfiles struct {
	data    map[string]string
	loadErr error
	loaded  string
}

func newMockProfiles() *mockProfiles { return &mockProfiles{data: map[string]string{}} }

func (m *mockProfiles) List() ([]string, error) {
	out := make([]string, 0, len(m.data))
	for k := range m.data {
		out = append(out, k)
	}
	return out, nil
}
func (m *mockProfiles) Entries() ([]cpu_throttle.ProfileEntry, error) {
	out := make([]cpu_throttle.ProfileEntry, 0, len(m.data))
	for k, v := range m.data {
		out = append(out, cpu_throttle.ProfileEntry{Name: k, Content: v})
	}
	return out, nil
}
func (m *mockProfiles) Get(name string) (string, error) {
	v, ok := m.data[name]
	if !ok {
		return "", repository.ErrNotFound
	}
	return v, nil
}
func (m *mockProfiles) Save(_ context.Context, name, content string) error {
	if len(content) > service.MaxProfileBytes {
		return service.ErrPayloadTooLarge
	}
	m.data[name] = content
	return nil
}
func (m *mockProfiles) SaveBase64(context.Context, string, string) error { return nil }
func (m *mockProfiles) Delete(_ context.Context, name string) error {
	if _, ok := m.data[name]; !ok {
		return repository.ErrNotFound
	}
	delete(m.data, name)
	return nil
}
func (m *mockProfiles) Load(_ context.Context, name string) (models.Profile, error) {
	if _, ok := m.data[name]; !ok {
		return models.Profile{}, repository.ErrNotFound
	}
	if m.loadErr != nil {
		return models.Profile{}, m.loadErr
	}
	m.loaded = name
	return models.Profile{Name: name}, nil
}

type mockSkins struct {
	skins      []models.Skin
	active     string
	installed  []byte
	installErr error
	actions    []string
}

func (m *mockSkins) List() ([]models.Skin, error) { return m.skins, nil }
func (m *mockSkins) Install(_ context.Context, r io.Reader, size int64) (models.Skin, error) {
	b, _ := io.ReadAll(io.LimitReader(r, size))
	m.installed = b
	if m.installErr != nil {
		return models.Skin{}, m.installErr
	}
	return models.Skin{ID: "ocean", Name: "Ocean"}, nil
}
func (m *mockSkins) find(id string) bool {
	for _, s := range m.skins {
		if s.ID == id {
			return true
		}
	}
	return false
}
func (m *mockSkins) Activate(_ context.Context, id string) error {
	m.actions = append(m.actions, "activate "+id)
	if !m.find(id) && id != "ocean" {
		return repository.ErrNotFound
	}
	m.active = id
	return nil
}
func (m *mockSkins) Deactivate(_ context.Context, id string) error {
	m.actions = append(m.actions, "deactivate "+id)
	if id != m.active {
		return service.ErrSkinNotActive
	}
	m.active = ""
	return nil
}
func (m *mockSkins) Remove(_ context.Context, id string) error {
	m.actions = append(m.actions, "remove "+id)
	if !m.find(id) {
		return repository.ErrNotFound
	}
	return nil
}
func (m *mockSkins) Reset(context.Context) error {
	m.actions = append(m.actions, "reset")
	m.active = ""
	return nil
}
func (m *mockSkins) Active() (models.Skin, bool) {
	for _, s := range m.skins {
		if s.ID == m.active {
			s.Active = true
			return s, true
		}
	}
	return models.Skin{}, false
}

type mockDaemon struct {
	shutdowns, restarts int
}

func (m *mockDaemon) Shutdown(context.Context) { m.shutdowns++ }
func (m *mockDaemon) Restart(context.Context)  { m.restarts++ }

type mockEventLog struct {
	resp     []models.ThrottleEvent
	err      error
	lastFrom time.Time
	lastTo   time.Time
	lastType string
}

func (m *mockEventLog) Record(context.Context, string, string, any) {}

func (m *mockEventLog) List(ctx context.Context, f service.LogFilter) ([]models.ThrottleEvent, error) {
	m.lastFrom = f.From
	m.lastTo = f.To
	m.lastType = f.Type
	return m.resp, m.err
}

// mockStream hands out one subscription channel the test can push into.
type mockStream struct {
	mu   sync.Mutex
	last cpu_throttle.Status
	ch   chan cpu_throttle.Status
}

func newMockStream() *mockStream { return &mockStream{ch: make(chan cpu_throttle.Status, 4)} }

func (m *mockStream) Subscribe() (<-chan cpu_throttle.Status, func()) { return m.ch, func() {} }
func (m *mockStream) Last() cpu_throttle.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

type mockCommander struct {
	lines []string
	reply string
}

func (m *mockCommander) Execute(_ context.Context, line string) string {
	m.lines = append(m.lines, line)
	return m.reply
}

// ---- Shared Test Helpers ----

type mocks struct {
	settings *mockSettings
	mon      *mockMonitoring
	profiles *mockProfiles
	skins    *mockSkins
	daemon   *mockDaemon
	events   *mockEventLog
	stream   *mockStream
	cmd      *mockCommander
	fs       afero.Fs
}

func newMocks() *mocks {
	return &mocks{
		settings: &mockSettings{},
		mon:      &mockMonitoring{},
		profiles: newMockProfiles(),
		skins:    &mockSkins{},
		daemon:   &mockDaemon{},
		events:   &mockEventLog{},
		stream:   newMockStream(),
		cmd:      &mockCommander{reply: "OK\n"},
		fs:       afero.NewMemMapFs(),
	}
}

func (m *mocks) service() *service.Service {
	return &service.Service{
		Settings:   m.settings,
		Monitoring: m.mon,
		Profiles:   m.profiles,
		Skins:      m.skins,
		Daemon:     m.daemon,
		EventLog:   m.events,
		Stream:     m.stream,
	}
}

func newTestRouter(m *mocks) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(m.service(), nil, Options{WebRoot: "/web", Fs: m.fs, Commands: m.cmd})
	return h.InitRoutes()
}
