package protocol

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"cpu_throttle/internal/installer"
	"cpu_throttle/internal/models"
	"cpu_throttle/internal/repository"
	"cpu_throttle/internal/service"

	"github.com/spf13/afero"
)

type stubSensor struct{ temp int }

func (s stubSensor) Sample(_ models.ControlState, now time.Time) (models.ThermalSample, error) {
	return models.ThermalSample{TempC: s.temp, Source: "thermal_zone0", Timestamp: now}, nil
}

func (s stubSensor) Zones([]string) ([]models.ThermalZone, error) {
	return []models.ThermalZone{
		{Index: 0, Type: "x86_pkg_temp", TempC: 55},
		{Index: 1, Type: "amdgpu", TempC: 70, Excluded: true},
	}, nil
}

func (s stubSensor) Describe(models.ControlState) string { return "auto" }

type stubActuator struct{}

func (stubActuator) Apply(int) (int, error) { return 1, nil }

// stubInstaller consumes the upload exactly like the real installer does.
type stubInstaller struct {
	got []byte
}

func (s *stubInstaller) InstallReader(_ context.Context, r io.Reader, size int64) (models.Skin, error) {
	var buf bytes.Buffer
	n, err := io.CopyN(&buf, r, size)
	s.got = buf.Bytes()
	if n < size {
		return models.Skin{}, fmt.Errorf("%w: %v", installer.ErrIncompleteUpload, err)
	}
	return models.Skin{ID: "ocean", Name: "Ocean"}, nil
}

type env struct {
	d   *Dispatcher
	rt  *service.Runtime
	fs  afero.Fs
	ins *stubInstaller
}

func newEnv(t *testing.T) *env {
	t.Helper()
	fsys := afero.NewMemMapFs()
	rt := service.NewRuntime(models.ControlState{TempMax: 95, ThermalZone: models.AutoZone},
		models.Limits{MinFreq: 800000, MaxFreq: 3000000}, false, time.Now())
	ins := &stubInstaller{}
	svc := service.NewService(service.Deps{
		Runtime:   rt,
		Repos:     repository.NewRepository(fsys, "/profiles", "/skins", nil),
		Sensor:    stubSensor{temp: 60},
		Actuator:  stubActuator{},
		Installer: ins,
	})
	return &env{d: NewDispatcher(svc, nil, nil, 2*time.Second), rt: rt, fs: fsys, ins: ins}
}

// roundTrip serves one loopback TCP connection, sends chunks and returns the reply.
func (e *env) roundTrip(t *testing.T, closeWrite bool, chunks ...[]byte) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		e.d.Serve(context.Background(), conn)
	}()

	cli, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer cli.Close()
	for _, c := range chunks {
		if _, err := cli.Write(c); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if closeWrite {
		_ = cli.(*net.TCPConn).CloseWrite()
	}
	_ = cli.SetReadDeadline(time.Now().Add(5 * time.Second))
	out, _ := io.ReadAll(cli)
	<-done
	return string(out)
}

// frame

func TestFrame_HeaderWithPayloadInOneRead(t *testing.T) {
	t.Parallel()
	var f Frame
	if err := f.Feed([]byte("put-profile demo 11\nhello world")); err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if !f.HeaderParsed() || f.Name != "demo" || f.Expected != 11 || f.Received != 11 {
		t.Fatalf("frame=%+v", f)
	}
	body, _ := io.ReadAll(f.Body(strings.NewReader("trailing junk")))
	if string(body) != "hello world" || !f.Complete() {
		t.Fatalf("body=%q received=%d", body, f.Received)
	}
}

func TestFrame_FragmentedHeader(t *testing.T) {
	t.Parallel()
	var f Frame
	for _, chunk := range []string{"put-prof", "ile demo 5", "\nhel"} {
		if err := f.Feed([]byte(chunk)); err != nil {
			t.Fatalf("Feed(%q): %v", chunk, err)
		}
	}
	if !f.HeaderParsed() || f.Received != 3 {
		t.Fatalf("frame=%+v", f)
	}
	body, _ := io.ReadAll(f.Body(strings.NewReader("lo world")))
	if string(body) != "hello" || f.Received != 5 {
		t.Fatalf("body=%q received=%d", body, f.Received)
	}
}

func TestFrame_SimpleVerbWithoutNewline(t *testing.T) {
	t.Parallel()
	var f Frame
	_ = f.Feed([]byte("set-temp-max 80"))
	if !f.HeaderParsed() || f.Verb != "set-temp-max" || f.Arg != "80" {
		t.Fatalf("frame=%+v", f)
	}
}

func TestFrame_InvalidHeaders(t *testing.T) {
	t.Parallel()
	for _, h := range []string{"put-profile demo\n", "put-profile demo -1\n", "put-skin x abc\n", "put-skin\n"} {
		var f Frame
		if err := f.Feed([]byte(h)); err != ErrInvalidHeader {
			t.Errorf("Feed(%q) err=%v, want ErrInvalidHeader", h, err)
		}
	}
	var f Frame
	if err := f.Finish(); err != ErrInvalidHeader {
		t.Errorf("empty Finish err=%v", err)
	}
}

// socket

func TestServe_PutProfileSingleWrite(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	out := e.roundTrip(t, false, []byte("put-profile demo 11\nhello world"))
	if out != "OK: profile demo saved (11 bytes)\n" {
		t.Fatalf("reply=%q", out)
	}
	data, err := afero.ReadFile(e.fs, "/profiles/demo")
	if err != nil || string(data) != "hello world" {
		t.Fatalf("file=%q err=%v", data, err)
	}
}

func TestServe_PutProfileSplitWrites(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	out := e.roundTrip(t, false, []byte("put-profile quiet 12\n"), []byte("temp_"), []byte("max=80\n"))
	if !strings.HasPrefix(out, "OK: profile quiet saved") {
		t.Fatalf("reply=%q", out)
	}
	data, _ := afero.ReadFile(e.fs, "/profiles/quiet")
	if string(data) != "temp_max=80\n" {
		t.Fatalf("file=%q", data)
	}
}

func TestServe_IncompletePayload(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	out := e.roundTrip(t, true, []byte("put-profile short 10\nabc"))
	if out != replyIncomplete {
		t.Fatalf("reply=%q", out)
	}
	if ok, _ := afero.Exists(e.fs, "/profiles/short"); ok {
		t.Fatal("partial profile written")
	}
}

func TestServe_OversizeIsDrained(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	header := fmt.Sprintf("put-profile big %d\n", service.MaxProfileBytes+1)
	out := e.roundTrip(t, true, []byte(header), bytes.Repeat([]byte("x"), 64<<10))
	if out != replyTooLarge {
		t.Fatalf("reply=%q", out)
	}
}

func TestServe_InvalidHeader(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	if out := e.roundTrip(t, false, []byte("put-profile demo many\n")); out != replyInvalidHeader {
		t.Fatalf("reply=%q", out)
	}
}

func TestServe_PutSkin(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	out := e.roundTrip(t, false, []byte("put-skin ocean.tar.gz 7\narch"), []byte("ive"))
	if out != "OK: installed ocean\n" {
		t.Fatalf("reply=%q", out)
	}
	if string(e.ins.got) != "archive" {
		t.Fatalf("installer got %q", e.ins.got)
	}

	out = e.roundTrip(t, true, []byte("put-skin ocean.tar.gz 100\nshort"))
	if out != replyIncomplete {
		t.Fatalf("short skin reply=%q", out)
	}
}

func TestServe_SimpleCommand(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	if out := e.roundTrip(t, false, []byte("set-temp-max 40\n")); out != "ERROR: temp_max must be 50-110°C\n" {
		t.Fatalf("reply=%q", out)
	}
	if e.rt.State.TempMax != 95 {
		t.Fatalf("temp_max=%d, want unchanged 95", e.rt.State.TempMax)
	}
	if out := e.roundTrip(t, false, []byte("version")); out != "cpu_throttle version 2.0\n" {
		t.Fatalf("reply=%q", out)
	}
}

// commands

func TestExecute_Settings(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()

	tests := []struct {
		line string
		want string
	}{
		{"set-safe-max 5000000", "OK: safe_max set to 3000000 kHz\n"},
		{"set-safe-max 100", "OK: safe_max set to 0 kHz\n"},
		{"set-safe-max fast", replyUnknown},
		{"set-safe-min 1", "OK: safe_min set to 800000 kHz\n"},
		{"set-temp-max 85", "OK: temp_max set to 85°C\n"},
		{"set-temp-max 111", "ERROR: temp_max must be 50-110°C\n"},
		{"set-thermal-zone 2", "OK: thermal_zone set to 2\n"},
		{"set-thermal-zone 200", "ERROR: thermal_zone must be -1..100\n"},
		{"set-use-avg-temp 1", "OK: use_avg_temp set to 1\n"},
		{"set-use-avg-temp yes", replyUnknown},
		{"set-excluded-types AMD,iwlwifi", "OK: excluded_types set to amd,iwlwifi\n"},
		{"get-excluded-types", "amd,iwlwifi\n"},
		{"set-excluded-types clear", "OK: excluded_types set to none\n"},
		{"get-excluded-types", "none\n"},
		{"frobnicate", replyUnknown},
		{"STATUS", replyUnknown},
	}
	for _, tt := range tests {
		if got := e.d.Execute(ctx, tt.line); got != tt.want {
			t.Errorf("Execute(%q)=%q, want %q", tt.line, got, tt.want)
		}
	}
	if e.rt.State.TempMax != 85 || e.rt.State.ThermalZone != 2 || !e.rt.State.UseAvgTemp {
		t.Fatalf("state=%+v", e.rt.State)
	}
}

func TestExecute_StatusAndViews(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()
	e.rt.Reading = models.Reading{TempC: 61, FreqKHz: 2500000}

	want := "Temperature: 61°C\nCurrent Freq: 2500000 kHz\nsafe_min: 0 kHz\nsafe_max: 0 kHz\ntemp_max: 95°C\n"
	if got := e.d.Execute(ctx, "status"); got != want {
		t.Fatalf("status=%q", got)
	}

	var st map[string]any
	if err := json.Unmarshal([]byte(e.d.Execute(ctx, "status json")), &st); err != nil {
		t.Fatalf("status json: %v", err)
	}
	if st["temperature"] != float64(61) || st["frequency"] != float64(2500000) {
		t.Fatalf("status json=%v", st)
	}

	if got := e.d.Execute(ctx, "limits"); !strings.Contains(got, "min_freq: 800000 kHz") || !strings.Contains(got, "max_freq: 3000000 kHz") {
		t.Fatalf("limits=%q", got)
	}
	if got := e.d.Execute(ctx, "zones"); !strings.Contains(got, "zone 1: amdgpu 70°C (excluded)") {
		t.Fatalf("zones=%q", got)
	}
	var zones []models.ThermalZone
	if err := json.Unmarshal([]byte(e.d.Execute(ctx, "zones json")), &zones); err != nil || len(zones) != 2 {
		t.Fatalf("zones json=%v err=%v", zones, err)
	}
}

func TestExecute_Profiles(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()

	enc := base64.StdEncoding.EncodeToString([]byte("safe_max=2000000\ntemp_max=80\n"))
	if got := e.d.Execute(ctx, "write-profile-base64 cool "+enc); got != "OK: profile cool saved\n" {
		t.Fatalf("write=%q", got)
	}
	if got := e.d.Execute(ctx, "write-profile-base64 bad %%%"); got != "ERROR: invalid base64\n" {
		t.Fatalf("bad write=%q", got)
	}
	if got := e.d.Execute(ctx, "get-profile cool"); got != "safe_max=2000000\ntemp_max=80\n" {
		t.Fatalf("get=%q", got)
	}
	if got := e.d.Execute(ctx, "get-profile nope"); got != replyNoProfile {
		t.Fatalf("get missing=%q", got)
	}
	if got := e.d.Execute(ctx, "list-profiles"); got != "cool\n" {
		t.Fatalf("list=%q", got)
	}
	if got := e.d.Execute(ctx, "list-profiles json"); got != "[\"cool\"]\n" {
		t.Fatalf("list json=%q", got)
	}
	if got := e.d.Execute(ctx, "load-profile cool"); got != "OK: profile cool loaded\n" {
		t.Fatalf("load=%q", got)
	}
	if e.rt.State.SafeMax != 2000000 || e.rt.State.TempMax != 80 {
		t.Fatalf("state=%+v", e.rt.State)
	}
	if got := e.d.Execute(ctx, "load-profile"); got != replyUnknown {
		t.Fatalf("load without name=%q", got)
	}
}

func TestExecute_Skins(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()
	_ = afero.WriteFile(e.fs, "/skins/ocean/manifest.json", []byte(`{"id":"ocean","name":"Ocean"}`), 0o644)

	if got := e.d.Execute(ctx, "activate-skin ocean"); got != "OK: skin ocean activated\n" {
		t.Fatalf("activate=%q", got)
	}
	if got := e.d.Execute(ctx, "list-skins"); got != "ocean\tOcean (active)\n" {
		t.Fatalf("list=%q", got)
	}
	if got := e.d.Execute(ctx, "activate-skin ../etc"); got != "ERROR: skin ../etc not found\n" {
		t.Fatalf("bad id=%q", got)
	}
	if got := e.d.Execute(ctx, "deactivate-skin forest"); got != "ERROR: skin forest is not active\n" {
		t.Fatalf("deactivate other=%q", got)
	}
	if got := e.d.Execute(ctx, "deactivate-skin ocean"); got != "OK: skin ocean deactivated\n" {
		t.Fatalf("deactivate=%q", got)
	}
	if got := e.d.Execute(ctx, "remove-skin ocean"); got != "OK: skin ocean removed\n" {
		t.Fatalf("remove=%q", got)
	}
	if got := e.d.Execute(ctx, "list-skins json"); got != "[]\n" {
		t.Fatalf("list json=%q", got)
	}
}

func TestExecute_Lifecycle(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()

	if got := e.d.Execute(ctx, "put-profile x 1"); got != replyUnknown {
		t.Fatalf("upload via Execute=%q", got)
	}
	if got := e.d.Execute(ctx, "quit"); got != "OK: Shutting down\n" || !e.rt.ExitRequested() {
		t.Fatalf("quit=%q exit=%v", got, e.rt.ExitRequested())
	}
	if got := e.d.Execute(ctx, "restart"); got != "OK: Restarting\n" || !e.rt.RestartRequested() {
		t.Fatalf("restart=%q", got)
	}
}
