package main

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// fakeDaemon answers each connection with reply(header) and records what it got.
type fakeDaemon struct {
	mu       sync.Mutex
	headers  []string
	payloads []string
	reply    func(header string) string
}

func startDaemon(t *testing.T, reply func(string) string) (*fakeDaemon, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ctl.sock")
	ln, err := net.Listen("unix", path)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })

	d := &fakeDaemon{reply: reply}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			d.serve(conn)
		}
	}()
	return d, path
}

func (d *fakeDaemon) serve(conn net.Conn) {
	defer conn.Close()
	br := bufio.NewReader(conn)
	header, _ := br.ReadString('\n')
	header = strings.TrimSuffix(header, "\n")

	var payload string
	if f := strings.Fields(header); len(f) == 3 && (f[0] == "put-profile" || f[0] == "put-skin") {
		n, _ := strconv.Atoi(f[2])
		b := make([]byte, n)
		_, _ = io.ReadFull(br, b)
		payload = string(b)
	}

	d.mu.Lock()
	d.headers = append(d.headers, header)
	d.payloads = append(d.payloads, payload)
	d.mu.Unlock()
	_, _ = io.WriteString(conn, d.reply(header))
}

func (d *fakeDaemon) got() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.headers...)
}

func runCtl(t *testing.T, socket string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--socket", socket}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestCtl_CommandLines(t *testing.T) {
	cases := []struct {
		args []string
		want string
	}{
		{[]string{"status"}, "status"},
		{[]string{"status", "--json"}, "status json"},
		{[]string{"limits", "--json"}, "limits json"},
		{[]string{"zones"}, "zones"},
		{[]string{"version"}, "version"},
		{[]string{"quit"}, "quit"},
		{[]string{"restart"}, "restart"},
		{[]string{"set", "temp-max", "85"}, "set-temp-max 85"},
		{[]string{"set", "excluded-types", "amdgpu,nvme"}, "set-excluded-types amdgpu,nvme"},
		{[]string{"get-profile", "quiet"}, "get-profile quiet"},
		{[]string{"load-profile", "quiet"}, "load-profile quiet"},
		{[]string{"list-profiles", "--json"}, "list-profiles json"},
		{[]string{"skins", "list"}, "list-skins"},
		{[]string{"skins", "activate", "ocean"}, "activate-skin ocean"},
		{[]string{"skins", "deactivate", "ocean"}, "deactivate-skin ocean"},
		{[]string{"skins", "remove", "ocean"}, "remove-skin ocean"},
	}
	for _, tc := range cases {
		t.Run(strings.Join(tc.args, "_"), func(t *testing.T) {
			d, path := startDaemon(t, func(string) string { return "OK\n" })
			out, err := runCtl(t, path, tc.args...)
			if err != nil {
				t.Fatalf("err=%v out=%q", err, out)
			}
			if got := d.got(); len(got) != 1 || got[0] != tc.want {
				t.Fatalf("sent %v, want %q", got, tc.want)
			}
			if out != "OK\n" {
				t.Fatalf("out=%q", out)
			}
		})
	}
}

func TestCtl_ErrorReplyFails(t *testing.T) {
	_, path := startDaemon(t, func(string) string { return "ERROR: temp_max must be 50-110°C\n" })
	out, err := runCtl(t, path, "set", "temp-max", "40")
	if !errors.Is(err, errDaemon) {
		t.Fatalf("err=%v, want errDaemon", err)
	}
	if !strings.HasPrefix(out, "ERROR") {
		t.Fatalf("out=%q", out)
	}
}

func TestCtl_UnknownSetting(t *testing.T) {
	d, path := startDaemon(t, func(string) string { return "OK\n" })
	if _, err := runCtl(t, path, "set", "fan", "3"); err == nil {
		t.Fatal("expected error for unknown setting")
	}
	if len(d.got()) != 0 {
		t.Fatalf("nothing should be sent, got %v", d.got())
	}
}

func TestCtl_PutProfile(t *testing.T) {
	d, path := startDaemon(t, func(string) string { return "OK: profile demo saved (11 bytes)\n" })
	file := filepath.Join(t.TempDir(), "demo.conf")
	if err := os.WriteFile(file, []byte("hello world"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := runCtl(t, path, "put-profile", "demo", file); err != nil {
		t.Fatalf("put-profile: %v", err)
	}
	if got := d.got(); len(got) != 1 || got[0] != "put-profile demo 11" {
		t.Fatalf("header=%v", got)
	}
	d.mu.Lock()
	payload := d.payloads[0]
	d.mu.Unlock()
	if payload != "hello world" {
		t.Fatalf("payload=%q", payload)
	}
}

func TestCtl_SkinInstallAndActivate(t *testing.T) {
	d, path := startDaemon(t, func(h string) string {
		if strings.HasPrefix(h, "put-skin") {
			return "OK: installed ocean\n"
		}
		return "OK: skin ocean activated\n"
	})
	file := filepath.Join(t.TempDir(), "ocean.tar.gz")
	if err := os.WriteFile(file, []byte("\x1f\x8barchive"), 0o644); err != nil {
		t.Fatal(err)
	}
	out, err := runCtl(t, path, "skins", "install", file, "--activate")
	if err != nil {
		t.Fatalf("install: %v (%q)", err, out)
	}
	got := d.got()
	if len(got) != 2 || got[0] != "put-skin ocean.tar.gz 9" || got[1] != "activate-skin ocean" {
		t.Fatalf("sent %v", got)
	}
}

func TestCtl_SkinsDefault(t *testing.T) {
	d, path := startDaemon(t, func(h string) string {
		if h == "list-skins json" {
			return `[{"id":"plain","name":"Plain","active":false},{"id":"ocean","name":"Ocean","active":true}]` + "\n"
		}
		return "OK: skin ocean deactivated\n"
	})
	if _, err := runCtl(t, path, "skins", "default"); err != nil {
		t.Fatalf("default: %v", err)
	}
	if got := d.got(); len(got) != 2 || got[1] != "deactivate-skin ocean" {
		t.Fatalf("sent %v", got)
	}
}

func TestCtl_NoDaemon(t *testing.T) {
	if _, err := runCtl(t, filepath.Join(t.TempDir(), "missing.sock"), "status"); err == nil {
		t.Fatal("expected connection error")
	}
}
