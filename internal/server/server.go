// Package server runs the event reactor: one goroutine that owns the control state,
// serves socket and HTTP connections one at a time and fires the control tick.
package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"os"
	"time"

	"cpu_throttle/internal/logger"

	"go.uber.org/multierr"
)

// Extracted constants to avoid magic numbers and centralize tuning knobs.
const (
	defaultPollWait       = 250 * time.Millisecond
	defaultSampleInterval = 1 * time.Second
	defaultIOTimeout      = 5 * time.Second
	socketMode            = 0o666
	acceptBacklog         = 64
)

// ConnHandler serves one control-socket connection and closes it.
type ConnHandler interface {
	Serve(ctx context.Context, conn net.Conn)
}

// Ticker runs one control step. An error stops the reactor.
type Ticker interface {
	Tick(ctx context.Context, now time.Time) error
}

// Lifecycle reports in-band exit requests.
type Lifecycle interface {
	ExitRequested() bool
}

// Options configure the reactor.
type Options struct {
	SocketPath     string
	WebAddr        string // "" disables HTTP
	PollWait       time.Duration
	SampleInterval time.Duration
	IOTimeout      time.Duration
}

// Server multiplexes the control socket, the optional HTTP listener and the sampling
// tick onto a single goroutine.
type Server struct {
	opts   Options
	socket net.Listener
	web    net.Listener

	conns ConnHandler
	http  http.Handler
	tick  Ticker
	life  Lifecycle
	log   *logger.Logger

	now func() time.Time
}

type kind int

const (
	kindSocket kind = iota
	kindHTTP
)

type accepted struct {
	conn net.Conn
	kind kind
}

// New binds the listeners. The caller must Close the server to release them.
func New(opts Options, conns ConnHandler, web http.Handler, tick Ticker, life Lifecycle, log *logger.Logger) (*Server, error) {
	if opts.PollWait <= 0 {
		opts.PollWait = defaultPollWait
	}
	if opts.SampleInterval <= 0 {
		opts.SampleInterval = defaultSampleInterval
	}
	if opts.IOTimeout <= 0 {
		opts.IOTimeout = defaultIOTimeout
	}
	if log == nil {
		log = logger.Nop()
	}
	s := &Server{opts: opts, conns: conns, http: web, tick: tick, life: life, log: log, now: time.Now}

	sock, err := ListenUnix(opts.SocketPath)
	if err != nil {
		return nil, err
	}
	s.socket = sock

	if opts.WebAddr != "" && web != nil {
		ln, err := net.Listen("tcp", opts.WebAddr)
		if err != nil {
			return nil, multierr.Append(fmt.Errorf("listen %s: %w", opts.WebAddr, err), s.Close())
		}
		s.web = ln
	}
	return s, nil
}

// ListenUnix binds a world-writable unix socket at path, replacing a stale socket
// file left by a previous run.
func ListenUnix(path string) (net.Listener, error) {
	if st, err := os.Lstat(path); err == nil && st.Mode()&fs.ModeSocket != 0 {
		if err := os.Remove(path); err != nil {
			return nil, fmt.Errorf("remove stale socket %s: %w", path, err)
		}
	}
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", path, err)
	}
	if err := os.Chmod(path, socketMode); err != nil {
		return nil, multierr.Append(fmt.Errorf("chmod %s: %w", path, err), ln.Close())
	}
	return ln, nil
}

// WebAddr reports the bound HTTP address, or nil when HTTP is disabled.
func (s *Server) WebAddr() net.Addr {
	if s.web == nil {
		return nil
	}
	return s.web.Addr()
}

// Run serves until ctx is cancelled, an exit is requested or a tick fails.
// The first tick fires immediately.
func (s *Server) Run(ctx context.Context) error {
	acceptCtx, stop := context.WithCancel(ctx)
	defer stop()

	inbox := make(chan accepted, acceptBacklog)
	go s.accept(acceptCtx, s.socket, kindSocket, inbox)
	if s.web != nil {
		go s.accept(acceptCtx, s.web, kindHTTP, inbox)
		s.log.Infow("http_listening", "addr", s.web.Addr().String())
	}
	s.log.Infow("socket_listening", "path", s.opts.SocketPath)

	var lastTick time.Time
	wait := time.NewTimer(s.opts.PollWait)
	defer wait.Stop()

	for {
		if now := s.now(); lastTick.IsZero() || now.Sub(lastTick) >= s.opts.SampleInterval {
			if err := s.tick.Tick(ctx, now); err != nil {
				return err
			}
			lastTick = now
		}
		if s.life.ExitRequested() {
			return nil
		}

		wait.Reset(s.opts.PollWait)
		select {
		case <-ctx.Done():
			return nil
		case a := <-inbox:
			s.handle(ctx, a)
			s.drain(ctx, inbox)
		case <-wait.C:
		}
	}
}

// drain serves every connection that is already waiting so a burst cannot starve
// the next tick check for more than one pass.
func (s *Server) drain(ctx context.Context, inbox <-chan accepted) {
	for {
		select {
		case a := <-inbox:
			s.handle(ctx, a)
		default:
			return
		}
	}
}

func (s *Server) handle(ctx context.Context, a accepted) {
	switch a.kind {
	case kindSocket:
		s.conns.Serve(ctx, a.conn)
	case kindHTTP:
		s.serveHTTP(ctx, a.conn)
	}
}

func (s *Server) accept(ctx context.Context, ln net.Listener, k kind, inbox chan<- accepted) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return
			}
			s.log.Warnw("accept_failed", "err", err)
			continue
		}
		select {
		case inbox <- accepted{conn: conn, kind: k}:
		case <-ctx.Done():
			_ = conn.Close()
			return
		}
	}
}

// Close releases both listeners and unlinks the socket file.
func (s *Server) Close() error {
	var err error
	if s.socket != nil {
		err = multierr.Append(err, s.socket.Close())
		if rerr := os.Remove(s.opts.SocketPath); rerr != nil && !errors.Is(rerr, fs.ErrNotExist) {
			err = multierr.Append(err, rerr)
		}
	}
	if s.web != nil {
		err = multierr.Append(err, s.web.Close())
	}
	return err
}
