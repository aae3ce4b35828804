package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "cpu_throttle/docs"
	"cpu_throttle/internal/config"
	"cpu_throttle/internal/handlers"
	"cpu_throttle/internal/hardware"
	"cpu_throttle/internal/installer"
	"cpu_throttle/internal/logger"
	"cpu_throttle/internal/metrics"
	"cpu_throttle/internal/models"
	"cpu_throttle/internal/protocol"
	"cpu_throttle/internal/repository"
	"cpu_throttle/internal/repository/db"
	"cpu_throttle/internal/server"
	"cpu_throttle/internal/service"

	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"go.uber.org/multierr"
)

// @title        cpu_throttle API
// @version      2.0
// @description  Thermal throttling daemon: live status, settings, profiles and UI skins.
// @BasePath     /
func main() {
	cfg, err := config.Load(os.Args[0], os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	log := logger.Get(logger.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	defer func() { _ = log.Close() }()

	restart, err := run(cfg, log)
	if err != nil {
		log.Errorw("daemon_failed", "err", err)
		_ = log.Close()
		os.Exit(1)
	}
	if restart {
		reexec(log)
	}
}

// run wires the daemon, serves until shutdown and releases everything it created.
// It reports whether a restart was requested.
func run(cfg *config.Config, log *logger.Logger) (restart bool, err error) {
	actuator, err := hardware.NewActuator(cfg.SysfsRoot, cfg.DryRun)
	if err != nil {
		return false, err
	}
	limits, err := actuator.Bounds()
	if err != nil {
		return false, fmt.Errorf("read cpu frequency bounds: %w", err)
	}
	sensor, err := hardware.NewSensor(cfg.SysfsRoot, cfg.Sensor)
	if err != nil {
		return false, err
	}

	state := models.ControlState{
		SafeMin:       cfg.SafeMin,
		SafeMax:       cfg.SafeMax,
		TempMax:       cfg.TempMax,
		ThermalZone:   cfg.ThermalZone,
		UseAvgTemp:    cfg.UseAvgTemp,
		ExcludedTypes: cfg.ExcludedTypes,
	}
	if _, err := sensor.Sample(state, time.Now()); err != nil {
		return false, fmt.Errorf("temperature sensor unreadable: %w", err)
	}
	limits.TempSensor = sensor.Describe(state)
	log.Infow("hardware_ready", "min_freq", limits.MinFreq, "max_freq", limits.MaxFreq,
		"sensor", limits.TempSensor, "dry_run", cfg.DryRun)

	if err := writePIDFile(cfg.PIDFile); err != nil {
		log.Warnw("pid_file_failed", "err", err, "path", cfg.PIDFile)
	} else {
		defer func() { err = multierr.Append(err, removeFile(cfg.PIDFile)) }()
	}

	var journal *sql.DB
	if cfg.EventsDB != "" {
		if journal, err = db.InitDB(cfg.EventsDB); err != nil {
			return false, err
		}
		defer func() { err = multierr.Append(err, journal.Close()) }()
	}

	rt := service.NewRuntime(state, limits, cfg.DryRun, time.Now())
	m := metrics.New()
	inst := installer.New(cfg.SkinsDir, cfg.SkinOwner, installer.ExecRunner{}, log)
	services := service.NewService(service.Deps{
		Runtime:   rt,
		Repos:     repository.NewRepository(afero.NewOsFs(), cfg.ProfileDir, cfg.SkinsDir, journal),
		Sensor:    sensor,
		Actuator:  actuator,
		Installer: inst,
		Metrics:   m,
		Log:       log,
	})
	dispatcher := protocol.NewDispatcher(services, m, log, cfg.IOTimeout)

	opts := server.Options{
		SocketPath:     cfg.SocketPath,
		PollWait:       cfg.PollWait,
		SampleInterval: cfg.SampleInterval,
		IOTimeout:      cfg.IOTimeout,
	}
	var router http.Handler
	if cfg.WebPort != 0 {
		opts.WebAddr = ":" + strconv.Itoa(cfg.WebPort)
		router = handlers.NewHandler(services, log, handlers.Options{
			WebRoot:  cfg.WebRoot,
			Commands: dispatcher,
			Metrics:  m,
		}).InitRoutes()
	}

	srv, err := server.New(opts, dispatcher, router, services.Throttle, rt, log)
	if err != nil {
		return false, err
	}
	defer func() { err = multierr.Append(err, srv.Close()) }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Infow("daemon_started", "version", services.Monitoring.Version(), "socket", cfg.SocketPath,
		"web_port", cfg.WebPort, "temp_max", cfg.TempMax)
	if err := srv.Run(ctx); err != nil {
		return false, err
	}
	log.Infow("daemon_stopped", "restart", rt.RestartRequested())
	return rt.RestartRequested(), nil
}

func writePIDFile(path string) error {
	if path == "" {
		return errors.New("no pid file configured")
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644)
}

func removeFile(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// reexec replaces the process with a fresh copy started with the same arguments.
func reexec(log *logger.Logger) {
	exe, err := os.Executable()
	if err != nil {
		log.Errorw("restart_failed", "err", err)
		os.Exit(1)
	}
	log.Infow("restarting", "exe", exe)
	_ = log.Sync()
	if err := syscall.Exec(exe, os.Args, os.Environ()); err != nil {
		log.Errorw("restart_failed", "err", err)
		os.Exit(1)
	}
}
