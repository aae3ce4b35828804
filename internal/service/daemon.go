package service

import (
	"context"

	"cpu_throttle/internal/logger"
	"cpu_throttle/internal/models"
)

type DaemonService struct {
	rt     *Runtime
	events *EventLogService
	log    *logger.Logger
}

func NewDaemonService(rt *Runtime, events *EventLogService, log *logger.Logger) *DaemonService {
	return &DaemonService{rt: rt, events: events, log: log}
}

// Shutdown makes the reactor leave its loop after the current iteration.
func (s *DaemonService) Shutdown(ctx context.Context) {
	s.log.Infow("shutdown_requested")
	s.events.Record(ctx, models.EventDaemon, "shutdown requested", nil)
	s.rt.RequestExit()
}

// Restart stops the reactor and re-executes the binary with its original arguments.
func (s *DaemonService) Restart(ctx context.Context) {
	s.log.Infow("restart_requested")
	s.events.Record(ctx, models.EventDaemon, "restart requested", nil)
	s.rt.RequestRestart()
}
