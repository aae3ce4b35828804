package service

import (
	"time"

	"cpu_throttle"
	"cpu_throttle/internal/models"
	"cpu_throttle/internal/throttle"
)

type MonitoringService struct {
	rt     *Runtime
	sensor TempSource
}

func NewMonitoringService(rt *Runtime, sensor TempSource) *MonitoringService {
	return &MonitoringService{rt: rt, sensor: sensor}
}

// Status returns the latest reading merged with the current settings. Before the
// first tick the sensor field names the configured source.
func (s *MonitoringService) Status() cpu_throttle.Status {
	st := s.rt.Status()
	if st.Sensor == "" && s.sensor != nil {
		st.Sensor = s.sensor.Describe(s.rt.State)
	}
	return st
}

func (s *MonitoringService) Metrics() cpu_throttle.Metrics {
	return cpu_throttle.Metrics{
		Temperature:   s.rt.Reading.TempC,
		Frequency:     s.rt.Reading.FreqKHz,
		CPUMinFreq:    s.rt.Limits.MinFreq,
		CPUMaxFreq:    s.rt.Limits.MaxFreq,
		EffectiveMax:  throttle.EffectiveMax(s.rt.Settings(), s.rt.Bounds()),
		ThrottleStart: throttle.ThrottleStart(s.rt.State.TempMax),
		AnchorTemp:    s.rt.Anchor.LastThrottleTemp,
		Ticks:         s.rt.Ticks,
		FreqWrites:    s.rt.FreqWrites,
		UptimeSeconds: time.Since(s.rt.StartedAt).Seconds(),
	}
}

func (s *MonitoringService) Limits() models.Limits {
	l := s.rt.Limits
	if s.sensor != nil {
		l.TempSensor = s.sensor.Describe(s.rt.State)
	}
	return l
}

func (s *MonitoringService) Zones() ([]models.ThermalZone, error) {
	return s.sensor.Zones(s.rt.State.ExcludedTypes)
}

func (s *MonitoringService) Version() string { return cpu_throttle.Version }
