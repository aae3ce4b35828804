// Package throttle computes the CPU frequency cap for a temperature under hysteresis.
package throttle

// Tuning knobs of the control curve.
const (
	ThrottleWindowC  = 30 // throttling starts this many °C below TempMax
	HysteresisC      = 3  // minimum temperature move before a new target is adopted
	DeadBandDivisor  = 10 // writes are suppressed below (effectiveMax-minFreq)/10
	interpolateRatio = 2  // the curve bottoms out at effectiveMax/2
)

// Bounds are the hardware frequency limits in kHz, read once at startup.
type Bounds struct {
	MinFreq      int
	MaxFreqLimit int
}

// Settings are the user-tunable inputs of one decision.
type Settings struct {
	TempMax int // °C
	SafeMin int // kHz, 0 = unset
	SafeMax int // kHz, 0 = unset
}

// Anchor is the hysteresis memory carried between ticks. The zero value is the
// state at process start.
type Anchor struct {
	LastThrottleTemp int
	LastAppliedFreq  int
}

// Decision is the outcome of one control step.
type Decision struct {
	Target       int  // curve output for this temperature
	Candidate    int  // frequency after the hysteresis gate
	Apply        bool // Candidate passed the dead-band and must be written
	EffectiveMax int
	ThrottleFrom int // °C where the linear section begins
}

// EffectiveMax is the ceiling after applying an optional safe maximum.
func EffectiveMax(s Settings, b Bounds) int {
	ceiling := b.MaxFreqLimit
	if s.SafeMax > 0 {
		ceiling = s.SafeMax
	}
	return min(b.MaxFreqLimit, ceiling)
}

// ThrottleStart is the temperature at which the linear section begins.
func ThrottleStart(tempMax int) int {
	return tempMax - ThrottleWindowC
}

// Interpolate evaluates the linear section of the curve at t without clamping.
// It returns effectiveMax at ThrottleStart and effectiveMax/2 at tempMax.
func Interpolate(t, tempMax, effectiveMax int) int {
	start := ThrottleStart(tempMax)
	span := tempMax - start
	if span <= 0 {
		return effectiveMax
	}
	return effectiveMax - (effectiveMax/interpolateRatio)*(t-start)/span
}

// Target maps a temperature to a frequency cap, ignoring hysteresis.
func Target(t int, s Settings, b Bounds) int {
	effMax := EffectiveMax(s, b)
	switch {
	case t >= s.TempMax:
		if s.SafeMin > 0 {
			return s.SafeMin
		}
		return b.MinFreq
	case t >= ThrottleStart(s.TempMax):
		target := Interpolate(t, s.TempMax, effMax)
		if s.SafeMin > 0 && target < s.SafeMin {
			target = s.SafeMin
		}
		return target
	default:
		return effMax
	}
}

// Step runs one control decision and returns the updated anchor. It performs no I/O.
func Step(t int, s Settings, b Bounds, a Anchor) (Decision, Anchor) {
	effMax := EffectiveMax(s, b)
	d := Decision{
		Target:       Target(t, s, b),
		Candidate:    a.LastAppliedFreq,
		EffectiveMax: effMax,
		ThrottleFrom: ThrottleStart(s.TempMax),
	}

	if a.LastThrottleTemp == 0 || abs(t-a.LastThrottleTemp) >= HysteresisC {
		a.LastThrottleTemp = t
		d.Candidate = d.Target
	}

	if abs(d.Candidate-a.LastAppliedFreq) > (effMax-b.MinFreq)/DeadBandDivisor {
		d.Apply = true
		a.LastAppliedFreq = d.Candidate
	}
	return d, a
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
