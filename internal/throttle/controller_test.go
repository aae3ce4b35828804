package throttle

import "testing"

var laptop = Bounds{MinFreq: 800000, MaxFreqLimit: 4500000}

func TestTarget_FailsafeAtOrAboveTempMax(t *testing.T) {
	cases := []struct {
		name    string
		safeMin int
		want    int
	}{
		{"min_freq_without_safe_min", 0, 800000},
		{"safe_min_when_set", 2000000, 2000000},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := Settings{TempMax: 95, SafeMin: tc.safeMin}
			for temp := 95; temp <= 120; temp++ {
				if got := Target(temp, s, laptop); got != tc.want {
					t.Fatalf("t=%d: got %d, want %d", temp, got, tc.want)
				}
			}
		})
	}
}

func TestTarget_ConcreteScenario(t *testing.T) {
	s := Settings{TempMax: 95}
	if got := Target(95, s, laptop); got != 800000 {
		t.Fatalf("t=95: got %d, want 800000", got)
	}
	if got := Target(80, s, laptop); got != 3375000 {
		t.Fatalf("t=80: got %d, want 3375000", got)
	}
	if got := Target(40, s, laptop); got != 4500000 {
		t.Fatalf("t=40: got %d, want 4500000", got)
	}
}

func TestTarget_StrictlyDecreasingInThrottleWindow(t *testing.T) {
	s := Settings{TempMax: 95}
	start := ThrottleStart(s.TempMax)
	if got := Target(start, s, laptop); got != laptop.MaxFreqLimit {
		t.Fatalf("at throttle start: got %d, want %d", got, laptop.MaxFreqLimit)
	}
	prev := Target(start, s, laptop)
	for temp := start + 1; temp < s.TempMax; temp++ {
		cur := Target(temp, s, laptop)
		if cur >= prev {
			t.Fatalf("t=%d: %d not below previous %d", temp, cur, prev)
		}
		prev = cur
	}
	if got := Interpolate(s.TempMax, s.TempMax, laptop.MaxFreqLimit); got != laptop.MaxFreqLimit/2 {
		t.Fatalf("curve at temp_max: got %d, want %d", got, laptop.MaxFreqLimit/2)
	}
}

func TestTarget_SafeMaxLowersCeilingAndSafeMinClamps(t *testing.T) {
	s := Settings{TempMax: 95, SafeMax: 3000000, SafeMin: 2000000}
	if got := Target(50, s, laptop); got != 3000000 {
		t.Fatalf("below window: got %d, want safe_max 3000000", got)
	}
	// 3000000 - 1500000*29/30 = 1550000, clamped up to safe_min
	if got := Target(94, s, laptop); got != 2000000 {
		t.Fatalf("near temp_max: got %d, want safe_min 2000000", got)
	}
	// safe_max above the hardware limit is ignored
	if got := EffectiveMax(Settings{SafeMax: 9000000}, laptop); got != laptop.MaxFreqLimit {
		t.Fatalf("effective max: got %d", got)
	}
}

func TestStep_FirstTickAlwaysApplies(t *testing.T) {
	d, a := Step(40, Settings{TempMax: 95}, laptop, Anchor{})
	if !d.Apply || d.Candidate != 4500000 {
		t.Fatalf("first tick: %+v", d)
	}
	if a.LastThrottleTemp != 40 || a.LastAppliedFreq != 4500000 {
		t.Fatalf("anchor: %+v", a)
	}
}

func TestStep_HysteresisKeepsAppliedFrequency(t *testing.T) {
	s := Settings{TempMax: 95}
	_, a := Step(80, s, laptop, Anchor{})
	applied := a.LastAppliedFreq

	// moves smaller than 3 °C from the anchor keep the previous frequency
	for _, temp := range []int{81, 82, 78, 79} {
		var d Decision
		d, a = Step(temp, s, laptop, a)
		if d.Candidate != applied || a.LastAppliedFreq != applied {
			t.Fatalf("t=%d: candidate %d, applied %d, want %d", temp, d.Candidate, a.LastAppliedFreq, applied)
		}
		if a.LastThrottleTemp != 80 {
			t.Fatalf("t=%d: anchor moved to %d", temp, a.LastThrottleTemp)
		}
	}
}

func TestStep_DeadBandSuppressesSmallChanges(t *testing.T) {
	s := Settings{TempMax: 95}
	_, a := Step(70, s, laptop, Anchor{})
	// 70 -> 73 passes the hysteresis gate but the cap only moves by 225000 kHz,
	// below (4500000-800000)/10 = 370000.
	d, a2 := Step(73, s, laptop, a)
	if d.Apply {
		t.Fatalf("expected dead-band to suppress write: %+v", d)
	}
	if a2.LastThrottleTemp != 73 || a2.LastAppliedFreq != a.LastAppliedFreq {
		t.Fatalf("anchor: %+v", a2)
	}
	// a big jump writes
	d, a3 := Step(95, s, laptop, a2)
	if !d.Apply || a3.LastAppliedFreq != laptop.MinFreq {
		t.Fatalf("failsafe jump: %+v %+v", d, a3)
	}
}
