package motor

import (
	"math"
	"testing"
)

func TestMapDuty_HalfForward(t *testing.T) {
	if s := MapSlope(4); math.Abs(s-0.96) > 1e-12 {
		t.Fatalf("slope=%v want 0.96", s)
	}
	pwm, dir := MapDuty(50, 4, 24000)
	if pwm != 12480 || dir != 1 {
		t.Fatalf("MapDuty(50)=(%d,%d) want (12480,1)", pwm, dir)
	}
	pwm, dir = MapDuty(-50, 4, 24000)
	if pwm != 12480 || dir != -1 {
		t.Fatalf("MapDuty(-50)=(%d,%d) want (12480,-1)", pwm, dir)
	}
}

func TestMapDuty_Zero(t *testing.T) {
	for _, in := range []float64{0, math.Copysign(0, -1)} {
		pwm, dir := MapDuty(in, 4, 24000)
		if pwm != 0 || dir != 0 {
			t.Fatalf("MapDuty(%v)=(%d,%d) want (0,0)", in, pwm, dir)
		}
	}
}

func TestMapDuty_Clamps(t *testing.T) {
	cases := []struct {
		in   float64
		want uint32
	}{
		{100, 24000},
		{150, 24000},
		{-1000, 24000},
		{math.Inf(1), 24000},
	}
	for _, c := range cases {
		if pwm, _ := MapDuty(c.in, 4, 24000); pwm != c.want {
			t.Fatalf("MapDuty(%v)=%d want %d", c.in, pwm, c.want)
		}
	}
}

func TestMapDuty_OffsetAppliesToSmallCommands(t *testing.T) {
	// Any non-zero command lands at or above the deadzone.
	pwm, _ := MapDuty(0.001, 4, 24000)
	if pwm < 960 {
		t.Fatalf("pwm=%d want >= 960", pwm)
	}
	pwm, _ = MapDuty(1, 0, 100)
	if pwm != 1 {
		t.Fatalf("no offset: pwm=%d want 1", pwm)
	}
}

func TestMapDuty_MonotonicAndBounded(t *testing.T) {
	for _, offset := range []float64{0, 4, 12.5, 100} {
		for _, rng := range []uint32{1, 100, 1024, 24000} {
			prev := uint32(0)
			for i := 0; i <= 1000; i++ {
				in := float64(i) / 10
				pwm, _ := MapDuty(in, offset, rng)
				if pwm > rng {
					t.Fatalf("offset=%v rng=%d in=%v pwm=%d exceeds range", offset, rng, in, pwm)
				}
				if pwm < prev {
					t.Fatalf("offset=%v rng=%d in=%v pwm=%d < previous %d", offset, rng, in, pwm, prev)
				}
				prev = pwm
			}
		}
	}
}
