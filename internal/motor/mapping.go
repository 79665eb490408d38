package motor

import "math"

// MapSlope is the scale applied to the command magnitude so that
// 0..100% maps onto offset..100%.
func MapSlope(dutyOffset float64) float64 {
	return (100 - dutyOffset) / 100
}

// MapDuty converts a signed duty command in percent into a PWM register value
// in [0, pwmRange] and a direction (-1, 0, 1).
//
// Non-zero commands are rescaled to MapSlope(offset)*|input| + offset percent
// of pwmRange and truncated. A zero command always yields (0, 0).
func MapDuty(input, dutyOffset float64, pwmRange uint32) (pwm uint32, dir int) {
	switch {
	case input > 0:
		dir = 1
	case input < 0:
		dir = -1
	default:
		return 0, 0
	}

	// Same as MapSlope(offset)*mag + offset; multiplying first keeps
	// whole-percent inputs exact.
	mag := math.Abs(input)
	scaled := mag*(100-dutyOffset)/100 + dutyOffset
	raw := scaled * float64(pwmRange) / 100

	switch {
	case raw < 0:
		return 0, dir
	case raw >= float64(pwmRange):
		return pwmRange, dir
	}
	return uint32(raw), dir
}
