// Package hal is the peripheral access layer used by the motor driver.
//
// It models the small slice of a Raspberry Pi style SoC that a DC motor
// driver needs: digital GPIO control (mode, level, pull resistors), pin
// function multiplexing, and the two-channel hardware PWM block (shared clock
// divider, per-channel mode, range and data registers).
//
// Backends are selected with Open. All methods report failures as errors;
// none of them panic.
package hal

import "fmt"

// Peripheral is the hardware surface the motor driver programs.
//
// Implementations are not safe for concurrent use unless documented
// otherwise. Callers sharing one Peripheral between drivers must serialize.
type Peripheral interface {
	SetPinMode(pin int, mode PinMode) error
	WritePin(pin int, level Level) error
	SetPinPull(pin int, pull Pull) error
	SelectFunction(pin int, fn Function) error

	SetClockDivider(div uint32) error
	SetChannelMode(ch int, enabled, markSpace bool) error
	SetChannelRange(ch int, rng uint32) error
	SetChannelData(ch int, data uint32) error

	Close() error
}

const (
	// MaxPin is the highest user GPIO (BCM numbering) accepted on the board.
	MaxPin = 30

	// BaseClockHz is the PWM source clock (the 19.2 MHz oscillator).
	BaseClockHz = 19_200_000

	// Channels is the number of hardware PWM channels.
	Channels = 2
)

// channelPins maps PWM channel to the GPIO it drives (ALT0 on GPIO12/13).
var channelPins = [Channels]int{12, 13}

// ChannelPin returns the GPIO used as output for the PWM channel.
func ChannelPin(ch int) (int, bool) {
	if ch < 0 || ch >= Channels {
		return 0, false
	}
	return channelPins[ch], true
}

// PinChannel is the inverse of ChannelPin.
func PinChannel(pin int) (int, bool) {
	for ch, p := range channelPins {
		if p == pin {
			return ch, true
		}
	}
	return 0, false
}

// OutputFrequencyHz returns BaseClockHz / (div * rng).
func OutputFrequencyHz(div, rng uint32) float64 {
	if div == 0 || rng == 0 {
		return 0
	}
	return float64(BaseClockHz) / (float64(div) * float64(rng))
}

// PeriodNS returns the PWM period in nanoseconds for the given divider and
// range, i.e. the time the counter needs to count rng ticks of the divided
// clock.
func PeriodNS(div, rng uint32) uint64 {
	if div == 0 || rng == 0 {
		return 0
	}
	// Split so ticks*1e9 cannot overflow.
	ticks := uint64(div) * uint64(rng)
	return ticks/BaseClockHz*1_000_000_000 + (ticks%BaseClockHz)*1_000_000_000/BaseClockHz
}

type PinMode int

const (
	Input PinMode = iota
	Output
)

func (m PinMode) String() string {
	switch m {
	case Input:
		return "input"
	case Output:
		return "output"
	default:
		return fmt.Sprintf("PinMode(%d)", int(m))
	}
}

type Level int

const (
	Low Level = iota
	High
)

func (l Level) String() string {
	if l == Low {
		return "low"
	}
	return "high"
}

type Pull int

const (
	PullOff Pull = iota
	PullDown
	PullUp
)

func (p Pull) String() string {
	switch p {
	case PullOff:
		return "off"
	case PullDown:
		return "down"
	case PullUp:
		return "up"
	default:
		return fmt.Sprintf("Pull(%d)", int(p))
	}
}

// Function is an alternate pin function.
type Function int

const (
	// FunctionPWM attaches a pin to the PWM block (ALT0 on GPIO12/13).
	FunctionPWM Function = iota + 1
)

func (f Function) String() string {
	if f == FunctionPWM {
		return "pwm"
	}
	return fmt.Sprintf("Function(%d)", int(f))
}

func checkPin(pin int) error {
	if pin < 0 || pin > MaxPin {
		return fmt.Errorf("hal: invalid gpio pin %d", pin)
	}
	return nil
}

func checkChannel(ch int) error {
	if ch < 0 || ch >= Channels {
		return fmt.Errorf("hal: invalid pwm channel %d", ch)
	}
	return nil
}
