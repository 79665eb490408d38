//go:build linux

package hal

import (
	"fmt"

	"github.com/stianeikeland/go-rpio/v4"
)

// rpioPeripheral programs the BCM2835 GPIO and PWM registers directly through
// go-rpio (/dev/gpiomem, falling back to /dev/mem).
//
// go-rpio exposes the PWM clock as a frequency rather than a divider, so the
// divider is passed as BaseClockHz/div. On a BCM2711 (Pi 4) go-rpio assumes a
// faster source clock and the resulting divider differs accordingly.
// go-rpio writes range and data together, so both are cached per channel.
type rpioPeripheral struct {
	channels [Channels]rpioChannel
}

type rpioChannel struct {
	enabled   bool
	markSpace bool
	rng       uint32
	data      uint32
}

var rpioOpenFn = rpio.Open

func openRPIO() (Peripheral, error) {
	if err := rpioOpenFn(); err != nil {
		return nil, fmt.Errorf("hal: rpio open: %w", err)
	}
	return &rpioPeripheral{}, nil
}

func (r *rpioPeripheral) SetPinMode(pin int, mode PinMode) error {
	if err := checkPin(pin); err != nil {
		return err
	}
	p := rpio.Pin(pin)
	switch mode {
	case Input:
		p.Input()
	case Output:
		p.Output()
	default:
		return fmt.Errorf("hal: unknown pin mode %v", mode)
	}
	return nil
}

func (r *rpioPeripheral) WritePin(pin int, level Level) error {
	if err := checkPin(pin); err != nil {
		return err
	}
	if level == High {
		rpio.Pin(pin).High()
	} else {
		rpio.Pin(pin).Low()
	}
	return nil
}

func (r *rpioPeripheral) SetPinPull(pin int, pull Pull) error {
	if err := checkPin(pin); err != nil {
		return err
	}
	switch pull {
	case PullOff:
		rpio.Pin(pin).PullOff()
	case PullDown:
		rpio.Pin(pin).PullDown()
	case PullUp:
		rpio.Pin(pin).PullUp()
	default:
		return fmt.Errorf("hal: unknown pull %v", pull)
	}
	return nil
}

func (r *rpioPeripheral) SelectFunction(pin int, fn Function) error {
	if err := checkPin(pin); err != nil {
		return err
	}
	if _, ok := PinChannel(pin); fn != FunctionPWM || !ok {
		return fmt.Errorf("hal: gpio %d does not support function %s", pin, fn)
	}
	rpio.Pin(pin).Mode(rpio.Pwm)
	return nil
}

func (r *rpioPeripheral) SetClockDivider(div uint32) error {
	if div == 0 || div > 4095 {
		return fmt.Errorf("hal: invalid clock divider %d", div)
	}
	// The PWM clock is shared by both channels; any PWM pin selects it.
	rpio.Pin(channelPins[0]).Freq(BaseClockHz / int(div))
	return nil
}

func (r *rpioPeripheral) SetChannelMode(ch int, enabled, markSpace bool) error {
	if err := checkChannel(ch); err != nil {
		return err
	}
	r.channels[ch].enabled = enabled
	r.channels[ch].markSpace = markSpace
	return r.flush(ch)
}

func (r *rpioPeripheral) SetChannelRange(ch int, rng uint32) error {
	if err := checkChannel(ch); err != nil {
		return err
	}
	if rng == 0 {
		return fmt.Errorf("hal: pwm%d: zero range", ch)
	}
	r.channels[ch].rng = rng
	return r.flush(ch)
}

func (r *rpioPeripheral) SetChannelData(ch int, data uint32) error {
	if err := checkChannel(ch); err != nil {
		return err
	}
	r.channels[ch].data = data
	return r.flush(ch)
}

func (r *rpioPeripheral) flush(ch int) error {
	st := r.channels[ch]
	if st.rng == 0 {
		return nil
	}
	data := st.data
	if !st.enabled {
		data = 0
	}
	mode := rpio.Balanced
	if st.markSpace {
		mode = rpio.MarkSpace
	}
	rpio.Pin(channelPins[ch]).DutyCycleWithPwmMode(data, st.rng, mode)
	return nil
}

func (r *rpioPeripheral) Close() error {
	return rpio.Close()
}
