package hal

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

// periphPeripheral drives the board through periph.io host drivers.
//
// periph.io programs PWM by duty and frequency, so range and divider are
// converted into an output frequency of BaseClockHz/(div*range). Pull
// resistors can only be set together with input mode in periph.io, so
// SetPinPull leaves the pin as an input.
type periphPeripheral struct {
	pins     map[int]gpio.PinIO
	levels   map[int]gpio.Level
	divider  uint32
	channels [Channels]periphChannel
}

type periphChannel struct {
	attached bool
	enabled  bool
	rng      uint32
	data     uint32
}

var periphInitFn = func() error {
	_, err := host.Init()
	return err
}

var periphPinFn = func(name string) gpio.PinIO {
	return gpioreg.ByName(name)
}

func openPeriph() (Peripheral, error) {
	if err := periphInitFn(); err != nil {
		return nil, fmt.Errorf("hal: periph host init: %w", err)
	}
	return &periphPeripheral{
		pins:   make(map[int]gpio.PinIO),
		levels: make(map[int]gpio.Level),
	}, nil
}

func (p *periphPeripheral) pin(n int) (gpio.PinIO, error) {
	if err := checkPin(n); err != nil {
		return nil, err
	}
	if pin, ok := p.pins[n]; ok {
		return pin, nil
	}
	name := fmt.Sprintf("GPIO%d", n)
	pin := periphPinFn(name)
	if pin == nil {
		return nil, fmt.Errorf("hal: pin %s not found", name)
	}
	p.pins[n] = pin
	return pin, nil
}

func (p *periphPeripheral) detach(n int) {
	if ch, ok := PinChannel(n); ok {
		p.channels[ch] = periphChannel{}
	}
}

func (p *periphPeripheral) SetPinMode(n int, mode PinMode) error {
	pin, err := p.pin(n)
	if err != nil {
		return err
	}
	p.detach(n)
	switch mode {
	case Input:
		return pin.In(gpio.PullNoChange, gpio.NoEdge)
	case Output:
		return pin.Out(p.levels[n])
	default:
		return fmt.Errorf("hal: unknown pin mode %v", mode)
	}
}

func (p *periphPeripheral) WritePin(n int, level Level) error {
	pin, err := p.pin(n)
	if err != nil {
		return err
	}
	l := gpio.Low
	if level == High {
		l = gpio.High
	}
	if err := pin.Out(l); err != nil {
		return err
	}
	p.levels[n] = l
	return nil
}

func (p *periphPeripheral) SetPinPull(n int, pull Pull) error {
	pin, err := p.pin(n)
	if err != nil {
		return err
	}
	var gp gpio.Pull
	switch pull {
	case PullOff:
		gp = gpio.Float
	case PullDown:
		gp = gpio.PullDown
	case PullUp:
		gp = gpio.PullUp
	default:
		return fmt.Errorf("hal: unknown pull %v", pull)
	}
	return pin.In(gp, gpio.NoEdge)
}

func (p *periphPeripheral) SelectFunction(n int, fn Function) error {
	if _, err := p.pin(n); err != nil {
		return err
	}
	ch, ok := PinChannel(n)
	if fn != FunctionPWM || !ok {
		return fmt.Errorf("hal: gpio %d does not support function %s", n, fn)
	}
	// periph.io muxes the pin on the first PWM call.
	p.channels[ch].attached = true
	return nil
}

func (p *periphPeripheral) SetClockDivider(div uint32) error {
	if div == 0 {
		return fmt.Errorf("hal: invalid clock divider %d", div)
	}
	p.divider = div
	var errs []error
	for ch := range p.channels {
		errs = append(errs, p.flush(ch))
	}
	return errors.Join(errs...)
}

func (p *periphPeripheral) SetChannelMode(ch int, enabled, markSpace bool) error {
	if err := checkChannel(ch); err != nil {
		return err
	}
	p.channels[ch].enabled = enabled
	return p.flush(ch)
}

func (p *periphPeripheral) SetChannelRange(ch int, rng uint32) error {
	if err := checkChannel(ch); err != nil {
		return err
	}
	if rng == 0 {
		return fmt.Errorf("hal: pwm%d: zero range", ch)
	}
	p.channels[ch].rng = rng
	return p.flush(ch)
}

func (p *periphPeripheral) SetChannelData(ch int, data uint32) error {
	if err := checkChannel(ch); err != nil {
		return err
	}
	if !p.channels[ch].attached {
		return fmt.Errorf("hal: pwm%d not attached to its pin", ch)
	}
	p.channels[ch].data = data
	return p.flush(ch)
}

func (p *periphPeripheral) flush(ch int) error {
	st := p.channels[ch]
	if !st.attached || st.rng == 0 || p.divider == 0 {
		return nil
	}
	pin, err := p.pin(channelPins[ch])
	if err != nil {
		return err
	}
	data := st.data
	if !st.enabled {
		data = 0
	}
	return pin.PWM(periphDuty(data, st.rng), periphFrequency(p.divider, st.rng))
}

func periphDuty(data, rng uint32) gpio.Duty {
	if data >= rng {
		return gpio.DutyMax
	}
	return gpio.Duty(uint64(data) * uint64(gpio.DutyMax) / uint64(rng))
}

func periphFrequency(div, rng uint32) physic.Frequency {
	return physic.Frequency(uint64(BaseClockHz) * uint64(physic.Hertz) / (uint64(div) * uint64(rng)))
}

func (p *periphPeripheral) Close() error {
	var errs []error
	for ch, st := range p.channels {
		if !st.attached {
			continue
		}
		if pin, ok := p.pins[channelPins[ch]]; ok {
			errs = append(errs, pin.Halt())
		}
	}
	return errors.Join(errs...)
}
