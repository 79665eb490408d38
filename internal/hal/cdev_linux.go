//go:build linux

package hal

import (
	"errors"
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// cdevPeripheral drives GPIOs through the Linux GPIO character device and
// the PWM block through /sys/class/pwm.
//
// This backend works on every Pi generation that has the pwm overlay loaded,
// including the Pi 5 where memory-mapped access is not available. The clock
// divider cannot be programmed directly; it is folded into the channel period
// as divider*range ticks of BaseClockHz.
type cdevPeripheral struct {
	chip     *gpiocdev.Chip
	consumer string
	pwmBase  string

	lines  map[int]*gpiocdev.Line
	levels map[int]int

	divider  uint32
	channels [Channels]cdevChannel
}

type cdevChannel struct {
	pwm     *sysfsPWM
	enabled bool
	rng     uint32
	data    uint32
}

var newChipFn = func(path, consumer string) (*gpiocdev.Chip, error) {
	return gpiocdev.NewChip(path, gpiocdev.WithConsumer(consumer))
}

func openCdev(opts Options) (Peripheral, error) {
	chip, err := newChipFn(opts.GPIOChip, opts.Consumer)
	if err != nil {
		return nil, fmt.Errorf("hal: open %s: %w", opts.GPIOChip, err)
	}
	return &cdevPeripheral{
		chip:     chip,
		consumer: opts.Consumer,
		pwmBase:  opts.PWMSysfsBase,
		lines:    make(map[int]*gpiocdev.Line),
		levels:   make(map[int]int),
	}, nil
}

// offset resolves a BCM GPIO number to a line offset, preferring the
// "GPIOn" line name used by the Pi device trees.
func (c *cdevPeripheral) offset(pin int) int {
	if off, err := c.chip.FindLine(fmt.Sprintf("GPIO%d", pin)); err == nil {
		return off
	}
	return pin
}

// releasePWM hands a pin used by a sysfs PWM channel back to the kernel.
func (c *cdevPeripheral) releasePWM(pin int) error {
	ch, ok := PinChannel(pin)
	if !ok || c.channels[ch].pwm == nil {
		return nil
	}
	err := c.channels[ch].pwm.unexport()
	c.channels[ch] = cdevChannel{}
	return err
}

func (c *cdevPeripheral) SetPinMode(pin int, mode PinMode) error {
	if err := checkPin(pin); err != nil {
		return err
	}
	if err := c.releasePWM(pin); err != nil {
		return err
	}

	if line, ok := c.lines[pin]; ok {
		if mode == Output {
			return line.Reconfigure(gpiocdev.AsOutput(c.levels[pin]))
		}
		return line.Reconfigure(gpiocdev.AsInput)
	}
	var req gpiocdev.LineReqOption = gpiocdev.AsInput
	if mode == Output {
		req = gpiocdev.AsOutput(c.levels[pin])
	}
	line, err := c.chip.RequestLine(c.offset(pin), req, gpiocdev.WithConsumer(c.consumer))
	if err != nil {
		return fmt.Errorf("hal: request gpio %d: %w", pin, err)
	}
	c.lines[pin] = line
	return nil
}

func (c *cdevPeripheral) WritePin(pin int, level Level) error {
	line, ok := c.lines[pin]
	if !ok {
		return fmt.Errorf("hal: gpio %d not configured", pin)
	}
	v := 0
	if level == High {
		v = 1
	}
	if err := line.SetValue(v); err != nil {
		return fmt.Errorf("hal: write gpio %d: %w", pin, err)
	}
	c.levels[pin] = v
	return nil
}

func (c *cdevPeripheral) SetPinPull(pin int, pull Pull) error {
	line, ok := c.lines[pin]
	if !ok {
		return fmt.Errorf("hal: gpio %d not configured", pin)
	}
	var bias gpiocdev.LineConfigOption
	switch pull {
	case PullOff:
		bias = gpiocdev.WithBiasDisabled
	case PullDown:
		bias = gpiocdev.WithPullDown
	case PullUp:
		bias = gpiocdev.WithPullUp
	default:
		return fmt.Errorf("hal: unknown pull %v", pull)
	}
	return line.Reconfigure(bias)
}

func (c *cdevPeripheral) SelectFunction(pin int, fn Function) error {
	if err := checkPin(pin); err != nil {
		return err
	}
	ch, ok := PinChannel(pin)
	if fn != FunctionPWM || !ok {
		return fmt.Errorf("hal: gpio %d does not support function %s", pin, fn)
	}
	// The kernel pwm driver owns the pin once the channel is exported.
	if line, held := c.lines[pin]; held {
		_ = line.Close()
		delete(c.lines, pin)
	}
	if c.channels[ch].pwm != nil {
		return nil
	}
	pwm, err := openSysfsPWM(c.pwmBase, ch)
	if err != nil {
		return err
	}
	c.channels[ch].pwm = pwm
	return nil
}

func (c *cdevPeripheral) SetClockDivider(div uint32) error {
	if div == 0 {
		return fmt.Errorf("hal: invalid clock divider %d", div)
	}
	c.divider = div
	var errs []error
	for ch := range c.channels {
		if c.channels[ch].rng != 0 {
			errs = append(errs, c.apply(ch))
		}
	}
	return errors.Join(errs...)
}

func (c *cdevPeripheral) SetChannelMode(ch int, enabled, markSpace bool) error {
	if err := checkChannel(ch); err != nil {
		return err
	}
	if !markSpace {
		return fmt.Errorf("hal: pwm%d: balanced mode not supported by sysfs pwm", ch)
	}
	c.channels[ch].enabled = enabled
	if c.channels[ch].pwm == nil || c.channels[ch].pwm.periodNS == 0 {
		// Applied once the period is known.
		return nil
	}
	return c.channels[ch].pwm.setEnabled(enabled)
}

func (c *cdevPeripheral) SetChannelRange(ch int, rng uint32) error {
	if err := checkChannel(ch); err != nil {
		return err
	}
	if rng == 0 {
		return fmt.Errorf("hal: pwm%d: zero range", ch)
	}
	c.channels[ch].rng = rng
	return c.apply(ch)
}

func (c *cdevPeripheral) SetChannelData(ch int, data uint32) error {
	if err := checkChannel(ch); err != nil {
		return err
	}
	st := &c.channels[ch]
	if st.pwm == nil || st.rng == 0 {
		return fmt.Errorf("hal: pwm%d not configured", ch)
	}
	st.data = data
	return st.pwm.setDuty(dutyNS(st.pwm.periodNS, data, st.rng))
}

func (c *cdevPeripheral) apply(ch int) error {
	st := &c.channels[ch]
	if st.pwm == nil {
		return fmt.Errorf("hal: pwm%d not attached to its pin", ch)
	}
	if c.divider == 0 {
		return fmt.Errorf("hal: pwm%d: clock divider not set", ch)
	}
	period := PeriodNS(c.divider, st.rng)
	return st.pwm.setPeriod(period, dutyNS(period, st.data, st.rng), st.enabled)
}

func dutyNS(periodNS uint64, data, rng uint32) uint64 {
	if rng == 0 {
		return 0
	}
	if data >= rng {
		return periodNS
	}
	return periodNS/uint64(rng)*uint64(data) + periodNS%uint64(rng)*uint64(data)/uint64(rng)
}

func (c *cdevPeripheral) Close() error {
	var errs []error
	for pin, line := range c.lines {
		errs = append(errs, line.Close())
		delete(c.lines, pin)
	}
	if c.chip != nil {
		errs = append(errs, c.chip.Close())
		c.chip = nil
	}
	return errors.Join(errs...)
}
