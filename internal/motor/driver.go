// Package motor drives a brushed DC motor from a hardware PWM channel and a
// GPIO direction pin.
//
// A Driver owns one channel/pin pair. It holds no lock: callers sharing a
// Driver, or a hal.Peripheral between drivers, must serialize access.
package motor

import (
	"errors"
	"fmt"
	"io"
	"log"
	"math"

	"motordc/internal/hal"
)

// State is the runtime state of a driver.
type State struct {
	// PWM is the last value written to the channel data register.
	PWM uint32
	// Direction is 1 (forward), -1 (reverse) or 0 (stopped).
	Direction int
	// DutyCycle is the last commanded duty in percent.
	DutyCycle float64
	// CurrentDraw is motor current in mA. It is only ever set by callers
	// through SetCurrentDraw.
	CurrentDraw float64
}

type Driver struct {
	hw  hal.Peripheral
	cfg Config
	reg *Registry
	log *log.Logger

	active  bool
	state   State
	lastErr string
}

type Option func(*Driver)

// WithRegistry uses reg instead of DefaultRegistry for channel/pin claims.
func WithRegistry(reg *Registry) Option {
	return func(d *Driver) { d.reg = reg }
}

// WithLogger enables lifecycle logging.
func WithLogger(l *log.Logger) Option {
	return func(d *Driver) { d.log = l }
}

// New returns an inactive driver. Call Initialize before SetDutyCycle.
func New(hw hal.Peripheral, cfg Config, opts ...Option) *Driver {
	d := &Driver{
		hw:  hw,
		cfg: cfg,
		reg: DefaultRegistry,
		log: log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Driver) Config() Config { return d.cfg }

func (d *Driver) State() State { return d.state }

func (d *Driver) Active() bool { return d.active }

// MapSlope returns the duty scale for the configured offset.
func (d *Driver) MapSlope() float64 { return MapSlope(d.cfg.dutyOffset) }

// LastError returns the message of the most recent failure, or "".
func (d *Driver) LastError() string { return d.lastErr }

// SetCurrentDraw stores an externally measured motor current (mA).
func (d *Driver) SetCurrentDraw(mA float64) { d.state.CurrentDraw = mA }

func (d *Driver) fail(err error) error {
	d.lastErr = err.Error()
	return err
}

// Initialize validates the configuration, claims the channel and pins, and
// programs the hardware. It is a no-op on an active driver.
func (d *Driver) Initialize() error {
	if d.active {
		return nil
	}
	if d.hw == nil {
		return d.fail(&HardwareError{Op: "initialize", Err: errors.New("no peripheral")})
	}
	if errs := d.cfg.violations(); len(errs) > 0 {
		d.lastErr = errs[0].Error()
		return errors.Join(errs...)
	}

	pwmPin := d.cfg.PWMPin()
	if err := d.reg.Claim(d, d.cfg.channel, d.cfg.dirPin, pwmPin); err != nil {
		return d.fail(err)
	}

	if err := d.program(pwmPin); err != nil {
		d.lastErr = err.Error()
		errs := []error{err}
		if derr := d.hw.SetChannelData(d.cfg.channel, 0); derr != nil {
			errs = append(errs, &HardwareError{Op: "set channel data", Err: derr})
		}
		errs = append(errs, d.releasePins(pwmPin)...)
		d.reg.Release(d)
		return errors.Join(errs...)
	}

	d.active = true
	d.state.PWM = 0
	d.state.Direction = 0
	d.state.DutyCycle = 0
	d.log.Printf("motor initialized %s pwm_pin=%d freq_hz=%g", d.cfg, pwmPin, hal.OutputFrequencyHz(d.cfg.clockDivider, d.cfg.pwmRange))
	return nil
}

func (d *Driver) program(pwmPin int) error {
	ch := d.cfg.channel
	steps := []struct {
		op string
		fn func() error
	}{
		{"set direction pin output", func() error { return d.hw.SetPinMode(d.cfg.dirPin, hal.Output) }},
		{"write direction pin", func() error { return d.hw.WritePin(d.cfg.dirPin, d.directionLevel(0)) }},
		{"select pwm function", func() error { return d.hw.SelectFunction(pwmPin, hal.FunctionPWM) }},
		{"set clock divider", func() error { return d.hw.SetClockDivider(d.cfg.clockDivider) }},
		{"set channel mode", func() error { return d.hw.SetChannelMode(ch, true, true) }},
		{"set channel range", func() error { return d.hw.SetChannelRange(ch, d.cfg.pwmRange) }},
		{"set channel data", func() error { return d.hw.SetChannelData(ch, 0) }},
	}
	for _, s := range steps {
		if err := s.fn(); err != nil {
			return &HardwareError{Op: s.op, Err: err}
		}
	}
	return nil
}

// directionLevel maps a direction to the pin level. Forward and stop use the
// polarity level, reverse the inverse.
func (d *Driver) directionLevel(dir int) hal.Level {
	forward := hal.Level(d.cfg.dirPolarity)
	if dir < 0 {
		return 1 - forward
	}
	return forward
}

// SetDutyCycle commands a signed duty in percent, nominally -100..100.
// Magnitudes beyond 100 saturate at the full range.
func (d *Driver) SetDutyCycle(input float64) error {
	if !d.active {
		return d.fail(fmt.Errorf("%w: set duty cycle %g", ErrNotInitialized, input))
	}
	if math.IsNaN(input) {
		return d.fail(fmt.Errorf("%w: NaN", ErrInvalidDuty))
	}

	pwm, dir := MapDuty(input, d.cfg.dutyOffset, d.cfg.pwmRange)
	prev, next := d.directionLevel(d.state.Direction), d.directionLevel(dir)
	if err := d.hw.WritePin(d.cfg.dirPin, next); err != nil {
		return d.fail(&HardwareError{Op: "write direction pin", Err: err})
	}
	if err := d.hw.SetChannelData(d.cfg.channel, pwm); err != nil {
		err = d.fail(&HardwareError{Op: "set channel data", Err: err})
		// The pin must keep agreeing with State.
		if prev != next {
			if rerr := d.hw.WritePin(d.cfg.dirPin, prev); rerr != nil {
				return errors.Join(err, &HardwareError{Op: "restore direction pin", Err: rerr})
			}
		}
		return err
	}

	d.state.PWM = pwm
	d.state.Direction = dir
	d.state.DutyCycle = input
	return nil
}

// Shutdown stops the motor, returns both pins to floating inputs and releases
// the channel. It is safe to call repeatedly and on a driver that never
// initialized; hardware is only touched while active. Failures do not stop
// the sequence and are returned joined.
func (d *Driver) Shutdown() error {
	var errs []error
	if d.active {
		if err := d.SetDutyCycle(0); err != nil {
			errs = append(errs, err)
		}
		errs = append(errs, d.releasePins(d.cfg.PWMPin())...)
		d.reg.Release(d)
		d.log.Printf("motor shut down channel=%d", d.cfg.channel)
	}

	d.active = false
	d.state = State{}
	if len(errs) > 0 {
		d.lastErr = errs[0].Error()
	}
	return errors.Join(errs...)
}

// releasePins returns the PWM and direction pins to floating inputs. It does
// not stop at the first failure.
func (d *Driver) releasePins(pwmPin int) []error {
	var errs []error
	for _, pin := range []int{pwmPin, d.cfg.dirPin} {
		if err := d.hw.SetPinMode(pin, hal.Input); err != nil {
			errs = append(errs, &HardwareError{Op: fmt.Sprintf("release gpio %d", pin), Err: err})
		}
		if err := d.hw.SetPinPull(pin, hal.PullOff); err != nil {
			errs = append(errs, &HardwareError{Op: fmt.Sprintf("disable pull on gpio %d", pin), Err: err})
		}
	}
	return errs
}

// Close is Shutdown, for use with defer.
func (d *Driver) Close() error {
	return d.Shutdown()
}
