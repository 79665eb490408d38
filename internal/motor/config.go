package motor

import (
	"errors"
	"fmt"
	"math"

	"motordc/internal/hal"
)

// MaxClockDivider is the largest accepted PWM clock divider.
const MaxClockDivider = 2048

// Config is a validated, immutable motor configuration. Build one with
// NewBuilder.
type Config struct {
	channel      int
	dirPin       int
	dirPolarity  int
	pwmRange     uint32
	clockDivider uint32
	dutyOffset   float64
}

// DefaultConfig matches the reference wiring: channel 1 (GPIO13), direction on
// GPIO19, inverted polarity, 4% deadzone and a 24000 step range at divider 32
// (25 Hz).
func DefaultConfig() Config {
	return Config{
		channel:      1,
		dirPin:       19,
		dirPolarity:  1,
		pwmRange:     24000,
		clockDivider: 32,
		dutyOffset:   4,
	}
}

func (c Config) Channel() int           { return c.channel }
func (c Config) DirectionPin() int      { return c.dirPin }
func (c Config) DirectionPolarity() int { return c.dirPolarity }
func (c Config) Range() uint32          { return c.pwmRange }
func (c Config) ClockDivider() uint32   { return c.clockDivider }
func (c Config) DutyOffset() float64    { return c.dutyOffset }

// PWMPin is the GPIO driven by the configured channel, or -1 if the channel
// is invalid.
func (c Config) PWMPin() int {
	pin, ok := hal.ChannelPin(c.channel)
	if !ok {
		return -1
	}
	return pin
}

func (c Config) String() string {
	return fmt.Sprintf("channel=%d dir_pin=%d dir_polarity=%d range=%d clock_divider=%d duty_offset=%g",
		c.channel, c.dirPin, c.dirPolarity, c.pwmRange, c.clockDivider, c.dutyOffset)
}

// Validate checks every rule and returns all violations joined, or nil.
func (c Config) Validate() error {
	return errors.Join(c.violations()...)
}

func (c Config) violations() []error {
	var errs []error
	if c.channel != 0 && c.channel != 1 {
		errs = append(errs, fmt.Errorf("%w: channel %d, select channel 0 or 1", ErrInvalidChannel, c.channel))
	}
	if c.dirPin < 0 || c.dirPin > hal.MaxPin {
		errs = append(errs, fmt.Errorf("%w: pin %d outside 0..%d", ErrInvalidPin, c.dirPin, hal.MaxPin))
	} else if pwmPin := c.PWMPin(); pwmPin == c.dirPin {
		errs = append(errs, fmt.Errorf("%w: pin %d is the pwm output of channel %d", ErrInvalidPin, c.dirPin, c.channel))
	}
	if c.dirPolarity != 0 && c.dirPolarity != 1 {
		errs = append(errs, fmt.Errorf("%w: %d, want 0 or 1", ErrInvalidPolarity, c.dirPolarity))
	}
	if math.IsNaN(c.dutyOffset) || c.dutyOffset < 0 || c.dutyOffset > 100 {
		errs = append(errs, fmt.Errorf("%w: %g%% outside 0..100", ErrInvalidDutyOffset, c.dutyOffset))
	}
	if c.pwmRange == 0 {
		errs = append(errs, fmt.Errorf("%w: range must be > 0", ErrInvalidRange))
	}
	if d := c.clockDivider; d == 0 || d > MaxClockDivider || (d != 1 && d%2 != 0) {
		errs = append(errs, fmt.Errorf("%w: %d, want 1 or an even value up to %d", ErrInvalidClockDivider, d, MaxClockDivider))
	}
	return errs
}

// Builder assembles a Config. It starts from DefaultConfig.
type Builder struct {
	cfg Config
}

func NewBuilder() *Builder {
	return &Builder{cfg: DefaultConfig()}
}

func (b *Builder) Channel(ch int) *Builder {
	b.cfg.channel = ch
	return b
}

func (b *Builder) DirectionPin(pin int) *Builder {
	b.cfg.dirPin = pin
	return b
}

// DirectionPolarity sets the direction pin level for positive commands
// (0: low, 1: high).
func (b *Builder) DirectionPolarity(pol int) *Builder {
	b.cfg.dirPolarity = pol
	return b
}

func (b *Builder) Range(rng uint32) *Builder {
	b.cfg.pwmRange = rng
	return b
}

func (b *Builder) ClockDivider(div uint32) *Builder {
	b.cfg.clockDivider = div
	return b
}

// DutyOffset sets the deadzone compensation in percent.
func (b *Builder) DutyOffset(pct float64) *Builder {
	b.cfg.dutyOffset = pct
	return b
}

// Build validates and returns the configuration.
func (b *Builder) Build() (Config, error) {
	if err := b.cfg.Validate(); err != nil {
		return Config{}, err
	}
	return b.cfg, nil
}
