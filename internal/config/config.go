package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"motordc/internal/hal"
	"motordc/internal/motor"
)

type Config struct {
	HAL   HALConfig   `yaml:"hal"`
	Motor MotorConfig `yaml:"motor"`
}

type HALConfig struct {
	// Backend is one of hal.Backends.
	Backend      string `yaml:"backend"`
	GPIOChip     string `yaml:"gpio_chip"`
	PWMSysfsBase string `yaml:"pwm_sysfs_base"`
	Consumer     string `yaml:"consumer"`
}

// MotorConfig mirrors motor.Config. Keys missing from the file keep the
// motor.DefaultConfig values.
type MotorConfig struct {
	Channel      int     `yaml:"channel"`
	ClockDivider uint32  `yaml:"clock_divider"`
	DirPin       int     `yaml:"dir_pin"`
	DirPolarity  int     `yaml:"dir_polarity"`
	DutyOffset   float64 `yaml:"duty_offset"`
	Range        uint32  `yaml:"range"`
}

// Default returns the configuration used for keys absent from the file.
func Default() Config {
	m := motor.DefaultConfig()
	return Config{
		HAL: HALConfig{
			Backend:      hal.BackendAuto,
			GPIOChip:     hal.DefaultGPIOChip,
			PWMSysfsBase: hal.DefaultPWMSysfsBase,
			Consumer:     hal.DefaultConsumer,
		},
		Motor: MotorConfig{
			Channel:      m.Channel(),
			ClockDivider: m.ClockDivider(),
			DirPin:       m.DirectionPin(),
			DirPolarity:  m.DirectionPolarity(),
			DutyOffset:   m.DutyOffset(),
			Range:        m.Range(),
		},
	}
}

var yamlLinePrefix = regexp.MustCompile(`^line \d+: `)

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		var te *yaml.TypeError
		if errors.As(err, &te) && strings.Contains(strings.Join(te.Errors, ""), "not found in type") {
			msgs := make([]string, len(te.Errors))
			for i, e := range te.Errors {
				msgs[i] = yamlLinePrefix.ReplaceAllString(e, "")
			}
			return Config{}, fmt.Errorf("config contains unknown fields: %s", strings.Join(msgs, "; "))
		}
		return Config{}, err
	}

	cfg.HAL.Backend = strings.ToLower(strings.TrimSpace(cfg.HAL.Backend))
	if cfg.HAL.Backend == "" {
		cfg.HAL.Backend = hal.BackendAuto
	}
	if !slices.Contains(hal.Backends, cfg.HAL.Backend) {
		return Config{}, fmt.Errorf("hal.backend must be one of %s", strings.Join(hal.Backends, ", "))
	}
	if cfg.HAL.GPIOChip == "" {
		cfg.HAL.GPIOChip = hal.DefaultGPIOChip
	}
	if cfg.HAL.PWMSysfsBase == "" {
		cfg.HAL.PWMSysfsBase = hal.DefaultPWMSysfsBase
	}
	if cfg.HAL.Consumer == "" {
		cfg.HAL.Consumer = hal.DefaultConsumer
	}

	return cfg, nil
}

// Options converts the hal section for hal.Open.
func (h HALConfig) Options() hal.Options {
	return hal.Options{
		GPIOChip:     h.GPIOChip,
		PWMSysfsBase: h.PWMSysfsBase,
		Consumer:     h.Consumer,
	}
}

// Build validates the motor section. Validation errors are returned
// unchanged so callers can match them with errors.Is.
func (m MotorConfig) Build() (motor.Config, error) {
	return motor.NewBuilder().
		Channel(m.Channel).
		ClockDivider(m.ClockDivider).
		DirectionPin(m.DirPin).
		DirectionPolarity(m.DirPolarity).
		DutyOffset(m.DutyOffset).
		Range(m.Range).
		Build()
}
