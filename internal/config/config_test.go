package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"motordc/internal/hal"
	"motordc/internal/motor"
)

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	tmp := t.TempDir()
	path := filepath.Join(tmp, "cfg.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	return path
}

func requireErrEq(t *testing.T, err error, want string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error %q, got nil", want)
	}
	if err.Error() != want {
		t.Fatalf("error=%q want %q", err.Error(), want)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("err=%v want ErrNotExist", err)
	}
}

func TestLoad_EmptyFileUsesDefaults(t *testing.T) {
	path := writeTempConfig(t, "")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg != Default() {
		t.Fatalf("cfg=%+v want defaults %+v", cfg, Default())
	}
	m, err := cfg.Motor.Build()
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if m != motor.DefaultConfig() {
		t.Fatalf("motor=%v want %v", m, motor.DefaultConfig())
	}
}

func TestLoad_PartialMotorKeepsDefaults(t *testing.T) {
	// channel 0 and polarity 0 are real values, not "unset".
	path := writeTempConfig(t, "motor:\n  channel: 0\n  dir_polarity: 0\n  dir_pin: 5\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	m := cfg.Motor
	if m.Channel != 0 || m.DirPolarity != 0 || m.DirPin != 5 {
		t.Fatalf("motor=%+v", m)
	}
	if m.Range != 24000 || m.ClockDivider != 32 || m.DutyOffset != 4 {
		t.Fatalf("defaults not kept: %+v", m)
	}
}

func TestLoad_HALSection(t *testing.T) {
	path := writeTempConfig(t, "hal:\n  backend: CDEV\n  gpio_chip: /dev/gpiochip4\n  pwm_sysfs_base: ''\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	want := hal.Options{GPIOChip: "/dev/gpiochip4", PWMSysfsBase: hal.DefaultPWMSysfsBase, Consumer: hal.DefaultConsumer}
	if cfg.HAL.Backend != hal.BackendCdev {
		t.Fatalf("backend=%q want cdev", cfg.HAL.Backend)
	}
	if got := cfg.HAL.Options(); got != want {
		t.Fatalf("options=%+v want %+v", got, want)
	}
}

func TestLoad_RejectsUnknownBackend(t *testing.T) {
	path := writeTempConfig(t, "hal:\n  backend: wiringpi\n")
	_, err := Load(path)
	requireErrEq(t, err, "hal.backend must be one of auto, rpio, cdev, periph, fake")
}

func TestLoad_RejectsUnknownField(t *testing.T) {
	path := writeTempConfig(t, "motor:\n  channel: 1\n  pid_kp: 0.2\n")
	_, err := Load(path)
	requireErrEq(t, err, "config contains unknown fields: field pid_kp not found in type config.MotorConfig")
}

func TestMotorConfigBuild_PassesValidationErrors(t *testing.T) {
	cases := []struct {
		name string
		body string
		want error
	}{
		{"Channel", "motor:\n  channel: 2\n", motor.ErrInvalidChannel},
		{"Divider", "motor:\n  clock_divider: 2049\n", motor.ErrInvalidClockDivider},
		{"Pin", "motor:\n  dir_pin: 31\n", motor.ErrInvalidPin},
		{"Polarity", "motor:\n  dir_polarity: 2\n", motor.ErrInvalidPolarity},
		{"Offset", "motor:\n  duty_offset: -1\n", motor.ErrInvalidDutyOffset},
		{"Range", "motor:\n  range: 0\n", motor.ErrInvalidRange},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := Load(writeTempConfig(t, tc.body))
			if err != nil {
				t.Fatalf("Load() error: %v", err)
			}
			if _, err := cfg.Motor.Build(); !errors.Is(err, tc.want) {
				t.Fatalf("err=%v want %v", err, tc.want)
			}
		})
	}
}
