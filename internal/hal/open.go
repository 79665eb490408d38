package hal

import (
	"fmt"
	"strings"
)

// Backend names accepted by Open.
const (
	BackendAuto   = "auto"
	BackendRPIO   = "rpio"
	BackendCdev   = "cdev"
	BackendPeriph = "periph"
	BackendFake   = "fake"
)

// Backends lists every backend name Open accepts.
var Backends = []string{BackendAuto, BackendRPIO, BackendCdev, BackendPeriph, BackendFake}

// Options tune the Linux backends. Zero values take the defaults below.
type Options struct {
	// GPIOChip is the character device used by the cdev backend.
	GPIOChip string
	// PWMSysfsBase is the sysfs PWM class directory used by the cdev backend.
	PWMSysfsBase string
	// Consumer labels requested GPIO lines.
	Consumer string
}

const (
	DefaultGPIOChip     = "/dev/gpiochip0"
	DefaultPWMSysfsBase = "/sys/class/pwm"
	DefaultConsumer     = "motordc"
)

func (o Options) withDefaults() Options {
	if o.GPIOChip == "" {
		o.GPIOChip = DefaultGPIOChip
	}
	if o.PWMSysfsBase == "" {
		o.PWMSysfsBase = DefaultPWMSysfsBase
	}
	if o.Consumer == "" {
		o.Consumer = DefaultConsumer
	}
	return o
}

var (
	openRPIOFn   = openRPIO
	openCdevFn   = openCdev
	openPeriphFn = openPeriph
	openAutoFn   = openAuto
)

// Open returns the named backend. An empty name means BackendAuto.
func Open(name string, opts Options) (Peripheral, error) {
	opts = opts.withDefaults()
	switch strings.ToLower(strings.TrimSpace(name)) {
	case BackendAuto, "":
		return openAutoFn(opts)
	case BackendRPIO:
		return openRPIOFn()
	case BackendCdev:
		return openCdevFn(opts)
	case BackendPeriph:
		return openPeriphFn()
	case BackendFake:
		return NewFake(), nil
	default:
		return nil, fmt.Errorf("hal: unknown backend %q (want one of %s)", name, strings.Join(Backends, ", "))
	}
}
