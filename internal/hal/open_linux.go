//go:build linux

package hal

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

var gpiomemPath = "/dev/gpiomem"

// openAuto prefers register access when /dev/gpiomem is usable (Pi 1-4) and
// falls back to the character device + sysfs backend (Pi 5, or when the
// process may not map GPIO memory).
func openAuto(opts Options) (Peripheral, error) {
	if !isRaspberryPi5() && unix.Access(gpiomemPath, unix.R_OK|unix.W_OK) == nil {
		if p, err := openRPIOFn(); err == nil {
			return p, nil
		}
	}
	if _, err := os.Stat(opts.GPIOChip); err == nil {
		return openCdevFn(opts)
	}
	return nil, fmt.Errorf("hal: no usable backend (%s and %s unavailable)", gpiomemPath, opts.GPIOChip)
}
