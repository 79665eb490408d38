//go:build !linux

package hal

import "fmt"

// Stub implementations for non-Linux platforms. The fake and periph backends
// remain available.
func openRPIO() (Peripheral, error) {
	return nil, fmt.Errorf("hal: rpio backend unsupported on this platform")
}

func openCdev(opts Options) (Peripheral, error) {
	return nil, fmt.Errorf("hal: cdev backend unsupported on this platform")
}

func openAuto(opts Options) (Peripheral, error) {
	return nil, fmt.Errorf("hal: no hardware backend on this platform")
}
