//go:build linux

package hal

import (
	"os"
	"strings"
)

var modelPaths = []string{
	"/sys/firmware/devicetree/base/model",
	"/proc/device-tree/model",
}

// boardModel returns the device-tree model string, or "" if unknown.
func boardModel() string {
	for _, p := range modelPaths {
		b, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		model := strings.Trim(strings.TrimSpace(string(b)), "\x00")
		if model != "" {
			return model
		}
	}
	return ""
}

// isRaspberryPi5 reports whether GPIO lives behind the RP1 south bridge,
// where BCM2835 register access does not work.
func isRaspberryPi5() bool {
	return strings.Contains(boardModel(), "Raspberry Pi 5")
}
