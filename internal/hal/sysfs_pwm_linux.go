//go:build linux

package hal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sys/unix"
)

// sysfsPWM drives one hardware PWM channel via /sys/class/pwm.
//
// Notes:
//   - On Raspberry Pi the channels only show up once a PWM overlay is loaded.
//     `dtoverlay=pwm-2chan,pin=12,func=4,pin2=13,func2=4` exposes GPIO12 as
//     pwm0 and GPIO13 as pwm1, which matches ChannelPin.
//   - The kernel driver always runs the block in mark-space mode, so balanced
//     mode is rejected.
type sysfsPWM struct {
	chipPath string // /sys/class/pwm/pwmchipN
	pwmPath  string // /sys/class/pwm/pwmchipN/pwmM
	channel  int

	periodNS uint64
	enabled  bool
}

// Export waits are bounded; udev may lag the kernel by a few hundred ms.
var (
	exportTimeout    = 500 * time.Millisecond
	sysfsRetryWindow = 2 * time.Second
	sysfsOpenFlag    = os.O_WRONLY
)

func openSysfsPWM(base string, channel int) (*sysfsPWM, error) {
	chipPath, err := findPWMChip(base, channel)
	if err != nil {
		return nil, err
	}
	d := &sysfsPWM{
		chipPath: chipPath,
		channel:  channel,
		pwmPath:  filepath.Join(chipPath, fmt.Sprintf("pwm%d", channel)),
	}
	if err := d.ensureExported(); err != nil {
		return nil, err
	}
	return d, nil
}

// findPWMChip returns the first pwmchip under base that has more than channel
// channels.
func findPWMChip(base string, channel int) (string, error) {
	entries, err := os.ReadDir(base)
	if err != nil {
		return "", fmt.Errorf("hal: read %s: %w", base, err)
	}

	// Prefer pwmchip0 if present (common on Pi).
	preferred := []string{"pwmchip0", "pwmchip1", "pwmchip2"}
	// Note: in sysfs, pwmchipN entries are commonly symlinks, not directories.
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "pwmchip") {
			seen[e.Name()] = true
		}
	}
	candidates := make([]string, 0, len(entries))
	for _, name := range preferred {
		if seen[name] {
			candidates = append(candidates, name)
			delete(seen, name)
		}
	}
	for _, e := range entries {
		if seen[e.Name()] {
			candidates = append(candidates, e.Name())
		}
	}

	for _, name := range candidates {
		chip := filepath.Join(base, name)
		n, rerr := readInt(filepath.Join(chip, "npwm"))
		if rerr != nil {
			continue
		}
		if n <= channel {
			continue
		}
		return chip, nil
	}

	return "", fmt.Errorf("hal: no sysfs pwmchip with channel %d under %s (is the pwm overlay enabled?)", channel, base)
}

func (d *sysfsPWM) ensureExported() error {
	if _, err := os.Stat(d.pwmPath); err == nil {
		return nil
	}
	exportPath := filepath.Join(d.chipPath, "export")
	if err := writeSysfs(exportPath, strconv.Itoa(d.channel)); err != nil {
		// If already exported by someone else, ignore.
		if _, statErr := os.Stat(d.pwmPath); statErr == nil {
			return nil
		}
		return fmt.Errorf("hal: export pwm%d: %w", d.channel, err)
	}

	deadline := time.Now().Add(exportTimeout)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(d.pwmPath); err == nil {
			return nil
		}
		time.Sleep(10 * time.Millisecond)
	}
	if _, err := os.Stat(d.pwmPath); err != nil {
		return fmt.Errorf("hal: pwm path not created after export: %w", err)
	}
	return nil
}

// unexport disables the channel and hands it back to the kernel so the pin
// can be requested as a plain GPIO again.
func (d *sysfsPWM) unexport() error {
	_ = d.writeBool("enable", false)
	d.enabled = false
	if err := writeSysfs(filepath.Join(d.chipPath, "unexport"), strconv.Itoa(d.channel)); err != nil {
		return fmt.Errorf("hal: unexport pwm%d: %w", d.channel, err)
	}
	return nil
}

// setPeriod reprograms the period, keeping duty at the same fraction.
// The kernel rejects a period shorter than the current duty_cycle, so duty is
// zeroed first.
func (d *sysfsPWM) setPeriod(periodNS, dutyNS uint64, enable bool) error {
	if periodNS == 0 {
		return fmt.Errorf("hal: pwm%d: zero period", d.channel)
	}
	if d.periodNS != 0 {
		if err := d.writeUint("duty_cycle", 0); err != nil {
			return err
		}
	}
	if err := d.writeUint("period", periodNS); err != nil {
		return err
	}
	d.periodNS = periodNS
	if err := d.setDuty(dutyNS); err != nil {
		return err
	}
	return d.setEnabled(enable)
}

func (d *sysfsPWM) setDuty(dutyNS uint64) error {
	if dutyNS > d.periodNS {
		dutyNS = d.periodNS
	}
	return d.writeUint("duty_cycle", dutyNS)
}

func (d *sysfsPWM) setEnabled(v bool) error {
	if d.enabled == v {
		return nil
	}
	if err := d.writeBool("enable", v); err != nil {
		return err
	}
	d.enabled = v
	return nil
}

func (d *sysfsPWM) writeUint(name string, v uint64) error {
	return writeSysfs(filepath.Join(d.pwmPath, name), strconv.FormatUint(v, 10))
}

func (d *sysfsPWM) writeBool(name string, v bool) error {
	val := "0"
	if v {
		val = "1"
	}
	return writeSysfs(filepath.Join(d.pwmPath, name), val)
}

func writeSysfs(path string, value string) error {
	// Use O_WRONLY without O_TRUNC/O_CREATE: some sysfs attributes reject
	// truncation flags. Right after an export udev may still be fixing up
	// permissions, so EACCES/ENOENT are retried for a short window.
	deadline := time.Now().Add(sysfsRetryWindow)
	for {
		err := writeSysfsOnce(path, value)
		if err == nil {
			return nil
		}
		if time.Now().Before(deadline) && isRetryableSysfsErr(err) {
			time.Sleep(25 * time.Millisecond)
			continue
		}
		return err
	}
}

func writeSysfsOnce(path, value string) error {
	f, err := os.OpenFile(path, sysfsOpenFlag, 0)
	if err != nil {
		return err
	}
	_, werr := f.WriteString(value)
	cerr := f.Close()
	return errors.Join(werr, cerr)
}

func isRetryableSysfsErr(err error) bool {
	return errors.Is(err, unix.EACCES) || errors.Is(err, unix.EPERM) || errors.Is(err, unix.ENOENT)
}

func readInt(path string) (int, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	s := strings.TrimSpace(string(b))
	if s == "" {
		return 0, fmt.Errorf("%s: empty", path)
	}
	return strconv.Atoi(s)
}
