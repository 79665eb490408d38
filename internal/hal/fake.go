package hal

import (
	"fmt"
	"sync"
)

// Fake is an in-memory Peripheral that records every call.
//
// It is used by tests and by the "fake" backend of cmd/motordc.
// Fake is safe for concurrent use.
type Fake struct {
	mu       sync.Mutex
	calls    []string
	pins     map[int]PinState
	channels [Channels]ChannelState
	divider  uint32
	fail     map[string]error
	closed   bool
}

// PinState is the last programmed state of a GPIO.
type PinState struct {
	Mode     PinMode
	Level    Level
	Pull     Pull
	Function Function
}

// ChannelState is the last programmed state of a PWM channel.
type ChannelState struct {
	Enabled   bool
	MarkSpace bool
	Range     uint32
	Data      uint32
}

func NewFake() *Fake {
	return &Fake{pins: make(map[int]PinState), fail: make(map[string]error)}
}

// FailOn makes every subsequent call of op (e.g. "SetChannelData") return
// err. A nil err clears the failure.
func (f *Fake) FailOn(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.fail, op)
		return
	}
	f.fail[op] = err
}

// Calls returns the recorded calls in order, formatted as "Op(args)".
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

// ResetCalls forgets the recorded calls but keeps pin and channel state.
func (f *Fake) ResetCalls() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

func (f *Fake) Pin(pin int) PinState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pins[pin]
}

func (f *Fake) Channel(ch int) ChannelState {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ch < 0 || ch >= Channels {
		return ChannelState{}
	}
	return f.channels[ch]
}

func (f *Fake) ClockDivider() uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.divider
}

func (f *Fake) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// record must be called with f.mu held.
func (f *Fake) record(op string, format string, args ...any) error {
	f.calls = append(f.calls, op+"("+fmt.Sprintf(format, args...)+")")
	if f.closed {
		return fmt.Errorf("hal: fake peripheral closed")
	}
	return f.fail[op]
}

func (f *Fake) SetPinMode(pin int, mode PinMode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("SetPinMode", "%d, %s", pin, mode); err != nil {
		return err
	}
	if err := checkPin(pin); err != nil {
		return err
	}
	st := f.pins[pin]
	st.Mode = mode
	st.Function = 0
	f.pins[pin] = st
	return nil
}

func (f *Fake) WritePin(pin int, level Level) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("WritePin", "%d, %s", pin, level); err != nil {
		return err
	}
	if err := checkPin(pin); err != nil {
		return err
	}
	st := f.pins[pin]
	st.Level = level
	f.pins[pin] = st
	return nil
}

func (f *Fake) SetPinPull(pin int, pull Pull) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("SetPinPull", "%d, %s", pin, pull); err != nil {
		return err
	}
	if err := checkPin(pin); err != nil {
		return err
	}
	st := f.pins[pin]
	st.Pull = pull
	f.pins[pin] = st
	return nil
}

func (f *Fake) SelectFunction(pin int, fn Function) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("SelectFunction", "%d, %s", pin, fn); err != nil {
		return err
	}
	if err := checkPin(pin); err != nil {
		return err
	}
	if _, ok := PinChannel(pin); fn == FunctionPWM && !ok {
		return fmt.Errorf("hal: gpio %d has no pwm function", pin)
	}
	st := f.pins[pin]
	st.Function = fn
	f.pins[pin] = st
	return nil
}

func (f *Fake) SetClockDivider(div uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("SetClockDivider", "%d", div); err != nil {
		return err
	}
	f.divider = div
	return nil
}

func (f *Fake) SetChannelMode(ch int, enabled, markSpace bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("SetChannelMode", "%d, %t, %t", ch, enabled, markSpace); err != nil {
		return err
	}
	if err := checkChannel(ch); err != nil {
		return err
	}
	f.channels[ch].Enabled = enabled
	f.channels[ch].MarkSpace = markSpace
	return nil
}

func (f *Fake) SetChannelRange(ch int, rng uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("SetChannelRange", "%d, %d", ch, rng); err != nil {
		return err
	}
	if err := checkChannel(ch); err != nil {
		return err
	}
	f.channels[ch].Range = rng
	return nil
}

func (f *Fake) SetChannelData(ch int, data uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("SetChannelData", "%d, %d", ch, data); err != nil {
		return err
	}
	if err := checkChannel(ch); err != nil {
		return err
	}
	f.channels[ch].Data = data
	return nil
}

func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "Close()")
	f.closed = true
	return nil
}
