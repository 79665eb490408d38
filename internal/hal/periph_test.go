package hal

import (
	"testing"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/physic"
)

func newTestPeriph(t *testing.T) (*periphPeripheral, map[string]*gpiotest.Pin) {
	t.Helper()
	pins := map[string]*gpiotest.Pin{
		"GPIO13": {N: "GPIO13", Num: 13},
		"GPIO19": {N: "GPIO19", Num: 19},
	}
	oldInit, oldPin := periphInitFn, periphPinFn
	periphInitFn = func() error { return nil }
	periphPinFn = func(name string) gpio.PinIO {
		if p, ok := pins[name]; ok {
			return p
		}
		return nil
	}
	t.Cleanup(func() {
		periphInitFn = oldInit
		periphPinFn = oldPin
	})
	p, err := openPeriph()
	if err != nil {
		t.Fatalf("openPeriph: %v", err)
	}
	return p.(*periphPeripheral), pins
}

func TestPeriph_DirectionPin(t *testing.T) {
	p, pins := newTestPeriph(t)
	if err := p.SetPinMode(19, Output); err != nil {
		t.Fatalf("SetPinMode: %v", err)
	}
	if err := p.WritePin(19, High); err != nil {
		t.Fatalf("WritePin: %v", err)
	}
	if pins["GPIO19"].L != gpio.High {
		t.Fatalf("GPIO19 level=%v want High", pins["GPIO19"].L)
	}
	if err := p.SetPinPull(19, PullOff); err != nil {
		t.Fatalf("SetPinPull: %v", err)
	}
	if pins["GPIO19"].P != gpio.Float {
		t.Fatalf("GPIO19 pull=%v want Float", pins["GPIO19"].P)
	}
	if err := p.WritePin(20, High); err == nil {
		t.Fatalf("expected error for unknown pin")
	}
}

func TestPeriph_PWM(t *testing.T) {
	p, pins := newTestPeriph(t)
	steps := []error{
		p.SelectFunction(13, FunctionPWM),
		p.SetClockDivider(32),
		p.SetChannelMode(1, true, true),
		p.SetChannelRange(1, 24000),
		p.SetChannelData(1, 12000),
	}
	for i, err := range steps {
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
	pin := pins["GPIO13"]
	if pin.D != gpio.DutyMax/2 {
		t.Fatalf("duty=%v want %v", pin.D, gpio.DutyMax/2)
	}
	if pin.F != 25*physic.Hertz {
		t.Fatalf("freq=%v want 25Hz", pin.F)
	}

	// Disabling the channel drives zero duty.
	if err := p.SetChannelMode(1, false, true); err != nil {
		t.Fatalf("SetChannelMode: %v", err)
	}
	if pin.D != 0 {
		t.Fatalf("duty=%v want 0 when disabled", pin.D)
	}
}

func TestPeriph_DataBeforeSelectFails(t *testing.T) {
	p, _ := newTestPeriph(t)
	if err := p.SetChannelData(1, 1); err == nil {
		t.Fatalf("expected error")
	}
}

func TestPeriphDuty(t *testing.T) {
	if got := periphDuty(24000, 24000); got != gpio.DutyMax {
		t.Fatalf("full duty=%v", got)
	}
	if got := periphDuty(0, 24000); got != 0 {
		t.Fatalf("zero duty=%v", got)
	}
}
