package motor

import (
	"fmt"
	"sync"
)

// Registry tracks which PWM channels and GPIOs are owned by which driver.
// It is safe for concurrent use.
type Registry struct {
	mu       sync.Mutex
	channels map[int]any
	pins     map[int]any
}

// DefaultRegistry is shared by all drivers created without WithRegistry.
var DefaultRegistry = NewRegistry()

func NewRegistry() *Registry {
	return &Registry{channels: make(map[int]any), pins: make(map[int]any)}
}

// Claim reserves channel and pins for owner. Either everything is claimed or
// nothing is. Resources already held by owner are not a conflict.
func (r *Registry) Claim(owner any, channel int, pins ...int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if o, ok := r.channels[channel]; ok && o != owner {
		return fmt.Errorf("%w: pwm channel %d", ErrResourceConflict, channel)
	}
	for _, pin := range pins {
		if o, ok := r.pins[pin]; ok && o != owner {
			return fmt.Errorf("%w: gpio %d", ErrResourceConflict, pin)
		}
	}

	r.channels[channel] = owner
	for _, pin := range pins {
		r.pins[pin] = owner
	}
	return nil
}

// Release drops every claim held by owner.
func (r *Registry) Release(owner any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for ch, o := range r.channels {
		if o == owner {
			delete(r.channels, ch)
		}
	}
	for pin, o := range r.pins {
		if o == owner {
			delete(r.pins, pin)
		}
	}
}

// InUse reports whether the channel is claimed.
func (r *Registry) InUse(channel int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.channels[channel]
	return ok
}
