package hw

import (
	"sync"

	"github.com/PixPMusic/stompmidi/internal/config"
)

// Virtual is an in-memory panel. Anything may press its switches or move
// its pedal from another goroutine while the engine scans it.
type Virtual struct {
	mu       sync.Mutex
	switches []bool
	scan     []bool
	pedal    int
	err      error
}

// NewVirtual creates a panel with every switch released and the pedal at rest
func NewVirtual() *Virtual {
	return &Virtual{
		switches: make([]bool, config.SwitchCount),
		scan:     make([]bool, config.SwitchCount),
	}
}

func (v *Virtual) valid(i int) bool { return i >= 0 && i < len(v.switches) }

// Press holds switch i down
func (v *Virtual) Press(i int) { v.Set(i, true) }

// Release lets switch i go
func (v *Virtual) Release(i int) { v.Set(i, false) }

// Set puts switch i in the given state
func (v *Virtual) Set(i int, pressed bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.valid(i) {
		v.switches[i] = pressed
	}
}

// Flip inverts switch i and returns the new state
func (v *Virtual) Flip(i int) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.valid(i) {
		return false
	}
	v.switches[i] = !v.switches[i]
	return v.switches[i]
}

// Held reports whether switch i is down
func (v *Virtual) Held(i int) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.valid(i) && v.switches[i]
}

// SetPedal moves the expression pedal to a raw ADC value, clamped to 12 bits
func (v *Virtual) SetPedal(raw int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.pedal = max(0, min(ADCMax, raw))
}

// Pedal returns the pedal's raw value
func (v *Virtual) Pedal() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.pedal
}

// FailPedal makes every following Sample return err, or recover with nil
func (v *Virtual) FailPedal(err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.err = err
}

// Scan returns a snapshot of the switches. The slice is reused by the next call.
func (v *Virtual) Scan() ([]bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	copy(v.scan, v.switches)
	return v.scan, nil
}

// Sample returns the pedal's raw value
func (v *Virtual) Sample() (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.err != nil {
		return 0, v.err
	}
	return v.pedal, nil
}
