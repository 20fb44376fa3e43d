// Package hw reads the pedal's switches and expression input, either from
// Raspberry Pi GPIO/SPI or from an in-memory panel.
package hw

import (
	"errors"
	"fmt"
	"sync"

	"github.com/stianeikeland/go-rpio/v4"
)

// ErrNotOpen is returned when the board has been closed
var ErrNotOpen = errors.New("hw: board not open")

// Board owns the memory-mapped GPIO and SPI peripherals
type Board struct {
	mu      sync.Mutex
	open    bool
	spiOn   bool
	cleanup []func()
}

// Open maps the GPIO registers. Requires access to /dev/gpiomem, or /dev/mem
// when SPI is used.
func Open() (*Board, error) {
	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("open gpio: %w", err)
	}
	return &Board{open: true}, nil
}

// Close releases SPI and unmaps the registers
func (b *Board) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.open {
		return nil
	}
	for _, fn := range b.cleanup {
		fn()
	}
	if b.spiOn {
		rpio.SpiEnd(rpio.Spi0)
		b.spiOn = false
	}
	b.open = false
	return rpio.Close()
}

func (b *Board) beginSPI() error {
	if b.spiOn {
		return nil
	}
	if err := rpio.SpiBegin(rpio.Spi0); err != nil {
		return fmt.Errorf("begin spi: %w", err)
	}
	b.spiOn = true
	return nil
}
