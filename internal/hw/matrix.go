package hw

import (
	"fmt"
	"time"

	"github.com/stianeikeland/go-rpio/v4"
)

// SettleDelay is how long a row is held low before its columns are read
const SettleDelay = 10 * time.Microsecond

// MatrixConfig lists the BCM pin numbers of a switch matrix. Switch index
// is row*len(Cols) + col.
type MatrixConfig struct {
	Rows []int
	Cols []int
}

// DefaultMatrix is the 2x4 footswitch wiring
func DefaultMatrix() MatrixConfig {
	return MatrixConfig{
		Rows: []int{12, 13},
		Cols: []int{4, 5, 6, 16},
	}
}

// Matrix scans a row/column switch matrix. Rows are driven low one at a
// time; a pressed switch pulls its column low.
type Matrix struct {
	board *Board
	rows  []rpio.Pin
	cols  []rpio.Pin
	state []bool
}

// Matrix configures the pins and returns a scanner
func (b *Board) Matrix(cfg MatrixConfig) (*Matrix, error) {
	if len(cfg.Rows) == 0 || len(cfg.Cols) == 0 {
		return nil, fmt.Errorf("matrix needs at least one row and one column")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.open {
		return nil, ErrNotOpen
	}

	m := &Matrix{board: b, state: make([]bool, len(cfg.Rows)*len(cfg.Cols))}
	for _, n := range cfg.Rows {
		p := rpio.Pin(n)
		p.Output()
		p.High()
		m.rows = append(m.rows, p)
	}
	for _, n := range cfg.Cols {
		p := rpio.Pin(n)
		p.Input()
		p.PullUp()
		m.cols = append(m.cols, p)
	}

	b.cleanup = append(b.cleanup, func() {
		for _, p := range m.rows {
			p.Input()
		}
		for _, p := range m.cols {
			p.PullOff()
		}
	})
	return m, nil
}

// Len returns the number of switches in the matrix
func (m *Matrix) Len() int { return len(m.state) }

// Scan reads every switch. The returned slice is reused by the next call.
func (m *Matrix) Scan() ([]bool, error) {
	m.board.mu.Lock()
	defer m.board.mu.Unlock()
	if !m.board.open {
		return nil, ErrNotOpen
	}

	for r, row := range m.rows {
		row.Low()
		settle(SettleDelay)
		for c, col := range m.cols {
			m.state[r*len(m.cols)+c] = col.Read() == rpio.Low
		}
		row.High()
	}
	return m.state, nil
}

// settle busy-waits; time.Sleep is far too coarse for microseconds
func settle(d time.Duration) {
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
	}
}
