// Package bank tracks which bank of mappings is active.
package bank

import (
	"sync/atomic"

	"github.com/PixPMusic/stompmidi/internal/config"
)

// Manager owns the active bank index. Writes come from the scan loop;
// Current may be called from any goroutine.
type Manager struct {
	current  atomic.Int32
	count    int
	onChange func(bank int)
}

// New creates a manager over count banks starting at start. An out of
// range start falls back to bank 0.
func New(count, start int) *Manager {
	if count < 1 {
		count = config.BankCount
	}
	m := &Manager{count: count}
	if start >= 0 && start < count {
		m.current.Store(int32(start))
	}
	return m
}

// OnChange registers a hook called after every effective change
func (m *Manager) OnChange(fn func(bank int)) {
	m.onChange = fn
}

// Current returns the active bank
func (m *Manager) Current() int {
	return int(m.current.Load())
}

// Count returns the number of banks
func (m *Manager) Count() int { return m.count }

// Next advances to the following bank, wrapping to 0 after the last
func (m *Manager) Next() int {
	m.set((m.Current() + 1) % m.count)
	return m.Current()
}

// Prev moves to the previous bank, wrapping to the last from 0
func (m *Manager) Prev() int {
	m.set((m.Current() - 1 + m.count) % m.count)
	return m.Current()
}

// Select makes bank n active. Out of range values are ignored and report false.
func (m *Manager) Select(n int) bool {
	if n < 0 || n >= m.count {
		return false
	}
	m.set(n)
	return true
}

// Apply performs a bank pseudo-action and reports whether it was one
func (m *Manager) Apply(action config.SwitchAction) bool {
	switch action.Type {
	case config.ActionBankNext:
		m.Next()
	case config.ActionBankPrev:
		m.Prev()
	case config.ActionBankSelect:
		m.Select(int(action.Data1))
	default:
		return false
	}
	return true
}

func (m *Manager) set(n int) {
	if int(m.current.Swap(int32(n))) == n {
		return
	}
	if m.onChange != nil {
		m.onChange(n)
	}
}
