package midi

import (
	"fmt"
	"strings"
	"sync"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// Manager handles MIDI output port discovery. The caller registers a driver
// with a blank import (rtmididrv in the daemon).
type Manager struct {
	mu sync.RWMutex
}

// NewManager creates a new MIDI manager
func NewManager() *Manager {
	return &Manager{}
}

// Close cleans up the MIDI driver
func (m *Manager) Close() {
	midi.CloseDriver()
}

// ListOutPorts returns the names of available MIDI output ports
func (m *Manager) ListOutPorts() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	outs := midi.GetOutPorts()
	names := make([]string, 0, len(outs))
	for _, out := range outs {
		names = append(names, out.String())
	}
	return names
}

// OpenPort opens an output port as a transport. An exact name match wins,
// otherwise the first port containing name is used.
func (m *Manager) OpenPort(name string) (*Port, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := m.findOutPort(name)
	if out == nil {
		return nil, fmt.Errorf("output port not found: %s", name)
	}

	send, err := midi.SendTo(out)
	if err != nil {
		return nil, fmt.Errorf("failed to create sender: %w", err)
	}
	return &Port{out: out, send: send}, nil
}

func (m *Manager) findOutPort(name string) drivers.Out {
	outs := midi.GetOutPorts()
	for _, out := range outs {
		if out.String() == name {
			return out
		}
	}
	for _, out := range outs {
		if strings.Contains(out.String(), name) {
			return out
		}
	}
	return nil
}

// Port is a transport writing to a gomidi output port
type Port struct {
	out  drivers.Out
	send func(midi.Message) error
}

func (p *Port) Name() string { return "port:" + p.out.String() }

func (p *Port) Write(msg midi.Message) error {
	return p.send(msg)
}

func (p *Port) Close() error {
	return p.out.Close()
}
