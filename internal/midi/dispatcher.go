package midi

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"gitlab.com/gomidi/midi/v2"
)

// Sink receives every message the engine decides to send
type Sink interface {
	Send(msg Message)
}

// SinkFunc adapts a function to a Sink
type SinkFunc func(msg Message)

func (f SinkFunc) Send(msg Message) { f(msg) }

// Transport is one output that carries encoded messages off the device
type Transport interface {
	Name() string
	Write(msg midi.Message) error
	Close() error
}

type route struct {
	transport Transport
	enabled   atomic.Bool
}

// Dispatcher fans a message out to every enabled transport. Transport
// errors are logged and never returned to the caller.
type Dispatcher struct {
	mu     sync.RWMutex
	routes []*route
	log    *slog.Logger
}

// NewDispatcher creates an empty dispatcher
func NewDispatcher(log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{log: log}
}

// Add registers a transport
func (d *Dispatcher) Add(t Transport, enabled bool) {
	r := &route{transport: t}
	r.enabled.Store(enabled)

	d.mu.Lock()
	d.routes = append(d.routes, r)
	d.mu.Unlock()
	d.log.Info("midi: transport added", "name", t.Name(), "enabled", enabled)
}

func (d *Dispatcher) find(name string) *route {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, r := range d.routes {
		if r.transport.Name() == name {
			return r
		}
	}
	return nil
}

// SetEnabled turns a transport on or off. Returns false if no transport has that name.
func (d *Dispatcher) SetEnabled(name string, enabled bool) bool {
	r := d.find(name)
	if r == nil {
		return false
	}
	r.enabled.Store(enabled)
	d.log.Info("midi: transport state", "name", name, "enabled", enabled)
	return true
}

// Toggle flips a transport and returns its new state
func (d *Dispatcher) Toggle(name string) bool {
	r := d.find(name)
	if r == nil {
		return false
	}
	enabled := !r.enabled.Load()
	r.enabled.Store(enabled)
	d.log.Info("midi: transport state", "name", name, "enabled", enabled)
	return enabled
}

// Enabled reports whether the named transport is receiving messages
func (d *Dispatcher) Enabled(name string) bool {
	r := d.find(name)
	return r != nil && r.enabled.Load()
}

// Names returns the registered transport names in registration order
func (d *Dispatcher) Names() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.routes))
	for _, r := range d.routes {
		names = append(names, r.transport.Name())
	}
	return names
}

// Send implements Sink
func (d *Dispatcher) Send(msg Message) {
	raw := msg.Encode()
	if raw == nil {
		return
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, r := range d.routes {
		if !r.enabled.Load() {
			continue
		}
		if err := r.transport.Write(raw); err != nil {
			d.log.Error("midi: send failed", "transport", r.transport.Name(), "msg", msg.String(), "err", err)
			continue
		}
		d.log.Debug("midi: sent", "transport", r.transport.Name(), "msg", msg.String())
	}
}

// Close closes every transport
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var errs []error
	for _, r := range d.routes {
		if err := r.transport.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	d.routes = nil
	return errors.Join(errs...)
}
