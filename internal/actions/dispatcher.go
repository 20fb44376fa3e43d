package actions

import (
	"log/slog"
	"time"

	"github.com/PixPMusic/stompmidi/internal/bank"
	"github.com/PixPMusic/stompmidi/internal/cascade"
	"github.com/PixPMusic/stompmidi/internal/config"
	"github.com/PixPMusic/stompmidi/internal/debounce"
)

type switchState struct {
	pressed   bool
	start     time.Time
	longFired bool
	bank      int // Bank the press happened in
}

// Dispatcher decides which phase of each switch fires, from debounced
// edges and the long-press timer. It belongs to the scan loop.
type Dispatcher struct {
	exec   *Executor
	banks  *bank.Manager
	config func() *config.Device
	log    *slog.Logger

	state [config.SwitchCount]switchState
}

// NewDispatcher creates a dispatcher reading configuration from cfg on every pass
func NewDispatcher(exec *Executor, banks *bank.Manager, cfg func() *config.Device, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{exec: exec, banks: banks, config: cfg, log: log}
}

// Process handles one scan's edges, then checks long presses
func (d *Dispatcher) Process(now time.Time, edges []debounce.Edge) {
	cfg := d.config()
	longPress := time.Duration(cfg.LongPressMS) * time.Millisecond

	for i := range d.state {
		edge := debounce.EdgeNone
		if i < len(edges) {
			edge = edges[i]
		}
		switch edge {
		case debounce.EdgePress:
			d.press(cfg, now, i)
		case debounce.EdgeRelease:
			d.release(cfg, i)
		}
		d.checkLong(cfg, now, longPress, i)
	}
}

// Pressed reports whether switch i is held
func (d *Dispatcher) Pressed(i int) bool {
	return i >= 0 && i < len(d.state) && d.state[i].pressed
}

func (d *Dispatcher) press(cfg *config.Device, now time.Time, i int) {
	st := &d.state[i]
	st.pressed = true
	st.start = now
	st.longFired = false
	st.bank = d.banks.Current()

	// Bank and toggle switches always act on the press edge
	sw := cfg.Switch(st.bank, i)
	if sw.IsBank() || sw.Toggle || sw.Edge == config.EdgeLeading {
		d.fire(st.bank, i, sw, config.PhasePress)
	}
}

func (d *Dispatcher) release(cfg *config.Device, i int) {
	st := &d.state[i]
	st.pressed = false

	sw := cfg.Switch(st.bank, i)
	if sw.IsBank() || sw.Toggle {
		return
	}
	if sw.Edge == config.EdgeTrailing && !st.longFired {
		d.fire(st.bank, i, sw, config.PhasePress)
	}
	d.fire(st.bank, i, sw, config.PhaseRelease)
}

func (d *Dispatcher) checkLong(cfg *config.Device, now time.Time, longPress time.Duration, i int) {
	st := &d.state[i]
	if !st.pressed || st.longFired {
		return
	}
	sw := cfg.Switch(st.bank, i)
	if !sw.LongPress || sw.IsBank() || now.Sub(st.start) <= longPress {
		return
	}
	st.longFired = true
	d.fire(st.bank, i, sw, config.PhaseLong)
}

func (d *Dispatcher) fire(b, i int, sw *config.SwitchConfig, phase config.Phase) {
	d.log.Debug("switch: fire", "bank", b, "switch", i, "phase", phase)
	t := Trigger{Key: cascade.Key{Bank: b, Switch: i}, Phase: phase, Switch: sw}
	if err := d.exec.Execute(t); err != nil {
		d.log.Warn("switch: action failed", "bank", b, "switch", i, "phase", phase, "err", err)
	}
}
