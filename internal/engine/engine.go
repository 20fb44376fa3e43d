// Package engine runs the pedal's scan loop: switches, groups, banks and the
// expression pedal, all on one goroutine.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/PixPMusic/stompmidi/internal/actions"
	"github.com/PixPMusic/stompmidi/internal/bank"
	"github.com/PixPMusic/stompmidi/internal/cascade"
	"github.com/PixPMusic/stompmidi/internal/config"
	"github.com/PixPMusic/stompmidi/internal/debounce"
	"github.com/PixPMusic/stompmidi/internal/expression"
	"github.com/PixPMusic/stompmidi/internal/midi"
)

const (
	ScanInterval = time.Millisecond      // Switch scan cadence
	SlowInterval = 10 * time.Millisecond // Expression cadence
	ComboHold    = 2000 * time.Millisecond

	requestQueue = 8
)

// Combo switches: the fifth and eighth footswitch
var comboSwitches = [2]int{4, 7}

// Switches reads the raw state of every footswitch (true = pressed)
type Switches interface {
	Scan() ([]bool, error)
}

// Options configures an Engine. Switches, Sink and Config are required.
type Options struct {
	Switches Switches
	Pedal    expression.Sampler // Optional
	Sink     midi.Sink
	Config   *config.Device

	// Persist is called whenever configuration or the active bank changes
	Persist func()

	// Battery supplies the battery voltage for Status
	Battery func() float64

	// Combo is called once each time the combo switches are held for ComboHold
	Combo func()

	Log *slog.Logger
}

// Status is the state polled by external consumers
type Status struct {
	Bank          int     `json:"bank"`
	ExpressionRaw int     `json:"exp_raw"`
	BatteryVolts  float64 `json:"bat"`
}

// Engine owns all runtime state. Tick and Run must be called from a single
// goroutine; every other method is safe from anywhere.
type Engine struct {
	cfg      atomic.Pointer[config.Device]
	requests chan int

	switches Switches
	pedal    expression.Sampler
	persist  func()
	battery  func() float64
	combo    func()
	log      *slog.Logger

	detector *debounce.Detector
	banks    *bank.Manager
	groups   *cascade.Engine
	exec     *actions.Executor
	dispatch *actions.Dispatcher
	expr     *expression.Pipeline

	lastSlow    time.Time
	comboStart  time.Time
	comboFired  bool
	scanFailing bool
	exprFailing bool
}

// New creates an engine. The configuration is sanitised before use.
func New(opts Options) (*Engine, error) {
	if opts.Switches == nil {
		return nil, fmt.Errorf("engine: no switch source")
	}
	if opts.Sink == nil {
		return nil, fmt.Errorf("engine: no MIDI sink")
	}
	if opts.Config == nil {
		opts.Config = config.Defaults()
	}
	if opts.Log == nil {
		opts.Log = slog.Default()
	}

	e := &Engine{
		requests: make(chan int, requestQueue),
		switches: opts.Switches,
		pedal:    opts.Pedal,
		persist:  opts.Persist,
		battery:  opts.Battery,
		combo:    opts.Combo,
		log:      opts.Log,
		detector: debounce.New(config.SwitchCount),
	}

	cfg := opts.Config.Clone()
	cfg.Sanitize()
	e.cfg.Store(cfg)

	e.banks = bank.New(config.BankCount, cfg.CurrentBank)
	e.banks.OnChange(func(b int) {
		e.log.Info("bank: changed", "bank", b, "name", e.cfg.Load().Banks[b].Name)
		e.notify()
	})
	e.groups = cascade.New(opts.Sink, e.Config, opts.Log)
	e.exec = actions.NewExecutor(e.groups, e.banks)
	e.dispatch = actions.NewDispatcher(e.exec, e.banks, e.Config, opts.Log)
	if e.pedal != nil {
		e.expr = expression.New(e.pedal, opts.Sink)
	}
	return e, nil
}

// Run drives Tick from a ticker until ctx is cancelled
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(ScanInterval)
	defer ticker.Stop()

	e.log.Info("engine: running", "bank", e.banks.Current())
	for {
		select {
		case <-ctx.Done():
			e.log.Info("engine: stopped")
			return ctx.Err()
		case now := <-ticker.C:
			e.Tick(now)
		}
	}
}

// Tick performs one scan: pending bank requests, switch edges, long presses,
// the combo hold and, when due, the expression pedal.
func (e *Engine) Tick(now time.Time) {
	e.drainRequests()

	raw, err := e.switches.Scan()
	if err != nil {
		if !e.scanFailing {
			e.log.Error("engine: switch scan failed", "err", err)
			e.scanFailing = true
		}
		raw = nil
	} else if e.scanFailing {
		e.log.Info("engine: switch scan recovered")
		e.scanFailing = false
	}

	var edges []debounce.Edge
	if raw != nil {
		edges = e.detector.Update(now, raw)
	}
	e.dispatch.Process(now, edges)
	e.checkCombo(now)

	if e.expr != nil && now.Sub(e.lastSlow) >= SlowInterval {
		e.lastSlow = now
		e.processExpression()
	}
}

func (e *Engine) drainRequests() {
	for {
		select {
		case n := <-e.requests:
			e.banks.Select(n)
		default:
			return
		}
	}
}

func (e *Engine) checkCombo(now time.Time) {
	held := e.detector.State(comboSwitches[0]) && e.detector.State(comboSwitches[1])
	if !held {
		e.comboStart = time.Time{}
		e.comboFired = false
		return
	}
	if e.comboStart.IsZero() {
		e.comboStart = now
	}
	if !e.comboFired && now.Sub(e.comboStart) > ComboHold {
		e.comboFired = true
		e.log.Info("engine: combo held")
		if e.combo != nil {
			e.combo()
		}
	}
}

func (e *Engine) processExpression() {
	b := e.banks.Current()
	_, _, err := e.expr.Process(b, e.cfg.Load().Banks[b].Expression)
	if err != nil {
		if !e.exprFailing {
			e.log.Warn("engine: expression read failed", "err", err)
			e.exprFailing = true
		}
		return
	}
	e.exprFailing = false
}

func (e *Engine) notify() {
	if e.persist != nil {
		e.persist()
	}
}

// Config returns the live configuration. It must be treated as read-only.
func (e *Engine) Config() *config.Device {
	return e.cfg.Load()
}

// Snapshot returns a copy of the configuration carrying the active bank,
// ready to be stored
func (e *Engine) Snapshot() *config.Device {
	d := e.cfg.Load().Clone()
	d.CurrentBank = e.banks.Current()
	return d
}

// ApplyConfig replaces the configuration from the next tick on. Problems are
// logged and clamped; the active bank and switch latches are kept.
func (e *Engine) ApplyConfig(d *config.Device) {
	if d == nil {
		e.log.Warn("config: ignoring empty configuration")
		return
	}
	if err := e.exec.Validate(d); err != nil {
		e.log.Warn("config: invalid values clamped", "err", err)
	}
	cfg := d.Clone()
	cfg.Sanitize()
	e.cfg.Store(cfg)
	e.log.Info("config: applied")
	e.notify()
}

// RequestBank asks the loop to make bank n active, without any MIDI. Out of
// range banks are refused; a full queue drops the request.
func (e *Engine) RequestBank(n int) bool {
	if n < 0 || n >= config.BankCount {
		return false
	}
	select {
	case e.requests <- n:
		return true
	default:
		e.log.Warn("bank: request dropped", "bank", n)
		return false
	}
}

// Bank returns the active bank
func (e *Engine) Bank() int {
	return e.banks.Current()
}

// Active reports whether a switch is latched on in a bank
func (e *Engine) Active(b, sw int) bool {
	return e.groups.Active(cascade.Key{Bank: b, Switch: sw})
}

// ActiveMask returns the latched switches of a bank, bit i for switch i
func (e *Engine) ActiveMask(b int) uint8 {
	return e.groups.ActiveMask(b)
}

// Status returns the polled status surface
func (e *Engine) Status() Status {
	s := Status{Bank: e.banks.Current()}
	if e.expr != nil {
		s.ExpressionRaw = e.expr.Raw()
	}
	if e.battery != nil {
		s.BatteryVolts = e.battery()
	}
	return s
}
