// Package cascade resolves exclusive and master/slave groups when a switch
// turns on or off. Latch state covers every bank, not just the active one.
package cascade

import (
	"log/slog"
	"sync/atomic"

	"github.com/PixPMusic/stompmidi/internal/config"
	"github.com/PixPMusic/stompmidi/internal/midi"
)

// Key addresses one switch in one bank
type Key struct {
	Bank   int
	Switch int
}

func (k Key) valid() bool {
	return k.Bank >= 0 && k.Bank < config.BankCount && k.Switch >= 0 && k.Switch < config.SwitchCount
}

func (k Key) index() int { return k.Bank*config.SwitchCount + k.Switch }

func keyAt(i int) Key { return Key{Bank: i / config.SwitchCount, Switch: i % config.SwitchCount} }

type record struct {
	active atomic.Bool
	phase  config.Phase // Phase the switch was activated with
}

type opKind uint8

const (
	opActivate   opKind = iota // Guarded activation with the op's phase
	opFire                     // Long press: groups and send, latch untouched
	opDeactivate               // Guarded deactivation with release cascade
	opExclude                  // Deactivate if the target's exclusive mask meets mask
	opSend                     // Send the key's action for phase
	opReleaseSlave             // Release sync for one momentary slave
)

type op struct {
	kind  opKind
	key   Key
	phase config.Phase
	mask  config.GroupSet
}

// Engine owns the latch state of every switch. Only the scan loop may call
// the mutating methods; Active and ActiveMask are safe from any goroutine.
type Engine struct {
	sink   midi.Sink
	config func() *config.Device
	log    *slog.Logger

	arena [config.BankCount * config.SwitchCount]record
	stack []op
	next  []op
}

// New creates an engine sending to sink. cfg is read once per operation.
func New(sink midi.Sink, cfg func() *config.Device, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{sink: sink, config: cfg, log: log}
}

// Active reports whether a switch is latched on
func (e *Engine) Active(k Key) bool {
	return k.valid() && e.arena[k.index()].active.Load()
}

// ActiveMask returns the latched switches of a bank, bit i for switch i
func (e *Engine) ActiveMask(bank int) uint8 {
	var mask uint8
	for s := 0; s < config.SwitchCount; s++ {
		if e.Active(Key{Bank: bank, Switch: s}) {
			mask |= 1 << s
		}
	}
	return mask
}

// Activate turns a switch on with the given phase's action and groups.
// An already active switch is left alone.
func (e *Engine) Activate(k Key, phase config.Phase) {
	e.run(op{kind: opActivate, key: k, phase: phase})
}

// Deactivate turns a switch off, sends its release action and turns off
// every switch it leads. An inactive switch is left alone.
func (e *Engine) Deactivate(k Key) {
	e.run(op{kind: opDeactivate, key: k})
}

// Fire applies a long press: exclusive pass, long action, inclusive pass.
// The switch's own latch does not change.
func (e *Engine) Fire(k Key) {
	e.run(op{kind: opFire, key: k, phase: config.PhaseLong})
}

// Release handles the physical release of a momentary switch. The release
// action is always sent, then active momentary slaves are released too.
// Toggle slaves keep their latch.
func (e *Engine) Release(k Key) {
	if !k.valid() {
		return
	}
	cfg := e.config()
	sw := cfg.Switch(k.Bank, k.Switch)
	if sw == nil || sw.IsBank() {
		return
	}

	e.arena[k.index()].active.Store(false)
	e.arena[k.index()].phase = config.PhasePress
	e.send(k, sw, config.PhaseRelease)

	e.stack = e.stack[:0]
	e.pushSlaves(cfg, k, sw.ReleaseGroups.Master, opReleaseSlave)
	e.drain(cfg)
}

// Reset clears a latch without sending anything
func (e *Engine) Reset(k Key) {
	if !k.valid() {
		return
	}
	e.arena[k.index()].active.Store(false)
	e.arena[k.index()].phase = config.PhasePress
}

func (e *Engine) run(first op) {
	if !first.key.valid() {
		return
	}
	cfg := e.config()
	e.stack = append(e.stack[:0], first)
	e.drain(cfg)
}

// drain processes the worklist. Each op queues its children in the order
// they must run; they are pushed reversed so the first child runs next,
// which reproduces depth-first recursion without using the call stack.
func (e *Engine) drain(cfg *config.Device) {
	for len(e.stack) > 0 {
		o := e.stack[len(e.stack)-1]
		e.stack = e.stack[:len(e.stack)-1]

		e.next = e.next[:0]
		e.step(cfg, o)
		for i := len(e.next) - 1; i >= 0; i-- {
			e.stack = append(e.stack, e.next[i])
		}
	}
}

func (e *Engine) step(cfg *config.Device, o op) {
	sw := cfg.Switch(o.key.Bank, o.key.Switch)
	if sw == nil || sw.IsBank() {
		return
	}
	rec := &e.arena[o.key.index()]

	switch o.kind {
	case opActivate:
		if rec.active.Load() {
			return
		}
		rec.active.Store(true)
		rec.phase = o.phase
		e.log.Debug("cascade: activate", "bank", o.key.Bank, "switch", o.key.Switch, "phase", o.phase)
		e.queueGroups(cfg, o.key, sw, o.phase)

	case opFire:
		if rec.active.Load() {
			rec.phase = o.phase
		}
		e.queueGroups(cfg, o.key, sw, o.phase)

	case opDeactivate:
		if !rec.active.Load() {
			return
		}
		rec.active.Store(false)
		rec.phase = config.PhasePress
		e.log.Debug("cascade: deactivate", "bank", o.key.Bank, "switch", o.key.Switch)
		e.next = append(e.next, op{kind: opSend, key: o.key, phase: config.PhaseRelease})
		e.queueSlaves(cfg, o.key, sw.ReleaseGroups.Master, opDeactivate)

	case opExclude:
		if !rec.active.Load() {
			return
		}
		if sw.Groups(rec.phase).Exclusive.Intersects(o.mask) {
			e.step(cfg, op{kind: opDeactivate, key: o.key})
		}

	case opSend:
		e.send(o.key, sw, o.phase)

	case opReleaseSlave:
		if sw.Toggle || !rec.active.Load() {
			return
		}
		rec.active.Store(false)
		rec.phase = config.PhasePress
		e.send(o.key, sw, config.PhaseRelease)
		e.queueSlaves(cfg, o.key, sw.ReleaseGroups.Master, opReleaseSlave)
	}
}

// queueGroups queues the exclusive pass, the switch's own action and the
// inclusive pass, in that order.
func (e *Engine) queueGroups(cfg *config.Device, k Key, sw *config.SwitchConfig, phase config.Phase) {
	groups := sw.Groups(phase)
	if !groups.Exclusive.Empty() {
		for i := range e.arena {
			other := keyAt(i)
			if other != k {
				e.next = append(e.next, op{kind: opExclude, key: other, mask: groups.Exclusive})
			}
		}
	}
	e.next = append(e.next, op{kind: opSend, key: k, phase: phase})
	e.queueSlaves(cfg, k, groups.Master, opActivate)
}

// queueSlaves queues kind for every other switch whose membership meets master
func (e *Engine) queueSlaves(cfg *config.Device, k Key, master config.GroupSet, kind opKind) {
	if master.Empty() {
		return
	}
	for i := range e.arena {
		other := keyAt(i)
		if other == k {
			continue
		}
		sw := cfg.Switch(other.Bank, other.Switch)
		if sw.Membership.Intersects(master) {
			e.next = append(e.next, op{kind: kind, key: other, phase: config.PhasePress})
		}
	}
}

// pushSlaves seeds the worklist directly, used when the first step ran outside drain
func (e *Engine) pushSlaves(cfg *config.Device, k Key, master config.GroupSet, kind opKind) {
	e.next = e.next[:0]
	e.queueSlaves(cfg, k, master, kind)
	for i := len(e.next) - 1; i >= 0; i-- {
		e.stack = append(e.stack, e.next[i])
	}
}

func (e *Engine) send(k Key, sw *config.SwitchConfig, phase config.Phase) {
	msg := Message(sw.Action(phase), velocityFor(phase))
	if msg.Type == midi.None {
		return
	}
	e.log.Debug("cascade: send", "bank", k.Bank, "switch", k.Switch, "phase", phase, "msg", msg.String())
	e.sink.Send(msg)
}
