package actions

import (
	"errors"
	"fmt"

	"github.com/PixPMusic/stompmidi/internal/bank"
	"github.com/PixPMusic/stompmidi/internal/cascade"
	"github.com/PixPMusic/stompmidi/internal/config"
)

// Executor routes fired switch phases to the handler for the switch's class
type Executor struct {
	handlers map[config.ActionType]ActionHandler
}

// NewExecutor creates a new action executor
func NewExecutor(groups *cascade.Engine, banks *bank.Manager) *Executor {
	midiHandler := NewMidiHandler(groups)
	bankHandler := NewBankHandler(banks)
	return &Executor{
		handlers: map[config.ActionType]ActionHandler{
			config.ActionNone:          midiHandler,
			config.ActionNoteOn:        midiHandler,
			config.ActionNoteOff:       midiHandler,
			config.ActionControlChange: midiHandler,
			config.ActionProgramChange: midiHandler,
			config.ActionBankPrev:      bankHandler,
			config.ActionBankNext:      bankHandler,
			config.ActionBankSelect:    bankHandler,
		},
	}
}

// Execute runs a fired phase. The switch's press action decides which
// handler owns the switch.
func (e *Executor) Execute(t Trigger) error {
	if t.Switch == nil {
		return fmt.Errorf("trigger has no switch")
	}

	handler, ok := e.handlers[t.Switch.Press.Type]
	if !ok {
		return fmt.Errorf("unknown action type: %s", t.Switch.Press.Type)
	}

	return handler.Execute(t)
}

// Validate checks every action of a device configuration and reports each
// problem found. Sanitize fixes the same problems; this is for telling the
// operator about them.
func (e *Executor) Validate(d *config.Device) error {
	var errs []error
	for b := range d.Banks {
		for i := range d.Banks[b].Switches {
			sw := &d.Banks[b].Switches[i]
			for _, p := range []config.Phase{config.PhasePress, config.PhaseLong, config.PhaseRelease} {
				a := sw.Action(p)
				handler, ok := e.handlers[a.Type]
				if !ok {
					errs = append(errs, fmt.Errorf("bank %d switch %d %s: unknown action type: %s", b, i, p, a.Type))
					continue
				}
				if err := handler.Validate(a); err != nil {
					errs = append(errs, fmt.Errorf("bank %d switch %d %s: %w", b, i, p, err))
				}
			}
		}
	}
	return errors.Join(errs...)
}
