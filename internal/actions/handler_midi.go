package actions

import (
	"fmt"

	"github.com/PixPMusic/stompmidi/internal/cascade"
	"github.com/PixPMusic/stompmidi/internal/config"
)

// MidiHandler fires MIDI switch actions through the group cascade
type MidiHandler struct {
	groups *cascade.Engine
}

func NewMidiHandler(groups *cascade.Engine) *MidiHandler {
	return &MidiHandler{groups: groups}
}

func (h *MidiHandler) Execute(t Trigger) error {
	switch t.Phase {
	case config.PhasePress:
		if t.Switch.Toggle {
			if h.groups.Active(t.Key) {
				h.groups.Deactivate(t.Key)
			} else {
				h.groups.Activate(t.Key, config.PhasePress)
			}
			return nil
		}
		// A momentary switch re-sends its action on every press
		h.groups.Reset(t.Key)
		h.groups.Activate(t.Key, config.PhasePress)
	case config.PhaseLong:
		h.groups.Fire(t.Key)
	case config.PhaseRelease:
		h.groups.Release(t.Key)
	default:
		return fmt.Errorf("unknown phase: %d", t.Phase)
	}
	return nil
}

func (h *MidiHandler) Validate(a config.SwitchAction) error {
	if a.Type != config.ActionNone && !a.Type.IsMidi() {
		return fmt.Errorf("not a MIDI action: %s", a.Type)
	}
	if a.Channel > 15 {
		return fmt.Errorf("channel %d out of range", a.Channel)
	}
	if a.Data1 > 127 {
		return fmt.Errorf("data %d out of range", a.Data1)
	}
	return nil
}
