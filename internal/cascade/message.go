package cascade

import (
	"github.com/PixPMusic/stompmidi/internal/config"
	"github.com/PixPMusic/stompmidi/internal/midi"
)

const (
	VelocityOn  = 127 // Press and long press
	VelocityOff = 0   // Release
)

// Message builds the MIDI message for an action. Bank pseudo-actions and
// none map to a None message.
func Message(a config.SwitchAction, velocity uint8) midi.Message {
	msg := midi.Message{
		Channel: a.Channel,
		Data1:   a.Data1,
		Data2:   velocity,
	}
	switch a.Type {
	case config.ActionNoteOn:
		msg.Type = midi.NoteOn
	case config.ActionNoteOff:
		msg.Type = midi.NoteOff
	case config.ActionControlChange:
		msg.Type = midi.ControlChange
	case config.ActionProgramChange:
		msg.Type = midi.ProgramChange
		msg.Data2 = 0
	default:
		return midi.Message{Type: midi.None}
	}
	return msg
}

func velocityFor(p config.Phase) uint8 {
	if p == config.PhaseRelease {
		return VelocityOff
	}
	return VelocityOn
}
