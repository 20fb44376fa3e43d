package midi

import (
	"fmt"

	"gitlab.com/gomidi/midi/v2"
)

// Type is the kind of channel message, numbered by its status nibble
type Type uint8

const (
	None          Type = 0x00 // Sends nothing
	NoteOff       Type = 0x80
	NoteOn        Type = 0x90
	ControlChange Type = 0xB0
	ProgramChange Type = 0xC0 // Data2 is ignored
)

func (t Type) String() string {
	switch t {
	case None:
		return "none"
	case NoteOff:
		return "note_off"
	case NoteOn:
		return "note_on"
	case ControlChange:
		return "cc"
	case ProgramChange:
		return "pc"
	}
	return fmt.Sprintf("type(0x%02X)", uint8(t))
}

// Message is a decided channel message, ready for any transport
type Message struct {
	Type    Type
	Channel uint8 // 0-15
	Data1   uint8 // 0-127
	Data2   uint8 // 0-127
}

// Encode converts the message to its gomidi form. None and unknown types
// encode to nil.
func (m Message) Encode() midi.Message {
	ch := m.Channel & 0x0F
	d1 := m.Data1 & 0x7F
	d2 := m.Data2 & 0x7F

	switch m.Type {
	case NoteOn:
		return midi.NoteOn(ch, d1, d2)
	case NoteOff:
		return midi.NoteOffVelocity(ch, d1, d2)
	case ControlChange:
		return midi.ControlChange(ch, d1, d2)
	case ProgramChange:
		return midi.ProgramChange(ch, d1)
	}
	return nil
}

func (m Message) String() string {
	if m.Type == ProgramChange {
		return fmt.Sprintf("%s ch=%d %d", m.Type, m.Channel, m.Data1)
	}
	return fmt.Sprintf("%s ch=%d %d %d", m.Type, m.Channel, m.Data1, m.Data2)
}
