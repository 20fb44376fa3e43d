package config

const (
	SwitchCount = 8 // Physical footswitches in the 2x4 matrix
	BankCount   = 4 // Selectable banks of switch mappings
)

// ActionType represents what a switch action sends when it fires
type ActionType string

const (
	ActionNone          ActionType = "none"
	ActionNoteOn        ActionType = "note_on"
	ActionNoteOff       ActionType = "note_off"
	ActionControlChange ActionType = "cc"
	ActionProgramChange ActionType = "pc"

	// Bank pseudo-actions never produce MIDI
	ActionBankPrev   ActionType = "bank_prev"
	ActionBankNext   ActionType = "bank_next"
	ActionBankSelect ActionType = "bank_select" // Target bank in Data1
)

// IsBank reports whether the type is one of the bank pseudo-actions
func (t ActionType) IsBank() bool {
	switch t {
	case ActionBankPrev, ActionBankNext, ActionBankSelect:
		return true
	}
	return false
}

// IsMidi reports whether the type produces a MIDI message
func (t ActionType) IsMidi() bool {
	switch t {
	case ActionNoteOn, ActionNoteOff, ActionControlChange, ActionProgramChange:
		return true
	}
	return false
}

func (t ActionType) valid() bool {
	return t == ActionNone || t.IsMidi() || t.IsBank()
}

// SwitchAction is one of the three messages a switch can send
type SwitchAction struct {
	Type    ActionType `json:"type" yaml:"type"`
	Channel uint8      `json:"channel" yaml:"channel"` // 0-15
	Data1   uint8      `json:"data1" yaml:"data1"`     // Note, CC or program number (0-127)
}

// Edge selects when the press action fires
type Edge string

const (
	EdgeLeading  Edge = "leading"  // On press
	EdgeTrailing Edge = "trailing" // On release, unless a long press fired
)

// Curve shapes the expression pedal response
type Curve string

const (
	CurveLinear      Curve = "linear"
	CurveExponential Curve = "exponential" // Slow start, y = x^2
	CurveLogarithmic Curve = "logarithmic" // Fast start, y = sqrt(x)
)

// PhaseGroups holds the group masks that apply when one phase of a switch fires
type PhaseGroups struct {
	Exclusive GroupSet `json:"exclusive" yaml:"exclusive"`
	Master    GroupSet `json:"master" yaml:"master"`
}

// SwitchConfig maps one footswitch within a bank
type SwitchConfig struct {
	Press   SwitchAction `json:"press" yaml:"press"`
	Long    SwitchAction `json:"long" yaml:"long"`
	Release SwitchAction `json:"release" yaml:"release"`

	Edge      Edge `json:"edge" yaml:"edge"`
	LongPress bool `json:"long_press" yaml:"long_press"`
	Toggle    bool `json:"toggle" yaml:"toggle"`

	PressGroups   PhaseGroups `json:"press_groups" yaml:"press_groups"`
	LongGroups    PhaseGroups `json:"long_groups" yaml:"long_groups"`
	ReleaseGroups PhaseGroups `json:"release_groups" yaml:"release_groups"`

	// Membership lists the groups whose masters drive this switch
	Membership GroupSet `json:"membership" yaml:"membership"`
}

// IsBank reports whether the switch is a bank navigation switch
func (s *SwitchConfig) IsBank() bool {
	return s.Press.Type.IsBank()
}

// Phase identifies which of a switch's three actions is firing
type Phase uint8

const (
	PhasePress Phase = iota
	PhaseLong
	PhaseRelease
)

func (p Phase) String() string {
	switch p {
	case PhaseLong:
		return "long"
	case PhaseRelease:
		return "release"
	}
	return "press"
}

// Action returns the action configured for a phase
func (s *SwitchConfig) Action(p Phase) SwitchAction {
	switch p {
	case PhaseLong:
		return s.Long
	case PhaseRelease:
		return s.Release
	}
	return s.Press
}

// Groups returns the group masks configured for a phase
func (s *SwitchConfig) Groups(p Phase) PhaseGroups {
	switch p {
	case PhaseLong:
		return s.LongGroups
	case PhaseRelease:
		return s.ReleaseGroups
	}
	return s.PressGroups
}

// ExpressionConfig maps the expression pedal within a bank.
// Min may exceed Max to invert the pedal's polarity.
type ExpressionConfig struct {
	Channel uint8  `json:"channel" yaml:"channel"`
	CC      uint8  `json:"cc" yaml:"cc"`
	Min     uint16 `json:"min" yaml:"min"` // Calibration bound (raw ADC counts)
	Max     uint16 `json:"max" yaml:"max"`
	Curve   Curve  `json:"curve" yaml:"curve"`
}

// BankConfig is a named set of switch mappings plus one expression mapping
type BankConfig struct {
	ID         string                    `json:"id" yaml:"id"`
	Name       string                    `json:"name" yaml:"name"`
	Switches   [SwitchCount]SwitchConfig `json:"switches" yaml:"switches"`
	Expression ExpressionConfig          `json:"expression" yaml:"expression"`
}
