package actions

import (
	"github.com/PixPMusic/stompmidi/internal/cascade"
	"github.com/PixPMusic/stompmidi/internal/config"
)

// Trigger describes one firing of a switch phase
type Trigger struct {
	Key    cascade.Key
	Phase  config.Phase
	Switch *config.SwitchConfig
}

// Action returns the action configured for the firing phase
func (t Trigger) Action() config.SwitchAction {
	return t.Switch.Action(t.Phase)
}

// ActionHandler defines the interface for executing and validating switch actions
type ActionHandler interface {
	// Execute performs the fired phase
	Execute(t Trigger) error

	// Validate checks an action before it is stored
	Validate(a config.SwitchAction) error
}
