package actions

import (
	"fmt"

	"github.com/PixPMusic/stompmidi/internal/bank"
	"github.com/PixPMusic/stompmidi/internal/config"
)

// BankHandler performs bank navigation. It never sends MIDI and never
// touches switch latches.
type BankHandler struct {
	banks *bank.Manager
}

func NewBankHandler(banks *bank.Manager) *BankHandler {
	return &BankHandler{banks: banks}
}

func (h *BankHandler) Execute(t Trigger) error {
	if t.Phase != config.PhasePress {
		return nil
	}
	if !h.banks.Apply(t.Switch.Press) {
		return fmt.Errorf("not a bank action: %s", t.Switch.Press.Type)
	}
	return nil
}

func (h *BankHandler) Validate(a config.SwitchAction) error {
	if !a.Type.IsBank() {
		return fmt.Errorf("not a bank action: %s", a.Type)
	}
	if a.Type == config.ActionBankSelect && int(a.Data1) >= h.banks.Count() {
		return fmt.Errorf("bank %d out of range", a.Data1)
	}
	return nil
}
