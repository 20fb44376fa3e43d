// Package sim is a terminal front panel for running the engine without
// pedal hardware.
package sim

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/PixPMusic/stompmidi/internal/config"
	"github.com/PixPMusic/stompmidi/internal/engine"
	"github.com/PixPMusic/stompmidi/internal/hw"
	"github.com/PixPMusic/stompmidi/internal/midi"
)

const (
	refreshRate = time.Second / 30
	logLines    = 12
	pedalStep   = 50
	pedalJump   = 500
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#fff"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#555"))
	heldStyle   = lipgloss.NewStyle().Background(lipgloss.Color("#444")).Foreground(lipgloss.Color("#fff"))
	latchStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#5f5"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888"))
	boxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// Engine is the part of the engine the panel reads and drives
type Engine interface {
	Bank() int
	Config() *config.Device
	ActiveMask(bank int) uint8
	Status() engine.Status
	RequestBank(n int) bool
}

// Model is the bubbletea model of the simulated pedal
type Model struct {
	Engine Engine
	Panel  *hw.Virtual
	Log    *midi.Recorder

	// Transport describes the serial transport state for the status line
	Transport func() string

	quitting bool
}

type refreshMsg time.Time

func NewModel(e Engine, panel *hw.Virtual, log *midi.Recorder) Model {
	return Model{Engine: e, Panel: panel, Log: log}
}

func refresh() tea.Cmd {
	return tea.Tick(refreshRate, func(t time.Time) tea.Msg {
		return refreshMsg(t)
	})
}

func (m Model) Init() tea.Cmd {
	return refresh()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit

		case "1", "2", "3", "4", "5", "6", "7", "8":
			// Terminals report no key-up, so a key holds or lets go of its switch
			m.Panel.Flip(int(msg.String()[0] - '1'))

		case "up", "k":
			m.Panel.SetPedal(m.Panel.Pedal() + pedalStep)
		case "down", "j":
			m.Panel.SetPedal(m.Panel.Pedal() - pedalStep)
		case "pgup":
			m.Panel.SetPedal(m.Panel.Pedal() + pedalJump)
		case "pgdown":
			m.Panel.SetPedal(m.Panel.Pedal() - pedalJump)
		case "home":
			m.Panel.SetPedal(hw.ADCMax)
		case "end":
			m.Panel.SetPedal(0)

		case "]":
			m.Engine.RequestBank((m.Engine.Bank() + 1) % config.BankCount)
		case "[":
			m.Engine.RequestBank((m.Engine.Bank() - 1 + config.BankCount) % config.BankCount)

		case "c":
			m.Log.Reset()
		}

	case refreshMsg:
		return m, refresh()
	}
	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	cfg := m.Engine.Config()
	st := m.Engine.Status()
	bank := cfg.Banks[st.Bank]

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("stompmidi  bank %d: %s", st.Bank+1, bank.Name)))
	b.WriteString("\n\n")
	b.WriteString(m.switchRow(st.Bank, &bank, 0))
	b.WriteString("\n")
	b.WriteString(m.switchRow(st.Bank, &bank, config.SwitchCount/2))
	b.WriteString("\n\n")
	b.WriteString(pedalBar(st.ExpressionRaw, bank.Expression))
	b.WriteString("\n")

	status := fmt.Sprintf("raw %4d", st.ExpressionRaw)
	if st.BatteryVolts > 0 {
		status += fmt.Sprintf("  bat %.2fV", st.BatteryVolts)
	}
	if m.Transport != nil {
		status += "  " + m.Transport()
	}
	b.WriteString(statusStyle.Render(status))
	b.WriteString("\n\n")
	b.WriteString(boxStyle.Render(m.midiLog()))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("1-8 hold/let go  up/down pedal  [ ] bank  c clear  q quit"))
	b.WriteString("\n")
	return b.String()
}

func (m Model) switchRow(bankIdx int, bank *config.BankConfig, first int) string {
	active := m.Engine.ActiveMask(bankIdx)
	cells := make([]string, 0, config.SwitchCount/2)
	for i := first; i < first+config.SwitchCount/2; i++ {
		sw := &bank.Switches[i]
		label := fmt.Sprintf(" %d %-10s ", i+1, describe(sw.Press))
		style := dimStyle
		if active&(1<<i) != 0 {
			style = latchStyle
		}
		if m.Panel.Held(i) {
			style = heldStyle
		}
		cells = append(cells, style.Render(label))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cells...)
}

func describe(a config.SwitchAction) string {
	switch a.Type {
	case config.ActionNone:
		return "-"
	case config.ActionBankNext:
		return "bank+"
	case config.ActionBankPrev:
		return "bank-"
	case config.ActionBankSelect:
		return fmt.Sprintf("bank %d", a.Data1+1)
	case config.ActionProgramChange:
		return fmt.Sprintf("pc %d", a.Data1)
	case config.ActionNoteOn, config.ActionNoteOff:
		return fmt.Sprintf("note %d", a.Data1)
	}
	return fmt.Sprintf("%s %d", a.Type, a.Data1)
}

func pedalBar(raw int, exp config.ExpressionConfig) string {
	const width = 40
	filled := raw * width / hw.ADCMax
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return fmt.Sprintf("pedal %s  cc%d ch%d %s", bar, exp.CC, exp.Channel+1, exp.Curve)
}

func (m Model) midiLog() string {
	msgs := m.Log.Messages()
	if len(msgs) > logLines {
		msgs = msgs[len(msgs)-logLines:]
	}
	if len(msgs) == 0 {
		return dimStyle.Render("no MIDI yet")
	}
	lines := make([]string, len(msgs))
	for i, msg := range msgs {
		lines[i] = msg.String()
	}
	return strings.Join(lines, "\n")
}
