package cascade

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PixPMusic/stompmidi/internal/config"
	"github.com/PixPMusic/stompmidi/internal/midi"
)

func cc(d1, v uint8) midi.Message {
	return midi.Message{Type: midi.ControlChange, Data1: d1, Data2: v}
}

func newEngine(t *testing.T, cfg *config.Device) (*Engine, *midi.Recorder) {
	t.Helper()
	rec := midi.NewRecorder(0)
	return New(rec, func() *config.Device { return cfg }, nil), rec
}

func TestActivateSendsAndLatches(t *testing.T) {
	cfg := config.Defaults()
	e, rec := newEngine(t, cfg)
	k := Key{Bank: 0, Switch: 2}

	e.Activate(k, config.PhasePress)
	assert.True(t, e.Active(k))
	assert.Equal(t, []midi.Message{cc(82, 127)}, rec.Messages())

	e.Deactivate(k)
	assert.False(t, e.Active(k))
	assert.Equal(t, []midi.Message{cc(82, 127), cc(82, 0)}, rec.Messages())

	// Deactivating again is a no-op
	e.Deactivate(k)
	assert.Equal(t, 2, rec.Len())
}

func TestExclusiveAndMaster(t *testing.T) {
	cfg := config.Defaults()
	a := &cfg.Banks[0].Switches[0]
	a.PressGroups = config.PhaseGroups{Exclusive: config.GroupSet(0b001), Master: config.GroupSet(0b010)}
	b := &cfg.Banks[0].Switches[1]
	b.Membership = config.GroupSet(0b010)
	rival := &cfg.Banks[1].Switches[5]
	rival.PressGroups.Exclusive = config.GroupSet(0b001)

	e, rec := newEngine(t, cfg)
	e.Activate(Key{1, 5}, config.PhasePress)
	rec.Reset()

	e.Activate(Key{0, 0}, config.PhasePress)
	assert.Equal(t, []midi.Message{
		cc(85, 0),   // rival in bank 1 released first
		cc(80, 127), // then A
		cc(81, 127), // then its slave B
	}, rec.Messages())
	assert.False(t, e.Active(Key{1, 5}))
	assert.True(t, e.Active(Key{0, 0}))
	assert.True(t, e.Active(Key{0, 1}))

	// Activating A again without a deactivation sends nothing
	rec.Reset()
	e.Activate(Key{0, 0}, config.PhasePress)
	assert.Empty(t, rec.Messages())
}

func TestDeactivateChainIsTransitive(t *testing.T) {
	cfg := config.Defaults()
	bank := &cfg.Banks[0]
	// 0 leads 1, 1 leads 2, in both press and release phases
	bank.Switches[0].PressGroups.Master = config.Groups(1)
	bank.Switches[0].ReleaseGroups.Master = config.Groups(1)
	bank.Switches[1].Membership = config.Groups(1)
	bank.Switches[1].PressGroups.Master = config.Groups(2)
	bank.Switches[1].ReleaseGroups.Master = config.Groups(2)
	bank.Switches[2].Membership = config.Groups(2)

	e, rec := newEngine(t, cfg)
	e.Activate(Key{0, 0}, config.PhasePress)
	require.Equal(t, uint8(0b111), e.ActiveMask(0))
	assert.Equal(t, []midi.Message{cc(80, 127), cc(81, 127), cc(82, 127)}, rec.Messages())

	rec.Reset()
	e.Deactivate(Key{0, 0})
	assert.Equal(t, uint8(0), e.ActiveMask(0))
	assert.Equal(t, []midi.Message{cc(80, 0), cc(81, 0), cc(82, 0)}, rec.Messages())
}

func TestRivalTakesItsSlavesDown(t *testing.T) {
	cfg := config.Defaults()
	bank := &cfg.Banks[0]
	bank.Switches[0].PressGroups = config.PhaseGroups{Exclusive: config.Groups(1), Master: config.Groups(5)}
	bank.Switches[0].ReleaseGroups.Master = config.Groups(5)
	bank.Switches[3].Membership = config.Groups(5)
	bank.Switches[1].PressGroups.Exclusive = config.Groups(1)

	e, rec := newEngine(t, cfg)
	e.Activate(Key{0, 0}, config.PhasePress)
	rec.Reset()

	e.Activate(Key{0, 1}, config.PhasePress)
	assert.Equal(t, []midi.Message{cc(80, 0), cc(83, 0), cc(81, 127)}, rec.Messages())
	assert.Equal(t, uint8(0b0010), e.ActiveMask(0))
}

func TestCascadeSpansBanks(t *testing.T) {
	cfg := config.Defaults()
	cfg.Banks[0].Switches[0].PressGroups.Master = config.Groups(8)
	cfg.Banks[3].Switches[6].Membership = config.Groups(8)
	cfg.Banks[3].Switches[6].Press = config.SwitchAction{Type: config.ActionNoteOn, Channel: 9, Data1: 36}

	e, rec := newEngine(t, cfg)
	e.Activate(Key{0, 0}, config.PhasePress)

	assert.True(t, e.Active(Key{3, 6}))
	assert.Equal(t, []midi.Message{
		cc(80, 127),
		{Type: midi.NoteOn, Channel: 9, Data1: 36, Data2: 127},
	}, rec.Messages())
}

func TestCycleTerminates(t *testing.T) {
	cfg := config.Defaults()
	for _, s := range []int{0, 1} {
		sw := &cfg.Banks[0].Switches[s]
		sw.Membership = config.Groups(1)
		sw.PressGroups.Master = config.Groups(1)
		sw.ReleaseGroups.Master = config.Groups(1)
	}

	e, rec := newEngine(t, cfg)
	e.Activate(Key{0, 0}, config.PhasePress)
	assert.Equal(t, []midi.Message{cc(80, 127), cc(81, 127)}, rec.Messages())

	rec.Reset()
	e.Deactivate(Key{0, 1})
	assert.Equal(t, []midi.Message{cc(81, 0), cc(80, 0)}, rec.Messages())
}

func TestReleaseSyncSparesToggleSlaves(t *testing.T) {
	cfg := config.Defaults()
	bank := &cfg.Banks[0]
	bank.Switches[0].PressGroups.Master = config.Groups(2)
	bank.Switches[0].ReleaseGroups.Master = config.Groups(2)
	bank.Switches[1].Membership = config.Groups(2)
	bank.Switches[2].Membership = config.Groups(2)
	bank.Switches[2].Toggle = true

	e, rec := newEngine(t, cfg)
	e.Activate(Key{0, 0}, config.PhasePress)
	require.Equal(t, uint8(0b111), e.ActiveMask(0))

	rec.Reset()
	e.Release(Key{0, 0})
	assert.Equal(t, []midi.Message{cc(80, 0), cc(81, 0)}, rec.Messages())
	assert.Equal(t, uint8(0b100), e.ActiveMask(0))

	// The release action goes out even when the switch was already off
	rec.Reset()
	e.Release(Key{0, 0})
	assert.Equal(t, []midi.Message{cc(80, 0)}, rec.Messages())
}

func TestFireUsesLongGroups(t *testing.T) {
	cfg := config.Defaults()
	bank := &cfg.Banks[0]
	bank.Switches[0].LongGroups = config.PhaseGroups{Exclusive: config.Groups(3), Master: config.Groups(4)}
	bank.Switches[1].PressGroups.Exclusive = config.Groups(3)
	bank.Switches[2].Membership = config.Groups(4)

	e, rec := newEngine(t, cfg)
	e.Activate(Key{0, 1}, config.PhasePress)
	rec.Reset()

	e.Fire(Key{0, 0})
	assert.Equal(t, []midi.Message{cc(81, 0), cc(90, 127), cc(82, 127)}, rec.Messages())
	assert.False(t, e.Active(Key{0, 0}), "long press leaves its own latch alone")
	assert.True(t, e.Active(Key{0, 2}))
}

func TestExclusiveUsesActivationPhase(t *testing.T) {
	cfg := config.Defaults()
	bank := &cfg.Banks[0]
	bank.Switches[0].PressGroups.Exclusive = config.Groups(1)
	bank.Switches[0].LongGroups.Exclusive = config.Groups(2)
	bank.Switches[1].PressGroups.Exclusive = config.Groups(1)
	bank.Switches[2].PressGroups.Exclusive = config.Groups(2)

	e, rec := newEngine(t, cfg)
	e.Activate(Key{0, 0}, config.PhasePress)
	e.Fire(Key{0, 0})
	rec.Reset()

	// Switch 0 now holds its long-phase groups, so group 1 no longer reaches it
	e.Activate(Key{0, 1}, config.PhasePress)
	assert.True(t, e.Active(Key{0, 0}))

	e.Activate(Key{0, 2}, config.PhasePress)
	assert.False(t, e.Active(Key{0, 0}))
	assert.Equal(t, []midi.Message{cc(81, 127), cc(80, 0), cc(82, 127)}, rec.Messages())
}

func TestBankSwitchesDoNotParticipate(t *testing.T) {
	cfg := config.Defaults()
	bank := &cfg.Banks[0]
	bank.Switches[0].PressGroups.Master = config.Groups(1)
	bank.Switches[7].Press = config.SwitchAction{Type: config.ActionBankNext}
	bank.Switches[7].Membership = config.Groups(1)

	e, rec := newEngine(t, cfg)
	e.Activate(Key{0, 0}, config.PhasePress)
	e.Activate(Key{0, 7}, config.PhasePress)

	assert.False(t, e.Active(Key{0, 7}))
	assert.Equal(t, []midi.Message{cc(80, 127)}, rec.Messages())
}

func TestNoneAndProgramChange(t *testing.T) {
	cfg := config.Defaults()
	bank := &cfg.Banks[0]
	bank.Switches[0].Press = config.SwitchAction{Type: config.ActionProgramChange, Channel: 2, Data1: 9}
	bank.Switches[0].Release = config.SwitchAction{Type: config.ActionNone}

	e, rec := newEngine(t, cfg)
	e.Activate(Key{0, 0}, config.PhasePress)
	e.Deactivate(Key{0, 0})

	assert.Equal(t, []midi.Message{{Type: midi.ProgramChange, Channel: 2, Data1: 9}}, rec.Messages())
}

func TestResetAndInvalidKeys(t *testing.T) {
	cfg := config.Defaults()
	e, rec := newEngine(t, cfg)

	e.Activate(Key{0, 4}, config.PhasePress)
	e.Reset(Key{0, 4})
	assert.False(t, e.Active(Key{0, 4}))

	e.Activate(Key{9, 0}, config.PhasePress)
	e.Deactivate(Key{0, -1})
	e.Release(Key{4, 0})
	e.Reset(Key{0, 8})
	assert.Equal(t, 1, rec.Len())

	e.Activate(Key{2, 1}, config.PhasePress)
	assert.Equal(t, uint8(0b10), e.ActiveMask(2))
	e.Reset(Key{2, 1})
	assert.Equal(t, uint8(0), e.ActiveMask(2))
	assert.Equal(t, 2, rec.Len(), "reset sends nothing")
}
