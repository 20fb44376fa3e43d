package config

// Sanitize clamps out-of-range values in place. It never fails: a malformed
// field degrades to the nearest legal value or to its zero value.
func (d *Device) Sanitize() {
	if d.CurrentBank < 0 || d.CurrentBank >= BankCount {
		d.CurrentBank = 0
	}
	d.Brightness = clampInt(d.Brightness, 0, MaxBrightness)
	d.LongPressMS = clampInt(d.LongPressMS, DefaultLongPressMS, MaxLongPressMS)

	for b := range d.Banks {
		bank := &d.Banks[b]
		for i := range bank.Switches {
			bank.Switches[i].sanitize()
		}
		bank.Expression.sanitize()
	}
}

func (s *SwitchConfig) sanitize() {
	s.Press.sanitize()
	s.Long.sanitize()
	s.Release.sanitize()

	if s.Edge != EdgeLeading && s.Edge != EdgeTrailing {
		s.Edge = EdgeLeading
	}
}

func (a *SwitchAction) sanitize() {
	if !a.Type.valid() {
		a.Type = ActionNone
	}
	a.Channel &= 0x0F
	// A bank_select target stays as stored; the bank manager ignores
	// targets past the last bank.
	if a.Type == ActionBankSelect {
		return
	}
	a.Data1 &= 0x7F
}

func (e *ExpressionConfig) sanitize() {
	e.Channel &= 0x0F
	e.CC &= 0x7F
	switch e.Curve {
	case CurveLinear, CurveExponential, CurveLogarithmic:
	default:
		e.Curve = CurveLinear
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
