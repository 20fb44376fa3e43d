package expression

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PixPMusic/stompmidi/internal/config"
	"github.com/PixPMusic/stompmidi/internal/midi"
)

type fakeADC struct {
	value int
	err   error
	reads int
}

func (f *fakeADC) Sample() (int, error) {
	f.reads++
	return f.value, f.err
}

func TestMapEndpoints(t *testing.T) {
	curves := []config.Curve{config.CurveLinear, config.CurveExponential, config.CurveLogarithmic}
	bounds := []struct {
		name     string
		min, max uint16
	}{
		{"normal", 100, 4000},
		{"inverted", 4000, 100},
	}

	for _, curve := range curves {
		for _, b := range bounds {
			t.Run(string(curve)+"/"+b.name, func(t *testing.T) {
				cfg := config.ExpressionConfig{Min: b.min, Max: b.max, Curve: curve}
				assert.Equal(t, uint8(0), Map(int(b.min), cfg))
				assert.Equal(t, uint8(127), Map(int(b.max), cfg))
			})
		}
	}
}

func TestMapClampsOutsideCalibration(t *testing.T) {
	cfg := config.ExpressionConfig{Min: 100, Max: 4000, Curve: config.CurveLinear}
	assert.Equal(t, uint8(0), Map(0, cfg))
	assert.Equal(t, uint8(127), Map(4095, cfg))

	inv := config.ExpressionConfig{Min: 4000, Max: 100, Curve: config.CurveLinear}
	assert.Equal(t, uint8(127), Map(0, inv))
	assert.Equal(t, uint8(0), Map(4095, inv))
}

func TestCurvesShapeMidpoint(t *testing.T) {
	cfg := config.ExpressionConfig{Min: 0, Max: 1000}

	cfg.Curve = config.CurveLinear
	assert.Equal(t, uint8(63), Map(500, cfg))

	cfg.Curve = config.CurveExponential
	assert.Equal(t, uint8(31), Map(500, cfg))

	cfg.Curve = config.CurveLogarithmic
	assert.Equal(t, uint8(89), Map(500, cfg))
}

func TestNormalizeEqualBounds(t *testing.T) {
	assert.Equal(t, 0.0, Normalize(99, 100, 100))
	assert.Equal(t, 1.0, Normalize(100, 100, 100))
	assert.Equal(t, 1.0, Normalize(3000, 100, 100))
}

func TestOversampleAndRaw(t *testing.T) {
	adc := &fakeADC{value: 2000}
	rec := midi.NewRecorder(0)
	p := New(adc, rec)

	_, sent, err := p.Process(0, config.DefaultExpression())
	require.NoError(t, err)
	assert.True(t, sent)
	assert.Equal(t, Oversample, adc.reads)
	assert.Equal(t, 2000, p.Raw())

	msgs := rec.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, midi.Message{Type: midi.ControlChange, Channel: 0, Data1: 11, Data2: 61}, msgs[0])
}

func TestSeededAtMaxSendsFullScale(t *testing.T) {
	rec := midi.NewRecorder(0)
	p := New(&fakeADC{value: 4000}, rec)

	v, _, err := p.Process(0, config.DefaultExpression())
	require.NoError(t, err)
	assert.Equal(t, uint8(127), v)
}

func TestHysteresis(t *testing.T) {
	adc := &fakeADC{value: 2000}
	rec := midi.NewRecorder(0)
	p := New(adc, rec)
	cfg := config.DefaultExpression()

	_, _, err := p.Process(0, cfg)
	require.NoError(t, err)
	require.Equal(t, 1, rec.Len())

	// Jitter inside the band never reaches the output
	for i := 0; i < 50; i++ {
		adc.value = 2000 + (i%3-1)*20
		_, sent, err := p.Process(0, cfg)
		require.NoError(t, err)
		assert.False(t, sent)
	}
	assert.Equal(t, adc.value, p.Raw())

	// A real move settles at the new band edge
	adc.value = 2500
	for i := 0; i < 200; i++ {
		_, _, err := p.Process(0, cfg)
		require.NoError(t, err)
	}
	msgs := rec.Messages()
	require.Greater(t, len(msgs), 1)
	assert.Equal(t, Map(2475, cfg), msgs[len(msgs)-1].Data2)
}

func TestBankChangeForcesResend(t *testing.T) {
	rec := midi.NewRecorder(0)
	p := New(&fakeADC{value: 1000}, rec)

	a := config.ExpressionConfig{Channel: 0, CC: 11, Min: 0, Max: 4000, Curve: config.CurveLinear}
	b := config.ExpressionConfig{Channel: 3, CC: 7, Min: 0, Max: 4000, Curve: config.CurveLinear}

	_, sent, _ := p.Process(0, a)
	assert.True(t, sent)
	_, sent, _ = p.Process(0, a)
	assert.False(t, sent)
	_, sent, _ = p.Process(1, b)
	assert.True(t, sent)

	msgs := rec.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, msgs[0].Data2, msgs[1].Data2)
	assert.Equal(t, uint8(3), msgs[1].Channel)
	assert.Equal(t, uint8(7), msgs[1].Data1)
}

func TestReadErrorSkipsTick(t *testing.T) {
	adc := &fakeADC{value: 3000}
	rec := midi.NewRecorder(0)
	p := New(adc, rec)
	cfg := config.DefaultExpression()

	_, _, err := p.Process(0, cfg)
	require.NoError(t, err)

	adc.value = 100
	adc.err = errors.New("spi timeout")
	_, sent, err := p.Process(0, cfg)
	assert.Error(t, err)
	assert.False(t, sent)
	assert.Equal(t, 3000, p.Raw())
	assert.Equal(t, 1, rec.Len())
}
