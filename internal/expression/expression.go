// Package expression conditions the analog expression pedal into CC values.
package expression

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/PixPMusic/stompmidi/internal/config"
	"github.com/PixPMusic/stompmidi/internal/midi"
)

const (
	Oversample = 4    // Reads averaged per tick
	Hysteresis = 25   // Half-width of the dead band, in raw counts
	Alpha      = 0.90 // Weight of the previous smoothed value
)

// Sampler reads one raw conversion from the pedal's ADC channel
type Sampler interface {
	Sample() (int, error)
}

// SamplerFunc adapts a function to a Sampler
type SamplerFunc func() (int, error)

func (f SamplerFunc) Sample() (int, error) { return f() }

// Pipeline turns raw samples into Control Change messages. Process is called
// from the scan loop only; Raw may be read from any goroutine.
type Pipeline struct {
	src  Sampler
	sink midi.Sink

	seeded bool
	stable int
	smooth float64

	lastValue int
	lastBank  int

	raw atomic.Int32
}

// New creates a pipeline reading from src and sending to sink
func New(src Sampler, sink midi.Sink) *Pipeline {
	return &Pipeline{
		src:       src,
		sink:      sink,
		lastValue: -1,
		lastBank:  -1,
	}
}

// Raw returns the most recent oversampled reading, before any filtering
func (p *Pipeline) Raw() int {
	return int(p.raw.Load())
}

// Process runs one pipeline step for the given bank. It returns the mapped
// value and whether a message was sent. A read failure skips the step and
// keeps the previous state.
func (p *Pipeline) Process(bank int, cfg config.ExpressionConfig) (uint8, bool, error) {
	raw, err := p.read()
	if err != nil {
		return 0, false, err
	}
	p.raw.Store(int32(raw))

	if !p.seeded {
		p.stable = raw
		p.smooth = float64(raw)
		p.seeded = true
	}

	// The band follows the input once it leaves +/- Hysteresis
	if raw > p.stable+Hysteresis {
		p.stable = raw - Hysteresis
	} else if raw < p.stable-Hysteresis {
		p.stable = raw + Hysteresis
	}

	p.smooth = p.smooth*Alpha + float64(p.stable)*(1-Alpha)
	value := Map(int(math.Round(p.smooth)), cfg)

	if int(value) == p.lastValue && bank == p.lastBank {
		return value, false, nil
	}
	p.lastValue = int(value)
	p.lastBank = bank
	p.sink.Send(midi.Message{
		Type:    midi.ControlChange,
		Channel: cfg.Channel,
		Data1:   cfg.CC,
		Data2:   value,
	})
	return value, true, nil
}

func (p *Pipeline) read() (int, error) {
	sum := 0
	for i := 0; i < Oversample; i++ {
		v, err := p.src.Sample()
		if err != nil {
			return 0, fmt.Errorf("expression: sample %d: %w", i, err)
		}
		sum += v
	}
	return sum / Oversample, nil
}

// Normalize maps a raw value onto [0,1] using the calibration bounds. When
// min exceeds max the pedal's polarity is inverted. Equal bounds act as a
// switch point.
func Normalize(value int, minRaw, maxRaw uint16) float64 {
	v, lo, hi := float64(value), float64(minRaw), float64(maxRaw)

	var n float64
	switch {
	case maxRaw > minRaw:
		n = (v - lo) / (hi - lo)
	case minRaw > maxRaw:
		n = (lo - v) / (lo - hi)
	default:
		if value >= int(minRaw) {
			return 1
		}
		return 0
	}
	return math.Max(0, math.Min(1, n))
}

// Shape applies the response curve to a normalised value
func Shape(n float64, curve config.Curve) float64 {
	switch curve {
	case config.CurveExponential:
		return n * n
	case config.CurveLogarithmic:
		return math.Sqrt(n)
	}
	return n
}

// Map converts a filtered raw value to a 0-127 controller value
func Map(value int, cfg config.ExpressionConfig) uint8 {
	n := Shape(Normalize(value, cfg.Min, cfg.Max), cfg.Curve)
	return uint8(n * 127)
}
