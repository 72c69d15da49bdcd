package graph

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-render/render/bus"
)

// Waveform selects the oscillator shape.
type Waveform int

const (
	WaveSine Waveform = iota
	WaveSquare
	WaveSawtooth
	WaveTriangle
)

func (w Waveform) valid() bool {
	return w >= WaveSine && w <= WaveTriangle
}

// OscillatorDescription replaces an oscillator's parameters.
type OscillatorDescription struct {
	Frequency float64
	Waveform  Waveform
}

func (OscillatorDescription) isDescription() {}

// OscillatorNode is a mono source producing a fixed waveform. Phase is
// tracked continuously, so frequency changes do not click.
type OscillatorNode struct {
	baseNode
	frequency float64
	waveform  Waveform
	phase     float64 // in [0, 1)
}

// NewOscillator returns an oscillator at the given frequency in Hz.
func NewOscillator(frequency float64, waveform Waveform, frames int) *OscillatorNode {
	return &OscillatorNode{
		baseNode:  newBaseNode(1, frames),
		frequency: frequency,
		waveform:  waveform,
	}
}

// Process implements Node. Input is ignored.
func (o *OscillatorNode) Process(ctx *Context, _ *bus.Bus) {
	o.out.SetChannelCount(1)
	samples := o.out.Channel(0)
	step := o.frequency / ctx.SampleRate
	for i := range samples {
		samples[i] = o.sample()
		o.phase += step
		if o.phase >= 1 {
			o.phase -= math.Floor(o.phase)
		}
	}
}

func (o *OscillatorNode) sample() float64 {
	p := o.phase
	switch o.waveform {
	case WaveSquare:
		if p < 0.5 {
			return 1
		}
		return -1
	case WaveSawtooth:
		return 2*p - 1
	case WaveTriangle:
		if p < 0.5 {
			return 4*p - 1
		}
		return 3 - 4*p
	default:
		return math.Sin(2 * math.Pi * p)
	}
}

// ApplyDescription implements Described.
func (o *OscillatorNode) ApplyDescription(d Description) error {
	desc, ok := d.(OscillatorDescription)
	if !ok {
		return fmt.Errorf("%w: oscillator got %T", ErrBadDescription, d)
	}
	if desc.Frequency < 0 || !desc.Waveform.valid() {
		return fmt.Errorf("graph: invalid oscillator description: %+v", desc)
	}
	o.frequency = desc.Frequency
	o.waveform = desc.Waveform
	return nil
}
