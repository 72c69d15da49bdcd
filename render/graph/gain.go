package graph

import (
	"fmt"

	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-render/render/bus"
)

// GainDescription replaces a gain node's scale factor.
type GainDescription struct {
	Gain float64
}

func (GainDescription) isDescription() {}

// GainNode scales every input channel by a constant factor.
type GainNode struct {
	baseNode
	gain float64
}

// NewGain returns a gain node with the given linear scale factor.
func NewGain(gain float64, channelCapacity, frames int) *GainNode {
	return &GainNode{
		baseNode: newBaseNode(channelCapacity, frames),
		gain:     gain,
	}
}

// Process implements Node.
func (g *GainNode) Process(_ *Context, input *bus.Bus) {
	if input == nil {
		g.out.SetChannelCount(1)
		g.out.Zero()
		return
	}
	channels := min(input.ChannelCount(), g.out.ChannelCapacity())
	g.out.SetChannelCount(channels)
	for c := 0; c < channels; c++ {
		vecmath.ScaleBlock(g.out.Channel(c), input.Channel(c), g.gain)
	}
}

// ApplyDescription implements Described.
func (g *GainNode) ApplyDescription(d Description) error {
	desc, ok := d.(GainDescription)
	if !ok {
		return fmt.Errorf("%w: gain got %T", ErrBadDescription, d)
	}
	g.gain = desc.Gain
	return nil
}
