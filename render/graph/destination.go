package graph

import (
	"github.com/cwbudde/algo-render/render/bus"
)

// DestinationNode terminates the graph. Its output is the mixed input,
// which the driver hands to whatever consumes the rendered audio.
type DestinationNode struct {
	baseNode
}

// NewDestination returns a destination accepting up to channelCapacity
// channels.
func NewDestination(channelCapacity, frames int) *DestinationNode {
	return &DestinationNode{baseNode: newBaseNode(channelCapacity, frames)}
}

// Process implements Node.
func (n *DestinationNode) Process(_ *Context, input *bus.Bus) {
	if input == nil {
		n.out.SetChannelCount(1)
		n.out.Zero()
		return
	}
	if input.ChannelCount() <= n.out.ChannelCapacity() {
		_ = n.out.CopyFrom(input)
		return
	}
	// Wider input than the device layout: downmix into capacity.
	n.out.SetChannelCount(n.out.ChannelCapacity())
	n.out.Zero()
	bus.SumInto(n.out, input)
}
