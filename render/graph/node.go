package graph

import (
	"errors"

	"github.com/rs/xid"

	"github.com/cwbudde/algo-render/render/bus"
	"github.com/cwbudde/algo-render/render/scripthost"
)

var (
	ErrUnknownNode    = errors.New("graph: unknown node")
	ErrDuplicateNode  = errors.New("graph: node already added")
	ErrInputNotAdded  = errors.New("graph: input node not in graph")
	ErrBadDescription = errors.New("graph: description type does not match node")
)

// Context carries per-quantum render state into Process calls.
type Context struct {
	// SampleRate is the graph sample rate in Hz.
	SampleRate float64
	// Frames is the quantum length.
	Frames int
	// CurrentFrame is the index of the quantum's first frame since the
	// graph started.
	CurrentFrame uint64
	// Host dispatches script callbacks, nil when the graph has no
	// script nodes.
	Host scripthost.Host
}

// CurrentTime returns the quantum start position in seconds.
func (c *Context) CurrentTime() float64 {
	return float64(c.CurrentFrame) / c.SampleRate
}

// Node produces one output block per quantum.
//
// Process reads the pre-mixed input bus, which is nil for source nodes,
// and must leave Output holding the node's block for this quantum.
// Process runs on the render goroutine only.
type Node interface {
	ID() string
	Process(ctx *Context, input *bus.Bus)
	Output() *bus.Bus
}

// Described is implemented by nodes whose parameters can be replaced
// atomically between quanta.
type Described interface {
	Node
	// ApplyDescription installs new parameters. The driver calls this
	// only at quantum boundaries; offline callers may invoke it
	// directly between RenderQuantum calls.
	ApplyDescription(Description) error
}

// Description is a parameter snapshot for one node kind.
type Description interface {
	isDescription()
}

type baseNode struct {
	id  string
	out *bus.Bus
}

func newBaseNode(channelCapacity, frames int) baseNode {
	return baseNode{
		id:  xid.New().String(),
		out: bus.MustNew(channelCapacity, frames),
	}
}

func (b *baseNode) ID() string       { return b.id }
func (b *baseNode) Output() *bus.Bus { return b.out }
