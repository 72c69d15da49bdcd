package graph

import (
	"fmt"
	"sync"
	"time"

	"github.com/cwbudde/algo-render/internal/renderlog"
	"github.com/cwbudde/algo-render/render/bus"
	"github.com/cwbudde/algo-render/render/guard"
	"github.com/cwbudde/algo-render/render/scripthost"
)

// DefaultChannelCapacity bounds active channels per bus. Matches the
// widest speaker layout the mixer understands.
const DefaultChannelCapacity = 32

type pendingUpdate struct {
	nodeID string
	desc   Description
}

// Driver owns a render graph and processes it one quantum at a time.
//
// AddNode and description updates may come from any goroutine;
// RenderQuantum must only be called from the render goroutine, and
// never concurrently with AddNode.
type Driver struct {
	ctx      Context
	capacity int

	nodes   []Node
	index   map[string]int
	sources [][]*bus.Bus // per node: output buses of its inputs
	mixes   []*bus.Bus   // per node: scratch bus its inputs are mixed into
	lastGen []uint64

	generation uint64

	pendMu  sync.Mutex
	pending []pendingUpdate

	log     renderlog.Logger
	limiter *renderlog.Limiter
}

// NewDriver returns an empty graph rendering frames-sized quanta at
// sampleRate. host may be nil when no script nodes will be added.
func NewDriver(sampleRate float64, frames int, host scripthost.Host) *Driver {
	return &Driver{
		ctx: Context{
			SampleRate: sampleRate,
			Frames:     frames,
			Host:       host,
		},
		capacity: DefaultChannelCapacity,
		index:    map[string]int{},
		log:      renderlog.GetLogger(),
		limiter:  renderlog.NewLimiter(time.Second),
	}
}

// SampleRate returns the graph sample rate.
func (d *Driver) SampleRate() float64 { return d.ctx.SampleRate }

// Frames returns the quantum length.
func (d *Driver) Frames() int { return d.ctx.Frames }

// CurrentFrame returns the frame index the next quantum starts at.
func (d *Driver) CurrentFrame() uint64 { return d.ctx.CurrentFrame }

// AddNode inserts n after its input nodes. Inputs must already be in
// the graph; since every node is added after everything it reads from,
// processing nodes in insertion order satisfies all dependencies and no
// separate topological sort is needed. Cycles cannot be expressed.
func (d *Driver) AddNode(n Node, inputs ...Node) error {
	if _, dup := d.index[n.ID()]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateNode, n.ID())
	}
	srcs := make([]*bus.Bus, 0, len(inputs))
	for _, in := range inputs {
		if _, ok := d.index[in.ID()]; !ok {
			return fmt.Errorf("%w: %s feeds %s", ErrInputNotAdded, in.ID(), n.ID())
		}
		srcs = append(srcs, in.Output())
	}
	d.index[n.ID()] = len(d.nodes)
	d.nodes = append(d.nodes, n)
	d.sources = append(d.sources, srcs)
	var mix *bus.Bus
	if len(srcs) > 0 {
		mix = bus.MustNew(d.capacity, d.ctx.Frames)
	}
	d.mixes = append(d.mixes, mix)
	d.lastGen = append(d.lastGen, 0)
	return nil
}

// Node returns the node with the given ID.
func (d *Driver) Node(id string) (Node, bool) {
	i, ok := d.index[id]
	if !ok {
		return nil, false
	}
	return d.nodes[i], true
}

// UpdateDescription queues a parameter update to be applied at the
// next quantum boundary. The update is validated against the node at
// commit time; a mismatch is logged and dropped rather than surfaced,
// since the render loop has nobody to return an error to.
func (d *Driver) UpdateDescription(nodeID string, desc Description) error {
	if _, ok := d.index[nodeID]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNode, nodeID)
	}
	d.pendMu.Lock()
	d.pending = append(d.pending, pendingUpdate{nodeID: nodeID, desc: desc})
	d.pendMu.Unlock()
	return nil
}

// ApplyDescriptionNow applies a parameter update immediately. Only
// valid between RenderQuantum calls, which is the normal state of an
// offline renderer.
func (d *Driver) ApplyDescriptionNow(nodeID string, desc Description) error {
	i, ok := d.index[nodeID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNode, nodeID)
	}
	described, ok := d.nodes[i].(Described)
	if !ok {
		return fmt.Errorf("%w: %s takes no description", ErrBadDescription, nodeID)
	}
	return described.ApplyDescription(desc)
}

func (d *Driver) commitPending() {
	d.pendMu.Lock()
	updates := d.pending
	d.pending = nil
	d.pendMu.Unlock()

	for _, u := range updates {
		i, ok := d.index[u.nodeID]
		if !ok {
			continue
		}
		described, ok := d.nodes[i].(Described)
		if !ok {
			continue
		}
		if err := described.ApplyDescription(u.desc); err != nil {
			if d.limiter.Allow() {
				d.log.Warn("dropped description update for node ", u.nodeID, ": ", err)
			}
		}
	}
}

// RenderQuantum commits pending updates, processes every node once and
// returns the output bus of the last node added. The returned bus is
// valid until the next RenderQuantum call. An empty graph returns nil.
func (d *Driver) RenderQuantum() *bus.Bus {
	guard.Assert(guard.RoleRender)
	d.commitPending()
	d.generation++

	for i, n := range d.nodes {
		if d.lastGen[i] == d.generation {
			continue
		}
		d.lastGen[i] = d.generation
		var input *bus.Bus
		if len(d.sources[i]) > 0 {
			input = d.mixes[i]
			bus.MixInto(input, d.sources[i])
		}
		n.Process(&d.ctx, input)
	}

	d.ctx.CurrentFrame += uint64(d.ctx.Frames)
	if len(d.nodes) == 0 {
		return nil
	}
	return d.nodes[len(d.nodes)-1].Output()
}
