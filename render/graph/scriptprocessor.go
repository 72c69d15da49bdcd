package graph

import (
	"math/bits"

	"github.com/cwbudde/algo-render/render/bus"
)

// Script processor buffer size bounds, in frames. Sizes must also be
// powers of two and whole multiples of the quantum.
const (
	MinScriptBufferSize = 256
	MaxScriptBufferSize = 16384
)

// DefaultInitialSilentBlocks is how many script-sized blocks of silence
// precede the first processed block, modeling the one-buffer latency of
// accumulate-then-process.
const DefaultInitialSilentBlocks = 1

// ScriptOption adjusts script processor construction.
type ScriptOption func(*ScriptProcessorNode)

// WithInitialSilentBlocks overrides the initial silent block count.
func WithInitialSilentBlocks(n int) ScriptOption {
	return func(s *ScriptProcessorNode) {
		if n >= 0 {
			s.silentRemaining = n
		}
	}
}

// ScriptProcessorNode accumulates quanta into script-sized input
// blocks, hands each full block to the graph's script host and plays
// the processed blocks back out quantum by quantum.
//
// A buffer size that is out of range, not a power of two or not a
// multiple of the quantum puts the node into a permanent degraded mode
// where it renders silence forever; a misconfigured script must not
// take down the graph.
type ScriptProcessorNode struct {
	baseNode
	bufferSize int
	inCh       int
	outCh      int
	degraded   bool

	silentRemaining int

	mix     *bus.Bus
	inBlock [][]float64
	inOff   int

	current [][]float64 // nil renders silence
	outOff  int
	pending [][][]float64
	free    [][][]float64
}

// NewScriptProcessor returns a script node exchanging bufferSize-frame
// blocks with inputChannels in and outputChannels out, rendering
// frames-sized quanta.
func NewScriptProcessor(bufferSize, inputChannels, outputChannels, frames int, opts ...ScriptOption) *ScriptProcessorNode {
	s := &ScriptProcessorNode{
		baseNode:        newBaseNode(max(outputChannels, 1), frames),
		bufferSize:      bufferSize,
		inCh:            inputChannels,
		outCh:           outputChannels,
		silentRemaining: DefaultInitialSilentBlocks,
	}
	for _, opt := range opts {
		opt(s)
	}

	switch {
	case bufferSize < MinScriptBufferSize || bufferSize > MaxScriptBufferSize:
		s.degraded = true
	case bits.OnesCount(uint(bufferSize)) != 1:
		s.degraded = true
	case frames <= 0 || bufferSize%frames != 0:
		s.degraded = true
	case inputChannels < 1 || inputChannels > DefaultChannelCapacity:
		s.degraded = true
	case outputChannels < 1 || outputChannels > DefaultChannelCapacity:
		s.degraded = true
	}
	if s.degraded {
		return s
	}

	s.mix = bus.MustNew(inputChannels, frames)
	s.inBlock = newBlock(inputChannels, bufferSize)
	return s
}

// Degraded reports whether the node is permanently silent due to
// invalid configuration.
func (s *ScriptProcessorNode) Degraded() bool { return s.degraded }

// BufferSize returns the script block length in frames.
func (s *ScriptProcessorNode) BufferSize() int { return s.bufferSize }

// Process implements Node.
func (s *ScriptProcessorNode) Process(ctx *Context, input *bus.Bus) {
	s.out.SetChannelCount(s.outputChannelsClamped())
	if s.degraded {
		s.out.Zero()
		return
	}
	frames := ctx.Frames

	// Fold this quantum into the input accumulator at the node's fixed
	// channel count.
	s.mix.SetChannelCount(s.inCh)
	s.mix.Zero()
	if input != nil {
		bus.SumInto(s.mix, input)
	}
	for c := 0; c < s.inCh; c++ {
		copy(s.inBlock[c][s.inOff:s.inOff+frames], s.mix.Channel(c))
	}
	s.inOff += frames
	if s.inOff == s.bufferSize {
		s.dispatch(ctx)
		s.inOff = 0
	}

	// Pick the block the next bufferSize frames come from.
	if s.outOff == 0 {
		s.recycle(s.current)
		s.current = nil
		if s.silentRemaining > 0 {
			s.silentRemaining--
		} else if len(s.pending) > 0 {
			s.current = s.pending[0]
			copy(s.pending, s.pending[1:])
			s.pending = s.pending[:len(s.pending)-1]
		}
	}

	if s.current == nil {
		s.out.Zero()
	} else {
		for c := 0; c < s.outCh; c++ {
			copy(s.out.Channel(c), s.current[c][s.outOff:s.outOff+frames])
		}
	}
	s.outOff += frames
	if s.outOff == s.bufferSize {
		s.outOff = 0
	}
}

// dispatch hands the full input block to the host and queues the
// result. Any host failure (no host, unknown node, timeout, panic)
// queues silence instead; output cadence never depends on the script.
func (s *ScriptProcessorNode) dispatch(ctx *Context) {
	out := s.take()
	ok := false
	if ctx.Host != nil {
		// The block starts playing one buffer after the one being
		// accumulated now.
		playbackTime := ctx.CurrentTime() + float64(s.bufferSize)/ctx.SampleRate
		ok = ctx.Host.ProcessBlock(s.id, playbackTime, s.inBlock, out)
	}
	if !ok {
		zeroBlock(out)
	}
	s.pending = append(s.pending, out)
}

func (s *ScriptProcessorNode) take() [][]float64 {
	if n := len(s.free); n > 0 {
		b := s.free[n-1]
		s.free = s.free[:n-1]
		zeroBlock(b)
		return b
	}
	return newBlock(s.outCh, s.bufferSize)
}

func (s *ScriptProcessorNode) recycle(b [][]float64) {
	if b != nil {
		s.free = append(s.free, b)
	}
}

func (s *ScriptProcessorNode) outputChannelsClamped() int {
	if s.outCh < 1 {
		return 1
	}
	if s.outCh > s.out.ChannelCapacity() {
		return s.out.ChannelCapacity()
	}
	return s.outCh
}

func newBlock(channels, frames int) [][]float64 {
	b := make([][]float64, channels)
	for i := range b {
		b[i] = make([]float64, frames)
	}
	return b
}

func zeroBlock(b [][]float64) {
	for _, ch := range b {
		clear(ch)
	}
}
