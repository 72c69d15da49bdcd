package bus

import "fmt"

// DefaultFrames is the block length used by the render graph.
const DefaultFrames = 128

// Bus is a deinterleaved multi-channel sample block. Channel storage is
// a single contiguous allocation sliced per channel, so a Bus never
// allocates after construction.
type Bus struct {
	frames   int
	capacity int
	active   int
	data     []float64
}

// New returns a Bus with the given channel capacity and frame count.
// All channels start active and zero-filled.
func New(channelCapacity, frames int) (*Bus, error) {
	if channelCapacity <= 0 {
		return nil, fmt.Errorf("bus channel capacity must be > 0: %d", channelCapacity)
	}
	if frames <= 0 {
		return nil, fmt.Errorf("bus frame count must be > 0: %d", frames)
	}
	return &Bus{
		frames:   frames,
		capacity: channelCapacity,
		active:   channelCapacity,
		data:     make([]float64, channelCapacity*frames),
	}, nil
}

// MustNew is New but panics on invalid arguments. Intended for
// construction sites with compile-time-constant arguments.
func MustNew(channelCapacity, frames int) *Bus {
	b, err := New(channelCapacity, frames)
	if err != nil {
		panic(err)
	}
	return b
}

// Frames returns the number of frames per channel.
func (b *Bus) Frames() int { return b.frames }

// ChannelCapacity returns the maximum number of active channels.
func (b *Bus) ChannelCapacity() int { return b.capacity }

// ChannelCount returns the number of currently active channels.
func (b *Bus) ChannelCount() int { return b.active }

// SetChannelCount changes the number of active channels. Channels that
// become active keep whatever samples their storage last held; callers
// that need silence must Zero afterwards. Panics when n is outside
// [1, capacity]; an out-of-range count is a programming error, not a
// runtime condition.
func (b *Bus) SetChannelCount(n int) {
	if n < 1 || n > b.capacity {
		panic(fmt.Sprintf("bus channel count %d outside [1, %d]", n, b.capacity))
	}
	b.active = n
}

// Channel returns the sample slice for active channel i.
func (b *Bus) Channel(i int) []float64 {
	if i < 0 || i >= b.active {
		panic(fmt.Sprintf("bus channel %d outside [0, %d)", i, b.active))
	}
	off := i * b.frames
	return b.data[off : off+b.frames]
}

// Zero clears all active channels.
func (b *Bus) Zero() {
	n := b.active * b.frames
	clear(b.data[:n])
}

// ZeroAll clears every channel, active or not.
func (b *Bus) ZeroAll() {
	clear(b.data)
}

// Silent reports whether every sample of every active channel is
// exactly zero.
func (b *Bus) Silent() bool {
	n := b.active * b.frames
	for _, v := range b.data[:n] {
		if v != 0 {
			return false
		}
	}
	return true
}

// CopyFrom makes b an exact copy of src's active channels. The frame
// counts must match and src's active channel count must fit b's
// capacity.
func (b *Bus) CopyFrom(src *Bus) error {
	if src.frames != b.frames {
		return fmt.Errorf("bus frame count mismatch: %d vs %d", src.frames, b.frames)
	}
	if src.active > b.capacity {
		return fmt.Errorf("source channel count %d exceeds capacity %d", src.active, b.capacity)
	}
	b.active = src.active
	copy(b.data[:b.active*b.frames], src.data[:src.active*src.frames])
	return nil
}
