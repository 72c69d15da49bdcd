package bus

import (
	"github.com/cwbudde/algo-vecmath"
)

// SumInto accumulates src's active channels into dst's active channels
// using speaker interpretation:
//
//   - mono into N channels: the mono signal is added to every dst channel
//   - stereo into mono: dst gets 0.5*(left + right)
//   - otherwise: channel-by-channel up to the smaller count, extra
//     source channels fold into dst's last channel
//
// Frame counts must match; SumInto panics on mismatch since buses of
// different block sizes never meet inside one graph.
func SumInto(dst, src *Bus) {
	if dst.frames != src.frames {
		panic("bus frame count mismatch in SumInto")
	}
	switch {
	case src.active == 1:
		mono := src.Channel(0)
		for c := 0; c < dst.active; c++ {
			vecmath.AddBlockInPlace(dst.Channel(c), mono)
		}
	case src.active == 2 && dst.active == 1:
		out := dst.Channel(0)
		l, r := src.Channel(0), src.Channel(1)
		for i := range out {
			out[i] += 0.5 * (l[i] + r[i])
		}
	default:
		n := min(dst.active, src.active)
		for c := 0; c < n; c++ {
			vecmath.AddBlockInPlace(dst.Channel(c), src.Channel(c))
		}
		last := dst.Channel(dst.active - 1)
		for c := n; c < src.active; c++ {
			vecmath.AddBlockInPlace(last, src.Channel(c))
		}
	}
}

// MixInto zeroes dst, resizes it to the computed channel count of the
// sources (the largest active count, clamped to dst's capacity, never
// below one) and sums every source into it. A nil or empty source list
// leaves dst silent with one active channel.
func MixInto(dst *Bus, sources []*Bus) {
	count := 1
	for _, src := range sources {
		if src == nil {
			continue
		}
		if src.ChannelCount() > count {
			count = src.ChannelCount()
		}
	}
	if count > dst.capacity {
		count = dst.capacity
	}
	dst.SetChannelCount(count)
	dst.Zero()
	for _, src := range sources {
		if src == nil {
			continue
		}
		SumInto(dst, src)
	}
}
