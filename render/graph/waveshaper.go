package graph

import (
	"fmt"

	"github.com/cwbudde/algo-render/render/bus"
	"github.com/cwbudde/algo-render/render/oversample"
)

// WaveShaperDescription replaces a waveshaper's curve and oversampling
// factor. A nil curve passes the signal through unchanged.
type WaveShaperDescription struct {
	Curve      []float64
	Oversample int
}

func (WaveShaperDescription) isDescription() {}

// WaveShaperNode applies a lookup-curve distortion per sample,
// optionally at 2x or 4x the graph rate to reduce the aliasing a
// nonlinear curve generates.
type WaveShaperNode struct {
	baseNode
	curve  []float64
	factor int
	os     *oversample.Oversampler
}

// NewWaveShaper returns a pass-through waveshaper; install a curve via
// ApplyDescription.
func NewWaveShaper(channelCapacity, frames int) *WaveShaperNode {
	return &WaveShaperNode{
		baseNode: newBaseNode(channelCapacity, frames),
		factor:   1,
		os:       oversample.New(),
	}
}

// Process implements Node.
func (w *WaveShaperNode) Process(_ *Context, input *bus.Bus) {
	if input == nil || input.Silent() {
		// Nothing to shape; drop filter history so stale tails cannot
		// bleed into the next audible block.
		w.os.Reset()
		channels := 1
		if input != nil {
			channels = min(input.ChannelCount(), w.out.ChannelCapacity())
		}
		w.out.SetChannelCount(channels)
		w.out.Zero()
		return
	}

	channels := min(input.ChannelCount(), w.out.ChannelCapacity())
	w.out.SetChannelCount(channels)

	if w.factor == 1 {
		for c := 0; c < channels; c++ {
			w.shape(w.out.Channel(c), input.Channel(c))
		}
		return
	}

	// Channel or factor changes rebuild the filters; otherwise state
	// carries over so consecutive blocks stream cleanly.
	if err := w.os.Configure(channels, w.factor, input.Frames()); err != nil {
		for c := 0; c < channels; c++ {
			copy(w.out.Channel(c), input.Channel(c))
		}
		return
	}
	for c := 0; c < channels; c++ {
		high := w.os.Upsample(c, input.Channel(c))
		w.shape(high, high)
		w.os.Downsample(c, high, w.out.Channel(c))
	}
}

// shape maps src through the curve into dst. Inputs are clamped to
// [-1, 1]; between curve points the value is linearly interpolated.
func (w *WaveShaperNode) shape(dst, src []float64) {
	curve := w.curve
	if len(curve) == 0 {
		copy(dst, src)
		return
	}
	if len(curve) == 1 {
		for i := range dst {
			dst[i] = curve[0]
		}
		return
	}
	last := float64(len(curve) - 1)
	for i, x := range src {
		if x < -1 {
			x = -1
		} else if x > 1 {
			x = 1
		}
		pos := (x + 1) / 2 * last
		j := int(pos)
		if j >= len(curve)-1 {
			dst[i] = curve[len(curve)-1]
			continue
		}
		frac := pos - float64(j)
		dst[i] = curve[j] + frac*(curve[j+1]-curve[j])
	}
}

// ApplyDescription implements Described. The curve is copied, so the
// caller may reuse its slice.
func (w *WaveShaperNode) ApplyDescription(d Description) error {
	desc, ok := d.(WaveShaperDescription)
	if !ok {
		return fmt.Errorf("%w: waveshaper got %T", ErrBadDescription, d)
	}
	factor := desc.Oversample
	if factor == 0 {
		factor = 1
	}
	if factor != 1 && factor != 2 && factor != 4 {
		return fmt.Errorf("graph: waveshaper oversample must be 1, 2 or 4: %d", factor)
	}
	w.curve = append(w.curve[:0], desc.Curve...)
	w.factor = factor
	return nil
}
