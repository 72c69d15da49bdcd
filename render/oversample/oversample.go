package oversample

import "fmt"

// Default filter design parameters. Beta 9 gives roughly 90 dB of image
// rejection; 16 taps per side keeps the transition band well away from
// audio content.
const (
	defaultTapsPerSide = 16
	defaultKaiserBeta  = 9.0
	defaultCutoffScale = 0.96
)

type config struct {
	tapsPerSide int
	kaiserBeta  float64
	cutoffScale float64
}

// Option adjusts filter design parameters.
type Option func(*config)

// WithTapsPerSide sets the one-sided tap count per polyphase branch.
func WithTapsPerSide(n int) Option {
	return func(c *config) { c.tapsPerSide = n }
}

// WithKaiserBeta sets the Kaiser window beta used for both filters.
func WithKaiserBeta(beta float64) Option {
	return func(c *config) { c.kaiserBeta = beta }
}

// WithCutoffScale scales the lowpass cutoff relative to the ideal
// 0.5/factor. Values below 1 trade bandwidth for stopband margin.
func WithCutoffScale(s float64) Option {
	return func(c *config) { c.cutoffScale = s }
}

// upsampler inserts factor-1 zeros per input sample and filters the
// result, evaluated in polyphase form so the zeros are never stored.
type upsampler struct {
	factor  int
	phases  [][]float64
	histLen int
	ext     []float64 // history followed by the current block
}

func newUpsampler(factor int, cfg config) *upsampler {
	taps := designLowpass(factor, cfg.tapsPerSide, cfg.kaiserBeta, cfg.cutoffScale)
	// Zero-stuffing loses a factor of gain; fold it into the taps.
	for i := range taps {
		taps[i] *= float64(factor)
	}
	phases := splitPhases(taps, factor)
	histLen := 0
	for _, p := range phases {
		if len(p)-1 > histLen {
			histLen = len(p) - 1
		}
	}
	return &upsampler{factor: factor, phases: phases, histLen: histLen}
}

func (u *upsampler) process(in, out []float64) {
	need := u.histLen + len(in)
	if cap(u.ext) < need {
		grown := make([]float64, need)
		copy(grown, u.ext)
		u.ext = grown
	}
	u.ext = u.ext[:need]
	copy(u.ext[u.histLen:], in)

	for n := range in {
		base := u.histLen + n
		for p, phase := range u.phases {
			acc := 0.0
			for k, tap := range phase {
				acc += tap * u.ext[base-k]
			}
			out[n*u.factor+p] = acc
		}
	}
	copy(u.ext[:u.histLen], u.ext[len(u.ext)-u.histLen:])
}

func (u *upsampler) reset() {
	clear(u.ext)
}

// downsampler filters at the high rate and keeps every factor-th
// output sample.
type downsampler struct {
	factor  int
	taps    []float64
	histLen int
	ext     []float64
}

func newDownsampler(factor int, cfg config) *downsampler {
	taps := designLowpass(factor, cfg.tapsPerSide, cfg.kaiserBeta, cfg.cutoffScale)
	return &downsampler{factor: factor, taps: taps, histLen: len(taps) - 1}
}

func (d *downsampler) process(in, out []float64) {
	need := d.histLen + len(in)
	if cap(d.ext) < need {
		grown := make([]float64, need)
		copy(grown, d.ext)
		d.ext = grown
	}
	d.ext = d.ext[:need]
	copy(d.ext[d.histLen:], in)

	for m := range out {
		idx := d.histLen + m*d.factor
		acc := 0.0
		for k, tap := range d.taps {
			acc += tap * d.ext[idx-k]
		}
		out[m] = acc
	}
	copy(d.ext[:d.histLen], d.ext[len(d.ext)-d.histLen:])
}

func (d *downsampler) reset() {
	clear(d.ext)
}

// Oversampler runs one up/down filter pair per channel. Factor 1 is a
// plain copy with no filtering or latency.
type Oversampler struct {
	cfg      config
	factor   int
	channels int
	up       []*upsampler
	down     []*downsampler
	scratch  [][]float64
}

// New returns an unconfigured Oversampler; call Configure before use.
func New(opts ...Option) *Oversampler {
	cfg := config{
		tapsPerSide: defaultTapsPerSide,
		kaiserBeta:  defaultKaiserBeta,
		cutoffScale: defaultCutoffScale,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Oversampler{cfg: cfg}
}

// Configure prepares state for the given channel count, factor and
// block length. Filter state is preserved when channels and factor are
// unchanged, so calling this every block is cheap; any change rebuilds
// the filters from silence.
func (o *Oversampler) Configure(channels, factor, frames int) error {
	if factor != 1 && factor != 2 && factor != 4 {
		return fmt.Errorf("oversample: factor must be 1, 2 or 4: %d", factor)
	}
	if channels <= 0 {
		return fmt.Errorf("oversample: channel count must be > 0: %d", channels)
	}
	if frames <= 0 {
		return fmt.Errorf("oversample: frame count must be > 0: %d", frames)
	}

	if channels != o.channels || factor != o.factor {
		o.channels = channels
		o.factor = factor
		o.up = make([]*upsampler, channels)
		o.down = make([]*downsampler, channels)
		if factor > 1 {
			for i := 0; i < channels; i++ {
				o.up[i] = newUpsampler(factor, o.cfg)
				o.down[i] = newDownsampler(factor, o.cfg)
			}
		}
		o.scratch = make([][]float64, channels)
	}
	need := frames * factor
	for i := range o.scratch {
		if cap(o.scratch[i]) < need {
			o.scratch[i] = make([]float64, need)
		}
		o.scratch[i] = o.scratch[i][:need]
	}
	return nil
}

// Factor returns the configured factor, zero before Configure.
func (o *Oversampler) Factor() int { return o.factor }

// Latency returns the round-trip group delay in input-rate frames.
func (o *Oversampler) Latency() int {
	if o.factor <= 1 {
		return 0
	}
	return 2 * o.cfg.tapsPerSide
}

// Upsample filters channel ch up to the high rate and returns the
// channel's scratch block of len(in)*factor samples. The caller may
// modify the returned slice in place before passing it to Downsample.
func (o *Oversampler) Upsample(ch int, in []float64) []float64 {
	out := o.scratch[ch][:len(in)*o.factor]
	if o.factor == 1 {
		copy(out, in)
		return out
	}
	o.up[ch].process(in, out)
	return out
}

// Downsample filters channel ch back to the input rate, writing
// len(in)/factor samples into out.
func (o *Oversampler) Downsample(ch int, in, out []float64) {
	if o.factor == 1 {
		copy(out, in)
		return
	}
	o.down[ch].process(in, out[:len(in)/o.factor])
}

// Reset clears all filter history without touching the filter design.
func (o *Oversampler) Reset() {
	for _, u := range o.up {
		if u != nil {
			u.reset()
		}
	}
	for _, d := range o.down {
		if d != nil {
			d.reset()
		}
	}
}
