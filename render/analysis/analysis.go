package analysis

import (
	"errors"
	"fmt"
	"math"
	"math/bits"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-vecmath"
)

// FFT size bounds. Sizes must be powers of two.
const (
	MinFFTSize = 32
	MaxFFTSize = 32768
)

var (
	errSmoothingRange = errors.New("analysis: smoothing must be in [0, 1]")
	errShortOutput    = errors.New("analysis: output shorter than bin count")
	errShortPrevious  = errors.New("analysis: previous block shorter than bin count")
)

// BinCount returns the number of frequency bins produced for fftSize.
func BinCount(fftSize int) int { return fftSize / 2 }

func validateFFTSize(n int) error {
	if n < MinFFTSize || n > MaxFFTSize || bits.OnesCount(uint(n)) != 1 {
		return fmt.Errorf("analysis: fft size must be a power of two in [%d, %d]: %d", MinFFTSize, MaxFFTSize, n)
	}
	return nil
}

// Analyzer holds the window, FFT plan and scratch memory for one
// analysis stream. It is not safe for concurrent use.
type Analyzer struct {
	fftSize int
	window  []float64
	plan    *algofft.Plan[complex128]

	windowed []float64
	timeC    []complex128
	freq     []complex128
	re       []float64
	im       []float64
	mag      []float64
}

// NewAnalyzer returns an empty Analyzer. Buffers are built lazily on
// the first compute call and rebuilt only when the FFT size changes.
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

func (a *Analyzer) ensure(fftSize int) error {
	if err := validateFFTSize(fftSize); err != nil {
		return err
	}
	if fftSize == a.fftSize {
		return nil
	}
	plan, err := algofft.NewPlan64(fftSize)
	if err != nil {
		return fmt.Errorf("analysis: fft plan: %w", err)
	}
	a.plan = plan
	a.fftSize = fftSize
	a.window = growFloat(a.window, fftSize)[:fftSize]
	BlackmanWindow(a.window)
	a.windowed = growFloat(a.windowed, fftSize)[:fftSize]
	a.timeC = growComplex(a.timeC, fftSize)[:fftSize]
	a.freq = growComplex(a.freq, fftSize)[:fftSize]
	bins := BinCount(fftSize)
	a.re = growFloat(a.re, bins)[:bins]
	a.im = growFloat(a.im, bins)[:bins]
	a.mag = growFloat(a.mag, bins)[:bins]
	return nil
}

func growFloat(s []float64, n int) []float64 {
	if cap(s) < n {
		return make([]float64, n)
	}
	return s[:n]
}

func growComplex(s []complex128, n int) []complex128 {
	if cap(s) < n {
		return make([]complex128, n)
	}
	return s[:n]
}

// ComputeFrequencyDataDB runs the full pipeline on timeDomain, whose
// length is the FFT size. previous carries the smoothed magnitudes from
// the prior block and is updated in place; outputDB receives the dB
// values. Both must hold at least fftSize/2 values.
//
// Smoothing tau blends previous and current magnitude per bin:
// tau*prev + (1-tau)*mag. tau = 0 ignores history entirely, tau = 1
// freezes the spectrum.
func (a *Analyzer) ComputeFrequencyDataDB(timeDomain []float64, smoothing float64, previous, outputDB []float64) error {
	if smoothing < 0 || smoothing > 1 || math.IsNaN(smoothing) {
		return errSmoothingRange
	}
	if err := a.ensure(len(timeDomain)); err != nil {
		return err
	}
	bins := BinCount(a.fftSize)
	if len(previous) < bins {
		return errShortPrevious
	}
	if len(outputDB) < bins {
		return errShortOutput
	}

	vecmath.MulBlock(a.windowed, timeDomain, a.window)
	for i, v := range a.windowed {
		a.timeC[i] = complex(v, 0)
	}
	if err := a.plan.Forward(a.freq, a.timeC); err != nil {
		return fmt.Errorf("analysis: fft forward: %w", err)
	}

	for i := 0; i < bins; i++ {
		a.re[i] = real(a.freq[i])
		a.im[i] = imag(a.freq[i])
	}
	vecmath.Magnitude(a.mag, a.re, a.im)

	norm := 1 / float64(a.fftSize)
	for i := 0; i < bins; i++ {
		m := a.mag[i] * norm
		if math.IsNaN(m) {
			m = 0
		}
		v := smoothing*previous[i] + (1-smoothing)*m
		previous[i] = v
		if v > 0 {
			outputDB[i] = 20 * math.Log10(v)
		} else {
			outputDB[i] = math.Inf(-1)
		}
	}
	return nil
}

// ToByteData maps dB values onto [0, 255] relative to the
// [minDB, maxDB] display range, clamping at both ends. Values outside
// the range saturate rather than wrap.
func ToByteData(dst []uint8, db []float64, minDB, maxDB float64) {
	if maxDB <= minDB {
		for i := range dst {
			dst[i] = 0
		}
		return
	}
	scale := 255 / (maxDB - minDB)
	n := min(len(dst), len(db))
	for i := 0; i < n; i++ {
		v := (db[i] - minDB) * scale
		switch {
		case v < 0 || math.IsNaN(v):
			dst[i] = 0
		case v > 255:
			dst[i] = 255
		default:
			dst[i] = uint8(v)
		}
	}
}
