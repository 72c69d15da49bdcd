package graph

import (
	"fmt"
	"sync"

	"github.com/cwbudde/algo-render/render/analysis"
	"github.com/cwbudde/algo-render/render/bus"
)

// AnalyserDescription replaces an analyser's smoothing constant and
// display range.
type AnalyserDescription struct {
	Smoothing   float64
	MinDecibels float64
	MaxDecibels float64
}

func (AnalyserDescription) isDescription() {}

// AnalyserNode passes its input through unchanged while capturing a
// mono downmix into a ring for spectrum queries. The data getters may
// be called from any goroutine; they see the most recently completed
// quantum.
type AnalyserNode struct {
	baseNode
	fftSize int

	// mu guards the ring and display parameters. Critical sections are
	// a few copies at most, so Process never waits on a reader's FFT.
	mu        sync.Mutex
	ring      []float64
	ringPos   int
	smoothing float64
	minDB     float64
	maxDB     float64

	// computeMu serializes the getters. The FFT and its state live
	// entirely on the getter side; mu is released before it runs.
	computeMu sync.Mutex
	analyzer  *analysis.Analyzer
	previous  []float64
	ordered   []float64
	db        []float64
}

// NewAnalyser returns an analyser with the given FFT size, which must
// be a power of two in [32, 32768].
func NewAnalyser(fftSize, channelCapacity, frames int) (*AnalyserNode, error) {
	a := analysis.NewAnalyzer()
	// Probe the size now so a bad one fails construction, not a query.
	probe := make([]float64, fftSize)
	bins := analysis.BinCount(fftSize)
	if err := a.ComputeFrequencyDataDB(probe, 0, make([]float64, bins), make([]float64, bins)); err != nil {
		return nil, err
	}
	return &AnalyserNode{
		baseNode:  newBaseNode(channelCapacity, frames),
		fftSize:   fftSize,
		analyzer:  analysis.NewAnalyzer(),
		smoothing: 0.8,
		minDB:     -100,
		maxDB:     -30,
		ring:      make([]float64, fftSize),
		previous:  make([]float64, bins),
		ordered:   make([]float64, fftSize),
		db:        make([]float64, bins),
	}, nil
}

// FFTSize returns the configured transform length.
func (a *AnalyserNode) FFTSize() int { return a.fftSize }

// BinCount returns the number of frequency bins the getters fill.
func (a *AnalyserNode) BinCount() int { return analysis.BinCount(a.fftSize) }

// Process implements Node.
func (a *AnalyserNode) Process(_ *Context, input *bus.Bus) {
	switch {
	case input == nil:
		a.out.SetChannelCount(1)
		a.out.Zero()
	case input.ChannelCount() <= a.out.ChannelCapacity():
		_ = a.out.CopyFrom(input)
	default:
		a.out.SetChannelCount(a.out.ChannelCapacity())
		a.out.Zero()
		bus.SumInto(a.out, input)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if input == nil {
		for i := 0; i < a.out.Frames(); i++ {
			a.push(0)
		}
		return
	}
	channels := input.ChannelCount()
	inv := 1 / float64(channels)
	for i := 0; i < input.Frames(); i++ {
		sum := 0.0
		for c := 0; c < channels; c++ {
			sum += input.Channel(c)[i]
		}
		a.push(sum * inv)
	}
}

func (a *AnalyserNode) push(v float64) {
	a.ring[a.ringPos] = v
	a.ringPos++
	if a.ringPos == len(a.ring) {
		a.ringPos = 0
	}
}

// TimeDomainData copies the most recent fftSize samples, oldest first,
// into dst and returns the count written.
func (a *AnalyserNode) TimeDomainData(dst []float64) int {
	a.computeMu.Lock()
	defer a.computeMu.Unlock()
	a.snapshotRing()
	return copy(dst, a.ordered)
}

// FrequencyDataDB analyses the current ring contents and copies the
// smoothed dB spectrum into dst, returning the count written.
func (a *AnalyserNode) FrequencyDataDB(dst []float64) (int, error) {
	a.computeMu.Lock()
	defer a.computeMu.Unlock()
	smoothing, _, _ := a.snapshotRing()
	if err := a.analyzer.ComputeFrequencyDataDB(a.ordered, smoothing, a.previous, a.db); err != nil {
		return 0, err
	}
	return copy(dst, a.db), nil
}

// FrequencyDataBytes is FrequencyDataDB scaled onto [0, 255] using the
// node's decibel display range.
func (a *AnalyserNode) FrequencyDataBytes(dst []uint8) (int, error) {
	a.computeMu.Lock()
	defer a.computeMu.Unlock()
	smoothing, minDB, maxDB := a.snapshotRing()
	if err := a.analyzer.ComputeFrequencyDataDB(a.ordered, smoothing, a.previous, a.db); err != nil {
		return 0, err
	}
	n := min(len(dst), len(a.db))
	analysis.ToByteData(dst[:n], a.db[:n], minDB, maxDB)
	return n, nil
}

// snapshotRing unrolls the ring into a.ordered, oldest sample first,
// and captures the display parameters. Only this brief copy holds mu;
// the FFT runs afterwards on the getter-owned buffers. Caller holds
// computeMu.
func (a *AnalyserNode) snapshotRing() (smoothing, minDB, maxDB float64) {
	a.mu.Lock()
	n := copy(a.ordered, a.ring[a.ringPos:])
	copy(a.ordered[n:], a.ring[:a.ringPos])
	smoothing, minDB, maxDB = a.smoothing, a.minDB, a.maxDB
	a.mu.Unlock()
	return smoothing, minDB, maxDB
}

// ApplyDescription implements Described.
func (a *AnalyserNode) ApplyDescription(d Description) error {
	desc, ok := d.(AnalyserDescription)
	if !ok {
		return fmt.Errorf("%w: analyser got %T", ErrBadDescription, d)
	}
	if desc.Smoothing < 0 || desc.Smoothing > 1 {
		return fmt.Errorf("graph: analyser smoothing %v outside [0, 1]", desc.Smoothing)
	}
	if desc.MaxDecibels <= desc.MinDecibels {
		return fmt.Errorf("graph: analyser range [%v, %v] is empty", desc.MinDecibels, desc.MaxDecibels)
	}
	a.mu.Lock()
	a.smoothing = desc.Smoothing
	a.minDB = desc.MinDecibels
	a.maxDB = desc.MaxDecibels
	a.mu.Unlock()
	return nil
}
