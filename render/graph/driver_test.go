package graph

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-render/render/bus"
)

const (
	testRate   = 48000.0
	testFrames = 128
)

func TestDriverEmptyGraph(t *testing.T) {
	d := NewDriver(testRate, testFrames, nil)
	if out := d.RenderQuantum(); out != nil {
		t.Fatal("empty graph produced output")
	}
	if d.CurrentFrame() != testFrames {
		t.Fatalf("CurrentFrame() = %d, want %d", d.CurrentFrame(), testFrames)
	}
}

func TestDriverChain(t *testing.T) {
	d := NewDriver(testRate, testFrames, nil)
	osc := NewOscillator(440, WaveSine, testFrames)
	gain := NewGain(0.5, 2, testFrames)
	dest := NewDestination(2, testFrames)

	if err := d.AddNode(osc); err != nil {
		t.Fatal(err)
	}
	if err := d.AddNode(gain, osc); err != nil {
		t.Fatal(err)
	}
	if err := d.AddNode(dest, gain); err != nil {
		t.Fatal(err)
	}

	out := d.RenderQuantum()
	if out == nil {
		t.Fatal("no output")
	}
	if out.ChannelCount() != 1 {
		t.Fatalf("channel count = %d, want 1", out.ChannelCount())
	}
	for i, v := range out.Channel(0) {
		want := 0.5 * math.Sin(2*math.Pi*440*float64(i)/testRate)
		if math.Abs(v-want) > 1e-9 {
			t.Fatalf("sample %d = %v, want %v", i, v, want)
		}
	}
}

func TestDriverFanIn(t *testing.T) {
	d := NewDriver(testRate, testFrames, nil)
	a := NewOscillator(100, WaveSquare, testFrames)
	b := NewOscillator(100, WaveSquare, testFrames)
	dest := NewDestination(2, testFrames)

	for _, n := range []Node{a, b} {
		if err := d.AddNode(n); err != nil {
			t.Fatal(err)
		}
	}
	if err := d.AddNode(dest, a, b); err != nil {
		t.Fatal(err)
	}

	out := d.RenderQuantum()
	// Two identical square waves sum to +-2.
	for i, v := range out.Channel(0) {
		if math.Abs(v) != 2 {
			t.Fatalf("sample %d = %v, want +-2", i, v)
		}
	}
}

func TestAddNodeValidation(t *testing.T) {
	d := NewDriver(testRate, testFrames, nil)
	osc := NewOscillator(440, WaveSine, testFrames)
	if err := d.AddNode(osc); err != nil {
		t.Fatal(err)
	}
	if err := d.AddNode(osc); !errors.Is(err, ErrDuplicateNode) {
		t.Fatalf("duplicate add: %v", err)
	}
	stranger := NewGain(1, 2, testFrames)
	dest := NewDestination(2, testFrames)
	if err := d.AddNode(dest, stranger); !errors.Is(err, ErrInputNotAdded) {
		t.Fatalf("unknown input: %v", err)
	}
}

func TestUpdateDescriptionAtQuantumBoundary(t *testing.T) {
	d := NewDriver(testRate, testFrames, nil)
	osc := NewOscillator(0, WaveSquare, testFrames) // constant +1 at 0 Hz
	gain := NewGain(1, 2, testFrames)
	if err := d.AddNode(osc); err != nil {
		t.Fatal(err)
	}
	if err := d.AddNode(gain, osc); err != nil {
		t.Fatal(err)
	}

	out := d.RenderQuantum()
	if out.Channel(0)[0] != 1 {
		t.Fatalf("baseline sample = %v, want 1", out.Channel(0)[0])
	}

	if err := d.UpdateDescription(gain.ID(), GainDescription{Gain: 3}); err != nil {
		t.Fatal(err)
	}
	out = d.RenderQuantum()
	if out.Channel(0)[0] != 3 {
		t.Fatalf("sample after update = %v, want 3", out.Channel(0)[0])
	}
}

func TestUpdateDescriptionUnknownNode(t *testing.T) {
	d := NewDriver(testRate, testFrames, nil)
	err := d.UpdateDescription("nope", GainDescription{Gain: 1})
	if !errors.Is(err, ErrUnknownNode) {
		t.Fatalf("err = %v, want ErrUnknownNode", err)
	}
}

func TestApplyDescriptionNowTypeMismatch(t *testing.T) {
	d := NewDriver(testRate, testFrames, nil)
	gain := NewGain(1, 2, testFrames)
	if err := d.AddNode(gain); err != nil {
		t.Fatal(err)
	}
	err := d.ApplyDescriptionNow(gain.ID(), OscillatorDescription{Frequency: 440})
	if !errors.Is(err, ErrBadDescription) {
		t.Fatalf("err = %v, want ErrBadDescription", err)
	}
}

func TestMismatchedDescriptionDroppedNotFatal(t *testing.T) {
	d := NewDriver(testRate, testFrames, nil)
	gain := NewGain(2, 2, testFrames)
	osc := NewOscillator(0, WaveSquare, testFrames)
	if err := d.AddNode(osc); err != nil {
		t.Fatal(err)
	}
	if err := d.AddNode(gain, osc); err != nil {
		t.Fatal(err)
	}

	if err := d.UpdateDescription(gain.ID(), OscillatorDescription{}); err != nil {
		t.Fatal(err)
	}
	// The bad update is dropped at commit; the graph keeps rendering
	// with the old parameters.
	out := d.RenderQuantum()
	if out.Channel(0)[0] != 2 {
		t.Fatalf("sample = %v, want 2", out.Channel(0)[0])
	}
}

func TestNodeLookup(t *testing.T) {
	d := NewDriver(testRate, testFrames, nil)
	osc := NewOscillator(440, WaveSine, testFrames)
	if err := d.AddNode(osc); err != nil {
		t.Fatal(err)
	}
	got, ok := d.Node(osc.ID())
	if !ok || got != Node(osc) {
		t.Fatal("node lookup failed")
	}
	if _, ok := d.Node("missing"); ok {
		t.Fatal("lookup of missing node succeeded")
	}
}

func BenchmarkRenderQuantum(b *testing.B) {
	d := NewDriver(testRate, testFrames, nil)
	osc := NewOscillator(440, WaveSine, testFrames)
	shaper := NewWaveShaper(2, testFrames)
	if err := shaper.ApplyDescription(WaveShaperDescription{Curve: []float64{-1, -0.5, 0.5, 1}, Oversample: 2}); err != nil {
		b.Fatal(err)
	}
	gain := NewGain(0.8, 2, testFrames)
	dest := NewDestination(2, testFrames)
	if err := d.AddNode(osc); err != nil {
		b.Fatal(err)
	}
	if err := d.AddNode(shaper, osc); err != nil {
		b.Fatal(err)
	}
	if err := d.AddNode(gain, shaper); err != nil {
		b.Fatal(err)
	}
	if err := d.AddNode(dest, gain); err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		d.RenderQuantum()
	}
}

func TestDestinationDownmixesWideInput(t *testing.T) {
	dest := NewDestination(2, 4)
	wide := bus.MustNew(4, 4)
	for c := 0; c < 4; c++ {
		wide.Channel(c)[0] = 1
	}
	dest.Process(nil, wide)
	out := dest.Output()
	if out.ChannelCount() != 2 {
		t.Fatalf("channel count = %d, want 2", out.ChannelCount())
	}
	if out.Channel(0)[0] != 1 {
		t.Fatalf("downmixed sample = %v, want 1", out.Channel(0)[0])
	}
}
