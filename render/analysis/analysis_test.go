package analysis

import (
	"math"
	"testing"
)

func sineBlock(n, bin int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Sin(2 * math.Pi * float64(bin) * float64(i) / float64(n))
	}
	return out
}

func TestBlackmanWindowShape(t *testing.T) {
	w := make([]float64, 256)
	BlackmanWindow(w)

	// Periodic Blackman starts at a0-a1+a2 = 0 and peaks near the middle.
	if math.Abs(w[0]) > 1e-15 {
		t.Fatalf("w[0] = %v, want 0", w[0])
	}
	if math.Abs(w[128]-1.0) > 1e-12 {
		t.Fatalf("w[N/2] = %v, want 1", w[128])
	}
	for i, v := range w {
		if v < -1e-15 || v > 1+1e-15 {
			t.Fatalf("w[%d] = %v outside [0, 1]", i, v)
		}
	}
}

func TestValidateFFTSize(t *testing.T) {
	a := NewAnalyzer()
	prev := make([]float64, MaxFFTSize/2)
	out := make([]float64, MaxFFTSize/2)

	for _, n := range []int{0, 16, 100, 65536} {
		err := a.ComputeFrequencyDataDB(make([]float64, n), 0, prev, out)
		if err == nil {
			t.Errorf("fft size %d accepted", n)
		}
	}
	if err := a.ComputeFrequencyDataDB(make([]float64, 1024), 0, prev, out); err != nil {
		t.Fatalf("fft size 1024 rejected: %v", err)
	}
}

func TestSmoothingRange(t *testing.T) {
	a := NewAnalyzer()
	td := make([]float64, 128)
	prev := make([]float64, 64)
	out := make([]float64, 64)
	for _, s := range []float64{-0.1, 1.1, math.NaN()} {
		if err := a.ComputeFrequencyDataDB(td, s, prev, out); err == nil {
			t.Errorf("smoothing %v accepted", s)
		}
	}
}

func TestShortSlicesRejected(t *testing.T) {
	a := NewAnalyzer()
	td := make([]float64, 128)
	if err := a.ComputeFrequencyDataDB(td, 0, make([]float64, 63), make([]float64, 64)); err == nil {
		t.Error("short previous accepted")
	}
	if err := a.ComputeFrequencyDataDB(td, 0, make([]float64, 64), make([]float64, 63)); err == nil {
		t.Error("short output accepted")
	}
}

func TestSinePeakBin(t *testing.T) {
	const (
		fftSize = 1024
		bin     = 37
	)
	a := NewAnalyzer()
	prev := make([]float64, BinCount(fftSize))
	out := make([]float64, BinCount(fftSize))

	err := a.ComputeFrequencyDataDB(sineBlock(fftSize, bin), 0, prev, out)
	if err != nil {
		t.Fatal(err)
	}

	peak := 1
	for k := 2; k < len(out); k++ {
		if out[k] > out[peak] {
			peak = k
		}
	}
	if peak != bin {
		t.Fatalf("peak at bin %d, want %d", peak, bin)
	}
	// Full-scale windowed sine: about 20*log10(0.42/2) = -13.5 dB.
	if out[bin] < -20 || out[bin] > 0 {
		t.Fatalf("peak level %v dB outside expected range", out[bin])
	}
}

// With smoothing 0 the pipeline has no history: repeating the same
// block must reproduce the same output bit for bit.
func TestZeroSmoothingIdempotent(t *testing.T) {
	const fftSize = 512
	a := NewAnalyzer()
	td := sineBlock(fftSize, 10)
	prev := make([]float64, BinCount(fftSize))
	first := make([]float64, BinCount(fftSize))
	second := make([]float64, BinCount(fftSize))

	if err := a.ComputeFrequencyDataDB(td, 0, prev, first); err != nil {
		t.Fatal(err)
	}
	if err := a.ComputeFrequencyDataDB(td, 0, prev, second); err != nil {
		t.Fatal(err)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("bin %d differs: %v vs %v", i, first[i], second[i])
		}
	}
}

// With smoothing 1 the previous block wins completely: new input must
// not move the output at all.
func TestFullSmoothingFreezes(t *testing.T) {
	const fftSize = 512
	a := NewAnalyzer()
	prev := make([]float64, BinCount(fftSize))
	for i := range prev {
		prev[i] = 0.25
	}
	out := make([]float64, BinCount(fftSize))

	if err := a.ComputeFrequencyDataDB(sineBlock(fftSize, 40), 1, prev, out); err != nil {
		t.Fatal(err)
	}
	want := 20 * math.Log10(0.25)
	for i := range out {
		if prev[i] != 0.25 {
			t.Fatalf("previous[%d] changed to %v", i, prev[i])
		}
		if math.Abs(out[i]-want) > 1e-12 {
			t.Fatalf("out[%d] = %v, want %v", i, out[i], want)
		}
	}
}

func TestSilenceIsNegativeInfinity(t *testing.T) {
	const fftSize = 256
	a := NewAnalyzer()
	prev := make([]float64, BinCount(fftSize))
	out := make([]float64, BinCount(fftSize))

	if err := a.ComputeFrequencyDataDB(make([]float64, fftSize), 0, prev, out); err != nil {
		t.Fatal(err)
	}
	for i, v := range out {
		if !math.IsInf(v, -1) {
			t.Fatalf("out[%d] = %v, want -Inf", i, v)
		}
	}
}

func TestToByteData(t *testing.T) {
	db := []float64{-200, -100, -65, -30, 0, math.Inf(-1), math.NaN()}
	dst := make([]uint8, len(db))
	ToByteData(dst, db, -100, -30)

	if dst[0] != 0 || dst[1] != 0 {
		t.Fatalf("values at or below minDB must clamp to 0: %v", dst)
	}
	if dst[3] != 255 || dst[4] != 255 {
		t.Fatalf("values at or above maxDB must clamp to 255: %v", dst)
	}
	if dst[2] == 0 || dst[2] == 255 {
		t.Fatalf("in-range value saturated: %d", dst[2])
	}
	if dst[5] != 0 || dst[6] != 0 {
		t.Fatalf("-Inf and NaN must map to 0: %v", dst)
	}
}

func TestAnalyzerResize(t *testing.T) {
	a := NewAnalyzer()
	for _, n := range []int{256, 2048, 128} {
		prev := make([]float64, BinCount(n))
		out := make([]float64, BinCount(n))
		if err := a.ComputeFrequencyDataDB(sineBlock(n, 5), 0.5, prev, out); err != nil {
			t.Fatalf("size %d: %v", n, err)
		}
	}
}
