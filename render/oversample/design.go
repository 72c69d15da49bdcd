package oversample

import "math"

// designLowpass returns a linear-phase Kaiser-windowed sinc lowpass
// with cutoff 0.5/factor (scaled by cutoffScale) and unit DC gain. The
// tap count 2*tapsPerSide*factor+1 is odd, so the group delay is the
// integer tapsPerSide*factor samples.
func designLowpass(factor, tapsPerSide int, beta, cutoffScale float64) []float64 {
	nTaps := 2*tapsPerSide*factor + 1
	fc := 0.5 / float64(factor) * cutoffScale
	center := float64(nTaps-1) / 2

	taps := make([]float64, nTaps)
	sum := 0.0
	for n := range taps {
		t := float64(n) - center
		taps[n] = 2 * fc * sinc(2*fc*t) * kaiserWindow(n, nTaps, beta)
		sum += taps[n]
	}
	for n := range taps {
		taps[n] /= sum
	}
	return taps
}

// splitPhases decomposes taps into factor polyphase branches, branch p
// holding taps[p], taps[p+factor], ... Branches may differ in length by
// one when the tap count is not a multiple of factor.
func splitPhases(taps []float64, factor int) [][]float64 {
	phases := make([][]float64, factor)
	for p := range phases {
		n := (len(taps) - p + factor - 1) / factor
		phase := make([]float64, n)
		for k := 0; k < n; k++ {
			phase[k] = taps[p+k*factor]
		}
		phases[p] = phase
	}
	return phases
}

func sinc(x float64) float64 {
	if math.Abs(x) < 1e-12 {
		return 1
	}
	px := math.Pi * x
	return math.Sin(px) / px
}

func kaiserWindow(n, nTaps int, beta float64) float64 {
	if nTaps <= 1 {
		return 1
	}
	r := 2*float64(n)/float64(nTaps-1) - 1
	return i0(beta*math.Sqrt(1-r*r)) / i0(beta)
}

// i0 is the zeroth-order modified Bessel function of the first kind,
// evaluated by its power series.
func i0(x float64) float64 {
	sum := 1.0
	term := 1.0
	half := x / 2
	for k := 1; k < 64; k++ {
		term *= half / float64(k)
		inc := term * term
		sum += inc
		if inc < 1e-16*sum {
			break
		}
	}
	return sum
}
