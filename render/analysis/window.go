package analysis

import "math"

// Blackman coefficients for alpha = 0.16.
const (
	blackmanA0 = 0.42
	blackmanA1 = 0.5
	blackmanA2 = 0.08
)

// BlackmanWindow fills dst with the classic Blackman window of
// length len(dst).
func BlackmanWindow(dst []float64) {
	n := len(dst)
	if n == 0 {
		return
	}
	for i := range dst {
		x := float64(i) / float64(n)
		dst[i] = blackmanA0 - blackmanA1*math.Cos(2*math.Pi*x) + blackmanA2*math.Cos(4*math.Pi*x)
	}
}
