package indicators

import "math"

// Bollinger returns the middle (SMA), upper, and lower bands over
// period using numStdDev standard deviations.
func Bollinger(closes []float64, period int, numStdDev float64) (upper, middle, lower float64, ok bool) {
	middle, ok = SMA(closes, period)
	if !ok {
		return 0, 0, 0, false
	}

	window := closes[len(closes)-period:]
	var variance float64
	for _, p := range window {
		diff := p - middle
		variance += diff * diff
	}
	stdDev := math.Sqrt(variance / float64(period))

	upper = middle + numStdDev*stdDev
	lower = middle - numStdDev*stdDev
	return upper, middle, lower, true
}
