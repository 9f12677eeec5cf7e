package indicators

import "trading-core/pkg/exchanges/common"

// Stochastic returns %K over kPeriod and %D = SMA(dPeriod) of %K.
func Stochastic(candles []common.Candle, kPeriod, dPeriod int) (k, d float64, ok bool) {
	n := len(candles)
	if kPeriod <= 0 || dPeriod <= 0 || n < kPeriod+dPeriod-1 {
		return 0, 0, false
	}

	kValues := make([]float64, dPeriod)
	for i := 0; i < dPeriod; i++ {
		end := n - dPeriod + 1 + i
		v, kok := stochKAt(candles, end, kPeriod)
		if !kok {
			return 0, 0, false
		}
		kValues[i] = v
	}

	k = kValues[dPeriod-1]
	d, ok = SMA(kValues, dPeriod)
	return k, d, ok
}

// stochKAt computes %K for the window of kPeriod candles ending
// (exclusive) at endExclusive.
func stochKAt(candles []common.Candle, endExclusive, kPeriod int) (float64, bool) {
	if endExclusive < kPeriod {
		return 0, false
	}
	window := candles[endExclusive-kPeriod : endExclusive]

	high := window[0].High
	low := window[0].Low
	for _, c := range window {
		if c.High > high {
			high = c.High
		}
		if c.Low < low {
			low = c.Low
		}
	}

	close := candles[endExclusive-1].Close
	if high == low {
		return 50, true // no range to place close within
	}
	return (close - low) / (high - low) * 100, true
}
