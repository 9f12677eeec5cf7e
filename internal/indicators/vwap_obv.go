package indicators

import "trading-core/pkg/exchanges/common"

// VWAP is the volume-weighted average price over the given candles,
// using each candle's typical price (high+low+close)/3.
func VWAP(candles []common.Candle) (float64, bool) {
	if len(candles) == 0 {
		return 0, false
	}
	var cumPV, cumV float64
	for _, c := range candles {
		typical := (c.High + c.Low + c.Close) / 3
		cumPV += typical * c.Volume
		cumV += c.Volume
	}
	if cumV == 0 {
		return 0, false
	}
	return cumPV / cumV, true
}

// OBV is the On-Balance Volume: volume added on an up close, subtracted
// on a down close, ignored on an unchanged close.
func OBV(candles []common.Candle) (float64, bool) {
	if len(candles) < 2 {
		return 0, false
	}
	var obv float64
	for i := 1; i < len(candles); i++ {
		switch {
		case candles[i].Close > candles[i-1].Close:
			obv += candles[i].Volume
		case candles[i].Close < candles[i-1].Close:
			obv -= candles[i].Volume
		}
	}
	return obv, true
}
