package indicators

import (
	"math"

	"trading-core/pkg/exchanges/common"
)

// ATR is the Average True Range over period, Wilder-smoothed the same
// way RSI is: a simple-average seed followed by 1/period-weighted
// rolling updates.
func ATR(candles []common.Candle, period int) (float64, bool) {
	if period <= 0 || len(candles) < period+1 {
		return 0, false
	}

	trs := make([]float64, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		trs[i-1] = trueRange(candles[i], candles[i-1])
	}

	var atr float64
	for i := 0; i < period; i++ {
		atr += trs[i]
	}
	atr /= float64(period)

	for i := period; i < len(trs); i++ {
		atr = (atr*float64(period-1) + trs[i]) / float64(period)
	}
	return atr, true
}

func trueRange(cur, prev common.Candle) float64 {
	hl := cur.High - cur.Low
	hc := math.Abs(cur.High - prev.Close)
	lc := math.Abs(cur.Low - prev.Close)
	return math.Max(hl, math.Max(hc, lc))
}
