// Package indicators computes technical indicators as pure functions of
// a candle series. Every function returns an availability bool alongside
// its value: a prefix too short for the indicator's lookback is
// "not-yet-available", never a silent zero.
package indicators

import "trading-core/pkg/exchanges/common"

// Closes extracts the close price of each candle in order.
func Closes(candles []common.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}
