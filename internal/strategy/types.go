// Package strategy holds the six weighted technical-analysis strategies
// that feed the consensus engine. Each is a stateless pure function of a
// candle series: no strategy here carries internal state between calls.
package strategy

import "trading-core/pkg/exchanges/common"

// Decision is what a strategy reports for one candle series.
type Decision struct {
	Signal     int // -1, 0, +1
	Confidence float64
	Reason     string
}

// Func is the shape every strategy implements.
type Func func(candles []common.Candle) Decision

// Weighted pairs a strategy with the weight its vote carries in the
// consensus engine.
type Weighted struct {
	Name   string
	Weight float64
	Run    Func
}

// All returns every strategy with its configured weight.
func All() []Weighted {
	return []Weighted{
		{Name: "rsi", Weight: 1.5, Run: RSI},
		{Name: "macd", Weight: 1.3, Run: MACD},
		{Name: "bollinger", Weight: 1.2, Run: Bollinger},
		{Name: "volume", Weight: 0.8, Run: Volume},
		{Name: "trend", Weight: 1.0, Run: Trend},
		{Name: "stochastic", Weight: 0.7, Run: Stochastic},
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func hold(reason string) Decision {
	return Decision{Signal: 0, Confidence: 0, Reason: reason}
}
