package strategy

import (
	"fmt"

	"trading-core/internal/indicators"
	"trading-core/pkg/exchanges/common"
)

const (
	stochKPeriod   = 14
	stochDPeriod   = 3
	stochOversold  = 20.0
	stochOverbought = 80.0
)

// Stochastic votes on an oversold/overbought %K reading, the same shape
// as the RSI strategy but over the stochastic oscillator's scale.
func Stochastic(candles []common.Candle) Decision {
	k, _, ok := indicators.Stochastic(candles, stochKPeriod, stochDPeriod)
	if !ok {
		return hold("not enough candles for stochastic")
	}

	switch {
	case k < stochOversold:
		conf := clamp01((stochOversold - k) / stochOversold)
		return Decision{Signal: 1, Confidence: conf, Reason: fmt.Sprintf("%%K oversold: %.2f < %.2f", k, stochOversold)}
	case k > stochOverbought:
		conf := clamp01((k - stochOverbought) / (100 - stochOverbought))
		return Decision{Signal: -1, Confidence: conf, Reason: fmt.Sprintf("%%K overbought: %.2f > %.2f", k, stochOverbought)}
	default:
		return hold(fmt.Sprintf("%%K neutral: %.2f", k))
	}
}
