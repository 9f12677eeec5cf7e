package strategy

import (
	"fmt"

	"trading-core/internal/indicators"
	"trading-core/pkg/exchanges/common"
)

const (
	rsiPeriod    = 14
	rsiOversold  = 30.0
	rsiOverbought = 70.0
)

// RSI votes BUY on an oversold crossing, SELL on an overbought one, with
// confidence scaled by distance past the threshold.
func RSI(candles []common.Candle) Decision {
	closes := indicators.Closes(candles)
	rsi, ok := indicators.RSI(closes, rsiPeriod)
	if !ok {
		return hold("not enough candles for RSI")
	}

	switch {
	case rsi < rsiOversold:
		conf := clamp01((rsiOversold - rsi) / rsiOversold)
		return Decision{Signal: 1, Confidence: conf, Reason: fmt.Sprintf("RSI oversold: %.2f < %.2f", rsi, rsiOversold)}
	case rsi > rsiOverbought:
		conf := clamp01((rsi - rsiOverbought) / (100 - rsiOverbought))
		return Decision{Signal: -1, Confidence: conf, Reason: fmt.Sprintf("RSI overbought: %.2f > %.2f", rsi, rsiOverbought)}
	default:
		return hold(fmt.Sprintf("RSI neutral: %.2f", rsi))
	}
}
