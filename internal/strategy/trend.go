package strategy

import (
	"fmt"

	"trading-core/internal/indicators"
	"trading-core/pkg/exchanges/common"
)

const (
	trendFastPeriod   = 5
	trendMidPeriod    = 10
	trendSlowPeriod   = 20
)

// Trend votes on EMA-stack ordering: fast above mid above slow is an
// uptrend (BUY), the reverse is a downtrend (SELL), confidence scaled
// by how far the fast EMA has separated from the slow one.
func Trend(candles []common.Candle) Decision {
	closes := indicators.Closes(candles)
	fast, okFast := indicators.EMA(closes, trendFastPeriod)
	mid, okMid := indicators.EMA(closes, trendMidPeriod)
	slow, okSlow := indicators.EMA(closes, trendSlowPeriod)
	if !okFast || !okMid || !okSlow {
		return hold("not enough candles for EMA stack")
	}
	if slow == 0 {
		return hold("zero slow EMA")
	}

	rawSpread := (fast - slow) / slow * 10 // 10x scales a 10% spread to full confidence

	switch {
	case fast > mid && mid > slow:
		return Decision{Signal: 1, Confidence: clamp01(rawSpread), Reason: fmt.Sprintf("EMA stack up: %.2f > %.2f > %.2f", fast, mid, slow)}
	case fast < mid && mid < slow:
		return Decision{Signal: -1, Confidence: clamp01(-rawSpread), Reason: fmt.Sprintf("EMA stack down: %.2f < %.2f < %.2f", fast, mid, slow)}
	default:
		return hold(fmt.Sprintf("EMA stack mixed: fast=%.2f mid=%.2f slow=%.2f", fast, mid, slow))
	}
}
