package strategy

import (
	"fmt"

	"trading-core/internal/indicators"
	"trading-core/pkg/exchanges/common"
)

const (
	bollingerPeriod    = 20
	bollingerStdDev    = 2.0
	bollingerProximity = 0.1 // fraction of band width counted as "touching"
)

// Bollinger votes BUY when price sits near or below the lower band,
// SELL near or above the upper band, scaled by how deep into the
// touch zone the price sits.
func Bollinger(candles []common.Candle) Decision {
	closes := indicators.Closes(candles)
	upper, middle, lower, ok := indicators.Bollinger(closes, bollingerPeriod, bollingerStdDev)
	if !ok {
		return hold("not enough candles for Bollinger bands")
	}

	width := upper - lower
	if width <= 0 {
		return hold("bollinger band has zero width")
	}
	price := closes[len(closes)-1]
	pos := (price - lower) / width // 0 at lower band, 1 at upper band

	switch {
	case pos <= 0:
		return Decision{Signal: 1, Confidence: 1, Reason: fmt.Sprintf("price %.4f at/below lower band %.4f", price, lower)}
	case pos >= 1:
		return Decision{Signal: -1, Confidence: 1, Reason: fmt.Sprintf("price %.4f at/above upper band %.4f", price, upper)}
	case pos < bollingerProximity:
		conf := clamp01((bollingerProximity - pos) / bollingerProximity)
		return Decision{Signal: 1, Confidence: conf, Reason: fmt.Sprintf("price %.4f approaching lower band %.4f", price, lower)}
	case pos > 1-bollingerProximity:
		conf := clamp01((pos - (1 - bollingerProximity)) / bollingerProximity)
		return Decision{Signal: -1, Confidence: conf, Reason: fmt.Sprintf("price %.4f approaching upper band %.4f", price, upper)}
	default:
		return hold(fmt.Sprintf("price %.4f inside bands [%.4f, %.4f], middle %.4f", price, lower, upper, middle))
	}
}
