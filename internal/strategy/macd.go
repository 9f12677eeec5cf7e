package strategy

import (
	"fmt"
	"math"

	"trading-core/internal/indicators"
	"trading-core/pkg/exchanges/common"
)

// MACD votes on a golden/dead cross of the histogram: the sign flip
// between the previous and current candle's macd-signal histogram.
func MACD(candles []common.Candle) Decision {
	closes := indicators.Closes(candles)
	if len(closes) < 2 {
		return hold("not enough candles for MACD")
	}

	_, _, curHist, okCur := indicators.MACD(closes)
	_, _, prevHist, okPrev := indicators.MACD(closes[:len(closes)-1])
	if !okCur || !okPrev {
		return hold("not enough candles for MACD")
	}

	conf := clamp01(math.Abs(curHist) / (math.Abs(curHist) + math.Abs(prevHist) + 1e-9))

	switch {
	case prevHist <= 0 && curHist > 0:
		return Decision{Signal: 1, Confidence: conf, Reason: fmt.Sprintf("golden cross: histogram %.4f -> %.4f", prevHist, curHist)}
	case prevHist >= 0 && curHist < 0:
		return Decision{Signal: -1, Confidence: conf, Reason: fmt.Sprintf("dead cross: histogram %.4f -> %.4f", prevHist, curHist)}
	default:
		return hold(fmt.Sprintf("no macd cross: histogram %.4f", curHist))
	}
}
