package strategy

import (
	"fmt"

	"trading-core/pkg/exchanges/common"
)

const (
	volumeLookback     = 20
	volumeSpikeRatio   = 1.5
)

// Volume votes in the direction of the latest candle's close when
// volume spikes well above its trailing 20-bar mean.
func Volume(candles []common.Candle) Decision {
	if len(candles) < volumeLookback+1 {
		return hold("not enough candles for volume baseline")
	}

	window := candles[len(candles)-1-volumeLookback : len(candles)-1]
	var sum float64
	for _, c := range window {
		sum += c.Volume
	}
	mean := sum / float64(len(window))
	if mean == 0 {
		return hold("zero trailing mean volume")
	}

	last := candles[len(candles)-1]
	prev := candles[len(candles)-2]
	ratio := last.Volume / mean

	if ratio < volumeSpikeRatio {
		return hold(fmt.Sprintf("volume ratio %.2f below spike threshold %.2f", ratio, volumeSpikeRatio))
	}

	conf := clamp01((ratio - volumeSpikeRatio) / volumeSpikeRatio)
	if last.Close > prev.Close {
		return Decision{Signal: 1, Confidence: conf, Reason: fmt.Sprintf("volume spike %.2fx mean on rising close", ratio)}
	}
	if last.Close < prev.Close {
		return Decision{Signal: -1, Confidence: conf, Reason: fmt.Sprintf("volume spike %.2fx mean on falling close", ratio)}
	}
	return hold(fmt.Sprintf("volume spike %.2fx mean but close unchanged", ratio))
}
