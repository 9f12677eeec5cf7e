package ai

import (
	"trading-core/internal/risk"
	"trading-core/internal/strategy"
	"trading-core/pkg/exchanges/common"
)

const (
	buyThreshold  = 0.3
	sellThreshold = -0.3
)

// Analyze runs every strategy over candles, combines the surviving votes
// into a weighted consensus, and applies the risk gate's verdict on top.
// riskDec is the caller's already-computed risk.Decision for this
// (action, symbol, price, balance) — the gateway owns fetching balance
// and calling risk.Manager.Evaluate, so this function stays a pure
// function of (candles, riskDec).
func Analyze(candles []common.Candle, riskDec risk.Decision) Consensus {
	var votes []Vote
	var weightedSum, totalWeight, confidenceSum float64

	for _, s := range strategy.All() {
		d := s.Run(candles)
		if d.Confidence == 0 {
			continue
		}
		votes = append(votes, Vote{
			Name:       s.Name,
			Signal:     d.Signal,
			Confidence: d.Confidence,
			Weight:     s.Weight,
			Reason:     d.Reason,
		})
		weightedSum += float64(d.Signal) * s.Weight * d.Confidence
		totalWeight += s.Weight * d.Confidence
		confidenceSum += d.Confidence
	}

	var score, avgConfidence float64
	if totalWeight > 0 {
		score = weightedSum / totalWeight
	}
	if len(votes) > 0 {
		avgConfidence = confidenceSum / float64(len(votes))
	}

	signal := 0
	switch {
	case score > buyThreshold:
		signal = 1
	case score < sellThreshold:
		signal = -1
	}

	c := Consensus{
		Signal:     signal,
		Score:      score,
		Confidence: avgConfidence,
		Votes:      votes,
		Risk:       riskDec,
	}

	if !riskDec.Allowed && c.Signal != 0 {
		c.Signal = 0
		c.RiskOverrode = true
	}
	if containsAny(riskDec.Risks, risk.RiskStopLoss, risk.RiskTakeProfit) {
		c.Signal = -1
		c.RiskOverrode = true
	}

	c.Trit = triString(c.Signal)
	return c
}

func containsAny(risks []string, wanted ...string) bool {
	for _, r := range risks {
		for _, w := range wanted {
			if r == w {
				return true
			}
		}
	}
	return false
}
