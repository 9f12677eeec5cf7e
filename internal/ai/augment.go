package ai

import (
	"context"
	"log"

	"trading-core/internal/ai/externalclient"
)

// AnalyzeAugmented runs Analyze locally, then — if augmenter is
// non-nil — asks the external service for a second opinion and
// overrides the local signal when the augmenter returns one. A failed
// or unreachable augmenter is logged and ignored; the local consensus
// always stands on its own.
func AnalyzeAugmented(ctx context.Context, symbol string, c Consensus, augmenter *externalclient.Client) Consensus {
	if augmenter == nil {
		return c
	}

	strategies := make(map[string]float64, len(c.Votes))
	for _, v := range c.Votes {
		strategies[v.Name] = v.Confidence
	}

	resp, err := augmenter.Augment(ctx, externalclient.AugmentRequest{
		Symbol:     symbol,
		Signal:     c.Signal,
		Score:      c.Score,
		Confidence: c.Confidence,
		Strategies: strategies,
	})
	if err != nil {
		log.Printf("consensus augmenter unavailable, keeping local signal: %v", err)
		return c
	}
	if resp.Signal != nil {
		c.Signal = *resp.Signal
		c.Trit = triString(c.Signal)
	}
	return c
}
