package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"trading-core/internal/ai"
	"trading-core/internal/risk"
	"trading-core/pkg/db"
)

// minCandlesForAnalysis mirrors the strategy package's own warmup
// requirement; the gateway rejects a request before ever calling the
// venue client's full candle count.
const minCandlesForAnalysis = 50

var ErrInsufficientCandles = errors.New("gateway: fewer than 50 candles available for analysis")

func (g *Gateway) routeAI(ctx context.Context, action string, params map[string]any, principal string) (map[string]any, error) {
	venue, err := paramString(params, "exchange")
	if err != nil {
		return nil, err
	}
	symbol, err := paramString(params, "symbol")
	if err != nil {
		return nil, err
	}
	interval, _ := paramString(params, "interval")
	if interval == "" {
		interval = "1h"
	}

	switch action {
	case "analyze":
		return g.aiAnalyze(ctx, venue, symbol, interval, principal)
	case "backtest":
		return g.aiBacktest(ctx, venue, symbol, interval)
	case "multi-analyze", "multiAnalyze":
		return g.aiMultiAnalyze(ctx, venue, symbol, interval, principal)
	default:
		return nil, ErrUnknownAction
	}
}

func (g *Gateway) aiAnalyze(ctx context.Context, venue, symbol, interval, principal string) (map[string]any, error) {
	candles, err := g.candlesFor(ctx, venue, symbol, interval, 200)
	if err != nil {
		return nil, err
	}
	if len(candles) < minCandlesForAnalysis {
		return nil, ErrInsufficientCandles
	}

	riskDec := g.riskDecisionFor(ctx, principal, venue, symbol, candles[len(candles)-1].Close)
	consensus := ai.Analyze(candles, riskDec)
	consensus = ai.AnalyzeAugmented(ctx, symbol, consensus, g.Augmenter)

	signalID := uuid.NewString()
	if err := g.persistSignal(ctx, signalID, symbol, venue, interval, consensus); err != nil {
		return nil, err
	}

	return wrapCTP(consensus.Trit, map[string]any{
		"signalId":  signalID,
		"consensus": consensus,
		"risk":      riskDec,
	}), nil
}

func (g *Gateway) aiBacktest(ctx context.Context, venue, symbol, interval string) (map[string]any, error) {
	candles, err := g.candlesFor(ctx, venue, symbol, interval, 500)
	if err != nil {
		return nil, err
	}
	result := ai.Backtest(candles)
	return wrapCTP("○", map[string]any{"backtest": result}), nil
}

func (g *Gateway) aiMultiAnalyze(ctx context.Context, venue, symbol, interval, principal string) (map[string]any, error) {
	candles, err := g.candlesFor(ctx, venue, symbol, interval, 200)
	if err != nil {
		return nil, err
	}
	if len(candles) < minCandlesForAnalysis {
		return nil, ErrInsufficientCandles
	}
	riskDec := g.riskDecisionFor(ctx, principal, venue, symbol, candles[len(candles)-1].Close)
	consensus := ai.Analyze(candles, riskDec)
	return wrapCTP(consensus.Trit, map[string]any{
		"consensus":  consensus,
		"strategies": consensus.Votes,
		"risk":       riskDec,
	}), nil
}

func (g *Gateway) riskDecisionFor(ctx context.Context, principal, venue, symbol string, price float64) risk.Decision {
	if principal == "" {
		return risk.Decision{Allowed: true}
	}
	mgr := g.Risk.GetOrCreate(principal, venue)
	var balance float64
	if wallets, err := g.DB.Queries().GetWallets(ctx, principal); err == nil {
		for _, w := range wallets {
			balance += w.Balance
		}
	}
	return mgr.Evaluate("analyze", symbol, price, balance)
}

func (g *Gateway) persistSignal(ctx context.Context, id, symbol, venue, interval string, c ai.Consensus) error {
	strategiesJSON, err := json.Marshal(c.Votes)
	if err != nil {
		return err
	}
	riskJSON, err := json.Marshal(c.Risk)
	if err != nil {
		return err
	}
	return g.DB.Queries().AppendAiSignal(ctx, db.AiSignal{
		ID: id, Symbol: symbol, Venue: venue, Interval: interval,
		Signal:     signalLabel(c.Signal),
		Score:      c.Score,
		Confidence: c.Confidence,
		Trit:       c.Trit,
		Strategies: string(strategiesJSON),
		Risk:       string(riskJSON),
		CreatedAt:  time.Now(),
	})
}

func signalLabel(signal int) string {
	switch signal {
	case 1:
		return "BUY"
	case -1:
		return "SELL"
	default:
		return "HOLD"
	}
}
