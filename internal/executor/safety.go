package executor

import (
	"context"
	"errors"

	"trading-core/pkg/db"
)

// checkSafety applies the auto-trade guard rails ahead of submission: a
// principal with no auto-trade config row on this venue has opted out
// of the gate entirely (a manual, non-scheduled order), so the absence
// of a row is not itself a failure.
func checkSafety(ctx context.Context, q *db.Queries, userID, venue string, qty, price float64) error {
	cfg, err := q.GetAutoTradeConfig(ctx, userID, venue)
	if errors.Is(err, db.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if cfg.MaxDailyTrades > 0 && cfg.DailyTradesUsed >= cfg.MaxDailyTrades {
		return ErrDailyCapReached
	}
	if cfg.MaxConsecutiveLosses > 0 && cfg.ConsecutiveLosses >= cfg.MaxConsecutiveLosses {
		return ErrConsecutiveLossCapReached
	}

	if cfg.MaxPositionPct <= 0 {
		return nil
	}
	wallets, err := q.GetWallets(ctx, userID)
	if err != nil {
		return err
	}
	var total float64
	for _, w := range wallets {
		total += w.Balance
	}
	if total <= 0 {
		return nil
	}
	p := price
	if p == 0 {
		p = 1
	}
	if (qty*p)/total > cfg.MaxPositionPct {
		return ErrPositionTooLarge
	}
	return nil
}
