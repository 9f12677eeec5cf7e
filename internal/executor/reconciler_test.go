package executor

import (
	"context"
	"testing"
	"time"

	"trading-core/internal/events"
	"trading-core/internal/risk"
	"trading-core/pkg/db"
)

func waitForLossStreak(t *testing.T, database *db.Database, userID, venue string, want int) {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		cfg, err := database.Queries().GetAutoTradeConfig(context.Background(), userID, venue)
		if err == nil && cfg.ConsecutiveLosses == want {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for consecutive losses = %d", want)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestReconcilerOpensThenClosesPositionOnOppositeFill(t *testing.T) {
	ex, database := newTestExecutor(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := database.Queries().UpsertAutoTradeConfig(ctx, db.AutoTradeConfig{
		UserID: "gina", Venue: "venue_a", Enabled: true, UpdatedAt: time.Now(),
	}); err != nil {
		t.Fatalf("UpsertAutoTradeConfig: %v", err)
	}

	riskMT := risk.NewMultiTenant(risk.DefaultConfig())
	NewReconciler(ex, riskMT, ex.bus).Start(ctx)

	ex.bus.Publish(events.TopicOrderFilled, events.ScopedEvent{
		PrincipalID: "gina",
		Payload:     db.VenueOrder{UserID: "gina", Venue: "venue_a", Symbol: "BTCUSDT", Side: "BUY", FilledPrice: 50000},
	})

	mgr := riskMT.GetOrCreate("gina", "venue_a")
	deadline := time.After(time.Second)
	for {
		if pos, open := mgr.Position("BTCUSDT"); open && pos.EntryPrice == 50000 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for the first fill to open a position")
		case <-time.After(5 * time.Millisecond):
		}
	}

	ex.bus.Publish(events.TopicOrderFilled, events.ScopedEvent{
		PrincipalID: "gina",
		Payload:     db.VenueOrder{UserID: "gina", Venue: "venue_a", Symbol: "BTCUSDT", Side: "SELL", FilledPrice: 48000},
	})

	waitForLossStreak(t, database, "gina", "venue_a", 1)

	if _, open := mgr.Position("BTCUSDT"); open {
		t.Error("expected the position to be closed after the opposite-side fill")
	}
}

func TestReconcilerRecordsWinOnProfitableClose(t *testing.T) {
	ex, database := newTestExecutor(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := database.Queries().UpsertAutoTradeConfig(ctx, db.AutoTradeConfig{
		UserID: "hank", Venue: "venue_a", Enabled: true, ConsecutiveLosses: 2, UpdatedAt: time.Now(),
	}); err != nil {
		t.Fatalf("UpsertAutoTradeConfig: %v", err)
	}

	riskMT := risk.NewMultiTenant(risk.DefaultConfig())
	NewReconciler(ex, riskMT, ex.bus).Start(ctx)

	ex.bus.Publish(events.TopicOrderFilled, events.ScopedEvent{
		PrincipalID: "hank",
		Payload:     db.VenueOrder{UserID: "hank", Venue: "venue_a", Symbol: "ETHUSDT", Side: "BUY", FilledPrice: 2000},
	})
	waitForPosition(t, riskMT.GetOrCreate("hank", "venue_a"), "ETHUSDT")

	ex.bus.Publish(events.TopicOrderFilled, events.ScopedEvent{
		PrincipalID: "hank",
		Payload:     db.VenueOrder{UserID: "hank", Venue: "venue_a", Symbol: "ETHUSDT", Side: "SELL", FilledPrice: 2200},
	})

	waitForLossStreak(t, database, "hank", "venue_a", 0)
}

func waitForPosition(t *testing.T, mgr *risk.Manager, symbol string) {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		if _, open := mgr.Position(symbol); open {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for a position on %s", symbol)
		case <-time.After(5 * time.Millisecond):
		}
	}
}
