package db

import (
	"context"
	"testing"
	"time"
)

func newTestDB(t *testing.T) *Database {
	t.Helper()
	database, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	if err := ApplyMigrations(database); err != nil {
		t.Fatalf("failed to apply migrations: %v", err)
	}
	return database
}

func TestWalletQueriesRequireUserID(t *testing.T) {
	database := newTestDB(t)
	q := database.Queries()
	ctx := context.Background()

	cases := map[string]func() error{
		"AddBalance":      func() error { return q.AddBalance(ctx, "", "USDT", 10) },
		"SubtractBalance": func() error { return q.SubtractBalance(ctx, "", "USDT", 10) },
		"LockBalance":     func() error { return q.LockBalance(ctx, "", "USDT", 10) },
		"GetWallets":      func() error { _, err := q.GetWallets(ctx, ""); return err },
	}
	for name, fn := range cases {
		t.Run(name, func(t *testing.T) {
			if err := fn(); err != ErrUserIDRequired {
				t.Errorf("expected ErrUserIDRequired, got %v", err)
			}
		})
	}
}

func TestWalletBalanceInvariants(t *testing.T) {
	database := newTestDB(t)
	q := database.Queries()
	ctx := context.Background()

	if err := q.AddBalance(ctx, "u1", "USDT", 100); err != nil {
		t.Fatalf("AddBalance: %v", err)
	}

	if err := q.LockBalance(ctx, "u1", "USDT", 40); err != nil {
		t.Fatalf("LockBalance: %v", err)
	}

	w, err := q.GetWallet(ctx, "u1", "USDT")
	if err != nil {
		t.Fatalf("GetWallet: %v", err)
	}
	if w.Balance != 100 || w.Locked != 40 {
		t.Fatalf("got balance=%v locked=%v, want 100/40", w.Balance, w.Locked)
	}

	// Free balance is 60; subtracting 70 must fail without touching the row.
	if err := q.SubtractBalance(ctx, "u1", "USDT", 70); err != ErrInsufficientFunds {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	if err := q.SubtractBalance(ctx, "u1", "USDT", 50); err != nil {
		t.Fatalf("SubtractBalance: %v", err)
	}

	w, err = q.GetWallet(ctx, "u1", "USDT")
	if err != nil {
		t.Fatalf("GetWallet: %v", err)
	}
	if w.Balance != 50 || w.Locked != 40 {
		t.Fatalf("got balance=%v locked=%v, want 50/40", w.Balance, w.Locked)
	}

	if err := q.UnlockBalance(ctx, "u1", "USDT", 40); err != nil {
		t.Fatalf("UnlockBalance: %v", err)
	}
	w, err = q.GetWallet(ctx, "u1", "USDT")
	if err != nil {
		t.Fatalf("GetWallet: %v", err)
	}
	if w.Locked != 0 {
		t.Fatalf("got locked=%v, want 0", w.Locked)
	}
}

func TestLockBalanceRejectsOverdraw(t *testing.T) {
	database := newTestDB(t)
	q := database.Queries()
	ctx := context.Background()

	if err := q.AddBalance(ctx, "u1", "USDT", 10); err != nil {
		t.Fatalf("AddBalance: %v", err)
	}
	if err := q.LockBalance(ctx, "u1", "USDT", 20); err != ErrInsufficientFunds {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
}

func TestTransactionRollsBackOnError(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	if err := database.Queries().AddBalance(ctx, "u1", "USDT", 100); err != nil {
		t.Fatalf("AddBalance: %v", err)
	}

	err := database.Transaction(ctx, func(q *Queries) error {
		if err := q.SubtractBalance(ctx, "u1", "USDT", 30); err != nil {
			return err
		}
		return q.SubtractBalance(ctx, "u1", "USDT", 1000) // fails, must roll back the first debit too
	})
	if err != ErrInsufficientFunds {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	w, err := database.Queries().GetWallet(ctx, "u1", "USDT")
	if err != nil {
		t.Fatalf("GetWallet: %v", err)
	}
	if w.Balance != 100 {
		t.Fatalf("expected rollback to restore balance to 100, got %v", w.Balance)
	}
}

func TestTransactionCommitsOnSuccess(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	err := database.Transaction(ctx, func(q *Queries) error {
		if err := q.AddBalance(ctx, "u1", "USDT", 100); err != nil {
			return err
		}
		return q.AddBalance(ctx, "u1", "CRWN", 5)
	})
	if err != nil {
		t.Fatalf("Transaction: %v", err)
	}

	w, err := database.Queries().GetWallet(ctx, "u1", "USDT")
	if err != nil {
		t.Fatalf("GetWallet: %v", err)
	}
	if w.Balance != 100 {
		t.Fatalf("expected committed balance 100, got %v", w.Balance)
	}
}

func TestSessionExpirySweep(t *testing.T) {
	database := newTestDB(t)
	q := database.Queries()
	ctx := context.Background()
	now := time.Now()

	if err := q.CreateSession(ctx, Session{ID: "s1", UserID: "u1", TokenHash: "h1", CreatedAt: now, ExpiresAt: now.Add(-time.Hour)}); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if err := q.CreateSession(ctx, Session{ID: "s2", UserID: "u1", TokenHash: "h2", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	n, err := q.SweepExpiredSessions(ctx, now)
	if err != nil {
		t.Fatalf("SweepExpiredSessions: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected to sweep 1 session, got %d", n)
	}

	if _, err := q.GetSessionByTokenHash(ctx, "h1"); err != ErrNotFound {
		t.Fatalf("expected expired session removed, got %v", err)
	}
	if _, err := q.GetSessionByTokenHash(ctx, "h2"); err != nil {
		t.Fatalf("expected live session to remain, got %v", err)
	}
}

func TestAutoTradeConfigCounters(t *testing.T) {
	database := newTestDB(t)
	q := database.Queries()
	ctx := context.Background()
	now := time.Now()

	cfg := AutoTradeConfig{
		UserID: "u1", Venue: "venue_b", Enabled: true, Symbols: "BTCUSDT,ETHUSDT",
		MaxPositionPct: 0.1, StopLossPct: 0.03, TakeProfitPct: 0.06, MinConfidence: 0.7,
		MaxDailyTrades: 10, MaxConsecutiveLosses: 3, UpdatedAt: now,
	}
	if err := q.UpsertAutoTradeConfig(ctx, cfg); err != nil {
		t.Fatalf("UpsertAutoTradeConfig: %v", err)
	}

	if err := q.IncrementDailyTrades(ctx, "u1", "venue_b"); err != nil {
		t.Fatalf("IncrementDailyTrades: %v", err)
	}
	if err := q.IncrementConsecutiveLosses(ctx, "u1", "venue_b", false); err != nil {
		t.Fatalf("IncrementConsecutiveLosses: %v", err)
	}

	got, err := q.GetAutoTradeConfig(ctx, "u1", "venue_b")
	if err != nil {
		t.Fatalf("GetAutoTradeConfig: %v", err)
	}
	if got.DailyTradesUsed != 1 || got.ConsecutiveLosses != 1 {
		t.Fatalf("got daily=%d losses=%d, want 1/1", got.DailyTradesUsed, got.ConsecutiveLosses)
	}

	if err := q.IncrementConsecutiveLosses(ctx, "u1", "venue_b", true); err != nil {
		t.Fatalf("IncrementConsecutiveLosses (profit): %v", err)
	}
	got, err = q.GetAutoTradeConfig(ctx, "u1", "venue_b")
	if err != nil {
		t.Fatalf("GetAutoTradeConfig: %v", err)
	}
	if got.ConsecutiveLosses != 0 {
		t.Fatalf("expected loss streak reset to 0, got %d", got.ConsecutiveLosses)
	}

	if err := q.ResetDailyTrades(ctx); err != nil {
		t.Fatalf("ResetDailyTrades: %v", err)
	}
	got, err = q.GetAutoTradeConfig(ctx, "u1", "venue_b")
	if err != nil {
		t.Fatalf("GetAutoTradeConfig: %v", err)
	}
	if got.DailyTradesUsed != 0 {
		t.Fatalf("expected daily trades reset to 0, got %d", got.DailyTradesUsed)
	}
}

func TestVenueOrderLifecycle(t *testing.T) {
	database := newTestDB(t)
	q := database.Queries()
	ctx := context.Background()
	now := time.Now()

	o := VenueOrder{
		ID: "o1", UserID: "u1", Venue: "venue_a", Symbol: "BTCKRW", Side: "BUY",
		Type: "MARKET", Quantity: 0.01, Status: "pending", Source: "manual",
		CreatedAt: now, UpdatedAt: now,
	}
	if err := q.InsertVenueOrder(ctx, o); err != nil {
		t.Fatalf("InsertVenueOrder: %v", err)
	}

	if err := q.UpdateVenueOrder(ctx, "o1", "filled", "ex-123", 0.01, 42000000, 50, "", now); err != nil {
		t.Fatalf("UpdateVenueOrder: %v", err)
	}

	got, err := q.GetVenueOrder(ctx, "o1")
	if err != nil {
		t.Fatalf("GetVenueOrder: %v", err)
	}
	if got.Status != "filled" || got.ExchangeOrderID != "ex-123" || got.FilledQty != 0.01 {
		t.Fatalf("unexpected venue order after update: %+v", got)
	}
}
