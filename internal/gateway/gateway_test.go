package gateway

import (
	"context"
	"testing"
	"time"

	"trading-core/internal/dex"
	"trading-core/internal/events"
	"trading-core/internal/executor"
	"trading-core/internal/risk"
	"trading-core/pkg/crypto"
	"trading-core/pkg/db"
	"trading-core/pkg/exchanges/common"
)

type fakeVenueClient struct {
	candles []common.Candle
	ack     common.OrderAck
	err     error
}

func (f *fakeVenueClient) Venue() common.Venue { return common.VenueA }
func (f *fakeVenueClient) GetCandles(ctx context.Context, symbol, interval string, limit int) ([]common.Candle, error) {
	return f.candles, nil
}
func (f *fakeVenueClient) GetAccounts(ctx context.Context) ([]common.AccountBalance, error) {
	return []common.AccountBalance{{Asset: "USDT", Available: 1000}}, nil
}
func (f *fakeVenueClient) GetAccount(ctx context.Context, asset string) (common.AccountBalance, error) {
	return common.AccountBalance{Asset: asset}, nil
}
func (f *fakeVenueClient) PlaceOrder(ctx context.Context, req common.OrderRequest) (common.OrderAck, error) {
	return f.ack, f.err
}
func (f *fakeVenueClient) CancelOrder(ctx context.Context, symbol, exchangeOrderID string) error { return nil }
func (f *fakeVenueClient) GetOrder(ctx context.Context, symbol, exchangeOrderID string) (common.OrderAck, error) {
	return common.OrderAck{}, nil
}
func (f *fakeVenueClient) GetOpenOrders(ctx context.Context, symbol string) ([]common.OrderAck, error) {
	return nil, nil
}

// flatRamp builds n candles with a steady linear decline, which the
// strategy package's RSI/Bollinger/Stochastic strategies vote BUY on
// at high confidence.
func flatRamp(n int, start, step float64) []common.Candle {
	out := make([]common.Candle, n)
	price := start
	for i := range out {
		out[i] = common.Candle{
			OpenTime: time.Now().Add(time.Duration(i) * time.Hour),
			Open:     price, High: price + 1, Low: price - 1, Close: price, Volume: 100,
		}
		price -= step
	}
	return out
}

func newTestGateway(t *testing.T, factory executor.ClientFactory, venueClient *fakeVenueClient) (*Gateway, *db.Database) {
	t.Helper()
	database, err := db.New(":memory:")
	if err != nil {
		t.Fatalf("db.New: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	if err := db.ApplyMigrations(database); err != nil {
		t.Fatalf("ApplyMigrations: %v", err)
	}

	vault, err := crypto.NewVault("test-password", "deadbeefdeadbeefdeadbeefdeadbeef")
	if err != nil {
		t.Fatalf("NewVault: %v", err)
	}
	bus := events.NewBus()
	engine := dex.NewEngine()
	riskMT := risk.NewMultiTenant(risk.DefaultConfig())
	exec := executor.NewExecutor(database, bus, vault, factory)

	venues := map[string]common.Client{"venue_a": venueClient}
	g := New(database, bus, engine, riskMT, exec, vault, venues)
	return g, database
}

func TestWrapCTPAddsHeader(t *testing.T) {
	out := wrapCTP("△", map[string]any{"x": 1})
	header, ok := out["ctp"].(CTPHeader)
	if !ok {
		t.Fatalf("expected a CTPHeader under \"ctp\", got %T", out["ctp"])
	}
	if header.Trit != "△" || header.Protocol != protocolName {
		t.Errorf("unexpected header: %+v", header)
	}
}

func TestPrincipalLimiterAllowsBurstThenBlocks(t *testing.T) {
	limiter := NewPrincipalLimiter()
	for i := 0; i < requestsPerWindow; i++ {
		if !limiter.Allow("alice") {
			t.Fatalf("request %d unexpectedly blocked", i)
		}
	}
	if limiter.Allow("alice") {
		t.Error("expected the request past the burst to be blocked")
	}
	if !limiter.Allow("bob") {
		t.Error("a different principal should have its own bucket")
	}
}

func TestSwapDebitsAndCreditsWallet(t *testing.T) {
	g, database := newTestGateway(t, nil, &fakeVenueClient{})
	ctx := context.Background()

	pool, ok := g.Engine.PoolForPair("CRWN", "USDT")
	if !ok {
		t.Fatal("expected a bootstrap CRWN-USDT pool")
	}
	if _, err := pool.AddLiquidity("system", 1_000_000, 1_000_000); err != nil {
		t.Fatalf("seeding pool liquidity: %v", err)
	}

	if err := database.Queries().AddBalance(ctx, "alice", "CRWN", 1_000_000); err != nil {
		t.Fatalf("AddBalance: %v", err)
	}

	resp, err := g.Swap(ctx, "alice", pool.ID, "CRWN", 10_000)
	if err != nil {
		t.Fatalf("Swap: %v", err)
	}
	if resp["amountOut"].(float64) <= 0 {
		t.Errorf("expected positive amountOut, got %v", resp["amountOut"])
	}

	crwn, err := database.Queries().GetWallet(ctx, "alice", "CRWN")
	if err != nil {
		t.Fatalf("GetWallet CRWN: %v", err)
	}
	if crwn.Balance != 990_000 {
		t.Errorf("expected CRWN balance 990000 after debit, got %v", crwn.Balance)
	}
	usdt, err := database.Queries().GetWallet(ctx, "alice", "USDT")
	if err != nil {
		t.Fatalf("GetWallet USDT: %v", err)
	}
	if usdt.Balance <= 0 {
		t.Errorf("expected a positive USDT credit, got %v", usdt.Balance)
	}

	swaps, err := database.Queries().SwapsByUser(ctx, "alice", 10)
	if err != nil {
		t.Fatalf("SwapsByUser: %v", err)
	}
	if len(swaps) != 1 {
		t.Fatalf("expected 1 logged swap, got %d", len(swaps))
	}
}

func TestSwapInsufficientBalanceLeavesStateUnchanged(t *testing.T) {
	g, _ := newTestGateway(t, nil, &fakeVenueClient{})
	ctx := context.Background()

	pool, _ := g.Engine.PoolForPair("CRWN", "USDT")
	pool.AddLiquidity("system", 1_000_000, 1_000_000)

	_, err := g.Swap(ctx, "broke", pool.ID, "CRWN", 10_000)
	if err != db.ErrInsufficientFunds {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	snap := pool.Snapshot()
	if snap.ReserveA != 1_000_000 {
		t.Errorf("expected pool reserves untouched after a failed swap, got reserveA=%v", snap.ReserveA)
	}
}

func TestAddLiquidityDebitsBothSidesAndMintsShares(t *testing.T) {
	g, database := newTestGateway(t, nil, &fakeVenueClient{})
	ctx := context.Background()

	pool, _ := g.Engine.PoolForPair("CRWN", "USDT")
	database.Queries().AddBalance(ctx, "alice", "CRWN", 10_000)
	database.Queries().AddBalance(ctx, "alice", "USDT", 10_000)

	resp, err := g.AddLiquidity(ctx, "alice", pool.ID, 10_000, 10_000)
	if err != nil {
		t.Fatalf("AddLiquidity: %v", err)
	}
	if resp["shares"].(float64) != 10_000 {
		t.Errorf("expected seed shares 10000, got %v", resp["shares"])
	}

	crwn, _ := database.Queries().GetWallet(ctx, "alice", "CRWN")
	if crwn.Balance != 0 {
		t.Errorf("expected CRWN fully debited, got %v", crwn.Balance)
	}
}

func TestPlaceLimitOrderLocksOfferedSide(t *testing.T) {
	g, database := newTestGateway(t, nil, &fakeVenueClient{})
	ctx := context.Background()

	pool, _ := g.Engine.PoolForPair("CRWN", "USDT")
	database.Queries().AddBalance(ctx, "alice", "CRWN", 10_000)

	resp, err := g.PlaceLimitOrder(ctx, "alice", pool.ID, dex.SideSell, 1.0, 100)
	if err != nil {
		t.Fatalf("PlaceLimitOrder: %v", err)
	}
	if resp["orderId"] == "" {
		t.Error("expected a non-empty orderId")
	}

	crwn, _ := database.Queries().GetWallet(ctx, "alice", "CRWN")
	if crwn.Locked != 100 {
		t.Errorf("expected 100 CRWN locked, got %v", crwn.Locked)
	}
}

func TestPlaceLimitOrderMatchSettlesBothSides(t *testing.T) {
	g, database := newTestGateway(t, nil, &fakeVenueClient{})
	ctx := context.Background()

	pool, _ := g.Engine.PoolForPair("CRWN", "USDT")
	database.Queries().AddBalance(ctx, "alice", "CRWN", 100)
	database.Queries().AddBalance(ctx, "bob", "USDT", 1_200)

	if _, err := g.PlaceLimitOrder(ctx, "alice", pool.ID, dex.SideSell, 1.0, 100); err != nil {
		t.Fatalf("sell PlaceLimitOrder: %v", err)
	}
	resp, err := g.PlaceLimitOrder(ctx, "bob", pool.ID, dex.SideBuy, 1.2, 100)
	if err != nil {
		t.Fatalf("buy PlaceLimitOrder: %v", err)
	}
	if len(resp["matches"].([]dex.Match)) != 1 {
		t.Fatalf("expected 1 match, got %v", resp["matches"])
	}

	aliceCRWN, _ := database.Queries().GetWallet(ctx, "alice", "CRWN")
	if aliceCRWN.Balance != 0 || aliceCRWN.Locked != 0 {
		t.Errorf("expected alice's CRWN fully spent, got balance=%v locked=%v", aliceCRWN.Balance, aliceCRWN.Locked)
	}
	aliceUSDT, _ := database.Queries().GetWallet(ctx, "alice", "USDT")
	if aliceUSDT.Balance != 100 {
		t.Errorf("expected alice credited 100 USDT at the maker price, got %v", aliceUSDT.Balance)
	}

	bobCRWN, _ := database.Queries().GetWallet(ctx, "bob", "CRWN")
	if bobCRWN.Balance != 100 {
		t.Errorf("expected bob credited 100 CRWN, got %v", bobCRWN.Balance)
	}
	bobUSDT, _ := database.Queries().GetWallet(ctx, "bob", "USDT")
	if bobUSDT.Balance != 1_100 || bobUSDT.Locked != 0 {
		t.Errorf("expected bob spending 100 USDT at the maker price out of 1200, got balance=%v locked=%v", bobUSDT.Balance, bobUSDT.Locked)
	}
}

func TestCancelLimitOrderReleasesLock(t *testing.T) {
	g, database := newTestGateway(t, nil, &fakeVenueClient{})
	ctx := context.Background()

	pool, _ := g.Engine.PoolForPair("CRWN", "USDT")
	database.Queries().AddBalance(ctx, "alice", "CRWN", 100)

	placed, err := g.PlaceLimitOrder(ctx, "alice", pool.ID, dex.SideSell, 1.0, 100)
	if err != nil {
		t.Fatalf("PlaceLimitOrder: %v", err)
	}
	orderID := placed["orderId"].(string)

	if _, err := g.CancelLimitOrder(ctx, "bob", orderID); err != ErrNotOrderOwner {
		t.Fatalf("expected ErrNotOrderOwner for a non-owner cancel, got %v", err)
	}

	if _, err := g.CancelLimitOrder(ctx, "alice", orderID); err != nil {
		t.Fatalf("CancelLimitOrder: %v", err)
	}

	crwn, _ := database.Queries().GetWallet(ctx, "alice", "CRWN")
	if crwn.Locked != 0 {
		t.Errorf("expected lock released on cancel, got locked=%v", crwn.Locked)
	}

	if _, err := g.CancelLimitOrder(ctx, "alice", orderID); err != ErrOrderNotFound {
		t.Fatalf("expected ErrOrderNotFound cancelling an already-cancelled order, got %v", err)
	}
}

func TestSizeOrderSellUsesOnlyTheTradedSymbolsBaseToken(t *testing.T) {
	g, database := newTestGateway(t, nil, &fakeVenueClient{})
	ctx := context.Background()

	// The faucet balances internal/auth mints on registration: several
	// non-USDT tokens besides the one actually traded.
	database.Queries().AddBalance(ctx, "dana", "CRWN", 1_000_000)
	database.Queries().AddBalance(ctx, "dana", "ETH", 100)
	database.Queries().AddBalance(ctx, "dana", "BTC", 5)
	database.Queries().AddBalance(ctx, "dana", "KRW", 100_000_000)

	sched := NewScheduler(g)
	qty, _, err := sched.sizeOrder(ctx, "dana", "BTCUSDT", "sell", 50000, 0.5)
	if err != nil {
		t.Fatalf("sizeOrder: %v", err)
	}
	if qty != 2.5 {
		t.Errorf("expected sell size off BTC's 5 balance (2.5), got %v", qty)
	}
}

func TestAutoTradeCycleSkipsAndPausesAtConsecutiveLossCap(t *testing.T) {
	fake := &fakeVenueClient{candles: flatRamp(60, 50000, 10)}
	g, database := newTestGateway(t, func(venue, accessKey, secretKey string) (common.Client, error) {
		return fake, nil
	}, fake)
	ctx := context.Background()

	sub, cancel := g.Bus.Subscribe(events.TopicAutoPaused, 1)
	defer cancel()

	err := database.Queries().UpsertAutoTradeConfig(ctx, db.AutoTradeConfig{
		UserID: "dana", Venue: "venue_a", Enabled: true,
		Symbols: "BTCUSDT", MaxPositionPct: 0.1, MinConfidence: 0,
		MaxDailyTrades: 10, MaxConsecutiveLosses: 3, ConsecutiveLosses: 3,
		UpdatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("UpsertAutoTradeConfig: %v", err)
	}

	sched := NewScheduler(g)
	sched.runCycle(ctx, "dana", "venue_a")

	select {
	case <-sub:
	case <-time.After(time.Second):
		t.Fatal("expected an auto_trade_paused event")
	}

	orders, err := database.Queries().VenueOrdersByUser(ctx, "dana", "venue_a", 10)
	if err != nil {
		t.Fatalf("VenueOrdersByUser: %v", err)
	}
	if len(orders) != 0 {
		t.Errorf("expected no venue order rows at the loss cap, got %d", len(orders))
	}
}

func TestAutoTradeCycleExecutesBelowLossCap(t *testing.T) {
	fake := &fakeVenueClient{candles: flatRamp(60, 50000, 10), ack: common.OrderAck{Status: common.StatusFilled, ExchangeOrderID: "x1"}}
	g, database := newTestGateway(t, func(venue, accessKey, secretKey string) (common.Client, error) {
		return fake, nil
	}, fake)
	ctx := context.Background()

	if err := database.Queries().AddBalance(ctx, "erin", "USDT", 100_000); err != nil {
		t.Fatalf("AddBalance: %v", err)
	}
	err := database.Queries().UpsertAutoTradeConfig(ctx, db.AutoTradeConfig{
		UserID: "erin", Venue: "venue_a", Enabled: true,
		Symbols: "BTCUSDT", MaxPositionPct: 0.1, MinConfidence: 0,
		MaxDailyTrades: 10, MaxConsecutiveLosses: 3,
		UpdatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("UpsertAutoTradeConfig: %v", err)
	}

	sched := NewScheduler(g)
	sched.runCycle(ctx, "erin", "venue_a")

	orders, err := database.Queries().VenueOrdersByUser(ctx, "erin", "venue_a", 10)
	if err != nil {
		t.Fatalf("VenueOrdersByUser: %v", err)
	}
	if len(orders) != 1 {
		t.Fatalf("expected 1 executed venue order, got %d", len(orders))
	}
	if orders[0].Source != "auto" {
		t.Errorf("expected source=auto, got %s", orders[0].Source)
	}
}
