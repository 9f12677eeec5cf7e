package gateway

import (
	"context"
	"log"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"trading-core/internal/ai"
	"trading-core/internal/events"
	"trading-core/internal/executor"
	"trading-core/pkg/db"
)

const autoTradeCycle = 30 * time.Second

type tenantKey struct {
	principal string
	venue     string
}

// Scheduler runs one independent 30s cycle per enabled (principal,
// venue) tuple and a daily counter-reset ticker, matching the
// teacher's one-goroutine-per-subscription concurrency idiom
// generalized from a single global loop to one per tenant.
type Scheduler struct {
	gw *Gateway

	mu      sync.Mutex
	cancels map[tenantKey]context.CancelFunc

	resetOnce sync.Once
}

// NewScheduler creates a scheduler bound to gw; call Start once to
// begin the daily-reset ticker, and Enable per tuple as configs turn on.
func NewScheduler(gw *Gateway) *Scheduler {
	s := &Scheduler{gw: gw, cancels: make(map[tenantKey]context.CancelFunc)}
	gw.sched = s
	return s
}

// Start begins the daily-reset ticker: a one-shot delay to the next
// local midnight, then every 24h. Safe to call at most once; later
// calls are no-ops.
func (s *Scheduler) Start(ctx context.Context) {
	s.resetOnce.Do(func() {
		go s.runDailyReset(ctx)
	})
}

func (s *Scheduler) runDailyReset(ctx context.Context) {
	now := time.Now()
	nextMidnight := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, now.Location())

	timer := time.NewTimer(nextMidnight.Sub(now))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}
	s.resetDaily(ctx)

	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.resetDaily(ctx)
		}
	}
}

func (s *Scheduler) resetDaily(ctx context.Context) {
	if err := s.gw.DB.Queries().ResetDailyTrades(ctx); err != nil {
		log.Printf("scheduler: resetting daily trade counters: %v", err)
	}
	s.gw.Risk.ResetDailyForAll()
}

// Enable starts the 30s cycle for a tuple. Re-enabling an already
// running tuple is a no-op.
func (s *Scheduler) Enable(principal, venue string) {
	key := tenantKey{principal, venue}

	s.mu.Lock()
	if _, ok := s.cancels[key]; ok {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancels[key] = cancel
	s.mu.Unlock()

	go s.runLoop(ctx, principal, venue)
}

// Restore re-enables the 30s cycle for every config already marked
// enabled in the store, matching a process restart against tenants
// that were running before shutdown.
func (s *Scheduler) Restore(ctx context.Context) error {
	configs, err := s.gw.DB.Queries().ListAutoTradeConfigs(ctx)
	if err != nil {
		return err
	}
	for _, cfg := range configs {
		if cfg.Enabled {
			s.Enable(cfg.UserID, cfg.Venue)
		}
	}
	return nil
}

// Disable cancels the running cycle for a tuple, if any. The cycle
// aborts at the next tick boundary, never mid-call.
func (s *Scheduler) Disable(principal, venue string) {
	key := tenantKey{principal, venue}

	s.mu.Lock()
	cancel, ok := s.cancels[key]
	delete(s.cancels, key)
	s.mu.Unlock()

	if ok {
		cancel()
	}
}

func (s *Scheduler) runLoop(ctx context.Context, principal, venue string) {
	ticker := time.NewTicker(autoTradeCycle)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runCycle(ctx, principal, venue)
		}
	}
}

// runCycle implements one pass of the documented auto-trade cycle per
// symbol: fetch candles, analyze, gate on confidence/decision/risk/
// daily-cap/loss-streak, size the order, and execute.
func (s *Scheduler) runCycle(ctx context.Context, principal, venue string) {
	gw := s.gw

	cfg, err := gw.DB.Queries().GetAutoTradeConfig(ctx, principal, venue)
	if err != nil || !cfg.Enabled {
		return
	}

	for _, symbol := range strings.Split(cfg.Symbols, ",") {
		symbol = strings.TrimSpace(symbol)
		if symbol == "" {
			continue
		}
		s.runSymbolCycle(ctx, principal, venue, symbol, cfg)
	}
}

func (s *Scheduler) runSymbolCycle(ctx context.Context, principal, venue, symbol string, cfg db.AutoTradeConfig) {
	gw := s.gw

	candles, err := gw.candlesFor(ctx, venue, symbol, "1h", 200)
	if err != nil || len(candles) < minCandlesForAnalysis {
		return
	}
	price := candles[len(candles)-1].Close

	riskDec := gw.riskDecisionFor(ctx, principal, venue, symbol, price)
	consensus := ai.Analyze(candles, riskDec)

	if consensus.Confidence < cfg.MinConfidence {
		return
	}
	if consensus.Signal == 0 {
		return
	}

	fresh, err := gw.DB.Queries().GetAutoTradeConfig(ctx, principal, venue)
	if err != nil {
		return
	}
	if fresh.MaxDailyTrades > 0 && fresh.DailyTradesUsed >= fresh.MaxDailyTrades {
		return
	}
	if fresh.MaxConsecutiveLosses > 0 && fresh.ConsecutiveLosses >= fresh.MaxConsecutiveLosses {
		gw.Bus.Publish(events.TopicAutoPaused, events.ScopedEvent{PrincipalID: principal, Payload: map[string]any{"venue": venue, "symbol": symbol}})
		return
	}

	side := "sell"
	if consensus.Signal > 0 {
		side = "buy"
	}

	qty, orderPrice, err := s.sizeOrder(ctx, principal, symbol, side, price, fresh.MaxPositionPct)
	if err != nil || qty <= 0 {
		return
	}

	signalID := uuid.NewString()
	if err := gw.persistSignal(ctx, signalID, symbol, venue, "1h", consensus); err != nil {
		log.Printf("scheduler: persisting signal for %s/%s/%s: %v", principal, venue, symbol, err)
	}

	order, err := gw.Exec.ExecuteOrder(ctx, executor.Params{
		UserID: principal, Venue: venue, Symbol: symbol,
		Side: side, Type: "market", Quantity: qty, Price: orderPrice,
		Source: "auto", AiSignalID: signalID,
	})
	if err != nil {
		gw.Bus.Publish(events.TopicAutoError, events.ScopedEvent{PrincipalID: principal, Payload: map[string]any{"venue": venue, "symbol": symbol, "error": err.Error()}})
		return
	}
	gw.Bus.Publish(events.TopicAutoTrade, events.ScopedEvent{PrincipalID: principal, Payload: order})
}

// sizeOrder computes the quantity per the documented truncation rule:
// on a buy, the USDT balance times maxPositionPct truncated to 2dp
// (the notional the venue's market-buy "price" parameter expects); on
// a sell, the symbol's base-token balance times maxPositionPct
// truncated to 3dp.
func (s *Scheduler) sizeOrder(ctx context.Context, principal, symbol, side string, price, maxPositionPct float64) (qty, orderPrice float64, err error) {
	wallets, err := s.gw.DB.Queries().GetWallets(ctx, principal)
	if err != nil {
		return 0, 0, err
	}

	baseToken := strings.TrimSuffix(symbol, "USDT")

	var usdt, base float64
	for _, w := range wallets {
		switch w.Token {
		case "USDT":
			usdt = w.Balance
		case baseToken:
			base = w.Balance
		}
	}

	if side == "buy" {
		notional := truncate(usdt*maxPositionPct, 2)
		return notional, notional, nil
	}
	return truncate(base*maxPositionPct, 3), price, nil
}

func truncate(v float64, decimals int) float64 {
	factor := math.Pow(10, float64(decimals))
	return math.Trunc(v*factor) / factor
}
