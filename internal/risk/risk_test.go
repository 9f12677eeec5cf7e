package risk

import "testing"

func TestEvaluateAllowsWithinLimits(t *testing.T) {
	m := NewManager(DefaultConfig())
	dec := m.Evaluate("BUY", "BTCUSDT", 50000, 10000)
	if !dec.Allowed {
		t.Fatalf("expected allowed, got %+v", dec)
	}
	if len(dec.Risks) != 0 {
		t.Errorf("expected no risk flags, got %v", dec.Risks)
	}
	if got, want := dec.MaxSize, 1000.0; got != want {
		t.Errorf("maxSize = %v, want %v", got, want)
	}
}

func TestEvaluateBlocksAtDailyTradeCap(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxDailyTrades = 2
	m := NewManager(cfg)

	m.RecordTrade()
	m.RecordTrade()

	dec := m.Evaluate("BUY", "BTCUSDT", 50000, 10000)
	if dec.Allowed {
		t.Fatalf("expected blocked at daily cap, got %+v", dec)
	}
	if !containsRisk(dec.Risks, RiskDailyCap) {
		t.Errorf("expected %s risk flag, got %v", RiskDailyCap, dec.Risks)
	}
}

func TestEvaluateBlocksOnDrawdown(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxDrawdown = 0.15
	m := NewManager(cfg)

	// Peak balance established at 10000; a drop to 8000 is a 20% drawdown.
	m.Evaluate("BUY", "BTCUSDT", 50000, 10000)
	dec := m.Evaluate("BUY", "BTCUSDT", 50000, 8000)

	if dec.Allowed {
		t.Fatalf("expected blocked at drawdown breach, got %+v", dec)
	}
	if !containsRisk(dec.Risks, RiskDrawdown) {
		t.Errorf("expected %s risk flag, got %v", RiskDrawdown, dec.Risks)
	}
	if dec.Drawdown < 0.2-1e-9 {
		t.Errorf("drawdown = %v, want ~0.2", dec.Drawdown)
	}
}

func TestEvaluateFlagsStopLossOnLongLoss(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StopLossPct = 0.03
	m := NewManager(cfg)
	m.OpenPosition(Position{Symbol: "BTCUSDT", Side: "BUY", EntryPrice: 50000})

	dec := m.Evaluate("SELL", "BTCUSDT", 48000, 10000) // -4% from entry
	if !containsRisk(dec.Risks, RiskStopLoss) {
		t.Errorf("expected stoploss flag, got %v", dec.Risks)
	}
	// Stoploss is advisory, not blocking on its own.
	if !dec.Allowed {
		t.Errorf("expected stoploss flag to remain advisory, got blocked: %+v", dec)
	}
}

func TestEvaluateFlagsTakeProfitOnLongGain(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TakeProfitPct = 0.06
	m := NewManager(cfg)
	m.OpenPosition(Position{Symbol: "BTCUSDT", Side: "BUY", EntryPrice: 50000})

	dec := m.Evaluate("SELL", "BTCUSDT", 53500, 10000) // +7% from entry
	if !containsRisk(dec.Risks, RiskTakeProfit) {
		t.Errorf("expected takeprofit flag, got %v", dec.Risks)
	}
}

func TestEvaluateFlagsStopLossOnShortLoss(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StopLossPct = 0.03
	m := NewManager(cfg)
	m.OpenPosition(Position{Symbol: "BTCUSDT", Side: "SELL", EntryPrice: 50000})

	dec := m.Evaluate("BUY", "BTCUSDT", 52000, 10000) // price rose 4%, a loss for a short
	if !containsRisk(dec.Risks, RiskStopLoss) {
		t.Errorf("expected stoploss flag for short position, got %v", dec.Risks)
	}
}

func TestClosePositionStopsFlagging(t *testing.T) {
	m := NewManager(DefaultConfig())
	m.OpenPosition(Position{Symbol: "BTCUSDT", Side: "BUY", EntryPrice: 50000})
	m.ClosePosition("BTCUSDT")

	dec := m.Evaluate("SELL", "BTCUSDT", 10000, 10000)
	if len(dec.Risks) != 0 {
		t.Errorf("expected no risk flags after closing position, got %v", dec.Risks)
	}
}

func TestResetDailyClearsCounter(t *testing.T) {
	m := NewManager(DefaultConfig())
	m.RecordTrade()
	m.RecordTrade()
	if m.DailyTrades() != 2 {
		t.Fatalf("expected 2 daily trades, got %d", m.DailyTrades())
	}
	m.ResetDaily()
	if m.DailyTrades() != 0 {
		t.Errorf("expected daily trades reset to 0, got %d", m.DailyTrades())
	}
}

func TestMultiTenantIsolatesTenants(t *testing.T) {
	mt := NewMultiTenant(DefaultConfig())

	a := mt.GetOrCreate("alice", "venuea")
	b := mt.GetOrCreate("bob", "venuea")
	a.RecordTrade()

	if b.DailyTrades() != 0 {
		t.Errorf("expected bob's manager to be unaffected by alice's trade")
	}
	if mt.TenantCount() != 2 {
		t.Errorf("expected 2 tenants, got %d", mt.TenantCount())
	}

	same := mt.GetOrCreate("alice", "venuea")
	if same != a {
		t.Errorf("expected GetOrCreate to return the same manager for an existing tenant")
	}
}

func TestMultiTenantRemove(t *testing.T) {
	mt := NewMultiTenant(DefaultConfig())
	mt.GetOrCreate("alice", "venuea")
	mt.Remove("alice", "venuea")

	if mt.Get("alice", "venuea") != nil {
		t.Errorf("expected manager to be removed")
	}
	if mt.TenantCount() != 0 {
		t.Errorf("expected 0 tenants after remove, got %d", mt.TenantCount())
	}
}

func TestMultiTenantResetDailyForAll(t *testing.T) {
	mt := NewMultiTenant(DefaultConfig())
	a := mt.GetOrCreate("alice", "venuea")
	b := mt.GetOrCreate("bob", "venueb")
	a.RecordTrade()
	b.RecordTrade()

	mt.ResetDailyForAll()

	if a.DailyTrades() != 0 || b.DailyTrades() != 0 {
		t.Errorf("expected all tenants reset, got a=%d b=%d", a.DailyTrades(), b.DailyTrades())
	}
}

func containsRisk(risks []string, want string) bool {
	for _, r := range risks {
		if r == want {
			return true
		}
	}
	return false
}
