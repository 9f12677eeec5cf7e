package risk

import (
	"sync"
)

// Manager evaluates trade requests for a single (principal, venue) pair.
// It tracks the rolling peak balance for drawdown detection, the day's
// trade count, and any open positions being watched for stoploss/
// takeprofit triggers.
type Manager struct {
	mu sync.Mutex

	cfg Config

	peakBalance float64
	dailyTrades int

	positions map[string]Position // keyed by symbol
}

// NewManager creates a risk manager with the given config.
func NewManager(cfg Config) *Manager {
	return &Manager{
		cfg:       cfg,
		positions: make(map[string]Position),
	}
}

// SetConfig replaces the active config (e.g. after a user edits their
// auto-trade settings).
func (m *Manager) SetConfig(cfg Config) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg = cfg
}

// Config returns a copy of the active config.
func (m *Manager) Config() Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg
}

// Evaluate runs the risk gate for a prospective action on a symbol at a
// given price against the account's current balance. It never mutates
// trade or position state — callers record those explicitly via
// RecordTrade/OpenPosition/ClosePosition once an order is accepted.
func (m *Manager) Evaluate(action, symbol string, price, balance float64) Decision {
	m.mu.Lock()
	defer m.mu.Unlock()

	dec := Decision{Allowed: true}

	if balance > m.peakBalance {
		m.peakBalance = balance
	}
	if m.peakBalance > 0 {
		dec.Drawdown = (m.peakBalance - balance) / m.peakBalance
	}

	if m.cfg.MaxDailyTrades > 0 && m.dailyTrades >= m.cfg.MaxDailyTrades {
		dec.Allowed = false
		dec.Risks = append(dec.Risks, RiskDailyCap)
	}

	if m.cfg.MaxDrawdown > 0 && dec.Drawdown > m.cfg.MaxDrawdown {
		dec.Allowed = false
		dec.Risks = append(dec.Risks, RiskDrawdown)
	}

	dec.MaxSize = balance * m.cfg.MaxPositionSize

	if pos, ok := m.positions[symbol]; ok && pos.EntryPrice > 0 {
		pnlPct := (price - pos.EntryPrice) / pos.EntryPrice
		if pos.Side == "SELL" {
			pnlPct = -pnlPct
		}
		if m.cfg.StopLossPct > 0 && pnlPct <= -m.cfg.StopLossPct {
			dec.Risks = append(dec.Risks, RiskStopLoss)
		}
		if m.cfg.TakeProfitPct > 0 && pnlPct >= m.cfg.TakeProfitPct {
			dec.Risks = append(dec.Risks, RiskTakeProfit)
		}
	}

	return dec
}

// RecordTrade increments the day's trade counter. Called once an order
// placed through the gate is actually accepted by the executor.
func (m *Manager) RecordTrade() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dailyTrades++
}

// ResetDaily zeroes the day's trade counter. Called by the scheduler's
// daily-reset ticker.
func (m *Manager) ResetDaily() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dailyTrades = 0
}

// DailyTrades returns the current day's trade count.
func (m *Manager) DailyTrades() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dailyTrades
}

// OpenPosition records an open position to watch for stoploss/takeprofit
// triggers on future Evaluate calls.
func (m *Manager) OpenPosition(pos Position) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions[pos.Symbol] = pos
}

// ClosePosition stops watching a symbol's position.
func (m *Manager) ClosePosition(symbol string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.positions, symbol)
}

// Position returns the tracked position for a symbol, if any.
func (m *Manager) Position(symbol string) (Position, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pos, ok := m.positions[symbol]
	return pos, ok
}
