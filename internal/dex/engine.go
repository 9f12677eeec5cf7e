package dex

import (
	"fmt"
	"sync"
)

// Engine owns the fixed token registry, the pool set, and the shared
// order book. It's the one object the gateway talks to for every DEX
// operation.
type Engine struct {
	mu     sync.RWMutex
	tokens map[string]Token
	pools  map[string]*Pool
	Book   *OrderBook
}

// NewEngine bootstraps the fixed token registry and six pools, matching
// the startup set every deployment of this system begins with. System
// liquidity is not seeded here — that's the caller's job once it has
// a system wallet's balances to draw from.
func NewEngine() *Engine {
	e := &Engine{
		tokens: make(map[string]Token),
		pools:  make(map[string]*Pool),
		Book:   NewOrderBook(),
	}
	for _, t := range BootstrapTokens() {
		e.tokens[t.Symbol] = t
	}
	for _, seed := range BootstrapPools() {
		p := NewPool(seed.TokenA, seed.TokenB, seed.FeeBps)
		e.pools[p.ID] = p
	}
	return e
}

// Token looks up a registered token by symbol.
func (e *Engine) Token(symbol string) (Token, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	t, ok := e.tokens[symbol]
	return t, ok
}

// Tokens returns every registered token.
func (e *Engine) Tokens() []Token {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Token, 0, len(e.tokens))
	for _, t := range e.tokens {
		out = append(out, t)
	}
	return out
}

// Pool returns the pool for a given id, or false if it doesn't exist.
func (e *Engine) Pool(poolID string) (*Pool, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	p, ok := e.pools[poolID]
	return p, ok
}

// PoolForPair finds a pool by its two tokens regardless of order.
func (e *Engine) PoolForPair(tokenA, tokenB string) (*Pool, bool) {
	if p, ok := e.Pool(PoolID(tokenA, tokenB)); ok {
		return p, true
	}
	return e.Pool(PoolID(tokenB, tokenA))
}

// Pools returns a snapshot of every pool's public state.
func (e *Engine) Pools() []PoolState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]PoolState, 0, len(e.pools))
	for _, p := range e.pools {
		out = append(out, p.Snapshot())
	}
	return out
}

// OtherToken returns the pool's counterpart to a given token symbol.
func OtherToken(p *Pool, token string) (string, error) {
	switch token {
	case p.TokenA:
		return p.TokenB, nil
	case p.TokenB:
		return p.TokenA, nil
	default:
		return "", fmt.Errorf("token %q not in pool %s", token, p.ID)
	}
}
