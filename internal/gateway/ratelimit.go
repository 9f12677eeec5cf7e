package gateway

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// requestsPerWindow and window define the per-principal budget: 100
// requests per 60s, refilled continuously rather than in hard resets.
const (
	requestsPerWindow = 100
	window            = 60 * time.Second
)

// PrincipalLimiter hands out one token-bucket limiter per principal,
// generalizing the teacher's per-IP map in internal/api/middleware.go
// to per-authenticated-principal instead of per-source-address.
type PrincipalLimiter struct {
	mu       sync.Mutex
	buckets  map[string]*rate.Limiter
	lastSeen map[string]time.Time
}

// NewPrincipalLimiter creates an empty limiter set.
func NewPrincipalLimiter() *PrincipalLimiter {
	return &PrincipalLimiter{
		buckets:  make(map[string]*rate.Limiter),
		lastSeen: make(map[string]time.Time),
	}
}

// Allow reports whether principal may make one more request right now,
// consuming a token if so.
func (p *PrincipalLimiter) Allow(principal string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	b, ok := p.buckets[principal]
	if !ok {
		b = rate.NewLimiter(rate.Every(window/requestsPerWindow), requestsPerWindow)
		p.buckets[principal] = b
	}
	p.lastSeen[principal] = time.Now()
	return b.Allow()
}

// CleanupIdle evicts buckets untouched for longer than ttl, so the map
// doesn't grow unbounded with one-shot anonymous callers.
func (p *PrincipalLimiter) CleanupIdle(ttl time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	for principal, seen := range p.lastSeen {
		if now.Sub(seen) > ttl {
			delete(p.buckets, principal)
			delete(p.lastSeen, principal)
		}
	}
}
