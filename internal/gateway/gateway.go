// Package gateway is the single entry point every transport (HTTP,
// websocket, auto-trade scheduler) calls through: one Route dispatches
// to the dex/ai/exchange/market/auto services, applies the per-principal rate
// limit ahead of every call, and wraps every response in the CTP
// envelope.
package gateway

import (
	"context"
	"errors"

	"trading-core/internal/ai/externalclient"
	"trading-core/internal/dex"
	"trading-core/internal/events"
	"trading-core/internal/executor"
	"trading-core/internal/risk"
	"trading-core/pkg/crypto"
	"trading-core/pkg/db"
	"trading-core/pkg/exchanges/common"
)

var (
	ErrRateLimited      = errors.New("gateway: rate limit exceeded")
	ErrUnknownService   = errors.New("gateway: unknown service")
	ErrUnknownAction    = errors.New("gateway: unknown action")
	ErrMissingParam     = errors.New("gateway: missing required parameter")
	ErrPoolNotFound     = errors.New("gateway: pool not found")
	ErrUnsupportedVenue = errors.New("gateway: unsupported venue")
	ErrOrderNotFound    = errors.New("gateway: limit order not found or already closed")
	ErrNotOrderOwner    = errors.New("gateway: limit order belongs to a different principal")
)

// Gateway owns every process-wide component the route handlers touch:
// the DEX engine, the persisted store, the event bus, the per-tenant
// risk manager, the order executor, the key vault, and one public
// market-data client per external venue.
type Gateway struct {
	DB       *db.Database
	Bus      *events.Bus
	Engine   *dex.Engine
	Risk     *risk.MultiTenant
	Exec     *executor.Executor
	Vault    *crypto.Vault
	Venues   map[string]common.Client // venue -> public market-data client
	Augmenter *externalclient.Client  // optional, may be nil
	Log      *events.Log

	limiter *PrincipalLimiter
	sched   *Scheduler
}

// eventLogCapacity bounds the in-memory ring buffer GET /api/events reads from.
const eventLogCapacity = 500

// New wires a Gateway from its already-constructed components and
// starts no background work; call NewScheduler and Scheduler.Start
// separately once the
// caller is ready for the auto-trade loop to begin.
func New(database *db.Database, bus *events.Bus, engine *dex.Engine, riskMgr *risk.MultiTenant, exec *executor.Executor, vault *crypto.Vault, venues map[string]common.Client) *Gateway {
	return &Gateway{
		DB:      database,
		Bus:     bus,
		Engine:  engine,
		Risk:    riskMgr,
		Exec:    exec,
		Vault:   vault,
		Venues:  venues,
		Log:     events.NewLog(bus, eventLogCapacity, database),
		limiter: NewPrincipalLimiter(),
	}
}

// Route is the single entry point: every caller, regardless of
// transport, funnels through here.
func (g *Gateway) Route(ctx context.Context, service, action string, params map[string]any, principal string) (map[string]any, error) {
	limitKey := principal
	if limitKey == "" {
		limitKey = "anonymous"
	}
	if !g.limiter.Allow(limitKey) {
		return nil, ErrRateLimited
	}

	switch service {
	case "dex":
		return g.routeDex(ctx, action, params, principal)
	case "ai":
		return g.routeAI(ctx, action, params, principal)
	case "exchange":
		return g.routeExchange(ctx, action, params, principal)
	case "auto":
		return g.routeAuto(ctx, action, params, principal)
	case "market":
		return g.routeMarket(ctx, action, params)
	default:
		return nil, ErrUnknownService
	}
}

func paramString(params map[string]any, key string) (string, error) {
	v, ok := params[key]
	if !ok {
		return "", ErrMissingParam
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", ErrMissingParam
	}
	return s, nil
}

func paramFloat(params map[string]any, key string) (float64, error) {
	v, ok := params[key]
	if !ok {
		return 0, ErrMissingParam
	}
	switch f := v.(type) {
	case float64:
		return f, nil
	case int:
		return float64(f), nil
	default:
		return 0, ErrMissingParam
	}
}

// candlesFor fetches candles from the named venue's public client,
// satisfying the AI service's "require >= 50" precondition.
func (g *Gateway) candlesFor(ctx context.Context, venue, symbol, interval string, limit int) ([]common.Candle, error) {
	client, ok := g.Venues[venue]
	if !ok {
		return nil, ErrUnsupportedVenue
	}
	return client.GetCandles(ctx, symbol, interval, limit)
}
