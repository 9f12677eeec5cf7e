package gateway

import (
	"context"
	"errors"
	"time"

	"trading-core/pkg/crypto"
	"trading-core/pkg/db"
)

// Defaults an auto-trade config is seeded with on enable, matching the
// scheduler's documented cycle assumptions.
const (
	defaultSymbols           = "BTCUSDT,ETHUSDT"
	defaultMaxPositionPct    = 0.10
	defaultStopLossPct       = 0.03
	defaultTakeProfitPct     = 0.06
	defaultMinConfidence     = 0.7
	defaultMaxDailyTrades    = 10
	defaultMaxConsecutiveLosses = 3
)

var ErrKeysRequired = errors.New("gateway: venue keys must be saved before enabling auto-trade")

func (g *Gateway) routeAuto(ctx context.Context, action string, params map[string]any, principal string) (map[string]any, error) {
	switch action {
	case "enable":
		venue, err := paramString(params, "exchange")
		if err != nil {
			return nil, err
		}
		return g.autoEnable(ctx, principal, venue)
	case "disable":
		venue, err := paramString(params, "exchange")
		if err != nil {
			return nil, err
		}
		return g.autoDisable(ctx, principal, venue)
	case "status":
		venue, err := paramString(params, "exchange")
		if err != nil {
			return nil, err
		}
		return g.autoStatus(ctx, principal, venue)
	case "saveApiKeys":
		return g.autoSaveKeys(ctx, principal, params)
	case "getApiKeys":
		venue, err := paramString(params, "exchange")
		if err != nil {
			return nil, err
		}
		return g.autoGetKeys(ctx, principal, venue)
	case "deleteApiKeys":
		venue, err := paramString(params, "exchange")
		if err != nil {
			return nil, err
		}
		return g.autoDeleteKeys(ctx, principal, venue)
	default:
		return nil, ErrUnknownAction
	}
}

func (g *Gateway) autoEnable(ctx context.Context, principal, venue string) (map[string]any, error) {
	if _, err := g.DB.Queries().GetKeyRecord(ctx, principal, venue); errors.Is(err, db.ErrNotFound) {
		return nil, ErrKeysRequired
	} else if err != nil {
		return nil, err
	}

	existing, err := g.DB.Queries().GetAutoTradeConfig(ctx, principal, venue)
	if err == nil && existing.Enabled {
		return wrapCTP("○", map[string]any{"config": existing}), nil
	}

	cfg := db.AutoTradeConfig{
		UserID: principal, Venue: venue, Enabled: true,
		Symbols: defaultSymbols, MaxPositionPct: defaultMaxPositionPct,
		StopLossPct: defaultStopLossPct, TakeProfitPct: defaultTakeProfitPct,
		MinConfidence: defaultMinConfidence, MaxDailyTrades: defaultMaxDailyTrades,
		MaxConsecutiveLosses: defaultMaxConsecutiveLosses,
		UpdatedAt:            time.Now(),
	}
	if err := g.DB.Queries().UpsertAutoTradeConfig(ctx, cfg); err != nil {
		return nil, err
	}
	if g.sched != nil {
		g.sched.Enable(principal, venue)
	}
	return wrapCTP("○", map[string]any{"config": cfg}), nil
}

func (g *Gateway) autoDisable(ctx context.Context, principal, venue string) (map[string]any, error) {
	cfg, err := g.DB.Queries().GetAutoTradeConfig(ctx, principal, venue)
	if errors.Is(err, db.ErrNotFound) {
		return wrapCTP("○", map[string]any{"disabled": true}), nil
	}
	if err != nil {
		return nil, err
	}
	cfg.Enabled = false
	cfg.UpdatedAt = time.Now()
	if err := g.DB.Queries().UpsertAutoTradeConfig(ctx, cfg); err != nil {
		return nil, err
	}
	if g.sched != nil {
		g.sched.Disable(principal, venue)
	}
	return wrapCTP("○", map[string]any{"disabled": true}), nil
}

func (g *Gateway) autoStatus(ctx context.Context, principal, venue string) (map[string]any, error) {
	cfg, err := g.DB.Queries().GetAutoTradeConfig(ctx, principal, venue)
	if errors.Is(err, db.ErrNotFound) {
		return wrapCTP("○", map[string]any{"enabled": false}), nil
	}
	if err != nil {
		return nil, err
	}
	return wrapCTP("○", map[string]any{"config": cfg}), nil
}

func (g *Gateway) autoSaveKeys(ctx context.Context, principal string, params map[string]any) (map[string]any, error) {
	venue, err := paramString(params, "exchange")
	if err != nil {
		return nil, err
	}
	accessKey, err := paramString(params, "accessKey")
	if err != nil {
		return nil, err
	}
	secretKey, err := paramString(params, "secretKey")
	if err != nil {
		return nil, err
	}

	accessCipher, secretCipher, iv, tag, err := g.Vault.SealKeyPair(accessKey, secretKey)
	if err != nil {
		return nil, err
	}
	err = g.DB.Queries().UpsertKeyRecord(ctx, db.KeyRecord{
		UserID: principal, Venue: venue,
		AccessKeyCipher: accessCipher, SecretKeyCipher: secretCipher,
		IV: iv, AuthTag: tag, Permissions: "trade", CreatedAt: time.Now(),
	})
	if err != nil {
		return nil, err
	}

	g.Exec.Invalidate(principal, venue)
	if g.sched != nil {
		g.sched.Disable(principal, venue)
	}
	return wrapCTP("○", map[string]any{"saved": true}), nil
}

func (g *Gateway) autoGetKeys(ctx context.Context, principal, venue string) (map[string]any, error) {
	rec, err := g.DB.Queries().GetKeyRecord(ctx, principal, venue)
	if errors.Is(err, db.ErrNotFound) {
		return wrapCTP("○", map[string]any{"keys": nil}), nil
	}
	if err != nil {
		return nil, err
	}
	accessKey, secretKey, err := g.Vault.OpenKeyPair(rec.AccessKeyCipher, rec.SecretKeyCipher, rec.IV, rec.AuthTag)
	if err != nil {
		return nil, err
	}
	maskedAccess, maskedSecret := crypto.MaskKeyPair(accessKey, secretKey)
	return wrapCTP("○", map[string]any{"accessKey": maskedAccess, "secretKey": maskedSecret}), nil
}

func (g *Gateway) autoDeleteKeys(ctx context.Context, principal, venue string) (map[string]any, error) {
	if err := g.DB.Queries().DeleteKeyRecord(ctx, principal, venue); err != nil {
		return nil, err
	}
	g.Exec.Invalidate(principal, venue)
	if g.sched != nil {
		g.sched.Disable(principal, venue)
	}
	return wrapCTP("○", map[string]any{"deleted": true}), nil
}
