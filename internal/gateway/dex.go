package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"trading-core/internal/dex"
	"trading-core/internal/events"
	"trading-core/pkg/db"
)

func (g *Gateway) routeDex(ctx context.Context, action string, params map[string]any, principal string) (map[string]any, error) {
	switch action {
	case "summary":
		return g.dexSummary(ctx)
	case "pools":
		return g.dexPools(ctx)
	case "tokens":
		return g.dexTokens(ctx)
	case "orderbook":
		poolID, err := paramString(params, "poolId")
		if err != nil {
			return nil, err
		}
		return g.dexOrderbook(poolID)
	case "history":
		return g.dexHistory(ctx, principal, params)
	case "balances":
		return g.dexBalances(ctx, principal)
	case "swap":
		poolID, err := paramString(params, "poolId")
		if err != nil {
			return nil, err
		}
		tokenIn, err := paramString(params, "tokenIn")
		if err != nil {
			return nil, err
		}
		amount, err := paramFloat(params, "amount")
		if err != nil {
			return nil, err
		}
		return g.Swap(ctx, principal, poolID, tokenIn, amount)
	case "addLiquidity":
		poolID, err := paramString(params, "poolId")
		if err != nil {
			return nil, err
		}
		amountA, err := paramFloat(params, "amountA")
		if err != nil {
			return nil, err
		}
		amountB, err := paramFloat(params, "amountB")
		if err != nil {
			return nil, err
		}
		return g.AddLiquidity(ctx, principal, poolID, amountA, amountB)
	case "placeOrder":
		poolID, err := paramString(params, "poolId")
		if err != nil {
			return nil, err
		}
		side, err := paramString(params, "side")
		if err != nil {
			return nil, err
		}
		price, err := paramFloat(params, "price")
		if err != nil {
			return nil, err
		}
		amount, err := paramFloat(params, "amount")
		if err != nil {
			return nil, err
		}
		return g.PlaceLimitOrder(ctx, principal, poolID, side, price, amount)
	case "cancelOrder":
		orderID, err := paramString(params, "orderId")
		if err != nil {
			return nil, err
		}
		return g.CancelLimitOrder(ctx, principal, orderID)
	case "poolHistory":
		poolID, err := paramString(params, "poolId")
		if err != nil {
			return nil, err
		}
		return g.dexPoolHistory(ctx, poolID, params)
	default:
		return nil, ErrUnknownAction
	}
}

func (g *Gateway) dexSummary(ctx context.Context) (map[string]any, error) {
	pools := g.Engine.Pools()
	return wrapCTP("○", map[string]any{"pools": len(pools), "tokens": len(g.Engine.Tokens())}), nil
}

func (g *Gateway) dexPools(ctx context.Context) (map[string]any, error) {
	return wrapCTP("○", map[string]any{"pools": g.Engine.Pools()}), nil
}

func (g *Gateway) dexTokens(ctx context.Context) (map[string]any, error) {
	return wrapCTP("○", map[string]any{"tokens": g.Engine.Tokens()}), nil
}

func (g *Gateway) dexOrderbook(poolID string) (map[string]any, error) {
	if _, ok := g.Engine.Pool(poolID); !ok {
		return nil, ErrPoolNotFound
	}
	return wrapCTP("○", map[string]any{"orders": g.Engine.Book.OpenOrders(poolID)}), nil
}

func (g *Gateway) dexHistory(ctx context.Context, principal string, params map[string]any) (map[string]any, error) {
	limit := 50
	if l, err := paramFloat(params, "limit"); err == nil && l > 0 {
		limit = int(l)
	}
	swaps, err := g.DB.Queries().SwapsByUser(ctx, principal, limit)
	if err != nil {
		return nil, err
	}
	return wrapCTP("○", map[string]any{"swaps": swaps}), nil
}

// dexPoolHistory reads back the capped pool_price_history table a swap
// appends to on every fill, shaped as {t, priceAinB} samples oldest
// first.
func (g *Gateway) dexPoolHistory(ctx context.Context, poolID string, params map[string]any) (map[string]any, error) {
	if _, ok := g.Engine.Pool(poolID); !ok {
		return nil, ErrPoolNotFound
	}

	limit := 200
	if l, err := paramFloat(params, "limit"); err == nil && l > 0 {
		limit = int(l)
	}

	points, err := g.DB.Queries().PriceHistory(ctx, poolID, limit)
	if err != nil {
		return nil, err
	}

	samples := make([]map[string]any, len(points))
	for i, p := range points {
		samples[len(points)-1-i] = map[string]any{"t": p.Timestamp, "priceAinB": p.Price}
	}
	return wrapCTP("○", map[string]any{"poolId": poolID, "history": samples}), nil
}

func (g *Gateway) dexBalances(ctx context.Context, principal string) (map[string]any, error) {
	wallets, err := g.DB.Queries().GetWallets(ctx, principal)
	if err != nil {
		return nil, err
	}
	return wrapCTP("○", map[string]any{"wallets": wallets}), nil
}

// Swap runs the subtract -> engine swap -> credit -> log -> persist
// pool sequence inside one DB transaction, matching the all-or-nothing
// contract for a principal's wallet rows and the swap log. The
// in-memory pool's reserves mutate as soon as the engine call succeeds
// and are not themselves transactional with the DB commit that
// follows — a split-brain window shared with every cache-plus-store
// design of this shape, accepted here rather than adding a two-phase
// reserve-commit protocol for a single-process deployment.
func (g *Gateway) Swap(ctx context.Context, principal, poolID, tokenIn string, amount float64) (map[string]any, error) {
	pool, ok := g.Engine.Pool(poolID)
	if !ok {
		return nil, ErrPoolNotFound
	}
	tokenOut, err := dex.OtherToken(pool, tokenIn)
	if err != nil {
		return nil, err
	}

	var result dex.SwapResult
	swapRow := db.Swap{ID: uuid.NewString(), UserID: principal, PoolID: poolID, TokenIn: tokenIn, TokenOut: tokenOut, CreatedAt: time.Now()}

	err = g.DB.Transaction(ctx, func(q *db.Queries) error {
		if err := q.SubtractBalance(ctx, principal, tokenIn, amount); err != nil {
			return err
		}
		result, err = pool.Swap(tokenIn, amount)
		if err != nil {
			return err
		}
		if err := q.AddBalance(ctx, principal, tokenOut, result.AmountOut); err != nil {
			return err
		}

		snap := pool.Snapshot()
		if err := q.UpsertPool(ctx, snapshotToRow(snap), snap.LPHolders); err != nil {
			return err
		}
		if err := q.AppendPricePoint(ctx, poolID, snap.ReserveB/max(snap.ReserveA, 1), snap.UpdatedAt); err != nil {
			return err
		}

		swapRow.AmountIn = amount
		swapRow.AmountOut = result.AmountOut
		swapRow.Fee = result.Fee
		swapRow.Slippage = result.Impact
		swapRow.PriceImpact = result.Impact
		swapRow.TritState = result.Trit
		return q.AppendSwap(ctx, swapRow)
	})
	if err != nil {
		return nil, err
	}

	g.Bus.Publish(events.TopicSwap, events.ScopedEvent{PrincipalID: principal, Payload: swapRow})
	return wrapCTP(swapRow.TritState, map[string]any{
		"poolId":    poolID,
		"amountIn":  amount,
		"amountOut": result.AmountOut,
		"fee":       result.Fee,
		"impact":    result.Impact,
	}), nil
}

// AddLiquidity debits both sides of the pair, mints LP shares through
// the engine, and persists the new pool snapshot — all inside one
// transaction.
func (g *Gateway) AddLiquidity(ctx context.Context, principal, poolID string, amountA, amountB float64) (map[string]any, error) {
	pool, ok := g.Engine.Pool(poolID)
	if !ok {
		return nil, ErrPoolNotFound
	}

	var shares float64
	err := g.DB.Transaction(ctx, func(q *db.Queries) error {
		if err := q.SubtractBalance(ctx, principal, pool.TokenA, amountA); err != nil {
			return err
		}
		if err := q.SubtractBalance(ctx, principal, pool.TokenB, amountB); err != nil {
			return err
		}
		var err error
		shares, err = pool.AddLiquidity(principal, amountA, amountB)
		if err != nil {
			return err
		}
		snap := pool.Snapshot()
		return q.UpsertPool(ctx, snapshotToRow(snap), snap.LPHolders)
	})
	if err != nil {
		return nil, err
	}

	g.Bus.Publish(events.TopicLiquidity, events.ScopedEvent{PrincipalID: principal, Payload: map[string]any{"poolId": poolID, "shares": shares}})
	return wrapCTP("○", map[string]any{"poolId": poolID, "shares": shares}), nil
}

// PlaceLimitOrder locks the offered side's balance, places the order
// against the engine's shared book, and runs one matching pass. Every
// fill the pass produces is settled in the same transaction: the
// maker and taker's locked balances are spent at the fill price and
// the proceeds credited to each side's free balance, so the book and
// the wallets never observe an order as "filled" without money having
// moved.
func (g *Gateway) PlaceLimitOrder(ctx context.Context, principal, poolID, side string, price, amount float64) (map[string]any, error) {
	pool, ok := g.Engine.Pool(poolID)
	if !ok {
		return nil, ErrPoolNotFound
	}

	lockToken, lockAmount := pool.TokenA, amount
	if side == dex.SideBuy {
		lockToken, lockAmount = pool.TokenB, price*amount
	}

	order := &dex.Order{ID: uuid.NewString(), OwnerID: principal, PoolID: poolID, Side: side, Price: price, Amount: amount, CreatedAt: time.Now()}

	var matches []dex.Match
	err := g.DB.Transaction(ctx, func(q *db.Queries) error {
		if err := q.LockBalance(ctx, principal, lockToken, lockAmount); err != nil {
			return err
		}
		if err := q.UpsertLimitOrder(ctx, db.LimitOrder{ID: order.ID, OwnerID: order.OwnerID, PoolID: order.PoolID, Side: order.Side, Price: order.Price, Amount: order.Amount, Status: dex.StatusOpen, CreatedAt: order.CreatedAt}); err != nil {
			return err
		}

		g.Engine.Book.Place(order)
		matches = g.Engine.Book.Match(poolID)

		for _, m := range matches {
			if err := g.settleMatch(ctx, q, pool, m); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	g.Bus.Publish(events.TopicOrder, events.ScopedEvent{PrincipalID: principal, Payload: map[string]any{"order": order, "matches": matches}})
	return wrapCTP("○", map[string]any{"orderId": order.ID, "matches": matches}), nil
}

// settleMatch moves wallet balances for one fill. The buyer locked
// buy.Price*amount of TokenB when the order was placed but fills at
// the resting sell's (maker) price, so any price improvement is
// unlocked back to free balance before the fill itself is spent out of
// what remains locked. The seller locked amount of TokenA 1:1, so its
// spend always equals the full locked amount for that fill.
func (g *Gateway) settleMatch(ctx context.Context, q *db.Queries, pool *dex.Pool, m dex.Match) error {
	buy, ok := g.Engine.Book.OrderByID(m.BuyOrderID)
	if !ok {
		return fmt.Errorf("gateway: matched buy order %s vanished from book", m.BuyOrderID)
	}
	sell, ok := g.Engine.Book.OrderByID(m.SellOrderID)
	if !ok {
		return fmt.Errorf("gateway: matched sell order %s vanished from book", m.SellOrderID)
	}

	buySpend := m.Price * m.Amount
	if improvement := (buy.Price - m.Price) * m.Amount; improvement > 0 {
		if err := q.UnlockBalance(ctx, buy.OwnerID, pool.TokenB, improvement); err != nil {
			return err
		}
	}
	if err := q.SpendLocked(ctx, buy.OwnerID, pool.TokenB, buySpend); err != nil {
		return err
	}
	if err := q.AddBalance(ctx, buy.OwnerID, pool.TokenA, m.Amount); err != nil {
		return err
	}

	if err := q.SpendLocked(ctx, sell.OwnerID, pool.TokenA, m.Amount); err != nil {
		return err
	}
	if err := q.AddBalance(ctx, sell.OwnerID, pool.TokenB, buySpend); err != nil {
		return err
	}

	if err := q.UpsertLimitOrder(ctx, db.LimitOrder{ID: buy.ID, OwnerID: buy.OwnerID, PoolID: buy.PoolID, Side: buy.Side, Price: buy.Price, Amount: buy.Amount, Filled: buy.Filled, Status: buy.Status, CreatedAt: buy.CreatedAt}); err != nil {
		return err
	}
	return q.UpsertLimitOrder(ctx, db.LimitOrder{ID: sell.ID, OwnerID: sell.OwnerID, PoolID: sell.PoolID, Side: sell.Side, Price: sell.Price, Amount: sell.Amount, Filled: sell.Filled, Status: sell.Status, CreatedAt: sell.CreatedAt})
}

// CancelLimitOrder releases a still-open order's remaining locked
// balance and marks it cancelled. Only the order's own owner may
// cancel it.
func (g *Gateway) CancelLimitOrder(ctx context.Context, principal, orderID string) (map[string]any, error) {
	order, ok := g.Engine.Book.OrderByID(orderID)
	if !ok {
		return nil, ErrOrderNotFound
	}
	if order.OwnerID != principal {
		return nil, ErrNotOrderOwner
	}

	pool, ok := g.Engine.Pool(order.PoolID)
	if !ok {
		return nil, ErrPoolNotFound
	}

	remaining := order.Remaining()
	lockToken, lockAmount := pool.TokenA, remaining
	if order.Side == dex.SideBuy {
		lockToken, lockAmount = pool.TokenB, order.Price*remaining
	}

	cancelled, ok := g.Engine.Book.Cancel(orderID)
	if !ok {
		return nil, ErrOrderNotFound
	}

	err := g.DB.Transaction(ctx, func(q *db.Queries) error {
		if err := q.UnlockBalance(ctx, principal, lockToken, lockAmount); err != nil {
			return err
		}
		return q.UpsertLimitOrder(ctx, db.LimitOrder{ID: cancelled.ID, OwnerID: cancelled.OwnerID, PoolID: cancelled.PoolID, Side: cancelled.Side, Price: cancelled.Price, Amount: cancelled.Amount, Filled: cancelled.Filled, Status: cancelled.Status, CreatedAt: cancelled.CreatedAt})
	})
	if err != nil {
		return nil, err
	}

	g.Bus.Publish(events.TopicOrder, events.ScopedEvent{PrincipalID: principal, Payload: map[string]any{"orderId": orderID, "cancelled": true}})
	return wrapCTP("○", map[string]any{"orderId": orderID, "status": dex.StatusCancelled}), nil
}

func snapshotToRow(snap dex.PoolState) db.Pool {
	return db.Pool{
		ID: snap.ID, TokenA: snap.TokenA, TokenB: snap.TokenB,
		ReserveA: snap.ReserveA, ReserveB: snap.ReserveB, FeeBps: snap.FeeBps,
		TotalLPShares: snap.TotalLPShares, Volume24h: snap.Volume24h,
		FeesCollected: snap.FeesCollected, SwapCount: snap.SwapCount, UpdatedAt: snap.UpdatedAt,
	}
}
