package executor

import (
	"context"
	"log"
	"strings"

	"trading-core/internal/events"
	"trading-core/internal/risk"
	"trading-core/pkg/db"
)

// Reconciler turns each filled venue order into the position and
// loss-streak bookkeeping the risk gate's stoploss/takeprofit check and
// the scheduler's consecutive-loss circuit breaker depend on. The first
// fill for a (principal, venue, symbol) opens a position; a later fill
// on the opposite side closes it and records a win or loss; a same-side
// fill rolls the entry price forward (averaging in is not modeled).
type Reconciler struct {
	exec *Executor
	risk *risk.MultiTenant
	bus  *events.Bus
}

// NewReconciler wires a reconciler around the executor whose fills it
// watches and the risk registry it updates.
func NewReconciler(exec *Executor, riskMT *risk.MultiTenant, bus *events.Bus) *Reconciler {
	return &Reconciler{exec: exec, risk: riskMT, bus: bus}
}

// Start subscribes to filled-order events; the subscription is torn
// down once ctx is cancelled.
func (r *Reconciler) Start(ctx context.Context) {
	ch, unsub := r.bus.Subscribe(events.TopicOrderFilled, 32)
	go r.run(ctx, ch, unsub)
}

func (r *Reconciler) run(ctx context.Context, ch <-chan any, unsub func()) {
	defer unsub()
	for {
		select {
		case <-ctx.Done():
			return
		case payload, ok := <-ch:
			if !ok {
				return
			}
			r.handle(ctx, payload)
		}
	}
}

func (r *Reconciler) handle(ctx context.Context, payload any) {
	scoped, ok := payload.(events.ScopedEvent)
	if !ok {
		return
	}
	order, ok := scoped.Payload.(db.VenueOrder)
	if !ok {
		return
	}

	price := order.FilledPrice
	if price <= 0 {
		price = order.Price
	}
	side := strings.ToUpper(order.Side)

	mgr := r.risk.GetOrCreate(order.UserID, order.Venue)
	pos, open := mgr.Position(order.Symbol)

	if !open || pos.EntryPrice <= 0 {
		mgr.OpenPosition(risk.Position{Symbol: order.Symbol, Side: side, EntryPrice: price})
		return
	}

	if side == pos.Side {
		mgr.OpenPosition(risk.Position{Symbol: order.Symbol, Side: side, EntryPrice: price})
		return
	}

	pnlPct := (price - pos.EntryPrice) / pos.EntryPrice
	if pos.Side == "SELL" {
		pnlPct = -pnlPct
	}
	mgr.ClosePosition(order.Symbol)

	if err := r.exec.RecordTradeResult(ctx, order.UserID, order.Venue, pnlPct >= 0); err != nil {
		log.Printf("reconciler: recording trade result for %s/%s: %v", order.UserID, order.Venue, err)
	}
}
