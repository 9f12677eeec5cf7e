package executor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"trading-core/internal/events"
	"trading-core/pkg/crypto"
	"trading-core/pkg/db"
	"trading-core/pkg/exchanges/common"
)

type tenantKey struct {
	userID string
	venue  string
}

// ClientFactory builds a venue client from a decrypted key pair. The
// caller wires one closure per deployment (typically dispatching on
// venue to venuea.New / venueb.New).
type ClientFactory func(venue, accessKey, secretKey string) (common.Client, error)

// Executor resolves venue clients per (principal, venue), runs the
// safety gate, and carries an order through pending -> submitted/failed
// -> filled against the persisted venue_orders table.
type Executor struct {
	db      *db.Database
	bus     *events.Bus
	vault   *crypto.Vault
	factory ClientFactory

	mu      sync.Mutex
	clients map[tenantKey]common.Client
}

// NewExecutor wires the persistence handle, event bus, key vault, and
// client factory together.
func NewExecutor(database *db.Database, bus *events.Bus, vault *crypto.Vault, factory ClientFactory) *Executor {
	return &Executor{
		db:      database,
		bus:     bus,
		vault:   vault,
		factory: factory,
		clients: make(map[tenantKey]common.Client),
	}
}

// Invalidate drops a cached client, forcing the next order for that
// (principal, venue) to rebuild it from the stored keys. Call this
// after a principal rotates their API keys.
func (e *Executor) Invalidate(userID, venue string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.clients, tenantKey{userID, venue})
}

func (e *Executor) clientFor(ctx context.Context, userID, venue string) (common.Client, error) {
	key := tenantKey{userID, venue}

	e.mu.Lock()
	if c, ok := e.clients[key]; ok {
		e.mu.Unlock()
		return c, nil
	}
	e.mu.Unlock()

	q := e.db.Queries()
	rec, err := q.GetKeyRecord(ctx, userID, venue)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrNoKeys
	}
	if err != nil {
		return nil, err
	}

	accessKey, secretKey, err := e.vault.OpenKeyPair(rec.AccessKeyCipher, rec.SecretKeyCipher, rec.IV, rec.AuthTag)
	if err != nil {
		return nil, fmt.Errorf("executor: decrypting venue keys: %w", err)
	}

	client, err := e.factory(venue, accessKey, secretKey)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.clients[key] = client
	e.mu.Unlock()
	return client, nil
}

// ExecuteOrder runs the safety gate, persists a pending order row,
// submits it to the resolved venue client, and updates the row with
// the outcome. It returns the order row as last persisted even when
// submission fails, so the caller can surface the failure reason.
func (e *Executor) ExecuteOrder(ctx context.Context, p Params) (db.VenueOrder, error) {
	q := e.db.Queries()

	if err := checkSafety(ctx, q, p.UserID, p.Venue, p.Quantity, p.Price); err != nil {
		return db.VenueOrder{}, err
	}

	now := time.Now()
	order := db.VenueOrder{
		ID:         uuid.NewString(),
		UserID:     p.UserID,
		Venue:      p.Venue,
		Symbol:     p.Symbol,
		Side:       p.Side,
		Type:       p.Type,
		Price:      p.Price,
		Quantity:   p.Quantity,
		Status:     "pending",
		Source:     p.Source,
		AiSignalID: p.AiSignalID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := q.InsertVenueOrder(ctx, order); err != nil {
		return db.VenueOrder{}, fmt.Errorf("executor: persisting order: %w", err)
	}
	e.bus.Publish(events.TopicOrder, events.ScopedEvent{PrincipalID: p.UserID, Payload: order})

	client, err := e.clientFor(ctx, p.UserID, p.Venue)
	if err != nil {
		return e.fail(ctx, q, order, err)
	}

	ack, err := client.PlaceOrder(ctx, common.OrderRequest{
		Symbol:   p.Symbol,
		Side:     common.Side(strings.ToUpper(p.Side)),
		Type:     common.OrderType(strings.ToUpper(p.Type)),
		Price:    p.Price,
		Quantity: p.Quantity,
		ClientID: order.ID,
	})
	if err != nil {
		return e.fail(ctx, q, order, err)
	}

	order.Status = string(ack.Status)
	order.ExchangeOrderID = ack.ExchangeOrderID
	order.FilledQty = ack.FilledQty
	order.FilledPrice = ack.FilledPrice
	order.UpdatedAt = time.Now()

	if err := q.UpdateVenueOrder(ctx, order.ID, order.Status, order.ExchangeOrderID, order.FilledQty, order.FilledPrice, order.Fee, "", order.UpdatedAt); err != nil {
		return order, fmt.Errorf("executor: updating order after submission: %w", err)
	}

	if err := q.IncrementDailyTrades(ctx, p.UserID, p.Venue); err != nil {
		log.Printf("executor: incrementing daily trade counter for %s/%s: %v", p.UserID, p.Venue, err)
	}

	topic := events.TopicExchangeOrd
	if order.Status == string(common.StatusFilled) {
		topic = events.TopicOrderFilled
	}
	e.bus.Publish(topic, events.ScopedEvent{PrincipalID: p.UserID, Payload: order})

	return order, nil
}

func (e *Executor) fail(ctx context.Context, q *db.Queries, order db.VenueOrder, cause error) (db.VenueOrder, error) {
	msg := cause.Error()
	if len(msg) > maxErrorLen {
		msg = msg[:maxErrorLen]
	}
	order.Status = "failed"
	order.Error = msg
	order.UpdatedAt = time.Now()

	if err := q.UpdateVenueOrder(ctx, order.ID, order.Status, order.ExchangeOrderID, order.FilledQty, order.FilledPrice, order.Fee, order.Error, order.UpdatedAt); err != nil {
		log.Printf("executor: recording failed order %s: %v", order.ID, err)
	}
	e.bus.Publish(events.TopicAutoError, events.ScopedEvent{PrincipalID: order.UserID, Payload: order})
	return order, cause
}

// RecordTradeResult updates the consecutive-loss streak for a
// (principal, venue) pair after a position closes: profit resets it,
// loss increments it.
func (e *Executor) RecordTradeResult(ctx context.Context, userID, venue string, isProfit bool) error {
	return e.db.Queries().IncrementConsecutiveLosses(ctx, userID, venue, isProfit)
}

// CancelOrder resolves the venue client for (userID, venue) and cancels
// a resting order there, then marks the matching venue_orders row
// cancelled if one exists under that exchange order id.
func (e *Executor) CancelOrder(ctx context.Context, userID, venue, symbol, exchangeOrderID string) error {
	client, err := e.clientFor(ctx, userID, venue)
	if err != nil {
		return err
	}
	if err := client.CancelOrder(ctx, symbol, exchangeOrderID); err != nil {
		return err
	}

	q := e.db.Queries()
	orders, err := q.OpenOrdersByVenue(ctx, userID, venue)
	if err != nil {
		return nil // cancellation itself succeeded; row bookkeeping is best-effort
	}
	for _, o := range orders {
		if o.ExchangeOrderID == exchangeOrderID {
			return q.UpdateVenueOrder(ctx, o.ID, "cancelled", o.ExchangeOrderID, o.FilledQty, o.FilledPrice, o.Fee, "", time.Now())
		}
	}
	return nil
}
