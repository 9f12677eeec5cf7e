package dex

import (
	"sort"
	"sync"
	"time"
)

// Order sides.
const (
	SideBuy  = "buy"
	SideSell = "sell"
)

// Order statuses.
const (
	StatusOpen      = "open"
	StatusPartial   = "partial"
	StatusFilled    = "filled"
	StatusCancelled = "cancelled"
)

// Order is a resting limit order against one pool.
type Order struct {
	ID        string
	OwnerID   string
	PoolID    string
	Side      string
	Price     float64
	Amount    float64
	Filled    float64
	Status    string
	CreatedAt time.Time
}

// Remaining returns the order's unfilled quantity.
func (o *Order) Remaining() float64 {
	return o.Amount - o.Filled
}

// Match is one fill produced by a matching pass.
type Match struct {
	BuyOrderID  string
	SellOrderID string
	Price       float64
	Amount      float64
}

// OrderBook is a single in-memory, append-only order list shared by
// every pool. Open orders are filtered per pool on read; matching runs
// per pool over that pool's open orders only.
type OrderBook struct {
	mu     sync.Mutex
	orders []*Order
}

// NewOrderBook creates an empty order book.
func NewOrderBook() *OrderBook {
	return &OrderBook{}
}

// Place appends a new order to the book.
func (b *OrderBook) Place(o *Order) {
	if o.Status == "" {
		o.Status = StatusOpen
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.orders = append(b.orders, o)
}

// OpenOrders returns every open or partially filled order for a pool,
// in insertion order.
func (b *OrderBook) OpenOrders(poolID string) []*Order {
	b.mu.Lock()
	defer b.mu.Unlock()

	var open []*Order
	for _, o := range b.orders {
		if o.PoolID == poolID && (o.Status == StatusOpen || o.Status == StatusPartial) {
			open = append(open, o)
		}
	}
	return open
}

// OrderByID returns the order with the given id, if it's in the book.
func (b *OrderBook) OrderByID(id string) (*Order, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, o := range b.orders {
		if o.ID == id {
			return o, true
		}
	}
	return nil, false
}

// Cancel marks an open or partially filled order cancelled, excluding
// it from future matching passes. Returns false without modifying
// anything if the order doesn't exist or is already filled/cancelled.
func (b *OrderBook) Cancel(id string) (*Order, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, o := range b.orders {
		if o.ID != id {
			continue
		}
		if o.Status != StatusOpen && o.Status != StatusPartial {
			return o, false
		}
		o.Status = StatusCancelled
		return o, true
	}
	return nil, false
}

// OrdersByOwner returns every order (any status) placed by ownerID.
func (b *OrderBook) OrdersByOwner(ownerID string) []*Order {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []*Order
	for _, o := range b.orders {
		if o.OwnerID == ownerID {
			out = append(out, o)
		}
	}
	return out
}

// Match runs one matching pass over a pool's open orders: buys sorted
// by price descending, sells by price ascending, filling at the
// resting sell's price (maker price) wherever buy.price >= sell.price.
// It's O(B·S) in the pool's open order counts, which stay small enough
// per pool for that not to matter.
func (b *OrderBook) Match(poolID string) []Match {
	b.mu.Lock()
	defer b.mu.Unlock()

	var buys, sells []*Order
	for _, o := range b.orders {
		if o.PoolID != poolID {
			continue
		}
		if o.Status != StatusOpen && o.Status != StatusPartial {
			continue
		}
		if o.Side == SideBuy {
			buys = append(buys, o)
		} else {
			sells = append(sells, o)
		}
	}

	sort.SliceStable(buys, func(i, j int) bool { return buys[i].Price > buys[j].Price })
	sort.SliceStable(sells, func(i, j int) bool { return sells[i].Price < sells[j].Price })

	var matches []Match
	for _, buy := range buys {
		for _, sell := range sells {
			if buy.Remaining() <= 0 {
				break
			}
			if sell.Remaining() <= 0 {
				continue
			}
			if buy.Price < sell.Price {
				continue
			}

			amount := min(buy.Remaining(), sell.Remaining())
			if amount <= 0 {
				continue
			}

			buy.Filled += amount
			sell.Filled += amount
			settle(buy)
			settle(sell)

			matches = append(matches, Match{
				BuyOrderID:  buy.ID,
				SellOrderID: sell.ID,
				Price:       sell.Price,
				Amount:      amount,
			})
		}
	}

	return matches
}
func settle(o *Order) {
	switch {
	case o.Filled >= o.Amount:
		o.Status = StatusFilled
	case o.Filled > 0:
		o.Status = StatusPartial
	default:
		o.Status = StatusOpen
	}
}
