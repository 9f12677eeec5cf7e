package common

import "context"

// Client is the shape every external-venue client must satisfy. Both
// venuea (JWT-with-query-hash) and venueb (HMAC query-string) implement it,
// so callers can hold a single cache of (principal, venue) -> Client
// without caring which wire protocol backs it.
type Client interface {
	Venue() Venue
	GetCandles(ctx context.Context, symbol, interval string, limit int) ([]Candle, error)
	GetAccounts(ctx context.Context) ([]AccountBalance, error)
	GetAccount(ctx context.Context, asset string) (AccountBalance, error)
	PlaceOrder(ctx context.Context, req OrderRequest) (OrderAck, error)
	CancelOrder(ctx context.Context, symbol, exchangeOrderID string) error
	GetOrder(ctx context.Context, symbol, exchangeOrderID string) (OrderAck, error)
	GetOpenOrders(ctx context.Context, symbol string) ([]OrderAck, error)
}
