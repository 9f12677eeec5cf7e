package gateway

import (
	"context"

	"trading-core/internal/executor"
)

// routeExchange forwards manual venue operations to the executor and
// the venue's public market-data client. Every action here runs with
// source="manual"; the auto-trade scheduler calls the executor
// directly with source="auto" instead of going through this path.
func (g *Gateway) routeExchange(ctx context.Context, action string, params map[string]any, principal string) (map[string]any, error) {
	venue, err := paramString(params, "exchange")
	if err != nil {
		return nil, err
	}

	switch action {
	case "order":
		return g.exchangePlaceOrder(ctx, principal, venue, params)
	case "cancel":
		return g.exchangeCancelOrder(ctx, principal, venue, params)
	case "balance":
		return g.exchangeBalance(ctx, venue)
	case "orders":
		orders, err := g.DB.Queries().OpenOrdersByVenue(ctx, principal, venue)
		if err != nil {
			return nil, err
		}
		return wrapCTP("○", map[string]any{"orders": orders}), nil
	case "history":
		orders, err := g.DB.Queries().VenueOrdersByUser(ctx, principal, venue, 100)
		if err != nil {
			return nil, err
		}
		return wrapCTP("○", map[string]any{"orders": orders}), nil
	default:
		return nil, ErrUnknownAction
	}
}

func (g *Gateway) exchangePlaceOrder(ctx context.Context, principal, venue string, params map[string]any) (map[string]any, error) {
	symbol, err := paramString(params, "symbol")
	if err != nil {
		return nil, err
	}
	side, err := paramString(params, "side")
	if err != nil {
		return nil, err
	}
	orderType, err := paramString(params, "type")
	if err != nil {
		return nil, err
	}
	qty, err := paramFloat(params, "quantity")
	if err != nil {
		return nil, err
	}
	price, _ := paramFloat(params, "price")

	order, err := g.Exec.ExecuteOrder(ctx, executor.Params{
		UserID: principal, Venue: venue, Symbol: symbol,
		Side: side, Type: orderType, Quantity: qty, Price: price,
		Source: "manual",
	})
	if err != nil {
		return nil, err
	}
	return wrapCTP("○", map[string]any{"order": order}), nil
}

func (g *Gateway) exchangeCancelOrder(ctx context.Context, principal, venue string, params map[string]any) (map[string]any, error) {
	symbol, err := paramString(params, "symbol")
	if err != nil {
		return nil, err
	}
	exchangeOrderID, err := paramString(params, "orderId")
	if err != nil {
		return nil, err
	}
	if err := g.Exec.CancelOrder(ctx, principal, venue, symbol, exchangeOrderID); err != nil {
		return nil, err
	}
	return wrapCTP("○", map[string]any{"cancelled": true}), nil
}

func (g *Gateway) exchangeBalance(ctx context.Context, venue string) (map[string]any, error) {
	client, ok := g.Venues[venue]
	if !ok {
		return nil, ErrUnsupportedVenue
	}
	balances, err := client.GetAccounts(ctx)
	if err != nil {
		return nil, err
	}
	return wrapCTP("○", map[string]any{"balances": balances}), nil
}
