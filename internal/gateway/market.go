package gateway

import "context"

// routeMarket proxies read-only venue data: the most recent price, a
// candle window, and the deployment's resting orders on that venue
// (the closest analog to a public order book the venue clients expose
// — neither venuea nor venueb surfaces an unauthenticated L2 depth
// endpoint).
func (g *Gateway) routeMarket(ctx context.Context, action string, params map[string]any) (map[string]any, error) {
	venue, err := paramString(params, "exchange")
	if err != nil {
		return nil, err
	}
	symbol, err := paramString(params, "symbol")
	if err != nil {
		return nil, err
	}
	interval, _ := paramString(params, "interval")
	if interval == "" {
		interval = "1h"
	}
	limit := 100
	if l, err := paramFloat(params, "count"); err == nil && l > 0 {
		limit = int(l)
	}

	switch action {
	case "prices":
		candles, err := g.candlesFor(ctx, venue, symbol, interval, 1)
		if err != nil {
			return nil, err
		}
		if len(candles) == 0 {
			return wrapCTP("○", map[string]any{"price": 0}), nil
		}
		return wrapCTP("○", map[string]any{"price": candles[len(candles)-1].Close}), nil
	case "candles":
		candles, err := g.candlesFor(ctx, venue, symbol, interval, limit)
		if err != nil {
			return nil, err
		}
		return wrapCTP("○", map[string]any{"candles": candles}), nil
	case "orderbook":
		client, ok := g.Venues[venue]
		if !ok {
			return nil, ErrUnsupportedVenue
		}
		orders, err := client.GetOpenOrders(ctx, symbol)
		if err != nil {
			return nil, err
		}
		return wrapCTP("○", map[string]any{"orders": orders}), nil
	default:
		return nil, ErrUnknownAction
	}
}
