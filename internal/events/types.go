package events

// Topic enumerates the events published on the bus.
type Topic string

const (
	TopicSwap         Topic = "swap"
	TopicOrder        Topic = "order"
	TopicLiquidity    Topic = "liquidity"
	TopicDexUpdate    Topic = "dex_update"
	TopicExchangeOrd  Topic = "exchange_order"
	TopicAutoTrade    Topic = "auto_trade"
	TopicAutoError    Topic = "auto_error"
	TopicAutoPaused   Topic = "auto_trade_paused"
	TopicRiskAlert    Topic = "risk_alert"
	TopicOrderFilled  Topic = "order.filled"
	TopicOrderUpdated Topic = "order.updated"
)

// ScopedEvent wraps a payload that should only be fanned out to the
// connections belonging to the owning principal.
type ScopedEvent struct {
	PrincipalID string
	Payload     any
}
