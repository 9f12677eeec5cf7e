package db

import "time"

// User is a registered principal.
type User struct {
	ID        string
	Email     string
	Username  string
	Password  string // bcrypt hash
	Role      string
	CreatedAt time.Time
	LastLogin time.Time
}

// Wallet is a per-(user, token) balance row.
type Wallet struct {
	UserID string
	Token  string
	Balance float64
	Locked  float64
}

// Token is an entry in the fixed, process-wide token registry.
type Token struct {
	Symbol      string
	Name        string
	TotalSupply float64
	Decimals    int
}

// Pool is a persisted constant-product AMM pool snapshot. The live pool
// state lives in memory (internal/dex); this row is what survives a
// restart.
type Pool struct {
	ID            string
	TokenA        string
	TokenB        string
	ReserveA      float64
	ReserveB      float64
	FeeBps        int
	TotalLPShares float64
	Volume24h     float64
	FeesCollected float64
	SwapCount     int64
	UpdatedAt     time.Time
}

// PoolLPHolder is one principal's LP share balance in a pool.
type PoolLPHolder struct {
	PoolID string
	UserID string
	Shares float64
}

// PoolPricePoint is one entry of a pool's price history ring.
type PoolPricePoint struct {
	PoolID    string
	Price     float64
	Timestamp time.Time
}

// LimitOrder is a resting order against the in-memory order book.
type LimitOrder struct {
	ID        string
	OwnerID   string
	PoolID    string
	Side      string // buy | sell
	Price     float64
	Amount    float64
	Filled    float64
	Status    string // open | partial | filled | cancelled
	CreatedAt time.Time
}

// Swap is an immutable log entry for a completed DEX swap.
type Swap struct {
	ID          string
	UserID      string
	PoolID      string
	TokenIn     string
	TokenOut    string
	AmountIn    float64
	AmountOut   float64
	Fee         float64
	Slippage    float64
	PriceImpact float64
	TritState   string // P | O | T
	CreatedAt   time.Time
}

// VenueOrder is an order routed to an external venue, manual or auto.
type VenueOrder struct {
	ID              string
	UserID          string
	Venue           string
	Symbol          string
	Side            string
	Type            string
	Price           float64
	Quantity        float64
	Status          string // pending | submitted | filled | cancelled | failed
	ExchangeOrderID string
	FilledQty       float64
	FilledPrice     float64
	Fee             float64
	Source          string // manual | auto
	AiSignalID      string
	Error           string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// AiSignal is a persisted consensus analysis result.
type AiSignal struct {
	ID         string
	Symbol     string
	Venue      string
	Interval   string
	Signal     string // BUY | HOLD | SELL
	Score      float64
	Confidence float64
	Trit       string // △ | ○ | ▽
	Strategies string // opaque JSON blob
	Risk       string // opaque JSON blob
	CreatedAt  time.Time
}

// AutoTradeConfig is the per-(user, venue) auto-trade scheduler state.
type AutoTradeConfig struct {
	UserID             string
	Venue              string
	Enabled            bool
	Symbols            string // CSV
	MaxPositionPct     float64
	StopLossPct        float64
	TakeProfitPct      float64
	MinConfidence      float64
	MaxDailyTrades     int
	DailyTradesUsed    int
	ConsecutiveLosses  int
	MaxConsecutiveLosses int
	UpdatedAt          time.Time
}

// KeyRecord is an encrypted venue API key pair owned by a principal.
type KeyRecord struct {
	UserID          string
	Venue           string
	AccessKeyCipher string
	SecretKeyCipher string
	IV              string // "ivA:ivS"
	AuthTag         string // "tagA:tagS"
	Permissions     string
	CreatedAt       time.Time
}

// Session is a live authenticated session, keyed by a hash of the issued
// token so the raw token never touches disk.
type Session struct {
	ID        string
	UserID    string
	TokenHash string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// EventRow is a best-effort durable copy of a bus event, flushed
// periodically for crash-restart continuity. The in-memory ring buffer
// remains the hot read path.
type EventRow struct {
	ID        int64
	Topic     string
	Payload   string // JSON
	CreatedAt time.Time
}
