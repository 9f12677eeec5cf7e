package risk

// Config holds the per-(principal,venue) risk thresholds. Defaults match
// the values an auto-trade config falls back to when a user has not
// customized their own.
type Config struct {
	MaxDailyTrades  int
	MaxDrawdown     float64 // fraction of peak balance, e.g. 0.15
	MaxPositionSize float64 // fraction of balance sizeable into one position, e.g. 0.10
	StopLossPct     float64
	TakeProfitPct   float64
}

// DefaultConfig returns the gate's baseline thresholds.
func DefaultConfig() Config {
	return Config{
		MaxDailyTrades:  10,
		MaxDrawdown:     0.15,
		MaxPositionSize: 0.10,
		StopLossPct:     0.03,
		TakeProfitPct:   0.06,
	}
}

// Position is an open position the gate watches for stoploss/takeprofit
// triggers. Side is "BUY" for a long, "SELL" for a short.
type Position struct {
	Symbol     string
	Side       string
	EntryPrice float64
}

// Decision is the result of a single risk evaluation.
type Decision struct {
	Allowed  bool     `json:"allowed"`
	Risks    []string `json:"risks"`
	MaxSize  float64  `json:"maxSize"`
	Drawdown float64  `json:"drawdown"`
}

// Known risk flags, both blocking and advisory.
const (
	RiskDailyCap    = "daily_trade_cap"
	RiskDrawdown    = "max_drawdown"
	RiskStopLoss    = "stoploss"
	RiskTakeProfit  = "takeprofit"
)
