package ai

import (
	"math"

	"trading-core/internal/risk"
	"trading-core/pkg/exchanges/common"
)

const (
	backtestWarmup        = 50
	backtestNotionalShare = 0.10
	tradingDaysPerYear    = 252
)

// BacktestTrade is one completed long round-trip.
type BacktestTrade struct {
	EntryIndex int     `json:"entryIndex"`
	ExitIndex  int      `json:"exitIndex"`
	EntryPrice float64 `json:"entryPrice"`
	ExitPrice  float64 `json:"exitPrice"`
	ReturnPct  float64 `json:"returnPct"`
}

// BacktestResult summarizes a walk-forward simulation over a candle
// series.
type BacktestResult struct {
	TotalReturn float64          `json:"totalReturn"`
	WinRate     float64          `json:"winRate"`
	MaxDrawdown float64          `json:"maxDrawdown"`
	Sharpe      float64          `json:"sharpe"`
	Trades      []BacktestTrade  `json:"trades"`
}

// Backtest walks candles from index 50 onward, re-running the consensus
// on the prefix available at each step. It opens a 10%-notional long
// when flat and the consensus says BUY, and closes it when the
// consensus says SELL. The risk gate is not consulted here — a backtest
// has no live balance or drawdown history to gate against, only the
// candle series itself.
func Backtest(candles []common.Candle) BacktestResult {
	if len(candles) <= backtestWarmup {
		return BacktestResult{}
	}

	equity := 1.0
	peak := 1.0
	maxDrawdown := 0.0

	inPosition := false
	var entryPrice float64
	var entryIndex int

	var trades []BacktestTrade
	returns := make([]float64, 0, len(candles)-backtestWarmup)
	prevEquity := equity

	noRisk := risk.Decision{Allowed: true}

	for i := backtestWarmup; i < len(candles); i++ {
		prefix := candles[:i+1]
		c := Analyze(prefix, noRisk)
		price := candles[i].Close

		switch {
		case !inPosition && c.Signal == 1:
			inPosition = true
			entryPrice = price
			entryIndex = i
		case inPosition && c.Signal == -1:
			ret := (price - entryPrice) / entryPrice
			equity *= 1 + backtestNotionalShare*ret
			trades = append(trades, BacktestTrade{
				EntryIndex: entryIndex,
				ExitIndex:  i,
				EntryPrice: entryPrice,
				ExitPrice:  price,
				ReturnPct:  ret,
			})
			inPosition = false
		}

		if equity > peak {
			peak = equity
		}
		if peak > 0 {
			if dd := (peak - equity) / peak; dd > maxDrawdown {
				maxDrawdown = dd
			}
		}

		step := 0.0
		if prevEquity != 0 {
			step = (equity - prevEquity) / prevEquity
		}
		returns = append(returns, step)
		prevEquity = equity
	}

	return BacktestResult{
		TotalReturn: equity - 1.0,
		WinRate:     winRate(trades),
		MaxDrawdown: maxDrawdown,
		Sharpe:      sharpe(returns),
		Trades:      trades,
	}
}

func winRate(trades []BacktestTrade) float64 {
	if len(trades) == 0 {
		return 0
	}
	wins := 0
	for _, t := range trades {
		if t.ReturnPct > 0 {
			wins++
		}
	}
	return float64(wins) / float64(len(trades))
}

// sharpe approximates an annualized Sharpe ratio from a per-step return
// series: mean(r)/stdev(r) · sqrt(252).
func sharpe(returns []float64) float64 {
	n := len(returns)
	if n < 2 {
		return 0
	}

	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(n)

	var variance float64
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(n - 1)
	stdev := math.Sqrt(variance)
	if stdev == 0 {
		return 0
	}

	return mean / stdev * math.Sqrt(float64(tradingDaysPerYear))
}
