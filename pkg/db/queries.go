// Package db is the SQLite-backed persistence layer: one table per data
// model entity, a set of atomic mutation helpers, and a Transaction
// combinator for composing several of them into one unit.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var (
	ErrUserIDRequired   = errors.New("user id is required")
	ErrNotFound         = errors.New("record not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// Queries runs statements against either the database directly or an
// open transaction, depending on which Execer it was built with.
type Queries struct {
	exec Execer
}

// Queries returns a Queries bound to the database connection pool.
func (d *Database) Queries() *Queries {
	return &Queries{exec: d.DB}
}

// Transaction runs fn against a Queries bound to a single SQL
// transaction, committing on success and rolling back on error or
// panic. Used for the swap, addLiquidity, and placeOrder paths that
// must touch several tables atomically.
func (d *Database) Transaction(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := d.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(&Queries{exec: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	committed = true
	return nil
}

// ----------------------------------------
// Users
// ----------------------------------------

func (q *Queries) CreateUser(ctx context.Context, u User) error {
	_, err := q.exec.ExecContext(ctx, `
		INSERT INTO users (id, email, username, password, role, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, u.ID, u.Email, u.Username, u.Password, u.Role, u.CreatedAt)
	return err
}

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return q.scanUser(q.exec.QueryRowContext(ctx, `
		SELECT id, email, username, password, role, created_at, last_login
		FROM users WHERE email = ?
	`, email))
}

func (q *Queries) GetUserByUsername(ctx context.Context, username string) (User, error) {
	return q.scanUser(q.exec.QueryRowContext(ctx, `
		SELECT id, email, username, password, role, created_at, last_login
		FROM users WHERE username = ?
	`, username))
}

func (q *Queries) GetUserByID(ctx context.Context, id string) (User, error) {
	return q.scanUser(q.exec.QueryRowContext(ctx, `
		SELECT id, email, username, password, role, created_at, last_login
		FROM users WHERE id = ?
	`, id))
}

func (q *Queries) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	_, err := q.exec.ExecContext(ctx, `UPDATE users SET last_login = ? WHERE id = ?`, at, id)
	return err
}

func (q *Queries) scanUser(row *sql.Row) (User, error) {
	var u User
	var lastLogin sql.NullTime
	if err := row.Scan(&u.ID, &u.Email, &u.Username, &u.Password, &u.Role, &u.CreatedAt, &lastLogin); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	if lastLogin.Valid {
		u.LastLogin = lastLogin.Time
	}
	return u, nil
}

// ----------------------------------------
// Wallets
// ----------------------------------------

func (q *Queries) GetWallet(ctx context.Context, userID, token string) (Wallet, error) {
	if userID == "" {
		return Wallet{}, ErrUserIDRequired
	}
	var w Wallet
	err := q.exec.QueryRowContext(ctx, `
		SELECT user_id, token, balance, locked FROM wallets WHERE user_id = ? AND token = ?
	`, userID, token).Scan(&w.UserID, &w.Token, &w.Balance, &w.Locked)
	if errors.Is(err, sql.ErrNoRows) {
		return Wallet{UserID: userID, Token: token}, nil
	}
	return w, err
}

func (q *Queries) GetWallets(ctx context.Context, userID string) ([]Wallet, error) {
	if userID == "" {
		return nil, ErrUserIDRequired
	}
	rows, err := q.exec.QueryContext(ctx, `
		SELECT user_id, token, balance, locked FROM wallets WHERE user_id = ?
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Wallet
	for rows.Next() {
		var w Wallet
		if err := rows.Scan(&w.UserID, &w.Token, &w.Balance, &w.Locked); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// AddBalance credits amount to a wallet, creating the row if absent.
func (q *Queries) AddBalance(ctx context.Context, userID, token string, amount float64) error {
	if userID == "" {
		return ErrUserIDRequired
	}
	_, err := q.exec.ExecContext(ctx, `
		INSERT INTO wallets (user_id, token, balance, locked) VALUES (?, ?, ?, 0)
		ON CONFLICT(user_id, token) DO UPDATE SET balance = balance + excluded.balance
	`, userID, token, amount)
	return err
}

// SubtractBalance debits amount from a wallet, failing with
// ErrInsufficientFunds when the free balance (balance - locked) cannot
// cover it.
func (q *Queries) SubtractBalance(ctx context.Context, userID, token string, amount float64) error {
	if userID == "" {
		return ErrUserIDRequired
	}
	res, err := q.exec.ExecContext(ctx, `
		UPDATE wallets SET balance = balance - ?
		WHERE user_id = ? AND token = ? AND balance - locked >= ?
	`, amount, userID, token, amount)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrInsufficientFunds
	}
	return nil
}

// LockBalance moves amount from free balance into locked, failing with
// ErrInsufficientFunds when available (balance - locked) is short.
func (q *Queries) LockBalance(ctx context.Context, userID, token string, amount float64) error {
	if userID == "" {
		return ErrUserIDRequired
	}
	res, err := q.exec.ExecContext(ctx, `
		UPDATE wallets SET locked = locked + ?
		WHERE user_id = ? AND token = ? AND balance - locked >= ?
	`, amount, userID, token, amount)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrInsufficientFunds
	}
	return nil
}

// UnlockBalance releases amount back from locked to free.
func (q *Queries) UnlockBalance(ctx context.Context, userID, token string, amount float64) error {
	if userID == "" {
		return ErrUserIDRequired
	}
	_, err := q.exec.ExecContext(ctx, `
		UPDATE wallets SET locked = MAX(0, locked - ?) WHERE user_id = ? AND token = ?
	`, amount, userID, token)
	return err
}

// SpendLocked settles amount out of a wallet's locked funds: both the
// total balance and the locked balance drop by amount, unlike
// SubtractBalance (which only ever touches free balance). Used to
// settle a matched limit order's locked side, failing with
// ErrInsufficientFunds if the wallet doesn't have that much locked.
func (q *Queries) SpendLocked(ctx context.Context, userID, token string, amount float64) error {
	if userID == "" {
		return ErrUserIDRequired
	}
	res, err := q.exec.ExecContext(ctx, `
		UPDATE wallets SET balance = balance - ?, locked = locked - ?
		WHERE user_id = ? AND token = ? AND locked >= ?
	`, amount, amount, userID, token, amount)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrInsufficientFunds
	}
	return nil
}

// ----------------------------------------
// Tokens
// ----------------------------------------

func (q *Queries) UpsertToken(ctx context.Context, t Token) error {
	_, err := q.exec.ExecContext(ctx, `
		INSERT INTO tokens (symbol, name, total_supply, decimals) VALUES (?, ?, ?, ?)
		ON CONFLICT(symbol) DO UPDATE SET name = excluded.name, total_supply = excluded.total_supply, decimals = excluded.decimals
	`, t.Symbol, t.Name, t.TotalSupply, t.Decimals)
	return err
}

func (q *Queries) ListTokens(ctx context.Context) ([]Token, error) {
	rows, err := q.exec.QueryContext(ctx, `SELECT symbol, name, total_supply, decimals FROM tokens`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Token
	for rows.Next() {
		var t Token
		if err := rows.Scan(&t.Symbol, &t.Name, &t.TotalSupply, &t.Decimals); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ----------------------------------------
// Pools
// ----------------------------------------

// UpsertPool writes a full pool snapshot, including its LP holder rows.
func (q *Queries) UpsertPool(ctx context.Context, p Pool, lpHolders map[string]float64) error {
	_, err := q.exec.ExecContext(ctx, `
		INSERT INTO pools (id, token_a, token_b, reserve_a, reserve_b, fee_bps, total_lp_shares, volume_24h, fees_collected, swap_count, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			reserve_a = excluded.reserve_a, reserve_b = excluded.reserve_b,
			total_lp_shares = excluded.total_lp_shares, volume_24h = excluded.volume_24h,
			fees_collected = excluded.fees_collected, swap_count = excluded.swap_count,
			updated_at = excluded.updated_at
	`, p.ID, p.TokenA, p.TokenB, p.ReserveA, p.ReserveB, p.FeeBps, p.TotalLPShares, p.Volume24h, p.FeesCollected, p.SwapCount, p.UpdatedAt)
	if err != nil {
		return err
	}

	for userID, shares := range lpHolders {
		if _, err := q.exec.ExecContext(ctx, `
			INSERT INTO pool_lp_holders (pool_id, user_id, shares) VALUES (?, ?, ?)
			ON CONFLICT(pool_id, user_id) DO UPDATE SET shares = excluded.shares
		`, p.ID, userID, shares); err != nil {
			return err
		}
	}
	return nil
}

func (q *Queries) GetPool(ctx context.Context, id string) (Pool, error) {
	var p Pool
	err := q.exec.QueryRowContext(ctx, `
		SELECT id, token_a, token_b, reserve_a, reserve_b, fee_bps, total_lp_shares, volume_24h, fees_collected, swap_count, updated_at
		FROM pools WHERE id = ?
	`, id).Scan(&p.ID, &p.TokenA, &p.TokenB, &p.ReserveA, &p.ReserveB, &p.FeeBps, &p.TotalLPShares, &p.Volume24h, &p.FeesCollected, &p.SwapCount, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Pool{}, ErrNotFound
	}
	return p, err
}

func (q *Queries) ListPools(ctx context.Context) ([]Pool, error) {
	rows, err := q.exec.QueryContext(ctx, `
		SELECT id, token_a, token_b, reserve_a, reserve_b, fee_bps, total_lp_shares, volume_24h, fees_collected, swap_count, updated_at
		FROM pools
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Pool
	for rows.Next() {
		var p Pool
		if err := rows.Scan(&p.ID, &p.TokenA, &p.TokenB, &p.ReserveA, &p.ReserveB, &p.FeeBps, &p.TotalLPShares, &p.Volume24h, &p.FeesCollected, &p.SwapCount, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// LPHolder is one row of a pool's LP share ledger.
type LPHolder struct {
	UserID string
	Shares float64
}

// ListLPHolders returns every LP holder row for a pool, used to restore
// a pool's LPHolders map on boot alongside ListPools.
func (q *Queries) ListLPHolders(ctx context.Context, poolID string) ([]LPHolder, error) {
	rows, err := q.exec.QueryContext(ctx, `
		SELECT user_id, shares FROM pool_lp_holders WHERE pool_id = ?
	`, poolID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LPHolder
	for rows.Next() {
		var h LPHolder
		if err := rows.Scan(&h.UserID, &h.Shares); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// priceHistoryCap bounds each pool's pool_price_history row count, behaving
// like a fixed-size ring buffer trimmed from the tail on every insert.
const priceHistoryCap = 1000

func (q *Queries) AppendPricePoint(ctx context.Context, poolID string, price float64, ts time.Time) error {
	_, err := q.exec.ExecContext(ctx, `
		INSERT INTO pool_price_history (pool_id, price, ts) VALUES (?, ?, ?)
	`, poolID, price, ts)
	if err != nil {
		return err
	}
	_, err = q.exec.ExecContext(ctx, `
		DELETE FROM pool_price_history WHERE pool_id = ? AND ts NOT IN (
			SELECT ts FROM pool_price_history WHERE pool_id = ? ORDER BY ts DESC LIMIT ?
		)
	`, poolID, poolID, priceHistoryCap)
	return err
}

func (q *Queries) PriceHistory(ctx context.Context, poolID string, limit int) ([]PoolPricePoint, error) {
	rows, err := q.exec.QueryContext(ctx, `
		SELECT pool_id, price, ts FROM pool_price_history WHERE pool_id = ? ORDER BY ts DESC LIMIT ?
	`, poolID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PoolPricePoint
	for rows.Next() {
		var p PoolPricePoint
		if err := rows.Scan(&p.PoolID, &p.Price, &p.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ----------------------------------------
// Limit orders
// ----------------------------------------

func (q *Queries) UpsertLimitOrder(ctx context.Context, o LimitOrder) error {
	_, err := q.exec.ExecContext(ctx, `
		INSERT INTO limit_orders (id, owner_id, pool_id, side, price, amount, filled, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET filled = excluded.filled, status = excluded.status
	`, o.ID, o.OwnerID, o.PoolID, o.Side, o.Price, o.Amount, o.Filled, o.Status, o.CreatedAt)
	return err
}

func (q *Queries) OpenOrders(ctx context.Context, poolID string) ([]LimitOrder, error) {
	rows, err := q.exec.QueryContext(ctx, `
		SELECT id, owner_id, pool_id, side, price, amount, filled, status, created_at
		FROM limit_orders WHERE pool_id = ? AND status IN ('open', 'partial')
	`, poolID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLimitOrders(rows)
}

func (q *Queries) OrdersByOwner(ctx context.Context, ownerID string) ([]LimitOrder, error) {
	if ownerID == "" {
		return nil, ErrUserIDRequired
	}
	rows, err := q.exec.QueryContext(ctx, `
		SELECT id, owner_id, pool_id, side, price, amount, filled, status, created_at
		FROM limit_orders WHERE owner_id = ? ORDER BY created_at DESC
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLimitOrders(rows)
}

func scanLimitOrders(rows *sql.Rows) ([]LimitOrder, error) {
	var out []LimitOrder
	for rows.Next() {
		var o LimitOrder
		if err := rows.Scan(&o.ID, &o.OwnerID, &o.PoolID, &o.Side, &o.Price, &o.Amount, &o.Filled, &o.Status, &o.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// ----------------------------------------
// Swaps
// ----------------------------------------

func (q *Queries) AppendSwap(ctx context.Context, s Swap) error {
	_, err := q.exec.ExecContext(ctx, `
		INSERT INTO swaps (id, user_id, pool_id, token_in, token_out, amount_in, amount_out, fee, slippage, price_impact, trit_state, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, s.ID, s.UserID, s.PoolID, s.TokenIn, s.TokenOut, s.AmountIn, s.AmountOut, s.Fee, s.Slippage, s.PriceImpact, s.TritState, s.CreatedAt)
	return err
}

func (q *Queries) SwapsByUser(ctx context.Context, userID string, limit int) ([]Swap, error) {
	if userID == "" {
		return nil, ErrUserIDRequired
	}
	rows, err := q.exec.QueryContext(ctx, `
		SELECT id, user_id, pool_id, token_in, token_out, amount_in, amount_out, fee, slippage, price_impact, trit_state, created_at
		FROM swaps WHERE user_id = ? ORDER BY created_at DESC LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Swap
	for rows.Next() {
		var s Swap
		if err := rows.Scan(&s.ID, &s.UserID, &s.PoolID, &s.TokenIn, &s.TokenOut, &s.AmountIn, &s.AmountOut, &s.Fee, &s.Slippage, &s.PriceImpact, &s.TritState, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ----------------------------------------
// Venue orders
// ----------------------------------------

func (q *Queries) InsertVenueOrder(ctx context.Context, o VenueOrder) error {
	_, err := q.exec.ExecContext(ctx, `
		INSERT INTO venue_orders (id, user_id, venue, symbol, side, type, price, quantity, status, exchange_order_id, filled_qty, filled_price, fee, source, ai_signal_id, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, o.ID, o.UserID, o.Venue, o.Symbol, o.Side, o.Type, o.Price, o.Quantity, o.Status, nullableStr(o.ExchangeOrderID), o.FilledQty, o.FilledPrice, o.Fee, o.Source, nullableStr(o.AiSignalID), nullableStr(o.Error), o.CreatedAt, o.UpdatedAt)
	return err
}

// UpdateVenueOrder applies a partial update by id: status and whichever
// result fields the caller has available (submitted ack vs terminal
// failure).
func (q *Queries) UpdateVenueOrder(ctx context.Context, id, status, exchangeOrderID string, filledQty, filledPrice, fee float64, errMsg string, updatedAt time.Time) error {
	_, err := q.exec.ExecContext(ctx, `
		UPDATE venue_orders SET status = ?, exchange_order_id = ?, filled_qty = ?, filled_price = ?, fee = ?, error = ?, updated_at = ?
		WHERE id = ?
	`, status, nullableStr(exchangeOrderID), filledQty, filledPrice, fee, nullableStr(errMsg), updatedAt, id)
	return err
}

func (q *Queries) GetVenueOrder(ctx context.Context, id string) (VenueOrder, error) {
	var o VenueOrder
	var exchangeOrderID, aiSignalID, errMsg sql.NullString
	err := q.exec.QueryRowContext(ctx, `
		SELECT id, user_id, venue, symbol, side, type, price, quantity, status, exchange_order_id, filled_qty, filled_price, fee, source, ai_signal_id, error, created_at, updated_at
		FROM venue_orders WHERE id = ?
	`, id).Scan(&o.ID, &o.UserID, &o.Venue, &o.Symbol, &o.Side, &o.Type, &o.Price, &o.Quantity, &o.Status, &exchangeOrderID, &o.FilledQty, &o.FilledPrice, &o.Fee, &o.Source, &aiSignalID, &errMsg, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return VenueOrder{}, ErrNotFound
	}
	if err != nil {
		return VenueOrder{}, err
	}
	o.ExchangeOrderID = exchangeOrderID.String
	o.AiSignalID = aiSignalID.String
	o.Error = errMsg.String
	return o, nil
}

func (q *Queries) VenueOrdersByUser(ctx context.Context, userID, venue string, limit int) ([]VenueOrder, error) {
	if userID == "" {
		return nil, ErrUserIDRequired
	}
	rows, err := q.exec.QueryContext(ctx, `
		SELECT id, user_id, venue, symbol, side, type, price, quantity, status, exchange_order_id, filled_qty, filled_price, fee, source, ai_signal_id, error, created_at, updated_at
		FROM venue_orders WHERE user_id = ? AND venue = ? ORDER BY created_at DESC LIMIT ?
	`, userID, venue, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []VenueOrder
	for rows.Next() {
		var o VenueOrder
		var exchangeOrderID, aiSignalID, errMsg sql.NullString
		if err := rows.Scan(&o.ID, &o.UserID, &o.Venue, &o.Symbol, &o.Side, &o.Type, &o.Price, &o.Quantity, &o.Status, &exchangeOrderID, &o.FilledQty, &o.FilledPrice, &o.Fee, &o.Source, &aiSignalID, &errMsg, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		o.ExchangeOrderID = exchangeOrderID.String
		o.AiSignalID = aiSignalID.String
		o.Error = errMsg.String
		out = append(out, o)
	}
	return out, rows.Err()
}

func (q *Queries) OpenOrdersByVenue(ctx context.Context, userID, venue string) ([]VenueOrder, error) {
	if userID == "" {
		return nil, ErrUserIDRequired
	}
	rows, err := q.exec.QueryContext(ctx, `
		SELECT id, user_id, venue, symbol, side, type, price, quantity, status, exchange_order_id, filled_qty, filled_price, fee, source, ai_signal_id, error, created_at, updated_at
		FROM venue_orders WHERE user_id = ? AND venue = ? AND status IN ('pending', 'submitted')
	`, userID, venue)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []VenueOrder
	for rows.Next() {
		var o VenueOrder
		var exchangeOrderID, aiSignalID, errMsg sql.NullString
		if err := rows.Scan(&o.ID, &o.UserID, &o.Venue, &o.Symbol, &o.Side, &o.Type, &o.Price, &o.Quantity, &o.Status, &exchangeOrderID, &o.FilledQty, &o.FilledPrice, &o.Fee, &o.Source, &aiSignalID, &errMsg, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		o.ExchangeOrderID = exchangeOrderID.String
		o.AiSignalID = aiSignalID.String
		o.Error = errMsg.String
		out = append(out, o)
	}
	return out, rows.Err()
}

func nullableStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// ----------------------------------------
// AI signals
// ----------------------------------------

func (q *Queries) AppendAiSignal(ctx context.Context, s AiSignal) error {
	_, err := q.exec.ExecContext(ctx, `
		INSERT INTO ai_signals (id, symbol, venue, interval, signal, score, confidence, trit, strategies, risk, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, s.ID, s.Symbol, s.Venue, s.Interval, s.Signal, s.Score, s.Confidence, s.Trit, s.Strategies, s.Risk, s.CreatedAt)
	return err
}

func (q *Queries) GetAiSignal(ctx context.Context, id string) (AiSignal, error) {
	var s AiSignal
	err := q.exec.QueryRowContext(ctx, `
		SELECT id, symbol, venue, interval, signal, score, confidence, trit, strategies, risk, created_at
		FROM ai_signals WHERE id = ?
	`, id).Scan(&s.ID, &s.Symbol, &s.Venue, &s.Interval, &s.Signal, &s.Score, &s.Confidence, &s.Trit, &s.Strategies, &s.Risk, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return AiSignal{}, ErrNotFound
	}
	return s, err
}

// ----------------------------------------
// Auto-trade configs
// ----------------------------------------

func (q *Queries) UpsertAutoTradeConfig(ctx context.Context, c AutoTradeConfig) error {
	_, err := q.exec.ExecContext(ctx, `
		INSERT INTO auto_trade_configs (user_id, venue, enabled, symbols, max_position_pct, stop_loss_pct, take_profit_pct, min_confidence, max_daily_trades, daily_trades_used, consecutive_losses, max_consecutive_losses, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, venue) DO UPDATE SET
			enabled = excluded.enabled, symbols = excluded.symbols,
			max_position_pct = excluded.max_position_pct, stop_loss_pct = excluded.stop_loss_pct,
			take_profit_pct = excluded.take_profit_pct, min_confidence = excluded.min_confidence,
			max_daily_trades = excluded.max_daily_trades, updated_at = excluded.updated_at
	`, c.UserID, c.Venue, c.Enabled, c.Symbols, c.MaxPositionPct, c.StopLossPct, c.TakeProfitPct, c.MinConfidence, c.MaxDailyTrades, c.DailyTradesUsed, c.ConsecutiveLosses, c.MaxConsecutiveLosses, c.UpdatedAt)
	return err
}

func (q *Queries) GetAutoTradeConfig(ctx context.Context, userID, venue string) (AutoTradeConfig, error) {
	var c AutoTradeConfig
	err := q.exec.QueryRowContext(ctx, `
		SELECT user_id, venue, enabled, symbols, max_position_pct, stop_loss_pct, take_profit_pct, min_confidence, max_daily_trades, daily_trades_used, consecutive_losses, max_consecutive_losses, updated_at
		FROM auto_trade_configs WHERE user_id = ? AND venue = ?
	`, userID, venue).Scan(&c.UserID, &c.Venue, &c.Enabled, &c.Symbols, &c.MaxPositionPct, &c.StopLossPct, &c.TakeProfitPct, &c.MinConfidence, &c.MaxDailyTrades, &c.DailyTradesUsed, &c.ConsecutiveLosses, &c.MaxConsecutiveLosses, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return AutoTradeConfig{}, ErrNotFound
	}
	return c, err
}

func (q *Queries) ListAutoTradeConfigs(ctx context.Context) ([]AutoTradeConfig, error) {
	rows, err := q.exec.QueryContext(ctx, `
		SELECT user_id, venue, enabled, symbols, max_position_pct, stop_loss_pct, take_profit_pct, min_confidence, max_daily_trades, daily_trades_used, consecutive_losses, max_consecutive_losses, updated_at
		FROM auto_trade_configs WHERE enabled = 1
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AutoTradeConfig
	for rows.Next() {
		var c AutoTradeConfig
		if err := rows.Scan(&c.UserID, &c.Venue, &c.Enabled, &c.Symbols, &c.MaxPositionPct, &c.StopLossPct, &c.TakeProfitPct, &c.MinConfidence, &c.MaxDailyTrades, &c.DailyTradesUsed, &c.ConsecutiveLosses, &c.MaxConsecutiveLosses, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (q *Queries) IncrementDailyTrades(ctx context.Context, userID, venue string) error {
	_, err := q.exec.ExecContext(ctx, `
		UPDATE auto_trade_configs SET daily_trades_used = daily_trades_used + 1 WHERE user_id = ? AND venue = ?
	`, userID, venue)
	return err
}

func (q *Queries) ResetDailyTrades(ctx context.Context) error {
	_, err := q.exec.ExecContext(ctx, `UPDATE auto_trade_configs SET daily_trades_used = 0`)
	return err
}

// IncrementConsecutiveLosses bumps the loss streak on a loss, or resets
// it to zero on a profit.
func (q *Queries) IncrementConsecutiveLosses(ctx context.Context, userID, venue string, isProfit bool) error {
	if isProfit {
		_, err := q.exec.ExecContext(ctx, `
			UPDATE auto_trade_configs SET consecutive_losses = 0 WHERE user_id = ? AND venue = ?
		`, userID, venue)
		return err
	}
	_, err := q.exec.ExecContext(ctx, `
		UPDATE auto_trade_configs SET consecutive_losses = consecutive_losses + 1 WHERE user_id = ? AND venue = ?
	`, userID, venue)
	return err
}

// ----------------------------------------
// Key records
// ----------------------------------------

func (q *Queries) UpsertKeyRecord(ctx context.Context, k KeyRecord) error {
	_, err := q.exec.ExecContext(ctx, `
		INSERT INTO key_records (user_id, venue, access_key_cipher, secret_key_cipher, iv, auth_tag, permissions, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, venue) DO UPDATE SET
			access_key_cipher = excluded.access_key_cipher, secret_key_cipher = excluded.secret_key_cipher,
			iv = excluded.iv, auth_tag = excluded.auth_tag, permissions = excluded.permissions
	`, k.UserID, k.Venue, k.AccessKeyCipher, k.SecretKeyCipher, k.IV, k.AuthTag, k.Permissions, k.CreatedAt)
	return err
}

func (q *Queries) GetKeyRecord(ctx context.Context, userID, venue string) (KeyRecord, error) {
	var k KeyRecord
	err := q.exec.QueryRowContext(ctx, `
		SELECT user_id, venue, access_key_cipher, secret_key_cipher, iv, auth_tag, permissions, created_at
		FROM key_records WHERE user_id = ? AND venue = ?
	`, userID, venue).Scan(&k.UserID, &k.Venue, &k.AccessKeyCipher, &k.SecretKeyCipher, &k.IV, &k.AuthTag, &k.Permissions, &k.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return KeyRecord{}, ErrNotFound
	}
	return k, err
}

func (q *Queries) DeleteKeyRecord(ctx context.Context, userID, venue string) error {
	_, err := q.exec.ExecContext(ctx, `DELETE FROM key_records WHERE user_id = ? AND venue = ?`, userID, venue)
	return err
}

// ----------------------------------------
// Sessions
// ----------------------------------------

func (q *Queries) CreateSession(ctx context.Context, s Session) error {
	_, err := q.exec.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, token_hash, created_at, expires_at) VALUES (?, ?, ?, ?, ?)
	`, s.ID, s.UserID, s.TokenHash, s.CreatedAt, s.ExpiresAt)
	return err
}

func (q *Queries) GetSessionByTokenHash(ctx context.Context, tokenHash string) (Session, error) {
	var s Session
	err := q.exec.QueryRowContext(ctx, `
		SELECT id, user_id, token_hash, created_at, expires_at FROM sessions WHERE token_hash = ?
	`, tokenHash).Scan(&s.ID, &s.UserID, &s.TokenHash, &s.CreatedAt, &s.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrNotFound
	}
	return s, err
}

func (q *Queries) DeleteSession(ctx context.Context, id string) error {
	_, err := q.exec.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	return err
}

// SweepExpiredSessions deletes every session past its expiry and reports
// how many rows were removed.
func (q *Queries) SweepExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := q.exec.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < ?`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ----------------------------------------
// Event log
// ----------------------------------------

func (q *Queries) AppendEvent(ctx context.Context, topic, payload string, at time.Time) error {
	_, err := q.exec.ExecContext(ctx, `
		INSERT INTO events (topic, payload, created_at) VALUES (?, ?, ?)
	`, topic, payload, at)
	return err
}

func (q *Queries) RecentEvents(ctx context.Context, limit int) ([]EventRow, error) {
	rows, err := q.exec.QueryContext(ctx, `
		SELECT id, topic, payload, created_at FROM events ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EventRow
	for rows.Next() {
		var e EventRow
		if err := rows.Scan(&e.ID, &e.Topic, &e.Payload, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
