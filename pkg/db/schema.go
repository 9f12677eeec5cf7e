package db

import (
	"database/sql"
	"fmt"
)

const schema = `
PRAGMA journal_mode=WAL;
PRAGMA foreign_keys=ON;

CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    username TEXT NOT NULL UNIQUE,
    password TEXT NOT NULL,
    role TEXT NOT NULL DEFAULT 'user',
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    last_login DATETIME
);

CREATE TABLE IF NOT EXISTS wallets (
    user_id TEXT NOT NULL,
    token TEXT NOT NULL,
    balance REAL NOT NULL DEFAULT 0,
    locked REAL NOT NULL DEFAULT 0,
    PRIMARY KEY (user_id, token)
);

CREATE TABLE IF NOT EXISTS tokens (
    symbol TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    total_supply REAL NOT NULL,
    decimals INTEGER NOT NULL DEFAULT 9
);

CREATE TABLE IF NOT EXISTS pools (
    id TEXT PRIMARY KEY,
    token_a TEXT NOT NULL,
    token_b TEXT NOT NULL,
    reserve_a REAL NOT NULL,
    reserve_b REAL NOT NULL,
    fee_bps INTEGER NOT NULL,
    total_lp_shares REAL NOT NULL DEFAULT 0,
    volume_24h REAL NOT NULL DEFAULT 0,
    fees_collected REAL NOT NULL DEFAULT 0,
    swap_count INTEGER NOT NULL DEFAULT 0,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS pool_lp_holders (
    pool_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    shares REAL NOT NULL DEFAULT 0,
    PRIMARY KEY (pool_id, user_id)
);

CREATE TABLE IF NOT EXISTS pool_price_history (
    pool_id TEXT NOT NULL,
    price REAL NOT NULL,
    ts DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_price_history_pool ON pool_price_history(pool_id, ts);

CREATE TABLE IF NOT EXISTS limit_orders (
    id TEXT PRIMARY KEY,
    owner_id TEXT NOT NULL,
    pool_id TEXT NOT NULL,
    side TEXT NOT NULL,
    price REAL NOT NULL,
    amount REAL NOT NULL,
    filled REAL NOT NULL DEFAULT 0,
    status TEXT NOT NULL DEFAULT 'open',
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_limit_orders_pool ON limit_orders(pool_id, status);
CREATE INDEX IF NOT EXISTS idx_limit_orders_owner ON limit_orders(owner_id);

CREATE TABLE IF NOT EXISTS swaps (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    pool_id TEXT NOT NULL,
    token_in TEXT NOT NULL,
    token_out TEXT NOT NULL,
    amount_in REAL NOT NULL,
    amount_out REAL NOT NULL,
    fee REAL NOT NULL,
    slippage REAL NOT NULL,
    price_impact REAL NOT NULL,
    trit_state TEXT NOT NULL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_swaps_user ON swaps(user_id);

CREATE TABLE IF NOT EXISTS venue_orders (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    venue TEXT NOT NULL,
    symbol TEXT NOT NULL,
    side TEXT NOT NULL,
    type TEXT NOT NULL,
    price REAL NOT NULL DEFAULT 0,
    quantity REAL NOT NULL,
    status TEXT NOT NULL DEFAULT 'pending',
    exchange_order_id TEXT,
    filled_qty REAL NOT NULL DEFAULT 0,
    filled_price REAL NOT NULL DEFAULT 0,
    fee REAL NOT NULL DEFAULT 0,
    source TEXT NOT NULL,
    ai_signal_id TEXT,
    error TEXT,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_venue_orders_user ON venue_orders(user_id, venue);

CREATE TABLE IF NOT EXISTS ai_signals (
    id TEXT PRIMARY KEY,
    symbol TEXT NOT NULL,
    venue TEXT NOT NULL,
    interval TEXT NOT NULL,
    signal TEXT NOT NULL,
    score REAL NOT NULL,
    confidence REAL NOT NULL,
    trit TEXT NOT NULL,
    strategies TEXT,
    risk TEXT,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_ai_signals_symbol ON ai_signals(symbol, venue);

CREATE TABLE IF NOT EXISTS auto_trade_configs (
    user_id TEXT NOT NULL,
    venue TEXT NOT NULL,
    enabled INTEGER NOT NULL DEFAULT 0,
    symbols TEXT NOT NULL DEFAULT 'BTCUSDT,ETHUSDT',
    max_position_pct REAL NOT NULL DEFAULT 0.1,
    stop_loss_pct REAL NOT NULL DEFAULT 0.03,
    take_profit_pct REAL NOT NULL DEFAULT 0.06,
    min_confidence REAL NOT NULL DEFAULT 0.7,
    max_daily_trades INTEGER NOT NULL DEFAULT 10,
    daily_trades_used INTEGER NOT NULL DEFAULT 0,
    consecutive_losses INTEGER NOT NULL DEFAULT 0,
    max_consecutive_losses INTEGER NOT NULL DEFAULT 3,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (user_id, venue)
);

CREATE TABLE IF NOT EXISTS key_records (
    user_id TEXT NOT NULL,
    venue TEXT NOT NULL,
    access_key_cipher TEXT NOT NULL,
    secret_key_cipher TEXT NOT NULL,
    iv TEXT NOT NULL,
    auth_tag TEXT NOT NULL,
    permissions TEXT,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (user_id, venue)
);

CREATE TABLE IF NOT EXISTS sessions (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    token_hash TEXT NOT NULL UNIQUE,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    expires_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id);
CREATE INDEX IF NOT EXISTS idx_sessions_expires ON sessions(expires_at);

CREATE TABLE IF NOT EXISTS events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    topic TEXT NOT NULL,
    payload TEXT NOT NULL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_events_topic ON events(topic, created_at);
`

// ApplyMigrations creates every table and index if absent. It runs no
// column additions; ensureColumn below is not called from here.
func ApplyMigrations(d *Database) error {
	if _, err := d.DB.Exec(schema); err != nil {
		return fmt.Errorf("apply base schema: %w", err)
	}
	return nil
}

// ensureColumn adds a column to table if it is not already present,
// swallowing the "duplicate column" failure SQLite has no IF NOT EXISTS
// form for.
func ensureColumn(db *sql.DB, table, column, ddl string) error {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid, notnull, pk int
			name, ctype      string
			dflt             sql.NullString
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return err
		}
		if name == column {
			return nil
		}
	}

	_, err = db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, ddl))
	return err
}
