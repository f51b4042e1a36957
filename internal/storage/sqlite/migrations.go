package sqlite

import "database/sql"

// migrations contains the SQL statements to set up the database schema.
// These run on startup to ensure tables exist.
// Amounts are stored as decimal TEXT so they round-trip exactly.
const schema = `
CREATE TABLE IF NOT EXISTS orders (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    code TEXT NOT NULL UNIQUE,
    table_id INTEGER NOT NULL,
    status TEXT NOT NULL,
    total TEXT NOT NULL,
    payment_method TEXT NOT NULL DEFAULT '',
    payment_status TEXT NOT NULL,
    settlement_id TEXT,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS order_items (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    order_id INTEGER NOT NULL,
    food_id INTEGER NOT NULL,
    food_name TEXT NOT NULL,
    quantity INTEGER NOT NULL,
    unit_price TEXT NOT NULL,
    line_total TEXT NOT NULL,
    status TEXT NOT NULL,
    note TEXT NOT NULL DEFAULT '',
    options TEXT NOT NULL DEFAULT '[]',
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS settlement_sessions (
    id TEXT PRIMARY KEY,
    order_id INTEGER NOT NULL UNIQUE,
    mode TEXT NOT NULL,
    participant_count INTEGER NOT NULL DEFAULT 0,
    finalized INTEGER NOT NULL DEFAULT 0,
    version INTEGER NOT NULL,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS settlement_shares (
    session_id TEXT NOT NULL,
    participant_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    display_name TEXT NOT NULL DEFAULT '',
    payment_method TEXT NOT NULL,
    amount TEXT NOT NULL,
    percentage TEXT,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    PRIMARY KEY (session_id, participant_id),
    FOREIGN KEY (session_id) REFERENCES settlement_sessions(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS settlement_claims (
    session_id TEXT NOT NULL,
    item_id INTEGER NOT NULL,
    participant_id TEXT NOT NULL,
    PRIMARY KEY (session_id, item_id),
    FOREIGN KEY (session_id, participant_id) REFERENCES settlement_shares(session_id, participant_id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_orders_table_id ON orders(table_id);
CREATE INDEX IF NOT EXISTS idx_order_items_order_id ON order_items(order_id);
CREATE INDEX IF NOT EXISTS idx_settlement_shares_session_id ON settlement_shares(session_id);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
