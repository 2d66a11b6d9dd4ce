package schema

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// column types per dialect
type dialect struct {
	float     string
	money     string
	unitMoney string
	timestamp string
}

var (
	postgresDialect = dialect{
		float:     "DOUBLE PRECISION",
		money:     "NUMERIC(20,4)",
		unitMoney: "NUMERIC(20,6)",
		timestamp: "TIMESTAMPTZ",
	}
	// sqlite keeps decimals as TEXT so they round-trip exactly
	sqliteDialect = dialect{
		float:     "REAL",
		money:     "TEXT",
		unitMoney: "TEXT",
		timestamp: "TIMESTAMP",
	}
)

const tables = `
CREATE TABLE IF NOT EXISTS inventory_items (
	id               TEXT PRIMARY KEY,
	name             TEXT NOT NULL,
	unit             TEXT NOT NULL,
	on_hand_quantity {{float}} NOT NULL DEFAULT 0,
	min_threshold    {{float}} NOT NULL DEFAULT 0,
	cost_per_unit    {{unitMoney}} NOT NULL DEFAULT 0,
	supplier_code    TEXT,
	vendor_code      TEXT,
	status           TEXT NOT NULL,
	created_at       {{timestamp}} NOT NULL,
	updated_at       {{timestamp}} NOT NULL
);

CREATE TABLE IF NOT EXISTS ledger_entries (
	id                TEXT PRIMARY KEY,
	inventory_item_id TEXT NOT NULL REFERENCES inventory_items(id),
	kind              TEXT NOT NULL,
	quantity_delta    {{float}} NOT NULL,
	unit              TEXT NOT NULL,
	source_quantity   {{float}} NOT NULL,
	source_unit       TEXT NOT NULL,
	unit_cost         {{unitMoney}} NOT NULL DEFAULT 0,
	total_cost        {{money}} NOT NULL DEFAULT 0,
	balance_before    {{float}} NOT NULL,
	balance_after     {{float}} NOT NULL,
	clamped           BOOLEAN NOT NULL DEFAULT FALSE,
	reference_type    TEXT NOT NULL DEFAULT '',
	reference_id      TEXT NOT NULL DEFAULT '',
	reference_number  TEXT NOT NULL DEFAULT '',
	reversal_of       TEXT REFERENCES ledger_entries(id),
	is_reversed       BOOLEAN NOT NULL DEFAULT FALSE,
	reversed_date     {{timestamp}},
	reversal_reason   TEXT,
	actor             TEXT NOT NULL,
	notes             TEXT NOT NULL DEFAULT '',
	created_at        {{timestamp}} NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_ledger_entries_reference
	ON ledger_entries (inventory_item_id, kind, reference_type, reference_id);

CREATE INDEX IF NOT EXISTS idx_ledger_entries_created_at
	ON ledger_entries (created_at);

CREATE UNIQUE INDEX IF NOT EXISTS ux_ledger_entries_waste_reference
	ON ledger_entries (kind, reference_type, reference_id)
	WHERE kind = 'waste' AND reference_type = 'waste_log';

CREATE TABLE IF NOT EXISTS purchase_orders (
	id         TEXT PRIMARY KEY,
	number     TEXT NOT NULL,
	status     TEXT NOT NULL,
	updated_at {{timestamp}} NOT NULL
);

CREATE TABLE IF NOT EXISTS purchase_order_lines (
	id                TEXT PRIMARY KEY,
	order_id          TEXT NOT NULL REFERENCES purchase_orders(id),
	inventory_item_id TEXT NOT NULL,
	quantity_ordered  {{float}} NOT NULL DEFAULT 0,
	quantity_received {{float}} NOT NULL DEFAULT 0,
	unit              TEXT NOT NULL,
	unit_cost         {{unitMoney}} NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_purchase_order_lines_order
	ON purchase_order_lines (order_id);

CREATE TABLE IF NOT EXISTS waste_logs (
	external_log_id   TEXT PRIMARY KEY,
	inventory_item_id TEXT NOT NULL,
	quantity          {{float}} NOT NULL,
	unit              TEXT NOT NULL,
	logged_at         {{timestamp}} NOT NULL,
	reason            TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_waste_logs_item
	ON waste_logs (inventory_item_id);

CREATE TABLE IF NOT EXISTS menu_mappings (
	sellable_id TEXT PRIMARY KEY,
	name        TEXT NOT NULL DEFAULT '',
	components  TEXT NOT NULL,
	updated_at  {{timestamp}} NOT NULL
);
`

// Statements renders the DDL for the given sqlx driver name.
func Statements(driverName string) []string {
	d := postgresDialect
	if driverName == "sqlite3" {
		d = sqliteDialect
	}
	ddl := strings.NewReplacer(
		"{{float}}", d.float,
		"{{money}}", d.money,
		"{{unitMoney}}", d.unitMoney,
		"{{timestamp}}", d.timestamp,
	).Replace(tables)

	var stmts []string
	for _, s := range strings.Split(ddl, ";") {
		if s = strings.TrimSpace(s); s != "" {
			stmts = append(stmts, s)
		}
	}
	return stmts
}

// Migrate creates every table and index that does not exist yet.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range Statements(db.DriverName()) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
