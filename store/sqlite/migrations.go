package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the dpledger store (SQLite).
var Migrations = migrate.NewGroup("dpledger")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_dpledger_ledgers",
			Version: "20240101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS dpledger_ledgers (
    key          TEXT PRIMARY KEY,
    constants    TEXT NOT NULL DEFAULT '{}',
    update_count INTEGER NOT NULL DEFAULT 0,
    last_updated TEXT NOT NULL DEFAULT (datetime('now')),
    created_at   TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at   TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_dpledger_ledgers_last_updated ON dpledger_ledgers (last_updated);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS dpledger_ledgers`)
				return err
			},
		},
	)
}
