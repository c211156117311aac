package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the dpledger store.
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
    constants    JSONB NOT NULL DEFAULT '{}',
    update_count BIGINT NOT NULL DEFAULT 0,
    last_updated TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
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
