// Package postgres implements store.Store on PostgreSQL via the Grove ORM.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/dpledger"
	ledgerstore "github.com/xraph/dpledger/store"
	"github.com/xraph/dpledger/subject"
	"github.com/xraph/dpledger/types"
)

// compile-time interface check
var _ ledgerstore.Store = (*Store)(nil)

// Store implements store.Store using PostgreSQL via Grove ORM.
type Store struct {
	db *grove.DB
	pg *pgdriver.PgDB
}

// New creates a new PostgreSQL store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db: db,
		pg: pgdriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pg)
	if err != nil {
		return fmt.Errorf("dpledger/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("dpledger/postgres: migration failed: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Ledger Store ====================

func (s *Store) GetLedger(ctx context.Context, key subject.Key) (*subject.Ledger, error) {
	m := new(ledgerModel)
	err := s.pg.NewSelect(m).
		Where("key = ?", key.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, dpledger.ErrLedgerNotFound
		}
		return nil, err
	}
	return fromLedgerModel(m)
}

func (s *Store) SetLedger(ctx context.Context, l *subject.Ledger) error {
	m, err := toLedgerModel(l)
	if err != nil {
		return err
	}
	m.UpdatedAt = now()

	res, err := s.pg.NewUpdate(m).WherePK().Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		_, err = s.pg.NewInsert(m).Exec(ctx)
	}
	return err
}

func (s *Store) DeleteLedger(ctx context.Context, key subject.Key) error {
	res, err := s.pg.NewDelete((*ledgerModel)(nil)).
		Where("key = ?", key.String()).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return dpledger.ErrLedgerNotFound
	}
	return nil
}

func (s *Store) ListLedgers(ctx context.Context, opts subject.ListOpts) ([]*subject.Ledger, error) {
	var models []ledgerModel
	q := s.pg.NewSelect(&models)

	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*subject.Ledger, len(models))
	for i := range models {
		l, err := fromLedgerModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = l
	}
	return result, nil
}

// ==================== Models ====================

type ledgerModel struct {
	grove.BaseModel `grove:"table:dpledger_ledgers"`

	Key         string          `grove:"key,pk"`
	Constants   json.RawMessage `grove:"constants,type:jsonb"`
	UpdateCount uint64          `grove:"update_count"`
	LastUpdated time.Time       `grove:"last_updated"`
	CreatedAt   time.Time       `grove:"created_at"`
	UpdatedAt   time.Time       `grove:"updated_at"`
}

func toLedgerModel(l *subject.Ledger) (*ledgerModel, error) {
	constants, err := json.Marshal(l.Constants)
	if err != nil {
		return nil, fmt.Errorf("dpledger/postgres: encode constants: %w", err)
	}

	return &ledgerModel{
		Key:         l.Key.String(),
		Constants:   constants,
		UpdateCount: l.UpdateCount,
		LastUpdated: l.LastUpdated,
		CreatedAt:   l.CreatedAt,
		UpdatedAt:   l.UpdatedAt,
	}, nil
}

func fromLedgerModel(m *ledgerModel) (*subject.Ledger, error) {
	key, err := subject.ParseKey(m.Key)
	if err != nil {
		return nil, err
	}

	constants := make(map[string]float64)
	if len(m.Constants) > 0 {
		if err := json.Unmarshal(m.Constants, &constants); err != nil {
			return nil, fmt.Errorf("dpledger/postgres: decode constants: %w", err)
		}
	}

	return &subject.Ledger{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		Key:         key,
		Constants:   constants,
		UpdateCount: m.UpdateCount,
		LastUpdated: m.LastUpdated,
	}, nil
}

// ==================== Helpers ====================

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
