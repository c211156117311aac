// Package mongo implements store.Store on MongoDB via the Grove ORM.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/dpledger"
	ledgerstore "github.com/xraph/dpledger/store"
	"github.com/xraph/dpledger/subject"
	"github.com/xraph/dpledger/types"
)

// Collection name constants.
const (
	colLedgers = "dpledger_ledgers"
)

// compile-time interface check
var _ ledgerstore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for the ledger collection.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("dpledger/mongo: migrate %s indexes: %w", col, err)
		}
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
	var m ledgerModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": key.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, dpledger.ErrLedgerNotFound
		}
		return nil, fmt.Errorf("dpledger/mongo: get ledger: %w", err)
	}
	return fromLedgerModel(&m)
}

func (s *Store) SetLedger(ctx context.Context, l *subject.Ledger) error {
	m := toLedgerModel(l)
	m.UpdatedAt = time.Now().UTC()

	_, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.Key}).
		SetUpdate(bson.M{"$set": bson.M{
			"_id":          m.Key,
			"constants":    m.Constants,
			"update_count": m.UpdateCount,
			"last_updated": m.LastUpdated,
			"created_at":   m.CreatedAt,
			"updated_at":   m.UpdatedAt,
		}}).
		Upsert().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("dpledger/mongo: set ledger: %w", err)
	}
	return nil
}

func (s *Store) DeleteLedger(ctx context.Context, key subject.Key) error {
	res, err := s.mdb.NewDelete((*ledgerModel)(nil)).
		Filter(bson.M{"_id": key.String()}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("dpledger/mongo: delete ledger: %w", err)
	}
	if res.DeletedCount() == 0 {
		return dpledger.ErrLedgerNotFound
	}
	return nil
}

func (s *Store) ListLedgers(ctx context.Context, opts subject.ListOpts) ([]*subject.Ledger, error) {
	var models []ledgerModel

	q := s.mdb.NewFind(&models).
		Filter(bson.M{}).
		Sort(bson.D{{Key: "created_at", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("dpledger/mongo: list ledgers: %w", err)
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

	Key         string             `grove:"key,pk"       bson:"_id"`
	Constants   map[string]float64 `grove:"constants"    bson:"constants,omitempty"`
	UpdateCount uint64             `grove:"update_count" bson:"update_count"`
	LastUpdated time.Time          `grove:"last_updated" bson:"last_updated"`
	CreatedAt   time.Time          `grove:"created_at"   bson:"created_at"`
	UpdatedAt   time.Time          `grove:"updated_at"   bson:"updated_at"`
}

func toLedgerModel(l *subject.Ledger) *ledgerModel {
	return &ledgerModel{
		Key:         l.Key.String(),
		Constants:   l.Constants,
		UpdateCount: l.UpdateCount,
		LastUpdated: l.LastUpdated,
		CreatedAt:   l.CreatedAt,
		UpdatedAt:   l.UpdatedAt,
	}
}

func fromLedgerModel(m *ledgerModel) (*subject.Ledger, error) {
	key, err := subject.ParseKey(m.Key)
	if err != nil {
		return nil, fmt.Errorf("dpledger/mongo: decode ledger key: %w", err)
	}

	constants := m.Constants
	if constants == nil {
		constants = make(map[string]float64)
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

// migrationIndexes returns the index definitions for the ledger collection.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colLedgers: {
			{Keys: bson.D{{Key: "last_updated", Value: -1}}},
			{
				Keys:    bson.D{{Key: "update_count", Value: -1}},
				Options: options.Index().SetSparse(true),
			},
		},
	}
}

// isNoDocuments checks for the mongo driver's not-found sentinel.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}
