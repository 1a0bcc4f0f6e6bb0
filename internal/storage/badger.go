// ABOUTME: BadgerDB-backed diary persistence, the default backend.
// ABOUTME: Stores records as JSON under a key prefix and the weekly summary under a fixed key.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/2389-research/diary/internal/models"
)

var (
	recordPrefix = []byte("diary/rec/")
	summaryKey   = []byte("diary/summary")
)

// BadgerConfig configures a BadgerBackend.
type BadgerConfig struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path string

	// InMemory keeps everything in RAM. Used by tests.
	InMemory bool

	// SyncWrites fsyncs every commit.
	SyncWrites bool
}

// BadgerBackend stores diary records in a BadgerDB instance.
type BadgerBackend struct {
	db *badger.DB
}

// NewBadgerBackend opens (or creates) a Badger database.
func NewBadgerBackend(cfg BadgerConfig) (*BadgerBackend, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).
		WithNumVersionsToKeep(1).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return &BadgerBackend{db: db}, nil
}

func recordKey(id uuid.UUID) []byte {
	return append(append([]byte{}, recordPrefix...), id.String()...)
}

// Create persists rec under a new random ID.
func (b *BadgerBackend) Create(ctx context.Context, rec models.DiaryRecord) (uuid.UUID, error) {
	if err := ctx.Err(); err != nil {
		return uuid.Nil, err
	}
	rec.ID = uuid.New()
	data, err := json.Marshal(rec)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to encode record: %w", err)
	}
	err = b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(recordKey(rec.ID), data)
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to write record: %w", err)
	}
	return rec.ID, nil
}

// Update overwrites an existing record. Returns 0 when rec.ID is unknown.
func (b *BadgerBackend) Update(ctx context.Context, rec models.DiaryRecord) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return 0, fmt.Errorf("failed to encode record: %w", err)
	}

	affected := 0
	err = b.db.Update(func(txn *badger.Txn) error {
		key := recordKey(rec.ID)
		if _, err := txn.Get(key); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		affected = 1
		return txn.Set(key, data)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to update record: %w", err)
	}
	return affected, nil
}

// DeleteByIDs removes the records that exist among ids.
func (b *BadgerBackend) DeleteByIDs(ctx context.Context, ids []uuid.UUID) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	affected := 0
	err := b.db.Update(func(txn *badger.Txn) error {
		for _, id := range ids {
			key := recordKey(id)
			if _, err := txn.Get(key); err != nil {
				if errors.Is(err, badger.ErrKeyNotFound) {
					continue
				}
				return err
			}
			if err := txn.Delete(key); err != nil {
				return err
			}
			affected++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to delete records: %w", err)
	}
	return affected, nil
}

// ScanAll reads every record under the record prefix.
func (b *BadgerBackend) ScanAll(ctx context.Context) ([]models.DiaryRecord, error) {
	var records []models.DiaryRecord
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = recordPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(recordPrefix); it.ValidForPrefix(recordPrefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			val, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			var rec models.DiaryRecord
			if err := json.Unmarshal(val, &rec); err != nil {
				return fmt.Errorf("corrupt record %s: %w", it.Item().Key(), err)
			}
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan records: %w", err)
	}
	return records, nil
}

// Clear drops every record key.
func (b *BadgerBackend) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := b.db.DropPrefix(recordPrefix); err != nil {
		return fmt.Errorf("failed to clear records: %w", err)
	}
	return nil
}

// LoadSummary returns the stored weekly summary or nil.
func (b *BadgerBackend) LoadSummary(ctx context.Context) (*models.WeeklySummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var summary *models.WeeklySummary
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(summaryKey)
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var s models.WeeklySummary
			if err := json.Unmarshal(val, &s); err != nil {
				return err
			}
			summary = &s
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load summary: %w", err)
	}
	return summary, nil
}

// SaveSummary overwrites the weekly summary slot.
func (b *BadgerBackend) SaveSummary(ctx context.Context, s models.WeeklySummary) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}
	if err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(summaryKey, data)
	}); err != nil {
		return fmt.Errorf("failed to save summary: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (b *BadgerBackend) Close() error {
	return b.db.Close()
}
