// ABOUTME: Interface definitions for diary record persistence and the weekly summary slot.
// ABOUTME: Defines the CRUD plus full-scan contract the record store builds on.
package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/2389-research/diary/internal/models"
)

// ErrUnknownDriver is returned by Open for an unrecognized driver name.
var ErrUnknownDriver = errors.New("storage: unknown driver")

// Backend persists diary records. Implementations must be safe for
// concurrent use, but the record store is the only writer.
type Backend interface {
	// Create persists a new record and returns its freshly assigned ID.
	// Any ID already set on rec is ignored.
	Create(ctx context.Context, rec models.DiaryRecord) (uuid.UUID, error)

	// Update overwrites the record with rec.ID. Returns 1 if a record was
	// overwritten and 0 if no record has that ID.
	Update(ctx context.Context, rec models.DiaryRecord) (int, error)

	// DeleteByIDs removes the given records and returns how many existed.
	DeleteByIDs(ctx context.Context, ids []uuid.UUID) (int, error)

	// ScanAll returns every stored record in no particular order.
	ScanAll(ctx context.Context) ([]models.DiaryRecord, error)

	// Clear removes all records. The summary slot is left untouched.
	Clear(ctx context.Context) error

	// Close releases any resources held by the backend.
	Close() error
}

// SummarySlot persists the single most recent weekly summary.
type SummarySlot interface {
	// LoadSummary returns the stored summary, or nil if none was saved.
	LoadSummary(ctx context.Context) (*models.WeeklySummary, error)

	// SaveSummary overwrites the stored summary.
	SaveSummary(ctx context.Context, s models.WeeklySummary) error
}

// Store combines record persistence and the summary slot. Both bundled
// backends implement it.
type Store interface {
	Backend
	SummarySlot
}

// Driver names accepted by Open.
const (
	DriverBadger = "badger"
	DriverDiskv  = "diskv"
)

// Open creates the backend for driver rooted at path.
func Open(driver, path string) (Store, error) {
	switch driver {
	case "", DriverBadger:
		return NewBadgerBackend(BadgerConfig{Path: path, SyncWrites: true})
	case DriverDiskv:
		return NewDiskvBackend(path)
	default:
		return nil, ErrUnknownDriver
	}
}
