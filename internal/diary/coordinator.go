// ABOUTME: Mutation coordinator for batched deletes and favorite toggles.
// ABOUTME: Applies a strict-success policy: partial batch results are reported as failure.
package diary

import (
	"context"

	"github.com/google/uuid"

	"github.com/2389-research/diary/internal/models"
)

// Coordinator performs caller-facing mutations with explicit success
// accounting on top of a Store.
type Coordinator struct {
	store *Store
}

// NewCoordinator wraps store.
func NewCoordinator(store *Store) *Coordinator {
	return &Coordinator{store: store}
}

// Add validates and writes a new record, setting its ID.
func (c *Coordinator) Add(ctx context.Context, rec *models.DiaryRecord) (bool, error) {
	n, err := c.store.Add(ctx, rec)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Update overwrites an existing record. It returns false when no record
// matched rec.ID.
func (c *Coordinator) Update(ctx context.Context, rec models.DiaryRecord) (bool, error) {
	n, err := c.store.Update(ctx, rec)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// DeleteSelected deletes every id and succeeds only if all of them were
// present. After a false result the caller's selection is stale and must be
// rebuilt from a fresh snapshot.
func (c *Coordinator) DeleteSelected(ctx context.Context, ids []uuid.UUID) (bool, error) {
	unique := UniqueIDs(ids)
	if len(unique) == 0 {
		return true, nil
	}

	n, err := c.store.DeleteMany(ctx, unique)
	if err != nil {
		return false, err
	}
	return n == len(unique), nil
}

// UniqueIDs returns ids with repeats removed, keeping first-seen order.
// A selection deletes len(UniqueIDs(ids)) records on success.
func UniqueIDs(ids []uuid.UUID) []uuid.UUID {
	unique := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	return unique
}

// ToggleFavorite flips the favorite flag of the record with id. The read and
// the write happen under the store's writer lock, so concurrent toggles on
// the same record apply one after the other.
func (c *Coordinator) ToggleFavorite(ctx context.Context, id uuid.UUID) (bool, error) {
	n, err := c.store.Modify(ctx, id, func(rec *models.DiaryRecord) error {
		rec.IsFavorite = !rec.IsFavorite
		return nil
	})
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
