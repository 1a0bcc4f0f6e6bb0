// ABOUTME: Record store: the single writer in front of the backing persistence.
// ABOUTME: Republishes the authoritative post-mutation snapshot to all live subscribers.
package diary

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/2389-research/diary/internal/metrics"
	"github.com/2389-research/diary/internal/models"
	"github.com/2389-research/diary/internal/pubsub"
	"github.com/2389-research/diary/internal/storage"
)

// Store owns the live collection of diary records. All writes go through a
// single writer lock and each successful mutation publishes exactly one new
// snapshot read back from the backend.
type Store struct {
	backend   storage.Backend
	validator Validator
	log       zerolog.Logger

	writeMu sync.Mutex
	closed  bool

	hub     *pubsub.Hub[models.Snapshot]
	mu      sync.RWMutex
	current models.Snapshot
}

// StoreOption configures optional Store dependencies.
type StoreOption func(*Store)

// WithValidator replaces the default record validator.
func WithValidator(v Validator) StoreOption {
	return func(s *Store) {
		s.validator = v
	}
}

// WithLogger sets the logger used for store events.
func WithLogger(log zerolog.Logger) StoreOption {
	return func(s *Store) {
		s.log = log
	}
}

// NewStore loads the initial snapshot from backend.
func NewStore(ctx context.Context, backend storage.Backend, opts ...StoreOption) (*Store, error) {
	if backend == nil {
		return nil, fmt.Errorf("backend is required")
	}

	s := &Store{
		backend:   backend,
		validator: NewRecordValidator(),
		log:       zerolog.Nop(),
		hub:       pubsub.New[models.Snapshot](),
	}
	for _, opt := range opts {
		opt(s)
	}

	records, err := backend.ScanAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load records: %w", err)
	}
	s.current = models.NewSnapshot(1, records)
	s.log.Debug().Int("records", len(records)).Msg("store loaded")
	return s, nil
}

// Current returns the most recently published snapshot.
func (s *Store) Current() models.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// SubscribeAll streams the current snapshot followed by every later one.
// The channel closes when ctx is done or the store is closed.
func (s *Store) SubscribeAll(ctx context.Context) (<-chan models.Snapshot, error) {
	s.writeMu.Lock()
	closed := s.closed
	s.writeMu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	return s.hub.SubscribeWith(ctx, func() []models.Snapshot {
		return []models.Snapshot{s.Current()}
	}), nil
}

// Add validates and persists rec, setting rec.ID on success. It returns the
// number of records written.
func (s *Store) Add(ctx context.Context, rec *models.DiaryRecord) (n int, err error) {
	defer func() { metrics.ObserveMutation("add", err) }()

	if err := s.validator.Validate(*rec); err != nil {
		return 0, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}

	id, err := s.backend.Create(ctx, *rec)
	if err != nil {
		s.log.Error().Err(err).Msg("add failed")
		return 0, fmt.Errorf("failed to add record: %w", err)
	}
	rec.ID = id
	return 1, s.refresh(ctx)
}

// Update overwrites the record with rec.ID. It returns 0 without error when
// rec has no ID or no stored record matches.
func (s *Store) Update(ctx context.Context, rec models.DiaryRecord) (n int, err error) {
	defer func() { metrics.ObserveMutation("update", err) }()

	if err := s.validator.Validate(rec); err != nil {
		return 0, err
	}
	if !rec.HasID() {
		return 0, nil
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.updateLocked(ctx, rec)
}

// Modify applies fn to the current version of the record with id and writes
// the result, all under the writer lock. Returns 0 when id is unknown.
func (s *Store) Modify(ctx context.Context, id uuid.UUID, fn func(*models.DiaryRecord) error) (n int, err error) {
	defer func() { metrics.ObserveMutation("modify", err) }()

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}

	rec, ok := s.Current().Get(id)
	if !ok {
		return 0, nil
	}
	if err := fn(&rec); err != nil {
		return 0, err
	}
	rec.ID = id
	if err := s.validator.Validate(rec); err != nil {
		return 0, err
	}
	return s.updateLocked(ctx, rec)
}

func (s *Store) updateLocked(ctx context.Context, rec models.DiaryRecord) (int, error) {
	if s.closed {
		return 0, ErrClosed
	}
	n, err := s.backend.Update(ctx, rec)
	if err != nil {
		s.log.Error().Err(err).Str("id", rec.ID.String()).Msg("update failed")
		return 0, fmt.Errorf("failed to update record: %w", err)
	}
	if n == 0 {
		return 0, nil
	}
	return n, s.refresh(ctx)
}

// Delete removes rec by ID and returns the number of records removed.
func (s *Store) Delete(ctx context.Context, rec models.DiaryRecord) (int, error) {
	if !rec.HasID() {
		return 0, nil
	}
	return s.DeleteMany(ctx, []uuid.UUID{rec.ID})
}

// DeleteMany removes every record among ids and returns how many existed.
func (s *Store) DeleteMany(ctx context.Context, ids []uuid.UUID) (n int, err error) {
	defer func() { metrics.ObserveMutation("delete", err) }()

	targets := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id != uuid.Nil {
			targets = append(targets, id)
		}
	}
	if len(targets) == 0 {
		return 0, nil
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}

	n, err = s.backend.DeleteByIDs(ctx, targets)
	if err != nil {
		s.log.Error().Err(err).Int("requested", len(targets)).Msg("delete failed")
		err = fmt.Errorf("failed to delete records: %w", err)
	}
	if n > 0 {
		if rerr := s.refresh(ctx); err == nil {
			err = rerr
		}
	}
	return n, err
}

// DeleteAll clears the store and publishes an empty snapshot.
func (s *Store) DeleteAll(ctx context.Context) (err error) {
	defer func() { metrics.ObserveMutation("clear", err) }()

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.closed {
		return ErrClosed
	}

	if err := s.backend.Clear(ctx); err != nil {
		s.log.Error().Err(err).Msg("clear failed")
		return fmt.Errorf("failed to clear records: %w", err)
	}
	return s.refresh(ctx)
}

// Close ends all subscriptions. The backend is owned by the caller.
func (s *Store) Close() {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.hub.Close()
}

// Reload rescans the backend and publishes a new snapshot only if the
// stored records differ from the current snapshot. It picks up writes made
// by other processes sharing the backend.
func (s *Store) Reload(ctx context.Context) (changed bool, err error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.closed {
		return false, ErrClosed
	}

	records, err := s.backend.ScanAll(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to reload records: %w", err)
	}
	if sameRecords(s.Current(), records) {
		return false, nil
	}
	s.publish(records)
	return true, nil
}

func sameRecords(snap models.Snapshot, records []models.DiaryRecord) bool {
	if snap.Len() != len(records) {
		return false
	}
	for _, r := range records {
		cur, ok := snap.Get(r.ID)
		if !ok || cur.Entry != r.Entry || cur.IsFavorite != r.IsFavorite || !cur.Timestamp.Equal(r.Timestamp) {
			return false
		}
	}
	return true
}

// refresh rescans the backend and publishes the result. Callers hold writeMu.
func (s *Store) refresh(ctx context.Context) error {
	records, err := s.backend.ScanAll(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("snapshot refresh failed")
		return fmt.Errorf("failed to refresh snapshot: %w", err)
	}

	s.publish(records)
	return nil
}

// publish replaces the current snapshot with records under the next version.
func (s *Store) publish(records []models.DiaryRecord) {
	s.hub.PublishWith(func() models.Snapshot {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.current = models.NewSnapshot(s.current.Version()+1, records)
		return s.current
	})
	metrics.SnapshotsPublished.Inc()

	snap := s.Current()
	s.log.Debug().Uint64("version", snap.Version()).Int("records", snap.Len()).Msg("snapshot published")
}
