// ABOUTME: File-per-record diary persistence built on diskv.
// ABOUTME: Each record is a JSON file named by its ID; the weekly summary lives in its own file.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/peterbourgon/diskv/v3"

	"github.com/2389-research/diary/internal/models"
)

const (
	diskvRecordPrefix = "rec-"
	diskvSummaryKey   = "summary"
)

// DiskvBackend stores diary records as individual JSON files.
type DiskvBackend struct {
	mu sync.Mutex // guards check-then-write sequences
	d  *diskv.Diskv
}

// NewDiskvBackend creates a file store rooted at basePath.
func NewDiskvBackend(basePath string) (*DiskvBackend, error) {
	if basePath == "" {
		return nil, fmt.Errorf("base path is required")
	}
	if err := os.MkdirAll(basePath, 0750); err != nil {
		return nil, fmt.Errorf("create store directory %s: %w", basePath, err)
	}
	// No read cache: other processes write the same directory, and a cached
	// file would hide their edits from ScanAll and LoadSummary.
	return &DiskvBackend{d: diskv.New(diskv.Options{
		BasePath:  basePath,
		Transform: shardTransform,
	})}, nil
}

// shardTransform spreads record files over 256 directories by ID prefix.
func shardTransform(key string) []string {
	if !strings.HasPrefix(key, diskvRecordPrefix) {
		return []string{}
	}
	id := strings.TrimPrefix(key, diskvRecordPrefix)
	if len(id) < 2 {
		return []string{}
	}
	return []string{id[:2]}
}

func diskvKey(id uuid.UUID) string {
	return diskvRecordPrefix + id.String()
}

// readFile reads key straight from disk, bypassing diskv's cache.
func (b *DiskvBackend) readFile(key string) ([]byte, error) {
	rc, err := b.d.ReadStream(key, true)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// Create writes rec to a new file under a fresh ID.
func (b *DiskvBackend) Create(ctx context.Context, rec models.DiaryRecord) (uuid.UUID, error) {
	if err := ctx.Err(); err != nil {
		return uuid.Nil, err
	}
	rec.ID = uuid.New()
	data, err := json.Marshal(rec)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to encode record: %w", err)
	}
	if err := b.d.Write(diskvKey(rec.ID), data); err != nil {
		return uuid.Nil, fmt.Errorf("failed to write record: %w", err)
	}
	return rec.ID, nil
}

// Update overwrites the file for rec.ID if it exists.
func (b *DiskvBackend) Update(ctx context.Context, rec models.DiaryRecord) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return 0, fmt.Errorf("failed to encode record: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	key := diskvKey(rec.ID)
	if !b.d.Has(key) {
		return 0, nil
	}
	if err := b.d.Write(key, data); err != nil {
		return 0, fmt.Errorf("failed to update record: %w", err)
	}
	return 1, nil
}

// DeleteByIDs erases the files of every existing ID.
func (b *DiskvBackend) DeleteByIDs(ctx context.Context, ids []uuid.UUID) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	affected := 0
	for _, id := range ids {
		key := diskvKey(id)
		if !b.d.Has(key) {
			continue
		}
		if err := b.d.Erase(key); err != nil {
			return affected, fmt.Errorf("failed to delete record %s: %w", id, err)
		}
		affected++
	}
	return affected, nil
}

// ScanAll reads every record file.
func (b *DiskvBackend) ScanAll(ctx context.Context) ([]models.DiaryRecord, error) {
	// Cancelling stops the key walker if we bail out early.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var records []models.DiaryRecord
	for key := range b.d.KeysPrefix(diskvRecordPrefix, ctx.Done()) {
		val, err := b.readFile(key)
		if err != nil {
			return nil, fmt.Errorf("failed to read record %s: %w", key, err)
		}
		var rec models.DiaryRecord
		if err := json.Unmarshal(val, &rec); err != nil {
			return nil, fmt.Errorf("corrupt record %s: %w", key, err)
		}
		records = append(records, rec)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// Clear erases every record file.
func (b *DiskvBackend) Clear(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var keys []string
	for key := range b.d.KeysPrefix(diskvRecordPrefix, ctx.Done()) {
		keys = append(keys, key)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, key := range keys {
		if err := b.d.Erase(key); err != nil {
			return fmt.Errorf("failed to clear records: %w", err)
		}
	}
	return nil
}

// LoadSummary reads the summary file, or returns nil if it does not exist.
func (b *DiskvBackend) LoadSummary(ctx context.Context) (*models.WeeklySummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !b.d.Has(diskvSummaryKey) {
		return nil, nil
	}
	val, err := b.readFile(diskvSummaryKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load summary: %w", err)
	}
	var s models.WeeklySummary
	if err := json.Unmarshal(val, &s); err != nil {
		return nil, fmt.Errorf("corrupt summary: %w", err)
	}
	return &s, nil
}

// SaveSummary overwrites the summary file.
func (b *DiskvBackend) SaveSummary(ctx context.Context, s models.WeeklySummary) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}
	if err := b.d.WriteStream(diskvSummaryKey, bytes.NewReader(data), true); err != nil {
		return fmt.Errorf("failed to save summary: %w", err)
	}
	return nil
}

// Close releases any resources held by the store.
func (b *DiskvBackend) Close() error {
	return nil
}
