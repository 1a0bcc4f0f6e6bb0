// ABOUTME: Core data models for diary records, snapshots, filters, summaries, and streaks.
// ABOUTME: Provides snapshot construction and calendar-day helpers shared by the store and queries.
package models

import (
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
)

// DiaryRecord is a single diary entry. A record with ID == uuid.Nil has not
// been persisted yet; the backing store assigns the ID on first write.
type DiaryRecord struct {
	ID         uuid.UUID `json:"id"`
	Entry      string    `json:"entry" validate:"required,notblank"`
	Timestamp  time.Time `json:"timestamp" validate:"required"`
	IsFavorite bool      `json:"is_favorite"`
}

// HasID reports whether the record has been assigned an identifier.
func (r DiaryRecord) HasID() bool {
	return r.ID != uuid.Nil
}

// NewDiaryRecord creates an unsaved record for the given entry text and time.
func NewDiaryRecord(entry string, timestamp time.Time) *DiaryRecord {
	return &DiaryRecord{
		Entry:     entry,
		Timestamp: timestamp,
	}
}

// Snapshot is the full set of records in the store at one point in time.
// It is immutable once constructed.
type Snapshot struct {
	version uint64
	records []DiaryRecord
}

// NewSnapshot copies records into a new immutable snapshot.
func NewSnapshot(version uint64, records []DiaryRecord) Snapshot {
	cp := make([]DiaryRecord, len(records))
	copy(cp, records)
	return Snapshot{version: version, records: cp}
}

// Version is the monotonically increasing publish sequence number.
func (s Snapshot) Version() uint64 { return s.version }

// Len returns the number of records in the snapshot.
func (s Snapshot) Len() int { return len(s.records) }

// Records returns a copy of the snapshot's records.
func (s Snapshot) Records() []DiaryRecord {
	cp := make([]DiaryRecord, len(s.records))
	copy(cp, s.records)
	return cp
}

// Get looks up a record by ID.
func (s Snapshot) Get(id uuid.UUID) (DiaryRecord, bool) {
	for _, r := range s.records {
		if r.ID == id {
			return r, true
		}
	}
	return DiaryRecord{}, false
}

// Contains reports whether a record with the given ID is present.
func (s Snapshot) Contains(id uuid.UUID) bool {
	_, ok := s.Get(id)
	return ok
}

// Latest returns up to n records, most recent timestamp first.
func (s Snapshot) Latest(n int) []DiaryRecord {
	recs := s.Records()
	SortNewestFirst(recs)
	if n >= 0 && len(recs) > n {
		recs = recs[:n]
	}
	return recs
}

// SortNewestFirst orders records by timestamp descending, ties broken by ID.
func SortNewestFirst(recs []DiaryRecord) {
	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].Timestamp.Equal(recs[j].Timestamp) {
			return recs[i].ID.String() < recs[j].ID.String()
		}
		return recs[i].Timestamp.After(recs[j].Timestamp)
	})
}

// SortOldestFirst orders records by timestamp ascending, ties broken by ID.
func SortOldestFirst(recs []DiaryRecord) {
	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].Timestamp.Equal(recs[j].Timestamp) {
			return recs[i].ID.String() < recs[j].ID.String()
		}
		return recs[i].Timestamp.Before(recs[j].Timestamp)
	})
}

// DateRange is an inclusive calendar-day range.
type DateRange struct {
	From time.Time
	To   time.Time
}

// Filter narrows a snapshot to a view. Date and Range are mutually exclusive;
// Text and FavoritesOnly combine with either by logical AND.
type Filter struct {
	Text          string
	Date          *time.Time
	Range         *DateRange
	FavoritesOnly bool
}

var (
	// ErrDateAndRange is returned when a filter sets both a date and a range.
	ErrDateAndRange = errors.New("filter: date and date range are mutually exclusive")
	// ErrInvertedRange is returned when a range starts on a later day than it ends.
	ErrInvertedRange = errors.New("filter: date range starts on a later day than it ends")
)

// IsEmpty reports whether the filter has no active predicates.
func (f Filter) IsEmpty() bool {
	return f.Text == "" && f.Date == nil && f.Range == nil && !f.FavoritesOnly
}

// Validate checks the filter for contradictory settings. Range bounds are
// compared as calendar days in loc.
func (f Filter) Validate(loc *time.Location) error {
	if f.Date != nil && f.Range != nil {
		return ErrDateAndRange
	}
	if f.Range != nil && DayStart(f.Range.From, loc).After(DayStart(f.Range.To, loc)) {
		return ErrInvertedRange
	}
	return nil
}

// DayStart returns midnight of t's calendar day in loc.
func DayStart(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// SameDay reports whether a and b fall on the same calendar day in loc.
func SameDay(a, b time.Time, loc *time.Location) bool {
	return DayStart(a, loc).Equal(DayStart(b, loc))
}

// WeeklySummary is the single most recent AI-generated summary.
type WeeklySummary struct {
	Text        string    `json:"text"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Streak is a run of calendar-day-consecutive diary entries.
type Streak struct {
	Length int
	Dates  []time.Time // midnight of each day in the run, ascending
}
