// ABOUTME: Query engine deriving filtered live views from the record store's snapshots.
// ABOUTME: Narrows by date or range with a sorted index before scanning entry text.
package diary

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/2389-research/diary/internal/models"
)

// StateKind discriminates ViewState variants.
type StateKind int

const (
	StateLoading StateKind = iota
	StateContent
	StateError
)

func (k StateKind) String() string {
	switch k {
	case StateLoading:
		return "loading"
	case StateContent:
		return "content"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("StateKind(%d)", int(k))
	}
}

// ViewState is what a live query hands to presentation. Records, Filtered
// and Version are set for StateContent; Err is set for StateError.
type ViewState struct {
	Kind     StateKind
	Records  []models.DiaryRecord
	Filtered bool
	Version  uint64
	Err      error
}

// SnapshotSource is anything that streams store snapshots.
type SnapshotSource interface {
	SubscribeAll(ctx context.Context) (<-chan models.Snapshot, error)
}

// QueryEngine evaluates filters over live snapshots without going back to
// the backing store.
type QueryEngine struct {
	source SnapshotSource
	loc    *time.Location
}

// QueryOption configures a QueryEngine.
type QueryOption func(*QueryEngine)

// WithLocation sets the time zone used for calendar-day comparisons.
func WithLocation(loc *time.Location) QueryOption {
	return func(q *QueryEngine) {
		if loc != nil {
			q.loc = loc
		}
	}
}

// NewQueryEngine creates an engine reading from source.
func NewQueryEngine(source SnapshotSource, opts ...QueryOption) *QueryEngine {
	q := &QueryEngine{source: source, loc: time.Local}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Location returns the time zone used for calendar-day comparisons.
func (q *QueryEngine) Location() *time.Location {
	return q.loc
}

// Observe emits StateLoading, then a StateContent for every upstream
// snapshot, filtered by f. An invalid filter or a failed subscription yields
// a single StateError. The channel closes when ctx is done, which also
// releases the upstream subscription.
func (q *QueryEngine) Observe(ctx context.Context, f models.Filter) <-chan ViewState {
	out := make(chan ViewState)

	go func() {
		defer close(out)
		send := func(v ViewState) bool {
			select {
			case out <- v:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !send(ViewState{Kind: StateLoading}) {
			return
		}
		if err := f.Validate(q.loc); err != nil {
			send(ViewState{Kind: StateError, Err: fmt.Errorf("%w: %w", ErrInvalidFilter, err)})
			return
		}

		subCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		snaps, err := q.source.SubscribeAll(subCtx)
		if err != nil {
			send(ViewState{Kind: StateError, Err: err})
			return
		}

		filtered := !f.IsEmpty()
		for snap := range snaps {
			if !send(ViewState{
				Kind:     StateContent,
				Records:  q.Apply(snap, f),
				Filtered: filtered,
				Version:  snap.Version(),
			}) {
				return
			}
		}
	}()

	return out
}

// First returns the first content view for f, for callers that want a
// one-shot answer instead of a live stream.
func (q *QueryEngine) First(ctx context.Context, f models.Filter) (ViewState, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for state := range q.Observe(ctx, f) {
		switch state.Kind {
		case StateContent:
			return state, nil
		case StateError:
			return state, state.Err
		}
	}
	if err := ctx.Err(); err != nil {
		return ViewState{}, err
	}
	return ViewState{}, ErrClosed
}

// Apply evaluates f against one snapshot. An empty filter returns every
// record unchanged.
func (q *QueryEngine) Apply(snap models.Snapshot, f models.Filter) []models.DiaryRecord {
	records := snap.Records()
	if f.IsEmpty() {
		return records
	}

	switch {
	case f.Date != nil:
		records = q.narrow(records, *f.Date, *f.Date)
	case f.Range != nil:
		records = q.narrow(records, f.Range.From, f.Range.To)
	}

	if f.Text != "" {
		needle := strings.ToLower(f.Text)
		kept := records[:0]
		for _, r := range records {
			if strings.Contains(strings.ToLower(r.Entry), needle) {
				kept = append(kept, r)
			}
		}
		records = kept
	}

	if f.FavoritesOnly {
		kept := records[:0]
		for _, r := range records {
			if r.IsFavorite {
				kept = append(kept, r)
			}
		}
		records = kept
	}

	return records
}

// narrow keeps the records whose calendar day lies in [from, to], using a
// timestamp-sorted index and binary search.
func (q *QueryEngine) narrow(records []models.DiaryRecord, from, to time.Time) []models.DiaryRecord {
	lo := models.DayStart(from, q.loc)
	hi := models.DayStart(to, q.loc).AddDate(0, 0, 1)

	models.SortOldestFirst(records)
	i := sort.Search(len(records), func(k int) bool {
		return !records[k].Timestamp.Before(lo)
	})
	j := sort.Search(len(records), func(k int) bool {
		return !records[k].Timestamp.Before(hi)
	})
	if i >= j {
		return records[:0]
	}
	return records[i:j]
}

// Matches is the reference predicate: it reports whether rec satisfies f,
// record by record, with the same semantics as Apply.
func (q *QueryEngine) Matches(rec models.DiaryRecord, f models.Filter) bool {
	if f.Text != "" && !strings.Contains(strings.ToLower(rec.Entry), strings.ToLower(f.Text)) {
		return false
	}
	if f.FavoritesOnly && !rec.IsFavorite {
		return false
	}
	if f.Date != nil && !models.SameDay(rec.Timestamp, *f.Date, q.loc) {
		return false
	}
	if f.Range != nil {
		day := models.DayStart(rec.Timestamp, q.loc)
		if day.Before(models.DayStart(f.Range.From, q.loc)) || day.After(models.DayStart(f.Range.To, q.loc)) {
			return false
		}
	}
	return true
}
