// ABOUTME: Weekly summary cache: serves a persisted AI summary for seven days, then regenerates it.
// ABOUTME: At most one generation runs at a time; concurrent callers attach to its stream.
package summary

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/2389-research/diary/internal/metrics"
	"github.com/2389-research/diary/internal/models"
	"github.com/2389-research/diary/internal/pubsub"
)

// MaxAge is how long a generated summary stays fresh.
const MaxAge = 7 * 24 * time.Hour

var (
	// ErrGeneration wraps failures reported by the generator.
	ErrGeneration = errors.New("summary generation failed")
	// ErrEmptySummary is reported when the generator produced no text.
	ErrEmptySummary = errors.New("summary generation produced no text")
	// ErrClosed is returned by Get after Close.
	ErrClosed = errors.New("summary cache is closed")
)

// Generator produces a summary as a finite sequence of text chunks. A
// non-nil error ends the sequence.
type Generator interface {
	Generate(ctx context.Context, records []models.DiaryRecord) iter.Seq2[string, error]
}

// Slot persists the single most recent summary. LoadSummary returns nil
// when nothing has been saved.
type Slot interface {
	LoadSummary(ctx context.Context) (*models.WeeklySummary, error)
	SaveSummary(ctx context.Context, s models.WeeklySummary) error
}

// EventKind discriminates Event variants.
type EventKind int

const (
	// EventCached carries a fresh persisted summary.
	EventCached EventKind = iota
	// EventPartial carries all text generated so far.
	EventPartial
	// EventCompleted carries the full text that was persisted.
	EventCompleted
	// EventFailed carries the generation error; nothing was persisted.
	EventFailed
)

func (k EventKind) String() string {
	switch k {
	case EventCached:
		return "cached"
	case EventPartial:
		return "partial"
	case EventCompleted:
		return "completed"
	case EventFailed:
		return "failed"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is one step of a summary request.
type Event struct {
	Kind        EventKind
	Text        string
	GeneratedAt time.Time
	Err         error
}

// Terminal reports whether no further events follow e.
func (e Event) Terminal() bool {
	return e.Kind != EventPartial
}

// Cache coordinates summary lookups and generation.
type Cache struct {
	slot   Slot
	gen    Generator
	log    zerolog.Logger
	now    func() time.Time
	maxAge time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	closed   bool
	inflight *generation
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// WithLogger sets the logger used for cache events.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Cache) {
		c.log = log
	}
}

// WithMaxAge overrides the freshness window.
func WithMaxAge(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.maxAge = d
		}
	}
}

// New creates a cache persisting to slot and generating with gen.
func New(slot Slot, gen Generator, opts ...Option) *Cache {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Cache{
		slot:   slot,
		gen:    gen,
		log:    zerolog.Nop(),
		now:    time.Now,
		maxAge: MaxAge,
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// generation is one in-flight generator run. text is only touched inside
// hub callbacks, which run under the hub lock.
type generation struct {
	hub  *pubsub.Hub[Event]
	text strings.Builder
}

func (g *generation) seed() []Event {
	if g.text.Len() == 0 {
		return nil
	}
	return []Event{{Kind: EventPartial, Text: g.text.String()}}
}

// Get returns the events for a summary of records. A fresh cached summary
// yields a single EventCached. Otherwise the caller is attached to the
// running generation, starting one if none is in flight, and receives
// EventPartial updates followed by EventCompleted or EventFailed.
//
// Cancelling ctx detaches the caller but does not stop the generation.
func (c *Cache) Get(ctx context.Context, records []models.DiaryRecord) (<-chan Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}

	if g := c.inflight; g != nil {
		metrics.SummaryRequests.WithLabelValues(metrics.SummaryAttached).Inc()
		c.log.Debug().Msg("attaching to in-flight summary generation")
		return g.hub.SubscribeWith(ctx, g.seed), nil
	}

	cached, err := c.slot.LoadSummary(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load summary: %w", err)
	}
	if cached != nil && c.fresh(cached.GeneratedAt) {
		metrics.SummaryRequests.WithLabelValues(metrics.SummaryCached).Inc()
		c.log.Debug().Time("generated_at", cached.GeneratedAt).Msg("summary cache hit")
		out := make(chan Event, 1)
		out <- Event{Kind: EventCached, Text: cached.Text, GeneratedAt: cached.GeneratedAt}
		close(out)
		return out, nil
	}

	metrics.SummaryRequests.WithLabelValues(metrics.SummaryGenerated).Inc()
	c.log.Debug().Int("records", len(records)).Msg("summary stale, generating")

	g := &generation{hub: pubsub.New[Event]()}
	ch := g.hub.Subscribe(ctx)
	c.inflight = g

	snapshot := make([]models.DiaryRecord, len(records))
	copy(snapshot, records)

	c.wg.Add(1)
	go c.run(g, snapshot)
	return ch, nil
}

func (c *Cache) run(g *generation, records []models.DiaryRecord) {
	defer c.wg.Done()
	metrics.SummaryGenerations.Inc()

	var genErr error
	for chunk, err := range c.gen.Generate(c.ctx, records) {
		if err != nil {
			genErr = err
			break
		}
		if chunk == "" {
			continue
		}
		g.hub.PublishWith(func() Event {
			g.text.WriteString(chunk)
			return Event{Kind: EventPartial, Text: g.text.String()}
		})
	}

	final := c.finish(g, genErr)

	c.mu.Lock()
	c.inflight = nil
	g.hub.Publish(final)
	g.hub.Close()
	c.mu.Unlock()
}

// finish turns the generator outcome into a terminal event, persisting the
// text on success. Only run writes g.text, so reading it here is safe.
func (c *Cache) finish(g *generation, genErr error) Event {
	text := g.text.String()

	if genErr != nil {
		metrics.SummaryRequests.WithLabelValues(metrics.SummaryFailed).Inc()
		c.log.Warn().Err(genErr).Msg("summary generation failed")
		return Event{Kind: EventFailed, Err: fmt.Errorf("%w: %w", ErrGeneration, genErr)}
	}
	if strings.TrimSpace(text) == "" {
		metrics.SummaryRequests.WithLabelValues(metrics.SummaryFailed).Inc()
		c.log.Warn().Msg("summary generation produced no text")
		return Event{Kind: EventFailed, Err: ErrEmptySummary}
	}

	summary := models.WeeklySummary{Text: text, GeneratedAt: c.now()}
	if err := c.slot.SaveSummary(c.ctx, summary); err != nil {
		metrics.SummaryRequests.WithLabelValues(metrics.SummaryFailed).Inc()
		c.log.Error().Err(err).Msg("failed to persist summary")
		return Event{Kind: EventFailed, Err: fmt.Errorf("failed to save summary: %w", err)}
	}
	c.log.Info().Int("chars", len(text)).Msg("weekly summary persisted")
	return Event{Kind: EventCompleted, Text: summary.Text, GeneratedAt: summary.GeneratedAt}
}

// fresh reports whether a summary generated at t can still be served.
// A timestamp in the future is treated as stale.
func (c *Cache) fresh(t time.Time) bool {
	now := c.now()
	return !t.After(now) && now.Sub(t) < c.maxAge
}

// Close cancels any in-flight generation and waits for it to finish.
// Subscribers of a cancelled generation receive EventFailed.
func (c *Cache) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
}

// RecentRecords returns the records written within MaxAge before now. When
// none are that recent it returns all records.
func RecentRecords(records []models.DiaryRecord, now time.Time) []models.DiaryRecord {
	cutoff := now.Add(-MaxAge)
	var recent []models.DiaryRecord
	for _, r := range records {
		if !r.Timestamp.Before(cutoff) {
			recent = append(recent, r)
		}
	}
	if len(recent) == 0 {
		return records
	}
	return recent
}

// Wait drains events until a terminal one arrives, calling onPartial for
// each partial text. It returns the terminal event, and its error for
// EventFailed. If ch closes first, ctx's error (or ErrClosed) is returned.
func Wait(ctx context.Context, ch <-chan Event, onPartial func(text string)) (Event, error) {
	for ev := range ch {
		if !ev.Terminal() {
			if onPartial != nil {
				onPartial(ev.Text)
			}
			continue
		}
		if ev.Kind == EventFailed {
			return ev, ev.Err
		}
		return ev, nil
	}
	if err := ctx.Err(); err != nil {
		return Event{}, err
	}
	return Event{}, ErrClosed
}
