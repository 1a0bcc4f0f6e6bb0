// ABOUTME: Tests for the weekly summary cache state machine.
// ABOUTME: Uses a counting fake generator and an in-memory slot with a fixed clock.
package summary

import (
	"context"
	"errors"
	"iter"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389-research/diary/internal/models"
)

type memSlot struct {
	mu    sync.Mutex
	s     *models.WeeklySummary
	saves int
}

func (m *memSlot) LoadSummary(context.Context) (*models.WeeklySummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.s == nil {
		return nil, nil
	}
	cp := *m.s
	return &cp, nil
}

func (m *memSlot) SaveSummary(_ context.Context, s models.WeeklySummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s = &s
	m.saves++
	return nil
}

func (m *memSlot) saved() (*models.WeeklySummary, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.s, m.saves
}

// fakeGenerator yields chunks, optionally waiting on gate before each one,
// and fails with err after the chunks when err is set.
type fakeGenerator struct {
	calls  atomic.Int32
	chunks []string
	err    error
	gate   chan struct{}
}

func (f *fakeGenerator) Generate(ctx context.Context, _ []models.DiaryRecord) iter.Seq2[string, error] {
	f.calls.Add(1)
	return func(yield func(string, error) bool) {
		for _, c := range f.chunks {
			if f.gate != nil {
				select {
				case <-f.gate:
				case <-ctx.Done():
					yield("", ctx.Err())
					return
				}
			}
			if !yield(c, nil) {
				return
			}
		}
		if f.err != nil {
			yield("", f.err)
		}
	}
}

var clockNow = time.Date(2023, 3, 20, 9, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return clockNow }

func drain(t *testing.T, ch <-chan Event) []Event {
	t.Helper()
	var out []Event
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-timeout:
			t.Fatal("timed out draining events")
		}
	}
}

func TestGetFreshSummaryDoesNotGenerate(t *testing.T) {
	slot := &memSlot{s: &models.WeeklySummary{Text: "cached", GeneratedAt: clockNow.Add(-6 * 24 * time.Hour)}}
	gen := &fakeGenerator{chunks: []string{"new"}}
	c := New(slot, gen, WithClock(fixedClock))
	defer c.Close()

	ch, err := c.Get(context.Background(), nil)
	require.NoError(t, err)
	events := drain(t, ch)

	require.Len(t, events, 1)
	assert.Equal(t, EventCached, events[0].Kind)
	assert.Equal(t, "cached", events[0].Text)
	assert.Equal(t, int32(0), gen.calls.Load())
}

func TestGetStaleSummaryRegenerates(t *testing.T) {
	old := clockNow.Add(-7 * 24 * time.Hour)
	slot := &memSlot{s: &models.WeeklySummary{Text: "old", GeneratedAt: old}}
	gen := &fakeGenerator{chunks: []string{"You ", "wrote ", "a lot."}}
	c := New(slot, gen, WithClock(fixedClock))
	defer c.Close()

	ch, err := c.Get(context.Background(), nil)
	require.NoError(t, err)
	events := drain(t, ch)

	require.Len(t, events, 4)
	assert.Equal(t, "You ", events[0].Text)
	assert.Equal(t, "You wrote ", events[1].Text)
	assert.Equal(t, EventPartial, events[2].Kind)
	last := events[3]
	assert.Equal(t, EventCompleted, last.Kind)
	assert.Equal(t, "You wrote a lot.", last.Text)

	saved, saves := slot.saved()
	assert.Equal(t, 1, saves)
	assert.Equal(t, "You wrote a lot.", saved.Text)
	assert.True(t, saved.GeneratedAt.Equal(clockNow))

	// The fresh summary is now served without another generation.
	ch, err = c.Get(context.Background(), nil)
	require.NoError(t, err)
	events = drain(t, ch)
	require.Len(t, events, 1)
	assert.Equal(t, EventCached, events[0].Kind)
	assert.Equal(t, int32(1), gen.calls.Load())
}

func TestGetFutureDatedSummaryRegenerates(t *testing.T) {
	slot := &memSlot{s: &models.WeeklySummary{Text: "from a fast clock", GeneratedAt: clockNow.Add(3 * 24 * time.Hour)}}
	gen := &fakeGenerator{chunks: []string{"fresh"}}
	c := New(slot, gen, WithClock(fixedClock))
	defer c.Close()

	ch, err := c.Get(context.Background(), nil)
	require.NoError(t, err)
	events := drain(t, ch)

	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, EventCompleted, last.Kind)
	assert.Equal(t, "fresh", last.Text)
	assert.Equal(t, int32(1), gen.calls.Load())

	saved, _ := slot.saved()
	assert.True(t, saved.GeneratedAt.Equal(clockNow))
}

func TestGetEmptySlotGenerates(t *testing.T) {
	slot := &memSlot{}
	gen := &fakeGenerator{chunks: []string{"hello"}}
	c := New(slot, gen, WithClock(fixedClock))
	defer c.Close()

	ch, err := c.Get(context.Background(), nil)
	require.NoError(t, err)
	ev, err := Wait(context.Background(), ch, nil)
	require.NoError(t, err)
	assert.Equal(t, EventCompleted, ev.Kind)
	assert.Equal(t, int32(1), gen.calls.Load())
}

func TestConcurrentStaleGetsShareOneGeneration(t *testing.T) {
	slot := &memSlot{}
	gen := &fakeGenerator{chunks: []string{"a", "b", "c"}, gate: make(chan struct{})}
	c := New(slot, gen, WithClock(fixedClock))
	defer c.Close()
	ctx := context.Background()

	first, err := c.Get(ctx, nil)
	require.NoError(t, err)

	// Let one chunk through so the late caller has something to catch up on.
	gen.gate <- struct{}{}
	ev := <-first
	require.Equal(t, "a", ev.Text)

	second, err := c.Get(ctx, nil)
	require.NoError(t, err)

	close(gen.gate)
	a := drain(t, first)
	b := drain(t, second)

	assert.Equal(t, int32(1), gen.calls.Load())
	require.NotEmpty(t, b)
	assert.Equal(t, EventPartial, b[0].Kind)
	assert.Equal(t, "a", b[0].Text, "late attacher starts from accumulated text")
	assert.Equal(t, EventCompleted, a[len(a)-1].Kind)
	assert.Equal(t, EventCompleted, b[len(b)-1].Kind)
	assert.Equal(t, "abc", b[len(b)-1].Text)

	_, saves := slot.saved()
	assert.Equal(t, 1, saves)
}

func TestManyConcurrentGetsGenerateOnce(t *testing.T) {
	slot := &memSlot{}
	gen := &fakeGenerator{chunks: []string{"x"}, gate: make(chan struct{})}
	c := New(slot, gen, WithClock(fixedClock))
	defer c.Close()

	var wg sync.WaitGroup
	chans := make([]<-chan Event, 10)
	for i := range chans {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ch, err := c.Get(context.Background(), nil)
			assert.NoError(t, err)
			chans[i] = ch
		}()
	}
	wg.Wait()
	close(gen.gate)

	for _, ch := range chans {
		ev, err := Wait(context.Background(), ch, nil)
		require.NoError(t, err)
		assert.Equal(t, "x", ev.Text)
	}
	assert.Equal(t, int32(1), gen.calls.Load())
}

func TestGenerationFailureIsNotPersisted(t *testing.T) {
	boom := errors.New("model overloaded")
	slot := &memSlot{}
	gen := &fakeGenerator{chunks: []string{"half a "}, err: boom}
	c := New(slot, gen, WithClock(fixedClock))
	defer c.Close()

	ch, err := c.Get(context.Background(), nil)
	require.NoError(t, err)
	ev, err := Wait(context.Background(), ch, nil)
	assert.Equal(t, EventFailed, ev.Kind)
	assert.ErrorIs(t, err, ErrGeneration)
	assert.ErrorIs(t, err, boom)

	saved, saves := slot.saved()
	assert.Nil(t, saved)
	assert.Equal(t, 0, saves)

	// Retrying starts a fresh generation.
	gen.err = nil
	gen.chunks = []string{"whole"}
	ch, err = c.Get(context.Background(), nil)
	require.NoError(t, err)
	ev, err = Wait(context.Background(), ch, nil)
	require.NoError(t, err)
	assert.Equal(t, "whole", ev.Text)
	assert.Equal(t, int32(2), gen.calls.Load())
}

func TestEmptyGenerationFails(t *testing.T) {
	slot := &memSlot{}
	gen := &fakeGenerator{chunks: []string{"", "  "}}
	c := New(slot, gen, WithClock(fixedClock))
	defer c.Close()

	ch, err := c.Get(context.Background(), nil)
	require.NoError(t, err)
	_, err = Wait(context.Background(), ch, nil)
	assert.ErrorIs(t, err, ErrEmptySummary)

	_, saves := slot.saved()
	assert.Equal(t, 0, saves)
}

func TestCallerCancelDoesNotStopGeneration(t *testing.T) {
	slot := &memSlot{}
	gen := &fakeGenerator{chunks: []string{"still ", "done"}, gate: make(chan struct{})}
	c := New(slot, gen, WithClock(fixedClock))
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	_, err := c.Get(ctx, nil)
	require.NoError(t, err)
	cancel()
	close(gen.gate)

	assert.Eventually(t, func() bool {
		s, _ := slot.saved()
		return s != nil && s.Text == "still done"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCloseCancelsGeneration(t *testing.T) {
	slot := &memSlot{}
	gen := &fakeGenerator{chunks: []string{"never"}, gate: make(chan struct{})}
	c := New(slot, gen, WithClock(fixedClock))

	ch, err := c.Get(context.Background(), nil)
	require.NoError(t, err)
	c.Close()

	ev, err := Wait(context.Background(), ch, nil)
	assert.Equal(t, EventFailed, ev.Kind)
	assert.ErrorIs(t, err, context.Canceled)

	_, err = c.Get(context.Background(), nil)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestWaitReportsPartials(t *testing.T) {
	slot := &memSlot{}
	gen := &fakeGenerator{chunks: []string{"one ", "two"}}
	c := New(slot, gen, WithClock(fixedClock))
	defer c.Close()

	ch, err := c.Get(context.Background(), nil)
	require.NoError(t, err)
	var partials []string
	ev, err := Wait(context.Background(), ch, func(text string) { partials = append(partials, text) })
	require.NoError(t, err)
	assert.Equal(t, []string{"one ", "one two"}, partials)
	assert.Equal(t, "one two", ev.Text)
}
