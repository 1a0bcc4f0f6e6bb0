// ABOUTME: Tests for dashboard assembly.
// ABOUTME: Covers empty diaries, unconfigured summaries, failures, and the latest-entries cut.
package dashboard

import (
	"context"
	"errors"
	"iter"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389-research/diary/internal/models"
	"github.com/2389-research/diary/internal/summary"
)

type memSlot struct {
	s *models.WeeklySummary
}

func (m *memSlot) LoadSummary(context.Context) (*models.WeeklySummary, error) { return m.s, nil }

func (m *memSlot) SaveSummary(_ context.Context, s models.WeeklySummary) error {
	m.s = &s
	return nil
}

type chunkGenerator struct {
	chunks []string
	err    error
}

func (g chunkGenerator) Generate(context.Context, []models.DiaryRecord) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, c := range g.chunks {
			if !yield(c, nil) {
				return
			}
		}
		if g.err != nil {
			yield("", g.err)
		}
	}
}

var now = time.Date(2023, 3, 20, 12, 0, 0, 0, time.UTC)

func snapshotOf(days ...int) models.Snapshot {
	recs := make([]models.DiaryRecord, 0, len(days))
	for _, d := range days {
		recs = append(recs, models.DiaryRecord{
			ID:        uuid.New(),
			Entry:     "entry",
			Timestamp: time.Date(2023, 3, d, 9, 0, 0, 0, time.UTC),
		})
	}
	return models.NewSnapshot(7, recs)
}

func newCache(t *testing.T, gen summary.Generator) *summary.Cache {
	t.Helper()
	c := summary.New(&memSlot{}, gen, summary.WithClock(func() time.Time { return now }))
	t.Cleanup(c.Close)
	return c
}

func opts() Options {
	return Options{Location: time.UTC, Now: func() time.Time { return now }}
}

func TestBuildEmptyDiary(t *testing.T) {
	d, err := Build(context.Background(), models.NewSnapshot(1, nil), newCache(t, chunkGenerator{chunks: []string{"x"}}), opts())
	require.NoError(t, err)

	assert.Equal(t, 0, d.Total)
	assert.Empty(t, d.Latest)
	assert.Equal(t, 0, d.Streak.Length)
	assert.Equal(t, EmptyDiaryText, d.Summary)
	assert.NoError(t, d.SummaryErr)
}

func TestBuildNotConfigured(t *testing.T) {
	d, err := Build(context.Background(), snapshotOf(17, 18), nil, opts())
	require.NoError(t, err)

	assert.Equal(t, NotConfiguredText, d.Summary)
	assert.Equal(t, 2, d.Total)
	assert.Equal(t, 2, d.Streak.Length)
	assert.Equal(t, uint64(7), d.Version)
}

func TestBuildLatestAndSummary(t *testing.T) {
	var partials []string
	o := opts()
	o.OnPartial = func(text string) { partials = append(partials, text) }

	d, err := Build(context.Background(), snapshotOf(10, 15, 16, 17, 18, 19), newCache(t, chunkGenerator{chunks: []string{"good ", "week"}}), o)
	require.NoError(t, err)

	assert.Equal(t, 6, d.Total)
	require.Len(t, d.Latest, LatestCount)
	assert.Equal(t, 19, d.Latest[0].Timestamp.Day())
	assert.Equal(t, 16, d.Latest[LatestCount-1].Timestamp.Day())
	assert.Equal(t, 5, d.Streak.Length)
	assert.Equal(t, "good week", d.Summary)
	assert.NotEmpty(t, partials)
}

func TestBuildSummaryFailureIsReported(t *testing.T) {
	boom := errors.New("provider down")
	d, err := Build(context.Background(), snapshotOf(18, 19), newCache(t, chunkGenerator{err: boom}), opts())
	require.NoError(t, err)

	assert.ErrorIs(t, d.SummaryErr, boom)
	assert.Empty(t, d.Summary)
	assert.Equal(t, 2, d.Streak.Length)
}

func TestBuildInvalidTimestamp(t *testing.T) {
	snap := models.NewSnapshot(1, []models.DiaryRecord{
		{ID: uuid.New(), Entry: "a", Timestamp: now},
		{ID: uuid.New(), Entry: "b"},
	})
	_, err := Build(context.Background(), snap, nil, opts())
	assert.Error(t, err)
}
