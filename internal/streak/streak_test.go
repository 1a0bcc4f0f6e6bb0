// ABOUTME: Tests for the streak calculator.
// ABOUTME: Covers trailing-run policy, same-day collapsing, and invalid input.
package streak

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389-research/diary/internal/models"
)

func day(m time.Month, d, hour int) models.DiaryRecord {
	return models.DiaryRecord{Entry: "x", Timestamp: time.Date(2023, m, d, hour, 0, 0, 0, time.UTC)}
}

func dates(s models.Streak) []string {
	out := make([]string, 0, len(s.Dates))
	for _, d := range s.Dates {
		out = append(out, d.Format("2006-01-02"))
	}
	return out
}

func TestCalculateConsecutiveRun(t *testing.T) {
	recs := []models.DiaryRecord{day(3, 3, 9), day(3, 1, 9), day(3, 5, 9), day(3, 2, 9), day(3, 4, 9)}

	s, err := Calculate(recs, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 5, s.Length)
	assert.Equal(t, []string{"2023-03-01", "2023-03-02", "2023-03-03", "2023-03-04", "2023-03-05"}, dates(s))
}

func TestCalculateTrailingRunWins(t *testing.T) {
	recs := []models.DiaryRecord{day(3, 1, 9), day(3, 2, 9), day(3, 3, 9), day(3, 4, 9), day(3, 5, 9), day(3, 10, 9)}

	s, err := Calculate(recs, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Length)
	assert.Equal(t, []string{"2023-03-10"}, dates(s))
}

func TestCalculateCollapsesSameDay(t *testing.T) {
	recs := []models.DiaryRecord{day(3, 1, 8), day(3, 1, 20), day(3, 2, 7), day(3, 2, 23)}

	s, err := Calculate(recs, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Length)
}

func TestCalculateTooFewRecords(t *testing.T) {
	s, err := Calculate(nil, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Length)

	s, err = Calculate([]models.DiaryRecord{day(3, 1, 9)}, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Length)
	assert.Empty(t, s.Dates)
}

func TestCalculateRejectsZeroTimestamp(t *testing.T) {
	recs := []models.DiaryRecord{day(3, 1, 9), {Entry: "broken"}}

	_, err := Calculate(recs, time.UTC)
	assert.ErrorIs(t, err, ErrInvalidTimestamp)

	_, err = Calculate([]models.DiaryRecord{{Entry: "alone"}}, time.UTC)
	assert.ErrorIs(t, err, ErrInvalidTimestamp)
}

func TestCalculateUsesLocationForDayBoundaries(t *testing.T) {
	// 23:30 UTC on the 1st is already the 2nd in UTC+2.
	loc := time.FixedZone("UTC+2", 2*60*60)
	recs := []models.DiaryRecord{
		{Entry: "a", Timestamp: time.Date(2023, 3, 1, 23, 30, 0, 0, time.UTC)},
		{Entry: "b", Timestamp: time.Date(2023, 3, 2, 10, 0, 0, 0, time.UTC)},
	}

	s, err := Calculate(recs, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Length)

	s, err = Calculate(recs, loc)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Length)
}

func TestCalculateAcrossDSTChange(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	recs := []models.DiaryRecord{
		{Entry: "a", Timestamp: time.Date(2023, 3, 11, 12, 0, 0, 0, loc)},
		{Entry: "b", Timestamp: time.Date(2023, 3, 12, 12, 0, 0, 0, loc)},
		{Entry: "c", Timestamp: time.Date(2023, 3, 13, 12, 0, 0, 0, loc)},
	}

	s, err := Calculate(recs, loc)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Length)
}
