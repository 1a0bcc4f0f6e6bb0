// ABOUTME: Calculates the current run of calendar-day-consecutive diary entries.
// ABOUTME: Multiple entries on one day count once; the newest unbroken run wins.
package streak

import (
	"errors"
	"time"

	"github.com/2389-research/diary/internal/models"
)

// ErrInvalidTimestamp is returned when a record has no timestamp.
var ErrInvalidTimestamp = errors.New("streak: record has zero timestamp")

// Calculate returns the trailing run of consecutive calendar days, ending at
// the most recent day that has an entry. Days are computed in loc (nil means
// time.Local). Fewer than two records yield an empty streak.
func Calculate(records []models.DiaryRecord, loc *time.Location) (models.Streak, error) {
	if loc == nil {
		loc = time.Local
	}
	for _, r := range records {
		if r.Timestamp.IsZero() {
			return models.Streak{}, ErrInvalidTimestamp
		}
	}
	if len(records) < 2 {
		return models.Streak{}, nil
	}

	days := distinctDays(records, loc)

	// days is newest first; walk back while each day is exactly one before
	// the previous one.
	run := []time.Time{days[0]}
	for i := 1; i < len(days); i++ {
		if !days[i].Equal(previousDay(run[len(run)-1])) {
			break
		}
		run = append(run, days[i])
	}

	for i, j := 0, len(run)-1; i < j; i, j = i+1, j-1 {
		run[i], run[j] = run[j], run[i]
	}
	return models.Streak{Length: len(run), Dates: run}, nil
}

// distinctDays returns each calendar day with at least one record, newest first.
func distinctDays(records []models.DiaryRecord, loc *time.Location) []time.Time {
	recs := make([]models.DiaryRecord, len(records))
	copy(recs, records)
	models.SortNewestFirst(recs)

	var days []time.Time
	for _, r := range recs {
		d := models.DayStart(r.Timestamp, loc)
		if len(days) == 0 || !days[len(days)-1].Equal(d) {
			days = append(days, d)
		}
	}
	return days
}

// previousDay steps back one calendar day, which is not always 24h across a
// DST change.
func previousDay(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day()-1, 0, 0, 0, 0, day.Location())
}
