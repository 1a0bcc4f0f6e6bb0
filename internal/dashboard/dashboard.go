// ABOUTME: Assembles the diary dashboard: latest entries, totals, streak and weekly summary.
// ABOUTME: Shared by the CLI dashboard command and the MCP dashboard tool.
package dashboard

import (
	"context"
	"time"

	"github.com/2389-research/diary/internal/models"
	"github.com/2389-research/diary/internal/streak"
	"github.com/2389-research/diary/internal/summary"
)

// LatestCount is how many recent entries the dashboard shows.
const LatestCount = 4

// Placeholder texts shown instead of a generated summary.
const (
	EmptyDiaryText    = "Your weekly entries will be summarized here. Add your first entry to see how it works."
	NotConfiguredText = "Weekly summaries are not configured. Run `diary setup` to connect an AI provider."
)

// Dashboard is a point-in-time overview of the diary.
type Dashboard struct {
	Latest     []models.DiaryRecord
	Total      int
	Streak     models.Streak
	Summary    string
	SummaryErr error
	Version    uint64
}

// Options tune Build.
type Options struct {
	Location  *time.Location
	Now       func() time.Time
	OnPartial func(text string)
}

// Build computes the dashboard for snap. A nil cache leaves the summary as
// NotConfiguredText. Summary failures are reported in SummaryErr rather than
// failing the whole dashboard; a streak error is returned.
func Build(ctx context.Context, snap models.Snapshot, cache *summary.Cache, opts Options) (Dashboard, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}

	records := snap.Records()
	d := Dashboard{
		Latest:  snap.Latest(LatestCount),
		Total:   len(records),
		Version: snap.Version(),
	}

	s, err := streak.Calculate(records, opts.Location)
	if err != nil {
		return d, err
	}
	d.Streak = s

	switch {
	case len(records) == 0:
		d.Summary = EmptyDiaryText
	case cache == nil:
		d.Summary = NotConfiguredText
	default:
		ch, err := cache.Get(ctx, summary.RecentRecords(records, opts.Now()))
		if err != nil {
			d.SummaryErr = err
			return d, nil
		}
		ev, err := summary.Wait(ctx, ch, opts.OnPartial)
		if err != nil {
			d.SummaryErr = err
			return d, nil
		}
		d.Summary = ev.Text
	}
	return d, nil
}
