// ABOUTME: Terminal rendering and filter flag parsing shared by CLI commands.
// ABOUTME: Uses lipgloss styles for entry headers, favorites, and dashboard sections.
package main

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/2389-research/diary/internal/markup"
	"github.com/2389-research/diary/internal/models"
)

const dateLayout = "2006-01-02"

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	dateStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	favStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	bodyStyle    = lipgloss.NewStyle().PaddingLeft(2)
	sectionStyle = lipgloss.NewStyle().Bold(true).Underline(true).MarginTop(1)
)

// filterFlags holds the filter options shared by list and watch.
type filterFlags struct {
	query     string
	date      string
	from      string
	to        string
	favorites bool
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.query, "query", "q", "", "Case-insensitive text search")
	cmd.Flags().StringVar(&f.date, "date", "", "Only entries on this day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.from, "from", "", "Range start day, inclusive (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.to, "to", "", "Range end day, inclusive (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&f.favorites, "favorites", false, "Only favorite entries")
}

// build parses the flags into a filter with days in loc.
func (f *filterFlags) build(loc *time.Location) (models.Filter, error) {
	filter := models.Filter{Text: f.query, FavoritesOnly: f.favorites}
	if f.date != "" {
		d, err := time.ParseInLocation(dateLayout, f.date, loc)
		if err != nil {
			return filter, fmt.Errorf("invalid --date %q: expected YYYY-MM-DD", f.date)
		}
		filter.Date = &d
	}
	if f.from != "" || f.to != "" {
		if f.from == "" || f.to == "" {
			return filter, fmt.Errorf("--from and --to must be given together")
		}
		from, err := time.ParseInLocation(dateLayout, f.from, loc)
		if err != nil {
			return filter, fmt.Errorf("invalid --from %q: expected YYYY-MM-DD", f.from)
		}
		to, err := time.ParseInLocation(dateLayout, f.to, loc)
		if err != nil {
			return filter, fmt.Errorf("invalid --to %q: expected YYYY-MM-DD", f.to)
		}
		filter.Range = &models.DateRange{From: from, To: to}
	}
	return filter, filter.Validate(loc)
}

// parseTime accepts RFC3339 or "YYYY-MM-DD HH:MM" / "YYYY-MM-DD" in loc.
func parseTime(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	for _, layout := range []string{"2006-01-02 15:04", dateLayout} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q: expected RFC3339, YYYY-MM-DD HH:MM, or YYYY-MM-DD", s)
}

// printRecords writes recs in the given order, with days shown in loc.
func printRecords(w io.Writer, recs []models.DiaryRecord, loc *time.Location, full bool) {
	for i, r := range recs {
		if i > 0 {
			_, _ = fmt.Fprintln(w)
		}
		line := dateStyle.Render(r.Timestamp.In(loc).Format("Mon 2006-01-02 15:04")) + "  " + r.ID.String()
		if r.IsFavorite {
			line += " " + favStyle.Render("★")
		}
		_, _ = fmt.Fprintln(w, line)
		if full {
			_, _ = fmt.Fprintln(w, bodyStyle.Render(markup.ToMarkdown(r.Entry)))
		} else {
			_, _ = fmt.Fprintln(w, bodyStyle.Render(markup.Preview(r.Entry, 72)))
		}
	}
}

func formatStreak(st models.Streak) string {
	switch st.Length {
	case 0:
		return "0 days"
	case 1:
		return fmt.Sprintf("1 day (%s)", st.Dates[0].Format(dateLayout))
	default:
		return fmt.Sprintf("%d days (%s to %s)", st.Length,
			st.Dates[0].Format(dateLayout), st.Dates[len(st.Dates)-1].Format(dateLayout))
	}
}

// streamPrinter writes accumulated partial text as it grows.
type streamPrinter struct {
	w       io.Writer
	printed int
}

func (p *streamPrinter) onPartial(text string) {
	if len(text) <= p.printed {
		return
	}
	_, _ = io.WriteString(p.w, text[p.printed:])
	p.printed = len(text)
}
