// ABOUTME: MCP tool implementations for derived diary views.
// ABOUTME: Registers get_streak, weekly_summary, and dashboard.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/2389-research/diary/internal/dashboard"
	"github.com/2389-research/diary/internal/models"
	"github.com/2389-research/diary/internal/streak"
	"github.com/2389-research/diary/internal/summary"
)

func (s *Server) registerInsightTools() {
	s.mcp.AddTool(&gomcp.Tool{
		Name:        "get_streak",
		Description: "Get the current writing streak: the run of consecutive days with an entry, ending at the latest entry.",
		InputSchema: emptySchema,
	}, s.handleGetStreak)

	s.mcp.AddTool(&gomcp.Tool{
		Name:        "weekly_summary",
		Description: "Get an AI summary of the past week's entries. A summary is regenerated at most once every 7 days.",
		InputSchema: emptySchema,
	}, s.handleWeeklySummary)

	s.mcp.AddTool(&gomcp.Tool{
		Name:        "dashboard",
		Description: "Overview of the diary: latest entries, total count, streak, and weekly summary.",
		InputSchema: emptySchema,
	}, s.handleDashboard)
}

var emptySchema = json.RawMessage(`{"type": "object", "properties": {}}`)

func (s *Server) handleGetStreak(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	st, err := streak.Calculate(s.store.Current().Records(), s.query.Location())
	if err != nil {
		return toolError("failed to calculate streak: %v", err), nil
	}
	return textResult(formatStreak(st)), nil
}

func (s *Server) handleWeeklySummary(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	if s.summaries == nil {
		return toolError("%s", dashboard.NotConfiguredText), nil
	}
	records := s.store.Current().Records()
	if len(records) == 0 {
		return textResult(dashboard.EmptyDiaryText), nil
	}

	ch, err := s.summaries.Get(ctx, summary.RecentRecords(records, time.Now()))
	if err != nil {
		return toolError("failed to get summary: %v", err), nil
	}
	ev, err := summary.Wait(ctx, ch, nil)
	if err != nil {
		return toolError("%v", err), nil
	}
	return textResult(fmt.Sprintf("Weekly summary (generated %s):\n\n%s", ev.GeneratedAt.Format("2006-01-02"), ev.Text)), nil
}

func (s *Server) handleDashboard(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	d, err := dashboard.Build(ctx, s.store.Current(), s.summaries, dashboard.Options{Location: s.query.Location()})
	if err != nil {
		return toolError("failed to build dashboard: %v", err), nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Total entries: %d\n", d.Total))
	sb.WriteString(formatStreak(d.Streak))
	sb.WriteString("\n\n## Weekly summary\n")
	if d.SummaryErr != nil {
		sb.WriteString(fmt.Sprintf("Error generating weekly summary: %v\n", d.SummaryErr))
	} else {
		sb.WriteString(d.Summary + "\n")
	}
	if len(d.Latest) > 0 {
		sb.WriteString("\n## Latest entries\n")
		sb.WriteString(formatRecords(d.Latest, false))
	}
	return textResult(sb.String()), nil
}

func formatStreak(st models.Streak) string {
	if st.Length == 0 {
		return "Streak: 0 days"
	}
	first := st.Dates[0].Format(DateLayout)
	last := st.Dates[len(st.Dates)-1].Format(DateLayout)
	if st.Length == 1 {
		return fmt.Sprintf("Streak: 1 day (%s)", first)
	}
	return fmt.Sprintf("Streak: %d days (%s to %s)", st.Length, first, last)
}
