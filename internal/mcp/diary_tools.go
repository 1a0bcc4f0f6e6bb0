// ABOUTME: MCP tool implementations for diary entry operations.
// ABOUTME: Registers add_entry, list_entries, update_entry, delete_entries, toggle_favorite.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/2389-research/diary/internal/diary"
	"github.com/2389-research/diary/internal/markup"
	"github.com/2389-research/diary/internal/models"
)

// DateLayout is the calendar date format accepted by the tools.
const DateLayout = "2006-01-02"

func (s *Server) registerDiaryTools() {
	s.mcp.AddTool(&gomcp.Tool{
		Name:        "add_entry",
		Description: "Write a new diary entry. The entry may be plain text or simple HTML.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"entry": {"type": "string", "description": "The diary entry text.", "minLength": 1},
				"timestamp": {"type": "string", "description": "RFC3339 time of the entry (default: now)"}
			},
			"required": ["entry"]
		}`),
	}, s.handleAddEntry)

	s.mcp.AddTool(&gomcp.Tool{
		Name:        "list_entries",
		Description: "List diary entries, newest first. Filters combine: text search, a single date or a date range, and favorites only.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"query": {"type": "string", "description": "Case-insensitive text to search for"},
				"date": {"type": "string", "description": "Only entries on this day (YYYY-MM-DD)"},
				"from": {"type": "string", "description": "Range start day, inclusive (YYYY-MM-DD)"},
				"to": {"type": "string", "description": "Range end day, inclusive (YYYY-MM-DD)"},
				"favorites": {"type": "boolean", "description": "Only favorite entries"},
				"limit": {"type": "number", "description": "Maximum number of entries to return (default 20)"}
			}
		}`),
	}, s.handleListEntries)

	s.mcp.AddTool(&gomcp.Tool{
		Name:        "update_entry",
		Description: "Change the text or time of an existing diary entry.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"id": {"type": "string", "description": "Entry ID"},
				"entry": {"type": "string", "description": "New entry text (optional)"},
				"timestamp": {"type": "string", "description": "New RFC3339 time (optional)"}
			},
			"required": ["id"]
		}`),
	}, s.handleUpdateEntry)

	s.mcp.AddTool(&gomcp.Tool{
		Name:        "delete_entries",
		Description: "Delete diary entries by ID. Fails if any of the entries no longer exists; list entries again before retrying.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"ids": {"type": "array", "items": {"type": "string"}, "description": "Entry IDs to delete", "minItems": 1}
			},
			"required": ["ids"]
		}`),
	}, s.handleDeleteEntries)

	s.mcp.AddTool(&gomcp.Tool{
		Name:        "toggle_favorite",
		Description: "Mark a diary entry as favorite, or unmark it if it already is.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"id": {"type": "string", "description": "Entry ID"}
			},
			"required": ["id"]
		}`),
	}, s.handleToggleFavorite)
}

func (s *Server) handleAddEntry(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	var args struct {
		Entry     string `json:"entry"`
		Timestamp string `json:"timestamp"`
	}
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return toolError("invalid arguments: %v", err), nil
	}

	at := time.Now()
	if args.Timestamp != "" {
		parsed, err := time.Parse(time.RFC3339, args.Timestamp)
		if err != nil {
			return toolError("invalid timestamp %q: expected RFC3339", args.Timestamp), nil
		}
		at = parsed
	}

	rec := models.NewDiaryRecord(args.Entry, at)
	if _, err := s.coord.Add(ctx, rec); err != nil {
		if errors.Is(err, diary.ErrValidation) {
			return toolError("%v", err), nil
		}
		return toolError("failed to add entry: %v", err), nil
	}
	s.log.Debug().Str("id", rec.ID.String()).Msg("entry added via mcp")

	return textResult(fmt.Sprintf("Entry added.\nID: %s\nDate: %s", rec.ID, rec.Timestamp.Format("2006-01-02 15:04:05"))), nil
}

func (s *Server) handleListEntries(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	var args struct {
		Query     string `json:"query"`
		Date      string `json:"date"`
		From      string `json:"from"`
		To        string `json:"to"`
		Favorites bool   `json:"favorites"`
		Limit     int    `json:"limit"`
	}
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return toolError("invalid arguments: %v", err), nil
	}
	if args.Limit <= 0 {
		args.Limit = 20
	}

	f := models.Filter{Text: args.Query, FavoritesOnly: args.Favorites}
	loc := s.query.Location()
	if args.Date != "" {
		d, err := time.ParseInLocation(DateLayout, args.Date, loc)
		if err != nil {
			return toolError("invalid date %q: expected YYYY-MM-DD", args.Date), nil
		}
		f.Date = &d
	}
	if args.From != "" || args.To != "" {
		if args.From == "" || args.To == "" {
			return toolError("from and to must be given together"), nil
		}
		from, err := time.ParseInLocation(DateLayout, args.From, loc)
		if err != nil {
			return toolError("invalid from %q: expected YYYY-MM-DD", args.From), nil
		}
		to, err := time.ParseInLocation(DateLayout, args.To, loc)
		if err != nil {
			return toolError("invalid to %q: expected YYYY-MM-DD", args.To), nil
		}
		f.Range = &models.DateRange{From: from, To: to}
	}

	view, err := s.query.First(ctx, f)
	if err != nil {
		return toolError("%v", err), nil
	}

	if len(view.Records) == 0 {
		if view.Filtered {
			return textResult("No entries match the filter."), nil
		}
		return textResult("The diary is empty."), nil
	}

	recs := view.Records
	models.SortNewestFirst(recs)
	if len(recs) > args.Limit {
		recs = recs[:args.Limit]
	}
	return textResult(formatRecords(recs, true)), nil
}

func (s *Server) handleUpdateEntry(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	var args struct {
		ID        string  `json:"id"`
		Entry     *string `json:"entry"`
		Timestamp string  `json:"timestamp"`
	}
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return toolError("invalid arguments: %v", err), nil
	}

	id, err := uuid.Parse(args.ID)
	if err != nil {
		return toolError("invalid id: %v", err), nil
	}
	if args.Entry == nil && args.Timestamp == "" {
		return toolError("nothing to update: give entry or timestamp"), nil
	}

	var at time.Time
	if args.Timestamp != "" {
		at, err = time.Parse(time.RFC3339, args.Timestamp)
		if err != nil {
			return toolError("invalid timestamp %q: expected RFC3339", args.Timestamp), nil
		}
	}

	n, err := s.store.Modify(ctx, id, func(rec *models.DiaryRecord) error {
		if args.Entry != nil {
			rec.Entry = *args.Entry
		}
		if !at.IsZero() {
			rec.Timestamp = at
		}
		return nil
	})
	if err != nil {
		return toolError("%v", err), nil
	}
	if n == 0 {
		return toolError("entry %s not found", id), nil
	}
	return textResult(fmt.Sprintf("Entry %s updated.", id)), nil
}

func (s *Server) handleDeleteEntries(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	var args struct {
		IDs []string `json:"ids"`
	}
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return toolError("invalid arguments: %v", err), nil
	}
	if len(args.IDs) == 0 {
		return toolError("ids is required"), nil
	}

	ids := make([]uuid.UUID, 0, len(args.IDs))
	for _, raw := range args.IDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return toolError("invalid id %q: %v", raw, err), nil
		}
		ids = append(ids, id)
	}

	ok, err := s.coord.DeleteSelected(ctx, ids)
	if err != nil {
		return toolError("failed to delete entries: %v", err), nil
	}
	if !ok {
		return toolError("some entries were already gone; list entries again and retry with current IDs"), nil
	}
	return textResult(fmt.Sprintf("Deleted %d entries.", len(diary.UniqueIDs(ids)))), nil
}

func (s *Server) handleToggleFavorite(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	var args struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return toolError("invalid arguments: %v", err), nil
	}

	id, err := uuid.Parse(args.ID)
	if err != nil {
		return toolError("invalid id: %v", err), nil
	}

	ok, err := s.coord.ToggleFavorite(ctx, id)
	if err != nil {
		return toolError("failed to toggle favorite: %v", err), nil
	}
	if !ok {
		return toolError("entry %s not found", id), nil
	}

	rec, _ := s.store.Current().Get(id)
	state := "removed from favorites"
	if rec.IsFavorite {
		state = "added to favorites"
	}
	return textResult(fmt.Sprintf("Entry %s %s.", id, state)), nil
}

// formatRecords renders records one block each. With full set, entry text
// is shown in full; otherwise as a one-line preview.
func formatRecords(recs []models.DiaryRecord, full bool) string {
	var sb strings.Builder
	for i, r := range recs {
		if i > 0 {
			sb.WriteString("\n")
		}
		star := ""
		if r.IsFavorite {
			star = " ★"
		}
		sb.WriteString(fmt.Sprintf("- %s %s%s\n", r.ID, r.Timestamp.Format("2006-01-02 15:04"), star))
		if full {
			sb.WriteString(fmt.Sprintf("  %s\n", strings.ReplaceAll(markup.ToMarkdown(r.Entry), "\n", "\n  ")))
		} else {
			sb.WriteString(fmt.Sprintf("  %s\n", markup.Preview(r.Entry, 80)))
		}
	}
	return sb.String()
}

func textResult(text string) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: text}},
	}
}

// toolError creates an error result for MCP tool responses.
func toolError(format string, args ...interface{}) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: fmt.Sprintf(format, args...)}},
		IsError: true,
	}
}
