// ABOUTME: CLI commands for diary entry operations.
// ABOUTME: Provides add, list, edit, delete, and favorite subcommands.
package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/2389-research/diary/internal/diary"
	"github.com/2389-research/diary/internal/models"
)

var addCmd = &cobra.Command{
	Use:   "add [text...]",
	Short: "Write a diary entry",
	Long:  "Write a new diary entry. Without arguments the entry is read from stdin.",
	RunE:  runAdd,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List diary entries",
	Long:  "List diary entries, newest first. Filters combine.",
	RunE:  runList,
}

var editCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Edit a diary entry",
	Long:  "Change the text or time of an existing diary entry.",
	Args:  cobra.ExactArgs(1),
	RunE:  runEdit,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>...",
	Short: "Delete diary entries",
	Long: `Delete the selected diary entries. The whole selection fails if any
entry no longer exists. Use --all to clear the diary.`,
	RunE: runDelete,
}

var favoriteCmd = &cobra.Command{
	Use:   "favorite <id>",
	Short: "Toggle an entry's favorite mark",
	Args:  cobra.ExactArgs(1),
	RunE:  runFavorite,
}

// Flags
var (
	addAt      string
	listFilter filterFlags
	listLimit  int
	listFull   bool
	editText   string
	editAt     string
	deleteAll  bool
)

func init() {
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(favoriteCmd)

	addCmd.Flags().StringVar(&addAt, "at", "", "Entry time (default: now)")

	listFilter.register(listCmd)
	listCmd.Flags().IntVar(&listLimit, "limit", 20, "Maximum number of entries to show (0 for all)")
	listCmd.Flags().BoolVar(&listFull, "full", false, "Show full entry text")

	editCmd.Flags().StringVar(&editText, "text", "", "New entry text")
	editCmd.Flags().StringVar(&editAt, "at", "", "New entry time")

	deleteCmd.Flags().BoolVar(&deleteAll, "all", false, "Delete every entry")
}

func runAdd(cmd *cobra.Command, args []string) error {
	text := strings.Join(args, " ")
	if len(args) == 0 {
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read entry: %w", err)
		}
		text = string(b)
	}

	at := time.Now()
	if addAt != "" {
		var err error
		if at, err = parseTime(addAt, globalQuery.Location()); err != nil {
			return err
		}
	}

	rec := models.NewDiaryRecord(text, at)
	if _, err := globalCoord.Add(cmd.Context(), rec); err != nil {
		if errors.Is(err, diary.ErrValidation) {
			return err
		}
		return fmt.Errorf("failed to add entry: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Entry added: %s\n", rec.ID)
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	loc := globalQuery.Location()
	filter, err := listFilter.build(loc)
	if err != nil {
		return err
	}

	view, err := globalQuery.First(cmd.Context(), filter)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(view.Records) == 0 {
		if view.Filtered {
			fmt.Fprintln(out, "No entries match the filter.")
		} else {
			fmt.Fprintln(out, "The diary is empty. Write your first entry with `diary add`.")
		}
		return nil
	}

	recs := view.Records
	models.SortNewestFirst(recs)
	total := len(recs)
	if listLimit > 0 && len(recs) > listLimit {
		recs = recs[:listLimit]
	}
	printRecords(out, recs, loc, listFull)
	if len(recs) < total {
		fmt.Fprintf(out, "\n%d of %d entries shown.\n", len(recs), total)
	}
	return nil
}

func runEdit(cmd *cobra.Command, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid id: %w", err)
	}
	textSet := cmd.Flags().Changed("text")
	if !textSet && editAt == "" {
		return fmt.Errorf("nothing to change: give --text or --at")
	}

	var at time.Time
	if editAt != "" {
		if at, err = parseTime(editAt, globalQuery.Location()); err != nil {
			return err
		}
	}

	n, err := globalStore.Modify(cmd.Context(), id, func(rec *models.DiaryRecord) error {
		if textSet {
			rec.Entry = editText
		}
		if !at.IsZero() {
			rec.Timestamp = at
		}
		return nil
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("entry %s not found", id)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Entry %s updated.\n", id)
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	if deleteAll {
		if len(args) > 0 {
			return fmt.Errorf("--all does not take entry ids")
		}
		n := globalStore.Current().Len()
		if err := globalStore.DeleteAll(cmd.Context()); err != nil {
			return fmt.Errorf("failed to clear diary: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted all %d entries.\n", n)
		return nil
	}
	if len(args) == 0 {
		return fmt.Errorf("give at least one entry id, or --all")
	}

	ids := make([]uuid.UUID, 0, len(args))
	for _, raw := range args {
		id, err := uuid.Parse(raw)
		if err != nil {
			return fmt.Errorf("invalid id %q: %w", raw, err)
		}
		ids = append(ids, id)
	}

	ok, err := globalCoord.DeleteSelected(cmd.Context(), ids)
	if err != nil {
		return fmt.Errorf("failed to delete entries: %w", err)
	}
	if !ok {
		return fmt.Errorf("some entries no longer exist; list entries again and retry with current ids")
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d entries.\n", len(diary.UniqueIDs(ids)))
	return nil
}

func runFavorite(cmd *cobra.Command, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid id: %w", err)
	}

	ok, err := globalCoord.ToggleFavorite(cmd.Context(), id)
	if err != nil {
		return fmt.Errorf("failed to toggle favorite: %w", err)
	}
	if !ok {
		return fmt.Errorf("entry %s not found", id)
	}

	rec, _ := globalStore.Current().Get(id)
	if rec.IsFavorite {
		fmt.Fprintf(cmd.OutOrStdout(), "%s Entry %s added to favorites.\n", favStyle.Render("★"), id)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "Entry %s removed from favorites.\n", id)
	}
	return nil
}
