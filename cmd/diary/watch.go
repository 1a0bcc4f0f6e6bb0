// ABOUTME: Watch command that follows a filtered view of the diary live.
// ABOUTME: Reprints matching entries on every change; stdin lines are added as entries.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/2389-research/diary/internal/diary"
	"github.com/2389-research/diary/internal/models"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow diary entries as they change",
	Long: `Print the entries matching the filter, then print them again every time
the diary changes. Each line typed on stdin is added as a new entry.
With --poll, the store is rescanned periodically to pick up entries written
by other processes (diskv driver). Runs until interrupted.`,
	RunE: runWatch,
}

var (
	watchFilter filterFlags
	watchLimit  int
	watchPoll   time.Duration
)

func init() {
	rootCmd.AddCommand(watchCmd)
	watchFilter.register(watchCmd)
	watchCmd.Flags().IntVar(&watchLimit, "limit", 10, "Maximum number of entries to show per update (0 for all)")
	watchCmd.Flags().DurationVar(&watchPoll, "poll", 0, "Rescan interval for external writes (0 disables)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	filter, err := watchFilter.build(globalQuery.Location())
	if err != nil {
		return err
	}

	go addLines(ctx, cmd.InOrStdin(), cmd.ErrOrStderr())
	if watchPoll > 0 {
		go poll(ctx, globalStore, watchPoll)
	}
	return watch(ctx, cmd.OutOrStdout(), globalQuery, filter)
}

func watch(ctx context.Context, out io.Writer, q *diary.QueryEngine, filter models.Filter) error {
	for state := range q.Observe(ctx, filter) {
		switch state.Kind {
		case diary.StateLoading:
			fmt.Fprintln(out, dateStyle.Render("Loading..."))
		case diary.StateError:
			return state.Err
		case diary.StateContent:
			fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("── version %d: %d entries ──", state.Version, len(state.Records))))
			if len(state.Records) == 0 {
				if state.Filtered {
					fmt.Fprintln(out, "No entries match the filter.")
				} else {
					fmt.Fprintln(out, "The diary is empty.")
				}
				continue
			}
			recs := state.Records
			models.SortNewestFirst(recs)
			if watchLimit > 0 && len(recs) > watchLimit {
				recs = recs[:watchLimit]
			}
			printRecords(out, recs, q.Location(), false)
			fmt.Fprintln(out)
		}
	}
	return nil
}

// addLines adds each non-blank line of in as a new entry until in ends or
// ctx is done.
func addLines(ctx context.Context, in io.Reader, errOut io.Writer) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if _, err := globalCoord.Add(ctx, models.NewDiaryRecord(line, time.Now())); err != nil {
			fmt.Fprintf(errOut, "failed to add entry: %v\n", err)
		}
	}
}

func poll(ctx context.Context, store *diary.Store, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := store.Reload(ctx); err != nil {
				globalLog.Warn().Err(err).Msg("reload failed")
			}
		}
	}
}
