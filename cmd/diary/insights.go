// ABOUTME: CLI commands for derived diary views.
// ABOUTME: Provides streak, summary, and dashboard subcommands.
package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/2389-research/diary/internal/dashboard"
	"github.com/2389-research/diary/internal/streak"
	"github.com/2389-research/diary/internal/summary"
)

var streakCmd = &cobra.Command{
	Use:   "streak",
	Short: "Show the current writing streak",
	RunE:  runStreak,
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show the AI summary of the past week",
	Long: `Show the weekly summary. A stored summary younger than 7 days is reused;
otherwise a new one is generated and streamed as it arrives.`,
	RunE: runSummary,
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Show latest entries, totals, streak, and weekly summary",
	RunE:  runDashboard,
}

func init() {
	rootCmd.AddCommand(streakCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(dashboardCmd)
}

func runStreak(cmd *cobra.Command, args []string) error {
	st, err := streak.Calculate(globalStore.Current().Records(), globalQuery.Location())
	if err != nil {
		return fmt.Errorf("failed to calculate streak: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Streak: %s\n", formatStreak(st))
	return nil
}

func runSummary(cmd *cobra.Command, args []string) error {
	if globalSummaries == nil {
		return fmt.Errorf("%s", dashboard.NotConfiguredText)
	}
	out := cmd.OutOrStdout()
	records := globalStore.Current().Records()
	if len(records) == 0 {
		fmt.Fprintln(out, dashboard.EmptyDiaryText)
		return nil
	}

	ch, err := globalSummaries.Get(cmd.Context(), summary.RecentRecords(records, time.Now()))
	if err != nil {
		return fmt.Errorf("failed to get summary: %w", err)
	}
	sp := &streamPrinter{w: out}
	ev, err := summary.Wait(cmd.Context(), ch, sp.onPartial)
	if err != nil {
		if sp.printed > 0 {
			fmt.Fprintln(out)
		}
		return err
	}
	sp.onPartial(ev.Text)
	fmt.Fprintln(out)
	globalLog.Debug().Str("kind", ev.Kind.String()).Time("generated_at", ev.GeneratedAt).Msg("summary ready")
	return nil
}

func runDashboard(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	loc := globalQuery.Location()

	fmt.Fprintln(out, sectionStyle.Render("Weekly summary"))
	sp := &streamPrinter{w: out}
	d, err := dashboard.Build(cmd.Context(), globalStore.Current(), globalSummaries, dashboard.Options{
		Location:  loc,
		OnPartial: sp.onPartial,
	})
	if err != nil {
		return fmt.Errorf("failed to build dashboard: %w", err)
	}
	switch {
	case d.SummaryErr != nil:
		if sp.printed > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprintf(out, "Error generating weekly summary: %v\n", d.SummaryErr)
	default:
		sp.onPartial(d.Summary)
		fmt.Fprintln(out)
	}

	fmt.Fprintln(out, sectionStyle.Render("Overview"))
	fmt.Fprintf(out, "%s %d\n", headerStyle.Render("Entries:"), d.Total)
	fmt.Fprintf(out, "%s %s\n", headerStyle.Render("Streak: "), formatStreak(d.Streak))

	if len(d.Latest) > 0 {
		fmt.Fprintln(out, sectionStyle.Render("Latest entries"))
		printRecords(out, d.Latest, loc, false)
	}
	return nil
}
