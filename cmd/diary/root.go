// ABOUTME: Root Cobra command and global flags for the diary CLI.
// ABOUTME: Sets up lifecycle hooks for config loading, logging, and store initialization.
package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/2389-research/diary/internal/config"
	"github.com/2389-research/diary/internal/diary"
	"github.com/2389-research/diary/internal/logging"
	"github.com/2389-research/diary/internal/storage"
	"github.com/2389-research/diary/internal/summary"
)

var globalConfig *config.Config
var globalLog zerolog.Logger
var globalBackend storage.Store
var globalStore *diary.Store
var globalQuery *diary.QueryEngine
var globalCoord *diary.Coordinator
var globalSummaries *summary.Cache

// Flags
var (
	timezone string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "diary",
	Short: "A reactive personal diary",
	Long: `
██████╗ ██╗ █████╗ ██████╗ ██╗   ██╗
██╔══██╗██║██╔══██╗██╔══██╗╚██╗ ██╔╝
██║  ██║██║███████║██████╔╝ ╚████╔╝
██║  ██║██║██╔══██║██╔══██╗  ╚██╔╝
██████╔╝██║██║  ██║██║  ██║   ██║
╚═════╝ ╚═╝╚═╝  ╚═╝╚═╝  ╚═╝   ╚═╝

Write dated entries, search and filter them, keep a daily streak,
and get an AI summary of your week.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "setup" {
			return nil
		}

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}
		globalConfig = cfg
		globalLog = logging.New("diary", logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})

		loc := time.Local
		if timezone != "" {
			loc, err = time.LoadLocation(timezone)
			if err != nil {
				return fmt.Errorf("invalid timezone %q: %w", timezone, err)
			}
		}

		path, err := cfg.GetStoragePath()
		if err != nil {
			return fmt.Errorf("failed to resolve storage path: %w", err)
		}
		backend, err := storage.Open(cfg.Storage.Driver, path)
		if err != nil {
			return fmt.Errorf("failed to open %s store at %s: %w", cfg.Storage.Driver, path, err)
		}
		globalBackend = backend

		store, err := diary.NewStore(context.Background(), backend,
			diary.WithLogger(logging.New("store", logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})))
		if err != nil {
			return fmt.Errorf("failed to load diary: %w", err)
		}
		globalStore = store
		globalQuery = diary.NewQueryEngine(store, diary.WithLocation(loc))
		globalCoord = diary.NewCoordinator(store)

		if cfg.HasAI() {
			gen, err := summary.NewOpenAIGenerator(summary.OpenAIConfig{
				BaseURL: cfg.AI.BaseURL,
				APIKey:  cfg.AI.APIKey,
				Model:   cfg.AI.Model,
			})
			if err != nil {
				return fmt.Errorf("failed to configure summaries: %w", err)
			}
			globalSummaries = summary.New(backend, gen,
				summary.WithLogger(logging.New("summary", logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})))
		}

		globalLog.Debug().Str("driver", cfg.Storage.Driver).Str("path", path).Int("records", store.Current().Len()).Msg("diary opened")
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		closeAll()
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&timezone, "tz", "", "IANA time zone for calendar days (default: local)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
}

// closeAll releases the summary cache, store, and backend in dependency order.
func closeAll() {
	if globalSummaries != nil {
		globalSummaries.Close()
		globalSummaries = nil
	}
	if globalStore != nil {
		globalStore.Close()
		globalStore = nil
	}
	if globalBackend != nil {
		if err := globalBackend.Close(); err != nil {
			globalLog.Warn().Err(err).Msg("failed to close storage")
		}
		globalBackend = nil
	}
}
