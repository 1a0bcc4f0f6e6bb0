// ABOUTME: MCP server command implementation for diary.
// ABOUTME: Starts the MCP server in stdio mode, optionally exposing Prometheus metrics over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/2389-research/diary/internal/logging"
	mcppkg "github.com/2389-research/diary/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server (stdio mode)",
	Long: `Start the Model Context Protocol server for AI agent integration.

The MCP server communicates via stdio, allowing AI agents to write,
search, and summarize the diary through a standardized protocol.`,
	RunE: runMCP,
}

var metricsAddr string

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log := logging.New("mcp", logging.Options{Level: globalConfig.Log.Level, Format: globalConfig.Log.Format})

	opts := []mcppkg.ServerOption{mcppkg.WithLogger(log)}
	if globalSummaries != nil {
		opts = append(opts, mcppkg.WithSummaryCache(globalSummaries))
	}

	server, err := mcppkg.NewServer(globalStore, globalQuery, opts...)
	if err != nil {
		return err
	}

	if metricsAddr == "" {
		return server.Serve(ctx)
	}

	srv := &http.Server{Addr: metricsAddr, Handler: metricsMux(), ReadHeaderTimeout: 5 * time.Second}
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", metricsAddr).Msg("serving metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
		defer done()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		defer cancel()
		return server.Serve(gCtx)
	})
	return g.Wait()
}

func metricsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}
