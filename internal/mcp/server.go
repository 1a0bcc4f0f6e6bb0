// ABOUTME: MCP server initialization and configuration for diary.
// ABOUTME: Sets up server with diary, streak and summary tools for AI agent access.
package mcp

import (
	"context"
	"fmt"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"github.com/2389-research/diary/internal/diary"
	"github.com/2389-research/diary/internal/summary"
)

// Server wraps the MCP server with the diary store and its collaborators.
type Server struct {
	mcp       *gomcp.Server
	store     *diary.Store
	coord     *diary.Coordinator
	query     *diary.QueryEngine
	summaries *summary.Cache
	log       zerolog.Logger
}

// ServerOption configures optional Server dependencies.
type ServerOption func(*Server)

// WithSummaryCache enables the weekly_summary tool and the dashboard summary.
func WithSummaryCache(c *summary.Cache) ServerOption {
	return func(s *Server) {
		s.summaries = c
	}
}

// WithLogger sets the logger used for tool calls.
func WithLogger(log zerolog.Logger) ServerOption {
	return func(s *Server) {
		s.log = log
	}
}

// NewServer creates an MCP server exposing diary operations.
func NewServer(store *diary.Store, query *diary.QueryEngine, opts ...ServerOption) (*Server, error) {
	if store == nil {
		return nil, fmt.Errorf("diary store is required")
	}
	if query == nil {
		return nil, fmt.Errorf("query engine is required")
	}

	mcpServer := gomcp.NewServer(
		&gomcp.Implementation{
			Name:    "diary",
			Version: "1.0.0",
		},
		nil,
	)

	s := &Server{
		mcp:   mcpServer,
		store: store,
		coord: diary.NewCoordinator(store),
		query: query,
		log:   zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.registerDiaryTools()
	s.registerInsightTools()

	return s, nil
}

// Serve starts the MCP server in stdio mode.
func (s *Server) Serve(ctx context.Context) error {
	return s.mcp.Run(ctx, &gomcp.StdioTransport{})
}
