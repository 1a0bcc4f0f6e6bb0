// ABOUTME: Connection validation for OpenAI-compatible summary providers.
// ABOUTME: Tests credentials by listing models and checking the chosen one is offered.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

// ValidateConnection tests the API connection by listing models with the given credentials.
// The context allows cancellation when the user quits during validation.
func ValidateConnection(ctx context.Context, baseURL, apiKey, model string) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	client := openai.NewClientWithConfig(cfg)

	list, err := client.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}

	// Some compatible servers return an empty list; only reject a model
	// that is missing from a non-empty one.
	if model == "" || len(list.Models) == 0 {
		return nil
	}
	for _, m := range list.Models {
		if m.ID == model {
			return nil
		}
	}
	return fmt.Errorf("model %q is not offered by %s", model, cfg.BaseURL)
}
