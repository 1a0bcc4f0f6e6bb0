// ABOUTME: OpenAI-compatible summary generator streaming chat completion chunks.
// ABOUTME: Builds a prompt from diary entries, oldest first, with markup converted to markdown.
package summary

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/2389-research/diary/internal/markup"
	"github.com/2389-research/diary/internal/models"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-4o-mini"

const systemPrompt = `You summarize a person's diary entries from the past week.
Write a short, warm summary in the second person, at most five sentences.
Mention recurring themes and notable moments. Do not invent events.`

// OpenAIConfig holds connection settings for an OpenAI-compatible API.
type OpenAIConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

// OpenAIGenerator implements Generator with the chat completions API.
type OpenAIGenerator struct {
	client *openai.Client
	model  string
}

// NewOpenAIGenerator creates a generator for cfg.
func NewOpenAIGenerator(cfg OpenAIConfig) (*OpenAIGenerator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	return &OpenAIGenerator{
		client: openai.NewClientWithConfig(oc),
		model:  model,
	}, nil
}

// Generate streams the summary text for records.
func (g *OpenAIGenerator) Generate(ctx context.Context, records []models.DiaryRecord) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		req := openai.ChatCompletionRequest{
			Model: g.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: BuildPrompt(records)},
			},
			Stream: true,
		}

		stream, err := g.client.CreateChatCompletionStream(ctx, req)
		if err != nil {
			yield("", fmt.Errorf("failed to start completion stream: %w", err))
			return
		}
		defer stream.Close()

		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield("", fmt.Errorf("completion stream failed: %w", err))
				return
			}
			if len(resp.Choices) == 0 {
				continue
			}
			if !yield(resp.Choices[0].Delta.Content, nil) {
				return
			}
		}
	}
}

// BuildPrompt lists records oldest first, one per line group.
func BuildPrompt(records []models.DiaryRecord) string {
	recs := make([]models.DiaryRecord, len(records))
	copy(recs, records)
	models.SortOldestFirst(recs)

	var b strings.Builder
	b.WriteString("Here are my diary entries:\n\n")
	for _, r := range recs {
		fmt.Fprintf(&b, "## %s\n%s\n\n", r.Timestamp.Format("Monday, January 2 2006 15:04"), markup.ToMarkdown(r.Entry))
	}
	return strings.TrimRight(b.String(), "\n")
}
