// Package anthropic provides a core.Thinker backed by the Anthropic Messages
// API.
package anthropic

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/hupe1980/agentgov/core"
	"github.com/hupe1980/agentgov/thinker"
)

// Options configures the Anthropic thinker (model id, temperature, max
// tokens, API key). Extend via functional options to preserve stability.
type Options struct {
	Model       anthropic.Model
	Temperature float64
	MaxTokens   int64
	APIKey      string
}

// Thinker wraps the Anthropic Messages API behind the core.Thinker interface.
// Responses are non-streaming; the loop consumes whole thoughts.
type Thinker struct {
	client *anthropic.Client
	opts   Options
}

// New creates a new Anthropic thinker using the official client.
func New(optFns ...func(o *Options)) *Thinker {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := anthropic.NewClient(clientOpts...)

	return &Thinker{client: &client, opts: opts}
}

// NewFromClient creates a new Anthropic thinker from an existing client.
func NewFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Thinker {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Thinker{client: client, opts: opts}
}

func defaultOptions() Options {
	return Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
		MaxTokens:   4096,
	}
}

// NextThought implements core.Thinker.
func (t *Thinker) NextThought(ctx context.Context, spec core.AgentSpec, goal string, history []core.Iteration) (string, error) {
	system, turns := thinker.Conversation(spec, goal, history)

	messages := make([]anthropic.MessageParam, 0, len(turns))
	for _, turn := range turns {
		block := anthropic.NewTextBlock(turn.Text)
		if turn.Role == "assistant" {
			messages = append(messages, anthropic.NewAssistantMessage(block))
		} else {
			messages = append(messages, anthropic.NewUserMessage(block))
		}
	}

	params := anthropic.MessageNewParams{
		Model:       t.opts.Model,
		Messages:    messages,
		MaxTokens:   t.opts.MaxTokens,
		Temperature: anthropic.Float(t.opts.Temperature),
		System:      []anthropic.TextBlockParam{{Text: system}},
	}

	resp, err := t.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic api error: %w", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.AsText().Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("anthropic api returned no text content")
	}
	return sb.String(), nil
}
