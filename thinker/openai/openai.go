// Package openai provides a core.Thinker backed by the OpenAI Chat
// Completions API.
package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"

	"github.com/hupe1980/agentgov/core"
	"github.com/hupe1980/agentgov/thinker"
)

// Options configures the OpenAI thinker. Fields mirror a subset of Chat
// Completion parameters intentionally kept minimal; extend via functional
// options without breaking callers.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
}

// Thinker wraps the OpenAI Chat Completions API behind the core.Thinker
// interface. Responses are non-streaming; the loop consumes whole thoughts.
type Thinker struct {
	client *openai.Client
	opts   Options
}

// New creates a new OpenAI thinker using the official client.
func New(optFns ...func(o *Options)) *Thinker {
	client := openai.NewClient()
	return NewFromClient(&client, optFns...)
}

// NewFromClient creates a new OpenAI thinker from an existing client.
func NewFromClient(client *openai.Client, optFns ...func(o *Options)) *Thinker {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.7,
		MaxCompletionTokens: 4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Thinker{client: client, opts: opts}
}

// NextThought implements core.Thinker.
func (t *Thinker) NextThought(ctx context.Context, spec core.AgentSpec, goal string, history []core.Iteration) (string, error) {
	system, turns := thinker.Conversation(spec, goal, history)

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(turns)+1)
	messages = append(messages, openai.SystemMessage(system))
	for _, turn := range turns {
		if turn.Role == "assistant" {
			messages = append(messages, openai.AssistantMessage(turn.Text))
		} else {
			messages = append(messages, openai.UserMessage(turn.Text))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:               t.opts.Model,
		Messages:            messages,
		Temperature:         openai.Float(t.opts.Temperature),
		MaxCompletionTokens: openai.Int(t.opts.MaxCompletionTokens),
	}

	resp, err := t.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai api returned no choices")
	}
	content := resp.Choices[0].Message.Content
	if content == "" {
		return "", fmt.Errorf("openai api returned empty content")
	}
	return content, nil
}
