package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultModel is the model asked for when none is configured.
const DefaultModel = "llama2"

// DefaultTimeout bounds a single backend call.
const DefaultTimeout = 120 * time.Second

// ErrEmptyResponse is returned when the backend answers with no text.
var ErrEmptyResponse = errors.New("llm: empty response")

// Generator is the text completion boundary: one prompt in, one text out.
type Generator interface {
	Generate(ctx context.Context, model string, prompt string) (string, error)
}

// ChatGenerator implements Generator with a single-message chat completion.
type ChatGenerator struct {
	Client Client
	// Timeout bounds each call. Zero means DefaultTimeout; negative disables.
	Timeout     time.Duration
	Temperature float32
}

func (g *ChatGenerator) Generate(ctx context.Context, model string, prompt string) (string, error) {
	if g == nil || g.Client == nil {
		return "", errors.New("llm: generator not configured")
	}
	timeout := g.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	resp, err := g.Client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: g.Temperature,
		N:           1,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	out := strings.TrimSpace(resp.Choices[0].Message.Content)
	if out == "" {
		return "", ErrEmptyResponse
	}
	return out, nil
}
