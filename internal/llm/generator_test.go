package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

type fakeClient struct {
	reply string
	err   error
	delay time.Duration
	got   openai.ChatCompletionRequest
	calls int
}

func (f *fakeClient) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.calls++
	f.got = req
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return openai.ChatCompletionResponse{}, ctx.Err()
		}
	}
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	if f.reply == "" {
		return openai.ChatCompletionResponse{}, nil
	}
	return openai.ChatCompletionResponse{Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Role: "assistant", Content: f.reply}}}}, nil
}

func (f *fakeClient) ListModels(ctx context.Context) (openai.ModelsList, error) {
	if f.err != nil {
		return openai.ModelsList{}, f.err
	}
	return openai.ModelsList{Models: []openai.Model{{ID: DefaultModel}}}, nil
}

func TestChatGenerator_SendsSingleUserMessage(t *testing.T) {
	fc := &fakeClient{reply: "  extracted  "}
	g := &ChatGenerator{Client: fc}
	out, err := g.Generate(context.Background(), "llama2", "the prompt")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if out != "extracted" {
		t.Fatalf("expected trimmed output, got %q", out)
	}
	if fc.got.Model != "llama2" || len(fc.got.Messages) != 1 || fc.got.Messages[0].Content != "the prompt" {
		t.Fatalf("unexpected request: %+v", fc.got)
	}
	if fc.got.Messages[0].Role != openai.ChatMessageRoleUser {
		t.Fatalf("expected user role, got %q", fc.got.Messages[0].Role)
	}
}

func TestChatGenerator_EmptyResponse(t *testing.T) {
	g := &ChatGenerator{Client: &fakeClient{}}
	if _, err := g.Generate(context.Background(), "m", "p"); !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestChatGenerator_WrapsErrors(t *testing.T) {
	boom := errors.New("connection refused")
	g := &ChatGenerator{Client: &fakeClient{err: boom}}
	if _, err := g.Generate(context.Background(), "m", "p"); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
}

func TestChatGenerator_Timeout(t *testing.T) {
	g := &ChatGenerator{Client: &fakeClient{reply: "late", delay: time.Second}, Timeout: 20 * time.Millisecond}
	start := time.Now()
	_, err := g.Generate(context.Background(), "m", "p")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Fatalf("timeout not applied")
	}
}

func TestChatGenerator_NotConfigured(t *testing.T) {
	var g *ChatGenerator
	if _, err := g.Generate(context.Background(), "m", "p"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestAvailability(t *testing.T) {
	ctx := context.Background()
	if (NoBackend{}).Available(ctx) {
		t.Fatalf("NoBackend must be unavailable")
	}
	if !(LiveBackend{Lister: &fakeClient{}}).Available(ctx) {
		t.Fatalf("reachable lister should be available")
	}
	if (LiveBackend{Lister: &fakeClient{err: errors.New("dial tcp: refused")}}).Available(ctx) {
		t.Fatalf("failing lister should be unavailable")
	}
	if (LiveBackend{}).Available(ctx) {
		t.Fatalf("nil lister should be unavailable")
	}
}
