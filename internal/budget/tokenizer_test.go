package budget

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkoukk/tiktoken-go"
)

// withLoader swaps the encoder loader and clears the tokenizer state for one
// test.
func withLoader(t *testing.T, load func(string) (*tiktoken.Tiktoken, error), timeout time.Duration) {
	t.Helper()
	prevLoad, prevTimeout := loadEncoding, TokenizerLoadTimeout
	tokenizerCacheMu.Lock()
	prevCache, prevErr := tokenizerCache, tokenizerErr
	tokenizerCache, tokenizerErr = make(map[string]*tiktoken.Tiktoken), nil
	tokenizerCacheMu.Unlock()
	loadEncoding, TokenizerLoadTimeout = load, timeout
	t.Cleanup(func() {
		loadEncoding, TokenizerLoadTimeout = prevLoad, prevTimeout
		tokenizerCacheMu.Lock()
		tokenizerCache, tokenizerErr = prevCache, prevErr
		tokenizerCacheMu.Unlock()
	})
}

func TestTiktokenCounter_StalledDownloadFallsBackToHeuristic(t *testing.T) {
	release := make(chan struct{})
	var attempts atomic.Int32
	withLoader(t, func(string) (*tiktoken.Tiktoken, error) {
		attempts.Add(1)
		<-release
		return nil, errors.New("connection reset")
	}, 50*time.Millisecond)
	t.Cleanup(func() { close(release) })

	want := EstimateTokens("hello world")
	start := time.Now()
	var wg sync.WaitGroup
	counts := make([]int, 8)
	for i := range counts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			counts[i] = TiktokenCounter{Model: "llama2"}.Count("hello world")
		}()
	}
	wg.Wait()
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("counting blocked for %s on a stalled encoder download", elapsed)
	}
	for i, got := range counts {
		if got != want {
			t.Fatalf("caller %d: got %d want heuristic %d", i, got, want)
		}
	}

	// Later prompts and other models skip tiktoken entirely.
	if got := (TiktokenCounter{Model: "mistral"}).Count("hello world"); got != want {
		t.Fatalf("got %d want %d", got, want)
	}
	if n := attempts.Load(); n != 1 {
		t.Fatalf("expected a single load attempt, got %d", n)
	}
}

func TestTiktokenCounter_LoadErrorIsRemembered(t *testing.T) {
	var attempts atomic.Int32
	withLoader(t, func(string) (*tiktoken.Tiktoken, error) {
		attempts.Add(1)
		return nil, errors.New("no route to host")
	}, time.Second)

	for i := 0; i < 3; i++ {
		if got, want := (TiktokenCounter{Model: "llama2"}).Count("some prompt text"), EstimateTokens("some prompt text"); got != want {
			t.Fatalf("got %d want %d", got, want)
		}
	}
	if n := attempts.Load(); n != 1 {
		t.Fatalf("failed load must not be retried, got %d attempts", n)
	}
	if _, err := getTokenizer("llama2"); err == nil {
		t.Fatalf("expected remembered error")
	}
}
