package budget

import (
	"fmt"
	"sync"
	"time"

	"github.com/pkoukk/tiktoken-go"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// TokenizerLoadTimeout bounds fetching an encoder's BPE ranks. tiktoken
// downloads them on first use unless TIKTOKEN_CACHE_DIR already holds a copy.
var TokenizerLoadTimeout = 10 * time.Second

var (
	tokenizerCache   = make(map[string]*tiktoken.Tiktoken)
	tokenizerCacheMu sync.RWMutex
	// tokenizerErr disables tiktoken for the rest of the process once a load
	// has failed, so later prompts go straight to the heuristic.
	tokenizerErr error
	tokenizerLoads singleflight.Group

	// loadEncoding is replaced in tests.
	loadEncoding = func(model string) (*tiktoken.Tiktoken, error) {
		tkm, err := tiktoken.EncodingForModel(model)
		if err != nil {
			return tiktoken.GetEncoding("cl100k_base")
		}
		return tkm, nil
	}
)

// getTokenizer returns a cached encoder for model. Models without a known
// encoding (all local ones) use cl100k_base, which over-counts slightly for
// Llama vocabularies and so errs on the safe side. The load runs without
// holding the cache lock and concurrent callers share one attempt.
func getTokenizer(model string) (*tiktoken.Tiktoken, error) {
	tokenizerCacheMu.RLock()
	tkm, ok := tokenizerCache[model]
	failed := tokenizerErr
	tokenizerCacheMu.RUnlock()
	if ok {
		return tkm, nil
	}
	if failed != nil {
		return nil, failed
	}

	v, err, _ := tokenizerLoads.Do(model, func() (any, error) {
		tokenizerCacheMu.RLock()
		tkm, ok := tokenizerCache[model]
		failed := tokenizerErr
		tokenizerCacheMu.RUnlock()
		if ok {
			return tkm, nil
		}
		if failed != nil {
			return nil, failed
		}
		tkm, err := loadWithTimeout(model, TokenizerLoadTimeout)
		tokenizerCacheMu.Lock()
		defer tokenizerCacheMu.Unlock()
		if err != nil {
			if tokenizerErr == nil {
				log.Warn().Err(err).Str("model", model).Msg("tokenizer unavailable; estimating prompt tokens")
			}
			tokenizerErr = err
			return nil, err
		}
		tokenizerCache[model] = tkm
		return tkm, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*tiktoken.Tiktoken), nil
}

// loadWithTimeout gives up on a load that does not finish within d. The
// abandoned load keeps running in the background and its result is dropped.
func loadWithTimeout(model string, d time.Duration) (*tiktoken.Tiktoken, error) {
	type loaded struct {
		tkm *tiktoken.Tiktoken
		err error
	}
	load := loadEncoding
	done := make(chan loaded, 1)
	go func() {
		tkm, err := load(model)
		done <- loaded{tkm, err}
	}()
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case r := <-done:
		return r.tkm, r.err
	case <-timer.C:
		return nil, fmt.Errorf("load tokenizer for %s: timed out after %s", model, d)
	}
}

// Counter counts prompt tokens.
type Counter interface {
	Count(s string) int
}

// HeuristicCounter uses EstimateTokens and never touches the network.
type HeuristicCounter struct{}

func (HeuristicCounter) Count(s string) int { return EstimateTokens(s) }

// TiktokenCounter counts with a BPE encoder. The encoder is loaded once per
// process; when that fails or times out the heuristic is used from then on.
type TiktokenCounter struct {
	Model string
}

func (c TiktokenCounter) Count(s string) int {
	tkm, err := getTokenizer(c.Model)
	if err != nil {
		return EstimateTokens(s)
	}
	return len(tkm.Encode(s, nil, nil))
}
