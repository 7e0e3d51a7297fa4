// Package extract answers a free-text information request over the chunks of
// a page, with a generative backend when one is reachable and a deterministic
// keyword fallback otherwise.
package extract

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/hyperifyio/goscrape/internal/budget"
	"github.com/hyperifyio/goscrape/internal/cache"
	"github.com/hyperifyio/goscrape/internal/llm"
)

// Outcome names the terminal state an extraction ended in.
type Outcome int

const (
	// Synthesized means the backend produced the answer, including the
	// fixed no-information message.
	Synthesized Outcome = iota
	// FallbackFormatted means the keyword algorithm produced the answer.
	FallbackFormatted
)

func (o Outcome) String() string {
	switch o {
	case Synthesized:
		return "synthesized"
	case FallbackFormatted:
		return "fallback"
	default:
		return "unknown"
	}
}

// Result is the answer to one extraction request. Text is never empty.
type Result struct {
	Text    string
	Outcome Outcome
	// Cause is the backend failure that forced the fallback, if any.
	Cause error
	// ChunksQueried counts per-chunk backend calls that were issued.
	ChunksQueried int
}

func (r Result) String() string { return r.Text }

// Extractor runs the per-chunk query protocol. The zero value always uses
// the fallback.
type Extractor struct {
	Backend      llm.Generator
	Availability llm.Availability
	Model        string
	// Concurrency bounds in-flight chunk queries. Values below 2 query
	// chunks one after another.
	Concurrency int
	// Cache, when set, serves repeated prompts without calling the backend.
	Cache *cache.LLMCache
	// Tokens sizes prompts for context warnings. Nil uses the heuristic.
	Tokens budget.Counter
	// ReservedOutputTokens is kept free in the context window for the answer.
	ReservedOutputTokens int
}

// queryOutcome is the result of the per-chunk step: the relevant responses in
// chunk order, or the first failure.
type queryOutcome struct {
	results []string
	queried int
	err     error
}

// Extract answers request over chunks. It never fails: backend problems end
// in the fallback with the cause noted in the text.
func (e *Extractor) Extract(ctx context.Context, chunks []string, request string) Result {
	model := e.model()
	if e.Backend == nil || e.Availability == nil || !e.Availability.Available(ctx) {
		log.Info().Int("chunks", len(chunks)).Msg("no backend available; using keyword extraction")
		return Result{Text: Fallback(chunks, request, nil, model), Outcome: FallbackFormatted}
	}

	log.Info().Int("chunks", len(chunks)).Str("model", model).Msg("extracting with backend")
	q := e.queryChunks(ctx, model, chunks, request)
	if q.err != nil {
		return e.fallback(chunks, request, q.err, q.queried)
	}
	if len(q.results) == 0 {
		return Result{Text: NoInformationMessage, Outcome: Synthesized, ChunksQueried: q.queried}
	}

	final, err := e.generate(ctx, model, synthesisPrompt(request, strings.Join(q.results, "\n\n")), false)
	if err != nil {
		return e.fallback(chunks, request, err, q.queried)
	}
	log.Info().Int("relevant_chunks", len(q.results)).Msg("synthesized extraction result")
	return Result{Text: final, Outcome: Synthesized, ChunksQueried: q.queried}
}

func (e *Extractor) fallback(chunks []string, request string, cause error, queried int) Result {
	log.Warn().Err(cause).Msg("backend extraction failed; using keyword extraction")
	return Result{
		Text:          Fallback(chunks, request, cause, e.model()),
		Outcome:       FallbackFormatted,
		Cause:         cause,
		ChunksQueried: queried,
	}
}

func (e *Extractor) model() string {
	if m := strings.TrimSpace(e.Model); m != "" {
		return m
	}
	return llm.DefaultModel
}

// queryChunks asks the backend about every chunk and keeps the answers that
// are neither empty nor the sentinel, in chunk order. The first failure aborts
// the remaining queries.
func (e *Extractor) queryChunks(ctx context.Context, model string, chunks []string, request string) queryOutcome {
	responses := make([]string, len(chunks))
	var queried int64

	if e.Concurrency < 2 {
		for i, c := range chunks {
			queried++
			resp, err := e.generate(ctx, model, chunkPrompt(request, i, len(chunks), c), true)
			if err != nil {
				return queryOutcome{queried: int(queried), err: err}
			}
			responses[i] = resp
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(e.Concurrency)
		for i, c := range chunks {
			g.Go(func() error {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				atomic.AddInt64(&queried, 1)
				resp, err := e.generate(gctx, model, chunkPrompt(request, i, len(chunks), c), true)
				if err != nil {
					return err
				}
				responses[i] = resp
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return queryOutcome{queried: int(atomic.LoadInt64(&queried)), err: err}
		}
	}

	results := make([]string, 0, len(responses))
	for i, r := range responses {
		if strings.TrimSpace(r) == "" || isSentinel(r) {
			log.Debug().Int("chunk", i+1).Msg("chunk has no relevant information")
			continue
		}
		results = append(results, r)
	}
	return queryOutcome{results: results, queried: int(queried)}
}

// generate answers one prompt through the cache and the backend. An empty
// answer is a failure unless allowEmpty is set, in which case it comes back as
// "" and is not cached.
func (e *Extractor) generate(ctx context.Context, model, prompt string, allowEmpty bool) (string, error) {
	if e.Cache != nil {
		if out, ok := e.Cache.GetResponse(ctx, model, prompt); ok {
			return out, nil
		}
	}
	counter := e.Tokens
	if counter == nil {
		counter = budget.HeuristicCounter{}
	}
	tokens := counter.Count(prompt)
	if !budget.FitsInContext(model, e.ReservedOutputTokens, tokens) {
		log.Warn().Str("model", model).Int("prompt_tokens", tokens).Int("context", budget.ModelContextTokens(model)).Msg("prompt may exceed model context")
	}
	log.Debug().Str("model", model).Int("prompt_len", len(prompt)).Int("prompt_tokens", tokens).Msg("backend query")

	out, err := e.Backend.Generate(ctx, model, prompt)
	if err == nil && strings.TrimSpace(out) == "" {
		err = llm.ErrEmptyResponse
	}
	if err != nil {
		if allowEmpty && errors.Is(err, llm.ErrEmptyResponse) {
			log.Debug().Str("model", model).Msg("backend returned an empty answer")
			return "", nil
		}
		return "", err
	}
	if e.Cache != nil {
		if err := e.Cache.SaveResponse(ctx, model, prompt, out); err != nil {
			log.Warn().Err(err).Msg("llm cache save failed")
		}
	}
	return out, nil
}
