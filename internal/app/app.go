package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperifyio/goscrape/internal/budget"
	"github.com/hyperifyio/goscrape/internal/cache"
	"github.com/hyperifyio/goscrape/internal/chunk"
	"github.com/hyperifyio/goscrape/internal/extract"
	"github.com/hyperifyio/goscrape/internal/fetch"
	"github.com/hyperifyio/goscrape/internal/llm"
	"github.com/hyperifyio/goscrape/internal/reduce"
)

// EmptyRequestWarning is shown when the information request is blank.
const EmptyRequestWarning = "Please describe what information you want to extract."

// reservedOutputTokens is kept free in the model context for each answer.
const reservedOutputTokens = 512

type App struct {
	cfg       Config
	fetcher   *fetch.Client
	reducer   reduce.Reducer
	extractor *extract.Extractor
	pageCache *cache.PageCache
	llmCache  *cache.LLMCache

	stdout io.Writer
	stderr io.Writer
}

// New fills unset fields from the environment, resolves defaults and wires
// the fetch, reduce and extract stages. It does not contact the backend;
// availability is probed once per extraction.
func New(ctx context.Context, cfg Config) (*App, error) {
	if !cfg.EnvResolved {
		ApplyEnvToConfig(&cfg)
	}
	cfg = withDefaults(cfg)

	reducer, err := reduce.ForMode(cfg.ReduceMode)
	if err != nil {
		return nil, fmt.Errorf("reducer: %w", err)
	}

	a := &App{cfg: cfg, reducer: reducer, stdout: os.Stdout, stderr: os.Stderr}

	if cfg.CacheDir != "" {
		if cfg.CacheClear {
			if err := cache.ClearDir(cfg.CacheDir); err != nil {
				log.Warn().Err(err).Str("dir", cfg.CacheDir).Msg("cache clear failed")
			}
		}
		a.pageCache, a.llmCache = cache.Layout(cfg.CacheDir, cfg.CacheStrictPerms)
		if cfg.CacheMaxAge > 0 {
			// Purge is best-effort; a stale entry only costs a refetch.
			pages, _ := cache.PurgePageCacheByAge(a.pageCache.Dir, cfg.CacheMaxAge)
			responses, _ := cache.PurgeLLMCacheByAge(a.llmCache.Dir, cfg.CacheMaxAge)
			log.Debug().Int("pages", pages).Int("responses", responses).Msg("purged expired cache entries")
		}
	}

	a.fetcher = fetch.New(cfg.FetchTimeout)
	a.fetcher.HTTPClient = newPageHTTPClient(cfg.FetchTimeout)
	a.fetcher.Cache = a.pageCache

	a.extractor = &extract.Extractor{
		Availability:         llm.NoBackend{},
		Model:                cfg.LLMModel,
		Concurrency:          cfg.Concurrency,
		Cache:                a.llmCache,
		Tokens:               budget.HeuristicCounter{},
		ReservedOutputTokens: reservedOutputTokens,
	}
	if !cfg.NoLLM {
		provider := llm.NewOpenAIProvider(cfg.LLMBaseURL, cfg.LLMAPIKey, func(c *openai.ClientConfig) {
			c.HTTPClient = newBackendHTTPClient()
		})
		a.extractor.Backend = &llm.ChatGenerator{Client: provider, Timeout: cfg.LLMTimeout, Temperature: 0.1}
		a.extractor.Availability = llm.LiveBackend{Lister: provider}
		a.extractor.Tokens = budget.TiktokenCounter{Model: cfg.LLMModel}
	}

	log.Debug().
		Str("llm_base", cfg.LLMBaseURL).
		Str("model", cfg.LLMModel).
		Bool("no_llm", cfg.NoLLM).
		Str("reduce_mode", cfg.ReduceMode).
		Int("chunk_size", cfg.ChunkSize).
		Msg("app configured")
	return a, nil
}

func withDefaults(cfg Config) Config {
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = fetch.DefaultTimeout
	}
	if cfg.LLMTimeout == 0 {
		cfg.LLMTimeout = llm.DefaultTimeout
	}
	if strings.TrimSpace(cfg.LLMModel) == "" {
		cfg.LLMModel = llm.DefaultModel
	}
	if strings.TrimSpace(cfg.LLMBaseURL) == "" {
		cfg.LLMBaseURL = DefaultLLMBaseURL
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = chunk.DefaultSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.ReduceMode == "" {
		cfg.ReduceMode = DefaultReduceMode
	}
	return cfg
}

// SetOutput redirects the result and -show-content streams.
func (a *App) SetOutput(stdout, stderr io.Writer) {
	a.stdout = stdout
	a.stderr = stderr
}

func (a *App) Close() {
	// nothing yet
}

// FetchAndClean downloads the page and reduces it to clean text. Failures are
// *fetch.Error.
func (a *App) FetchAndClean(ctx context.Context, url string) (string, error) {
	markup, err := a.fetcher.FetchHTML(ctx, url)
	if err != nil {
		return "", err
	}
	text := a.reducer.Reduce(markup, url)
	log.Info().Str("url", url).Int("html_chars", len(markup)).Int("text_chars", len(text)).Msg("page cleaned")
	return text, nil
}

// Extract answers request over chunks. It never fails.
func (a *App) Extract(ctx context.Context, chunks []string, request string) extract.Result {
	return a.extractor.Extract(ctx, chunks, request)
}

// Run drives one extraction for the configured URL and request and writes
// the requested artifacts.
func (a *App) Run(ctx context.Context) error {
	request := strings.TrimSpace(a.cfg.Request)
	if request == "" {
		log.Warn().Msg(EmptyRequestWarning)
		return ErrEmptyRequest
	}
	if strings.TrimSpace(a.cfg.URL) == "" {
		return ErrEmptyURL
	}

	text, err := a.FetchAndClean(ctx, a.cfg.URL)
	if err != nil {
		return err
	}
	if a.cfg.ShowContent {
		fmt.Fprintf(a.stderr, "--- extracted content ---\n%s\n--- end of content ---\n", text)
	}

	chunks, err := chunk.Split(text, a.cfg.ChunkSize)
	if err != nil {
		return fmt.Errorf("split content: %w", err)
	}
	log.Info().Int("chunks", len(chunks)).Int("chunk_size", a.cfg.ChunkSize).Msg("content split")

	res := a.Extract(ctx, chunks, request)
	log.Info().
		Str("outcome", res.Outcome.String()).
		Int("chunks_queried", res.ChunksQueried).
		Int("result_chars", len(res.Text)).
		Msg("extraction finished")

	return a.writeArtifacts(res)
}

func (a *App) writeArtifacts(res extract.Result) error {
	out := strings.TrimSpace(a.cfg.OutputPath)
	if out == "" || out == "-" {
		if _, err := fmt.Fprintln(a.stdout, res.Text); err != nil {
			return fmt.Errorf("write result: %w", err)
		}
	} else {
		if err := os.WriteFile(out, []byte(res.Text), 0o644); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		log.Info().Str("out", out).Msg("wrote result")
	}
	if pdfPath := strings.TrimSpace(a.cfg.OutputPDFPath); pdfPath != "" {
		if err := writeResultPDF(res.Text, a.cfg.URL, a.cfg.Request, pdfPath); err != nil {
			return fmt.Errorf("write pdf: %w", err)
		}
		log.Info().Str("out", pdfPath).Msg("wrote PDF")
	}
	return nil
}
