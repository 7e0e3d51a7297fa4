package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/goscrape/internal/app"
	"github.com/hyperifyio/goscrape/internal/chunk"
	"github.com/hyperifyio/goscrape/internal/fetch"
	"github.com/hyperifyio/goscrape/internal/llm"
)

func main() {
	// Logging setup
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	var (
		pageURL      string
		request      string
		outputPath   string
		outputPDF    string
		llmBaseURL   string
		llmModel     string
		llmKey       string
		llmTimeout   time.Duration
		fetchTimeout time.Duration
		chunkSize    int
		concurrency  int
		reduceMode   string
		noLLM        bool
		showContent  bool
		verbose      bool
		cacheDir     string
		cacheMaxAge  time.Duration
		cacheClear   bool
		cacheStrict  bool
		configPath   string
		envFiles     string
		showVersion  bool
	)

	flag.StringVar(&pageURL, "url", "", "Page to extract from (or first positional argument)")
	flag.StringVar(&request, "request", "", "What information to extract (or remaining positional arguments)")
	flag.StringVar(&outputPath, "output", app.DefaultOutputPath, "Path to write the result; '-' prints to stdout")
	flag.StringVar(&outputPDF, "output.pdf", "", "Optional path to also write the result as PDF")
	flag.StringVar(&llmBaseURL, "llm.base", app.DefaultLLMBaseURL, "OpenAI-compatible base URL")
	flag.StringVar(&llmModel, "llm.model", llm.DefaultModel, "Model name")
	flag.StringVar(&llmKey, "llm.key", "", "API key for OpenAI-compatible server")
	flag.DurationVar(&llmTimeout, "llm.timeout", llm.DefaultTimeout, "Timeout for each backend call")
	flag.DurationVar(&fetchTimeout, "fetch.timeout", fetch.DefaultTimeout, "Timeout for the page request")
	flag.IntVar(&chunkSize, "chunk.size", chunk.DefaultSize, "Maximum characters per chunk")
	flag.IntVar(&concurrency, "concurrency", 1, "Maximum chunk queries in flight")
	flag.StringVar(&reduceMode, "reduce", app.DefaultReduceMode, "Content reduction: body or readability")
	flag.BoolVar(&noLLM, "no-llm", false, "Skip the backend and use keyword extraction")
	flag.BoolVar(&showContent, "show-content", false, "Print the cleaned page text to stderr")
	flag.BoolVar(&verbose, "v", false, "Verbose logging")
	flag.StringVar(&cacheDir, "cache.dir", "", "Cache directory path; empty disables caching")
	flag.DurationVar(&cacheMaxAge, "cache.maxAge", 0, "Max age for cache entries before purge (e.g. 24h); 0 disables")
	flag.BoolVar(&cacheClear, "cache.clear", false, "Clear cache directory before run")
	flag.BoolVar(&cacheStrict, "cache.strictPerms", false, "Restrict cache permissions (0700 dirs, 0600 files)")
	flag.StringVar(&configPath, "config", "", "Optional YAML or JSON config file")
	flag.StringVar(&envFiles, "env", ".env", "Comma-separated dotenv files; later files override earlier")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Println(app.VersionString())
		return
	}

	args := flag.Args()
	if pageURL == "" && len(args) > 0 {
		pageURL, args = args[0], args[1:]
	}
	if request == "" && len(args) > 0 {
		request = strings.Join(args, " ")
	}

	if err := app.LoadEnvFiles(strings.Split(envFiles, ",")...); err != nil {
		log.Error().Err(err).Msg("load env files")
		os.Exit(1)
	}

	flagCfg := app.Config{
		URL:              pageURL,
		Request:          request,
		OutputPath:       outputPath,
		OutputPDFPath:    outputPDF,
		ShowContent:      showContent,
		LLMBaseURL:       llmBaseURL,
		LLMModel:         llmModel,
		LLMAPIKey:        llmKey,
		LLMTimeout:       llmTimeout,
		NoLLM:            noLLM,
		Concurrency:      concurrency,
		FetchTimeout:     fetchTimeout,
		ReduceMode:       reduceMode,
		ChunkSize:        chunkSize,
		CacheDir:         cacheDir,
		CacheMaxAge:      cacheMaxAge,
		CacheClear:       cacheClear,
		CacheStrictPerms: cacheStrict,
		Verbose:          verbose,
		EnvResolved:      true,
	}

	// Precedence: flags > env > file > defaults.
	cfg := flagCfg
	if strings.TrimSpace(configPath) != "" {
		fc, err := app.LoadConfigFile(configPath)
		if err != nil {
			log.Error().Err(err).Str("path", configPath).Msg("load config file")
			os.Exit(1)
		}
		app.ApplyFileConfig(&cfg, fc)
	}
	app.ApplyEnvOverrides(&cfg)
	restoreExplicitFlags(&cfg, flagCfg)

	if cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	if err := app.ValidateConfig(cfg); err != nil {
		if errors.Is(err, app.ErrEmptyRequest) {
			log.Warn().Msg(app.EmptyRequestWarning)
		} else {
			log.Error().Err(err).Msg("invalid configuration")
		}
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		log.Error().Err(err).Msg("run failed")
		// Exit code policy: 2 when the page could not be fetched, 1 otherwise.
		var ferr *fetch.Error
		if errors.As(err, &ferr) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(cfg app.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer a.Close()

	return a.Run(ctx)
}

// restoreExplicitFlags puts back every value given on the command line so it
// wins over the config file and the environment.
func restoreExplicitFlags(cfg *app.Config, flags app.Config) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "url":
			cfg.URL = flags.URL
		case "request":
			cfg.Request = flags.Request
		case "output":
			cfg.OutputPath = flags.OutputPath
		case "output.pdf":
			cfg.OutputPDFPath = flags.OutputPDFPath
		case "llm.base":
			cfg.LLMBaseURL = flags.LLMBaseURL
		case "llm.model":
			cfg.LLMModel = flags.LLMModel
		case "llm.key":
			cfg.LLMAPIKey = flags.LLMAPIKey
		case "llm.timeout":
			cfg.LLMTimeout = flags.LLMTimeout
		case "fetch.timeout":
			cfg.FetchTimeout = flags.FetchTimeout
		case "chunk.size":
			cfg.ChunkSize = flags.ChunkSize
		case "concurrency":
			cfg.Concurrency = flags.Concurrency
		case "reduce":
			cfg.ReduceMode = flags.ReduceMode
		case "no-llm":
			cfg.NoLLM = flags.NoLLM
		case "show-content":
			cfg.ShowContent = flags.ShowContent
		case "v":
			cfg.Verbose = flags.Verbose
		case "cache.dir":
			cfg.CacheDir = flags.CacheDir
		case "cache.maxAge":
			cfg.CacheMaxAge = flags.CacheMaxAge
		case "cache.clear":
			cfg.CacheClear = flags.CacheClear
		case "cache.strictPerms":
			cfg.CacheStrictPerms = flags.CacheStrictPerms
		}
	})
}
