package app

import "time"

// Config holds runtime configuration for the application.
type Config struct {
	// Page and request
	URL     string
	Request string

	// Artifacts. OutputPath "-" writes the result to stdout.
	OutputPath    string
	OutputPDFPath string
	ShowContent   bool

	// LLM
	LLMBaseURL  string
	LLMModel    string
	LLMAPIKey   string
	LLMTimeout  time.Duration
	NoLLM       bool
	Concurrency int

	// Fetch / reduce / chunk
	FetchTimeout time.Duration
	ReduceMode   string
	ChunkSize    int

	// Behavior
	CacheDir         string
	CacheMaxAge      time.Duration
	CacheClear       bool
	CacheStrictPerms bool
	Verbose          bool

	// EnvResolved marks a Config whose environment overrides were already
	// applied, as the CLI does with its own precedence. Otherwise New fills
	// unset fields from the environment.
	EnvResolved bool
}

// Defaults shared by the CLI flags and the file-config overlay. A field equal
// to its default counts as unset when a config file is applied.
const (
	DefaultOutputPath = "extracted_data.txt"
	DefaultLLMBaseURL = "http://localhost:11434/v1"
	DefaultReduceMode = "body"
)
