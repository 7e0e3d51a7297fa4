package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"

	"github.com/hyperifyio/goscrape/internal/chunk"
	"github.com/hyperifyio/goscrape/internal/fetch"
	"github.com/hyperifyio/goscrape/internal/llm"
	"github.com/hyperifyio/goscrape/internal/reduce"
)

var (
	// ErrEmptyRequest is returned when the information request is blank.
	ErrEmptyRequest = errors.New("please describe what information you want to extract")
	// ErrEmptyURL is returned when no page URL was given.
	ErrEmptyURL = errors.New("config: url is required")
)

// FileConfig represents the single-file configuration schema.
// Nested sections map naturally to flags/env.
type FileConfig struct {
	URL       string `yaml:"url" json:"url"`
	Request   string `yaml:"request" json:"request"`
	Output    string `yaml:"output" json:"output"`
	OutputPDF string `yaml:"outputPDF" json:"outputPDF"`

	LLM struct {
		BaseURL     string        `yaml:"base" json:"base"`
		Model       string        `yaml:"model" json:"model"`
		APIKey      string        `yaml:"key" json:"key"`
		Timeout     time.Duration `yaml:"timeout" json:"timeout"`
		Concurrency int           `yaml:"concurrency" json:"concurrency"`
		Disable     bool          `yaml:"disable" json:"disable"`
	} `yaml:"llm" json:"llm"`

	Fetch struct {
		Timeout time.Duration `yaml:"timeout" json:"timeout"`
	} `yaml:"fetch" json:"fetch"`

	Reduce struct {
		Mode string `yaml:"mode" json:"mode"`
	} `yaml:"reduce" json:"reduce"`

	Chunk struct {
		Size int `yaml:"size" json:"size"`
	} `yaml:"chunk" json:"chunk"`

	Verbose bool `yaml:"verbose" json:"verbose"`

	Cache struct {
		Dir         string        `yaml:"dir" json:"dir"`
		MaxAge      time.Duration `yaml:"maxAge" json:"maxAge"`
		Clear       bool          `yaml:"clear" json:"clear"`
		StrictPerms bool          `yaml:"strictPerms" json:"strictPerms"`
	} `yaml:"cache" json:"cache"`
}

// LoadConfigFile reads YAML or JSON into FileConfig.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	default:
		// Try YAML then JSON
		if err := yaml.Unmarshal(b, &fc); err != nil {
			if jerr := json.Unmarshal(b, &fc); jerr != nil {
				return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
			}
		}
	}
	return fc, nil
}

// ApplyFileConfig overlays values from FileConfig into cfg for any fields that
// are currently unset or still at their flag default.
func ApplyFileConfig(cfg *Config, fc FileConfig) {
	if cfg == nil {
		return
	}

	if cfg.URL == "" && fc.URL != "" {
		cfg.URL = fc.URL
	}
	if cfg.Request == "" && fc.Request != "" {
		cfg.Request = fc.Request
	}
	if (cfg.OutputPath == "" || cfg.OutputPath == DefaultOutputPath) && fc.Output != "" {
		cfg.OutputPath = fc.Output
	}
	if cfg.OutputPDFPath == "" && fc.OutputPDF != "" {
		cfg.OutputPDFPath = fc.OutputPDF
	}

	if (cfg.LLMBaseURL == "" || cfg.LLMBaseURL == DefaultLLMBaseURL) && fc.LLM.BaseURL != "" {
		cfg.LLMBaseURL = fc.LLM.BaseURL
	}
	if (cfg.LLMModel == "" || cfg.LLMModel == llm.DefaultModel) && fc.LLM.Model != "" {
		cfg.LLMModel = fc.LLM.Model
	}
	if cfg.LLMAPIKey == "" && fc.LLM.APIKey != "" {
		cfg.LLMAPIKey = fc.LLM.APIKey
	}
	if (cfg.LLMTimeout == 0 || cfg.LLMTimeout == llm.DefaultTimeout) && fc.LLM.Timeout > 0 {
		cfg.LLMTimeout = fc.LLM.Timeout
	}
	if cfg.Concurrency <= 1 && fc.LLM.Concurrency > 0 {
		cfg.Concurrency = fc.LLM.Concurrency
	}
	if !cfg.NoLLM && fc.LLM.Disable {
		cfg.NoLLM = true
	}

	if (cfg.FetchTimeout == 0 || cfg.FetchTimeout == fetch.DefaultTimeout) && fc.Fetch.Timeout > 0 {
		cfg.FetchTimeout = fc.Fetch.Timeout
	}
	if (cfg.ReduceMode == "" || cfg.ReduceMode == DefaultReduceMode) && fc.Reduce.Mode != "" {
		cfg.ReduceMode = fc.Reduce.Mode
	}
	if (cfg.ChunkSize == 0 || cfg.ChunkSize == chunk.DefaultSize) && fc.Chunk.Size > 0 {
		cfg.ChunkSize = fc.Chunk.Size
	}
	if !cfg.Verbose && fc.Verbose {
		cfg.Verbose = true
	}

	if cfg.CacheDir == "" && fc.Cache.Dir != "" {
		cfg.CacheDir = fc.Cache.Dir
	}
	if cfg.CacheMaxAge == 0 && fc.Cache.MaxAge > 0 {
		cfg.CacheMaxAge = fc.Cache.MaxAge
	}
	if !cfg.CacheClear && fc.Cache.Clear {
		cfg.CacheClear = true
	}
	if !cfg.CacheStrictPerms && fc.Cache.StrictPerms {
		cfg.CacheStrictPerms = true
	}
}

// ValidateConfig performs minimal schema validation for required settings.
func ValidateConfig(cfg Config) error {
	if strings.TrimSpace(cfg.URL) == "" {
		return ErrEmptyURL
	}
	if strings.TrimSpace(cfg.Request) == "" {
		return ErrEmptyRequest
	}
	if cfg.ChunkSize <= 0 {
		return fmt.Errorf("config: chunk size must be positive: %w", chunk.ErrInvalidSize)
	}
	if cfg.FetchTimeout < 0 || cfg.LLMTimeout < 0 || cfg.CacheMaxAge < 0 {
		return errors.New("config: negative durations are not allowed")
	}
	if cfg.Concurrency < 0 {
		return errors.New("config: negative concurrency is not allowed")
	}
	if cfg.ReduceMode != "" {
		if _, err := reduce.ForMode(cfg.ReduceMode); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}
	return nil
}
