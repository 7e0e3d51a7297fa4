package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvToConfig populates unset fields of cfg from environment variables.
// Explicit cfg values take precedence over env.
func ApplyEnvToConfig(cfg *Config) {
	if cfg == nil {
		return
	}

	if cfg.LLMBaseURL == "" {
		cfg.LLMBaseURL = os.Getenv("LLM_BASE_URL")
	}
	if cfg.LLMModel == "" {
		cfg.LLMModel = os.Getenv("LLM_MODEL")
	}
	if cfg.LLMAPIKey == "" {
		cfg.LLMAPIKey = os.Getenv("LLM_API_KEY")
	}
	if cfg.CacheDir == "" {
		cfg.CacheDir = os.Getenv("CACHE_DIR")
	}
	if cfg.ReduceMode == "" {
		cfg.ReduceMode = strings.TrimSpace(os.Getenv("REDUCE_MODE"))
	}

	if cfg.ChunkSize == 0 {
		setInt(&cfg.ChunkSize, "CHUNK_SIZE")
	}
	if cfg.Concurrency == 0 {
		setInt(&cfg.Concurrency, "EXTRACT_CONCURRENCY")
	}

	// Optional durations
	if cfg.LLMTimeout == 0 {
		setDuration(&cfg.LLMTimeout, "LLM_TIMEOUT")
	}
	if cfg.FetchTimeout == 0 {
		setDuration(&cfg.FetchTimeout, "FETCH_TIMEOUT")
	}
	if cfg.CacheMaxAge == 0 {
		setDuration(&cfg.CacheMaxAge, "CACHE_MAX_AGE")
	}

	// Booleans only switch on here
	setTrue := func(dst *bool, envKey string) {
		if *dst {
			return
		}
		if v, ok := parseBool(os.Getenv(envKey)); ok && v {
			*dst = true
		}
	}
	setTrue(&cfg.NoLLM, "NO_LLM")
	setTrue(&cfg.Verbose, "VERBOSE")
	setTrue(&cfg.CacheClear, "CACHE_CLEAR")
	setTrue(&cfg.CacheStrictPerms, "CACHE_STRICT_PERMS")
}

// ApplyEnvOverrides forcefully overrides cfg fields with environment variables
// when the corresponding env vars are set. This lets env take precedence over
// values coming from a config file while flags remain highest precedence.
func ApplyEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}

	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		cfg.LLMBaseURL = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLMModel = v
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		cfg.LLMAPIKey = v
	}
	if v := os.Getenv("CACHE_DIR"); v != "" {
		cfg.CacheDir = v
	}
	if v := strings.TrimSpace(os.Getenv("REDUCE_MODE")); v != "" {
		cfg.ReduceMode = v
	}

	setInt(&cfg.ChunkSize, "CHUNK_SIZE")
	setInt(&cfg.Concurrency, "EXTRACT_CONCURRENCY")
	setDuration(&cfg.LLMTimeout, "LLM_TIMEOUT")
	setDuration(&cfg.FetchTimeout, "FETCH_TIMEOUT")
	setDuration(&cfg.CacheMaxAge, "CACHE_MAX_AGE")

	// Booleans override when env present and truthy/falsey
	setBool := func(dst *bool, envKey string) {
		if v, ok := parseBool(os.Getenv(envKey)); ok {
			*dst = v
		}
	}
	setBool(&cfg.NoLLM, "NO_LLM")
	setBool(&cfg.Verbose, "VERBOSE")
	setBool(&cfg.CacheClear, "CACHE_CLEAR")
	setBool(&cfg.CacheStrictPerms, "CACHE_STRICT_PERMS")
}

func setInt(dst *int, envKey string) {
	if s := strings.TrimSpace(os.Getenv(envKey)); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			*dst = n
		}
	}
}

func setDuration(dst *time.Duration, envKey string) {
	if s := strings.TrimSpace(os.Getenv(envKey)); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			*dst = d
		}
	}
}

func parseBool(s string) (value bool, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true, true
	case "0", "false", "no", "off":
		return false, true
	}
	return false, false
}
