package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LLMCache stores backend responses keyed by a digest of model name and prompt,
// so repeated extractions over an unchanged page skip the backend entirely.
type LLMCache struct {
	Dir string
	// StrictPerms enforces 0700 on the directory and 0600 on entries.
	StrictPerms bool
}

type responseEntry struct {
	Model    string    `json:"model"`
	Response string    `json:"response"`
	SavedAt  time.Time `json:"saved_at"`
}

func (c *LLMCache) ensureDir() error {
	if c == nil {
		return errNotConfigured
	}
	return ensureDir(c.Dir, c.StrictPerms)
}

// KeyFrom builds a cache key from model and prompt digest.
func KeyFrom(model string, prompt string) string {
	h := sha256.Sum256([]byte(model + "\n\n" + prompt))
	return hex.EncodeToString(h[:])
}

func (c *LLMCache) pathFor(key string) string {
	return filepath.Join(c.Dir, key+".json")
}

// Get returns cached bytes if present. A miss is not an error.
func (c *LLMCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	if err := c.ensureDir(); err != nil {
		return nil, false, err
	}
	p := c.pathFor(key)
	b, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	// Touch mtime so age-based purges keep recently used entries
	now := time.Now()
	_ = os.Chtimes(p, now, now)
	return b, true, nil
}

// Save writes bytes to cache.
func (c *LLMCache) Save(_ context.Context, key string, data []byte) error {
	if err := c.ensureDir(); err != nil {
		return err
	}
	return writeFileAtomic(c.pathFor(key), data, c.StrictPerms)
}

// GetResponse returns the cached response text for model and prompt.
// Empty or malformed entries count as misses.
func (c *LLMCache) GetResponse(ctx context.Context, model, prompt string) (string, bool) {
	raw, ok, err := c.Get(ctx, KeyFrom(model, prompt))
	if err != nil || !ok {
		return "", false
	}
	var e responseEntry
	if err := json.Unmarshal(raw, &e); err != nil || strings.TrimSpace(e.Response) == "" {
		return "", false
	}
	return e.Response, true
}

// SaveResponse stores response text for model and prompt.
func (c *LLMCache) SaveResponse(ctx context.Context, model, prompt, response string) error {
	b, err := json.Marshal(responseEntry{Model: model, Response: response, SavedAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	return c.Save(ctx, KeyFrom(model, prompt), b)
}
