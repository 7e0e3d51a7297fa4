package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Page is one fetched page as kept on disk. Body lives in its own file; the
// rest is the JSON sidecar used for revalidation and age-based purges.
type Page struct {
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	// Charset is the encoding the body was identified as when it was stored,
	// so a revalidated copy decodes the same way without sniffing again.
	Charset      string    `json:"charset,omitempty"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	SavedAt      time.Time `json:"saved_at"`
	Body         []byte    `json:"-"`
}

// Revalidatable reports whether the page carries a validator worth sending.
func (p *Page) Revalidatable() bool {
	return p != nil && (p.ETag != "" || p.LastModified != "")
}

// PageCache keeps raw page bodies keyed by sha256(url) as <key>.body plus a
// <key>.meta.json sidecar. Nothing is evicted here; see PurgePageCacheByAge.
type PageCache struct {
	Dir string
	// StrictPerms enforces 0700 on the directory and 0600 on entries.
	StrictPerms bool
}

func pageKey(url string) string {
	h := sha256.Sum256([]byte(url))
	return hex.EncodeToString(h[:])
}

func (c *PageCache) paths(url string) (meta, body string) {
	base := filepath.Join(c.Dir, pageKey(url))
	return base + ".meta.json", base + ".body"
}

func (c *PageCache) ensureDir() error {
	if c == nil {
		return errNotConfigured
	}
	return ensureDir(c.Dir, c.StrictPerms)
}

// Lookup returns the stored page for url. A page whose body or sidecar is
// missing counts as absent and yields an error wrapping os.ErrNotExist.
func (c *PageCache) Lookup(_ context.Context, url string) (*Page, error) {
	if err := c.ensureDir(); err != nil {
		return nil, err
	}
	metaPath, bodyPath := c.paths(url)
	raw, err := os.ReadFile(metaPath)
	if err != nil {
		return nil, err
	}
	var p Page
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("page meta %s: %w", filepath.Base(metaPath), err)
	}
	if p.Body, err = os.ReadFile(bodyPath); err != nil {
		return nil, err
	}
	return &p, nil
}

// Store writes the body first and then swaps in the sidecar, so Lookup never
// pairs new validators with a stale or missing body.
func (c *PageCache) Store(_ context.Context, p *Page) error {
	if p == nil || p.URL == "" {
		return errors.New("page cache: url is required")
	}
	if err := c.ensureDir(); err != nil {
		return err
	}
	metaPath, bodyPath := c.paths(p.URL)
	if err := writeFileAtomic(bodyPath, p.Body, c.StrictPerms); err != nil {
		return fmt.Errorf("write body: %w", err)
	}
	entry := *p
	if entry.SavedAt.IsZero() {
		entry.SavedAt = time.Now().UTC()
	}
	raw, err := json.Marshal(&entry)
	if err != nil {
		return fmt.Errorf("encode meta: %w", err)
	}
	if err := writeFileAtomic(metaPath, raw, c.StrictPerms); err != nil {
		return fmt.Errorf("write meta: %w", err)
	}
	return nil
}
