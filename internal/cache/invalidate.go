package cache

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Subdirectories of the cache root.
const (
	PageSubdir     = "pages"
	ResponseSubdir = "responses"
)

// Layout returns the page and response caches rooted at dir.
func Layout(dir string, strictPerms bool) (*PageCache, *LLMCache) {
	return &PageCache{Dir: filepath.Join(dir, PageSubdir), StrictPerms: strictPerms},
		&LLMCache{Dir: filepath.Join(dir, ResponseSubdir), StrictPerms: strictPerms}
}

// ClearDir removes the directory and all contents, then recreates it empty.
func ClearDir(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return errors.New("empty dir")
	}
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	return os.MkdirAll(dir, 0o755)
}

// PurgePageCacheByAge removes page entries whose SavedAt is older than maxAge,
// deleting both <key>.meta.json and <key>.body.
func PurgePageCacheByAge(dir string, maxAge time.Duration) (int, error) {
	if maxAge <= 0 {
		return 0, nil
	}
	now := time.Now().UTC()
	removed := 0
	err := walkFiles(dir, func(path string, d fs.DirEntry) {
		if !strings.HasSuffix(d.Name(), ".meta.json") {
			return
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return
		}
		var e Page
		if err := json.Unmarshal(b, &e); err != nil {
			return
		}
		if now.Sub(e.SavedAt) <= maxAge {
			return
		}
		removed++
		_ = os.Remove(path)
		_ = os.Remove(strings.TrimSuffix(path, ".meta.json") + ".body")
	})
	return removed, err
}

// PurgeLLMCacheByAge removes response entries whose mtime is older than maxAge.
// Reads refresh mtime, so this behaves like a coarse LRU.
func PurgeLLMCacheByAge(dir string, maxAge time.Duration) (int, error) {
	if maxAge <= 0 {
		return 0, nil
	}
	now := time.Now().UTC()
	removed := 0
	err := walkFiles(dir, func(path string, d fs.DirEntry) {
		if !strings.HasSuffix(d.Name(), ".json") {
			return
		}
		info, err := d.Info()
		if err != nil || now.Sub(info.ModTime().UTC()) <= maxAge {
			return
		}
		removed++
		_ = os.Remove(path)
	})
	return removed, err
}

// walkFiles visits regular files under dir. A missing dir is not an error.
func walkFiles(dir string, visit func(path string, d fs.DirEntry)) error {
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			visit(path, d)
		}
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
