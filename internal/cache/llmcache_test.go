package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLLMCache_SaveGet(t *testing.T) {
	c := &LLMCache{Dir: t.TempDir()}
	key := KeyFrom("llama2", "prompt")
	data := []byte(`{"response":"a"}`)
	if err := c.Save(context.Background(), key, data); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, ok, err := c.Get(context.Background(), key)
	if err != nil || !ok {
		t.Fatalf("get: %v ok=%v", err, ok)
	}
	if string(got) != string(data) {
		t.Fatalf("mismatch: %q", got)
	}
}

func TestLLMCache_MissIsNotError(t *testing.T) {
	c := &LLMCache{Dir: t.TempDir()}
	_, ok, err := c.Get(context.Background(), KeyFrom("m", "absent"))
	if err != nil || ok {
		t.Fatalf("expected clean miss, got ok=%v err=%v", ok, err)
	}
}

func TestLLMCache_ResponseRoundTrip(t *testing.T) {
	c := &LLMCache{Dir: t.TempDir()}
	ctx := context.Background()
	if err := c.SaveResponse(ctx, "llama2", "p1", "Prices: 20 dollars"); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, ok := c.GetResponse(ctx, "llama2", "p1")
	if !ok || got != "Prices: 20 dollars" {
		t.Fatalf("unexpected %q ok=%v", got, ok)
	}
	if _, ok := c.GetResponse(ctx, "mistral", "p1"); ok {
		t.Fatalf("model must be part of the key")
	}
}

func TestLLMCache_StrictPerms(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "responses")
	c := &LLMCache{Dir: dir, StrictPerms: true}
	if err := c.SaveResponse(context.Background(), "m", "p", "r"); err != nil {
		t.Fatalf("save: %v", err)
	}
	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode()&0o777 != 0o700 {
		t.Fatalf("expected 0700 dir, got %o", info.Mode()&0o777)
	}
	fi, err := os.Stat(filepath.Join(dir, KeyFrom("m", "p")+".json"))
	if err != nil {
		t.Fatalf("stat entry: %v", err)
	}
	if fi.Mode()&0o777 != 0o600 {
		t.Fatalf("expected 0600 file, got %o", fi.Mode()&0o777)
	}
}

func TestPurgeLLMCacheByAge(t *testing.T) {
	dir := t.TempDir()
	c := &LLMCache{Dir: dir}
	ctx := context.Background()
	_ = c.SaveResponse(ctx, "m", "old", "x")
	_ = c.SaveResponse(ctx, "m", "new", "y")
	old := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(filepath.Join(dir, KeyFrom("m", "old")+".json"), old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	removed, err := PurgeLLMCacheByAge(dir, 24*time.Hour)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	if _, ok := c.GetResponse(ctx, "m", "new"); !ok {
		t.Fatalf("fresh entry should survive")
	}
}
