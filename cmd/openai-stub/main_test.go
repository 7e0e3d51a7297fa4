package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestAnswer_ChunkMatchesKeywords(t *testing.T) {
	prompt := "You are an AI web scraper assistant.\n\nUSER REQUEST: Extract prices\n\nWEBSITE CONTENT (CHUNK 1/1):\nWelcome. The price is 20 dollars. Contact us\n\nBased ONLY on the content above, extract the information requested."
	got, ok := answer(prompt)
	if !ok || got != "The price is 20 dollars" {
		t.Fatalf("unexpected answer %q (ok=%v)", got, ok)
	}
}

func TestAnswer_ChunkWithoutMatchReturnsSentinel(t *testing.T) {
	prompt := "USER REQUEST: Find emails\n\nWEBSITE CONTENT (CHUNK 2/3):\nNothing here\n\nBased ONLY on the content above"
	got, ok := answer(prompt)
	if !ok || got != sentinel {
		t.Fatalf("expected sentinel, got %q", got)
	}
}

func TestAnswer_SynthesisEchoesContent(t *testing.T) {
	prompt := "USER REQUEST: Extract prices\n\nEXTRACTED CONTENT:\nA\n\nB\n\nCreate a final, clean, well-formatted summary."
	got, ok := answer(prompt)
	if !ok || !strings.Contains(got, "Summary for: Extract prices") || !strings.Contains(got, "A\n\nB") {
		t.Fatalf("unexpected synthesis %q", got)
	}
}

func TestMux_ChatCompletionShape(t *testing.T) {
	srv := httptest.NewServer(newMux("llama2"))
	defer srv.Close()

	body, _ := json.Marshal(map[string]any{
		"model":    "llama2",
		"messages": []map[string]string{{"role": "user", "content": "USER REQUEST: x\n\nEXTRACTED CONTENT:\nhello\n\nCreate a final"}},
	})
	resp, err := http.Post(srv.URL+"/v1/chat/completions", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Choices) != 1 || !strings.Contains(out.Choices[0].Message.Content, "hello") {
		t.Fatalf("unexpected response %+v", out)
	}

	bad, err := http.Post(srv.URL+"/v1/chat/completions", "application/json", strings.NewReader(`{"messages":[{"role":"user","content":"hi"}]}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	bad.Body.Close()
	if bad.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown prompt, got %d", bad.StatusCode)
	}
}
