// Command openai-stub is a deterministic OpenAI-compatible server for local
// runs of goscrape without a model. Chunk queries are answered with the
// sentences that mention a request keyword, or the no-information sentinel;
// synthesis queries echo the combined input under a short heading.
package main

import (
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const sentinel = "No relevant information found in this chunk."

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	model := os.Getenv("MODEL_ID")
	if strings.TrimSpace(model) == "" {
		model = "llama2"
	}
	addr := os.Getenv("ADDR")
	if strings.TrimSpace(addr) == "" {
		addr = ":8081"
	}

	log.Info().Str("addr", addr).Str("model", model).Msg("openai-stub listening")
	if err := http.ListenAndServe(addr, newMux(model)); err != nil {
		log.Fatal().Err(err).Msg("serve")
	}
}

func newMux(model string) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   []map[string]any{{"id": model, "object": "model"}},
		})
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Messages) == 0 {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		prompt := req.Messages[len(req.Messages)-1].Content
		content, ok := answer(prompt)
		if !ok {
			http.Error(w, "unexpected prompt", http.StatusBadRequest)
			return
		}
		log.Debug().Str("model", req.Model).Int("prompt_len", len(prompt)).Int("answer_len", len(content)).Msg("chat completion")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "chat.completion",
			"model":  req.Model,
			"choices": []map[string]any{
				{"index": 0, "finish_reason": "stop", "message": map[string]string{"role": "assistant", "content": content}},
			},
		})
	})
	return mux
}

// answer implements the two prompt shapes goscrape sends.
func answer(prompt string) (string, bool) {
	request := section(prompt, "USER REQUEST: ", "\n")
	if body := section(prompt, "EXTRACTED CONTENT:\n", "\n\nCreate a final"); body != "" {
		return "Summary for: " + request + "\n\n" + body, true
	}
	_, rest, found := strings.Cut(prompt, "WEBSITE CONTENT (CHUNK ")
	if !found {
		return "", false
	}
	_, chunk, _ := strings.Cut(rest, "):\n")
	chunk, _, _ = strings.Cut(chunk, "\n\nBased ONLY")

	kws := keywords(request)
	var hits []string
	for _, s := range strings.Split(chunk, ".") {
		s = strings.TrimSpace(s)
		lower := strings.ToLower(s)
		for _, kw := range kws {
			if strings.Contains(lower, kw) {
				hits = append(hits, s)
				break
			}
		}
	}
	if len(hits) == 0 {
		return sentinel, true
	}
	return strings.Join(hits, "\n"), true
}

func section(s, start, end string) string {
	_, rest, ok := strings.Cut(s, start)
	if !ok {
		return ""
	}
	out, _, _ := strings.Cut(rest, end)
	return strings.TrimSpace(out)
}

func keywords(request string) []string {
	var out []string
	for _, tok := range strings.Fields(strings.ToLower(request)) {
		tok = strings.Trim(tok, ".,;:!?\"'()")
		if len(tok) <= 3 {
			continue
		}
		if stem := strings.TrimSuffix(tok, "s"); len(stem) > 3 {
			tok = stem
		}
		out = append(out, tok)
	}
	return out
}
