package budget

import (
	"math"
	"strings"
)

// EstimateTokensFromChars converts a character count into an estimated token
// count using a conservative heuristic (~4 chars per token in English). The
// result is always at least 1 when chars > 0.
func EstimateTokensFromChars(charCount int) int {
	if charCount <= 0 {
		return 0
	}
	return int(math.Ceil(float64(charCount) / 4.0))
}

// EstimateTokens returns the heuristic token count of a string.
func EstimateTokens(s string) int {
	return EstimateTokensFromChars(len(s))
}

// ModelContextTokens returns an estimated context window for a model name.
// Ollama tags such as "llama2:13b" are matched on the family name.
func ModelContextTokens(modelName string) int {
	name := strings.ToLower(strings.TrimSpace(modelName))
	if name == "" {
		return 4096
	}
	if v, ok := knownModelMax[name]; ok {
		return v
	}
	if i := strings.IndexByte(name, ':'); i > 0 {
		if v, ok := knownModelMax[name[:i]]; ok {
			return v
		}
	}
	switch {
	case strings.HasSuffix(name, "128k"):
		return 128_000
	case strings.HasSuffix(name, "32k"):
		return 32_768
	case strings.Contains(name, "-mini"):
		return 128_000
	}
	return 4096
}

// HeadroomTokens is the safety margin kept free for message framing and
// tokenizer drift: the larger of 5% of the context or 256 tokens.
func HeadroomTokens(modelName string) int {
	dyn := int(math.Ceil(float64(ModelContextTokens(modelName)) * 0.05))
	if dyn < 256 {
		return 256
	}
	return dyn
}

// RemainingContext computes the input budget left after reserving output
// tokens and headroom. The result is never negative.
func RemainingContext(modelName string, reservedForOutput int, promptTokens int) int {
	if reservedForOutput < 0 {
		reservedForOutput = 0
	}
	remaining := ModelContextTokens(modelName) - HeadroomTokens(modelName) - reservedForOutput - promptTokens
	if remaining < 0 {
		return 0
	}
	return remaining
}

// FitsInContext reports whether a prompt leaves room for the reserved output.
func FitsInContext(modelName string, reservedForOutput int, promptTokens int) bool {
	return RemainingContext(modelName, reservedForOutput, promptTokens) > 0
}

var knownModelMax = map[string]int{
	// Ollama defaults
	"llama2":    4_096,
	"llama3":    8_192,
	"llama3.1":  128_000,
	"llama3.2":  128_000,
	"mistral":   32_768,
	"mixtral":   32_768,
	"gemma":     8_192,
	"gemma2":    8_192,
	"phi3":      4_096,
	"qwen2.5":   32_768,

	// OpenAI family (approximate)
	"gpt-4o":        128_000,
	"gpt-4o-mini":   128_000,
	"gpt-4-turbo":   128_000,
	"gpt-3.5-turbo": 16_384,
}
