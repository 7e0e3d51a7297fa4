package reduce

import (
	"fmt"
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
	"github.com/rs/zerolog/log"
)

// Reducer turns a fetched page into clean text. Implementations must be
// deterministic and must not fail on malformed markup.
type Reducer interface {
	Reduce(markup string, pageURL string) string
}

// Modes accepted by ForMode.
const (
	ModeBody        = "body"
	ModeReadability = "readability"
)

// BodyReducer keeps the whole body minus scripts and styles.
type BodyReducer struct{}

func (BodyReducer) Reduce(markup string, _ string) string {
	return Clean(ReduceToBody(markup))
}

// ReadabilityReducer keeps only the main article as scored by readability,
// and falls back to the whole body when no article can be isolated.
type ReadabilityReducer struct{}

func (ReadabilityReducer) Reduce(markup string, pageURL string) string {
	u, _ := url.Parse(pageURL)
	article, err := readability.FromReader(strings.NewReader(markup), u)
	if err != nil || strings.TrimSpace(article.Content) == "" {
		if err != nil {
			log.Debug().Err(err).Str("url", pageURL).Msg("readability failed; using full body")
		}
		return BodyReducer{}.Reduce(markup, pageURL)
	}
	text := Clean(ReduceToBody(article.Content))
	if text == "" {
		return BodyReducer{}.Reduce(markup, pageURL)
	}
	return text
}

// ForMode returns the reducer for a configured mode. Empty means body.
func ForMode(mode string) (Reducer, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", ModeBody:
		return BodyReducer{}, nil
	case ModeReadability:
		return ReadabilityReducer{}, nil
	default:
		return nil, fmt.Errorf("unknown reduce mode %q", mode)
	}
}
