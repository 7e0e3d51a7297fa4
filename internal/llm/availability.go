package llm

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Availability decides once per extraction whether the backend path is tried.
type Availability interface {
	Available(ctx context.Context) bool
}

// NoBackend is used when extraction must stay offline.
type NoBackend struct{}

func (NoBackend) Available(context.Context) bool { return false }

// LiveBackend probes the server by listing its models.
type LiveBackend struct {
	Lister ModelLister
	// Timeout bounds the probe. Zero means 5s.
	Timeout time.Duration
}

func (b LiveBackend) Available(ctx context.Context) bool {
	if b.Lister == nil {
		return false
	}
	timeout := b.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	models, err := b.Lister.ListModels(ctx)
	if err != nil {
		log.Debug().Err(err).Msg("backend probe failed")
		return false
	}
	log.Debug().Int("models", len(models.Models)).Msg("backend reachable")
	return true
}
