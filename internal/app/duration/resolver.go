package duration

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/osa030/maxify/internal/domain/track"
)

// Prober measures a track's true duration in whole seconds.
type Prober interface {
	ProbeDuration(ctx context.Context, trackID string) (int, error)
}

// Config holds resolver configuration.
type Config struct {
	RatePerSec float64 // Probe rate limit; <= 0 disables limiting
	Burst      int
}

// Resolver fills in missing track durations by probing the audio.
type Resolver struct {
	cache   *Cache
	prober  Prober
	limiter *rate.Limiter
	group   singleflight.Group
}

// NewResolver creates a resolver backed by cache.
func NewResolver(cache *Cache, prober Prober, config Config) *Resolver {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if config.RatePerSec > 0 {
		burst := config.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(config.RatePerSec), burst)
	}
	return &Resolver{
		cache:   cache,
		prober:  prober,
		limiter: limiter,
	}
}

// Cache returns the underlying cache.
func (r *Resolver) Cache() *Cache {
	return r.cache
}

// Resolve returns t with its duration filled in. Tracks that already carry
// a positive duration are returned unchanged. A failed probe is logged and
// the original track is returned; nothing is cached so a later call retries.
func (r *Resolver) Resolve(ctx context.Context, t track.Track) track.Track {
	if t.HasDuration() {
		return t
	}
	if seconds, ok := r.cache.Get(t.ID); ok {
		return t.WithDuration(seconds)
	}

	v, err, _ := r.group.Do(t.ID, func() (any, error) {
		if seconds, ok := r.cache.Get(t.ID); ok {
			return seconds, nil
		}
		if err := r.limiter.Wait(ctx); err != nil {
			return 0, errors.Wrap(err, "probe rate limit")
		}
		seconds, err := r.prober.ProbeDuration(ctx, t.ID)
		if err != nil {
			return 0, err
		}
		r.cache.Set(t.ID, seconds)
		return seconds, nil
	})
	if err != nil {
		zlog.Warn().Msgf("duration: failed to resolve duration: track_id=%s err=%v", t.ID, err)
		return t
	}

	seconds := v.(int)
	if cached, ok := r.cache.Get(t.ID); ok {
		seconds = cached
	}
	zlog.Debug().Msgf("duration: resolved duration: track_id=%s seconds=%d", t.ID, seconds)
	return t.WithDuration(seconds)
}

// ResolveAll resolves every track concurrently and preserves input order.
func (r *Resolver) ResolveAll(ctx context.Context, tracks []track.Track) []track.Track {
	result := make([]track.Track, len(tracks))
	var wg sync.WaitGroup
	for i, t := range tracks {
		if t.HasDuration() {
			result[i] = t
			continue
		}
		wg.Add(1)
		go func(i int, t track.Track) {
			defer wg.Done()
			result[i] = r.Resolve(ctx, t)
		}(i, t)
	}
	wg.Wait()
	return result
}
