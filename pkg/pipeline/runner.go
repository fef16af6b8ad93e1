package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/wafermap/pkg/cache"
	apperr "github.com/matzehuels/wafermap/pkg/errors"
	"github.com/matzehuels/wafermap/pkg/observability"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and API can use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs the route → allocate → synapses pipeline with caching.
func (r *Runner) Execute(ctx context.Context, p *Problem, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	hooks := observability.Cache()
	key := r.Keyer.ResultKey(p.Hash(), opts.ResultKeyOpts())

	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			var cached Result
			if err := json.Unmarshal(data, &cached); err == nil {
				hooks.OnCacheHit(ctx, "result")
				cached.RunID = uuid.NewString()
				cached.CacheInfo = CacheInfo{ResultHit: true}
				r.Logger.Info("loaded cached result", "problem", cached.ProblemHash)
				return &cached, nil
			}
			// Undecodable entries are recomputed and overwritten.
		} else if err != nil {
			r.Logger.Debug("cache read failed", "error", err)
		}
		hooks.OnCacheMiss(ctx, "result")
	}

	res, err := Run(ctx, p, opts)
	if err != nil {
		return nil, err
	}
	res.RunID = uuid.NewString()

	if res.Routing != nil {
		r.Logger.Info("routed",
			"reached", res.Stats.Reached,
			"targets", res.Stats.Targets,
			"switches", res.Stats.Switches,
			"duration", res.Stats.RouteTime)
	}
	if len(res.Drivers) > 0 {
		r.Logger.Info("allocated drivers",
			"assigned", res.Stats.DriversAssigned,
			"rejected", res.Stats.LinesRejected,
			"duration", res.Stats.AllocateTime)
	}
	if len(res.Synapses) > 0 {
		r.Logger.Info("assigned synapses",
			"granted", res.Stats.SynapsesGranted,
			"duration", res.Stats.SynapseTime)
	}

	if data, err := json.Marshal(res); err == nil {
		if err := r.Cache.Set(ctx, key, data, cache.TTLResult); err != nil {
			r.Logger.Debug("cache write failed", "error", err)
		} else {
			hooks.OnCacheSet(ctx, "result", len(data))
		}
	}
	return res, nil
}

// RenderWithCacheInfo draws the routed tree of a result in every requested
// format and reports whether all artifacts came from the cache.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, p *Problem, res *Result, opts Options) (map[string][]byte, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForRender(); err != nil {
		return nil, false, err
	}
	if res.Routing == nil {
		return nil, false, apperr.New(apperr.ErrCodeRenderFailed, "result has no routing")
	}

	// Compute cache key from the routing result
	routingData, err := json.Marshal(res.Routing)
	if err != nil {
		return nil, false, fmt.Errorf("serialize routing for cache key: %w", err)
	}
	cacheKeyHash := cache.Hash(append([]byte(p.Hash()), routingData...))
	hooks := observability.Cache()

	// Try to get all formats from cache
	artifacts := make(map[string][]byte, len(opts.Formats))
	if !opts.Refresh {
		for _, format := range opts.Formats {
			cacheKey := r.Keyer.ArtifactKey(cacheKeyHash, opts.ArtifactKeyOpts(format))
			data, hit, err := r.Cache.Get(ctx, cacheKey)
			if err != nil || !hit {
				break
			}
			artifacts[format] = data
		}
		if len(artifacts) == len(opts.Formats) {
			hooks.OnCacheHit(ctx, "artifact")
			return artifacts, true, nil
		}
		hooks.OnCacheMiss(ctx, "artifact")
	}

	pipelineHooks := observability.Pipeline()
	start := time.Now()
	pipelineHooks.OnRenderStart(ctx, opts.Formats)
	rendered, err := Render(ctx, p, res, opts)
	pipelineHooks.OnRenderComplete(ctx, opts.Formats, time.Since(start), err)
	if err != nil {
		return nil, false, err
	}

	for format, data := range rendered {
		cacheKey := r.Keyer.ArtifactKey(cacheKeyHash, opts.ArtifactKeyOpts(format))
		if err := r.Cache.Set(ctx, cacheKey, data, cache.TTLArtifact); err == nil {
			hooks.OnCacheSet(ctx, "artifact", len(data))
		}
	}
	r.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"duration", time.Since(start))
	return rendered, false, nil
}

// Render is a convenience wrapper that calls RenderWithCacheInfo and discards the cache hit info.
func (r *Runner) Render(ctx context.Context, p *Problem, res *Result, opts Options) (map[string][]byte, error) {
	artifacts, _, err := r.RenderWithCacheInfo(ctx, p, res, opts)
	return artifacts, err
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
