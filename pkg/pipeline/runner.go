package pipeline

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/conf2dot/pkg/cache"
	"github.com/matzehuels/conf2dot/pkg/errors"
	"github.com/matzehuels/conf2dot/pkg/observability"
	"github.com/matzehuels/conf2dot/pkg/render/nodelink"
)

// RendererFactory creates the image renderer for an engine.
type RendererFactory func(engine, tool string, timeout time.Duration) (nodelink.Renderer, error)

// Runner executes the pipeline with artifact caching.
//
// The Runner holds no per-run state, so one Runner may serve concurrent
// requests with different options.
type Runner struct {
	Cache       cache.Cache
	Logger      *log.Logger
	NewRenderer RendererFactory
}

// NewRunner creates a runner. A nil cache disables caching and a nil
// logger falls back to the default logger.
func NewRunner(c cache.Cache, logger *log.Logger) *Runner {
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:       c,
		Logger:      logger,
		NewRenderer: nodelink.NewRenderer,
	}
}

// Prepare validates opts and returns the renderer the run will use, or nil
// for native formats. For the exec engine the layout program is located
// here, so a missing tool fails before anything is parsed or written.
func (r *Runner) Prepare(opts *Options) (nodelink.Renderer, error) {
	r.applyLogger(opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	if !opts.NeedsEngine() {
		return nil, nil
	}

	rend, err := r.NewRenderer(opts.Engine, opts.Tool, opts.Timeout)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidEngine, err, "select engine")
	}
	if exe, ok := rend.(*nodelink.ExecRenderer); ok {
		path, err := exe.Available()
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeToolNotFound, err, "locate layout tool")
		}
		opts.Logger.Debug("found layout tool", "path", path)
	}
	return rend, nil
}

// Execute runs parse → graph → render.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	rend, err := r.Prepare(&opts)
	if err != nil {
		return nil, err
	}
	result := &Result{}

	parseStart := time.Now()
	doc, err := Parse(ctx, opts)
	if err != nil {
		return nil, err
	}
	result.Document = doc
	result.Stats.ParseTime = time.Since(parseStart)
	result.Stats.Sections = doc.Len()
	result.Stats.Files = len(doc.Files())

	r.Logger.Debug("parsed configuration",
		"sections", result.Stats.Sections,
		"files", result.Stats.Files,
		"diagnostics", len(doc.Diagnostics()),
		"duration", result.Stats.ParseTime)

	graphStart := time.Now()
	g := BuildGraph(ctx, doc, opts)
	result.Graph = g
	result.Stats.GraphTime = time.Since(graphStart)
	result.Stats.Components = len(g.Components)
	result.Stats.Levels = len(g.Levels)
	result.Stats.Warnings = len(g.Warnings)
	result.DOT = nodelink.ToDOT(g, nodelink.Options{OmitLevels: opts.OmitLevels})

	r.Logger.Debug("built data flow graph",
		"components", result.Stats.Components,
		"levels", result.Stats.Levels,
		"duration", result.Stats.GraphTime)

	renderStart := time.Now()
	if rend == nil {
		result.Output, err = RenderNative(doc, g, result.DOT, opts.Format)
	} else {
		result.Output, result.CacheHit, err = r.renderCached(ctx, rend, result.DOT, opts)
	}
	if err != nil {
		return nil, err
	}
	result.Stats.RenderTime = time.Since(renderStart)

	r.Logger.Debug("rendered output",
		"format", opts.Format,
		"bytes", len(result.Output),
		"cached", result.CacheHit,
		"duration", result.Stats.RenderTime)

	return result, nil
}

func (r *Runner) renderCached(ctx context.Context, rend nodelink.Renderer, dot string, opts Options) ([]byte, bool, error) {
	key := cache.ArtifactKey(rend.Engine(), toolIdentity(rend), opts.Format, dot)
	hooks := observability.Cache()

	if !opts.NoCache {
		data, hit, err := r.Cache.Get(ctx, key)
		switch {
		case err != nil:
			r.Logger.Warn("cache read failed", "error", err)
		case hit:
			hooks.OnCacheHit(ctx, "artifact")
			return data, true, nil
		default:
			hooks.OnCacheMiss(ctx, "artifact")
		}
	}

	data, err := RenderImage(ctx, rend, dot, opts.Format)
	if err != nil {
		return nil, false, err
	}

	if !opts.NoCache {
		if err := r.Cache.Set(ctx, key, data, cache.DefaultTTL); err != nil {
			r.Logger.Warn("cache write failed", "error", err)
		} else {
			hooks.OnCacheSet(ctx, "artifact", len(data))
		}
	}
	return data, false, nil
}

// toolIdentity names the program behind rend so images laid out by
// different tools never share a cache entry.
func toolIdentity(rend nodelink.Renderer) string {
	exe, ok := rend.(*nodelink.ExecRenderer)
	if !ok {
		return ""
	}
	if path, err := exe.Available(); err == nil {
		return path
	}
	return exe.Tool
}

// Close releases the cache.
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
