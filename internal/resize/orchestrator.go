package resize

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/l0p7/imgctrl/internal/metrics"
	"github.com/l0p7/imgctrl/internal/resize/locking"
)

// Options carries the reloadable knobs of an Orchestrator. Backends are
// tried in slice order; any subset of the known backends is a valid chain.
type Options struct {
	SourceRoot    string
	CacheDir      string
	Quality       int
	StripMetadata bool
	Backends      []Backend
}

// Orchestrator wires cache lookup, directory provisioning, and the ordered
// backend fallback chain into one request cycle. It is safe for concurrent
// use; Reload swaps the options without disturbing in-flight requests.
type Orchestrator struct {
	logger  *slog.Logger
	locks   locking.Group
	metrics *metrics.Recorder

	mu      sync.RWMutex
	opts    Options
	rootAbs string
}

// NewOrchestrator validates the options and resolves the source root once so
// per-request path work stays cheap.
func NewOrchestrator(logger *slog.Logger, locks locking.Group, recorder *metrics.Recorder, opts Options) (*Orchestrator, error) {
	rootAbs, err := resolveRoot(opts)
	if err != nil {
		return nil, err
	}
	if locks == nil {
		locks = locking.NewMemLock()
	}
	return &Orchestrator{
		logger:  logger.With(slog.String("agent", "orchestrator")),
		locks:   locks,
		metrics: recorder,
		opts:    opts,
		rootAbs: rootAbs,
	}, nil
}

// Reload swaps the orchestrator options, typically after a config-file
// change rebuilt the backend chain.
func (o *Orchestrator) Reload(opts Options) error {
	rootAbs, err := resolveRoot(opts)
	if err != nil {
		return err
	}
	o.mu.Lock()
	o.opts = opts
	o.rootAbs = rootAbs
	o.mu.Unlock()
	o.logger.Info("orchestrator options reloaded",
		slog.Int("backends", len(opts.Backends)),
		slog.String("cache_dir", opts.CacheDir))
	return nil
}

func resolveRoot(opts Options) (string, error) {
	if len(opts.Backends) == 0 {
		return "", fmt.Errorf("resize: orchestrator requires at least one backend")
	}
	if opts.CacheDir == "" {
		return "", fmt.Errorf("resize: orchestrator requires a cache dir")
	}
	rootAbs, err := filepath.Abs(opts.SourceRoot)
	if err != nil {
		return "", fmt.Errorf("resize: resolve source root %s: %w", opts.SourceRoot, err)
	}
	return rootAbs, nil
}

// Produce returns the derivative for req, reusing a fresh cached copy when
// one exists and otherwise regenerating it through the backend chain. On a
// cache hit the result carries the path only; dimensions stay zero. On a
// regeneration the winning backend's reported dimensions are authoritative.
func (o *Orchestrator) Produce(ctx context.Context, req Request) (Result, error) {
	start := time.Now()
	req = req.normalized()

	o.mu.RLock()
	opts := o.opts
	rootAbs := o.rootAbs
	o.mu.RUnlock()

	if req.Quality == 0 {
		req.Quality = opts.Quality
	}
	if opts.StripMetadata {
		req.StripMetadata = true
	}

	if err := req.Validate(); err != nil {
		o.observe(req, "invalid", "", false, start)
		return Result{}, err
	}

	sourceAbs := filepath.Join(rootAbs, filepath.FromSlash(req.SourcePath))
	if _, err := os.Stat(sourceAbs); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			o.observe(req, "missing_source", "", false, start)
			return Result{}, fmt.Errorf("resize: %w: %s", ErrSourceMissing, req.SourcePath)
		}
		o.observe(req, "missing_source", "", false, start)
		return Result{}, fmt.Errorf("resize: stat source %s: %w", req.SourcePath, err)
	}

	relPath := ResolveCachePath(opts.CacheDir, req.SourcePath, req.Width, req.Height, req.Encoding)
	if relPath == "" {
		o.observe(req, "invalid", "", false, start)
		return Result{}, fmt.Errorf("resize: %w: no driving dimension", ErrInvalidRequest)
	}
	destAbs := filepath.Join(rootAbs, filepath.FromSlash(relPath))

	if err := EnsureCacheDir(rootAbs, destAbs); err != nil {
		o.logger.Error("cache directory provisioning failed",
			slog.String("path", relPath),
			slog.Any("error", err))
		o.observe(req, "provision_error", "", false, start)
		return Result{}, err
	}

	freshness, err := CheckFreshness(sourceAbs, destAbs)
	if err != nil {
		o.logger.Warn("freshness check failed, regenerating",
			slog.String("path", relPath),
			slog.Any("error", err))
	}
	if freshness == FreshnessHit {
		o.metrics.ObserveCacheLookup(metrics.CacheLookupHit)
		o.observe(req, "success", "", true, start)
		return Result{Path: relPath}, nil
	}
	if freshness == FreshnessStale {
		o.metrics.ObserveCacheLookup(metrics.CacheLookupStale)
	} else {
		o.metrics.ObserveCacheLookup(metrics.CacheLookupMiss)
	}

	var result Result
	lockErr := o.locks.DoWithLock(relPath, func() error {
		// Another request may have regenerated the derivative while this
		// one waited on the lock.
		if freshness, err := CheckFreshness(sourceAbs, destAbs); err == nil && freshness == FreshnessHit {
			result = Result{Path: relPath}
			return nil
		}

		job := Job{
			SourceAbs:     sourceAbs,
			SourceRel:     req.SourcePath,
			DestAbs:       destAbs,
			Width:         req.Width,
			Height:        req.Height,
			Encoding:      req.Encoding,
			Quality:       req.Quality,
			StripMetadata: req.StripMetadata,
		}

		for _, backend := range opts.Backends {
			attempt := time.Now()
			backendResult, err := backend.Resize(ctx, job)
			if err != nil {
				o.metrics.ObserveBackend(backend.Name(), metrics.BackendFailure, time.Since(attempt))
				o.logger.Warn("backend failed, falling back",
					slog.String("backend", backend.Name()),
					slog.String("source", req.SourcePath),
					slog.Any("error", err))
				if ctxErr := ctx.Err(); ctxErr != nil {
					return fmt.Errorf("resize: %w", ctxErr)
				}
				continue
			}
			o.metrics.ObserveBackend(backend.Name(), metrics.BackendSuccess, time.Since(attempt))
			o.metrics.ObserveCacheStore(metrics.CacheStoreStored)
			result = Result{Path: relPath, Width: backendResult.Width, Height: backendResult.Height}
			o.observe(req, "success", backend.Name(), false, start)
			o.logger.Debug("derivative generated",
				slog.String("backend", backend.Name()),
				slog.String("path", relPath),
				slog.Int("width", result.Width),
				slog.Int("height", result.Height))
			return nil
		}

		o.metrics.ObserveCacheStore(metrics.CacheStoreError)
		return fmt.Errorf("resize: %w: %s", ErrExhausted, req.SourcePath)
	})
	if lockErr != nil {
		o.observe(req, "exhausted", "", false, start)
		return Result{}, lockErr
	}
	if result.Width == 0 && result.Height == 0 {
		// Regenerated by a competing request while waiting on the lock;
		// dimensions are unresolved, same as any other cache hit.
		o.observe(req, "success", "", true, start)
	}
	return result, nil
}

func (o *Orchestrator) observe(req Request, outcome, backend string, fromCache bool, start time.Time) {
	o.metrics.ObserveResize(string(req.Encoding), outcome, backend, fromCache, time.Since(start))
}
