package detector

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/roomlens/roomlens-go/internal/errors"
	"github.com/roomlens/roomlens-go/internal/httpclient"
	"github.com/roomlens/roomlens-go/internal/logging"
	"github.com/roomlens/roomlens-go/internal/observability/metrics"
)

// ErrSuperseded marks a result that finished after a newer request for the
// same image arrived. Its detections are discarded, never surfaced.
var ErrSuperseded = errors.NewStd("detection result superseded by a newer request")

// Analyzer orchestrates detection for image sources: result caching keyed by
// image identity, unreadable-payload refetch, and discarding of stale
// results when requests for the same image overlap.
type Analyzer struct {
	pipeline *Pipeline
	fetcher  *httpclient.Client
	cache    *gocache.Cache
	metrics  *metrics.PipelineMetrics
	log      *slog.Logger

	genMu       sync.Mutex
	generations map[string]uint64
}

// NewAnalyzer wraps a pipeline with caching and fetch support. TTL controls
// how long detection results stay valid for an unchanged image identity.
func NewAnalyzer(pipeline *Pipeline, fetcher *httpclient.Client, ttl time.Duration, m *metrics.PipelineMetrics) *Analyzer {
	if fetcher == nil {
		fetcher = httpclient.New(nil)
	}
	a := &Analyzer{
		pipeline:    pipeline,
		fetcher:     fetcher,
		cache:       gocache.New(ttl, ttl*2),
		metrics:     m,
		log:         logging.ForService("detector"),
		generations: make(map[string]uint64),
	}
	if a.log == nil {
		a.log = slog.Default().With("service", "detector")
	}
	return a
}

// Pipeline exposes the wrapped pipeline, mainly for state inspection.
func (a *Analyzer) Pipeline() *Pipeline { return a.pipeline }

// begin registers a new request generation for an image identity and returns
// it. A later begin for the same identity supersedes all earlier ones.
func (a *Analyzer) begin(key string) uint64 {
	a.genMu.Lock()
	defer a.genMu.Unlock()
	a.generations[key]++
	return a.generations[key]
}

// isCurrent reports whether the generation is still the newest request for
// the image identity.
func (a *Analyzer) isCurrent(key string, gen uint64) bool {
	a.genMu.Lock()
	defer a.genMu.Unlock()
	return a.generations[key] == gen
}

// Analyze runs detection for one image source.
//
// A cached result for the same image identity is returned without touching
// the pipeline. When the provided bytes cannot be decoded, the source URL is
// refetched once and decoding retried; if the image is still unreadable the
// call degrades to an empty result instead of failing the caller. A result
// that completes after a newer Analyze call for the same identity returns
// ErrSuperseded and is not cached.
func (a *Analyzer) Analyze(ctx context.Context, src ImageSource) (*Result, error) {
	key := src.Key()
	if key == "" {
		return nil, errors.Newf("image source has neither ID nor URL").
			Component("detector").
			Category(errors.CategoryValidation).
			Build()
	}

	if cached, found := a.cache.Get(key); found {
		if a.metrics != nil {
			a.metrics.CacheHits.Inc()
		}
		return cached.(*Result), nil
	}
	if a.metrics != nil {
		a.metrics.CacheMisses.Inc()
	}

	gen := a.begin(key)

	img, readable, err := a.loadImage(ctx, src)
	if err != nil {
		return nil, err
	}
	if !readable {
		// Unreadable even after the refetch retry. Detection quietly
		// yields nothing rather than breaking the caller's flow.
		a.log.Warn("image unreadable after refetch, returning no detections", "image", key)
		return &Result{}, nil
	}

	result, err := a.pipeline.Detect(ctx, img)
	if err != nil {
		return nil, err
	}

	if !a.isCurrent(key, gen) {
		a.log.Debug("discarding stale detection result", "image", key, "generation", gen)
		return nil, ErrSuperseded
	}

	a.cache.SetDefault(key, result)
	return result, nil
}

// Invalidate drops any cached result for the image identity.
func (a *Analyzer) Invalidate(key string) {
	a.cache.Delete(key)
}

// loadImage obtains a decoded image for the source. The second return is
// false when the image cannot be decoded even after the single refetch
// retry; that case is deliberately not an error.
func (a *Analyzer) loadImage(ctx context.Context, src ImageSource) (image.Image, bool, error) {
	data := src.Data
	if len(data) == 0 {
		if src.URL == "" {
			return nil, false, errors.Newf("image source %q carries no bytes and no URL", src.ID).
				Component("detector").
				Category(errors.CategoryValidation).
				Build()
		}
		fetched, err := a.fetchImage(ctx, src.URL)
		if err != nil {
			return nil, false, err
		}
		data = fetched
	}

	img, err := decodeImage(data)
	if err == nil {
		return img, true, nil
	}

	if src.URL == "" {
		return nil, false, nil
	}

	// One refetch retry: the payload the caller handed over may be
	// truncated or otherwise unreadable while the origin still serves a
	// good copy.
	if a.metrics != nil {
		a.metrics.PixelReadRetries.Inc()
	}
	a.log.Debug("image payload unreadable, refetching from source",
		"image", src.Key(), "error", err)

	fetched, fetchErr := a.fetchImage(ctx, src.URL)
	if fetchErr != nil {
		a.log.Warn("image refetch failed", "image", src.Key(), "error", fetchErr)
		return nil, false, nil
	}
	img, err = decodeImage(fetched)
	if err != nil {
		return nil, false, nil
	}
	return img, true, nil
}

func (a *Analyzer) fetchImage(ctx context.Context, url string) ([]byte, error) {
	data, _, err := a.fetcher.GetBytes(ctx, url)
	if err != nil {
		return nil, errors.New(fmt.Errorf("image fetch failed: %w", err)).
			Component("detector").
			Category(errors.CategoryImageFetch).
			Context("url", url).
			Build()
	}
	return data, nil
}
