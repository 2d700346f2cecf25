// Package hotspot turns normalized furniture detections into tappable
// display-space markers with resolved recommendation categories.
//
// The resolver runs the full policy chain: refinement of coarse storage
// detections, effective-confidence thresholding with a bounded top-K
// fallback, cover projection into the display container, and category
// resolution against the server-provided taxonomy. Taxonomy misses degrade
// to unmapped hotspots and are reported to monitoring, never surfaced as
// errors.
package hotspot

import (
	"log/slog"
	"sort"
	"time"

	"github.com/roomlens/roomlens-go/internal/conf"
	"github.com/roomlens/roomlens-go/internal/detector"
	"github.com/roomlens/roomlens-go/internal/geometry"
	"github.com/roomlens/roomlens-go/internal/logging"
	"github.com/roomlens/roomlens-go/internal/observability/metrics"
	"github.com/roomlens/roomlens-go/internal/refine"
	"github.com/roomlens/roomlens-go/internal/taxonomy"
	"github.com/roomlens/roomlens-go/internal/telemetry"
)

// Hotspot is one detected furniture item placed on screen. IDs are
// sequential within one resolver pass and carry no meaning across passes: a
// new image or a container resize produces a fresh set, and any externally
// held selection keyed by ID must be dropped with it.
type Hotspot struct {
	ID int `json:"id"`

	// Projected center in display container space, clamped to bounds.
	CX float64 `json:"cx"`
	CY float64 `json:"cy"`

	// Label is the detector class name, or the refined subtype code for
	// items that went through refinement.
	Label   string `json:"label"`
	KoLabel string `json:"koLabel,omitempty"`

	EffectiveConfidence float64 `json:"confidence"`

	// Category is the resolved recommendation category. Unmapped marks
	// hotspots that are shown but not tappable: no category resolved, or
	// the resolved category is outside the image's allowlist.
	Category *taxonomy.Resolution `json:"category,omitempty"`
	Unmapped bool                 `json:"unmapped"`

	Box geometry.ImageRect `json:"-"`
}

// Monitor receives fire-and-forget warnings about taxonomy drift between
// the detector vocabulary and the commerce catalog. Implementations must not
// block or fail the pipeline.
type Monitor interface {
	ReportWarning(key string, context map[string]any)
}

type telemetryMonitor struct{}

func (telemetryMonitor) ReportWarning(key string, context map[string]any) {
	telemetry.ReportWarning(key, context)
}

// Resolver applies the hotspot policy chain to detection results.
type Resolver struct {
	settings conf.HotspotSettings
	refiner  *refine.Engine
	monitor  Monitor
	metrics  *metrics.PipelineMetrics
	log      *slog.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithMonitor replaces the default telemetry-backed monitoring collaborator.
func WithMonitor(m Monitor) ResolverOption {
	return func(r *Resolver) { r.monitor = m }
}

// WithMetrics attaches pipeline metrics.
func WithMetrics(m *metrics.PipelineMetrics) ResolverOption {
	return func(r *Resolver) { r.metrics = m }
}

// WithRefineWeights overrides the refinement heuristic weights.
func WithRefineWeights(w refine.Weights) ResolverOption {
	return func(r *Resolver) { r.refiner = refine.New(w) }
}

// NewResolver builds a Resolver. Zero threshold or top-K fall back to the
// configured defaults.
func NewResolver(settings conf.HotspotSettings, opts ...ResolverOption) *Resolver {
	if settings.ConfidenceThreshold <= 0 {
		settings.ConfidenceThreshold = conf.DefaultConfidenceThreshold
	}
	if settings.FallbackTopK <= 0 {
		settings.FallbackTopK = conf.DefaultFallbackTopK
	}
	r := &Resolver{
		settings: settings,
		refiner:  refine.New(refine.DefaultWeights),
		monitor:  telemetryMonitor{},
		log:      logging.ForService("hotspot"),
	}
	if r.log == nil {
		r.log = slog.Default().With("service", "hotspot")
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Request carries everything one resolver pass needs besides the detections.
type Request struct {
	ImageSize     geometry.Size
	ContainerSize geometry.Size
	Mirrored      bool

	// Catalog is the server-provided category taxonomy; nil means no
	// resolution is possible and every hotspot comes back unmapped.
	Catalog *taxonomy.Catalog

	// Allowed restricts resolution to the categories actually available
	// for this image's recommendations. Empty means no restriction.
	Allowed []taxonomy.AllowedCategory
}

// candidate is one unified-list item before projection.
type candidate struct {
	detection  detector.Detection
	label      string
	koLabel    string
	confidence float64
}

// Resolve runs the policy chain and returns a fresh hotspot set. The result
// is never nil; it is empty only when the input detections are empty or the
// geometry is not ready (zero-sized image or container).
func (r *Resolver) Resolve(detections []detector.Detection, req Request) []Hotspot {
	if len(detections) == 0 {
		return []Hotspot{}
	}
	if !req.ImageSize.IsValid() || !req.ContainerSize.IsValid() {
		r.log.Debug("skipping hotspot projection, geometry not ready",
			"image", req.ImageSize, "container", req.ContainerSize)
		return []Hotspot{}
	}

	unified := r.buildUnified(detections, req.ImageSize)
	survivors := r.applyThreshold(unified)

	cover := geometry.ComputeCover(req.ImageSize, req.ContainerSize)
	hotspots := make([]Hotspot, 0, len(survivors))
	for i, c := range survivors {
		center := c.detection.Box.Center()
		point := geometry.ProjectPoint(center, cover, req.ContainerSize, req.Mirrored)

		h := Hotspot{
			ID:                  i + 1,
			CX:                  point.X,
			CY:                  point.Y,
			Label:               c.label,
			KoLabel:             c.koLabel,
			EffectiveConfidence: c.confidence,
			Box:                 c.detection.Box,
		}
		r.resolveCategory(&h, req)
		hotspots = append(hotspots, h)
	}
	return hotspots
}

// buildUnified partitions detections, refines the candidates and merges
// everything back with a per-item effective confidence.
func (r *Resolver) buildUnified(detections []detector.Detection, imageSize geometry.Size) []candidate {
	var toRefine []detector.Detection
	unified := make([]candidate, 0, len(detections))

	for _, d := range detections {
		if taxonomy.IsRefinementCandidate(d.Class) {
			toRefine = append(toRefine, d)
			continue
		}
		unified = append(unified, candidate{
			detection:  d,
			label:      d.Class.Name(),
			confidence: d.Score,
		})
	}

	if len(toRefine) > 0 {
		start := time.Now()
		refined := r.refiner.Refine(toRefine, imageSize)
		if r.metrics != nil {
			r.metrics.RefinementDuration.Observe(time.Since(start).Seconds())
		}
		for _, rd := range refined {
			unified = append(unified, candidate{
				detection:  rd.Detection,
				label:      rd.Subtype.Code(),
				koLabel:    rd.KoLabel,
				confidence: rd.Confidence,
			})
		}
	}
	return unified
}

// applyThreshold keeps items whose effective confidence clears the minimum.
// When nothing clears it but detections exist, the top-K by effective
// confidence are returned instead so the caller never ends up empty-handed.
// The fallback never runs when at least one item passes the threshold.
func (r *Resolver) applyThreshold(unified []candidate) []candidate {
	survivors := make([]candidate, 0, len(unified))
	for _, c := range unified {
		if c.confidence >= r.settings.ConfidenceThreshold {
			survivors = append(survivors, c)
		}
	}
	if len(survivors) > 0 || len(unified) == 0 {
		return survivors
	}

	if r.metrics != nil {
		r.metrics.FallbackActivations.Inc()
	}
	r.log.Debug("no detection cleared the confidence threshold, using top-k fallback",
		"candidates", len(unified), "k", r.settings.FallbackTopK)

	sorted := make([]candidate, len(unified))
	copy(sorted, unified)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].confidence > sorted[j].confidence
	})
	k := r.settings.FallbackTopK
	if k > len(sorted) {
		k = len(sorted)
	}
	return sorted[:k]
}

// resolveCategory maps the hotspot label to a recommendation category.
// Misses and allowlist rejections leave the hotspot unmapped and report a
// drift signal to monitoring.
func (r *Resolver) resolveCategory(h *Hotspot, req Request) {
	if req.Catalog == nil {
		h.Unmapped = true
		return
	}

	res, ok := req.Catalog.Resolve(h.Label)
	if !ok && h.KoLabel != "" {
		res, ok = req.Catalog.Resolve(h.KoLabel)
	}
	if !ok {
		h.Unmapped = true
		if r.metrics != nil {
			r.metrics.TaxonomyMisses.WithLabelValues("no_category").Inc()
		}
		r.monitor.ReportWarning("hotspot_category_unresolved", map[string]any{
			"label":    h.Label,
			"ko_label": h.KoLabel,
		})
		return
	}

	if len(req.Allowed) > 0 && !taxonomy.IsAllowed(res, req.Allowed) {
		h.Unmapped = true
		if r.metrics != nil {
			r.metrics.TaxonomyMisses.WithLabelValues("not_allowed").Inc()
		}
		r.monitor.ReportWarning("hotspot_category_not_allowed", map[string]any{
			"label":       h.Label,
			"category_id": res.CategoryID,
			"code":        res.Code,
		})
		return
	}

	h.Category = &res
}
