// Package detector owns the detection model lifecycle and turns room photos
// into normalized furniture detections.
//
// A Pipeline moves through Unloaded -> Loading -> Ready, or Loading -> Error.
// Error is terminal for the instance: the caller constructs a new Pipeline to
// retry. Inference is accepted only in Ready; a single inference is in
// flight at a time, serialized by the pipeline's mutex the same way the
// underlying engine expects.
package detector

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/roomlens/roomlens-go/internal/conf"
	"github.com/roomlens/roomlens-go/internal/errors"
	"github.com/roomlens/roomlens-go/internal/geometry"
	"github.com/roomlens/roomlens-go/internal/logging"
	"github.com/roomlens/roomlens-go/internal/observability/metrics"
	"github.com/roomlens/roomlens-go/internal/taxonomy"
)

// State is the model readiness state of a Pipeline.
type State int32

const (
	StateUnloaded State = iota
	StateLoading
	StateReady
	StateError
)

func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	default:
		return "invalid"
	}
}

// Progress milestones reported during model load, as monotonically
// increasing percentages.
const (
	ProgressFetchStart        = 5
	ProgressFetchComplete     = 60
	ProgressEngineInitialized = 100
)

// ProgressFunc receives load progress as a percentage in [0,100].
type ProgressFunc func(percent int)

// Detection is one normalized furniture detection in original image pixel
// space. Class is always internal-normalized; no raw 1-based model index
// crosses this boundary.
type Detection struct {
	Box   geometry.ImageRect
	Score float64
	Class taxonomy.Class
}

// Result is the outcome of one inference run.
type Result struct {
	Detections []Detection
	ImageSize  geometry.Size
	// InferenceTime is wall clock including preprocessing.
	InferenceTime time.Duration
}

// Pipeline owns one loaded inference engine and its lifecycle.
type Pipeline struct {
	settings conf.DetectorSettings
	engine   Engine
	metrics  *metrics.PipelineMetrics
	log      *slog.Logger
	progress ProgressFunc

	mu           sync.Mutex // serializes inference; one in-flight run at a time
	stateMu      sync.RWMutex
	state        State
	loadErr      error
	lastProgress int
}

// Option configures a Pipeline at construction.
type Option func(*Pipeline)

// WithProgress installs a load progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(p *Pipeline) { p.progress = fn }
}

// WithMetrics attaches pipeline metrics.
func WithMetrics(m *metrics.PipelineMetrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithEngine substitutes the inference engine. Tests use this; production
// builds default to the onnxruntime engine.
func WithEngine(e Engine) Option {
	return func(p *Pipeline) { p.engine = e }
}

// New constructs an unloaded Pipeline for the configured model reference.
// Call Load to move it to Ready.
func New(settings conf.DetectorSettings, opts ...Option) *Pipeline {
	p := &Pipeline{
		settings: settings,
		state:    StateUnloaded,
		log:      logging.ForService("detector"),
	}
	if p.log == nil {
		p.log = slog.Default().With("service", "detector")
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// State returns the current lifecycle state.
func (p *Pipeline) State() State {
	p.stateMu.RLock()
	defer p.stateMu.RUnlock()
	return p.state
}

// LoadError returns the terminal load error, if any.
func (p *Pipeline) LoadError() error {
	p.stateMu.RLock()
	defer p.stateMu.RUnlock()
	return p.loadErr
}

func (p *Pipeline) setState(s State, err error) {
	p.stateMu.Lock()
	p.state = s
	p.loadErr = err
	p.stateMu.Unlock()
}

// reportProgress forwards a milestone to the progress callback, keeping the
// reported percentage monotonically increasing.
func (p *Pipeline) reportProgress(percent int) {
	if percent <= p.lastProgress {
		return
	}
	p.lastProgress = percent
	if p.progress != nil {
		p.progress(percent)
	}
}

// Load fetches the model artifact, sanity-checks it and initializes the
// inference engine. A failed load is terminal: the pipeline enters Error and
// stays there; construct a new Pipeline to retry.
func (p *Pipeline) Load(ctx context.Context) error {
	p.stateMu.Lock()
	switch p.state {
	case StateLoading:
		p.stateMu.Unlock()
		return errors.Newf("model load already in progress").
			Component("detector").
			Category(errors.CategoryState).
			Build()
	case StateReady:
		p.stateMu.Unlock()
		return nil
	case StateError:
		p.stateMu.Unlock()
		return errors.Newf("pipeline is in terminal error state, construct a new one to retry").
			Component("detector").
			Category(errors.CategoryState).
			Build()
	}
	p.state = StateLoading
	p.stateMu.Unlock()

	start := time.Now()

	err := p.load(ctx)
	if err != nil {
		p.setState(StateError, err)
		if p.metrics != nil {
			p.metrics.ModelLoadedGauge.Set(0)
		}
		return err
	}

	p.setState(StateReady, nil)
	p.reportProgress(ProgressEngineInitialized)
	if p.metrics != nil {
		p.metrics.ModelLoadDuration.Observe(time.Since(start).Seconds())
		p.metrics.ModelLoadedGauge.Set(1)
	}
	p.log.Info("detection model ready",
		"model", p.settings.ModelID,
		"load_time_ms", time.Since(start).Milliseconds())
	return nil
}

func (p *Pipeline) load(ctx context.Context) error {
	p.reportProgress(ProgressFetchStart)

	modelData, err := p.fetchModel(ctx)
	if err != nil {
		return err
	}
	p.reportProgress(ProgressFetchComplete)

	if p.engine == nil {
		engine, err := newONNXEngine(modelData, p.settings)
		if err != nil {
			return errors.New(fmt.Errorf("inference engine rejected model binary: %w", err)).
				Component("detector").
				Category(errors.CategoryModelInit).
				ModelContext(p.settings.ModelSource, p.settings.ModelID).
				Build()
		}
		p.engine = engine
	}
	return nil
}

// Detect runs inference on a decoded image and returns normalized furniture
// detections in image pixel space, plus the wall-clock inference time
// including preprocessing.
//
// Issued against a pipeline that is not Ready it fails synchronously with a
// not-ready error and no side effects. Concurrent calls against the same
// pipeline serialize on the internal mutex.
func (p *Pipeline) Detect(ctx context.Context, img image.Image) (*Result, error) {
	if state := p.State(); state != StateReady {
		return nil, errors.Newf("inference requested while pipeline not ready (state: %s)", state).
			Component("detector").
			Category(errors.CategoryNotReady).
			Context("state", state.String()).
			Build()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	start := time.Now()

	bounds := img.Bounds()
	imageSize := geometry.Size{Width: float64(bounds.Dx()), Height: float64(bounds.Dy())}
	if !imageSize.IsValid() {
		return nil, errors.Newf("invalid image dimensions %dx%d", bounds.Dx(), bounds.Dy()).
			Component("detector").
			Category(errors.CategoryValidation).
			Build()
	}

	feeds, lb := buildFeeds(img, p.settings.InputSize)

	raw, err := p.engine.Run(ctx, feeds)
	if err != nil {
		if p.metrics != nil {
			p.metrics.ObserveInference(p.settings.ModelID, 0, err)
		}
		return nil, errors.New(fmt.Errorf("inference failed: %w", err)).
			Component("detector").
			Category(errors.CategoryInference).
			ModelContext(p.settings.ModelSource, p.settings.ModelID).
			Build()
	}

	detections := decodeRawOutput(raw, lb, imageSize, p.settings.ScoreCutoff)
	elapsed := time.Since(start)

	if p.metrics != nil {
		p.metrics.ObserveInference(p.settings.ModelID, elapsed, nil)
		for i := range detections {
			p.metrics.DetectionCounter.WithLabelValues(detections[i].Class.Name()).Inc()
		}
	}
	p.log.Debug("inference complete",
		"detections", len(detections),
		"inference_time_ms", elapsed.Milliseconds())

	return &Result{
		Detections:    detections,
		ImageSize:     imageSize,
		InferenceTime: elapsed,
	}, nil
}

// Close releases the engine resources. The pipeline is unusable afterwards.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.engine != nil {
		err := p.engine.Close()
		p.engine = nil
		p.setState(StateError, errors.Newf("pipeline closed").Category(errors.CategoryState).Build())
		return err
	}
	return nil
}
