// Package telemetry provides privacy-compliant error tracking and the
// fire-and-forget monitoring collaborator used by the detection pipeline.
//
// Reporting is strictly opt-in. When disabled, every function in this
// package is a no-op; when enabled, nothing here ever blocks or panics the
// calling pipeline. Warning reports carry a string key and a structured
// context payload so operators can watch for taxonomy drift between the
// detector vocabulary and the commerce catalog.
package telemetry

import (
	"fmt"
	"regexp"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/roomlens/roomlens-go/internal/errors"
	"github.com/roomlens/roomlens-go/internal/logging"
)

// Config holds the telemetry settings needed at initialization.
type Config struct {
	Enabled bool
	DSN     string
	Debug   bool
	Release string
}

var enabled atomic.Bool

// urlPattern matches URLs embedded in error messages so they can be
// scrubbed before leaving the process.
var urlPattern = regexp.MustCompile(`https?://[^\s"']+`)

// ScrubMessage removes URLs from a message before it is reported.
// Model and image URLs can embed signed query tokens.
func ScrubMessage(msg string) string {
	return urlPattern.ReplaceAllString(msg, "[url]")
}

// Init initializes the Sentry SDK if telemetry is enabled and registers the
// error-package reporter so enhanced errors flow here on Build.
func Init(cfg Config) error {
	if !cfg.Enabled {
		logging.Info("telemetry is disabled (opt-in required)")
		return nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:        cfg.DSN,
		Release:    cfg.Release,
		SampleRate: 1.0,
		Debug:      cfg.Debug,
	})
	if err != nil {
		return fmt.Errorf("telemetry initialization failed: %w", err)
	}

	enabled.Store(true)
	errors.SetReporter(reporter{})
	logging.Info("telemetry initialized", "release", cfg.Release)
	return nil
}

// Enabled reports whether telemetry is active.
func Enabled() bool {
	return enabled.Load()
}

// reporter adapts the errors package hook onto CaptureError.
type reporter struct{}

func (reporter) ReportError(ee *errors.EnhancedError) {
	captureEnhanced(ee)
}

func captureEnhanced(ee *errors.EnhancedError) {
	if !enabled.Load() {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("component", ee.GetComponent())
		scope.SetTag("category", ee.GetCategory())
		if ctx := ee.GetContext(); ctx != nil {
			scope.SetContext("error_context", ctx)
		}
		scope.SetFingerprint([]string{ee.GetCategory(), ee.GetComponent()})

		event := sentry.NewEvent()
		event.Level = sentry.LevelError
		event.Message = ScrubMessage(ee.Error())
		sentry.CaptureEvent(event)
	})
}

// CaptureError captures an error with a component tag. Safe to call before
// Init and when telemetry is disabled.
func CaptureError(err error, component string) {
	if !enabled.Load() || err == nil {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("component", component)
		scope.SetFingerprint([]string{component, fmt.Sprintf("%T", err)})
		sentry.CaptureMessage(ScrubMessage(err.Error()))
	})
}

// ReportWarning sends a fire-and-forget warning event with a string key and
// a structured context payload. It never returns an error and never blocks
// beyond the local enqueue; the pipeline treats these as signals, not
// failures. Disabled telemetry degrades to a debug log entry.
func ReportWarning(key string, context map[string]any) {
	if !enabled.Load() {
		logging.Debug("telemetry warning (reporting disabled)", "key", key)
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(sentry.LevelWarning)
		scope.SetTag("warning_key", key)
		if context != nil {
			scope.SetContext("details", context)
		}
		scope.SetFingerprint([]string{key})
		sentry.CaptureMessage(key)
	})
}

// Flush waits up to timeout for buffered events to reach the backend.
// Called on shutdown.
func Flush(timeout time.Duration) {
	if !enabled.Load() {
		return
	}
	sentry.Flush(timeout)
}
