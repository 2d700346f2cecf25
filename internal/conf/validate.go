package conf

import (
	"errors"
	"fmt"
	"strconv"
)

// Validate checks settings for values that would break the pipeline at
// runtime. It returns all problems joined, not just the first.
func Validate(settings *Settings) error {
	var errs []error

	if settings.Detector.InputSize <= 0 {
		errs = append(errs, fmt.Errorf("detector.inputsize must be positive, got %d", settings.Detector.InputSize))
	}
	if settings.Detector.ScoreCutoff < 0 || settings.Detector.ScoreCutoff >= 1 {
		errs = append(errs, fmt.Errorf("detector.scorecutoff must be in [0,1), got %g", settings.Detector.ScoreCutoff))
	}
	if settings.Detector.Threads < 0 {
		errs = append(errs, fmt.Errorf("detector.threads must not be negative, got %d", settings.Detector.Threads))
	}

	if settings.Hotspot.ConfidenceThreshold < 0 || settings.Hotspot.ConfidenceThreshold > 1 {
		errs = append(errs, fmt.Errorf("hotspot.confidencethreshold must be in [0,1], got %g", settings.Hotspot.ConfidenceThreshold))
	}
	if settings.Hotspot.FallbackTopK < 1 {
		errs = append(errs, fmt.Errorf("hotspot.fallbacktopk must be at least 1, got %d", settings.Hotspot.FallbackTopK))
	}

	if settings.Web.Enabled {
		if port, err := strconv.Atoi(settings.Web.Port); err != nil || port < 1 || port > 65535 {
			errs = append(errs, fmt.Errorf("web.port must be a valid port number, got %q", settings.Web.Port))
		}
	}

	if settings.Sentry.Enabled && settings.Sentry.DSN == "" {
		errs = append(errs, errors.New("sentry.dsn is required when sentry.enabled is true"))
	}

	return errors.Join(errs...)
}
