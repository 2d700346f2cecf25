package conf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSettings() *Settings {
	s := &Settings{}
	s.Detector.InputSize = DefaultInputSize
	s.Detector.ScoreCutoff = DefaultScoreCutoff
	s.Hotspot.ConfidenceThreshold = DefaultConfidenceThreshold
	s.Hotspot.FallbackTopK = DefaultFallbackTopK
	s.Web.Enabled = true
	s.Web.Port = "8080"
	return s
}

func TestValidateDefaults(t *testing.T) {
	t.Parallel()
	require.NoError(t, Validate(validSettings()))
}

func TestValidateRejectsBadValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantMsg string
	}{
		{
			name:    "zero_input_size",
			mutate:  func(s *Settings) { s.Detector.InputSize = 0 },
			wantMsg: "detector.inputsize",
		},
		{
			name:    "cutoff_out_of_range",
			mutate:  func(s *Settings) { s.Detector.ScoreCutoff = 1.0 },
			wantMsg: "detector.scorecutoff",
		},
		{
			name:    "negative_threads",
			mutate:  func(s *Settings) { s.Detector.Threads = -2 },
			wantMsg: "detector.threads",
		},
		{
			name:    "threshold_above_one",
			mutate:  func(s *Settings) { s.Hotspot.ConfidenceThreshold = 1.5 },
			wantMsg: "hotspot.confidencethreshold",
		},
		{
			name:    "zero_fallback_k",
			mutate:  func(s *Settings) { s.Hotspot.FallbackTopK = 0 },
			wantMsg: "hotspot.fallbacktopk",
		},
		{
			name:    "bad_port",
			mutate:  func(s *Settings) { s.Web.Port = "http" },
			wantMsg: "web.port",
		},
		{
			name:    "sentry_without_dsn",
			mutate:  func(s *Settings) { s.Sentry.Enabled = true },
			wantMsg: "sentry.dsn",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := validSettings()
			tt.mutate(s)
			err := Validate(s)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestValidateCollectsAllProblems(t *testing.T) {
	t.Parallel()

	s := validSettings()
	s.Detector.InputSize = -1
	s.Hotspot.FallbackTopK = 0
	err := Validate(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "detector.inputsize")
	assert.Contains(t, err.Error(), "hotspot.fallbacktopk")
}
