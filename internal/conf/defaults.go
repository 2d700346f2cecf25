package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Pipeline defaults. The score cutoff and confidence threshold are tuned
// values carried over from production; they are configuration, not
// contracts.
const (
	DefaultInputSize           = 640
	DefaultScoreCutoff         = 0.5
	DefaultConfidenceThreshold = 0.35
	DefaultFallbackTopK        = 3
)

func setDefaults() {
	viper.SetDefault("debug", false)
	viper.SetDefault("main.name", "roomlens")

	viper.SetDefault("detector.modelsource", "")
	viper.SetDefault("detector.modelid", "roomlens-detr-v1")
	viper.SetDefault("detector.librarypath", "")
	viper.SetDefault("detector.inputsize", DefaultInputSize)
	viper.SetDefault("detector.scorecutoff", DefaultScoreCutoff)
	viper.SetDefault("detector.threads", 0)
	viper.SetDefault("detector.cachettlmin", 15)
	viper.SetDefault("detector.fetchtimeout", 60*time.Second)

	viper.SetDefault("hotspot.confidencethreshold", DefaultConfidenceThreshold)
	viper.SetDefault("hotspot.fallbacktopk", DefaultFallbackTopK)

	viper.SetDefault("taxonomy.endpoint", "")
	viper.SetDefault("taxonomy.timeout", 10*time.Second)

	viper.SetDefault("web.enabled", true)
	viper.SetDefault("web.host", "0.0.0.0")
	viper.SetDefault("web.port", "8080")

	viper.SetDefault("sentry.enabled", false)
	viper.SetDefault("sentry.dsn", "")
	viper.SetDefault("sentry.debug", false)
}
