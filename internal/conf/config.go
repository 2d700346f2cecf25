// Package conf loads and validates the application settings. Settings come
// from an embedded default config.yaml, an optional on-disk config file, and
// ROOMLENS_* environment overrides, in increasing precedence.
package conf

import (
	_ "embed"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

//go:embed config.yaml
var defaultConfig []byte

// Settings is the root configuration structure.
type Settings struct {
	Debug bool // true to enable debug logging across services

	Main struct {
		Name string // node name reported in logs and telemetry
	}

	Detector DetectorSettings
	Hotspot  HotspotSettings
	Taxonomy TaxonomySettings
	Web      WebSettings
	Sentry   SentrySettings
}

// DetectorSettings configures the detection pipeline.
type DetectorSettings struct {
	ModelSource  string  // local path or http(s) URL of the ONNX model artifact
	ModelID      string  // identifier reported in logs and errors
	LibraryPath  string  // optional onnxruntime shared library override
	InputSize    int     // square model input edge, fixed by the model contract
	ScoreCutoff  float64 // raw detections at or below this score are discarded
	Threads      int     // intra-op threads for the inference engine, 0 = runtime default
	CacheTTLMin  int     // detection result cache TTL in minutes
	FetchTimeout time.Duration
}

// HotspotSettings configures projection and the threshold/fallback policy.
type HotspotSettings struct {
	ConfidenceThreshold float64 // effective-confidence minimum for the filter stage
	FallbackTopK        int     // top-K size when nothing clears the threshold
}

// TaxonomySettings configures the category catalog collaborator.
type TaxonomySettings struct {
	Endpoint string // URL serving the category group payload
	Timeout  time.Duration
}

// WebSettings configures the HTTP API server.
type WebSettings struct {
	Enabled bool
	Host    string
	Port    string
}

// SentrySettings contains settings for error tracking (opt-in).
type SentrySettings struct {
	Enabled bool
	DSN     string
	Debug   bool
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads the configuration and returns validated settings. The first
// successful call also publishes the settings for GetSettings.
func Load() (*Settings, error) {
	settings, err := loadSettings()
	if err != nil {
		return nil, err
	}
	if err := Validate(settings); err != nil {
		return nil, err
	}

	settingsMutex.Lock()
	settingsInstance = settings
	settingsMutex.Unlock()
	return settings, nil
}

// GetSettings returns the currently loaded settings, or nil before Load.
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// SetSettings publishes settings directly. Intended for tests.
func SetSettings(s *Settings) {
	settingsMutex.Lock()
	settingsInstance = s
	settingsMutex.Unlock()
}

func loadSettings() (*Settings, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	for _, path := range configPaths() {
		viper.AddConfigPath(path)
	}

	viper.SetEnvPrefix("roomlens")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !asConfigFileNotFound(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No config file found, defaults and env vars apply.
		log.Println("no config file found, using defaults")
	}

	settings := &Settings{}
	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return settings, nil
}

func asConfigFileNotFound(err error, target *viper.ConfigFileNotFoundError) bool {
	if e, ok := err.(viper.ConfigFileNotFoundError); ok {
		*target = e
		return true
	}
	return false
}

// configPaths returns the directories searched for config.yaml: working
// directory first, then the user config directory.
func configPaths() []string {
	paths := []string{"."}
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "roomlens"))
	}
	return paths
}

// EnsureDefaultConfig writes the embedded default config.yaml into the user
// config directory when no config file exists yet, and returns its path.
func EnsureDefaultConfig() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine user config directory: %w", err)
	}
	configDir := filepath.Join(dir, "roomlens")
	configPath := filepath.Join(configDir, "config.yaml")

	if _, err := os.Stat(configPath); err == nil {
		return configPath, nil
	}
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return "", fmt.Errorf("cannot create config directory %s: %w", configDir, err)
	}
	if err := os.WriteFile(configPath, defaultConfig, 0o644); err != nil {
		return "", fmt.Errorf("cannot write default config %s: %w", configPath, err)
	}
	return configPath, nil
}

// SaveAs writes the settings as YAML to the given path. Used by the config
// export command.
func SaveAs(settings *Settings, path string) error {
	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("cannot marshal settings: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("cannot write settings to %s: %w", path, err)
	}
	return nil
}
