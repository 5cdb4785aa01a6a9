package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/menta2k/vision-companion/internal/capture"
)

const appName = "vision-companion"

// Config holds the application configuration. Service keys are not part of
// it; they live in the settings store.
type Config struct {
	Service  ServiceConfig  `json:"service"`
	Capture  CaptureConfig  `json:"capture"`
	Settings SettingsConfig `json:"settings"`
	Preview  PreviewConfig  `json:"preview"`
	Log      LogConfig      `json:"log"`
}

// ServiceConfig selects the classification backend
type ServiceConfig struct {
	Backend            string `json:"backend"`
	Endpoint           string `json:"endpoint"`
	PredictionEndpoint string `json:"prediction_endpoint,omitempty"`
	// PublishedName pins a published iteration instead of the default one
	PublishedName string `json:"published_name,omitempty"`
	ModelHint     string `json:"model_hint,omitempty"`
}

// CaptureConfig holds capture defaults
type CaptureConfig struct {
	Resolution   capture.Resolution `json:"resolution"`
	CameraDevice int                `json:"camera_device"`
}

// SettingsConfig selects where settings are persisted
type SettingsConfig struct {
	Backend   string `json:"backend"`
	Path      string `json:"path"`
	RedisAddr string `json:"redis_addr,omitempty"`
}

// PreviewConfig bounds the rendered preview
type PreviewConfig struct {
	MaxWidth  int `json:"max_width"`
	MaxHeight int `json:"max_height"`
}

// LogConfig configures the zap logger
type LogConfig struct {
	Level  string   `json:"level"`
	Output []string `json:"output"`
}

// Default returns a configuration with default values
func Default() *Config {
	dir := configDir()
	return &Config{
		Service: ServiceConfig{
			Backend:  "customvision",
			Endpoint: "https://southcentralus.api.cognitive.microsoft.com",
		},
		Capture: CaptureConfig{
			Resolution: capture.DefaultResolution,
		},
		Settings: SettingsConfig{
			Backend: "file",
			Path:    filepath.Join(dir, "settings.yaml"),
		},
		Preview: PreviewConfig{
			MaxWidth:  640,
			MaxHeight: 480,
		},
		Log: LogConfig{
			Level:  "info",
			Output: []string{filepath.Join(dir, appName+".log")},
		},
	}
}

// LoadFromFile loads configuration from a JSON file. Missing fields keep
// their defaults.
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// Load reads filename when it exists and falls back to defaults otherwise.
func Load(filename string) (*Config, error) {
	config, err := LoadFromFile(filename)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return config, err
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv loads a .env file if present and applies VISION_* overrides.
func (c *Config) ApplyEnv() error {
	_ = godotenv.Load()

	overrideString(&c.Service.Backend, "VISION_BACKEND")
	overrideString(&c.Service.Endpoint, "VISION_ENDPOINT")
	overrideString(&c.Service.PredictionEndpoint, "VISION_PREDICTION_ENDPOINT")
	overrideString(&c.Service.PublishedName, "VISION_PUBLISHED_NAME")
	overrideString(&c.Service.ModelHint, "VISION_MODEL_HINT")
	overrideString(&c.Settings.Backend, "VISION_SETTINGS_BACKEND")
	overrideString(&c.Settings.Path, "VISION_SETTINGS_PATH")
	overrideString(&c.Settings.RedisAddr, "VISION_REDIS_ADDR")
	overrideString(&c.Log.Level, "VISION_LOG_LEVEL")

	if value := os.Getenv("VISION_RESOLUTION"); value != "" {
		res, err := capture.ParseResolution(value)
		if err != nil {
			return fmt.Errorf("VISION_RESOLUTION: %w", err)
		}
		c.Capture.Resolution = res
	}
	if value := os.Getenv("VISION_CAMERA_DEVICE"); value != "" {
		device, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("VISION_CAMERA_DEVICE: %w", err)
		}
		c.Capture.CameraDevice = device
	}
	if value := os.Getenv("VISION_LOG_OUTPUT"); value != "" {
		c.Log.Output = strings.Split(value, ",")
	}
	return nil
}

// EnvCredentials returns keys supplied through the environment, used to seed
// an empty settings store.
func EnvCredentials() (trainingKey, predictionKey string) {
	return os.Getenv("VISION_TRAINING_KEY"), os.Getenv("VISION_PREDICTION_KEY")
}

func overrideString(field *string, key string) {
	if value := os.Getenv(key); value != "" {
		*field = value
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Service.Backend {
	case "customvision", "ollama":
	default:
		return fmt.Errorf("service.backend must be customvision or ollama, got %q", c.Service.Backend)
	}

	if c.Service.Endpoint == "" {
		return fmt.Errorf("service.endpoint cannot be empty")
	}

	if !c.Capture.Resolution.Valid() {
		return fmt.Errorf("capture.resolution is not a known option")
	}

	if c.Capture.CameraDevice < 0 {
		return fmt.Errorf("capture.camera_device must not be negative")
	}

	switch c.Settings.Backend {
	case "file", "sqlite":
		if c.Settings.Path == "" {
			return fmt.Errorf("settings.path cannot be empty for the %s backend", c.Settings.Backend)
		}
	case "redis":
		if c.Settings.RedisAddr == "" {
			return fmt.Errorf("settings.redis_addr cannot be empty for the redis backend")
		}
	default:
		return fmt.Errorf("settings.backend must be file, sqlite or redis, got %q", c.Settings.Backend)
	}

	if c.Preview.MaxWidth < 1 || c.Preview.MaxHeight < 1 {
		return fmt.Errorf("preview.max_width and preview.max_height must be positive")
	}

	if len(c.Log.Output) == 0 {
		return fmt.Errorf("log.output cannot be empty")
	}

	return nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	return filepath.Join(configDir(), "config.json")
}

func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", appName)
}
