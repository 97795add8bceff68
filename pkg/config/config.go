package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "FAQCHAT_"

const (
	BackendFAQ    = "faq"
	BackendOpenAI = "openai"
)

const (
	defaultOrigin         = "http://localhost:8000"
	defaultTimeoutSeconds = 30
	defaultLogLevel       = "info"
	defaultLogFormat      = "json"
)

// Config represents the application configuration
type Config struct {
	Backend           string `json:"backend" yaml:"backend" env:"BACKEND"`
	APIURL            string `json:"api_url" yaml:"api_url" env:"API_URL"`
	Origin            string `json:"origin" yaml:"origin" env:"ORIGIN"`
	APIKey            string `json:"api_key,omitempty" yaml:"api_key,omitempty" env:"API_KEY"`
	Model             string `json:"model" yaml:"model" env:"MODEL"`
	APITimeoutSeconds int    `json:"api_timeout_seconds" yaml:"api_timeout_seconds" env:"API_TIMEOUT_SECONDS"`
	LogLevel          string `json:"log_level" yaml:"log_level" env:"LOG_LEVEL"`
	LogFile           string `json:"log_file,omitempty" yaml:"log_file,omitempty" env:"LOG_FILE"`
	LogFormat         string `json:"log_format" yaml:"log_format" env:"LOG_FORMAT"`
}

// Default returns a configuration with default values
func Default() Config {
	return Config{
		Backend:           BackendFAQ,
		Origin:            defaultOrigin,
		Model:             "faq-chat",
		APITimeoutSeconds: defaultTimeoutSeconds,
		LogLevel:          defaultLogLevel,
		LogFormat:         defaultLogFormat,
	}
}

// BaseURL is the backend root. APIURL wins; otherwise the origin the
// client was served from.
func (c Config) BaseURL() string {
	if u := strings.TrimSpace(c.APIURL); u != "" {
		return u
	}
	return strings.TrimSpace(c.Origin)
}

// Timeout is the per-request deadline.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.APITimeoutSeconds) * time.Second
}

// Load loads configuration from the specified path
// If the file doesn't exist, creates one with default values
func Load(configPath string) (Config, error) {
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return Config{}, fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := Default()
			if err := Save(configPath, cfg); err != nil {
				return Config{}, fmt.Errorf("failed to create default config: %w", err)
			}
			return cfg, nil
		}
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if isYAML(configPath) {
		err = yaml.Unmarshal(data, &cfg)
	} else {
		err = json.Unmarshal(data, &cfg)
	}
	if err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	return applyDefaults(cfg), nil
}

// Save saves the configuration to the specified path
func Save(configPath string, cfg Config) error {
	var (
		data []byte
		err  error
	)
	if isYAML(configPath) {
		data, err = yaml.Marshal(cfg)
	} else {
		data, err = json.MarshalIndent(cfg, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// LoadDotEnv reads KEY=VALUE files into the process environment.
// Variables that are already set keep their value and missing files
// are skipped.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overlays FAQCHAT_* environment variables onto cfg. Unset
// variables leave the corresponding field untouched.
func ApplyEnv(cfg Config) (Config, error) {
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("failed to parse environment: %w", err)
	}
	return cfg, nil
}

// Validate checks if the configuration is valid
func (c Config) Validate() error {
	switch c.Backend {
	case BackendFAQ, BackendOpenAI:
	default:
		return fmt.Errorf("unsupported backend: %q", c.Backend)
	}

	base := c.BaseURL()
	if base == "" {
		return fmt.Errorf("api_url or origin is required")
	}
	u, err := url.Parse(base)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid api url: %q", base)
	}

	if c.APITimeoutSeconds <= 0 {
		return fmt.Errorf("api_timeout_seconds must be positive, got: %d", c.APITimeoutSeconds)
	}

	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "", "trace", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log_level: %q", c.LogLevel)
	}

	switch strings.ToLower(strings.TrimSpace(c.LogFormat)) {
	case "", "json", "text":
	default:
		return fmt.Errorf("invalid log_format: %q", c.LogFormat)
	}

	return nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".faqchat", "config.json")
	}
	return filepath.Join(homeDir, ".faqchat", "config.json")
}

// applyDefaults fills fields that older or hand-written files omit.
func applyDefaults(cfg Config) Config {
	def := Default()
	if strings.TrimSpace(cfg.Backend) == "" {
		cfg.Backend = def.Backend
	}
	if strings.TrimSpace(cfg.APIURL) == "" && strings.TrimSpace(cfg.Origin) == "" {
		cfg.Origin = def.Origin
	}
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.APITimeoutSeconds == 0 {
		cfg.APITimeoutSeconds = def.APITimeoutSeconds
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = def.LogLevel
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = def.LogFormat
	}
	return cfg
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
