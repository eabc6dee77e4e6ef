package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Extraction modes.
const (
	ModeDirect  = "direct"
	ModeBackend = "backend"
)

// Config holds the full application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
	Extraction ExtractionConfig `yaml:"extraction" mapstructure:"extraction"`
	Backend    BackendConfig    `yaml:"backend" mapstructure:"backend"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Gemini     GeminiConfig     `yaml:"gemini" mapstructure:"gemini"`
	Resilience ResilienceConfig `yaml:"resilience" mapstructure:"resilience"`
	Export     ExportConfig     `yaml:"export" mapstructure:"export"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
}

// ServerConfig configures the HTTP backend.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	Environment    string   `yaml:"environment" mapstructure:"environment"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	// RateLimit is the number of extraction requests accepted per minute.
	RateLimit int `yaml:"rate_limit" mapstructure:"rate_limit"`
	// SessionIdleMins is how long an untouched session is kept.
	SessionIdleMins int `yaml:"session_idle_mins" mapstructure:"session_idle_mins"`
}

// SessionIdle returns the session idle timeout.
func (c ServerConfig) SessionIdle() time.Duration {
	return time.Duration(c.SessionIdleMins) * time.Minute
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// ExtractionConfig controls how documents reach an AI provider.
type ExtractionConfig struct {
	// Mode is "direct" (call the vendor APIs) or "backend" (call a docextract server).
	Mode          string   `yaml:"mode" mapstructure:"mode"`
	TimeoutSecs   int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxFileSizeMB int      `yaml:"max_file_size_mb" mapstructure:"max_file_size_mb"`
	AllowedTypes  []string `yaml:"allowed_types" mapstructure:"allowed_types"`
}

// Timeout returns the provider call bound as a duration.
func (c ExtractionConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// MaxFileSizeBytes returns the upload limit in bytes.
func (c ExtractionConfig) MaxFileSizeBytes() int64 {
	return int64(c.MaxFileSizeMB) * 1024 * 1024
}

// BackendConfig points at a remote docextract server used in backend mode.
type BackendConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// AnthropicConfig holds Anthropic API settings. The API key is supplied per
// session by the operator, never from configuration.
type AnthropicConfig struct {
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
	BaseURL   string `yaml:"base_url" mapstructure:"base_url"`
}

// GeminiConfig holds Gemini API settings.
type GeminiConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// ResilienceConfig configures the per-provider circuit breakers.
type ResilienceConfig struct {
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// ExportConfig configures export and print artifacts.
type ExportConfig struct {
	Dir          string `yaml:"dir" mapstructure:"dir"`
	Organization string `yaml:"organization" mapstructure:"organization"`
}

// MonitoringConfig configures the background alert checker.
type MonitoringConfig struct {
	Enabled               bool    `yaml:"enabled" mapstructure:"enabled"`
	CheckIntervalSecs     int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	FallbackRateThreshold float64 `yaml:"fallback_rate_threshold" mapstructure:"fallback_rate_threshold"`
	MinExtractions        int     `yaml:"min_extractions" mapstructure:"min_extractions"`
	WebhookURL            string  `yaml:"webhook_url" mapstructure:"webhook_url"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("DOCEXTRACT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("server.port", 8567)
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:8570", "http://127.0.0.1:8570"})
	v.SetDefault("server.rate_limit", 60)
	v.SetDefault("server.session_idle_mins", 60)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("extraction.mode", ModeDirect)
	v.SetDefault("extraction.timeout_secs", 30)
	v.SetDefault("extraction.max_file_size_mb", 10)
	v.SetDefault("extraction.allowed_types", []string{"image/jpeg", "image/jpg", "image/png", "application/pdf"})
	v.SetDefault("backend.base_url", "http://localhost:8567")
	v.SetDefault("anthropic.model", "claude-3-5-sonnet-20241022")
	v.SetDefault("anthropic.max_tokens", 3000)
	v.SetDefault("gemini.base_url", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("gemini.model", "gemini-2.0-flash")
	v.SetDefault("resilience.failure_threshold", 3)
	v.SetDefault("resilience.reset_timeout_secs", 60)
	v.SetDefault("export.dir", ".")
	v.SetDefault("export.organization", "Cartório Fernando Dias - 2º Tabelionato de Notas")
	v.SetDefault("monitoring.enabled", true)
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("monitoring.fallback_rate_threshold", 0.5)
	v.SetDefault("monitoring.min_extractions", 5)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects settings the extraction pipeline cannot run with.
func (c *Config) Validate() error {
	switch c.Extraction.Mode {
	case ModeDirect, ModeBackend:
	default:
		return eris.Errorf("config: unknown extraction mode %q", c.Extraction.Mode)
	}
	if c.Extraction.TimeoutSecs <= 0 {
		return eris.New("config: extraction.timeout_secs must be positive")
	}
	if c.Extraction.MaxFileSizeMB <= 0 {
		return eris.New("config: extraction.max_file_size_mb must be positive")
	}
	if c.Server.Port <= 0 {
		return eris.New("config: server.port must be > 0")
	}
	if c.Extraction.Mode == ModeBackend && c.Backend.BaseURL == "" {
		return eris.New("config: backend mode requires backend.base_url")
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}

// InitStderrLogger is InitLogger with all output on stderr, for stdio
// transports where stdout carries protocol frames.
func InitStderrLogger(cfg LogConfig) error {
	zapCfg := zap.NewProductionConfig()
	zapCfg.OutputPaths = []string{"stderr"}
	zapCfg.ErrorOutputPaths = []string{"stderr"}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
