// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	LLM() LLMConfig
	Audio() AudioConfig
	Backend() BackendConfig
	Monitor() MonitorConfig
	Database() DatabaseConfig
	Metrics() MetricsConfig
	Profiles() []ProfileConfig
}

// Config holds the entire application configuration.
type Config struct {
	LoggerCfg   LoggerConfig    `mapstructure:"logger" yaml:"logger"`
	LLMCfg      LLMConfig       `mapstructure:"llm" yaml:"llm"`
	AudioCfg    AudioConfig     `mapstructure:"audio" yaml:"audio"`
	BackendCfg  BackendConfig   `mapstructure:"backend" yaml:"backend"`
	MonitorCfg  MonitorConfig   `mapstructure:"monitor" yaml:"monitor"`
	DatabaseCfg DatabaseConfig  `mapstructure:"database" yaml:"database"`
	MetricsCfg  MetricsConfig   `mapstructure:"metrics" yaml:"metrics"`
	ProfileCfgs []ProfileConfig `mapstructure:"profiles" yaml:"profiles"`
}

func (c *Config) Logger() LoggerConfig       { return c.LoggerCfg }
func (c *Config) LLM() LLMConfig             { return c.LLMCfg }
func (c *Config) Audio() AudioConfig         { return c.AudioCfg }
func (c *Config) Backend() BackendConfig     { return c.BackendCfg }
func (c *Config) Monitor() MonitorConfig     { return c.MonitorCfg }
func (c *Config) Database() DatabaseConfig   { return c.DatabaseCfg }
func (c *Config) Metrics() MetricsConfig     { return c.MetricsCfg }
func (c *Config) Profiles() []ProfileConfig { return c.ProfileCfgs }

// Profile returns the profile with the given id.
func (c *Config) Profile(id string) (ProfileConfig, bool) {
	for _, p := range c.ProfileCfgs {
		if p.ID == id {
			return p, true
		}
	}
	return ProfileConfig{}, false
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// LLMProvider identifies which transport backs the LLM client.
type LLMProvider string

const (
	ProviderOpenAI    LLMProvider = "openai"
	ProviderGemini    LLMProvider = "gemini"
	ProviderAnthropic LLMProvider = "anthropic"
	ProviderMock      LLMProvider = "mock"
)

// LLMConfig configures the decision oracle.
type LLMConfig struct {
	Provider          LLMProvider    `mapstructure:"provider" yaml:"provider"`
	Model             string         `mapstructure:"model" yaml:"model"`
	APIKey            string         `mapstructure:"api_key" yaml:"-"`
	Endpoint          string         `mapstructure:"endpoint" yaml:"endpoint"`
	APITimeout        time.Duration  `mapstructure:"api_timeout" yaml:"api_timeout"`
	Temperature       float32        `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens         int            `mapstructure:"max_tokens" yaml:"max_tokens"`
	MaxAttempts       int            `mapstructure:"max_attempts" yaml:"max_attempts"`
	RetryBaseDelay    time.Duration  `mapstructure:"retry_base_delay" yaml:"retry_base_delay"`
	MaxImageDimension int            `mapstructure:"max_image_dimension" yaml:"max_image_dimension"`
	Fallback          FallbackConfig `mapstructure:"fallback" yaml:"fallback"`
}

// FallbackConfig tunes the keyword classifier used when a response is not valid JSON.
type FallbackConfig struct {
	// Match is "substring" or "word".
	Match                string   `mapstructure:"match" yaml:"match"`
	CompletionKeywords   []string `mapstructure:"completion_keywords" yaml:"completion_keywords"`
	SuccessKeywords      []string `mapstructure:"success_keywords" yaml:"success_keywords"`
	FailureKeywords      []string `mapstructure:"failure_keywords" yaml:"failure_keywords"`
	ContinuationKeywords []string `mapstructure:"continuation_keywords" yaml:"continuation_keywords"`
	DefaultRisk          float64  `mapstructure:"default_risk" yaml:"default_risk"`
	RetryUnmatched       bool     `mapstructure:"retry_unmatched" yaml:"retry_unmatched"`
}

// Validate checks the LLM configuration.
func (l LLMConfig) Validate() error {
	switch l.Provider {
	case ProviderOpenAI, ProviderGemini, ProviderAnthropic, ProviderMock:
	default:
		return fmt.Errorf("llm.provider must be one of openai, gemini, anthropic, mock (got %q)", l.Provider)
	}
	if l.MaxAttempts < 1 || l.MaxAttempts > 10 {
		return fmt.Errorf("llm.max_attempts must be between 1 and 10")
	}
	if l.RetryBaseDelay < 0 {
		return fmt.Errorf("llm.retry_base_delay must not be negative")
	}
	if l.MaxTokens <= 0 {
		return fmt.Errorf("llm.max_tokens must be a positive integer")
	}
	if l.Temperature < 0 || l.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be between 0.0 and 2.0")
	}
	switch l.Fallback.Match {
	case "substring", "word":
	default:
		return fmt.Errorf("llm.fallback.match must be 'substring' or 'word'")
	}
	if l.Fallback.DefaultRisk < 0 || l.Fallback.DefaultRisk > 1 {
		return fmt.Errorf("llm.fallback.default_risk must be between 0.0 and 1.0")
	}
	return nil
}

// AudioConfig configures the notifier used for alarms and run-end cues.
type AudioConfig struct {
	Enabled bool    `mapstructure:"enabled" yaml:"enabled"`
	Volume  float64 `mapstructure:"volume" yaml:"volume"`
	// Backend is "bell", "command" or "none".
	Backend string        `mapstructure:"backend" yaml:"backend"`
	Command []string      `mapstructure:"command" yaml:"command"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// Validate checks the audio configuration.
func (a AudioConfig) Validate() error {
	if a.Volume < 0 || a.Volume > 1 {
		return fmt.Errorf("audio.volume must be between 0.0 and 1.0")
	}
	switch a.Backend {
	case "bell", "none":
	case "command":
		if len(a.Command) == 0 {
			return fmt.Errorf("audio.command is required when audio.backend is 'command'")
		}
	default:
		return fmt.Errorf("audio.backend must be one of bell, command, none (got %q)", a.Backend)
	}
	return nil
}

// BackendConfig selects the capture and input implementation.
type BackendConfig struct {
	// Kind is "virtual", "browser" or "desktop".
	Kind     string               `mapstructure:"kind" yaml:"kind"`
	Humanize bool                 `mapstructure:"humanize" yaml:"humanize"`
	Browser  BrowserBackendConfig `mapstructure:"browser" yaml:"browser"`
	Virtual  VirtualBackendConfig `mapstructure:"virtual" yaml:"virtual"`
}

// BrowserBackendConfig drives a Chrome tab through the DevTools protocol.
type BrowserBackendConfig struct {
	URL      string `mapstructure:"url" yaml:"url"`
	Headless bool   `mapstructure:"headless" yaml:"headless"`
	Width    int    `mapstructure:"width" yaml:"width"`
	Height   int    `mapstructure:"height" yaml:"height"`
}

// VirtualBackendConfig sizes the in-memory desktop.
type VirtualBackendConfig struct {
	Width  int `mapstructure:"width" yaml:"width"`
	Height int `mapstructure:"height" yaml:"height"`
}

// Validate checks the backend configuration.
func (b BackendConfig) Validate() error {
	switch b.Kind {
	case "virtual":
		if b.Virtual.Width <= 0 || b.Virtual.Height <= 0 {
			return fmt.Errorf("backend.virtual width and height must be positive")
		}
	case "browser":
		if b.Browser.Width <= 0 || b.Browser.Height <= 0 {
			return fmt.Errorf("backend.browser width and height must be positive")
		}
	case "desktop":
	default:
		return fmt.Errorf("backend.kind must be one of virtual, browser, desktop (got %q)", b.Kind)
	}
	return nil
}

// MonitorConfig carries run defaults applied to profiles that leave them unset.
type MonitorConfig struct {
	Interval          time.Duration `mapstructure:"interval" yaml:"interval"`
	Downscale         uint32        `mapstructure:"downscale" yaml:"downscale"`
	Cooldown          time.Duration `mapstructure:"cooldown" yaml:"cooldown"`
	MaxRuntime        time.Duration `mapstructure:"max_runtime" yaml:"max_runtime"`
	MaxConcurrentRuns int           `mapstructure:"max_concurrent_runs" yaml:"max_concurrent_runs"`
}

// Validate checks the monitor configuration.
func (m MonitorConfig) Validate() error {
	if m.Interval <= 0 {
		return fmt.Errorf("monitor.interval must be positive")
	}
	if m.MaxConcurrentRuns <= 0 {
		return fmt.Errorf("monitor.max_concurrent_runs must be a positive integer")
	}
	if m.Cooldown < 0 || m.MaxRuntime < 0 {
		return fmt.Errorf("monitor.cooldown and monitor.max_runtime must not be negative")
	}
	return nil
}

// DatabaseConfig holds the database connection details.
type DatabaseConfig struct {
	URL string `mapstructure:"url" yaml:"url"`
}

// MetricsConfig controls the Prometheus exporter.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Address string `mapstructure:"address" yaml:"address"`
}

// SetDefaults applies every default value to the viper instance.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "loopautoma")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- LLM --
	v.SetDefault("llm.provider", string(ProviderOpenAI))
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.endpoint", "")
	v.SetDefault("llm.api_timeout", "60s")
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.max_tokens", 300)
	v.SetDefault("llm.max_attempts", 3)
	v.SetDefault("llm.retry_base_delay", "500ms")
	v.SetDefault("llm.max_image_dimension", 1280)
	v.SetDefault("llm.fallback.match", "substring")
	v.SetDefault("llm.fallback.completion_keywords", []string{"DONE", "COMPLETE", "FINISHED", "TASK_COMPLETE"})
	v.SetDefault("llm.fallback.success_keywords", []string{"SUCCESS", "PASSED"})
	v.SetDefault("llm.fallback.failure_keywords", []string{"FAIL", "ERROR"})
	v.SetDefault("llm.fallback.continuation_keywords", []string{"CONTINUE", "NEXT", "MORE"})
	v.SetDefault("llm.fallback.default_risk", 0.3)
	v.SetDefault("llm.fallback.retry_unmatched", true)

	// -- Audio --
	v.SetDefault("audio.enabled", true)
	v.SetDefault("audio.volume", 0.5)
	v.SetDefault("audio.backend", "bell")
	v.SetDefault("audio.timeout", "10s")

	// -- Backend --
	v.SetDefault("backend.kind", "virtual")
	v.SetDefault("backend.humanize", false)
	v.SetDefault("backend.browser.url", "about:blank")
	v.SetDefault("backend.browser.headless", true)
	v.SetDefault("backend.browser.width", 1280)
	v.SetDefault("backend.browser.height", 800)
	v.SetDefault("backend.virtual.width", 1280)
	v.SetDefault("backend.virtual.height", 800)

	// -- Monitor --
	v.SetDefault("monitor.interval", "1s")
	v.SetDefault("monitor.downscale", 4)
	v.SetDefault("monitor.cooldown", "0s")
	v.SetDefault("monitor.max_runtime", "0s")
	v.SetDefault("monitor.max_concurrent_runs", 4)

	// -- Database --
	v.SetDefault("database.url", "")

	// -- Metrics --
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.address", ":9464")
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	// Unmarshalling defaults into an empty struct cannot fail.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// NewConfigFromViper creates a new configuration from a viper instance, binding
// secret environment variables and validating the result.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	v.BindEnv("llm.api_key", "LOOPAUTOMA_LLM_API_KEY")
	v.BindEnv("database.url", "LOOPAUTOMA_DATABASE_URL")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if cfg.LLMCfg.APIKey == "" {
		cfg.LLMCfg.APIKey = os.Getenv(providerKeyEnv(cfg.LLMCfg.Provider))
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// providerKeyEnv names the conventional API key variable for a provider.
func providerKeyEnv(p LLMProvider) string {
	switch p {
	case ProviderGemini:
		return "GEMINI_API_KEY"
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	default:
		return "OPENAI_API_KEY"
	}
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if err := c.LLMCfg.Validate(); err != nil {
		return err
	}
	if err := c.AudioCfg.Validate(); err != nil {
		return err
	}
	if err := c.BackendCfg.Validate(); err != nil {
		return err
	}
	if err := c.MonitorCfg.Validate(); err != nil {
		return err
	}
	if c.MetricsCfg.Enabled && strings.TrimSpace(c.MetricsCfg.Address) == "" {
		return fmt.Errorf("metrics.address is required when metrics are enabled")
	}

	seen := make(map[string]struct{}, len(c.ProfileCfgs))
	for i, p := range c.ProfileCfgs {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("profiles[%d]: %w", i, err)
		}
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("profiles[%d]: duplicate profile id %q", i, p.ID)
		}
		seen[p.ID] = struct{}{}
	}
	return nil
}
