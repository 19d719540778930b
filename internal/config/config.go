// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/xkilldash9x/scalpel-qa/api/schemas"
)

// LLMProvider identifies a reasoning service backend.
type LLMProvider string

const (
	ProviderGemini LLMProvider = "gemini"
	ProviderOpenAI LLMProvider = "openai"
)

// Config holds the entire application configuration.
type Config struct {
	Logger   LoggerConfig    `mapstructure:"logger" yaml:"logger"`
	Browser  BrowserConfig   `mapstructure:"browser" yaml:"browser"`
	Executor ExecutorConfig  `mapstructure:"executor" yaml:"executor"`
	Verifier VerifierConfig  `mapstructure:"verifier" yaml:"verifier"`
	Evidence EvidenceConfig  `mapstructure:"evidence" yaml:"evidence"`
	LLM      LLMRouterConfig `mapstructure:"llm" yaml:"llm"`
	Server   ServerConfig    `mapstructure:"server" yaml:"server"`
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

// ColorConfig defines the color names for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig holds settings for the per-run browser session.
type BrowserConfig struct {
	Headless bool `mapstructure:"headless" yaml:"headless"`
	// ExecPath overrides browser discovery when set.
	ExecPath string `mapstructure:"exec_path" yaml:"exec_path"`
	// Args are extra "--flag" or "--flag=value" switches appended to the
	// hardened defaults.
	Args              []string      `mapstructure:"args" yaml:"args"`
	LaunchTimeout     time.Duration `mapstructure:"launch_timeout" yaml:"launch_timeout"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	NetworkIdleQuiet  time.Duration `mapstructure:"network_idle_quiet" yaml:"network_idle_quiet"`
	SettleTime        time.Duration `mapstructure:"settle_time" yaml:"settle_time"`
	ConsentTimeout    time.Duration `mapstructure:"consent_timeout" yaml:"consent_timeout"`
	// ConsentSelectors lists per-hostname consent buttons. A list is used
	// rather than a map because viper splits map keys on dots.
	ConsentSelectors []ConsentRule `mapstructure:"consent_selectors" yaml:"consent_selectors"`
	// Stealth hides the usual headless automation markers from the page.
	Stealth bool `mapstructure:"stealth" yaml:"stealth"`
	// Locale drives Accept-Language and navigator.languages when Stealth is set.
	Locale string `mapstructure:"locale" yaml:"locale"`
}

// ConsentRule binds a hostname to the selector of its cookie-consent button.
type ConsentRule struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Selector string `mapstructure:"selector" yaml:"selector"`
}

// ConsentSelectorMap returns the hostname to selector table.
func (b BrowserConfig) ConsentSelectorMap() map[string]string {
	m := make(map[string]string, len(b.ConsentSelectors))
	for _, r := range b.ConsentSelectors {
		host := strings.ToLower(strings.TrimSpace(r.Host))
		if host == "" || strings.TrimSpace(r.Selector) == "" {
			continue
		}
		m[host] = r.Selector
	}
	return m
}

// ExecutorConfig tunes the action executor.
type ExecutorConfig struct {
	ActionPause     time.Duration `mapstructure:"action_pause" yaml:"action_pause"`
	SelectorTimeout time.Duration `mapstructure:"selector_timeout" yaml:"selector_timeout"`
	VisibleTimeout  time.Duration `mapstructure:"visible_timeout" yaml:"visible_timeout"`
	PollInterval    time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	PollTimeout     time.Duration `mapstructure:"poll_timeout" yaml:"poll_timeout"`
	PollPlaceholder string        `mapstructure:"poll_placeholder" yaml:"poll_placeholder"`
}

// VerifierConfig tunes the outcome verifier.
type VerifierConfig struct {
	TextSampleSize int `mapstructure:"text_sample_size" yaml:"text_sample_size"`
}

// EvidenceConfig controls where screenshots are written and how reports
// reference them.
type EvidenceConfig struct {
	Dir       string `mapstructure:"dir" yaml:"dir"`
	URLPrefix string `mapstructure:"url_prefix" yaml:"url_prefix"`
}

// LLMModelConfig configures a single model endpoint.
type LLMModelConfig struct {
	Provider    LLMProvider   `mapstructure:"provider" yaml:"provider"`
	Model       string        `mapstructure:"model" yaml:"model"`
	APIKey      string        `mapstructure:"api_key" yaml:"-"`
	Endpoint    string        `mapstructure:"endpoint" yaml:"endpoint"`
	APITimeout  time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
	Temperature float32       `mapstructure:"temperature" yaml:"temperature"`
	TopP        float32       `mapstructure:"top_p" yaml:"top_p"`
	TopK        int           `mapstructure:"top_k" yaml:"top_k"`
	MaxTokens   int           `mapstructure:"max_tokens" yaml:"max_tokens"`
}

// LLMRouterConfig maps the fast and powerful tiers onto named models.
type LLMRouterConfig struct {
	DefaultFastModel     string                    `mapstructure:"default_fast_model" yaml:"default_fast_model"`
	DefaultPowerfulModel string                    `mapstructure:"default_powerful_model" yaml:"default_powerful_model"`
	Models               map[string]LLMModelConfig `mapstructure:"models" yaml:"models"`
}

// ServerConfig configures the HTTP front door.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr" yaml:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	// SubmitRate is the sustained number of run submissions per second.
	SubmitRate  float64 `mapstructure:"submit_rate" yaml:"submit_rate"`
	SubmitBurst int     `mapstructure:"submit_burst" yaml:"submit_burst"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Defaults are static; this only fires on a programming error.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "scalpel-qa")
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

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.launch_timeout", "120s")
	v.SetDefault("browser.navigation_timeout", "30s")
	v.SetDefault("browser.network_idle_quiet", "500ms")
	v.SetDefault("browser.settle_time", "10s")
	v.SetDefault("browser.consent_timeout", "5s")
	v.SetDefault("browser.stealth", true)
	v.SetDefault("browser.locale", "en-US")

	// -- Executor --
	v.SetDefault("executor.action_pause", "500ms")
	v.SetDefault("executor.selector_timeout", "5s")
	v.SetDefault("executor.visible_timeout", "10s")
	v.SetDefault("executor.poll_interval", "2s")
	v.SetDefault("executor.poll_timeout", "30s")
	v.SetDefault("executor.poll_placeholder", "Detecting...")

	// -- Verifier --
	v.SetDefault("verifier.text_sample_size", 500)

	// -- Evidence --
	v.SetDefault("evidence.dir", "screenshots")
	v.SetDefault("evidence.url_prefix", "/screenshots")

	// -- LLM --
	v.SetDefault("llm.default_fast_model", "gemini-fast")
	v.SetDefault("llm.default_powerful_model", "gemini-pro")
	v.SetDefault("llm.models", map[string]interface{}{
		"gemini-fast": map[string]interface{}{
			"provider":    string(ProviderGemini),
			"model":       "gemini-2.5-flash",
			"api_timeout": "60s",
			"temperature": 0.1,
		},
		"gemini-pro": map[string]interface{}{
			"provider":    string(ProviderGemini),
			"model":       "gemini-2.5-pro",
			"api_timeout": "120s",
			"temperature": 0.2,
		},
	})

	// -- Server --
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.request_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "15s")
	v.SetDefault("server.submit_rate", 1.0)
	v.SetDefault("server.submit_burst", 5)
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	cfg.applyCredentialEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// credentialEnv lists, per provider, the environment variables consulted for
// an API key when none is configured. The first non-empty one wins.
var credentialEnv = map[LLMProvider][]string{
	ProviderGemini: {"SCALPEL_GEMINI_API_KEY", "GEMINI_API_KEY"},
	ProviderOpenAI: {"SCALPEL_OPENAI_API_KEY", "OPENAI_API_KEY"},
}

// applyCredentialEnv fills missing API keys from the environment. Secrets are
// not expected in the config file.
func (c *Config) applyCredentialEnv() {
	for name, m := range c.LLM.Models {
		if m.APIKey != "" {
			continue
		}
		for _, env := range credentialEnv[m.Provider] {
			if key := os.Getenv(env); key != "" {
				m.APIKey = key
				break
			}
		}
		c.LLM.Models[name] = m
	}
}

// Validate checks the configuration for required fields and sane values.
// Credentials are checked separately by ValidateCredentials so commands that
// never call the reasoning service still start.
func (c *Config) Validate() error {
	if c.Browser.LaunchTimeout <= 0 {
		return fmt.Errorf("browser.launch_timeout must be a positive duration")
	}
	if c.Browser.NavigationTimeout <= 0 {
		return fmt.Errorf("browser.navigation_timeout must be a positive duration")
	}
	if c.Browser.SettleTime < 0 {
		return fmt.Errorf("browser.settle_time must not be negative")
	}
	if err := c.Executor.Validate(); err != nil {
		return fmt.Errorf("executor configuration invalid: %w", err)
	}
	if c.Verifier.TextSampleSize <= 0 {
		return fmt.Errorf("verifier.text_sample_size must be a positive integer")
	}
	if strings.TrimSpace(c.Evidence.Dir) == "" {
		return fmt.Errorf("evidence.dir is a required configuration field")
	}
	if err := c.LLM.Validate(); err != nil {
		return fmt.Errorf("llm configuration invalid: %w", err)
	}
	return nil
}

// Validate checks the executor timings.
func (e *ExecutorConfig) Validate() error {
	if e.SelectorTimeout <= 0 || e.VisibleTimeout <= 0 {
		return fmt.Errorf("selector_timeout and visible_timeout must be positive durations")
	}
	if e.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be a positive duration")
	}
	if e.PollTimeout < e.PollInterval {
		return fmt.Errorf("poll_timeout must be at least poll_interval")
	}
	if e.ActionPause < 0 {
		return fmt.Errorf("action_pause must not be negative")
	}
	return nil
}

// Validate checks that both tiers resolve to a known model with a supported
// provider.
func (r *LLMRouterConfig) Validate() error {
	for _, tier := range []struct{ key, name string }{
		{"default_fast_model", r.DefaultFastModel},
		{"default_powerful_model", r.DefaultPowerfulModel},
	} {
		if tier.name == "" {
			return fmt.Errorf("%s is required", tier.key)
		}
		m, ok := r.Models[tier.name]
		if !ok {
			return fmt.Errorf("%s references unknown model %q", tier.key, tier.name)
		}
		switch m.Provider {
		case ProviderGemini, ProviderOpenAI:
		default:
			return fmt.Errorf("model %q has unsupported provider %q", tier.name, m.Provider)
		}
		if m.Model == "" {
			return fmt.Errorf("model %q has no model name", tier.name)
		}
	}
	return nil
}

// ModelFor returns the model configuration behind a tier.
func (r *LLMRouterConfig) ModelFor(tier schemas.ModelTier) (LLMModelConfig, error) {
	name := r.DefaultPowerfulModel
	if tier == schemas.TierFast {
		name = r.DefaultFastModel
	}
	m, ok := r.Models[name]
	if !ok {
		return LLMModelConfig{}, fmt.Errorf("no model configured for tier %q", tier)
	}
	return m, nil
}

// ValidateCredentials ensures every tier has an API key. It runs before any
// browser is launched.
func (c *Config) ValidateCredentials() error {
	for _, tier := range []schemas.ModelTier{schemas.TierFast, schemas.TierPowerful} {
		m, err := c.LLM.ModelFor(tier)
		if err != nil {
			return fmt.Errorf("%w: %w", schemas.ErrConfiguration, err)
		}
		if m.APIKey == "" {
			return fmt.Errorf("%w: no API key for %s model %q (set %s)",
				schemas.ErrConfiguration, tier, m.Model, strings.Join(credentialEnv[m.Provider], " or "))
		}
	}
	return nil
}
