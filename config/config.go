// Package config loads the appforge runtime configuration from a YAML file
// with ${ENV} expansion and environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/hupe1980/appforge/core"
	"github.com/hupe1980/appforge/engine"
	"github.com/hupe1980/appforge/logging"
	"github.com/hupe1980/appforge/model"
	"github.com/hupe1980/appforge/registry"
	"gopkg.in/yaml.v3"
)

// DefaultPath is read when neither an explicit path nor APPFORGE_CONFIG is set.
const DefaultPath = "appforge.yaml"

// Supported providers.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderScripted  = "scripted"
)

type Config struct {
	Provider ProviderConfig    `yaml:"provider"`
	Tiers    map[string]string `yaml:"tiers"`
	Engine   EngineConfig      `yaml:"engine"`
	Registry RegistryConfig    `yaml:"registry"`
	Store    StoreConfig       `yaml:"store"`
	NATS     NATSConfig        `yaml:"nats"`
	Server   ServerConfig      `yaml:"server"`
	Metrics  MetricsConfig     `yaml:"metrics"`
	Logging  LoggingConfig     `yaml:"logging"`
}

type ProviderConfig struct {
	Name        string            `yaml:"name"`
	Temperature float64           `yaml:"temperature"`
	MaxTokens   int64             `yaml:"max_tokens"`
	Anthropic   CredentialsConfig `yaml:"anthropic"`
	OpenAI      CredentialsConfig `yaml:"openai"`
}

type CredentialsConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

type EngineConfig struct {
	CoordinatorMaxIterations int    `yaml:"coordinator_max_iterations"`
	SpecialistMaxIterations  int    `yaml:"specialist_max_iterations"`
	SummaryMaxChars          int    `yaml:"summary_max_chars"`
	EventBufferSize          int    `yaml:"event_buffer_size"`
	FailedLoopStatus         string `yaml:"failed_loop_status"`
	Streaming                bool   `yaml:"streaming"`
	InitialPhase             string `yaml:"initial_phase"`
}

// RegistryConfig points at a role roster file. The embedded default roster
// is used when File is empty.
type RegistryConfig struct {
	File string `yaml:"file"`
}

// StoreConfig enables the sqlite session mirror when Path is set.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// NATSConfig enables event publishing. With Embedded set an in-process
// server is started and URL is ignored.
type NATSConfig struct {
	URL      string `yaml:"url"`
	Embedded bool   `yaml:"embedded"`
	Port     int    `yaml:"port"`
}

type ServerConfig struct {
	Listen string `yaml:"listen"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func defaults() Config {
	return Config{
		Provider: ProviderConfig{
			Name:        ProviderAnthropic,
			Temperature: 0.7,
			MaxTokens:   8192,
		},
		Engine: EngineConfig{
			CoordinatorMaxIterations: engine.DefaultConfig.CoordinatorMaxIterations,
			SpecialistMaxIterations:  engine.DefaultConfig.SpecialistMaxIterations,
			SummaryMaxChars:          engine.DefaultConfig.SummaryMaxChars,
			EventBufferSize:          engine.DefaultConfig.EventBufferSize,
			FailedLoopStatus:         string(engine.DefaultConfig.FailedLoopStatus),
			Streaming:                engine.DefaultConfig.EnableStreaming,
			InitialPhase:             "planning",
		},
		Server: ServerConfig{
			Listen: ":8080",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads the configuration. An empty path falls back to APPFORGE_CONFIG
// and then DefaultPath. A missing file is not an error: defaults and
// environment overrides apply.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path == "" {
		path = os.Getenv("APPFORGE_CONFIG")
	}
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("APPFORGE_PROVIDER"); v != "" {
		cfg.Provider.Name = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" && cfg.Provider.Anthropic.APIKey == "" {
		cfg.Provider.Anthropic.APIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" && cfg.Provider.OpenAI.APIKey == "" {
		cfg.Provider.OpenAI.APIKey = v
	}
	if v := os.Getenv("APPFORGE_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("APPFORGE_NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("APPFORGE_NATS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.NATS.Port = port
		}
	}
	if v := os.Getenv("APPFORGE_LISTEN"); v != "" {
		cfg.Server.Listen = v
	}
	if v := os.Getenv("APPFORGE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.Provider.Name {
	case ProviderAnthropic, ProviderOpenAI, ProviderScripted:
	default:
		return fmt.Errorf("unknown provider %q", c.Provider.Name)
	}

	for name := range c.Tiers {
		if _, err := model.ParseTier(name); err != nil {
			return err
		}
	}

	if c.Engine.CoordinatorMaxIterations <= 0 || c.Engine.SpecialistMaxIterations <= 0 {
		return fmt.Errorf("iteration bounds must be positive")
	}
	if c.Engine.SummaryMaxChars <= 0 {
		return fmt.Errorf("summary_max_chars must be positive")
	}
	if c.Engine.EventBufferSize < 0 {
		return fmt.Errorf("event_buffer_size must not be negative")
	}

	switch core.AgentStatus(c.Engine.FailedLoopStatus) {
	case core.StatusCompleted, core.StatusError:
	default:
		return fmt.Errorf("failed_loop_status must be %q or %q, got %q",
			core.StatusCompleted, core.StatusError, c.Engine.FailedLoopStatus)
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return err
	}

	return nil
}

// EngineConfig converts the engine section.
func (c *Config) EngineConfig() engine.Config {
	return engine.Config{
		CoordinatorMaxIterations: c.Engine.CoordinatorMaxIterations,
		SpecialistMaxIterations:  c.Engine.SpecialistMaxIterations,
		SummaryMaxChars:          c.Engine.SummaryMaxChars,
		EventBufferSize:          c.Engine.EventBufferSize,
		FailedLoopStatus:         core.AgentStatus(c.Engine.FailedLoopStatus),
		EnableStreaming:          c.Engine.Streaming,
	}
}

// TierTable returns the provider's default table overlaid with the
// configured tier mappings.
func (c *Config) TierTable() model.TierTable {
	base := model.AnthropicTiers()
	if c.Provider.Name == ProviderOpenAI {
		base = model.OpenAITiers()
	}
	if len(c.Tiers) == 0 {
		return base
	}

	ids := base.Entries()
	for name, id := range c.Tiers {
		tier, _ := model.ParseTier(name)
		ids[tier] = id
	}
	return model.NewTierTable(ids, ids[model.TierStandard])
}

// LoadRegistry returns the configured roster, or the embedded default.
func (c *Config) LoadRegistry() (*registry.Registry, error) {
	if c.Registry.File == "" {
		return registry.Default(), nil
	}
	reg, err := registry.LoadFile(c.Registry.File)
	if err != nil {
		return nil, fmt.Errorf("load registry: %w", err)
	}
	return reg, nil
}

// Logger builds the structured logger configured by the logging section.
func (c *Config) Logger() *logging.AppForgeLogger {
	level, _ := logging.ParseLevel(c.Logging.Level)
	return logging.NewSlogLogger(level, c.Logging.Format, false)
}
