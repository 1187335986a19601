// Package config provides configuration for the assistant server.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// LLM modes.
const (
	LLMModeOpenAI = "openai"
	LLMModeMock   = "mock"
)

// Config holds the server configuration.
type Config struct {
	// Server settings
	HTTPPort int `yaml:"http_port"`

	// Database
	DatabaseURL string `yaml:"database_url"`

	// Logging and tracing
	LogLevel      string `yaml:"log_level"`
	LogFormat     string `yaml:"log_format"`
	LogOutput     string `yaml:"log_output"`
	TraceExporter string `yaml:"trace_exporter"`

	// LLM
	LLMMode      string           `yaml:"llm_mode"`
	LLMBaseURL   string           `yaml:"llm_base_url"`
	LLMAPIKey    string           `yaml:"llm_api_key"`
	LLMModel     string           `yaml:"llm_model"`
	LLMEndpoints []EndpointConfig `yaml:"llm_endpoints"`

	// Media services
	PlexURL         string `yaml:"plex_url"`
	PlexToken       string `yaml:"plex_token"`
	SonarrURL       string `yaml:"sonarr_url"`
	SonarrAPIKey    string `yaml:"sonarr_api_key"`
	RadarrURL       string `yaml:"radarr_url"`
	RadarrAPIKey    string `yaml:"radarr_api_key"`
	OverseerrURL    string `yaml:"overseerr_url"`
	OverseerrAPIKey string `yaml:"overseerr_api_key"`

	// Outbound limits
	ServiceRateLimit float64 `yaml:"service_rate_limit"`
	ServiceBurst     int     `yaml:"service_burst"`
	BreakerFailures  int     `yaml:"breaker_failures"`

	// Timeouts
	LLMTimeout     time.Duration `yaml:"-"`
	ServiceTimeout time.Duration `yaml:"-"`
	ToolTimeout    time.Duration `yaml:"-"`
	TitleTimeout   time.Duration `yaml:"-"`
	BreakerTimeout time.Duration `yaml:"-"`

	// External tool access
	MCPBearerToken string `yaml:"mcp_bearer_token"`
	AdminUserID    string `yaml:"admin_user_id"`
}

// EndpointConfig describes one OpenAI-compatible LLM endpoint.
type EndpointConfig struct {
	ID      string `yaml:"id" json:"id"`
	Name    string `yaml:"name" json:"name"`
	BaseURL string `yaml:"base_url" json:"baseUrl"`
	APIKey  string `yaml:"api_key" json:"apiKey"`
	Model   string `yaml:"model" json:"model"`
	Enabled bool   `yaml:"enabled" json:"enabled"`
}

// Defaults returns a config with built-in defaults.
func Defaults() *Config {
	return &Config{
		HTTPPort:         8080,
		DatabaseURL:      "file:thinkarr.db?cache=shared&mode=rwc",
		LogLevel:         "info",
		LogFormat:        "text",
		LogOutput:        "stderr",
		TraceExporter:    "noop",
		LLMMode:          LLMModeOpenAI,
		ServiceRateLimit: 5,
		ServiceBurst:     10,
		BreakerFailures:  5,
		LLMTimeout:       120 * time.Second,
		ServiceTimeout:   15 * time.Second,
		ToolTimeout:      30 * time.Second,
		TitleTimeout:     30 * time.Second,
		BreakerTimeout:   30 * time.Second,
		AdminUserID:      "admin",
	}
}

// Load loads configuration from an optional YAML file (CONFIG_FILE) and
// environment variables. Environment values win over the file.
func Load() (*Config, error) {
	cfg := Defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.HTTPPort = getEnvInt("HTTP_PORT", cfg.HTTPPort)
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnv("LOG_FORMAT", cfg.LogFormat)
	cfg.LogOutput = getEnv("LOG_OUTPUT", cfg.LogOutput)
	cfg.TraceExporter = getEnv("TRACE_EXPORTER", cfg.TraceExporter)

	cfg.LLMMode = getEnv("LLM_MODE", cfg.LLMMode)
	cfg.LLMBaseURL = getEnv("LLM_BASE_URL", cfg.LLMBaseURL)
	cfg.LLMAPIKey = getEnv("LLM_API_KEY", cfg.LLMAPIKey)
	cfg.LLMModel = getEnv("LLM_MODEL", cfg.LLMModel)

	cfg.PlexURL = getEnv("PLEX_URL", cfg.PlexURL)
	cfg.PlexToken = getEnv("PLEX_TOKEN", cfg.PlexToken)
	cfg.SonarrURL = getEnv("SONARR_URL", cfg.SonarrURL)
	cfg.SonarrAPIKey = getEnv("SONARR_API_KEY", cfg.SonarrAPIKey)
	cfg.RadarrURL = getEnv("RADARR_URL", cfg.RadarrURL)
	cfg.RadarrAPIKey = getEnv("RADARR_API_KEY", cfg.RadarrAPIKey)
	cfg.OverseerrURL = getEnv("OVERSEERR_URL", cfg.OverseerrURL)
	cfg.OverseerrAPIKey = getEnv("OVERSEERR_API_KEY", cfg.OverseerrAPIKey)

	cfg.ServiceRateLimit = getEnvFloat("SERVICE_RATE_LIMIT", cfg.ServiceRateLimit)
	cfg.ServiceBurst = getEnvInt("SERVICE_BURST", cfg.ServiceBurst)
	cfg.BreakerFailures = getEnvInt("BREAKER_FAILURES", cfg.BreakerFailures)

	cfg.LLMTimeout = getEnvDuration("LLM_TIMEOUT_MS", cfg.LLMTimeout)
	cfg.ServiceTimeout = getEnvDuration("SERVICE_TIMEOUT_MS", cfg.ServiceTimeout)
	cfg.ToolTimeout = getEnvDuration("TOOL_TIMEOUT_MS", cfg.ToolTimeout)
	cfg.TitleTimeout = getEnvDuration("TITLE_TIMEOUT_MS", cfg.TitleTimeout)
	cfg.BreakerTimeout = getEnvDuration("BREAKER_TIMEOUT_MS", cfg.BreakerTimeout)

	cfg.MCPBearerToken = getEnv("MCP_BEARER_TOKEN", cfg.MCPBearerToken)
	cfg.AdminUserID = getEnv("ADMIN_USER_ID", cfg.AdminUserID)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// Validate checks the config for values the server cannot run with.
func (c *Config) Validate() error {
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid http port: %d", c.HTTPPort)
	}
	if c.LLMMode != LLMModeOpenAI && c.LLMMode != LLMModeMock {
		return fmt.Errorf("invalid llm mode: %q", c.LLMMode)
	}
	if c.ServiceRateLimit <= 0 {
		return fmt.Errorf("service rate limit must be positive")
	}
	if c.ServiceBurst <= 0 {
		return fmt.Errorf("service burst must be positive")
	}
	for name, d := range map[string]time.Duration{
		"llm timeout":     c.LLMTimeout,
		"service timeout": c.ServiceTimeout,
		"tool timeout":    c.ToolTimeout,
		"title timeout":   c.TitleTimeout,
		"breaker timeout": c.BreakerTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	seen := make(map[string]bool, len(c.LLMEndpoints))
	for _, ep := range c.LLMEndpoints {
		if ep.ID == "" {
			return fmt.Errorf("llm endpoint id is required")
		}
		if seen[ep.ID] {
			return fmt.Errorf("duplicate llm endpoint id: %s", ep.ID)
		}
		seen[ep.ID] = true
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if ms, err := strconv.Atoi(val); err == nil {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return defaultVal
}
