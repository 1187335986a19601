// Package settings exposes typed access to the app_config key-value table.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/xiaot623/thinkarr/internal/config"
	"github.com/xiaot623/thinkarr/internal/domain"
)

// Setting keys.
const (
	KeyLLMEndpoints   = "llm.endpoints"
	KeyLLMBaseURL     = "llm.baseUrl"
	KeyLLMAPIKey      = "llm.apiKey"
	KeyLLMModel       = "llm.model"
	KeyMCPBearerToken = "mcp.bearerToken"

	// DefaultEndpointID names the endpoint built from the legacy single-LLM keys.
	DefaultEndpointID = "default"
)

// KV is the slice of the repository this package needs.
type KV interface {
	GetSetting(ctx context.Context, key string) (string, bool, error)
	SetSetting(ctx context.Context, key, value string) error
	SetSettingIfAbsent(ctx context.Context, key, value string) (bool, error)
}

// Settings reads configuration values at call time, so edits apply without restart.
type Settings struct {
	kv     KV
	logger *slog.Logger
}

// New creates a settings view over kv.
func New(kv KV, logger *slog.Logger) *Settings {
	if logger == nil {
		logger = slog.Default()
	}
	return &Settings{kv: kv, logger: logger}
}

// URLKey returns the base URL setting key of a service.
func URLKey(name domain.ServiceName) string {
	return string(name) + ".url"
}

// CredentialKey returns the credential setting key of a service.
func CredentialKey(name domain.ServiceName) string {
	if name == domain.ServicePlex {
		return "plex.token"
	}
	return string(name) + ".apiKey"
}

// Get returns a value or "" when unset.
func (s *Settings) Get(ctx context.Context, key string) (string, error) {
	value, _, err := s.kv.GetSetting(ctx, key)
	if err != nil {
		return "", fmt.Errorf("failed to read setting %s: %w", key, err)
	}
	return value, nil
}

// Set stores a value.
func (s *Settings) Set(ctx context.Context, key, value string) error {
	if err := s.kv.SetSetting(ctx, key, value); err != nil {
		return fmt.Errorf("failed to write setting %s: %w", key, err)
	}
	return nil
}

// Service returns the credentials of a media service. The base URL has its
// trailing slash removed.
func (s *Settings) Service(ctx context.Context, name domain.ServiceName) (domain.ServiceCredentials, error) {
	url, err := s.Get(ctx, URLKey(name))
	if err != nil {
		return domain.ServiceCredentials{}, err
	}
	key, err := s.Get(ctx, CredentialKey(name))
	if err != nil {
		return domain.ServiceCredentials{}, err
	}
	url = strings.TrimRight(strings.TrimSpace(url), "/")
	if url == "" || key == "" {
		return domain.ServiceCredentials{}, fmt.Errorf("%s: %w", name, domain.ErrServiceNotConfigured)
	}
	return domain.ServiceCredentials{URL: url, Key: key}, nil
}

// ConfiguredServices lists the media services that have both URL and credential.
func (s *Settings) ConfiguredServices(ctx context.Context) ([]domain.ServiceName, error) {
	var out []domain.ServiceName
	for _, name := range domain.AllServices {
		_, err := s.Service(ctx, name)
		if err == nil {
			out = append(out, name)
			continue
		}
		if !isNotConfigured(err) {
			return nil, err
		}
	}
	return out, nil
}

// Endpoints returns the configured LLM endpoints. When no list is stored, a
// single "default" endpoint is built from the legacy keys.
func (s *Settings) Endpoints(ctx context.Context) ([]domain.LLMEndpoint, error) {
	raw, err := s.Get(ctx, KeyLLMEndpoints)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(raw) != "" {
		var endpoints []domain.LLMEndpoint
		if err := json.Unmarshal([]byte(raw), &endpoints); err != nil {
			s.logger.Warn("ignoring malformed llm.endpoints setting", "error", err)
		} else if len(endpoints) > 0 {
			return endpoints, nil
		}
	}

	baseURL, err := s.Get(ctx, KeyLLMBaseURL)
	if err != nil {
		return nil, err
	}
	if baseURL == "" {
		return nil, nil
	}
	apiKey, err := s.Get(ctx, KeyLLMAPIKey)
	if err != nil {
		return nil, err
	}
	model, err := s.Get(ctx, KeyLLMModel)
	if err != nil {
		return nil, err
	}
	return []domain.LLMEndpoint{{
		ID:      DefaultEndpointID,
		Name:    "Default",
		BaseURL: baseURL,
		APIKey:  apiKey,
		Model:   model,
		Enabled: true,
	}}, nil
}

// SetEndpoints replaces the endpoint list.
func (s *Settings) SetEndpoints(ctx context.Context, endpoints []domain.LLMEndpoint) error {
	data, err := json.Marshal(endpoints)
	if err != nil {
		return fmt.Errorf("failed to encode endpoints: %w", err)
	}
	return s.Set(ctx, KeyLLMEndpoints, string(data))
}

// MCPToken returns the bearer token external tool callers must present.
func (s *Settings) MCPToken(ctx context.Context) (string, error) {
	return s.Get(ctx, KeyMCPBearerToken)
}

// Seed stores config values for keys that are not set yet. Stored values win,
// so settings edited at runtime survive restarts. A missing MCP token is generated.
func (s *Settings) Seed(ctx context.Context, cfg *config.Config) error {
	values := map[string]string{
		KeyLLMBaseURL: cfg.LLMBaseURL,
		KeyLLMAPIKey:  cfg.LLMAPIKey,
		KeyLLMModel:   cfg.LLMModel,

		URLKey(domain.ServicePlex):             cfg.PlexURL,
		CredentialKey(domain.ServicePlex):      cfg.PlexToken,
		URLKey(domain.ServiceSonarr):           cfg.SonarrURL,
		CredentialKey(domain.ServiceSonarr):    cfg.SonarrAPIKey,
		URLKey(domain.ServiceRadarr):           cfg.RadarrURL,
		CredentialKey(domain.ServiceRadarr):    cfg.RadarrAPIKey,
		URLKey(domain.ServiceOverseerr):        cfg.OverseerrURL,
		CredentialKey(domain.ServiceOverseerr): cfg.OverseerrAPIKey,
	}
	if len(cfg.LLMEndpoints) > 0 {
		endpoints := make([]domain.LLMEndpoint, 0, len(cfg.LLMEndpoints))
		for _, ep := range cfg.LLMEndpoints {
			endpoints = append(endpoints, domain.LLMEndpoint{
				ID: ep.ID, Name: ep.Name, BaseURL: ep.BaseURL, APIKey: ep.APIKey, Model: ep.Model, Enabled: ep.Enabled,
			})
		}
		data, err := json.Marshal(endpoints)
		if err != nil {
			return fmt.Errorf("failed to encode endpoints: %w", err)
		}
		values[KeyLLMEndpoints] = string(data)
	}

	token := cfg.MCPBearerToken
	if token == "" {
		token = uuid.New().String()
	}
	values[KeyMCPBearerToken] = token

	for key, value := range values {
		if value == "" {
			continue
		}
		inserted, err := s.kv.SetSettingIfAbsent(ctx, key, value)
		if err != nil {
			return fmt.Errorf("failed to seed setting %s: %w", key, err)
		}
		if inserted {
			s.logger.Debug("seeded setting", "key", key)
		}
	}
	return nil
}

func isNotConfigured(err error) bool {
	return errors.Is(err, domain.ErrServiceNotConfigured)
}
