package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/xiaot623/thinkarr/internal/domain"
)

// EndpointSource supplies the configured endpoints, in priority order.
type EndpointSource interface {
	Endpoints(ctx context.Context) ([]domain.LLMEndpoint, error)
}

// ClientFactory builds a client for one endpoint.
type ClientFactory func(ep domain.LLMEndpoint) Client

// Resolved is the outcome of resolving a model selector.
type Resolved struct {
	Client   Client
	Endpoint domain.LLMEndpoint
	Model    string
}

type cachedClient struct {
	baseURL string
	apiKey  string
	client  Client
}

// Resolver maps "<endpointId>:<model>" selectors onto clients. Endpoints are
// read on every call so edits apply without a restart; clients are cached per
// endpoint id and rebuilt when its base URL or key changes.
type Resolver struct {
	source  EndpointSource
	factory ClientFactory

	mu    sync.Mutex
	cache map[string]cachedClient
}

// NewResolver creates a resolver.
func NewResolver(source EndpointSource, factory ClientFactory) *Resolver {
	return &Resolver{
		source:  source,
		factory: factory,
		cache:   make(map[string]cachedClient),
	}
}

// ParseSelector splits a selector at its first colon. A selector without a
// colon is a bare model name.
func ParseSelector(selector string) (endpointID, model string) {
	selector = strings.TrimSpace(selector)
	if id, m, ok := strings.Cut(selector, ":"); ok {
		return id, m
	}
	return "", selector
}

// Enabled returns the enabled endpoints in configured order.
func (r *Resolver) Enabled(ctx context.Context) ([]domain.LLMEndpoint, error) {
	all, err := r.source.Endpoints(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load llm endpoints: %w", err)
	}
	return enabledOf(all), nil
}

func enabledOf(all []domain.LLMEndpoint) []domain.LLMEndpoint {
	enabled := make([]domain.LLMEndpoint, 0, len(all))
	for _, ep := range all {
		if ep.Enabled && ep.BaseURL != "" {
			enabled = append(enabled, ep)
		}
	}
	return enabled
}

// Default resolves the first enabled endpoint with its configured model.
func (r *Resolver) Default(ctx context.Context) (*Resolved, error) {
	return r.Resolve(ctx, "")
}

// Resolve picks the endpoint and model for selector. The part before the
// first colon is an endpoint id only if some configured endpoint has that
// id; otherwise the whole selector is a model name for the default
// endpoint, so tags like "llama3:8b" survive. A disabled endpoint id falls
// back to the default endpoint and its model.
func (r *Resolver) Resolve(ctx context.Context, selector string) (*Resolved, error) {
	all, err := r.source.Endpoints(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load llm endpoints: %w", err)
	}
	endpoints := enabledOf(all)
	if len(endpoints) == 0 {
		return nil, domain.ErrLLMNotConfigured
	}

	ep := endpoints[0]
	id, model := ParseSelector(selector)
	switch {
	case id == "":
	case !hasEndpoint(all, id):
		model = strings.TrimSpace(selector)
	default:
		found := false
		for _, candidate := range endpoints {
			if candidate.ID == id {
				ep, found = candidate, true
				break
			}
		}
		if !found {
			model = ""
		}
	}
	if model == "" {
		model = ep.Model
	}
	if model == "" {
		return nil, fmt.Errorf("%w: no model set for endpoint %s", domain.ErrLLMNotConfigured, ep.ID)
	}

	return &Resolved{Client: r.ClientFor(ep), Endpoint: ep, Model: model}, nil
}

func hasEndpoint(all []domain.LLMEndpoint, id string) bool {
	for _, ep := range all {
		if ep.ID == id {
			return true
		}
	}
	return false
}

// ClientFor returns the cached client for ep, rebuilding it if the
// endpoint's connection details changed.
func (r *Resolver) ClientFor(ep domain.LLMEndpoint) Client {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cached, ok := r.cache[ep.ID]; ok && cached.baseURL == ep.BaseURL && cached.apiKey == ep.APIKey {
		return cached.client
	}
	client := r.factory(ep)
	r.cache[ep.ID] = cachedClient{baseURL: ep.BaseURL, apiKey: ep.APIKey, client: client}
	return client
}
