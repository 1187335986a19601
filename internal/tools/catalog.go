package tools

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/xiaot623/thinkarr/internal/domain"
)

// ServiceLister reports which media services are configured.
type ServiceLister interface {
	ConfiguredServices(ctx context.Context) ([]domain.ServiceName, error)
}

// Providers are the capability providers tool handlers dispatch to.
type Providers struct {
	Plex      PlexProvider
	Sonarr    SonarrProvider
	Radarr    RadarrProvider
	Overseerr OverseerrProvider
}

// Catalog fills a Registry with the tools of every configured service.
// The registration pass runs once per process.
type Catalog struct {
	registry  *Registry
	services  ServiceLister
	providers Providers
	logger    *slog.Logger

	mu        sync.Mutex
	populated bool
}

// NewCatalog creates a catalog over registry.
func NewCatalog(registry *Registry, services ServiceLister, providers Providers, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{registry: registry, services: services, providers: providers, logger: logger}
}

// Registry returns the registry the catalog fills.
func (c *Catalog) Registry() *Registry {
	return c.registry
}

// Populated reports whether the registration pass has completed.
func (c *Catalog) Populated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.populated
}

// Populate registers the tools of every configured service. Calls after the
// first successful one are no-ops. A failed pass is retried on the next call.
func (c *Catalog) Populate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.populated {
		return nil
	}

	services, err := c.services.ConfiguredServices(ctx)
	if err != nil {
		return fmt.Errorf("failed to read configured services: %w", err)
	}

	for _, name := range services {
		defs := c.definitionsFor(name)
		for _, tool := range defs {
			if c.registry.Has(tool.Name) {
				continue
			}
			if err := c.registry.Register(tool); err != nil {
				return fmt.Errorf("failed to register %s: %w", tool.Name, err)
			}
		}
		c.logger.Info("registered service tools", "service", name, "count", len(defs))
	}

	c.populated = true
	return nil
}

func (c *Catalog) definitionsFor(name domain.ServiceName) []Tool {
	switch name {
	case domain.ServicePlex:
		if c.providers.Plex != nil {
			return PlexTools(c.providers.Plex)
		}
	case domain.ServiceSonarr:
		if c.providers.Sonarr != nil {
			return SonarrTools(c.providers.Sonarr)
		}
	case domain.ServiceRadarr:
		if c.providers.Radarr != nil {
			return RadarrTools(c.providers.Radarr)
		}
	case domain.ServiceOverseerr:
		if c.providers.Overseerr != nil {
			return OverseerrTools(c.providers.Overseerr)
		}
	}
	return nil
}
