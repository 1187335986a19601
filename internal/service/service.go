// Package service implements the assistant's use cases: chat turns,
// conversations, models, service status and the external tool gateway.
package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/xiaot623/thinkarr/internal/adapter/llm"
	"github.com/xiaot623/thinkarr/internal/domain"
	"github.com/xiaot623/thinkarr/internal/repository"
)

// MaxToolRounds bounds the model calls of a single turn.
const MaxToolRounds = 5

// ToolRunner runs registered tools.
type ToolRunner interface {
	HasAny() bool
	Has(name string) bool
	ListSchemas() []domain.ToolSchema
	Execute(ctx context.Context, name, argsJSON string) string
}

// ToolCatalog fills the tool registry from the configured services.
type ToolCatalog interface {
	Populate(ctx context.Context) error
}

// ModelResolver maps model selectors onto LLM clients.
type ModelResolver interface {
	Resolve(ctx context.Context, selector string) (*llm.Resolved, error)
	Default(ctx context.Context) (*llm.Resolved, error)
	Enabled(ctx context.Context) ([]domain.LLMEndpoint, error)
}

// PermissionGate decides whether an external caller may run a tool.
type PermissionGate interface {
	CanExecute(ctx context.Context, toolName string, level domain.PermissionLevel) bool
}

// ServiceSettings exposes runtime configuration.
type ServiceSettings interface {
	Service(ctx context.Context, name domain.ServiceName) (domain.ServiceCredentials, error)
	ConfiguredServices(ctx context.Context) ([]domain.ServiceName, error)
	MCPToken(ctx context.Context) (string, error)
}

// Pinger checks that a media service answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators of a Service.
type Deps struct {
	Store    repository.Store
	Settings ServiceSettings
	Catalog  ToolCatalog
	Tools    ToolRunner
	Models   ModelResolver
	Gate     PermissionGate
	Probes   map[domain.ServiceName]Pinger
	Logger   *slog.Logger

	TitleTimeout  time.Duration
	StatusTimeout time.Duration
}

// Service is the application layer.
type Service struct {
	store    repository.Store
	settings ServiceSettings
	catalog  ToolCatalog
	tools    ToolRunner
	models   ModelResolver
	gate     PermissionGate
	probes   map[domain.ServiceName]Pinger
	logger   *slog.Logger

	titleTimeout  time.Duration
	statusTimeout time.Duration

	background sync.WaitGroup
}

// New creates a Service.
func New(d Deps) *Service {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	titleTimeout := d.TitleTimeout
	if titleTimeout <= 0 {
		titleTimeout = 30 * time.Second
	}
	statusTimeout := d.StatusTimeout
	if statusTimeout <= 0 {
		statusTimeout = 5 * time.Second
	}
	return &Service{
		store:         d.Store,
		settings:      d.Settings,
		catalog:       d.Catalog,
		tools:         d.Tools,
		models:        d.Models,
		gate:          d.Gate,
		probes:        d.Probes,
		logger:        logger.With("component", "service"),
		titleTimeout:  titleTimeout,
		statusTimeout: statusTimeout,
	}
}

// Wait blocks until background tasks started by turns have finished.
func (s *Service) Wait() {
	s.background.Wait()
}

func (s *Service) spawn(fn func()) {
	s.background.Go(fn)
}

func newID() string {
	return ulid.Make().String()
}

func (s *Service) appendMessage(ctx context.Context, msg *domain.Message) error {
	msg.ID = newID()
	return s.store.AppendMessage(ctx, msg)
}
