package service

import (
	"context"
	"fmt"

	"github.com/xiaot623/thinkarr/internal/domain"
	"github.com/xiaot623/thinkarr/internal/infra/tracer"
)

// ListTools returns the tools a caller at level may run.
func (s *Service) ListTools(ctx context.Context, level domain.PermissionLevel) ([]domain.ToolSchema, error) {
	if err := s.catalog.Populate(ctx); err != nil {
		return nil, fmt.Errorf("failed to load tools: %w", err)
	}
	all := s.tools.ListSchemas()
	out := make([]domain.ToolSchema, 0, len(all))
	for _, schema := range all {
		if s.gate.CanExecute(ctx, schema.Function.Name, level) {
			out = append(out, schema)
		}
	}
	return out, nil
}

// CanExecute reports whether a caller at level may run name.
func (s *Service) CanExecute(ctx context.Context, name string, level domain.PermissionLevel) bool {
	return s.gate.CanExecute(ctx, name, level)
}

// InvokeTool runs a tool for an external caller. The permission check comes
// first; a denied call never reaches the registry.
func (s *Service) InvokeTool(ctx context.Context, level domain.PermissionLevel, name, argsJSON string) (string, error) {
	ctx, span := tracer.StartSpan(ctx, "tool.invoke",
		tracer.StringAttr("tool.name", name),
		tracer.StringAttr("permission.level", string(level)))
	defer span.End()

	if !s.gate.CanExecute(ctx, name, level) {
		s.logger.Warn("tool call denied", "tool", name, "level", level)
		tracer.RecordError(span, domain.ErrPermissionDenied)
		return "", fmt.Errorf("%w: %s", domain.ErrPermissionDenied, name)
	}
	if err := s.catalog.Populate(ctx); err != nil {
		return "", fmt.Errorf("failed to load tools: %w", err)
	}
	if !s.tools.Has(name) {
		tracer.RecordError(span, domain.ErrToolNotFound)
		return "", fmt.Errorf("%w: %s", domain.ErrToolNotFound, name)
	}
	result := s.tools.Execute(ctx, name, argsJSON)
	tracer.SetOK(span)
	return result, nil
}
