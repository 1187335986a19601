package service

import (
	"context"

	"github.com/xiaot623/thinkarr/internal/domain"
)

// ListModels returns one selectable option per enabled endpoint.
func (s *Service) ListModels(ctx context.Context) ([]domain.ModelOption, error) {
	endpoints, err := s.models.Enabled(ctx)
	if err != nil {
		return nil, err
	}
	options := make([]domain.ModelOption, 0, len(endpoints))
	for _, ep := range endpoints {
		if ep.Model == "" {
			continue
		}
		label := ep.Model
		if len(endpoints) > 1 {
			label = ep.Name + " - " + ep.Model
		}
		options = append(options, domain.ModelOption{
			ID:         ep.ID + ":" + ep.Model,
			Label:      label,
			EndpointID: ep.ID,
			Model:      ep.Model,
		})
	}
	return options, nil
}
