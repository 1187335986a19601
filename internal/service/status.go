package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/xiaot623/thinkarr/internal/domain"
)

var serviceLabels = map[domain.ServiceName]string{
	domain.ServicePlex:      "Plex",
	domain.ServiceSonarr:    "Sonarr",
	domain.ServiceRadarr:    "Radarr",
	domain.ServiceOverseerr: "Overseerr",
}

// ServiceStatus probes the default LLM endpoint and every media service
// concurrently. The LLM comes first, then the services in display order.
func (s *Service) ServiceStatus(ctx context.Context) ([]domain.ServiceStatus, error) {
	results := make([]domain.ServiceStatus, 1+len(domain.AllServices))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		results[0] = s.checkLLM(gctx)
		return nil
	})
	for i, name := range domain.AllServices {
		g.Go(func() error {
			results[i+1] = s.checkService(gctx, name)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) checkLLM(ctx context.Context) domain.ServiceStatus {
	status := domain.ServiceStatus{Name: "LLM"}
	resolved, err := s.models.Default(ctx)
	if err != nil {
		status.Status = domain.HealthRed
		status.Message = "Not configured"
		if !errors.Is(err, domain.ErrLLMNotConfigured) {
			status.Message = err.Error()
		}
		return status
	}
	status.Configured = true

	ctx, cancel := context.WithTimeout(ctx, s.statusTimeout)
	defer cancel()
	start := time.Now()
	_, err = resolved.Client.ListModels(ctx)
	status.LatencyMs = time.Since(start).Milliseconds()
	if err != nil {
		status.Status = domain.HealthAmber
		status.Message = "Reachable but request failed"
		return status
	}
	status.Status = domain.HealthGreen
	status.Message = fmt.Sprintf("Connected (%s)", resolved.Model)
	return status
}

func (s *Service) checkService(ctx context.Context, name domain.ServiceName) domain.ServiceStatus {
	status := domain.ServiceStatus{Name: serviceLabels[name]}
	if _, err := s.settings.Service(ctx, name); err != nil {
		status.Status = domain.HealthRed
		status.Message = "Not configured"
		if !errors.Is(err, domain.ErrServiceNotConfigured) {
			status.Message = err.Error()
		}
		return status
	}
	status.Configured = true

	probe, ok := s.probes[name]
	if !ok {
		status.Status = domain.HealthAmber
		status.Message = "No health check available"
		return status
	}

	ctx, cancel := context.WithTimeout(ctx, s.statusTimeout)
	defer cancel()
	start := time.Now()
	err := probe.Ping(ctx)
	status.LatencyMs = time.Since(start).Milliseconds()
	if err != nil {
		status.Status = domain.HealthAmber
		status.Message = err.Error()
		return status
	}
	status.Status = domain.HealthGreen
	status.Message = "Connected"
	return status
}
