package services

import (
	"context"
	"errors"
	"time"

	"github.com/Festuskumi/TCtrl-backend/internal/repositories"
)

// HealthServiceDeps bundles collaborators for the health service.
type HealthServiceDeps struct {
	Health repositories.HealthRepository
	Clock  func() time.Time
}

type healthService struct {
	health repositories.HealthRepository
	clock  func() time.Time
}

// NewHealthService assembles the readiness reporting service.
func NewHealthService(deps HealthServiceDeps) (HealthService, error) {
	if deps.Health == nil {
		return nil, errors.New("health service: health repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	return &healthService{
		health: deps.Health,
		clock: func() time.Time {
			return clock().UTC()
		},
	}, nil
}

func (s *healthService) Check(ctx context.Context) (HealthStatus, error) {
	report, err := s.health.Collect(ctx)
	if err != nil {
		return HealthStatus{}, err
	}

	checkedAt := report.CheckedAt
	if checkedAt.IsZero() {
		checkedAt = s.clock()
	}

	status := HealthStatus{
		Healthy:    report.Healthy(),
		CheckedAt:  checkedAt,
		Components: make(map[string]ComponentStatus, len(report.Components)),
	}
	for name, component := range report.Components {
		status.Components[name] = ComponentStatus{
			Healthy: component.Healthy,
			Detail:  component.Detail,
			Latency: component.Latency,
		}
	}
	return status, nil
}
