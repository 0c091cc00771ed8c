package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/vanshika/fintrace/txindex/internal/graph"
)

// HealthService defines behaviour for readiness checks.
type HealthService interface {
	Probe(ctx context.Context) error
}

// HealthChecks runs every check and joins their failures.
type HealthChecks []HealthService

func (hc HealthChecks) Probe(ctx context.Context) error {
	var errs []error
	for _, check := range hc {
		if check == nil {
			continue
		}
		if err := check.Probe(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Checker is satisfied by anything that can verify its own invariants.
type Checker interface {
	Check() error
}

// IndexHealthService fails when the index invariants no longer hold.
type IndexHealthService struct {
	Index Checker
}

func (s IndexHealthService) Probe(context.Context) error {
	if s.Index == nil {
		return nil
	}
	if err := s.Index.Check(); err != nil {
		return fmt.Errorf("index: %w", err)
	}
	return nil
}

// GraphHealthService verifies graph connectivity when export is configured.
type GraphHealthService struct {
	Client graph.Client
}

// Probe implements the HealthService interface.
func (s GraphHealthService) Probe(ctx context.Context) error {
	if s.Client == nil {
		return nil
	}
	if err := s.Client.VerifyConnectivity(ctx); err != nil {
		return fmt.Errorf("graph: %w", err)
	}
	return nil
}
