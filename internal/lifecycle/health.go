// Package lifecycle coordinates readiness and graceful shutdown of the service.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"
)

// ErrDraining is reported by Readiness once shutdown has begun.
var ErrDraining = errors.New("service is shutting down")

// HealthChecker exposes liveness and readiness probes.
type HealthChecker interface {
	Liveness(ctx context.Context) error
	Readiness(ctx context.Context) error
}

// DependencyChecker reports per-component statuses, "OK" meaning healthy.
type DependencyChecker interface {
	Check(ctx context.Context) map[string]string
}

// Probes answers liveness with the process state and readiness with the
// dependency checks.
type Probes struct {
	deps     DependencyChecker
	draining atomic.Bool
	log      *slog.Logger
}

var _ HealthChecker = (*Probes)(nil)

// NewProbes creates a new Probes instance. deps may be nil.
func NewProbes(deps DependencyChecker, log *slog.Logger) *Probes {
	if log == nil {
		log = slog.Default()
	}
	return &Probes{deps: deps, log: log}
}

// Liveness reports success while the process runs.
func (p *Probes) Liveness(ctx context.Context) error {
	p.log.Debug("liveness probe called")
	return nil
}

// Readiness fails once draining or when any dependency is unhealthy.
func (p *Probes) Readiness(ctx context.Context) error {
	if p.draining.Load() {
		return ErrDraining
	}
	if p.deps == nil {
		return nil
	}

	var failed []string
	for name, status := range p.deps.Check(ctx) {
		if status != "OK" {
			failed = append(failed, fmt.Sprintf("%s: %s", name, status))
		}
	}
	if len(failed) == 0 {
		return nil
	}

	sort.Strings(failed)
	return errors.New(strings.Join(failed, "; "))
}

// Drain makes Readiness fail so load balancers stop routing new requests.
func (p *Probes) Drain() {
	if !p.draining.Swap(true) {
		p.log.Info("readiness switched to draining")
	}
}
