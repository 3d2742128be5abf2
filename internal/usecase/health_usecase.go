package usecase

import (
	"context"
	"sort"
	"sync"
	"time"
)

// HealthCheck probes one dependency; nil means reachable.
type HealthCheck func(ctx context.Context) error

type HealthUsecase interface {
	Check(ctx context.Context) (map[string]string, bool)
}

type healthUsecase struct {
	checks  map[string]HealthCheck
	timeout time.Duration
}

// NewHealthUsecase runs every named check concurrently under one timeout.
func NewHealthUsecase(checks map[string]HealthCheck) HealthUsecase {
	return &healthUsecase{checks: checks, timeout: 3 * time.Second}
}

// Check reports "ok" or the failure per dependency plus an overall status.
// The service stays usable offline, so a failed check degrades rather than fails the whole report.
func (u *healthUsecase) Check(ctx context.Context) (map[string]string, bool) {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	names := make([]string, 0, len(u.checks))
	for name := range u.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make([]string, len(names))
	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func(i int, check HealthCheck) {
			defer wg.Done()
			if err := check(ctx); err != nil {
				results[i] = err.Error()
				return
			}
			results[i] = "ok"
		}(i, u.checks[name])
	}
	wg.Wait()

	healthy := true
	out := map[string]string{"status": "ok"}
	for i, name := range names {
		out[name] = results[i]
		if results[i] != "ok" {
			healthy = false
		}
	}
	if !healthy {
		out["status"] = "degraded"
	}
	return out, healthy
}
