package health

import (
	"context"
	"sync"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
	// Unhealthy indicates total failure.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	primary   Pinger
	secondary Pinger
	embedding EmbeddingChecker
}

// New creates a Service. Any component can be nil and is then not checked.
func New(primary, secondary Pinger, embedding EmbeddingChecker) *Service {
	return &Service{primary: primary, secondary: secondary, embedding: embedding}
}

// Check runs health checks against all components concurrently.
func (s *Service) Check(ctx context.Context) Report {
	type check struct {
		name string
		fn   func(context.Context) error
	}
	var pending []check
	if s.primary != nil {
		pending = append(pending, check{"primary", s.primary.Ping})
	}
	if s.secondary != nil {
		pending = append(pending, check{"secondary", s.secondary.Ping})
	}
	if s.embedding != nil {
		pending = append(pending, check{"embedding", s.embedding.HealthCheck})
	}

	checks := make(map[string]CheckResult, len(pending))
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, c := range pending {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := CheckOK
			if err := c.fn(ctx); err != nil {
				res = CheckError
			}
			mu.Lock()
			checks[c.name] = res
			mu.Unlock()
		}()
	}
	wg.Wait()

	failed := 0
	for _, v := range checks {
		if v == CheckError {
			failed++
		}
	}

	status := Healthy
	switch {
	case failed == 0:
	case failed == len(checks):
		status = Unhealthy
	default:
		status = Degraded
	}

	return Report{Status: status, Checks: checks}
}
