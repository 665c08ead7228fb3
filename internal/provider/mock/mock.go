// Package mock provides a configurable in-memory provider adapter for tests
// and developer mode.
package mock

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/wigg/wigg/internal/search/types"
)

// Adapter is a fake provider whose behavior is fully controlled by its
// fields. The zero value is a ready adapter named "mock" with no results.
type Adapter struct {
	ProviderName string
	NotReady     bool
	Results      []types.NormalizedResult
	ExecuteErr   error
	NormalizeErr error
	Delay        time.Duration

	// ExecuteFn, when set, replaces the default Execute behavior entirely.
	ExecuteFn func(ctx context.Context, plan types.QueryPlan) (any, error)

	mu    sync.Mutex
	calls []types.QueryPlan
}

// New creates a mock adapter with the given name and canned results.
func New(name string, results ...types.NormalizedResult) *Adapter {
	return &Adapter{ProviderName: name, Results: results}
}

func (a *Adapter) Name() string {
	if a.ProviderName == "" {
		return "mock"
	}
	return a.ProviderName
}

func (a *Adapter) Ready() bool {
	return !a.NotReady
}

// Execute records the plan and returns the canned results filtered by the
// plan's query, or the configured error. A Delay simulates a slow provider
// and respects context cancellation.
func (a *Adapter) Execute(ctx context.Context, plan types.QueryPlan) (any, error) {
	a.mu.Lock()
	a.calls = append(a.calls, plan)
	a.mu.Unlock()

	if a.ExecuteFn != nil {
		return a.ExecuteFn(ctx, plan)
	}
	if a.Delay > 0 {
		select {
		case <-time.After(a.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if a.ExecuteErr != nil {
		return nil, a.ExecuteErr
	}

	query := strings.ToLower(plan.Params["query"])
	var matched []types.NormalizedResult
	for _, r := range a.Results {
		if query == "" || strings.Contains(strings.ToLower(r.Title), query) {
			matched = append(matched, r)
		}
	}
	return matched, nil
}

// Calls returns a copy of the plans Execute has seen.
func (a *Adapter) Calls() []types.QueryPlan {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]types.QueryPlan(nil), a.calls...)
}

// Normalize passes through the results Execute produced.
func (a *Adapter) Normalize(raw any) ([]types.NormalizedResult, error) {
	if a.NormalizeErr != nil {
		return nil, a.NormalizeErr
	}
	results, _ := raw.([]types.NormalizedResult)
	return results, nil
}
