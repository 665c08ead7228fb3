package search

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/wigg/wigg/internal/provider"
	"github.com/wigg/wigg/internal/search/types"
)

// planOutcome carries the settled result of a single plan back to the
// collector goroutine.
type planOutcome struct {
	key    string
	result types.ProviderResult
}

// Executor fans plans out to their adapters concurrently and collects every
// settlement, success or failure, before returning. A single provider's
// failure or timeout never aborts the others and never escapes as an error.
type Executor struct {
	registry *provider.Registry
	logger   zerolog.Logger
}

// NewExecutor creates an execution engine over the given registry.
func NewExecutor(registry *provider.Registry, logger zerolog.Logger) *Executor {
	return &Executor{
		registry: registry,
		logger:   logger.With().Str("component", "search-executor").Logger(),
	}
}

// ExecutePlans runs every plan concurrently, racing each adapter call against
// the plan's own timeout. Results are keyed by provider:endpoint. The engine's
// output is fixed once every race settles; a timed-out call that eventually
// resolves is ignored, not merged in.
func (e *Executor) ExecutePlans(ctx context.Context, plans []types.QueryPlan) types.RawProviderResults {
	results := make(types.RawProviderResults, len(plans))
	if len(plans) == 0 {
		return results
	}

	var wg sync.WaitGroup
	outcomes := make(chan planOutcome, len(plans))

	for _, plan := range plans {
		wg.Add(1)
		go func(plan types.QueryPlan) {
			defer wg.Done()
			outcomes <- planOutcome{key: plan.Key(), result: e.executePlan(ctx, plan)}
		}(plan)
	}

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	for outcome := range outcomes {
		results[outcome.key] = outcome.result
	}
	return results
}

// executePlan resolves the plan's adapter and races the call against the
// plan's timeout. Adapter panics are converted into failed results.
func (e *Executor) executePlan(ctx context.Context, plan types.QueryPlan) types.ProviderResult {
	start := time.Now()

	adapter, err := e.registry.Get(plan.Provider)
	if err != nil {
		e.logger.Warn().
			Str("provider", plan.Provider).
			Str("endpoint", plan.Endpoint).
			Msg("No adapter registered for planned provider")
		return types.ProviderResult{
			ElapsedMs: time.Since(start).Milliseconds(),
			Error:     err.Error(),
		}
	}

	timeout := time.Duration(plan.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = defaultPlanTimeoutMs * time.Millisecond
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type callResult struct {
		data any
		err  error
	}
	// Buffered so a late settlement after the race is decided is dropped
	// instead of leaking the goroutine.
	done := make(chan callResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- callResult{err: fmt.Errorf("adapter panic: %v", r)}
			}
		}()
		data, execErr := adapter.Execute(callCtx, plan)
		done <- callResult{data: data, err: execErr}
	}()

	select {
	case res := <-done:
		elapsed := time.Since(start)
		if res.err != nil {
			e.logger.Warn().
				Err(res.err).
				Str("provider", plan.Provider).
				Str("endpoint", plan.Endpoint).
				Dur("elapsed", elapsed).
				Msg("Provider call failed")
			return types.ProviderResult{
				ElapsedMs: elapsed.Milliseconds(),
				Error:     res.err.Error(),
			}
		}
		e.logger.Debug().
			Str("provider", plan.Provider).
			Str("endpoint", plan.Endpoint).
			Dur("elapsed", elapsed).
			Msg("Provider call completed")
		return types.ProviderResult{
			OK:        true,
			ElapsedMs: elapsed.Milliseconds(),
			Data:      res.data,
		}
	case <-callCtx.Done():
		elapsed := time.Since(start)
		e.logger.Warn().
			Str("provider", plan.Provider).
			Str("endpoint", plan.Endpoint).
			Dur("elapsed", elapsed).
			Msg("Provider call timed out")
		return types.ProviderResult{
			ElapsedMs: elapsed.Milliseconds(),
			Error:     fmt.Sprintf("timeout after %s", timeout),
		}
	}
}
