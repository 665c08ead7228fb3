package search

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/wigg/wigg/internal/provider"
	"github.com/wigg/wigg/internal/search/types"
)

// Tracker receives telemetry events from the pipeline. Tracking must never
// block or fail a search; implementations swallow their own errors.
type Tracker interface {
	Track(event string, fields map[string]any)
}

// Broadcaster sends search lifecycle events to connected clients.
type Broadcaster interface {
	Broadcast(msgType string, payload any) error
}

// Event types broadcast over the events hub.
const (
	EventSearchStarted   = "search:started"
	EventSearchCompleted = "search:completed"
)

// SearchStartedPayload is broadcast when plan execution begins.
type SearchStartedPayload struct {
	SearchID  string   `json:"searchId"`
	Query     string   `json:"query"`
	Providers []string `json:"providers"`
}

// SearchCompletedPayload is broadcast when a search resolves.
type SearchCompletedPayload struct {
	SearchID   string  `json:"searchId"`
	Query      string  `json:"query"`
	Mode       string  `json:"mode"`
	Confidence float64 `json:"confidence"`
	Results    int     `json:"results"`
	ElapsedMs  int64   `json:"elapsedMs"`
}

// Service orchestrates the full pipeline: analyze, plan, execute, normalize,
// deduplicate, resolve. Its boundary is exception-safe: any internal panic is
// converted into a disambiguate-mode result carrying the error message.
type Service struct {
	registry    *provider.Registry
	planner     *Planner
	executor    *Executor
	cache       *Cache
	tracker     Tracker
	broadcaster Broadcaster
	logger      zerolog.Logger
}

// NewService creates a search service over the given provider registry.
func NewService(registry *provider.Registry, logger zerolog.Logger) *Service {
	return &Service{
		registry: registry,
		planner:  NewPlanner(registry),
		executor: NewExecutor(registry, logger),
		cache:    NewCache(DefaultCacheConfig()),
		logger:   logger.With().Str("component", "search").Logger(),
	}
}

// SetTracker sets the telemetry sink for pipeline events.
func (s *Service) SetTracker(tracker Tracker) {
	s.tracker = tracker
}

// SetBroadcaster sets the events hub for search lifecycle broadcasts.
func (s *Service) SetBroadcaster(broadcaster Broadcaster) {
	s.broadcaster = broadcaster
}

// SetCacheConfig replaces the result cache with one using the given settings.
func (s *Service) SetCacheConfig(cfg CacheConfig) {
	s.cache.Close()
	s.cache = NewCache(cfg)
}

// Registry returns the provider registry backing this service.
func (s *Service) Registry() *provider.Registry {
	return s.registry
}

// Close releases background resources.
func (s *Service) Close() {
	s.cache.Close()
}

// Execute runs one smart search. The only error it returns is input
// validation failure before orchestration begins; every downstream failure
// degrades into the returned result instead.
func (s *Service) Execute(ctx context.Context, input types.SearchInput) (resolved types.ResolvedSearch, err error) {
	if err := types.ValidateInput(&input); err != nil {
		return types.ResolvedSearch{}, err
	}

	searchID := uuid.NewString()
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Str("searchId", searchID).
				Str("query", input.Query).
				Interface("panic", r).
				Msg("Search pipeline panicked; returning empty resolution")
			resolved = types.ResolvedSearch{
				Decision: types.SearchDecision{
					Mode:       types.DecisionDisambiguate,
					Confidence: 0.0,
					Why:        []string{fmt.Sprintf("internal error: %v", r)},
				},
				Primary:      emptyEntityCard(input.Query, types.MediaTypeMovie),
				Alternatives: []types.EntityCard{},
			}
			err = nil
		}
	}()

	cacheKey := CacheKey(input)
	if cached, ok := s.cache.Get(cacheKey); ok {
		s.logger.Debug().
			Str("searchId", searchID).
			Str("query", input.Query).
			Msg("Serving resolved search from cache")
		return cached, nil
	}

	predicted := PredictMediaTypes(input.Query, input.Profile)
	plans := s.planner.GeneratePlans(input)
	timeToFirstPlan := time.Since(start)

	providers := make([]string, len(plans))
	for i, plan := range plans {
		providers[i] = plan.Key()
	}
	s.broadcast(EventSearchStarted, SearchStartedPayload{
		SearchID:  searchID,
		Query:     input.Query,
		Providers: providers,
	})

	s.logger.Info().
		Str("searchId", searchID).
		Str("query", input.Query).
		Int("plans", len(plans)).
		Str("topPredictedType", string(predicted[0])).
		Msg("Starting smart search")

	raw := s.executor.ExecutePlans(ctx, plans)

	apiErrors := 0
	for _, res := range raw {
		if !res.OK {
			apiErrors++
		}
	}

	normalized := NormalizeResults(s.registry, raw, plans, s.logger)
	deduped := Deduplicate(normalized)

	resolved = Resolve(deduped, input.Query, predicted[0], input.Profile)
	resolved.QueryPlanEcho = plans
	resolved.UnitHint = mergeUnitHints(input.Query)

	elapsed := time.Since(start)

	s.track("search_resolved", map[string]any{
		"search_id":          searchID,
		"time_to_first_plan": timeToFirstPlan.Milliseconds(),
		"time_to_resolve":    elapsed.Milliseconds(),
		"providers_called":   providers,
		"api_errors":         apiErrors,
		"decision_mode":      string(resolved.Decision.Mode),
		"confidence":         resolved.Decision.Confidence,
	})
	s.broadcast(EventSearchCompleted, SearchCompletedPayload{
		SearchID:   searchID,
		Query:      input.Query,
		Mode:       string(resolved.Decision.Mode),
		Confidence: resolved.Decision.Confidence,
		Results:    len(deduped),
		ElapsedMs:  elapsed.Milliseconds(),
	})

	s.logger.Info().
		Str("searchId", searchID).
		Str("query", input.Query).
		Str("mode", string(resolved.Decision.Mode)).
		Float64("confidence", resolved.Decision.Confidence).
		Int("results", len(deduped)).
		Int("apiErrors", apiErrors).
		Dur("elapsed", elapsed).
		Msg("Smart search resolved")

	s.cache.Set(cacheKey, resolved)
	return resolved, nil
}

// mergeUnitHints combines episode and chapter extraction into one hint,
// present only if either extractor matched.
func mergeUnitHints(query string) *types.UnitHint {
	episode := ExtractEpisodeInfo(query)
	chapter := ExtractChapterInfo(query)
	if episode == nil && chapter == nil {
		return nil
	}

	hint := &types.UnitHint{}
	if episode != nil {
		hint.Season = episode.Season
		hint.Episode = episode.Episode
	}
	if chapter != nil {
		hint.Chapter = chapter.Chapter
		hint.Volume = chapter.Volume
	}
	return hint
}

// track forwards a telemetry event; a nil or failing tracker never affects
// the search result.
func (s *Service) track(event string, fields map[string]any) {
	if s.tracker == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn().Interface("panic", r).Msg("Telemetry tracker panicked")
		}
	}()
	s.tracker.Track(event, fields)
}

// broadcast forwards a lifecycle event; failures are logged and ignored.
func (s *Service) broadcast(msgType string, payload any) {
	if s.broadcaster == nil {
		return
	}
	if err := s.broadcaster.Broadcast(msgType, payload); err != nil {
		s.logger.Warn().Err(err).Str("event", msgType).Msg("Failed to broadcast search event")
	}
}
