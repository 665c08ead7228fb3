package search

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/wigg/wigg/internal/provider"
	"github.com/wigg/wigg/internal/provider/mock"
	"github.com/wigg/wigg/internal/search/types"
)

// recordingTracker captures telemetry events for assertions.
type recordingTracker struct {
	mu     sync.Mutex
	events []string
	fields []map[string]any
}

func (r *recordingTracker) Track(event string, fields map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	r.fields = append(r.fields, fields)
}

// recordingBroadcaster captures hub broadcasts for assertions.
type recordingBroadcaster struct {
	mu       sync.Mutex
	messages []string
}

func (r *recordingBroadcaster) Broadcast(msgType string, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msgType)
	return nil
}

func wireResult() types.NormalizedResult {
	return types.NormalizedResult{
		ID:         "tmdb:tv:1438",
		Title:      "The Wire",
		Type:       types.MediaTypeTV,
		Year:       2002,
		Popularity: 850,
		Rating:     8.5,
		Creators:   []string{"David Simon"},
		ProviderData: map[string]any{
			"tmdb": map[string]any{"id": 1438},
		},
	}
}

func newTestService(adapters ...provider.Adapter) *Service {
	registry := provider.NewRegistry(zerolog.Nop())
	for _, adapter := range adapters {
		registry.Register(adapter)
	}
	return NewService(registry, zerolog.Nop())
}

func TestExecuteValidation(t *testing.T) {
	service := newTestService()
	defer service.Close()

	_, err := service.Execute(context.Background(), types.SearchInput{Query: "   "})
	if !errors.Is(err, types.ErrEmptyQuery) {
		t.Errorf("err = %v, want ErrEmptyQuery", err)
	}
}

func TestExecuteResolvesKnownTitle(t *testing.T) {
	tmdbMock := mock.New(types.ProviderTMDB, wireResult())
	service := newTestService(tmdbMock)
	defer service.Close()

	resolved, err := service.Execute(context.Background(), types.SearchInput{Query: "The Wire"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if resolved.Primary.TitleID != "tmdb:tv:1438" {
		t.Errorf("primary = %q, want tmdb:tv:1438", resolved.Primary.TitleID)
	}
	if resolved.Decision.Mode != types.DecisionAutoSelect {
		t.Errorf("mode = %q (confidence %.3f), want auto_select",
			resolved.Decision.Mode, resolved.Decision.Confidence)
	}
	if len(resolved.QueryPlanEcho) == 0 {
		t.Error("expected the executed plans echoed in the result")
	}
	if resolved.UnitHint != nil {
		t.Errorf("unit hint = %+v, want nil for a plain title", resolved.UnitHint)
	}
}

func TestExecuteNeverFailsOnProviderErrors(t *testing.T) {
	broken := mock.New(types.ProviderTMDB)
	broken.ExecuteErr = errors.New("every call fails")
	service := newTestService(broken)
	defer service.Close()

	resolved, err := service.Execute(context.Background(), types.SearchInput{Query: "the wire"})
	if err != nil {
		t.Fatalf("Execute returned error despite failures-as-data contract: %v", err)
	}

	if resolved.Decision.Mode != types.DecisionDisambiguate {
		t.Errorf("mode = %q, want disambiguate", resolved.Decision.Mode)
	}
	if resolved.Decision.Confidence != 0.0 {
		t.Errorf("confidence = %.3f, want 0", resolved.Decision.Confidence)
	}
	if len(resolved.Decision.Why) == 0 {
		t.Error("expected a why trail for the empty resolution")
	}
}

func TestExecuteRecoversFromAdapterPanics(t *testing.T) {
	panicky := mock.New(types.ProviderTMDB)
	panicky.ExecuteFn = func(ctx context.Context, plan types.QueryPlan) (any, error) {
		panic("adapter bug")
	}
	service := newTestService(panicky)
	defer service.Close()

	resolved, err := service.Execute(context.Background(), types.SearchInput{Query: "the wire"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if resolved.Decision.Mode != types.DecisionDisambiguate {
		t.Errorf("mode = %q, want disambiguate", resolved.Decision.Mode)
	}
}

func TestExecuteUnitHints(t *testing.T) {
	service := newTestService(mock.New(types.ProviderTMDB, wireResult()))
	defer service.Close()

	resolved, err := service.Execute(context.Background(), types.SearchInput{Query: "the wire s01e03"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if resolved.UnitHint == nil {
		t.Fatal("expected a unit hint for an episode-marked query")
	}
	if resolved.UnitHint.Season != 1 || resolved.UnitHint.Episode != 3 {
		t.Errorf("unit hint = %+v, want season 1 episode 3", resolved.UnitHint)
	}
}

func TestExecuteUsesCache(t *testing.T) {
	tmdbMock := mock.New(types.ProviderTMDB, wireResult())
	service := newTestService(tmdbMock)
	defer service.Close()

	if _, err := service.Execute(context.Background(), types.SearchInput{Query: "The Wire"}); err != nil {
		t.Fatalf("first Execute: %v", err)
	}
	callsAfterFirst := len(tmdbMock.Calls())
	if callsAfterFirst == 0 {
		t.Fatal("expected adapter calls on first search")
	}

	if _, err := service.Execute(context.Background(), types.SearchInput{Query: "the wire"}); err != nil {
		t.Fatalf("second Execute: %v", err)
	}
	if got := len(tmdbMock.Calls()); got != callsAfterFirst {
		t.Errorf("second search hit providers (%d calls, want %d); cache miss", got, callsAfterFirst)
	}
}

func TestExecuteCacheKeyedByLocale(t *testing.T) {
	tmdbMock := mock.New(types.ProviderTMDB, wireResult())
	service := newTestService(tmdbMock)
	defer service.Close()

	if _, err := service.Execute(context.Background(), types.SearchInput{Query: "The Wire", Locale: "en-US"}); err != nil {
		t.Fatalf("first Execute: %v", err)
	}
	callsAfterFirst := len(tmdbMock.Calls())

	resolved, err := service.Execute(context.Background(), types.SearchInput{Query: "The Wire", Locale: "de-DE"})
	if err != nil {
		t.Fatalf("second Execute: %v", err)
	}

	if got := len(tmdbMock.Calls()); got == callsAfterFirst {
		t.Errorf("locale change served from cache (%d calls); expected fresh provider calls", got)
	}
	for _, plan := range resolved.QueryPlanEcho {
		if got := plan.Params["locale"]; got != "de-DE" {
			t.Errorf("echoed plan %s carries locale %q, want de-DE", plan.Key(), got)
		}
	}
}

func TestExecuteEmitsTelemetryAndEvents(t *testing.T) {
	tracker := &recordingTracker{}
	broadcaster := &recordingBroadcaster{}

	service := newTestService(mock.New(types.ProviderTMDB, wireResult()))
	defer service.Close()
	service.SetTracker(tracker)
	service.SetBroadcaster(broadcaster)

	if _, err := service.Execute(context.Background(), types.SearchInput{Query: "The Wire"}); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	tracker.mu.Lock()
	defer tracker.mu.Unlock()
	if len(tracker.events) != 1 || tracker.events[0] != "search_resolved" {
		t.Fatalf("tracked events = %v, want [search_resolved]", tracker.events)
	}
	fields := tracker.fields[0]
	for _, key := range []string{"search_id", "time_to_first_plan", "time_to_resolve", "providers_called", "api_errors", "decision_mode", "confidence"} {
		if _, ok := fields[key]; !ok {
			t.Errorf("telemetry fields missing %q", key)
		}
	}

	broadcaster.mu.Lock()
	defer broadcaster.mu.Unlock()
	if len(broadcaster.messages) != 2 {
		t.Fatalf("broadcasts = %v, want started and completed", broadcaster.messages)
	}
	if broadcaster.messages[0] != EventSearchStarted || broadcaster.messages[1] != EventSearchCompleted {
		t.Errorf("broadcasts = %v, want [%s %s]", broadcaster.messages, EventSearchStarted, EventSearchCompleted)
	}
}

func TestExecuteSurvivesTrackerPanic(t *testing.T) {
	service := newTestService(mock.New(types.ProviderTMDB, wireResult()))
	defer service.Close()
	service.SetTracker(panickyTracker{})

	if _, err := service.Execute(context.Background(), types.SearchInput{Query: "The Wire"}); err != nil {
		t.Fatalf("Execute failed because of a telemetry panic: %v", err)
	}
}

type panickyTracker struct{}

func (panickyTracker) Track(event string, fields map[string]any) {
	panic("telemetry sink down")
}
