// Package telemetry buffers search pipeline events in memory and flushes
// them to the database on an interval.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"
)

// Event is a single recorded pipeline event.
type Event struct {
	SearchID  string         `json:"searchId"`
	Name      string         `json:"name"`
	Fields    map[string]any `json:"fields,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Config holds telemetry service settings.
type Config struct {
	Enabled       bool
	BufferSize    int
	FlushInterval time.Duration
}

// Service collects events into a ring buffer and periodically flushes them.
// A disabled service accepts Track calls and drops everything.
type Service struct {
	config    Config
	buffer    *RingBuffer[Event]
	store     *Store
	scheduler gocron.Scheduler
	logger    zerolog.Logger
}

// NewService creates a new telemetry service.
func NewService(cfg Config, store *Store, logger zerolog.Logger) (*Service, error) {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1000
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 30 * time.Second
	}

	gs, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	return &Service{
		config:    cfg,
		buffer:    NewRingBuffer[Event](cfg.BufferSize),
		store:     store,
		scheduler: gs,
		logger:    logger.With().Str("component", "telemetry").Logger(),
	}, nil
}

// Start schedules the periodic flush job.
func (s *Service) Start() error {
	if !s.config.Enabled {
		s.logger.Info().Msg("Telemetry disabled")
		return nil
	}

	_, err := s.scheduler.NewJob(
		gocron.DurationJob(s.config.FlushInterval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := s.Flush(ctx); err != nil {
				s.logger.Error().Err(err).Msg("Telemetry flush failed")
			}
		}),
		gocron.WithName("telemetry-flush"),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule flush job: %w", err)
	}

	s.scheduler.Start()
	s.logger.Info().
		Dur("interval", s.config.FlushInterval).
		Int("bufferSize", s.config.BufferSize).
		Msg("Telemetry started")
	return nil
}

// Stop flushes remaining events and shuts down the scheduler.
func (s *Service) Stop() error {
	if s.config.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.Flush(ctx); err != nil {
			s.logger.Error().Err(err).Msg("Final telemetry flush failed")
		}
	}
	return s.scheduler.Shutdown()
}

// Track records an event. It never blocks and never fails; when the buffer
// is full the oldest event is dropped.
func (s *Service) Track(name string, fields map[string]any) {
	if !s.config.Enabled {
		return
	}

	searchID, _ := fields["search_id"].(string)
	s.buffer.Push(Event{
		SearchID:  searchID,
		Name:      name,
		Fields:    fields,
		Timestamp: time.Now().UTC(),
	})
}

// Flush drains the buffer and persists the events. Events that fail to
// persist are dropped; telemetry loss must never affect searches.
func (s *Service) Flush(ctx context.Context) error {
	events := s.buffer.Drain()
	if len(events) == 0 {
		return nil
	}

	if err := s.store.SaveEvents(ctx, events); err != nil {
		return fmt.Errorf("failed to save %d events: %w", len(events), err)
	}

	s.logger.Debug().Int("count", len(events)).Msg("Flushed telemetry events")
	return nil
}

// Pending returns the number of buffered, unflushed events.
func (s *Service) Pending() int {
	return s.buffer.Len()
}
