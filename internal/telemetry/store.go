package telemetry

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Store persists telemetry events to the database.
type Store struct {
	db *sql.DB
}

// NewStore creates a new telemetry store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// SaveEvents writes a batch of events in a single transaction.
func (s *Store) SaveEvents(ctx context.Context, events []Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO search_events (search_id, event, fields, created_at) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, event := range events {
		fields, err := json.Marshal(event.Fields)
		if err != nil {
			fields = []byte("{}")
		}
		if _, err := stmt.ExecContext(ctx, event.SearchID, event.Name, string(fields), event.Timestamp); err != nil {
			return fmt.Errorf("failed to insert event: %w", err)
		}
	}

	return tx.Commit()
}

// RecentEvents returns up to limit events, newest first.
func (s *Store) RecentEvents(ctx context.Context, limit int) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT search_id, event, fields, created_at FROM search_events ORDER BY created_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			event     Event
			rawFields string
			createdAt time.Time
		)
		if err := rows.Scan(&event.SearchID, &event.Name, &rawFields, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		event.Timestamp = createdAt
		if err := json.Unmarshal([]byte(rawFields), &event.Fields); err != nil {
			event.Fields = map[string]any{}
		}
		events = append(events, event)
	}
	return events, rows.Err()
}
