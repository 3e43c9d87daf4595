package shared

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGLog persists events into domain_events, ordered by sequence of insertion.
type PGLog struct {
	pool *pgxpool.Pool
}

// NewPGLog returns a Postgres-backed event log.
func NewPGLog(pool *pgxpool.Pool) *PGLog {
	return &PGLog{pool: pool}
}

// Record inserts the event row.
func (l *PGLog) Record(ctx context.Context, evt Event) error {
	if l == nil || l.pool == nil {
		return errors.New("shared: event log not initialised")
	}
	if evt.Kind == "" || evt.Entity == "" || evt.EntityID == "" {
		return errors.New("shared: event requires kind/entity/entity_id")
	}
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now().UTC()
	}
	payload, err := json.Marshal(evt.Payload)
	if err != nil {
		return err
	}
	_, err = l.pool.Exec(ctx,
		`INSERT INTO domain_events (id, kind, entity, entity_id, payload, occurred_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		evt.ID, evt.Kind, evt.Entity, evt.EntityID, payload, evt.OccurredAt)
	return err
}

// List returns all events in insertion order.
func (l *PGLog) List(ctx context.Context) ([]Event, error) {
	if l == nil || l.pool == nil {
		return nil, errors.New("shared: event log not initialised")
	}
	rows, err := l.pool.Query(ctx,
		`SELECT id, kind, entity, entity_id, payload, occurred_at FROM domain_events ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var evt Event
		var payload []byte
		if err := rows.Scan(&evt.ID, &evt.Kind, &evt.Entity, &evt.EntityID, &payload, &evt.OccurredAt); err != nil {
			return nil, err
		}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &evt.Payload); err != nil {
				return nil, err
			}
		}
		events = append(events, evt)
	}
	return events, rows.Err()
}
