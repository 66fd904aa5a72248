package worker

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lobbylog/lobbylog/internal/events"
)

// PostgresAuditStore persists audit events to the device_audit table.
type PostgresAuditStore struct {
	pool *pgxpool.Pool
}

// NewPostgresAuditStore creates a new Postgres-backed audit store.
func NewPostgresAuditStore(pool *pgxpool.Pool) *PostgresAuditStore {
	return &PostgresAuditStore{pool: pool}
}

// Record inserts one audit event.
func (s *PostgresAuditStore) Record(ctx context.Context, event events.Event) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO device_audit (event_type, device_kind, device_id, occurred_at)
		VALUES ($1, $2, $3, $4)`,
		event.Type, event.Kind, event.DeviceID, event.At,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

var _ EventRecorder = (*PostgresAuditStore)(nil)
