package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/georgemunganga/tillkeeper/internal/platform/database"
)

// PostgresRepository stores events in audit_logs. Bind it to a *sql.Tx to
// record inside a unit of work or to the pool for reads.
type PostgresRepository struct{ db database.DBTX }

var (
	_ Recorder = (*PostgresRepository)(nil)
	_ Reader   = (*PostgresRepository)(nil)
)

func NewPostgresRepository(db database.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Record(ctx context.Context, e *Event) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	meta := e.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encode audit metadata: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, action, entity_type, entity_id, actor_id, store_id, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, e.Action, e.EntityType, e.EntityID, e.ActorID, e.StoreID, raw, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert audit event %s: %w", e.Action, err)
	}
	return nil
}

func (r *PostgresRepository) ListByEntity(ctx context.Context, entityID uuid.UUID, limit int) ([]*Event, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, action, entity_type, entity_id, actor_id, store_id, metadata, created_at
		FROM audit_logs
		WHERE entity_id = $1
		ORDER BY created_at, id
		LIMIT $2`, entityID, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	events := []*Event{}
	for rows.Next() {
		e := &Event{}
		var actorID, storeID uuid.NullUUID
		var raw []byte
		if err := rows.Scan(&e.ID, &e.Action, &e.EntityType, &e.EntityID, &actorID, &storeID, &raw, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		if actorID.Valid {
			e.ActorID = &actorID.UUID
		}
		if storeID.Valid {
			e.StoreID = &storeID.UUID
		}
		if err := json.Unmarshal(raw, &e.Metadata); err != nil {
			return nil, fmt.Errorf("decode audit metadata: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
