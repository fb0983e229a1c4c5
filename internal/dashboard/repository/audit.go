package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/medflow/medflow-dispensary/internal/dashboard/domain"
	"github.com/medflow/medflow-dispensary/pkg/database"
)

// Schema creates the override audit table. Every statement is idempotent.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS threshold_audit (
		id           UUID PRIMARY KEY,
		unit_id      TEXT NOT NULL,
		item_id      TEXT NOT NULL,
		action       TEXT NOT NULL,
		field        TEXT,
		field_values JSONB,
		request_id   TEXT,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT threshold_audit_action_valid CHECK (action IN ('override', 'reset')),
		CONSTRAINT threshold_audit_field_valid CHECK (
			field IS NULL OR field IN ('min_stock', 'max_stock', 'mean_daily_consumption', 'minimum_possible_quantity')
		)
	)`,
	`CREATE INDEX IF NOT EXISTS threshold_audit_unit_created_idx ON threshold_audit (unit_id, created_at DESC)`,
}

// AuditRepository persists threshold changes. Entries are append-only:
// nothing here updates or deletes.
type AuditRepository struct {
	db *database.DB
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *database.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// EnsureSchema creates the audit table if it does not exist yet.
func (r *AuditRepository) EnsureSchema(ctx context.Context) error {
	return r.db.Migrate(ctx, Schema...)
}

// Append stores entry, assigning an ID when it has none and filling
// CreatedAt from the database.
func (r *AuditRepository) Append(ctx context.Context, entry *domain.AuditEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	query := `
		INSERT INTO threshold_audit (id, unit_id, item_id, action, field, field_values, request_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		entry.ID, entry.UnitID, entry.ItemID, entry.Action,
		entry.Field, entry.Values, entry.RequestID,
	).Scan(&entry.CreatedAt)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}
	return nil
}

// ListByUnit returns a unit's most recent entries, newest first.
func (r *AuditRepository) ListByUnit(ctx context.Context, unitID string, limit int) ([]domain.AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, unit_id, item_id, action, field, field_values::text AS field_values, request_id, created_at
		FROM threshold_audit
		WHERE unit_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	entries := []domain.AuditEntry{}
	if err := r.db.SelectContext(ctx, &entries, query, unitID, limit); err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	return entries, nil
}
