package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/voltora-energy/be-install-workflow/internal/platform/database"
	"github.com/voltora-energy/be-install-workflow/internal/platform/errors"
)

// AuditRepository appends and reads the generic append-only audit log.
// Entries are never updated or deleted.
type AuditRepository struct {
	db *database.DB
}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(db *database.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Append inserts one audit record.
func (r *AuditRepository) Append(ctx context.Context, e *AuditEntry) error {
	query := `
		INSERT INTO audit_log
		    (entity, entity_id, action, phase, step_id,
		     old_value, new_value, notes, performed_by_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, performed_at
	`

	err := r.db.QueryRow(ctx, query,
		e.Entity,
		e.EntityID,
		e.Action,
		e.Phase,
		e.StepID,
		e.OldValue,
		e.NewValue,
		e.Notes,
		e.PerformedByID,
	).Scan(&e.ID, &e.PerformedAt)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to append audit entry")
	}
	return nil
}

// ListByEntity returns the audit trail for one entity, newest first.
func (r *AuditRepository) ListByEntity(ctx context.Context, entity, entityID string) ([]*AuditEntry, error) {
	query := `
		SELECT id, entity, entity_id, action, phase, step_id,
		       old_value, new_value, notes, performed_by_id, performed_at
		FROM audit_log
		WHERE entity = $1 AND entity_id = $2
		ORDER BY performed_at DESC
	`

	rows, err := r.db.Query(ctx, query, entity, entityID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to list audit entries")
	}
	defer rows.Close()

	return r.scanRows(rows)
}

func (r *AuditRepository) scanRows(rows pgx.Rows) ([]*AuditEntry, error) {
	var entries []*AuditEntry
	for rows.Next() {
		e := &AuditEntry{}
		err := rows.Scan(
			&e.ID,
			&e.Entity,
			&e.EntityID,
			&e.Action,
			&e.Phase,
			&e.StepID,
			&e.OldValue,
			&e.NewValue,
			&e.Notes,
			&e.PerformedByID,
			&e.PerformedAt,
		)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan audit entry")
		}
		entries = append(entries, e)
	}
	return entries, nil
}
