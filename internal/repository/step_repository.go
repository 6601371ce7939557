package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"

	"github.com/voltora-energy/be-install-workflow/internal/platform/database"
	"github.com/voltora-energy/be-install-workflow/internal/platform/errors"
)

// StepRepository manages workflow step rows. Batch creation and wholesale
// deletion always happen inside the service's transaction.
type StepRepository struct {
	db *database.DB
}

// NewStepRepository creates a new StepRepository.
func NewStepRepository(db *database.DB) *StepRepository {
	return &StepRepository{db: db}
}

const stepColumns = `
	id, customer_id, phase, step_id, label, status,
	assigned_to_id, notes, metadata, sort_order,
	created_at, updated_at
`

// ListByCustomer returns all steps for a customer in catalog order.
func (r *StepRepository) ListByCustomer(ctx context.Context, customerID string) ([]*WorkflowStep, error) {
	query := `
		SELECT ` + stepColumns + `
		FROM workflow_steps
		WHERE customer_id = $1
		ORDER BY sort_order ASC, created_at ASC
	`

	rows, err := r.db.Query(ctx, query, customerID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to list workflow steps")
	}
	defer rows.Close()

	return r.scanRows(rows)
}

// GetByID retrieves a single step.
func (r *StepRepository) GetByID(ctx context.Context, id string) (*WorkflowStep, error) {
	query := `
		SELECT ` + stepColumns + `
		FROM workflow_steps
		WHERE id = $1
	`

	step, err := r.scanStep(r.db.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("workflow_step", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to get workflow step")
	}
	return step, nil
}

// CreateBatch inserts the given steps, filling in generated ids and
// timestamps. The unique (customer_id, phase, step_id) index rejects
// duplicate catalog rows.
func (r *StepRepository) CreateBatch(ctx context.Context, steps []*WorkflowStep) error {
	query := `
		INSERT INTO workflow_steps
		    (customer_id, phase, step_id, label, status,
		     assigned_to_id, notes, metadata, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`

	for _, step := range steps {
		metadataJSON, err := marshalMetadata(step.Metadata)
		if err != nil {
			return err
		}

		err = r.db.QueryRow(ctx, query,
			step.CustomerID,
			step.Phase,
			step.StepID,
			step.Label,
			step.Status,
			step.AssignedToID,
			step.Notes,
			metadataJSON,
			step.SortOrder,
		).Scan(&step.ID, &step.CreatedAt, &step.UpdatedAt)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to create workflow step")
		}
	}

	return nil
}

// Update persists status, assignee, notes and metadata for a step.
func (r *StepRepository) Update(ctx context.Context, step *WorkflowStep) error {
	metadataJSON, err := marshalMetadata(step.Metadata)
	if err != nil {
		return err
	}

	query := `
		UPDATE workflow_steps
		SET status         = $2,
		    assigned_to_id = $3,
		    notes          = $4,
		    metadata       = $5,
		    updated_at     = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err = r.db.QueryRow(ctx, query,
		step.ID,
		step.Status,
		step.AssignedToID,
		step.Notes,
		metadataJSON,
	).Scan(&step.UpdatedAt)
	if err == pgx.ErrNoRows {
		return errors.NotFound("workflow_step", step.ID)
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to update workflow step")
	}
	return nil
}

// DeleteByCustomer removes every step for a customer; used by workflow
// initialization and reset.
func (r *StepRepository) DeleteByCustomer(ctx context.Context, customerID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM workflow_steps WHERE customer_id = $1`, customerID)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to delete workflow steps")
	}
	return nil
}

// ── scan helpers ──────────────────────────────────────────────────────────────

type stepScanner interface {
	Scan(dest ...any) error
}

func (r *StepRepository) scanStep(sc stepScanner) (*WorkflowStep, error) {
	s := &WorkflowStep{}
	var metadataJSON []byte

	err := sc.Scan(
		&s.ID,
		&s.CustomerID,
		&s.Phase,
		&s.StepID,
		&s.Label,
		&s.Status,
		&s.AssignedToID,
		&s.Notes,
		&metadataJSON,
		&s.SortOrder,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if metadataJSON != nil {
		if err := json.Unmarshal(metadataJSON, &s.Metadata); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to unmarshal step metadata")
		}
	}

	return s, nil
}

func (r *StepRepository) scanRows(rows pgx.Rows) ([]*WorkflowStep, error) {
	var steps []*WorkflowStep
	for rows.Next() {
		s, err := r.scanStep(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan workflow step")
		}
		steps = append(steps, s)
	}
	return steps, nil
}

func marshalMetadata(m map[string]interface{}) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to marshal step metadata")
	}
	return data, nil
}
