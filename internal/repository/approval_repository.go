package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/voltora-energy/be-install-workflow/internal/platform/database"
	"github.com/voltora-energy/be-install-workflow/internal/platform/errors"
)

// ApprovalRepository appends and reads the immutable quotation approval
// trail. The table has a delete-prevention trigger so Append is the only
// mutation exposed.
type ApprovalRepository struct {
	db *database.DB
}

// NewApprovalRepository creates a new ApprovalRepository.
func NewApprovalRepository(db *database.DB) *ApprovalRepository {
	return &ApprovalRepository{db: db}
}

// Append inserts one approval record.
func (r *ApprovalRepository) Append(ctx context.Context, a *QuotationApproval) error {
	query := `
		INSERT INTO quotation_approvals
		    (quotation_id, action, action_by_id, role, remarks)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := r.db.QueryRow(ctx, query,
		a.QuotationID,
		a.Action,
		a.ActionByID,
		a.Role,
		a.Remarks,
	).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to append quotation approval")
	}
	return nil
}

// ListByQuotation returns the approval trail newest-first, the order the
// dashboard timeline renders it.
func (r *ApprovalRepository) ListByQuotation(ctx context.Context, quotationID string) ([]*QuotationApproval, error) {
	query := `
		SELECT id, quotation_id, action, action_by_id, role, remarks, created_at
		FROM quotation_approvals
		WHERE quotation_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.Query(ctx, query, quotationID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to list quotation approvals")
	}
	defer rows.Close()

	return r.scanRows(rows)
}

func (r *ApprovalRepository) scanRows(rows pgx.Rows) ([]*QuotationApproval, error) {
	var entries []*QuotationApproval
	for rows.Next() {
		a := &QuotationApproval{}
		err := rows.Scan(
			&a.ID,
			&a.QuotationID,
			&a.Action,
			&a.ActionByID,
			&a.Role,
			&a.Remarks,
			&a.CreatedAt,
		)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan quotation approval")
		}
		entries = append(entries, a)
	}
	return entries, nil
}
