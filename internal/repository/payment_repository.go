package repository

import (
	"context"

	"github.com/voltora-energy/be-install-workflow/internal/platform/database"
	"github.com/voltora-energy/be-install-workflow/internal/platform/errors"
	"github.com/voltora-energy/be-install-workflow/internal/workflow"
)

// PaymentRepository reads milestone payments. The payments table is owned
// by the payments service; this side never writes it.
type PaymentRepository struct {
	db *database.DB
}

// NewPaymentRepository creates a new PaymentRepository.
func NewPaymentRepository(db *database.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// ListCompletedMilestones returns the milestones with a COMPLETED payment
// for a customer.
func (r *PaymentRepository) ListCompletedMilestones(ctx context.Context, customerID string) ([]workflow.Milestone, error) {
	query := `
		SELECT milestone_id
		FROM payments
		WHERE customer_id = $1
		  AND status = 'COMPLETED'
		ORDER BY milestone_id ASC
	`

	rows, err := r.db.Query(ctx, query, customerID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to list completed milestones")
	}
	defer rows.Close()

	var milestones []workflow.Milestone
	for rows.Next() {
		var m workflow.Milestone
		if err := rows.Scan(&m); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan milestone")
		}
		milestones = append(milestones, m)
	}
	return milestones, nil
}

// ListByCustomer returns all milestone payment rows for a customer.
func (r *PaymentRepository) ListByCustomer(ctx context.Context, customerID string) ([]*Payment, error) {
	query := `
		SELECT id, customer_id, milestone_id, amount, status, paid_at
		FROM payments
		WHERE customer_id = $1
		ORDER BY milestone_id ASC
	`

	rows, err := r.db.Query(ctx, query, customerID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to list payments")
	}
	defer rows.Close()

	var payments []*Payment
	for rows.Next() {
		p := &Payment{}
		err := rows.Scan(&p.ID, &p.CustomerID, &p.MilestoneID, &p.Amount, &p.Status, &p.PaidAt)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan payment")
		}
		payments = append(payments, p)
	}
	return payments, nil
}
