package service

import (
	"context"

	"github.com/voltora-energy/be-install-workflow/internal/repository"
	"github.com/voltora-energy/be-install-workflow/internal/workflow"
)

// PaymentGate answers one question: which required milestones has this
// customer not yet settled. The go-live transition refuses until the answer
// is empty.
type PaymentGate struct {
	payments PaymentStore
}

// NewPaymentGate creates a new PaymentGate.
func NewPaymentGate(payments PaymentStore) *PaymentGate {
	return &PaymentGate{payments: payments}
}

// MissingMilestones returns the required milestones without a COMPLETED
// payment, in canonical order.
func (g *PaymentGate) MissingMilestones(ctx context.Context, customerID string) ([]workflow.Milestone, error) {
	completed, err := g.payments.ListCompletedMilestones(ctx, customerID)
	if err != nil {
		return nil, err
	}

	paid := make(map[workflow.Milestone]bool, len(completed))
	for _, m := range completed {
		paid[m] = true
	}

	var missing []workflow.Milestone
	for _, m := range workflow.Milestones() {
		if !paid[m] {
			missing = append(missing, m)
		}
	}
	return missing, nil
}

// Payments returns all milestone payment rows for a customer, for the
// dashboard's payment timeline.
func (g *PaymentGate) Payments(ctx context.Context, customerID string) ([]*repository.Payment, error) {
	return g.payments.ListByCustomer(ctx, customerID)
}
