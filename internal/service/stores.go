package service

import (
	"context"

	"github.com/voltora-energy/be-install-workflow/internal/repository"
	"github.com/voltora-energy/be-install-workflow/internal/workflow"
)

// The engines depend on these narrow store interfaces rather than concrete
// repositories, so tests run against in-memory implementations. The pgx
// repositories in internal/repository satisfy them.

// TxRunner runs fn as one transaction; repository calls made with the
// derived context join it.
type TxRunner interface {
	InTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// StepStore persists workflow steps.
type StepStore interface {
	ListByCustomer(ctx context.Context, customerID string) ([]*repository.WorkflowStep, error)
	GetByID(ctx context.Context, id string) (*repository.WorkflowStep, error)
	CreateBatch(ctx context.Context, steps []*repository.WorkflowStep) error
	Update(ctx context.Context, step *repository.WorkflowStep) error
	DeleteByCustomer(ctx context.Context, customerID string) error
}

// QuotationStore persists quotations.
type QuotationStore interface {
	Create(ctx context.Context, q *repository.Quotation) error
	GetByID(ctx context.Context, id string) (*repository.Quotation, error)
	GetByIDForUpdate(ctx context.Context, id string) (*repository.Quotation, error)
	GetBySurveyID(ctx context.Context, surveyID string) (*repository.Quotation, error)
	GetLatestByCustomer(ctx context.Context, customerID string) (*repository.Quotation, error)
	Update(ctx context.Context, q *repository.Quotation) error
}

// ApprovalStore appends and reads the quotation approval trail.
type ApprovalStore interface {
	Append(ctx context.Context, a *repository.QuotationApproval) error
	ListByQuotation(ctx context.Context, quotationID string) ([]*repository.QuotationApproval, error)
}

// AuditStore appends and reads the generic audit log.
type AuditStore interface {
	Append(ctx context.Context, e *repository.AuditEntry) error
	ListByEntity(ctx context.Context, entity, entityID string) ([]*repository.AuditEntry, error)
}

// PaymentStore reads milestone payments.
type PaymentStore interface {
	ListCompletedMilestones(ctx context.Context, customerID string) ([]workflow.Milestone, error)
	ListByCustomer(ctx context.Context, customerID string) ([]*repository.Payment, error)
}

// CustomerStore reads customers and writes their denormalized statuses.
type CustomerStore interface {
	GetByID(ctx context.Context, id string) (*repository.Customer, error)
	GetByIDForUpdate(ctx context.Context, id string) (*repository.Customer, error)
	UpdateStatuses(ctx context.Context, id string, survey workflow.SurveyStatus, installation workflow.InstallationStatus) error
}

// Notifier publishes workflow events. Implementations must be
// fire-and-forget: failures are logged, never surfaced.
type Notifier interface {
	PublishWorkflowEvent(ctx context.Context, eventType, customerID, actorID string, payload map[string]interface{})
}
