package service

import (
	"context"
	"strings"

	"github.com/voltora-energy/be-install-workflow/internal/platform/errors"
	"github.com/voltora-energy/be-install-workflow/internal/platform/logger"
	"github.com/voltora-energy/be-install-workflow/internal/repository"
	"github.com/voltora-energy/be-install-workflow/internal/workflow"
)

// Actor identifies an authenticated caller for approval actions.
type Actor struct {
	ID   string
	Role workflow.Role
}

// QuotationService drives the quotation approval chain. Legal transitions
// and the roles allowed to drive them come from the transition table in
// internal/workflow; this service only sequences lookups, persistence and
// the approval trail.
type QuotationService struct {
	tx         TxRunner
	quotations QuotationStore
	approvals  ApprovalStore
	notifier   Notifier
	log        *logger.Logger
}

// NewQuotationService creates a new QuotationService.
func NewQuotationService(
	tx TxRunner,
	quotations QuotationStore,
	approvals ApprovalStore,
	notifier Notifier,
	log *logger.Logger,
) *QuotationService {
	return &QuotationService{
		tx:         tx,
		quotations: quotations,
		approvals:  approvals,
		notifier:   notifier,
		log:        log,
	}
}

// CreateQuotationRequest carries the financial fields of a new quotation.
// They are opaque to the approval chain.
type CreateQuotationRequest struct {
	SurveyID      string
	CustomerID    string
	SystemSizeKW  float64
	TotalCost     int64
	SubsidyAmount int64
	FinalCost     int64
	Currency      string
}

// CreateQuotation creates the DRAFT quotation for a completed survey.
// One quotation per survey; a second create is a conflict.
func (s *QuotationService) CreateQuotation(ctx context.Context, req *CreateQuotationRequest) (*repository.Quotation, error) {
	if req.SurveyID == "" {
		return nil, errors.InvalidInput("survey_id", "survey id is required")
	}
	if req.FinalCost <= 0 {
		return nil, errors.InvalidInput("final_cost", "final cost must be positive")
	}
	if len(req.Currency) != 3 {
		return nil, errors.InvalidInput("currency", "currency must be 3-letter ISO code")
	}

	existing, err := s.quotations.GetBySurveyID(ctx, req.SurveyID)
	if err != nil && !errors.Is(err, errors.ErrCodeNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, errors.Newf(errors.ErrCodeConflict,
			"quotation already exists for survey '%s'", req.SurveyID)
	}

	q := &repository.Quotation{
		SurveyID:            req.SurveyID,
		CustomerID:          req.CustomerID,
		Status:              workflow.QuotationDraft,
		CurrentApproverRole: workflow.RoleSalesExecutive,
		Version:             1,
		SystemSizeKW:        req.SystemSizeKW,
		TotalCost:           req.TotalCost,
		SubsidyAmount:       req.SubsidyAmount,
		FinalCost:           req.FinalCost,
		Currency:            req.Currency,
	}
	if err := s.quotations.Create(ctx, q); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("quotation_id", q.ID).
		Str("survey_id", req.SurveyID).
		Str("customer_id", req.CustomerID).
		Int64("final_cost", req.FinalCost).
		Msg("Quotation created")

	return q, nil
}

// GetQuotation retrieves a quotation.
func (s *QuotationService) GetQuotation(ctx context.Context, id string) (*repository.Quotation, error) {
	return s.quotations.GetByID(ctx, id)
}

// Submit sends a DRAFT or REJECTED quotation into the approval chain.
// Resubmission after rejection bumps the version.
func (s *QuotationService) Submit(ctx context.Context, quotationID string, actor Actor) (*repository.Quotation, error) {
	return s.transition(ctx, quotationID, actor, workflow.ActionSubmitted, nil)
}

// Approve advances the quotation one tier: plant approval from
// DRAFT/SUBMITTED, region approval from PLANT_APPROVED.
func (s *QuotationService) Approve(ctx context.Context, quotationID string, actor Actor, remarks *string) (*repository.Quotation, error) {
	return s.transition(ctx, quotationID, actor, workflow.ActionApproved, remarks)
}

// Reject sends the quotation back to the drafter.
func (s *QuotationService) Reject(ctx context.Context, quotationID string, actor Actor, remarks *string) (*repository.Quotation, error) {
	return s.transition(ctx, quotationID, actor, workflow.ActionRejected, remarks)
}

// FinalApprove terminates the chain; only legal from REGION_APPROVED.
func (s *QuotationService) FinalApprove(ctx context.Context, quotationID string, actor Actor) (*repository.Quotation, error) {
	return s.transition(ctx, quotationID, actor, workflow.ActionFinalApproved, nil)
}

// GetApprovalHistory returns the approval trail, newest first.
func (s *QuotationService) GetApprovalHistory(ctx context.Context, quotationID string) ([]*repository.QuotationApproval, error) {
	if _, err := s.quotations.GetByID(ctx, quotationID); err != nil {
		return nil, err
	}
	return s.approvals.ListByQuotation(ctx, quotationID)
}

// transition performs one table-driven chain transition in a single
// transaction: lock the row, resolve the edge, authorize the actor,
// mutate, append the approval record.
func (s *QuotationService) transition(
	ctx context.Context,
	quotationID string,
	actor Actor,
	action workflow.ApprovalAction,
	remarks *string,
) (*repository.Quotation, error) {
	if action == workflow.ActionRejected && (remarks == nil || *remarks == "") {
		return nil, errors.InvalidInput("remarks", "rejection remarks are required")
	}

	var quotation *repository.Quotation

	err := s.tx.InTransaction(ctx, func(ctx context.Context) error {
		q, err := s.quotations.GetByIDForUpdate(ctx, quotationID)
		if err != nil {
			return err
		}

		t, err := workflow.FindTransition(q.Status, action)
		if err != nil {
			return err
		}
		if err := t.Authorize(actor.Role); err != nil {
			return err
		}

		q.Status = t.To
		q.CurrentApproverRole = t.NextApprover
		if t.BumpsVersion {
			q.Version++
		}
		if err := s.quotations.Update(ctx, q); err != nil {
			return err
		}
		quotation = q

		return s.approvals.Append(ctx, &repository.QuotationApproval{
			QuotationID: q.ID,
			Action:      action,
			ActionByID:  actor.ID,
			Role:        actor.Role,
			Remarks:     remarks,
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("quotation_id", quotationID).
		Str("action", string(action)).
		Str("status", string(quotation.Status)).
		Str("actor_id", actor.ID).
		Str("role", string(actor.Role)).
		Int("version", quotation.Version).
		Msg("Quotation transition")

	s.notifier.PublishWorkflowEvent(ctx, "quotation_"+strings.ToLower(string(action)), quotation.CustomerID, actor.ID,
		map[string]interface{}{
			"quotation_id": quotation.ID,
			"status":       string(quotation.Status),
			"version":      quotation.Version,
		})

	return quotation, nil
}
