package service

import (
	"context"

	"github.com/voltora-energy/be-install-workflow/internal/platform/errors"
	"github.com/voltora-energy/be-install-workflow/internal/platform/logger"
	"github.com/voltora-energy/be-install-workflow/internal/repository"
	"github.com/voltora-energy/be-install-workflow/internal/workflow"
)

const auditSurveyCompleted = "SURVEY_COMPLETED"

// Orchestrator sequences the installation engine and the quotation engine
// across the lifecycle seams: survey completion kicks off the commercial
// side, and go-live requires the commercial side to have terminated.
type Orchestrator struct {
	tx           TxRunner
	installation *InstallationService
	quotations   *QuotationService
	store        QuotationStore
	customers    CustomerStore
	audit        AuditStore
	notifier     Notifier
	log          *logger.Logger
}

// NewOrchestrator creates a new Orchestrator.
func NewOrchestrator(
	tx TxRunner,
	installation *InstallationService,
	quotations *QuotationService,
	quotationStore QuotationStore,
	customers CustomerStore,
	audit AuditStore,
	notifier Notifier,
	log *logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		tx:           tx,
		installation: installation,
		quotations:   quotations,
		store:        quotationStore,
		customers:    customers,
		audit:        audit,
		notifier:     notifier,
		log:          log,
	}
}

// CompleteSurveyRequest carries survey approval plus the quotation figures
// produced from the survey readings.
type CompleteSurveyRequest struct {
	CustomerID    string
	SurveyID      string
	SystemSizeKW  float64
	TotalCost     int64
	SubsidyAmount int64
	FinalCost     int64
	Currency      string
}

// CompleteSurvey marks the customer's survey APPROVED and creates the
// DRAFT quotation that starts the commercial approval chain.
func (o *Orchestrator) CompleteSurvey(ctx context.Context, req *CompleteSurveyRequest, actorID string) (*repository.Quotation, error) {
	var quotation *repository.Quotation

	err := o.tx.InTransaction(ctx, func(ctx context.Context) error {
		customer, err := o.customers.GetByIDForUpdate(ctx, req.CustomerID)
		if err != nil {
			return err
		}
		if customer.SurveyStatus == workflow.SurveyCompleted {
			return errors.New(errors.ErrCodeConflict, "survey is already completed")
		}

		if err := o.customers.UpdateStatuses(ctx, req.CustomerID,
			workflow.SurveyApproved, customer.InstallationStatus); err != nil {
			return err
		}

		quotation, err = o.quotations.CreateQuotation(ctx, &CreateQuotationRequest{
			SurveyID:      req.SurveyID,
			CustomerID:    req.CustomerID,
			SystemSizeKW:  req.SystemSizeKW,
			TotalCost:     req.TotalCost,
			SubsidyAmount: req.SubsidyAmount,
			FinalCost:     req.FinalCost,
			Currency:      req.Currency,
		})
		if err != nil {
			return err
		}

		old := string(customer.SurveyStatus)
		approved := string(workflow.SurveyApproved)
		phase := workflow.PhaseSurvey
		return o.audit.Append(ctx, &repository.AuditEntry{
			Entity:        entityWorkflow,
			EntityID:      req.CustomerID,
			Action:        auditSurveyCompleted,
			Phase:         &phase,
			OldValue:      &old,
			NewValue:      &approved,
			PerformedByID: actorID,
		})
	})
	if err != nil {
		return nil, err
	}

	o.log.Info().
		Str("customer_id", req.CustomerID).
		Str("survey_id", req.SurveyID).
		Str("quotation_id", quotation.ID).
		Str("actor_id", actorID).
		Msg("Survey completed, quotation drafted")

	o.notifier.PublishWorkflowEvent(ctx, "survey_completed", req.CustomerID, actorID,
		map[string]interface{}{"quotation_id": quotation.ID})

	return quotation, nil
}

// GoLive advances the customer to LIVE. The quotation chain must have
// terminated at FINAL_APPROVED; the payment gate inside the phase advance
// then has the final word.
func (o *Orchestrator) GoLive(ctx context.Context, customerID, actorID string) (*AdvanceResult, error) {
	quotation, err := o.store.GetLatestByCustomer(ctx, customerID)
	if err != nil {
		if errors.Is(err, errors.ErrCodeNotFound) {
			return nil, errors.Precondition("Quotation must be FINAL_APPROVED before going LIVE")
		}
		return nil, err
	}
	if quotation.Status != workflow.QuotationFinalApproved {
		return nil, errors.Precondition("Quotation must be FINAL_APPROVED before going LIVE")
	}

	return o.installation.AdvanceToPhase(ctx, customerID, workflow.PhaseLive, actorID)
}
