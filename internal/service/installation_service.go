package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/voltora-energy/be-install-workflow/internal/platform/errors"
	"github.com/voltora-energy/be-install-workflow/internal/platform/logger"
	"github.com/voltora-energy/be-install-workflow/internal/repository"
	"github.com/voltora-energy/be-install-workflow/internal/workflow"
)

// Audit actions written by the installation engine.
const (
	auditCreated         = "CREATED"
	auditStepUpdated     = "STEP_UPDATED"
	auditPhaseAdvanced   = "PHASE_ADVANCED"
	auditQCRequested     = "QC_REQUESTED"
	auditQCApproved      = "QC_APPROVED"
	auditQCRejected      = "QC_REJECTED"
	auditInstallComplete = "INSTALLATION_COMPLETED"
)

// Audit entity labels.
const (
	entityWorkflow = "workflow"
)

// InstallationService is the per-customer phase/step state machine:
// SURVEY → INSTALLATION (with the QC sub-cycle) → COMMISSIONING → LIVE.
// Every mutating operation is one transaction: state change, audit row and
// denormalized customer statuses commit together or not at all.
type InstallationService struct {
	tx        TxRunner
	steps     StepStore
	customers CustomerStore
	audit     AuditStore
	gate      *PaymentGate
	notifier  Notifier
	log       *logger.Logger
}

// NewInstallationService creates a new InstallationService.
func NewInstallationService(
	tx TxRunner,
	steps StepStore,
	customers CustomerStore,
	audit AuditStore,
	gate *PaymentGate,
	notifier Notifier,
	log *logger.Logger,
) *InstallationService {
	return &InstallationService{
		tx:        tx,
		steps:     steps,
		customers: customers,
		audit:     audit,
		gate:      gate,
		notifier:  notifier,
		log:       log,
	}
}

// AdvanceResult reports the outcome of a successful phase advance.
type AdvanceResult struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Phase   workflow.Phase `json:"phase"`
}

// ── Initialization and reset ──────────────────────────────────────────────────

// InitializeWorkflow deletes any pre-existing steps for the customer and
// creates the fixed INSTALLATION and COMMISSIONING catalogs, all pending.
// Idempotent: calling it twice yields the same catalog both times.
func (s *InstallationService) InitializeWorkflow(ctx context.Context, customerID, actorID string) ([]*repository.WorkflowStep, error) {
	var created []*repository.WorkflowStep

	err := s.tx.InTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.customers.GetByIDForUpdate(ctx, customerID); err != nil {
			return err
		}

		if err := s.steps.DeleteByCustomer(ctx, customerID); err != nil {
			return err
		}

		created = catalogSteps(customerID, workflow.StepPending,
			workflow.PhaseInstallation, workflow.PhaseCommissioning)
		if err := s.steps.CreateBatch(ctx, created); err != nil {
			return err
		}

		phase := workflow.PhaseInstallation
		return s.audit.Append(ctx, &repository.AuditEntry{
			Entity:        entityWorkflow,
			EntityID:      customerID,
			Action:        auditCreated,
			Phase:         &phase,
			NewValue:      strPtr(fmt.Sprintf("%d steps", len(created))),
			PerformedByID: actorID,
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("customer_id", customerID).
		Str("actor_id", actorID).
		Int("step_count", len(created)).
		Msg("Workflow initialized")

	return created, nil
}

// GetWorkflow returns all steps for a customer in catalog order.
func (s *InstallationService) GetWorkflow(ctx context.Context, customerID string) ([]*repository.WorkflowStep, error) {
	return s.steps.ListByCustomer(ctx, customerID)
}

// ResetWorkflow deletes and recreates the step catalog; the recovery path
// for operator error. No guard conditions.
func (s *InstallationService) ResetWorkflow(ctx context.Context, customerID, actorID string) ([]*repository.WorkflowStep, error) {
	return s.InitializeWorkflow(ctx, customerID, actorID)
}

// ── Step updates ──────────────────────────────────────────────────────────────

// UpdateStepStatus sets a step's status, merges technical data into its
// metadata and records the actor as assignee. Role checks for step updates
// belong to the caller layer.
func (s *InstallationService) UpdateStepStatus(
	ctx context.Context,
	stepID string,
	newStatus workflow.StepStatus,
	actorID string,
	notes *string,
	technicalData map[string]interface{},
) (*repository.WorkflowStep, error) {
	var updated *repository.WorkflowStep

	err := s.tx.InTransaction(ctx, func(ctx context.Context) error {
		step, err := s.steps.GetByID(ctx, stepID)
		if err != nil {
			return err
		}

		oldStatus := step.Status
		step.Status = newStatus
		step.AssignedToID = &actorID
		if notes != nil {
			step.Notes = notes
		}
		if len(technicalData) > 0 {
			if step.Metadata == nil {
				step.Metadata = make(map[string]interface{}, len(technicalData))
			}
			for k, v := range technicalData {
				step.Metadata[k] = v
			}
		}

		if err := s.steps.Update(ctx, step); err != nil {
			return err
		}
		updated = step

		phase := step.Phase
		return s.audit.Append(ctx, &repository.AuditEntry{
			Entity:        entityWorkflow,
			EntityID:      step.CustomerID,
			Action:        auditStepUpdated,
			Phase:         &phase,
			StepID:        &step.StepID,
			OldValue:      strPtr(string(oldStatus)),
			NewValue:      strPtr(string(newStatus)),
			Notes:         notes,
			PerformedByID: actorID,
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("step_id", stepID).
		Str("customer_id", updated.CustomerID).
		Str("status", string(newStatus)).
		Str("actor_id", actorID).
		Msg("Workflow step updated")

	return updated, nil
}

// ── Phase advance ─────────────────────────────────────────────────────────────

// AdvanceToPhase is the central guarded transition. Inside one transaction
// it sweeps unfinished steps of earlier phases to completed, checks the
// target phase's entry gate, bootstraps or resumes the target phase's
// steps, audits, and updates the customer's denormalized statuses. A gate
// failure rolls the whole transaction back, so a refused advance mutates
// nothing. The notification goes out after commit and is never fatal.
func (s *InstallationService) AdvanceToPhase(ctx context.Context, customerID string, target workflow.Phase, actorID string) (*AdvanceResult, error) {
	if target == workflow.PhaseSurvey {
		return nil, errors.InvalidInput("phase", "cannot advance into SURVEY")
	}

	err := s.tx.InTransaction(ctx, func(ctx context.Context) error {
		customer, err := s.customers.GetByIDForUpdate(ctx, customerID)
		if err != nil {
			return err
		}

		steps, err := s.steps.ListByCustomer(ctx, customerID)
		if err != nil {
			return err
		}

		// Gate decisions look at the statuses as they stood before the
		// closing sweep below rewrites them.
		prior := make(map[string]workflow.StepStatus, len(steps))
		for _, step := range steps {
			prior[step.ID] = step.Status
		}

		// Closing sweep: finish whatever earlier phases left open.
		for _, step := range steps {
			if step.Phase.Precedes(target) && !step.Status.Done() {
				step.Status = workflow.StepCompleted
				if err := s.steps.Update(ctx, step); err != nil {
					return err
				}
			}
		}

		if err := s.checkPhaseGate(ctx, customer, steps, prior, target); err != nil {
			return err
		}

		// Bootstrap the target phase in_progress, or resume its first step.
		targetSteps := filterPhase(steps, target)
		if len(targetSteps) == 0 {
			created := catalogSteps(customerID, workflow.StepInProgress, target)
			if err := s.steps.CreateBatch(ctx, created); err != nil {
				return err
			}
		} else {
			first := targetSteps[0]
			first.Status = workflow.StepInProgress
			if err := s.steps.Update(ctx, first); err != nil {
				return err
			}
		}

		oldInstall := customer.InstallationStatus
		survey, install := statusesForPhase(customer, target)
		if err := s.customers.UpdateStatuses(ctx, customerID, survey, install); err != nil {
			return err
		}

		return s.audit.Append(ctx, &repository.AuditEntry{
			Entity:        entityWorkflow,
			EntityID:      customerID,
			Action:        auditPhaseAdvanced,
			Phase:         &target,
			OldValue:      strPtr(string(oldInstall)),
			NewValue:      strPtr(string(install)),
			PerformedByID: actorID,
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("customer_id", customerID).
		Str("phase", string(target)).
		Str("actor_id", actorID).
		Msg("Phase advanced")

	s.notifier.PublishWorkflowEvent(ctx, "phase_advanced", customerID, actorID, map[string]interface{}{
		"phase": string(target),
	})

	return &AdvanceResult{
		Success: true,
		Message: fmt.Sprintf("Advanced to %s", target),
		Phase:   target,
	}, nil
}

// checkPhaseGate enforces the entry preconditions for each phase. prior
// holds each step's status as loaded, before the closing sweep touched it;
// the LIVE gate reads those so the sweep cannot satisfy its own condition.
func (s *InstallationService) checkPhaseGate(
	ctx context.Context,
	customer *repository.Customer,
	steps []*repository.WorkflowStep,
	prior map[string]workflow.StepStatus,
	target workflow.Phase,
) error {
	switch target {
	case workflow.PhaseInstallation:
		if customer.SurveyStatus != workflow.SurveyApproved {
			return errors.Precondition("Survey must be APPROVED before starting Installation")
		}

	case workflow.PhaseCommissioning:
		if customer.InstallationStatus != workflow.InstallQCApproved &&
			customer.InstallationStatus != workflow.InstallCompleted {
			return errors.Precondition("Installation must be QC approved or completed before Commissioning")
		}

	case workflow.PhaseLive:
		for _, step := range filterPhase(steps, workflow.PhaseCommissioning) {
			if prior[step.ID] != workflow.StepCompleted {
				return errors.Precondition("All commissioning steps must be completed before going LIVE")
			}
		}
		missing, err := s.gate.MissingMilestones(ctx, customer.ID)
		if err != nil {
			return err
		}
		if len(missing) > 0 {
			return errors.Precondition("Pending payments for milestones: " + joinMilestones(missing))
		}
	}
	return nil
}

// statusesForPhase maps a newly entered phase onto the customer's
// denormalized status pair.
func statusesForPhase(customer *repository.Customer, target workflow.Phase) (workflow.SurveyStatus, workflow.InstallationStatus) {
	switch target {
	case workflow.PhaseInstallation:
		return workflow.SurveyCompleted, workflow.InstallInProgress
	case workflow.PhaseCommissioning:
		return customer.SurveyStatus, workflow.InstallCommissioning
	case workflow.PhaseLive:
		return customer.SurveyStatus, workflow.InstallLive
	default:
		return customer.SurveyStatus, customer.InstallationStatus
	}
}

// ── QC sub-cycle (INSTALLATION only) ─────────────────────────────────────────

// RequestQC moves the installation into QC review. Every INSTALLATION step
// except the inspection step itself must already be finished.
func (s *InstallationService) RequestQC(ctx context.Context, customerID, actorID string) error {
	err := s.tx.InTransaction(ctx, func(ctx context.Context) error {
		customer, err := s.customers.GetByIDForUpdate(ctx, customerID)
		if err != nil {
			return err
		}

		steps, err := s.steps.ListByCustomer(ctx, customerID)
		if err != nil {
			return err
		}
		for _, step := range filterPhase(steps, workflow.PhaseInstallation) {
			if step.StepID == workflow.StepInspectionID {
				continue
			}
			if !step.Status.Done() {
				return errors.Precondition("All installation steps must be completed before requesting QC")
			}
		}

		if err := s.customers.UpdateStatuses(ctx, customerID, customer.SurveyStatus, workflow.InstallQCPending); err != nil {
			return err
		}

		return s.appendQCAudit(ctx, customerID, actorID, auditQCRequested,
			customer.InstallationStatus, workflow.InstallQCPending, nil)
	})
	if err != nil {
		return err
	}

	s.log.Info().Str("customer_id", customerID).Str("actor_id", actorID).Msg("Installation QC requested")
	s.notifier.PublishWorkflowEvent(ctx, "qc_requested", customerID, actorID, nil)
	return nil
}

// ApproveQC accepts the installation work. Actor authorization is the
// caller layer's job; there is no further precondition.
func (s *InstallationService) ApproveQC(ctx context.Context, customerID, actorID string) error {
	err := s.tx.InTransaction(ctx, func(ctx context.Context) error {
		customer, err := s.customers.GetByIDForUpdate(ctx, customerID)
		if err != nil {
			return err
		}

		if err := s.customers.UpdateStatuses(ctx, customerID, customer.SurveyStatus, workflow.InstallQCApproved); err != nil {
			return err
		}

		return s.appendQCAudit(ctx, customerID, actorID, auditQCApproved,
			customer.InstallationStatus, workflow.InstallQCApproved, nil)
	})
	if err != nil {
		return err
	}

	s.log.Info().Str("customer_id", customerID).Str("actor_id", actorID).Msg("Installation QC approved")
	s.notifier.PublishWorkflowEvent(ctx, "qc_approved", customerID, actorID, nil)
	return nil
}

// RejectQC sends the installation back to rework.
func (s *InstallationService) RejectQC(ctx context.Context, customerID, actorID, reason string) error {
	if strings.TrimSpace(reason) == "" {
		return errors.InvalidInput("reason", "rejection reason is required")
	}

	err := s.tx.InTransaction(ctx, func(ctx context.Context) error {
		customer, err := s.customers.GetByIDForUpdate(ctx, customerID)
		if err != nil {
			return err
		}

		if err := s.customers.UpdateStatuses(ctx, customerID, customer.SurveyStatus, workflow.InstallInProgress); err != nil {
			return err
		}

		return s.appendQCAudit(ctx, customerID, actorID, auditQCRejected,
			customer.InstallationStatus, workflow.InstallInProgress, &reason)
	})
	if err != nil {
		return err
	}

	s.log.Info().
		Str("customer_id", customerID).
		Str("actor_id", actorID).
		Str("reason", reason).
		Msg("Installation QC rejected")
	s.notifier.PublishWorkflowEvent(ctx, "qc_rejected", customerID, actorID, map[string]interface{}{
		"reason": reason,
	})
	return nil
}

// MarkInstallationComplete forces every INSTALLATION step to completed and
// skips the QC cycle. An escape hatch for administrators; the policy table
// restricts who may call it.
func (s *InstallationService) MarkInstallationComplete(ctx context.Context, customerID, actorID string) error {
	err := s.tx.InTransaction(ctx, func(ctx context.Context) error {
		customer, err := s.customers.GetByIDForUpdate(ctx, customerID)
		if err != nil {
			return err
		}

		steps, err := s.steps.ListByCustomer(ctx, customerID)
		if err != nil {
			return err
		}
		for _, step := range filterPhase(steps, workflow.PhaseInstallation) {
			if step.Status != workflow.StepCompleted {
				step.Status = workflow.StepCompleted
				if err := s.steps.Update(ctx, step); err != nil {
					return err
				}
			}
		}

		if err := s.customers.UpdateStatuses(ctx, customerID, customer.SurveyStatus, workflow.InstallCompleted); err != nil {
			return err
		}

		return s.appendQCAudit(ctx, customerID, actorID, auditInstallComplete,
			customer.InstallationStatus, workflow.InstallCompleted, nil)
	})
	if err != nil {
		return err
	}

	s.log.Info().Str("customer_id", customerID).Str("actor_id", actorID).Msg("Installation marked complete")
	s.notifier.PublishWorkflowEvent(ctx, "installation_completed", customerID, actorID, nil)
	return nil
}

// GetAuditTrail returns the workflow audit trail for a customer, newest first.
func (s *InstallationService) GetAuditTrail(ctx context.Context, customerID string) ([]*repository.AuditEntry, error) {
	return s.audit.ListByEntity(ctx, entityWorkflow, customerID)
}

// ── helpers ───────────────────────────────────────────────────────────────────

func (s *InstallationService) appendQCAudit(
	ctx context.Context,
	customerID, actorID, action string,
	from, to workflow.InstallationStatus,
	notes *string,
) error {
	phase := workflow.PhaseInstallation
	return s.audit.Append(ctx, &repository.AuditEntry{
		Entity:        entityWorkflow,
		EntityID:      customerID,
		Action:        action,
		Phase:         &phase,
		OldValue:      strPtr(string(from)),
		NewValue:      strPtr(string(to)),
		Notes:         notes,
		PerformedByID: actorID,
	})
}

// catalogSteps instantiates the catalog rows for the given phases with a
// uniform initial status.
func catalogSteps(customerID string, status workflow.StepStatus, phases ...workflow.Phase) []*repository.WorkflowStep {
	var steps []*repository.WorkflowStep
	for _, phase := range phases {
		for i, def := range workflow.CatalogFor(phase) {
			steps = append(steps, &repository.WorkflowStep{
				CustomerID: customerID,
				Phase:      phase,
				StepID:     def.ID,
				Label:      def.Label,
				Status:     status,
				SortOrder:  phase.Index()*100 + i,
			})
		}
	}
	return steps
}

func filterPhase(steps []*repository.WorkflowStep, phase workflow.Phase) []*repository.WorkflowStep {
	var out []*repository.WorkflowStep
	for _, s := range steps {
		if s.Phase == phase {
			out = append(out, s)
		}
	}
	return out
}

func joinMilestones(ms []workflow.Milestone) string {
	parts := make([]string, len(ms))
	for i, m := range ms {
		parts[i] = string(m)
	}
	return strings.Join(parts, ", ")
}

func strPtr(s string) *string { return &s }
