package workflow

import (
	"github.com/voltora-energy/be-install-workflow/internal/platform/errors"
)

// Operation names a mutating workflow operation for role authorization.
// Quotation actions are authorized by their transition table; everything
// else is authorized here, once, at the serving boundary.
type Operation string

const (
	OpInitWorkflow             Operation = "init_workflow"
	OpResetWorkflow            Operation = "reset_workflow"
	OpUpdateStep               Operation = "update_step"
	OpAdvancePhase             Operation = "advance_phase"
	OpMarkInstallationComplete Operation = "mark_installation_complete"
	OpRequestQC                Operation = "request_qc"
	OpApproveQC                Operation = "approve_qc"
	OpRejectQC                 Operation = "reject_qc"
	OpCompleteSurvey           Operation = "complete_survey"
)

var operationPolicy = map[Operation]roleSet{
	OpInitWorkflow:             {RolePlantAdmin, RoleSuperAdmin},
	OpResetWorkflow:            {RolePlantAdmin, RoleSuperAdmin},
	OpUpdateStep:               {RoleEngineer, RolePlantAdmin, RoleSuperAdmin},
	OpAdvancePhase:             {RolePlantAdmin, RoleRegionAdmin, RoleSuperAdmin},
	OpMarkInstallationComplete: {RolePlantAdmin, RoleSuperAdmin},
	OpRequestQC:                {RoleEngineer, RolePlantAdmin, RoleSuperAdmin},
	OpApproveQC:                {RolePlantAdmin, RoleSuperAdmin},
	OpRejectQC:                 {RolePlantAdmin, RoleSuperAdmin},
	OpCompleteSurvey:           {RoleSalesExecutive, RolePlantAdmin, RoleSuperAdmin},
}

// AuthorizeOperation checks the policy table for (operation, role).
func AuthorizeOperation(op Operation, role Role) error {
	allowed, ok := operationPolicy[op]
	if !ok {
		return errors.Newf(errors.ErrCodeInternal, "no policy for operation '%s'", op)
	}
	if allowed.contains(role) {
		return nil
	}
	return errors.Unauthorized("Only " + allowed[0].Display() + " can perform this operation")
}
