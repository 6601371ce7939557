package workflow

import (
	"github.com/voltora-energy/be-install-workflow/internal/platform/errors"
)

// QuotationStatus is one node of the approval chain.
type QuotationStatus string

const (
	QuotationDraft          QuotationStatus = "DRAFT"
	QuotationSubmitted      QuotationStatus = "SUBMITTED"
	QuotationPlantApproved  QuotationStatus = "PLANT_APPROVED"
	QuotationRegionApproved QuotationStatus = "REGION_APPROVED"
	QuotationRejected       QuotationStatus = "REJECTED"
	QuotationFinalApproved  QuotationStatus = "FINAL_APPROVED"
)

// ApprovalAction is one recorded action on the chain.
type ApprovalAction string

const (
	ActionSubmitted     ApprovalAction = "SUBMITTED"
	ActionApproved      ApprovalAction = "APPROVED"
	ActionRejected      ApprovalAction = "REJECTED"
	ActionFinalApproved ApprovalAction = "FINAL_APPROVED"
)

// Transition is one legal edge of the quotation approval chain. The chain
// is a DAG whose only cycle runs through REJECTED, and every edge names the
// roles allowed to drive it, so illegal transitions and illegal actors are
// rejected by table lookup rather than scattered conditionals.
type Transition struct {
	From         QuotationStatus
	Action       ApprovalAction
	To           QuotationStatus
	NextApprover Role // RoleNone once the chain terminates
	AllowedRoles roleSet
	BumpsVersion bool
}

// quotationTransitions is the complete legal edge set.
var quotationTransitions = []Transition{
	// Submission. A resubmission after rejection bumps the version: the
	// drafter is sending a revised proposal into the same chain.
	{
		From: QuotationDraft, Action: ActionSubmitted, To: QuotationSubmitted,
		NextApprover: RolePlantAdmin,
		AllowedRoles: roleSet{RoleSalesExecutive, RolePlantAdmin, RoleSuperAdmin},
	},
	{
		From: QuotationRejected, Action: ActionSubmitted, To: QuotationSubmitted,
		NextApprover: RolePlantAdmin,
		AllowedRoles: roleSet{RoleSalesExecutive, RolePlantAdmin, RoleSuperAdmin},
		BumpsVersion: true,
	},

	// Plant-level approval. A draft can be approved directly, skipping the
	// explicit submission.
	{
		From: QuotationDraft, Action: ActionApproved, To: QuotationPlantApproved,
		NextApprover: RoleRegionAdmin,
		AllowedRoles: roleSet{RolePlantAdmin, RoleSuperAdmin},
	},
	{
		From: QuotationSubmitted, Action: ActionApproved, To: QuotationPlantApproved,
		NextApprover: RoleRegionAdmin,
		AllowedRoles: roleSet{RolePlantAdmin, RoleSuperAdmin},
	},

	// Region-level approval.
	{
		From: QuotationPlantApproved, Action: ActionApproved, To: QuotationRegionApproved,
		NextApprover: RoleSuperAdmin,
		AllowedRoles: roleSet{RoleRegionAdmin, RoleSuperAdmin},
	},

	// Rejection returns the quotation to the drafter; the plant tier acts next.
	{
		From: QuotationSubmitted, Action: ActionRejected, To: QuotationRejected,
		NextApprover: RolePlantAdmin,
		AllowedRoles: roleSet{RoleRegionAdmin, RoleSuperAdmin},
	},
	{
		From: QuotationPlantApproved, Action: ActionRejected, To: QuotationRejected,
		NextApprover: RolePlantAdmin,
		AllowedRoles: roleSet{RoleRegionAdmin, RoleSuperAdmin},
	},
	{
		From: QuotationRegionApproved, Action: ActionRejected, To: QuotationRejected,
		NextApprover: RolePlantAdmin,
		AllowedRoles: roleSet{RoleRegionAdmin, RoleSuperAdmin},
	},

	// Final approval terminates the chain.
	{
		From: QuotationRegionApproved, Action: ActionFinalApproved, To: QuotationFinalApproved,
		NextApprover: RoleNone,
		AllowedRoles: roleSet{RoleSuperAdmin},
	},
}

// FindTransition resolves the edge for (from, action). The returned error
// names the current status so callers can surface it verbatim.
func FindTransition(from QuotationStatus, action ApprovalAction) (*Transition, error) {
	for i := range quotationTransitions {
		t := &quotationTransitions[i]
		if t.From == from && t.Action == action {
			return t, nil
		}
	}
	return nil, errors.Newf(errors.ErrCodeConflict,
		"cannot %s quotation from status '%s'", actionVerb(action), from)
}

// Authorize checks that role may drive this transition.
func (t *Transition) Authorize(role Role) error {
	if t.AllowedRoles.contains(role) {
		return nil
	}
	// The least-privileged allowed role names who is awaited.
	return errors.Unauthorized("Only " + t.AllowedRoles[0].Display() + " can " +
		actionVerb(t.Action) + " at this stage")
}

func actionVerb(a ApprovalAction) string {
	switch a {
	case ActionSubmitted:
		return "submit"
	case ActionApproved:
		return "approve"
	case ActionRejected:
		return "reject"
	case ActionFinalApproved:
		return "final-approve"
	default:
		return string(a)
	}
}
