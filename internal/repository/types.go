package repository

import (
	"time"

	"github.com/voltora-energy/be-install-workflow/internal/workflow"
)

// ── Domain rows for the installation workflow ────────────────────────────────

// WorkflowStep is one unit of work within a phase. At most one row exists
// per (customer_id, phase, step_id); the catalog in internal/workflow is the
// only source of step ids.
type WorkflowStep struct {
	ID           string
	CustomerID   string
	Phase        workflow.Phase
	StepID       string
	Label        string
	Status       workflow.StepStatus
	AssignedToID *string
	Notes        *string
	Metadata     map[string]interface{} // technical readings, photo refs
	SortOrder    int                    // catalog position, stable across resets
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Quotation is the commercial proposal tied to one completed survey. Rows
// are never deleted; the approval history is permanent record.
type Quotation struct {
	ID                  string
	SurveyID            string
	CustomerID          string
	Status              workflow.QuotationStatus
	CurrentApproverRole workflow.Role // RoleNone (NULL) once FINAL_APPROVED
	Version             int
	SystemSizeKW        float64
	TotalCost           int64 // cents
	SubsidyAmount       int64 // cents
	FinalCost           int64 // cents
	Currency            string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// QuotationApproval is one immutable row of the quotation approval trail.
type QuotationApproval struct {
	ID          string
	QuotationID string
	Action      workflow.ApprovalAction
	ActionByID  string
	Role        workflow.Role // role of the actor at the time
	Remarks     *string
	CreatedAt   time.Time
}

// AuditEntry is one immutable record in the generic audit log. Workflow
// entries are keyed by customer id; StepID is set when the action concerns
// a single step.
type AuditEntry struct {
	ID            string
	Entity        string // entity-kind label, e.g. "workflow", "quotation"
	EntityID      string
	Action        string
	Phase         *workflow.Phase
	StepID        *string
	OldValue      *string
	NewValue      *string
	Notes         *string
	PerformedByID string
	PerformedAt   time.Time
}

// Payment is one milestone payment row, owned by the payments service and
// read-only here.
type Payment struct {
	ID          string
	CustomerID  string
	MilestoneID workflow.Milestone
	Amount      int64 // cents
	Status      workflow.PaymentState
	PaidAt      *time.Time
}

// Customer carries the two denormalized status fields the workflow engine
// maintains for fast dashboard reads. Only those fields are written here.
type Customer struct {
	ID                 string
	Name               string
	SurveyStatus       workflow.SurveyStatus
	InstallationStatus workflow.InstallationStatus
	UpdatedAt          time.Time
}
