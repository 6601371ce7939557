// Package workflow holds the closed domain vocabulary of the installation
// lifecycle: phases, step statuses, the static step catalog, quotation
// statuses with their transition table, roles and payment milestones.
// Everything here is fixed at build time; services consult these tables
// instead of comparing raw strings.
package workflow

import (
	"github.com/voltora-energy/be-install-workflow/internal/platform/errors"
)

// Phase is a coarse-grained stage of a customer's installation journey.
type Phase string

const (
	PhaseSurvey        Phase = "SURVEY"
	PhaseInstallation  Phase = "INSTALLATION"
	PhaseCommissioning Phase = "COMMISSIONING"
	PhaseLive          Phase = "LIVE"
)

// phaseOrder is the strict forward order of phases.
var phaseOrder = []Phase{PhaseSurvey, PhaseInstallation, PhaseCommissioning, PhaseLive}

// Phases returns all phases in lifecycle order.
func Phases() []Phase {
	out := make([]Phase, len(phaseOrder))
	copy(out, phaseOrder)
	return out
}

// ParsePhase validates a phase string.
func ParsePhase(s string) (Phase, error) {
	for _, p := range phaseOrder {
		if string(p) == s {
			return p, nil
		}
	}
	return "", errors.InvalidInput("phase", "unknown phase '"+s+"'")
}

// Index returns the position of p in the lifecycle order.
func (p Phase) Index() int {
	for i, ph := range phaseOrder {
		if ph == p {
			return i
		}
	}
	return -1
}

// Precedes reports whether p comes strictly before other.
func (p Phase) Precedes(other Phase) bool {
	return p.Index() < other.Index()
}

// StepStatus is the state of one workflow step.
type StepStatus string

const (
	StepPending    StepStatus = "pending"
	StepInProgress StepStatus = "in_progress"
	StepCompleted  StepStatus = "completed"
	StepQCPending  StepStatus = "qc_pending"
	StepQCApproved StepStatus = "qc_approved"
	StepLocked     StepStatus = "locked"
)

var stepStatuses = []StepStatus{
	StepPending, StepInProgress, StepCompleted, StepQCPending, StepQCApproved, StepLocked,
}

// ParseStepStatus validates a step status string.
func ParseStepStatus(s string) (StepStatus, error) {
	for _, st := range stepStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", errors.InvalidInput("status", "unknown step status '"+s+"'")
}

// Done reports whether the step counts as finished for phase gating.
func (s StepStatus) Done() bool {
	return s == StepCompleted || s == StepQCApproved
}

// StepDef is one catalog entry: a stable slug plus its display label.
type StepDef struct {
	ID    string
	Label string
}

// StepInspectionID is the INSTALLATION step excluded from the QC-request
// completeness check (it is the QC inspection itself).
const StepInspectionID = "inspection"

// stepCatalog is the fixed per-phase step catalog. SURVEY carries no steps;
// survey progress lives on the customer's survey status.
var stepCatalog = map[Phase][]StepDef{
	PhaseSurvey: {},
	PhaseInstallation: {
		{ID: "mounting", Label: "Mounting Structure"},
		{ID: "inverter", Label: "Inverter Setup"},
		{ID: "wiring", Label: "DC/AC Wiring"},
		{ID: StepInspectionID, Label: "Site Inspection"},
	},
	PhaseCommissioning: {
		{ID: "system_testing", Label: "System Testing"},
		{ID: "meter_installation", Label: "Net Meter Installation"},
		{ID: "grid_sync", Label: "Grid Synchronization"},
	},
	PhaseLive: {
		{ID: "activation", Label: "Grid Activation"},
	},
}

// CatalogFor returns the step catalog for a phase, in creation order.
func CatalogFor(p Phase) []StepDef {
	defs := stepCatalog[p]
	out := make([]StepDef, len(defs))
	copy(out, defs)
	return out
}

// SurveyStatus is the customer's denormalized survey progress.
type SurveyStatus string

const (
	SurveyPending    SurveyStatus = "PENDING"
	SurveyInProgress SurveyStatus = "IN_PROGRESS"
	SurveyApproved   SurveyStatus = "APPROVED"
	SurveyCompleted  SurveyStatus = "COMPLETED"
)

// InstallationStatus is the customer's denormalized installation progress.
type InstallationStatus string

const (
	InstallNotStarted    InstallationStatus = "NOT_STARTED"
	InstallInProgress    InstallationStatus = "IN_PROGRESS"
	InstallQCPending     InstallationStatus = "QC_PENDING"
	InstallQCApproved    InstallationStatus = "QC_APPROVED"
	InstallCompleted     InstallationStatus = "INSTALLATION_COMPLETED"
	InstallCommissioning InstallationStatus = "COMMISSIONING"
	InstallLive          InstallationStatus = "COMPLETED"
)
