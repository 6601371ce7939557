package workflow

// Milestone is one of the four fixed payment checkpoints gating go-live.
type Milestone string

const (
	MilestoneM1 Milestone = "M1"
	MilestoneM2 Milestone = "M2"
	MilestoneM3 Milestone = "M3"
	MilestoneM4 Milestone = "M4"
)

// Milestones returns all required milestones in order.
func Milestones() []Milestone {
	return []Milestone{MilestoneM1, MilestoneM2, MilestoneM3, MilestoneM4}
}

// PaymentState is the settlement state of one milestone payment.
type PaymentState string

const (
	PaymentPending   PaymentState = "PENDING"
	PaymentCompleted PaymentState = "COMPLETED"
	PaymentFailed    PaymentState = "FAILED"
)
