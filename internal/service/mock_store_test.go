package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/voltora-energy/be-install-workflow/internal/platform/errors"
	"github.com/voltora-energy/be-install-workflow/internal/repository"
	"github.com/voltora-energy/be-install-workflow/internal/workflow"
)

// mockStore is the shared in-memory state behind every store interface the
// services depend on. Per-interface views (mockSteps, mockQuotations, ...)
// wrap it because several interfaces declare methods with the same name but
// different signatures. There are no locking semantics; InTransaction runs
// fn and, on error, restores a deep snapshot taken beforehand, which is
// enough to assert the all-or-nothing behavior of the services.
type mockStore struct {
	steps      map[string]*repository.WorkflowStep
	quotations map[string]*repository.Quotation
	approvals  []*repository.QuotationApproval
	audits     []*repository.AuditEntry
	customers  map[string]*repository.Customer
	completed  map[string][]workflow.Milestone // customerID -> paid milestones

	seq   int
	depth int
}

func newMockStore() *mockStore {
	return &mockStore{
		steps:      make(map[string]*repository.WorkflowStep),
		quotations: make(map[string]*repository.Quotation),
		customers:  make(map[string]*repository.Customer),
		completed:  make(map[string][]workflow.Milestone),
	}
}

func (m *mockStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

func (m *mockStore) addCustomer(id string, survey workflow.SurveyStatus, install workflow.InstallationStatus) *repository.Customer {
	c := &repository.Customer{
		ID:                 id,
		Name:               "Customer " + id,
		SurveyStatus:       survey,
		InstallationStatus: install,
	}
	m.customers[id] = c
	return c
}

// InTransaction satisfies TxRunner.
func (m *mockStore) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.depth > 0 {
		return fn(ctx)
	}

	snap := m.snapshot()
	m.depth++
	err := fn(ctx)
	m.depth--
	if err != nil {
		m.restore(snap)
	}
	return err
}

type storeSnapshot struct {
	steps      map[string]*repository.WorkflowStep
	quotations map[string]*repository.Quotation
	approvals  []*repository.QuotationApproval
	audits     []*repository.AuditEntry
	customers  map[string]*repository.Customer
}

func (m *mockStore) snapshot() storeSnapshot {
	snap := storeSnapshot{
		steps:      make(map[string]*repository.WorkflowStep, len(m.steps)),
		quotations: make(map[string]*repository.Quotation, len(m.quotations)),
		approvals:  append([]*repository.QuotationApproval(nil), m.approvals...),
		audits:     append([]*repository.AuditEntry(nil), m.audits...),
		customers:  make(map[string]*repository.Customer, len(m.customers)),
	}
	for id, s := range m.steps {
		cp := *s
		snap.steps[id] = &cp
	}
	for id, q := range m.quotations {
		cp := *q
		snap.quotations[id] = &cp
	}
	for id, c := range m.customers {
		cp := *c
		snap.customers[id] = &cp
	}
	return snap
}

func (m *mockStore) restore(snap storeSnapshot) {
	m.steps = snap.steps
	m.quotations = snap.quotations
	m.approvals = snap.approvals
	m.audits = snap.audits
	m.customers = snap.customers
}

// ── StepStore ─────────────────────────────────────────────────────────────────

type mockSteps struct{ *mockStore }

func (m mockSteps) ListByCustomer(ctx context.Context, customerID string) ([]*repository.WorkflowStep, error) {
	var out []*repository.WorkflowStep
	for _, s := range m.steps {
		if s.CustomerID == customerID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out, nil
}

func (m mockSteps) GetByID(ctx context.Context, id string) (*repository.WorkflowStep, error) {
	s, ok := m.steps[id]
	if !ok {
		return nil, errors.NotFound("workflow step", id)
	}
	return s, nil
}

func (m mockSteps) CreateBatch(ctx context.Context, steps []*repository.WorkflowStep) error {
	for _, s := range steps {
		s.ID = m.nextID("step")
		s.CreatedAt = time.Now()
		s.UpdatedAt = s.CreatedAt
		m.mockStore.steps[s.ID] = s
	}
	return nil
}

func (m mockSteps) Update(ctx context.Context, step *repository.WorkflowStep) error {
	if _, ok := m.steps[step.ID]; !ok {
		return errors.NotFound("workflow step", step.ID)
	}
	step.UpdatedAt = time.Now()
	m.mockStore.steps[step.ID] = step
	return nil
}

func (m mockSteps) DeleteByCustomer(ctx context.Context, customerID string) error {
	for id, s := range m.steps {
		if s.CustomerID == customerID {
			delete(m.mockStore.steps, id)
		}
	}
	return nil
}

// ── QuotationStore ────────────────────────────────────────────────────────────

type mockQuotations struct{ *mockStore }

func (m mockQuotations) Create(ctx context.Context, q *repository.Quotation) error {
	q.ID = m.nextID("quot")
	q.CreatedAt = time.Now().Add(time.Duration(m.seq) * time.Millisecond)
	q.UpdatedAt = q.CreatedAt
	m.quotations[q.ID] = q
	return nil
}

func (m mockQuotations) GetByID(ctx context.Context, id string) (*repository.Quotation, error) {
	q, ok := m.quotations[id]
	if !ok {
		return nil, errors.NotFound("quotation", id)
	}
	return q, nil
}

func (m mockQuotations) GetByIDForUpdate(ctx context.Context, id string) (*repository.Quotation, error) {
	return m.GetByID(ctx, id)
}

func (m mockQuotations) GetBySurveyID(ctx context.Context, surveyID string) (*repository.Quotation, error) {
	for _, q := range m.quotations {
		if q.SurveyID == surveyID {
			return q, nil
		}
	}
	return nil, errors.NotFound("quotation for survey", surveyID)
}

func (m mockQuotations) GetLatestByCustomer(ctx context.Context, customerID string) (*repository.Quotation, error) {
	var latest *repository.Quotation
	for _, q := range m.quotations {
		if q.CustomerID != customerID {
			continue
		}
		if latest == nil || q.CreatedAt.After(latest.CreatedAt) {
			latest = q
		}
	}
	if latest == nil {
		return nil, errors.NotFound("quotation for customer", customerID)
	}
	return latest, nil
}

func (m mockQuotations) Update(ctx context.Context, q *repository.Quotation) error {
	if _, ok := m.quotations[q.ID]; !ok {
		return errors.NotFound("quotation", q.ID)
	}
	q.UpdatedAt = time.Now()
	m.quotations[q.ID] = q
	return nil
}

// ── ApprovalStore ─────────────────────────────────────────────────────────────

type mockApprovals struct{ *mockStore }

func (m mockApprovals) Append(ctx context.Context, a *repository.QuotationApproval) error {
	a.ID = m.nextID("appr")
	a.CreatedAt = time.Now()
	m.mockStore.approvals = append(m.mockStore.approvals, a)
	return nil
}

func (m mockApprovals) ListByQuotation(ctx context.Context, quotationID string) ([]*repository.QuotationApproval, error) {
	var out []*repository.QuotationApproval
	for i := len(m.approvals) - 1; i >= 0; i-- {
		if m.approvals[i].QuotationID == quotationID {
			out = append(out, m.approvals[i])
		}
	}
	return out, nil
}

// ── AuditStore ────────────────────────────────────────────────────────────────

type mockAudit struct{ *mockStore }

func (m mockAudit) Append(ctx context.Context, e *repository.AuditEntry) error {
	e.ID = m.nextID("audit")
	e.PerformedAt = time.Now()
	m.mockStore.audits = append(m.mockStore.audits, e)
	return nil
}

func (m mockAudit) ListByEntity(ctx context.Context, entity, entityID string) ([]*repository.AuditEntry, error) {
	var out []*repository.AuditEntry
	for i := len(m.audits) - 1; i >= 0; i-- {
		if m.audits[i].Entity == entity && m.audits[i].EntityID == entityID {
			out = append(out, m.audits[i])
		}
	}
	return out, nil
}

// ── PaymentStore ──────────────────────────────────────────────────────────────

type mockPayments struct{ *mockStore }

func (m mockPayments) ListCompletedMilestones(ctx context.Context, customerID string) ([]workflow.Milestone, error) {
	return m.completed[customerID], nil
}

func (m mockPayments) ListByCustomer(ctx context.Context, customerID string) ([]*repository.Payment, error) {
	out := make([]*repository.Payment, 0, len(m.completed[customerID]))
	for _, milestone := range m.completed[customerID] {
		out = append(out, &repository.Payment{
			CustomerID:  customerID,
			MilestoneID: milestone,
			Status:      workflow.PaymentCompleted,
		})
	}
	return out, nil
}

// ── CustomerStore ─────────────────────────────────────────────────────────────

type mockCustomers struct{ *mockStore }

func (m mockCustomers) GetByID(ctx context.Context, id string) (*repository.Customer, error) {
	c, ok := m.customers[id]
	if !ok {
		return nil, errors.NotFound("customer", id)
	}
	return c, nil
}

func (m mockCustomers) GetByIDForUpdate(ctx context.Context, id string) (*repository.Customer, error) {
	return m.GetByID(ctx, id)
}

func (m mockCustomers) UpdateStatuses(ctx context.Context, id string, survey workflow.SurveyStatus, installation workflow.InstallationStatus) error {
	c, ok := m.customers[id]
	if !ok {
		return errors.NotFound("customer", id)
	}
	c.SurveyStatus = survey
	c.InstallationStatus = installation
	c.UpdatedAt = time.Now()
	return nil
}

// mockNotifier records published event types.
type mockNotifier struct {
	events []string
}

func (n *mockNotifier) PublishWorkflowEvent(ctx context.Context, eventType, customerID, actorID string, payload map[string]interface{}) {
	n.events = append(n.events, eventType)
}
