package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voltora-energy/be-install-workflow/internal/platform/errors"
	"github.com/voltora-energy/be-install-workflow/internal/platform/logger"
	"github.com/voltora-energy/be-install-workflow/internal/repository"
	"github.com/voltora-energy/be-install-workflow/internal/workflow"
)

func newQuotationEnv() (*QuotationService, *mockStore, *mockNotifier) {
	store := newMockStore()
	notifier := &mockNotifier{}
	svc := NewQuotationService(
		store,
		mockQuotations{store},
		mockApprovals{store},
		notifier,
		logger.Nop(),
	)
	return svc, store, notifier
}

func draftQuotation(t *testing.T, svc *QuotationService) *repository.Quotation {
	t.Helper()
	q, err := svc.CreateQuotation(context.Background(), &CreateQuotationRequest{
		SurveyID:      "survey-1",
		CustomerID:    "cust-1",
		SystemSizeKW:  5.4,
		TotalCost:     54000000,
		SubsidyAmount: 7800000,
		FinalCost:     46200000,
		Currency:      "INR",
	})
	require.NoError(t, err)
	return q
}

var (
	sales  = Actor{ID: "sales-1", Role: workflow.RoleSalesExecutive}
	plant  = Actor{ID: "plant-1", Role: workflow.RolePlantAdmin}
	region = Actor{ID: "region-1", Role: workflow.RoleRegionAdmin}
	super  = Actor{ID: "super-1", Role: workflow.RoleSuperAdmin}
)

func TestCreateQuotation(t *testing.T) {
	svc, _, _ := newQuotationEnv()

	q := draftQuotation(t, svc)
	assert.Equal(t, workflow.QuotationDraft, q.Status)
	assert.Equal(t, workflow.RoleSalesExecutive, q.CurrentApproverRole)
	assert.Equal(t, 1, q.Version)
	assert.Equal(t, int64(46200000), q.FinalCost)

	// One quotation per survey.
	_, err := svc.CreateQuotation(context.Background(), &CreateQuotationRequest{
		SurveyID: "survey-1", CustomerID: "cust-1", FinalCost: 1000, Currency: "INR",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeConflict))
}

func TestCreateQuotation_Validation(t *testing.T) {
	svc, _, _ := newQuotationEnv()
	ctx := context.Background()

	_, err := svc.CreateQuotation(ctx, &CreateQuotationRequest{FinalCost: 100, Currency: "INR"})
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))

	_, err = svc.CreateQuotation(ctx, &CreateQuotationRequest{SurveyID: "s", FinalCost: 0, Currency: "INR"})
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))

	_, err = svc.CreateQuotation(ctx, &CreateQuotationRequest{SurveyID: "s", FinalCost: 100, Currency: "RUPEES"})
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
}

func TestApprovalChain_HappyPath(t *testing.T) {
	svc, _, notifier := newQuotationEnv()
	ctx := context.Background()
	q := draftQuotation(t, svc)

	q, err := svc.Submit(ctx, q.ID, sales)
	require.NoError(t, err)
	assert.Equal(t, workflow.QuotationSubmitted, q.Status)
	assert.Equal(t, workflow.RolePlantAdmin, q.CurrentApproverRole)
	assert.Equal(t, 1, q.Version)

	q, err = svc.Approve(ctx, q.ID, plant, nil)
	require.NoError(t, err)
	assert.Equal(t, workflow.QuotationPlantApproved, q.Status)
	assert.Equal(t, workflow.RoleRegionAdmin, q.CurrentApproverRole)

	q, err = svc.Approve(ctx, q.ID, region, nil)
	require.NoError(t, err)
	assert.Equal(t, workflow.QuotationRegionApproved, q.Status)
	assert.Equal(t, workflow.RoleSuperAdmin, q.CurrentApproverRole)

	q, err = svc.FinalApprove(ctx, q.ID, super)
	require.NoError(t, err)
	assert.Equal(t, workflow.QuotationFinalApproved, q.Status)
	assert.Equal(t, workflow.RoleNone, q.CurrentApproverRole)

	history, err := svc.GetApprovalHistory(ctx, q.ID)
	require.NoError(t, err)
	require.Len(t, history, 4)
	// Newest first.
	assert.Equal(t, workflow.ActionFinalApproved, history[0].Action)
	assert.Equal(t, workflow.ActionSubmitted, history[3].Action)
	assert.Equal(t, "super-1", history[0].ActionByID)

	assert.Equal(t, []string{
		"quotation_submitted", "quotation_approved", "quotation_approved", "quotation_final_approved",
	}, notifier.events)
}

func TestApprovalChain_TerminalState(t *testing.T) {
	svc, _, _ := newQuotationEnv()
	ctx := context.Background()
	q := draftQuotation(t, svc)

	var err error
	_, err = svc.Submit(ctx, q.ID, sales)
	require.NoError(t, err)
	_, err = svc.Approve(ctx, q.ID, plant, nil)
	require.NoError(t, err)
	_, err = svc.Approve(ctx, q.ID, region, nil)
	require.NoError(t, err)
	_, err = svc.FinalApprove(ctx, q.ID, super)
	require.NoError(t, err)

	// FINAL_APPROVED is terminal; nothing moves it.
	remarks := "changed my mind"
	_, err = svc.Reject(ctx, q.ID, super, &remarks)
	assert.True(t, errors.Is(err, errors.ErrCodeConflict))
	_, err = svc.Submit(ctx, q.ID, super)
	assert.True(t, errors.Is(err, errors.ErrCodeConflict))
}

func TestApprove_WrongRole(t *testing.T) {
	svc, store, notifier := newQuotationEnv()
	ctx := context.Background()
	q := draftQuotation(t, svc)

	_, err := svc.Submit(ctx, q.ID, sales)
	require.NoError(t, err)

	// The sales executive cannot drive the plant tier.
	_, err = svc.Approve(ctx, q.ID, sales, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeUnauthorized))
	assert.Contains(t, err.Error(), "Plant Admin")

	// The refused action left no trace.
	assert.Equal(t, workflow.QuotationSubmitted, store.quotations[q.ID].Status)
	history, err := svc.GetApprovalHistory(ctx, q.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
	assert.Equal(t, []string{"quotation_submitted"}, notifier.events)
}

func TestReject_RequiresRemarks(t *testing.T) {
	svc, _, _ := newQuotationEnv()
	ctx := context.Background()
	q := draftQuotation(t, svc)

	_, err := svc.Submit(ctx, q.ID, sales)
	require.NoError(t, err)

	_, err = svc.Reject(ctx, q.ID, region, nil)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))

	empty := ""
	_, err = svc.Reject(ctx, q.ID, region, &empty)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
}

func TestResubmissionBumpsVersion(t *testing.T) {
	svc, _, _ := newQuotationEnv()
	ctx := context.Background()
	q := draftQuotation(t, svc)

	q, err := svc.Submit(ctx, q.ID, sales)
	require.NoError(t, err)
	assert.Equal(t, 1, q.Version)

	remarks := "subsidy figure is stale"
	q, err = svc.Reject(ctx, q.ID, region, &remarks)
	require.NoError(t, err)
	assert.Equal(t, workflow.QuotationRejected, q.Status)
	assert.Equal(t, 1, q.Version)

	q, err = svc.Submit(ctx, q.ID, sales)
	require.NoError(t, err)
	assert.Equal(t, workflow.QuotationSubmitted, q.Status)
	assert.Equal(t, 2, q.Version)

	history, err := svc.GetApprovalHistory(ctx, q.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	require.NotNil(t, history[1].Remarks)
	assert.Equal(t, remarks, *history[1].Remarks)
}

func TestGetApprovalHistory_UnknownQuotation(t *testing.T) {
	svc, _, _ := newQuotationEnv()

	_, err := svc.GetApprovalHistory(context.Background(), "missing")
	assert.True(t, errors.Is(err, errors.ErrCodeNotFound))
}
