package handler

import (
	"context"
	"encoding/json"
	"net/http"

	apperrors "github.com/voltora-energy/be-install-workflow/internal/platform/errors"
	"github.com/voltora-energy/be-install-workflow/internal/platform/logger"
	"github.com/voltora-energy/be-install-workflow/internal/platform/middleware"
	"github.com/voltora-energy/be-install-workflow/internal/service"
	"github.com/voltora-energy/be-install-workflow/internal/workflow"
)

// HTTPHandler exposes the workflow and quotation engines over HTTP. Role
// authorization for installation operations happens here, once, against
// the policy table; quotation actions are authorized by their transition
// table inside the service.
type HTTPHandler struct {
	installation *service.InstallationService
	quotations   *service.QuotationService
	orchestrator *service.Orchestrator
	gate         *service.PaymentGate
	log          *logger.Logger
}

// NewHTTPHandler creates a new HTTP handler.
func NewHTTPHandler(
	installation *service.InstallationService,
	quotations *service.QuotationService,
	orchestrator *service.Orchestrator,
	gate *service.PaymentGate,
	log *logger.Logger,
) *HTTPHandler {
	return &HTTPHandler{
		installation: installation,
		quotations:   quotations,
		orchestrator: orchestrator,
		gate:         gate,
		log:          log,
	}
}

// Register wires all routes onto the mux.
func (h *HTTPHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/workflow", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.GetWorkflow(w, r)
		case http.MethodPost:
			h.InitWorkflow(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})
	mux.HandleFunc("/api/v1/workflow/reset", h.ResetWorkflow)
	mux.HandleFunc("/api/v1/workflow/step", h.UpdateStep)
	mux.HandleFunc("/api/v1/workflow/advance", h.AdvancePhase)
	mux.HandleFunc("/api/v1/workflow/install-complete", h.MarkInstallationComplete)
	mux.HandleFunc("/api/v1/workflow/qc/request", h.RequestQC)
	mux.HandleFunc("/api/v1/workflow/qc/approve", h.ApproveQC)
	mux.HandleFunc("/api/v1/workflow/qc/reject", h.RejectQC)
	mux.HandleFunc("/api/v1/workflow/audit", h.GetAuditTrail)
	mux.HandleFunc("/api/v1/survey/complete", h.CompleteSurvey)
	mux.HandleFunc("/api/v1/workflow/go-live", h.GoLive)
	mux.HandleFunc("/api/v1/quotations/get", h.GetQuotation)
	mux.HandleFunc("/api/v1/quotations/submit", h.SubmitQuotation)
	mux.HandleFunc("/api/v1/quotations/approve", h.ApproveQuotation)
	mux.HandleFunc("/api/v1/quotations/reject", h.RejectQuotation)
	mux.HandleFunc("/api/v1/quotations/final-approve", h.FinalApproveQuotation)
	mux.HandleFunc("/api/v1/quotations/history", h.GetApprovalHistory)
	mux.HandleFunc("/api/v1/payments", h.GetPayments)
	mux.HandleFunc("/api/v1/payments/missing", h.GetMissingMilestones)
}

// ── Installation workflow ─────────────────────────────────────────────────────

// InitWorkflow handles workflow initialization requests.
func (h *HTTPHandler) InitWorkflow(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.authorize(w, r, workflow.OpInitWorkflow)
	if !ok {
		return
	}

	var req struct {
		CustomerID string `json:"customer_id"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	steps, err := h.installation.InitializeWorkflow(r.Context(), req.CustomerID, actor.ID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, steps)
}

// GetWorkflow handles workflow read requests.
func (h *HTTPHandler) GetWorkflow(w http.ResponseWriter, r *http.Request) {
	customerID := r.URL.Query().Get("customer_id")
	if customerID == "" {
		http.Error(w, "customer_id is required", http.StatusBadRequest)
		return
	}

	steps, err := h.installation.GetWorkflow(r.Context(), customerID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, steps)
}

// ResetWorkflow handles workflow reset requests.
func (h *HTTPHandler) ResetWorkflow(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	actor, ok := h.authorize(w, r, workflow.OpResetWorkflow)
	if !ok {
		return
	}

	var req struct {
		CustomerID string `json:"customer_id"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	steps, err := h.installation.ResetWorkflow(r.Context(), req.CustomerID, actor.ID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, steps)
}

// UpdateStep handles step status updates.
func (h *HTTPHandler) UpdateStep(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	actor, ok := h.authorize(w, r, workflow.OpUpdateStep)
	if !ok {
		return
	}

	var req struct {
		StepID        string                 `json:"step_id"`
		Status        string                 `json:"status"`
		Notes         *string                `json:"notes,omitempty"`
		TechnicalData map[string]interface{} `json:"technical_data,omitempty"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	status, err := workflow.ParseStepStatus(req.Status)
	if err != nil {
		h.writeError(w, err)
		return
	}

	step, err := h.installation.UpdateStepStatus(r.Context(), req.StepID, status, actor.ID, req.Notes, req.TechnicalData)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, step)
}

// AdvancePhase handles guarded phase transitions.
func (h *HTTPHandler) AdvancePhase(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	actor, ok := h.authorize(w, r, workflow.OpAdvancePhase)
	if !ok {
		return
	}

	var req struct {
		CustomerID string `json:"customer_id"`
		Phase      string `json:"phase"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	phase, err := workflow.ParsePhase(req.Phase)
	if err != nil {
		h.writeError(w, err)
		return
	}

	result, err := h.installation.AdvanceToPhase(r.Context(), req.CustomerID, phase, actor.ID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// MarkInstallationComplete handles the administrative completion override.
func (h *HTTPHandler) MarkInstallationComplete(w http.ResponseWriter, r *http.Request) {
	h.customerAction(w, r, workflow.OpMarkInstallationComplete, h.installation.MarkInstallationComplete)
}

// RequestQC handles QC requests.
func (h *HTTPHandler) RequestQC(w http.ResponseWriter, r *http.Request) {
	h.customerAction(w, r, workflow.OpRequestQC, h.installation.RequestQC)
}

// ApproveQC handles QC approvals.
func (h *HTTPHandler) ApproveQC(w http.ResponseWriter, r *http.Request) {
	h.customerAction(w, r, workflow.OpApproveQC, h.installation.ApproveQC)
}

// RejectQC handles QC rejections.
func (h *HTTPHandler) RejectQC(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	actor, ok := h.authorize(w, r, workflow.OpRejectQC)
	if !ok {
		return
	}

	var req struct {
		CustomerID string `json:"customer_id"`
		Reason     string `json:"reason"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.installation.RejectQC(r.Context(), req.CustomerID, actor.ID, req.Reason); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "qc_rejected"})
}

// GetAuditTrail handles workflow audit reads.
func (h *HTTPHandler) GetAuditTrail(w http.ResponseWriter, r *http.Request) {
	customerID := r.URL.Query().Get("customer_id")
	if customerID == "" {
		http.Error(w, "customer_id is required", http.StatusBadRequest)
		return
	}

	entries, err := h.installation.GetAuditTrail(r.Context(), customerID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, entries)
}

// ── Orchestration ─────────────────────────────────────────────────────────────

// CompleteSurvey handles survey completion, which drafts the quotation.
func (h *HTTPHandler) CompleteSurvey(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	actor, ok := h.authorize(w, r, workflow.OpCompleteSurvey)
	if !ok {
		return
	}

	var req struct {
		CustomerID    string  `json:"customer_id"`
		SurveyID      string  `json:"survey_id"`
		SystemSizeKW  float64 `json:"system_size_kw"`
		TotalCost     int64   `json:"total_cost"`
		SubsidyAmount int64   `json:"subsidy_amount"`
		FinalCost     int64   `json:"final_cost"`
		Currency      string  `json:"currency"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	quotation, err := h.orchestrator.CompleteSurvey(r.Context(), &service.CompleteSurveyRequest{
		CustomerID:    req.CustomerID,
		SurveyID:      req.SurveyID,
		SystemSizeKW:  req.SystemSizeKW,
		TotalCost:     req.TotalCost,
		SubsidyAmount: req.SubsidyAmount,
		FinalCost:     req.FinalCost,
		Currency:      req.Currency,
	}, actor.ID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, quotation)
}

// GoLive handles the final transition to LIVE.
func (h *HTTPHandler) GoLive(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	actor, ok := h.authorize(w, r, workflow.OpAdvancePhase)
	if !ok {
		return
	}

	var req struct {
		CustomerID string `json:"customer_id"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.orchestrator.GoLive(r.Context(), req.CustomerID, actor.ID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// ── Quotations ────────────────────────────────────────────────────────────────

// GetQuotation handles quotation reads.
func (h *HTTPHandler) GetQuotation(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "id is required", http.StatusBadRequest)
		return
	}

	quotation, err := h.quotations.GetQuotation(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, quotation)
}

// SubmitQuotation handles submissions into the approval chain.
func (h *HTTPHandler) SubmitQuotation(w http.ResponseWriter, r *http.Request) {
	h.quotationAction(w, r, func(id string, actor service.Actor, _ *string) (any, error) {
		return h.quotations.Submit(r.Context(), id, actor)
	})
}

// ApproveQuotation handles tier approvals.
func (h *HTTPHandler) ApproveQuotation(w http.ResponseWriter, r *http.Request) {
	h.quotationAction(w, r, func(id string, actor service.Actor, remarks *string) (any, error) {
		return h.quotations.Approve(r.Context(), id, actor, remarks)
	})
}

// RejectQuotation handles rejections.
func (h *HTTPHandler) RejectQuotation(w http.ResponseWriter, r *http.Request) {
	h.quotationAction(w, r, func(id string, actor service.Actor, remarks *string) (any, error) {
		return h.quotations.Reject(r.Context(), id, actor, remarks)
	})
}

// FinalApproveQuotation handles the terminal approval.
func (h *HTTPHandler) FinalApproveQuotation(w http.ResponseWriter, r *http.Request) {
	h.quotationAction(w, r, func(id string, actor service.Actor, _ *string) (any, error) {
		return h.quotations.FinalApprove(r.Context(), id, actor)
	})
}

// GetApprovalHistory handles approval trail reads.
func (h *HTTPHandler) GetApprovalHistory(w http.ResponseWriter, r *http.Request) {
	quotationID := r.URL.Query().Get("quotation_id")
	if quotationID == "" {
		http.Error(w, "quotation_id is required", http.StatusBadRequest)
		return
	}

	history, err := h.quotations.GetApprovalHistory(r.Context(), quotationID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, history)
}

// ── Payments ──────────────────────────────────────────────────────────────────

// GetPayments handles milestone payment listing.
func (h *HTTPHandler) GetPayments(w http.ResponseWriter, r *http.Request) {
	customerID := r.URL.Query().Get("customer_id")
	if customerID == "" {
		http.Error(w, "customer_id is required", http.StatusBadRequest)
		return
	}

	payments, err := h.gate.Payments(r.Context(), customerID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, payments)
}

// GetMissingMilestones handles payment-gate reads for the dashboard.
func (h *HTTPHandler) GetMissingMilestones(w http.ResponseWriter, r *http.Request) {
	customerID := r.URL.Query().Get("customer_id")
	if customerID == "" {
		http.Error(w, "customer_id is required", http.StatusBadRequest)
		return
	}

	missing, err := h.gate.MissingMilestones(r.Context(), customerID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"missing": missing})
}

// ── helpers ───────────────────────────────────────────────────────────────────

// customerAction handles the POST endpoints whose body is just a customer id.
func (h *HTTPHandler) customerAction(
	w http.ResponseWriter,
	r *http.Request,
	op workflow.Operation,
	fn func(ctx context.Context, customerID, actorID string) error,
) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	actor, ok := h.authorize(w, r, op)
	if !ok {
		return
	}

	var req struct {
		CustomerID string `json:"customer_id"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	if err := fn(r.Context(), req.CustomerID, actor.ID); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) authorize(w http.ResponseWriter, r *http.Request, op workflow.Operation) (middleware.Actor, bool) {
	actor, ok := middleware.ActorFrom(r.Context())
	if !ok {
		http.Error(w, "Unauthenticated", http.StatusUnauthorized)
		return middleware.Actor{}, false
	}
	if err := workflow.AuthorizeOperation(op, actor.Role); err != nil {
		h.writeError(w, err)
		return middleware.Actor{}, false
	}
	return actor, true
}

func (h *HTTPHandler) quotationAction(
	w http.ResponseWriter,
	r *http.Request,
	fn func(id string, actor service.Actor, remarks *string) (any, error),
) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	actor, ok := middleware.ActorFrom(r.Context())
	if !ok {
		http.Error(w, "Unauthenticated", http.StatusUnauthorized)
		return
	}

	var req struct {
		QuotationID string  `json:"quotation_id"`
		Remarks     *string `json:"remarks,omitempty"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	result, err := fn(req.QuotationID, service.Actor{ID: actor.ID, Role: actor.Role}, req.Remarks)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

func (h *HTTPHandler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

func (h *HTTPHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Msg("Request failed")
	}
	http.Error(w, err.Error(), status)
}
