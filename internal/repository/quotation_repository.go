package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/voltora-energy/be-install-workflow/internal/platform/database"
	"github.com/voltora-energy/be-install-workflow/internal/platform/errors"
	"github.com/voltora-energy/be-install-workflow/internal/workflow"
)

// QuotationRepository manages quotation rows. Quotations are never deleted;
// status only moves along the approval chain.
type QuotationRepository struct {
	db *database.DB
}

// NewQuotationRepository creates a new QuotationRepository.
func NewQuotationRepository(db *database.DB) *QuotationRepository {
	return &QuotationRepository{db: db}
}

const quotationColumns = `
	id, survey_id, customer_id, status, current_approver_role, version,
	system_size_kw, total_cost, subsidy_amount, final_cost, currency,
	created_at, updated_at
`

// Create inserts a new DRAFT quotation.
func (r *QuotationRepository) Create(ctx context.Context, q *Quotation) error {
	query := `
		INSERT INTO quotations
		    (survey_id, customer_id, status, current_approver_role, version,
		     system_size_kw, total_cost, subsidy_amount, final_cost, currency)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		q.SurveyID,
		q.CustomerID,
		q.Status,
		roleOrNil(q.CurrentApproverRole),
		q.Version,
		q.SystemSizeKW,
		q.TotalCost,
		q.SubsidyAmount,
		q.FinalCost,
		q.Currency,
	).Scan(&q.ID, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to create quotation")
	}
	return nil
}

// GetByID retrieves a quotation.
func (r *QuotationRepository) GetByID(ctx context.Context, id string) (*Quotation, error) {
	return r.get(ctx, `SELECT `+quotationColumns+` FROM quotations WHERE id = $1`, id)
}

// GetByIDForUpdate retrieves a quotation holding a row lock for the rest of
// the transaction, serializing concurrent approval actions.
func (r *QuotationRepository) GetByIDForUpdate(ctx context.Context, id string) (*Quotation, error) {
	return r.get(ctx, `SELECT `+quotationColumns+` FROM quotations WHERE id = $1 FOR UPDATE`, id)
}

// GetBySurveyID returns the quotation created for a survey, or NotFound.
func (r *QuotationRepository) GetBySurveyID(ctx context.Context, surveyID string) (*Quotation, error) {
	return r.get(ctx, `SELECT `+quotationColumns+` FROM quotations WHERE survey_id = $1`, surveyID)
}

// GetLatestByCustomer returns the newest quotation for a customer.
func (r *QuotationRepository) GetLatestByCustomer(ctx context.Context, customerID string) (*Quotation, error) {
	query := `
		SELECT ` + quotationColumns + `
		FROM quotations
		WHERE customer_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	return r.get(ctx, query, customerID)
}

// Update persists status, approver role and version.
func (r *QuotationRepository) Update(ctx context.Context, q *Quotation) error {
	query := `
		UPDATE quotations
		SET status                = $2,
		    current_approver_role = $3,
		    version               = $4,
		    updated_at            = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.QueryRow(ctx, query,
		q.ID,
		q.Status,
		roleOrNil(q.CurrentApproverRole),
		q.Version,
	).Scan(&q.UpdatedAt)
	if err == pgx.ErrNoRows {
		return errors.NotFound("quotation", q.ID)
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to update quotation")
	}
	return nil
}

// ── scan helpers ──────────────────────────────────────────────────────────────

func (r *QuotationRepository) get(ctx context.Context, query string, arg any) (*Quotation, error) {
	q := &Quotation{}
	var approverRole *string

	err := r.db.QueryRow(ctx, query, arg).Scan(
		&q.ID,
		&q.SurveyID,
		&q.CustomerID,
		&q.Status,
		&approverRole,
		&q.Version,
		&q.SystemSizeKW,
		&q.TotalCost,
		&q.SubsidyAmount,
		&q.FinalCost,
		&q.Currency,
		&q.CreatedAt,
		&q.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("quotation", stringArg(arg))
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to get quotation")
	}

	if approverRole != nil {
		q.CurrentApproverRole = workflow.Role(*approverRole)
	}
	return q, nil
}

func roleOrNil(r workflow.Role) *string {
	if r == workflow.RoleNone {
		return nil
	}
	s := string(r)
	return &s
}

func stringArg(arg any) string {
	if s, ok := arg.(string); ok {
		return s
	}
	return ""
}
