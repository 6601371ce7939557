package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/voltora-energy/be-install-workflow/internal/platform/database"
	"github.com/voltora-energy/be-install-workflow/internal/platform/errors"
	"github.com/voltora-energy/be-install-workflow/internal/workflow"
)

// CustomerRepository reads customers and maintains their denormalized
// survey/installation status fields. Those two columns are owned by the
// workflow engine; everything else on the customer is out of scope here.
type CustomerRepository struct {
	db *database.DB
}

// NewCustomerRepository creates a new CustomerRepository.
func NewCustomerRepository(db *database.DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

const customerColumns = `id, name, survey_status, installation_status, updated_at`

// GetByID retrieves a customer.
func (r *CustomerRepository) GetByID(ctx context.Context, id string) (*Customer, error) {
	return r.get(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id)
}

// GetByIDForUpdate retrieves a customer holding a row lock for the rest of
// the transaction. Every mutating workflow operation takes this lock first,
// serializing concurrent requests for the same customer.
func (r *CustomerRepository) GetByIDForUpdate(ctx context.Context, id string) (*Customer, error) {
	return r.get(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1 FOR UPDATE`, id)
}

// UpdateStatuses writes both denormalized status fields.
func (r *CustomerRepository) UpdateStatuses(
	ctx context.Context,
	id string,
	survey workflow.SurveyStatus,
	installation workflow.InstallationStatus,
) error {
	query := `
		UPDATE customers
		SET survey_status       = $2,
		    installation_status = $3,
		    updated_at          = NOW()
		WHERE id = $1
		RETURNING id
	`

	var returnedID string
	err := r.db.QueryRow(ctx, query, id, survey, installation).Scan(&returnedID)
	if err == pgx.ErrNoRows {
		return errors.NotFound("customer", id)
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to update customer statuses")
	}
	return nil
}

func (r *CustomerRepository) get(ctx context.Context, query, id string) (*Customer, error) {
	c := &Customer{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&c.ID,
		&c.Name,
		&c.SurveyStatus,
		&c.InstallationStatus,
		&c.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("customer", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to get customer")
	}
	return c, nil
}
