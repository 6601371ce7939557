package errors_test

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/voltora-energy/be-install-workflow/internal/platform/errors"
)

func TestCodeOf(t *testing.T) {
	assert.Equal(t, errors.ErrCodeNotFound, errors.CodeOf(errors.NotFound("step", "abc")))
	assert.Equal(t, errors.ErrCodeInternal, errors.CodeOf(stderrors.New("plain")))

	wrapped := fmt.Errorf("outer: %w", errors.Precondition("survey must be approved"))
	assert.Equal(t, errors.ErrCodePrecondition, errors.CodeOf(wrapped))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := errors.Wrap(cause, errors.ErrCodeInternal, "failed to load quotation")

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "failed to load quotation")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{errors.NotFound("quotation", "q1"), http.StatusNotFound},
		{errors.Precondition("pending payments"), http.StatusConflict},
		{errors.New(errors.ErrCodeConflict, "already submitted"), http.StatusConflict},
		{errors.InvalidInput("status", "unknown value"), http.StatusBadRequest},
		{errors.Unauthorized("only Plant Admin can approve at this stage"), http.StatusForbidden},
		{stderrors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, errors.HTTPStatus(tt.err), tt.err.Error())
	}
}
