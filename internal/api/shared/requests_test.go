package shared

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type taggedRequest struct {
	Message string `json:"message" validate:"required"`
}

type selfValidatingRequest struct {
	Message string `validate:"required"`
	err     error
}

func (r selfValidatingRequest) Validate() error { return r.err }

func TestDecodeJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/tasks",
		strings.NewReader(`{"message":"send welcome email"}`))

	var body taggedRequest
	require.NoError(t, DecodeJSON(req, &body))
	assert.Equal(t, "send welcome email", body.Message)
}

func TestValidateRequest_StructTags(t *testing.T) {
	assert.Error(t, ValidateRequest(taggedRequest{}))
	assert.NoError(t, ValidateRequest(taggedRequest{Message: "ok"}))
}

func TestValidateRequest_CustomValidatorTakesPrecedence(t *testing.T) {
	custom := errors.New("message is malformed")
	err := ValidateRequest(selfValidatingRequest{err: custom})
	assert.ErrorIs(t, err, custom)

	// The Message field would fail the required tag, but the custom
	// Validate method wins.
	assert.NoError(t, ValidateRequest(selfValidatingRequest{}))
}
