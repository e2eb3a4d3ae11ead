package response

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/go-playground/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/account-service/internal/common"
	"github.com/magabrotheeeer/account-service/internal/lib/password"
)

func TestFromError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"invalid input", fmt.Errorf("op: %w", common.ErrInvalidInput), http.StatusUnprocessableEntity, MsgInvalidInput},
		{"short password", fmt.Errorf("op: %w: %w", common.ErrInvalidInput, password.ErrTooShort), http.StatusUnprocessableEntity, MsgPasswordLength},
		{"long password", fmt.Errorf("op: %w: %w", common.ErrInvalidInput, password.ErrTooLong), http.StatusUnprocessableEntity, MsgPasswordLength},
		{"conflict", fmt.Errorf("op: %w", common.ErrConflict), http.StatusConflict, MsgConflict},
		{"unauthorized", fmt.Errorf("op: %w", common.ErrUnauthorized), http.StatusUnauthorized, MsgUnauthorized},
		{"forbidden", fmt.Errorf("op: %w", common.ErrForbidden), http.StatusForbidden, MsgForbidden},
		{"not found", fmt.Errorf("op: %w", common.ErrNotFound), http.StatusNotFound, MsgNotFound},
		{"invalid token", fmt.Errorf("op: %w: expired", common.ErrInvalidToken), http.StatusBadRequest, MsgInvalidToken},
		{"internal", fmt.Errorf("op: %w: %w", common.ErrInternal, errors.New("pq: connection reset")), http.StatusInternalServerError, MsgInternal},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, MsgInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, resp := FromError(tt.err)

			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, StatusError, resp.Status)
			assert.Equal(t, tt.wantMsg, resp.Error)
			assert.Nil(t, resp.Data)
		})
	}
}

func TestFromError_DoesNotLeakCause(t *testing.T) {
	_, resp := FromError(fmt.Errorf("storage.Insert: %w: %w", common.ErrInternal, errors.New(`relation "users" does not exist`)))
	assert.NotContains(t, resp.Error, "users")
}

func TestValidationError(t *testing.T) {
	type request struct {
		Email    string `validate:"required,email"`
		Password string `validate:"required,min=8"`
		Name     string `validate:"max=3"`
		UserID   string `validate:"omitempty,uuid"`
	}

	err := validator.New().Struct(request{Email: "bad", Password: "short", Name: "long name", UserID: "x"})
	require.Error(t, err)

	resp := ValidationError(err.(validator.ValidationErrors))

	assert.Equal(t, StatusError, resp.Status)
	assert.Contains(t, resp.Error, "field Email must be a valid email")
	assert.Contains(t, resp.Error, "field Password must be at least 8 long")
	assert.Contains(t, resp.Error, "field Name must be at most 3 long")
	assert.Contains(t, resp.Error, "field UserID can contain only uuid")
}

func TestValidationError_Required(t *testing.T) {
	type request struct {
		Email string `validate:"required"`
	}

	err := validator.New().Struct(request{})
	require.Error(t, err)

	resp := ValidationError(err.(validator.ValidationErrors))
	assert.Equal(t, "field Email is a required field", resp.Error)
}

func TestOKWithData(t *testing.T) {
	resp := OKWithData(map[string]any{"id": "1"})

	assert.Equal(t, StatusOK, resp.Status)
	assert.Empty(t, resp.Error)
	assert.Equal(t, map[string]any{"id": "1"}, resp.Data)
}
