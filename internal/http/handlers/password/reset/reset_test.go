package reset

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/account-service/internal/common"
	"github.com/magabrotheeeer/account-service/internal/lib/password"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) ResetPassword(ctx context.Context, token, email, newPassword string) error {
	return m.Called(ctx, token, email, newPassword).Error(0)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestResetHandler_ServeHTTP(t *testing.T) {
	valid := Request{Token: "tok", Email: "alice@example.com", NewPassword: "brand-new-pass"}

	tests := []struct {
		name           string
		requestBody    any
		callService    bool
		mockErr        error
		wantStatusCode int
		wantError      string
	}{
		{
			name:           "success",
			requestBody:    valid,
			callService:    true,
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "invalid json",
			requestBody:    "{{",
			wantStatusCode: http.StatusBadRequest,
			wantError:      "invalid request body",
		},
		{
			name:           "missing token",
			requestBody:    Request{Email: "alice@example.com", NewPassword: "brand-new-pass"},
			wantStatusCode: http.StatusUnprocessableEntity,
			wantError:      "field Token is a required field",
		},
		{
			name:           "invalid token",
			requestBody:    valid,
			callService:    true,
			mockErr:        fmt.Errorf("verification.ResetPassword: %w: subject mismatch", common.ErrInvalidToken),
			wantStatusCode: http.StatusBadRequest,
			wantError:      "invalid or expired token",
		},
		{
			name:           "password too long",
			requestBody:    valid,
			callService:    true,
			mockErr:        fmt.Errorf("verification.ResetPassword: %w: %w", common.ErrInvalidInput, password.ErrTooLong),
			wantStatusCode: http.StatusUnprocessableEntity,
			wantError:      "password must be between 8 and 72 bytes",
		},
		{
			name:           "storage failure",
			requestBody:    valid,
			callService:    true,
			mockErr:        fmt.Errorf("verification.ResetPassword: %w: %w", common.ErrInternal, errors.New("db down")),
			wantStatusCode: http.StatusInternalServerError,
			wantError:      "internal error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			serviceMock := new(ServiceMock)
			if tt.callService {
				req := tt.requestBody.(Request)
				serviceMock.On("ResetPassword", mock.Anything, req.Token, req.Email, req.NewPassword).
					Return(tt.mockErr).Once()
			}

			var bodyBytes []byte
			switch v := tt.requestBody.(type) {
			case string:
				bodyBytes = []byte(v)
			default:
				var err error
				bodyBytes, err = json.Marshal(v)
				require.NoError(t, err)
			}

			rec := httptest.NewRecorder()
			New(newNoopLogger(), serviceMock).ServeHTTP(rec,
				httptest.NewRequest(http.MethodPost, "/reset-password", bytes.NewReader(bodyBytes)))

			assert.Equal(t, tt.wantStatusCode, rec.Code)
			var got map[string]any
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
			if tt.wantError != "" {
				assert.Equal(t, "Error", got["status"])
				assert.Equal(t, tt.wantError, got["error"])
			} else {
				assert.Equal(t, "OK", got["status"])
			}
			serviceMock.AssertExpectations(t)
		})
	}
}
