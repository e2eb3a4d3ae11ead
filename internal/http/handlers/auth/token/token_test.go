package token

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
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/account-service/internal/common"
	"github.com/magabrotheeeer/account-service/internal/services/accounts"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) Login(ctx context.Context, email, password string) (*accounts.Token, error) {
	args := m.Called(ctx, email, password)
	tok, _ := args.Get(0).(*accounts.Token)
	return tok, args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestTokenHandler_ServeHTTP(t *testing.T) {
	issued := &accounts.Token{AccessToken: "jwt.token.value", TokenType: "bearer", ExpiresIn: 3600}

	tests := []struct {
		name           string
		requestBody    any
		mockResp       *accounts.Token
		mockErr        error
		callService    bool
		wantStatusCode int
		wantData       map[string]any
		wantError      string
		wantStatus     string
	}{
		{
			name:           "valid login",
			requestBody:    Request{Email: "user1@example.com", Password: "password123"},
			mockResp:       issued,
			callService:    true,
			wantStatusCode: http.StatusOK,
			wantData: map[string]any{
				"access_token": "jwt.token.value",
				"token_type":   "bearer",
				"expires_in":   float64(3600),
			},
			wantStatus: "OK",
		},
		{
			name:           "invalid json body",
			requestBody:    "not a json",
			wantStatusCode: http.StatusBadRequest,
			wantError:      "invalid request body",
			wantStatus:     "Error",
		},
		{
			name:           "validation error - missing password",
			requestBody:    Request{Email: "user1@example.com"},
			wantStatusCode: http.StatusUnprocessableEntity,
			wantError:      "field Password is a required field",
			wantStatus:     "Error",
		},
		{
			name:           "wrong credentials",
			requestBody:    Request{Email: "user1@example.com", Password: "wrong-pass"},
			mockErr:        fmt.Errorf("accounts.Login: %w", common.ErrUnauthorized),
			callService:    true,
			wantStatusCode: http.StatusUnauthorized,
			wantError:      "invalid credentials",
			wantStatus:     "Error",
		},
		{
			name:           "storage failure",
			requestBody:    Request{Email: "user1@example.com", Password: "password123"},
			mockErr:        fmt.Errorf("accounts.Login: %w: %w", common.ErrInternal, errors.New("db down")),
			callService:    true,
			wantStatusCode: http.StatusInternalServerError,
			wantError:      "internal error",
			wantStatus:     "Error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			serviceMock := new(ServiceMock)
			handler := New(newNoopLogger(), serviceMock)

			if tt.callService {
				req := tt.requestBody.(Request)
				serviceMock.On("Login", mock.Anything, req.Email, req.Password).
					Return(tt.mockResp, tt.mockErr).Once()
			}

			var bodyBytes []byte
			switch v := tt.requestBody.(type) {
			case string:
				bodyBytes = []byte(v)
			default:
				var err error
				bodyBytes, err = json.Marshal(tt.requestBody)
				require.NoError(t, err)
			}

			req := httptest.NewRequest(http.MethodPost, "/token", bytes.NewReader(bodyBytes))
			req.Header.Set("Content-Type", "application/json")
			req = req.WithContext(context.WithValue(req.Context(), middleware.RequestIDKey, "reqid123"))
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatusCode, rec.Code)

			var got map[string]any
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
			assert.Equal(t, tt.wantStatus, got["status"])

			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, got["error"])
			} else {
				assert.Nil(t, got["error"])
			}

			if tt.wantData != nil {
				data, ok := got["data"].(map[string]any)
				require.True(t, ok)
				assert.Equal(t, tt.wantData, data)
			} else {
				assert.Nil(t, got["data"])
			}

			serviceMock.AssertExpectations(t)
		})
	}
}

func TestTokenHandler_FormLogin(t *testing.T) {
	serviceMock := new(ServiceMock)
	handler := New(newNoopLogger(), serviceMock)
	serviceMock.On("Login", mock.Anything, "user1@example.com", "password123").
		Return(&accounts.Token{AccessToken: "t", TokenType: "bearer", ExpiresIn: 60}, nil).Once()

	form := url.Values{}
	form.Set("username", "user1@example.com")
	form.Set("password", "password123")
	form.Set("grant_type", "password")

	req := httptest.NewRequest(http.MethodPost, "/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=utf-8")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	serviceMock.AssertExpectations(t)
}

func TestTokenHandler_FormMissingPassword(t *testing.T) {
	serviceMock := new(ServiceMock)
	handler := New(newNoopLogger(), serviceMock)

	req := httptest.NewRequest(http.MethodPost, "/token", strings.NewReader("username=user1%40example.com"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	serviceMock.AssertNotCalled(t, "Login", mock.Anything, mock.Anything, mock.Anything)
}
