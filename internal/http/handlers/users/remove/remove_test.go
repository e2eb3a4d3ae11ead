package remove

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/account-service/internal/common"
	"github.com/magabrotheeeer/account-service/internal/http/middlewarectx"
	"github.com/magabrotheeeer/account-service/internal/models"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) Delete(ctx context.Context, requester *models.User, targetID string) (bool, error) {
	args := m.Called(ctx, requester, targetID)
	return args.Bool(0), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestRemoveHandler_ServeHTTP(t *testing.T) {
	requester := models.NewUser("user-1", "alice@example.com", "hash")

	tests := []struct {
		name           string
		requester      *models.User
		targetID       string
		mockDeleted    bool
		mockErr        error
		wantStatusCode int
		wantError      string
	}{
		{
			name:           "delete self",
			requester:      requester,
			targetID:       "user-1",
			mockDeleted:    true,
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "not authenticated",
			targetID:       "user-1",
			wantStatusCode: http.StatusUnauthorized,
			wantError:      "missing or invalid authorization header",
		},
		{
			name:           "delete someone else",
			requester:      requester,
			targetID:       "user-2",
			mockErr:        fmt.Errorf("accounts.Delete: %w", common.ErrForbidden),
			wantStatusCode: http.StatusForbidden,
			wantError:      "forbidden",
		},
		{
			name:           "target missing",
			requester:      requester,
			targetID:       "user-1",
			mockErr:        fmt.Errorf("accounts.Delete: %w", common.ErrNotFound),
			wantStatusCode: http.StatusNotFound,
			wantError:      "not found",
		},
		{
			name:           "storage failure",
			requester:      requester,
			targetID:       "user-1",
			mockErr:        fmt.Errorf("accounts.Delete: %w: %w", common.ErrInternal, errors.New("db down")),
			wantStatusCode: http.StatusInternalServerError,
			wantError:      "internal error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			serviceMock := new(ServiceMock)

			req := httptest.NewRequest(http.MethodDelete, "/user/delete/"+tt.targetID, nil)
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("user_id", tt.targetID)
			ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
			if tt.requester != nil {
				ctx = middlewarectx.WithUser(ctx, tt.requester)
				serviceMock.On("Delete", mock.Anything, tt.requester, tt.targetID).
					Return(tt.mockDeleted, tt.mockErr).Once()
			}
			rec := httptest.NewRecorder()

			New(newNoopLogger(), serviceMock).ServeHTTP(rec, req.WithContext(ctx))

			assert.Equal(t, tt.wantStatusCode, rec.Code)
			var got map[string]any
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, got["error"])
			} else {
				assert.Equal(t, map[string]any{"deleted": true}, got["data"])
			}
			serviceMock.AssertExpectations(t)
		})
	}
}
