package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	httpcontext "github.com/nhangara/identity-server/internal/api/http/context"
	"github.com/nhangara/identity-server/internal/api/http/middleware/mocks"
	"github.com/nhangara/identity-server/internal/model"
	"github.com/nhangara/identity-server/internal/testutil"
)

func TestAuthenticate_Handle(t *testing.T) {
	t.Parallel()

	user := model.User{ID: uuid.New(), Name: "Saci", IsActive: true}

	tests := []struct {
		name       string
		authHeader string
		user       model.User
		err        error
		wantStatus int
		wantCall   bool
	}{
		{
			name:       "missing authorization header",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "wrong scheme",
			authHeader: "Basic dXNlcjpwYXNz",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "invalid session",
			authHeader: "Bearer stale",
			err:        model.ErrSessionInvalid,
			wantStatus: http.StatusUnauthorized,
			wantCall:   true,
		},
		{
			name:       "store unavailable",
			authHeader: "Bearer tok",
			err:        fmt.Errorf("%w: dial tcp", model.ErrStoreUnavailable),
			wantStatus: http.StatusServiceUnavailable,
			wantCall:   true,
		},
		{
			name:       "valid session",
			authHeader: "Bearer tok",
			user:       user,
			wantStatus: http.StatusOK,
			wantCall:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			sessions := mocks.NewSessionValidator(t)
			if tt.wantCall {
				sessions.On("ValidateSession", mock.Anything, mock.AnythingOfType("string")).Return(tt.user, tt.err)
			}
			cm := httpcontext.NewManager()
			mw := NewAuthenticate(sessions, cm, testutil.MakeNoopLogger())

			var seen model.User
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen, _ = cm.GetUserFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/api/session", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()
			mw.Handle(next).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, user.ID, seen.ID)
			} else {
				assert.Equal(t, uuid.Nil, seen.ID)
			}
		})
	}
}
