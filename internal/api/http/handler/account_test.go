package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	httpcontext "github.com/nhangara/identity-server/internal/api/http/context"
	"github.com/nhangara/identity-server/internal/api/http/handler/mocks"
	"github.com/nhangara/identity-server/internal/model"
	"github.com/nhangara/identity-server/internal/testutil"
)

func authenticated(r *http.Request, user model.User) *http.Request {
	return r.WithContext(httpcontext.NewManager().SetUserToContext(r.Context(), user))
}

func TestAccount_Session(t *testing.T) {
	t.Parallel()

	svc := mocks.NewAccountService(t)
	h := NewAccount(svc, httpcontext.NewManager(), testutil.MakeNoopLogger())
	user := model.User{ID: uuid.New(), ExternalID: "iara@example.com", Name: "Iara", IsActive: true}

	rec := httptest.NewRecorder()
	h.Session(rec, authenticated(httptest.NewRequest(http.MethodGet, "/api/session", nil), user))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		User model.User `json:"user"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, user.ID, body.User.ID)
	assert.Equal(t, "Iara", body.User.Name)
}

func TestAccount_Session_NoUser(t *testing.T) {
	t.Parallel()

	svc := mocks.NewAccountService(t)
	h := NewAccount(svc, httpcontext.NewManager(), testutil.MakeNoopLogger())

	rec := httptest.NewRecorder()
	h.Session(rec, httptest.NewRequest(http.MethodGet, "/api/session", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAccount_Deactivate(t *testing.T) {
	t.Parallel()

	user := model.User{ID: uuid.New(), IsActive: true}

	t.Run("success", func(t *testing.T) {
		t.Parallel()

		svc := mocks.NewAccountService(t)
		svc.On("Deactivate", mock.Anything, user.ID).Return(nil)
		h := NewAccount(svc, httpcontext.NewManager(), testutil.MakeNoopLogger())

		rec := httptest.NewRecorder()
		h.Deactivate(rec, authenticated(httptest.NewRequest(http.MethodPost, "/api/account/deactivate", nil), user))

		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("store unavailable", func(t *testing.T) {
		t.Parallel()

		svc := mocks.NewAccountService(t)
		svc.On("Deactivate", mock.Anything, user.ID).Return(model.ErrStoreUnavailable)
		h := NewAccount(svc, httpcontext.NewManager(), testutil.MakeNoopLogger())

		rec := httptest.NewRecorder()
		h.Deactivate(rec, authenticated(httptest.NewRequest(http.MethodPost, "/api/account/deactivate", nil), user))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}
