package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/nhangara/identity-server/internal/api/http/handler/mocks"
	"github.com/nhangara/identity-server/internal/model"
	"github.com/nhangara/identity-server/internal/service"
	"github.com/nhangara/identity-server/internal/testutil"
)

func loginResult() service.LoginResult {
	return service.LoginResult{
		User: model.User{ID: uuid.New(), ExternalID: "curupira@example.com", Email: "curupira@example.com", Name: "Curupira", IsActive: true},
		Session: model.Session{
			Token:     "abc123",
			ExpiresAt: time.Date(2026, 5, 20, 9, 0, 0, 0, time.UTC),
		},
		Wallet: model.WalletSummary{AccountID: "0.0.1001", PublicKey: "302a300506032b6570032100aa", BalanceTinybar: 100_000_000},
	}
}

func TestAuth_Login(t *testing.T) {
	t.Parallel()

	svc := mocks.NewAuthService(t)
	want := loginResult()
	svc.On("Login", mock.Anything, model.IdentityAssertion{ExternalID: "curupira@example.com", Name: "Curupira"}).Return(want, nil)

	h := NewAuth(svc, testutil.MakeNoopLogger())
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"external_id":"curupira@example.com","name":"Curupira"}`))
	rec := httptest.NewRecorder()

	h.Login(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body struct {
		User struct {
			ID         uuid.UUID `json:"id"`
			ExternalID string    `json:"external_id"`
		} `json:"user"`
		Session struct {
			Token     string    `json:"token"`
			ExpiresAt time.Time `json:"expires_at"`
		} `json:"session"`
		Wallet model.WalletSummary `json:"wallet"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, want.User.ID, body.User.ID)
	assert.Equal(t, "abc123", body.Session.Token)
	assert.True(t, want.Session.ExpiresAt.Equal(body.Session.ExpiresAt))
	assert.Equal(t, want.Wallet, body.Wallet)
}

func TestAuth_Login_Signed(t *testing.T) {
	t.Parallel()

	svc := mocks.NewAuthService(t)
	svc.On("LoginSigned", mock.Anything, "signed.jwt.value").Return(loginResult(), nil)

	h := NewAuth(svc, testutil.MakeNoopLogger())
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"assertion":"signed.jwt.value"}`))
	rec := httptest.NewRecorder()

	h.Login(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuth_Login_PendingWallet(t *testing.T) {
	t.Parallel()

	svc := mocks.NewAuthService(t)
	res := loginResult()
	res.Wallet = model.WalletSummary{Pending: true}
	svc.On("Login", mock.Anything, mock.Anything).Return(res, nil)

	h := NewAuth(svc, testutil.MakeNoopLogger())
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"external_id":"saci"}`))
	rec := httptest.NewRecorder()

	h.Login(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"pending":true`)
}

func TestAuth_Login_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{name: "invalid identity", err: model.ErrInvalidIdentity, status: http.StatusBadRequest, code: "invalid_identity"},
		{name: "disabled", err: model.ErrAccountDisabled, status: http.StatusForbidden, code: "account_disabled"},
		{name: "store down", err: model.ErrStoreUnavailable, status: http.StatusServiceUnavailable, code: "store_unavailable"},
		{name: "unexpected", err: assert.AnError, status: http.StatusInternalServerError, code: "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc := mocks.NewAuthService(t)
			svc.On("Login", mock.Anything, mock.Anything).Return(service.LoginResult{}, tt.err)

			h := NewAuth(svc, testutil.MakeNoopLogger())
			req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"external_id":"boto"}`))
			rec := httptest.NewRecorder()

			h.Login(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			var body ErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, tt.code, body.Error)
		})
	}
}

func TestAuth_Login_MalformedBody(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"not json":      `{external_id`,
		"empty":         ``,
		"unknown field": `{"login":"boto"}`,
	}

	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			svc := mocks.NewAuthService(t)
			h := NewAuth(svc, testutil.MakeNoopLogger())
			req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
			rec := httptest.NewRecorder()

			h.Login(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestAuth_Logout(t *testing.T) {
	t.Parallel()

	t.Run("bearer token", func(t *testing.T) {
		t.Parallel()

		svc := mocks.NewAuthService(t)
		svc.On("Logout", mock.Anything, "tok-1").Return(nil)

		h := NewAuth(svc, testutil.MakeNoopLogger())
		req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
		req.Header.Set("Authorization", "Bearer tok-1")
		rec := httptest.NewRecorder()

		h.Logout(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("body token", func(t *testing.T) {
		t.Parallel()

		svc := mocks.NewAuthService(t)
		svc.On("Logout", mock.Anything, "tok-2").Return(nil)

		h := NewAuth(svc, testutil.MakeNoopLogger())
		req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", strings.NewReader(`{"session_token":"tok-2"}`))
		rec := httptest.NewRecorder()

		h.Logout(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("no token", func(t *testing.T) {
		t.Parallel()

		svc := mocks.NewAuthService(t)
		svc.On("Logout", mock.Anything, "").Return(nil)

		h := NewAuth(svc, testutil.MakeNoopLogger())
		req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
		rec := httptest.NewRecorder()

		h.Logout(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("store unavailable", func(t *testing.T) {
		t.Parallel()

		svc := mocks.NewAuthService(t)
		svc.On("Logout", mock.Anything, "tok-3").Return(model.ErrStoreUnavailable)

		h := NewAuth(svc, testutil.MakeNoopLogger())
		req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
		req.Header.Set("Authorization", "bearer tok-3")
		rec := httptest.NewRecorder()

		h.Logout(rec, req)

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestBearerToken(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"Bearer abc":  "abc",
		"bearer  abc": "abc",
		"Basic abc":   "",
		"Bearer":      "",
		"":            "",
	}

	for header, want := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		assert.Equal(t, want, BearerToken(req), header)
	}
}
