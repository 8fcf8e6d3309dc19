package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/agrilok/crop-assist/internal/domain"
	"github.com/agrilok/crop-assist/internal/security"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJWTManager() *security.JWTManager {
	return security.NewJWTManager("test-secret-key-32-characters!!!", 15*time.Minute, 24*time.Hour)
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthenticate(t *testing.T) {
	manager := newTestJWTManager()
	mw := NewAuthMiddleware(manager)
	userID := uuid.New()

	t.Run("valid token passes and populates context", func(t *testing.T) {
		token, err := manager.GenerateAccessToken(userID, "farmer@example.com", domain.RoleUser)
		require.NoError(t, err)

		var gotID uuid.UUID
		var gotRole string
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotID, _ = GetUserID(r.Context())
			gotRole, _ = GetUserRole(r.Context())
			w.WriteHeader(http.StatusOK)
		})

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		mw.Authenticate(next).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, userID, gotID)
		assert.Equal(t, domain.RoleUser, gotRole)
	})

	t.Run("missing header is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		mw.Authenticate(okHandler()).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("malformed header is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Token abc")
		rec := httptest.NewRecorder()
		mw.Authenticate(okHandler()).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("garbage token is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer not.a.jwt")
		rec := httptest.NewRecorder()
		mw.Authenticate(okHandler()).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("token signed with another secret is rejected", func(t *testing.T) {
		other := security.NewJWTManager("another-secret-key-32-chars!!!!!", 15*time.Minute, 24*time.Hour)
		token, err := other.GenerateAccessToken(userID, "farmer@example.com", domain.RoleUser)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		mw.Authenticate(okHandler()).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRequireAdmin(t *testing.T) {
	manager := newTestJWTManager()
	mw := NewAuthMiddleware(manager)

	serve := func(role string) *httptest.ResponseRecorder {
		token, err := manager.GenerateAccessToken(uuid.New(), "someone@example.com", role)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		mw.Authenticate(mw.RequireAdmin(okHandler())).ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, serve(domain.RoleAdmin).Code)
	assert.Equal(t, http.StatusForbidden, serve(domain.RoleUser).Code)
}
