package auth

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func testUsers(t *testing.T) *Users {
	t.Helper()
	// MinCost keeps the test fast.
	adminHash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)
	clerkHash, err := bcrypt.GenerateFromPassword([]byte("clerkpw"), bcrypt.MinCost)
	require.NoError(t, err)

	users, err := ParseUsers([]byte(`{
		"admin": {"password": "` + string(adminHash) + `", "role": "admin"},
		"clerk": {"password": "` + string(clerkHash) + `", "role": "viewer"}
	}`))
	require.NoError(t, err)
	return users
}

func TestAuthenticate(t *testing.T) {
	users := testUsers(t)

	role, err := users.Authenticate(" admin ", "secret ")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, role)

	role, err = users.Authenticate("clerk", "clerkpw")
	require.NoError(t, err)
	assert.Equal(t, RoleUser, role, "unknown roles are regular users")

	_, err = users.Authenticate("admin", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = users.Authenticate("nobody", "secret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoadUsers(t *testing.T) {
	users, err := LoadUsers(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	assert.Equal(t, 0, users.Len())

	bad := filepath.Join(t.TempDir(), "users.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o644))
	_, err = LoadUsers(bad)
	assert.Error(t, err)
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword(" pw ")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("pw")))
}

func TestTokens_IssueValidate(t *testing.T) {
	tokens := NewTokens("test-secret", 0)

	raw, issued, err := tokens.Issue("admin", RoleAdmin)
	require.NoError(t, err)

	session, err := tokens.Validate(raw)
	require.NoError(t, err)
	assert.Equal(t, "admin", session.Username)
	assert.Equal(t, RoleAdmin, session.Role)
	assert.WithinDuration(t, issued.ExpiresAt, session.ExpiresAt, time.Second)
}

func TestTokens_Expired(t *testing.T) {
	// GIVEN: A token issued 16 minutes ago with the default lifetime
	tokens := NewTokens("test-secret", 0)
	start := time.Now()
	tokens.now = func() time.Time { return start.Add(-16 * time.Minute) }
	raw, _, err := tokens.Issue("admin", RoleAdmin)
	require.NoError(t, err)

	// WHEN: Validating it now
	tokens.now = func() time.Time { return start }
	_, err = tokens.Validate(raw)

	// THEN: The session is gone
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestTokens_WrongSecret(t *testing.T) {
	raw, _, err := NewTokens("one", 0).Issue("admin", RoleAdmin)
	require.NoError(t, err)

	_, err = NewTokens("two", 0).Validate(raw)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestMiddleware(t *testing.T) {
	tokens := NewTokens("test-secret", time.Minute)
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, found := SessionFrom(r.Context())
		require.True(t, found)
		w.Write([]byte(s.Username))
	})
	handler := RequireSession(tokens)(RequireAdmin(ok))

	adminToken, _, err := tokens.Issue("admin", RoleAdmin)
	require.NoError(t, err)
	userToken, _, err := tokens.Issue("clerk", RoleUser)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"garbage token", "Bearer nope", http.StatusUnauthorized},
		{"regular user", "Bearer " + userToken, http.StatusForbidden},
		{"admin", "Bearer " + adminToken, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
