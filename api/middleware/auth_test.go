package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/angelmondragon/resale-backend/pkg/auth"
	"github.com/angelmondragon/resale-backend/pkg/config"
	"github.com/angelmondragon/resale-backend/pkg/enums"
	"github.com/google/uuid"
)

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "issuer", ExpirationMinutes: 60}

type capturedIdentity struct {
	called bool
	user   string
	role   enums.Role
}

func captureHandler(c *capturedIdentity) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.called = true
		c.user = UserIDFromContext(r.Context())
		c.role = RoleFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthRejectsMissingToken(t *testing.T) {
	var c capturedIdentity
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp := httptest.NewRecorder()
	Auth(testJWT, nil)(captureHandler(&c)).ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
	if c.called {
		t.Fatal("handler should not run")
	}
}

func TestAuthRejectsInvalidToken(t *testing.T) {
	var c capturedIdentity
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer invalid")
	resp := httptest.NewRecorder()
	Auth(testJWT, nil)(captureHandler(&c)).ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthAllowsValidToken(t *testing.T) {
	userID := uuid.New()
	token := mintTestToken(t, userID, enums.RoleSeller)

	var c capturedIdentity
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	Auth(testJWT, nil)(captureHandler(&c)).ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if c.user != userID.String() {
		t.Fatalf("expected user %s got %s", userID, c.user)
	}
	if c.role != enums.RoleSeller {
		t.Fatalf("expected role seller got %s", c.role)
	}
}

func TestOptionalAuthPassesAnonymousRequests(t *testing.T) {
	var c capturedIdentity
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	resp := httptest.NewRecorder()
	OptionalAuth(testJWT, nil)(captureHandler(&c)).ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !c.called || c.user != "" {
		t.Fatalf("expected anonymous pass-through, got %+v", c)
	}
	if _, ok := UserUUIDFromContext(req.Context()); ok {
		t.Fatal("expected no user id")
	}
}

func TestOptionalAuthAttachesClaims(t *testing.T) {
	userID := uuid.New()
	token := mintTestToken(t, userID, enums.RoleCustomer)

	var c capturedIdentity
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	OptionalAuth(testJWT, nil)(captureHandler(&c)).ServeHTTP(resp, req)
	if c.user != userID.String() || c.role != enums.RoleCustomer {
		t.Fatalf("expected claims attached, got %+v", c)
	}
}

func TestOptionalAuthRejectsBadToken(t *testing.T) {
	var c capturedIdentity
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Bearer nope")
	resp := httptest.NewRecorder()
	OptionalAuth(testJWT, nil)(captureHandler(&c)).ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
	if c.called {
		t.Fatal("handler should not run")
	}
}

func TestRequireAnyRole(t *testing.T) {
	tests := []struct {
		role enums.Role
		want int
	}{
		{enums.RoleSeller, http.StatusOK},
		{enums.RoleAdmin, http.StatusOK},
		{enums.RoleCustomer, http.StatusForbidden},
		{"", http.StatusForbidden},
	}
	for _, tt := range tests {
		var c capturedIdentity
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(WithRole(req.Context(), tt.role))
		resp := httptest.NewRecorder()
		RequireAnyRole(nil, enums.RoleSeller, enums.RoleAdmin)(captureHandler(&c)).ServeHTTP(resp, req)
		if resp.Code != tt.want {
			t.Fatalf("role %q: expected %d got %d", tt.role, tt.want, resp.Code)
		}
	}
}

func mintTestToken(t *testing.T, userID uuid.UUID, role enums.Role) string {
	t.Helper()
	token, err := auth.Mint(testJWT, time.Now(), userID, role)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}
