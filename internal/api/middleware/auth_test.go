package middleware

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	"github.com/bigkaa/membergate/internal/domain/model"
	"github.com/bigkaa/membergate/internal/keycloak"
)

// testKeyID — идентификатор ключа для тестов.
const (
	testKeyID  = "test-key-mg"
	testIssuer = "https://keycloak.test/realms/membergate"
)

// generateTestKey генерирует RSA ключ для тестов.
func generateTestKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	return key
}

// buildJWKSetJSON строит JWKS JSON из RSA публичного ключа.
func buildJWKSetJSON(pub *rsa.PublicKey, kid string) json.RawMessage {
	jwks := map[string]any{
		"keys": []map[string]any{
			{
				"kty": "RSA",
				"kid": kid,
				"use": "sig",
				"alg": "RS256",
				"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
			},
		},
	}
	data, _ := json.Marshal(jwks)
	return data
}

// testLogger создаёт logger для тестов.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// newTestJWTAuth создаёт JWTAuth с mock JWKS.
func newTestJWTAuth(t *testing.T, key *rsa.PrivateKey) *JWTAuth {
	t.Helper()
	kf, err := keyfunc.NewJWKSetJSON(buildJWKSetJSON(&key.PublicKey, testKeyID))
	if err != nil {
		t.Fatalf("не удалось создать keyfunc: %v", err)
	}
	return NewJWTAuth(keycloak.NewVerifierWithKeyfunc(kf, testIssuer, 0, testLogger()), testLogger())
}

// generateUserToken генерирует access token пользователя.
func generateUserToken(t *testing.T, key *rsa.PrivateKey, sub, email string, verified, expired bool) string {
	t.Helper()

	exp := time.Now().Add(time.Hour)
	if expired {
		exp = time.Now().Add(-time.Hour)
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"sub":            sub,
		"email":          email,
		"email_verified": verified,
		"iss":            testIssuer,
		"exp":            jwt.NewNumericDate(exp),
		"iat":            jwt.NewNumericDate(time.Now()),
	})
	token.Header["kid"] = testKeyID
	s, err := token.SignedString(key)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

// fakeRoles — RoleResolver по таблице ролей.
type fakeRoles map[string]string

func (f fakeRoles) Resolve(_ context.Context, identity *model.Identity) model.RoleDecision {
	if identity == nil {
		return model.RoleDecision{}
	}
	role := f[identity.ID]
	if role == "" {
		role = "member"
	}
	return model.RoleDecision{
		Role:     role,
		IsMember: true,
		IsAdmin:  role == "admin" || role == "superadmin",
		IsSuper:  role == "superadmin",
	}
}

func TestJWTAuth_Middleware(t *testing.T) {
	key := generateTestKey(t)
	otherKey := generateTestKey(t)
	auth := newTestJWTAuth(t, key)

	var got *AuthInfo
	handler := auth.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = AuthFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"валидный токен", "Bearer " + generateUserToken(t, key, "uid-1", "ada@example.org", true, false), http.StatusOK},
		{"без заголовка", "", http.StatusUnauthorized},
		{"не Bearer", "Basic dXNlcjpwYXNz", http.StatusUnauthorized},
		{"пустой токен", "Bearer ", http.StatusUnauthorized},
		{"просроченный", "Bearer " + generateUserToken(t, key, "uid-1", "", true, true), http.StatusUnauthorized},
		{"чужой ключ", "Bearer " + generateUserToken(t, otherKey, "uid-1", "", true, false), http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got = nil
			req := httptest.NewRequest(http.MethodGet, "/api/v1/me/role", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("статус = %d, ожидается %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusOK {
				if got != nil {
					t.Error("обработчик не должен вызываться")
				}
				return
			}
			if got == nil || got.Identity.ID != "uid-1" || !got.Identity.EmailVerified || got.AccessToken == "" {
				t.Errorf("AuthInfo = %+v", got)
			}
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	roles := fakeRoles{"admin-1": "admin", "super-1": "superadmin"}
	var decision *model.RoleDecision
	handler := RequireAdmin(roles)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		decision = DecisionFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name       string
		identity   *model.Identity
		wantStatus int
	}{
		{"без аутентификации", nil, http.StatusUnauthorized},
		{"member", &model.Identity{ID: "member-1"}, http.StatusForbidden},
		{"admin", &model.Identity{ID: "admin-1"}, http.StatusNoContent},
		{"superadmin", &model.Identity{ID: "super-1"}, http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision = nil
			req := httptest.NewRequest(http.MethodGet, "/api/v1/members", nil)
			if tt.identity != nil {
				req = req.WithContext(context.WithValue(req.Context(), ContextKeyAuth, &AuthInfo{Identity: tt.identity}))
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("статус = %d, ожидается %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusNoContent && (decision == nil || !decision.IsAdmin) {
				t.Errorf("решение о роли не сохранено в контексте: %+v", decision)
			}
		})
	}
}

func TestContextHelpers_Empty(t *testing.T) {
	ctx := context.Background()
	if AuthFromContext(ctx) != nil || IdentityFromContext(ctx) != nil || DecisionFromContext(ctx) != nil {
		t.Error("пустой контекст не должен содержать данных аутентификации")
	}
}
