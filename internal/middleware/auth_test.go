package middleware_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jaekwang-park/project-board/internal/middleware"
)

const (
	testIssuer   = "https://cognito-idp.ap-northeast-2.amazonaws.com/pool-1"
	testClientID = "client-1"
	testKid      = "jwt-test-kid"
)

type resolverFunc func(ctx context.Context, sub string) (string, error)

func (f resolverFunc) ResolveUserID(ctx context.Context, sub string) (string, error) {
	return f(ctx, sub)
}

// subToUser maps every sub to "user-" + sub.
var subToUser = resolverFunc(func(_ context.Context, sub string) (string, error) {
	return "user-" + sub, nil
})

func signedToken(t *testing.T, privKey *rsa.PrivateKey, kid string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = kid
	signed, err := token.SignedString(privKey)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func validClaims(sub string) jwt.MapClaims {
	return jwt.MapClaims{
		"sub":       sub,
		"iss":       testIssuer,
		"aud":       testClientID,
		"exp":       time.Now().Add(time.Hour).Unix(),
		"token_use": "id",
	}
}

func jwksServer(t *testing.T, kid string, privKey *rsa.PrivateKey) *httptest.Server {
	t.Helper()
	jwks := map[string]any{
		"keys": []map[string]any{
			{
				"kty": "RSA",
				"kid": kid,
				"use": "sig",
				"alg": "RS256",
				"n":   base64.RawURLEncoding.EncodeToString(privKey.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(privKey.E)).Bytes()),
			},
		},
	}
	data, _ := json.Marshal(jwks)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newAuth(t *testing.T, cfg middleware.AuthConfig) *middleware.Auth {
	t.Helper()
	auth, err := middleware.NewAuth(cfg)
	if err != nil {
		t.Fatalf("NewAuth: %v", err)
	}
	return auth
}

func jwtAuth(t *testing.T, resolver middleware.UserResolver) (*middleware.Auth, *rsa.PrivateKey) {
	t.Helper()
	privKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate RSA key: %v", err)
	}
	srv := jwksServer(t, testKid, privKey)
	return newAuth(t, middleware.AuthConfig{
		JWKSClient:   middleware.NewJWKSClient(srv.URL),
		Issuer:       testIssuer,
		AppClientID:  testClientID,
		UserResolver: resolver,
	}), privKey
}

func okHandler(captured *string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if captured != nil {
			*captured = middleware.GetUserID(r)
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestNewAuth_RequiresCollaborators(t *testing.T) {
	if _, err := middleware.NewAuth(middleware.AuthConfig{JWKSClient: middleware.NewJWKSClient("http://unused")}); err == nil {
		t.Error("expected error without UserResolver")
	}
	if _, err := middleware.NewAuth(middleware.AuthConfig{UserResolver: subToUser}); err == nil {
		t.Error("expected error without JWKSClient")
	}
	if _, err := middleware.NewAuth(middleware.AuthConfig{DevMode: true}); err != nil {
		t.Errorf("dev mode needs no collaborators, got %v", err)
	}
}

func TestAuth_DevMode(t *testing.T) {
	auth := newAuth(t, middleware.AuthConfig{DevMode: true})

	tests := []struct {
		name       string
		path       string
		header     string
		cookie     string
		wantStatus int
		wantUserID string
	}{
		{"header", "/projects", "dev-user-1", "", http.StatusOK, "dev-user-1"},
		{"session cookie", "/projects", "", "dev-user-2", http.StatusOK, "dev-user-2"},
		{"header wins over cookie", "/projects", "dev-user-1", "dev-user-2", http.StatusOK, "dev-user-1"},
		{"page without credentials", "/projects", "", "", http.StatusFound, ""},
		{"api without credentials", "/api/v1/projects", "", "", http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var captured string
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("X-User-ID", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: tt.cookie})
			}
			w := httptest.NewRecorder()

			auth.Middleware(okHandler(&captured)).ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, w.Code)
			}
			if captured != tt.wantUserID {
				t.Errorf("expected userID=%q, got %q", tt.wantUserID, captured)
			}
		})
	}
}

func TestAuth_RedirectsGuestsToLogin(t *testing.T) {
	auth, _ := jwtAuth(t, subToUser)

	for _, path := range []string{"/projects", "/projects/create", "/projects/abc", "/projects/abc/edit", "/broadcasting/users/u-1"} {
		t.Run(path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, path, nil)
			w := httptest.NewRecorder()

			auth.Middleware(okHandler(nil)).ServeHTTP(w, req)

			if w.Code != http.StatusFound {
				t.Fatalf("expected 302, got %d", w.Code)
			}
			if loc := w.Header().Get("Location"); loc != "/login" {
				t.Errorf("expected Location=/login, got %q", loc)
			}
		})
	}
}

func TestAuth_SkipsPublicEndpoints(t *testing.T) {
	tests := []struct {
		name    string
		devMode bool
	}{
		{"dev mode", true},
		{"jwt mode", false},
	}

	paths := []string{
		"/health",
		"/metrics",
		"/login",
		"/api/v1/auth/signup",
		"/api/v1/auth/login",
		"/api/v1/auth/confirm-signup",
		"/api/v1/auth/refresh",
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := middleware.AuthConfig{DevMode: tt.devMode}
			if !tt.devMode {
				cfg.JWKSClient = middleware.NewJWKSClient("http://unused")
				cfg.UserResolver = subToUser
			}
			auth := newAuth(t, cfg)

			for _, path := range paths {
				var called bool
				inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					called = true
					w.WriteHeader(http.StatusOK)
				})
				req := httptest.NewRequest(http.MethodPost, path, nil)
				w := httptest.NewRecorder()

				auth.Middleware(inner).ServeHTTP(w, req)

				if w.Code != http.StatusOK {
					t.Errorf("%s: expected 200, got %d", path, w.Code)
				}
				if !called {
					t.Errorf("%s: inner handler was not called", path)
				}
			}
		})
	}
}

func TestAuth_JWT_Valid(t *testing.T) {
	auth, privKey := jwtAuth(t, subToUser)
	token := signedToken(t, privKey, testKid, validClaims("cognito-sub-123"))

	tests := []struct {
		name  string
		setup func(r *http.Request)
	}{
		{"bearer header", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }},
		{"session cookie", func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: token})
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var captured string
			req := httptest.NewRequest(http.MethodGet, "/projects", nil)
			tt.setup(req)
			w := httptest.NewRecorder()

			auth.Middleware(okHandler(&captured)).ServeHTTP(w, req)

			if w.Code != http.StatusOK {
				t.Errorf("expected status 200, got %d (body: %s)", w.Code, w.Body.String())
			}
			if captured != "user-cognito-sub-123" {
				t.Errorf("expected userID=user-cognito-sub-123, got %q", captured)
			}
		})
	}
}

func TestAuth_JWT_Rejected(t *testing.T) {
	auth, privKey := jwtAuth(t, subToUser)

	expired := validClaims("cognito-sub-123")
	expired["exp"] = time.Now().Add(-time.Hour).Unix()
	wrongIssuer := validClaims("cognito-sub-123")
	wrongIssuer["iss"] = "https://wrong-issuer.example.com"
	wrongAudience := validClaims("cognito-sub-123")
	wrongAudience["aud"] = "other-client"
	noSub := validClaims("")

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"invalid bearer format", "NotBearer token"},
		{"garbage token", "Bearer not-a-jwt"},
		{"expired", "Bearer " + signedToken(t, privKey, testKid, expired)},
		{"wrong issuer", "Bearer " + signedToken(t, privKey, testKid, wrongIssuer)},
		{"wrong audience", "Bearer " + signedToken(t, privKey, testKid, wrongAudience)},
		{"empty sub", "Bearer " + signedToken(t, privKey, testKid, noSub)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/projects", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			auth.Middleware(okHandler(nil)).ServeHTTP(w, req)

			if w.Code != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", w.Code)
			}
			var body map[string]map[string]string
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode body: %v", err)
			}
			if body["error"]["code"] != "UNAUTHORIZED" {
				t.Errorf("expected code=UNAUTHORIZED, got %v", body["error"]["code"])
			}
		})
	}
}

func TestAuth_JWT_Resolver(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"unknown user", middleware.ErrUserNotFound, http.StatusUnauthorized},
		{"wrapped unknown user", errors.Join(errors.New("lookup"), middleware.ErrUserNotFound), http.StatusUnauthorized},
		{"database failure", errors.New("connection refused"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth, privKey := jwtAuth(t, resolverFunc(func(context.Context, string) (string, error) {
				return "", tt.err
			}))
			req := httptest.NewRequest(http.MethodGet, "/api/v1/projects", nil)
			req.Header.Set("Authorization", "Bearer "+signedToken(t, privKey, testKid, validClaims("sub-1")))
			w := httptest.NewRecorder()

			auth.Middleware(okHandler(nil)).ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, w.Code)
			}
		})
	}
}

func TestCognitoURLs(t *testing.T) {
	if got := middleware.CognitoIssuer("ap-northeast-1", "pool"); got != "https://cognito-idp.ap-northeast-1.amazonaws.com/pool" {
		t.Errorf("unexpected issuer %s", got)
	}
	if got := middleware.CognitoJWKSURL("ap-northeast-1", "pool"); got != "https://cognito-idp.ap-northeast-1.amazonaws.com/pool/.well-known/jwks.json" {
		t.Errorf("unexpected jwks url %s", got)
	}
}
