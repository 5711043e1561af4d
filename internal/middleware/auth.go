package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// SessionCookie carries the ID token (or the user id in dev mode) for
// browser sessions started through the login page.
const SessionCookie = "session"

// ErrUserNotFound is returned by UserResolver when no user matches the given Cognito sub.
var ErrUserNotFound = errors.New("user not found")

// ErrUnauthenticated marks a request that carried no usable credentials.
var ErrUnauthenticated = errors.New("unauthenticated")

// UserResolver resolves a Cognito sub claim to a database user ID.
// Implementations must return ErrUserNotFound (or a wrapped form) when the user does not exist.
type UserResolver interface {
	ResolveUserID(ctx context.Context, cognitoSub string) (string, error)
}

type AuthConfig struct {
	DevMode      bool
	JWKSClient   *JWKSClient
	Issuer       string
	AppClientID  string
	UserResolver UserResolver
	// LoginPath is where unauthenticated page requests are sent. Defaults to /login.
	LoginPath string
}

type Auth struct {
	cfg AuthConfig
}

func NewAuth(cfg AuthConfig) (*Auth, error) {
	if !cfg.DevMode {
		if cfg.UserResolver == nil {
			return nil, fmt.Errorf("middleware: UserResolver is required when DevMode is false")
		}
		if cfg.JWKSClient == nil {
			return nil, fmt.Errorf("middleware: JWKSClient is required when DevMode is false")
		}
	}
	if cfg.LoginPath == "" {
		cfg.LoginPath = "/login"
	}
	return &Auth{cfg: cfg}, nil
}

func (a *Auth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cleanPath := path.Clean(r.URL.Path)
		if a.isPublic(cleanPath) {
			next.ServeHTTP(w, r)
			return
		}

		userID, err := a.authenticate(r)
		if err != nil {
			a.reject(w, r, cleanPath, err)
			return
		}

		ctx := SetUserID(r.Context(), userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *Auth) isPublic(p string) bool {
	switch p {
	case "/health", "/metrics", a.cfg.LoginPath:
		return true
	}
	return strings.HasPrefix(p, "/api/v1/auth/")
}

// authenticate returns the database user id for the request. Errors wrapping
// ErrUnauthenticated mean the caller should log in again.
func (a *Auth) authenticate(r *http.Request) (string, error) {
	if a.cfg.DevMode {
		if userID := r.Header.Get("X-User-ID"); userID != "" {
			return userID, nil
		}
		if userID := sessionCookie(r); userID != "" {
			return userID, nil
		}
		return "", fmt.Errorf("%w: X-User-ID header or session cookie required in dev mode", ErrUnauthenticated)
	}

	tokenStr, err := bearerToken(r)
	if err != nil {
		return "", err
	}

	sub, err := a.verify(tokenStr)
	if err != nil {
		return "", err
	}

	userID, err := a.cfg.UserResolver.ResolveUserID(r.Context(), sub)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return "", fmt.Errorf("%w: user not found", ErrUnauthenticated)
		}
		return "", fmt.Errorf("failed to resolve user: %w", err)
	}
	return userID, nil
}

func bearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		if token := sessionCookie(r); token != "" {
			return token, nil
		}
		return "", fmt.Errorf("%w: authorization header required", ErrUnauthenticated)
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", fmt.Errorf("%w: invalid authorization header format", ErrUnauthenticated)
	}
	return strings.TrimPrefix(authHeader, "Bearer "), nil
}

func sessionCookie(r *http.Request) string {
	c, err := r.Cookie(SessionCookie)
	if err != nil {
		return ""
	}
	return c.Value
}

func (a *Auth) verify(tokenStr string) (string, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}

		kid, ok := token.Header["kid"].(string)
		if !ok {
			return nil, fmt.Errorf("kid header not found")
		}

		return a.cfg.JWKSClient.GetKey(kid)
	},
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithIssuer(a.cfg.Issuer),
		jwt.WithAudience(a.cfg.AppClientID),
	)
	if err != nil || !token.Valid {
		return "", fmt.Errorf("%w: invalid or expired token", ErrUnauthenticated)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("%w: invalid token claims", ErrUnauthenticated)
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", fmt.Errorf("%w: sub claim not found", ErrUnauthenticated)
	}
	return sub, nil
}

// reject answers API callers with a JSON 401 and sends everyone else to the
// login page.
func (a *Auth) reject(w http.ResponseWriter, r *http.Request, cleanPath string, err error) {
	if !errors.Is(err, ErrUnauthenticated) {
		slog.ErrorContext(r.Context(), "user resolution failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		return
	}

	if strings.HasPrefix(cleanPath, "/api/") {
		msg := strings.TrimPrefix(err.Error(), ErrUnauthenticated.Error()+": ")
		writeJSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", msg)
		return
	}
	http.Redirect(w, r, a.cfg.LoginPath, http.StatusFound)
}

func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}

// CognitoJWKSURL returns the JWKS URL for the given Cognito User Pool.
func CognitoJWKSURL(region, userPoolID string) string {
	return fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s/.well-known/jwks.json", region, userPoolID)
}

// CognitoIssuer returns the expected issuer for the given Cognito User Pool.
func CognitoIssuer(region, userPoolID string) string {
	return fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s", region, userPoolID)
}
