package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jaekwang-park/project-board/internal/cognito"
	"github.com/jaekwang-park/project-board/internal/middleware"
	"github.com/jaekwang-park/project-board/internal/service"
)

const (
	maxAuthBodySize = 1 << 20 // 1 MB

	accessTokenCookie = "access_token"
	devSessionMaxAge  = 7 * 24 * 60 * 60

	loginPath = "/login"
)

// AuthHandler serves the login page flow and the JSON auth API.
type AuthHandler struct {
	svc     *service.AuthService
	pages   *Pages
	devMode bool
}

func NewAuthHandler(svc *service.AuthService, pages *Pages, devMode bool) *AuthHandler {
	return &AuthHandler{svc: svc, pages: pages, devMode: devMode}
}

// APIRoutes mounts the JSON endpoints under /api/v1/auth.
func (h *AuthHandler) APIRoutes(r chi.Router) {
	r.Use(middleware.LimitBody(maxAuthBodySize))
	r.Post("/signup", h.handleSignUp)
	r.Post("/confirm-signup", h.handleConfirmSignUp)
	r.Post("/login", h.handleLogin)
	r.Post("/refresh", h.handleRefresh)
	r.Post("/logout", h.handleLogout)
}

type loginProps struct {
	DevMode bool                `json:"devMode"`
	Errors  map[string][]string `json:"errors,omitempty"`
	Old     map[string]string   `json:"old,omitempty"`
}

// LoginPage renders the login form.
func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	h.pages.Render(w, r, http.StatusOK, "Auth/Login", loginProps{DevMode: h.devMode})
}

// Login starts a browser session and sends the user to their projects.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxAuthBodySize)
	var creds service.Credentials
	if !decodeCredentials(w, r, &creds) {
		return
	}

	if h.devMode {
		user, err := h.svc.DevLogin(r.Context(), creds.Email)
		if err != nil {
			h.loginFailed(w, r, creds, err)
			return
		}
		h.pages.setSession(w, middleware.SessionCookie, user.ID, devSessionMaxAge)
		h.pages.Redirect(w, r, indexPath, Flash{})
		return
	}

	session, err := h.svc.Login(r.Context(), creds)
	if err != nil {
		h.loginFailed(w, r, creds, err)
		return
	}
	h.pages.setSession(w, middleware.SessionCookie, session.IDToken, int(session.ExpiresIn))
	h.pages.setSession(w, accessTokenCookie, session.AccessToken, int(session.ExpiresIn))
	h.pages.Redirect(w, r, indexPath, Flash{})
}

func (h *AuthHandler) loginFailed(w http.ResponseWriter, r *http.Request, creds service.Credentials, err error) {
	props := loginProps{DevMode: h.devMode, Old: map[string]string{"email": creds.Email}}

	var status int
	switch info, ok := cognito.LookupError(err); {
	case ok:
		status = info.Status
		props.Errors = map[string][]string{"email": {cognitoErrorMessage(info.Code)}}
	case errors.Is(err, service.ErrInvalidInput):
		status = http.StatusUnprocessableEntity
		props.Errors = map[string][]string{"email": {"The email and password fields are required."}}
	case errors.Is(err, service.ErrUnavailable):
		status = http.StatusServiceUnavailable
		props.Errors = map[string][]string{"email": {"Login is temporarily unavailable."}}
	default:
		slog.ErrorContext(r.Context(), "login failed", "error", err)
		status = http.StatusInternalServerError
		props.Errors = map[string][]string{"email": {"Login is temporarily unavailable."}}
	}
	h.pages.Render(w, r, status, "Auth/Login", props)
}

// Logout ends the browser session. Revoking Cognito tokens is best effort.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(accessTokenCookie); err == nil && c.Value != "" && !h.devMode {
		if err := h.svc.Logout(r.Context(), c.Value); err != nil {
			slog.WarnContext(r.Context(), "global sign out failed", "error", err)
		}
	}
	h.pages.clearCookie(w, middleware.SessionCookie)
	h.pages.clearCookie(w, accessTokenCookie)
	h.pages.Redirect(w, r, loginPath, Flash{})
}

func decodeCredentials(w http.ResponseWriter, r *http.Request, creds *service.Credentials) bool {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
			return false
		}
		creds.Email, creds.Password = req.Email, req.Password
		return true
	}
	if err := r.ParseForm(); err != nil {
		WriteError(w, http.StatusBadRequest, "INVALID_FORM", "invalid request body")
		return false
	}
	creds.Email = r.PostForm.Get("email")
	creds.Password = r.PostForm.Get("password")
	return true
}

type signUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type confirmSignUpRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	Email        string `json:"email"`
	RefreshToken string `json:"refresh_token"`
}

type logoutRequest struct {
	AccessToken string `json:"access_token"`
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		WriteError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return false
	}
	return true
}

func (h *AuthHandler) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	out, err := h.svc.SignUp(r.Context(), service.Credentials{Email: req.Email, Password: req.Password})
	if err != nil {
		handleAuthError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusCreated, out)
}

func (h *AuthHandler) handleConfirmSignUp(w http.ResponseWriter, r *http.Request) {
	var req confirmSignUpRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.svc.ConfirmSignUp(r.Context(), req.Email, req.Code); err != nil {
		handleAuthError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"message": "email confirmed"})
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	out, err := h.svc.Login(r.Context(), service.Credentials{Email: req.Email, Password: req.Password})
	if err != nil {
		handleAuthError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, out)
}

func (h *AuthHandler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	out, err := h.svc.Refresh(r.Context(), req.Email, req.RefreshToken)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, out)
}

func (h *AuthHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req logoutRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.svc.Logout(r.Context(), req.AccessToken); err != nil {
		handleAuthError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"message": "signed out"})
}

// handleAuthError maps cognito sentinel errors and service errors to HTTP
// responses with fixed messages. Details stay in the server log.
func handleAuthError(w http.ResponseWriter, r *http.Request, err error) {
	if info, ok := cognito.LookupError(err); ok {
		slog.WarnContext(r.Context(), "auth error", "code", info.Code, "detail", err.Error())
		WriteError(w, info.Status, info.Code, cognitoErrorMessage(info.Code))
		return
	}

	if errors.Is(err, service.ErrInvalidInput) {
		WriteError(w, http.StatusBadRequest, "INVALID_INPUT", err.Error())
		return
	}
	if errors.Is(err, service.ErrUnavailable) {
		WriteError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "authentication is not configured")
		return
	}

	slog.ErrorContext(r.Context(), "auth internal error", "error", err.Error())
	WriteError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
}

var cognitoMessages = map[string]string{
	"USER_ALREADY_EXISTS": "a user with this email already exists",
	"USER_NOT_CONFIRMED":  "email address not confirmed",
	"INVALID_CREDENTIALS": "These credentials do not match our records.",
	"INVALID_PASSWORD":    "password does not meet requirements",
	"INVALID_CODE":        "invalid verification code",
	"CODE_EXPIRED":        "verification code has expired",
	"TOO_MANY_REQUESTS":   "too many requests, please try again later",
	"INVALID_PARAMETER":   "invalid request parameter",
}

// cognitoErrorMessage returns a safe, user-facing message for each cognito error code.
func cognitoErrorMessage(code string) string {
	if msg, ok := cognitoMessages[code]; ok {
		return msg
	}
	return "an error occurred"
}
