package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/jaekwang-park/project-board/internal/broadcast"
	"github.com/jaekwang-park/project-board/internal/http/handler"
	"github.com/jaekwang-park/project-board/internal/metrics"
	"github.com/jaekwang-park/project-board/internal/middleware"
	"github.com/jaekwang-park/project-board/internal/service"
)

const maxRequestBody = 1 << 20 // 1 MB

// Deps are the collaborators the router hands to its handlers.
type Deps struct {
	Projects *service.ProjectService
	Auth     *service.AuthService
	AuthMW   *middleware.Auth
	Hub      *broadcast.Hub
	Metrics  *metrics.Metrics
	DB       handler.Pinger // optional, enables the database check in /health
	Logger   *slog.Logger

	DevMode       bool
	SecureCookies bool
}

func NewRouter(d Deps) http.Handler {
	pages := handler.NewPages(d.SecureCookies)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(d.Logger))
	r.Use(middleware.Recovery(d.Logger))
	if d.Metrics != nil {
		r.Use(middleware.Metrics(d.Metrics))
	}
	r.Use(middleware.LimitBody(maxRequestBody))
	r.Use(d.AuthMW.Middleware)
	r.Use(middleware.MethodOverride)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		handler.WriteError(w, http.StatusNotFound, "NOT_FOUND", "resource not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		handler.WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
	})

	// Health check stays outside /api/v1 for ALB health check compatibility.
	r.Method(http.MethodGet, "/health", handler.NewHealthHandler(d.DB))
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}

	auth := handler.NewAuthHandler(d.Auth, pages, d.DevMode)
	r.Get("/login", auth.LoginPage)
	r.Post("/login", auth.Login)
	r.Post("/logout", auth.Logout)
	r.Route("/api/v1/auth", auth.APIRoutes)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/projects", http.StatusFound)
	})
	r.Route("/projects", handler.NewProjectHandler(d.Projects, pages).Routes)

	r.Method(http.MethodGet, "/broadcasting/users/{"+handler.StreamUserParam+"}",
		handler.NewStreamHandler(d.Hub, d.Metrics, d.Logger, 0))

	return r
}
