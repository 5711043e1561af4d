package handler_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jaekwang-park/project-board/internal/broadcast"
	"github.com/jaekwang-park/project-board/internal/broadcast/broadcasttest"
	"github.com/jaekwang-park/project-board/internal/http/handler"
	"github.com/jaekwang-park/project-board/internal/middleware"
	"github.com/jaekwang-park/project-board/internal/policy"
	"github.com/jaekwang-park/project-board/internal/repository/repositorytest"
	"github.com/jaekwang-park/project-board/internal/service"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// asUser stands in for the auth middleware: X-User-ID becomes the caller.
func asUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := r.Header.Get("X-User-ID"); id != "" {
			r = r.WithContext(middleware.SetUserID(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

type projectEnv struct {
	router   http.Handler
	repo     *repositorytest.Projects
	rec      *broadcasttest.Recorder
	notifier *broadcast.Notifier
}

func newProjectEnv(t *testing.T) *projectEnv {
	t.Helper()
	logger := discardLogger()
	repo := repositorytest.NewProjects()
	rec := &broadcasttest.Recorder{}
	notifier := broadcast.NewNotifier(rec, logger, nil, 16)
	t.Cleanup(func() { notifier.Close(context.Background()) })

	svc := service.NewProjectService(repo, repo, policy.NewOwnerPolicy(), notifier, logger)
	h := handler.NewProjectHandler(svc, handler.NewPages(false))

	r := chi.NewRouter()
	r.Use(middleware.MethodOverride)
	r.Use(asUser)
	r.Route("/projects", h.Routes)

	return &projectEnv{router: r, repo: repo, rec: rec, notifier: notifier}
}

// drain waits for queued notifications to reach the recorder.
func (e *projectEnv) drain(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := e.notifier.Close(ctx); err != nil {
		t.Fatalf("notifier close: %v", err)
	}
}

func (e *projectEnv) do(method, target, userID, contentType, body string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodePage(t *testing.T, w *httptest.ResponseRecorder, props any) handler.Page {
	t.Helper()
	var raw struct {
		handler.Page
		Props json.RawMessage `json:"props"`
	}
	if err := json.NewDecoder(w.Body).Decode(&raw); err != nil {
		t.Fatalf("failed to decode page: %v (body %q)", err, w.Body.String())
	}
	if props != nil {
		if err := json.Unmarshal(raw.Props, props); err != nil {
			t.Fatalf("failed to decode props: %v", err)
		}
	}
	return raw.Page
}

func findCookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
