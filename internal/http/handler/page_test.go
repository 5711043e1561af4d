package handler_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaekwang-park/project-board/internal/http/handler"
)

func TestPages_FlashSurvivesOneRedirect(t *testing.T) {
	pages := handler.NewPages(true)

	redirect := httptest.NewRecorder()
	pages.Redirect(redirect, httptest.NewRequest(http.MethodPost, "/projects", nil), "/projects",
		handler.Flash{Success: "Project created successfully."})

	require.Equal(t, http.StatusSeeOther, redirect.Code)
	flash := findCookie(redirect, "flash")
	require.NotNil(t, flash)
	assert.True(t, flash.Secure)
	assert.True(t, flash.HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/projects", nil)
	req.AddCookie(flash)
	first := httptest.NewRecorder()
	pages.Render(first, req, http.StatusOK, "Projects/Index", nil)

	page := decodePage(t, first, nil)
	assert.Equal(t, "Project created successfully.", page.Flash.Success)
	cleared := findCookie(first, "flash")
	require.NotNil(t, cleared)
	assert.Negative(t, cleared.MaxAge)

	second := httptest.NewRecorder()
	pages.Render(second, httptest.NewRequest(http.MethodGet, "/projects", nil), http.StatusOK, "Projects/Index", nil)
	assert.Empty(t, decodePage(t, second, nil).Flash.Success)
}

func TestPages_RedirectWithoutFlash(t *testing.T) {
	w := httptest.NewRecorder()
	handler.NewPages(false).Redirect(w, httptest.NewRequest(http.MethodPost, "/logout", nil), "/login", handler.Flash{})

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
	assert.Nil(t, findCookie(w, "flash"))
}

func TestPages_IgnoresTamperedFlash(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/projects", nil)
	req.AddCookie(&http.Cookie{Name: "flash", Value: "%%%not-base64"})
	w := httptest.NewRecorder()

	handler.NewPages(false).Render(w, req, http.StatusOK, "Projects/Index", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decodePage(t, w, nil).Flash.Success)
}
