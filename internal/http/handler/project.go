package handler

import (
	"encoding/json"
	"mime"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/jaekwang-park/project-board/internal/middleware"
	"github.com/jaekwang-park/project-board/internal/model"
	"github.com/jaekwang-park/project-board/internal/policy"
	"github.com/jaekwang-park/project-board/internal/service"
	"github.com/jaekwang-park/project-board/internal/validation"
)

const (
	maxProjectBodySize = 1 << 20 // 1 MB

	// ProjectParam is the chi URL parameter holding a project id.
	ProjectParam = "project"

	indexPath = "/projects"

	flashCreated = "Project created successfully."
	flashUpdated = "Project updated successfully."
	flashDeleted = "Project deleted successfully."
)

type ProjectHandler struct {
	svc   *service.ProjectService
	pages *Pages
}

func NewProjectHandler(svc *service.ProjectService, pages *Pages) *ProjectHandler {
	return &ProjectHandler{svc: svc, pages: pages}
}

// Routes mounts the project resource routes on r.
func (h *ProjectHandler) Routes(r chi.Router) {
	r.Get("/", h.Index)
	r.Post("/", h.Store)
	r.Get("/create", h.Create)
	r.Route("/{"+ProjectParam+"}", func(r chi.Router) {
		r.Get("/", h.Show)
		r.Get("/edit", h.Edit)
		r.Put("/", h.Update)
		r.Patch("/", h.Update)
		r.Delete("/", h.Destroy)
	})
}

type indexProps struct {
	service.ProjectListResult
	ProjectStatuses []model.ProjectStatus `json:"projectStatuses"`
}

type formProps struct {
	Project         *model.Project        `json:"project"`
	ProjectStatuses []model.ProjectStatus `json:"projectStatuses"`
}

type showProps struct {
	Project model.Project `json:"project"`
}

func (h *ProjectHandler) Index(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := validation.ListQuery{
		Search:    q.Get("search"),
		Status:    q.Get("status"),
		Sort:      q.Get("sort"),
		Direction: q.Get("direction"),
		Page:      q.Get("page"),
	}

	result, err := h.svc.List(r.Context(), getUserID(r), query)
	if err != nil {
		handleServiceError(w, r, err, query)
		return
	}

	result.Projects.BuildLinks(pageURL(r.URL.Path, q))
	h.pages.Render(w, r, http.StatusOK, "Projects/Index", indexProps{
		ProjectListResult: result,
		ProjectStatuses:   model.ProjectStatuses(),
	})
}

// pageURL keeps the current filters and sort when moving between pages.
func pageURL(path string, q url.Values) func(int) string {
	return func(page int) string {
		v := url.Values{}
		for k, vals := range q {
			v[k] = vals
		}
		v.Set("page", strconv.Itoa(page))
		return path + "?" + v.Encode()
	}
}

func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	h.pages.Render(w, r, http.StatusOK, "Projects/CreateEditForm", formProps{
		ProjectStatuses: model.ProjectStatuses(),
	})
}

func (h *ProjectHandler) Store(w http.ResponseWriter, r *http.Request) {
	input, ok := decodeProjectInput(w, r)
	if !ok {
		return
	}

	if _, err := h.svc.Create(r.Context(), getUserID(r), input); err != nil {
		handleServiceError(w, r, err, input)
		return
	}

	h.pages.Redirect(w, r, indexPath, Flash{Success: flashCreated})
}

func (h *ProjectHandler) Show(w http.ResponseWriter, r *http.Request) {
	project, err := h.svc.Get(r.Context(), getUserID(r), chi.URLParam(r, ProjectParam), policy.ActionView)
	if err != nil {
		handleServiceError(w, r, err, nil)
		return
	}

	h.pages.Render(w, r, http.StatusOK, "Projects/Show", showProps{Project: project})
}

func (h *ProjectHandler) Edit(w http.ResponseWriter, r *http.Request) {
	project, err := h.svc.Get(r.Context(), getUserID(r), chi.URLParam(r, ProjectParam), policy.ActionUpdate)
	if err != nil {
		handleServiceError(w, r, err, nil)
		return
	}

	h.pages.Render(w, r, http.StatusOK, "Projects/CreateEditForm", formProps{
		Project:         &project,
		ProjectStatuses: model.ProjectStatuses(),
	})
}

func (h *ProjectHandler) Update(w http.ResponseWriter, r *http.Request) {
	input, ok := decodeProjectInput(w, r)
	if !ok {
		return
	}

	if _, err := h.svc.Update(r.Context(), getUserID(r), chi.URLParam(r, ProjectParam), input); err != nil {
		handleServiceError(w, r, err, input)
		return
	}

	h.pages.Redirect(w, r, indexPath, Flash{Success: flashUpdated})
}

func (h *ProjectHandler) Destroy(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), getUserID(r), chi.URLParam(r, ProjectParam)); err != nil {
		handleServiceError(w, r, err, nil)
		return
	}

	h.pages.Redirect(w, r, indexPath, Flash{Success: flashDeleted})
}

// decodeProjectInput reads a JSON or form-encoded body. It writes the error
// response itself and reports false when the body is unusable.
func decodeProjectInput(w http.ResponseWriter, r *http.Request) (validation.ProjectInput, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxProjectBodySize)

	var input validation.ProjectInput
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			WriteError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
			return input, false
		}
		return input, true
	}

	if err := r.ParseForm(); err != nil {
		WriteError(w, http.StatusBadRequest, "INVALID_FORM", "invalid request body")
		return input, false
	}
	input.Name = r.PostForm.Get("name")
	input.Description = r.PostForm.Get("description")
	input.Status = r.PostForm.Get("status")
	return input, true
}

func getUserID(r *http.Request) string {
	return middleware.GetUserID(r)
}
