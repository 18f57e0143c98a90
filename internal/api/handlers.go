package api

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/ywmark/internal/library"
)

// Handler holds API route handlers.
type Handler struct {
	svc *library.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *library.Service) *Handler {
	return &Handler{svc: svc}
}

// filePath extracts the library path from the URL wildcard.
// Supports encoded slashes from OpenAPI clients (e.g. book%2Fnovel.yw7).
func filePath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// ListProjects handles GET /projects.
//
//	@Summary		List indexed projects and Markdown files
//	@Tags			projects
//	@Produce		json
//	@Success		200		{object}	ProjectListResponse
//	@Security		BearerAuth
//	@Router			/projects [get]
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListProjects(r.Context())
	if err != nil {
		writeError(w, "list projects", err)
		return
	}
	writeJSON(w, http.StatusOK, ProjectListResponse{Projects: items, Total: len(items)})
}

// GetProject handles GET /projects/*.
//
//	@Summary		Get the live structure of a project or Markdown file
//	@Tags			projects
//	@Produce		json
//	@Param			path	path		string	true	"File path"
//	@Success		200		{object}	ProjectDetail
//	@Failure		404		{object}	errResponse
//	@Failure		415		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Failure		423		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{path} [get]
func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	path := filePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	detail, err := h.svc.GetProject(r.Context(), path)
	if err != nil {
		writeError(w, "get project", err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// Preview handles GET /preview/*.
//
//	@Summary		Render a project or Markdown file as HTML
//	@Tags			projects
//	@Produce		html
//	@Param			path	path		string	true	"File path"
//	@Success		200		{string}	string
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/preview/{path} [get]
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	path := filePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	html, err := h.svc.Preview(r.Context(), path)
	if err != nil {
		writeError(w, "preview", err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(html)
}

// Convert handles POST /convert.
//
//	@Summary		Export a project to Markdown or import Markdown into a project
//	@Tags			conversion
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ConvertRequest	true	"Source file"
//	@Success		200		{object}	ConvertResponse
//	@Failure		400		{object}	errResponse
//	@Failure		403		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Failure		415		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Failure		423		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/convert [post]
func (h *Handler) Convert(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req ConvertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	res, err := h.svc.Convert(r.Context(), req.Path, req.Overwrite)
	if err != nil {
		writeError(w, "convert", err)
		return
	}
	writeJSON(w, http.StatusOK, ConvertResponse{Message: res.Message(), Result: res})
}

// Conversions handles GET /conversions.
//
//	@Summary		Recent conversion runs, newest first
//	@Tags			conversion
//	@Produce		json
//	@Param			limit	query		int		false	"Max runs"
//	@Success		200		{object}	ConversionsResponse
//	@Security		BearerAuth
//	@Router			/conversions [get]
func (h *Handler) Conversions(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := h.svc.Conversions(r.Context(), limit)
	if err != nil {
		writeError(w, "conversions", err)
		return
	}
	writeJSON(w, http.StatusOK, ConversionsResponse{Conversions: runs})
}

// Search handles GET /search.
//
//	@Summary		Full-text search across scenes
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}
