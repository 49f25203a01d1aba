package handlers

import (
	"net/http"

	"github.com/booktrack/server/middleware"
	"github.com/booktrack/server/models"
	"github.com/booktrack/server/service"
)

type DashboardHandler struct {
	Dashboard *service.DashboardService
}

// Overview serves the aggregated dashboard for the caller.
// GET /api/v1/dashboard
func (h *DashboardHandler) Overview(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	view, err := h.Dashboard.Overview(r.Context(), claims.Subject, claims.Email, claims.DisplayName())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type addBookRequest struct {
	Title       string `json:"title" validate:"required"`
	Author      string `json:"author"`
	CoverURL    string `json:"coverUrl" validate:"omitempty,url"`
	ISBN        string `json:"isbn"`
	Description string `json:"description"`
	PublishYear int    `json:"publishYear"`
	Publisher   string `json:"publisher"`
	TotalPages  int    `json:"totalPages" validate:"gte=0"`
	Status      string `json:"status"`
}

// AddBook creates a book and files it in the caller's library in one call.
// POST /api/v1/dashboard/add-book
func (h *DashboardHandler) AddBook(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	var req addBookRequest
	if !decodeBody(w, r, &req) {
		return
	}
	status := models.StatusToRead
	if req.Status != "" {
		parsed, err := models.ParseReadingStatus(req.Status)
		if err != nil {
			http.Error(w, `{"error":"invalid reading status"}`, http.StatusBadRequest)
			return
		}
		status = parsed
	}
	book := &models.Book{
		Title:       req.Title,
		Author:      req.Author,
		CoverURL:    req.CoverURL,
		ISBN:        req.ISBN,
		Description: req.Description,
		PublishYear: req.PublishYear,
		Publisher:   req.Publisher,
		TotalPages:  req.TotalPages,
	}
	entry, err := h.Dashboard.AddBook(r.Context(), claims.Subject, claims.Email, claims.DisplayName(), book, status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

// Recommendations serves the gated recommendation set for the caller.
// GET /api/v1/recommendations
func (h *DashboardHandler) Recommendations(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	view, err := h.Dashboard.Recommendations(r.Context(), claims.Subject, claims.Email, claims.DisplayName())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
