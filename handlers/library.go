package handlers

import (
	"net/http"

	"github.com/booktrack/server/middleware"
	"github.com/booktrack/server/models"
	"github.com/booktrack/server/service"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type LibraryHandler struct {
	Library  *service.LibraryService
	Identity *service.IdentityService
}

type addEntryRequest struct {
	UserID string `json:"userId"`
	BookID string `json:"bookId" validate:"required"`
	Status string `json:"status"`
}

// Add puts a book into a user's library. The user id defaults to the caller's
// resolved identity when omitted. POST /api/v1/library
func (h *LibraryHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req addEntryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	bookID, err := primitive.ObjectIDFromHex(req.BookID)
	if err != nil {
		http.Error(w, `{"error":"invalid book id"}`, http.StatusBadRequest)
		return
	}
	var userID primitive.ObjectID
	if req.UserID != "" {
		if userID, err = primitive.ObjectIDFromHex(req.UserID); err != nil {
			http.Error(w, `{"error":"invalid user id"}`, http.StatusBadRequest)
			return
		}
	} else {
		user, err := h.resolveCaller(r)
		if err != nil {
			writeError(w, err)
			return
		}
		if user == nil {
			http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
			return
		}
		userID = user.ID
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
	entry, err := h.Library.Add(r.Context(), userID, bookID, status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (h *LibraryHandler) resolveCaller(r *http.Request) (*models.User, error) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		return nil, nil
	}
	return h.Identity.Resolve(r.Context(), claims.Subject, claims.Email, claims.DisplayName())
}

// ListByUser returns a user's library, newest first. GET /api/v1/library/users/{userId}
func (h *LibraryHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	userID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "userId"))
	if err != nil {
		http.Error(w, `{"error":"invalid user id"}`, http.StatusBadRequest)
		return
	}
	entries, err := h.Library.ListByUser(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// ListByUserAndStatus filters a user's library by reading status.
// GET /api/v1/library/users/{userId}/status/{status}
func (h *LibraryHandler) ListByUserAndStatus(w http.ResponseWriter, r *http.Request) {
	userID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "userId"))
	if err != nil {
		http.Error(w, `{"error":"invalid user id"}`, http.StatusBadRequest)
		return
	}
	status, perr := models.ParseReadingStatus(chi.URLParam(r, "status"))
	if perr != nil {
		http.Error(w, `{"error":"invalid reading status"}`, http.StatusBadRequest)
		return
	}
	entries, err := h.Library.ListByUserAndStatus(r.Context(), userID, status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *LibraryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, `{"error":"invalid entry id"}`, http.StatusBadRequest)
		return
	}
	entry, err := h.Library.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

// UpdateStatus transitions an entry's reading status, with the completion
// side effects applied by the service. PUT /api/v1/library/{id}/status
func (h *LibraryHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, `{"error":"invalid entry id"}`, http.StatusBadRequest)
		return
	}
	var req statusRequest
	if !decodeBody(w, r, &req) {
		return
	}
	status, perr := models.ParseReadingStatus(req.Status)
	if perr != nil {
		http.Error(w, `{"error":"invalid reading status"}`, http.StatusBadRequest)
		return
	}
	entry, err := h.Library.SetStatus(r.Context(), id, status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

type progressRequest struct {
	CurrentPage int    `json:"currentPage" validate:"gte=0"`
	Notes       string `json:"notes"`
	TotalPages  *int   `json:"totalPages" validate:"omitempty,gt=0"`
}

// UpdateProgress records a page position and recomputes the derived percent
// and status. PUT /api/v1/library/{id}/progress
func (h *LibraryHandler) UpdateProgress(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, `{"error":"invalid entry id"}`, http.StatusBadRequest)
		return
	}
	var req progressRequest
	if !decodeBody(w, r, &req) {
		return
	}
	entry, err := h.Library.SetProgress(r.Context(), id, req.CurrentPage, req.Notes, req.TotalPages)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// GetProgress returns just the progress record plus the book's page count.
// GET /api/v1/library/{id}/progress
func (h *LibraryHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, `{"error":"invalid entry id"}`, http.StatusBadRequest)
		return
	}
	progress, totalPages, err := h.Library.Progress(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		*models.Progress
		TotalPages int `json:"totalPages"`
	}{progress, totalPages})
}

func (h *LibraryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, `{"error":"invalid entry id"}`, http.StatusBadRequest)
		return
	}
	if err := h.Library.Remove(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Stats aggregates a user's library by bucket. GET /api/v1/library/users/{userId}/stats
func (h *LibraryHandler) Stats(w http.ResponseWriter, r *http.Request) {
	userID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "userId"))
	if err != nil {
		http.Error(w, `{"error":"invalid user id"}`, http.StatusBadRequest)
		return
	}
	stats, err := h.Library.Stats(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
