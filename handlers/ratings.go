package handlers

import (
	"net/http"

	"github.com/booktrack/server/middleware"
	"github.com/booktrack/server/models"
	"github.com/booktrack/server/service"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type RatingsHandler struct {
	Ratings  *service.RatingService
	Identity *service.IdentityService
}

type rateRequest struct {
	UserID string `json:"userId"`
	BookID string `json:"bookId" validate:"required"`
	Rating int    `json:"rating" validate:"required,min=1,max=5"`
}

// Rate records or replaces a user's rating for a book. The user id defaults
// to the caller's resolved identity. POST /api/v1/ratings
func (h *RatingsHandler) Rate(w http.ResponseWriter, r *http.Request) {
	var req rateRequest
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
		claims, ok := middleware.ClaimsFromContext(r.Context())
		if !ok {
			http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
			return
		}
		user, err := h.Identity.Resolve(r.Context(), claims.Subject, claims.Email, claims.DisplayName())
		if err != nil {
			writeError(w, err)
			return
		}
		userID = user.ID
	}
	rating, err := h.Ratings.Rate(r.Context(), userID, bookID, req.Rating)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rating)
}

// ListByUser returns all ratings by a user, newest first.
// GET /api/v1/ratings/users/{userId}
func (h *RatingsHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	userID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "userId"))
	if err != nil {
		http.Error(w, `{"error":"invalid user id"}`, http.StatusBadRequest)
		return
	}
	ratings, err := h.Ratings.ListByUser(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	if ratings == nil {
		ratings = []models.Rating{}
	}
	writeJSON(w, http.StatusOK, ratings)
}

// ListByBook returns all ratings for a book. GET /api/v1/ratings/books/{bookId}
func (h *RatingsHandler) ListByBook(w http.ResponseWriter, r *http.Request) {
	bookID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "bookId"))
	if err != nil {
		http.Error(w, `{"error":"invalid book id"}`, http.StatusBadRequest)
		return
	}
	ratings, err := h.Ratings.ListByBook(r.Context(), bookID)
	if err != nil {
		writeError(w, err)
		return
	}
	if ratings == nil {
		ratings = []models.Rating{}
	}
	writeJSON(w, http.StatusOK, ratings)
}

// GetByUserAndBook returns one user's rating of one book.
// GET /api/v1/ratings/users/{userId}/books/{bookId}
func (h *RatingsHandler) GetByUserAndBook(w http.ResponseWriter, r *http.Request) {
	userID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "userId"))
	if err != nil {
		http.Error(w, `{"error":"invalid user id"}`, http.StatusBadRequest)
		return
	}
	bookID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "bookId"))
	if err != nil {
		http.Error(w, `{"error":"invalid book id"}`, http.StatusBadRequest)
		return
	}
	rating, err := h.Ratings.GetByUserAndBook(r.Context(), userID, bookID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rating)
}

// Stats returns the count and rounded mean for a book.
// GET /api/v1/ratings/books/{bookId}/stats
func (h *RatingsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	bookID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "bookId"))
	if err != nil {
		http.Error(w, `{"error":"invalid book id"}`, http.StatusBadRequest)
		return
	}
	stats, err := h.Ratings.BookStats(r.Context(), bookID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *RatingsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, `{"error":"invalid rating id"}`, http.StatusBadRequest)
		return
	}
	if err := h.Ratings.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
