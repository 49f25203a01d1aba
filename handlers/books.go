package handlers

import (
	"net/http"
	"time"

	"github.com/booktrack/server/models"
	"github.com/booktrack/server/store"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type BooksHandler struct {
	DB *store.DB
}

type bookRequest struct {
	Title       string `json:"title" validate:"required"`
	Author      string `json:"author"`
	CoverURL    string `json:"coverUrl" validate:"omitempty,url"`
	ISBN        string `json:"isbn"`
	Description string `json:"description"`
	PublishYear int    `json:"publishYear"`
	Publisher   string `json:"publisher"`
	TotalPages  int    `json:"totalPages" validate:"gte=0"`
}

func (req *bookRequest) toModel() *models.Book {
	return &models.Book{
		Title:       req.Title,
		Author:      req.Author,
		CoverURL:    req.CoverURL,
		ISBN:        req.ISBN,
		Description: req.Description,
		PublishYear: req.PublishYear,
		Publisher:   req.Publisher,
		TotalPages:  req.TotalPages,
	}
}

// Create adds a book to the shared catalog. POST /api/v1/books
func (h *BooksHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if !decodeBody(w, r, &req) {
		return
	}
	book := req.toModel()
	book.CreatedAt = time.Now()
	id, err := h.DB.InsertBook(r.Context(), book)
	if err != nil {
		writeError(w, err)
		return
	}
	book.ID = id
	writeJSON(w, http.StatusCreated, book)
}

func (h *BooksHandler) List(w http.ResponseWriter, r *http.Request) {
	books, err := h.DB.AllBooks(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if books == nil {
		books = []models.Book{}
	}
	writeJSON(w, http.StatusOK, books)
}

func (h *BooksHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, `{"error":"invalid book id"}`, http.StatusBadRequest)
		return
	}
	book, err := h.DB.BookByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if book == nil {
		http.Error(w, `{"error":"book not found"}`, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (h *BooksHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, `{"error":"invalid book id"}`, http.StatusBadRequest)
		return
	}
	var req bookRequest
	if !decodeBody(w, r, &req) {
		return
	}
	book := req.toModel()
	if err := h.DB.UpdateBook(r.Context(), id, book); err != nil {
		if err == mongo.ErrNoDocuments {
			http.Error(w, `{"error":"book not found"}`, http.StatusNotFound)
			return
		}
		writeError(w, err)
		return
	}
	book.ID = id
	writeJSON(w, http.StatusOK, book)
}

func (h *BooksHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, `{"error":"invalid book id"}`, http.StatusBadRequest)
		return
	}
	if err := h.DB.DeleteBook(r.Context(), id); err != nil {
		if err == mongo.ErrNoDocuments {
			http.Error(w, `{"error":"book not found"}`, http.StatusNotFound)
			return
		}
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
