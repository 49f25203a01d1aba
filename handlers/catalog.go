package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/booktrack/server/service"
)

type CatalogHandler struct {
	Catalog *service.CatalogService
}

// Search proxies a cached catalog query. Lookup failures surface as an empty
// result set, never an error. GET /api/v1/catalog/search?q=&page=&size=
func (h *CatalogHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		http.Error(w, `{"error":"missing query parameter q"}`, http.StatusBadRequest)
		return
	}
	page := queryInt(r, "page", 1)
	size := queryInt(r, "size", 20)
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 50 {
		size = 20
	}
	books := h.Catalog.Search(r.Context(), query, page, size)
	writeJSON(w, http.StatusOK, map[string]any{
		"results": books,
		"page":    page,
		"size":    size,
	})
}

func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
