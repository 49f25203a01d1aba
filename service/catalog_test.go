package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/booktrack/server/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const searchPayload = `{
	"numFound": 3,
	"docs": [
		{"key": "/works/OL1W", "title": "Dune", "author_name": ["Frank Herbert"], "cover_i": 44, "first_publish_year": 1965, "number_of_pages_median": 412},
		{"key": "/works/OL2W", "title": "Steamy Nights", "subject": ["Romance"]},
		{"key": "/works/OL3W", "title": "Hyperion", "author_name": ["Dan Simmons"], "cover_i": 99}
	]
}`

func TestSearchFiltersAndMaps(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search.json", r.URL.Path)
		assert.Equal(t, "dune", r.URL.Query().Get("q"))
		assert.Equal(t, "0", r.URL.Query().Get("offset"))
		assert.Equal(t, "30", r.URL.Query().Get("limit"))
		w.Write([]byte(searchPayload))
	}))
	defer srv.Close()

	svc := NewCatalogService(srv.URL, cache.NewMemory(), time.Hour, time.Second)
	books := svc.Search(context.Background(), "dune", 1, 10)
	require.Len(t, books, 2)
	assert.Equal(t, "Dune", books[0].Title)
	assert.Equal(t, "Frank Herbert", books[0].Author)
	assert.Equal(t, "https://covers.openlibrary.org/b/id/44-M.jpg", books[0].CoverURL)
	assert.Equal(t, 412, books[0].Pages)
	assert.Equal(t, "Hyperion", books[1].Title)
}

func TestSearchCachesResults(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(searchPayload))
	}))
	defer srv.Close()

	svc := NewCatalogService(srv.URL, cache.NewMemory(), time.Hour, time.Second)
	first := svc.Search(context.Background(), "Dune", 1, 10)
	second := svc.Search(context.Background(), "  dune ", 1, 10)
	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)
}

func TestSearchPaginationOffsets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "40", r.URL.Query().Get("offset"))
		assert.Equal(t, "60", r.URL.Query().Get("limit"))
		w.Write([]byte(`{"numFound":0,"docs":[]}`))
	}))
	defer srv.Close()

	svc := NewCatalogService(srv.URL, cache.NewMemory(), time.Hour, time.Second)
	svc.Search(context.Background(), "dune", 2, 20)
}

func TestSearchUpstreamFailureYieldsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	svc := NewCatalogService(srv.URL, cache.NewMemory(), time.Hour, time.Second)
	books := svc.Search(context.Background(), "dune", 1, 10)
	assert.NotNil(t, books)
	assert.Empty(t, books)
}

func TestSearchTrimsToRequestedSize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"numFound":3,"docs":[
			{"key":"a","title":"A"},{"key":"b","title":"B"},{"key":"c","title":"C"}
		]}`))
	}))
	defer srv.Close()

	svc := NewCatalogService(srv.URL, cache.NewMemory(), time.Hour, time.Second)
	books := svc.Search(context.Background(), "letters", 1, 2)
	assert.Len(t, books, 2)
}
