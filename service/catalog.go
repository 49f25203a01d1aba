package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/booktrack/server/cache"
)

// CatalogBook is the normalized shape of one external catalog result.
type CatalogBook struct {
	Key              string   `json:"key"`
	Title            string   `json:"title"`
	Author           string   `json:"author,omitempty"`
	CoverID          int64    `json:"coverId,omitempty"`
	CoverURL         string   `json:"coverUrl,omitempty"`
	FirstPublishYear int      `json:"firstPublishYear,omitempty"`
	Pages            int      `json:"pages,omitempty"`
	Subjects         []string `json:"subjects,omitempty"`
}

// openLibrarySearchResp is the response from GET /search.json.
type openLibrarySearchResp struct {
	NumFound int `json:"numFound"`
	Docs     []struct {
		Key                 string   `json:"key"`
		Title               string   `json:"title"`
		AuthorName          []string `json:"author_name"`
		CoverI              int64    `json:"cover_i"`
		FirstPublishYear    int      `json:"first_publish_year"`
		NumberOfPagesMedian int      `json:"number_of_pages_median"`
		Subject             []string `json:"subject"`
	} `json:"docs"`
}

// excludedTerms are filtered out of catalog results before they reach
// clients.
var excludedTerms = []string{
	"romance", "erotic", "explicit", "erotica", "sensual",
	"passionate", "steamy", "harlequin",
}

// CatalogService searches the external catalog. The collaborator is treated
// as unreliable: any network or decode failure produces an empty result set,
// never an error. Results go through the injected cache with a fixed TTL;
// staleness inside the window is acceptable.
type CatalogService struct {
	baseURL string
	client  *http.Client
	cache   cache.Cache
	ttl     time.Duration
}

func NewCatalogService(baseURL string, c cache.Cache, ttl, timeout time.Duration) *CatalogService {
	return &CatalogService{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		cache:   c,
		ttl:     ttl,
	}
}

// Search returns up to size filtered catalog results for the query. Cache
// keys are normalized query plus pagination; concurrent misses on the same
// key may each recompute, last writer wins.
func (s *CatalogService) Search(ctx context.Context, query string, page, size int) []CatalogBook {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 24
	}
	key := fmt.Sprintf("%s_p%d_s%d", strings.ToLower(strings.TrimSpace(query)), page, size)
	if raw, ok := s.cache.Get(ctx, key); ok {
		var books []CatalogBook
		if err := json.Unmarshal(raw, &books); err == nil {
			return books
		}
	}

	books := s.fetch(ctx, query, page, size)
	if raw, err := json.Marshal(books); err == nil {
		s.cache.Put(ctx, key, raw, s.ttl)
	}
	return books
}

func (s *CatalogService) fetch(ctx context.Context, query string, page, size int) []CatalogBook {
	// Larger offset jumps give variety between pages; fetch 3x the page size
	// as a buffer for post-filtering.
	offset := (page - 1) * size * 2
	limit := size * 3

	q := url.Values{}
	q.Set("q", query)
	q.Set("offset", fmt.Sprint(offset))
	q.Set("limit", fmt.Sprint(limit))
	q.Set("fields", "key,title,author_name,cover_i,first_publish_year,number_of_pages_median,subject")
	u := s.baseURL + "/search.json?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		log.Printf("catalog: build request: %v", err)
		return []CatalogBook{}
	}
	resp, err := s.client.Do(req)
	if err != nil {
		log.Printf("catalog: search %q: %v", query, err)
		return []CatalogBook{}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Printf("catalog: search %q: status %d", query, resp.StatusCode)
		return []CatalogBook{}
	}
	var data openLibrarySearchResp
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		log.Printf("catalog: decode search %q: %v", query, err)
		return []CatalogBook{}
	}

	books := make([]CatalogBook, 0, size)
	for _, doc := range data.Docs {
		if doc.Title == "" || containsExcluded(doc.Title, doc.Subject) {
			continue
		}
		book := CatalogBook{
			Key:              doc.Key,
			Title:            doc.Title,
			CoverID:          doc.CoverI,
			FirstPublishYear: doc.FirstPublishYear,
			Pages:            doc.NumberOfPagesMedian,
			Subjects:         doc.Subject,
		}
		if len(doc.AuthorName) > 0 {
			book.Author = doc.AuthorName[0]
		}
		if doc.CoverI > 0 {
			book.CoverURL = CoverURL(doc.CoverI, "M")
		}
		books = append(books, book)
		if len(books) >= size {
			break
		}
	}
	return books
}

func containsExcluded(title string, subjects []string) bool {
	haystack := strings.ToLower(title)
	for _, s := range subjects {
		haystack += " " + strings.ToLower(s)
	}
	for _, term := range excludedTerms {
		if strings.Contains(haystack, term) {
			return true
		}
	}
	return false
}

// CoverURL returns a direct cover image URL by catalog cover id. Size: S, M,
// or L.
func CoverURL(coverID int64, size string) string {
	return fmt.Sprintf("https://covers.openlibrary.org/b/id/%d-%s.jpg", coverID, size)
}
