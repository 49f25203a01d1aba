package service

import (
	"context"
	"log"
	"time"

	"github.com/booktrack/server/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"
)

// FetchState records the outcome of one sub-fetch so callers and tests can
// distinguish a genuinely empty result from a degraded one.
type FetchState string

const (
	FetchOK       FetchState = "ok"
	FetchDegraded FetchState = "degraded"
)

// Reasons reported with an empty recommendation set.
const (
	ReasonEmptyLibrary = "empty_library"
	ReasonUnavailable  = "unavailable"
)

type Resolver interface {
	Resolve(ctx context.Context, subjectID, email, name string) (*models.User, error)
}

type DashboardLibrary interface {
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.LibraryEntry, error)
	Add(ctx context.Context, userID, bookID primitive.ObjectID, status models.ReadingStatus) (*models.LibraryEntry, error)
}

type DashboardRatings interface {
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Rating, error)
}

type DashboardBooks interface {
	InsertBook(ctx context.Context, book *models.Book) (primitive.ObjectID, error)
}

type Recommender interface {
	Recommend(ctx context.Context, userID string, titles []string) ([]Recommendation, error)
}

// EnrichedEntry is one library entry joined with its book's display fields,
// the user's rating for that book, and the flattened progress record.
type EnrichedEntry struct {
	LibraryID     primitive.ObjectID   `json:"libraryId"`
	BookID        primitive.ObjectID   `json:"bookId"`
	Title         string               `json:"title"`
	Author        string               `json:"author,omitempty"`
	CoverURL      string               `json:"coverUrl,omitempty"`
	TotalPages    int                  `json:"totalPages,omitempty"`
	Status        models.ReadingStatus `json:"status"`
	StatusDisplay string               `json:"statusDisplay"`
	UserRating    int                  `json:"userRating"`
	CurrentPage   int                  `json:"currentPage"`
	Percent       float64              `json:"progressPercent"`
	StartedAt     time.Time            `json:"startedAt"`
	LastUpdated   time.Time            `json:"lastUpdated"`
	CompletedAt   *time.Time           `json:"completedAt,omitempty"`
	Notes         string               `json:"notes,omitempty"`
}

// DashboardStats extends the library counts with the rating total shown on
// the dashboard.
type DashboardStats struct {
	models.UserStats
	TotalRatings int `json:"totalRatings"`
}

// DashboardView is the single aggregated response for the dashboard.
type DashboardView struct {
	User    *models.User          `json:"user"`
	Books   []EnrichedEntry       `json:"books"`
	Stats   DashboardStats        `json:"stats"`
	Sources map[string]FetchState `json:"sources"`
}

// RecommendationView is the gated recommendation response.
type RecommendationView struct {
	Recommendations []Recommendation `json:"recommendations"`
	HasBooks        bool             `json:"hasBooks"`
	Reason          string           `json:"reason,omitempty"`
}

// DashboardService is the stateless per-request coordinator. It resolves
// identity exactly once, fans out to the library and rating services, merges
// the results, and degrades each piece independently: its availability must
// exceed that of any single downstream it depends on.
type DashboardService struct {
	identity    Resolver
	library     DashboardLibrary
	ratings     DashboardRatings
	books       DashboardBooks
	recommender Recommender
	timeout     time.Duration
}

func NewDashboardService(identity Resolver, library DashboardLibrary, ratings DashboardRatings, books DashboardBooks, recommender Recommender, timeout time.Duration) *DashboardService {
	return &DashboardService{
		identity:    identity,
		library:     library,
		ratings:     ratings,
		books:       books,
		recommender: recommender,
		timeout:     timeout,
	}
}

// Overview assembles the dashboard. The library and rating fetches run
// concurrently and each degrades to an empty set on failure; enrichment
// starts only after both have settled.
func (s *DashboardService) Overview(ctx context.Context, subjectID, email, name string) (*DashboardView, error) {
	user, err := s.identity.Resolve(ctx, subjectID, email, name)
	if err != nil {
		return nil, err
	}

	// Each goroutine writes only its own pair of variables; the Sources map
	// is assembled after both have settled.
	var (
		entries  []models.LibraryEntry
		ratings  []models.Rating
		libState = FetchOK
		ratState = FetchOK
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		fctx, cancel := context.WithTimeout(gctx, s.timeout)
		defer cancel()
		var ferr error
		if entries, ferr = s.library.ListByUser(fctx, user.ID); ferr != nil {
			log.Printf("dashboard: library fetch for %s: %v", user.ID.Hex(), ferr)
			entries = nil
			libState = FetchDegraded
		}
		return nil
	})
	g.Go(func() error {
		fctx, cancel := context.WithTimeout(gctx, s.timeout)
		defer cancel()
		var ferr error
		if ratings, ferr = s.ratings.ListByUser(fctx, user.ID); ferr != nil {
			log.Printf("dashboard: ratings fetch for %s: %v", user.ID.Hex(), ferr)
			ratings = nil
			ratState = FetchDegraded
		}
		return nil
	})
	// The goroutines swallow their own failures, so Wait only synchronizes.
	_ = g.Wait()
	sources := map[string]FetchState{
		"library": libState,
		"ratings": ratState,
	}

	ratingByBook := make(map[primitive.ObjectID]int, len(ratings))
	for i := range ratings {
		ratingByBook[ratings[i].BookID] = ratings[i].Value
	}

	books := make([]EnrichedEntry, 0, len(entries))
	for i := range entries {
		books = append(books, enrich(&entries[i], ratingByBook))
	}

	return &DashboardView{
		User:  user,
		Books: books,
		Stats: DashboardStats{
			UserStats:    models.ComputeStats(entries),
			TotalRatings: len(ratings),
		},
		Sources: sources,
	}, nil
}

func enrich(entry *models.LibraryEntry, ratingByBook map[primitive.ObjectID]int) EnrichedEntry {
	e := EnrichedEntry{
		LibraryID:     entry.ID,
		BookID:        entry.BookID,
		Status:        entry.Status,
		StatusDisplay: entry.Status.Display(),
		UserRating:    ratingByBook[entry.BookID],
		CurrentPage:   entry.Progress.CurrentPage,
		Percent:       entry.Progress.Percent,
		StartedAt:     entry.Progress.StartedAt,
		LastUpdated:   entry.Progress.LastUpdated,
		CompletedAt:   entry.Progress.CompletedAt,
		Notes:         entry.Progress.Notes,
	}
	if entry.Book != nil {
		e.Title = entry.Book.Title
		e.Author = entry.Book.Author
		e.CoverURL = entry.Book.CoverURL
		e.TotalPages = entry.Book.TotalPages
	}
	return e
}

// Recommendations gates the recommendation fetch on library contents: only
// catalog-sourced entries contribute titles, and an empty title set
// short-circuits without calling the collaborator at all.
func (s *DashboardService) Recommendations(ctx context.Context, subjectID, email, name string) (*RecommendationView, error) {
	user, err := s.identity.Resolve(ctx, subjectID, email, name)
	if err != nil {
		return nil, err
	}

	fctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	entries, err := s.library.ListByUser(fctx, user.ID)
	if err != nil {
		log.Printf("dashboard: library fetch for recommendations %s: %v", user.ID.Hex(), err)
		entries = nil
	}

	var titles []string
	for i := range entries {
		if entries[i].Book != nil && entries[i].Book.CatalogSourced() {
			titles = append(titles, entries[i].Book.Title)
		}
	}
	if len(titles) == 0 {
		return &RecommendationView{
			Recommendations: []Recommendation{},
			HasBooks:        false,
			Reason:          ReasonEmptyLibrary,
		}, nil
	}

	rctx, rcancel := context.WithTimeout(ctx, s.timeout)
	defer rcancel()
	recs, err := s.recommender.Recommend(rctx, user.ID.Hex(), titles)
	if err != nil {
		log.Printf("dashboard: recommendation fetch for %s: %v", user.ID.Hex(), err)
		return &RecommendationView{
			Recommendations: []Recommendation{},
			HasBooks:        true,
			Reason:          ReasonUnavailable,
		}, nil
	}
	return &RecommendationView{
		Recommendations: recs,
		HasBooks:        true,
	}, nil
}

// AddBook is a write-forwarding path: it creates the book and adds it to the
// caller's library. Failures propagate loudly and there is no compensating
// delete of the created book; the caller retries the library add.
func (s *DashboardService) AddBook(ctx context.Context, subjectID, email, name string, book *models.Book, status models.ReadingStatus) (*models.LibraryEntry, error) {
	user, err := s.identity.Resolve(ctx, subjectID, email, name)
	if err != nil {
		return nil, err
	}
	book.CreatedAt = time.Now()
	bookID, err := s.books.InsertBook(ctx, book)
	if err != nil {
		return nil, err
	}
	book.ID = bookID
	entry, err := s.library.Add(ctx, user.ID, bookID, status)
	if err != nil {
		return nil, err
	}
	entry.Book = book
	return entry, nil
}
