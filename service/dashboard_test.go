package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/booktrack/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type stubResolver struct {
	user *models.User
	err  error
}

func (s *stubResolver) Resolve(context.Context, string, string, string) (*models.User, error) {
	return s.user, s.err
}

type stubLibrary struct {
	entries []models.LibraryEntry
	listErr error
	added   *models.LibraryEntry
	addErr  error
}

func (s *stubLibrary) ListByUser(context.Context, primitive.ObjectID) ([]models.LibraryEntry, error) {
	return s.entries, s.listErr
}

func (s *stubLibrary) Add(_ context.Context, userID, bookID primitive.ObjectID, status models.ReadingStatus) (*models.LibraryEntry, error) {
	if s.addErr != nil {
		return nil, s.addErr
	}
	s.added = &models.LibraryEntry{ID: primitive.NewObjectID(), UserID: userID, BookID: bookID, Status: status}
	return s.added, nil
}

type stubRatings struct {
	ratings []models.Rating
	err     error
}

func (s *stubRatings) ListByUser(context.Context, primitive.ObjectID) ([]models.Rating, error) {
	return s.ratings, s.err
}

type stubBooks struct {
	inserted *models.Book
	err      error
}

func (s *stubBooks) InsertBook(_ context.Context, book *models.Book) (primitive.ObjectID, error) {
	if s.err != nil {
		return primitive.NilObjectID, s.err
	}
	s.inserted = book
	return primitive.NewObjectID(), nil
}

type stubRecommender struct {
	recs   []Recommendation
	err    error
	calls  int
	titles []string
}

func (s *stubRecommender) Recommend(_ context.Context, _ string, titles []string) ([]Recommendation, error) {
	s.calls++
	s.titles = titles
	return s.recs, s.err
}

func catalogEntry(title string, status models.ReadingStatus, rating int) (models.LibraryEntry, models.Rating) {
	bookID := primitive.NewObjectID()
	entry := models.LibraryEntry{
		ID:     primitive.NewObjectID(),
		BookID: bookID,
		Status: status,
		Book: &models.Book{
			ID:       bookID,
			Title:    title,
			CoverURL: "https://covers.openlibrary.org/b/id/1-M.jpg",
		},
	}
	return entry, models.Rating{BookID: bookID, Value: rating}
}

func newTestDashboard(resolver Resolver, library DashboardLibrary, ratings DashboardRatings, books DashboardBooks, rec Recommender) *DashboardService {
	return NewDashboardService(resolver, library, ratings, books, rec, time.Second)
}

func TestOverviewMergesSources(t *testing.T) {
	user := &models.User{ID: primitive.NewObjectID(), Name: "Ada"}
	entry, rating := catalogEntry("Dune", models.StatusReading, 5)
	entry.Progress = models.Progress{CurrentPage: 50, Percent: 25}
	svc := newTestDashboard(
		&stubResolver{user: user},
		&stubLibrary{entries: []models.LibraryEntry{entry}},
		&stubRatings{ratings: []models.Rating{rating}},
		&stubBooks{},
		&stubRecommender{},
	)

	view, err := svc.Overview(context.Background(), "sub", "a@example.com", "Ada")
	require.NoError(t, err)
	assert.Equal(t, user, view.User)
	require.Len(t, view.Books, 1)
	got := view.Books[0]
	assert.Equal(t, "Dune", got.Title)
	assert.Equal(t, 5, got.UserRating)
	assert.Equal(t, "Reading", got.StatusDisplay)
	assert.Equal(t, 25.0, got.Percent)
	assert.Equal(t, FetchOK, view.Sources["library"])
	assert.Equal(t, FetchOK, view.Sources["ratings"])
	assert.Equal(t, 1, view.Stats.TotalBooks)
	assert.Equal(t, 1, view.Stats.ReadingBooks)
	assert.Equal(t, 1, view.Stats.TotalRatings)
}

func TestOverviewDegradesRatings(t *testing.T) {
	user := &models.User{ID: primitive.NewObjectID()}
	entry, _ := catalogEntry("Dune", models.StatusReading, 0)
	svc := newTestDashboard(
		&stubResolver{user: user},
		&stubLibrary{entries: []models.LibraryEntry{entry}},
		&stubRatings{err: errors.New("ratings down")},
		&stubBooks{},
		&stubRecommender{},
	)

	view, err := svc.Overview(context.Background(), "sub", "a@example.com", "Ada")
	require.NoError(t, err)
	assert.Equal(t, FetchDegraded, view.Sources["ratings"])
	assert.Equal(t, FetchOK, view.Sources["library"])
	require.Len(t, view.Books, 1)
	assert.Equal(t, 0, view.Books[0].UserRating)
	assert.Equal(t, 0, view.Stats.TotalRatings)
}

func TestOverviewDegradesLibrary(t *testing.T) {
	user := &models.User{ID: primitive.NewObjectID()}
	svc := newTestDashboard(
		&stubResolver{user: user},
		&stubLibrary{listErr: errors.New("library down")},
		&stubRatings{ratings: []models.Rating{{Value: 4}}},
		&stubBooks{},
		&stubRecommender{},
	)

	view, err := svc.Overview(context.Background(), "sub", "a@example.com", "Ada")
	require.NoError(t, err)
	assert.Equal(t, FetchDegraded, view.Sources["library"])
	assert.Empty(t, view.Books)
	assert.Equal(t, 0, view.Stats.TotalBooks)
	assert.Equal(t, 1, view.Stats.TotalRatings)
}

// barrierLibrary and barrierRatings fail only after both fetches have
// started, so the two degradations happen at the same moment.
type barrierLibrary struct {
	start *sync.WaitGroup
}

func (b *barrierLibrary) ListByUser(context.Context, primitive.ObjectID) ([]models.LibraryEntry, error) {
	b.start.Done()
	b.start.Wait()
	return nil, errors.New("library down")
}

func (b *barrierLibrary) Add(context.Context, primitive.ObjectID, primitive.ObjectID, models.ReadingStatus) (*models.LibraryEntry, error) {
	return nil, errors.New("library down")
}

type barrierRatings struct {
	start *sync.WaitGroup
}

func (b *barrierRatings) ListByUser(context.Context, primitive.ObjectID) ([]models.Rating, error) {
	b.start.Done()
	b.start.Wait()
	return nil, errors.New("ratings down")
}

func TestOverviewDegradesBothSourcesConcurrently(t *testing.T) {
	user := &models.User{ID: primitive.NewObjectID()}
	var start sync.WaitGroup
	start.Add(2)
	svc := newTestDashboard(
		&stubResolver{user: user},
		&barrierLibrary{start: &start},
		&barrierRatings{start: &start},
		&stubBooks{},
		&stubRecommender{},
	)

	view, err := svc.Overview(context.Background(), "sub", "a@example.com", "Ada")
	require.NoError(t, err)
	assert.Equal(t, FetchDegraded, view.Sources["library"])
	assert.Equal(t, FetchDegraded, view.Sources["ratings"])
	assert.Empty(t, view.Books)
	assert.Equal(t, DashboardStats{}, view.Stats)
}

func TestOverviewFailsWhenIdentityFails(t *testing.T) {
	svc := newTestDashboard(
		&stubResolver{err: errors.New("issuer unreachable")},
		&stubLibrary{},
		&stubRatings{},
		&stubBooks{},
		&stubRecommender{},
	)
	_, err := svc.Overview(context.Background(), "sub", "a@example.com", "Ada")
	assert.Error(t, err)
}

func TestRecommendationsEmptyLibraryShortCircuits(t *testing.T) {
	user := &models.User{ID: primitive.NewObjectID()}
	rec := &stubRecommender{}
	// A manually created book with no cover is not catalog sourced, so it
	// contributes no titles.
	manual := models.LibraryEntry{
		BookID: primitive.NewObjectID(),
		Book:   &models.Book{Title: "My Notes"},
	}
	svc := newTestDashboard(
		&stubResolver{user: user},
		&stubLibrary{entries: []models.LibraryEntry{manual}},
		&stubRatings{},
		&stubBooks{},
		rec,
	)

	view, err := svc.Recommendations(context.Background(), "sub", "a@example.com", "Ada")
	require.NoError(t, err)
	assert.False(t, view.HasBooks)
	assert.Equal(t, ReasonEmptyLibrary, view.Reason)
	assert.Empty(t, view.Recommendations)
	assert.Equal(t, 0, rec.calls)
}

func TestRecommendationsSendsCatalogTitles(t *testing.T) {
	user := &models.User{ID: primitive.NewObjectID()}
	entry, _ := catalogEntry("Dune", models.StatusReading, 0)
	rec := &stubRecommender{recs: []Recommendation{{Title: "Hyperion", Author: "Dan Simmons"}}}
	svc := newTestDashboard(
		&stubResolver{user: user},
		&stubLibrary{entries: []models.LibraryEntry{entry}},
		&stubRatings{},
		&stubBooks{},
		rec,
	)

	view, err := svc.Recommendations(context.Background(), "sub", "a@example.com", "Ada")
	require.NoError(t, err)
	assert.True(t, view.HasBooks)
	assert.Empty(t, view.Reason)
	require.Len(t, view.Recommendations, 1)
	assert.Equal(t, "Hyperion", view.Recommendations[0].Title)
	assert.Equal(t, []string{"Dune"}, rec.titles)
}

func TestRecommendationsDegradeWhenCollaboratorFails(t *testing.T) {
	user := &models.User{ID: primitive.NewObjectID()}
	entry, _ := catalogEntry("Dune", models.StatusReading, 0)
	rec := &stubRecommender{err: errors.New("ai service down")}
	svc := newTestDashboard(
		&stubResolver{user: user},
		&stubLibrary{entries: []models.LibraryEntry{entry}},
		&stubRatings{},
		&stubBooks{},
		rec,
	)

	view, err := svc.Recommendations(context.Background(), "sub", "a@example.com", "Ada")
	require.NoError(t, err)
	assert.True(t, view.HasBooks)
	assert.Equal(t, ReasonUnavailable, view.Reason)
	assert.Empty(t, view.Recommendations)
}

func TestAddBookCreatesAndFiles(t *testing.T) {
	user := &models.User{ID: primitive.NewObjectID()}
	books := &stubBooks{}
	library := &stubLibrary{}
	svc := newTestDashboard(&stubResolver{user: user}, library, &stubRatings{}, books, &stubRecommender{})

	book := &models.Book{Title: "Dune", TotalPages: 412}
	entry, err := svc.AddBook(context.Background(), "sub", "a@example.com", "Ada", book, models.StatusToRead)
	require.NoError(t, err)
	require.NotNil(t, books.inserted)
	assert.False(t, books.inserted.CreatedAt.IsZero())
	assert.Equal(t, user.ID, entry.UserID)
	assert.Equal(t, book.ID, entry.BookID)
	require.NotNil(t, entry.Book)
	assert.Equal(t, "Dune", entry.Book.Title)
}

func TestAddBookPropagatesLibraryFailure(t *testing.T) {
	user := &models.User{ID: primitive.NewObjectID()}
	svc := newTestDashboard(
		&stubResolver{user: user},
		&stubLibrary{addErr: errors.New("insert failed")},
		&stubRatings{},
		&stubBooks{},
		&stubRecommender{},
	)
	_, err := svc.AddBook(context.Background(), "sub", "a@example.com", "Ada", &models.Book{Title: "Dune"}, models.StatusToRead)
	assert.Error(t, err)
}
