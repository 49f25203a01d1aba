package service

import (
	"context"
	"math"
	"time"

	"github.com/booktrack/server/apperr"
	"github.com/booktrack/server/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type RatingStore interface {
	UserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	BookByID(ctx context.Context, id primitive.ObjectID) (*models.Book, error)
	UpsertRating(ctx context.Context, userID, bookID primitive.ObjectID, value int, ratedAt time.Time) (*models.Rating, error)
	RatingByUserAndBook(ctx context.Context, userID, bookID primitive.ObjectID) (*models.Rating, error)
	RatingsByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Rating, error)
	RatingsByBook(ctx context.Context, bookID primitive.ObjectID) ([]models.Rating, error)
	DeleteRating(ctx context.Context, id primitive.ObjectID) error
}

// RatingService is the read/write accessor for per-(user, book) ratings and
// per-book statistics.
type RatingService struct {
	store RatingStore
	now   func() time.Time
}

func NewRatingService(s RatingStore) *RatingService {
	return &RatingService{store: s, now: time.Now}
}

// Rate creates or overwrites the caller's rating for a book. Rating the same
// book twice updates value and timestamp; a second row is never created.
func (s *RatingService) Rate(ctx context.Context, userID, bookID primitive.ObjectID, value int) (*models.Rating, error) {
	if value < 1 || value > 5 {
		return nil, apperr.Validation("rating must be between 1 and 5")
	}
	user, err := s.store.UserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperr.NotFound("user not found")
	}
	book, err := s.store.BookByID(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if book == nil {
		return nil, apperr.NotFound("book not found")
	}
	return s.store.UpsertRating(ctx, userID, bookID, value, s.now())
}

func (s *RatingService) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Rating, error) {
	return s.store.RatingsByUser(ctx, userID)
}

func (s *RatingService) ListByBook(ctx context.Context, bookID primitive.ObjectID) ([]models.Rating, error) {
	return s.store.RatingsByBook(ctx, bookID)
}

func (s *RatingService) GetByUserAndBook(ctx context.Context, userID, bookID primitive.ObjectID) (*models.Rating, error) {
	rating, err := s.store.RatingByUserAndBook(ctx, userID, bookID)
	if err != nil {
		return nil, err
	}
	if rating == nil {
		return nil, apperr.NotFound("rating not found")
	}
	return rating, nil
}

func (s *RatingService) Delete(ctx context.Context, id primitive.ObjectID) error {
	if err := s.store.DeleteRating(ctx, id); err != nil {
		if errorsIsNoDocuments(err) {
			return apperr.NotFound("rating not found")
		}
		return err
	}
	return nil
}

// BookStats returns the rating count and the mean rounded half-up to one
// decimal place. An empty rating set yields 0 / 0.0, not an error.
func (s *RatingService) BookStats(ctx context.Context, bookID primitive.ObjectID) (models.BookRatingStats, error) {
	ratings, err := s.store.RatingsByBook(ctx, bookID)
	if err != nil {
		return models.BookRatingStats{}, err
	}
	stats := models.BookRatingStats{TotalRatings: len(ratings)}
	if len(ratings) == 0 {
		return stats, nil
	}
	sum := 0
	for i := range ratings {
		sum += ratings[i].Value
	}
	mean := float64(sum) / float64(len(ratings))
	stats.AverageRating = math.Floor(mean*10+0.5) / 10
	return stats, nil
}
