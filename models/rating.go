package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Rating is one user's 1-5 star rating of one book. A unique index on
// (userId, bookId) guarantees at most one rating per pair; writes go through
// an upsert.
type Rating struct {
	ID      primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID  primitive.ObjectID `bson:"userId" json:"userId"`
	BookID  primitive.ObjectID `bson:"bookId" json:"bookId"`
	Value   int                `bson:"rating" json:"rating"`
	RatedAt time.Time          `bson:"ratedAt" json:"ratedAt"`
}

// BookRatingStats is the per-book aggregate returned by the rating service.
type BookRatingStats struct {
	TotalRatings  int     `json:"totalRatings"`
	AverageRating float64 `json:"averageRating"`
}
