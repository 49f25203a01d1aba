package store

import (
	"context"
	"time"

	"github.com/booktrack/server/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// UpsertRating creates or overwrites the (user, book) rating in one atomic
// write; the unique index guarantees a second row is never created even under
// racing requests.
func (db *DB) UpsertRating(ctx context.Context, userID, bookID primitive.ObjectID, value int, ratedAt time.Time) (*models.Rating, error) {
	filter := bson.M{"userId": userID, "bookId": bookID}
	update := bson.M{
		"$set":         bson.M{"rating": value, "ratedAt": ratedAt},
		"$setOnInsert": bson.M{"userId": userID, "bookId": bookID},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)
	var rating models.Rating
	if err := db.Ratings().FindOneAndUpdate(ctx, filter, update, opts).Decode(&rating); err != nil {
		return nil, err
	}
	return &rating, nil
}

func (db *DB) RatingByUserAndBook(ctx context.Context, userID, bookID primitive.ObjectID) (*models.Rating, error) {
	var rating models.Rating
	err := db.Ratings().FindOne(ctx, bson.M{"userId": userID, "bookId": bookID}).Decode(&rating)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rating, nil
}

func (db *DB) RatingsByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Rating, error) {
	return db.findRatings(ctx, bson.M{"userId": userID})
}

func (db *DB) RatingsByBook(ctx context.Context, bookID primitive.ObjectID) ([]models.Rating, error) {
	return db.findRatings(ctx, bson.M{"bookId": bookID})
}

func (db *DB) findRatings(ctx context.Context, filter bson.M) ([]models.Rating, error) {
	cur, err := db.Ratings().Find(ctx, filter, options.Find().SetSort(bson.M{"ratedAt": -1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var ratings []models.Rating
	if err := cur.All(ctx, &ratings); err != nil {
		return nil, err
	}
	return ratings, nil
}

func (db *DB) DeleteRating(ctx context.Context, id primitive.ObjectID) error {
	res, err := db.Ratings().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}
