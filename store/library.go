package store

import (
	"context"

	"github.com/booktrack/server/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// IsDuplicate reports whether err is a unique-index violation, used by the
// services to turn racing inserts into conflict errors.
func IsDuplicate(err error) bool {
	return mongo.IsDuplicateKeyError(err)
}

func (db *DB) InsertEntry(ctx context.Context, entry *models.LibraryEntry) (primitive.ObjectID, error) {
	res, err := db.Library().InsertOne(ctx, entry, options.InsertOne())
	if err != nil {
		return primitive.NilObjectID, err
	}
	return res.InsertedID.(primitive.ObjectID), nil
}

func (db *DB) EntryByID(ctx context.Context, id primitive.ObjectID) (*models.LibraryEntry, error) {
	var entry models.LibraryEntry
	err := db.Library().FindOne(ctx, bson.M{"_id": id}).Decode(&entry)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (db *DB) EntryByUserAndBook(ctx context.Context, userID, bookID primitive.ObjectID) (*models.LibraryEntry, error) {
	var entry models.LibraryEntry
	err := db.Library().FindOne(ctx, bson.M{"userId": userID, "bookId": bookID}).Decode(&entry)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (db *DB) EntriesByUser(ctx context.Context, userID primitive.ObjectID) ([]models.LibraryEntry, error) {
	return db.findEntries(ctx, bson.M{"userId": userID})
}

func (db *DB) EntriesByUserAndStatus(ctx context.Context, userID primitive.ObjectID, status models.ReadingStatus) ([]models.LibraryEntry, error) {
	return db.findEntries(ctx, bson.M{"userId": userID, "status": status})
}

func (db *DB) findEntries(ctx context.Context, filter bson.M) ([]models.LibraryEntry, error) {
	cur, err := db.Library().Find(ctx, filter, options.Find().SetSort(bson.M{"addedAt": -1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var entries []models.LibraryEntry
	if err := cur.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// UpdateEntry persists status and the embedded progress in one write, so an
// entry read back is always internally consistent.
func (db *DB) UpdateEntry(ctx context.Context, entry *models.LibraryEntry) error {
	update := bson.M{
		"status":   entry.Status,
		"progress": entry.Progress,
	}
	res, err := db.Library().UpdateOne(ctx, bson.M{"_id": entry.ID}, bson.M{"$set": update})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// DeleteEntry removes the entry; the embedded progress goes with the document.
func (db *DB) DeleteEntry(ctx context.Context, id primitive.ObjectID) error {
	res, err := db.Library().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}
