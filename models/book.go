package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Book struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title       string             `bson:"title" json:"title"`
	Author      string             `bson:"author,omitempty" json:"author,omitempty"`
	CoverURL    string             `bson:"coverUrl,omitempty" json:"coverUrl,omitempty"`
	ISBN        string             `bson:"isbn,omitempty" json:"isbn,omitempty"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	PublishYear int                `bson:"publishYear,omitempty" json:"publishYear,omitempty"`
	Publisher   string             `bson:"publisher,omitempty" json:"publisher,omitempty"`
	// TotalPages may be 0 (unknown) until back-filled by a progress update.
	TotalPages int       `bson:"totalPages,omitempty" json:"totalPages,omitempty"`
	CreatedAt  time.Time `bson:"createdAt" json:"createdAt"`
}

// CatalogSourced reports whether the book's data came from the external
// catalog, as opposed to being entered by hand. Catalog records always carry
// a cover image.
func (b *Book) CatalogSourced() bool {
	return b.CoverURL != ""
}
