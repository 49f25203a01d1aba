package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PasswordSentinel is stored in the password field of users whose credentials
// are managed by the external token issuer. Real passwords never land here.
const PasswordSentinel = "ISSUER_MANAGED"

type User struct {
	ID primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	// SubjectID is the issuer's subject claim; empty until the local record
	// has been linked to its issuer identity.
	SubjectID string    `bson:"subjectId,omitempty" json:"subjectId,omitempty"`
	Email     string    `bson:"email" json:"email"`
	Name      string    `bson:"name,omitempty" json:"name,omitempty"`
	Password  string    `bson:"password" json:"-"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}
