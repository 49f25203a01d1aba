package service

import (
	"context"
	"time"

	"github.com/booktrack/server/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type IdentityStore interface {
	UserBySubjectID(ctx context.Context, subjectID string) (*models.User, error)
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) (primitive.ObjectID, error)
	LinkUserSubject(ctx context.Context, id primitive.ObjectID, subjectID, name string) error
}

// IdentityService maps verified issuer claims to a local user record. It is
// only ever invoked after token verification; the middleware rejects bad
// tokens before identity resolution can write anything.
type IdentityService struct {
	store IdentityStore
	now   func() time.Time
}

func NewIdentityService(s IdentityStore) *IdentityService {
	return &IdentityService{store: s, now: time.Now}
}

// Resolve finds or creates the local user for the given claims. First match
// wins: subject id, then email (linking the issuer identity to a pre-existing
// record and backfilling an empty name), then a fresh record carrying the
// credential sentinel. Steps two and three write; callers must not assume
// resolution is read-only.
func (s *IdentityService) Resolve(ctx context.Context, subjectID, email, name string) (*models.User, error) {
	user, err := s.store.UserBySubjectID(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	if user != nil {
		return user, nil
	}

	user, err = s.store.UserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user != nil {
		backfill := ""
		if user.Name == "" {
			backfill = name
		}
		if err := s.store.LinkUserSubject(ctx, user.ID, subjectID, backfill); err != nil {
			return nil, err
		}
		user.SubjectID = subjectID
		if backfill != "" {
			user.Name = backfill
		}
		return user, nil
	}

	user = &models.User{
		SubjectID: subjectID,
		Email:     email,
		Name:      name,
		Password:  models.PasswordSentinel,
		CreatedAt: s.now(),
	}
	id, err := s.store.CreateUser(ctx, user)
	if err != nil {
		return nil, err
	}
	user.ID = id
	return user, nil
}
