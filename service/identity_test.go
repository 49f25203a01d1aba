package service

import (
	"context"
	"testing"
	"time"

	"github.com/booktrack/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeIdentityStore struct {
	bySubject map[string]*models.User
	byEmail   map[string]*models.User
	created   []*models.User
	linked    []linkCall
}

type linkCall struct {
	id        primitive.ObjectID
	subjectID string
	name      string
}

func newFakeIdentityStore() *fakeIdentityStore {
	return &fakeIdentityStore{
		bySubject: make(map[string]*models.User),
		byEmail:   make(map[string]*models.User),
	}
}

func (f *fakeIdentityStore) UserBySubjectID(_ context.Context, subjectID string) (*models.User, error) {
	return f.bySubject[subjectID], nil
}

func (f *fakeIdentityStore) UserByEmail(_ context.Context, email string) (*models.User, error) {
	return f.byEmail[email], nil
}

func (f *fakeIdentityStore) CreateUser(_ context.Context, user *models.User) (primitive.ObjectID, error) {
	id := primitive.NewObjectID()
	cp := *user
	cp.ID = id
	f.created = append(f.created, &cp)
	return id, nil
}

func (f *fakeIdentityStore) LinkUserSubject(_ context.Context, id primitive.ObjectID, subjectID, name string) error {
	f.linked = append(f.linked, linkCall{id: id, subjectID: subjectID, name: name})
	return nil
}

func TestResolveBySubjectID(t *testing.T) {
	f := newFakeIdentityStore()
	existing := &models.User{ID: primitive.NewObjectID(), SubjectID: "sub-1", Email: "a@example.com", Name: "Ada"}
	f.bySubject["sub-1"] = existing
	svc := NewIdentityService(f)

	user, err := svc.Resolve(context.Background(), "sub-1", "other@example.com", "Other")
	require.NoError(t, err)
	assert.Equal(t, existing.ID, user.ID)
	assert.Empty(t, f.linked)
	assert.Empty(t, f.created)
}

func TestResolveLinksByEmail(t *testing.T) {
	f := newFakeIdentityStore()
	existing := &models.User{ID: primitive.NewObjectID(), Email: "a@example.com", Name: "Ada"}
	f.byEmail["a@example.com"] = existing
	svc := NewIdentityService(f)

	user, err := svc.Resolve(context.Background(), "sub-9", "a@example.com", "Someone Else")
	require.NoError(t, err)
	assert.Equal(t, existing.ID, user.ID)
	assert.Equal(t, "sub-9", user.SubjectID)
	require.Len(t, f.linked, 1)
	assert.Equal(t, "sub-9", f.linked[0].subjectID)
	// The stored name is already set, so no backfill happens.
	assert.Equal(t, "", f.linked[0].name)
	assert.Equal(t, "Ada", user.Name)
}

func TestResolveLinksByEmailBackfillsName(t *testing.T) {
	f := newFakeIdentityStore()
	existing := &models.User{ID: primitive.NewObjectID(), Email: "a@example.com"}
	f.byEmail["a@example.com"] = existing
	svc := NewIdentityService(f)

	user, err := svc.Resolve(context.Background(), "sub-9", "a@example.com", "Ada")
	require.NoError(t, err)
	require.Len(t, f.linked, 1)
	assert.Equal(t, "Ada", f.linked[0].name)
	assert.Equal(t, "Ada", user.Name)
}

func TestResolveCreatesWithSentinel(t *testing.T) {
	f := newFakeIdentityStore()
	svc := NewIdentityService(f)
	svc.now = func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) }

	user, err := svc.Resolve(context.Background(), "sub-new", "new@example.com", "Newcomer")
	require.NoError(t, err)
	assert.False(t, user.ID.IsZero())
	assert.Equal(t, "sub-new", user.SubjectID)
	assert.Equal(t, models.PasswordSentinel, user.Password)
	require.Len(t, f.created, 1)
	assert.Equal(t, "new@example.com", f.created[0].Email)
	assert.Equal(t, svc.now(), f.created[0].CreatedAt)
}
