package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/booktrack/server/apperr"
	"github.com/booktrack/server/models"
	"github.com/booktrack/server/store"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// LibraryStore is the persistence surface the library state machine needs.
// *store.DB satisfies it; tests substitute an in-memory fake.
type LibraryStore interface {
	UserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	BookByID(ctx context.Context, id primitive.ObjectID) (*models.Book, error)
	BooksByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.Book, error)
	SetBookTotalPages(ctx context.Context, id primitive.ObjectID, totalPages int) error
	InsertEntry(ctx context.Context, entry *models.LibraryEntry) (primitive.ObjectID, error)
	EntryByID(ctx context.Context, id primitive.ObjectID) (*models.LibraryEntry, error)
	EntryByUserAndBook(ctx context.Context, userID, bookID primitive.ObjectID) (*models.LibraryEntry, error)
	EntriesByUser(ctx context.Context, userID primitive.ObjectID) ([]models.LibraryEntry, error)
	EntriesByUserAndStatus(ctx context.Context, userID primitive.ObjectID, status models.ReadingStatus) ([]models.LibraryEntry, error)
	UpdateEntry(ctx context.Context, entry *models.LibraryEntry) error
	DeleteEntry(ctx context.Context, id primitive.ObjectID) error
}

// LibraryService owns the lifecycle of library entries: status, page
// position, derived percent, and the completion timestamp. Status and
// progress mutations on the same entry are serialized through a per-entry
// lock; different entries proceed independently.
type LibraryService struct {
	store LibraryStore
	locks entryLocks
	now   func() time.Time
}

func NewLibraryService(s LibraryStore) *LibraryService {
	return &LibraryService{
		store: s,
		locks: entryLocks{m: make(map[primitive.ObjectID]*entryLock)},
		now:   time.Now,
	}
}

// Add creates an entry with fresh zero progress. Duplicate (user, book) adds
// are rejected with a conflict; the store's unique index closes the
// lookup-before-insert race.
func (s *LibraryService) Add(ctx context.Context, userID, bookID primitive.ObjectID, status models.ReadingStatus) (*models.LibraryEntry, error) {
	if status == "" {
		status = models.StatusToRead
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
	existing, err := s.store.EntryByUserAndBook(ctx, userID, bookID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperr.Conflict("book already in library")
	}

	now := s.now()
	entry := &models.LibraryEntry{
		UserID:  userID,
		BookID:  bookID,
		Status:  status,
		AddedAt: now,
		Progress: models.Progress{
			CurrentPage: 0,
			Percent:     0.0,
			StartedAt:   now,
			LastUpdated: now,
		},
	}
	id, err := s.store.InsertEntry(ctx, entry)
	if err != nil {
		if store.IsDuplicate(err) {
			return nil, apperr.Conflict("book already in library")
		}
		return nil, err
	}
	entry.ID = id
	entry.Book = book
	return entry, nil
}

func (s *LibraryService) Get(ctx context.Context, entryID primitive.ObjectID) (*models.LibraryEntry, error) {
	entry, err := s.store.EntryByID(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, apperr.NotFound("library entry not found")
	}
	entry.Book, err = s.store.BookByID(ctx, entry.BookID)
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *LibraryService) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.LibraryEntry, error) {
	entries, err := s.store.EntriesByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.attachBooks(ctx, entries)
}

func (s *LibraryService) ListByUserAndStatus(ctx context.Context, userID primitive.ObjectID, status models.ReadingStatus) ([]models.LibraryEntry, error) {
	entries, err := s.store.EntriesByUserAndStatus(ctx, userID, status)
	if err != nil {
		return nil, err
	}
	return s.attachBooks(ctx, entries)
}

func (s *LibraryService) attachBooks(ctx context.Context, entries []models.LibraryEntry) ([]models.LibraryEntry, error) {
	ids := make([]primitive.ObjectID, 0, len(entries))
	for i := range entries {
		ids = append(ids, entries[i].BookID)
	}
	books, err := s.store.BooksByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		entries[i].Book = books[entries[i].BookID]
	}
	return entries, nil
}

// SetStatus sets the reading status directly, except COMPLETED which is a
// compound transition: current page jumps to the book's total (when known),
// percent becomes 100, and the completion timestamp is set exactly once.
func (s *LibraryService) SetStatus(ctx context.Context, entryID primitive.ObjectID, status models.ReadingStatus) (*models.LibraryEntry, error) {
	unlock := s.locks.lock(entryID)
	defer unlock()

	entry, err := s.store.EntryByID(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, apperr.NotFound("library entry not found")
	}
	book, err := s.store.BookByID(ctx, entry.BookID)
	if err != nil {
		return nil, err
	}

	if status == models.StatusCompleted {
		s.complete(entry, book)
	} else {
		entry.Status = status
	}
	if err := s.store.UpdateEntry(ctx, entry); err != nil {
		return nil, err
	}
	entry.Book = book
	return entry, nil
}

func (s *LibraryService) complete(entry *models.LibraryEntry, book *models.Book) {
	now := s.now()
	p := &entry.Progress
	if book != nil && book.TotalPages > 0 {
		p.CurrentPage = book.TotalPages
	}
	p.Percent = 100.0
	if p.CompletedAt == nil {
		p.CompletedAt = &now
	}
	p.LastUpdated = now
	entry.Status = models.StatusCompleted
}

// SetProgress records a new page position. A non-zero totalPages override is
// written through to the book itself, retroactively changing percent for
// every entry that references it. Empty notes never clear existing notes.
func (s *LibraryService) SetProgress(ctx context.Context, entryID primitive.ObjectID, currentPage int, notes string, totalPages *int) (*models.LibraryEntry, error) {
	if currentPage < 0 {
		return nil, apperr.Validation("currentPage must be >= 0")
	}

	unlock := s.locks.lock(entryID)
	defer unlock()

	entry, err := s.store.EntryByID(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, apperr.NotFound("library entry not found")
	}
	if totalPages != nil {
		if err := s.store.SetBookTotalPages(ctx, entry.BookID, *totalPages); err != nil {
			return nil, err
		}
	}
	book, err := s.store.BookByID(ctx, entry.BookID)
	if err != nil {
		return nil, err
	}

	entry.Progress.CurrentPage = currentPage
	if notes != "" {
		entry.Progress.Notes = notes
	}
	total := 0
	if book != nil {
		total = book.TotalPages
	}
	s.recompute(entry, total)

	if err := s.store.UpdateEntry(ctx, entry); err != nil {
		return nil, err
	}
	entry.Book = book
	return entry, nil
}

// recompute derives percent from the live total page count and applies the
// automatic status transitions. Rule: percent >= 100 completes the entry
// (timestamp set once); any positive percent below that forces READING, which
// intentionally overrides a manually set TO_READ/ON_HOLD/DROPPED. An unknown
// total leaves percent untouched. lastUpdated always moves.
func (s *LibraryService) recompute(entry *models.LibraryEntry, totalPages int) {
	now := s.now()
	p := &entry.Progress
	if totalPages > 0 {
		p.Percent = float64(p.CurrentPage) * 100.0 / float64(totalPages)
		if p.Percent >= 100.0 {
			if p.CompletedAt == nil {
				p.CompletedAt = &now
			}
			entry.Status = models.StatusCompleted
		} else if p.Percent > 0.0 {
			entry.Status = models.StatusReading
		}
	}
	p.LastUpdated = now
}

// Progress returns an entry's progress along with the live total page count
// from its book.
func (s *LibraryService) Progress(ctx context.Context, entryID primitive.ObjectID) (*models.Progress, int, error) {
	entry, err := s.store.EntryByID(ctx, entryID)
	if err != nil {
		return nil, 0, err
	}
	if entry == nil {
		return nil, 0, apperr.NotFound("library entry not found")
	}
	book, err := s.store.BookByID(ctx, entry.BookID)
	if err != nil {
		return nil, 0, err
	}
	total := 0
	if book != nil {
		total = book.TotalPages
	}
	return &entry.Progress, total, nil
}

func (s *LibraryService) Remove(ctx context.Context, entryID primitive.ObjectID) error {
	err := s.store.DeleteEntry(ctx, entryID)
	if err != nil && !errorsIsNoDocuments(err) {
		return err
	}
	if err != nil {
		return apperr.NotFound("library entry not found")
	}
	return nil
}

// Stats derives summary counts from the user's entries. ON_HOLD and DROPPED
// are counted in the total but have no bucket of their own.
func (s *LibraryService) Stats(ctx context.Context, userID primitive.ObjectID) (models.UserStats, error) {
	entries, err := s.store.EntriesByUser(ctx, userID)
	if err != nil {
		return models.UserStats{}, err
	}
	return models.ComputeStats(entries), nil
}

func errorsIsNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// entryLocks hands out one mutex per entry id so read-modify-write cycles on
// the same entry cannot interleave. Each mutex is refcounted and dropped from
// the map once its last holder unlocks, so the map only holds ids with a
// mutation in flight.
type entryLocks struct {
	mu sync.Mutex
	m  map[primitive.ObjectID]*entryLock
}

type entryLock struct {
	mu   sync.Mutex
	refs int
}

func (l *entryLocks) lock(id primitive.ObjectID) func() {
	l.mu.Lock()
	el, ok := l.m[id]
	if !ok {
		el = &entryLock{}
		l.m[id] = el
	}
	el.refs++
	l.mu.Unlock()
	el.mu.Lock()
	return func() {
		el.mu.Unlock()
		l.mu.Lock()
		el.refs--
		if el.refs == 0 {
			delete(l.m, id)
		}
		l.mu.Unlock()
	}
}
