package models

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ReadingStatus is the lifecycle state of a library entry. Any status may be
// set to any other directly; the only automatic transitions are driven by
// progress updates (see service.LibraryService).
type ReadingStatus string

const (
	StatusToRead    ReadingStatus = "TO_READ"
	StatusReading   ReadingStatus = "READING"
	StatusCompleted ReadingStatus = "COMPLETED"
	StatusOnHold    ReadingStatus = "ON_HOLD"
	StatusDropped   ReadingStatus = "DROPPED"
)

// ParseReadingStatus validates a wire-format status string.
func ParseReadingStatus(s string) (ReadingStatus, error) {
	switch ReadingStatus(s) {
	case StatusToRead, StatusReading, StatusCompleted, StatusOnHold, StatusDropped:
		return ReadingStatus(s), nil
	}
	return "", fmt.Errorf("unknown reading status %q", s)
}

// Display returns the human-readable form shown in aggregated views.
func (s ReadingStatus) Display() string {
	switch s {
	case StatusToRead:
		return "To Read"
	case StatusReading:
		return "Reading"
	case StatusCompleted:
		return "Completed"
	case StatusOnHold:
		return "On Hold"
	case StatusDropped:
		return "Dropped"
	}
	return string(s)
}

// Progress is the reading-position record owned by exactly one library entry.
// It is embedded in the entry document so the two are created and deleted
// together. Total pages is never stored here; it is always read live from the
// book so later edits to the book retroactively change percent calculations.
type Progress struct {
	CurrentPage int        `bson:"currentPage" json:"currentPage"`
	Percent     float64    `bson:"percent" json:"progressPercent"`
	StartedAt   time.Time  `bson:"startedAt" json:"startedAt"`
	LastUpdated time.Time  `bson:"lastUpdated" json:"lastUpdated"`
	CompletedAt *time.Time `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
	Notes       string     `bson:"notes,omitempty" json:"notes,omitempty"`
}

// LibraryEntry associates one user with one book, carrying reading status and
// progress. At most one entry exists per (user, book) pair; the store enforces
// this with a unique index.
type LibraryEntry struct {
	ID      primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID  primitive.ObjectID `bson:"userId" json:"userId"`
	BookID  primitive.ObjectID `bson:"bookId" json:"bookId"`
	Status  ReadingStatus      `bson:"status" json:"status"`
	AddedAt time.Time          `bson:"addedAt" json:"addedAt"`
	Progress Progress          `bson:"progress" json:"readingProgress"`
	// Book is attached by the service layer for list/detail responses; it is
	// never persisted with the entry.
	Book *Book `bson:"-" json:"book,omitempty"`
}

// UserStats summarizes a user's library. ON_HOLD and DROPPED entries count
// toward TotalBooks only; the sub-buckets deliberately omit them.
type UserStats struct {
	TotalBooks     int `json:"totalBooks"`
	ReadingBooks   int `json:"readingBooks"`
	CompletedBooks int `json:"completedBooks"`
	ToReadBooks    int `json:"toReadBooks"`
}

// ComputeStats is a pure function of the entry set; both the stats endpoint
// and the dashboard derive their counts through it.
func ComputeStats(entries []LibraryEntry) UserStats {
	stats := UserStats{TotalBooks: len(entries)}
	for i := range entries {
		switch entries[i].Status {
		case StatusReading:
			stats.ReadingBooks++
		case StatusCompleted:
			stats.CompletedBooks++
		case StatusToRead:
			stats.ToReadBooks++
		}
	}
	return stats
}
