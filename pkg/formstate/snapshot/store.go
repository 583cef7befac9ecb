// Package snapshot captures form state and stores it as named drafts.
//
// A Snapshot is a point-in-time copy of a form's data, states, fields and
// validation. Forms restore snapshots directly for transactional flows
// such as wizard steps, and persist them through a Store to keep drafts
// across sessions.
package snapshot

import (
	"errors"
	"time"
)

// Store persists encoded snapshots keyed by form ID and label.
// Implementations must be safe for concurrent use.
type Store interface {
	// Save stores a draft, replacing any draft with the same label.
	Save(formID, label string, data []byte) error

	// Load returns a draft, or ErrNotFound.
	Load(formID, label string) ([]byte, error)

	// List returns a form's drafts ordered by save sequence.
	// A form with no drafts yields an empty slice, not an error.
	List(formID string) ([]Info, error)

	// Delete removes a draft. Deleting a missing draft is not an error.
	Delete(formID, label string) error

	// DeleteForm removes all of a form's drafts.
	DeleteForm(formID string) error

	// Close releases resources.
	Close() error
}

// Info describes a stored draft without loading it.
type Info struct {
	FormID    string
	Label     string
	Sequence  int
	Timestamp time.Time
	Size      int64
}

var (
	// ErrNotFound indicates a draft does not exist.
	ErrNotFound = errors.New("draft not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("draft store closed")

	// ErrVersionMismatch indicates a snapshot encoded by an incompatible
	// format version.
	ErrVersionMismatch = errors.New("snapshot version mismatch")
)
