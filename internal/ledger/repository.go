package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/telecare/scheduling-engine/internal/civil"
)

var (
	// ErrConflict means the requested window overlaps an active entry.
	// Losing this race is a routine outcome, not a fault.
	ErrConflict = errors.New("window overlaps an active ledger entry")

	ErrEntryNotFound = errors.New("ledger entry not found")
)

// Repository persists ledger entries. Reserve is the single serialization
// point for the no-double-booking invariant: it must perform an atomic
// conditional write, never a read-then-write pair.
type Repository interface {
	// ListActive returns the entries that block windows on the given
	// provider and date. Reserved entries with a lapsed hold are treated
	// as already released.
	ListActive(ctx context.Context, providerID uuid.UUID, date civil.Date) ([]Entry, error)

	// Reserve inserts the entry with status reserved iff its window
	// overlaps no active entry, returning ErrConflict otherwise.
	Reserve(ctx context.Context, e Entry) error

	// Confirm moves a reserved entry to confirmed and clears its hold.
	Confirm(ctx context.Context, entryID uuid.UUID) error

	// Release marks the entry released, freeing its window.
	Release(ctx context.Context, entryID uuid.UUID) error

	// ReleaseExpired releases every reserved entry whose hold lapsed
	// before now and returns how many it touched.
	ReleaseExpired(ctx context.Context, now time.Time) (int, error)

	GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*Entry, error)
}
