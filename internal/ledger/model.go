// Package ledger is the source of truth for which time windows a provider
// has given away. Its single correctness property: no two active entries for
// one provider and date may overlap.
package ledger

import (
	"time"

	"github.com/google/uuid"

	"github.com/telecare/scheduling-engine/internal/civil"
)

type Status string

const (
	StatusReserved  Status = "reserved"
	StatusConfirmed Status = "confirmed"
	StatusReleased  Status = "released"
)

// Entry is the durable record that a slot is taken. ExpiresAt is set only
// while the reservation is unpaid; confirming clears it.
type Entry struct {
	ID            uuid.UUID
	ProviderID    uuid.UUID
	Date          civil.Date
	Start         civil.Minutes
	End           civil.Minutes
	AppointmentID uuid.UUID
	Status        Status
	ReservedAt    time.Time
	ExpiresAt     *time.Time
}

func (e *Entry) Span() civil.Span {
	return civil.Span{Start: e.Start, End: e.End}
}

// ActiveAt reports whether the entry still blocks its window at the given
// instant. A reserved entry whose hold has lapsed no longer counts, even if
// the sweep has not caught up with it yet.
func (e *Entry) ActiveAt(now time.Time) bool {
	switch e.Status {
	case StatusConfirmed:
		return true
	case StatusReserved:
		return e.ExpiresAt == nil || e.ExpiresAt.After(now)
	default:
		return false
	}
}
