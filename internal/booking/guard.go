package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/telecare/scheduling-engine/internal/availability"
	"github.com/telecare/scheduling-engine/internal/civil"
	"github.com/telecare/scheduling-engine/internal/ledger"
	"github.com/telecare/scheduling-engine/internal/schedule"
)

// ErrSlotUnavailable means the requested window is not on offer: outside the
// template, already taken, or lost to a concurrent reservation. Callers must
// surface it so the client picks a fresh slot, never retry silently.
var ErrSlotUnavailable = errors.New("slot unavailable")

// Guard computes what is actually bookable (generated slots minus the active
// ledger) and performs the reserve-or-reject step of booking.
type Guard struct {
	generator *schedule.Generator
	entries   ledger.Repository
	now       func() time.Time
}

func NewGuard(generator *schedule.Generator, entries ledger.Repository) *Guard {
	return &Guard{
		generator: generator,
		entries:   entries,
		now:       time.Now,
	}
}

// WithClock overrides the clock, for tests.
func (g *Guard) WithClock(now func() time.Time) *Guard {
	g.now = now
	return g
}

// AvailableSlots is the read path: candidate slots with every window that
// overlaps an active ledger entry removed. Side-effect free.
func (g *Guard) AvailableSlots(ctx context.Context, providerID uuid.UUID, date civil.Date, modality availability.Modality) ([]schedule.Slot, error) {
	candidates, err := g.generator.Slots(ctx, providerID, date, modality)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	taken, err := g.entries.ListActive(ctx, providerID, date)
	if err != nil {
		return nil, fmt.Errorf("list active entries: %w", err)
	}

	var free []schedule.Slot
	for _, slot := range candidates {
		if overlapsAny(slot.Span(), taken) {
			continue
		}
		free = append(free, slot)
	}
	return free, nil
}

// TryReserve reserves the window for the appointment with a hold of
// holdSeconds. The requested window must be one the generator would offer
// right now; the ledger's atomic insert then decides any race. Losing the
// race is ErrSlotUnavailable.
func (g *Guard) TryReserve(ctx context.Context, providerID uuid.UUID, date civil.Date, span civil.Span, modality availability.Modality, appointmentID uuid.UUID, holdSeconds int) (*ledger.Entry, error) {
	free, err := g.AvailableSlots(ctx, providerID, date, modality)
	if err != nil {
		return nil, err
	}
	if !containsWindow(free, span) {
		return nil, ErrSlotUnavailable
	}

	now := g.now()
	expiresAt := now.Add(time.Duration(holdSeconds) * time.Second)
	entry := ledger.Entry{
		ID:            uuid.New(),
		ProviderID:    providerID,
		Date:          date,
		Start:         span.Start,
		End:           span.End,
		AppointmentID: appointmentID,
		Status:        ledger.StatusReserved,
		ReservedAt:    now,
		ExpiresAt:     &expiresAt,
	}

	if err := g.entries.Reserve(ctx, entry); err != nil {
		if errors.Is(err, ledger.ErrConflict) {
			return nil, ErrSlotUnavailable
		}
		return nil, fmt.Errorf("reserve window: %w", err)
	}
	return &entry, nil
}

func overlapsAny(span civil.Span, taken []ledger.Entry) bool {
	for i := range taken {
		if span.Overlaps(taken[i].Span()) {
			return true
		}
	}
	return false
}

func containsWindow(slots []schedule.Slot, span civil.Span) bool {
	for _, s := range slots {
		if s.Start == span.Start && s.End == span.End {
			return true
		}
	}
	return false
}
