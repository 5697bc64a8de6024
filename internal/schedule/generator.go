// Package schedule derives bookable time windows from a provider's recurring
// weekly availability template. Generation is pure: the same template and the
// same clock reading always produce the same slot list.
package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/telecare/scheduling-engine/internal/availability"
	"github.com/telecare/scheduling-engine/internal/civil"
)

// Slot is a candidate booking window. Slots are ephemeral; nothing is
// persisted until one is reserved.
type Slot struct {
	ProviderID      uuid.UUID             `json:"provider_id"`
	Date            civil.Date            `json:"date"`
	Start           civil.Minutes         `json:"start"`
	End             civil.Minutes         `json:"end"`
	Modality        availability.Modality `json:"modality"`
	DurationMinutes int                   `json:"duration_minutes"`
}

func (s Slot) Span() civil.Span {
	return civil.Span{Start: s.Start, End: s.End}
}

// Generator produces the ordered candidate slots for a provider and date.
type Generator struct {
	store    availability.Store
	leadTime time.Duration
	now      func() time.Time
}

func NewGenerator(store availability.Store, leadTime time.Duration) *Generator {
	return &Generator{
		store:    store,
		leadTime: leadTime,
		now:      time.Now,
	}
}

// WithClock overrides the clock, for tests.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Slots partitions the provider's working window on the given date into
// fixed-width slots for the modality, skipping breaks. When the date is the
// current civil day, windows starting before now + leadTime are dropped.
func (g *Generator) Slots(ctx context.Context, providerID uuid.UUID, date civil.Date, modality availability.Modality) ([]Slot, error) {
	tpl, err := g.store.Get(ctx, providerID)
	if err != nil {
		return nil, fmt.Errorf("load availability: %w", err)
	}

	rule := tpl.Rule(date)
	if !rule.Working {
		return nil, nil
	}

	duration := civil.Minutes(tpl.DurationFor(modality))

	// The lead-time cutoff only applies to today. The comparison is
	// date-to-date on civil dates; the instant is read once and never
	// shifted through a timezone.
	cutoff := civil.Minutes(-1)
	now := g.now()
	if civil.DateOf(now).Equal(date) {
		earliest := now.Add(g.leadTime)
		if civil.DateOf(earliest).After(date) {
			// Lead time reaches past midnight; nothing today qualifies.
			return nil, nil
		}
		cutoff = civil.MinutesOf(earliest)
	}

	var slots []Slot
	for start := rule.Start; start+duration <= rule.End; start += duration {
		window := civil.Span{Start: start, End: start + duration}

		if blocked(window, rule.Breaks) {
			continue
		}
		if window.Start < cutoff {
			continue
		}

		slots = append(slots, Slot{
			ProviderID:      providerID,
			Date:            date,
			Start:           window.Start,
			End:             window.End,
			Modality:        modality,
			DurationMinutes: int(duration),
		})
	}
	return slots, nil
}

func blocked(window civil.Span, breaks []availability.Break) bool {
	for _, b := range breaks {
		if window.Overlaps(b.Span()) {
			return true
		}
	}
	return false
}
