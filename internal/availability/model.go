package availability

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/telecare/scheduling-engine/internal/civil"
)

// Modality is the delivery mode of a consultation. It changes both the fee
// structure and, optionally, the slot duration.
type Modality string

const (
	ModalityOnline   Modality = "online"
	ModalityInPerson Modality = "in-person"
)

// ParseModality validates a modality string from the wire.
func ParseModality(s string) (Modality, error) {
	switch Modality(s) {
	case ModalityOnline, ModalityInPerson:
		return Modality(s), nil
	}
	return "", fmt.Errorf("unknown modality %q", s)
}

// Break is a named pause inside a working day, e.g. lunch.
type Break struct {
	Start civil.Minutes `json:"start"`
	End   civil.Minutes `json:"end"`
	Label string        `json:"label,omitempty"`
}

func (b Break) Span() civil.Span {
	return civil.Span{Start: b.Start, End: b.End}
}

// DayRule is one weekday's entry in the recurring weekly schedule.
type DayRule struct {
	Working bool          `json:"working"`
	Start   civil.Minutes `json:"start"`
	End     civil.Minutes `json:"end"`
	Breaks  []Break       `json:"breaks,omitempty"`
}

func (r DayRule) Window() civil.Span {
	return civil.Span{Start: r.Start, End: r.End}
}

// Template is a provider's recurring weekly availability. Days is indexed by
// time.Weekday (Sunday = 0). Writes replace the whole template; the
// scheduling engine only ever reads it.
type Template struct {
	ProviderID          uuid.UUID             `json:"provider_id"`
	Days                [7]DayRule            `json:"days"`
	SlotDurationMinutes int                   `json:"slot_duration_minutes"`
	ModalityDurations   map[Modality]int      `json:"modality_durations,omitempty"`
	UpdatedAt           time.Time             `json:"updated_at"`
}

const (
	minSlotDuration = 5
	maxSlotDuration = 480
)

// ErrInvalidTemplate is wrapped around every validation failure so callers
// can match the whole class with errors.Is.
var ErrInvalidTemplate = errors.New("invalid availability template")

// DurationFor resolves the slot duration for a modality, falling back to the
// template default when no override is set.
func (t *Template) DurationFor(m Modality) int {
	if d, ok := t.ModalityDurations[m]; ok {
		return d
	}
	return t.SlotDurationMinutes
}

// Rule returns the weekday rule governing the given civil date.
func (t *Template) Rule(d civil.Date) DayRule {
	return t.Days[int(d.Weekday())]
}

// Validate enforces the template invariants: working days have a proper
// window, breaks sit strictly inside it and do not overlap each other, and
// every duration is within sane bounds.
func (t *Template) Validate() error {
	if t.ProviderID == uuid.Nil {
		return fmt.Errorf("%w: provider id is required", ErrInvalidTemplate)
	}
	if t.SlotDurationMinutes < minSlotDuration || t.SlotDurationMinutes > maxSlotDuration {
		return fmt.Errorf("%w: slot duration %d outside [%d, %d] minutes",
			ErrInvalidTemplate, t.SlotDurationMinutes, minSlotDuration, maxSlotDuration)
	}
	for m, d := range t.ModalityDurations {
		if m != ModalityOnline && m != ModalityInPerson {
			return fmt.Errorf("%w: duration override for unknown modality %q", ErrInvalidTemplate, m)
		}
		if d < minSlotDuration || d > maxSlotDuration {
			return fmt.Errorf("%w: %s duration %d outside [%d, %d] minutes",
				ErrInvalidTemplate, m, d, minSlotDuration, maxSlotDuration)
		}
	}

	for wd, rule := range t.Days {
		if !rule.Working {
			continue
		}
		day := time.Weekday(wd)
		if rule.Start >= rule.End {
			return fmt.Errorf("%w: %s start %s is not before end %s",
				ErrInvalidTemplate, day, rule.Start, rule.End)
		}
		if err := validateBreaks(day, rule); err != nil {
			return err
		}
	}
	return nil
}

func validateBreaks(day time.Weekday, rule DayRule) error {
	breaks := make([]Break, len(rule.Breaks))
	copy(breaks, rule.Breaks)
	sort.Slice(breaks, func(i, j int) bool { return breaks[i].Start < breaks[j].Start })

	for i, b := range breaks {
		if b.Start >= b.End {
			return fmt.Errorf("%w: %s break %s-%s is empty or inverted",
				ErrInvalidTemplate, day, b.Start, b.End)
		}
		if !rule.Window().Contains(b.Span()) {
			return fmt.Errorf("%w: %s break %s-%s falls outside working window %s-%s",
				ErrInvalidTemplate, day, b.Start, b.End, rule.Start, rule.End)
		}
		if i > 0 && breaks[i-1].End > b.Start {
			return fmt.Errorf("%w: %s breaks %s-%s and %s-%s overlap",
				ErrInvalidTemplate, day, breaks[i-1].Start, breaks[i-1].End, b.Start, b.End)
		}
	}
	return nil
}
