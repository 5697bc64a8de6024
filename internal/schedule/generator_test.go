package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telecare/scheduling-engine/internal/availability"
	"github.com/telecare/scheduling-engine/internal/civil"
)

func mins(t *testing.T, s string) civil.Minutes {
	t.Helper()
	m, err := civil.ParseClock(s)
	require.NoError(t, err)
	return m
}

func date(t *testing.T, s string) civil.Date {
	t.Helper()
	d, err := civil.ParseDate(s)
	require.NoError(t, err)
	return d
}

// weekdayTemplate works Monday through Friday 09:00-17:00 with a lunch break,
// 30-minute slots.
func weekdayTemplate(t *testing.T) *availability.Template {
	t.Helper()
	tpl := &availability.Template{
		ProviderID:          uuid.New(),
		SlotDurationMinutes: 30,
	}
	for wd := 1; wd <= 5; wd++ {
		tpl.Days[wd] = availability.DayRule{
			Working: true,
			Start:   mins(t, "09:00"),
			End:     mins(t, "17:00"),
			Breaks: []availability.Break{
				{Start: mins(t, "12:00"), End: mins(t, "13:00"), Label: "lunch"},
			},
		}
	}
	return tpl
}

func newTestGenerator(t *testing.T, tpl *availability.Template, now time.Time) *Generator {
	t.Helper()
	store := availability.NewMemoryStore()
	require.NoError(t, store.Set(context.Background(), tpl))
	return NewGenerator(store, 0).WithClock(func() time.Time { return now })
}

// farFromNow keeps the lead-time filter out of tests that are not about it.
var farFromNow = time.Date(2025, time.January, 1, 8, 0, 0, 0, time.UTC)

func TestSlotsPartitionWorkingWindow(t *testing.T) {
	tpl := weekdayTemplate(t)
	g := newTestGenerator(t, tpl, farFromNow)

	// 2025-08-22 is a Friday.
	slots, err := g.Slots(context.Background(), tpl.ProviderID, date(t, "2025-08-22"), availability.ModalityOnline)
	require.NoError(t, err)

	// 16 half-hour windows in 09:00-17:00 minus the two lunch windows.
	require.Len(t, slots, 14)
	assert.Equal(t, "09:00", slots[0].Start.String())
	assert.Equal(t, "09:30", slots[0].End.String())
	last := slots[len(slots)-1]
	assert.Equal(t, "16:30", last.Start.String())
	assert.Equal(t, "17:00", last.End.String())

	for i, s := range slots {
		assert.Equal(t, 30, s.DurationMinutes)
		assert.Equal(t, s.Start+30, s.End)
		if i > 0 {
			assert.True(t, slots[i-1].End <= s.Start, "slots must be ordered and disjoint")
		}
	}
}

func TestSlotsExcludeBreaks(t *testing.T) {
	tpl := weekdayTemplate(t)
	g := newTestGenerator(t, tpl, farFromNow)

	slots, err := g.Slots(context.Background(), tpl.ProviderID, date(t, "2025-08-22"), availability.ModalityOnline)
	require.NoError(t, err)

	lunch := civil.Span{Start: mins(t, "12:00"), End: mins(t, "13:00")}
	for _, s := range slots {
		assert.False(t, s.Span().Overlaps(lunch), "slot %s-%s overlaps lunch", s.Start, s.End)
	}
}

func TestSlotsEmptyOnNonWorkingDay(t *testing.T) {
	tpl := weekdayTemplate(t)
	g := newTestGenerator(t, tpl, farFromNow)

	// 2025-08-24 is a Sunday.
	slots, err := g.Slots(context.Background(), tpl.ProviderID, date(t, "2025-08-24"), availability.ModalityOnline)
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestSlotsDayBoundary(t *testing.T) {
	tpl := weekdayTemplate(t)
	tpl.Days = [7]availability.DayRule{}
	// Work Fridays only, so the slot set is non-empty exactly on 2025-08-22.
	tpl.Days[time.Friday] = availability.DayRule{
		Working: true,
		Start:   mins(t, "09:00"),
		End:     mins(t, "11:00"),
	}
	g := newTestGenerator(t, tpl, farFromNow)

	ctx := context.Background()
	friday, err := g.Slots(ctx, tpl.ProviderID, date(t, "2025-08-22"), availability.ModalityOnline)
	require.NoError(t, err)
	assert.NotEmpty(t, friday)

	thursday, err := g.Slots(ctx, tpl.ProviderID, date(t, "2025-08-21"), availability.ModalityOnline)
	require.NoError(t, err)
	assert.Empty(t, thursday)

	saturday, err := g.Slots(ctx, tpl.ProviderID, date(t, "2025-08-23"), availability.ModalityOnline)
	require.NoError(t, err)
	assert.Empty(t, saturday)
}

func TestSlotsModalityOverride(t *testing.T) {
	tpl := weekdayTemplate(t)
	tpl.ModalityDurations = map[availability.Modality]int{availability.ModalityInPerson: 60}
	g := newTestGenerator(t, tpl, farFromNow)

	ctx := context.Background()
	d := date(t, "2025-08-22")

	online, err := g.Slots(ctx, tpl.ProviderID, d, availability.ModalityOnline)
	require.NoError(t, err)
	require.Len(t, online, 14)

	inPerson, err := g.Slots(ctx, tpl.ProviderID, d, availability.ModalityInPerson)
	require.NoError(t, err)
	// 8 hour-wide windows minus the lunch hour.
	require.Len(t, inPerson, 7)
	for _, s := range inPerson {
		assert.Equal(t, 60, s.DurationMinutes)
	}
}

func TestSlotsLeadTimeOnCurrentDay(t *testing.T) {
	tpl := weekdayTemplate(t)
	// Friday 2025-08-22 at 10:05 with a 30 minute lead time: nothing
	// before 10:35 may be offered.
	now := time.Date(2025, time.August, 22, 10, 5, 0, 0, time.UTC)
	store := availability.NewMemoryStore()
	require.NoError(t, store.Set(context.Background(), tpl))
	g := NewGenerator(store, 30*time.Minute).WithClock(func() time.Time { return now })

	slots, err := g.Slots(context.Background(), tpl.ProviderID, date(t, "2025-08-22"), availability.ModalityOnline)
	require.NoError(t, err)
	require.NotEmpty(t, slots)
	assert.Equal(t, "11:00", slots[0].Start.String())

	// The same template on a future day is unaffected by the clock.
	future, err := g.Slots(context.Background(), tpl.ProviderID, date(t, "2025-08-29"), availability.ModalityOnline)
	require.NoError(t, err)
	assert.Equal(t, "09:00", future[0].Start.String())
}

func TestSlotsLeadTimePastMidnight(t *testing.T) {
	tpl := weekdayTemplate(t)
	now := time.Date(2025, time.August, 22, 23, 30, 0, 0, time.UTC)
	store := availability.NewMemoryStore()
	require.NoError(t, store.Set(context.Background(), tpl))
	g := NewGenerator(store, 2*time.Hour).WithClock(func() time.Time { return now })

	slots, err := g.Slots(context.Background(), tpl.ProviderID, date(t, "2025-08-22"), availability.ModalityOnline)
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestSlotsDeterministic(t *testing.T) {
	tpl := weekdayTemplate(t)
	g := newTestGenerator(t, tpl, farFromNow)

	ctx := context.Background()
	d := date(t, "2025-08-22")

	first, err := g.Slots(ctx, tpl.ProviderID, d, availability.ModalityOnline)
	require.NoError(t, err)
	second, err := g.Slots(ctx, tpl.ProviderID, d, availability.ModalityOnline)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSlotsUnknownProvider(t *testing.T) {
	g := NewGenerator(availability.NewMemoryStore(), 0)
	_, err := g.Slots(context.Background(), uuid.New(), date(t, "2025-08-22"), availability.ModalityOnline)
	assert.ErrorIs(t, err, availability.ErrTemplateNotFound)
}
