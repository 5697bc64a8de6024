package availability

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telecare/scheduling-engine/internal/civil"
)

func mins(t *testing.T, s string) civil.Minutes {
	t.Helper()
	m, err := civil.ParseClock(s)
	require.NoError(t, err)
	return m
}

func validTemplate(t *testing.T) *Template {
	t.Helper()
	tpl := &Template{
		ProviderID:          uuid.New(),
		SlotDurationMinutes: 30,
	}
	for wd := 1; wd <= 5; wd++ { // Monday..Friday
		tpl.Days[wd] = DayRule{
			Working: true,
			Start:   mins(t, "09:00"),
			End:     mins(t, "17:00"),
			Breaks: []Break{
				{Start: mins(t, "12:00"), End: mins(t, "13:00"), Label: "lunch"},
			},
		}
	}
	return tpl
}

func TestTemplateValidateOK(t *testing.T) {
	require.NoError(t, validTemplate(t).Validate())
}

func TestTemplateValidateRejects(t *testing.T) {
	cases := map[string]func(*Template){
		"missing provider": func(tpl *Template) { tpl.ProviderID = uuid.Nil },
		"zero duration":    func(tpl *Template) { tpl.SlotDurationMinutes = 0 },
		"huge duration":    func(tpl *Template) { tpl.SlotDurationMinutes = 600 },
		"inverted window": func(tpl *Template) {
			tpl.Days[1].Start = mins(t, "17:00")
			tpl.Days[1].End = mins(t, "09:00")
		},
		"empty window": func(tpl *Template) {
			tpl.Days[1].Start = mins(t, "09:00")
			tpl.Days[1].End = mins(t, "09:00")
		},
		"break before opening": func(tpl *Template) {
			tpl.Days[1].Breaks = []Break{{Start: mins(t, "08:00"), End: mins(t, "09:30")}}
		},
		"break past closing": func(tpl *Template) {
			tpl.Days[1].Breaks = []Break{{Start: mins(t, "16:30"), End: mins(t, "17:30")}}
		},
		"inverted break": func(tpl *Template) {
			tpl.Days[1].Breaks = []Break{{Start: mins(t, "13:00"), End: mins(t, "12:00")}}
		},
		"overlapping breaks": func(tpl *Template) {
			tpl.Days[1].Breaks = []Break{
				{Start: mins(t, "12:00"), End: mins(t, "13:00")},
				{Start: mins(t, "12:30"), End: mins(t, "14:00")},
			}
		},
		"override for unknown modality": func(tpl *Template) {
			tpl.ModalityDurations = map[Modality]int{"house-call": 60}
		},
		"override out of range": func(tpl *Template) {
			tpl.ModalityDurations = map[Modality]int{ModalityOnline: 2}
		},
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			tpl := validTemplate(t)
			mutate(tpl)
			err := tpl.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidTemplate)
		})
	}
}

func TestTemplateValidateIgnoresNonWorkingDays(t *testing.T) {
	tpl := validTemplate(t)
	// Sunday is off; a garbage window on an off day must not matter.
	tpl.Days[0] = DayRule{Working: false, Start: mins(t, "23:00"), End: mins(t, "01:00")}
	require.NoError(t, tpl.Validate())
}

func TestDurationFor(t *testing.T) {
	tpl := validTemplate(t)
	assert.Equal(t, 30, tpl.DurationFor(ModalityOnline))

	tpl.ModalityDurations = map[Modality]int{ModalityInPerson: 45}
	assert.Equal(t, 30, tpl.DurationFor(ModalityOnline))
	assert.Equal(t, 45, tpl.DurationFor(ModalityInPerson))
}

func TestParseModality(t *testing.T) {
	m, err := ParseModality("online")
	require.NoError(t, err)
	assert.Equal(t, ModalityOnline, m)

	m, err = ParseModality("in-person")
	require.NoError(t, err)
	assert.Equal(t, ModalityInPerson, m)

	_, err = ParseModality("both")
	assert.Error(t, err)
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrTemplateNotFound)

	tpl := validTemplate(t)
	require.NoError(t, store.Set(ctx, tpl))

	got, err := store.Get(ctx, tpl.ProviderID)
	require.NoError(t, err)
	assert.Equal(t, tpl.Days, got.Days)
	assert.False(t, got.UpdatedAt.IsZero())

	bad := validTemplate(t)
	bad.SlotDurationMinutes = 0
	assert.ErrorIs(t, store.Set(ctx, bad), ErrInvalidTemplate)
}
