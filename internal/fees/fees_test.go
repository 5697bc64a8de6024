package fees

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/telecare/scheduling-engine/internal/availability"
)

func TestComputeOnline(t *testing.T) {
	q := Compute(availability.ModalityOnline, 500, 5)
	assert.Equal(t, Quote{
		ConsultationFee:         500,
		OriginalConsultationFee: 500,
		ConvenienceFee:          0,
		Total:                   500,
	}, q)
}

func TestComputeInPerson(t *testing.T) {
	q := Compute(availability.ModalityInPerson, 800, 5)
	assert.Equal(t, Quote{
		ConsultationFee:         0,
		OriginalConsultationFee: 800,
		ConvenienceFee:          40,
		Total:                   40,
	}, q)
}

func TestComputeRoundsHalfUp(t *testing.T) {
	// 750 * 5% = 37.5 -> 38
	assert.EqualValues(t, 38, Compute(availability.ModalityInPerson, 750, 5).ConvenienceFee)
	// 749 * 5% = 37.45 -> 37
	assert.EqualValues(t, 37, Compute(availability.ModalityInPerson, 749, 5).ConvenienceFee)
	// 751 * 5% = 37.55 -> 38
	assert.EqualValues(t, 38, Compute(availability.ModalityInPerson, 751, 5).ConvenienceFee)
}

func TestComputeZeroRate(t *testing.T) {
	q := Compute(availability.ModalityInPerson, 800, 0)
	assert.EqualValues(t, 0, q.ConvenienceFee)
	assert.EqualValues(t, 0, q.Total)
	assert.EqualValues(t, 800, q.OriginalConsultationFee)
}

func TestComputeZeroBase(t *testing.T) {
	q := Compute(availability.ModalityOnline, 0, 5)
	assert.EqualValues(t, 0, q.Total)
}
