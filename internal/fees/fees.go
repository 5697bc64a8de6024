// Package fees prices a consultation. Amounts are integer currency units;
// all arithmetic is exact.
package fees

import (
	"github.com/telecare/scheduling-engine/internal/availability"
)

// Quote is the full price breakdown for one booking.
//
// Online consultations charge the base fee and nothing else. In-person
// consultations waive the consultation fee (the amount is settled at the
// clinic) and charge only a convenience fee, a percentage of the base fee;
// the base fee is retained as OriginalConsultationFee for receipts.
type Quote struct {
	ConsultationFee         int64 `json:"consultation_fee"`
	OriginalConsultationFee int64 `json:"original_consultation_fee"`
	ConvenienceFee          int64 `json:"convenience_fee"`
	Total                   int64 `json:"total_amount"`
}

// Compute prices a booking. Pure: no clock, no I/O.
func Compute(modality availability.Modality, baseFee int64, convenienceRatePercent int) Quote {
	switch modality {
	case availability.ModalityInPerson:
		conv := roundHalfUp(baseFee*int64(convenienceRatePercent), 100)
		return Quote{
			ConsultationFee:         0,
			OriginalConsultationFee: baseFee,
			ConvenienceFee:          conv,
			Total:                   conv,
		}
	default:
		return Quote{
			ConsultationFee:         baseFee,
			OriginalConsultationFee: baseFee,
			ConvenienceFee:          0,
			Total:                   baseFee,
		}
	}
}

// roundHalfUp divides num by den rounding to the nearest integer, ties away
// from zero. num and den are non-negative in practice.
func roundHalfUp(num, den int64) int64 {
	return (num + den/2) / den
}
