package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/telecare/scheduling-engine/internal/booking"
	"github.com/telecare/scheduling-engine/internal/schedule"
)

type CreateAppointmentRequest struct {
	PatientID  string `json:"patient_id"`
	ProviderID string `json:"provider_id"`
	Date       string `json:"date"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
	Modality   string `json:"modality"`
}

type CancelAppointmentRequest struct {
	Actor string `json:"actor"`
}

type AppointmentResponse struct {
	ID                      uuid.UUID  `json:"appointment_id"`
	PatientID               uuid.UUID  `json:"patient_id"`
	ProviderID              uuid.UUID  `json:"provider_id"`
	Date                    string     `json:"date"`
	StartTime               string     `json:"start_time"`
	EndTime                 string     `json:"end_time"`
	Modality                string     `json:"modality"`
	ConsultationFee         int64      `json:"consultation_fee"`
	OriginalConsultationFee int64      `json:"original_consultation_fee"`
	ConvenienceFee          int64      `json:"convenience_fee"`
	TotalAmount             int64      `json:"total_amount"`
	PaymentStatus           string     `json:"payment_status"`
	Status                  string     `json:"status"`
	ExpiresAt               *time.Time `json:"expires_at,omitempty"`
}

func toAppointmentResponse(a *booking.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:                      a.ID,
		PatientID:               a.PatientID,
		ProviderID:              a.ProviderID,
		Date:                    a.Date.String(),
		StartTime:               a.Start.String(),
		EndTime:                 a.End.String(),
		Modality:                string(a.Modality),
		ConsultationFee:         a.ConsultationFee,
		OriginalConsultationFee: a.OriginalConsultationFee,
		ConvenienceFee:          a.ConvenienceFee,
		TotalAmount:             a.TotalAmount,
		PaymentStatus:           string(a.PaymentStatus),
		Status:                  string(a.Status),
		ExpiresAt:               a.ExpiresAt,
	}
}

type SlotResponse struct {
	Start           string `json:"start"`
	End             string `json:"end"`
	DurationMinutes int    `json:"duration_minutes"`
}

type SlotsResponse struct {
	ProviderID uuid.UUID      `json:"provider_id"`
	Date       string         `json:"date"`
	Modality   string         `json:"modality"`
	Slots      []SlotResponse `json:"slots"`
}

func toSlotsResponse(providerID uuid.UUID, date, modality string, slots []schedule.Slot) SlotsResponse {
	resp := SlotsResponse{
		ProviderID: providerID,
		Date:       date,
		Modality:   modality,
		Slots:      make([]SlotResponse, 0, len(slots)),
	}
	for _, s := range slots {
		resp.Slots = append(resp.Slots, SlotResponse{
			Start:           s.Start.String(),
			End:             s.End.String(),
			DurationMinutes: s.DurationMinutes,
		})
	}
	return resp
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
