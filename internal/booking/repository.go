package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrPatientNotFound     = errors.New("patient not found")
	ErrProviderNotFound    = errors.New("provider not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrInvalidTransition   = errors.New("invalid status transition")
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetProviderByID(ctx context.Context, id uuid.UUID) (*Provider, error)

	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error)

	CreateAppointment(ctx context.Context, a *Appointment) error

	// UpdateStatus performs a conditional transition: the row moves from
	// `from` to `to` in a single statement, together with the payment
	// status when one is given. ErrInvalidTransition when the appointment
	// was not in `from`.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status, payment *PaymentStatus) (*Appointment, error)

	// FindExpiredReserved returns reserved appointments whose hold lapsed
	// before now, for the expiry sweep.
	FindExpiredReserved(ctx context.Context, now time.Time) ([]Appointment, error)
}
