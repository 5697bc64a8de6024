package booking

import (
	"time"

	"github.com/google/uuid"

	"github.com/telecare/scheduling-engine/internal/availability"
	"github.com/telecare/scheduling-engine/internal/civil"
)

type Status string

const (
	StatusReserved  Status = "reserved"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
	StatusExpired   Status = "expired"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentWaived  PaymentStatus = "waived"
)

// Actor identifies who initiates a transition, which matters for
// cancellation rules.
type Actor string

const (
	ActorPatient  Actor = "patient"
	ActorProvider Actor = "provider"
)

type Patient struct {
	ID        uuid.UUID
	Name      string
	Email     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Provider struct {
	ID        uuid.UUID
	Name      string
	Specialty *string
	// BaseFee is the provider's consultation fee in integer currency units.
	BaseFee   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Appointment owns exactly one ledger entry for its active lifetime.
// Lifecycle: reserved -> confirmed -> completed, with reserved -> expired and
// reserved|confirmed -> cancelled as the off-ramps.
type Appointment struct {
	ID            uuid.UUID
	PatientID     uuid.UUID
	ProviderID    uuid.UUID
	Modality      availability.Modality
	Date          civil.Date
	Start         civil.Minutes
	End           civil.Minutes
	LedgerEntryID uuid.UUID

	ConsultationFee         int64
	OriginalConsultationFee int64
	ConvenienceFee          int64
	TotalAmount             int64

	PaymentStatus PaymentStatus
	Status        Status
	CreatedAt     time.Time
	UpdatedAt     time.Time
	ExpiresAt     *time.Time
}

// StartsBy reports whether the appointment's scheduled start has passed at
// the given instant, compared in civil terms.
func (a *Appointment) StartsBy(now time.Time) bool {
	nd := civil.DateOf(now)
	if a.Date.Before(nd) {
		return true
	}
	if nd.Before(a.Date) {
		return false
	}
	return a.Start <= civil.MinutesOf(now)
}

// EndsBy reports whether the appointment's scheduled end has passed.
func (a *Appointment) EndsBy(now time.Time) bool {
	nd := civil.DateOf(now)
	if a.Date.Before(nd) {
		return true
	}
	if nd.Before(a.Date) {
		return false
	}
	return a.End <= civil.MinutesOf(now)
}
