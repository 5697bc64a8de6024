package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/telecare/scheduling-engine/internal/availability"
	"github.com/telecare/scheduling-engine/internal/civil"
	"github.com/telecare/scheduling-engine/internal/fees"
	"github.com/telecare/scheduling-engine/internal/ledger"
)

var (
	// ErrReservationExpired means payment arrived after the hold lapsed.
	// Recoverable: the client re-books.
	ErrReservationExpired = errors.New("reservation expired before payment")

	// ErrPastAppointment rejects transitions on an appointment whose
	// scheduled time has already passed.
	ErrPastAppointment = errors.New("appointment start time has passed")

	// ErrNotFinished rejects completing an appointment before its
	// scheduled end.
	ErrNotFinished = errors.New("appointment has not ended yet")
)

// Locker serializes booking attempts per provider and date. The ledger's
// atomic insert is the real guarantee; the lock only keeps hot provider days
// from hammering it. A nil Locker is valid and means no advisory locking.
type Locker interface {
	WithBookingLock(ctx context.Context, providerID uuid.UUID, date civil.Date, fn func(ctx context.Context) error) error
}

// Params carries the tunables the state machine owns.
type Params struct {
	// HoldSeconds is how long an unpaid reservation blocks its slot.
	HoldSeconds int
	// ConvenienceRatePercent is the in-person convenience fee rate.
	ConvenienceRatePercent int
}

// Service owns the appointment lifecycle: it reserves through the Guard,
// prices through the fee calculator, and drives every status transition.
type Service struct {
	repo    Repository
	entries ledger.Repository
	guard   *Guard
	locker  Locker
	params  Params
	log     zerolog.Logger
	now     func() time.Time
}

func NewService(repo Repository, entries ledger.Repository, guard *Guard, locker Locker, params Params, log zerolog.Logger) *Service {
	return &Service{
		repo:    repo,
		entries: entries,
		guard:   guard,
		locker:  locker,
		params:  params,
		log:     log.With().Str("component", "booking").Logger(),
		now:     time.Now,
	}
}

// WithClock overrides the clock, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// CreateRequest is a validated booking attempt.
type CreateRequest struct {
	PatientID  uuid.UUID
	ProviderID uuid.UUID
	Date       civil.Date
	Start      civil.Minutes
	End        civil.Minutes
	Modality   availability.Modality
}

// Create reserves the requested window and persists the appointment in
// reserved state with payment pending. A quote that charges nothing is
// waived and confirmed on the spot. ErrSlotUnavailable when the window is
// gone; the caller surfaces that so the client can pick another slot.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Appointment, error) {
	if _, err := s.repo.GetPatientByID(ctx, req.PatientID); err != nil {
		return nil, err
	}
	provider, err := s.repo.GetProviderByID(ctx, req.ProviderID)
	if err != nil {
		return nil, err
	}

	var created *Appointment
	err = s.withLock(ctx, req.ProviderID, req.Date, func(ctx context.Context) error {
		appointmentID := uuid.New()
		span := civil.Span{Start: req.Start, End: req.End}

		entry, err := s.guard.TryReserve(ctx, req.ProviderID, req.Date, span, req.Modality, appointmentID, s.params.HoldSeconds)
		if err != nil {
			return err
		}

		quote := fees.Compute(req.Modality, provider.BaseFee, s.params.ConvenienceRatePercent)

		now := s.now()
		appt := &Appointment{
			ID:                      appointmentID,
			PatientID:               req.PatientID,
			ProviderID:              req.ProviderID,
			Modality:                req.Modality,
			Date:                    req.Date,
			Start:                   req.Start,
			End:                     req.End,
			LedgerEntryID:           entry.ID,
			ConsultationFee:         quote.ConsultationFee,
			OriginalConsultationFee: quote.OriginalConsultationFee,
			ConvenienceFee:          quote.ConvenienceFee,
			TotalAmount:             quote.Total,
			PaymentStatus:           PaymentPending,
			Status:                  StatusReserved,
			CreatedAt:               now,
			UpdatedAt:               now,
			ExpiresAt:               entry.ExpiresAt,
		}

		if err := s.repo.CreateAppointment(ctx, appt); err != nil {
			// Compensate: the slot must not stay blocked by an
			// appointment that was never persisted.
			if relErr := s.entries.Release(ctx, entry.ID); relErr != nil {
				s.log.Error().Err(relErr).
					Stringer("entry_id", entry.ID).
					Msg("release after failed create")
			}
			return fmt.Errorf("create appointment: %w", err)
		}

		// Nothing to pay: settle immediately.
		if quote.Total == 0 {
			if err := s.entries.Confirm(ctx, entry.ID); err != nil {
				s.log.Error().Err(err).
					Stringer("entry_id", entry.ID).
					Msg("confirm zero-total entry")
			} else {
				waived := PaymentWaived
				updated, err := s.repo.UpdateStatus(ctx, appt.ID, StatusReserved, StatusConfirmed, &waived)
				if err == nil {
					appt = updated
				}
			}
		}

		created = appt
		s.log.Info().
			Stringer("appointment_id", appt.ID).
			Stringer("provider_id", req.ProviderID).
			Str("date", req.Date.String()).
			Str("window", span.Start.String()+"-"+span.End.String()).
			Str("modality", string(req.Modality)).
			Int64("total", appt.TotalAmount).
			Msg("appointment reserved")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// ConfirmPayment moves a reserved appointment to confirmed once the payment
// collaborator reports success. Idempotent: confirming an already-confirmed
// appointment succeeds without touching the ledger again.
func (s *Service) ConfirmPayment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}

	switch appt.Status {
	case StatusConfirmed:
		return appt, nil
	case StatusExpired:
		return nil, ErrReservationExpired
	case StatusReserved:
		// fall through
	default:
		return nil, ErrInvalidTransition
	}

	if appt.ExpiresAt != nil && !appt.ExpiresAt.After(s.now()) {
		// The hold lapsed before payment: expire now rather than wait
		// for the sweep.
		s.expire(ctx, appt)
		return nil, ErrReservationExpired
	}

	if err := s.entries.Confirm(ctx, appt.LedgerEntryID); err != nil && !errors.Is(err, ledger.ErrEntryNotFound) {
		return nil, fmt.Errorf("confirm ledger entry: %w", err)
	}

	paid := PaymentPaid
	updated, err := s.repo.UpdateStatus(ctx, appt.ID, StatusReserved, StatusConfirmed, &paid)
	if err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			// Lost a race with another confirm; report the winner.
			if current, getErr := s.repo.GetAppointmentByID(ctx, appt.ID); getErr == nil && current.Status == StatusConfirmed {
				return current, nil
			}
		}
		return nil, err
	}

	s.log.Info().Stringer("appointment_id", id).Msg("appointment confirmed")
	return updated, nil
}

// Cancel releases the slot and marks the appointment cancelled. Valid from
// reserved or confirmed. Once the scheduled start has passed only the
// provider may cancel.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, actor Actor) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if appt.Status != StatusReserved && appt.Status != StatusConfirmed {
		return nil, ErrInvalidTransition
	}
	if appt.StartsBy(s.now()) && actor != ActorProvider {
		return nil, ErrPastAppointment
	}

	updated, err := s.repo.UpdateStatus(ctx, appt.ID, appt.Status, StatusCancelled, nil)
	if err != nil {
		return nil, err
	}

	if err := s.entries.Release(ctx, appt.LedgerEntryID); err != nil && !errors.Is(err, ledger.ErrEntryNotFound) {
		return nil, fmt.Errorf("release ledger entry: %w", err)
	}

	s.log.Info().
		Stringer("appointment_id", id).
		Str("actor", string(actor)).
		Msg("appointment cancelled")
	return updated, nil
}

// Complete is the terminal happy-path transition, valid only from confirmed
// and only after the scheduled end has passed.
func (s *Service) Complete(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.Status != StatusConfirmed {
		return nil, ErrInvalidTransition
	}
	if !appt.EndsBy(s.now()) {
		return nil, ErrNotFinished
	}
	return s.repo.UpdateStatus(ctx, appt.ID, StatusConfirmed, StatusCompleted, nil)
}

// ExpireUnpaid is the periodic sweep: every reserved appointment whose hold
// has lapsed is expired and its slot released. Individual failures are
// logged and retried on the next cycle; the read path's lazy reclamation
// keeps the slot visible as free in the meantime.
func (s *Service) ExpireUnpaid(ctx context.Context) (int, error) {
	now := s.now()

	candidates, err := s.repo.FindExpiredReserved(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("find expired reservations: %w", err)
	}

	expired := 0
	for i := range candidates {
		if s.expire(ctx, &candidates[i]) {
			expired++
		}
	}

	if _, err := s.entries.ReleaseExpired(ctx, now); err != nil {
		return expired, fmt.Errorf("release expired entries: %w", err)
	}
	return expired, nil
}

// expire performs the reserved -> expired transition plus ledger release for
// one appointment. Best effort: failures are logged, never fatal.
func (s *Service) expire(ctx context.Context, appt *Appointment) bool {
	if _, err := s.repo.UpdateStatus(ctx, appt.ID, StatusReserved, StatusExpired, nil); err != nil {
		if !errors.Is(err, ErrInvalidTransition) {
			s.log.Error().Err(err).Stringer("appointment_id", appt.ID).Msg("expire appointment")
		}
		return false
	}
	if err := s.entries.Release(ctx, appt.LedgerEntryID); err != nil && !errors.Is(err, ledger.ErrEntryNotFound) {
		s.log.Error().Err(err).Stringer("appointment_id", appt.ID).Msg("release expired entry")
	}
	s.log.Info().Stringer("appointment_id", appt.ID).Msg("appointment expired")
	return true
}

// Get retrieves one appointment.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.repo.GetAppointmentByID(ctx, id)
}

// ListByPatient retrieves a patient's appointments, newest first.
func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListAppointmentsByPatient(ctx, patientID, limit, offset)
}

func (s *Service) withLock(ctx context.Context, providerID uuid.UUID, date civil.Date, fn func(ctx context.Context) error) error {
	if s.locker == nil {
		return fn(ctx)
	}
	return s.locker.WithBookingLock(ctx, providerID, date, fn)
}
