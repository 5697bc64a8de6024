package booking

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telecare/scheduling-engine/internal/availability"
	"github.com/telecare/scheduling-engine/internal/civil"
	"github.com/telecare/scheduling-engine/internal/ledger"
	"github.com/telecare/scheduling-engine/internal/schedule"
)

// fixture wires the whole engine against in-memory backends with a shared,
// manually advanced clock.
type fixture struct {
	t        *testing.T
	repo     *MemoryRepository
	entries  *ledger.MemoryRepository
	svc      *Service
	patient  Patient
	provider Provider
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		t: t,
		// Friday 2025-08-22, 08:00.
		now: time.Date(2025, time.August, 22, 8, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return f.now }

	store := availability.NewMemoryStore()
	f.provider = Provider{ID: uuid.New(), Name: "Dr. Mehta", BaseFee: 800}
	f.patient = Patient{ID: uuid.New(), Name: "Asha"}

	tpl := &availability.Template{
		ProviderID:          f.provider.ID,
		SlotDurationMinutes: 30,
	}
	for wd := 1; wd <= 5; wd++ {
		tpl.Days[wd] = availability.DayRule{
			Working: true,
			Start:   540, // 09:00
			End:     1020, // 17:00
			Breaks: []availability.Break{
				{Start: 720, End: 780, Label: "lunch"},
			},
		}
	}
	require.NoError(t, store.Set(context.Background(), tpl))

	f.repo = NewMemoryRepository()
	f.repo.AddPatient(f.patient)
	f.repo.AddProvider(f.provider)

	f.entries = ledger.NewMemoryRepository().WithClock(clock)
	generator := schedule.NewGenerator(store, 0).WithClock(clock)
	guard := NewGuard(generator, f.entries).WithClock(clock)

	params := Params{HoldSeconds: 900, ConvenienceRatePercent: 5}
	f.svc = NewService(f.repo, f.entries, guard, nil, params, zerolog.Nop()).WithClock(clock)
	return f
}

func (f *fixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func (f *fixture) create(start, end civil.Minutes, modality availability.Modality) (*Appointment, error) {
	return f.svc.Create(context.Background(), CreateRequest{
		PatientID:  f.patient.ID,
		ProviderID: f.provider.ID,
		Date:       civil.Date{Year: 2025, Month: time.August, Day: 22},
		Start:      start,
		End:        end,
		Modality:   modality,
	})
}

func TestCreateOnlineAppointment(t *testing.T) {
	f := newFixture(t)

	appt, err := f.create(540, 570, availability.ModalityOnline)
	require.NoError(t, err)

	assert.Equal(t, StatusReserved, appt.Status)
	assert.Equal(t, PaymentPending, appt.PaymentStatus)
	assert.EqualValues(t, 800, appt.ConsultationFee)
	assert.EqualValues(t, 0, appt.ConvenienceFee)
	assert.EqualValues(t, 800, appt.TotalAmount)
	require.NotNil(t, appt.ExpiresAt)
	assert.Equal(t, f.now.Add(15*time.Minute), *appt.ExpiresAt)

	entry, err := f.entries.GetByAppointment(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusReserved, entry.Status)
	assert.Equal(t, entry.ID, appt.LedgerEntryID)
}

func TestCreateInPersonFees(t *testing.T) {
	f := newFixture(t)

	appt, err := f.create(540, 570, availability.ModalityInPerson)
	require.NoError(t, err)

	// Consultation is settled at the clinic; only the 5% convenience fee
	// is charged, with the base fee kept for the receipt.
	assert.EqualValues(t, 0, appt.ConsultationFee)
	assert.EqualValues(t, 800, appt.OriginalConsultationFee)
	assert.EqualValues(t, 40, appt.ConvenienceFee)
	assert.EqualValues(t, 40, appt.TotalAmount)
}

func TestCreateZeroTotalConfirmsImmediately(t *testing.T) {
	f := newFixture(t)
	f.svc.params.ConvenienceRatePercent = 0

	appt, err := f.create(540, 570, availability.ModalityInPerson)
	require.NoError(t, err)

	assert.Equal(t, StatusConfirmed, appt.Status)
	assert.Equal(t, PaymentWaived, appt.PaymentStatus)

	entry, err := f.entries.GetByAppointment(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusConfirmed, entry.Status)
}

func TestCreateRejectsTakenSlot(t *testing.T) {
	f := newFixture(t)

	_, err := f.create(540, 570, availability.ModalityOnline)
	require.NoError(t, err)

	_, err = f.create(540, 570, availability.ModalityOnline)
	assert.ErrorIs(t, err, ErrSlotUnavailable)
}

func TestCreateRejectsOffGridWindow(t *testing.T) {
	f := newFixture(t)

	// 09:10-09:40 is not a window the template offers.
	_, err := f.create(550, 580, availability.ModalityOnline)
	assert.ErrorIs(t, err, ErrSlotUnavailable)

	// Neither is anything during lunch.
	_, err = f.create(720, 750, availability.ModalityOnline)
	assert.ErrorIs(t, err, ErrSlotUnavailable)
}

func TestCreateUnknownParticipants(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), CreateRequest{
		PatientID:  uuid.New(),
		ProviderID: f.provider.ID,
		Date:       civil.Date{Year: 2025, Month: time.August, Day: 22},
		Start:      540,
		End:        570,
		Modality:   availability.ModalityOnline,
	})
	assert.ErrorIs(t, err, ErrPatientNotFound)

	_, err = f.svc.Create(context.Background(), CreateRequest{
		PatientID:  f.patient.ID,
		ProviderID: uuid.New(),
		Date:       civil.Date{Year: 2025, Month: time.August, Day: 22},
		Start:      540,
		End:        570,
		Modality:   availability.ModalityOnline,
	})
	assert.ErrorIs(t, err, ErrProviderNotFound)
}

func TestConfirmPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	appt, err := f.create(540, 570, availability.ModalityOnline)
	require.NoError(t, err)

	confirmed, err := f.svc.ConfirmPayment(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, confirmed.Status)
	assert.Equal(t, PaymentPaid, confirmed.PaymentStatus)

	entry, err := f.entries.GetByAppointment(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusConfirmed, entry.Status)
	assert.Nil(t, entry.ExpiresAt)
}

func TestConfirmPaymentIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	appt, err := f.create(540, 570, availability.ModalityOnline)
	require.NoError(t, err)

	first, err := f.svc.ConfirmPayment(ctx, appt.ID)
	require.NoError(t, err)
	second, err := f.svc.ConfirmPayment(ctx, appt.ID)
	require.NoError(t, err)

	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, first.PaymentStatus, second.PaymentStatus)

	// No duplicate ledger mutation: still exactly one active entry.
	active, err := f.entries.ListActive(ctx, f.provider.ID, appt.Date)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestConfirmPaymentAfterHoldLapsed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	appt, err := f.create(540, 570, availability.ModalityOnline)
	require.NoError(t, err)

	f.advance(16 * time.Minute)

	_, err = f.svc.ConfirmPayment(ctx, appt.ID)
	assert.ErrorIs(t, err, ErrReservationExpired)

	// The lazy expiry must have moved the appointment along too.
	got, err := f.svc.Get(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusExpired, got.Status)

	// And confirming again still reports expiry, not success.
	_, err = f.svc.ConfirmPayment(ctx, appt.ID)
	assert.ErrorIs(t, err, ErrReservationExpired)
}

func TestExpiredSlotCanBeRebooked(t *testing.T) {
	f := newFixture(t)

	_, err := f.create(540, 570, availability.ModalityOnline)
	require.NoError(t, err)

	// Hold is 900s; two seconds past it the window must be bookable by
	// someone else with no sweep in between.
	f.advance(900*time.Second + 2*time.Second)

	appt, err := f.create(540, 570, availability.ModalityOnline)
	require.NoError(t, err)
	assert.Equal(t, StatusReserved, appt.Status)
}

func TestCancelFreesSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	appt, err := f.create(540, 570, availability.ModalityOnline)
	require.NoError(t, err)

	cancelled, err := f.svc.Cancel(ctx, appt.ID, ActorPatient)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)

	// The identical window books again immediately.
	again, err := f.create(540, 570, availability.ModalityOnline)
	require.NoError(t, err)
	assert.Equal(t, StatusReserved, again.Status)
}

func TestCancelConfirmedAppointment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	appt, err := f.create(540, 570, availability.ModalityOnline)
	require.NoError(t, err)
	_, err = f.svc.ConfirmPayment(ctx, appt.ID)
	require.NoError(t, err)

	cancelled, err := f.svc.Cancel(ctx, appt.ID, ActorPatient)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)

	active, err := f.entries.ListActive(ctx, f.provider.ID, appt.Date)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestCancelTwiceFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	appt, err := f.create(540, 570, availability.ModalityOnline)
	require.NoError(t, err)
	_, err = f.svc.Cancel(ctx, appt.ID, ActorPatient)
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, appt.ID, ActorPatient)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCancelPastStartOnlyByProvider(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	appt, err := f.create(540, 570, availability.ModalityOnline)
	require.NoError(t, err)
	_, err = f.svc.ConfirmPayment(ctx, appt.ID)
	require.NoError(t, err)

	// Move past the 09:00 start.
	f.advance(90 * time.Minute)

	_, err = f.svc.Cancel(ctx, appt.ID, ActorPatient)
	assert.ErrorIs(t, err, ErrPastAppointment)

	cancelled, err := f.svc.Cancel(ctx, appt.ID, ActorProvider)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
}

func TestExpireUnpaidSweep(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	unpaid, err := f.create(540, 570, availability.ModalityOnline)
	require.NoError(t, err)

	paid, err := f.create(600, 630, availability.ModalityOnline)
	require.NoError(t, err)
	_, err = f.svc.ConfirmPayment(ctx, paid.ID)
	require.NoError(t, err)

	f.advance(16 * time.Minute)

	n, err := f.svc.ExpireUnpaid(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := f.svc.Get(ctx, unpaid.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusExpired, got.Status)

	got, err = f.svc.Get(ctx, paid.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, got.Status)

	// Sweep twice: nothing new to expire.
	n, err = f.svc.ExpireUnpaid(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestComplete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	appt, err := f.create(540, 570, availability.ModalityOnline)
	require.NoError(t, err)

	// Not confirmed yet.
	_, err = f.svc.Complete(ctx, appt.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.svc.ConfirmPayment(ctx, appt.ID)
	require.NoError(t, err)

	// Confirmed but not finished (now is 08:00, slot ends 09:30).
	_, err = f.svc.Complete(ctx, appt.ID)
	assert.ErrorIs(t, err, ErrNotFinished)

	f.advance(2 * time.Hour)
	done, err := f.svc.Complete(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, done.Status)

	// Terminal: no further transitions.
	_, err = f.svc.Cancel(ctx, appt.ID, ActorProvider)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestListByPatient(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.create(540, 570, availability.ModalityOnline)
	require.NoError(t, err)
	f.advance(time.Minute)
	_, err = f.create(600, 630, availability.ModalityOnline)
	require.NoError(t, err)

	all, err := f.svc.ListByPatient(ctx, f.patient.ID, 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	one, err := f.svc.ListByPatient(ctx, f.patient.ID, 1, 1)
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, first.ID, one[0].ID)

	none, err := f.svc.ListByPatient(ctx, uuid.New(), 10, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}
