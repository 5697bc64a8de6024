package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/telecare/scheduling-engine/internal/civil"
)

// MemoryRepository keeps the ledger in process memory behind one mutex, which
// makes Reserve trivially atomic. Used by tests and single-node deployments.
type MemoryRepository struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*Entry
	now     func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		entries: make(map[uuid.UUID]*Entry),
		now:     time.Now,
	}
}

// WithClock overrides the clock, for tests.
func (r *MemoryRepository) WithClock(now func() time.Time) *MemoryRepository {
	r.now = now
	return r
}

func (r *MemoryRepository) ListActive(_ context.Context, providerID uuid.UUID, date civil.Date) ([]Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	var result []Entry
	for _, e := range r.entries {
		if e.ProviderID == providerID && e.Date.Equal(date) && e.ActiveAt(now) {
			result = append(result, *e)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Start < result[j].Start })
	return result, nil
}

func (r *MemoryRepository) Reserve(_ context.Context, e Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for _, other := range r.entries {
		if other.ProviderID != e.ProviderID || !other.Date.Equal(e.Date) {
			continue
		}
		if other.ActiveAt(now) && other.Span().Overlaps(e.Span()) {
			return ErrConflict
		}
	}

	e.Status = StatusReserved
	cp := e
	r.entries[e.ID] = &cp
	return nil
}

func (r *MemoryRepository) Confirm(_ context.Context, entryID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[entryID]
	if !ok || e.Status != StatusReserved {
		return ErrEntryNotFound
	}
	e.Status = StatusConfirmed
	e.ExpiresAt = nil
	return nil
}

func (r *MemoryRepository) Release(_ context.Context, entryID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[entryID]
	if !ok || e.Status == StatusReleased {
		return ErrEntryNotFound
	}
	e.Status = StatusReleased
	return nil
}

func (r *MemoryRepository) ReleaseExpired(_ context.Context, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	released := 0
	for _, e := range r.entries {
		if e.Status == StatusReserved && e.ExpiresAt != nil && !e.ExpiresAt.After(now) {
			e.Status = StatusReleased
			released++
		}
	}
	return released, nil
}

func (r *MemoryRepository) GetByAppointment(_ context.Context, appointmentID uuid.UUID) (*Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var latest *Entry
	for _, e := range r.entries {
		if e.AppointmentID != appointmentID {
			continue
		}
		if latest == nil || e.ReservedAt.After(latest.ReservedAt) {
			latest = e
		}
	}
	if latest == nil {
		return nil, ErrEntryNotFound
	}
	cp := *latest
	return &cp, nil
}
