package booking_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turnitos/turnitos-backend/internal/booking"
	"github.com/turnitos/turnitos-backend/internal/lock"
	"github.com/turnitos/turnitos-backend/internal/memstore"
)

type stubGate struct {
	allow bool
}

func (g *stubGate) Bookable(ctx context.Context, businessID uuid.UUID) (bool, error) {
	return g.allow, nil
}

type stubNotifier struct {
	created chan *booking.Appointment
}

func (n *stubNotifier) BookingCreated(ctx context.Context, appt *booking.Appointment) {
	n.created <- appt
}

type fixture struct {
	store       *memstore.Store
	coordinator *booking.Coordinator
	gate        *stubGate
	notifier    *stubNotifier
	bizID       uuid.UUID
	svc         *booking.Service
	date        time.Time
}

// newFixture wires a coordinator over the in-memory store with a business
// open every day 09:00-18:00 and one 30-minute service.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memstore.New()
	bizID := uuid.New()

	rules := make([]booking.WeeklyHourRule, 7)
	for day := 0; day < 7; day++ {
		rules[day] = booking.WeeklyHourRule{
			BusinessID: bizID, Weekday: day, IsOpen: true, OpenMinute: 540, CloseMinute: 1080,
		}
	}
	require.NoError(t, store.ReplaceWeeklyRules(context.Background(), bizID, rules))

	svc := &booking.Service{
		ID:              uuid.New(),
		BusinessID:      bizID,
		Name:            "Haircut",
		DurationMinutes: 30,
		Price:           25,
		Active:          true,
		CreatedAt:       time.Now().UTC(),
	}
	require.NoError(t, store.CreateService(context.Background(), svc))

	gate := &stubGate{allow: true}
	notifier := &stubNotifier{created: make(chan *booking.Appointment, 64)}
	coordinator := booking.NewCoordinator(store, gate, lock.NewLocalLocker(), booking.NewResolver(store), notifier, nil)

	date, err := booking.ParseDate(booking.FormatDate(time.Now().UTC().AddDate(0, 0, 14)))
	require.NoError(t, err)

	return &fixture{
		store:       store,
		coordinator: coordinator,
		gate:        gate,
		notifier:    notifier,
		bizID:       bizID,
		svc:         svc,
		date:        date,
	}
}

func (f *fixture) request(startMinute int) booking.BookRequest {
	return booking.BookRequest{
		BusinessID:  f.bizID,
		ServiceID:   f.svc.ID,
		Date:        f.date,
		StartMinute: startMinute,
		ClientName:  "Ana Gomez",
		ClientPhone: "+54 11 5555-0001",
		ClientEmail: "ana@example.com",
	}
}

func TestBookCreatesPendingAppointment(t *testing.T) {
	f := newFixture(t)

	appt, err := f.coordinator.Book(context.Background(), f.request(600))
	require.NoError(t, err)
	assert.Equal(t, booking.StatusPending, appt.Status)
	assert.Equal(t, f.svc.Name, appt.ServiceName)
	assert.Equal(t, 600, appt.StartMinute)

	got, err := f.coordinator.Get(context.Background(), f.bizID, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, appt.ID, got.ID)

	appts, err := f.coordinator.List(context.Background(), f.bizID)
	require.NoError(t, err)
	require.Len(t, appts, 1)

	select {
	case created := <-f.notifier.created:
		assert.Equal(t, appt.ID, created.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("notifier was not invoked")
	}
}

func TestBookValidation(t *testing.T) {
	f := newFixture(t)

	req := f.request(600)
	req.ClientName = "  "
	_, err := f.coordinator.Book(context.Background(), req)
	assert.ErrorIs(t, err, booking.ErrValidation)

	req = f.request(600)
	req.ClientEmail = "not-an-email"
	_, err = f.coordinator.Book(context.Background(), req)
	assert.ErrorIs(t, err, booking.ErrValidation)

	req = f.request(600)
	req.StartMinute = 1500
	_, err = f.coordinator.Book(context.Background(), req)
	assert.ErrorIs(t, err, booking.ErrValidation)
}

func TestBookPastSlot(t *testing.T) {
	f := newFixture(t)

	req := f.request(600)
	req.Date = req.Date.AddDate(0, 0, -30)
	_, err := f.coordinator.Book(context.Background(), req)
	assert.ErrorIs(t, err, booking.ErrValidation)
}

func TestBookGateClosed(t *testing.T) {
	f := newFixture(t)
	f.gate.allow = false

	_, err := f.coordinator.Book(context.Background(), f.request(600))
	assert.ErrorIs(t, err, booking.ErrNotBookable)

	// Staff bookings bypass the public gate.
	appt, err := f.coordinator.AdminBook(context.Background(), f.request(600))
	require.NoError(t, err)
	assert.Equal(t, booking.StatusConfirmed, appt.Status)
}

func TestBookInactiveService(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.DeactivateService(context.Background(), f.bizID, f.svc.ID))

	_, err := f.coordinator.Book(context.Background(), f.request(600))
	assert.ErrorIs(t, err, booking.ErrServiceNotFound)
}

func TestBookStaleSlotRejected(t *testing.T) {
	f := newFixture(t)

	_, err := f.coordinator.Book(context.Background(), f.request(600))
	require.NoError(t, err)

	// Same submission again: the slot list a second client saw is stale.
	_, err = f.coordinator.Book(context.Background(), f.request(600))
	assert.ErrorIs(t, err, booking.ErrSlotTaken)

	// Overlapping but not identical start is also rejected once the service
	// is long enough to collide.
	long := &booking.Service{
		ID: uuid.New(), BusinessID: f.bizID, Name: "Color", DurationMinutes: 60, Active: true,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, f.store.CreateService(context.Background(), long))
	req := f.request(570)
	req.ServiceID = long.ID
	_, err = f.coordinator.Book(context.Background(), req)
	assert.ErrorIs(t, err, booking.ErrSlotTaken)
}

// Fifty concurrent submissions racing for three slots must produce exactly
// three appointments; everyone else loses with ErrSlotTaken.
func TestBookConcurrentRace(t *testing.T) {
	f := newFixture(t)

	// Shrink the day to 09:00-10:30: three 30-minute slots.
	rules := make([]booking.WeeklyHourRule, 7)
	for day := 0; day < 7; day++ {
		rules[day] = booking.WeeklyHourRule{
			BusinessID: f.bizID, Weekday: day, IsOpen: true, OpenMinute: 540, CloseMinute: 630,
		}
	}
	require.NoError(t, f.store.ReplaceWeeklyRules(context.Background(), f.bizID, rules))

	slots := []int{540, 570, 600}
	const attempts = 50

	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.coordinator.Book(context.Background(), f.request(slots[i%len(slots)]))
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	won, lost := 0, 0
	for err := range results {
		switch {
		case err == nil:
			won++
		case errors.Is(err, booking.ErrSlotTaken):
			lost++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 3, won)
	assert.Equal(t, attempts-3, lost)

	appts, err := f.coordinator.List(context.Background(), f.bizID)
	require.NoError(t, err)
	assert.Len(t, appts, 3)
}

func TestConfirmTransitions(t *testing.T) {
	f := newFixture(t)

	appt, err := f.coordinator.Book(context.Background(), f.request(600))
	require.NoError(t, err)

	confirmed, err := f.coordinator.Confirm(context.Background(), f.bizID, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusConfirmed, confirmed.Status)

	_, err = f.coordinator.Confirm(context.Background(), f.bizID, appt.ID)
	assert.ErrorIs(t, err, booking.ErrInvalidStatusTransition)

	_, err = f.coordinator.Confirm(context.Background(), f.bizID, uuid.New())
	assert.ErrorIs(t, err, booking.ErrAppointmentNotFound)
}

func TestCancelIsIdempotentAndFreesSlot(t *testing.T) {
	f := newFixture(t)

	appt, err := f.coordinator.Book(context.Background(), f.request(600))
	require.NoError(t, err)

	require.NoError(t, f.coordinator.Cancel(context.Background(), f.bizID, appt.ID))
	require.NoError(t, f.coordinator.Cancel(context.Background(), f.bizID, appt.ID))

	// The interval is free again.
	again, err := f.coordinator.Book(context.Background(), f.request(600))
	require.NoError(t, err)
	assert.NotEqual(t, appt.ID, again.ID)

	// Cancelled appointments drop out of the admin list but remain readable.
	appts, err := f.coordinator.List(context.Background(), f.bizID)
	require.NoError(t, err)
	assert.Len(t, appts, 1)
	got, err := f.coordinator.Get(context.Background(), f.bizID, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusCancelled, got.Status)
}

func TestSoftDeletedServiceKeepsBookings(t *testing.T) {
	f := newFixture(t)

	appt, err := f.coordinator.Book(context.Background(), f.request(600))
	require.NoError(t, err)

	require.NoError(t, f.store.DeactivateService(context.Background(), f.bizID, f.svc.ID))

	appts, err := f.coordinator.List(context.Background(), f.bizID)
	require.NoError(t, err)
	require.Len(t, appts, 1)
	assert.Equal(t, appt.ID, appts[0].ID)
	assert.Equal(t, f.svc.Name, appts[0].ServiceName)
}

func TestStats(t *testing.T) {
	f := newFixture(t)

	_, err := f.coordinator.Book(context.Background(), f.request(600))
	require.NoError(t, err)
	_, err = f.coordinator.AdminBook(context.Background(), f.request(720))
	require.NoError(t, err)

	stats, err := f.coordinator.Stats(context.Background(), f.bizID)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalAppointments)
	assert.Equal(t, 1, stats.PendingAppointments)
	assert.Equal(t, 1, stats.TotalServices)
}
