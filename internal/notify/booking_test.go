package notify_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turnitos/turnitos-backend/internal/booking"
	"github.com/turnitos/turnitos-backend/internal/business"
	"github.com/turnitos/turnitos-backend/internal/memstore"
	"github.com/turnitos/turnitos-backend/internal/notify"
)

type sentMail struct {
	toName, toAddr, subject, html string
}

type stubMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *stubMailer) Send(ctx context.Context, toName, toAddr, subject, html string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{toName, toAddr, subject, html})
	return nil
}

func seedOwner(t *testing.T, store *memstore.Store) *business.Business {
	t.Helper()
	owner := &business.Business{
		ID:          uuid.New(),
		Email:       "owner@example.com",
		Name:        "Barber & Bros",
		Slug:        "barber-bros",
		TrialEndsAt: time.Now().UTC().Add(24 * time.Hour),
	}
	require.NoError(t, store.CreateBusiness(context.Background(), owner, booking.DefaultWeek(owner.ID)))
	return owner
}

func testAppointment(bizID uuid.UUID) *booking.Appointment {
	return &booking.Appointment{
		ID:          uuid.New(),
		BusinessID:  bizID,
		ServiceID:   uuid.New(),
		ServiceName: "Cut <script>",
		ClientName:  "Ana",
		ClientPhone: "+54 11 5555-0001",
		ClientEmail: "ana@example.com",
		Date:        time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC),
		StartMinute: 600,
		Status:      booking.StatusPending,
	}
}

func TestBookingCreatedMailsClientAndOwner(t *testing.T) {
	store := memstore.New()
	owner := seedOwner(t, store)
	mailer := &stubMailer{}
	n := notify.NewBookingNotifier(mailer, store, nil)

	n.BookingCreated(context.Background(), testAppointment(owner.ID))

	require.Len(t, mailer.sent, 2)

	client := mailer.sent[0]
	assert.Equal(t, "ana@example.com", client.toAddr)
	assert.Equal(t, "Booking confirmation", client.subject)
	assert.Contains(t, client.html, "2026-08-24")
	assert.Contains(t, client.html, "10:00")
	// HTML in user input is escaped, never rendered.
	assert.NotContains(t, client.html, "<script>")
	assert.Contains(t, client.html, "&lt;script&gt;")

	ownerMail := mailer.sent[1]
	assert.Equal(t, "owner@example.com", ownerMail.toAddr)
	assert.Equal(t, "New booking received", ownerMail.subject)
	assert.Contains(t, ownerMail.html, "+54 11 5555-0001")
}

func TestBookingCreatedSkipsUnknownOwner(t *testing.T) {
	mailer := &stubMailer{}
	n := notify.NewBookingNotifier(mailer, memstore.New(), nil)

	n.BookingCreated(context.Background(), testAppointment(uuid.New()))

	assert.Empty(t, mailer.sent)
}

func TestBookingCreatedToleratesMailerFailure(t *testing.T) {
	store := memstore.New()
	owner := seedOwner(t, store)
	mailer := &stubMailer{err: assert.AnError}
	n := notify.NewBookingNotifier(mailer, store, nil)

	// Must not panic or propagate; delivery is best effort.
	n.BookingCreated(context.Background(), testAppointment(owner.ID))
	assert.Empty(t, mailer.sent)
}
