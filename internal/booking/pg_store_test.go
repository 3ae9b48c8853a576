package booking_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turnitos/turnitos-backend/internal/booking"
)

func newMockStore(t *testing.T) (pgxmock.PgxPoolIface, *booking.PgStore) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock, booking.NewPgStore(mock)
}

func TestPgGetServiceNotFound(t *testing.T) {
	mock, store := newMockStore(t)
	bizID, serviceID := uuid.New(), uuid.New()

	mock.ExpectQuery("FROM services").
		WithArgs(serviceID, bizID).
		WillReturnError(pgx.ErrNoRows)

	_, err := store.GetService(context.Background(), bizID, serviceID)
	assert.ErrorIs(t, err, booking.ErrServiceNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgRemoveClosedDate(t *testing.T) {
	mock, store := newMockStore(t)
	bizID := uuid.New()
	date := time.Date(2026, 12, 25, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec("DELETE FROM closed_dates").
		WithArgs(bizID, date).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	require.NoError(t, store.RemoveClosedDate(context.Background(), bizID, date))

	mock.ExpectExec("DELETE FROM closed_dates").
		WithArgs(bizID, date).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	err := store.RemoveClosedDate(context.Background(), bizID, date)
	assert.ErrorIs(t, err, booking.ErrClosedDateNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgUpdateAppointmentStatusRaced(t *testing.T) {
	mock, store := newMockStore(t)
	bizID, apptID := uuid.New(), uuid.New()

	// The conditional update matches nothing when the status changed
	// underneath us.
	mock.ExpectQuery("UPDATE appointments").
		WithArgs(apptID, bizID, booking.StatusConfirmed, booking.StatusPending).
		WillReturnError(pgx.ErrNoRows)

	_, err := store.UpdateAppointmentStatus(context.Background(), bizID, apptID, booking.StatusPending, booking.StatusConfirmed)
	assert.ErrorIs(t, err, booking.ErrAppointmentNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func testPgAppointment() *booking.Appointment {
	now := time.Now().UTC()
	return &booking.Appointment{
		ID:          uuid.New(),
		BusinessID:  uuid.New(),
		ServiceID:   uuid.New(),
		ServiceName: "Haircut",
		ClientName:  "Ana",
		ClientPhone: "+54 11 5555-0001",
		ClientEmail: "ana@example.com",
		Date:        time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC),
		StartMinute: 630,
		Status:      booking.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestPgInsertAppointmentConflict(t *testing.T) {
	mock, store := newMockStore(t)
	appt := testPgAppointment()

	mock.ExpectBegin()
	mock.ExpectExec("pg_advisory_xact_lock").
		WithArgs(appt.BusinessID.String(), "2026-08-24").
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectQuery("SELECT a.start_minute").
		WithArgs(appt.BusinessID, appt.Date).
		WillReturnRows(pgxmock.NewRows([]string{"start_minute", "duration_minutes"}).AddRow(600, 60))
	mock.ExpectRollback()

	// 10:30 for 60 minutes collides with the existing 10:00-11:00 booking.
	_, err := store.InsertAppointment(context.Background(), appt, 60)
	assert.ErrorIs(t, err, booking.ErrSlotTaken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgInsertAppointmentSuccess(t *testing.T) {
	mock, store := newMockStore(t)
	appt := testPgAppointment()

	cols := []string{
		"id", "business_id", "service_id", "service_name", "client_name", "client_phone",
		"client_email", "scheduled_on", "start_minute", "status", "created_at", "updated_at",
	}

	mock.ExpectBegin()
	mock.ExpectExec("pg_advisory_xact_lock").
		WithArgs(appt.BusinessID.String(), "2026-08-24").
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectQuery("SELECT a.start_minute").
		WithArgs(appt.BusinessID, appt.Date).
		WillReturnRows(pgxmock.NewRows([]string{"start_minute", "duration_minutes"}))
	mock.ExpectQuery("INSERT INTO appointments").
		WithArgs(appt.ID, appt.BusinessID, appt.ServiceID, appt.ServiceName, appt.ClientName,
			appt.ClientPhone, appt.ClientEmail, appt.Date, appt.StartMinute, appt.Status,
			appt.CreatedAt, appt.UpdatedAt).
		WillReturnRows(pgxmock.NewRows(cols).AddRow(
			appt.ID, appt.BusinessID, appt.ServiceID, appt.ServiceName, appt.ClientName,
			appt.ClientPhone, appt.ClientEmail, appt.Date, appt.StartMinute, appt.Status,
			appt.CreatedAt, appt.UpdatedAt))
	mock.ExpectCommit()

	created, err := store.InsertAppointment(context.Background(), appt, 60)
	require.NoError(t, err)
	assert.Equal(t, appt.ID, created.ID)
	assert.Equal(t, 630, created.StartMinute)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgCountAppointments(t *testing.T) {
	mock, store := newMockStore(t)
	bizID := uuid.New()

	mock.ExpectQuery("FROM appointments").
		WithArgs(bizID).
		WillReturnRows(pgxmock.NewRows([]string{"count", "pending"}).AddRow(5, 2))

	total, pending, err := store.CountAppointments(context.Background(), bizID)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Equal(t, 2, pending)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgWeeklyRules(t *testing.T) {
	mock, store := newMockStore(t)
	bizID := uuid.New()

	rows := pgxmock.NewRows([]string{"business_id", "weekday", "is_open", "open_minute", "close_minute"})
	for day := 0; day < 7; day++ {
		rows.AddRow(bizID, day, day < 5, 540, 1080)
	}
	mock.ExpectQuery("FROM business_hours").WithArgs(bizID).WillReturnRows(rows)

	rules, err := store.WeeklyRules(context.Background(), bizID)
	require.NoError(t, err)
	require.Len(t, rules, 7)
	assert.True(t, rules[0].IsOpen)
	assert.False(t, rules[6].IsOpen)
	assert.NoError(t, mock.ExpectationsWereMet())
}
