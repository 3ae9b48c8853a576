package booking

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// CalendarStore persists weekly hour rules and date-specific closures.
type CalendarStore interface {
	WeeklyRules(ctx context.Context, businessID uuid.UUID) ([]WeeklyHourRule, error)
	// ReplaceWeeklyRules swaps all seven rules atomically. Partial weeks
	// are rejected by the Calendar service before reaching the store.
	ReplaceWeeklyRules(ctx context.Context, businessID uuid.UUID, rules []WeeklyHourRule) error
	ClosedDates(ctx context.Context, businessID uuid.UUID) ([]time.Time, error)
	IsClosedDate(ctx context.Context, businessID uuid.UUID, date time.Time) (bool, error)
	// AddClosedDate is an idempotent no-op when the date is already closed.
	AddClosedDate(ctx context.Context, businessID uuid.UUID, date time.Time) error
	// RemoveClosedDate returns ErrClosedDateNotFound for absent dates.
	RemoveClosedDate(ctx context.Context, businessID uuid.UUID, date time.Time) error
}

// CatalogStore persists bookable service definitions.
type CatalogStore interface {
	CreateService(ctx context.Context, svc *Service) error
	// UpdateService returns ErrServiceNotFound when the service does not
	// belong to the business.
	UpdateService(ctx context.Context, svc *Service) (*Service, error)
	GetService(ctx context.Context, businessID, serviceID uuid.UUID) (*Service, error)
	ListServices(ctx context.Context, businessID uuid.UUID, activeOnly bool) ([]Service, error)
	// DeactivateService soft-deletes: sets active=false, never removes.
	DeactivateService(ctx context.Context, businessID, serviceID uuid.UUID) error
	CountActiveServices(ctx context.Context, businessID uuid.UUID) (int, error)
}

// LedgerStore persists booked appointments.
type LedgerStore interface {
	// InsertAppointment atomically re-checks for an overlapping
	// non-cancelled appointment on the same business and date and inserts
	// the row. Returns ErrSlotTaken when the interval is occupied. The
	// duration is the booked service's current duration.
	InsertAppointment(ctx context.Context, appt *Appointment, durationMinutes int) (*Appointment, error)
	GetAppointment(ctx context.Context, businessID, id uuid.UUID) (*Appointment, error)
	// ListAppointments returns the business's non-cancelled appointments,
	// newest date and time first.
	ListAppointments(ctx context.Context, businessID uuid.UUID) ([]Appointment, error)
	// OccupiedIntervals returns the footprints of non-cancelled
	// appointments on a date, with durations read live from services.
	OccupiedIntervals(ctx context.Context, businessID uuid.UUID, date time.Time) ([]OccupiedInterval, error)
	// UpdateAppointmentStatus transitions status only when the current
	// status matches from, returning ErrAppointmentNotFound otherwise.
	UpdateAppointmentStatus(ctx context.Context, businessID, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error)
	CountAppointments(ctx context.Context, businessID uuid.UUID) (total, pending int, err error)
}

// Store combines everything the engine persists per business.
type Store interface {
	CalendarStore
	CatalogStore
	LedgerStore
}

// AccessGate reports whether a business's public page is active. Implemented
// by the business package from trial/subscription state.
type AccessGate interface {
	Bookable(ctx context.Context, businessID uuid.UUID) (bool, error)
}
