package booking

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/turnitos/turnitos-backend/internal/lock"
)

// Notifier receives best-effort booking events. Failures never affect the
// booking itself.
type Notifier interface {
	BookingCreated(ctx context.Context, appt *Appointment)
}

// Coordinator converts slot selections into persisted appointments with
// race safety. It is the only writer of new appointments: the availability
// re-check and the insert run inside a per-(business, date) lock, and the
// store re-checks overlap atomically with the insert, so two concurrent
// bookings for overlapping times can never both succeed.
type Coordinator struct {
	store    Store
	gate     AccessGate
	locker   lock.Locker
	resolver *Resolver
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

func NewCoordinator(store Store, gate AccessGate, locker lock.Locker, resolver *Resolver, notifier Notifier, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		store:    store,
		gate:     gate,
		locker:   locker,
		resolver: resolver,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

type BookRequest struct {
	BusinessID  uuid.UUID
	ServiceID   uuid.UUID
	Date        time.Time
	StartMinute int
	ClientName  string
	ClientPhone string
	ClientEmail string
}

func (req *BookRequest) validate() error {
	if strings.TrimSpace(req.ClientName) == "" {
		return fmt.Errorf("%w: client_name is required", ErrValidation)
	}
	if strings.TrimSpace(req.ClientPhone) == "" {
		return fmt.Errorf("%w: client_phone is required", ErrValidation)
	}
	if _, err := mail.ParseAddress(req.ClientEmail); err != nil {
		return fmt.Errorf("%w: client_email is not a valid address", ErrValidation)
	}
	if req.StartMinute < 0 || req.StartMinute >= minutesPerDay {
		return fmt.Errorf("%w: time out of range", ErrValidation)
	}
	return nil
}

// Book handles a public booking submission. The availability re-check is
// mandatory even when the caller fetched slots moments earlier: time passes
// between fetch and submission, and another client may have won the slot.
// The loser of a race receives ErrSlotTaken.
func (c *Coordinator) Book(ctx context.Context, req BookRequest) (*Appointment, error) {
	bookable, err := c.gate.Bookable(ctx, req.BusinessID)
	if err != nil {
		return nil, fmt.Errorf("check access: %w", err)
	}
	if !bookable {
		return nil, ErrNotBookable
	}
	return c.book(ctx, req, StatusPending)
}

// AdminBook creates an appointment on behalf of authenticated staff. It is
// immediately confirmed and skips the public access gate; the admin surface
// applies its own subscription gating before reaching the engine.
func (c *Coordinator) AdminBook(ctx context.Context, req BookRequest) (*Appointment, error) {
	return c.book(ctx, req, StatusConfirmed)
}

func (c *Coordinator) book(ctx context.Context, req BookRequest, status AppointmentStatus) (*Appointment, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	svc, err := c.store.GetService(ctx, req.BusinessID, req.ServiceID)
	if err != nil {
		return nil, err
	}
	if !svc.Active {
		return nil, ErrServiceNotFound
	}

	now := c.now().UTC()
	if c.inPast(req.Date, req.StartMinute, now) {
		return nil, fmt.Errorf("%w: cannot book a slot in the past", ErrValidation)
	}

	var created *Appointment
	err = c.locker.WithDateLock(ctx, req.BusinessID, req.Date, func(lockCtx context.Context) error {
		slots, err := c.resolver.AvailableSlots(lockCtx, req.BusinessID, svc, req.Date)
		if err != nil {
			return err
		}
		if !containsSlot(slots, req.StartMinute) {
			return ErrSlotTaken
		}

		appt := &Appointment{
			ID:          uuid.New(),
			BusinessID:  req.BusinessID,
			ServiceID:   svc.ID,
			ServiceName: svc.Name,
			ClientName:  req.ClientName,
			ClientPhone: req.ClientPhone,
			ClientEmail: req.ClientEmail,
			Date:        req.Date,
			StartMinute: req.StartMinute,
			Status:      status,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		created, err = c.store.InsertAppointment(lockCtx, appt, svc.DurationMinutes)
		return err
	})
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			return nil, fmt.Errorf("%w: booking in progress, retry", ErrSlotTaken)
		}
		return nil, err
	}

	c.logger.Info("appointment booked",
		zap.String("business_id", req.BusinessID.String()),
		zap.String("appointment_id", created.ID.String()),
		zap.String("date", FormatDate(created.Date)),
		zap.String("time", FormatMinute(created.StartMinute)),
		zap.String("status", string(created.Status)))

	if c.notifier != nil {
		go c.notifier.BookingCreated(context.WithoutCancel(ctx), created)
	}
	return created, nil
}

func (c *Coordinator) inPast(date time.Time, startMinute int, now time.Time) bool {
	start := date.Add(time.Duration(startMinute) * time.Minute)
	return !start.After(now)
}

func containsSlot(slots []int, start int) bool {
	for _, s := range slots {
		if s == start {
			return true
		}
	}
	return false
}

// Confirm transitions a pending appointment to confirmed. Cancelled is
// terminal; confirming a non-pending appointment is a conflict.
func (c *Coordinator) Confirm(ctx context.Context, businessID, id uuid.UUID) (*Appointment, error) {
	appt, err := c.store.GetAppointment(ctx, businessID, id)
	if err != nil {
		return nil, err
	}
	if appt.Status != StatusPending {
		return nil, ErrInvalidStatusTransition
	}
	updated, err := c.store.UpdateAppointmentStatus(ctx, businessID, id, StatusPending, StatusConfirmed)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			// Raced with another transition since the read above.
			return nil, ErrInvalidStatusTransition
		}
		return nil, err
	}
	c.logger.Info("appointment confirmed", zap.String("appointment_id", id.String()))
	return updated, nil
}

// Cancel transitions an appointment to cancelled, freeing its interval for
// new bookings. It is idempotent: cancelling twice succeeds with no state
// change. The record is never removed.
func (c *Coordinator) Cancel(ctx context.Context, businessID, id uuid.UUID) error {
	appt, err := c.store.GetAppointment(ctx, businessID, id)
	if err != nil {
		return err
	}
	if appt.Status == StatusCancelled {
		return nil
	}
	if _, err := c.store.UpdateAppointmentStatus(ctx, businessID, id, appt.Status, StatusCancelled); err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			// Lost a race with another cancel or a confirm; cancelling an
			// already-cancelled appointment still counts as success.
			current, getErr := c.store.GetAppointment(ctx, businessID, id)
			if getErr == nil && current.Status == StatusCancelled {
				return nil
			}
			return ErrInvalidStatusTransition
		}
		return err
	}
	c.logger.Info("appointment cancelled", zap.String("appointment_id", id.String()))
	return nil
}

func (c *Coordinator) List(ctx context.Context, businessID uuid.UUID) ([]Appointment, error) {
	return c.store.ListAppointments(ctx, businessID)
}

func (c *Coordinator) Get(ctx context.Context, businessID, id uuid.UUID) (*Appointment, error) {
	return c.store.GetAppointment(ctx, businessID, id)
}

type Stats struct {
	TotalAppointments   int
	PendingAppointments int
	TotalServices       int
}

func (c *Coordinator) Stats(ctx context.Context, businessID uuid.UUID) (Stats, error) {
	total, pending, err := c.store.CountAppointments(ctx, businessID)
	if err != nil {
		return Stats{}, fmt.Errorf("count appointments: %w", err)
	}
	active, err := c.store.CountActiveServices(ctx, businessID)
	if err != nil {
		return Stats{}, fmt.Errorf("count services: %w", err)
	}
	return Stats{
		TotalAppointments:   total,
		PendingAppointments: pending,
		TotalServices:       active,
	}, nil
}
