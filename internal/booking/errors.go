package booking

import "errors"

var (
	// ErrValidation marks malformed input. Wrap it with detail:
	// fmt.Errorf("%w: duration must be positive", ErrValidation).
	ErrValidation = errors.New("invalid input")

	ErrBusinessNotFound    = errors.New("business not found")
	ErrServiceNotFound     = errors.New("service not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrClosedDateNotFound  = errors.New("closed date not found")

	// ErrSlotTaken is returned when the requested slot is no longer
	// available, including when a concurrent booking won the race.
	ErrSlotTaken = errors.New("slot no longer available")

	ErrInvalidStatusTransition = errors.New("invalid status transition")

	// ErrNotBookable means the business's public page is disabled
	// (trial or subscription expired). Checked before any calendar logic.
	ErrNotBookable = errors.New("business is not bookable")

	// ErrCalendarCorrupt indicates a provisioning bug: a business without
	// exactly one weekly rule per weekday. Never a user-facing error.
	ErrCalendarCorrupt = errors.New("business calendar is missing weekly rules")
)
