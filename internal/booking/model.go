package booking

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SlotGranularityMinutes is the fixed step at which candidate start times
// are generated. It is business-wide and not configurable per service.
const SlotGranularityMinutes = 30

const minutesPerDay = 24 * 60

type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCancelled AppointmentStatus = "cancelled"
)

// Service is a bookable offering of one business. Inactive services are
// hidden from the public catalog and from slot generation but are never
// deleted while appointments reference them.
type Service struct {
	ID              uuid.UUID
	BusinessID      uuid.UUID
	Name            string
	Description     string
	DurationMinutes int
	Price           float64
	Active          bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// WeeklyHourRule is the recurring open/closed schedule for one weekday.
// Weekday numbering is 0=Monday .. 6=Sunday. OpenMinute and CloseMinute
// are minutes since midnight and only meaningful when IsOpen is true.
type WeeklyHourRule struct {
	BusinessID  uuid.UUID
	Weekday     int
	IsOpen      bool
	OpenMinute  int
	CloseMinute int
}

type Appointment struct {
	ID          uuid.UUID
	BusinessID  uuid.UUID
	ServiceID   uuid.UUID
	ServiceName string // denormalized for display only
	ClientName  string
	ClientPhone string
	ClientEmail string
	Date        time.Time // calendar date, UTC midnight
	StartMinute int
	Status      AppointmentStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// OccupiedInterval is one non-cancelled appointment's footprint on a date.
// Duration is read live from the appointment's service, not from a snapshot.
type OccupiedInterval struct {
	StartMinute     int
	DurationMinutes int
}

const dateLayout = "2006-01-02"

// ParseDate parses a "YYYY-MM-DD" calendar date into a UTC midnight time.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrValidation)
	}
	return t, nil
}

func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

// ParseMinute parses a "HH:MM" time of day into minutes since midnight.
func ParseMinute(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("%w: time must be HH:MM", ErrValidation)
	}
	return t.Hour()*60 + t.Minute(), nil
}

func FormatMinute(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// WeekdayIndex converts Go's Sunday-based weekday to the 0=Monday..6=Sunday
// numbering used by WeeklyHourRule.
func WeekdayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// DefaultWeek is the schedule provisioned for a new business: Monday to
// Friday 09:00-18:00, weekend closed. Exactly seven rules.
func DefaultWeek(businessID uuid.UUID) []WeeklyHourRule {
	rules := make([]WeeklyHourRule, 7)
	for day := 0; day < 7; day++ {
		rules[day] = WeeklyHourRule{
			BusinessID:  businessID,
			Weekday:     day,
			IsOpen:      day < 5,
			OpenMinute:  9 * 60,
			CloseMinute: 18 * 60,
		}
		if !rules[day].IsOpen {
			rules[day].OpenMinute = 0
			rules[day].CloseMinute = 0
		}
	}
	return rules
}

// Overlaps reports whether two half-open intervals [aStart, aStart+aDur)
// and [bStart, bStart+bDur) intersect. An appointment ending exactly when
// another begins is not a conflict.
func Overlaps(aStart, aDur, bStart, bDur int) bool {
	return aStart < bStart+bDur && bStart < aStart+aDur
}
