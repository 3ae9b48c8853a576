package booking_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turnitos/turnitos-backend/internal/booking"
	"github.com/turnitos/turnitos-backend/internal/memstore"
)

func fullWeek(open, close int) []booking.WeeklyHourRule {
	rules := make([]booking.WeeklyHourRule, 7)
	for day := 0; day < 7; day++ {
		rules[day] = booking.WeeklyHourRule{Weekday: day, IsOpen: true, OpenMinute: open, CloseMinute: close}
	}
	return rules
}

func TestReplaceWeeklyRules(t *testing.T) {
	store := memstore.New()
	calendar := booking.NewCalendar(store, nil)
	bizID := uuid.New()

	rules := fullWeek(480, 1200)
	rules[5].IsOpen = false
	rules[6].IsOpen = false

	updated, err := calendar.ReplaceWeeklyRules(context.Background(), bizID, rules)
	require.NoError(t, err)
	require.Len(t, updated, 7)

	for _, rule := range updated {
		assert.Equal(t, bizID, rule.BusinessID)
		if rule.Weekday >= 5 {
			// Closed days carry no hours even when the caller sent some.
			assert.False(t, rule.IsOpen)
			assert.Zero(t, rule.OpenMinute)
			assert.Zero(t, rule.CloseMinute)
		} else {
			assert.Equal(t, 480, rule.OpenMinute)
			assert.Equal(t, 1200, rule.CloseMinute)
		}
	}
}

func TestReplaceWeeklyRulesValidation(t *testing.T) {
	store := memstore.New()
	calendar := booking.NewCalendar(store, nil)
	bizID := uuid.New()

	_, err := calendar.ReplaceWeeklyRules(context.Background(), bizID, fullWeek(540, 1080)[:6])
	assert.ErrorIs(t, err, booking.ErrValidation)

	dupes := fullWeek(540, 1080)
	dupes[6].Weekday = 0
	_, err = calendar.ReplaceWeeklyRules(context.Background(), bizID, dupes)
	assert.ErrorIs(t, err, booking.ErrValidation)

	outOfRange := fullWeek(540, 1080)
	outOfRange[3].Weekday = 9
	_, err = calendar.ReplaceWeeklyRules(context.Background(), bizID, outOfRange)
	assert.ErrorIs(t, err, booking.ErrValidation)

	backwards := fullWeek(540, 1080)
	backwards[2].OpenMinute = 600
	backwards[2].CloseMinute = 600
	_, err = calendar.ReplaceWeeklyRules(context.Background(), bizID, backwards)
	assert.ErrorIs(t, err, booking.ErrValidation)

	tooLate := fullWeek(540, 1500)
	_, err = calendar.ReplaceWeeklyRules(context.Background(), bizID, tooLate)
	assert.ErrorIs(t, err, booking.ErrValidation)
}

func TestWeeklyRulesRequiresProvisionedWeek(t *testing.T) {
	store := memstore.New()
	calendar := booking.NewCalendar(store, nil)

	_, err := calendar.WeeklyRules(context.Background(), uuid.New())
	assert.ErrorIs(t, err, booking.ErrCalendarCorrupt)
}

func TestClosedDates(t *testing.T) {
	store := memstore.New()
	calendar := booking.NewCalendar(store, nil)
	bizID := uuid.New()

	date, err := booking.ParseDate("2026-12-25")
	require.NoError(t, err)

	require.NoError(t, calendar.AddClosedDate(context.Background(), bizID, date))
	// Closing an already-closed date is a no-op, not an error.
	require.NoError(t, calendar.AddClosedDate(context.Background(), bizID, date))

	dates, err := calendar.ClosedDates(context.Background(), bizID)
	require.NoError(t, err)
	require.Len(t, dates, 1)
	assert.Equal(t, "2026-12-25", booking.FormatDate(dates[0]))

	require.NoError(t, calendar.RemoveClosedDate(context.Background(), bizID, date))
	err = calendar.RemoveClosedDate(context.Background(), bizID, date)
	assert.ErrorIs(t, err, booking.ErrClosedDateNotFound)
}
