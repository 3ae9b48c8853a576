package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Calendar manages weekly hour rules and closed-date overrides. Every
// business carries exactly seven rules from provisioning onward; they are
// only ever replaced as a full week.
type Calendar struct {
	store  Store
	logger *zap.Logger
}

func NewCalendar(store Store, logger *zap.Logger) *Calendar {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Calendar{store: store, logger: logger}
}

// WeeklyRules returns the seven rules ordered by weekday. Anything other
// than seven is a provisioning bug, surfaced as ErrCalendarCorrupt.
func (c *Calendar) WeeklyRules(ctx context.Context, businessID uuid.UUID) ([]WeeklyHourRule, error) {
	rules, err := c.store.WeeklyRules(ctx, businessID)
	if err != nil {
		return nil, fmt.Errorf("load weekly rules: %w", err)
	}
	if len(rules) != 7 {
		return nil, fmt.Errorf("%w: business %s has %d rules", ErrCalendarCorrupt, businessID, len(rules))
	}
	return rules, nil
}

// ReplaceWeeklyRules validates and swaps the full week. Partial updates are
// not allowed; callers must always submit all seven rules.
func (c *Calendar) ReplaceWeeklyRules(ctx context.Context, businessID uuid.UUID, rules []WeeklyHourRule) ([]WeeklyHourRule, error) {
	if err := validateWeek(rules); err != nil {
		return nil, err
	}
	for i := range rules {
		rules[i].BusinessID = businessID
		if !rules[i].IsOpen {
			rules[i].OpenMinute = 0
			rules[i].CloseMinute = 0
		}
	}
	if err := c.store.ReplaceWeeklyRules(ctx, businessID, rules); err != nil {
		return nil, fmt.Errorf("replace weekly rules: %w", err)
	}
	c.logger.Info("weekly hours replaced", zap.String("business_id", businessID.String()))
	return c.WeeklyRules(ctx, businessID)
}

func validateWeek(rules []WeeklyHourRule) error {
	if len(rules) != 7 {
		return fmt.Errorf("%w: expected 7 weekly rules, got %d", ErrValidation, len(rules))
	}
	var seen [7]bool
	for _, rule := range rules {
		if rule.Weekday < 0 || rule.Weekday > 6 {
			return fmt.Errorf("%w: weekday %d out of range", ErrValidation, rule.Weekday)
		}
		if seen[rule.Weekday] {
			return fmt.Errorf("%w: duplicate rule for weekday %d", ErrValidation, rule.Weekday)
		}
		seen[rule.Weekday] = true
		if !rule.IsOpen {
			continue
		}
		if rule.OpenMinute < 0 || rule.CloseMinute > minutesPerDay {
			return fmt.Errorf("%w: weekday %d hours out of range", ErrValidation, rule.Weekday)
		}
		if rule.CloseMinute <= rule.OpenMinute {
			return fmt.Errorf("%w: weekday %d close_time must be after open_time", ErrValidation, rule.Weekday)
		}
	}
	return nil
}

func (c *Calendar) ClosedDates(ctx context.Context, businessID uuid.UUID) ([]time.Time, error) {
	dates, err := c.store.ClosedDates(ctx, businessID)
	if err != nil {
		return nil, fmt.Errorf("list closed dates: %w", err)
	}
	return dates, nil
}

// AddClosedDate marks a date fully closed regardless of the weekly rule.
// Adding an already-closed date is a no-op.
func (c *Calendar) AddClosedDate(ctx context.Context, businessID uuid.UUID, date time.Time) error {
	if err := c.store.AddClosedDate(ctx, businessID, date); err != nil {
		return fmt.Errorf("add closed date: %w", err)
	}
	c.logger.Info("closed date added",
		zap.String("business_id", businessID.String()),
		zap.String("date", FormatDate(date)))
	return nil
}

func (c *Calendar) RemoveClosedDate(ctx context.Context, businessID uuid.UUID, date time.Time) error {
	if err := c.store.RemoveClosedDate(ctx, businessID, date); err != nil {
		return err
	}
	c.logger.Info("closed date removed",
		zap.String("business_id", businessID.String()),
		zap.String("date", FormatDate(date)))
	return nil
}
