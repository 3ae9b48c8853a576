package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Resolver derives bookable start times from the calendar, the catalog and
// the ledger. It never writes; an empty result is a legitimate answer, not
// an error.
type Resolver struct {
	store Store
	now   func() time.Time
}

func NewResolver(store Store) *Resolver {
	return &Resolver{store: store, now: time.Now}
}

// AvailableSlots returns the ordered start minutes at which svc can begin
// on date. The caller is responsible for access-gate and service-active
// checks; the resolver only consults calendar state and the ledger.
func (r *Resolver) AvailableSlots(ctx context.Context, businessID uuid.UUID, svc *Service, date time.Time) ([]int, error) {
	closed, err := r.store.IsClosedDate(ctx, businessID, date)
	if err != nil {
		return nil, fmt.Errorf("check closed date: %w", err)
	}
	if closed {
		return []int{}, nil
	}

	rule, err := r.weekdayRule(ctx, businessID, date)
	if err != nil {
		return nil, err
	}
	if !rule.IsOpen {
		return []int{}, nil
	}

	occupied, err := r.store.OccupiedIntervals(ctx, businessID, date)
	if err != nil {
		return nil, fmt.Errorf("load occupied intervals: %w", err)
	}

	return candidateStarts(rule, svc.DurationMinutes, occupied, pastCutoff(date, r.now().UTC())), nil
}

func (r *Resolver) weekdayRule(ctx context.Context, businessID uuid.UUID, date time.Time) (WeeklyHourRule, error) {
	rules, err := r.store.WeeklyRules(ctx, businessID)
	if err != nil {
		return WeeklyHourRule{}, fmt.Errorf("load weekly rules: %w", err)
	}
	want := WeekdayIndex(date)
	for _, rule := range rules {
		if rule.Weekday == want {
			return rule, nil
		}
	}
	return WeeklyHourRule{}, fmt.Errorf("%w: business %s weekday %d", ErrCalendarCorrupt, businessID, want)
}

// candidateStarts generates 30-minute-aligned starts within the open window
// and drops any that overlap an occupied interval or start at or before
// cutoff. A duration that is not a multiple of the granularity still anchors
// to 30-minute boundaries and may spill into a later half-slot as long as it
// ends by closing time. cutoff < 0 disables past filtering.
func candidateStarts(rule WeeklyHourRule, durationMinutes int, occupied []OccupiedInterval, cutoff int) []int {
	starts := []int{}
	for start := rule.OpenMinute; start+durationMinutes <= rule.CloseMinute; start += SlotGranularityMinutes {
		if start <= cutoff {
			continue
		}
		if overlapsAny(start, durationMinutes, occupied) {
			continue
		}
		starts = append(starts, start)
	}
	return starts
}

func overlapsAny(start, duration int, occupied []OccupiedInterval) bool {
	for _, o := range occupied {
		if Overlaps(start, duration, o.StartMinute, o.DurationMinutes) {
			return true
		}
	}
	return false
}

// pastCutoff returns the minute of day below which slots on date have
// already elapsed, or -1 when date is not today.
func pastCutoff(date, now time.Time) int {
	if date.Year() != now.Year() || date.YearDay() != now.YearDay() {
		return -1
	}
	return now.Hour()*60 + now.Minute()
}
