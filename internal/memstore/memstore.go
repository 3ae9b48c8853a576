// Package memstore is an in-memory implementation of the booking and
// business store contracts, used by tests and for running the API without
// Postgres. All methods are safe for concurrent use; the appointment
// overlap re-check and insert happen under one mutex, mirroring the
// transactional conditional insert of the Postgres store.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/turnitos/turnitos-backend/internal/booking"
	"github.com/turnitos/turnitos-backend/internal/business"
)

type Store struct {
	mu           sync.RWMutex
	businesses   map[uuid.UUID]business.Business
	emailIndex   map[string]uuid.UUID
	slugIndex    map[string]uuid.UUID
	rules        map[uuid.UUID][]booking.WeeklyHourRule
	closed       map[uuid.UUID]map[string]struct{}
	services     map[uuid.UUID]booking.Service
	appointments map[uuid.UUID]booking.Appointment
}

func New() *Store {
	return &Store{
		businesses:   make(map[uuid.UUID]business.Business),
		emailIndex:   make(map[string]uuid.UUID),
		slugIndex:    make(map[string]uuid.UUID),
		rules:        make(map[uuid.UUID][]booking.WeeklyHourRule),
		closed:       make(map[uuid.UUID]map[string]struct{}),
		services:     make(map[uuid.UUID]booking.Service),
		appointments: make(map[uuid.UUID]booking.Appointment),
	}
}

func dateKey(date time.Time) string {
	return booking.FormatDate(date)
}

// business.Store

func (s *Store) CreateBusiness(ctx context.Context, b *business.Business, week []booking.WeeklyHourRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.emailIndex[b.Email]; taken {
		return business.ErrEmailTaken
	}
	if owner, taken := s.slugIndex[b.Slug]; taken && owner != b.ID {
		return business.ErrSlugTaken
	}
	s.businesses[b.ID] = *b
	s.emailIndex[b.Email] = b.ID
	s.slugIndex[b.Slug] = b.ID
	s.rules[b.ID] = append([]booking.WeeklyHourRule(nil), week...)
	s.closed[b.ID] = make(map[string]struct{})
	return nil
}

func (s *Store) GetBusiness(ctx context.Context, id uuid.UUID) (*business.Business, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.businesses[id]
	if !ok {
		return nil, business.ErrBusinessNotFound
	}
	return &b, nil
}

func (s *Store) GetBusinessByEmail(ctx context.Context, email string) (*business.Business, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.emailIndex[email]
	if !ok {
		return nil, business.ErrBusinessNotFound
	}
	b := s.businesses[id]
	return &b, nil
}

func (s *Store) GetBusinessBySlug(ctx context.Context, slug string) (*business.Business, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.slugIndex[slug]
	if !ok {
		return nil, business.ErrBusinessNotFound
	}
	b := s.businesses[id]
	return &b, nil
}

func (s *Store) UpdateSlug(ctx context.Context, id uuid.UUID, slug string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.businesses[id]
	if !ok {
		return business.ErrBusinessNotFound
	}
	if owner, taken := s.slugIndex[slug]; taken && owner != id {
		return business.ErrSlugTaken
	}
	delete(s.slugIndex, b.Slug)
	b.Slug = slug
	b.UpdatedAt = time.Now().UTC()
	s.businesses[id] = b
	s.slugIndex[slug] = id
	return nil
}

func (s *Store) ActivateSubscription(ctx context.Context, id uuid.UUID, until time.Time, paymentRef string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.businesses[id]
	if !ok {
		return business.ErrBusinessNotFound
	}
	b.SubscriptionActive = true
	b.SubscriptionEndsAt = &until
	b.LastPaymentRef = &paymentRef
	b.UpdatedAt = time.Now().UTC()
	s.businesses[id] = b
	return nil
}

// booking.CalendarStore

func (s *Store) WeeklyRules(ctx context.Context, businessID uuid.UUID) ([]booking.WeeklyHourRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rules := append([]booking.WeeklyHourRule(nil), s.rules[businessID]...)
	sort.Slice(rules, func(i, j int) bool { return rules[i].Weekday < rules[j].Weekday })
	return rules, nil
}

func (s *Store) ReplaceWeeklyRules(ctx context.Context, businessID uuid.UUID, rules []booking.WeeklyHourRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rules[businessID] = append([]booking.WeeklyHourRule(nil), rules...)
	return nil
}

func (s *Store) ClosedDates(ctx context.Context, businessID uuid.UUID) ([]time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var dates []time.Time
	for key := range s.closed[businessID] {
		d, err := booking.ParseDate(key)
		if err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates, nil
}

func (s *Store) IsClosedDate(ctx context.Context, businessID uuid.UUID, date time.Time) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, closed := s.closed[businessID][dateKey(date)]
	return closed, nil
}

func (s *Store) AddClosedDate(ctx context.Context, businessID uuid.UUID, date time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed[businessID] == nil {
		s.closed[businessID] = make(map[string]struct{})
	}
	s.closed[businessID][dateKey(date)] = struct{}{}
	return nil
}

func (s *Store) RemoveClosedDate(ctx context.Context, businessID uuid.UUID, date time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := dateKey(date)
	if _, ok := s.closed[businessID][key]; !ok {
		return booking.ErrClosedDateNotFound
	}
	delete(s.closed[businessID], key)
	return nil
}

// booking.CatalogStore

func (s *Store) CreateService(ctx context.Context, svc *booking.Service) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.services[svc.ID] = *svc
	return nil
}

func (s *Store) UpdateService(ctx context.Context, svc *booking.Service) (*booking.Service, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.services[svc.ID]
	if !ok || existing.BusinessID != svc.BusinessID {
		return nil, booking.ErrServiceNotFound
	}
	s.services[svc.ID] = *svc
	updated := *svc
	return &updated, nil
}

func (s *Store) GetService(ctx context.Context, businessID, serviceID uuid.UUID) (*booking.Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	svc, ok := s.services[serviceID]
	if !ok || svc.BusinessID != businessID {
		return nil, booking.ErrServiceNotFound
	}
	return &svc, nil
}

func (s *Store) ListServices(ctx context.Context, businessID uuid.UUID, activeOnly bool) ([]booking.Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var services []booking.Service
	for _, svc := range s.services {
		if svc.BusinessID != businessID {
			continue
		}
		if activeOnly && !svc.Active {
			continue
		}
		services = append(services, svc)
	}
	sort.Slice(services, func(i, j int) bool { return services[i].CreatedAt.Before(services[j].CreatedAt) })
	return services, nil
}

func (s *Store) DeactivateService(ctx context.Context, businessID, serviceID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	svc, ok := s.services[serviceID]
	if !ok || svc.BusinessID != businessID {
		return booking.ErrServiceNotFound
	}
	svc.Active = false
	svc.UpdatedAt = time.Now().UTC()
	s.services[serviceID] = svc
	return nil
}

func (s *Store) CountActiveServices(ctx context.Context, businessID uuid.UUID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, svc := range s.services {
		if svc.BusinessID == businessID && svc.Active {
			n++
		}
	}
	return n, nil
}

// booking.LedgerStore

func (s *Store) InsertAppointment(ctx context.Context, appt *booking.Appointment, durationMinutes int) (*booking.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, occupied := range s.occupiedLocked(appt.BusinessID, appt.Date) {
		if booking.Overlaps(appt.StartMinute, durationMinutes, occupied.StartMinute, occupied.DurationMinutes) {
			return nil, booking.ErrSlotTaken
		}
	}
	s.appointments[appt.ID] = *appt
	created := *appt
	return &created, nil
}

func (s *Store) occupiedLocked(businessID uuid.UUID, date time.Time) []booking.OccupiedInterval {
	key := dateKey(date)
	var intervals []booking.OccupiedInterval
	for _, a := range s.appointments {
		if a.BusinessID != businessID || a.Status == booking.StatusCancelled || dateKey(a.Date) != key {
			continue
		}
		duration := booking.SlotGranularityMinutes
		if svc, ok := s.services[a.ServiceID]; ok {
			duration = svc.DurationMinutes
		}
		intervals = append(intervals, booking.OccupiedInterval{StartMinute: a.StartMinute, DurationMinutes: duration})
	}
	return intervals
}

func (s *Store) OccupiedIntervals(ctx context.Context, businessID uuid.UUID, date time.Time) ([]booking.OccupiedInterval, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.occupiedLocked(businessID, date), nil
}

func (s *Store) GetAppointment(ctx context.Context, businessID, id uuid.UUID) (*booking.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.appointments[id]
	if !ok || a.BusinessID != businessID {
		return nil, booking.ErrAppointmentNotFound
	}
	return &a, nil
}

func (s *Store) ListAppointments(ctx context.Context, businessID uuid.UUID) ([]booking.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var appts []booking.Appointment
	for _, a := range s.appointments {
		if a.BusinessID != businessID || a.Status == booking.StatusCancelled {
			continue
		}
		appts = append(appts, a)
	}
	sort.Slice(appts, func(i, j int) bool {
		if !appts[i].Date.Equal(appts[j].Date) {
			return appts[i].Date.After(appts[j].Date)
		}
		return appts[i].StartMinute > appts[j].StartMinute
	})
	return appts, nil
}

func (s *Store) UpdateAppointmentStatus(ctx context.Context, businessID, id uuid.UUID, from, to booking.AppointmentStatus) (*booking.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.appointments[id]
	if !ok || a.BusinessID != businessID || a.Status != from {
		return nil, booking.ErrAppointmentNotFound
	}
	a.Status = to
	a.UpdatedAt = time.Now().UTC()
	s.appointments[id] = a
	return &a, nil
}

func (s *Store) CountAppointments(ctx context.Context, businessID uuid.UUID) (int, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total, pending := 0, 0
	for _, a := range s.appointments {
		if a.BusinessID != businessID {
			continue
		}
		total++
		if a.Status == booking.StatusPending {
			pending++
		}
	}
	return total, pending, nil
}
