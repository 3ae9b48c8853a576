package api

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/turnitos/turnitos-backend/internal/booking"
	"github.com/turnitos/turnitos-backend/internal/business"
)

type RegisterRequest struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	BusinessName string `json:"business_name"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Token    string           `json:"token"`
	Business BusinessResponse `json:"business"`
}

type BusinessResponse struct {
	ID                 uuid.UUID  `json:"id"`
	Email              string     `json:"email"`
	Name               string     `json:"name"`
	Slug               string     `json:"slug"`
	TrialEndsAt        time.Time  `json:"trial_ends_at"`
	SubscriptionActive bool       `json:"subscription_active"`
	SubscriptionEndsAt *time.Time `json:"subscription_ends_at,omitempty"`
}

func toBusinessResponse(b *business.Business) BusinessResponse {
	return BusinessResponse{
		ID:                 b.ID,
		Email:              b.Email,
		Name:               b.Name,
		Slug:               b.Slug,
		TrialEndsAt:        b.TrialEndsAt,
		SubscriptionActive: b.SubscriptionActive,
		SubscriptionEndsAt: b.SubscriptionEndsAt,
	}
}

// HourRulePayload is one weekday's rule on the wire. open_time and
// close_time are "HH:MM" and present only when is_open.
type HourRulePayload struct {
	DayOfWeek int     `json:"day_of_week"`
	IsOpen    bool    `json:"is_open"`
	OpenTime  *string `json:"open_time"`
	CloseTime *string `json:"close_time"`
}

func (p HourRulePayload) toRule() (booking.WeeklyHourRule, error) {
	rule := booking.WeeklyHourRule{Weekday: p.DayOfWeek, IsOpen: p.IsOpen}
	if !p.IsOpen {
		return rule, nil
	}
	if p.OpenTime == nil || p.CloseTime == nil {
		return rule, fmt.Errorf("%w: open day %d requires open_time and close_time", booking.ErrValidation, p.DayOfWeek)
	}
	var err error
	if rule.OpenMinute, err = booking.ParseMinute(*p.OpenTime); err != nil {
		return rule, err
	}
	if rule.CloseMinute, err = booking.ParseMinute(*p.CloseTime); err != nil {
		return rule, err
	}
	return rule, nil
}

func toHourRulePayload(r booking.WeeklyHourRule) HourRulePayload {
	p := HourRulePayload{DayOfWeek: r.Weekday, IsOpen: r.IsOpen}
	if r.IsOpen {
		open := booking.FormatMinute(r.OpenMinute)
		close := booking.FormatMinute(r.CloseMinute)
		p.OpenTime = &open
		p.CloseTime = &close
	}
	return p
}

func toHourRulePayloads(rules []booking.WeeklyHourRule) []HourRulePayload {
	out := make([]HourRulePayload, 0, len(rules))
	for _, r := range rules {
		out = append(out, toHourRulePayload(r))
	}
	return out
}

type ClosedDateRequest struct {
	Date string `json:"date"`
}

type ClosedDateResponse struct {
	Date string `json:"date"`
}

type ServiceRequest struct {
	Name            string  `json:"name"`
	Description     string  `json:"description"`
	DurationMinutes int     `json:"duration_minutes"`
	Price           float64 `json:"price"`
}

type ServiceResponse struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	DurationMinutes int       `json:"duration_minutes"`
	Price           float64   `json:"price"`
	Active          bool      `json:"active"`
}

func toServiceResponse(s *booking.Service) ServiceResponse {
	return ServiceResponse{
		ID:              s.ID,
		Name:            s.Name,
		Description:     s.Description,
		DurationMinutes: s.DurationMinutes,
		Price:           s.Price,
		Active:          s.Active,
	}
}

func toServiceResponses(services []booking.Service) []ServiceResponse {
	out := make([]ServiceResponse, 0, len(services))
	for i := range services {
		out = append(out, toServiceResponse(&services[i]))
	}
	return out
}

type AppointmentRequest struct {
	ServiceID   string `json:"service_id"`
	ClientName  string `json:"client_name"`
	ClientPhone string `json:"client_phone"`
	ClientEmail string `json:"client_email"`
	Date        string `json:"date"`
	Time        string `json:"time"`
}

type AppointmentResponse struct {
	ID          uuid.UUID `json:"id"`
	ServiceID   uuid.UUID `json:"service_id"`
	ServiceName string    `json:"service_name"`
	ClientName  string    `json:"client_name"`
	ClientPhone string    `json:"client_phone"`
	ClientEmail string    `json:"client_email"`
	Date        string    `json:"date"`
	Time        string    `json:"time"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

func toAppointmentResponse(a *booking.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:          a.ID,
		ServiceID:   a.ServiceID,
		ServiceName: a.ServiceName,
		ClientName:  a.ClientName,
		ClientPhone: a.ClientPhone,
		ClientEmail: a.ClientEmail,
		Date:        booking.FormatDate(a.Date),
		Time:        booking.FormatMinute(a.StartMinute),
		Status:      string(a.Status),
		CreatedAt:   a.CreatedAt,
	}
}

func toAppointmentResponses(appts []booking.Appointment) []AppointmentResponse {
	out := make([]AppointmentResponse, 0, len(appts))
	for i := range appts {
		out = append(out, toAppointmentResponse(&appts[i]))
	}
	return out
}

type PublicInfoResponse struct {
	BusinessName  string            `json:"business_name"`
	Services      []ServiceResponse `json:"services"`
	BusinessHours []HourRulePayload `json:"business_hours"`
}

type SlotsResponse struct {
	Slots []string `json:"slots"`
}

type SlugResponse struct {
	CustomSlug string `json:"custom_slug"`
}

type SlugRequest struct {
	CustomSlug string `json:"custom_slug"`
}

type SubscriptionStatusResponse struct {
	SubscriptionActive bool       `json:"subscription_active"`
	TrialDaysLeft      int        `json:"trial_days_left"`
	SubscriptionEndsAt *time.Time `json:"subscription_ends_at,omitempty"`
}

type DashboardStatsResponse struct {
	TotalAppointments   int `json:"total_appointments"`
	PendingAppointments int `json:"pending_appointments"`
	TotalServices       int `json:"total_services"`
	TrialDaysLeft       int `json:"trial_days_left"`
}

type PaymentWebhookRequest struct {
	Type       string `json:"type"`
	PaymentID  string `json:"payment_id"`
	Status     string `json:"status"`
	BusinessID string `json:"business_id"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
