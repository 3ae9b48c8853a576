package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/turnitos/turnitos-backend/internal/booking"
)

// Auth

func (h *Handlers) register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}

	b, err := h.businesses.Register(r.Context(), req.Email, req.Password, req.BusinessName)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	token, err := h.tokens.Issue(b.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, AuthResponse{Token: token, Business: toBusinessResponse(b)})
}

func (h *Handlers) login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}

	b, err := h.businesses.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	token, err := h.tokens.Issue(b.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, AuthResponse{Token: token, Business: toBusinessResponse(b)})
}

// Dashboard and subscription

func (h *Handlers) dashboardStats(w http.ResponseWriter, r *http.Request) {
	b := businessFrom(r.Context())

	stats, err := h.coordinator.Stats(r.Context(), b.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, DashboardStatsResponse{
		TotalAppointments:   stats.TotalAppointments,
		PendingAppointments: stats.PendingAppointments,
		TotalServices:       stats.TotalServices,
		TrialDaysLeft:       b.TrialDaysLeft(time.Now().UTC()),
	})
}

func (h *Handlers) subscriptionStatus(w http.ResponseWriter, r *http.Request) {
	b := businessFrom(r.Context())

	writeJSON(w, http.StatusOK, SubscriptionStatusResponse{
		SubscriptionActive: b.SubscriptionActive,
		TrialDaysLeft:      b.TrialDaysLeft(time.Now().UTC()),
		SubscriptionEndsAt: b.SubscriptionEndsAt,
	})
}

// paymentWebhook handles a payment provider notification. Only approved
// payment events flip subscription state; everything else is acknowledged
// and ignored so the provider does not retry forever.
func (h *Handlers) paymentWebhook(w http.ResponseWriter, r *http.Request) {
	var req PaymentWebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}

	if req.Type != "payment" || req.Status != "approved" {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	businessID, err := uuid.Parse(req.BusinessID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_business_id", "business_id must be a valid UUID")
		return
	}

	if _, err := h.businesses.ActivateSubscription(r.Context(), businessID, req.PaymentID); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Business hours

func (h *Handlers) getBusinessHours(w http.ResponseWriter, r *http.Request) {
	b := businessFrom(r.Context())

	rules, err := h.calendar.WeeklyRules(r.Context(), b.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toHourRulePayloads(rules))
}

func (h *Handlers) putBusinessHours(w http.ResponseWriter, r *http.Request) {
	b := businessFrom(r.Context())

	var payloads []HourRulePayload
	if err := json.NewDecoder(r.Body).Decode(&payloads); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}

	rules := make([]booking.WeeklyHourRule, 0, len(payloads))
	for _, p := range payloads {
		rule, err := p.toRule()
		if err != nil {
			writeDomainError(w, err)
			return
		}
		rules = append(rules, rule)
	}

	updated, err := h.calendar.ReplaceWeeklyRules(r.Context(), b.ID, rules)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toHourRulePayloads(updated))
}

// Closed dates

func (h *Handlers) listClosedDates(w http.ResponseWriter, r *http.Request) {
	b := businessFrom(r.Context())

	dates, err := h.calendar.ClosedDates(r.Context(), b.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	out := make([]ClosedDateResponse, 0, len(dates))
	for _, d := range dates {
		out = append(out, ClosedDateResponse{Date: booking.FormatDate(d)})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) addClosedDate(w http.ResponseWriter, r *http.Request) {
	b := businessFrom(r.Context())

	var req ClosedDateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}

	date, err := booking.ParseDate(req.Date)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if err := h.calendar.AddClosedDate(r.Context(), b.ID, date); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ClosedDateResponse{Date: req.Date})
}

func (h *Handlers) removeClosedDate(w http.ResponseWriter, r *http.Request) {
	b := businessFrom(r.Context())

	date, err := booking.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if err := h.calendar.RemoveClosedDate(r.Context(), b.ID, date); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Services

func (h *Handlers) listServices(w http.ResponseWriter, r *http.Request) {
	b := businessFrom(r.Context())

	services, err := h.catalog.List(r.Context(), b.ID, true)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toServiceResponses(services))
}

func (h *Handlers) createService(w http.ResponseWriter, r *http.Request) {
	b := businessFrom(r.Context())

	var req ServiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}

	svc, err := h.catalog.Create(r.Context(), b.ID, req.Name, req.Description, req.DurationMinutes, req.Price)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toServiceResponse(svc))
}

func (h *Handlers) updateService(w http.ResponseWriter, r *http.Request) {
	b := businessFrom(r.Context())

	serviceID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_service_id", "id must be a valid UUID")
		return
	}

	var req ServiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}

	svc, err := h.catalog.Update(r.Context(), b.ID, serviceID, req.Name, req.Description, req.DurationMinutes, req.Price)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toServiceResponse(svc))
}

func (h *Handlers) deleteService(w http.ResponseWriter, r *http.Request) {
	b := businessFrom(r.Context())

	serviceID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_service_id", "id must be a valid UUID")
		return
	}

	if err := h.catalog.SoftDelete(r.Context(), b.ID, serviceID); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Appointments

func (h *Handlers) listAppointments(w http.ResponseWriter, r *http.Request) {
	b := businessFrom(r.Context())

	appts, err := h.coordinator.List(r.Context(), b.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponses(appts))
}

func (h *Handlers) adminCreateAppointment(w http.ResponseWriter, r *http.Request) {
	b := businessFrom(r.Context())

	req, ok := decodeBookRequest(w, r, b.ID)
	if !ok {
		return
	}

	appt, err := h.coordinator.AdminBook(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
}

func (h *Handlers) confirmAppointment(w http.ResponseWriter, r *http.Request) {
	b := businessFrom(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
		return
	}

	appt, err := h.coordinator.Confirm(r.Context(), b.ID, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (h *Handlers) cancelAppointment(w http.ResponseWriter, r *http.Request) {
	b := businessFrom(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
		return
	}

	if err := h.coordinator.Cancel(r.Context(), b.ID, id); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Slug

func (h *Handlers) getSlug(w http.ResponseWriter, r *http.Request) {
	b := businessFrom(r.Context())
	writeJSON(w, http.StatusOK, SlugResponse{CustomSlug: b.Slug})
}

func (h *Handlers) setSlug(w http.ResponseWriter, r *http.Request) {
	b := businessFrom(r.Context())

	var req SlugRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}

	if err := h.businesses.SetSlug(r.Context(), b.ID, req.CustomSlug); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SlugResponse{CustomSlug: req.CustomSlug})
}

// decodeBookRequest parses the shared appointment payload and converts the
// wire formats into engine types.
func decodeBookRequest(w http.ResponseWriter, r *http.Request, businessID uuid.UUID) (booking.BookRequest, bool) {
	var req AppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return booking.BookRequest{}, false
	}

	serviceID, err := uuid.Parse(req.ServiceID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_service_id", "service_id must be a valid UUID")
		return booking.BookRequest{}, false
	}

	date, err := booking.ParseDate(req.Date)
	if err != nil {
		writeDomainError(w, err)
		return booking.BookRequest{}, false
	}

	startMinute, err := booking.ParseMinute(req.Time)
	if err != nil {
		writeDomainError(w, err)
		return booking.BookRequest{}, false
	}

	return booking.BookRequest{
		BusinessID:  businessID,
		ServiceID:   serviceID,
		Date:        date,
		StartMinute: startMinute,
		ClientName:  req.ClientName,
		ClientPhone: req.ClientPhone,
		ClientEmail: req.ClientEmail,
	}, true
}
