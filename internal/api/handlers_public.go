package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/turnitos/turnitos-backend/internal/booking"
	"github.com/turnitos/turnitos-backend/internal/business"
)

// resolveBookable looks up the business behind a public slug and applies
// the access gate before any calendar logic runs.
func (h *Handlers) resolveBookable(w http.ResponseWriter, r *http.Request) (*business.Business, bool) {
	slug := chi.URLParam(r, "slug")

	b, err := h.businesses.BySlug(r.Context(), slug)
	if err != nil {
		writeDomainError(w, err)
		return nil, false
	}
	if !b.Bookable(time.Now().UTC()) {
		writeDomainError(w, booking.ErrNotBookable)
		return nil, false
	}
	return b, true
}

func (h *Handlers) publicInfo(w http.ResponseWriter, r *http.Request) {
	b, ok := h.resolveBookable(w, r)
	if !ok {
		return
	}

	services, err := h.catalog.List(r.Context(), b.ID, true)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	rules, err := h.calendar.WeeklyRules(r.Context(), b.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, PublicInfoResponse{
		BusinessName:  b.Name,
		Services:      toServiceResponses(services),
		BusinessHours: toHourRulePayloads(rules),
	})
}

func (h *Handlers) publicSlots(w http.ResponseWriter, r *http.Request) {
	b, ok := h.resolveBookable(w, r)
	if !ok {
		return
	}

	serviceID, err := uuid.Parse(r.URL.Query().Get("service_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_service_id", "service_id must be a valid UUID")
		return
	}

	date, err := booking.ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	svc, err := h.catalog.Get(r.Context(), b.ID, serviceID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !svc.Active {
		writeDomainError(w, booking.ErrServiceNotFound)
		return
	}

	starts, err := h.resolver.AvailableSlots(r.Context(), b.ID, svc, date)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	slots := make([]string, 0, len(starts))
	for _, s := range starts {
		slots = append(slots, booking.FormatMinute(s))
	}
	writeJSON(w, http.StatusOK, SlotsResponse{Slots: slots})
}

func (h *Handlers) publicBook(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	// The coordinator re-applies the access gate; resolving the slug first
	// keeps unknown businesses a 404 rather than a 403.
	b, err := h.businesses.BySlug(r.Context(), slug)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	req, ok := decodeBookRequest(w, r, b.ID)
	if !ok {
		return
	}

	appt, err := h.coordinator.Book(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
}
