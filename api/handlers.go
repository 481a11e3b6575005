/*
handlers.go - HTTP handlers for the leave engine

PURPOSE:
  Exposes the engine via REST. Handles request parsing, actor
  resolution, and error-to-status mapping; all rules live in the domain
  packages.

ENDPOINTS:
  Calendar:
    GET    /api/calendar/events/{year}/{month}  List a month's records
    GET    /api/calendar/events/{id}            Record detail
    POST   /api/calendar/events                 Register leave/holiday
    PATCH  /api/calendar/events/{id}            Patch a record
    DELETE /api/calendar/events/{id}            Delete a record

  Members:
    GET    /api/members/balances                All balance summaries
    GET    /api/members/{id}/balance            One member's balance

  Admin:
    POST   /api/admin/feed/sync                 Trigger holiday feed import

ACTOR RESOLUTION:
  The acting member arrives in the X-Member-ID header. There is no
  session layer here; authentication is an outer concern.

ERROR MAPPING:
  400 validation, 403 forbidden, 404 not found, 502 external calendar
  failures (with the taxonomy's user-facing reason), 500 everything else
  including consistency errors needing manual reconciliation.

SEE ALSO:
  - dto.go: request/response shapes
  - server.go: routing and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/leavebridge/engine/calendar"
	"github.com/leavebridge/engine/feed"
	"github.com/leavebridge/engine/leave"
)

// =============================================================================
// HANDLER
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service  *leave.Service
	Members  leave.MemberStore
	Balances *leave.BalanceReporter
	Importer *feed.Importer // nil when no feed source is configured

	// FeedYearsAhead is how many years each feed sync covers.
	FeedYearsAhead int
}

// =============================================================================
// CALENDAR HANDLERS
// =============================================================================

// ListMonth returns every record intersecting the requested month.
func (h *Handler) ListMonth(w http.ResponseWriter, r *http.Request) {
	year, err1 := strconv.Atoi(chi.URLParam(r, "year"))
	month, err2 := strconv.Atoi(chi.URLParam(r, "month"))
	if err1 != nil || err2 != nil || month < 1 || month > 12 {
		writeError(w, http.StatusBadRequest, "bad year/month")
		return
	}

	records, err := h.Service.ListMonth(r.Context(), year, time.Month(month))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	dtos := make([]RecordDTO, 0, len(records))
	for _, rec := range records {
		dtos = append(dtos, recordDTO(rec))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetRecord returns one record.
func (h *Handler) GetRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(w, r)
	if !ok {
		return
	}
	rec, err := h.Service.Get(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recordDTO(rec))
}

// CreateRecord registers a leave or holiday for the acting member.
func (h *Handler) CreateRecord(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var body CreateLeaveRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req, err := body.toDomain()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := h.Service.Create(r.Context(), req, actor)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, recordDTO(rec))
}

// PatchRecord applies a partial update.
func (h *Handler) PatchRecord(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := recordID(w, r)
	if !ok {
		return
	}

	var body PatchLeaveRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	patch, err := body.toDomain()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := h.Service.Update(r.Context(), id, patch, actor)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recordDTO(rec))
}

// DeleteRecord removes a record (and its mirror).
func (h *Handler) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := recordID(w, r)
	if !ok {
		return
	}

	if err := h.Service.Delete(r.Context(), id, actor); err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// MEMBER HANDLERS
// =============================================================================

// AllBalances returns every member's balance summary.
func (h *Handler) AllBalances(w http.ResponseWriter, r *http.Request) {
	balances, err := h.Balances.AllBalances(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	dtos := make([]BalanceDTO, 0, len(balances))
	for _, b := range balances {
		dtos = append(dtos, balanceDTO(b))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// MemberBalance returns one member's balance summary.
func (h *Handler) MemberBalance(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad member id")
		return
	}
	member, err := h.Members.FindMember(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	balance, err := h.Balances.BalanceFor(r.Context(), member)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, balanceDTO(balance))
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// SyncFeed imports the holiday feed for the configured years.
func (h *Handler) SyncFeed(w http.ResponseWriter, r *http.Request) {
	if h.Importer == nil {
		writeError(w, http.StatusServiceUnavailable, "no holiday feed configured")
		return
	}
	created, err := h.Importer.SyncYears(r.Context(), time.Now().Year(), h.FeedYearsAhead)
	if err != nil {
		logrus.WithError(err).Error("feed sync failed")
		h.writeDomainError(w, err)
		return
	}
	dtos := make([]RecordDTO, 0, len(created))
	for _, rec := range created {
		dtos = append(dtos, recordDTO(rec))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// SHARED HELPERS
// =============================================================================

func (h *Handler) actor(w http.ResponseWriter, r *http.Request) (*leave.Member, bool) {
	idStr := r.Header.Get("X-Member-ID")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing or bad X-Member-ID header")
		return nil, false
	}
	member, err := h.Members.FindMember(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, err)
		return nil, false
	}
	return member, true
}

func recordID(w http.ResponseWriter, r *http.Request) (leave.RecordID, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad record id")
		return 0, false
	}
	return leave.RecordID(id), true
}

func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, leave.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, leave.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, leave.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, leave.ErrConsistency):
		logrus.WithError(err).Error("manual reconciliation required")
		writeError(w, http.StatusInternalServerError, err.Error())
	case errors.Is(err, calendar.ErrExternal):
		writeError(w, http.StatusBadGateway, calendar.ClassOf(err).Reason())
	default:
		logrus.WithError(err).Error("internal error")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorDTO{Error: msg})
}
