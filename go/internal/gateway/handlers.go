package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/clubkit/clubkit/go/clients/rosterclient"
	"github.com/clubkit/clubkit/go/internal/attendance"
	"github.com/clubkit/clubkit/go/internal/models"
	"github.com/clubkit/clubkit/go/internal/schedule"
)

// Handler exposes the scheduling and attendance operations over JSON/HTTP.
// Authentication lives upstream; the trusted API layer forwards the acting
// user in X-Actor-ID.
type Handler struct {
	schedule   *schedule.App
	attendance *attendance.App
}

// NewHandler creates the gateway handler.
func NewHandler(scheduleApp *schedule.App, attendanceApp *attendance.App) *Handler {
	return &Handler{
		schedule:   scheduleApp,
		attendance: attendanceApp,
	}
}

// Register mounts all routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/occurrences", h.handleCreate)
	mux.HandleFunc("GET /v1/occurrences", h.handleList)
	mux.HandleFunc("GET /v1/occurrences/{id}", h.handleGet)
	mux.HandleFunc("PATCH /v1/occurrences/{id}", h.handleEdit)
	mux.HandleFunc("POST /v1/occurrences/{id}/cancel", h.handleCancel)
	mux.HandleFunc("POST /v1/occurrences/{id}/complete", h.handleComplete)
	mux.HandleFunc("PUT /v1/teams/{teamID}/occurrences/{id}/attendance", h.handleRecordAttendance)
	mux.HandleFunc("GET /v1/occurrences/{id}/attendance", h.handleGetAttendance)
}

type createOccurrenceRequest struct {
	Title        string               `json:"title"`
	Description  string               `json:"description"`
	TeamID       uuid.UUID            `json:"team_id"`
	Kind         models.EventKind     `json:"kind"`
	Date         string               `json:"date"`
	StartTime    models.TimeOfDay     `json:"start_time"`
	EndTime      models.TimeOfDay     `json:"end_time"`
	Coaches      []uuid.UUID          `json:"coaches"`
	Participants []models.Participant `json:"participants"`
	Recurrence   models.Recurrence    `json:"recurrence"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(w, r)
	if !ok {
		return
	}

	var req createOccurrenceRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	if req.Recurrence == "" {
		req.Recurrence = models.RecurrenceNone
	}

	occ, err := h.schedule.CreateOccurrence(r.Context(), actor, schedule.CreateOccurrenceRequest{
		Title:        req.Title,
		Description:  req.Description,
		TeamID:       req.TeamID,
		Kind:         req.Kind,
		Date:         date,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		Coaches:      req.Coaches,
		Participants: req.Participants,
		Recurrence:   req.Recurrence,
	})
	if err != nil {
		writeScheduleError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, occ)
}

type editOccurrenceRequest struct {
	schedule.OccurrencePatch
	Date *string `json:"date"`
}

func (h *Handler) handleEdit(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	var req editOccurrenceRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	patch := req.OccurrencePatch
	if req.Date != nil {
		date, err := time.Parse("2006-01-02", *req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		patch.Date = &date
	}

	scope := r.URL.Query().Get("scope")
	switch scope {
	case "", string(schedule.EditScopeSingle):
		occ, err := h.schedule.EditSingle(r.Context(), actor, id, patch)
		if err != nil {
			writeScheduleError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, occ)

	case string(schedule.EditScopeSeries):
		occ, err := h.schedule.Get(r.Context(), id)
		if err != nil {
			writeScheduleError(w, err)
			return
		}
		if occ.SeriesID == nil {
			writeError(w, http.StatusBadRequest, "occurrence is not part of a series")
			return
		}
		if patch.Date != nil {
			writeError(w, http.StatusBadRequest, "a series edit cannot change dates")
			return
		}
		count, err := h.schedule.EditSeries(r.Context(), actor, *occ.SeriesID, schedule.SeriesPatch{
			Title:        patch.Title,
			Description:  patch.Description,
			Kind:         patch.Kind,
			StartTime:    patch.StartTime,
			EndTime:      patch.EndTime,
			Coaches:      patch.Coaches,
			Participants: patch.Participants,
		})
		if err != nil {
			writeScheduleError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"updated": count})

	default:
		writeError(w, http.StatusBadRequest, "scope must be single or series")
	}
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := h.schedule.Cancel(r.Context(), actor, id); err != nil {
		writeScheduleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleComplete(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := h.schedule.Complete(r.Context(), actor, id); err != nil {
		writeScheduleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	occ, err := h.schedule.Get(r.Context(), id)
	if err != nil {
		writeScheduleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, occ)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	var filter schedule.OccurrenceFilter

	q := r.URL.Query()
	if v := q.Get("team_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid team_id")
			return
		}
		filter.TeamID = &id
	}
	if v := q.Get("club_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid club_id")
			return
		}
		filter.ClubID = &id
	}
	if v := q.Get("status"); v != "" {
		status := models.OccurrenceStatus(v)
		filter.Status = &status
	}
	if v := q.Get("from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "from must be YYYY-MM-DD")
			return
		}
		filter.From = &t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "to must be YYYY-MM-DD")
			return
		}
		filter.To = &t
	}

	occurrences, err := h.schedule.List(r.Context(), filter)
	if err != nil {
		writeScheduleError(w, err)
		return
	}
	if occurrences == nil {
		occurrences = []models.Occurrence{}
	}
	writeJSON(w, http.StatusOK, occurrences)
}

type recordAttendanceRequest struct {
	Present []uuid.UUID `json:"present"`
}

func (h *Handler) handleRecordAttendance(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(w, r)
	if !ok {
		return
	}
	teamID, ok := pathUUID(w, r, "teamID")
	if !ok {
		return
	}
	occurrenceID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	var req recordAttendanceRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	rec, err := h.attendance.Record(r.Context(), actor, teamID, occurrenceID, req.Present)
	if err != nil {
		writeAttendanceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) handleGetAttendance(w http.ResponseWriter, r *http.Request) {
	occurrenceID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	sheet, err := h.attendance.SheetForOccurrence(r.Context(), occurrenceID)
	if err != nil {
		writeAttendanceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sheet)
}

func actorID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := r.Header.Get("X-Actor-ID")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "missing X-Actor-ID header")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid X-Actor-ID header")
		return uuid.Nil, false
	}
	return id, true
}

func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func writeScheduleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, schedule.ErrNotFound), errors.Is(err, rosterclient.ErrTeamNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, schedule.ErrUnauthorized):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, schedule.ErrEventFrozen), errors.Is(err, schedule.ErrStatusConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, schedule.ErrInvalidTimeRange),
		errors.Is(err, schedule.ErrInvalidRecurrenceAnchor),
		errors.Is(err, schedule.ErrInvalidKind),
		errors.Is(err, schedule.ErrInvalidRecurrence),
		errors.Is(err, schedule.ErrTitleRequired),
		errors.Is(err, schedule.ErrSeriesFieldLocked):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeAttendanceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, schedule.ErrNotFound), errors.Is(err, rosterclient.ErrTeamNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, attendance.ErrNotTeamOccurrence):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
