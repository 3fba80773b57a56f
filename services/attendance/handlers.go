package attendance

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tabrela/tabrela/internal/apperr"
	"github.com/tabrela/tabrela/internal/httpmw"
)

type Handlers struct {
	repo     *Repo
	validate *validator.Validate
	log      zerolog.Logger
}

func NewHandlers(repo *Repo, log zerolog.Logger) *Handlers {
	return &Handlers{repo: repo, validate: validator.New(), log: log}
}

func decodeJSON[T any](r *http.Request) (T, error) {
	var v T
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		return v, apperr.Validationf("invalid request body: %v", err)
	}
	return v, nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func parseEventID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "id"))
}

func (h *Handlers) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.repo.ListEvents(r.Context())
	if err != nil {
		apperr.Write(w, h.log, apperr.Internal(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

func (h *Handlers) CreateEvent(w http.ResponseWriter, r *http.Request) {
	req, err := decodeJSON[CreateEventRequest](r)
	if err != nil {
		apperr.Write(w, h.log, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		apperr.Write(w, h.log, apperr.Validationf("invalid event payload: %v", err))
		return
	}
	userID, _ := httpmw.UserID(r.Context())
	event, err := h.repo.CreateEvent(r.Context(), req, userID)
	if err != nil {
		apperr.Write(w, h.log, apperr.Internal(err))
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

func (h *Handlers) GetEvent(w http.ResponseWriter, r *http.Request) {
	id, err := parseEventID(r)
	if err != nil {
		apperr.Write(w, h.log, apperr.Validationf("invalid event id"))
		return
	}
	event, err := h.repo.GetEvent(r.Context(), id)
	if err != nil {
		apperr.Write(w, h.log, apperr.NotFoundf("event not found"))
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (h *Handlers) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	id, err := parseEventID(r)
	if err != nil {
		apperr.Write(w, h.log, apperr.Validationf("invalid event id"))
		return
	}
	req, err := decodeJSON[UpdateEventRequest](r)
	if err != nil {
		apperr.Write(w, h.log, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		apperr.Write(w, h.log, apperr.Validationf("invalid event payload: %v", err))
		return
	}
	event, err := h.repo.UpdateEvent(r.Context(), id, req)
	if err != nil {
		apperr.Write(w, h.log, apperr.NotFoundf("event not found"))
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (h *Handlers) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, err := parseEventID(r)
	if err != nil {
		apperr.Write(w, h.log, apperr.Validationf("invalid event id"))
		return
	}
	if err := h.repo.DeleteEvent(r.Context(), id); err != nil {
		apperr.Write(w, h.log, apperr.Internal(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) LockEvent(w http.ResponseWriter, r *http.Request) {
	id, err := parseEventID(r)
	if err != nil {
		apperr.Write(w, h.log, apperr.Validationf("invalid event id"))
		return
	}
	event, err := h.repo.LockEvent(r.Context(), id)
	if err != nil {
		apperr.Write(w, h.log, apperr.NotFoundf("event not found"))
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// requireUnlocked rejects the request with 403 when the event is
// locked, per the "Event lock" invariant in spec §8.
func (h *Handlers) requireUnlocked(w http.ResponseWriter, r *http.Request, eventID uuid.UUID) bool {
	event, err := h.repo.GetEvent(r.Context(), eventID)
	if err != nil {
		apperr.Write(w, h.log, apperr.NotFoundf("event not found"))
		return false
	}
	if event.IsLocked {
		apperr.Write(w, h.log, apperr.Forbiddenf("event is locked"))
		return false
	}
	return true
}

func (h *Handlers) SetAvailability(w http.ResponseWriter, r *http.Request) {
	eventID, err := parseEventID(r)
	if err != nil {
		apperr.Write(w, h.log, apperr.Validationf("invalid event id"))
		return
	}
	if !h.requireUnlocked(w, r, eventID) {
		return
	}
	req, err := decodeJSON[SetAvailabilityRequest](r)
	if err != nil {
		apperr.Write(w, h.log, err)
		return
	}
	userID, _ := httpmw.UserID(r.Context())
	record, err := h.repo.SetAvailability(r.Context(), eventID, userID, req.IsAvailable)
	if err != nil {
		apperr.Write(w, h.log, apperr.Internal(err))
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (h *Handlers) MyAttendance(w http.ResponseWriter, r *http.Request) {
	eventID, err := parseEventID(r)
	if err != nil {
		apperr.Write(w, h.log, apperr.Validationf("invalid event id"))
		return
	}
	userID, _ := httpmw.UserID(r.Context())
	record, err := h.repo.GetRecord(r.Context(), eventID, userID)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"status": CellNoResponse})
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (h *Handlers) CheckIn(w http.ResponseWriter, r *http.Request) {
	eventID, err := parseEventID(r)
	if err != nil {
		apperr.Write(w, h.log, apperr.Validationf("invalid event id"))
		return
	}
	if !h.requireUnlocked(w, r, eventID) {
		return
	}
	req, err := decodeJSON[CheckInRequest](r)
	if err != nil {
		apperr.Write(w, h.log, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		apperr.Write(w, h.log, apperr.Validationf("invalid check-in payload: %v", err))
		return
	}
	adminID, _ := httpmw.UserID(r.Context())
	record, err := h.repo.CheckIn(r.Context(), eventID, req.UserID, req.IsCheckedIn, adminID)
	if err != nil {
		apperr.Write(w, h.log, apperr.Internal(err))
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (h *Handlers) Revoke(w http.ResponseWriter, r *http.Request) {
	eventID, err := parseEventID(r)
	if err != nil {
		apperr.Write(w, h.log, apperr.Validationf("invalid event id"))
		return
	}
	if !h.requireUnlocked(w, r, eventID) {
		return
	}
	req, err := decodeJSON[RevokeRequest](r)
	if err != nil {
		apperr.Write(w, h.log, err)
		return
	}
	record, err := h.repo.RevokeAvailability(r.Context(), eventID, req.UserID)
	if err != nil {
		apperr.Write(w, h.log, apperr.Internal(err))
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (h *Handlers) EventAttendance(w http.ResponseWriter, r *http.Request) {
	eventID, err := parseEventID(r)
	if err != nil {
		apperr.Write(w, h.log, apperr.Validationf("invalid event id"))
		return
	}
	records, err := h.repo.ListRecordsForEvent(r.Context(), eventID)
	if err != nil {
		apperr.Write(w, h.log, apperr.Internal(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": records})
}

func (h *Handlers) Matrix(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	events, err := h.repo.ListEvents(ctx)
	if err != nil {
		apperr.Write(w, h.log, apperr.Internal(err))
		return
	}
	users, err := h.repo.ListUsers(ctx)
	if err != nil {
		apperr.Write(w, h.log, apperr.Internal(err))
		return
	}
	records, err := h.repo.ListAllRecords(ctx)
	if err != nil {
		apperr.Write(w, h.log, apperr.Internal(err))
		return
	}
	writeJSON(w, http.StatusOK, BuildMatrix(events, users, records))
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "attendance"})
}
