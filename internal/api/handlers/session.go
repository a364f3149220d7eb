package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Harshitk-cp/imadial/internal/domain"
	"github.com/Harshitk-cp/imadial/internal/manager"
	"github.com/Harshitk-cp/imadial/internal/nlg"
	"github.com/Harshitk-cp/imadial/internal/policy"
	"github.com/Harshitk-cp/imadial/internal/service"
	"github.com/Harshitk-cp/imadial/internal/state"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type SessionHandler struct {
	svc *service.SessionService
}

func NewSessionHandler(svc *service.SessionService) *SessionHandler {
	return &SessionHandler{svc: svc}
}

type sessionResponse struct {
	ID          uuid.UUID `json:"id"`
	PolicyName  string    `json:"policy_name"`
	TurnID      int       `json:"turn_id"`
	EpisodeDone bool      `json:"episode_done"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toSessionResponse(s *domain.Session) sessionResponse {
	return sessionResponse{
		ID:          s.ID,
		PolicyName:  s.PolicyName,
		TurnID:      s.TurnID,
		EpisodeDone: s.EpisodeDone,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

type rewardResponse struct {
	SessionID uuid.UUID `json:"session_id"`
	Reward    float64   `json:"reward"`
}

type turnsResponse struct {
	Turns []domain.TurnRecord `json:"turns"`
}

func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	sess, err := h.svc.Create(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	writeJSON(w, http.StatusCreated, toSessionResponse(sess))
}

func (h *SessionHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	sess, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeSessionError(w, err, "failed to get session")
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(sess))
}

func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeSessionError(w, err, "failed to delete session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Observe buffers a partial observation without running a turn.
func (h *SessionHandler) Observe(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	obs, ok := decodeObservation(w, r)
	if !ok {
		return
	}
	if err := h.svc.Observe(r.Context(), id, obs); err != nil {
		writeSessionError(w, err, "failed to observe")
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// Act runs a turn on whatever has been observed so far.
func (h *SessionHandler) Act(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	resp, err := h.svc.Act(r.Context(), id)
	if err != nil {
		writeSessionError(w, err, "failed to act")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Turn observes the request body and acts in one call.
func (h *SessionHandler) Turn(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	obs, ok := decodeObservation(w, r)
	if !ok {
		return
	}
	resp, err := h.svc.Turn(r.Context(), id, obs)
	if err != nil {
		writeSessionError(w, err, "failed to run turn")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *SessionHandler) Reset(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	sess, err := h.svc.Reset(r.Context(), id)
	if err != nil {
		writeSessionError(w, err, "failed to reset session")
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(sess))
}

func (h *SessionHandler) Reward(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	reward, err := h.svc.Reward(r.Context(), id)
	if err != nil {
		writeSessionError(w, err, "failed to get reward")
		return
	}
	writeJSON(w, http.StatusOK, rewardResponse{SessionID: id, Reward: reward})
}

func (h *SessionHandler) ListTurns(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}

	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	turns, err := h.svc.Turns(r.Context(), id, limit)
	if err != nil {
		writeSessionError(w, err, "failed to list turns")
		return
	}
	writeJSON(w, http.StatusOK, turnsResponse{Turns: turns})
}

func sessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return uuid.Nil, false
	}
	return id, true
}

func decodeObservation(w http.ResponseWriter, r *http.Request) (domain.Observation, bool) {
	var obs domain.Observation
	if err := json.NewDecoder(r.Body).Decode(&obs); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return obs, false
	}
	if err := obs.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return obs, false
	}
	return obs, true
}

// writeSessionError maps service and dialogue errors onto HTTP statuses.
func writeSessionError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, manager.ErrNotStarted),
		errors.Is(err, manager.ErrTurnAborted),
		errors.Is(err, manager.ErrIllegalTransition):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, state.ErrInvalidConfidence):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, nlg.ErrConfirmSlotCount),
		errors.Is(err, nlg.ErrRequestSlotMissing),
		errors.Is(err, nlg.ErrExecuteSlotMissing),
		errors.Is(err, nlg.ErrAdjustValueNotNumeric),
		errors.Is(err, policy.ErrActionUnavailable),
		errors.Is(err, policy.ErrActionOutOfRange):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, fallback)
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
