// Package api exposes HTTP handlers for the set logging service.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/horia913/daily-fitness-sub007/internal/auth"
	"github.com/horia913/daily-fitness-sub007/internal/domain"
	"github.com/horia913/daily-fitness-sub007/internal/observability"
	"github.com/horia913/daily-fitness-sub007/internal/persistence"
)

// Handler coordinates HTTP requests with the domain service.
type Handler struct {
	service *domain.Service
}

// NewHandler builds a Handler.
func NewHandler(service *domain.Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/sets", h.sets)
	mux.HandleFunc("/v1/sets/", h.setByID)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) sets(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.completeSet(w, r)
	case http.MethodGet:
		h.listSets(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) setByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/sets/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing set log id")
		return
	}
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	h.getSet(w, r, id)
}

func (h *Handler) completeSet(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeSetsWrite) {
		writeError(w, http.StatusForbidden, "forbidden", "scope sets:write required")
		return
	}

	var req CompleteSetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}

	event, err := req.Normalize(claims)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if event.ClientID != claims.Subject && !claims.HasScope(auth.ScopeClientsManage) {
		writeError(w, http.StatusForbidden, "forbidden", "scope clients:manage required to log for another client")
		return
	}

	result, err := h.service.LogSet(r.Context(), event)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if result.MetricsWarning != "" {
		observability.RecordMetricsDegraded()
	}

	writeJSON(w, http.StatusCreated, toCompleteSetResponse(result))
}

func (h *Handler) getSet(w http.ResponseWriter, r *http.Request, id string) {
	claims, clientID, ok := h.readAccess(w, r)
	if !ok {
		return
	}

	setLog, err := h.service.GetSetLog(r.Context(), claims.TenantID, clientID, id)
	if err != nil {
		if errors.Is(err, domain.ErrSetLogNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "set log not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, toSetLogView(*setLog))
}

func (h *Handler) listSets(w http.ResponseWriter, r *http.Request) {
	claims, clientID, ok := h.readAccess(w, r)
	if !ok {
		return
	}

	limit := parseLimit(r.URL.Query().Get("limit"))

	cursor, err := persistence.DecodeCursor(r.URL.Query().Get("cursor"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid cursor")
		return
	}

	setLogs, next, err := h.service.ListSetLogs(r.Context(), claims.TenantID, clientID, cursor, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	items := make([]SetLogView, 0, len(setLogs))
	for _, setLog := range setLogs {
		items = append(items, toSetLogView(setLog))
	}

	writeJSON(w, http.StatusOK, ListSetsResponse{
		Items:      items,
		NextCursor: persistence.EncodeCursor(next),
	})
}

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// parseLimit clamps the requested page size to [1, maxPageLimit]; anything
// unparseable falls back to the default.
func parseLimit(raw string) int {
	if raw == "" {
		return defaultPageLimit
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return defaultPageLimit
	}
	if parsed > maxPageLimit {
		return maxPageLimit
	}
	return parsed
}

// readAccess enforces the shared read-path checks and resolves the target client.
func (h *Handler) readAccess(w http.ResponseWriter, r *http.Request) (*auth.Claims, string, bool) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return nil, "", false
	}
	if !claims.HasScope(auth.ScopeSetsRead) && !claims.HasScope(auth.ScopeSetsWrite) {
		writeError(w, http.StatusForbidden, "forbidden", "scope sets:read required")
		return nil, "", false
	}

	clientID := r.URL.Query().Get("client_id")
	if clientID == "" {
		clientID = claims.Subject
	}
	if clientID != claims.Subject && !claims.HasScope(auth.ScopeClientsManage) {
		writeError(w, http.StatusForbidden, "forbidden", "scope clients:manage required")
		return nil, "", false
	}
	return claims, clientID, true
}

// CompleteSetEffort is one effort entry inside a multi-exercise request.
type CompleteSetEffort struct {
	ExerciseID string    `json:"exercise_id"`
	Weight     FlexFloat `json:"weight"`
	Reps       FlexInt   `json:"reps"`
}

// CompleteSetRequest is the payload for POST /v1/sets. Numeric fields accept
// numbers or numeric strings; which ones are required depends on block_type.
type CompleteSetRequest struct {
	BlockType           string `json:"block_type"`
	ClientID            string `json:"client_id"`
	BlockID             string `json:"block_id"`
	WorkoutAssignmentID string `json:"workout_assignment_id"`
	WorkoutLogID        string `json:"workout_log_id"`
	SessionID           string `json:"session_id"`
	TemplateExerciseID  string `json:"template_exercise_id"`

	ExerciseID string    `json:"exercise_id"`
	Weight     FlexFloat `json:"weight"`
	Reps       FlexInt   `json:"reps"`
	SetNumber  FlexInt   `json:"set_number"`

	SecondExerciseID string    `json:"second_exercise_id"`
	SecondWeight     FlexFloat `json:"second_weight"`
	SecondReps       FlexInt   `json:"second_reps"`

	Exercises []CompleteSetEffort `json:"exercises"`

	TotalReps       FlexInt   `json:"total_reps"`
	TargetReps      FlexInt   `json:"target_reps"`
	DurationSec     FlexInt   `json:"duration_sec"`
	Round           FlexInt   `json:"round"`
	ClusterIndex    FlexInt   `json:"cluster_index"`
	IntervalIndex   FlexInt   `json:"interval_index"`
	RepsAfterRest   FlexInt   `json:"reps_after_rest"`
	RestSec         FlexInt   `json:"rest_sec"`
	MaxRests        FlexInt   `json:"max_rests"`
	FinalWeight     FlexFloat `json:"final_weight"`
	FinalReps       FlexInt   `json:"final_reps"`
	TimeCapSec      FlexInt   `json:"time_cap_sec"`
	RoundsCompleted FlexInt   `json:"rounds_completed"`
	TargetZone      FlexInt   `json:"target_zone"`
	AvgHeartRate    FlexInt   `json:"avg_heart_rate"`
}

// Normalize validates and coerces the request into a domain event. A
// malformed session_id is dropped rather than rejected: it only degrades to
// "no session linkage".
func (r CompleteSetRequest) Normalize(claims *auth.Claims) (domain.SetCompletionEvent, error) {
	blockType, err := domain.ParseBlockType(strings.TrimSpace(r.BlockType))
	if err != nil {
		return domain.SetCompletionEvent{}, err
	}

	clientID := strings.TrimSpace(r.ClientID)
	if clientID == "" {
		clientID = claims.Subject
	}
	blockID := strings.TrimSpace(r.BlockID)
	if blockID == "" {
		return domain.SetCompletionEvent{}, &domain.MissingFieldError{Field: "block_id"}
	}

	sessionID := strings.TrimSpace(r.SessionID)
	if sessionID != "" {
		if _, err := uuid.Parse(sessionID); err != nil {
			sessionID = ""
		}
	}

	entries := make([]domain.EffortInput, 0, len(r.Exercises))
	for _, effort := range r.Exercises {
		entries = append(entries, domain.EffortInput{
			ExerciseID: strings.TrimSpace(effort.ExerciseID),
			Weight:     effort.Weight.Ptr(),
			Reps:       effort.Reps.Ptr(),
		})
	}

	return domain.SetCompletionEvent{
		TenantID:            claims.TenantID,
		ClientID:            clientID,
		BlockID:             blockID,
		BlockType:           blockType,
		WorkoutAssignmentID: strings.TrimSpace(r.WorkoutAssignmentID),
		WorkoutLogID:        strings.TrimSpace(r.WorkoutLogID),
		SessionID:           sessionID,
		TemplateExerciseID:  strings.TrimSpace(r.TemplateExerciseID),
		ExerciseID:          strings.TrimSpace(r.ExerciseID),
		Weight:              r.Weight.Ptr(),
		Reps:                r.Reps.Ptr(),
		SetNumber:           r.SetNumber.Ptr(),
		SecondExerciseID:    strings.TrimSpace(r.SecondExerciseID),
		SecondWeight:        r.SecondWeight.Ptr(),
		SecondReps:          r.SecondReps.Ptr(),
		Entries:             entries,
		TotalReps:           r.TotalReps.Ptr(),
		TargetReps:          r.TargetReps.Ptr(),
		DurationSec:         r.DurationSec.Ptr(),
		Round:               r.Round.Ptr(),
		ClusterIndex:        r.ClusterIndex.Ptr(),
		IntervalIndex:       r.IntervalIndex.Ptr(),
		RepsAfterRest:       r.RepsAfterRest.Ptr(),
		RestSec:             r.RestSec.Ptr(),
		MaxRests:            r.MaxRests.Ptr(),
		FinalWeight:         r.FinalWeight.Ptr(),
		FinalReps:           r.FinalReps.Ptr(),
		TimeCapSec:          r.TimeCapSec.Ptr(),
		RoundsCompleted:     r.RoundsCompleted.Ptr(),
		TargetZone:          r.TargetZone.Ptr(),
		AvgHeartRate:        r.AvgHeartRate.Ptr(),
	}, nil
}

// E1RMView describes the one-rep-max outcome of a completed set.
type E1RMView struct {
	Calculated float64  `json:"calculated"`
	Stored     *float64 `json:"stored,omitempty"`
	Action     string   `json:"action"`
	IsNewPR    bool     `json:"is_new_pr"`
}

// PRView describes the personal-record outcome of a completed set.
type PRView struct {
	AnyWeightPR bool              `json:"any_weight_pr"`
	AnyVolumePR bool              `json:"any_volume_pr"`
	Results     []domain.PRResult `json:"results"`
	Message     string            `json:"message"`
	Warning     string            `json:"warning,omitempty"`
}

// SetLogView exposes a persisted set record.
type SetLogView struct {
	SetLogID     string            `json:"set_log_id"`
	ClientID     string            `json:"client_id"`
	BlockID      string            `json:"block_id"`
	WorkoutLogID string            `json:"workout_log_id"`
	BlockType    string            `json:"block_type"`
	Payload      domain.SetPayload `json:"payload"`
	CompletedAt  time.Time         `json:"completed_at"`
}

// CompleteSetResponse describes the response body for completing a set.
type CompleteSetResponse struct {
	Success      bool       `json:"success"`
	SetLogID     string     `json:"set_log_id"`
	WorkoutLogID string     `json:"workout_log_id"`
	BlockType    string     `json:"block_type"`
	Set          SetLogView `json:"set"`
	E1RM         *E1RMView  `json:"e1rm,omitempty"`
	PR           PRView     `json:"pr"`
}

// ListSetsResponse packages list results.
type ListSetsResponse struct {
	Items      []SetLogView `json:"items"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

func toCompleteSetResponse(result *domain.LogSetResult) CompleteSetResponse {
	resp := CompleteSetResponse{
		Success:      true,
		SetLogID:     result.SetLog.ID,
		WorkoutLogID: result.SetLog.WorkoutLogID,
		BlockType:    string(result.SetLog.BlockType),
		Set:          toSetLogView(result.SetLog),
		PR: PRView{
			AnyWeightPR: result.AnyWeightPR,
			AnyVolumePR: result.AnyVolumePR,
			Results:     result.Results,
			Message:     prMessage(result),
			Warning:     result.MetricsWarning,
		},
	}
	if resp.PR.Results == nil {
		resp.PR.Results = []domain.PRResult{}
	}
	if result.OneRepMax.Calculated != nil {
		resp.E1RM = &E1RMView{
			Calculated: *result.OneRepMax.Calculated,
			Stored:     result.OneRepMax.Stored,
			Action:     string(result.OneRepMax.Action),
			IsNewPR:    result.OneRepMax.IsNewPR,
		}
	}
	return resp
}

func prMessage(result *domain.LogSetResult) string {
	switch {
	case result.AnyWeightPR && result.AnyVolumePR:
		return "New weight and volume PR!"
	case result.AnyWeightPR:
		return "New weight PR!"
	case result.AnyVolumePR:
		return "New volume PR!"
	case result.OneRepMax.IsNewPR:
		return "New estimated 1RM!"
	default:
		return ""
	}
}

func toSetLogView(setLog domain.SetLog) SetLogView {
	return SetLogView{
		SetLogID:     setLog.ID,
		ClientID:     setLog.ClientID,
		BlockID:      setLog.BlockID,
		WorkoutLogID: setLog.WorkoutLogID,
		BlockType:    string(setLog.BlockType),
		Payload:      setLog.Payload,
		CompletedAt:  setLog.CompletedAt,
	}
}

func writeDomainError(w http.ResponseWriter, err error) {
	var missing *domain.MissingFieldError
	var unsupported *domain.UnsupportedBlockTypeError
	var validation *domain.ValidationError
	switch {
	case errors.As(err, &missing):
		writeError(w, http.StatusBadRequest, "missing_field", missing.Error())
	case errors.As(err, &unsupported):
		writeError(w, http.StatusBadRequest, "unsupported_block_type", unsupported.Error())
	case errors.As(err, &validation):
		writeError(w, http.StatusBadRequest, "validation_failed", validation.Error())
	case errors.Is(err, domain.ErrInvalidState):
		writeError(w, http.StatusBadRequest, "invalid_state", err.Error())
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
