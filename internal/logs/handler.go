package logs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dynalog-app/backend/internal/auth"
	"github.com/dynalog-app/backend/internal/exercises"
	"github.com/dynalog-app/backend/internal/telemetry/metrics"
	"github.com/dynalog-app/backend/internal/telemetry/tracing"
	"github.com/dynalog-app/backend/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type logsRepo interface {
	Add(ctx context.Context, exerciseLog Log) (*Log, error)
	Get(ctx context.Context, id string) (*Log, error)
	Update(ctx context.Context, id string, params UpdateParams) (*Log, error)
	Delete(ctx context.Context, id string) error
}

type sessionsRepo interface {
	SessionInfo(ctx context.Context, id string) (*SessionInfo, error)
}

type exercisesRepo interface {
	Get(ctx context.Context, id string) (*exercises.Exercise, error)
}

type DeleteLogResponse struct {
	DeletedID string `json:"deletedId"`
}

type Handler struct {
	repo          logsRepo
	sessionsRepo  sessionsRepo
	exercisesRepo exercisesRepo
	metrics       *metrics.Manager
}

func NewHandler(
	repo logsRepo,
	sessionsRepo sessionsRepo,
	exercisesRepo exercisesRepo,
	metrics *metrics.Manager,
) *Handler {
	return &Handler{
		repo:          repo,
		sessionsRepo:  sessionsRepo,
		exercisesRepo: exercisesRepo,
		metrics:       metrics,
	}
}

type newLogRequest struct {
	ExerciseID string   `json:"exerciseId"`
	SetNumber  int      `json:"setNumber"`
	Weight     *float64 `json:"weight"`
	Reps       *int     `json:"reps"`
	Completed  *bool    `json:"completed"`
}

func (req newLogRequest) validate() error {
	if req.ExerciseID == "" {
		return errors.New("exercise id empty")
	}
	if req.SetNumber < 1 {
		return errors.New("set number must be at least 1")
	}
	if req.Weight != nil && *req.Weight < 0 {
		return errors.New("weight must not be negative")
	}
	if req.Reps != nil && *req.Reps < 0 {
		return errors.New("reps must not be negative")
	}
	return nil
}

// HandleAdd logs one performed set into an active session. Logging
// into a completed session is rejected.
func (handler *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.logs.new")
	defer span.End()

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	sessionID := mux.Vars(r)["id"]
	if sessionID == "" {
		http.Error(w, "error, session id empty", http.StatusBadRequest)
		return
	}

	session, err := handler.sessionsRepo.SessionInfo(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		log.Errorf("add log, get session %s: %s", sessionID, err)
		http.Error(w, "add log failed", http.StatusInternalServerError)
		return
	}
	if session.UserID != auth.UserIDFromContext(ctx) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	if !session.Active {
		http.Error(w, "cannot log to a completed session", http.StatusConflict)
		return
	}

	var req newLogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("add log, unmarshal json params: %s", err)
		http.Error(w, "add log failed", http.StatusBadRequest)
		return
	}
	if err := req.validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	exercise, err := handler.exercisesRepo.Get(ctx, req.ExerciseID)
	if err != nil {
		if errors.Is(err, exercises.ErrExerciseNotFound) {
			http.Error(w, "exercise not found", http.StatusNotFound)
			return
		}
		log.Errorf("add log, get exercise %s: %s", req.ExerciseID, err)
		http.Error(w, "add log failed", http.StatusInternalServerError)
		return
	}
	if exercise.RoutineID != session.RoutineID {
		http.Error(w, "exercise does not belong to session routine", http.StatusBadRequest)
		return
	}

	exerciseLog := Log{
		SessionID:  session.ID,
		ExerciseID: exercise.ID,
		SetNumber:  req.SetNumber,
		Weight:     exercise.Weight,
		Reps:       exercise.Reps,
		Completed:  true,
	}
	if req.Weight != nil {
		exerciseLog.Weight = *req.Weight
	}
	if req.Reps != nil {
		exerciseLog.Reps = *req.Reps
	}
	if req.Completed != nil {
		exerciseLog.Completed = *req.Completed
	}

	addedLog, err := handler.repo.Add(ctx, exerciseLog)
	if err != nil {
		if errors.Is(err, ErrSessionGone) {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to add log to session %s: %s", session.ID, err)
		http.Error(w, "add log failed", http.StatusInternalServerError)
		return
	}

	handler.metrics.CounterLogsAdded.Inc()
	log.Tracef("log added: %s [session %s, exercise %s]", addedLog.ID, session.ID, exercise.ID)

	addedLogJson, err := json.Marshal(addedLog)
	if err != nil {
		log.Errorf("failed to marshal new log: %s", err)
		http.Error(w, "add log failed", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, addedLogJson, http.StatusCreated)
}

func (handler *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.logs.update")
	defer span.End()

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	exerciseLog, ok := handler.ownedLog(ctx, w, r)
	if !ok {
		return
	}

	var params UpdateParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		log.Errorf("update log, unmarshal json params: %s", err)
		http.Error(w, "update log failed", http.StatusBadRequest)
		return
	}
	if err := validateUpdateParams(params); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	updatedLog, err := handler.repo.Update(ctx, exerciseLog.ID, params)
	if err != nil {
		log.Errorf("failed to update log %s: %s", exerciseLog.ID, err)
		http.Error(w, "update log failed", http.StatusInternalServerError)
		return
	}

	updatedJson, err := json.Marshal(updatedLog)
	if err != nil {
		log.Errorf("failed to marshal updated log: %s", err)
		http.Error(w, "update log failed", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, updatedJson, http.StatusOK)
}

func validateUpdateParams(params UpdateParams) error {
	if params.SetNumber != nil && *params.SetNumber < 1 {
		return errors.New("set number must be at least 1")
	}
	if params.Weight != nil && *params.Weight < 0 {
		return errors.New("weight must not be negative")
	}
	if params.Reps != nil && *params.Reps < 0 {
		return errors.New("reps must not be negative")
	}
	return nil
}

func (handler *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.logs.delete")
	defer span.End()

	exerciseLog, ok := handler.ownedLog(ctx, w, r)
	if !ok {
		return
	}

	if err := handler.repo.Delete(ctx, exerciseLog.ID); err != nil {
		log.Errorf("failed to delete log %s: %s", exerciseLog.ID, err)
		http.Error(w, "log not deleted", http.StatusInternalServerError)
		return
	}

	deleteRespJson, err := json.Marshal(DeleteLogResponse{
		DeletedID: exerciseLog.ID,
	})
	if err != nil {
		log.Errorf("failed to marshal delete response: %s", err)
		http.Error(w, "failed to marshal delete response", http.StatusInternalServerError)
		return
	}
	pkg.WriteJSONResponseOK(w, string(deleteRespJson))
}

// ownedLog loads the log from the {id} route var and checks its
// session belongs to the authenticated user. Corrections to already
// completed sessions are allowed, only adding is active-session-only.
func (handler *Handler) ownedLog(
	ctx context.Context,
	w http.ResponseWriter,
	r *http.Request,
) (*Log, bool) {
	id := mux.Vars(r)["id"]
	if id == "" {
		http.Error(w, "error, id empty", http.StatusBadRequest)
		return nil, false
	}

	exerciseLog, err := handler.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrLogNotFound) {
			http.Error(w, "log not found", http.StatusNotFound)
			return nil, false
		}
		log.Errorf("failed to get log %s: %s", id, err)
		http.Error(w, "failed to get log", http.StatusInternalServerError)
		return nil, false
	}

	session, err := handler.sessionsRepo.SessionInfo(ctx, exerciseLog.SessionID)
	if err != nil {
		log.Errorf("get log %s, session %s: %s", id, exerciseLog.SessionID, err)
		http.Error(w, "failed to get log", http.StatusInternalServerError)
		return nil, false
	}
	if session.UserID != auth.UserIDFromContext(ctx) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return nil, false
	}

	return exerciseLog, true
}
