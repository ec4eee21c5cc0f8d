package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/dynalog-app/backend/internal/auth"
	"github.com/dynalog-app/backend/internal/logs"
	"github.com/dynalog-app/backend/internal/routines"
	"github.com/dynalog-app/backend/internal/telemetry/metrics"
	"github.com/dynalog-app/backend/internal/telemetry/tracing"
	"github.com/dynalog-app/backend/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

//go:generate mockgen -source=$GOFILE -destination=handler_mocks_test.go -package=sessions_test

const defaultPageLimit = 15

type sessionsRepo interface {
	Add(ctx context.Context, userID, routineID string) (*Session, error)
	Get(ctx context.Context, id string) (*Session, error)
	GetActive(ctx context.Context, userID string) (*Session, error)
	List(ctx context.Context, userID string, page, limit int) (*Page, error)
	Complete(ctx context.Context, id string, notes *string) (*Session, error)
	Delete(ctx context.Context, id string) error
}

type routinesRepo interface {
	Get(ctx context.Context, id string) (*routines.Routine, error)
}

type logsRepo interface {
	ListForSession(ctx context.Context, sessionID string) ([]logs.Log, error)
}

type SessionDetailsResponse struct {
	Session
	Routine *routines.Routine `json:"routine"`
	Logs    []logs.Log        `json:"logs"`
}

type ActiveSessionConflictResponse struct {
	Error           string `json:"error"`
	ActiveSessionID string `json:"activeSessionId"`
}

type DeleteSessionResponse struct {
	DeletedID string `json:"deletedId"`
}

type Handler struct {
	repo         sessionsRepo
	routinesRepo routinesRepo
	logsRepo     logsRepo
	metrics      *metrics.Manager
}

func NewHandler(
	repo sessionsRepo,
	routinesRepo routinesRepo,
	logsRepo logsRepo,
	metrics *metrics.Manager,
) *Handler {
	return &Handler{
		repo:         repo,
		routinesRepo: routinesRepo,
		logsRepo:     logsRepo,
		metrics:      metrics,
	}
}

type startSessionRequest struct {
	RoutineID string `json:"routineId"`
}

func (handler *Handler) HandleStart(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.sessions.start")
	defer span.End()

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	var req startSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("start session, unmarshal json params: %s", err)
		http.Error(w, "start session failed", http.StatusBadRequest)
		return
	}
	if req.RoutineID == "" {
		http.Error(w, "error, routine id empty", http.StatusBadRequest)
		return
	}

	userID := auth.UserIDFromContext(ctx)

	routine, err := handler.routinesRepo.Get(ctx, req.RoutineID)
	if err != nil {
		if errors.Is(err, routines.ErrRoutineNotFound) {
			http.Error(w, "routine not found", http.StatusNotFound)
			return
		}
		log.Errorf("start session, get routine %s: %s", req.RoutineID, err)
		http.Error(w, "start session failed", http.StatusInternalServerError)
		return
	}
	if routine.UserID != userID {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	session, err := handler.repo.Add(ctx, userID, routine.ID)
	if err != nil {
		var activeErr ActiveSessionError
		if errors.As(err, &activeErr) {
			conflictJson, err := json.Marshal(ActiveSessionConflictResponse{
				Error:           "an active session already exists",
				ActiveSessionID: activeErr.ActiveSessionID,
			})
			if err != nil {
				log.Errorf("failed to marshal session conflict: %s", err)
				http.Error(w, "start session failed", http.StatusInternalServerError)
				return
			}
			pkg.WriteResponseBytes(w, pkg.ContentType.JSON, conflictJson, http.StatusConflict)
			return
		}
		log.Errorf("failed to start session for routine %s: %s", routine.ID, err)
		http.Error(w, "start session failed", http.StatusInternalServerError)
		return
	}

	handler.metrics.CounterSessionsStarted.Inc()
	log.Debugf("session started: %s [routine %s]", session.ID, routine.ID)

	sessionJson, err := json.Marshal(session)
	if err != nil {
		log.Errorf("failed to marshal started session: %s", err)
		http.Error(w, "start session failed", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, sessionJson, http.StatusCreated)
}

func (handler *Handler) HandleGetActive(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.sessions.getactive")
	defer span.End()

	session, err := handler.repo.GetActive(ctx, auth.UserIDFromContext(ctx))
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			http.Error(w, "no active session", http.StatusNotFound)
			return
		}
		log.Errorf("failed to get active session: %s", err)
		http.Error(w, "failed to get active session", http.StatusInternalServerError)
		return
	}

	sessionJson, err := json.Marshal(session)
	if err != nil {
		log.Errorf("failed to marshal active session: %s", err)
		http.Error(w, "failed to get active session", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, sessionJson, http.StatusOK)
}

func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.sessions.list")
	defer span.End()

	page := 1
	if pageStr := r.URL.Query().Get("page"); pageStr != "" {
		var err error
		if page, err = strconv.Atoi(pageStr); err != nil || page < 1 {
			http.Error(w, "invalid page (has to be a positive number)", http.StatusBadRequest)
			return
		}
	}
	limit := defaultPageLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		var err error
		if limit, err = strconv.Atoi(limitStr); err != nil || limit < 1 {
			http.Error(w, "invalid limit (has to be a positive number)", http.StatusBadRequest)
			return
		}
	}

	sessionsPage, err := handler.repo.List(ctx, auth.UserIDFromContext(ctx), page, limit)
	if err != nil {
		log.Errorf("list sessions error: %s", err)
		http.Error(w, "failed to get sessions", http.StatusInternalServerError)
		return
	}

	pageJson, err := json.Marshal(sessionsPage)
	if err != nil {
		log.Errorf("marshal sessions page error: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, pageJson, http.StatusOK)
}

func (handler *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.sessions.get")
	defer span.End()

	session, ok := handler.ownedSession(ctx, w, r)
	if !ok {
		return
	}

	routine, err := handler.routinesRepo.Get(ctx, session.RoutineID)
	if err != nil {
		log.Errorf("get session %s, routine: %s", session.ID, err)
		http.Error(w, "failed to get session", http.StatusInternalServerError)
		return
	}

	sessionLogs, err := handler.logsRepo.ListForSession(ctx, session.ID)
	if err != nil {
		log.Errorf("get session %s, logs: %s", session.ID, err)
		http.Error(w, "failed to get session", http.StatusInternalServerError)
		return
	}

	detailsJson, err := json.Marshal(SessionDetailsResponse{
		Session: *session,
		Routine: routine,
		Logs:    sessionLogs,
	})
	if err != nil {
		log.Errorf("failed to marshal session details: %s", err)
		http.Error(w, "failed to marshal session details", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, detailsJson, http.StatusOK)
}

type completeSessionRequest struct {
	Notes *string `json:"notes"`
}

func (handler *Handler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.sessions.complete")
	defer span.End()

	session, ok := handler.ownedSession(ctx, w, r)
	if !ok {
		return
	}

	var req completeSessionRequest
	if r.Body != http.NoBody {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			log.Errorf("complete session, unmarshal json params: %s", err)
			http.Error(w, "complete session failed", http.StatusBadRequest)
			return
		}
	}
	if req.Notes != nil && len(*req.Notes) > 1000 {
		http.Error(w, "notes too long", http.StatusBadRequest)
		return
	}

	completed, err := handler.repo.Complete(ctx, session.ID, req.Notes)
	if err != nil {
		if errors.Is(err, ErrAlreadyDone) {
			http.Error(w, "session already completed", http.StatusConflict)
			return
		}
		log.Errorf("failed to complete session %s: %s", session.ID, err)
		http.Error(w, "complete session failed", http.StatusInternalServerError)
		return
	}

	handler.metrics.CounterSessionsCompleted.Inc()
	log.Debugf("session completed: %s", completed.ID)

	completedJson, err := json.Marshal(completed)
	if err != nil {
		log.Errorf("failed to marshal completed session: %s", err)
		http.Error(w, "complete session failed", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, completedJson, http.StatusOK)
}

func (handler *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.sessions.delete")
	defer span.End()

	session, ok := handler.ownedSession(ctx, w, r)
	if !ok {
		return
	}

	if err := handler.repo.Delete(ctx, session.ID); err != nil {
		log.Errorf("failed to delete session %s: %s", session.ID, err)
		http.Error(w, "session not deleted", http.StatusInternalServerError)
		return
	}

	deleteRespJson, err := json.Marshal(DeleteSessionResponse{
		DeletedID: session.ID,
	})
	if err != nil {
		log.Errorf("failed to marshal delete response: %s", err)
		http.Error(w, "failed to marshal delete response", http.StatusInternalServerError)
		return
	}
	pkg.WriteJSONResponseOK(w, string(deleteRespJson))
}

func (handler *Handler) ownedSession(
	ctx context.Context,
	w http.ResponseWriter,
	r *http.Request,
) (*Session, bool) {
	id := mux.Vars(r)["id"]
	if id == "" {
		http.Error(w, "error, id empty", http.StatusBadRequest)
		return nil, false
	}

	session, err := handler.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			http.Error(w, "session not found", http.StatusNotFound)
			return nil, false
		}
		log.Errorf("failed to get session %s: %s", id, err)
		http.Error(w, "failed to get session", http.StatusInternalServerError)
		return nil, false
	}
	if session.UserID != auth.UserIDFromContext(ctx) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return nil, false
	}

	return session, true
}
