package routines

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dynalog-app/backend/internal/auth"
	"github.com/dynalog-app/backend/internal/exercises"
	"github.com/dynalog-app/backend/internal/telemetry/tracing"
	"github.com/dynalog-app/backend/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type routinesRepo interface {
	Add(ctx context.Context, routine Routine) (*Routine, error)
	Get(ctx context.Context, id string) (*Routine, error)
	ListForUser(ctx context.Context, userID string) ([]Routine, error)
	Update(ctx context.Context, id string, name, description *string) (*Routine, error)
	Delete(ctx context.Context, id string) error
}

type exercisesRepo interface {
	ListForRoutine(ctx context.Context, routineID string) ([]exercises.Exercise, error)
}

type RoutineWithExercises struct {
	Routine
	Exercises []exercises.Exercise `json:"exercises"`
}

type DeleteRoutineResponse struct {
	DeletedID string `json:"deletedId"`
}

type Handler struct {
	repo          routinesRepo
	exercisesRepo exercisesRepo
}

func NewHandler(repo routinesRepo, exercisesRepo exercisesRepo) *Handler {
	return &Handler{
		repo:          repo,
		exercisesRepo: exercisesRepo,
	}
}

type newRoutineRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

func (req newRoutineRequest) validate() error {
	if req.Name == "" || len(req.Name) > 100 {
		return errors.New("name must be between 1 and 100 characters")
	}
	if req.Description != nil && len(*req.Description) > 500 {
		return errors.New("description too long")
	}
	return nil
}

func (handler *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.routines.new")
	defer span.End()

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	var req newRoutineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("new routine, unmarshal json params: %s", err)
		http.Error(w, "add routine failed", http.StatusBadRequest)
		return
	}
	if err := req.validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	addedRoutine, err := handler.repo.Add(ctx, Routine{
		UserID:      auth.UserIDFromContext(ctx),
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		log.Errorf("failed to add new routine [%s]: %s", req.Name, err)
		http.Error(w, "error, failed to add new routine", http.StatusInternalServerError)
		return
	}

	log.Debugf("new routine added: [%s]: %s", addedRoutine.Name, addedRoutine.ID)

	routineJson, err := json.Marshal(addedRoutine)
	if err != nil {
		log.Errorf("failed to marshal new routine: %s", err)
		http.Error(w, "error, failed to add new routine", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, routineJson, http.StatusCreated)
}

func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.routines.list")
	defer span.End()

	routines, err := handler.repo.ListForUser(ctx, auth.UserIDFromContext(ctx))
	if err != nil {
		log.Errorf("list routines error: %s", err)
		http.Error(w, "failed to get routines", http.StatusInternalServerError)
		return
	}

	withExercises := make([]RoutineWithExercises, 0, len(routines))
	for _, routine := range routines {
		routineExercises, err := handler.exercisesRepo.ListForRoutine(ctx, routine.ID)
		if err != nil {
			log.Errorf("list routines, get exercises for %s: %s", routine.ID, err)
			http.Error(w, "failed to get routines", http.StatusInternalServerError)
			return
		}
		withExercises = append(withExercises, RoutineWithExercises{
			Routine:   routine,
			Exercises: routineExercises,
		})
	}

	routinesJson, err := json.Marshal(withExercises)
	if err != nil {
		log.Errorf("marshal routines error: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, routinesJson, http.StatusOK)
}

func (handler *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.routines.get")
	defer span.End()

	routine, ok := handler.ownedRoutine(ctx, w, r)
	if !ok {
		return
	}

	routineExercises, err := handler.exercisesRepo.ListForRoutine(ctx, routine.ID)
	if err != nil {
		log.Errorf("get routine %s, exercises: %s", routine.ID, err)
		http.Error(w, "failed to get routine", http.StatusInternalServerError)
		return
	}

	routineJson, err := json.Marshal(RoutineWithExercises{
		Routine:   *routine,
		Exercises: routineExercises,
	})
	if err != nil {
		log.Errorf("failed to marshal routine: %s", err)
		http.Error(w, "failed to marshal routine", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, routineJson, http.StatusOK)
}

type updateRoutineRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

func (req updateRoutineRequest) validate() error {
	if req.Name != nil && (*req.Name == "" || len(*req.Name) > 100) {
		return errors.New("name must be between 1 and 100 characters")
	}
	if req.Description != nil && len(*req.Description) > 500 {
		return errors.New("description too long")
	}
	return nil
}

func (handler *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.routines.update")
	defer span.End()

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	routine, ok := handler.ownedRoutine(ctx, w, r)
	if !ok {
		return
	}

	var req updateRoutineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("update routine, unmarshal json params: %s", err)
		http.Error(w, "update routine failed", http.StatusBadRequest)
		return
	}
	if err := req.validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	updatedRoutine, err := handler.repo.Update(ctx, routine.ID, req.Name, req.Description)
	if err != nil {
		log.Errorf("failed to update routine %s: %s", routine.ID, err)
		http.Error(w, "error, failed to update routine", http.StatusInternalServerError)
		return
	}

	updatedJson, err := json.Marshal(updatedRoutine)
	if err != nil {
		log.Errorf("failed to marshal updated routine: %s", err)
		http.Error(w, "failed to marshal updated routine", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, updatedJson, http.StatusOK)
}

func (handler *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.routines.delete")
	defer span.End()

	routine, ok := handler.ownedRoutine(ctx, w, r)
	if !ok {
		return
	}

	if err := handler.repo.Delete(ctx, routine.ID); err != nil {
		log.Errorf("failed to delete routine %s: %s", routine.ID, err)
		http.Error(w, "routine not deleted", http.StatusInternalServerError)
		return
	}

	deleteRespJson, err := json.Marshal(DeleteRoutineResponse{
		DeletedID: routine.ID,
	})
	if err != nil {
		log.Errorf("failed to marshal delete response: %s", err)
		http.Error(w, "failed to marshal delete response", http.StatusInternalServerError)
		return
	}
	pkg.WriteJSONResponseOK(w, string(deleteRespJson))
}

// ownedRoutine loads the routine from the {id} route var and checks it
// belongs to the authenticated user. On failure the response is
// already written and ok is false.
func (handler *Handler) ownedRoutine(
	ctx context.Context,
	w http.ResponseWriter,
	r *http.Request,
) (*Routine, bool) {
	id := mux.Vars(r)["id"]
	if id == "" {
		http.Error(w, "error, id empty", http.StatusBadRequest)
		return nil, false
	}

	routine, err := handler.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrRoutineNotFound) {
			http.Error(w, "routine not found", http.StatusNotFound)
			return nil, false
		}
		log.Errorf("failed to get routine %s: %s", id, err)
		http.Error(w, "failed to get routine", http.StatusInternalServerError)
		return nil, false
	}
	if routine.UserID != auth.UserIDFromContext(ctx) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return nil, false
	}

	return routine, true
}
