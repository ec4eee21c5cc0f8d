package exercises

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dynalog-app/backend/internal/auth"
	"github.com/dynalog-app/backend/internal/telemetry/tracing"
	"github.com/dynalog-app/backend/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type exercisesRepo interface {
	Add(ctx context.Context, exercise Exercise) (*Exercise, error)
	Get(ctx context.Context, id string) (*Exercise, error)
	ListForRoutine(ctx context.Context, routineID string) ([]Exercise, error)
	Update(ctx context.Context, id string, params UpdateParams) (*Exercise, error)
	Delete(ctx context.Context, id string) error
	Reorder(ctx context.Context, routineID string, ids []string) error
	Move(ctx context.Context, id string, direction MoveDirection) error
}

type routinesRepo interface {
	RoutineInfo(ctx context.Context, id string) (*RoutineInfo, error)
}

type DeleteExerciseResponse struct {
	DeletedID string `json:"deletedId"`
}

type ReorderResponse struct {
	Exercises []Exercise `json:"exercises"`
}

type Handler struct {
	repo         exercisesRepo
	routinesRepo routinesRepo
}

func NewHandler(repo exercisesRepo, routinesRepo routinesRepo) *Handler {
	return &Handler{
		repo:         repo,
		routinesRepo: routinesRepo,
	}
}

type newExerciseRequest struct {
	Name        string   `json:"name"`
	Description *string  `json:"description"`
	Weight      *float64 `json:"weight"`
	Series      *int     `json:"series"`
	Reps        *int     `json:"reps"`
	RestTime    *int     `json:"restTime"`
}

func (req newExerciseRequest) validate() error {
	if req.Name == "" || len(req.Name) > 100 {
		return errors.New("name must be between 1 and 100 characters")
	}
	if req.Description != nil && len(*req.Description) > 500 {
		return errors.New("description too long")
	}
	if req.Weight != nil && *req.Weight < 0 {
		return errors.New("weight must not be negative")
	}
	if req.Series != nil && *req.Series < 1 {
		return errors.New("series must be at least 1")
	}
	if req.Reps != nil && *req.Reps < 1 {
		return errors.New("reps must be at least 1")
	}
	if req.RestTime != nil && *req.RestTime < 0 {
		return errors.New("rest time must not be negative")
	}
	return nil
}

func (handler *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercises.new")
	defer span.End()

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	routine, ok := handler.ownedRoutine(ctx, w, mux.Vars(r)["id"])
	if !ok {
		return
	}

	var req newExerciseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("new exercise, unmarshal json params: %s", err)
		http.Error(w, "add exercise failed", http.StatusBadRequest)
		return
	}
	if err := req.validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	exercise := Exercise{
		RoutineID:   routine.ID,
		Name:        req.Name,
		Description: req.Description,
		Weight:      0,
		Series:      3,
		Reps:        10,
		RestTime:    60,
	}
	if req.Weight != nil {
		exercise.Weight = *req.Weight
	}
	if req.Series != nil {
		exercise.Series = *req.Series
	}
	if req.Reps != nil {
		exercise.Reps = *req.Reps
	}
	if req.RestTime != nil {
		exercise.RestTime = *req.RestTime
	}

	addedExercise, err := handler.repo.Add(ctx, exercise)
	if err != nil {
		log.Errorf("failed to add new exercise [%s] to routine %s: %s", req.Name, routine.ID, err)
		http.Error(w, "error, failed to add new exercise", http.StatusInternalServerError)
		return
	}

	log.Debugf("new exercise added: [%s]: %s", addedExercise.Name, addedExercise.ID)

	addedExJson, err := json.Marshal(addedExercise)
	if err != nil {
		log.Errorf("failed to marshal new exercise: %s", err)
		http.Error(w, "error, failed to add new exercise", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, addedExJson, http.StatusCreated)
}

func (handler *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercises.update")
	defer span.End()

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	exercise, ok := handler.ownedExercise(ctx, w, r)
	if !ok {
		return
	}

	var params UpdateParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		log.Errorf("update exercise, unmarshal json params: %s", err)
		http.Error(w, "update exercise failed", http.StatusBadRequest)
		return
	}
	if err := validateUpdateParams(params); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	updatedExercise, err := handler.repo.Update(ctx, exercise.ID, params)
	if err != nil {
		log.Errorf("failed to update exercise %s: %s", exercise.ID, err)
		http.Error(w, "error, failed to update exercise", http.StatusInternalServerError)
		return
	}

	updatedJson, err := json.Marshal(updatedExercise)
	if err != nil {
		log.Errorf("failed to marshal updated exercise: %s", err)
		http.Error(w, "failed to marshal updated exercise", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, updatedJson, http.StatusOK)
}

func validateUpdateParams(params UpdateParams) error {
	if params.Name != nil && (*params.Name == "" || len(*params.Name) > 100) {
		return errors.New("name must be between 1 and 100 characters")
	}
	if params.Description != nil && len(*params.Description) > 500 {
		return errors.New("description too long")
	}
	if params.Weight != nil && *params.Weight < 0 {
		return errors.New("weight must not be negative")
	}
	if params.Series != nil && *params.Series < 1 {
		return errors.New("series must be at least 1")
	}
	if params.Reps != nil && *params.Reps < 1 {
		return errors.New("reps must be at least 1")
	}
	if params.RestTime != nil && *params.RestTime < 0 {
		return errors.New("rest time must not be negative")
	}
	return nil
}

func (handler *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercises.delete")
	defer span.End()

	exercise, ok := handler.ownedExercise(ctx, w, r)
	if !ok {
		return
	}

	if err := handler.repo.Delete(ctx, exercise.ID); err != nil {
		log.Errorf("failed to delete exercise %s: %s", exercise.ID, err)
		http.Error(w, "exercise not deleted", http.StatusInternalServerError)
		return
	}

	deleteRespJson, err := json.Marshal(DeleteExerciseResponse{
		DeletedID: exercise.ID,
	})
	if err != nil {
		log.Errorf("failed to marshal delete response: %s", err)
		http.Error(w, "failed to marshal delete response", http.StatusInternalServerError)
		return
	}
	pkg.WriteJSONResponseOK(w, string(deleteRespJson))
}

type reorderRequest struct {
	ExerciseIDs []string `json:"exerciseIds"`
}

func (handler *Handler) HandleReorder(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercises.reorder")
	defer span.End()

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	routine, ok := handler.ownedRoutine(ctx, w, mux.Vars(r)["id"])
	if !ok {
		return
	}

	var req reorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("reorder exercises, unmarshal json params: %s", err)
		http.Error(w, "reorder exercises failed", http.StatusBadRequest)
		return
	}
	if len(req.ExerciseIDs) == 0 {
		http.Error(w, "error, exercise ids empty", http.StatusBadRequest)
		return
	}

	if err := handler.repo.Reorder(ctx, routine.ID, req.ExerciseIDs); err != nil {
		if errors.Is(err, ErrNotInRoutine) {
			http.Error(w, "exercise ids do not match routine", http.StatusBadRequest)
			return
		}
		log.Errorf("failed to reorder exercises of routine %s: %s", routine.ID, err)
		http.Error(w, "error, failed to reorder exercises", http.StatusInternalServerError)
		return
	}

	reordered, err := handler.repo.ListForRoutine(ctx, routine.ID)
	if err != nil {
		log.Errorf("reorder exercises, list for routine %s: %s", routine.ID, err)
		http.Error(w, "error, failed to reorder exercises", http.StatusInternalServerError)
		return
	}

	reorderedJson, err := json.Marshal(ReorderResponse{
		Exercises: reordered,
	})
	if err != nil {
		log.Errorf("failed to marshal reordered exercises: %s", err)
		http.Error(w, "failed to marshal reordered exercises", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, reorderedJson, http.StatusOK)
}

type moveRequest struct {
	Direction string `json:"direction"`
}

func (handler *Handler) HandleMove(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercises.move")
	defer span.End()

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	exercise, ok := handler.ownedExercise(ctx, w, r)
	if !ok {
		return
	}

	var req moveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("move exercise, unmarshal json params: %s", err)
		http.Error(w, "move exercise failed", http.StatusBadRequest)
		return
	}
	direction, err := ParseMoveDirection(req.Direction)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := handler.repo.Move(ctx, exercise.ID, direction); err != nil {
		log.Errorf("failed to move exercise %s %s: %s", exercise.ID, direction, err)
		http.Error(w, "error, failed to move exercise", http.StatusInternalServerError)
		return
	}

	moved, err := handler.repo.ListForRoutine(ctx, exercise.RoutineID)
	if err != nil {
		log.Errorf("move exercise, list for routine %s: %s", exercise.RoutineID, err)
		http.Error(w, "error, failed to move exercise", http.StatusInternalServerError)
		return
	}

	movedJson, err := json.Marshal(ReorderResponse{
		Exercises: moved,
	})
	if err != nil {
		log.Errorf("failed to marshal moved exercises: %s", err)
		http.Error(w, "failed to marshal moved exercises", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, movedJson, http.StatusOK)
}

func (handler *Handler) ownedRoutine(
	ctx context.Context,
	w http.ResponseWriter,
	routineID string,
) (*RoutineInfo, bool) {
	if routineID == "" {
		http.Error(w, "error, routine id empty", http.StatusBadRequest)
		return nil, false
	}

	routine, err := handler.routinesRepo.RoutineInfo(ctx, routineID)
	if err != nil {
		if errors.Is(err, ErrRoutineNotFound) {
			http.Error(w, "routine not found", http.StatusNotFound)
			return nil, false
		}
		log.Errorf("failed to get routine %s: %s", routineID, err)
		http.Error(w, "failed to get routine", http.StatusInternalServerError)
		return nil, false
	}
	if routine.UserID != auth.UserIDFromContext(ctx) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return nil, false
	}

	return routine, true
}

// ownedExercise loads the exercise from the {id} route var and checks
// its routine belongs to the authenticated user.
func (handler *Handler) ownedExercise(
	ctx context.Context,
	w http.ResponseWriter,
	r *http.Request,
) (*Exercise, bool) {
	id := mux.Vars(r)["id"]
	if id == "" {
		http.Error(w, "error, id empty", http.StatusBadRequest)
		return nil, false
	}

	exercise, err := handler.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrExerciseNotFound) {
			http.Error(w, "exercise not found", http.StatusNotFound)
			return nil, false
		}
		log.Errorf("failed to get exercise %s: %s", id, err)
		http.Error(w, "failed to get exercise", http.StatusInternalServerError)
		return nil, false
	}

	if _, ok := handler.ownedRoutine(ctx, w, exercise.RoutineID); !ok {
		return nil, false
	}

	return exercise, true
}
