package progress

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/dynalog-app/backend/internal/exercises"
	"github.com/dynalog-app/backend/internal/logs"
	"github.com/dynalog-app/backend/internal/routines"
	"github.com/dynalog-app/backend/internal/sessions"
	"github.com/dynalog-app/backend/internal/telemetry/tracing"

	"go.opentelemetry.io/otel/attribute"
)

//go:generate mockgen -source=$GOFILE -destination=analyzer_mocks_test.go -package=progress_test

type routinesRepo interface {
	Get(ctx context.Context, id string) (*routines.Routine, error)
}

type exercisesRepo interface {
	ListForRoutine(ctx context.Context, routineID string) ([]exercises.Exercise, error)
}

type sessionsRepo interface {
	ListForRoutine(ctx context.Context, routineID string) ([]sessions.Session, error)
}

type logsRepo interface {
	ListForSession(ctx context.Context, sessionID string) ([]logs.Log, error)
}

// DataPoint is one completed session's aggregate for one exercise.
type DataPoint struct {
	Date          time.Time `json:"date"`
	Dynascore     float64   `json:"dynascore"`
	TotalVolume   float64   `json:"totalVolume"`
	MaxWeight     float64   `json:"maxWeight"`
	TotalReps     int       `json:"totalReps"`
	SetsCompleted int       `json:"setsCompleted"`
}

type ExerciseProgress struct {
	ExerciseID   string      `json:"exerciseId"`
	ExerciseName string      `json:"exerciseName"`
	RestTime     int         `json:"restTime"`
	DataPoints   []DataPoint `json:"dataPoints"`
}

// ProgressRoutine identifies the routine the series belong to.
type ProgressRoutine struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

type RoutineProgress struct {
	Routine          ProgressRoutine    `json:"routine"`
	ExerciseProgress []ExerciseProgress `json:"exerciseProgress"`
}

// Analyzer assembles per-exercise progress series out of completed
// workout sessions. It holds no state of its own and only reads, so
// it is safe for concurrent use.
type Analyzer struct {
	routinesRepo  routinesRepo
	exercisesRepo exercisesRepo
	sessionsRepo  sessionsRepo
	logsRepo      logsRepo
}

func NewAnalyzer(
	routinesRepo routinesRepo,
	exercisesRepo exercisesRepo,
	sessionsRepo sessionsRepo,
	logsRepo logsRepo,
) *Analyzer {
	return &Analyzer{
		routinesRepo:  routinesRepo,
		exercisesRepo: exercisesRepo,
		sessionsRepo:  sessionsRepo,
		logsRepo:      logsRepo,
	}
}

// Compute builds the progress series for every exercise of the
// routine, in routine order. Exercises that were never logged still
// appear, with an empty series. Only the routine owner may compute
// progress over it.
func (a *Analyzer) Compute(
	ctx context.Context,
	routineID, userID string,
	window Window,
) (_ *RoutineProgress, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "progress.compute")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("routine.id", routineID))

	routine, err := a.routinesRepo.Get(ctx, routineID)
	if err != nil {
		return nil, err
	}
	if routine.UserID != userID {
		return nil, routines.ErrNotOwner
	}

	routineExercises, err := a.exercisesRepo.ListForRoutine(ctx, routineID)
	if err != nil {
		return nil, err
	}

	routineSessions, err := a.sessionsRepo.ListForRoutine(ctx, routineID)
	if err != nil {
		return nil, err
	}

	// logs are grouped per exercise up front, so that each session is
	// fetched once no matter how many exercises the routine has
	type sessionLogs struct {
		completedAt time.Time
		perExercise map[string][]logs.Log
	}
	completed := make([]sessionLogs, 0, len(routineSessions))
	for _, session := range routineSessions {
		if session.IsActive() {
			continue
		}
		sLogs, err := a.logsRepo.ListForSession(ctx, session.ID)
		if err != nil {
			return nil, err
		}
		perExercise := map[string][]logs.Log{}
		for _, l := range sLogs {
			perExercise[l.ExerciseID] = append(perExercise[l.ExerciseID], l)
		}
		completed = append(completed, sessionLogs{
			completedAt: *session.CompletedAt,
			perExercise: perExercise,
		})
	}

	result := &RoutineProgress{
		Routine: ProgressRoutine{
			ID:          routine.ID,
			Name:        routine.Name,
			Description: routine.Description,
		},
		ExerciseProgress: make([]ExerciseProgress, 0, len(routineExercises)),
	}
	for _, exercise := range routineExercises {
		points := make([]DataPoint, 0)
		for _, s := range completed {
			point, ok := ComputePoint(s.perExercise[exercise.ID], exercise.RestTime)
			if !ok {
				continue
			}
			point.Date = s.completedAt
			points = append(points, point)
		}
		sort.SliceStable(points, func(i, j int) bool {
			return points[i].Date.Before(points[j].Date)
		})
		result.ExerciseProgress = append(result.ExerciseProgress, ExerciseProgress{
			ExerciseID:   exercise.ID,
			ExerciseName: exercise.Name,
			RestTime:     exercise.RestTime,
			DataPoints:   window.Apply(points),
		})
	}

	return result, nil
}

// ComputePoint folds the completed sets of one exercise in one session
// into a single data point. Sets not marked completed are skipped; if
// nothing was completed there is no point, and ok is false.
//
// The dynascore is training density: volume moved per second of rest,
// rounded to two decimals. With no rest configured the raw volume
// stands in, so a zero rest time never divides.
func ComputePoint(exerciseLogs []logs.Log, restTime int) (point DataPoint, ok bool) {
	for _, l := range exerciseLogs {
		if !l.Completed {
			continue
		}
		point.TotalVolume += l.Weight * float64(l.Reps)
		if l.Weight > point.MaxWeight {
			point.MaxWeight = l.Weight
		}
		point.TotalReps += l.Reps
		point.SetsCompleted++
	}
	if point.SetsCompleted == 0 {
		return DataPoint{}, false
	}

	if restTime > 0 {
		point.Dynascore = math.Round(point.TotalVolume/float64(restTime)*100) / 100
	} else {
		point.Dynascore = point.TotalVolume
	}

	return point, true
}
