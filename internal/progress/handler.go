package progress

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/dynalog-app/backend/internal/auth"
	"github.com/dynalog-app/backend/internal/routines"
	"github.com/dynalog-app/backend/internal/telemetry/metrics"
	"github.com/dynalog-app/backend/internal/telemetry/tracing"
	"github.com/dynalog-app/backend/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type analyzer interface {
	Compute(ctx context.Context, routineID, userID string, window Window) (*RoutineProgress, error)
}

type Handler struct {
	analyzer analyzer
	metrics  *metrics.Manager
}

func NewHandler(analyzer analyzer, metrics *metrics.Manager) *Handler {
	return &Handler{
		analyzer: analyzer,
		metrics:  metrics,
	}
}

func (handler *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.progress.get")
	defer span.End()

	routineID := mux.Vars(r)["id"]
	if routineID == "" {
		http.Error(w, "error, routine id empty", http.StatusBadRequest)
		return
	}

	var window Window
	if timeframeStr := r.URL.Query().Get("timeframe"); timeframeStr != "" {
		timeframe, err := ParseTimeframe(timeframeStr)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		window.Timeframe = timeframe
		window.MaxPoints = DefaultMaxPoints
	}
	if maxPointsStr := r.URL.Query().Get("maxPoints"); maxPointsStr != "" {
		maxPoints, err := strconv.Atoi(maxPointsStr)
		if err != nil || maxPoints < 1 {
			http.Error(w, "invalid maxPoints (has to be a positive number)", http.StatusBadRequest)
			return
		}
		window.MaxPoints = maxPoints
	}

	routineProgress, err := handler.analyzer.Compute(
		ctx, routineID, auth.UserIDFromContext(ctx), window,
	)
	if err != nil {
		if errors.Is(err, routines.ErrRoutineNotFound) {
			http.Error(w, "routine not found", http.StatusNotFound)
			return
		}
		if errors.Is(err, routines.ErrNotOwner) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		log.Errorf("failed to compute progress for routine %s: %s", routineID, err)
		http.Error(w, "failed to compute progress", http.StatusInternalServerError)
		return
	}

	handler.metrics.CounterProgressComputed.Inc()

	progressJson, err := json.Marshal(routineProgress)
	if err != nil {
		log.Errorf("failed to marshal routine progress: %s", err)
		http.Error(w, "failed to marshal routine progress", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, progressJson, http.StatusOK)
}
