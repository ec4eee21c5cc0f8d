package exercises

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dynalog-app/backend/internal/telemetry/tracing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

// Add appends the exercise at the end of its routine.
func (r *Repo) Add(ctx context.Context, exercise Exercise) (_ *Exercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.exercises.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	exercise.ID = uuid.NewString()
	now := time.Now()
	exercise.CreatedAt = now
	exercise.UpdatedAt = now

	err = r.db.QueryRow(
		ctx,
		`INSERT INTO exercises
				(id, routine_id, name, description, weight, series, reps, rest_time, order_index, created_at, updated_at)
			SELECT $1, $2, $3, $4, $5, $6, $7, $8,
				COALESCE(MAX(order_index) + 1, 0), $9, $10
			FROM exercises WHERE routine_id = $2
			RETURNING order_index;`,
		exercise.ID, exercise.RoutineID, exercise.Name, exercise.Description,
		exercise.Weight, exercise.Series, exercise.Reps, exercise.RestTime,
		exercise.CreatedAt, exercise.UpdatedAt,
	).Scan(&exercise.OrderIndex)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.String("exercise.id", exercise.ID))

	return &exercise, nil
}

func (r *Repo) Get(ctx context.Context, id string) (_ *Exercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.exercises.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("id", id))

	var exercise Exercise
	err = r.db.QueryRow(
		ctx,
		`SELECT id, routine_id, name, description, weight, series, reps, rest_time, order_index, created_at, updated_at
			FROM exercises WHERE id = $1;`,
		id,
	).Scan(
		&exercise.ID, &exercise.RoutineID, &exercise.Name, &exercise.Description,
		&exercise.Weight, &exercise.Series, &exercise.Reps, &exercise.RestTime,
		&exercise.OrderIndex, &exercise.CreatedAt, &exercise.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExerciseNotFound
		}
		return nil, err
	}
	return &exercise, nil
}

func (r *Repo) ListForRoutine(ctx context.Context, routineID string) (_ []Exercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.exercises.listforroutine")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("routine.id", routineID))

	rows, err := r.db.Query(
		ctx,
		`SELECT id, routine_id, name, description, weight, series, reps, rest_time, order_index, created_at, updated_at
			FROM exercises
			WHERE routine_id = $1
			ORDER BY order_index;`,
		routineID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return rows2exercises(rows)
}

type UpdateParams struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Weight      *float64 `json:"weight"`
	Series      *int     `json:"series"`
	Reps        *int     `json:"reps"`
	RestTime    *int     `json:"restTime"`
}

func (r *Repo) Update(ctx context.Context, id string, params UpdateParams) (_ *Exercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.exercises.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("id", id))

	tag, err := r.db.Exec(
		ctx,
		`UPDATE exercises SET
				name = COALESCE($1, name),
				description = COALESCE($2, description),
				weight = COALESCE($3, weight),
				series = COALESCE($4, series),
				reps = COALESCE($5, reps),
				rest_time = COALESCE($6, rest_time),
				updated_at = $7
			WHERE id = $8;`,
		params.Name, params.Description, params.Weight,
		params.Series, params.Reps, params.RestTime,
		time.Now(), id,
	)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrExerciseNotFound
	}

	return r.Get(ctx, id)
}

// Delete removes the exercise and shifts the siblings that came after
// it one slot down, keeping the routine order dense.
func (r *Repo) Delete(ctx context.Context, id string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.exercises.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("id", id))

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var routineID string
	var orderIndex int
	err = tx.QueryRow(
		ctx,
		`DELETE FROM exercises WHERE id = $1 RETURNING routine_id, order_index;`,
		id,
	).Scan(&routineID, &orderIndex)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrExerciseNotFound
		}
		return err
	}

	_, err = tx.Exec(
		ctx,
		`UPDATE exercises SET order_index = order_index - 1
			WHERE routine_id = $1 AND order_index > $2;`,
		routineID, orderIndex,
	)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// Reorder rewrites the routine order so that each exercise takes the
// position it has in ids. The ids must be exactly the routine's
// exercises, otherwise nothing is changed and ErrNotInRoutine is
// returned.
func (r *Repo) Reorder(ctx context.Context, routineID string, ids []string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.exercises.reorder")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.String("routine.id", routineID),
		attribute.Int("exercises", len(ids)),
	)

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	rows, err := tx.Query(
		ctx,
		`SELECT id FROM exercises WHERE routine_id = $1 FOR UPDATE;`,
		routineID,
	)
	if err != nil {
		return err
	}
	existing := map[string]bool{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		existing[id] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	if len(ids) != len(existing) {
		return ErrNotInRoutine
	}
	for _, id := range ids {
		if !existing[id] {
			return ErrNotInRoutine
		}
	}

	for i, id := range ids {
		if _, err := tx.Exec(
			ctx,
			`UPDATE exercises SET order_index = $1, updated_at = $2 WHERE id = $3;`,
			i, time.Now(), id,
		); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// Move swaps the exercise with its neighbour above or below. Moving
// the first exercise up or the last one down is a no-op.
func (r *Repo) Move(ctx context.Context, id string, direction MoveDirection) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.exercises.move")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.String("id", id),
		attribute.String("direction", string(direction)),
	)

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var routineID string
	var orderIndex int
	err = tx.QueryRow(
		ctx,
		`SELECT routine_id, order_index FROM exercises WHERE id = $1 FOR UPDATE;`,
		id,
	).Scan(&routineID, &orderIndex)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrExerciseNotFound
		}
		return err
	}

	neighbourIndex := orderIndex - 1
	if direction == MoveDown {
		neighbourIndex = orderIndex + 1
	}

	var neighbourID string
	err = tx.QueryRow(
		ctx,
		`SELECT id FROM exercises
			WHERE routine_id = $1 AND order_index = $2 FOR UPDATE;`,
		routineID, neighbourIndex,
	).Scan(&neighbourID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// already at the edge
			return tx.Commit(ctx)
		}
		return err
	}

	now := time.Now()
	if _, err := tx.Exec(
		ctx,
		`UPDATE exercises SET order_index = $1, updated_at = $2 WHERE id = $3;`,
		neighbourIndex, now, id,
	); err != nil {
		return err
	}
	if _, err := tx.Exec(
		ctx,
		`UPDATE exercises SET order_index = $1, updated_at = $2 WHERE id = $3;`,
		orderIndex, now, neighbourID,
	); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func rows2exercises(rows pgx.Rows) ([]Exercise, error) {
	exercises := make([]Exercise, 0)
	for rows.Next() {
		var exercise Exercise
		if err := rows.Scan(
			&exercise.ID, &exercise.RoutineID, &exercise.Name, &exercise.Description,
			&exercise.Weight, &exercise.Series, &exercise.Reps, &exercise.RestTime,
			&exercise.OrderIndex, &exercise.CreatedAt, &exercise.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan exercise row: %w", err)
		}
		exercises = append(exercises, exercise)
	}
	return exercises, nil
}
