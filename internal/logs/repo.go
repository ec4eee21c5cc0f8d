package logs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dynalog-app/backend/internal/telemetry/tracing"
	"github.com/dynalog-app/backend/pkg"

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

func (r *Repo) Add(ctx context.Context, log Log) (_ *Log, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.logs.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	log.ID = uuid.NewString()
	log.CreatedAt = time.Now()

	_, err = r.db.Exec(
		ctx,
		`INSERT INTO exercise_logs
				(id, session_id, exercise_id, set_number, weight, reps, completed, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8);`,
		log.ID, log.SessionID, log.ExerciseID, log.SetNumber,
		log.Weight, log.Reps, log.Completed, log.CreatedAt,
	)
	if err != nil {
		// session or exercise deleted between the handler checks and here
		if pkg.IsForeignKeyViolationError(err) {
			return nil, ErrSessionGone
		}
		return nil, err
	}

	span.SetAttributes(attribute.String("log.id", log.ID))

	return &log, nil
}

func (r *Repo) Get(ctx context.Context, id string) (_ *Log, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.logs.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("id", id))

	var log Log
	err = r.db.QueryRow(
		ctx,
		`SELECT id, session_id, exercise_id, set_number, weight, reps, completed, created_at
			FROM exercise_logs WHERE id = $1;`,
		id,
	).Scan(
		&log.ID, &log.SessionID, &log.ExerciseID, &log.SetNumber,
		&log.Weight, &log.Reps, &log.Completed, &log.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLogNotFound
		}
		return nil, err
	}
	return &log, nil
}

func (r *Repo) ListForSession(ctx context.Context, sessionID string) (_ []Log, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.logs.listforsession")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("session.id", sessionID))

	rows, err := r.db.Query(
		ctx,
		`SELECT id, session_id, exercise_id, set_number, weight, reps, completed, created_at
			FROM exercise_logs
			WHERE session_id = $1
			ORDER BY created_at;`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	logs := make([]Log, 0)
	for rows.Next() {
		var log Log
		if err := rows.Scan(
			&log.ID, &log.SessionID, &log.ExerciseID, &log.SetNumber,
			&log.Weight, &log.Reps, &log.Completed, &log.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan log row: %w", err)
		}
		logs = append(logs, log)
	}

	return logs, nil
}

type UpdateParams struct {
	SetNumber *int     `json:"setNumber"`
	Weight    *float64 `json:"weight"`
	Reps      *int     `json:"reps"`
	Completed *bool    `json:"completed"`
}

func (r *Repo) Update(ctx context.Context, id string, params UpdateParams) (_ *Log, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.logs.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("id", id))

	tag, err := r.db.Exec(
		ctx,
		`UPDATE exercise_logs SET
				set_number = COALESCE($1, set_number),
				weight = COALESCE($2, weight),
				reps = COALESCE($3, reps),
				completed = COALESCE($4, completed)
			WHERE id = $5;`,
		params.SetNumber, params.Weight, params.Reps, params.Completed, id,
	)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrLogNotFound
	}

	return r.Get(ctx, id)
}

func (r *Repo) Delete(ctx context.Context, id string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.logs.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("id", id))

	tag, err := r.db.Exec(ctx, `DELETE FROM exercise_logs WHERE id = $1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrLogNotFound
	}
	return nil
}
