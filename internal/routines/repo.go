package routines

import (
	"context"
	"errors"
	"time"

	"github.com/dynalog-app/backend/internal/exercises"
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

func (r *Repo) Add(ctx context.Context, routine Routine) (_ *Routine, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.routines.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	routine.ID = uuid.NewString()
	now := time.Now()
	routine.CreatedAt = now
	routine.UpdatedAt = now

	_, err = r.db.Exec(
		ctx,
		`INSERT INTO routines
				(id, user_id, name, description, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6);`,
		routine.ID, routine.UserID, routine.Name, routine.Description,
		routine.CreatedAt, routine.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.String("routine.id", routine.ID))

	return &routine, nil
}

func (r *Repo) Get(ctx context.Context, id string) (_ *Routine, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.routines.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("id", id))

	var routine Routine
	err = r.db.QueryRow(
		ctx,
		`SELECT id, user_id, name, description, created_at, updated_at
			FROM routines WHERE id = $1;`,
		id,
	).Scan(
		&routine.ID, &routine.UserID, &routine.Name, &routine.Description,
		&routine.CreatedAt, &routine.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRoutineNotFound
		}
		return nil, err
	}
	return &routine, nil
}

// RoutineInfo serves the narrow ownership view the exercises handlers
// check against, without them depending on this package.
func (r *Repo) RoutineInfo(ctx context.Context, id string) (*exercises.RoutineInfo, error) {
	routine, err := r.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrRoutineNotFound) {
			return nil, exercises.ErrRoutineNotFound
		}
		return nil, err
	}
	return &exercises.RoutineInfo{
		ID:     routine.ID,
		UserID: routine.UserID,
	}, nil
}

func (r *Repo) ListForUser(ctx context.Context, userID string) (_ []Routine, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.routines.listforuser")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", userID))

	rows, err := r.db.Query(
		ctx,
		`SELECT id, user_id, name, description, created_at, updated_at
			FROM routines
			WHERE user_id = $1
			ORDER BY created_at DESC;`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	routines := make([]Routine, 0)
	for rows.Next() {
		var routine Routine
		if err := rows.Scan(
			&routine.ID, &routine.UserID, &routine.Name, &routine.Description,
			&routine.CreatedAt, &routine.UpdatedAt,
		); err != nil {
			return nil, err
		}
		routines = append(routines, routine)
	}

	return routines, nil
}

func (r *Repo) Update(ctx context.Context, id string, name, description *string) (_ *Routine, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.routines.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("id", id))

	tag, err := r.db.Exec(
		ctx,
		`UPDATE routines SET
				name = COALESCE($1, name),
				description = COALESCE($2, description),
				updated_at = $3
			WHERE id = $4;`,
		name, description, time.Now(), id,
	)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrRoutineNotFound
	}

	return r.Get(ctx, id)
}

// Delete removes the routine; its exercises and sessions (and their
// logs) go away through the FK cascade chain.
func (r *Repo) Delete(ctx context.Context, id string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.routines.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("id", id))

	tag, err := r.db.Exec(ctx, `DELETE FROM routines WHERE id = $1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRoutineNotFound
	}
	return nil
}
