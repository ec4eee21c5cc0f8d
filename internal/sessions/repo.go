package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dynalog-app/backend/internal/logs"
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

// Add inserts a new active session. The partial unique index on
// workout_sessions (one active session per user) turns a concurrent
// double start into a unique violation, which is surfaced as
// ActiveSessionError with the id of the session that won.
func (r *Repo) Add(ctx context.Context, userID, routineID string) (_ *Session, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.sessions.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	session := Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		RoutineID: routineID,
		StartedAt: time.Now(),
	}

	_, err = r.db.Exec(
		ctx,
		`INSERT INTO workout_sessions
				(id, user_id, routine_id, started_at, completed_at, notes)
			VALUES ($1, $2, $3, $4, NULL, NULL);`,
		session.ID, session.UserID, session.RoutineID, session.StartedAt,
	)
	if err != nil {
		if pkg.IsUniqueViolationError(err) {
			active, activeErr := r.GetActive(ctx, userID)
			if activeErr != nil {
				return nil, fmt.Errorf("get active session after conflict: %w", activeErr)
			}
			return nil, ActiveSessionError{ActiveSessionID: active.ID}
		}
		return nil, err
	}

	span.SetAttributes(attribute.String("session.id", session.ID))

	return &session, nil
}

func (r *Repo) Get(ctx context.Context, id string) (_ *Session, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.sessions.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("id", id))

	return r.getWhere(ctx, "id", id)
}

// SessionInfo serves the narrow ownership and state view the log
// handlers check against, without them depending on this package.
func (r *Repo) SessionInfo(ctx context.Context, id string) (*logs.SessionInfo, error) {
	session, err := r.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, logs.ErrSessionNotFound
		}
		return nil, err
	}
	return &logs.SessionInfo{
		ID:        session.ID,
		UserID:    session.UserID,
		RoutineID: session.RoutineID,
		Active:    session.IsActive(),
	}, nil
}

// GetActive returns the user's running session, or ErrSessionNotFound
// when everything is completed.
func (r *Repo) GetActive(ctx context.Context, userID string) (_ *Session, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.sessions.getactive")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", userID))

	var session Session
	err = r.db.QueryRow(
		ctx,
		`SELECT id, user_id, routine_id, started_at, completed_at, notes
			FROM workout_sessions
			WHERE user_id = $1 AND completed_at IS NULL;`,
		userID,
	).Scan(
		&session.ID, &session.UserID, &session.RoutineID,
		&session.StartedAt, &session.CompletedAt, &session.Notes,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &session, nil
}

// List returns one page of the user's sessions, newest first.
func (r *Repo) List(ctx context.Context, userID string, page, limit int) (_ *Page, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.sessions.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.String("user.id", userID),
		attribute.Int("page", page),
		attribute.Int("limit", limit),
	)

	var total int
	if err := r.db.QueryRow(
		ctx,
		`SELECT COUNT(*) FROM workout_sessions WHERE user_id = $1;`,
		userID,
	).Scan(&total); err != nil {
		return nil, err
	}

	rows, err := r.db.Query(
		ctx,
		`SELECT id, user_id, routine_id, started_at, completed_at, notes
			FROM workout_sessions
			WHERE user_id = $1
			ORDER BY started_at DESC
			LIMIT $2 OFFSET $3;`,
		userID, limit, (page-1)*limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	sessions, err := rows2sessions(rows)
	if err != nil {
		return nil, err
	}

	return &Page{
		Sessions: sessions,
		Total:    total,
		HasMore:  page*limit < total,
		Page:     page,
		Limit:    limit,
	}, nil
}

func (r *Repo) ListForRoutine(ctx context.Context, routineID string) (_ []Session, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.sessions.listforroutine")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("routine.id", routineID))

	rows, err := r.db.Query(
		ctx,
		`SELECT id, user_id, routine_id, started_at, completed_at, notes
			FROM workout_sessions
			WHERE routine_id = $1
			ORDER BY started_at;`,
		routineID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return rows2sessions(rows)
}

// Complete stamps the session as finished. Completing an already
// completed session returns ErrAlreadyDone.
func (r *Repo) Complete(ctx context.Context, id string, notes *string) (_ *Session, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.sessions.complete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("id", id))

	tag, err := r.db.Exec(
		ctx,
		`UPDATE workout_sessions SET
				completed_at = $1,
				notes = COALESCE($2, notes)
			WHERE id = $3 AND completed_at IS NULL;`,
		time.Now(), notes, id,
	)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		session, getErr := r.Get(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		if !session.IsActive() {
			return nil, ErrAlreadyDone
		}
		return nil, ErrSessionNotFound
	}

	return r.Get(ctx, id)
}

func (r *Repo) Delete(ctx context.Context, id string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.sessions.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("id", id))

	tag, err := r.db.Exec(ctx, `DELETE FROM workout_sessions WHERE id = $1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (r *Repo) getWhere(ctx context.Context, column, value string) (*Session, error) {
	var session Session
	err := r.db.QueryRow(
		ctx,
		fmt.Sprintf(
			`SELECT id, user_id, routine_id, started_at, completed_at, notes
				FROM workout_sessions WHERE %s = $1;`, column,
		),
		value,
	).Scan(
		&session.ID, &session.UserID, &session.RoutineID,
		&session.StartedAt, &session.CompletedAt, &session.Notes,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &session, nil
}

func rows2sessions(rows pgx.Rows) ([]Session, error) {
	sessions := make([]Session, 0)
	for rows.Next() {
		var session Session
		if err := rows.Scan(
			&session.ID, &session.UserID, &session.RoutineID,
			&session.StartedAt, &session.CompletedAt, &session.Notes,
		); err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}
