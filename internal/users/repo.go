package users

import (
	"context"
	"errors"
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

func (r *Repo) Add(ctx context.Context, user User) (_ *User, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.users.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	user.ID = uuid.NewString()
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err = r.db.Exec(
		ctx,
		`INSERT INTO users
				(id, email, password_hash, name, gender, age, height, weight,
				fitness_goal, activity_level, avatar, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13);`,
		user.ID, user.Email, user.PasswordHash, user.Name,
		user.Gender, user.Age, user.Height, user.Weight,
		user.FitnessGoal, user.ActivityLevel, user.Avatar,
		user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if pkg.IsUniqueViolationError(err) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	span.SetAttributes(attribute.String("user.id", user.ID))

	return &user, nil
}

func (r *Repo) Get(ctx context.Context, id string) (_ *User, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.users.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("id", id))

	return r.getWhere(ctx, "id", id)
}

func (r *Repo) GetByEmail(ctx context.Context, email string) (_ *User, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.users.getbyemail")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	return r.getWhere(ctx, "email", email)
}

func (r *Repo) getWhere(ctx context.Context, column, value string) (*User, error) {
	var u User
	err := r.db.QueryRow(
		ctx,
		`SELECT
				id, email, password_hash, name, gender, age, height, weight,
				fitness_goal, activity_level, avatar, created_at, updated_at
			FROM users WHERE `+column+` = $1;`,
		value,
	).Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Gender, &u.Age,
		&u.Height, &u.Weight, &u.FitnessGoal, &u.ActivityLevel, &u.Avatar,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *Repo) Update(ctx context.Context, id string, params UpdateParams) (_ *User, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.users.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("id", id))

	tag, err := r.db.Exec(
		ctx,
		`UPDATE users SET
				name = COALESCE($1, name),
				gender = COALESCE($2, gender),
				age = COALESCE($3, age),
				height = COALESCE($4, height),
				weight = COALESCE($5, weight),
				fitness_goal = COALESCE($6, fitness_goal),
				activity_level = COALESCE($7, activity_level),
				avatar = COALESCE($8, avatar),
				updated_at = $9
			WHERE id = $10;`,
		params.Name, params.Gender, params.Age, params.Height, params.Weight,
		params.FitnessGoal, params.ActivityLevel, params.Avatar,
		time.Now(), id,
	)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrUserNotFound
	}

	return r.Get(ctx, id)
}
