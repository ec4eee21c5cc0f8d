package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/dynalog-app/backend/internal/config"
	"github.com/dynalog-app/backend/internal/db"
	"github.com/dynalog-app/backend/pkg"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

// seed fills the database with a demo user and a year of realistic
// workout history, for local development and for playing with the
// progress charts.

type seedExercise struct {
	name     string
	weight   float64
	series   int
	reps     int
	restTime int
}

type seedRoutine struct {
	name        string
	description string
	exercises   []seedExercise
}

var seedRoutines = []seedRoutine{
	{
		name:        "Push Day",
		description: "Chest, shoulders, and triceps workout",
		exercises: []seedExercise{
			{"Bench Press", 60, 4, 8, 120},
			{"Overhead Press", 40, 4, 8, 90},
			{"Incline Dumbbell Press", 24, 3, 10, 90},
			{"Lateral Raises", 10, 3, 12, 60},
			{"Tricep Pushdowns", 25, 3, 12, 60},
		},
	},
	{
		name:        "Pull Day",
		description: "Back and biceps workout",
		exercises: []seedExercise{
			{"Deadlift", 80, 4, 6, 180},
			{"Barbell Rows", 50, 4, 8, 120},
			{"Lat Pulldowns", 50, 3, 10, 90},
			{"Face Pulls", 20, 3, 15, 60},
			{"Barbell Curls", 25, 3, 10, 60},
		},
	},
	{
		name:        "Leg Day",
		description: "Quadriceps, hamstrings, and calves",
		exercises: []seedExercise{
			{"Squat", 70, 4, 8, 180},
			{"Romanian Deadlift", 60, 4, 10, 120},
			{"Leg Press", 120, 3, 12, 90},
			{"Leg Curls", 35, 3, 12, 60},
			{"Calf Raises", 80, 4, 15, 60},
		},
	},
}

var sessionNotes = []string{
	"Felt strong today!",
	"A bit tired, but pushed through",
	"Great pump",
	"Need to focus on form next time",
	"New PR!",
	"Solid workout",
	"Energy was low today",
	"Increased weight on main lifts",
	"Good session overall",
	"Need more sleep",
}

func main() {
	env := flag.String("env", "development", "environment [prod | production | dev | development ]")
	configPath := flag.String("config", "./config.toml", "path for the TOML config file")
	email := flag.String("email", "demo@dynalog.app", "email of the demo user")
	password := flag.String("password", "demo-password", "password of the demo user")
	flag.Parse()

	log.SetOutput(os.Stdout)

	cfg, err := config.Load(*env, *configPath)
	if err != nil {
		log.Fatalf("load config: %s", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	dbPool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
		DBHost: cfg.PostgresHost,
		DBPort: cfg.PostgresPort,
		DBName: cfg.PostgresDBName,
	})
	if err != nil {
		log.Fatalf("new db pool: %s", err)
	}
	defer dbPool.Close()

	userID, err := seedUser(ctx, dbPool, *email, *password)
	if err != nil {
		log.Fatalf("seed user: %s", err)
	}
	log.Infof("demo user ready: %s [%s]", *email, userID)

	sessionCount, logCount, err := seedWorkoutHistory(ctx, dbPool, userID)
	if err != nil {
		log.Fatalf("seed workout history: %s", err)
	}

	log.Infof(
		"seed done: %d routines, %d sessions, %d logs",
		len(seedRoutines), sessionCount, logCount,
	)
}

func seedUser(ctx context.Context, dbPool *pgxpool.Pool, email, password string) (string, error) {
	passwordHash, err := pkg.HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	userID := uuid.NewString()
	now := time.Now()
	_, err = dbPool.Exec(
		ctx,
		`INSERT INTO users (id, email, password_hash, name, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $5)
			ON CONFLICT (email) DO NOTHING;`,
		userID, email, passwordHash, gofakeit.Name(), now,
	)
	if err != nil {
		return "", err
	}

	// the user might have been there already
	err = dbPool.QueryRow(
		ctx, `SELECT id FROM users WHERE email = $1;`, email,
	).Scan(&userID)
	return userID, err
}

func seedWorkoutHistory(
	ctx context.Context,
	dbPool *pgxpool.Pool,
	userID string,
) (sessionCount, logCount int, err error) {
	type createdExercise struct {
		id   string
		data seedExercise
	}
	type createdRoutine struct {
		id        string
		exercises []createdExercise
	}

	now := time.Now()
	created := make([]createdRoutine, 0, len(seedRoutines))
	for _, routine := range seedRoutines {
		routineID := uuid.NewString()
		if _, err := dbPool.Exec(
			ctx,
			`INSERT INTO routines (id, user_id, name, description, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $5);`,
			routineID, userID, routine.name, routine.description, now.AddDate(-1, 0, 0),
		); err != nil {
			return 0, 0, fmt.Errorf("insert routine: %w", err)
		}

		cr := createdRoutine{id: routineID}
		for i, exercise := range routine.exercises {
			exerciseID := uuid.NewString()
			if _, err := dbPool.Exec(
				ctx,
				`INSERT INTO exercises
						(id, routine_id, name, weight, series, reps, rest_time, order_index, created_at, updated_at)
					VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9);`,
				exerciseID, routineID, exercise.name, exercise.weight,
				exercise.series, exercise.reps, exercise.restTime, i, now.AddDate(-1, 0, 0),
			); err != nil {
				return 0, 0, fmt.Errorf("insert exercise: %w", err)
			}
			cr.exercises = append(cr.exercises, createdExercise{id: exerciseID, data: exercise})
		}
		created = append(created, cr)
	}

	// a year of push/pull/legs rotation, 2-3 workouts a week, with
	// slowly growing weights
	const totalWeeks = 52
	start := now.AddDate(-1, 0, 0)
	for week := 0; week < totalWeeks; week++ {
		workoutsThisWeek := 3
		if rand.Float64() < 0.2 {
			workoutsThisWeek = 2
		}

		for workout := 0; workout < workoutsThisWeek; workout++ {
			routine := created[(week*3+workout)%3]

			startedAt := start.
				AddDate(0, 0, week*7+workout*2+rand.Intn(2)).
				Add(time.Duration(17+rand.Intn(4)) * time.Hour).
				Add(time.Duration(rand.Intn(60)) * time.Minute)
			if startedAt.After(now) {
				continue
			}
			if rand.Float64() < 0.1 {
				// missed day
				continue
			}
			completedAt := startedAt.Add(time.Duration(45+rand.Intn(45)) * time.Minute)

			var notes *string
			if rand.Float64() > 0.7 {
				note := sessionNotes[rand.Intn(len(sessionNotes))]
				notes = &note
			}

			sessionID := uuid.NewString()
			if _, err := dbPool.Exec(
				ctx,
				`INSERT INTO workout_sessions
						(id, user_id, routine_id, started_at, completed_at, notes)
					VALUES ($1, $2, $3, $4, $5, $6);`,
				sessionID, userID, routine.id, startedAt, completedAt, notes,
			); err != nil {
				return sessionCount, logCount, fmt.Errorf("insert session: %w", err)
			}
			sessionCount++

			for _, exercise := range routine.exercises {
				// ~25% strength gain over the year
				weight := exercise.data.weight * (1 + float64(week)/totalWeeks*0.25)
				weight = gofakeit.Float64Range(weight*0.95, weight*1.05)

				for setNumber := 1; setNumber <= exercise.data.series; setNumber++ {
					if setNumber == exercise.data.series && rand.Float64() < 0.05 {
						// bailed on the last set
						continue
					}
					setWeight := weight
					if setNumber > 2 {
						setWeight = weight * 0.95
					}
					reps := exercise.data.reps + rand.Intn(3) - 1
					if reps < 1 {
						reps = 1
					}

					if _, err := dbPool.Exec(
						ctx,
						`INSERT INTO exercise_logs
								(id, session_id, exercise_id, set_number, weight, reps, completed, created_at)
							VALUES ($1, $2, $3, $4, $5, $6, TRUE, $7);`,
						uuid.NewString(), sessionID, exercise.id, setNumber,
						setWeight, reps, startedAt.Add(time.Duration(setNumber)*time.Minute),
					); err != nil {
						return sessionCount, logCount, fmt.Errorf("insert log: %w", err)
					}
					logCount++
				}
			}
		}
	}

	return sessionCount, logCount, nil
}
