package users

import "time"

type User struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"-"`
	Name          string    `json:"name"`
	Gender        *string   `json:"gender"`
	Age           *int      `json:"age"`
	Height        *int      `json:"height"` // in cm
	Weight        *float64  `json:"weight"` // in kg
	FitnessGoal   *string   `json:"fitnessGoal"`
	ActivityLevel *string   `json:"activityLevel"`
	Avatar        *string   `json:"avatar"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"-"`
}

var validGenders = map[string]bool{
	"male":   true,
	"female": true,
	"other":  true,
}

var validFitnessGoals = map[string]bool{
	"lose_weight":       true,
	"build_muscle":      true,
	"maintain":          true,
	"improve_endurance": true,
	"flexibility":       true,
}

var validActivityLevels = map[string]bool{
	"sedentary":         true,
	"lightly_active":    true,
	"moderately_active": true,
	"very_active":       true,
	"extremely_active":  true,
}

// UpdateParams carries the partial profile update. Nil fields are
// left untouched.
type UpdateParams struct {
	Name          *string  `json:"name"`
	Gender        *string  `json:"gender"`
	Age           *int     `json:"age"`
	Height        *int     `json:"height"`
	Weight        *float64 `json:"weight"`
	FitnessGoal   *string  `json:"fitnessGoal"`
	ActivityLevel *string  `json:"activityLevel"`
	Avatar        *string  `json:"avatar"`
}

func (p UpdateParams) Validate() error {
	if p.Name != nil && (*p.Name == "" || len(*p.Name) > 100) {
		return errFieldInvalid("name")
	}
	if p.Gender != nil && !validGenders[*p.Gender] {
		return errFieldInvalid("gender")
	}
	if p.Age != nil && (*p.Age < 1 || *p.Age > 150) {
		return errFieldInvalid("age")
	}
	if p.Height != nil && (*p.Height < 1 || *p.Height > 300) {
		return errFieldInvalid("height")
	}
	if p.Weight != nil && (*p.Weight < 1 || *p.Weight > 500) {
		return errFieldInvalid("weight")
	}
	if p.FitnessGoal != nil && !validFitnessGoals[*p.FitnessGoal] {
		return errFieldInvalid("fitnessGoal")
	}
	if p.ActivityLevel != nil && !validActivityLevels[*p.ActivityLevel] {
		return errFieldInvalid("activityLevel")
	}
	return nil
}
