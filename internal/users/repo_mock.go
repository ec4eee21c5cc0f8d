package users

import (
	"context"
	"fmt"
	"time"
)

type repoMock struct {
	users        map[string]*User
	usersByEmail map[string]*User
	nextID       int
}

func NewMockUsersRepo() *repoMock {
	return &repoMock{
		users:        make(map[string]*User),
		usersByEmail: make(map[string]*User),
	}
}

func (r *repoMock) Add(_ context.Context, user User) (*User, error) {
	if _, taken := r.usersByEmail[user.Email]; taken {
		return nil, ErrEmailTaken
	}
	r.nextID++
	user.ID = fmt.Sprintf("user-%d", r.nextID)
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	r.users[user.ID] = &user
	r.usersByEmail[user.Email] = &user
	return &user, nil
}

func (r *repoMock) Get(_ context.Context, id string) (*User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (r *repoMock) GetByEmail(_ context.Context, email string) (*User, error) {
	user, ok := r.usersByEmail[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (r *repoMock) Update(ctx context.Context, id string, params UpdateParams) (*User, error) {
	user, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if params.Name != nil {
		user.Name = *params.Name
	}
	if params.Gender != nil {
		user.Gender = params.Gender
	}
	if params.Age != nil {
		user.Age = params.Age
	}
	if params.Height != nil {
		user.Height = params.Height
	}
	if params.Weight != nil {
		user.Weight = params.Weight
	}
	if params.FitnessGoal != nil {
		user.FitnessGoal = params.FitnessGoal
	}
	if params.ActivityLevel != nil {
		user.ActivityLevel = params.ActivityLevel
	}
	if params.Avatar != nil {
		user.Avatar = params.Avatar
	}
	user.UpdatedAt = time.Now()
	return user, nil
}
