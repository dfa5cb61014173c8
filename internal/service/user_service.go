package service

import (
	"context"

	"task-tracker/internal/model"
	"task-tracker/internal/repository"
)

// UserService exposes the user roster.
type UserService struct {
	repo *repository.UserRepository
}

func NewUserService(repo *repository.UserRepository) *UserService {
	return &UserService{repo: repo}
}

func (s *UserService) List(ctx context.Context) ([]model.User, error) {
	return s.repo.ListAll(ctx)
}

// SeedDemoUsers fills an empty roster with the demo users.
func (s *UserService) SeedDemoUsers(ctx context.Context) (bool, error) {
	return s.repo.SeedDemoUsers(ctx)
}
