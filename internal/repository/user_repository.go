package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"task-tracker/internal/model"
)

// DemoUserNames are inserted into an empty users table on startup.
var DemoUserNames = []string{"alice", "bob"}

// UserRepository reads users and seeds the demo roster.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) ListAll(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// SeedDemoUsers inserts DemoUserNames when the table is empty and reports
// whether it did so.
func (r *UserRepository) SeedDemoUsers(ctx context.Context) (bool, error) {
	seeded := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.User{}).Count(&count).Error; err != nil {
			return fmt.Errorf("count users: %w", err)
		}
		if count > 0 {
			return nil
		}

		users := make([]model.User, 0, len(DemoUserNames))
		for _, name := range DemoUserNames {
			users = append(users, model.User{Name: name})
		}
		if err := tx.Create(&users).Error; err != nil {
			return fmt.Errorf("seed users: %w", err)
		}
		seeded = true
		return nil
	})
	return seeded, err
}
