package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"task-tracker/internal/model"
)

// TaskRepository handles CRUD for tasks.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

func (r *TaskRepository) FindByID(ctx context.Context, id uint) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).First(&task, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find task: %w", err)
	}
	return &task, nil
}

// ListWithAssignee returns every task, newest first, with assignee names.
func (r *TaskRepository) ListWithAssignee(ctx context.Context) ([]model.TaskWithAssignee, error) {
	var rows []model.TaskWithAssignee
	if err := r.withAssignee(ctx).
		Order("tasks.created_at DESC, tasks.id DESC").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return rows, nil
}

// ListOverdue returns tasks whose deadline is before the calendar day of
// today and whose status is not done.
func (r *TaskRepository) ListOverdue(ctx context.Context, today time.Time) ([]model.TaskWithAssignee, error) {
	var rows []model.TaskWithAssignee
	if err := r.withAssignee(ctx).
		Where("tasks.deadline IS NOT NULL AND tasks.deadline < ? AND tasks.status <> ?", model.DateOf(today), model.StatusDone).
		Order("tasks.deadline ASC, tasks.id ASC").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("list overdue tasks: %w", err)
	}
	return rows, nil
}

// Update writes the given columns. A nil value clears the column.
func (r *TaskRepository) Update(ctx context.Context, id uint, columns map[string]interface{}) error {
	if len(columns) == 0 {
		return nil
	}
	result := r.db.WithContext(ctx).Model(&model.Task{}).Where("id = ?", id).Updates(columns)
	if err := result.Error; err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *TaskRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&model.Task{}, id)
	if err := result.Error; err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *TaskRepository) withAssignee(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&model.Task{}).
		Select("tasks.*, users.name AS assigned_user_name").
		Joins("LEFT JOIN users ON users.id = tasks.assigned_user_id")
}
