package service

import (
	"context"
	"time"

	"task-tracker/internal/model"
	"task-tracker/internal/repository"
)

// TaskInput represents data required to create a task.
type TaskInput struct {
	Title          string
	Description    *string
	Status         *string
	Deadline       *string
	AssignedUserID *uint
}

// TaskPatch carries a partial update. Only fields whose Set flag is true are
// written; a null value clears nullable columns.
type TaskPatch struct {
	Title          model.Optional[string]
	Description    model.Optional[string]
	Status         model.Optional[string]
	Deadline       model.Optional[string]
	AssignedUserID model.Optional[uint]
}

// TaskService wraps task-related business logic.
type TaskService struct {
	taskRepo *repository.TaskRepository
}

func NewTaskService(taskRepo *repository.TaskRepository) *TaskService {
	return &TaskService{taskRepo: taskRepo}
}

func (s *TaskService) CreateTask(ctx context.Context, input TaskInput) (*model.Task, error) {
	if input.Title == "" {
		return nil, &ValidationError{Field: "title", Message: "title required"}
	}

	task := model.Task{
		Title:       input.Title,
		Description: input.Description,
		Status:      model.StatusPending,
	}
	if input.Status != nil {
		task.Status = *input.Status
	}
	if input.Deadline != nil && *input.Deadline != "" {
		task.Deadline = model.ParseDate(*input.Deadline)
	}
	if input.AssignedUserID != nil && *input.AssignedUserID != 0 {
		id := *input.AssignedUserID
		task.AssignedUserID = &id
	}

	if err := s.taskRepo.Create(ctx, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// ListTasks returns all tasks, most recently created first.
func (s *TaskService) ListTasks(ctx context.Context) ([]model.TaskWithAssignee, error) {
	return s.taskRepo.ListWithAssignee(ctx)
}

func (s *TaskService) GetTask(ctx context.Context, taskID uint) (*model.Task, error) {
	return s.taskRepo.FindByID(ctx, taskID)
}

// UpdateTask applies patch to the task. Title is not revalidated, so a patch
// may set it to the empty string.
func (s *TaskService) UpdateTask(ctx context.Context, taskID uint, patch TaskPatch) error {
	if _, err := s.taskRepo.FindByID(ctx, taskID); err != nil {
		return err
	}
	return s.taskRepo.Update(ctx, taskID, patchColumns(patch))
}

func (s *TaskService) DeleteTask(ctx context.Context, taskID uint) error {
	return s.taskRepo.Delete(ctx, taskID)
}

// OverdueTasks lists unfinished tasks whose deadline is before the calendar
// day of now.
func (s *TaskService) OverdueTasks(ctx context.Context, now time.Time) ([]model.TaskWithAssignee, error) {
	return s.taskRepo.ListOverdue(ctx, now)
}

func patchColumns(patch TaskPatch) map[string]interface{} {
	columns := make(map[string]interface{})

	// title and status are NOT NULL, so null becomes the empty string.
	if patch.Title.Set {
		columns["title"] = patch.Title.Value
	}
	if patch.Status.Set {
		columns["status"] = patch.Status.Value
	}
	if patch.Description.Set {
		columns["description"] = nullable(patch.Description.Ptr())
	}
	if patch.Deadline.Set {
		var deadline interface{}
		if patch.Deadline.Valid && patch.Deadline.Value != "" {
			if d := model.ParseDate(patch.Deadline.Value); d != nil {
				deadline = *d
			}
		}
		columns["deadline"] = deadline
	}
	if patch.AssignedUserID.Set {
		var assignee interface{}
		if patch.AssignedUserID.Valid && patch.AssignedUserID.Value != 0 {
			assignee = patch.AssignedUserID.Value
		}
		columns["assigned_user_id"] = assignee
	}
	return columns
}

func nullable[T any](p *T) interface{} {
	if p == nil {
		return nil
	}
	return *p
}
