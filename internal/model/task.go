package model

import (
	"time"

	"gorm.io/datatypes"
)

// StatusPending is assigned to new tasks that do not name a status.
const StatusPending = "Pending"

// StatusDone marks a task as finished; done tasks are never overdue.
const StatusDone = "Done"

// Task represents a single tracked item.
//
// AssignedUserID is a weak reference to User.ID: no foreign key is declared
// and the assignee name is resolved by a join when tasks are read.
type Task struct {
	ID             uint   `gorm:"primaryKey"`
	Title          string `gorm:"size:200;not null"`
	Description    *string
	Deadline       *datatypes.Date `gorm:"index"`
	AssignedUserID *uint           `gorm:"index"`
	Status         string          `gorm:"size:50;not null"`
	CreatedAt      time.Time       `gorm:"index"`
	UpdatedAt      time.Time
}

// TaskWithAssignee is a task row joined with its assignee's name.
// AssignedUserName is nil when the task is unassigned or the user is gone.
type TaskWithAssignee struct {
	Task
	AssignedUserName *string
}
