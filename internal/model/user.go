package model

import "time"

// User is someone a task can be assigned to.
type User struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"size:80;not null"`
	CreatedAt time.Time
}
