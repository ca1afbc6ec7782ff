package models

import "time"

// Task is a single unit of work owned by one user.
type Task struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TaskStatus filters ListTasks results.
type TaskStatus string

const (
	TaskStatusAll       TaskStatus = "all"
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusCompleted TaskStatus = "completed"
)

// Valid reports whether the filter is one of the known values.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusAll, TaskStatusPending, TaskStatusCompleted:
		return true
	}
	return false
}

// TaskResult is the payload returned by the mutating task tools.
type TaskResult struct {
	TaskID int64  `json:"task_id"`
	Status string `json:"status"`
	Title  string `json:"title"`
}
