package tasks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"todochat/internal/models"
)

var (
	// ErrNotFound is returned when the referenced task does not exist.
	ErrNotFound = errors.New("task not found")
	// ErrForbidden is returned when the task belongs to another user.
	ErrForbidden = errors.New("not authorized")
)

// Service exposes the five task tools backed by the relational store.
type Service struct {
	db *sql.DB
}

// NewService builds a task service.
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// AddTask creates a task for the user. The call is deliberately not
// idempotent: identical arguments create distinct tasks.
func (s *Service) AddTask(ctx context.Context, userID int64, title, description string) (*models.TaskResult, error) {
	if userID <= 0 {
		return nil, errors.New("user_id is required")
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, errors.New("title is required")
	}

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (user_id, title, description, completed, created_at, updated_at) VALUES (?, ?, ?, 0, ?, ?)`,
		userID, title, description, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("task id: %w", err)
	}
	return &models.TaskResult{TaskID: id, Status: "created", Title: title}, nil
}

// ListTasks returns the user's tasks in creation order, optionally
// filtered by completion status.
func (s *Service) ListTasks(ctx context.Context, userID int64, status models.TaskStatus) ([]models.Task, error) {
	if userID <= 0 {
		return nil, errors.New("user_id is required")
	}
	if status == "" {
		status = models.TaskStatusAll
	}
	if !status.Valid() {
		return nil, fmt.Errorf("invalid status filter: %s", status)
	}

	query := `SELECT id, user_id, title, description, completed, created_at, updated_at FROM tasks WHERE user_id = ?`
	switch status {
	case models.TaskStatusPending:
		query += ` AND completed = 0`
	case models.TaskStatusCompleted:
		query += ` AND completed = 1`
	}
	query += ` ORDER BY id ASC`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]models.Task, 0)
	for rows.Next() {
		var t models.Task
		if err := rows.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.Completed, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// CompleteTask marks a task done. Completing an already completed task
// succeeds and leaves the flag set.
func (s *Service) CompleteTask(ctx context.Context, userID, taskID int64) (*models.TaskResult, error) {
	task, err := s.ownedTask(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	if _, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET completed = 1, updated_at = ? WHERE id = ?`,
		time.Now().UTC(), taskID,
	); err != nil {
		return nil, fmt.Errorf("complete task: %w", err)
	}
	return &models.TaskResult{TaskID: task.ID, Status: "completed", Title: task.Title}, nil
}

// DeleteTask permanently removes a task.
func (s *Service) DeleteTask(ctx context.Context, userID, taskID int64) (*models.TaskResult, error) {
	task, err := s.ownedTask(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, taskID); err != nil {
		return nil, fmt.Errorf("delete task: %w", err)
	}
	return &models.TaskResult{TaskID: task.ID, Status: "deleted", Title: task.Title}, nil
}

// UpdateTask overwrites the supplied fields. A nil pointer leaves the
// field unchanged; a pointer to the empty string overwrites it.
func (s *Service) UpdateTask(ctx context.Context, userID, taskID int64, title, description *string) (*models.TaskResult, error) {
	task, err := s.ownedTask(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	newTitle := task.Title
	if title != nil {
		newTitle = *title
	}
	newDescription := task.Description
	if description != nil {
		newDescription = *description
	}
	if _, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET title = ?, description = ?, updated_at = ? WHERE id = ?`,
		newTitle, newDescription, time.Now().UTC(), taskID,
	); err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	return &models.TaskResult{TaskID: task.ID, Status: "updated", Title: newTitle}, nil
}

// ownedTask loads a task and enforces the ownership invariant: existence
// is checked first, then ownership, so foreign tasks yield ErrForbidden.
func (s *Service) ownedTask(ctx context.Context, userID, taskID int64) (*models.Task, error) {
	if userID <= 0 {
		return nil, errors.New("user_id is required")
	}
	if taskID <= 0 {
		return nil, ErrNotFound
	}
	var t models.Task
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, title, description, completed, created_at, updated_at FROM tasks WHERE id = ?`, taskID,
	).Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.Completed, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get task: %w", err)
	}
	if t.UserID != userID {
		return nil, ErrForbidden
	}
	return &t, nil
}
