package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"todochat/internal/models"

	"github.com/cloudwego/eino/schema"
)

// Tool names shared by the declared schema, the dispatcher, and the
// fallback classifier.
const (
	toolAddTask      = "add_task"
	toolListTasks    = "list_tasks"
	toolCompleteTask = "complete_task"
	toolDeleteTask   = "delete_task"
	toolUpdateTask   = "update_task"
)

// toolInfos declares every task tool to the completion service. The
// model only sees titles and parameter shapes; the owning user is bound
// server-side at execution time.
func toolInfos() []*schema.ToolInfo {
	return []*schema.ToolInfo{
		{
			Name: toolAddTask,
			Desc: "Add a new task to the user's todo list",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"title": {
					Desc:     "Task title",
					Type:     schema.String,
					Required: true,
				},
				"description": {
					Desc: "Task description (optional)",
					Type: schema.String,
				},
			}),
		},
		{
			Name: toolListTasks,
			Desc: "List the user's tasks",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"status": {
					Desc: "Filter by completion status",
					Type: schema.String,
					Enum: []string{"all", "pending", "completed"},
				},
			}),
		},
		{
			Name: toolCompleteTask,
			Desc: "Mark a task as complete",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"task_id": {
					Desc:     "ID of the task to complete",
					Type:     schema.Integer,
					Required: true,
				},
			}),
		},
		{
			Name: toolDeleteTask,
			Desc: "Delete a task",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"task_id": {
					Desc:     "ID of the task to delete",
					Type:     schema.Integer,
					Required: true,
				},
			}),
		},
		{
			Name: toolUpdateTask,
			Desc: "Update a task's title or description",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"task_id": {
					Desc:     "ID of the task to update",
					Type:     schema.Integer,
					Required: true,
				},
				"title": {
					Desc: "New title",
					Type: schema.String,
				},
				"description": {
					Desc: "New description",
					Type: schema.String,
				},
			}),
		},
	}
}

type addTaskParams struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

type listTasksParams struct {
	Status string `json:"status,omitempty"`
}

type taskIDParams struct {
	TaskID int64 `json:"task_id"`
}

type updateTaskParams struct {
	TaskID      int64   `json:"task_id"`
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
}

// executeTool runs one requested tool call against the task service on
// behalf of userID and returns a natural-language confirmation.
func (r *Resolver) executeTool(ctx context.Context, userID int64, name, argsJSON string) (string, error) {
	switch name {
	case toolAddTask:
		var p addTaskParams
		if err := decodeArgs(argsJSON, &p); err != nil {
			return "", err
		}
		res, err := r.tasks.AddTask(ctx, userID, p.Title, p.Description)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("I've added %q to your list (task #%d).", res.Title, res.TaskID), nil
	case toolListTasks:
		var p listTasksParams
		if err := decodeArgs(argsJSON, &p); err != nil {
			return "", err
		}
		list, err := r.tasks.ListTasks(ctx, userID, models.TaskStatus(p.Status))
		if err != nil {
			return "", err
		}
		return formatTaskList(list), nil
	case toolCompleteTask:
		var p taskIDParams
		if err := decodeArgs(argsJSON, &p); err != nil {
			return "", err
		}
		res, err := r.tasks.CompleteTask(ctx, userID, p.TaskID)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("I've marked %q as complete.", res.Title), nil
	case toolDeleteTask:
		var p taskIDParams
		if err := decodeArgs(argsJSON, &p); err != nil {
			return "", err
		}
		res, err := r.tasks.DeleteTask(ctx, userID, p.TaskID)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("I've deleted %q.", res.Title), nil
	case toolUpdateTask:
		var p updateTaskParams
		if err := decodeArgs(argsJSON, &p); err != nil {
			return "", err
		}
		res, err := r.tasks.UpdateTask(ctx, userID, p.TaskID, p.Title, p.Description)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("I've updated %q.", res.Title), nil
	default:
		return "", fmt.Errorf("unknown tool: %s", name)
	}
}

func decodeArgs(argsJSON string, v any) error {
	if strings.TrimSpace(argsJSON) == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(argsJSON), v); err != nil {
		return fmt.Errorf("decode tool arguments: %w", err)
	}
	return nil
}

func formatTaskList(list []models.Task) string {
	if len(list) == 0 {
		return "You don't have any tasks yet."
	}
	var b strings.Builder
	b.WriteString("Here are your tasks:\n")
	pending := 0
	for _, t := range list {
		state := "pending"
		if t.Completed {
			state = "completed"
		} else {
			pending++
		}
		fmt.Fprintf(&b, "- %s (%s)\n", t.Title, state)
	}
	fmt.Fprintf(&b, "\nYou have %d pending task(s).", pending)
	return b.String()
}
