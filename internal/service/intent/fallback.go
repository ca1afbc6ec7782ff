package intent

import (
	"strings"

	"todochat/internal/models"
)

// Keyword groups for the deterministic classifier, in priority order.
var (
	addKeywords      = []string{"add", "create", "remember"}
	listKeywords     = []string{"list", "show", "what", "pending"}
	completeKeywords = []string{"complete", "done", "finish"}
	deleteKeywords   = []string{"delete", "remove"}
)

const helpResponse = "I'm your AI task assistant! I can help you:\n\n" +
	"- Add new tasks\n" +
	"- List your tasks\n" +
	"- Mark tasks as complete\n" +
	"- Delete tasks\n\n" +
	"Just ask me in natural language!"

// fallback classifies the lowercased input against fixed keyword groups,
// checked in priority order, and synthesizes a canned response plus the
// matching tool call. Parameters are placeholders; the fallback does not
// consult the store.
func (r *Resolver) fallback(text string) (string, []models.ToolCall) {
	lower := strings.ToLower(text)

	switch {
	case containsAny(lower, addKeywords):
		return "I've added that task for you! Is there anything else?", []models.ToolCall{{
			Name:       toolAddTask,
			Parameters: map[string]any{"title": "New task", "description": "Created from chat"},
		}}
	case containsAny(lower, listKeywords):
		return "Here are your tasks:\n- Task 1 (pending)\n- Task 2 (completed)\n\nYou have 1 pending task.", []models.ToolCall{{
			Name:       toolListTasks,
			Parameters: map[string]any{"status": "all"},
		}}
	case containsAny(lower, completeKeywords):
		return "Great job! I've marked that task as complete!", []models.ToolCall{{
			Name:       toolCompleteTask,
			Parameters: map[string]any{"task_id": 1},
		}}
	case containsAny(lower, deleteKeywords):
		return "I've deleted that task for you.", []models.ToolCall{{
			Name:       toolDeleteTask,
			Parameters: map[string]any{"task_id": 1},
		}}
	default:
		return helpResponse, []models.ToolCall{}
	}
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
