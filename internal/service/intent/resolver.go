package intent

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"time"

	"todochat/internal/models"
	"todochat/internal/service/tasks"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

const systemPrompt = `You are an AI assistant for a Todo app.
You can help users manage their tasks using these tools:
- add_task: Create a new task
- list_tasks: Get the user's tasks (status: all/pending/completed)
- complete_task: Mark a task as complete
- delete_task: Remove a task
- update_task: Modify a task's title or description

When the user wants to do something, use the appropriate tool.
Always be friendly and helpful.`

// DefaultTimeout bounds a single call to the completion service.
const DefaultTimeout = 15 * time.Second

// Resolver maps free-text input to a response and an ordered list of
// task tool invocations. When no chat model is configured, or any
// upstream call fails, it falls back to a deterministic keyword
// classifier; upstream errors never reach the caller.
type Resolver struct {
	model   model.ToolCallingChatModel
	tasks   *tasks.Service
	timeout time.Duration
}

// NewResolver builds a resolver. chatModel may be nil to run on the
// fallback strategy only.
func NewResolver(chatModel model.ToolCallingChatModel, taskService *tasks.Service, timeout time.Duration) (*Resolver, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if chatModel != nil {
		bound, err := chatModel.WithTools(toolInfos())
		if err != nil {
			return nil, err
		}
		chatModel = bound
	}
	return &Resolver{model: chatModel, tasks: taskService, timeout: timeout}, nil
}

// Resolve interprets text on behalf of userID. The returned error only
// ever originates from the task service or the store; completion
// service failures are absorbed by the fallback strategy.
func (r *Resolver) Resolve(ctx context.Context, userID int64, text string) (string, []models.ToolCall, error) {
	if r.model == nil {
		response, calls := r.fallback(text)
		return response, calls, nil
	}

	msg, err := r.generate(ctx, text)
	if err != nil {
		log.Printf("completion service unavailable, using fallback: %v", err)
		response, calls := r.fallback(text)
		return response, calls, nil
	}

	if len(msg.ToolCalls) == 0 {
		return msg.Content, []models.ToolCall{}, nil
	}

	// Execute every requested call in the order requested and aggregate
	// the confirmations.
	calls := make([]models.ToolCall, 0, len(msg.ToolCalls))
	confirmations := make([]string, 0, len(msg.ToolCalls))
	for _, tc := range msg.ToolCalls {
		params := map[string]any{}
		if args := strings.TrimSpace(tc.Function.Arguments); args != "" {
			if err := json.Unmarshal([]byte(args), &params); err != nil {
				log.Printf("malformed tool arguments from model, using fallback: %v", err)
				response, fbCalls := r.fallback(text)
				return response, fbCalls, nil
			}
		}
		calls = append(calls, models.ToolCall{Name: tc.Function.Name, Parameters: params})

		out, err := r.executeTool(ctx, userID, tc.Function.Name, tc.Function.Arguments)
		if err != nil {
			return "", nil, err
		}
		confirmations = append(confirmations, out)
	}
	return strings.Join(confirmations, "\n"), calls, nil
}

func (r *Resolver) generate(ctx context.Context, text string) (*schema.Message, error) {
	genCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.model.Generate(genCtx, []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(text),
	})
}
