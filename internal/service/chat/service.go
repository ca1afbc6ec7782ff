package chat

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"todochat/internal/models"
	"todochat/internal/service/intent"
)

// ErrConversationNotFound is returned when a supplied conversation id
// does not exist or belongs to another user.
var ErrConversationNotFound = errors.New("conversation not found")

// Service orchestrates a chat turn: conversation resolution, transcript
// persistence, and intent dispatch.
type Service struct {
	db       *sql.DB
	resolver *intent.Resolver
}

// NewService builds a conversation manager.
func NewService(db *sql.DB, resolver *intent.Resolver) *Service {
	return &Service{db: db, resolver: resolver}
}

// Result is the outcome of one chat turn.
type Result struct {
	ConversationID int64             `json:"conversation_id"`
	Response       string            `json:"response"`
	ToolCalls      []models.ToolCall `json:"tool_calls"`
}

// Chat runs one turn. A nil conversationID lazily creates a conversation
// owned by the caller. The incoming user message is committed before
// intent dispatch, so it survives even when dispatch fails; the
// assistant message and the conversation touch are written atomically
// after dispatch succeeds.
func (s *Service) Chat(ctx context.Context, userID int64, conversationID *int64, text string) (*Result, error) {
	if userID <= 0 {
		return nil, errors.New("user_id is required")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("message cannot be empty")
	}

	conv, err := s.resolveOrCreateConversation(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}

	if _, err := s.appendMessage(ctx, userID, conv.ID, models.RoleUser, text); err != nil {
		return nil, err
	}

	response, toolCalls, err := s.resolver.Resolve(ctx, userID, text)
	if err != nil {
		return nil, err
	}

	if _, err := s.appendMessage(ctx, userID, conv.ID, models.RoleAssistant, response); err != nil {
		return nil, err
	}

	return &Result{ConversationID: conv.ID, Response: response, ToolCalls: toolCalls}, nil
}

// resolveOrCreateConversation loads the conversation when an id is
// supplied, refreshing its updated_at, or creates a new one otherwise.
func (s *Service) resolveOrCreateConversation(ctx context.Context, userID int64, conversationID *int64) (*models.Conversation, error) {
	now := time.Now().UTC()

	if conversationID == nil {
		res, err := s.db.ExecContext(ctx,
			`INSERT INTO conversations (user_id, created_at, updated_at) VALUES (?, ?, ?)`,
			userID, now, now,
		)
		if err != nil {
			return nil, fmt.Errorf("create conversation: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("conversation id: %w", err)
		}
		return &models.Conversation{ID: id, UserID: userID, CreatedAt: now, UpdatedAt: now}, nil
	}

	var conv models.Conversation
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, created_at, updated_at FROM conversations WHERE id = ? AND user_id = ?`,
		*conversationID, userID,
	).Scan(&conv.ID, &conv.UserID, &conv.CreatedAt, &conv.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrConversationNotFound
		}
		return nil, fmt.Errorf("get conversation: %w", err)
	}

	if _, err := s.db.ExecContext(ctx,
		`UPDATE conversations SET updated_at = ? WHERE id = ?`, now, conv.ID,
	); err != nil {
		return nil, fmt.Errorf("touch conversation: %w", err)
	}
	conv.UpdatedAt = now
	return &conv, nil
}

// appendMessage stores a transcript entry and refreshes the owning
// conversation's updated_at in one transaction.
func (s *Service) appendMessage(ctx context.Context, userID, conversationID int64, role models.Role, content string) (*models.Message, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("invalid message role: %s", role)
	}

	now := time.Now().UTC()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var res sql.Result
	res, err = tx.ExecContext(ctx,
		`INSERT INTO messages (user_id, conversation_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		userID, conversationID, role, content, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	var id int64
	id, err = res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("message id: %w", err)
	}
	if _, err = tx.ExecContext(ctx,
		`UPDATE conversations SET updated_at = ? WHERE id = ?`, now, conversationID,
	); err != nil {
		return nil, fmt.Errorf("touch conversation: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit message: %w", err)
	}

	return &models.Message{
		ID:             id,
		UserID:         userID,
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		CreatedAt:      now,
	}, nil
}

// GetConversationMessages returns one conversation and its transcript in
// creation order.
func (s *Service) GetConversationMessages(ctx context.Context, userID, conversationID int64) (*models.Conversation, []*models.Message, error) {
	var conv models.Conversation
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, created_at, updated_at FROM conversations WHERE id = ? AND user_id = ?`,
		conversationID, userID,
	).Scan(&conv.ID, &conv.UserID, &conv.CreatedAt, &conv.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, ErrConversationNotFound
		}
		return nil, nil, fmt.Errorf("get conversation: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, conversation_id, role, content, created_at FROM messages WHERE conversation_id = ? ORDER BY id ASC`,
		conversationID,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		m := new(models.Message)
		if err := rows.Scan(&m.ID, &m.UserID, &m.ConversationID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, m)
	}
	return &conv, messages, rows.Err()
}
