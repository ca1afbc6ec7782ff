package chat

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"todochat/internal/config"
	"todochat/internal/models"
	"todochat/internal/service/intent"
	"todochat/internal/service/tasks"
	"todochat/internal/storage"
)

func TestChatCreatesConversationAndTranscript(t *testing.T) {
	svc, db := newTestService(t)
	defer db.Close()
	userID := insertTestUser(t, db, "alice@example.com")

	result, err := svc.Chat(context.Background(), userID, nil, "add buy milk")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if result.ConversationID <= 0 {
		t.Fatalf("expected conversation id, got %d", result.ConversationID)
	}
	if result.Response == "" {
		t.Fatalf("expected a response")
	}
	if len(result.ToolCalls) != 1 || result.ToolCalls[0].Name != "add_task" {
		t.Fatalf("expected one add_task call, got %+v", result.ToolCalls)
	}

	_, messages, err := svc.GetConversationMessages(context.Background(), userID, result.ConversationID)
	if err != nil {
		t.Fatalf("GetConversationMessages: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	if messages[0].Role != models.RoleUser || messages[0].Content != "add buy milk" {
		t.Fatalf("unexpected first message: %+v", messages[0])
	}
	if messages[1].Role != models.RoleAssistant || messages[1].Content != result.Response {
		t.Fatalf("unexpected second message: %+v", messages[1])
	}
}

func TestChatContinuesExistingConversation(t *testing.T) {
	svc, db := newTestService(t)
	defer db.Close()
	userID := insertTestUser(t, db, "bob@example.com")

	first, err := svc.Chat(context.Background(), userID, nil, "hello")
	if err != nil {
		t.Fatalf("first Chat: %v", err)
	}
	second, err := svc.Chat(context.Background(), userID, &first.ConversationID, "show my tasks")
	if err != nil {
		t.Fatalf("second Chat: %v", err)
	}
	if second.ConversationID != first.ConversationID {
		t.Fatalf("expected same conversation, got %d and %d", first.ConversationID, second.ConversationID)
	}
	_, messages, err := svc.GetConversationMessages(context.Background(), userID, first.ConversationID)
	if err != nil {
		t.Fatalf("GetConversationMessages: %v", err)
	}
	if len(messages) != 4 {
		t.Fatalf("expected 4 messages after two turns, got %d", len(messages))
	}
}

func TestChatUnknownConversationPersistsNothing(t *testing.T) {
	svc, db := newTestService(t)
	defer db.Close()
	userID := insertTestUser(t, db, "carol@example.com")

	missing := int64(9999)
	if _, err := svc.Chat(context.Background(), userID, &missing, "add something"); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("expected ErrConversationNotFound, got %v", err)
	}
	if n := countMessages(t, db); n != 0 {
		t.Fatalf("expected no persisted messages, found %d", n)
	}
}

func TestChatForeignConversationIsNotFound(t *testing.T) {
	svc, db := newTestService(t)
	defer db.Close()
	owner := insertTestUser(t, db, "owner@example.com")
	intruder := insertTestUser(t, db, "intruder@example.com")

	result, err := svc.Chat(context.Background(), owner, nil, "hello")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if _, err := svc.Chat(context.Background(), intruder, &result.ConversationID, "hi"); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("expected ErrConversationNotFound for foreign conversation, got %v", err)
	}
}

func TestChatTouchesConversationTimestamp(t *testing.T) {
	svc, db := newTestService(t)
	defer db.Close()
	userID := insertTestUser(t, db, "dave@example.com")

	first, err := svc.Chat(context.Background(), userID, nil, "hello")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	// Backdate updated_at, then run another turn and expect a refresh.
	past := time.Now().UTC().Add(-time.Hour)
	if _, err := db.Exec(`UPDATE conversations SET updated_at = ? WHERE id = ?`, past, first.ConversationID); err != nil {
		t.Fatalf("backdate conversation: %v", err)
	}
	if _, err := svc.Chat(context.Background(), userID, &first.ConversationID, "still here"); err != nil {
		t.Fatalf("second Chat: %v", err)
	}
	conv, _, err := svc.GetConversationMessages(context.Background(), userID, first.ConversationID)
	if err != nil {
		t.Fatalf("GetConversationMessages: %v", err)
	}
	if !conv.UpdatedAt.After(past.Add(time.Minute)) {
		t.Fatalf("updated_at not refreshed: %v", conv.UpdatedAt)
	}
}

func TestChatRejectsEmptyMessage(t *testing.T) {
	svc, db := newTestService(t)
	defer db.Close()
	userID := insertTestUser(t, db, "erin@example.com")

	if _, err := svc.Chat(context.Background(), userID, nil, "   "); err == nil {
		t.Fatalf("expected error for empty message")
	}
}

func newTestService(t *testing.T) (*Service, *sql.DB) {
	t.Helper()
	cfg := &config.Config{
		Databases: map[string]config.DatabaseConfig{
			"sqlite3": {DSN: filepath.Join(t.TempDir(), "test.db")},
		},
	}
	db, err := storage.Open("sqlite3", cfg)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := storage.Migrate(db, "sqlite3"); err != nil {
		t.Fatalf("migrate db: %v", err)
	}
	resolver, err := intent.NewResolver(nil, tasks.NewService(db), time.Second)
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}
	return NewService(db, resolver), db
}

func insertTestUser(t *testing.T, db *sql.DB, email string) int64 {
	t.Helper()
	now := time.Now().UTC()
	res, err := db.Exec(`INSERT INTO users (email, name, password_hash, created_at, updated_at) VALUES (?, ?, '', ?, ?)`,
		email, "tester", now, now)
	if err != nil {
		t.Fatalf("insert user: %v", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		t.Fatalf("user id: %v", err)
	}
	return id
}

func countMessages(t *testing.T, db *sql.DB) int {
	t.Helper()
	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM messages`).Scan(&count); err != nil {
		t.Fatalf("count messages: %v", err)
	}
	return count
}
