package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"todochat/internal/auth"
	"todochat/internal/models"
	"todochat/internal/service/chat"
	"todochat/internal/service/tasks"
)

// Handler wires HTTP routes to the auth, task, and chat services.
type Handler struct {
	auth           *auth.Service
	tasks          *tasks.Service
	chat           *chat.Service
	allowedOrigins []string
}

// NewHandler constructs a Handler instance.
func NewHandler(authService *auth.Service, taskService *tasks.Service, chatService *chat.Service, allowedOrigins []string) *Handler {
	return &Handler{
		auth:           authService,
		tasks:          taskService,
		chat:           chatService,
		allowedOrigins: allowedOrigins,
	}
}

// RegisterRoutes attaches all HTTP routes to the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(h.corsMiddleware())

	router.GET("/", h.root)
	router.GET("/health", h.health)

	api := router.Group("/api")
	api.POST("/auth/signup", h.signup)
	api.POST("/auth/login", h.login)
	api.POST("/:user_id/chat", h.handleChat)
	api.GET("/:user_id/conversations/:conversation_id/messages", h.getConversationMessages)

	mcp := api.Group("/mcp")
	mcp.POST("/add_task", h.addTask)
	mcp.POST("/list_tasks", h.listTasks)
	mcp.POST("/complete_task", h.completeTask)
	mcp.POST("/delete_task", h.deleteTask)
	mcp.POST("/update_task", h.updateTask)
}

func (h *Handler) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Todo AI Chatbot API",
		"version": "1.0.0",
	})
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// writeError maps domain errors onto client-facing status codes;
// everything else is a generic server error.
func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, auth.ErrDuplicateEmail):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, auth.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, tasks.ErrNotFound), errors.Is(err, chat.ErrConversationNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, tasks.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// Auth endpoints.

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	token, user, err := h.auth.Signup(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrDuplicateEmail) {
			h.writeError(c, err)
		} else {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user": user.Summary()})
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	token, user, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user": user.Summary()})
}

// Chat endpoints.

type chatRequest struct {
	ConversationID *int64 `json:"conversation_id"`
	Message        string `json:"message"`
}

func (h *Handler) handleChat(c *gin.Context) {
	userID, ok := h.pathUserID(c)
	if !ok {
		return
	}
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	result, err := h.chat.Chat(c.Request.Context(), userID, req.ConversationID, req.Message)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) getConversationMessages(c *gin.Context) {
	userID, ok := h.pathUserID(c)
	if !ok {
		return
	}
	conversationID, err := strconv.ParseInt(c.Param("conversation_id"), 10, 64)
	if err != nil || conversationID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return
	}
	conv, messages, err := h.chat.GetConversationMessages(c.Request.Context(), userID, conversationID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if messages == nil {
		messages = make([]*models.Message, 0)
	}
	c.JSON(http.StatusOK, gin.H{
		"conversation": conv,
		"messages":     messages,
	})
}

// MCP tool endpoints. user_id arrives as a string, matching the wire
// contract of the tool schema.

type addTaskRequest struct {
	UserID      string `json:"user_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

type listTasksRequest struct {
	UserID string `json:"user_id"`
	Status string `json:"status"`
}

type taskIDRequest struct {
	UserID string `json:"user_id"`
	TaskID int64  `json:"task_id"`
}

type updateTaskRequest struct {
	UserID      string  `json:"user_id"`
	TaskID      int64   `json:"task_id"`
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

type taskSummary struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

func (h *Handler) addTask(c *gin.Context) {
	var req addTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	userID, ok := parseUserID(c, req.UserID)
	if !ok {
		return
	}
	result, err := h.tasks.AddTask(c.Request.Context(), userID, req.Title, req.Description)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) listTasks(c *gin.Context) {
	var req listTasksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	userID, ok := parseUserID(c, req.UserID)
	if !ok {
		return
	}
	list, err := h.tasks.ListTasks(c.Request.Context(), userID, models.TaskStatus(req.Status))
	if err != nil {
		h.writeError(c, err)
		return
	}
	out := make([]taskSummary, 0, len(list))
	for _, t := range list {
		out = append(out, taskSummary{
			ID:          t.ID,
			Title:       t.Title,
			Description: t.Description,
			Completed:   t.Completed,
			CreatedAt:   t.CreatedAt.Format("2006-01-02T15:04:05.999999999"),
			UpdatedAt:   t.UpdatedAt.Format("2006-01-02T15:04:05.999999999"),
		})
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) completeTask(c *gin.Context) {
	var req taskIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	userID, ok := parseUserID(c, req.UserID)
	if !ok {
		return
	}
	result, err := h.tasks.CompleteTask(c.Request.Context(), userID, req.TaskID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) deleteTask(c *gin.Context) {
	var req taskIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	userID, ok := parseUserID(c, req.UserID)
	if !ok {
		return
	}
	result, err := h.tasks.DeleteTask(c.Request.Context(), userID, req.TaskID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) updateTask(c *gin.Context) {
	var req updateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	userID, ok := parseUserID(c, req.UserID)
	if !ok {
		return
	}
	result, err := h.tasks.UpdateTask(c.Request.Context(), userID, req.TaskID, req.Title, req.Description)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) pathUserID(c *gin.Context) (int64, bool) {
	userID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return 0, false
	}
	return userID, true
}

func parseUserID(c *gin.Context, raw string) (int64, bool) {
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || userID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return 0, false
	}
	return userID, true
}
