package main

import (
	"context"
	"log"
	"os"
	"time"

	"todochat/internal/api"
	"todochat/internal/auth"
	"todochat/internal/config"
	"todochat/internal/service/chat"
	"todochat/internal/service/intent"
	"todochat/internal/service/tasks"
	"todochat/internal/storage"

	"github.com/gin-gonic/gin"
)

func main() {
	cfgPath := os.Getenv("TODOCHAT_CONFIG")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if cfg.InsecureSecret() {
		log.Printf("WARNING: AUTH_SECRET not set, using insecure default signing secret")
	}

	dbType := os.Getenv("TODOCHAT_DB")
	if dbType == "" {
		dbType = "sqlite3"
	}
	db, err := storage.Open(dbType, cfg)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	// Create the users, tasks, conversations and messages tables.
	if err := storage.Migrate(db, dbType); err != nil {
		log.Fatalf("migrate database: %v", err)
	}

	authService := auth.NewService(db, cfg.Auth.Secret, time.Duration(cfg.Auth.TokenTTLMinutes)*time.Minute)
	taskService := tasks.NewService(db)

	chatModel, err := intent.NewChatModel(context.Background(), cfg)
	if err != nil {
		log.Fatalf("init chat model: %v", err)
	}
	if chatModel == nil {
		log.Printf("no completion service credential configured, chat runs on the keyword fallback")
	}
	resolver, err := intent.NewResolver(chatModel, taskService, intent.DefaultTimeout)
	if err != nil {
		log.Fatalf("init intent resolver: %v", err)
	}
	chatService := chat.NewService(db, resolver)

	handler := api.NewHandler(authService, taskService, chatService, cfg.BasicConfig.AllowedOrigins)
	router := gin.Default()
	handler.RegisterRoutes(router)

	addr := cfg.BasicConfig.ServerAddress
	if addr == "" {
		addr = ":8000"
	}
	if err := router.Run(addr); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
