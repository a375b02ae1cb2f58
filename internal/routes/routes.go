package routes

import (
	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rachidsanda61-hub/CulturePlusBack/internal/config"
	"github.com/rachidsanda61-hub/CulturePlusBack/internal/handlers"
	"github.com/rachidsanda61-hub/CulturePlusBack/internal/middleware"
	"github.com/rachidsanda61-hub/CulturePlusBack/internal/repository"
	"github.com/rachidsanda61-hub/CulturePlusBack/internal/services"
	chatws "github.com/rachidsanda61-hub/CulturePlusBack/internal/websocket"
)

func RegisterRoutes(app *fiber.App, cfg *config.Config, db *pgxpool.Pool) {
	userRepo := repository.NewUserRepository(db)
	conversationRepo := repository.NewConversationRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	typingRepo := repository.NewTypingRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	notificationService := services.NewNotificationService(notificationRepo)
	chatService := services.NewChatService(db, conversationRepo, messageRepo, typingRepo, userRepo, notificationService)

	chatHub := chatws.NewHub(userRepo)
	go chatHub.Run()

	authHandler := handlers.NewAuthHandler(userRepo, cfg.JWTSecret)
	chatHandler := handlers.NewChatHandler(chatService, chatHub, cfg.JWTSecret)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	presenceHandler := handlers.NewPresenceHandler(userRepo)

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Get("/me", middleware.AuthRequired(cfg.JWTSecret), authHandler.Me)

	authProtected := api.Group("/v1", middleware.AuthRequired(cfg.JWTSecret))

	conversations := authProtected.Group("/conversations")
	conversations.Get("", chatHandler.ListConversations)
	conversations.Post("", chatHandler.StartConversation)
	conversations.Get("/:id/messages", chatHandler.GetMessages)
	conversations.Post("/:id/messages", chatHandler.SendMessage)
	conversations.Post("/:id/seen", chatHandler.MarkSeen)
	conversations.Post("/:id/typing", chatHandler.SetTyping)

	notifications := authProtected.Group("/notifications")
	notifications.Get("", notificationHandler.List)
	notifications.Post("/read", notificationHandler.MarkAllRead)

	authProtected.Post("/presence/ping", presenceHandler.Ping)

	api.Use("/v1/ws", chatHandler.WebSocketAuth)
	api.Get("/v1/ws", websocket.New(chatHandler.HandleWebSocket))
}
