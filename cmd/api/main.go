package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"relaydesk/internal/config"
	"relaydesk/internal/contacts"
	"relaydesk/internal/events"
	"relaydesk/internal/gateway"
	"relaydesk/internal/handler"
	"relaydesk/internal/middleware"
	"relaydesk/internal/redis"
	"relaydesk/internal/repository"
	"relaydesk/internal/services"
	"relaydesk/internal/storage"
	"relaydesk/pkg/database"
	"relaydesk/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	l := logger.New(cfg.Server.Environment)
	logger.SetGlobalLogger(l)

	database.Connect(cfg)
	if err := database.Migrate(); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	redis.Initialize(redis.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	redisClient := redis.GetClient()
	limiter := redis.NewRateLimiter(redisClient, redis.DefaultRateLimitConfig())
	publisher := events.NewRedisPublisher(redisClient, l)

	var attachmentStore *storage.AttachmentStore
	if cfg.Attachments.Bucket != "" {
		attachmentStore, err = storage.NewAttachmentStore(context.Background(), storage.S3Config{
			Region:     cfg.Attachments.Region,
			Bucket:     cfg.Attachments.Bucket,
			AccessKey:  cfg.Attachments.AccessKey,
			SecretKey:  cfg.Attachments.SecretKey,
			Endpoint:   cfg.Attachments.Endpoint,
			PresignTTL: cfg.Attachments.PresignTTL,
		})
		if err != nil {
			log.Fatalf("Failed to init attachment store: %v", err)
		}
	}

	// Repositories
	channelRepo := repository.NewChannelRepository(database.DB)
	emailThreadRepo := repository.NewEmailThreadRepository(database.DB)
	waThreadRepo := repository.NewWhatsAppThreadRepository(database.DB)
	convRepo := repository.NewConversationThreadRepository(database.DB)
	waMsgRepo := repository.NewWhatsAppMessageRepository(database.DB)
	emailMsgRepo := repository.NewEmailMessageRepository(database.DB)
	attachmentRepo := repository.NewAttachmentRepository(database.DB)

	// Transports
	waTransport := gateway.NewWhatsAppCloudTransport(cfg.WhatsApp.GraphBaseURL, cfg.WhatsApp.AccessToken)
	emailTransport := gateway.NewSendGridEmailTransport(cfg.Email.SendGridAPIKey)

	// Services
	window := services.NewWindowPolicy(cfg.WhatsApp.SessionWindow)
	resolver := contacts.NoopResolver{}
	tokens := services.NewTokenService(cfg.Auth.JWTSecret, 0)
	channelService := services.NewChannelService(channelRepo, l)
	convService := services.NewConversationThreadService(database.DB, waThreadRepo, convRepo, l)
	waRouter := services.NewWhatsAppRouter(channelRepo, waThreadRepo, waMsgRepo, convService, window, waTransport, resolver, publisher, l)
	emailRouter := services.NewEmailRouter(channelRepo, emailThreadRepo, emailMsgRepo, emailTransport, resolver, publisher, l)
	threadService := services.NewThreadService(database.DB, channelService, waThreadRepo, emailThreadRepo, convRepo, waMsgRepo, emailMsgRepo, window, l)
	attachmentService := services.NewAttachmentService(attachmentRepo, attachmentStore, l)

	// Handlers
	channelHandler := handler.NewChannelHandler(channelService)
	threadHandler := handler.NewThreadHandler(threadService, channelService)
	convHandler := handler.NewConversationThreadHandler(convService, threadService)
	messageHandler := handler.NewMessageHandler(waRouter, emailRouter, threadService)
	webhookHandler := handler.NewWebhookHandler(channelService, waRouter, emailRouter, cfg, l)
	attachmentHandler := handler.NewAttachmentHandler(attachmentService)

	if cfg.Server.Environment == logger.ProductionMode {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.LoggingMiddleware(l))
	r.Use(middleware.ErrorHandler(l))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/v1")

	webhooks := v1.Group("/webhooks")
	webhooks.Use(middleware.WebhookRateLimitMiddleware(limiter))
	{
		webhooks.GET("/whatsapp", webhookHandler.VerifyWhatsApp)
		webhooks.POST("/whatsapp", webhookHandler.ReceiveWhatsApp)
		webhooks.POST("/email", webhookHandler.ReceiveEmail)
		webhooks.POST("/email/events", webhookHandler.ReceiveEmailEvent)
	}

	api := v1.Group("")
	api.Use(middleware.AuthMiddleware(tokens))
	{
		api.POST("/channels", channelHandler.Create)
		api.GET("/channels", channelHandler.List)
		api.DELETE("/channels/:id", channelHandler.Disable)
		api.GET("/channels/:id/threads", threadHandler.ListByChannel)

		api.GET("/threads/whatsapp/:id", threadHandler.ShowWhatsApp)
		api.POST("/threads/whatsapp/:id/read", threadHandler.MarkRead)
		api.GET("/threads/whatsapp/:id/deletion-preview", threadHandler.DeletionPreview)
		api.DELETE("/threads/whatsapp/:id", threadHandler.DeleteWhatsApp)
		api.GET("/threads/whatsapp/:id/conversations", convHandler.List)
		api.POST("/threads/whatsapp/:id/conversations", convHandler.Start)
		api.GET("/conversations/:id/messages", convHandler.Messages)

		api.GET("/threads/email/:id", threadHandler.GetEmail)
		api.GET("/threads/email/:id/messages", threadHandler.ListEmailMessages)

		sends := api.Group("/messages")
		sends.Use(middleware.SendRateLimitMiddleware(limiter))
		{
			sends.POST("/whatsapp", messageHandler.SendWhatsApp)
			sends.POST("/email", messageHandler.SendEmail)
		}
		api.GET("/messages/search", messageHandler.Search)

		api.GET("/attachments/:id/url", attachmentHandler.DownloadURL)
	}

	l.Infof("Starting server on port %s", cfg.Server.Port)
	if err := r.Run(fmt.Sprintf(":%s", cfg.Server.Port)); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
