package main

import (
	"context"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"printdesk-chat/internal/config"
	"printdesk-chat/internal/crypto"
	"printdesk-chat/internal/db"
	"printdesk-chat/internal/handlers"
	"printdesk-chat/internal/middleware"
	"printdesk-chat/internal/observability"
	"printdesk-chat/internal/rabbitmq"
	"printdesk-chat/internal/repositories"
	"printdesk-chat/internal/telemetry"
	"printdesk-chat/internal/ws"
)

const serviceName = "printdesk-chat"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	cipher, err := crypto.New(cfg.EncryptionKey)
	if err != nil {
		log.Fatalf("failed to build cipher: %v", err)
	}

	database, err := db.Connect(cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}

	shutdownTracing, err := observability.InitTracing(context.Background(), cfg.OTLPEndpoint, serviceName)
	if err != nil {
		log.Fatalf("failed to init tracing: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(ctx)
	}()

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer publisher.Close()
	log.Printf("event publisher mode=%s", rabbitmq.PublisherMode(publisher))

	if eventPublisher, err := observability.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange); err == nil {
		observability.SetPublisher(eventPublisher)
		defer eventPublisher.Close()
	} else {
		log.Printf("ws lifecycle events disabled: %v", err)
	}

	emitter := telemetry.NewAuditEmitter(publisher, "audit_log.chat", serviceName, cfg.Environment)

	messageRepo := repositories.NewMessageRepo(database, cipher)
	registry := ws.NewRegistry()
	hub := ws.NewHub(registry)

	chatHandler := handlers.NewChatHandler(messageRepo, hub, cfg.AdminEmail, emitter)
	chatWS := ws.NewChatWebSocketHandler(hub, messageRepo)

	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.FrontendOrigins))
	router.Use(otelgin.Middleware(serviceName))
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/messages", chatHandler.GetMessages)
	router.GET("/messages/conversation/:identity", chatHandler.GetConversation)
	router.POST("/messages", chatHandler.PostMessage)
	router.DELETE("/messages/:id", chatHandler.DeleteMessage)

	router.GET("/ws/chat", chatWS.Handle)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	handlers.RegisterDebugRoutes(router, emitter, messageRepo, cfg.DebugRoutes)

	log.Printf("chat service listening on :%s admin=%s", cfg.Port, cfg.AdminEmail)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
