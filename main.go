package main

import (
	"context"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"chatapp/internal/audit"
	"chatapp/internal/broadcast"
	"chatapp/internal/broker"
	"chatapp/internal/db"
	"chatapp/internal/handlers"
	"chatapp/internal/middleware"
	"chatapp/internal/observability"
	"chatapp/internal/repositories"
	"chatapp/internal/session"
	"chatapp/internal/ws"
)

func main() {
	environment := getEnv("APP_ENV", "development")
	setupLogger(environment)

	database, err := db.Connect()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to db")
	}

	userRepo := repositories.NewUserRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	historyRepo := repositories.NewHistoryRepo(database)

	amqpURL := getEnv("AMQP_URL", "")
	publisher := broker.NewPublisher(amqpURL, getEnv("AMQP_EXCHANGE", "chat.events"))
	defer publisher.Close()
	log.Info().
		Str("mode", broker.PublisherMode(publisher)).
		Str("reason", broker.PublisherNoopReason(publisher)).
		Msg("event publisher ready")

	sink := audit.NewSink(historyRepo, publisher, broker.TopicAudit, "chatapp", environment)
	sessions := session.NewManager(userRepo, sink)

	hub := ws.NewHub()
	engine := broadcast.NewEngine(messageRepo, sink, hub, publisher)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	consumer := broker.StartConsumer(ctx, amqpURL, getEnv("AMQP_INBOUND_EXCHANGE", "chat.inbound"), getEnv("AMQP_INBOUND_QUEUE", "chatapp.events"), engine)
	defer consumer.Close()

	authHandler := handlers.NewAuthHandler(sessions)
	messageHandler := handlers.NewMessageHandler(messageRepo)
	eventWS := ws.NewEventSocketHandler(hub, engine, sessions, publisher)

	if environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLog())
	router.Use(observability.HTTPMetricsMiddleware())

	router.POST("/register", authHandler.Register)
	router.POST("/login", authHandler.Login)
	router.POST("/logout/:id", authHandler.Logout)

	router.GET("/conversations/:user1/:user2", messageHandler.GetConversation)
	router.GET("/inbox/:user_id", messageHandler.GetInbox)
	router.PUT("/messages/:message_id/seen", messageHandler.MarkSeen)

	router.GET("/ws/events", eventWS.Handle)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	handlers.RegisterDebugRoutes(router, sink, getEnv("DEBUG_ROUTES", "") == "true")

	port := getEnv("PORT", "8080")
	log.Info().Str("port", port).Msg("chatapp listening")
	if err := router.Run(":" + port); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}

func setupLogger(environment string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if environment == "development" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).Level(zerolog.DebugLevel)
	} else {
		logger = logger.Level(zerolog.InfoLevel)
	}
	log.Logger = logger
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}
