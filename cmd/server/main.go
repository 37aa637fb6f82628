package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nutrivision/internal/config"
	"nutrivision/internal/routes"
	"nutrivision/internal/websocket"
	"nutrivision/pkg/database"
	"nutrivision/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	// Initialize logger
	logger.Init()

	// Load configuration
	cfg := config.Load()

	// Initialize database
	if err := database.InitMongoDB(cfg.MongoDB); err != nil {
		logger.Fatal("Failed to connect to MongoDB: " + err.Error())
	}

	// Initialize WebSocket hub
	hub := websocket.NewHub(cfg.Signaling.SweepInterval, cfg.Signaling.MaxEmptyRoomAge)
	go hub.Run()

	// Initialize Gin router
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Setup routes
	routes.SetupRoutes(router, database.GetDatabase(), hub, cfg)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.Server.HTTP.Port
	}

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  cfg.Server.HTTP.ReadTimeout,
		WriteTimeout: cfg.Server.HTTP.WriteTimeout,
		IdleTimeout:  cfg.Server.HTTP.IdleTimeout,
	}

	go func() {
		logger.Info("Server starting on port: " + port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server: " + err.Error())
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown: " + err.Error())
	}

	if err := database.Disconnect(); err != nil {
		logger.Error("Error disconnecting from MongoDB: " + err.Error())
	}

	logger.Info("Server exited")
}
