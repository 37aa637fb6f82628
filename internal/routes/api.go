package routes

import (
	"nutrivision/internal/config"
	"nutrivision/internal/handlers"
	"nutrivision/internal/middleware"
	"nutrivision/internal/services"
	"nutrivision/internal/utils"
	"nutrivision/internal/websocket"
	"nutrivision/pkg/database"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
)

// SetupRoutes wires services, handlers and middleware onto the router.
func SetupRoutes(router *gin.Engine, db *mongo.Database, hub *websocket.Hub, cfg *config.Config) {
	// Services
	authService := services.NewAuthService(db)
	accountService := services.NewAccountService(db)
	notificationService := services.NewNotificationService(db, hub)
	chatService := services.NewChatService(db, hub)
	appointmentService := services.NewAppointmentService(db, chatService, notificationService, hub, cfg.App.FrontendURL)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	accountHandler := handlers.NewAccountHandler(accountService)
	appointmentHandler := handlers.NewAppointmentHandler(appointmentService)
	chatHandler := handlers.NewChatHandler(chatService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	wsHandler := handlers.NewWebSocketHandler(hub, appointmentService, cfg.Signaling.STUNServers)

	// Global middleware
	router.Use(middleware.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORS))
	if cfg.Server.RateLimit.Enabled {
		router.Use(middleware.RateLimit())
	}

	// Health
	router.GET("/health", func(c *gin.Context) {
		utils.SuccessResponse(c, gin.H{
			"service":  cfg.App.Name,
			"version":  cfg.App.Version,
			"database": database.HealthCheck(),
			"ws": gin.H{
				"clients": hub.ClientCount(),
				"rooms":   hub.RoomCount(),
			},
		})
	})

	api := router.Group("/api")

	// Authentication
	auth := api.Group("/auth")
	auth.Use(middleware.LoginRateLimit())
	{
		auth.POST("/patient/register", accountHandler.RegisterPatient)
		auth.POST("/patient/login", authHandler.LoginPatient)
		auth.POST("/professional/register", accountHandler.RegisterProfessional)
		auth.POST("/professional/login", authHandler.LoginProfessional)
		auth.POST("/operator/login", authHandler.LoginOperator)
	}
	api.GET("/auth/session", middleware.SubjectAuth(authService), authHandler.Session)
	api.POST("/auth/logout", middleware.SubjectAuth(authService), authHandler.Logout)

	// Public directory of bookable professionals
	api.GET("/professionals", accountHandler.ListProfessionals)
	api.GET("/professionals/:id", accountHandler.GetProfessional)

	// Account management
	accounts := api.Group("/accounts")
	accounts.Use(middleware.SubjectAuth(authService))
	{
		accounts.GET("/me", accountHandler.Me)
		accounts.PUT("/password", accountHandler.ChangePassword)
		accounts.DELETE("/me", accountHandler.Deactivate)
		accounts.PUT("/patient/profile", middleware.PatientOnly(), accountHandler.UpdatePatientProfile)
		accounts.PUT("/professional/profile", middleware.ProfessionalOnly(), accountHandler.UpdateProfessionalProfile)
	}

	// Appointments
	appointments := api.Group("/appointments")
	appointments.Use(middleware.SubjectAuth(authService))
	{
		appointments.POST("", middleware.PatientOnly(), appointmentHandler.Book)
		appointments.GET("", appointmentHandler.List)
		appointments.GET("/:id", appointmentHandler.Get)
		appointments.POST("/:id/approve", middleware.ProfessionalOnly(), appointmentHandler.Approve)
		appointments.POST("/:id/reject", middleware.ProfessionalOnly(), appointmentHandler.Reject)
		appointments.PUT("/:id/status", appointmentHandler.UpdateStatus)

		// Calls
		appointments.POST("/:id/call/start", appointmentHandler.StartCall)
		appointments.POST("/:id/call/end", appointmentHandler.EndCall)
		appointments.GET("/:id/call/history", appointmentHandler.CallHistory)

		// Appointment-scoped chat
		appointments.GET("/:id/messages", chatHandler.ListMessages)
		appointments.POST("/:id/messages", middleware.MessageRateLimit(), chatHandler.PostMessage)
		appointments.PUT("/:id/messages/read", chatHandler.MarkRead)
		appointments.PUT("/:id/chat/archive", chatHandler.ArchiveThread)
	}

	// Chat overview
	chats := api.Group("/chats")
	chats.Use(middleware.SubjectAuth(authService))
	{
		chats.GET("", chatHandler.ListThreads)
		chats.GET("/unread", chatHandler.UnreadTotal)
	}

	// Notifications
	notifications := api.Group("/notifications")
	notifications.Use(middleware.SubjectAuth(authService))
	{
		notifications.GET("", notificationHandler.List)
	}

	// Operator surface
	operator := api.Group("/operator")
	operator.Use(middleware.StrictCORS(cfg.Server.CORS))
	operator.Use(middleware.OperatorRateLimit())
	operator.Use(middleware.OperatorAuth(authService))
	{
		operator.GET("/professionals/pending", accountHandler.ListPendingProfessionals)
		operator.POST("/professionals/:id/approve", accountHandler.ApproveProfessional)
		operator.POST("/professionals/:id/reject", accountHandler.RejectProfessional)
		operator.POST("/announcements", notificationHandler.Announce)
	}

	// WebSocket endpoints
	ws := router.Group("/ws")
	ws.Use(middleware.WebSocketRateLimit())
	ws.Use(middleware.SubjectAuth(authService))
	{
		ws.GET("/signaling/:room_id", wsHandler.Signaling)
		ws.GET("/notifications", wsHandler.Notifications)
	}
}
