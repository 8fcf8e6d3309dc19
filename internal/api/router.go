package api

import (
	"net/http"

	"github.com/agrilok/crop-assist/internal/api/handler"
	customMiddleware "github.com/agrilok/crop-assist/internal/api/middleware"
	"github.com/agrilok/crop-assist/internal/config"
	"github.com/agrilok/crop-assist/internal/repository/mongo"
	"github.com/agrilok/crop-assist/internal/repository/postgres"
	"github.com/agrilok/crop-assist/internal/repository/redis"
	"github.com/agrilok/crop-assist/internal/security"
	"github.com/agrilok/crop-assist/internal/service"
	"github.com/agrilok/crop-assist/internal/worker"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates and configures the HTTP router
func NewRouter(cfg *config.Config, db *postgres.DB, redisClient *redis.Client, mongoClient *mongo.Client) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(customMiddleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.Server.WriteTimeout))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize security components
	jwtManager := security.NewJWTManager(
		cfg.Auth.JWTSecret,
		cfg.Auth.AccessTokenTTL,
		cfg.Auth.RefreshTokenTTL,
	)

	// Initialize repositories
	userRepo := postgres.NewUserRepository(db)
	chatRepo := postgres.NewChatRepository(db)
	messageRepo := postgres.NewMessageRepository(db)
	quotaRepo := postgres.NewQuotaRepository(db)
	feedbackRepo := postgres.NewFeedbackRepository(db)
	attachmentRepo := mongo.NewAttachmentRepository(mongoClient)

	rateLimiter := redis.NewRateLimiter(
		redisClient,
		cfg.Security.RateLimit.RequestsPerMinute,
		cfg.Security.RateLimit.Burst,
	)
	sessionCache := redis.NewSessionCache(redisClient)

	// Initialize the worker dispatcher
	dispatcher := worker.NewScriptDispatcher(cfg.Worker, attachmentRepo)

	// Initialize services
	sessionRegistry := service.NewSessionRegistry(chatRepo, sessionCache)
	quotaLedger := service.NewQuotaLedger(quotaRepo, cfg.Chat.ExpertDailyLimit)
	attachmentService := service.NewAttachmentService(attachmentRepo, chatRepo, cfg.Chat)
	chatService := service.NewChatService(
		chatRepo,
		messageRepo,
		attachmentRepo,
		attachmentService,
		sessionRegistry,
		quotaLedger,
		dispatcher,
	)
	authService := service.NewAuthService(userRepo, jwtManager)
	feedbackService := service.NewFeedbackService(feedbackRepo, userRepo)
	adminService := service.NewAdminService(
		userRepo,
		chatRepo,
		chatRepo,
		messageRepo,
		attachmentRepo,
		feedbackRepo,
		quotaRepo,
	)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authService)
	chatHandler := handler.NewChatHandler(chatService, quotaLedger, cfg.Chat.MaxUploadBytes)
	attachmentHandler := handler.NewAttachmentHandler(attachmentService)
	feedbackHandler := handler.NewFeedbackHandler(feedbackService)
	adminHandler := handler.NewAdminHandler(adminService, feedbackService)

	// Auth middleware
	authMiddleware := customMiddleware.NewAuthMiddleware(jwtManager)
	rateLimitMiddleware := customMiddleware.NewRateLimitMiddleware(rateLimiter)

	r.Route("/api/v1", func(r chi.Router) {
		// Health check
		r.Get("/health", handler.HealthCheck)
		r.Get("/ready", handler.ReadyCheck(db, mongoClient))

		// Auth routes (public)
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)
			r.Use(rateLimitMiddleware.Limit)

			r.Get("/auth/me", authHandler.Me)
			r.Get("/expert/status", chatHandler.ExpertStatus)

			r.Route("/chats", func(r chi.Router) {
				r.Get("/", chatHandler.List)
				r.Post("/", chatHandler.Create)
				r.Delete("/", chatHandler.ClearAll)

				r.Route("/{chatID}", func(r chi.Router) {
					r.Get("/", chatHandler.Get)
					r.Put("/", chatHandler.Replace)
					r.Delete("/", chatHandler.Delete)

					r.Post("/messages", chatHandler.SendMessage)

					r.Route("/attachments", func(r chi.Router) {
						r.Get("/", attachmentHandler.List)
						r.Delete("/", attachmentHandler.DeleteAll)
						r.Get("/latest", attachmentHandler.GetLatest)

						r.Route("/{attachmentID}", func(r chi.Router) {
							r.Get("/", attachmentHandler.Get)
							r.Delete("/", attachmentHandler.Delete)
						})
					})
				})
			})

			r.Route("/feedback", func(r chi.Router) {
				r.Post("/", feedbackHandler.Submit)
				r.Get("/", feedbackHandler.ListOwn)
			})

			// Admin routes
			r.Route("/admin", func(r chi.Router) {
				r.Use(authMiddleware.RequireAdmin)

				r.Get("/stats", adminHandler.Stats)

				r.Route("/users", func(r chi.Router) {
					r.Get("/", adminHandler.ListUsers)
					r.Route("/{userID}", func(r chi.Router) {
						r.Get("/", adminHandler.GetUser)
						r.Put("/role", adminHandler.UpdateRole)
						r.Delete("/", adminHandler.DeleteUser)
					})
				})

				r.Route("/feedback", func(r chi.Router) {
					r.Get("/", adminHandler.ListFeedback)
					r.Route("/{feedbackID}", func(r chi.Router) {
						r.Put("/", adminHandler.UpdateFeedback)
						r.Delete("/", adminHandler.DeleteFeedback)
					})
				})
			})
		})
	})

	return r
}
