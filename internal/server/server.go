package server

import (
	"context"
	"log"
	"strings"
	"time"

	"kaamkhoj.in/hireease/internal/config"
	"kaamkhoj.in/hireease/internal/entity"
	"kaamkhoj.in/hireease/internal/middleware"
	"kaamkhoj.in/hireease/pkg/storage"

	appHttp "kaamkhoj.in/hireease/internal/modules/application/delivery/http"
	appRepo "kaamkhoj.in/hireease/internal/modules/application/repository"
	appService "kaamkhoj.in/hireease/internal/modules/application/service"

	feedbackHttp "kaamkhoj.in/hireease/internal/modules/feedback/delivery/http"
	feedbackRepo "kaamkhoj.in/hireease/internal/modules/feedback/repository"
	feedbackService "kaamkhoj.in/hireease/internal/modules/feedback/service"

	jobHttp "kaamkhoj.in/hireease/internal/modules/job/delivery/http"
	jobRepo "kaamkhoj.in/hireease/internal/modules/job/repository"
	jobService "kaamkhoj.in/hireease/internal/modules/job/service"

	mailerRepo "kaamkhoj.in/hireease/internal/modules/mailer/repository"
	mailerService "kaamkhoj.in/hireease/internal/modules/mailer/service"

	messageHttp "kaamkhoj.in/hireease/internal/modules/message/delivery/http"
	messageRepo "kaamkhoj.in/hireease/internal/modules/message/repository"
	messageService "kaamkhoj.in/hireease/internal/modules/message/service"

	notiHttp "kaamkhoj.in/hireease/internal/modules/notification/delivery/http"
	notifRepo "kaamkhoj.in/hireease/internal/modules/notification/repository"
	notifService "kaamkhoj.in/hireease/internal/modules/notification/service"

	profileHttp "kaamkhoj.in/hireease/internal/modules/profile/delivery/http"
	profileService "kaamkhoj.in/hireease/internal/modules/profile/service"

	searchHttp "kaamkhoj.in/hireease/internal/modules/search/delivery/http"
	searchService "kaamkhoj.in/hireease/internal/modules/search/service"

	statHttp "kaamkhoj.in/hireease/internal/modules/stat/delivery/http"
	statService "kaamkhoj.in/hireease/internal/modules/stat/service"

	userHttp "kaamkhoj.in/hireease/internal/modules/user/delivery/http"
	userRepo "kaamkhoj.in/hireease/internal/modules/user/repository"
	userService "kaamkhoj.in/hireease/internal/modules/user/service"

	workerHttp "kaamkhoj.in/hireease/internal/modules/worker/delivery/http"
	workerRepo "kaamkhoj.in/hireease/internal/modules/worker/repository"
	workerService "kaamkhoj.in/hireease/internal/modules/worker/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/meilisearch/meilisearch-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const expirySweepInterval = time.Hour

type Server struct {
	engine      *gin.Engine
	db          *gorm.DB
	redisClient *redis.Client
}

func NewServer(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *Server {
	users := userRepo.NewUserRepository(db)

	imageStorage, err := storage.NewCloudinaryStorage()
	if err != nil {
		log.Printf("cloudinary storage unavailable, image uploads disabled: %v", err)
		imageStorage = nil
	}

	var searchSvc searchService.SearchService
	if cfg.MeiliSearchHost != "" {
		meiliClient := meilisearch.New(cfg.MeiliSearchHost, meilisearch.WithAPIKey(cfg.MeiliMasterKey))
		searchSvc = searchService.NewSearchService(meiliClient)
	}

	// Notification module first; nearly everything fans out through it.
	notifications := notifService.NewNotificationService(
		notifRepo.NewNotificationRepository(db), redisClient, cfg.NotificationTTL)
	notificationHandler := notiHttp.NewNotificationHandler(notifications, redisClient)

	authSvc := userService.NewAuthService(users, notifications)
	authHandler := userHttp.NewAuthHandler(authSvc)

	profileSvc := profileService.NewService(users, imageStorage)
	profileHandler := profileHttp.NewProfileHandler(profileSvc)

	workers := workerRepo.NewWorkerRepository(db)
	workerSvc := workerService.NewService(workers, imageStorage, searchSvc)
	workerHandler := workerHttp.NewWorkerHandler(workerSvc)

	jobs := jobRepo.NewJobRepository(db)
	jobSvc := jobService.NewService(jobs, workers, notifications, searchSvc)
	jobHandler := jobHttp.NewJobHandler(jobSvc)

	applications := appRepo.NewApplicationRepository(db)
	applicationSvc := appService.NewService(applications, jobs, workers, notifications, redisClient, cfg.RateLimitApply)
	applicationHandler := appHttp.NewApplicationHandler(applicationSvc)

	messages := messageRepo.NewMessageRepository(db)
	messageSvc := messageService.NewService(messages, users, notifications, redisClient, cfg.RateLimitMessage)
	messageHandler := messageHttp.NewMessageHandler(messageSvc)

	feedbacks := feedbackRepo.NewFeedbackRepository(db)
	feedbackSvc := feedbackService.NewService(feedbacks, applications, jobs, notifications)
	feedbackHandler := feedbackHttp.NewFeedbackHandler(feedbackSvc)

	statSvc := statService.NewService(users, jobs, applications, redisClient)
	statHandler := statHttp.NewStatHandler(statSvc)

	searchHandler := searchHttp.NewSearchHandler(searchSvc)

	// Background workers.
	outbox := mailerRepo.NewOutboxRepository(db)
	mailWorker := mailerService.NewWorker(outbox, mailerService.NewHTTPSender(cfg), cfg.OutboxPollInterval, cfg.OutboxMaxAttempts)
	go mailWorker.Start(context.Background())
	go notifications.StartExpirySweeper(context.Background(), expirySweepInterval)

	router := gin.New()

	setupCORS(router, cfg)

	router.Use(gin.Recovery())
	router.Use(gin.Logger())

	authMiddleware := middleware.NewAuthMiddleware(users)

	api := router.Group("/api")

	// Public routes
	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.GET("/google/login", authHandler.GoogleLogin)
		auth.GET("/google/callback", authHandler.GoogleCallback)
	}

	api.GET("/stats", statHandler.Platform)
	api.GET("/search", searchHandler.Search)
	api.GET("/jobs", jobHandler.ListJobs)
	api.GET("/jobs/:job_id", jobHandler.GetJob)
	api.GET("/workers", workerHandler.ListWorkers)
	api.GET("/workers/:worker_id", workerHandler.GetWorker)
	api.GET("/workers/:worker_id/feedback", feedbackHandler.ListByWorker)
	api.GET("/profile/:username", profileHandler.ByUsername)

	// Protected routes
	protected := api.Group("")
	protected.Use(authMiddleware.RequireAuth())
	{
		// Profile routes
		protected.GET("/profile/me", profileHandler.Me)
		protected.PUT("/profile", profileHandler.Update)
		protected.POST("/profile/avatar", profileHandler.UploadAvatar)

		// Worker card routes (worker role)
		workerGroup := protected.Group("")
		workerGroup.Use(authMiddleware.RequireRole(entity.RoleWorker, entity.RoleAdmin))
		{
			workerGroup.POST("/workers", workerHandler.CreateWorker)
			workerGroup.GET("/workers/me", workerHandler.GetOwnWorker)
			workerGroup.PUT("/workers/me", workerHandler.UpdateWorker)
			workerGroup.POST("/workers/me/photo", workerHandler.UploadPhoto)
			workerGroup.POST("/applications", applicationHandler.Apply)
			workerGroup.GET("/applications/me", applicationHandler.MyApplications)
			workerGroup.GET("/jobs/:job_id/applied", applicationHandler.CheckApplied)
		}

		// Job routes (employer role)
		employerGroup := protected.Group("")
		employerGroup.Use(authMiddleware.RequireRole(entity.RoleEmployer, entity.RoleAdmin))
		{
			employerGroup.POST("/jobs", jobHandler.CreateJob)
			employerGroup.GET("/jobs/me", jobHandler.MyJobs)
			employerGroup.PUT("/jobs/:job_id", jobHandler.UpdateJob)
			employerGroup.DELETE("/jobs/:job_id", jobHandler.DeleteJob)
			employerGroup.GET("/jobs/:job_id/applications", applicationHandler.JobApplications)
			employerGroup.POST("/jobs/:job_id/complete", applicationHandler.CompleteJob)
			employerGroup.PUT("/applications/:application_id/status", applicationHandler.UpdateStatus)
			employerGroup.POST("/applications/:application_id/accept", applicationHandler.Accept)
		}

		// Either party can close out a hire
		protected.POST("/applications/:application_id/complete", applicationHandler.Complete)

		// Feedback routes
		protected.POST("/feedback", feedbackHandler.Submit)

		// Message routes
		protected.POST("/messages", messageHandler.Send)
		protected.GET("/messages", messageHandler.Inbox)
		protected.GET("/messages/unread-count", messageHandler.UnreadCount)
		protected.GET("/messages/:user_id", messageHandler.Conversation)

		// Notification routes
		protected.GET("/notifications", notificationHandler.GetNotifications)
		protected.GET("/notifications/unread-count", notificationHandler.UnreadCount)
		protected.PUT("/notifications/:id/read", notificationHandler.MarkAsRead)
		protected.PUT("/notifications/read-all", notificationHandler.MarkAllAsRead)
		protected.DELETE("/notifications/:id", notificationHandler.Delete)
		protected.DELETE("/notifications/expired", notificationHandler.DeleteExpired)
		protected.GET("/notifications/ws", notificationHandler.HandleWebSocket)
	}

	return &Server{
		engine:      router,
		db:          db,
		redisClient: redisClient,
	}
}

func (s *Server) Run(addr string) error {
	return s.engine.Run(addr)
}

// Engine exposes the router for tests.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func setupCORS(router *gin.Engine, cfg *config.Config) {
	var origins []string
	if cfg.AllowedOrigins != "" {
		origins = strings.Split(cfg.AllowedOrigins, ",")
	} else {
		origins = []string{"http://localhost:3000"}
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}
