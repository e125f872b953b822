package server

import (
	"context"
	"log/slog"
	"strings"
	"time"

	_ "socialapi/docs" // swagger docs
	"socialapi/internal/bootstrap"
	"socialapi/internal/cache"
	"socialapi/internal/config"
	"socialapi/internal/featureflags"
	"socialapi/internal/middleware"
	"socialapi/internal/models"
	"socialapi/internal/notifications"
	"socialapi/internal/repository"
	"socialapi/internal/scheduler"
	"socialapi/internal/service"
	"socialapi/internal/storage"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

var (
	_ service.RealtimeEmitter = (*notifications.Hub)(nil)
	_ service.PushSender      = (*notifications.FCMPusher)(nil)
	_ service.FlagChecker     = (*featureflags.Manager)(nil)
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	hub            *notifications.Hub
	featureFlags   *featureflags.Manager
	scheduler      *scheduler.Scheduler
	s3Presigner    storage.Presigner
	minioPresigner storage.Presigner

	authService         *service.AuthService
	userService         *service.UserService
	followService       *service.FollowService
	postService         *service.PostService
	commentService      *service.CommentService
	likeService         *service.LikeService
	reactionService     *service.ReactionService
	notificationService *service.NotificationService
	feedService         *service.FeedService
	conversationService *service.ConversationService
	contentService      *service.ContentService
}

// NewServer connects to the database and Redis, then wires the server.
func NewServer(cfg *config.Config) (*Server, error) {
	// redisClient is nil when Redis is unreachable; the server then runs single-instance.
	db, redisClient, err := bootstrap.InitRuntime(cfg, bootstrap.Options{SeedPreset: cfg.SeedPreset})
	if err != nil {
		return nil, err
	}
	return NewServerWithDeps(cfg, db, redisClient)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Tests use it with sqlite and miniredis.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	cache.SetClient(redisClient)

	userRepo := repository.NewUserRepository(db)
	followRepo := repository.NewFollowRepository(db)
	postRepo := repository.NewPostRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	likeRepo := repository.NewLikeRepository(db)
	reactionRepo := repository.NewReactionRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	conversationRepo := repository.NewConversationRepository(db)
	contentRepo := repository.NewContentRepository(db)
	tokenRepo := repository.NewRefreshTokenRepository(db)
	targetRepo := repository.NewTargetRepository(db)

	hub := notifications.NewHub(redisClient)
	flags := featureflags.NewManager(cfg.FeatureFlags)

	notificationService := service.NewNotificationService(notificationRepo, userRepo, targetRepo, hub)
	if cfg.FirebaseCredentialsFile != "" {
		pusher, err := notifications.NewFCMPusher(context.Background(), cfg.FirebaseCredentialsFile)
		if err != nil {
			middleware.Logger.Warn("push notifications disabled", slog.String("error", err.Error()))
		} else {
			notificationService.WithPush(pusher, flags)
		}
	}

	userService := service.NewUserService(userRepo)

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("socialapi"),
		hub:            hub,
		featureFlags:   flags,
		scheduler:      scheduler.New(),

		authService: service.NewAuthService(userService, userRepo, tokenRepo, redisClient, service.AuthConfig{
			Secret:     cfg.JWTSecret,
			AccessTTL:  time.Duration(cfg.JWTAccessTTLMinutes) * time.Minute,
			RefreshTTL: time.Duration(cfg.JWTRefreshTTLHours) * time.Hour,
		}),
		userService:         userService,
		followService:       service.NewFollowService(followRepo, userRepo, notificationService),
		postService:         service.NewPostService(postRepo, userRepo),
		commentService:      service.NewCommentService(commentRepo, postRepo, userRepo, notificationService),
		likeService:         service.NewLikeService(likeRepo, targetRepo, notificationService),
		reactionService:     service.NewReactionService(reactionRepo, targetRepo, notificationService),
		notificationService: notificationService,
		feedService:         service.NewFeedService(postRepo, followRepo),
		conversationService: service.NewConversationService(conversationRepo, userRepo, hub),
	}

	s.s3Presigner, s.minioPresigner = newPresigners(cfg)
	s.contentService = service.NewContentService(contentRepo, targetRepo, uploadPrefixes(cfg)...)

	if err := s.scheduler.AddNotificationSweep(
		cfg.NotificationSweepSchedule, cfg.NotificationRetentionDays, notificationService,
	); err != nil {
		return nil, err
	}

	return s, nil
}

func newPresigners(cfg *config.Config) (s3p, miniop storage.Presigner) {
	if cfg.S3Enabled() {
		p, err := storage.NewS3Presigner(context.Background(), storage.S3Config{
			Region:          cfg.S3Region,
			Bucket:          cfg.S3Bucket,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			Endpoint:        cfg.S3Endpoint,
			PublicBaseURL:   cfg.S3PublicBaseURL,
		})
		if err != nil {
			middleware.Logger.Warn("s3 uploads disabled", slog.String("error", err.Error()))
		} else {
			s3p = p
		}
	}
	if cfg.MinioEnabled() {
		p, err := storage.NewMinioPresigner(storage.MinioConfig{
			Endpoint:      cfg.MinioEndpoint,
			AccessKey:     cfg.MinioAccessKey,
			SecretKey:     cfg.MinioSecretKey,
			Bucket:        cfg.MinioBucket,
			UseSSL:        cfg.MinioUseSSL,
			Region:        cfg.MinioRegion,
			PublicBaseURL: cfg.MinioPublicURL,
		})
		if err != nil {
			middleware.Logger.Warn("minio uploads disabled", slog.String("error", err.Error()))
		} else {
			miniop = p
		}
	}
	return s3p, miniop
}

// uploadPrefixes restricts attachment URLs to the configured public bases.
// With no storage configured any http(s) URL is accepted.
func uploadPrefixes(cfg *config.Config) []string {
	var prefixes []string
	if cfg.S3PublicBaseURL != "" {
		prefixes = append(prefixes, cfg.S3PublicBaseURL)
	}
	if cfg.MinioPublicURL != "" {
		prefixes = append(prefixes, cfg.MinioPublicURL)
	}
	return prefixes
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())

	// Context Middleware to propagate Request ID, trace ID and user ID
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS middleware should run before middlewares that can short-circuit (e.g. limiter)
	// so browser clients still receive CORS headers on error responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || s.config.Env == "test"
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")
	api.Get("/swagger/*", swagger.HandlerDefault)

	authRequired := middleware.AuthRequired(s.authService, middleware.AuthOptions{})

	auth := api.Group("/auth")
	auth.Post("/register", middleware.RateLimit(s.redis, 5, 10*time.Minute, "register"), s.Register)
	auth.Post("/login", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)
	auth.Post("/refresh", s.Refresh)
	auth.Post("/logout", authRequired, s.Logout)

	// Browsers cannot set headers on a websocket handshake, so /ws accepts
	// ?token= and must be registered before the header-only group below.
	api.Get("/ws",
		middleware.AuthRequired(s.authService, middleware.AuthOptions{AllowQueryToken: true}),
		s.WebsocketHandler())

	protected := api.Group("", authRequired)

	users := protected.Group("/user")
	users.Get("/", s.ListUsers)
	users.Get("/me", s.GetMe)
	users.Patch("/me", s.UpdateMe)
	users.Delete("/me", s.DeleteMe)
	users.Put("/me/device-token", s.SetDeviceToken)
	users.Get("/username/:username", s.GetUserByUsername)
	users.Get("/:id", s.GetUser)

	follows := protected.Group("/follow")
	follows.Post("/", s.Follow)
	follows.Get("/following/:userId", s.GetFollowing)
	follows.Get("/followers/:userId", s.GetFollowers)
	follows.Delete("/user/:userId", s.Unfollow)
	follows.Delete("/:id", s.DeleteFollow)

	posts := protected.Group("/post")
	posts.Post("/", middleware.RateLimit(s.redis, 10, 5*time.Minute, "create_post"), s.CreatePost)
	posts.Get("/user/:userId", s.GetUserPosts)
	posts.Get("/:id", s.GetPost)
	posts.Patch("/:id", s.UpdatePost)
	posts.Delete("/:id", s.DeletePost)

	comments := protected.Group("/comment")
	comments.Post("/", middleware.RateLimit(s.redis, 20, time.Minute, "create_comment"), s.CreateComment)
	comments.Get("/post/:postId", s.GetPostComments)
	comments.Get("/:id", s.GetComment)
	comments.Patch("/:id", s.UpdateComment)
	comments.Delete("/:id", s.DeleteComment)

	likes := protected.Group("/like")
	likes.Post("/", s.Like)
	likes.Get("/", s.GetLikes)
	likes.Delete("/", s.Unlike)
	likes.Delete("/:id", s.DeleteLike)

	reactions := protected.Group("/reaction")
	reactions.Post("/", s.React)
	reactions.Get("/", s.GetReactions)
	reactions.Delete("/:id", s.DeleteReaction)

	notificationsGroup := protected.Group("/notification")
	notificationsGroup.Post("/", s.CreateNotification)
	notificationsGroup.Get("/", s.GetNotifications)
	notificationsGroup.Get("/unread-count", s.GetUnreadCount)
	notificationsGroup.Post("/read-all", s.MarkAllNotificationsRead)
	notificationsGroup.Patch("/:id", s.MarkNotification)
	notificationsGroup.Delete("/:id", s.DeleteNotification)

	feed := protected.Group("/feed")
	feed.Get("/personalized", s.GetPersonalizedFeed)
	feed.Get("/explore", s.GetExploreFeed)

	conversations := protected.Group("/conversation")
	conversations.Post("/", s.CreateConversation)
	conversations.Get("/", s.GetConversations)
	conversations.Get("/:id/messages", s.GetMessages)
	conversations.Post("/:id/messages", middleware.RateLimit(s.redis, 30, time.Minute, "send_message"), s.SendMessage)
	conversations.Get("/:id", s.GetConversation)

	contents := protected.Group("/content")
	contents.Post("/", s.AttachContent)
	contents.Get("/", s.GetContents)
	contents.Delete("/:id", s.DeleteContent)

	protected.Post("/s3/url", middleware.RateLimit(s.redis, 30, time.Minute, "presign"), s.PresignS3Upload)
	protected.Post("/minio/url", middleware.RateLimit(s.redis, 30, time.Minute, "presign"), s.PresignMinioUpload)

	protected.Get("/feature-flags", s.GetFeatureFlags)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck reports database and Redis reachability. Redis is optional:
// without it the instance still serves, so it is reported but never fails readiness.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if sqlDB, err := s.db.DB(); err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status, overall := fiber.StatusOK, "healthy"
	if dbStatus != "healthy" {
		status, overall = fiber.StatusServiceUnavailable, "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// App builds the Fiber application with middleware and routes installed.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:   "socialapi",
		BodyLimit: 10 * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			return respondError(c, err)
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// Start wires realtime fan-out, starts background jobs and blocks serving HTTP.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	s.app = s.App()

	if err := s.hub.StartWiring(s.shutdownCtx); err != nil {
		middleware.Logger.Warn("realtime fan-out unavailable, delivering locally",
			slog.String("error", err.Error()))
	}
	s.scheduler.Start()

	middleware.Logger.Info("server starting", slog.String("port", s.config.Port))
	return s.app.Listen(":" + strings.TrimPrefix(s.config.Port, ":"))
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	s.scheduler.Stop(ctx)

	if err := s.hub.Shutdown(ctx); err != nil {
		middleware.Logger.Error("error shutting down realtime hub", slog.String("error", err.Error()))
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", slog.String("error", cerr.Error()))
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", rerr.Error()))
		}
	}

	middleware.Logger.Info("Server shutdown complete")
	return nil
}
