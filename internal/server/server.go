// Package server contains the HTTP handlers for the application's API endpoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"warbler/internal/cache"
	"warbler/internal/config"
	"warbler/internal/database"
	"warbler/internal/events"
	"warbler/internal/featureflags"
	"warbler/internal/middleware"
	"warbler/internal/models"
	"warbler/internal/observability"
	"warbler/internal/repository"
	"warbler/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	verifier       middleware.Verifier
	featureFlags   *featureflags.Manager
	publisher      *events.Publisher
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	postService       *service.PostService
	threadService     *service.ThreadService
	engagementService *service.EngagementService
	followService     *service.FollowService
	feedService       *service.FeedService
	userService       *service.UserService
	reconciler        *service.Reconciler
}

// NewServer connects to the database and Redis and wires every service.
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	// Redis is optional: without it the following cache and events are disabled.
	redisClient := cache.InitRedis(cfg.RedisURL)

	return NewServerWithDeps(cfg, db, redisClient)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	if db == nil {
		return nil, errors.New("database is required")
	}

	store := repository.NewStore(db)
	publisher := events.NewPublisher(redisClient)
	following := cache.NewFollowingSets(redisClient, cfg.FollowingCacheTTL())
	flags := featureflags.NewManager(cfg.FeatureFlags)

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("warbler-api"),
		verifier:       middleware.NewJWTVerifier(cfg.JWTSecret, cfg.JWTIssuer),
		featureFlags:   flags,
		publisher:      publisher,

		postService:       service.NewPostService(store, publisher, cfg.PostMaxLength),
		threadService:     service.NewThreadService(store, publisher, cfg.PostMaxLength, cfg.FeedMaxItems),
		engagementService: service.NewEngagementService(store, publisher, cfg.FeedMaxItems),
		followService:     service.NewFollowService(store, following, publisher, cfg.FeedMaxItems),
		feedService:       service.NewFeedService(store, following, flags, cfg.FeedMaxItems),
		userService:       service.NewUserService(store, cfg.FeedMaxItems),
		reconciler:        service.NewReconciler(store),
	}
	return s, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(middleware.StructuredLogger())
	app.Use(cors.New(cors.Config{
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, " + middleware.CorrelationHeader,
		MaxAge:       86400,
	}))
	app.Use(middleware.StorageTimeout(s.config.StorageTimeout()))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")
	optional := middleware.OptionalAuth(s.verifier)
	required := middleware.AuthRequired(s.verifier)

	// Public reads, annotated for the viewer when a token is supplied.
	publicPosts := api.Group("/posts", optional)
	publicPosts.Get("/search", middleware.RateLimit(s.redis, 30, time.Minute, "search"), s.SearchPosts)
	publicPosts.Get("/:id/likes", s.GetLikingUsers)
	publicPosts.Get("/:id/retweets", s.GetRetweetingUsers)
	publicPosts.Get("/:id/replies", s.GetReplies)
	publicPosts.Get("/:id/thread", s.GetThread)
	publicPosts.Get("/:id", s.GetPost)

	publicUsers := api.Group("/users", optional)
	publicUsers.Get("/search", middleware.RateLimit(s.redis, 30, time.Minute, "user_search"), s.SearchUsers)
	publicUsers.Get("/by-handle/:handle", s.GetUserByHandle)
	publicUsers.Get("/:id/followers", s.GetFollowers)
	publicUsers.Get("/:id/following", s.GetFollowing)
	publicUsers.Get("/:id/timeline", s.GetUserTimeline)
	publicUsers.Get("/:id/likes", s.GetLikedPosts)
	publicUsers.Get("/:id/retweets", s.GetRetweetedPosts)

	protected := api.Group("", required)
	protected.Get("/feed", s.GetHomeFeed)

	posts := protected.Group("/posts")
	posts.Post("/", middleware.RateLimit(s.redis, 30, time.Minute, "create_post"), s.CreatePost)
	posts.Post("/:id/like", s.LikePost)
	posts.Delete("/:id/like", s.UnlikePost)
	posts.Post("/:id/retweet", s.RetweetPost)
	posts.Delete("/:id/retweet", s.UnretweetPost)
	posts.Post("/:id/replies", middleware.RateLimit(s.redis, 30, time.Minute, "reply"), s.ReplyToPost)
	posts.Delete("/:id", s.DeletePost)

	users := protected.Group("/users")
	users.Post("/:id/follow", s.FollowUser)
	users.Delete("/:id/follow", s.UnfollowUser)
	users.Get("/:id/follow", s.GetFollowStatus)
}

// App builds the Fiber application with middleware and routes installed.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "Warbler API",
		ErrorHandler: errorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
	}
	observability.Logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
	return models.RespondWithError(c, models.StatusFor(err), err)
}

// Start serves HTTP until Shutdown is called. When Redis is available the
// counter reconciler follows the activity stream in the background.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	app := s.App()

	if s.redis != nil {
		if err := s.reconciler.Watch(s.shutdownCtx, s.publisher); err != nil {
			observability.Logger.Warn("reconciler watch not started", slog.String("error", err.Error()))
		}
	}

	observability.Logger.Info("server starting", slog.String("port", s.config.Port))
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			observability.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			observability.Logger.Error("error closing sql DB", slog.String("error", cerr.Error()))
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			observability.Logger.Error("error closing redis", slog.String("error", rerr.Error()))
		}
	}

	observability.Logger.Info("server shutdown complete")
	return nil
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests. Redis is optional, so
// only the database decides readiness.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
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

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"flags": s.featureFlags.Names(),
		"time":  time.Now(),
	})
}
