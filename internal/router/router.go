package router

import (
	"time"

	"github.com/anonto42/storydesk/backend/internal/handlers"
	"github.com/anonto42/storydesk/backend/internal/middleware"
	"github.com/anonto42/storydesk/backend/internal/repositories"
	"github.com/anonto42/storydesk/backend/pkg/config"
	"github.com/anonto42/storydesk/backend/validators"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Dependencies are the services the routes are built on. FirebaseAuth may be
// nil.
type Dependencies struct {
	Stories  repositories.StoryRepository
	Episodes repositories.EpisodeRepository
	Users    repositories.UserRepository
	Uploader handlers.Uploader

	FirebaseAuth handlers.IDTokenVerifier

	JWTSecret   string
	TokenTTL    time.Duration
	StorySchema validators.SchemaRevision
	Log         *zap.Logger
}

// Repositories builds the gateways for the connections InitDB opened
func Repositories(db *config.DB) (repositories.StoryRepository, repositories.EpisodeRepository, repositories.UserRepository) {
	users := repositories.NewPostgresUserRepository(db.Users)
	if db.Mongo != nil {
		mdb := db.Mongo.Database(db.MongoDatabase)
		return repositories.NewMongoStoryRepository(mdb), repositories.NewMongoEpisodeRepository(mdb), users
	}
	return repositories.NewGormStoryRepository(db.Records), repositories.NewGormEpisodeRepository(db.Records), users
}

// SetupRoutes configures all application routes and injects dependencies
func SetupRoutes(e *echo.Echo, deps Dependencies) {
	log := deps.Log
	e.Validator = validators.NewValidator()
	e.HTTPErrorHandler = handlers.NewHTTPErrorHandler(log)

	// Health check - always accessible
	e.GET("/health", handlers.HealthCheck)

	// --- Unprotected routes for authentication ---
	authGroup := e.Group("/api/v1/auth")
	authHandler := handlers.NewAuthHandler(deps.Users, deps.FirebaseAuth, deps.JWTSecret, deps.TokenTTL)
	authHandler.RegisterAuthRoutes(authGroup)
	log.Info("auth routes configured", zap.Bool("firebase_login", deps.FirebaseAuth != nil))

	// --- Protected routes (require JWT authentication) ---
	api := e.Group("/api/v1")
	api.Use(middleware.JWTAuthMiddleware(deps.JWTSecret))

	handlers.NewUserHandler(deps.Users).RegisterProfileRoutes(api)
	handlers.NewStoryHandler(deps.Stories, deps.Episodes, deps.StorySchema).RegisterStoryRoutes(api)
	handlers.NewEpisodeHandler(deps.Stories, deps.Episodes).RegisterEpisodeRoutes(api)
	handlers.NewUploadHandler(deps.Uploader).RegisterUploadRoutes(api)
	handlers.NewHomepageHandler(deps.Stories).RegisterHomepageRoutes(api)

	log.Info("all routes configured", zap.String("story_schema", string(deps.StorySchema)))
}
