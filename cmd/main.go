package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prepmint/examengine/config"
	"github.com/prepmint/examengine/database"
	_ "github.com/prepmint/examengine/docs" // Swagger docs - auto-generated
	"github.com/prepmint/examengine/internal/clock"
	adminctrl "github.com/prepmint/examengine/internal/controller/admin"
	userctrl "github.com/prepmint/examengine/internal/controller/user"
	"github.com/prepmint/examengine/internal/logger"
	"github.com/prepmint/examengine/internal/model"
	"github.com/prepmint/examengine/internal/repository"
	"github.com/prepmint/examengine/internal/service"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// @title Test Attempt Engine API
// @version 1.0
// @description Timed test attempts over immutable snapshots: sectional navigation, durable answer recording, deterministic scoring with revision history and cohort analytics.
// @contact.name API Support
// @contact.email support@prepmint.example.com
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
func main() {
	logger.Init()

	app := fx.New(
		// Core Application Components
		fx.Provide(
			config.NewConfig,
			database.NewDatabase, // Provides *gorm.DB
			NewGinEngine,         // Provides *gin.Engine
			clock.System,         // Provides clock.Clock
		),

		// Repositories Layer
		fx.Provide(
			repository.NewQuestionRepository,
			repository.NewTemplateRepository,
			repository.NewSnapshotRepository,
			repository.NewAttemptRepository,
			repository.NewAnswerRepository,
			repository.NewBreakdownRepository,
		),

		// Services Layer
		fx.Provide(
			service.NewAdminService,
			service.NewScoringService,
			service.NewAttemptService,
			service.NewAnalyticsService,
			func(attemptRepo repository.AttemptRepository, attempts service.AttemptService, cfg *config.Config) *service.DeadlineSweeper {
				return service.NewDeadlineSweeper(attemptRepo, attempts, cfg.Sweeper.Interval)
			},
		),

		// API Controllers Layer
		fx.Provide(
			adminctrl.NewAdminController,
			userctrl.NewAttemptController,
		),

		fx.Invoke(RegisterRoutesAndStartServer),
		fx.Invoke(AutoMigrateDB),
		fx.Invoke(StartDeadlineSweeper),
	)

	if err := app.Start(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to start application")
	}

	<-app.Done()
	log.Info().Msg("Application shutting down gracefully...")
}

func NewGinEngine() *gin.Engine {
	r := gin.New()

	r.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		log.Info().
			Str("client_ip", param.ClientIP).
			Str("method", param.Method).
			Str("path", param.Path).
			Int("status_code", param.StatusCode).
			Dur("latency", param.Latency).
			Str("error_message", param.ErrorMessage).
			Msg("gin_request")
		return ""
	}))
	r.Use(gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"}, // Be more specific in production
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Swagger UI: http://localhost:PORT/swagger/index.html
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

// RegisterRoutesAndStartServer configures API routes and manages server lifecycle.
func RegisterRoutesAndStartServer(
	lc fx.Lifecycle,
	router *gin.Engine,
	cfg *config.Config,
	adminCtrl *adminctrl.AdminController,
	attemptCtrl *userctrl.AttemptController,
) {
	// Admin Routes (prefixed with /api/v1/admin)
	adminAPIGroup := router.Group("/api/v1/admin")
	{
		adminAPIGroup.POST("/questions", adminCtrl.CreateQuestion)
		adminAPIGroup.POST("/templates", adminCtrl.CreateTemplate)
		adminAPIGroup.POST("/templates/:template_id/publish", adminCtrl.PublishTemplate)
		adminAPIGroup.POST("/attempts/:attempt_id/rescore", adminCtrl.Rescore)
		adminAPIGroup.GET("/attempts/:attempt_id/breakdowns", adminCtrl.ListBreakdowns)
	}

	// Student Routes (prefixed with /api/v1)
	userAPIGroup := router.Group("/api/v1")
	{
		userAPIGroup.POST("/snapshots/:snapshot_id/attempts", attemptCtrl.StartAttempt)
		userAPIGroup.GET("/snapshots/:snapshot_id/cohort", attemptCtrl.Cohort)

		userAPIGroup.GET("/attempts/:attempt_id", attemptCtrl.GetAttempt)
		userAPIGroup.PUT("/attempts/:attempt_id/answers/:question_id", attemptCtrl.RecordAnswer)
		userAPIGroup.POST("/attempts/:attempt_id/navigate", attemptCtrl.Navigate)
		userAPIGroup.POST("/attempts/:attempt_id/pause", attemptCtrl.Pause)
		userAPIGroup.POST("/attempts/:attempt_id/resume", attemptCtrl.Resume)
		userAPIGroup.POST("/attempts/:attempt_id/submit", attemptCtrl.Submit)
		userAPIGroup.GET("/attempts/:attempt_id/time", attemptCtrl.TimeRemaining)
		userAPIGroup.GET("/attempts/:attempt_id/breakdown", attemptCtrl.Breakdown)
		userAPIGroup.GET("/attempts/:attempt_id/report", attemptCtrl.Report)
	}

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info().Msgf("Test attempt engine starting on port %s", cfg.Server.Port)
			log.Info().Msgf("Swagger UI available at http://localhost:%s/swagger/index.html", cfg.Server.Port)
			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal().Err(err).Msg("Server ListenAndServe failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Server shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	})
}

// StartDeadlineSweeper runs the timeout sweep for the life of the application.
func StartDeadlineSweeper(lc fx.Lifecycle, sweeper *service.DeadlineSweeper) {
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go sweeper.Run(ctx)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}

func AutoMigrateDB(db *gorm.DB) error {
	log.Info().Msg("Running database migrations...")
	err := db.AutoMigrate(
		&model.Question{},
		&model.TestTemplate{},
		&model.TemplateSection{},
		&model.InterfaceSnapshot{},
		&model.TestAttempt{},
		&model.AnswerRecord{},
		&model.ScoreBreakdown{},
	)
	if err != nil {
		log.Error().Err(err).Msg("Database migration failed")
		return err
	}
	log.Info().Msg("Database migration completed successfully.")
	return nil
}
