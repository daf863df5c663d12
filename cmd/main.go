package main

import (
  "context"
  "fmt"
  "os"
  "time"

  "github.com/courseloom/courseloom-backend/internal/clients/redis"
  "github.com/courseloom/courseloom-backend/internal/db"
  "github.com/courseloom/courseloom-backend/internal/handlers"
  "github.com/courseloom/courseloom-backend/internal/logger"
  "github.com/courseloom/courseloom-backend/internal/middleware"
  "github.com/courseloom/courseloom-backend/internal/observability"
  "github.com/courseloom/courseloom-backend/internal/repos"
  "github.com/courseloom/courseloom-backend/internal/server"
  "github.com/courseloom/courseloom-backend/internal/services"
  "github.com/courseloom/courseloom-backend/internal/sse"
  "github.com/courseloom/courseloom-backend/internal/utils"
)

func main() {
  // Logger
  logMode := os.Getenv("LOG_MODE")
  if logMode == "" {
    logMode = "development"
  }
  log, err := logger.New(logMode)
  if err != nil {
    fmt.Printf("Failed to init logger: %v\n", err)
    os.Exit(1)
  }
  defer log.Sync()

  // Env
  log.Info("Loading environment variables from main...")
  jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
  accessTokenTTL := utils.GetEnvAsInt("ACCESS_TOKEN_TTL", 3600, log)
  refreshTokenTTL := utils.GetEnvAsInt("REFRESH_TOKEN_TTL", 86400, log)

  // Tracing
  shutdownOTel := observability.InitOTel(context.Background(), log, observability.OtelConfig{
    ServiceName: utils.GetEnv("SERVICE_NAME", "courseloom-backend", log),
    Environment: utils.GetEnv("ENVIRONMENT", "development", log),
    Version:     utils.GetEnv("SERVICE_VERSION", "dev", log),
  })
  if shutdownOTel != nil {
    defer func() {
      ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
      defer cancel()
      _ = shutdownOTel(ctx)
    }()
  }

  // Postgres
  postgresService, err := db.NewPostgresService(log)
  if err != nil {
    log.Error("Postgres init failed", "error", err)
    os.Exit(1)
  }
  if err = postgresService.AutoMigrateAll(); err != nil {
    log.Warn("Postgres auto migration failed", "error", err)
  }
  thePG := postgresService.DB()

  // Repos
  log.Info("Setting up Repos from main...")
  userRepo := repos.NewUserRepo(thePG, log)
  userTokenRepo := repos.NewUserTokenRepo(thePG, log)
  suggestionRepo := repos.NewCourseSuggestionRepo(thePG, log)
  courseRepo := repos.NewCourseRepo(thePG, log)
  courseTitleRepo := repos.NewCourseTitleRepo(thePG, log)
  categoryRepo := repos.NewCategoryRepo(thePG, log)
  chapterRepo := repos.NewChapterRepo(thePG, log)
  lessonRepo := repos.NewLessonRepo(thePG, log)
  activityRepo := repos.NewActivityRepo(thePG, log)

  // SSE
  log.Info("Setting up SSE hub now...")
  sseHub := sse.NewSSEHub(log)
  var sseBus redis.SSEBus
  if os.Getenv("REDIS_ADDR") != "" {
    sseBus, err = redis.NewSSEBus(log)
    if err != nil {
      log.Warn("Redis SSE bus init failed, running single-instance", "error", err)
      sseBus = nil
    } else {
      if err := sseBus.StartForwarder(context.Background(), sseHub.Broadcast); err != nil {
        log.Warn("Redis SSE forwarder init failed", "error", err)
      }
    }
  }

  // Services
  log.Info("Setting up Services from main...")
  bucketService, err := services.NewBucketService(log)
  if err != nil {
    log.Warn("Could not init BucketService, covers disabled", "error", err)
    bucketService = nil
  }
  coverService, err := services.NewCoverService(log)
  if err != nil {
    log.Warn("Could not init CoverService, placeholder covers disabled", "error", err)
    coverService = nil
  }
  openaiClient, err := services.NewOpenAIClient(log)
  if err != nil {
    log.Error("Could not init OpenAIClient", "error", err)
    os.Exit(1)
  }
  generationConfig := services.LoadGenerationConfig(log)
  contentGenerator := services.NewContentGenerator(log, openaiClient)
  notifier := services.NewGenerationNotifier(log, sseHub, sseBus)
  prober := services.NewContentProber(log, courseTitleRepo, categoryRepo, chapterRepo, lessonRepo, activityRepo)
  authService := services.NewAuthService(thePG, log, userRepo, userTokenRepo, jwtSecretKey, time.Duration(accessTokenTTL)*time.Second, time.Duration(refreshTokenTTL)*time.Second)
  suggestionService := services.NewSuggestionService(thePG, log, suggestionRepo)
  catalogService := services.NewCatalogService(thePG, log, courseRepo, courseTitleRepo, categoryRepo, chapterRepo, lessonRepo)
  generationService := services.NewGenerationService(
    thePG,
    log,
    generationConfig,
    notifier,
    prober,
    contentGenerator,
    coverService,
    bucketService,
    suggestionRepo,
    courseRepo,
    courseTitleRepo,
    categoryRepo,
    chapterRepo,
    lessonRepo,
    activityRepo,
  )

  // Handlers
  log.Info("Setting up handlers from main...")
  authHandler := handlers.NewAuthHandler(authService)
  sseHandler := handlers.NewSSEHandler(log, sseHub)
  suggestionHandler := handlers.NewSuggestionHandler(log, suggestionService, generationService)
  courseHandler := handlers.NewCourseHandler(catalogService)
  chapterHandler := handlers.NewChapterHandler(log, catalogService, generationService)
  lessonHandler := handlers.NewLessonHandler(log, catalogService, generationService)

  // Middleware
  log.Info("Setting up middleware from main...")
  authMiddleware := middleware.NewAuthMiddleware(log, authService)

  // Router
  log.Info("Setting up router from main...")
  router := server.NewRouter(server.RouterConfig{
    ServiceName:       utils.GetEnv("SERVICE_NAME", "courseloom-backend", log),
    AllowedOrigins:    server.ParseOrigins(utils.GetEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000", log)),
    AuthHandler:       authHandler,
    AuthMiddleware:    authMiddleware,
    SSEHandler:        sseHandler,
    SuggestionHandler: suggestionHandler,
    CourseHandler:     courseHandler,
    ChapterHandler:    chapterHandler,
    LessonHandler:     lessonHandler,
  })

  port := utils.GetEnv("PORT", "8080", log)
  fmt.Printf("Server listening on :%s\n", port)
  if err := router.Run(":" + port); err != nil {
    log.Error("Server failed", "error", err)
  }
}
