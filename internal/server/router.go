package server

import (
  "strings"

  "github.com/gin-contrib/cors"
  "github.com/gin-gonic/gin"
  "go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

  "github.com/courseloom/courseloom-backend/internal/handlers"
  "github.com/courseloom/courseloom-backend/internal/middleware"
)

type RouterConfig struct {
  ServiceName       string
  AllowedOrigins    []string
  AuthHandler       *handlers.AuthHandler
  AuthMiddleware    *middleware.AuthMiddleware
  SSEHandler        *handlers.SSEHandler
  SuggestionHandler *handlers.SuggestionHandler
  CourseHandler     *handlers.CourseHandler
  ChapterHandler    *handlers.ChapterHandler
  LessonHandler     *handlers.LessonHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
  router := gin.Default()
  router.Use(otelgin.Middleware(cfg.ServiceName))

  origins := cfg.AllowedOrigins
  if len(origins) == 0 {
    origins = []string{"http://localhost:3000"}
  }
  router.Use(cors.New(cors.Config{
    AllowOrigins:     origins,
    AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
    AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
    AllowCredentials: true,
  }))

  // Public
  router.GET("/healthcheck", handlers.HealthCheck)
  router.POST("/register", cfg.AuthHandler.Register)
  router.POST("/login", cfg.AuthHandler.Login)

  // Protected
  protected := router.Group("/api")
  protected.Use(cfg.AuthMiddleware.RequireAuth())
  // Auth
  protected.POST("/refresh", cfg.AuthHandler.Refresh)
  protected.POST("/logout", cfg.AuthHandler.Logout)
  // SSE
  protected.GET("/sse/stream", cfg.SSEHandler.SSEStream)
  protected.POST("/sse/subscribe", cfg.SSEHandler.SSESubscribe)
  protected.POST("/sse/unsubscribe", cfg.SSEHandler.SSEUnsubscribe)
  // Suggestions
  protected.POST("/suggestions", cfg.SuggestionHandler.Create)
  protected.GET("/suggestions/:id", cfg.SuggestionHandler.GetByID)
  protected.POST("/suggestions/:id/generate", cfg.SuggestionHandler.Generate)
  // Catalog
  protected.GET("/courses", cfg.CourseHandler.List)
  protected.GET("/courses/:slug", cfg.CourseHandler.GetBySlug)
  protected.GET("/courses/:slug/generation", cfg.CourseHandler.GetGenerationBySlug)
  protected.GET("/chapters/:id", cfg.ChapterHandler.GetByID)
  protected.POST("/chapters/:id/generate", cfg.ChapterHandler.Generate)
  protected.GET("/lessons/:id", cfg.LessonHandler.GetByID)
  protected.POST("/lessons/:id/generate", cfg.LessonHandler.Generate)

  return router
}

// ParseOrigins splits a comma separated origin list from the environment.
func ParseOrigins(raw string) []string {
  var out []string
  for _, part := range strings.Split(raw, ",") {
    if part = strings.TrimSpace(part); part != "" {
      out = append(out, part)
    }
  }
  return out
}
