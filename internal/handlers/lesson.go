package handlers

import (
  "context"
  "errors"
  "net/http"

  "github.com/gin-gonic/gin"
  "github.com/google/uuid"

  "github.com/courseloom/courseloom-backend/internal/logger"
  "github.com/courseloom/courseloom-backend/internal/services"
)

type LessonHandler struct {
  log               *logger.Logger
  catalogService    services.CatalogService
  generationService services.GenerationService
}

func NewLessonHandler(log *logger.Logger, catalogService services.CatalogService, generationService services.GenerationService) *LessonHandler {
  return &LessonHandler{
    log:               log.With("handler", "LessonHandler"),
    catalogService:    catalogService,
    generationService: generationService,
  }
}

// GET /lessons/:id
func (lh *LessonHandler) GetByID(c *gin.Context) {
  id, err := uuid.Parse(c.Param("id"))
  if err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lesson id"})
    return
  }
  lesson, err := lh.catalogService.GetLesson(c.Request.Context(), id)
  if err != nil {
    if errors.Is(err, services.ErrNotFound) {
      c.JSON(http.StatusNotFound, gin.H{"error": "lesson not found"})
      return
    }
    c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
    return
  }
  c.JSON(http.StatusOK, gin.H{"lesson": lesson})
}

// POST /lessons/:id/generate
func (lh *LessonHandler) Generate(c *gin.Context) {
  id, err := uuid.Parse(c.Param("id"))
  if err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lesson id"})
    return
  }

  go func() {
    if _, err := lh.generationService.GenerateLesson(context.Background(), id); err != nil {
      lh.log.Warn("Lesson generation failed", "lesson_id", id, "error", err)
    }
  }()
  c.JSON(http.StatusAccepted, gin.H{"channel": id.String()})
}
