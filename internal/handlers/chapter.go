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

type ChapterHandler struct {
  log               *logger.Logger
  catalogService    services.CatalogService
  generationService services.GenerationService
}

func NewChapterHandler(log *logger.Logger, catalogService services.CatalogService, generationService services.GenerationService) *ChapterHandler {
  return &ChapterHandler{
    log:               log.With("handler", "ChapterHandler"),
    catalogService:    catalogService,
    generationService: generationService,
  }
}

// GET /chapters/:id
func (ch *ChapterHandler) GetByID(c *gin.Context) {
  id, err := uuid.Parse(c.Param("id"))
  if err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chapter id"})
    return
  }
  chapter, err := ch.catalogService.GetChapter(c.Request.Context(), id)
  if err != nil {
    if errors.Is(err, services.ErrNotFound) {
      c.JSON(http.StatusNotFound, gin.H{"error": "chapter not found"})
      return
    }
    c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
    return
  }
  c.JSON(http.StatusOK, gin.H{"chapter": chapter})
}

// POST /chapters/:id/generate
func (ch *ChapterHandler) Generate(c *gin.Context) {
  id, err := uuid.Parse(c.Param("id"))
  if err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chapter id"})
    return
  }

  go func() {
    if _, err := ch.generationService.GenerateChapter(context.Background(), id); err != nil {
      ch.log.Warn("Chapter generation failed", "chapter_id", id, "error", err)
    }
  }()
  c.JSON(http.StatusAccepted, gin.H{"channel": id.String()})
}
