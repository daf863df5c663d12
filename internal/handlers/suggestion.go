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

type SuggestionHandler struct {
  log               *logger.Logger
  suggestionService services.SuggestionService
  generationService services.GenerationService
}

func NewSuggestionHandler(log *logger.Logger, suggestionService services.SuggestionService, generationService services.GenerationService) *SuggestionHandler {
  return &SuggestionHandler{
    log:               log.With("handler", "SuggestionHandler"),
    suggestionService: suggestionService,
    generationService: generationService,
  }
}

// POST /suggestions
func (sh *SuggestionHandler) Create(c *gin.Context) {
  var req struct {
    Topic    string `json:"topic"`
    Language string `json:"language"`
  }
  if err := c.ShouldBindJSON(&req); err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
    return
  }
  suggestion, err := sh.suggestionService.Create(c.Request.Context(), req.Topic, req.Language)
  if err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
    return
  }
  c.JSON(http.StatusCreated, gin.H{"suggestion": suggestion})
}

// GET /suggestions/:id
func (sh *SuggestionHandler) GetByID(c *gin.Context) {
  id, err := uuid.Parse(c.Param("id"))
  if err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid suggestion id"})
    return
  }
  suggestion, err := sh.suggestionService.GetByID(c.Request.Context(), id)
  if err != nil {
    if errors.Is(err, services.ErrNotFound) {
      c.JSON(http.StatusNotFound, gin.H{"error": "suggestion not found"})
      return
    }
    c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
    return
  }
  c.JSON(http.StatusOK, gin.H{"suggestion": suggestion})
}

// POST /suggestions/:id/generate
//
// Kicks the course workflow off in the background and returns the channel
// the caller can subscribe to for step events.
func (sh *SuggestionHandler) Generate(c *gin.Context) {
  id, err := uuid.Parse(c.Param("id"))
  if err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid suggestion id"})
    return
  }
  if _, err := sh.suggestionService.GetByID(c.Request.Context(), id); err != nil {
    if errors.Is(err, services.ErrNotFound) {
      c.JSON(http.StatusNotFound, gin.H{"error": "suggestion not found"})
      return
    }
    c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
    return
  }

  go func() {
    if _, err := sh.generationService.GenerateCourse(context.Background(), id); err != nil {
      sh.log.Warn("Course generation failed", "suggestion_id", id, "error", err)
    }
  }()
  c.JSON(http.StatusAccepted, gin.H{"channel": id.String()})
}
