package handlers

import (
  "errors"
  "net/http"
  "strconv"

  "github.com/gin-gonic/gin"

  "github.com/courseloom/courseloom-backend/internal/services"
)

type CourseHandler struct {
  catalogService services.CatalogService
}

func NewCourseHandler(catalogService services.CatalogService) *CourseHandler {
  return &CourseHandler{catalogService: catalogService}
}

// GET /courses?limit=20&offset=0
func (ch *CourseHandler) List(c *gin.Context) {
  limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
  offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

  courses, err := ch.catalogService.ListCourses(c.Request.Context(), limit, offset)
  if err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
    return
  }
  c.JSON(http.StatusOK, gin.H{"courses": courses})
}

// GET /courses/:slug
func (ch *CourseHandler) GetBySlug(c *gin.Context) {
  detail, err := ch.catalogService.GetCourseBySlug(c.Request.Context(), c.Param("slug"))
  if err != nil {
    if errors.Is(err, services.ErrNotFound) {
      c.JSON(http.StatusNotFound, gin.H{"error": "course not found"})
      return
    }
    c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
    return
  }
  c.JSON(http.StatusOK, detail)
}

// GET /courses/:slug/generation
func (ch *CourseHandler) GetGenerationBySlug(c *gin.Context) {
  rollup, err := ch.catalogService.GetCourseGeneration(c.Request.Context(), c.Param("slug"))
  if err != nil {
    if errors.Is(err, services.ErrNotFound) {
      c.JSON(http.StatusNotFound, gin.H{"error": "course not found"})
      return
    }
    c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
    return
  }
  c.JSON(http.StatusOK, rollup)
}
