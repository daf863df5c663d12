package services

import (
  "context"
  "fmt"
  "strings"
  "time"

  "github.com/google/uuid"
  "gorm.io/datatypes"
  "gorm.io/gorm"

  "github.com/courseloom/courseloom-backend/internal/logger"
  "github.com/courseloom/courseloom-backend/internal/repos"
  "github.com/courseloom/courseloom-backend/internal/types"
)

// SuggestionService manages course suggestions, the entry point of every
// course generation run.
type SuggestionService interface {
  Create(ctx context.Context, topic, language string) (*types.CourseSuggestion, error)
  GetByID(ctx context.Context, id uuid.UUID) (*types.CourseSuggestion, error)
}

type suggestionService struct {
  db             *gorm.DB
  log            *logger.Logger
  suggestionRepo repos.CourseSuggestionRepo
}

func NewSuggestionService(db *gorm.DB, baseLog *logger.Logger, suggestionRepo repos.CourseSuggestionRepo) SuggestionService {
  return &suggestionService{
    db:             db,
    log:            baseLog.With("service", "SuggestionService"),
    suggestionRepo: suggestionRepo,
  }
}

func (ss *suggestionService) Create(ctx context.Context, topic, language string) (*types.CourseSuggestion, error) {
  topic = strings.TrimSpace(topic)
  if topic == "" {
    return nil, fmt.Errorf("topic is required")
  }
  language = strings.TrimSpace(language)
  if language == "" {
    language = "en"
  }

  now := time.Now()
  suggestion := &types.CourseSuggestion{
    ID:        uuid.New(),
    Topic:     topic,
    Language:  language,
    Status:    types.GenerationPending,
    Metadata:  datatypes.JSON([]byte(`{}`)),
    CreatedAt: now,
    UpdatedAt: now,
  }
  if _, err := ss.suggestionRepo.Create(ctx, nil, []*types.CourseSuggestion{suggestion}); err != nil {
    return nil, fmt.Errorf("create suggestion: %w", err)
  }
  return suggestion, nil
}

func (ss *suggestionService) GetByID(ctx context.Context, id uuid.UUID) (*types.CourseSuggestion, error) {
  suggestions, err := ss.suggestionRepo.GetByIDs(ctx, nil, []uuid.UUID{id})
  if err != nil {
    return nil, fmt.Errorf("load suggestion: %w", err)
  }
  if len(suggestions) == 0 || suggestions[0] == nil {
    return nil, fmt.Errorf("suggestion %s: %w", id, ErrNotFound)
  }
  return suggestions[0], nil
}
