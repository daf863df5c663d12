package repos

import (
  "context"
  "time"

  "github.com/google/uuid"
  "gorm.io/gorm"

  "github.com/courseloom/courseloom-backend/internal/logger"
  "github.com/courseloom/courseloom-backend/internal/types"
)

type CourseSuggestionRepo interface {
  Create(ctx context.Context, tx *gorm.DB, suggestions []*types.CourseSuggestion) ([]*types.CourseSuggestion, error)
  GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.CourseSuggestion, error)
  UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
}

type courseSuggestionRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewCourseSuggestionRepo(db *gorm.DB, baseLog *logger.Logger) CourseSuggestionRepo {
  repoLog := baseLog.With("repo", "CourseSuggestionRepo")
  return &courseSuggestionRepo{db: db, log: repoLog}
}

func (r *courseSuggestionRepo) Create(ctx context.Context, tx *gorm.DB, suggestions []*types.CourseSuggestion) ([]*types.CourseSuggestion, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if len(suggestions) == 0 {
    return []*types.CourseSuggestion{}, nil
  }
  if err := transaction.WithContext(ctx).Create(&suggestions).Error; err != nil {
    return nil, err
  }
  return suggestions, nil
}

func (r *courseSuggestionRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.CourseSuggestion, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  var results []*types.CourseSuggestion
  if len(ids) == 0 {
    return results, nil
  }
  if err := transaction.WithContext(ctx).
    Where("id IN ?", ids).
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (r *courseSuggestionRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if id == uuid.Nil {
    return nil
  }
  if updates == nil {
    updates = map[string]interface{}{}
  }
  if _, ok := updates["updated_at"]; !ok {
    updates["updated_at"] = time.Now()
  }
  return transaction.WithContext(ctx).
    Model(&types.CourseSuggestion{}).
    Where("id = ?", id).
    Updates(updates).Error
}
