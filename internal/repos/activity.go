package repos

import (
  "context"
  "time"

  "github.com/google/uuid"
  "gorm.io/gorm"
  "gorm.io/gorm/clause"

  "github.com/courseloom/courseloom-backend/internal/logger"
  "github.com/courseloom/courseloom-backend/internal/types"
)

type ActivityRepo interface {
  CreateIfAbsent(ctx context.Context, tx *gorm.DB, activities []*types.Activity) error
  GetByLessonID(ctx context.Context, tx *gorm.DB, lessonID uuid.UUID) ([]*types.Activity, error)
  MaxPosition(ctx context.Context, tx *gorm.DB, lessonID uuid.UUID) (int, error)
  UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
}

type activityRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewActivityRepo(db *gorm.DB, baseLog *logger.Logger) ActivityRepo {
  repoLog := baseLog.With("repo", "ActivityRepo")
  return &activityRepo{db: db, log: repoLog}
}

func (r *activityRepo) CreateIfAbsent(ctx context.Context, tx *gorm.DB, activities []*types.Activity) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if len(activities) == 0 {
    return nil
  }
  return transaction.WithContext(ctx).
    Clauses(clause.OnConflict{
      Columns:   []clause.Column{{Name: "lesson_id"}, {Name: "slug"}},
      DoNothing: true,
    }).
    Create(&activities).Error
}

func (r *activityRepo) GetByLessonID(ctx context.Context, tx *gorm.DB, lessonID uuid.UUID) ([]*types.Activity, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  var results []*types.Activity
  if lessonID == uuid.Nil {
    return results, nil
  }
  if err := transaction.WithContext(ctx).
    Where("lesson_id = ?", lessonID).
    Order("position ASC").
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (r *activityRepo) MaxPosition(ctx context.Context, tx *gorm.DB, lessonID uuid.UUID) (int, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  var maxPos *int
  err := transaction.WithContext(ctx).
    Model(&types.Activity{}).
    Where("lesson_id = ?", lessonID).
    Select("MAX(position)").
    Scan(&maxPos).Error
  if err != nil {
    return -1, err
  }
  if maxPos == nil {
    return -1, nil
  }
  return *maxPos, nil
}

func (r *activityRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
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
    Model(&types.Activity{}).
    Where("id = ?", id).
    Updates(updates).Error
}
