package repos

import (
  "context"
  "errors"
  "time"

  "github.com/google/uuid"
  "gorm.io/gorm"

  "github.com/courseloom/courseloom-backend/internal/logger"
  "github.com/courseloom/courseloom-backend/internal/types"
)

type CourseRepo interface {
  Create(ctx context.Context, tx *gorm.DB, courses []*types.Course) ([]*types.Course, error)
  GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Course, error)
  GetBySuggestionID(ctx context.Context, tx *gorm.DB, suggestionID uuid.UUID) (*types.Course, error)
  GetBySlug(ctx context.Context, tx *gorm.DB, slug string) (*types.Course, error)
  List(ctx context.Context, tx *gorm.DB, limit, offset int) ([]*types.Course, error)
  UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
}

type courseRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewCourseRepo(db *gorm.DB, baseLog *logger.Logger) CourseRepo {
  repoLog := baseLog.With("repo", "CourseRepo")
  return &courseRepo{db: db, log: repoLog}
}

func (r *courseRepo) Create(ctx context.Context, tx *gorm.DB, courses []*types.Course) ([]*types.Course, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if len(courses) == 0 {
    return []*types.Course{}, nil
  }
  if err := transaction.WithContext(ctx).Create(&courses).Error; err != nil {
    return nil, err
  }
  return courses, nil
}

func (r *courseRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Course, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  var results []*types.Course
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

func (r *courseRepo) GetBySuggestionID(ctx context.Context, tx *gorm.DB, suggestionID uuid.UUID) (*types.Course, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if suggestionID == uuid.Nil {
    return nil, nil
  }
  var course types.Course
  err := transaction.WithContext(ctx).
    Where("suggestion_id = ?", suggestionID).
    First(&course).Error
  if errors.Is(err, gorm.ErrRecordNotFound) {
    return nil, nil
  }
  if err != nil {
    return nil, err
  }
  return &course, nil
}

func (r *courseRepo) GetBySlug(ctx context.Context, tx *gorm.DB, slug string) (*types.Course, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if slug == "" {
    return nil, nil
  }
  var course types.Course
  err := transaction.WithContext(ctx).
    Preload("Chapters", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
    Where("slug = ?", slug).
    First(&course).Error
  if errors.Is(err, gorm.ErrRecordNotFound) {
    return nil, nil
  }
  if err != nil {
    return nil, err
  }
  return &course, nil
}

func (r *courseRepo) List(ctx context.Context, tx *gorm.DB, limit, offset int) ([]*types.Course, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if limit <= 0 || limit > 100 {
    limit = 50
  }
  var results []*types.Course
  if err := transaction.WithContext(ctx).
    Order("created_at DESC").
    Limit(limit).
    Offset(offset).
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (r *courseRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
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
    Model(&types.Course{}).
    Where("id = ?", id).
    Updates(updates).Error
}
