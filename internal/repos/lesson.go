package repos

import (
  "context"
  "errors"
  "time"

  "github.com/google/uuid"
  "gorm.io/gorm"
  "gorm.io/gorm/clause"

  "github.com/courseloom/courseloom-backend/internal/logger"
  "github.com/courseloom/courseloom-backend/internal/types"
)

type LessonRepo interface {
  CreateIfAbsent(ctx context.Context, tx *gorm.DB, lessons []*types.Lesson) error
  GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Lesson, error)
  GetByChapterID(ctx context.Context, tx *gorm.DB, chapterID uuid.UUID) ([]*types.Lesson, error)
  GetWithActivities(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Lesson, error)
  FirstPendingByChapterID(ctx context.Context, tx *gorm.DB, chapterID uuid.UUID) (*types.Lesson, error)
  MaxPosition(ctx context.Context, tx *gorm.DB, chapterID uuid.UUID) (int, error)
  UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
}

type lessonRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewLessonRepo(db *gorm.DB, baseLog *logger.Logger) LessonRepo {
  repoLog := baseLog.With("repo", "LessonRepo")
  return &lessonRepo{db: db, log: repoLog}
}

func (r *lessonRepo) CreateIfAbsent(ctx context.Context, tx *gorm.DB, lessons []*types.Lesson) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if len(lessons) == 0 {
    return nil
  }
  return transaction.WithContext(ctx).
    Clauses(clause.OnConflict{
      Columns:   []clause.Column{{Name: "chapter_id"}, {Name: "slug"}},
      DoNothing: true,
    }).
    Create(&lessons).Error
}

func (r *lessonRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Lesson, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  var results []*types.Lesson
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

func (r *lessonRepo) GetByChapterID(ctx context.Context, tx *gorm.DB, chapterID uuid.UUID) ([]*types.Lesson, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  var results []*types.Lesson
  if chapterID == uuid.Nil {
    return results, nil
  }
  if err := transaction.WithContext(ctx).
    Where("chapter_id = ?", chapterID).
    Order("position ASC").
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (r *lessonRepo) GetWithActivities(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Lesson, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if id == uuid.Nil {
    return nil, nil
  }
  var lesson types.Lesson
  err := transaction.WithContext(ctx).
    Preload("Activities", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
    Where("id = ?", id).
    First(&lesson).Error
  if errors.Is(err, gorm.ErrRecordNotFound) {
    return nil, nil
  }
  if err != nil {
    return nil, err
  }
  return &lesson, nil
}

func (r *lessonRepo) FirstPendingByChapterID(ctx context.Context, tx *gorm.DB, chapterID uuid.UUID) (*types.Lesson, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if chapterID == uuid.Nil {
    return nil, nil
  }
  var lesson types.Lesson
  err := transaction.WithContext(ctx).
    Where("chapter_id = ? AND generation_status = ?", chapterID, types.GenerationPending).
    Order("position ASC").
    First(&lesson).Error
  if errors.Is(err, gorm.ErrRecordNotFound) {
    return nil, nil
  }
  if err != nil {
    return nil, err
  }
  return &lesson, nil
}

func (r *lessonRepo) MaxPosition(ctx context.Context, tx *gorm.DB, chapterID uuid.UUID) (int, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  var maxPos *int
  err := transaction.WithContext(ctx).
    Model(&types.Lesson{}).
    Where("chapter_id = ?", chapterID).
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

func (r *lessonRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
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
    Model(&types.Lesson{}).
    Where("id = ?", id).
    Updates(updates).Error
}
