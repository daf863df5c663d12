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

type ChapterRepo interface {
  // CreateIfAbsent inserts chapters keyed by (course_id, slug); rows whose key
  // already exists are left untouched.
  CreateIfAbsent(ctx context.Context, tx *gorm.DB, chapters []*types.Chapter) error
  GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Chapter, error)
  GetByCourseID(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) ([]*types.Chapter, error)
  GetWithLessons(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Chapter, error)
  FirstPendingByCourseID(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) (*types.Chapter, error)
  MaxPosition(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) (int, error)
  UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
}

type chapterRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewChapterRepo(db *gorm.DB, baseLog *logger.Logger) ChapterRepo {
  repoLog := baseLog.With("repo", "ChapterRepo")
  return &chapterRepo{db: db, log: repoLog}
}

func (r *chapterRepo) CreateIfAbsent(ctx context.Context, tx *gorm.DB, chapters []*types.Chapter) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if len(chapters) == 0 {
    return nil
  }
  return transaction.WithContext(ctx).
    Clauses(clause.OnConflict{
      Columns:   []clause.Column{{Name: "course_id"}, {Name: "slug"}},
      DoNothing: true,
    }).
    Create(&chapters).Error
}

func (r *chapterRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Chapter, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  var results []*types.Chapter
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

func (r *chapterRepo) GetByCourseID(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) ([]*types.Chapter, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  var results []*types.Chapter
  if courseID == uuid.Nil {
    return results, nil
  }
  if err := transaction.WithContext(ctx).
    Where("course_id = ?", courseID).
    Order("position ASC").
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (r *chapterRepo) GetWithLessons(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Chapter, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if id == uuid.Nil {
    return nil, nil
  }
  var chapter types.Chapter
  err := transaction.WithContext(ctx).
    Preload("Lessons", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
    Where("id = ?", id).
    First(&chapter).Error
  if errors.Is(err, gorm.ErrRecordNotFound) {
    return nil, nil
  }
  if err != nil {
    return nil, err
  }
  return &chapter, nil
}

func (r *chapterRepo) FirstPendingByCourseID(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) (*types.Chapter, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if courseID == uuid.Nil {
    return nil, nil
  }
  var chapter types.Chapter
  err := transaction.WithContext(ctx).
    Where("course_id = ? AND generation_status = ?", courseID, types.GenerationPending).
    Order("position ASC").
    First(&chapter).Error
  if errors.Is(err, gorm.ErrRecordNotFound) {
    return nil, nil
  }
  if err != nil {
    return nil, err
  }
  return &chapter, nil
}

func (r *chapterRepo) MaxPosition(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) (int, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  var maxPos *int
  err := transaction.WithContext(ctx).
    Model(&types.Chapter{}).
    Where("course_id = ?", courseID).
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

func (r *chapterRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
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
    Model(&types.Chapter{}).
    Where("id = ?", id).
    Updates(updates).Error
}
