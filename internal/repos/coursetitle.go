package repos

import (
  "context"

  "github.com/google/uuid"
  "gorm.io/gorm"
  "gorm.io/gorm/clause"

  "github.com/courseloom/courseloom-backend/internal/logger"
  "github.com/courseloom/courseloom-backend/internal/types"
)

type CourseTitleRepo interface {
  CreateIfAbsent(ctx context.Context, tx *gorm.DB, titles []*types.CourseTitle) error
  GetByCourseID(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) ([]*types.CourseTitle, error)
}

type courseTitleRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewCourseTitleRepo(db *gorm.DB, baseLog *logger.Logger) CourseTitleRepo {
  repoLog := baseLog.With("repo", "CourseTitleRepo")
  return &courseTitleRepo{db: db, log: repoLog}
}

func (r *courseTitleRepo) CreateIfAbsent(ctx context.Context, tx *gorm.DB, titles []*types.CourseTitle) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if len(titles) == 0 {
    return nil
  }
  return transaction.WithContext(ctx).
    Clauses(clause.OnConflict{
      Columns:   []clause.Column{{Name: "course_id"}, {Name: "slug"}},
      DoNothing: true,
    }).
    Create(&titles).Error
}

func (r *courseTitleRepo) GetByCourseID(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) ([]*types.CourseTitle, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  var results []*types.CourseTitle
  if courseID == uuid.Nil {
    return results, nil
  }
  if err := transaction.WithContext(ctx).
    Where("course_id = ?", courseID).
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}
