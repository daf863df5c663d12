package repos

import (
  "context"
  "errors"

  "github.com/google/uuid"
  "gorm.io/gorm"
  "gorm.io/gorm/clause"

  "github.com/courseloom/courseloom-backend/internal/logger"
  "github.com/courseloom/courseloom-backend/internal/types"
)

type CategoryRepo interface {
  // GetOrCreateBySlug resolves the category for slug, inserting it when no row
  // with that slug exists yet. A concurrent insert losing the race falls back
  // to the surviving row.
  GetOrCreateBySlug(ctx context.Context, tx *gorm.DB, slug, name string) (*types.Category, error)
  AttachToCourse(ctx context.Context, tx *gorm.DB, courseID uuid.UUID, categoryIDs []uuid.UUID) error
  GetByCourseID(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) ([]*types.Category, error)
}

type categoryRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewCategoryRepo(db *gorm.DB, baseLog *logger.Logger) CategoryRepo {
  repoLog := baseLog.With("repo", "CategoryRepo")
  return &categoryRepo{db: db, log: repoLog}
}

func (r *categoryRepo) GetOrCreateBySlug(ctx context.Context, tx *gorm.DB, slug, name string) (*types.Category, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if slug == "" {
    return nil, errors.New("category slug required")
  }

  row := &types.Category{ID: uuid.New(), Name: name, Slug: slug}
  if err := transaction.WithContext(ctx).
    Clauses(clause.OnConflict{
      Columns:   []clause.Column{{Name: "slug"}},
      DoNothing: true,
    }).
    Create(row).Error; err != nil {
    return nil, err
  }

  var category types.Category
  if err := transaction.WithContext(ctx).
    Where("slug = ?", slug).
    First(&category).Error; err != nil {
    return nil, err
  }
  return &category, nil
}

func (r *categoryRepo) AttachToCourse(ctx context.Context, tx *gorm.DB, courseID uuid.UUID, categoryIDs []uuid.UUID) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if courseID == uuid.Nil || len(categoryIDs) == 0 {
    return nil
  }
  rows := make([]*types.CourseCategory, 0, len(categoryIDs))
  for _, cid := range categoryIDs {
    rows = append(rows, &types.CourseCategory{
      ID:         uuid.New(),
      CourseID:   courseID,
      CategoryID: cid,
    })
  }
  return transaction.WithContext(ctx).
    Clauses(clause.OnConflict{
      Columns:   []clause.Column{{Name: "course_id"}, {Name: "category_id"}},
      DoNothing: true,
    }).
    Create(&rows).Error
}

func (r *categoryRepo) GetByCourseID(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) ([]*types.Category, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  var results []*types.Category
  if courseID == uuid.Nil {
    return results, nil
  }
  if err := transaction.WithContext(ctx).
    Joins("JOIN course_category ON course_category.category_id = category.id").
    Where("course_category.course_id = ?", courseID).
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}
