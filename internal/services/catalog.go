package services

import (
  "context"
  "fmt"

  "github.com/google/uuid"
  "gorm.io/gorm"

  "github.com/courseloom/courseloom-backend/internal/logger"
  "github.com/courseloom/courseloom-backend/internal/repos"
  "github.com/courseloom/courseloom-backend/internal/types"
)

// CourseDetail is a course with the extras the catalog endpoints return.
type CourseDetail struct {
  Course            *types.Course        `json:"course"`
  AlternativeTitles []*types.CourseTitle `json:"alternative_titles"`
  Categories        []*types.Category    `json:"categories"`
}

// LessonGeneration is one lesson's generation state in a course rollup.
type LessonGeneration struct {
  ID               uuid.UUID `json:"id"`
  Title            string    `json:"title"`
  Position         int       `json:"position"`
  GenerationStatus string    `json:"generation_status"`
}

// ChapterGeneration is one chapter's generation state plus its lessons'.
type ChapterGeneration struct {
  ID               uuid.UUID          `json:"id"`
  Title            string             `json:"title"`
  Position         int                `json:"position"`
  GenerationStatus string             `json:"generation_status"`
  Lessons          []LessonGeneration `json:"lessons"`
}

// CourseGeneration is the generation-progress view of a whole course tree.
type CourseGeneration struct {
  CourseID         uuid.UUID           `json:"course_id"`
  Slug             string              `json:"slug"`
  GenerationStatus string              `json:"generation_status"`
  GenerationRunID  *uuid.UUID          `json:"generation_run_id,omitempty"`
  Chapters         []ChapterGeneration `json:"chapters"`
}

// CatalogService serves read access to generated content.
type CatalogService interface {
  ListCourses(ctx context.Context, limit, offset int) ([]*types.Course, error)
  GetCourseBySlug(ctx context.Context, slug string) (*CourseDetail, error)
  GetCourseGeneration(ctx context.Context, slug string) (*CourseGeneration, error)
  GetChapter(ctx context.Context, id uuid.UUID) (*types.Chapter, error)
  GetLesson(ctx context.Context, id uuid.UUID) (*types.Lesson, error)
}

type catalogService struct {
  db           *gorm.DB
  log          *logger.Logger
  courseRepo   repos.CourseRepo
  titleRepo    repos.CourseTitleRepo
  categoryRepo repos.CategoryRepo
  chapterRepo  repos.ChapterRepo
  lessonRepo   repos.LessonRepo
}

func NewCatalogService(
  db *gorm.DB,
  baseLog *logger.Logger,
  courseRepo repos.CourseRepo,
  titleRepo repos.CourseTitleRepo,
  categoryRepo repos.CategoryRepo,
  chapterRepo repos.ChapterRepo,
  lessonRepo repos.LessonRepo,
) CatalogService {
  return &catalogService{
    db:           db,
    log:          baseLog.With("service", "CatalogService"),
    courseRepo:   courseRepo,
    titleRepo:    titleRepo,
    categoryRepo: categoryRepo,
    chapterRepo:  chapterRepo,
    lessonRepo:   lessonRepo,
  }
}

func (cs *catalogService) ListCourses(ctx context.Context, limit, offset int) ([]*types.Course, error) {
  if limit <= 0 || limit > 100 {
    limit = 20
  }
  if offset < 0 {
    offset = 0
  }
  return cs.courseRepo.List(ctx, nil, limit, offset)
}

func (cs *catalogService) GetCourseBySlug(ctx context.Context, slug string) (*CourseDetail, error) {
  course, err := cs.courseRepo.GetBySlug(ctx, nil, slug)
  if err != nil {
    return nil, fmt.Errorf("load course: %w", err)
  }
  if course == nil {
    return nil, fmt.Errorf("course %q: %w", slug, ErrNotFound)
  }

  titles, err := cs.titleRepo.GetByCourseID(ctx, nil, course.ID)
  if err != nil {
    return nil, fmt.Errorf("load alternative titles: %w", err)
  }
  categories, err := cs.categoryRepo.GetByCourseID(ctx, nil, course.ID)
  if err != nil {
    return nil, fmt.Errorf("load categories: %w", err)
  }

  return &CourseDetail{
    Course:            course,
    AlternativeTitles: titles,
    Categories:        categories,
  }, nil
}

func (cs *catalogService) GetCourseGeneration(ctx context.Context, slug string) (*CourseGeneration, error) {
  course, err := cs.courseRepo.GetBySlug(ctx, nil, slug)
  if err != nil {
    return nil, fmt.Errorf("load course: %w", err)
  }
  if course == nil {
    return nil, fmt.Errorf("course %q: %w", slug, ErrNotFound)
  }

  chapters, err := cs.chapterRepo.GetByCourseID(ctx, nil, course.ID)
  if err != nil {
    return nil, fmt.Errorf("load chapters: %w", err)
  }

  out := &CourseGeneration{
    CourseID:         course.ID,
    Slug:             course.Slug,
    GenerationStatus: course.GenerationStatus,
    GenerationRunID:  course.GenerationRunID,
    Chapters:         make([]ChapterGeneration, 0, len(chapters)),
  }
  for _, chapter := range chapters {
    lessons, err := cs.lessonRepo.GetByChapterID(ctx, nil, chapter.ID)
    if err != nil {
      return nil, fmt.Errorf("load lessons for chapter %s: %w", chapter.ID, err)
    }
    cg := ChapterGeneration{
      ID:               chapter.ID,
      Title:            chapter.Title,
      Position:         chapter.Position,
      GenerationStatus: chapter.GenerationStatus,
      Lessons:          make([]LessonGeneration, 0, len(lessons)),
    }
    for _, lesson := range lessons {
      cg.Lessons = append(cg.Lessons, LessonGeneration{
        ID:               lesson.ID,
        Title:            lesson.Title,
        Position:         lesson.Position,
        GenerationStatus: lesson.GenerationStatus,
      })
    }
    out.Chapters = append(out.Chapters, cg)
  }
  return out, nil
}

func (cs *catalogService) GetChapter(ctx context.Context, id uuid.UUID) (*types.Chapter, error) {
  chapter, err := cs.chapterRepo.GetWithLessons(ctx, nil, id)
  if err != nil {
    return nil, fmt.Errorf("load chapter: %w", err)
  }
  if chapter == nil {
    return nil, fmt.Errorf("chapter %s: %w", id, ErrNotFound)
  }
  return chapter, nil
}

func (cs *catalogService) GetLesson(ctx context.Context, id uuid.UUID) (*types.Lesson, error) {
  lesson, err := cs.lessonRepo.GetWithActivities(ctx, nil, id)
  if err != nil {
    return nil, fmt.Errorf("load lesson: %w", err)
  }
  if lesson == nil {
    return nil, fmt.Errorf("lesson %s: %w", id, ErrNotFound)
  }
  return lesson, nil
}
