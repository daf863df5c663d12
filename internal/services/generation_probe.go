package services

import (
  "context"
  "fmt"

  "github.com/courseloom/courseloom-backend/internal/logger"
  "github.com/courseloom/courseloom-backend/internal/repos"
  "github.com/courseloom/courseloom-backend/internal/types"
)

// CourseContentSnapshot records which artifacts a course already has. Taken
// fresh at the start of every run; never cached across runs.
type CourseContentSnapshot struct {
  HasDescription       bool
  HasImage             bool
  HasAlternativeTitles bool
  HasCategories        bool
  HasChapters          bool
}

type ChapterContentSnapshot struct {
  HasDescription bool
  HasLessons     bool
}

type LessonContentSnapshot struct {
  HasDescription bool
  HasActivities  bool
}

// ContentProber reads what already exists for an entity so a resumed run can
// skip the steps a previous run finished. Probes never write.
type ContentProber interface {
  ProbeCourse(ctx context.Context, course *types.Course) (CourseContentSnapshot, error)
  ProbeChapter(ctx context.Context, chapter *types.Chapter) (ChapterContentSnapshot, error)
  ProbeLesson(ctx context.Context, lesson *types.Lesson) (LessonContentSnapshot, error)
}

type contentProber struct {
  log          *logger.Logger
  titleRepo    repos.CourseTitleRepo
  categoryRepo repos.CategoryRepo
  chapterRepo  repos.ChapterRepo
  lessonRepo   repos.LessonRepo
  activityRepo repos.ActivityRepo
}

func NewContentProber(
  log *logger.Logger,
  titleRepo repos.CourseTitleRepo,
  categoryRepo repos.CategoryRepo,
  chapterRepo repos.ChapterRepo,
  lessonRepo repos.LessonRepo,
  activityRepo repos.ActivityRepo,
) ContentProber {
  return &contentProber{
    log:          log.With("service", "ContentProber"),
    titleRepo:    titleRepo,
    categoryRepo: categoryRepo,
    chapterRepo:  chapterRepo,
    lessonRepo:   lessonRepo,
    activityRepo: activityRepo,
  }
}

func (p *contentProber) ProbeCourse(ctx context.Context, course *types.Course) (CourseContentSnapshot, error) {
  snap := CourseContentSnapshot{
    HasDescription: course.Description != "",
    HasImage:       course.ImageURL != "",
  }

  titles, err := p.titleRepo.GetByCourseID(ctx, nil, course.ID)
  if err != nil {
    return snap, fmt.Errorf("probe course titles: %w", err)
  }
  snap.HasAlternativeTitles = len(titles) > 0

  categories, err := p.categoryRepo.GetByCourseID(ctx, nil, course.ID)
  if err != nil {
    return snap, fmt.Errorf("probe course categories: %w", err)
  }
  snap.HasCategories = len(categories) > 0

  chapters, err := p.chapterRepo.GetByCourseID(ctx, nil, course.ID)
  if err != nil {
    return snap, fmt.Errorf("probe course chapters: %w", err)
  }
  snap.HasChapters = len(chapters) > 0

  return snap, nil
}

func (p *contentProber) ProbeChapter(ctx context.Context, chapter *types.Chapter) (ChapterContentSnapshot, error) {
  snap := ChapterContentSnapshot{
    HasDescription: chapter.Description != "",
  }

  lessons, err := p.lessonRepo.GetByChapterID(ctx, nil, chapter.ID)
  if err != nil {
    return snap, fmt.Errorf("probe chapter lessons: %w", err)
  }
  snap.HasLessons = len(lessons) > 0

  return snap, nil
}

func (p *contentProber) ProbeLesson(ctx context.Context, lesson *types.Lesson) (LessonContentSnapshot, error) {
  snap := LessonContentSnapshot{
    HasDescription: lesson.Description != "",
  }

  activities, err := p.activityRepo.GetByLessonID(ctx, nil, lesson.ID)
  if err != nil {
    return snap, fmt.Errorf("probe lesson activities: %w", err)
  }
  snap.HasActivities = len(activities) > 0

  return snap, nil
}
