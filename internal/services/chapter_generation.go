package services

import (
  "context"
  "fmt"
  "time"

  "github.com/google/uuid"
  "gorm.io/datatypes"
  "gorm.io/gorm"

  "github.com/courseloom/courseloom-backend/internal/sse"
  "github.com/courseloom/courseloom-backend/internal/types"
  "github.com/courseloom/courseloom-backend/internal/utils"
)

type chapterArtifacts struct {
  description string
  lessons     []OutlineItem
}

func (gs *generationService) GenerateChapter(ctx context.Context, chapterID uuid.UUID) (*types.Chapter, error) {
  log := gs.log.With("workflow", "chapter", "chapter_id", chapterID)
  runner := &stepRunner{notify: gs.notifier, channel: chapterID.String()}

  var chapter *types.Chapter
  var course *types.Course
  if err := runner.runStep(ctx, "lookup", func(ctx context.Context) error {
    chapters, err := gs.chapterRepo.GetByIDs(ctx, nil, []uuid.UUID{chapterID})
    if err != nil {
      return fmt.Errorf("load chapter: %w", err)
    }
    if len(chapters) == 0 || chapters[0] == nil {
      return fmt.Errorf("chapter %s: %w", chapterID, ErrNotFound)
    }
    chapter = chapters[0]

    courses, err := gs.courseRepo.GetByIDs(ctx, nil, []uuid.UUID{chapter.CourseID})
    if err != nil {
      return fmt.Errorf("load parent course: %w", err)
    }
    if len(courses) == 0 || courses[0] == nil {
      return fmt.Errorf("course %s: %w", chapter.CourseID, ErrNotFound)
    }
    course = courses[0]
    return nil
  }); err != nil {
    return nil, err
  }

  if chapter.GenerationStatus == types.GenerationRunning || chapter.GenerationStatus == types.GenerationCompleted {
    log.Info("Chapter already claimed, skipping", "status", chapter.GenerationStatus)
    return chapter, nil
  }

  runID := uuid.New()
  if err := runner.runStep(ctx, "claim", func(ctx context.Context) error {
    if err := gs.chapterRepo.UpdateFields(ctx, nil, chapterID, map[string]interface{}{
      "generation_status": types.GenerationRunning,
      "generation_run_id": runID,
    }); err != nil {
      return wrapPersistence(fmt.Errorf("mark chapter running: %w", err))
    }
    chapter.GenerationStatus = types.GenerationRunning
    chapter.GenerationRunID = &runID
    return nil
  }); err != nil {
    return nil, err
  }

  log = log.With("course_id", course.ID, "run_id", runID)
  log.Info("Chapter generation run started")

  if err := gs.runChapterBody(ctx, runner, course, chapter); err != nil {
    log.Error("Chapter generation run failed", "error", err)
    // The parent course keeps its own status; only this chapter fails.
    if uerr := gs.chapterRepo.UpdateFields(ctx, nil, chapterID, map[string]interface{}{
      "generation_status": types.GenerationFailed,
    }); uerr != nil {
      log.Warn("Failed to mark chapter failed", "error", uerr)
    } else {
      chapter.GenerationStatus = types.GenerationFailed
    }
    return nil, err
  }

  log.Info("Chapter generation run completed")
  gs.notifier.EntityUpdated(ctx, course.ID.String(), sse.SSEEventCourseUpdated, course)

  if next, err := gs.lessonRepo.FirstPendingByChapterID(ctx, nil, chapterID); err != nil {
    log.Warn("Failed to look up next pending lesson", "error", err)
  } else if next != nil {
    gs.spawnLesson(next.ID)
  }
  return chapter, nil
}

func (gs *generationService) runChapterBody(ctx context.Context, runner *stepRunner, course *types.Course, chapter *types.Chapter) error {
  var snap ChapterContentSnapshot
  if err := runner.runStep(ctx, "probe", func(ctx context.Context) error {
    var err error
    snap, err = gs.prober.ProbeChapter(ctx, chapter)
    return err
  }); err != nil {
    return err
  }

  art := &chapterArtifacts{}
  generate := []workflowStep{
    {name: "generate_description", skip: snap.HasDescription, run: func(ctx context.Context) error {
      desc, err := gs.gen.ChapterDescription(ctx, course.Title, chapter.Title, course.Language)
      if err != nil {
        return err
      }
      art.description = desc
      return nil
    }},
    {name: "generate_lesson_outline", skip: snap.HasLessons, run: func(ctx context.Context) error {
      outline, err := gs.gen.LessonOutline(ctx, course.Title, chapter.Title, course.Language, gs.cfg.LessonCount)
      if err != nil {
        return err
      }
      art.lessons = outline
      return nil
    }},
  }
  if err := runner.fanOut(ctx, generate); err != nil {
    return err
  }

  persist := []workflowStep{
    {name: "persist_chapter", skip: art.description == "", run: func(ctx context.Context) error {
      if err := gs.chapterRepo.UpdateFields(ctx, nil, chapter.ID, map[string]interface{}{
        "description": art.description,
      }); err != nil {
        return wrapPersistence(fmt.Errorf("update chapter description: %w", err))
      }
      chapter.Description = art.description
      return nil
    }},
    {name: "persist_lessons", skip: snap.HasLessons, run: func(ctx context.Context) error {
      return wrapPersistence(gs.persistLessons(ctx, chapter.ID, art.lessons))
    }},
  }
  if err := runner.fanOut(ctx, persist); err != nil {
    return err
  }

  return runner.runStep(ctx, "finalize", func(ctx context.Context) error {
    if err := gs.chapterRepo.UpdateFields(ctx, nil, chapter.ID, map[string]interface{}{
      "generation_status": types.GenerationCompleted,
    }); err != nil {
      return wrapPersistence(fmt.Errorf("mark chapter completed: %w", err))
    }
    chapter.GenerationStatus = types.GenerationCompleted
    return nil
  })
}

func (gs *generationService) persistLessons(ctx context.Context, chapterID uuid.UUID, outline []OutlineItem) error {
  if len(outline) == 0 {
    return nil
  }
  return gs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
    existing, err := gs.lessonRepo.GetByChapterID(ctx, tx, chapterID)
    if err != nil {
      return fmt.Errorf("load existing lessons: %w", err)
    }
    taken := map[string]bool{}
    for _, l := range existing {
      taken[l.Slug] = true
    }
    maxPos, err := gs.lessonRepo.MaxPosition(ctx, tx, chapterID)
    if err != nil {
      return fmt.Errorf("max lesson position: %w", err)
    }

    now := time.Now()
    next := maxPos + 1
    rows := make([]*types.Lesson, 0, len(outline))
    for _, item := range outline {
      slug := utils.Slugify(item.Title)
      if slug == "" || taken[slug] {
        continue
      }
      taken[slug] = true
      rows = append(rows, &types.Lesson{
        ID:               uuid.New(),
        ChapterID:        chapterID,
        Slug:             slug,
        Position:         next,
        Title:            item.Title,
        Description:      item.Description,
        GenerationStatus: types.GenerationPending,
        Metadata:         datatypes.JSON([]byte(`{}`)),
        CreatedAt:        now,
        UpdatedAt:        now,
      })
      next++
    }
    return gs.lessonRepo.CreateIfAbsent(ctx, tx, rows)
  })
}
