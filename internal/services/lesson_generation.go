package services

import (
  "context"
  "encoding/json"
  "fmt"
  "time"

  "github.com/google/uuid"
  "gorm.io/datatypes"
  "gorm.io/gorm"

  "github.com/courseloom/courseloom-backend/internal/sse"
  "github.com/courseloom/courseloom-backend/internal/types"
  "github.com/courseloom/courseloom-backend/internal/utils"
)

type lessonArtifacts struct {
  description string
  activities  []ActivityDraft
}

func (gs *generationService) GenerateLesson(ctx context.Context, lessonID uuid.UUID) (*types.Lesson, error) {
  log := gs.log.With("workflow", "lesson", "lesson_id", lessonID)
  runner := &stepRunner{notify: gs.notifier, channel: lessonID.String()}

  var lesson *types.Lesson
  var chapter *types.Chapter
  var course *types.Course
  if err := runner.runStep(ctx, "lookup", func(ctx context.Context) error {
    lessons, err := gs.lessonRepo.GetByIDs(ctx, nil, []uuid.UUID{lessonID})
    if err != nil {
      return fmt.Errorf("load lesson: %w", err)
    }
    if len(lessons) == 0 || lessons[0] == nil {
      return fmt.Errorf("lesson %s: %w", lessonID, ErrNotFound)
    }
    lesson = lessons[0]

    chapters, err := gs.chapterRepo.GetByIDs(ctx, nil, []uuid.UUID{lesson.ChapterID})
    if err != nil {
      return fmt.Errorf("load parent chapter: %w", err)
    }
    if len(chapters) == 0 || chapters[0] == nil {
      return fmt.Errorf("chapter %s: %w", lesson.ChapterID, ErrNotFound)
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

  if lesson.GenerationStatus == types.GenerationRunning || lesson.GenerationStatus == types.GenerationCompleted {
    log.Info("Lesson already claimed, skipping", "status", lesson.GenerationStatus)
    return lesson, nil
  }

  runID := uuid.New()
  if err := runner.runStep(ctx, "claim", func(ctx context.Context) error {
    if err := gs.lessonRepo.UpdateFields(ctx, nil, lessonID, map[string]interface{}{
      "generation_status": types.GenerationRunning,
      "generation_run_id": runID,
    }); err != nil {
      return wrapPersistence(fmt.Errorf("mark lesson running: %w", err))
    }
    lesson.GenerationStatus = types.GenerationRunning
    lesson.GenerationRunID = &runID
    return nil
  }); err != nil {
    return nil, err
  }

  log = log.With("chapter_id", chapter.ID, "run_id", runID)
  log.Info("Lesson generation run started")

  if err := gs.runLessonBody(ctx, runner, course, chapter, lesson); err != nil {
    log.Error("Lesson generation run failed", "error", err)
    // Containment: the parent chapter keeps its own status.
    if uerr := gs.lessonRepo.UpdateFields(ctx, nil, lessonID, map[string]interface{}{
      "generation_status": types.GenerationFailed,
    }); uerr != nil {
      log.Warn("Failed to mark lesson failed", "error", uerr)
    } else {
      lesson.GenerationStatus = types.GenerationFailed
    }
    return nil, err
  }

  log.Info("Lesson generation run completed")
  gs.notifier.EntityUpdated(ctx, course.ID.String(), sse.SSEEventCourseUpdated, course)
  return lesson, nil
}

func (gs *generationService) runLessonBody(ctx context.Context, runner *stepRunner, course *types.Course, chapter *types.Chapter, lesson *types.Lesson) error {
  var snap LessonContentSnapshot
  if err := runner.runStep(ctx, "probe", func(ctx context.Context) error {
    var err error
    snap, err = gs.prober.ProbeLesson(ctx, lesson)
    return err
  }); err != nil {
    return err
  }

  art := &lessonArtifacts{}
  generate := []workflowStep{
    {name: "generate_description", skip: snap.HasDescription, run: func(ctx context.Context) error {
      desc, err := gs.gen.LessonDescription(ctx, course.Title, chapter.Title, lesson.Title, course.Language)
      if err != nil {
        return err
      }
      art.description = desc
      return nil
    }},
    {name: "generate_activities", skip: snap.HasActivities, run: func(ctx context.Context) error {
      activities, err := gs.gen.Activities(ctx, course.Title, chapter.Title, lesson.Title, course.Language, gs.cfg.ActivityCount)
      if err != nil {
        return err
      }
      art.activities = activities
      return nil
    }},
  }
  if err := runner.fanOut(ctx, generate); err != nil {
    return err
  }

  persist := []workflowStep{
    {name: "persist_lesson", skip: art.description == "", run: func(ctx context.Context) error {
      if err := gs.lessonRepo.UpdateFields(ctx, nil, lesson.ID, map[string]interface{}{
        "description": art.description,
      }); err != nil {
        return wrapPersistence(fmt.Errorf("update lesson description: %w", err))
      }
      lesson.Description = art.description
      return nil
    }},
    {name: "persist_activities", skip: snap.HasActivities, run: func(ctx context.Context) error {
      return wrapPersistence(gs.persistActivities(ctx, lesson, art.activities))
    }},
  }
  if err := runner.fanOut(ctx, persist); err != nil {
    return err
  }

  return runner.runStep(ctx, "finalize", func(ctx context.Context) error {
    if err := gs.lessonRepo.UpdateFields(ctx, nil, lesson.ID, map[string]interface{}{
      "generation_status": types.GenerationCompleted,
    }); err != nil {
      return wrapPersistence(fmt.Errorf("mark lesson completed: %w", err))
    }
    lesson.GenerationStatus = types.GenerationCompleted
    return nil
  })
}

func (gs *generationService) persistActivities(ctx context.Context, lesson *types.Lesson, drafts []ActivityDraft) error {
  if len(drafts) == 0 {
    return nil
  }
  return gs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
    existing, err := gs.activityRepo.GetByLessonID(ctx, tx, lesson.ID)
    if err != nil {
      return fmt.Errorf("load existing activities: %w", err)
    }
    taken := map[string]bool{}
    for _, a := range existing {
      taken[a.Slug] = true
    }
    maxPos, err := gs.activityRepo.MaxPosition(ctx, tx, lesson.ID)
    if err != nil {
      return fmt.Errorf("max activity position: %w", err)
    }

    now := time.Now()
    next := maxPos + 1
    runID := lesson.GenerationRunID
    rows := make([]*types.Activity, 0, len(drafts))
    for _, draft := range drafts {
      slug := utils.Slugify(draft.Title)
      if slug == "" || taken[slug] {
        continue
      }
      taken[slug] = true

      kind := draft.Kind
      if kind != types.ActivityKindReading && kind != types.ActivityKindQuiz {
        kind = types.ActivityKindReading
      }
      body, err := json.Marshal(draft.Body)
      if err != nil {
        return fmt.Errorf("activity %q body: %w", draft.Title, err)
      }

      rows = append(rows, &types.Activity{
        ID:               uuid.New(),
        LessonID:         lesson.ID,
        Slug:             slug,
        Position:         next,
        Title:            draft.Title,
        Kind:             kind,
        Body:             datatypes.JSON(body),
        IsPublished:      true,
        GenerationStatus: types.GenerationCompleted,
        GenerationRunID:  runID,
        CreatedAt:        now,
        UpdatedAt:        now,
      })
      next++
    }
    return gs.activityRepo.CreateIfAbsent(ctx, tx, rows)
  })
}
