package services

import (
  "bytes"
  "context"
  "fmt"
  "time"

  "github.com/google/uuid"
  "gorm.io/datatypes"
  "gorm.io/gorm"

  "github.com/courseloom/courseloom-backend/internal/logger"
  "github.com/courseloom/courseloom-backend/internal/repos"
  "github.com/courseloom/courseloom-backend/internal/sse"
  "github.com/courseloom/courseloom-backend/internal/types"
  "github.com/courseloom/courseloom-backend/internal/utils"
)

// GenerationService runs the content generation workflows. Each Generate
// call is one run: it claims the entity, probes what already exists, fans
// out the missing work, persists, and marks the entity completed or failed.
// Re-triggering a completed or running entity is a no-op.
type GenerationService interface {
  GenerateCourse(ctx context.Context, suggestionID uuid.UUID) (*types.Course, error)
  GenerateChapter(ctx context.Context, chapterID uuid.UUID) (*types.Chapter, error)
  GenerateLesson(ctx context.Context, lessonID uuid.UUID) (*types.Lesson, error)
}

type generationService struct {
  db       *gorm.DB
  log      *logger.Logger
  cfg      GenerationConfig
  notifier GenerationNotifier
  prober   ContentProber
  gen      ContentGenerator
  covers   CoverService
  bucket   BucketService

  suggestionRepo repos.CourseSuggestionRepo
  courseRepo     repos.CourseRepo
  titleRepo      repos.CourseTitleRepo
  categoryRepo   repos.CategoryRepo
  chapterRepo    repos.ChapterRepo
  lessonRepo     repos.LessonRepo
  activityRepo   repos.ActivityRepo

  // spawnChapter/spawnLesson dispatch nested runs after a parent completes.
  // The parent never waits on them and never observes their outcome.
  spawnChapter func(chapterID uuid.UUID)
  spawnLesson  func(lessonID uuid.UUID)
}

// NewGenerationService wires the workflow engine. covers and bucket may be
// nil; cover image generation then degrades to no image.
func NewGenerationService(
  db *gorm.DB,
  baseLog *logger.Logger,
  cfg GenerationConfig,
  notifier GenerationNotifier,
  prober ContentProber,
  gen ContentGenerator,
  covers CoverService,
  bucket BucketService,
  suggestionRepo repos.CourseSuggestionRepo,
  courseRepo repos.CourseRepo,
  titleRepo repos.CourseTitleRepo,
  categoryRepo repos.CategoryRepo,
  chapterRepo repos.ChapterRepo,
  lessonRepo repos.LessonRepo,
  activityRepo repos.ActivityRepo,
) GenerationService {
  svc := &generationService{
    db:             db,
    log:            baseLog.With("service", "GenerationService"),
    cfg:            cfg,
    notifier:       notifier,
    prober:         prober,
    gen:            gen,
    covers:         covers,
    bucket:         bucket,
    suggestionRepo: suggestionRepo,
    courseRepo:     courseRepo,
    titleRepo:      titleRepo,
    categoryRepo:   categoryRepo,
    chapterRepo:    chapterRepo,
    lessonRepo:     lessonRepo,
    activityRepo:   activityRepo,
  }
  svc.spawnChapter = func(chapterID uuid.UUID) {
    go func() {
      if _, err := svc.GenerateChapter(context.Background(), chapterID); err != nil {
        svc.log.Warn("Nested chapter generation failed", "chapter_id", chapterID, "error", err)
      }
    }()
  }
  svc.spawnLesson = func(lessonID uuid.UUID) {
    go func() {
      if _, err := svc.GenerateLesson(context.Background(), lessonID); err != nil {
        svc.log.Warn("Nested lesson generation failed", "lesson_id", lessonID, "error", err)
      }
    }()
  }
  return svc
}

// courseArtifacts collects generated course content between the generation
// fan-out and the persistence fan-out. Each field is written by exactly one
// step goroutine; the errgroup join orders writes before reads.
type courseArtifacts struct {
  description string
  imageURL    string
  titles      []string
  categories  []string
  chapters    []OutlineItem
}

func (gs *generationService) GenerateCourse(ctx context.Context, suggestionID uuid.UUID) (*types.Course, error) {
  log := gs.log.With("workflow", "course", "suggestion_id", suggestionID)
  runner := &stepRunner{notify: gs.notifier, channel: suggestionID.String()}

  var suggestion *types.CourseSuggestion
  var course *types.Course
  if err := runner.runStep(ctx, "lookup", func(ctx context.Context) error {
    suggestions, err := gs.suggestionRepo.GetByIDs(ctx, nil, []uuid.UUID{suggestionID})
    if err != nil {
      return fmt.Errorf("load suggestion: %w", err)
    }
    if len(suggestions) == 0 || suggestions[0] == nil {
      return fmt.Errorf("suggestion %s: %w", suggestionID, ErrNotFound)
    }
    suggestion = suggestions[0]
    course, err = gs.courseRepo.GetBySuggestionID(ctx, nil, suggestionID)
    if err != nil {
      return fmt.Errorf("load course: %w", err)
    }
    return nil
  }); err != nil {
    return nil, err
  }

  // Guard: a suggestion already being worked or already done is left alone.
  if suggestion.Status == types.GenerationRunning || suggestion.Status == types.GenerationCompleted {
    log.Info("Suggestion already claimed, skipping", "status", suggestion.Status)
    return course, nil
  }
  if course != nil && (course.GenerationStatus == types.GenerationRunning || course.GenerationStatus == types.GenerationCompleted) {
    log.Info("Course already claimed, skipping", "status", course.GenerationStatus)
    return course, nil
  }

  runID := uuid.New()
  if err := runner.runStep(ctx, "claim", func(ctx context.Context) error {
    return wrapPersistence(gs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
      if course == nil {
        now := time.Now()
        course = &types.Course{
          ID:               uuid.New(),
          SuggestionID:     suggestionID,
          Title:            suggestion.Topic,
          Slug:             utils.Slugify(suggestion.Topic),
          Language:         suggestion.Language,
          GenerationStatus: types.GenerationRunning,
          GenerationRunID:  &runID,
          Metadata:         datatypes.JSON([]byte(`{}`)),
          CreatedAt:        now,
          UpdatedAt:        now,
        }
        if _, err := gs.courseRepo.Create(ctx, tx, []*types.Course{course}); err != nil {
          return fmt.Errorf("create course: %w", err)
        }
      } else {
        if err := gs.courseRepo.UpdateFields(ctx, tx, course.ID, map[string]interface{}{
          "generation_status": types.GenerationRunning,
          "generation_run_id": runID,
        }); err != nil {
          return fmt.Errorf("mark course running: %w", err)
        }
        course.GenerationStatus = types.GenerationRunning
        course.GenerationRunID = &runID
      }
      if err := gs.suggestionRepo.UpdateFields(ctx, tx, suggestionID, map[string]interface{}{
        "status": types.GenerationRunning,
      }); err != nil {
        return fmt.Errorf("mark suggestion running: %w", err)
      }
      return nil
    }))
  }); err != nil {
    return nil, err
  }
  suggestion.Status = types.GenerationRunning
  gs.notifier.EntityUpdated(ctx, runner.channel, sse.SSEEventSuggestionUpdated, suggestion)

  log = log.With("course_id", course.ID, "run_id", runID)
  log.Info("Course generation run started")

  if err := gs.runCourseBody(ctx, runner, course); err != nil {
    log.Error("Course generation run failed", "error", err)
    gs.failCourse(ctx, course, suggestionID)
    return nil, err
  }

  log.Info("Course generation run completed")
  gs.notifier.EntityUpdated(ctx, runner.channel, sse.SSEEventCourseUpdated, course)

  if next, err := gs.chapterRepo.FirstPendingByCourseID(ctx, nil, course.ID); err != nil {
    log.Warn("Failed to look up next pending chapter", "error", err)
  } else if next != nil {
    gs.spawnChapter(next.ID)
  }
  return course, nil
}

func (gs *generationService) runCourseBody(ctx context.Context, runner *stepRunner, course *types.Course) error {
  var snap CourseContentSnapshot
  if err := runner.runStep(ctx, "probe", func(ctx context.Context) error {
    var err error
    snap, err = gs.prober.ProbeCourse(ctx, course)
    return err
  }); err != nil {
    return err
  }

  art := &courseArtifacts{}
  generate := []workflowStep{
    {name: "generate_description", skip: snap.HasDescription, run: func(ctx context.Context) error {
      desc, err := gs.gen.CourseDescription(ctx, course.Title, course.Language)
      if err != nil {
        return err
      }
      art.description = desc
      return nil
    }},
    {name: "generate_cover_image", skip: snap.HasImage, run: gs.coverImageStep(course, art)},
    {name: "generate_alternative_titles", skip: snap.HasAlternativeTitles, run: func(ctx context.Context) error {
      titles, err := gs.gen.AlternativeTitles(ctx, course.Title, course.Language, gs.cfg.AlternativeTitleCount)
      if err != nil {
        return err
      }
      art.titles = titles
      return nil
    }},
    {name: "generate_categories", skip: snap.HasCategories, run: func(ctx context.Context) error {
      categories, err := gs.gen.Categories(ctx, course.Title, course.Language, gs.cfg.CategoryCount)
      if err != nil {
        return err
      }
      art.categories = categories
      return nil
    }},
    {name: "generate_chapter_outline", skip: snap.HasChapters, run: func(ctx context.Context) error {
      outline, err := gs.gen.ChapterOutline(ctx, course.Title, course.Language, gs.cfg.ChapterCount)
      if err != nil {
        return err
      }
      art.chapters = outline
      return nil
    }},
  }
  if err := runner.fanOut(ctx, generate); err != nil {
    return err
  }

  persist := []workflowStep{
    {name: "persist_course", run: func(ctx context.Context) error {
      return wrapPersistence(gs.persistCourseMeta(ctx, course, art))
    }},
    {name: "persist_alternative_titles", skip: snap.HasAlternativeTitles, run: func(ctx context.Context) error {
      return wrapPersistence(gs.persistAlternativeTitles(ctx, course.ID, art.titles))
    }},
    {name: "persist_categories", skip: snap.HasCategories, run: func(ctx context.Context) error {
      return wrapPersistence(gs.persistCategories(ctx, course.ID, art.categories))
    }},
    {name: "persist_chapters", skip: snap.HasChapters, run: func(ctx context.Context) error {
      return wrapPersistence(gs.persistChapters(ctx, course.ID, art.chapters))
    }},
  }
  if err := runner.fanOut(ctx, persist); err != nil {
    return err
  }

  return runner.runStep(ctx, "finalize", func(ctx context.Context) error {
    return wrapPersistence(gs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
      if err := gs.courseRepo.UpdateFields(ctx, tx, course.ID, map[string]interface{}{
        "generation_status": types.GenerationCompleted,
      }); err != nil {
        return fmt.Errorf("mark course completed: %w", err)
      }
      if err := gs.suggestionRepo.UpdateFields(ctx, tx, course.SuggestionID, map[string]interface{}{
        "status": types.GenerationCompleted,
      }); err != nil {
        return fmt.Errorf("mark suggestion completed: %w", err)
      }
      course.GenerationStatus = types.GenerationCompleted
      return nil
    }))
  })
}

// coverImageStep is the one non-critical step of the course workflow. Any
// failure falls back to a rendered placeholder, and any failure after that
// resolves to no image at all; the step itself never errors.
func (gs *generationService) coverImageStep(course *types.Course, art *courseArtifacts) stepFunc {
  return func(ctx context.Context) error {
    var buf bytes.Buffer
    raw, err := gs.gen.CoverImage(ctx, course.Title)
    if err == nil && gs.covers != nil {
      buf, err = gs.covers.ProcessGeneratedCover(raw)
    }
    if err != nil || gs.covers == nil {
      if err != nil {
        gs.log.Warn("Cover generation failed, rendering placeholder", "course_id", course.ID, "error", err)
      }
      if gs.covers == nil {
        return nil
      }
      buf, err = gs.covers.RenderPlaceholderCover(course.Title)
      if err != nil {
        gs.log.Warn("Placeholder cover failed, continuing without image", "course_id", course.ID, "error", err)
        return nil
      }
    }
    if gs.bucket == nil {
      return nil
    }
    key := fmt.Sprintf("course_cover/%s/%d.png", course.ID, time.Now().UnixNano())
    if err := gs.bucket.UploadFile(ctx, key, bytes.NewReader(buf.Bytes())); err != nil {
      gs.log.Warn("Cover upload failed, continuing without image", "course_id", course.ID, "error", err)
      return nil
    }
    art.imageURL = gs.bucket.GetPublicURL(key)
    return nil
  }
}

func (gs *generationService) persistCourseMeta(ctx context.Context, course *types.Course, art *courseArtifacts) error {
  updates := map[string]interface{}{}
  if art.description != "" {
    updates["description"] = art.description
  }
  if art.imageURL != "" {
    updates["image_url"] = art.imageURL
  }
  if len(updates) == 0 {
    return nil
  }
  if err := gs.courseRepo.UpdateFields(ctx, nil, course.ID, updates); err != nil {
    return fmt.Errorf("update course meta: %w", err)
  }
  if art.description != "" {
    course.Description = art.description
  }
  if art.imageURL != "" {
    course.ImageURL = art.imageURL
  }
  return nil
}

func (gs *generationService) persistAlternativeTitles(ctx context.Context, courseID uuid.UUID, titles []string) error {
  if len(titles) == 0 {
    return nil
  }
  now := time.Now()
  rows := make([]*types.CourseTitle, 0, len(titles))
  seen := map[string]bool{}
  for _, title := range titles {
    slug := utils.Slugify(title)
    if slug == "" || seen[slug] {
      continue
    }
    seen[slug] = true
    rows = append(rows, &types.CourseTitle{
      ID:        uuid.New(),
      CourseID:  courseID,
      Slug:      slug,
      Title:     title,
      CreatedAt: now,
      UpdatedAt: now,
    })
  }
  return gs.titleRepo.CreateIfAbsent(ctx, nil, rows)
}

func (gs *generationService) persistCategories(ctx context.Context, courseID uuid.UUID, names []string) error {
  if len(names) == 0 {
    return nil
  }
  return gs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
    ids := make([]uuid.UUID, 0, len(names))
    seen := map[string]bool{}
    for _, name := range names {
      slug := utils.Slugify(name)
      if slug == "" || seen[slug] {
        continue
      }
      seen[slug] = true
      category, err := gs.categoryRepo.GetOrCreateBySlug(ctx, tx, slug, name)
      if err != nil {
        return fmt.Errorf("category %q: %w", name, err)
      }
      ids = append(ids, category.ID)
    }
    return gs.categoryRepo.AttachToCourse(ctx, tx, courseID, ids)
  })
}

func (gs *generationService) persistChapters(ctx context.Context, courseID uuid.UUID, outline []OutlineItem) error {
  if len(outline) == 0 {
    return nil
  }
  return gs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
    existing, err := gs.chapterRepo.GetByCourseID(ctx, tx, courseID)
    if err != nil {
      return fmt.Errorf("load existing chapters: %w", err)
    }
    taken := map[string]bool{}
    for _, ch := range existing {
      taken[ch.Slug] = true
    }
    maxPos, err := gs.chapterRepo.MaxPosition(ctx, tx, courseID)
    if err != nil {
      return fmt.Errorf("max chapter position: %w", err)
    }

    now := time.Now()
    next := maxPos + 1
    rows := make([]*types.Chapter, 0, len(outline))
    for _, item := range outline {
      slug := utils.Slugify(item.Title)
      if slug == "" || taken[slug] {
        continue
      }
      taken[slug] = true
      rows = append(rows, &types.Chapter{
        ID:               uuid.New(),
        CourseID:         courseID,
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
    return gs.chapterRepo.CreateIfAbsent(ctx, tx, rows)
  })
}

// failCourse marks the course and its suggestion failed. Failures here are
// logged and dropped; the run's original error is what the caller sees.
func (gs *generationService) failCourse(ctx context.Context, course *types.Course, suggestionID uuid.UUID) {
  if course != nil {
    if err := gs.courseRepo.UpdateFields(ctx, nil, course.ID, map[string]interface{}{
      "generation_status": types.GenerationFailed,
    }); err != nil {
      gs.log.Warn("Failed to mark course failed", "course_id", course.ID, "error", err)
    } else {
      course.GenerationStatus = types.GenerationFailed
    }
  }
  if err := gs.suggestionRepo.UpdateFields(ctx, nil, suggestionID, map[string]interface{}{
    "status": types.GenerationFailed,
  }); err != nil {
    gs.log.Warn("Failed to mark suggestion failed", "suggestion_id", suggestionID, "error", err)
  }
}
