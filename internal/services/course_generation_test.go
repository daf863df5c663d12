package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/courseloom/courseloom-backend/internal/types"
)

func TestGenerateCourse_FreshRun(t *testing.T) {
	f := newWorkflowFixture(t)
	suggestion := f.seedSuggestion(t, "Biology", "en")
	ctx := context.Background()

	course, err := f.svc.GenerateCourse(ctx, suggestion.ID)
	if err != nil {
		t.Fatalf("GenerateCourse: %v", err)
	}
	if course.Slug != "biology" {
		t.Fatalf("expected slug biology, got %q", course.Slug)
	}
	if course.GenerationStatus != types.GenerationCompleted {
		t.Fatalf("expected course completed, got %q", course.GenerationStatus)
	}
	if course.Description == "" {
		t.Fatalf("expected generated description")
	}

	reloaded, err := f.suggestionRepo.GetByIDs(ctx, nil, []uuid.UUID{suggestion.ID})
	if err != nil || len(reloaded) == 0 {
		t.Fatalf("reload suggestion: %v", err)
	}
	if reloaded[0].Status != types.GenerationCompleted {
		t.Fatalf("expected suggestion completed, got %q", reloaded[0].Status)
	}

	cfg := DefaultGenerationConfig()
	titles, err := f.titleRepo.GetByCourseID(ctx, nil, course.ID)
	if err != nil {
		t.Fatalf("load titles: %v", err)
	}
	if len(titles) != cfg.AlternativeTitleCount {
		t.Fatalf("expected %d alternative titles, got %d", cfg.AlternativeTitleCount, len(titles))
	}
	categories, err := f.categoryRepo.GetByCourseID(ctx, nil, course.ID)
	if err != nil {
		t.Fatalf("load categories: %v", err)
	}
	if len(categories) != cfg.CategoryCount {
		t.Fatalf("expected %d categories, got %d", cfg.CategoryCount, len(categories))
	}

	chapters, err := f.chapterRepo.GetByCourseID(ctx, nil, course.ID)
	if err != nil {
		t.Fatalf("load chapters: %v", err)
	}
	if len(chapters) != cfg.ChapterCount {
		t.Fatalf("expected %d chapters, got %d", cfg.ChapterCount, len(chapters))
	}
	for i, ch := range chapters {
		if ch.Position != i {
			t.Fatalf("chapter positions not contiguous: index %d has position %d", i, ch.Position)
		}
		if ch.GenerationStatus != types.GenerationPending {
			t.Fatalf("new chapter should be pending, got %q", ch.GenerationStatus)
		}
	}

	if len(f.spawnedChapter) != 1 || f.spawnedChapter[0] != chapters[0].ID {
		t.Fatalf("expected first pending chapter to be dispatched, got %v", f.spawnedChapter)
	}
}

func TestGenerateCourse_RetriggerCompletedIsNoop(t *testing.T) {
	f := newWorkflowFixture(t)
	suggestion := f.seedSuggestion(t, "Biology", "en")
	ctx := context.Background()

	if _, err := f.svc.GenerateCourse(ctx, suggestion.ID); err != nil {
		t.Fatalf("first run: %v", err)
	}
	descCalls := f.gen.callCount("CourseDescription")

	course, err := f.svc.GenerateCourse(ctx, suggestion.ID)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if course == nil || course.GenerationStatus != types.GenerationCompleted {
		t.Fatalf("retrigger should return the completed course")
	}
	if f.gen.callCount("CourseDescription") != descCalls {
		t.Fatalf("retrigger must not call the generator again")
	}
}

func TestGenerateCourse_ResumeSkipsExistingContent(t *testing.T) {
	f := newWorkflowFixture(t)
	suggestion := f.seedSuggestion(t, "Chemistry", "en")
	ctx := context.Background()

	// A previous run got as far as the description and two chapters, then
	// failed.
	if err := f.db.WithContext(ctx).Exec(
		"UPDATE course_suggestion SET status = ? WHERE id = ?",
		types.GenerationFailed, suggestion.ID,
	).Error; err != nil {
		t.Fatalf("mark suggestion failed: %v", err)
	}
	course := &types.Course{
		ID:               uuid.New(),
		SuggestionID:     suggestion.ID,
		Title:            suggestion.Topic,
		Slug:             "chemistry",
		Language:         "en",
		Description:      "already written",
		GenerationStatus: types.GenerationFailed,
	}
	if _, err := f.courseRepo.Create(ctx, nil, []*types.Course{course}); err != nil {
		t.Fatalf("seed course: %v", err)
	}
	f.seedChapter(t, course.ID, "atoms", 0, types.GenerationCompleted)
	f.seedChapter(t, course.ID, "bonds", 1, types.GenerationPending)

	resumed, err := f.svc.GenerateCourse(ctx, suggestion.ID)
	if err != nil {
		t.Fatalf("resume run: %v", err)
	}
	if resumed.GenerationStatus != types.GenerationCompleted {
		t.Fatalf("expected resumed course completed, got %q", resumed.GenerationStatus)
	}
	if resumed.Description != "already written" {
		t.Fatalf("resume must keep the existing description")
	}
	if f.gen.callCount("CourseDescription") != 0 {
		t.Fatalf("resume must not regenerate the description")
	}
	if f.gen.callCount("ChapterOutline") != 0 {
		t.Fatalf("resume must not regenerate the chapter outline")
	}
	if f.gen.callCount("AlternativeTitles") != 1 {
		t.Fatalf("resume must generate the still-missing titles")
	}

	chapters, err := f.chapterRepo.GetByCourseID(ctx, nil, course.ID)
	if err != nil {
		t.Fatalf("load chapters: %v", err)
	}
	if len(chapters) != 2 {
		t.Fatalf("resume must not add chapters, got %d", len(chapters))
	}
	if len(f.spawnedChapter) != 1 || f.spawnedChapter[0] != chapters[1].ID {
		t.Fatalf("expected the pending chapter to be dispatched, got %v", f.spawnedChapter)
	}
}

func TestGenerateCourse_FailureMarksCourseAndSuggestion(t *testing.T) {
	f := newWorkflowFixture(t)
	f.gen.failCall = "ChapterOutline"
	f.gen.failErr = errors.New("model overloaded")
	suggestion := f.seedSuggestion(t, "Physics", "en")
	ctx := context.Background()

	if _, err := f.svc.GenerateCourse(ctx, suggestion.ID); err == nil {
		t.Fatalf("expected run to fail")
	}

	course, err := f.courseRepo.GetBySuggestionID(ctx, nil, suggestion.ID)
	if err != nil || course == nil {
		t.Fatalf("reload course: %v", err)
	}
	if course.GenerationStatus != types.GenerationFailed {
		t.Fatalf("expected course failed, got %q", course.GenerationStatus)
	}
	if course.Description != "" {
		t.Fatalf("failed generation fan-out must not persist partial content")
	}

	reloaded, err := f.suggestionRepo.GetByIDs(ctx, nil, []uuid.UUID{suggestion.ID})
	if err != nil || len(reloaded) == 0 {
		t.Fatalf("reload suggestion: %v", err)
	}
	if reloaded[0].Status != types.GenerationFailed {
		t.Fatalf("expected suggestion failed, got %q", reloaded[0].Status)
	}

	// Siblings still emitted their completed events before the join failed.
	if got := f.notifier.forStep("generate_description"); len(got) != 2 || got[1].Status != StepCompleted {
		t.Fatalf("sibling step should have completed: %+v", got)
	}
	if got := f.notifier.forStep("generate_chapter_outline"); len(got) != 2 || got[1].Status != StepError {
		t.Fatalf("failing step should have errored: %+v", got)
	}
}

func TestGenerateCourse_CoverFailureIsNonCritical(t *testing.T) {
	f := newWorkflowFixture(t)
	f.gen.failCall = "CoverImage"
	f.gen.failErr = errors.New("image model down")
	suggestion := f.seedSuggestion(t, "Geology", "en")

	course, err := f.svc.GenerateCourse(context.Background(), suggestion.ID)
	if err != nil {
		t.Fatalf("cover failure must not fail the run: %v", err)
	}
	if course.GenerationStatus != types.GenerationCompleted {
		t.Fatalf("expected completed course, got %q", course.GenerationStatus)
	}
	if course.ImageURL != "" {
		t.Fatalf("expected no image after cover failure, got %q", course.ImageURL)
	}
	if got := f.notifier.forStep("generate_cover_image"); len(got) != 2 || got[1].Status != StepCompleted {
		t.Fatalf("cover step should report completed: %+v", got)
	}
}

func TestGenerateCourse_UnknownSuggestion(t *testing.T) {
	f := newWorkflowFixture(t)

	_, err := f.svc.GenerateCourse(context.Background(), uuid.New())
	if err == nil || !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if got := f.notifier.forStep("lookup"); len(got) != 2 || got[1].Reason != reasonNotFound {
		t.Fatalf("lookup should emit not_found: %+v", got)
	}
}

func TestGenerateCourse_SimultaneousTriggersProduceOneCourse(t *testing.T) {
	f := newWorkflowFixture(t)
	suggestion := f.seedSuggestion(t, "Biology", "en")
	ctx := context.Background()

	start := make(chan struct{})
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = f.svc.GenerateCourse(ctx, suggestion.ID)
		}(i)
	}
	close(start)
	wg.Wait()

	if errs[0] != nil && errs[1] != nil {
		t.Fatalf("both triggers failed: %v / %v", errs[0], errs[1])
	}

	var count int64
	if err := f.db.Model(&types.Course{}).Where("suggestion_id = ?", suggestion.ID).Count(&count).Error; err != nil {
		t.Fatalf("count courses: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly one course, got %d", count)
	}

	course, err := f.courseRepo.GetBySuggestionID(ctx, nil, suggestion.ID)
	if err != nil || course == nil {
		t.Fatalf("load course: %v", err)
	}
	chapters, err := f.chapterRepo.GetByCourseID(ctx, nil, course.ID)
	if err != nil {
		t.Fatalf("load chapters: %v", err)
	}
	cfg := DefaultGenerationConfig()
	if len(chapters) != cfg.ChapterCount {
		t.Fatalf("expected %d chapters, got %d", cfg.ChapterCount, len(chapters))
	}
	seen := map[string]bool{}
	for i, chapter := range chapters {
		if chapter.Position != i {
			t.Errorf("chapter %d: expected position %d, got %d", i, i, chapter.Position)
		}
		if seen[chapter.Slug] {
			t.Errorf("duplicated chapter slug %q", chapter.Slug)
		}
		seen[chapter.Slug] = true
	}
}

func TestGenerateCourse_PersistWaitsForAllGeneration(t *testing.T) {
	f := newWorkflowFixture(t)
	f.gen.slowCall = "ChapterOutline"
	f.gen.slowFor = 50 * time.Millisecond
	suggestion := f.seedSuggestion(t, "Biology", "en")

	if _, err := f.svc.GenerateCourse(context.Background(), suggestion.ID); err != nil {
		t.Fatalf("GenerateCourse: %v", err)
	}

	events := f.notifier.ordered()
	lastGenerate := -1
	firstPersist := -1
	for i, ev := range events {
		if strings.HasPrefix(ev.Step, "generate_") && ev.Status == StepCompleted && i > lastGenerate {
			lastGenerate = i
		}
		if strings.HasPrefix(ev.Step, "persist_") && firstPersist == -1 {
			firstPersist = i
		}
	}
	if lastGenerate == -1 || firstPersist == -1 {
		t.Fatalf("missing generation or persistence events: %+v", events)
	}
	if firstPersist < lastGenerate {
		t.Fatalf("persistence began at event %d before generation finished at event %d", firstPersist, lastGenerate)
	}
}
