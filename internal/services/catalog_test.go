package services

import (
	"context"
	"errors"
	"testing"

	"github.com/courseloom/courseloom-backend/internal/logger"
	"github.com/courseloom/courseloom-backend/internal/types"
)

func newCatalogFixture(t *testing.T) (*workflowFixture, CatalogService) {
	t.Helper()
	f := newWorkflowFixture(t)
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	catalog := NewCatalogService(f.db, log, f.courseRepo, f.titleRepo, f.categoryRepo, f.chapterRepo, f.lessonRepo)
	return f, catalog
}

func TestGetCourseGeneration_RollsUpChapterAndLessonStatus(t *testing.T) {
	f, catalog := newCatalogFixture(t)
	ctx := context.Background()

	suggestion := f.seedSuggestion(t, "Biology", "en")
	course, err := f.svc.GenerateCourse(ctx, suggestion.ID)
	if err != nil {
		t.Fatalf("GenerateCourse: %v", err)
	}
	chapters, err := f.chapterRepo.GetByCourseID(ctx, nil, course.ID)
	if err != nil || len(chapters) == 0 {
		t.Fatalf("load chapters: %v", err)
	}
	if _, err := f.svc.GenerateChapter(ctx, chapters[0].ID); err != nil {
		t.Fatalf("GenerateChapter: %v", err)
	}

	rollup, err := catalog.GetCourseGeneration(ctx, course.Slug)
	if err != nil {
		t.Fatalf("GetCourseGeneration: %v", err)
	}
	if rollup.CourseID != course.ID || rollup.Slug != course.Slug {
		t.Fatalf("rollup identifies wrong course: %+v", rollup)
	}
	if rollup.GenerationStatus != types.GenerationCompleted {
		t.Fatalf("expected course completed, got %q", rollup.GenerationStatus)
	}
	cfg := DefaultGenerationConfig()
	if len(rollup.Chapters) != cfg.ChapterCount {
		t.Fatalf("expected %d chapters, got %d", cfg.ChapterCount, len(rollup.Chapters))
	}
	if rollup.Chapters[0].GenerationStatus != types.GenerationCompleted {
		t.Fatalf("expected first chapter completed, got %q", rollup.Chapters[0].GenerationStatus)
	}
	if len(rollup.Chapters[0].Lessons) != cfg.LessonCount {
		t.Fatalf("expected %d lessons under generated chapter, got %d", cfg.LessonCount, len(rollup.Chapters[0].Lessons))
	}
	for _, lesson := range rollup.Chapters[0].Lessons {
		if lesson.GenerationStatus != types.GenerationPending {
			t.Errorf("lesson %s: expected pending, got %q", lesson.ID, lesson.GenerationStatus)
		}
	}
	for i, chapter := range rollup.Chapters[1:] {
		if chapter.GenerationStatus != types.GenerationPending {
			t.Errorf("chapter %d: expected pending, got %q", i+1, chapter.GenerationStatus)
		}
		if len(chapter.Lessons) != 0 {
			t.Errorf("chapter %d: expected no lessons yet, got %d", i+1, len(chapter.Lessons))
		}
	}
}

func TestGetCourseGeneration_UnknownSlug(t *testing.T) {
	_, catalog := newCatalogFixture(t)

	if _, err := catalog.GetCourseGeneration(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
