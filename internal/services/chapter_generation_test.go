package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/courseloom/courseloom-backend/internal/types"
)

func seedCompletedCourse(t *testing.T, f *workflowFixture, topic string) *types.Course {
	t.Helper()
	suggestion := f.seedSuggestion(t, topic, "en")
	course := &types.Course{
		ID:               uuid.New(),
		SuggestionID:     suggestion.ID,
		Title:            topic,
		Slug:             topic,
		Language:         "en",
		Description:      "done",
		GenerationStatus: types.GenerationCompleted,
	}
	if _, err := f.courseRepo.Create(context.Background(), nil, []*types.Course{course}); err != nil {
		t.Fatalf("seed course: %v", err)
	}
	return course
}

func TestGenerateChapter_FreshRun(t *testing.T) {
	f := newWorkflowFixture(t)
	course := seedCompletedCourse(t, f, "biology")
	chapter := f.seedChapter(t, course.ID, "cells", 0, types.GenerationPending)
	ctx := context.Background()

	result, err := f.svc.GenerateChapter(ctx, chapter.ID)
	if err != nil {
		t.Fatalf("GenerateChapter: %v", err)
	}
	if result.GenerationStatus != types.GenerationCompleted {
		t.Fatalf("expected chapter completed, got %q", result.GenerationStatus)
	}
	if result.Description == "" {
		t.Fatalf("expected generated chapter description")
	}

	lessons, err := f.lessonRepo.GetByChapterID(ctx, nil, chapter.ID)
	if err != nil {
		t.Fatalf("load lessons: %v", err)
	}
	cfg := DefaultGenerationConfig()
	if len(lessons) != cfg.LessonCount {
		t.Fatalf("expected %d lessons, got %d", cfg.LessonCount, len(lessons))
	}
	for i, lesson := range lessons {
		if lesson.Position != i {
			t.Fatalf("lesson positions not contiguous: index %d has position %d", i, lesson.Position)
		}
		if lesson.GenerationStatus != types.GenerationPending {
			t.Fatalf("new lesson should be pending, got %q", lesson.GenerationStatus)
		}
	}

	if len(f.spawnedLesson) != 1 || f.spawnedLesson[0] != lessons[0].ID {
		t.Fatalf("expected first pending lesson to be dispatched, got %v", f.spawnedLesson)
	}
}

func TestGenerateChapter_FailureDoesNotTouchCourse(t *testing.T) {
	f := newWorkflowFixture(t)
	course := seedCompletedCourse(t, f, "biology")
	chapter := f.seedChapter(t, course.ID, "cells", 0, types.GenerationPending)
	f.gen.failCall = "LessonOutline"
	f.gen.failErr = errors.New("model overloaded")
	ctx := context.Background()

	if _, err := f.svc.GenerateChapter(ctx, chapter.ID); err == nil {
		t.Fatalf("expected run to fail")
	}

	chapters, err := f.chapterRepo.GetByIDs(ctx, nil, []uuid.UUID{chapter.ID})
	if err != nil || len(chapters) == 0 {
		t.Fatalf("reload chapter: %v", err)
	}
	if chapters[0].GenerationStatus != types.GenerationFailed {
		t.Fatalf("expected chapter failed, got %q", chapters[0].GenerationStatus)
	}

	courses, err := f.courseRepo.GetByIDs(ctx, nil, []uuid.UUID{course.ID})
	if err != nil || len(courses) == 0 {
		t.Fatalf("reload course: %v", err)
	}
	if courses[0].GenerationStatus != types.GenerationCompleted {
		t.Fatalf("chapter failure must not change the course, got %q", courses[0].GenerationStatus)
	}
}

func TestGenerateChapter_RetriggerCompletedIsNoop(t *testing.T) {
	f := newWorkflowFixture(t)
	course := seedCompletedCourse(t, f, "biology")
	chapter := f.seedChapter(t, course.ID, "cells", 0, types.GenerationCompleted)

	result, err := f.svc.GenerateChapter(context.Background(), chapter.ID)
	if err != nil {
		t.Fatalf("retrigger: %v", err)
	}
	if result.GenerationStatus != types.GenerationCompleted {
		t.Fatalf("expected completed chapter back, got %q", result.GenerationStatus)
	}
	if f.gen.callCount("ChapterDescription") != 0 || f.gen.callCount("LessonOutline") != 0 {
		t.Fatalf("retrigger must not call the generator")
	}
}

func TestGenerateChapter_UnknownChapter(t *testing.T) {
	f := newWorkflowFixture(t)

	_, err := f.svc.GenerateChapter(context.Background(), uuid.New())
	if err == nil || !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
