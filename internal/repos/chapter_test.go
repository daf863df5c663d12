package repos

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/courseloom/courseloom-backend/internal/logger"
	"github.com/courseloom/courseloom-backend/internal/types"
)

func openTestDB(t *testing.T) (*gorm.DB, *logger.Logger) {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&types.CourseSuggestion{},
		&types.Course{},
		&types.CourseTitle{},
		&types.Category{},
		&types.CourseCategory{},
		&types.Chapter{},
		&types.Lesson{},
		&types.Activity{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db, log
}

func seedCourse(t *testing.T, db *gorm.DB) *types.Course {
	t.Helper()
	now := time.Now()
	course := &types.Course{
		ID:               uuid.New(),
		SuggestionID:     uuid.New(),
		Title:            "Biology",
		Slug:             "biology",
		Language:         "en",
		GenerationStatus: types.GenerationCompleted,
		Metadata:         datatypes.JSON([]byte(`{}`)),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := db.Create(course).Error; err != nil {
		t.Fatalf("seed course: %v", err)
	}
	return course
}

func newChapter(courseID uuid.UUID, slug string, position int, status string) *types.Chapter {
	now := time.Now()
	return &types.Chapter{
		ID:               uuid.New(),
		CourseID:         courseID,
		Slug:             slug,
		Position:         position,
		Title:            slug,
		GenerationStatus: status,
		Metadata:         datatypes.JSON([]byte(`{}`)),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func TestChapterRepo_CreateIfAbsentIsIdempotent(t *testing.T) {
	db, log := openTestDB(t)
	repo := NewChapterRepo(db, log)
	course := seedCourse(t, db)
	ctx := context.Background()

	first := newChapter(course.ID, "cells", 0, types.GenerationPending)
	if err := repo.CreateIfAbsent(ctx, nil, []*types.Chapter{first}); err != nil {
		t.Fatalf("first insert: %v", err)
	}

	// Same slug, different id and title: the original row must win.
	dup := newChapter(course.ID, "cells", 5, types.GenerationCompleted)
	dup.Title = "replacement"
	if err := repo.CreateIfAbsent(ctx, nil, []*types.Chapter{dup}); err != nil {
		t.Fatalf("duplicate insert: %v", err)
	}

	chapters, err := repo.GetByCourseID(ctx, nil, course.ID)
	if err != nil {
		t.Fatalf("load chapters: %v", err)
	}
	if len(chapters) != 1 {
		t.Fatalf("expected 1 chapter, got %d", len(chapters))
	}
	if chapters[0].ID != first.ID || chapters[0].Title != "cells" {
		t.Fatalf("duplicate insert replaced the original row: %+v", chapters[0])
	}
}

func TestChapterRepo_MaxPosition(t *testing.T) {
	db, log := openTestDB(t)
	repo := NewChapterRepo(db, log)
	course := seedCourse(t, db)
	ctx := context.Background()

	maxPos, err := repo.MaxPosition(ctx, nil, course.ID)
	if err != nil {
		t.Fatalf("MaxPosition empty: %v", err)
	}
	if maxPos != -1 {
		t.Fatalf("expected -1 for empty course, got %d", maxPos)
	}

	rows := []*types.Chapter{
		newChapter(course.ID, "a", 0, types.GenerationPending),
		newChapter(course.ID, "b", 1, types.GenerationPending),
		newChapter(course.ID, "c", 2, types.GenerationPending),
	}
	if err := repo.CreateIfAbsent(ctx, nil, rows); err != nil {
		t.Fatalf("insert: %v", err)
	}

	maxPos, err = repo.MaxPosition(ctx, nil, course.ID)
	if err != nil {
		t.Fatalf("MaxPosition: %v", err)
	}
	if maxPos != 2 {
		t.Fatalf("expected max position 2, got %d", maxPos)
	}
}

func TestChapterRepo_FirstPendingByCourseID(t *testing.T) {
	db, log := openTestDB(t)
	repo := NewChapterRepo(db, log)
	course := seedCourse(t, db)
	ctx := context.Background()

	rows := []*types.Chapter{
		newChapter(course.ID, "a", 0, types.GenerationCompleted),
		newChapter(course.ID, "b", 1, types.GenerationPending),
		newChapter(course.ID, "c", 2, types.GenerationPending),
	}
	if err := repo.CreateIfAbsent(ctx, nil, rows); err != nil {
		t.Fatalf("insert: %v", err)
	}

	first, err := repo.FirstPendingByCourseID(ctx, nil, course.ID)
	if err != nil {
		t.Fatalf("FirstPendingByCourseID: %v", err)
	}
	if first == nil || first.Slug != "b" {
		t.Fatalf("expected lowest-position pending chapter, got %+v", first)
	}
}

func TestChapterRepo_UpdateFieldsTouchesUpdatedAt(t *testing.T) {
	db, log := openTestDB(t)
	repo := NewChapterRepo(db, log)
	course := seedCourse(t, db)
	ctx := context.Background()

	chapter := newChapter(course.ID, "cells", 0, types.GenerationPending)
	chapter.UpdatedAt = time.Now().Add(-time.Hour)
	if err := repo.CreateIfAbsent(ctx, nil, []*types.Chapter{chapter}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if err := repo.UpdateFields(ctx, nil, chapter.ID, map[string]interface{}{
		"generation_status": types.GenerationRunning,
	}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}

	reloaded, err := repo.GetByIDs(ctx, nil, []uuid.UUID{chapter.ID})
	if err != nil || len(reloaded) == 0 {
		t.Fatalf("reload: %v", err)
	}
	if reloaded[0].GenerationStatus != types.GenerationRunning {
		t.Fatalf("status not updated: %q", reloaded[0].GenerationStatus)
	}
	if !reloaded[0].UpdatedAt.After(chapter.UpdatedAt) {
		t.Fatalf("updated_at not touched")
	}
}
