package repos

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/courseloom/courseloom-backend/internal/types"
)

// Every model's generated DDL has to be valid on both backends the repo
// tests run against. The timestamp defaults in particular must stay
// portable (CURRENT_TIMESTAMP, not a postgres-only expression).
func TestAutoMigrate_AllModels(t *testing.T) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&types.User{},
		&types.UserToken{},
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

	// A raw insert that omits the timestamp columns exercises the column
	// defaults directly, bypassing gorm's own created_at handling.
	id := uuid.New()
	if err := db.Exec(
		`INSERT INTO course_suggestion (id, topic, language, status, metadata) VALUES (?, ?, ?, ?, ?)`,
		id, "Biology", "en", types.GenerationPending, `{}`,
	).Error; err != nil {
		t.Fatalf("raw insert: %v", err)
	}
	var got types.CourseSuggestion
	if err := db.First(&got, "id = ?", id).Error; err != nil {
		t.Fatalf("read back: %v", err)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Fatalf("timestamp defaults did not apply: created_at=%v updated_at=%v", got.CreatedAt, got.UpdatedAt)
	}
}
