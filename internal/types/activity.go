package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ActivityKindReading = "reading"
	ActivityKindQuiz    = "quiz"
)

type Activity struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	LessonID         uuid.UUID      `gorm:"type:uuid;not null;index;uniqueIndex:idx_activity_lesson_slug" json:"lesson_id"`
	Lesson           *Lesson        `gorm:"constraint:OnDelete:CASCADE;foreignKey:LessonID;references:ID" json:"lesson,omitempty"`
	Slug             string         `gorm:"column:slug;not null;uniqueIndex:idx_activity_lesson_slug" json:"slug"`
	Position         int            `gorm:"column:position;not null" json:"position"`
	Title            string         `gorm:"column:title;not null" json:"title"`
	Kind             string         `gorm:"column:kind;not null;default:'reading'" json:"kind"`
	Body             datatypes.JSON `gorm:"column:body;type:jsonb" json:"body"`
	IsPublished      bool           `gorm:"column:is_published;not null;default:false" json:"is_published"`
	GenerationStatus string         `gorm:"column:generation_status;not null;index;default:'pending'" json:"generation_status"`
	GenerationRunID  *uuid.UUID     `gorm:"type:uuid;column:generation_run_id" json:"generation_run_id,omitempty"`
	CreatedAt        time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Activity) TableName() string { return "activity" }
