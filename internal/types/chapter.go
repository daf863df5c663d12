package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Chapter struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID         uuid.UUID      `gorm:"type:uuid;not null;index;uniqueIndex:idx_chapter_course_slug" json:"course_id"`
	Course           *Course        `gorm:"constraint:OnDelete:CASCADE;foreignKey:CourseID;references:ID" json:"course,omitempty"`
	Slug             string         `gorm:"column:slug;not null;uniqueIndex:idx_chapter_course_slug" json:"slug"`
	Position         int            `gorm:"column:position;not null" json:"position"`
	Title            string         `gorm:"column:title;not null" json:"title"`
	Description      string         `gorm:"column:description" json:"description"`
	GenerationStatus string         `gorm:"column:generation_status;not null;index;default:'pending'" json:"generation_status"`
	GenerationRunID  *uuid.UUID     `gorm:"type:uuid;column:generation_run_id" json:"generation_run_id,omitempty"`
	Metadata         datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata"`
	Lessons          []*Lesson      `gorm:"foreignKey:ChapterID;references:ID" json:"lessons,omitempty"`
	CreatedAt        time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Chapter) TableName() string { return "chapter" }
