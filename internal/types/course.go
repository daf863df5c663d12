package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Course struct {
	ID               uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	SuggestionID     uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex" json:"suggestion_id"`
	Suggestion       *CourseSuggestion `gorm:"constraint:OnDelete:CASCADE;foreignKey:SuggestionID;references:ID" json:"suggestion,omitempty"`
	Title            string            `gorm:"column:title;not null" json:"title"`
	Slug             string            `gorm:"column:slug;not null;uniqueIndex" json:"slug"`
	Language         string            `gorm:"column:language;not null;default:'en'" json:"language"`
	Description      string            `gorm:"column:description" json:"description"`
	ImageURL         string            `gorm:"column:image_url" json:"image_url"`
	IsPublished      bool              `gorm:"column:is_published;not null;default:false" json:"is_published"`
	GenerationStatus string            `gorm:"column:generation_status;not null;index;default:'pending'" json:"generation_status"`
	GenerationRunID  *uuid.UUID        `gorm:"type:uuid;column:generation_run_id" json:"generation_run_id,omitempty"`
	Metadata         datatypes.JSON    `gorm:"column:metadata;type:jsonb" json:"metadata"`
	Chapters         []*Chapter        `gorm:"foreignKey:CourseID;references:ID" json:"chapters,omitempty"`
	CreatedAt        time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt        time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	DeletedAt        gorm.DeletedAt    `gorm:"index" json:"deleted_at,omitempty"`
}

func (Course) TableName() string { return "course" }
