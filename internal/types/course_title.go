package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CourseTitle is an alternative title a course can be found under.
type CourseTitle struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID  uuid.UUID      `gorm:"type:uuid;not null;index;uniqueIndex:idx_course_title_course_slug" json:"course_id"`
	Course    *Course        `gorm:"constraint:OnDelete:CASCADE;foreignKey:CourseID;references:ID" json:"course,omitempty"`
	Slug      string         `gorm:"column:slug;not null;uniqueIndex:idx_course_title_course_slug" json:"slug"`
	Title     string         `gorm:"column:title;not null" json:"title"`
	CreatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (CourseTitle) TableName() string { return "course_title" }
