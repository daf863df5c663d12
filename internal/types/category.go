package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Category struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string         `gorm:"column:name;not null" json:"name"`
	Slug      string         `gorm:"column:slug;not null;uniqueIndex" json:"slug"`
	CreatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Category) TableName() string { return "category" }

type CourseCategory struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID   uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_course_category_pair" json:"course_id"`
	Course     *Course   `gorm:"constraint:OnDelete:CASCADE;foreignKey:CourseID;references:ID" json:"course,omitempty"`
	CategoryID uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_course_category_pair" json:"category_id"`
	Category   *Category `gorm:"constraint:OnDelete:CASCADE;foreignKey:CategoryID;references:ID" json:"category,omitempty"`
	CreatedAt  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (CourseCategory) TableName() string { return "course_category" }
