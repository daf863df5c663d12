package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type CourseSuggestion struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Topic      string         `gorm:"column:topic;not null" json:"topic"`
	Language   string         `gorm:"column:language;not null;default:'en'" json:"language"`
	Status     string         `gorm:"column:status;not null;index;default:'pending'" json:"status"`
	Metadata   datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata"`
	CreatedAt  time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (CourseSuggestion) TableName() string { return "course_suggestion" }
