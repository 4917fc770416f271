package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/brendonia/brendonia-backend/pkg/enums"
)

// VideoJob is a unit of highlight-generation work. A row exists only after
// its requested_minutes were debited from the owning profile.
type VideoJob struct {
	ID               uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	UserID           uuid.UUID         `gorm:"column:user_id;type:uuid;not null;index"`
	Title            string            `gorm:"column:title;not null"`
	SourceType       string            `gorm:"column:source_type;not null;default:'youtube'"`
	SourceURL        string            `gorm:"column:source_url;not null"`
	RequestedMinutes int               `gorm:"column:requested_minutes;not null"`
	Status           enums.VideoStatus `gorm:"column:status;type:video_status_enum;not null;default:'pending'"`
	ErrorMessage     *string           `gorm:"column:error_message"`
	ProcessedAt      *time.Time        `gorm:"column:processed_at"`
	CreatedAt        time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (VideoJob) TableName() string {
	return "video_jobs"
}
