package models

import (
	"time"

	"github.com/google/uuid"
)

// Moment is one ranked highlight segment of a processed video. The generator
// replaces a video's moments as a complete batch of ten inside one
// transaction, so readers see either the old set or the new set.
type Moment struct {
	ID       uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	VideoID  uuid.UUID `gorm:"column:video_id;type:uuid;not null;uniqueIndex:uniq_moments_video_idx,priority:1"`
	Idx      int       `gorm:"column:idx;not null;uniqueIndex:uniq_moments_video_idx,priority:2"`
	StartSec int       `gorm:"column:start_sec;not null"`
	EndSec   int       `gorm:"column:end_sec;not null"`
	Title    string    `gorm:"column:title;not null"`
	Hook     *string   `gorm:"column:hook"`
	Reason   *string   `gorm:"column:reason"`
	Score    *float64  `gorm:"column:score"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Moment) TableName() string {
	return "moments"
}
