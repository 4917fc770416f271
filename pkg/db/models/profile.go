package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/brendonia/brendonia-backend/pkg/enums"
)

// Profile is the per-user account row. Its id is the identity provider
// subject, so the row is created lazily on first authenticated read rather
// than at signup. Credits never go negative; every mutation funnels through
// the ledger service.
type Profile struct {
	ID                 uuid.UUID                `gorm:"column:id;type:uuid;primaryKey"`
	Email              string                   `gorm:"column:email;type:text;not null;uniqueIndex"`
	FullName           *string                  `gorm:"column:full_name"`
	Plan               enums.Plan               `gorm:"column:plan;type:plan_enum;not null;default:'free'"`
	SubscriptionStatus enums.SubscriptionStatus `gorm:"column:subscription_status;type:subscription_status_enum;not null;default:'inactive'"`
	Credits            int                      `gorm:"column:credits;not null;default:0"`
	CreatedAt          time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName overrides GORM's pluralization to match the migration.
func (Profile) TableName() string {
	return "profiles"
}
