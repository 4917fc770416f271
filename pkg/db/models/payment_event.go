package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// PaymentEvent is the idempotency record for one external gateway
// transaction. The unique (provider, provider_tx_id) pair is the sole
// deduplication mechanism for at-least-once webhook delivery: the insert
// happens before any balance mutation. Rows are never deleted; only
// credits_applied is backfilled after the grant lands.
type PaymentEvent struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Provider       string          `gorm:"column:provider;not null;uniqueIndex:uniq_payment_events_provider_tx,priority:1"`
	ProviderTxID   string          `gorm:"column:provider_tx_id;not null;uniqueIndex:uniq_payment_events_provider_tx,priority:2"`
	Email          *string         `gorm:"column:email"`
	Status         string          `gorm:"column:status;not null"`
	Description    string          `gorm:"column:description;not null;default:''"`
	AmountCents    *int64          `gorm:"column:amount_cents"`
	CreditsApplied *int            `gorm:"column:credits_applied"`
	RawPayload     json.RawMessage `gorm:"column:raw_payload;type:jsonb"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (PaymentEvent) TableName() string {
	return "payment_events"
}

// PaymentEventUniqueConstraint is referenced when classifying insert failures.
const PaymentEventUniqueConstraint = "uniq_payment_events_provider_tx"
