package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/brendonia/brendonia-backend/pkg/enums"
)

// CreditLedgerEntry is the immutable audit trail behind profiles.credits.
// Amount is signed: debits are negative, credits and refunds positive.
type CreditLedgerEntry struct {
	ID           uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	UserID       uuid.UUID             `gorm:"column:user_id;type:uuid;not null;index"`
	Amount       int                   `gorm:"column:amount;not null"`
	BalanceAfter int                   `gorm:"column:balance_after;not null"`
	EntryType    enums.LedgerEntryType `gorm:"column:entry_type;type:ledger_entry_type_enum;not null"`
	Reason       string                `gorm:"column:reason;not null;default:''"`
	CreatedAt    time.Time             `gorm:"column:created_at;autoCreateTime"`
}

func (CreditLedgerEntry) TableName() string {
	return "credit_ledger"
}
