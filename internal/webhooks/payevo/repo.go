package payevo

import (
	"context"

	"github.com/brendonia/brendonia-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository manages the payment_events idempotency records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Insert(ctx context.Context, event *models.PaymentEvent) error
	SetCreditsApplied(ctx context.Context, id uuid.UUID, credits int) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a payment event repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Insert(ctx context.Context, event *models.PaymentEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *repository) SetCreditsApplied(ctx context.Context, id uuid.UUID, credits int) error {
	return r.db.WithContext(ctx).
		Model(&models.PaymentEvent{}).
		Where("id = ?", id).
		UpdateColumn("credits_applied", credits).Error
}
