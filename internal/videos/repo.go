package videos

import (
	"context"
	"time"

	"github.com/brendonia/brendonia-backend/pkg/db/models"
	"github.com/brendonia/brendonia-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ListLimit caps the dashboard video listing.
const ListLimit = 50

// Repository manages persistence for video jobs and their moments.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, job *models.VideoJob) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.VideoJob, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.VideoJob, error)
	ListMoments(ctx context.Context, videoID uuid.UUID) ([]models.Moment, error)

	ClaimForProcessing(ctx context.Context, id uuid.UUID) (bool, error)
	MarkDone(ctx context.Context, id uuid.UUID, processedAt time.Time) error
	MarkError(ctx context.Context, id uuid.UUID, message string) error
	DeleteMoments(ctx context.Context, videoID uuid.UUID) error
	CreateMoments(ctx context.Context, moments []models.Moment) error
	ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]models.VideoJob, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a video repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, job *models.VideoJob) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(job).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.VideoJob, error) {
	var job models.VideoJob
	if err := r.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.VideoJob, error) {
	if limit <= 0 || limit > ListLimit {
		limit = ListLimit
	}
	var jobs []models.VideoJob
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *repository) ListMoments(ctx context.Context, videoID uuid.UUID) ([]models.Moment, error) {
	var moments []models.Moment
	if err := r.db.WithContext(ctx).
		Where("video_id = ?", videoID).
		Order("idx ASC").
		Find(&moments).Error; err != nil {
		return nil, err
	}
	return moments, nil
}

// ClaimForProcessing flips pending to processing. The conditional update
// makes the claim single-winner when the consumer and the rescan race.
func (r *repository) ClaimForProcessing(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.VideoJob{}).
		Where("id = ? AND status = ?", id, enums.VideoStatusPending).
		Updates(map[string]any{
			"status":        enums.VideoStatusProcessing,
			"error_message": nil,
		})
	return res.RowsAffected > 0, res.Error
}

func (r *repository) MarkDone(ctx context.Context, id uuid.UUID, processedAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.VideoJob{}).
		Where("id = ? AND status = ?", id, enums.VideoStatusProcessing).
		Updates(map[string]any{
			"status":       enums.VideoStatusDone,
			"processed_at": processedAt,
		}).Error
}

// MarkError never touches a finished job, so a late failure cannot revert
// a done row.
func (r *repository) MarkError(ctx context.Context, id uuid.UUID, message string) error {
	return r.db.WithContext(ctx).
		Model(&models.VideoJob{}).
		Where("id = ? AND status IN ?", id, []enums.VideoStatus{enums.VideoStatusPending, enums.VideoStatusProcessing}).
		Updates(map[string]any{
			"status":        enums.VideoStatusError,
			"error_message": message,
		}).Error
}

func (r *repository) DeleteMoments(ctx context.Context, videoID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("video_id = ?", videoID).
		Delete(&models.Moment{}).Error
}

func (r *repository) CreateMoments(ctx context.Context, moments []models.Moment) error {
	if len(moments) == 0 {
		return nil
	}
	for i := range moments {
		if moments[i].ID == uuid.Nil {
			moments[i].ID = uuid.New()
		}
	}
	return r.db.WithContext(ctx).Create(&moments).Error
}

func (r *repository) ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]models.VideoJob, error) {
	if limit <= 0 {
		limit = 10
	}
	var jobs []models.VideoJob
	if err := r.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", enums.VideoStatusPending, olderThan).
		Order("updated_at ASC").
		Limit(limit).
		Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}
