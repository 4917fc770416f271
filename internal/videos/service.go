package videos

import (
	"context"
	"errors"
	"strings"

	"github.com/brendonia/brendonia-backend/internal/ledger"
	"github.com/brendonia/brendonia-backend/pkg/db/models"
	pkgerrors "github.com/brendonia/brendonia-backend/pkg/errors"
	"github.com/brendonia/brendonia-backend/pkg/logger"
	pkgpubsub "github.com/brendonia/brendonia-backend/pkg/pubsub"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const defaultTitle = "YouTube video"

// EventPublisher queues a submitted job for the worker. Publishing is best
// effort; the worker rescan covers jobs whose event was lost.
type EventPublisher interface {
	PublishVideoSubmitted(ctx context.Context, event pkgpubsub.VideoSubmittedEvent) error
}

// SubmitInput is the dashboard's submit payload. Minutes double as the
// credit price of the job.
type SubmitInput struct {
	URL     string `json:"url"`
	Minutes int    `json:"minutes"`
}

// SubmitResult carries the created job and the balance after the debit.
type SubmitResult struct {
	Job         *models.VideoJob
	CreditsLeft int
}

// Service is the submission gate plus the dashboard read paths.
type Service interface {
	Submit(ctx context.Context, userID uuid.UUID, input SubmitInput) (*SubmitResult, error)
	List(ctx context.Context, userID uuid.UUID) ([]models.VideoJob, error)
	Moments(ctx context.Context, userID, videoID uuid.UUID) ([]models.Moment, error)
}

// ServiceParams packages the dependencies for the videos service.
type ServiceParams struct {
	Repo      Repository
	Ledger    ledger.Service
	Publisher EventPublisher
	Logger    *logger.Logger
}

type service struct {
	repo      Repository
	ledger    ledger.Service
	publisher EventPublisher
	logg      *logger.Logger
}

// NewService wires a videos service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "videos repository required")
	}
	if params.Ledger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "ledger service required")
	}
	return &service{
		repo:      params.Repo,
		ledger:    params.Ledger,
		publisher: params.Publisher,
		logg:      params.Logger,
	}, nil
}

// Submit debits minutes credits, creates the pending job, and queues it.
// A job row only ever exists with its debit already taken; if the create
// fails the debit is compensated with a refund before the error surfaces.
func (s *service) Submit(ctx context.Context, userID uuid.UUID, input SubmitInput) (*SubmitResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing user")
	}
	url := strings.TrimSpace(input.URL)
	if url == "" {
		return nil, pkgerrors.New(pkgerrors.CodeMissingURL, "url is required")
	}
	if input.Minutes <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidMinutes, "minutes must be a positive integer")
	}

	profile, err := s.ledger.TryDebit(ctx, userID, input.Minutes, "video submit")
	if err != nil {
		return nil, err
	}

	job := &models.VideoJob{
		UserID:           userID,
		Title:            defaultTitle,
		SourceType:       "youtube",
		SourceURL:        url,
		RequestedMinutes: input.Minutes,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		if _, refundErr := s.ledger.Refund(ctx, userID, input.Minutes, "job create failed"); refundErr != nil {
			// the debit is now orphaned; keep both failures visible
			if s.logg != nil {
				s.logg.Error(ctx, "videos.refund_failed", refundErr)
			}
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create video job")
	}

	s.publishSubmitted(ctx, job)

	return &SubmitResult{Job: job, CreditsLeft: profile.Credits}, nil
}

func (s *service) publishSubmitted(ctx context.Context, job *models.VideoJob) {
	if s.publisher == nil {
		return
	}
	event := pkgpubsub.NewVideoSubmittedEvent(job.ID, job.UserID)
	if err := s.publisher.PublishVideoSubmitted(ctx, event); err != nil {
		if s.logg != nil {
			ctx = s.logg.WithVideoID(ctx, job.ID.String())
			s.logg.Warn(ctx, "videos.publish_failed: "+err.Error())
		}
	}
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]models.VideoJob, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing user")
	}
	jobs, err := s.repo.ListByUser(ctx, userID, ListLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list videos")
	}
	return jobs, nil
}

// Moments returns the ranked segments of a video the caller owns. Videos of
// other users answer NOT_FOUND rather than FORBIDDEN so ids stay unguessable.
func (s *service) Moments(ctx context.Context, userID, videoID uuid.UUID) ([]models.Moment, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing user")
	}
	if videoID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeMissingVideoID, "video id is required")
	}

	job, err := s.repo.FindByID(ctx, videoID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "video not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load video")
	}
	if job.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "video not found")
	}

	moments, err := s.repo.ListMoments(ctx, videoID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list moments")
	}
	return moments, nil
}
