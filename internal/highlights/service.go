package highlights

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/brendonia/brendonia-backend/internal/videos"
	"github.com/brendonia/brendonia-backend/pkg/db"
	"github.com/brendonia/brendonia-backend/pkg/db/models"
	"github.com/brendonia/brendonia-backend/pkg/logger"
	"github.com/brendonia/brendonia-backend/pkg/metrics"
	"github.com/brendonia/brendonia-backend/pkg/openai"
	"github.com/brendonia/brendonia-backend/pkg/transcript"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	jobName = "highlights"

	// minTranscriptLines is the floor below which a transcript cannot
	// produce ten meaningful cuts.
	minTranscriptLines = 20
)

// TranscriptClient fetches caption cues for a YouTube video id.
type TranscriptClient interface {
	Fetch(ctx context.Context, videoID string) ([]transcript.Item, error)
}

// MomentGenerator turns a timestamped transcript into ranked cut candidates.
type MomentGenerator interface {
	TopMoments(ctx context.Context, transcriptText string) ([]openai.Moment, error)
}

// ServiceParams packages the dependencies for the highlight generator.
type ServiceParams struct {
	DB         *db.Client
	Videos     videos.Repository
	Transcript TranscriptClient
	Generator  MomentGenerator
	Metrics    *metrics.JobMetrics
	Logger     *logger.Logger
	Now        func() time.Time
}

// Service runs one video job end to end: claim, transcript, model, moments.
type Service struct {
	db         *db.Client
	videos     videos.Repository
	transcript TranscriptClient
	generator  MomentGenerator
	metrics    *metrics.JobMetrics
	logg       *logger.Logger
	now        func() time.Time
}

// NewService wires the highlight generator with the provided dependencies.
func NewService(params ServiceParams) (*Service, error) {
	if params.DB == nil {
		return nil, errors.New("database client required")
	}
	if params.Videos == nil {
		return nil, errors.New("videos repository required")
	}
	if params.Transcript == nil {
		return nil, errors.New("transcript client required")
	}
	if params.Generator == nil {
		return nil, errors.New("moment generator required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		db:         params.DB,
		videos:     params.Videos,
		transcript: params.Transcript,
		generator:  params.Generator,
		metrics:    params.Metrics,
		logg:       params.Logger,
		now:        now,
	}, nil
}

// ProcessJob claims and processes a single job. Domain failures (bad URL,
// missing transcript, model rejection) mark the job error and return nil so
// the message is acked; only storage failures propagate for a retry.
func (s *Service) ProcessJob(ctx context.Context, videoID uuid.UUID) error {
	start := s.now()
	if s.logg != nil {
		ctx = s.logg.WithVideoID(ctx, videoID.String())
	}

	claimed, err := s.videos.ClaimForProcessing(ctx, videoID)
	if err != nil {
		return fmt.Errorf("claim job: %w", err)
	}
	if !claimed {
		// someone else won the claim, or the job is already terminal
		if s.logg != nil {
			s.logg.Info(ctx, "highlights.claim_lost")
		}
		return nil
	}

	job, err := s.videos.FindByID(ctx, videoID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("load job: %w", err)
	}

	if err := s.generate(ctx, job); err != nil {
		s.metrics.IncFailure(jobName)
		s.metrics.ObserveDuration(jobName, s.now().Sub(start))
		if s.logg != nil {
			s.logg.Error(ctx, "highlights.failed", err)
		}
		if markErr := s.videos.MarkError(ctx, videoID, err.Error()); markErr != nil {
			return fmt.Errorf("mark job error: %w", markErr)
		}
		return nil
	}

	s.metrics.IncSuccess(jobName)
	s.metrics.ObserveDuration(jobName, s.now().Sub(start))
	if s.logg != nil {
		s.logg.Info(ctx, "highlights.done")
	}
	return nil
}

func (s *Service) generate(ctx context.Context, job *models.VideoJob) error {
	ytID, ok := transcript.ParseVideoID(job.SourceURL)
	if !ok {
		return errors.New("INVALID_YOUTUBE_URL")
	}

	items, err := s.transcript.Fetch(ctx, ytID)
	if err != nil {
		return fmt.Errorf("fetch transcript: %w", err)
	}

	// one credit buys one minute of source material
	limitSec := 60
	if job.RequestedMinutes > 1 {
		limitSec = job.RequestedMinutes * 60
	}

	lines := make([]string, 0, len(items))
	for _, item := range items {
		if item.Text == "" || item.StartSec > limitSec {
			continue
		}
		lines = append(lines, fmt.Sprintf("[%s] %s", secToTimestamp(item.StartSec), item.Text))
	}
	if len(lines) < minTranscriptLines {
		return errors.New("TRANSCRIPT_TOO_SHORT_OR_MISSING")
	}

	generated, err := s.generator.TopMoments(ctx, strings.Join(lines, "\n"))
	if err != nil {
		return fmt.Errorf("generate moments: %w", err)
	}

	rows := make([]models.Moment, 0, len(generated))
	for _, m := range generated {
		row := models.Moment{
			VideoID:  job.ID,
			Idx:      m.Idx,
			StartSec: m.StartSec,
			EndSec:   m.EndSec,
			Title:    m.Title,
			Score:    m.Score,
		}
		if m.Hook != "" {
			hook := m.Hook
			row.Hook = &hook
		}
		if m.Reason != "" {
			reason := m.Reason
			row.Reason = &reason
		}
		rows = append(rows, row)
	}

	// readers see either the previous batch or the new one, never a mix
	processedAt := s.now().UTC()
	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.videos.WithTx(tx)
		if err := repo.DeleteMoments(ctx, job.ID); err != nil {
			return fmt.Errorf("clear moments: %w", err)
		}
		if err := repo.CreateMoments(ctx, rows); err != nil {
			return fmt.Errorf("insert moments: %w", err)
		}
		return repo.MarkDone(ctx, job.ID, processedAt)
	})
}

func secToTimestamp(sec int) string {
	if sec < 0 {
		sec = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", sec/3600, (sec%3600)/60, sec%60)
}
