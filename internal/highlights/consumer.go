package highlights

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/brendonia/brendonia-backend/internal/videos"
	"github.com/brendonia/brendonia-backend/pkg/config"
	"github.com/brendonia/brendonia-backend/pkg/logger"
	pkgpubsub "github.com/brendonia/brendonia-backend/pkg/pubsub"
	"github.com/google/uuid"
	"go.uber.org/multierr"
)

// jobProcessor is the slice of Service the consumer needs.
type jobProcessor interface {
	ProcessJob(ctx context.Context, videoID uuid.UUID) error
}

// Consumer drives the highlight generator from the video events
// subscription, with a rescan ticker that picks up jobs whose submit event
// never arrived.
type Consumer struct {
	processor    jobProcessor
	subscription *pubsub.Subscriber
	videos       videos.Repository
	cfg          config.WorkerConfig
	logg         *logger.Logger
	now          func() time.Time
}

// NewConsumer constructs a consumer for the provided subscription.
func NewConsumer(processor jobProcessor, subscription *pubsub.Subscriber, repo videos.Repository, cfg config.WorkerConfig, logg *logger.Logger) (*Consumer, error) {
	if processor == nil {
		return nil, errors.New("job processor is required")
	}
	if subscription == nil {
		return nil, errors.New("video subscription is required")
	}
	if repo == nil {
		return nil, errors.New("videos repository is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Consumer{
		processor:    processor,
		subscription: subscription,
		videos:       repo,
		cfg:          cfg,
		logg:         logg,
		now:          time.Now,
	}, nil
}

// Run processes messages until the context is canceled or the subscription errors.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if c.handle(ctx, msg) {
			msg.Ack()
			return
		}
		msg.Nack()
	})
}

// handle reports whether the message should be acked. Malformed messages are
// acked; redelivery cannot fix them and the rescan covers lost jobs anyway.
func (c *Consumer) handle(ctx context.Context, msg *pubsub.Message) bool {
	var event pkgpubsub.VideoSubmittedEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		c.logg.Error(c.logg.WithField(ctx, "message_id", msg.ID), "consumer.bad_payload", err)
		return true
	}
	if event.VideoID == uuid.Nil {
		c.logg.Warn(c.logg.WithField(ctx, "message_id", msg.ID), "consumer.missing_video_id")
		return true
	}

	if err := c.processor.ProcessJob(ctx, event.VideoID); err != nil {
		c.logg.Error(c.logg.WithVideoID(ctx, event.VideoID.String()), "consumer.process_failed", err)
		return false
	}
	return true
}

// RunRescan periodically claims pending jobs that have sat past the stale
// cutoff. It returns when the context is canceled.
func (c *Consumer) RunRescan(ctx context.Context) {
	interval := c.cfg.RescanInterval
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.rescanOnce(ctx); err != nil {
				c.logg.Error(ctx, "rescan.failed", err)
			}
		}
	}
}

func (c *Consumer) rescanOnce(ctx context.Context) error {
	cutoff := c.now().Add(-c.cfg.StaleAfter)
	jobs, err := c.videos.ListStalePending(ctx, cutoff, c.cfg.RescanBatch)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		return nil
	}

	c.logg.Info(c.logg.WithField(ctx, "stale_jobs", len(jobs)), "rescan.claiming")

	var combined error
	for _, job := range jobs {
		if err := c.processor.ProcessJob(ctx, job.ID); err != nil {
			combined = multierr.Append(combined, err)
		}
	}
	return combined
}
