package pubsub

import (
	"time"

	"github.com/google/uuid"
)

// EventVideoSubmitted is published when a job is queued for processing.
const EventVideoSubmitted = "video.submitted"

// VideoSubmittedEvent is the stable payload carried on the video topic.
type VideoSubmittedEvent struct {
	Version    int       `json:"version"`
	Event      string    `json:"event"`
	OccurredAt time.Time `json:"occurredAt"`
	VideoID    uuid.UUID `json:"videoId"`
	UserID     uuid.UUID `json:"userId"`
}

// NewVideoSubmittedEvent builds the v1 payload for a queued job.
func NewVideoSubmittedEvent(videoID, userID uuid.UUID) VideoSubmittedEvent {
	return VideoSubmittedEvent{
		Version:    1,
		Event:      EventVideoSubmitted,
		OccurredAt: time.Now().UTC(),
		VideoID:    videoID,
		UserID:     userID,
	}
}
