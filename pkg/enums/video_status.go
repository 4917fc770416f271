package enums

import "fmt"

// VideoStatus maps to the video_status_enum enum in Postgres.
//
// Allowed transitions: pending -> processing -> done|error. A job never
// reverts to pending once it has left that state.
type VideoStatus string

const (
	VideoStatusPending    VideoStatus = "pending"
	VideoStatusProcessing VideoStatus = "processing"
	VideoStatusDone       VideoStatus = "done"
	VideoStatusError      VideoStatus = "error"
)

var validVideoStatuses = []VideoStatus{
	VideoStatusPending,
	VideoStatusProcessing,
	VideoStatusDone,
	VideoStatusError,
}

// IsValid reports whether the value matches the canonical enum.
func (s VideoStatus) IsValid() bool {
	for _, candidate := range validVideoStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether the status machine allows moving to next.
func (s VideoStatus) CanTransitionTo(next VideoStatus) bool {
	switch s {
	case VideoStatusPending:
		return next == VideoStatusProcessing || next == VideoStatusError
	case VideoStatusProcessing:
		return next == VideoStatusDone || next == VideoStatusError
	default:
		return false
	}
}

// ParseVideoStatus converts raw input into VideoStatus.
func ParseVideoStatus(value string) (VideoStatus, error) {
	for _, candidate := range validVideoStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid video status %q", value)
}
