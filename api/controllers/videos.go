package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/brendonia/brendonia-backend/api/responses"
	"github.com/brendonia/brendonia-backend/api/validators"
	videosvc "github.com/brendonia/brendonia-backend/internal/videos"
	"github.com/brendonia/brendonia-backend/pkg/db/models"
	pkgerrors "github.com/brendonia/brendonia-backend/pkg/errors"
	"github.com/brendonia/brendonia-backend/pkg/logger"
)

const submitAcceptedMessage = "Vídeo recebido! Processamento iniciado 🚀"

type videoResponse struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	SourceType       string     `json:"source_type"`
	SourceURL        string     `json:"source_url"`
	RequestedMinutes int        `json:"requested_minutes"`
	Status           string     `json:"status"`
	ErrorMessage     *string    `json:"error_message,omitempty"`
	ProcessedAt      *time.Time `json:"processed_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func newVideoResponse(job *models.VideoJob) videoResponse {
	return videoResponse{
		ID:               job.ID.String(),
		Title:            job.Title,
		SourceType:       job.SourceType,
		SourceURL:        job.SourceURL,
		RequestedMinutes: job.RequestedMinutes,
		Status:           string(job.Status),
		ErrorMessage:     job.ErrorMessage,
		ProcessedAt:      job.ProcessedAt,
		CreatedAt:        job.CreatedAt,
		UpdatedAt:        job.UpdatedAt,
	}
}

type momentResponse struct {
	Idx      int      `json:"idx"`
	StartSec int      `json:"start_sec"`
	EndSec   int      `json:"end_sec"`
	Title    string   `json:"title"`
	Hook     *string  `json:"hook,omitempty"`
	Reason   *string  `json:"reason,omitempty"`
	Score    *float64 `json:"score,omitempty"`
}

func newMomentResponse(moment models.Moment) momentResponse {
	return momentResponse{
		Idx:      moment.Idx,
		StartSec: moment.StartSec,
		EndSec:   moment.EndSec,
		Title:    moment.Title,
		Hook:     moment.Hook,
		Reason:   moment.Reason,
		Score:    moment.Score,
	}
}

// VideoSubmit debits credits and queues a new highlight job.
func VideoSubmit(svc videosvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "videos service unavailable"))
			return
		}

		userID, _, err := authedUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload videosvc.SubmitInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Submit(r.Context(), userID, payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteOK(w, map[string]any{
			"message":      submitAcceptedMessage,
			"credits_left": result.CreditsLeft,
			"video":        newVideoResponse(result.Job),
		})
	}
}

// VideoList returns the caller's newest jobs, capped at fifty.
func VideoList(svc videosvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "videos service unavailable"))
			return
		}

		userID, _, err := authedUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		jobs, err := svc.List(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]videoResponse, 0, len(jobs))
		for i := range jobs {
			out = append(out, newVideoResponse(&jobs[i]))
		}
		responses.WriteOK(w, map[string]any{"videos": out})
	}
}

// VideoMoments returns the ranked segments of one of the caller's videos.
func VideoMoments(svc videosvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "videos service unavailable"))
			return
		}

		userID, _, err := authedUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		raw := chi.URLParam(r, "videoID")
		if raw == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeMissingVideoID, "video id is required"))
			return
		}
		videoID, err := uuid.Parse(raw)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeMissingVideoID, err, "invalid video id"))
			return
		}

		moments, err := svc.Moments(r.Context(), userID, videoID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]momentResponse, 0, len(moments))
		for _, moment := range moments {
			out = append(out, newMomentResponse(moment))
		}
		responses.WriteOK(w, map[string]any{"moments": out})
	}
}
