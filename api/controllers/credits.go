package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/brendonia/brendonia-backend/api/middleware"
	"github.com/brendonia/brendonia-backend/api/responses"
	"github.com/brendonia/brendonia-backend/api/validators"
	"github.com/brendonia/brendonia-backend/internal/ledger"
	"github.com/brendonia/brendonia-backend/pkg/db/models"
	pkgerrors "github.com/brendonia/brendonia-backend/pkg/errors"
	"github.com/brendonia/brendonia-backend/pkg/logger"
)

type profileResponse struct {
	ID                 string    `json:"id"`
	Email              string    `json:"email"`
	FullName           *string   `json:"full_name"`
	Plan               string    `json:"plan"`
	SubscriptionStatus string    `json:"subscription_status"`
	Credits            int       `json:"credits"`
	CreatedAt          time.Time `json:"created_at"`
}

func newProfileResponse(profile *models.Profile) profileResponse {
	return profileResponse{
		ID:                 profile.ID.String(),
		Email:              profile.Email,
		FullName:           profile.FullName,
		Plan:               string(profile.Plan),
		SubscriptionStatus: string(profile.SubscriptionStatus),
		Credits:            profile.Credits,
		CreatedAt:          profile.CreatedAt,
	}
}

// authedUser pulls the bearer identity the auth middleware seeded.
func authedUser(r *http.Request) (uuid.UUID, string, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, "", pkgerrors.New(pkgerrors.CodeUnauthorized, "missing bearer token")
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, "", pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	return userID, middleware.EmailFromContext(r.Context()), nil
}

// CreditsBalance returns the caller's balance, creating the profile on first
// read.
func CreditsBalance(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		userID, email, err := authedUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		profile, err := svc.GetOrCreateProfile(r.Context(), userID, email)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteOK(w, map[string]any{
			"credits": profile.Credits,
			"profile": newProfileResponse(profile),
		})
	}
}

type addCreditsRequest struct {
	Amount      int    `json:"amount"`
	Description string `json:"description"`
}

// CreditsAdd tops up the caller's balance. The amount gate answers
// INVALID_AMOUNT before any profile work happens.
func CreditsAdd(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		userID, email, err := authedUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload addCreditsRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if payload.Amount <= 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInvalidAmount, "amount must be a positive integer"))
			return
		}
		reason := payload.Description
		if reason == "" {
			reason = "add credits"
		}

		if _, err := svc.GetOrCreateProfile(r.Context(), userID, email); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		profile, err := svc.Credit(r.Context(), userID, payload.Amount, reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteOK(w, map[string]any{"credits": profile.Credits})
	}
}
