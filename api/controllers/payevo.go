package controllers

import (
	"io"
	"net/http"

	"github.com/brendonia/brendonia-backend/api/responses"
	payevosvc "github.com/brendonia/brendonia-backend/internal/webhooks/payevo"
	pkgerrors "github.com/brendonia/brendonia-backend/pkg/errors"
	"github.com/brendonia/brendonia-backend/pkg/logger"
)

// maxWebhookBody caps gateway payload reads at 1 MiB.
const maxWebhookBody = 1 << 20

// PayevoWebhookLiveness answers the gateway's endpoint check in plain text.
func PayevoWebhookLiveness() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("webhook payevo GET OK"))
	}
}

// PayevoWebhook receives payment notifications. Signature verification runs
// whenever a secret is configured; without one, deliveries are accepted with
// a warning so a fresh environment still works against the gateway sandbox.
func PayevoWebhook(svc payevosvc.Service, webhookSecret string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read webhook body"))
			return
		}

		if webhookSecret != "" {
			signature := r.Header.Get(payevosvc.SignatureHeader)
			if !payevosvc.VerifySignature(webhookSecret, body, signature) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook signature"))
				return
			}
		} else if logg != nil {
			logg.Warn(r.Context(), "payevo.signature_skipped: no webhook secret configured")
		}

		outcome, err := svc.Process(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteOK(w, outcomeFields(outcome))
	}
}

// outcomeFields flattens the pipeline outcome into the gateway's response
// shape.
func outcomeFields(outcome *payevosvc.Outcome) map[string]any {
	fields := map[string]any{}
	switch {
	case outcome.Applied:
		fields["applied"] = true
		fields["email"] = outcome.Email
		fields["credits_applied"] = outcome.CreditsApplied
	case outcome.Duplicate:
		fields["duplicate"] = true
	case outcome.Ignored:
		fields["ignored"] = true
		if outcome.Reason != "" {
			fields["reason"] = outcome.Reason
		}
		if outcome.Status != "" {
			fields["status"] = outcome.Status
		}
	}
	return fields
}
