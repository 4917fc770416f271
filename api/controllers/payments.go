package controllers

import (
	"net/http"

	"github.com/brendonia/brendonia-backend/api/responses"
	"github.com/brendonia/brendonia-backend/api/validators"
	paymentsvc "github.com/brendonia/brendonia-backend/internal/payments"
	pkgerrors "github.com/brendonia/brendonia-backend/pkg/errors"
	"github.com/brendonia/brendonia-backend/pkg/logger"
)

type createPaymentRequest struct {
	PackID     string `json:"pack_id"`
	PayerEmail string `json:"payer_email"`
}

// PaymentCreate resolves a pack to its checkout link. The route takes no
// bearer token; the gateway identifies the buyer by the email typed at
// checkout.
func PaymentCreate(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		var payload createPaymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		checkout, err := svc.CreateCheckout(r.Context(), paymentsvc.CreateCheckoutInput{
			PackID:     payload.PackID,
			PayerEmail: payload.PayerEmail,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteOK(w, map[string]any{
			"checkout_url": checkout.CheckoutURL,
			"pack_id":      checkout.PackID,
		})
	}
}
