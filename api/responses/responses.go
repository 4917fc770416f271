package responses

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	pkgerrors "github.com/brendonia/brendonia-backend/pkg/errors"
	"github.com/brendonia/brendonia-backend/pkg/logger"
)

// WriteOK writes the dashboard's flat success shape: {"ok":true, ...fields}.
func WriteOK(w http.ResponseWriter, fields map[string]any) {
	WriteOKStatus(w, http.StatusOK, fields)
}

func WriteOKStatus(w http.ResponseWriter, status int, fields map[string]any) {
	payload := map[string]any{"ok": true}
	for k, v := range fields {
		payload[k] = v
	}
	writeJSON(w, status, payload)
}

// WriteError converts any error into the flat failure shape
// {"ok":false,"error":CODE,...} using the code's HTTP metadata. Map details
// are merged into the top-level object so business outcomes like
// INSUFFICIENT_CREDITS can carry their current balance the way the dashboard
// expects.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}

	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}

	meta := pkgerrors.MetadataFor(typed.Code())

	payload := map[string]any{
		"ok":    false,
		"error": string(typed.Code()),
	}

	msg := meta.PublicMessage
	switch typed.Code() {
	case pkgerrors.CodeValidation,
		pkgerrors.CodeMissingPackID,
		pkgerrors.CodeMissingData,
		pkgerrors.CodeMissingURL,
		pkgerrors.CodeInvalidMinutes,
		pkgerrors.CodeMissingVideoID,
		pkgerrors.CodeInvalidAmount,
		pkgerrors.CodeInsufficientCredits,
		pkgerrors.CodeForbidden,
		pkgerrors.CodeUnauthorized,
		pkgerrors.CodeNotFound,
		pkgerrors.CodeConflict,
		pkgerrors.CodeStateConflict,
		pkgerrors.CodeRateLimit:
		if m := typed.Message(); m != "" {
			msg = m
		}
	}
	payload["message"] = msg

	if meta.DetailsAllowed {
		switch details := typed.Details().(type) {
		case nil:
		case map[string]any:
			for k, v := range details {
				if k == "ok" || k == "error" {
					continue
				}
				payload[k] = v
			}
		default:
			payload["details"] = details
		}
	}

	if logg != nil {
		fields := map[string]any{
			"error":      err.Error(),
			"error_code": string(typed.Code()),
		}
		ctx = logg.WithFields(ctx, fields)
		logg.Error(ctx, "request.error", err)
	}

	writeJSON(w, meta.HTTPStatus, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf(`{"level":"error","msg":"failed to encode response","err":"%v"}`, err)
	}
}
