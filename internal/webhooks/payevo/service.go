package payevo

import (
	"context"

	"github.com/brendonia/brendonia-backend/internal/ledger"
	"github.com/brendonia/brendonia-backend/internal/payments"
	"github.com/brendonia/brendonia-backend/pkg/db"
	"github.com/brendonia/brendonia-backend/pkg/db/models"
	"github.com/brendonia/brendonia-backend/pkg/enums"
	pkgerrors "github.com/brendonia/brendonia-backend/pkg/errors"
	"github.com/brendonia/brendonia-backend/pkg/logger"
	"github.com/brendonia/brendonia-backend/pkg/metrics"
)

// Outcome is the terminal classification of one webhook delivery. Every
// outcome answers HTTP 200 so the gateway stops retrying; only storage
// failures surface as errors.
type Outcome struct {
	Applied        bool
	Duplicate      bool
	Ignored        bool
	Status         string
	Reason         string
	Email          string
	CreditsApplied int
}

const (
	OutcomeApplied   = "applied"
	OutcomeDuplicate = "duplicate"
	OutcomeIgnored   = "ignored"
	OutcomeError     = "error"
)

// Service processes PayEvo payment notifications end to end.
type Service interface {
	Process(ctx context.Context, rawBody []byte) (*Outcome, error)
}

// ServiceParams packages the dependencies for the webhook processor.
type ServiceParams struct {
	Repo     Repository
	Ledger   ledger.Service
	Payments payments.Service
	Guard    *Guard
	Metrics  *metrics.WebhookMetrics
	Logger   *logger.Logger
}

type service struct {
	repo     Repository
	ledger   ledger.Service
	payments payments.Service
	guard    *Guard
	metrics  *metrics.WebhookMetrics
	logg     *logger.Logger
}

// NewService wires the webhook processor with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment event repository required")
	}
	if params.Ledger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "ledger service required")
	}
	if params.Payments == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payments service required")
	}
	return &service{
		repo:     params.Repo,
		ledger:   params.Ledger,
		payments: params.Payments,
		guard:    params.Guard,
		metrics:  params.Metrics,
		logg:     params.Logger,
	}, nil
}

// Process runs the pipeline: parse, paid filter, dedup insert, profile
// resolution, grant derivation, apply. The dedup row is inserted before the
// email check, so a replay of an incomplete notification answers duplicate
// instead of flapping between ignored reasons.
func (s *service) Process(ctx context.Context, rawBody []byte) (*Outcome, error) {
	s.metrics.IncReceived(Provider)

	event, err := Parse(rawBody)
	if err != nil {
		return s.ignored(ctx, &Outcome{Ignored: true, Reason: "invalid_payload"}), nil
	}

	if !event.Paid() {
		return s.ignored(ctx, &Outcome{Ignored: true, Status: event.Status}), nil
	}

	if event.TxID == "" {
		return s.ignored(ctx, &Outcome{Ignored: true, Reason: "missing_tx_id"}), nil
	}

	if !s.guard.CheckAndMark(ctx, event.TxID) {
		s.metrics.IncOutcome(Provider, OutcomeDuplicate)
		return &Outcome{Duplicate: true}, nil
	}

	record := &models.PaymentEvent{
		Provider:     Provider,
		ProviderTxID: event.TxID,
		Status:       event.Status,
		Description:  event.Description,
		AmountCents:  event.AmountCents,
		RawPayload:   event.Raw,
	}
	if event.Email != "" {
		email := event.Email
		record.Email = &email
	}
	if err := s.repo.Insert(ctx, record); err != nil {
		if db.IsUniqueViolation(err, models.PaymentEventUniqueConstraint) {
			s.metrics.IncOutcome(Provider, OutcomeDuplicate)
			return &Outcome{Duplicate: true}, nil
		}
		// nothing durable yet; let the gateway retry
		s.guard.Release(ctx, event.TxID)
		s.metrics.IncOutcome(Provider, OutcomeError)
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store payment event")
	}

	if event.Email == "" {
		return s.ignored(ctx, &Outcome{Ignored: true, Reason: "missing_email"}), nil
	}

	profile, err := s.ledger.FindByEmail(ctx, event.Email)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return s.ignored(ctx, &Outcome{Ignored: true, Reason: "profile_not_found"}), nil
		}
		s.metrics.IncOutcome(Provider, OutcomeError)
		return nil, err
	}

	grant := s.payments.DeriveGrant(event.Description)
	if grant.Zero() {
		return s.ignored(ctx, &Outcome{Ignored: true, Reason: "no_rule_matched"}), nil
	}

	if grant.Credits > 0 {
		if _, err := s.ledger.Credit(ctx, profile.ID, grant.Credits, "payevo "+event.TxID); err != nil {
			s.metrics.IncOutcome(Provider, OutcomeError)
			return nil, err
		}
		if err := s.repo.SetCreditsApplied(ctx, record.ID, grant.Credits); err != nil {
			// grant already landed; backfill failure is log-only
			if s.logg != nil {
				s.logg.Error(ctx, "payevo.backfill_failed", err)
			}
		}
	}
	if grant.ActivatePro {
		if err := s.ledger.SetPlan(ctx, profile.ID, enums.PlanPro, enums.SubscriptionStatusActive); err != nil {
			s.metrics.IncOutcome(Provider, OutcomeError)
			return nil, err
		}
	}

	s.metrics.IncOutcome(Provider, OutcomeApplied)
	return &Outcome{
		Applied:        true,
		Email:          event.Email,
		CreditsApplied: grant.Credits,
	}, nil
}

func (s *service) ignored(ctx context.Context, outcome *Outcome) *Outcome {
	s.metrics.IncOutcome(Provider, OutcomeIgnored)
	if s.logg != nil {
		reason := outcome.Reason
		if reason == "" {
			reason = "status " + outcome.Status
		}
		s.logg.Info(s.logg.WithField(ctx, "reason", reason), "payevo.ignored")
	}
	return outcome
}
