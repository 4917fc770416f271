package ledger

import (
	"context"
	"errors"
	"strings"

	"github.com/brendonia/brendonia-backend/pkg/db"
	"github.com/brendonia/brendonia-backend/pkg/db/models"
	"github.com/brendonia/brendonia-backend/pkg/enums"
	pkgerrors "github.com/brendonia/brendonia-backend/pkg/errors"
	"github.com/brendonia/brendonia-backend/pkg/metrics"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service owns every mutation of profiles.credits. Balances change only
// through TryDebit, Credit and Refund, each of which writes a matching
// credit_ledger row in the same transaction.
type Service interface {
	GetOrCreateProfile(ctx context.Context, userID uuid.UUID, email string) (*models.Profile, error)
	FindByEmail(ctx context.Context, email string) (*models.Profile, error)
	TryDebit(ctx context.Context, userID uuid.UUID, amount int, reason string) (*models.Profile, error)
	Credit(ctx context.Context, userID uuid.UUID, amount int, reason string) (*models.Profile, error)
	Refund(ctx context.Context, userID uuid.UUID, amount int, reason string) (*models.Profile, error)
	SetPlan(ctx context.Context, userID uuid.UUID, plan enums.Plan, status enums.SubscriptionStatus) error
	History(ctx context.Context, userID uuid.UUID, limit int) ([]models.CreditLedgerEntry, error)
}

// ServiceParams packages the dependencies for the ledger service.
type ServiceParams struct {
	DB      *db.Client
	Repo    Repository
	Metrics *metrics.LedgerMetrics
}

type service struct {
	db      *db.Client
	repo    Repository
	metrics *metrics.LedgerMetrics
}

// NewService wires a ledger service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "database client required")
	}
	repo := params.Repo
	if repo == nil {
		repo = NewRepository(params.DB.DB())
	}
	return &service{
		db:      params.DB,
		repo:    repo,
		metrics: params.Metrics,
	}, nil
}

// GetOrCreateProfile returns the profile for the identity subject, creating
// it lazily with zero credits on the free plan. A create that loses the race
// to a concurrent request falls back to re-reading the winner's row.
func (s *service) GetOrCreateProfile(ctx context.Context, userID uuid.UUID, email string) (*models.Profile, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	email = strings.ToLower(strings.TrimSpace(email))

	profile, err := s.repo.FindByID(ctx, userID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load profile")
	}

	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}

	created := &models.Profile{
		ID:                 userID,
		Email:              email,
		Plan:               enums.PlanFree,
		SubscriptionStatus: enums.SubscriptionStatusInactive,
		Credits:            0,
	}
	if err := s.repo.Create(ctx, created); err != nil {
		if db.IsUniqueViolation(err, "") {
			return s.reloadProfile(ctx, userID)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create profile")
	}
	return created, nil
}

func (s *service) reloadProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	profile, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload profile")
	}
	return profile, nil
}

func (s *service) FindByEmail(ctx context.Context, email string) (*models.Profile, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	profile, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "profile not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find profile by email")
	}
	return profile, nil
}

// TryDebit atomically takes amount credits from the profile. When the
// balance cannot cover the amount it fails with INSUFFICIENT_CREDITS and the
// current balance, leaving the row untouched.
func (s *service) TryDebit(ctx context.Context, userID uuid.UUID, amount int, reason string) (*models.Profile, error) {
	if err := validateMovement(userID, amount); err != nil {
		return nil, err
	}

	var profile *models.Profile
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		affected, err := repo.DebitCredits(ctx, userID, amount)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "debit credits")
		}
		if affected == 0 {
			current, err := repo.FindByID(ctx, userID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeNotFound, "profile not found")
				}
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load profile after debit")
			}
			return pkgerrors.New(pkgerrors.CodeInsufficientCredits, "insufficient credits").
				WithDetails(map[string]any{"credits": current.Credits})
		}

		profile, err = repo.FindByID(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload profile after debit")
		}

		return repo.CreateEntry(ctx, &models.CreditLedgerEntry{
			UserID:       userID,
			Amount:       -amount,
			BalanceAfter: profile.Credits,
			EntryType:    enums.LedgerEntryTypeDebit,
			Reason:       reason,
		})
	})
	if err != nil {
		result := "error"
		if pkgerrors.IsCode(err, pkgerrors.CodeInsufficientCredits) {
			result = "insufficient"
		}
		s.metrics.IncOperation("debit", result)
		return nil, err
	}

	s.metrics.IncOperation("debit", "ok")
	s.metrics.AddCredits("debit", amount)
	return profile, nil
}

// Credit adds purchased credits to the profile.
func (s *service) Credit(ctx context.Context, userID uuid.UUID, amount int, reason string) (*models.Profile, error) {
	return s.applyCredit(ctx, userID, amount, reason, enums.LedgerEntryTypeCredit, "credit")
}

// Refund compensates a debit whose downstream work failed. It is additive
// like Credit but keeps its own entry type for the audit trail.
func (s *service) Refund(ctx context.Context, userID uuid.UUID, amount int, reason string) (*models.Profile, error) {
	return s.applyCredit(ctx, userID, amount, reason, enums.LedgerEntryTypeRefund, "refund")
}

func (s *service) applyCredit(ctx context.Context, userID uuid.UUID, amount int, reason string, entryType enums.LedgerEntryType, op string) (*models.Profile, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if amount < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must not be negative")
	}
	// zero-amount grants are a no-op, not an error
	if amount == 0 {
		profile, err := s.repo.FindByID(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "profile not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load profile")
		}
		return profile, nil
	}

	var profile *models.Profile
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		affected, err := repo.AddCredits(ctx, userID, amount)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "add credits")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "profile not found")
		}

		profile, err = repo.FindByID(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload profile after credit")
		}

		return repo.CreateEntry(ctx, &models.CreditLedgerEntry{
			UserID:       userID,
			Amount:       amount,
			BalanceAfter: profile.Credits,
			EntryType:    entryType,
			Reason:       reason,
		})
	})
	if err != nil {
		s.metrics.IncOperation(op, "error")
		return nil, err
	}

	s.metrics.IncOperation(op, "ok")
	s.metrics.AddCredits(op, amount)
	return profile, nil
}

// SetPlan switches the subscription plan and status.
func (s *service) SetPlan(ctx context.Context, userID uuid.UUID, plan enums.Plan, status enums.SubscriptionStatus) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if !plan.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid plan")
	}
	if !status.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid subscription status")
	}
	if err := s.repo.UpdatePlan(ctx, userID, plan, status); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update plan")
	}
	return nil
}

func (s *service) History(ctx context.Context, userID uuid.UUID, limit int) ([]models.CreditLedgerEntry, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	entries, err := s.repo.ListEntries(ctx, userID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list ledger entries")
	}
	return entries, nil
}

func validateMovement(userID uuid.UUID, amount int) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if amount <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	return nil
}
