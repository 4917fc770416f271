package payevo

import (
	"context"
	"fmt"
	"testing"

	"github.com/brendonia/brendonia-backend/internal/ledger"
	"github.com/brendonia/brendonia-backend/internal/payments"
	"github.com/brendonia/brendonia-backend/pkg/config"
	"github.com/brendonia/brendonia-backend/pkg/db"
	"github.com/brendonia/brendonia-backend/pkg/db/models"
	"github.com/brendonia/brendonia-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	dsn := "file:payevo_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := conn.AutoMigrate(
		&models.Profile{},
		&models.CreditLedgerEntry{},
		&models.PaymentEvent{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	ledgerSvc, err := ledger.NewService(ledger.ServiceParams{DB: db.NewWithConn(conn)})
	if err != nil {
		t.Fatalf("new ledger service: %v", err)
	}
	paymentsSvc, err := payments.NewService(payments.ServiceParams{Payevo: config.PayevoConfig{}})
	if err != nil {
		t.Fatalf("new payments service: %v", err)
	}

	svc, err := NewService(ServiceParams{
		Repo:     NewRepository(conn),
		Ledger:   ledgerSvc,
		Payments: paymentsSvc,
		Guard:    NewGuard(nil),
	})
	if err != nil {
		t.Fatalf("new webhook service: %v", err)
	}
	return svc, conn
}

func seedProfile(t *testing.T, conn *gorm.DB, email string, credits int) *models.Profile {
	t.Helper()
	profile := &models.Profile{
		ID:                 uuid.New(),
		Email:              email,
		Plan:               enums.PlanFree,
		SubscriptionStatus: enums.SubscriptionStatusInactive,
		Credits:            credits,
	}
	if err := conn.Create(profile).Error; err != nil {
		t.Fatalf("seed profile: %v", err)
	}
	return profile
}

func paidBody(txID, email, description string) []byte {
	return []byte(fmt.Sprintf(
		`{"data":{"id":%q,"status":"paid","customer":{"email":%q},"description":%q,"amount":"49.90"}}`,
		txID, email, description,
	))
}

func TestProcess_AppliesCredits(t *testing.T) {
	svc, conn := newTestService(t)
	profile := seedProfile(t, conn, "buyer@example.com", 10)

	outcome, err := svc.Process(context.Background(), paidBody("tx-1", "buyer@example.com", "150 creditos"))
	if err != nil {
		t.Fatalf("Process error: %v", err)
	}
	if !outcome.Applied || outcome.CreditsApplied != 150 || outcome.Email != "buyer@example.com" {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}

	var current models.Profile
	if err := conn.First(&current, "id = ?", profile.ID).Error; err != nil {
		t.Fatalf("reload profile: %v", err)
	}
	if current.Credits != 160 {
		t.Fatalf("expected 160 credits, got %d", current.Credits)
	}

	var event models.PaymentEvent
	if err := conn.First(&event, "provider_tx_id = ?", "tx-1").Error; err != nil {
		t.Fatalf("load payment event: %v", err)
	}
	if event.CreditsApplied == nil || *event.CreditsApplied != 150 {
		t.Fatalf("credits_applied not backfilled: %+v", event)
	}
	if event.AmountCents == nil || *event.AmountCents != 4990 {
		t.Fatalf("amount not captured in cents: %+v", event)
	}
}

func TestProcess_ActivatesProPlan(t *testing.T) {
	svc, conn := newTestService(t)
	profile := seedProfile(t, conn, "buyer@example.com", 0)

	outcome, err := svc.Process(context.Background(), paidBody("tx-pro", "buyer@example.com", "Plano Pro mensal"))
	if err != nil {
		t.Fatalf("Process error: %v", err)
	}
	if !outcome.Applied || outcome.CreditsApplied != 0 {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}

	var current models.Profile
	if err := conn.First(&current, "id = ?", profile.ID).Error; err != nil {
		t.Fatalf("reload profile: %v", err)
	}
	if current.Plan != enums.PlanPro || current.SubscriptionStatus != enums.SubscriptionStatusActive {
		t.Fatalf("pro plan not activated: %+v", current)
	}
}

func TestProcess_ReplayIsDuplicateAndAppliesOnce(t *testing.T) {
	svc, conn := newTestService(t)
	profile := seedProfile(t, conn, "buyer@example.com", 0)
	body := paidBody("tx-replay", "buyer@example.com", "300 creditos")

	first, err := svc.Process(context.Background(), body)
	if err != nil {
		t.Fatalf("first Process error: %v", err)
	}
	if !first.Applied {
		t.Fatalf("first delivery should apply: %+v", first)
	}

	second, err := svc.Process(context.Background(), body)
	if err != nil {
		t.Fatalf("replay Process error: %v", err)
	}
	if !second.Duplicate {
		t.Fatalf("replay should be duplicate: %+v", second)
	}

	var current models.Profile
	if err := conn.First(&current, "id = ?", profile.ID).Error; err != nil {
		t.Fatalf("reload profile: %v", err)
	}
	if current.Credits != 300 {
		t.Fatalf("credits must be granted exactly once, got %d", current.Credits)
	}
}

func TestProcess_NonPaidIgnoredWithoutRow(t *testing.T) {
	svc, conn := newTestService(t)
	seedProfile(t, conn, "buyer@example.com", 0)

	body := []byte(`{"id":"tx-pending","status":"PENDING","customer":{"email":"buyer@example.com"},"description":"150 creditos"}`)
	outcome, err := svc.Process(context.Background(), body)
	if err != nil {
		t.Fatalf("Process error: %v", err)
	}
	if !outcome.Ignored || outcome.Status != "pending" {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}

	var count int64
	if err := conn.Model(&models.PaymentEvent{}).Count(&count).Error; err != nil {
		t.Fatalf("count events: %v", err)
	}
	if count != 0 {
		t.Fatalf("non-paid statuses must not create event rows, got %d", count)
	}
}

func TestProcess_MissingEmailRecordsRowThenDuplicates(t *testing.T) {
	svc, conn := newTestService(t)

	body := []byte(`{"id":"tx-noemail","status":"paid","description":"150 creditos"}`)
	outcome, err := svc.Process(context.Background(), body)
	if err != nil {
		t.Fatalf("Process error: %v", err)
	}
	if !outcome.Ignored || outcome.Reason != "missing_email" {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}

	var count int64
	if err := conn.Model(&models.PaymentEvent{}).Count(&count).Error; err != nil {
		t.Fatalf("count events: %v", err)
	}
	if count != 1 {
		t.Fatalf("tx id present means the dedup row is recorded, got %d rows", count)
	}

	replay, err := svc.Process(context.Background(), body)
	if err != nil {
		t.Fatalf("replay Process error: %v", err)
	}
	if !replay.Duplicate {
		t.Fatalf("replay of recorded tx should be duplicate: %+v", replay)
	}
}

func TestProcess_UnknownProfileIgnored(t *testing.T) {
	svc, conn := newTestService(t)

	outcome, err := svc.Process(context.Background(), paidBody("tx-ghost", "ghost@example.com", "150 creditos"))
	if err != nil {
		t.Fatalf("Process error: %v", err)
	}
	if !outcome.Ignored || outcome.Reason != "profile_not_found" {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}

	// row stays for auditability
	var count int64
	if err := conn.Model(&models.PaymentEvent{}).Count(&count).Error; err != nil {
		t.Fatalf("count events: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected event row kept, got %d", count)
	}
}

func TestProcess_NoRuleMatched(t *testing.T) {
	svc, conn := newTestService(t)
	profile := seedProfile(t, conn, "buyer@example.com", 5)

	outcome, err := svc.Process(context.Background(), paidBody("tx-norule", "buyer@example.com", "Doacao avulsa"))
	if err != nil {
		t.Fatalf("Process error: %v", err)
	}
	if !outcome.Ignored || outcome.Reason != "no_rule_matched" {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}

	var current models.Profile
	if err := conn.First(&current, "id = ?", profile.ID).Error; err != nil {
		t.Fatalf("reload profile: %v", err)
	}
	if current.Credits != 5 {
		t.Fatalf("credits must be untouched, got %d", current.Credits)
	}
}

func TestProcess_MissingTxIDIgnoredWithoutRow(t *testing.T) {
	svc, conn := newTestService(t)
	seedProfile(t, conn, "buyer@example.com", 0)

	body := []byte(`{"status":"paid","customer":{"email":"buyer@example.com"},"description":"150 creditos"}`)
	outcome, err := svc.Process(context.Background(), body)
	if err != nil {
		t.Fatalf("Process error: %v", err)
	}
	if !outcome.Ignored || outcome.Reason != "missing_tx_id" {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}

	var count int64
	if err := conn.Model(&models.PaymentEvent{}).Count(&count).Error; err != nil {
		t.Fatalf("count events: %v", err)
	}
	if count != 0 {
		t.Fatalf("no tx id means no dedup row, got %d", count)
	}
}

func TestProcess_InvalidPayloadIgnored(t *testing.T) {
	svc, _ := newTestService(t)

	outcome, err := svc.Process(context.Background(), []byte("not json"))
	if err != nil {
		t.Fatalf("Process error: %v", err)
	}
	if !outcome.Ignored || outcome.Reason != "invalid_payload" {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
}
