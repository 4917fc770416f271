package highlights

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/brendonia/brendonia-backend/internal/videos"
	"github.com/brendonia/brendonia-backend/pkg/db"
	"github.com/brendonia/brendonia-backend/pkg/db/models"
	"github.com/brendonia/brendonia-backend/pkg/enums"
	"github.com/brendonia/brendonia-backend/pkg/openai"
	"github.com/brendonia/brendonia-backend/pkg/transcript"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type stubTranscript struct {
	items []transcript.Item
	err   error
}

func (s *stubTranscript) Fetch(context.Context, string) ([]transcript.Item, error) {
	return s.items, s.err
}

type stubGenerator struct {
	moments []openai.Moment
	err     error
	gotText string
}

func (s *stubGenerator) TopMoments(_ context.Context, text string) ([]openai.Moment, error) {
	s.gotText = text
	return s.moments, s.err
}

func transcriptItems(n int) []transcript.Item {
	items := make([]transcript.Item, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, transcript.Item{
			Text:     fmt.Sprintf("fala numero %d", i),
			StartSec: i * 2,
			DurSec:   2,
		})
	}
	return items
}

func tenMoments() []openai.Moment {
	moments := make([]openai.Moment, 0, openai.MomentCount)
	for i := 1; i <= openai.MomentCount; i++ {
		score := float64(100 - i)
		moments = append(moments, openai.Moment{
			Idx:      i,
			StartSec: i * 10,
			EndSec:   i*10 + 30,
			Title:    fmt.Sprintf("Momento %d", i),
			Hook:     "gancho",
			Score:    &score,
		})
	}
	return moments
}

func newTestEnv(t *testing.T) (*gorm.DB, videos.Repository) {
	t.Helper()
	dsn := "file:highlights_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := conn.AutoMigrate(&models.Profile{}, &models.VideoJob{}, &models.Moment{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn, videos.NewRepository(conn)
}

func seedJob(t *testing.T, conn *gorm.DB, status enums.VideoStatus) *models.VideoJob {
	t.Helper()
	job := &models.VideoJob{
		ID:               uuid.New(),
		UserID:           uuid.New(),
		Title:            "YouTube video",
		SourceType:       "youtube",
		SourceURL:        "https://youtu.be/dQw4w9WgXcQ",
		RequestedMinutes: 2,
		Status:           status,
	}
	if err := conn.Create(job).Error; err != nil {
		t.Fatalf("seed job: %v", err)
	}
	return job
}

func newService(t *testing.T, conn *gorm.DB, repo videos.Repository, ts TranscriptClient, gen MomentGenerator) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		DB:         db.NewWithConn(conn),
		Videos:     repo,
		Transcript: ts,
		Generator:  gen,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestProcessJob_GeneratesMomentsAndMarksDone(t *testing.T) {
	conn, repo := newTestEnv(t)
	job := seedJob(t, conn, enums.VideoStatusPending)
	gen := &stubGenerator{moments: tenMoments()}

	svc := newService(t, conn, repo, &stubTranscript{items: transcriptItems(30)}, gen)

	if err := svc.ProcessJob(context.Background(), job.ID); err != nil {
		t.Fatalf("ProcessJob error: %v", err)
	}

	var updated models.VideoJob
	if err := conn.First(&updated, "id = ?", job.ID).Error; err != nil {
		t.Fatalf("reload job: %v", err)
	}
	if updated.Status != enums.VideoStatusDone {
		t.Fatalf("expected done, got %s", updated.Status)
	}
	if updated.ProcessedAt == nil {
		t.Fatal("processed_at should be set")
	}

	var moments []models.Moment
	if err := conn.Where("video_id = ?", job.ID).Order("idx ASC").Find(&moments).Error; err != nil {
		t.Fatalf("load moments: %v", err)
	}
	if len(moments) != openai.MomentCount {
		t.Fatalf("expected %d moments, got %d", openai.MomentCount, len(moments))
	}
	if moments[0].Hook == nil || *moments[0].Hook != "gancho" {
		t.Fatalf("hook not persisted: %+v", moments[0])
	}

	if !strings.Contains(gen.gotText, "[00:00:00] fala numero 0") {
		t.Fatalf("transcript text missing timestamps: %q", gen.gotText[:80])
	}
}

func TestProcessJob_ReplacesPreviousBatch(t *testing.T) {
	conn, repo := newTestEnv(t)
	job := seedJob(t, conn, enums.VideoStatusPending)

	// a stale batch from an earlier run
	for i := 1; i <= 10; i++ {
		if err := conn.Create(&models.Moment{
			ID:       uuid.New(),
			VideoID:  job.ID,
			Idx:      i,
			StartSec: 1000 + i,
			EndSec:   1100 + i,
			Title:    "stale",
		}).Error; err != nil {
			t.Fatalf("seed stale moment: %v", err)
		}
	}

	svc := newService(t, conn, repo, &stubTranscript{items: transcriptItems(30)}, &stubGenerator{moments: tenMoments()})
	if err := svc.ProcessJob(context.Background(), job.ID); err != nil {
		t.Fatalf("ProcessJob error: %v", err)
	}

	var moments []models.Moment
	if err := conn.Where("video_id = ?", job.ID).Find(&moments).Error; err != nil {
		t.Fatalf("load moments: %v", err)
	}
	if len(moments) != openai.MomentCount {
		t.Fatalf("expected exactly one batch of %d, got %d", openai.MomentCount, len(moments))
	}
	for _, m := range moments {
		if m.Title == "stale" {
			t.Fatalf("stale moment survived the replace: %+v", m)
		}
	}
}

func TestProcessJob_ClaimIsSingleWinner(t *testing.T) {
	conn, repo := newTestEnv(t)
	job := seedJob(t, conn, enums.VideoStatusProcessing)

	gen := &stubGenerator{moments: tenMoments()}
	svc := newService(t, conn, repo, &stubTranscript{items: transcriptItems(30)}, gen)

	// job already claimed elsewhere: ProcessJob must not touch it
	if err := svc.ProcessJob(context.Background(), job.ID); err != nil {
		t.Fatalf("ProcessJob error: %v", err)
	}
	if gen.gotText != "" {
		t.Fatal("generator must not run without winning the claim")
	}

	var updated models.VideoJob
	if err := conn.First(&updated, "id = ?", job.ID).Error; err != nil {
		t.Fatalf("reload job: %v", err)
	}
	if updated.Status != enums.VideoStatusProcessing {
		t.Fatalf("status must be untouched, got %s", updated.Status)
	}
}

func TestProcessJob_DoneJobIsNotReprocessed(t *testing.T) {
	conn, repo := newTestEnv(t)
	job := seedJob(t, conn, enums.VideoStatusDone)

	gen := &stubGenerator{moments: tenMoments()}
	svc := newService(t, conn, repo, &stubTranscript{items: transcriptItems(30)}, gen)

	if err := svc.ProcessJob(context.Background(), job.ID); err != nil {
		t.Fatalf("ProcessJob error: %v", err)
	}
	if gen.gotText != "" {
		t.Fatal("done jobs must not be reprocessed")
	}
}

func TestProcessJob_ShortTranscriptMarksError(t *testing.T) {
	conn, repo := newTestEnv(t)
	job := seedJob(t, conn, enums.VideoStatusPending)

	svc := newService(t, conn, repo, &stubTranscript{items: transcriptItems(5)}, &stubGenerator{moments: tenMoments()})
	if err := svc.ProcessJob(context.Background(), job.ID); err != nil {
		t.Fatalf("ProcessJob should ack domain failures, got %v", err)
	}

	var updated models.VideoJob
	if err := conn.First(&updated, "id = ?", job.ID).Error; err != nil {
		t.Fatalf("reload job: %v", err)
	}
	if updated.Status != enums.VideoStatusError {
		t.Fatalf("expected error status, got %s", updated.Status)
	}
	if updated.ErrorMessage == nil || !strings.Contains(*updated.ErrorMessage, "TRANSCRIPT_TOO_SHORT") {
		t.Fatalf("unexpected error message: %v", updated.ErrorMessage)
	}
}

func TestProcessJob_GeneratorFailureMarksError(t *testing.T) {
	conn, repo := newTestEnv(t)
	job := seedJob(t, conn, enums.VideoStatusPending)

	svc := newService(t, conn, repo, &stubTranscript{items: transcriptItems(30)}, &stubGenerator{err: errors.New("model unavailable")})
	if err := svc.ProcessJob(context.Background(), job.ID); err != nil {
		t.Fatalf("ProcessJob should ack domain failures, got %v", err)
	}

	var updated models.VideoJob
	if err := conn.First(&updated, "id = ?", job.ID).Error; err != nil {
		t.Fatalf("reload job: %v", err)
	}
	if updated.Status != enums.VideoStatusError {
		t.Fatalf("expected error status, got %s", updated.Status)
	}
}

func TestProcessJob_InvalidURLMarksError(t *testing.T) {
	conn, repo := newTestEnv(t)
	job := seedJob(t, conn, enums.VideoStatusPending)
	if err := conn.Model(&models.VideoJob{}).Where("id = ?", job.ID).
		UpdateColumn("source_url", "https://example.com/not-youtube").Error; err != nil {
		t.Fatalf("update url: %v", err)
	}

	svc := newService(t, conn, repo, &stubTranscript{items: transcriptItems(30)}, &stubGenerator{moments: tenMoments()})
	if err := svc.ProcessJob(context.Background(), job.ID); err != nil {
		t.Fatalf("ProcessJob should ack domain failures, got %v", err)
	}

	var updated models.VideoJob
	if err := conn.First(&updated, "id = ?", job.ID).Error; err != nil {
		t.Fatalf("reload job: %v", err)
	}
	if updated.ErrorMessage == nil || *updated.ErrorMessage != "INVALID_YOUTUBE_URL" {
		t.Fatalf("unexpected error message: %v", updated.ErrorMessage)
	}
}

func TestProcessJob_UnknownJobIsAcked(t *testing.T) {
	conn, repo := newTestEnv(t)
	svc := newService(t, conn, repo, &stubTranscript{}, &stubGenerator{})

	if err := svc.ProcessJob(context.Background(), uuid.New()); err != nil {
		t.Fatalf("unknown job should be a no-op, got %v", err)
	}
}

func TestSecToTimestamp(t *testing.T) {
	cases := map[int]string{
		0:    "00:00:00",
		59:   "00:00:59",
		61:   "00:01:01",
		3661: "01:01:01",
		-5:   "00:00:00",
	}
	for sec, want := range cases {
		if got := secToTimestamp(sec); got != want {
			t.Fatalf("secToTimestamp(%d) = %q, want %q", sec, got, want)
		}
	}
}
