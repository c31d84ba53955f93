package sync

import (
	"context"
	"fmt"
	stdsync "sync"
	"testing"
	"time"

	"github.com/velocityfibre/fibrefield/internal/config"
	"github.com/velocityfibre/fibrefield/internal/database"
	"github.com/velocityfibre/fibrefield/internal/models"
)

// fakePusher records push order and fails on demand
type fakePusher struct {
	mu    stdsync.Mutex
	calls []string // item IDs in push order
	fail  func(item *models.SyncQueueItem) error
}

func (f *fakePusher) Push(ctx context.Context, item *models.SyncQueueItem) error {
	f.mu.Lock()
	f.calls = append(f.calls, item.ID)
	f.mu.Unlock()
	if f.fail != nil {
		return f.fail(item)
	}
	return nil
}

func (f *fakePusher) pushed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

func testSyncConfig() config.SyncConfig {
	return config.SyncConfig{
		BatchSize:     5,
		BatchPause:    time.Millisecond,
		RetryDelay:    30 * time.Second,
		MaxRetries:    3,
		DrainInterval: time.Hour,
	}
}

func newTestEngine(t *testing.T, pusher Pusher) (*Engine, *Queue, *database.DB) {
	t.Helper()
	db, err := database.OpenTest()
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	queue := NewQueue(db, 3)
	return NewEngine(db, queue, pusher, testSyncConfig()), queue, db
}

func seedCapture(t *testing.T, db *database.DB, id string) {
	t.Helper()
	c := models.Capture{ID: id, PoleNumber: "LAW.P.B167", Status: models.CaptureStatusCompleted, SyncStatus: models.SyncStatePending}
	if err := db.Create(&c).Error; err != nil {
		t.Fatalf("Failed to seed capture %s: %v", id, err)
	}
}

func seedQueueItem(t *testing.T, db *database.DB, id, captureID string, createdAt time.Time) {
	t.Helper()
	item := models.SyncQueueItem{
		ID:         id,
		CaptureID:  captureID,
		Action:     models.SyncActionUpdate,
		Status:     models.QueueStatusPending,
		MaxRetries: 3,
		CreatedAt:  createdAt,
	}
	if err := db.Create(&item).Error; err != nil {
		t.Fatalf("Failed to seed queue item %s: %v", id, err)
	}
}

func TestDrainBatchesOfFive(t *testing.T) {
	pusher := &fakePusher{}
	engine, _, db := newTestEngine(t, pusher)

	base := time.Now().UTC().Add(-time.Minute)
	for i := 0; i < 12; i++ {
		captureID := fmt.Sprintf("HD-%d", i)
		seedCapture(t, db, captureID)
		seedQueueItem(t, db, fmt.Sprintf("q-%02d", i), captureID, base.Add(time.Duration(i)*time.Second))
	}

	res, err := engine.Drain(context.Background())
	if err != nil {
		t.Fatalf("Drain failed: %v", err)
	}

	// 12 items at batch size 5: 5 + 5 + 2
	if res.Batches != 3 {
		t.Errorf("Expected 3 batches, got %d", res.Batches)
	}
	if res.Processed != 12 || res.Succeeded != 12 {
		t.Errorf("Expected 12/12 processed/succeeded, got %d/%d", res.Processed, res.Succeeded)
	}
	if len(pusher.pushed()) != 12 {
		t.Errorf("Expected 12 pushes, got %d", len(pusher.pushed()))
	}

	// Every item completed, every capture marked synced
	var pendingCount int64
	db.Model(&models.SyncQueueItem{}).Where("status <> ?", models.QueueStatusCompleted).Count(&pendingCount)
	if pendingCount != 0 {
		t.Errorf("All items should be completed, %d are not", pendingCount)
	}
	var unsynced int64
	db.Model(&models.Capture{}).Where("sync_status <> ?", models.SyncStateSynced).Count(&unsynced)
	if unsynced != 0 {
		t.Errorf("All captures should be synced, %d are not", unsynced)
	}
}

func TestDrainSerializesItemsPerCapture(t *testing.T) {
	pusher := &fakePusher{}
	engine, _, db := newTestEngine(t, pusher)

	base := time.Now().UTC().Add(-time.Minute)
	seedCapture(t, db, "HD-1")
	// Three mutations for the same capture inside one batch
	seedQueueItem(t, db, "q-create", "HD-1", base)
	seedQueueItem(t, db, "q-update", "HD-1", base.Add(time.Second))
	seedQueueItem(t, db, "q-delete", "HD-1", base.Add(2*time.Second))

	if _, err := engine.Drain(context.Background()); err != nil {
		t.Fatalf("Drain failed: %v", err)
	}

	calls := pusher.pushed()
	if len(calls) != 3 {
		t.Fatalf("Expected 3 pushes, got %d", len(calls))
	}
	want := []string{"q-create", "q-update", "q-delete"}
	for i, id := range want {
		if calls[i] != id {
			t.Fatalf("Same-capture items must push in queue order, got %v", calls)
		}
	}
}

func TestDrainRetryBackoffAndExhaustion(t *testing.T) {
	pusher := &fakePusher{fail: func(item *models.SyncQueueItem) error {
		return &SyncError{StatusCode: 503, Err: fmt.Errorf("upstream unavailable")}
	}}
	engine, queue, db := newTestEngine(t, pusher)

	seedCapture(t, db, "HD-1")
	seedQueueItem(t, db, "q-1", "HD-1", time.Now().UTC().Add(-time.Minute))

	// Attempt 1: scheduled for retry with a future NextRetryAt
	res, err := engine.Drain(context.Background())
	if err != nil {
		t.Fatalf("Drain failed: %v", err)
	}
	if res.Retried != 1 {
		t.Errorf("Expected one retried item, got %d", res.Retried)
	}

	item, err := queue.Get("q-1")
	if err != nil {
		t.Fatalf("Failed to load item: %v", err)
	}
	if item.Status != models.QueueStatusRetrying {
		t.Errorf("Expected retrying, got %s", item.Status)
	}
	if item.Attempts != 1 {
		t.Errorf("Expected 1 attempt, got %d", item.Attempts)
	}
	if item.NextRetryAt == nil || !item.NextRetryAt.After(time.Now().UTC().Add(20*time.Second)) {
		t.Errorf("NextRetryAt should be ~30s out, got %v", item.NextRetryAt)
	}
	if item.LastError == nil {
		t.Error("LastError should record the failure")
	}

	// An item waiting for its retry time is not due
	due, _ := queue.Due()
	if len(due) != 0 {
		t.Fatalf("Backoff item should not be due yet, got %d", len(due))
	}

	// Force the retry due, run attempts 2 and 3
	for attempt := 2; attempt <= 3; attempt++ {
		past := time.Now().UTC().Add(-time.Second)
		db.Model(&models.SyncQueueItem{}).Where("id = ?", "q-1").Update("next_retry_at", past)
		if _, err := engine.Drain(context.Background()); err != nil {
			t.Fatalf("Drain failed: %v", err)
		}
		item, _ = queue.Get("q-1")
		if item.Attempts != attempt {
			t.Fatalf("Expected %d attempts, got %d", attempt, item.Attempts)
		}
	}

	// Attempt 3 of 3 is the last retry: terminal failure
	if item.Status != models.QueueStatusFailed {
		t.Errorf("Item should be failed after max retries, got %s", item.Status)
	}
	if !item.Terminal() {
		t.Error("A failed item is terminal")
	}

	var c models.Capture
	db.Where("id = ?", "HD-1").First(&c)
	if c.SyncStatus != models.SyncStateError {
		t.Errorf("Capture should be marked sync-error, got %s", c.SyncStatus)
	}

	// A terminal item is never picked up again
	due, _ = queue.Due()
	if len(due) != 0 {
		t.Errorf("Failed items must not be due, got %d", len(due))
	}
}

func TestDrainNothingDue(t *testing.T) {
	engine, _, _ := newTestEngine(t, &fakePusher{})

	res, err := engine.Drain(context.Background())
	if err != nil {
		t.Fatalf("Drain failed: %v", err)
	}
	if res.Batches != 0 || res.Processed != 0 {
		t.Errorf("Empty queue should drain to zero, got %+v", res)
	}
}

func TestEngineStartStop(t *testing.T) {
	engine, _, _ := newTestEngine(t, &fakePusher{})

	if err := engine.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := engine.Start(); err == nil {
		t.Error("Second Start should fail while running")
	}
	engine.Stop()

	status := engine.Status()
	if status["isRunning"].(bool) {
		t.Error("Engine should report stopped")
	}
}
