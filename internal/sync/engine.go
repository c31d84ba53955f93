package sync

import (
	"context"
	"fmt"
	"log"
	stdsync "sync"
	"time"

	"github.com/velocityfibre/fibrefield/internal/config"
	"github.com/velocityfibre/fibrefield/internal/database"
	"github.com/velocityfibre/fibrefield/internal/models"
)

// Pusher is the remote delivery dependency; satisfied by RemoteClient and
// by test fakes.
type Pusher interface {
	Push(ctx context.Context, item *models.SyncQueueItem) error
}

// DrainResult summarizes one drain pass
type DrainResult struct {
	Batches   int           `json:"batches"`
	Processed int           `json:"processed"`
	Succeeded int           `json:"succeeded"`
	Retried   int           `json:"retried"`
	Failed    int           `json:"failed"`
	Duration  time.Duration `json:"duration"`
}

// Engine drains the outbox in fixed-size batches. Items are taken in
// queue order; within a batch, items for the same capture are serialized
// in a single group while distinct captures sync concurrently, so
// create/update/delete for one capture can never race each other.
type Engine struct {
	mu stdsync.RWMutex

	db     *database.DB
	queue  *Queue
	remote Pusher
	cfg    config.SyncConfig

	isRunning bool
	draining  bool
	lastDrain time.Time
	lastRes   *DrainResult

	stopChan chan struct{}

	// Notify, when set, receives a summary after each drain pass
	Notify func(DrainResult)
}

// NewEngine creates the sync engine over an injected store and pusher
func NewEngine(db *database.DB, queue *Queue, remote Pusher, cfg config.SyncConfig) *Engine {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 5
	}
	return &Engine{
		db:       db,
		queue:    queue,
		remote:   remote,
		cfg:      cfg,
		stopChan: make(chan struct{}),
	}
}

// Start begins the periodic drain loop
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.isRunning {
		return fmt.Errorf("sync engine already running")
	}
	e.isRunning = true

	go e.drainLoop()
	log.Println("🔄 [Sync] Engine started")
	return nil
}

// Stop halts the drain loop. In-flight batch work completes.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.isRunning {
		return
	}
	e.isRunning = false
	close(e.stopChan)
	log.Println("🛑 [Sync] Engine stopped")
}

func (e *Engine) drainLoop() {
	ticker := time.NewTicker(e.cfg.DrainInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), e.cfg.DrainInterval)
			if _, err := e.Drain(ctx); err != nil {
				log.Printf("⚠️ [Sync] Drain error: %v", err)
			}
			cancel()
		case <-e.stopChan:
			return
		}
	}
}

// Drain processes all due queue items. A second concurrent drain is a
// logged no-op. Cancellation is cooperative: ctx is checked between
// batches, so the current batch always finishes.
func (e *Engine) Drain(ctx context.Context) (*DrainResult, error) {
	e.mu.Lock()
	if e.draining {
		e.mu.Unlock()
		log.Println("⏳ [Sync] Drain already in progress, skipping")
		return nil, nil
	}
	e.draining = true
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.draining = false
		e.lastDrain = time.Now().UTC()
		e.mu.Unlock()
	}()

	start := time.Now()
	items, err := e.queue.Due()
	if err != nil {
		return nil, err
	}

	res := &DrainResult{}
	if len(items) == 0 {
		res.Duration = time.Since(start)
		return res, nil
	}

	log.Printf("🔄 [Sync] Draining %d items (batch size %d)", len(items), e.cfg.BatchSize)

	for off := 0; off < len(items); off += e.cfg.BatchSize {
		if off > 0 {
			// Inter-batch pause, also the cancellation point
			select {
			case <-ctx.Done():
				log.Printf("🛑 [Sync] Drain cancelled after %d batches", res.Batches)
				res.Duration = time.Since(start)
				return res, ctx.Err()
			case <-time.After(e.cfg.BatchPause):
			}
		}

		end := off + e.cfg.BatchSize
		if end > len(items) {
			end = len(items)
		}
		e.processBatch(ctx, items[off:end], res)
		res.Batches++
	}

	res.Duration = time.Since(start)
	log.Printf("✅ [Sync] Drain done: %d batches, %d ok, %d retrying, %d failed in %v",
		res.Batches, res.Succeeded, res.Retried, res.Failed, res.Duration)

	e.mu.Lock()
	e.lastRes = res
	notify := e.Notify
	e.mu.Unlock()
	if notify != nil {
		notify(*res)
	}
	return res, nil
}

// processBatch groups the batch's items by capture id and serializes each
// group while groups run concurrently
func (e *Engine) processBatch(ctx context.Context, batch []models.SyncQueueItem, res *DrainResult) {
	groups := make(map[string][]models.SyncQueueItem)
	var order []string
	for _, item := range batch {
		if _, ok := groups[item.CaptureID]; !ok {
			order = append(order, item.CaptureID)
		}
		groups[item.CaptureID] = append(groups[item.CaptureID], item)
	}

	var (
		wg stdsync.WaitGroup
		mu stdsync.Mutex
	)
	for _, captureID := range order {
		group := groups[captureID]
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range group {
				outcome := e.processItem(ctx, &group[i])
				mu.Lock()
				res.Processed++
				switch outcome {
				case outcomeCompleted:
					res.Succeeded++
				case outcomeRetrying:
					res.Retried++
				case outcomeFailed:
					res.Failed++
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
}

type itemOutcome int

const (
	outcomeCompleted itemOutcome = iota
	outcomeRetrying
	outcomeFailed
)

// processItem pushes one item and records the result. Attempts only ever
// increase; an item ends in exactly one of completed or failed.
func (e *Engine) processItem(ctx context.Context, item *models.SyncQueueItem) itemOutcome {
	now := time.Now().UTC()
	item.Attempts++
	item.Status = models.QueueStatusSyncing
	if err := e.db.Model(item).Updates(map[string]interface{}{
		"attempts": item.Attempts,
		"status":   item.Status,
	}).Error; err != nil {
		log.Printf("⚠️ [Sync] Failed to mark %s syncing: %v", item.ID, err)
	}

	pushErr := e.remote.Push(ctx, item)
	if pushErr == nil {
		item.Status = models.QueueStatusCompleted
		item.ProcessedAt = &now
		e.db.Model(item).Updates(map[string]interface{}{
			"status":       item.Status,
			"processed_at": now,
			"last_error":   nil,
		})
		e.markCapture(item.CaptureID, models.SyncStateSynced, &now)
		return outcomeCompleted
	}

	msg := pushErr.Error()
	if item.Attempts < item.MaxRetries {
		next := now.Add(e.cfg.RetryDelay)
		item.Status = models.QueueStatusRetrying
		item.NextRetryAt = &next
		e.db.Model(item).Updates(map[string]interface{}{
			"status":        item.Status,
			"next_retry_at": next,
			"last_error":    msg,
		})
		log.Printf("🔁 [Sync] %s attempt %d/%d failed, retry at %s: %v",
			item.ID, item.Attempts, item.MaxRetries, next.Format(time.RFC3339), pushErr)
		return outcomeRetrying
	}

	item.Status = models.QueueStatusFailed
	e.db.Model(item).Updates(map[string]interface{}{
		"status":     item.Status,
		"last_error": msg,
	})
	e.markCapture(item.CaptureID, models.SyncStateError, nil)
	log.Printf("❌ [Sync] %s failed after %d attempts: %v", item.ID, item.Attempts, pushErr)
	return outcomeFailed
}

func (e *Engine) markCapture(captureID string, state models.SyncState, syncedAt *time.Time) {
	updates := map[string]interface{}{"sync_status": state}
	if syncedAt != nil {
		updates["synced_at"] = *syncedAt
	}
	if err := e.db.Model(&models.Capture{}).Where("id = ?", captureID).
		Updates(updates).Error; err != nil {
		log.Printf("⚠️ [Sync] Failed to mark capture %s %s: %v", captureID, state, err)
	}
}

// Status reports the engine's current state for the admin API
func (e *Engine) Status() map[string]interface{} {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := map[string]interface{}{
		"isRunning":       e.isRunning,
		"drainInProgress": e.draining,
		"lastDrain":       e.lastDrain,
	}
	if e.lastRes != nil {
		out["lastResult"] = e.lastRes
	}
	return out
}
