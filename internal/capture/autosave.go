package capture

import (
	"log"
	"sync"
	"time"

	"github.com/velocityfibre/fibrefield/internal/database"
	"github.com/velocityfibre/fibrefield/internal/models"
)

// Autosave owns the per-capture heartbeat tasks. A task is started when a
// capture enters in_progress and is guaranteed-cancelled by the workflow
// exit hook on any transition out, and by Delete. Each tick persists
// last_saved_at for the capture while it is still in_progress.
type Autosave struct {
	mu       sync.Mutex
	db       *database.DB
	interval time.Duration
	tasks    map[string]chan struct{}
}

// NewAutosave creates the autosave manager
func NewAutosave(db *database.DB, interval time.Duration) *Autosave {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Autosave{
		db:       db,
		interval: interval,
		tasks:    make(map[string]chan struct{}),
	}
}

// Start begins the heartbeat for a capture. Idempotent.
func (a *Autosave) Start(captureID string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.tasks[captureID]; ok {
		return
	}

	stop := make(chan struct{})
	a.tasks[captureID] = stop
	go a.run(captureID, stop)
	log.Printf("💾 [Autosave] Started for %s (every %v)", captureID, a.interval)
}

// Stop cancels the heartbeat for a capture. Idempotent.
func (a *Autosave) Stop(captureID string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if stop, ok := a.tasks[captureID]; ok {
		close(stop)
		delete(a.tasks, captureID)
		log.Printf("💾 [Autosave] Stopped for %s", captureID)
	}
}

// StopAll cancels every running task. Called on shutdown.
func (a *Autosave) StopAll() {
	a.mu.Lock()
	defer a.mu.Unlock()

	for id, stop := range a.tasks {
		close(stop)
		delete(a.tasks, id)
	}
}

// Running reports whether a task is active for the capture
func (a *Autosave) Running(captureID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.tasks[captureID]
	return ok
}

func (a *Autosave) run(captureID string, stop chan struct{}) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.heartbeat(captureID)
		case <-stop:
			return
		}
	}
}

func (a *Autosave) heartbeat(captureID string) {
	now := time.Now().UTC()
	res := a.db.Model(&models.Capture{}).
		Where("id = ? AND status = ?", captureID, models.CaptureStatusInProgress).
		Update("last_saved_at", now)
	if res.Error != nil {
		log.Printf("⚠️ [Autosave] Heartbeat failed for %s: %v", captureID, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		// Capture left in_progress or vanished; stop the orphaned task
		a.Stop(captureID)
	}
}
