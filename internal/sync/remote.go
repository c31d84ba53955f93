package sync

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/velocityfibre/fibrefield/internal/models"
)

// SyncError is a retryable remote delivery failure. The engine absorbs it
// into retry state; it only becomes user-visible once retries run out.
type SyncError struct {
	StatusCode int
	Err        error
}

func (e *SyncError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("sync failed: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("sync failed: %v", e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }

// RemoteClient delivers outbox items to the upstream home-drops API
type RemoteClient struct {
	baseURL string
	client  *http.Client
}

// NewRemoteClient creates a client against the upstream base URL
func NewRemoteClient(baseURL string) *RemoteClient {
	return &RemoteClient{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Push delivers one queue item. Non-2xx responses and transport errors
// are returned as retryable SyncErrors.
func (rc *RemoteClient) Push(ctx context.Context, item *models.SyncQueueItem) error {
	var (
		method string
		url    string
		body   io.Reader
	)

	switch item.Action {
	case models.SyncActionCreate:
		method = http.MethodPost
		url = rc.baseURL + "/api/home-drops"
		body = bytes.NewReader(item.Payload)
	case models.SyncActionUpdate:
		method = http.MethodPut
		url = fmt.Sprintf("%s/api/home-drops/%s", rc.baseURL, item.CaptureID)
		body = bytes.NewReader(item.Payload)
	case models.SyncActionDelete:
		method = http.MethodDelete
		url = fmt.Sprintf("%s/api/home-drops/%s", rc.baseURL, item.CaptureID)
	default:
		return fmt.Errorf("unknown sync action %q", item.Action)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := rc.client.Do(req)
	if err != nil {
		return &SyncError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Drain the body so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return &SyncError{StatusCode: resp.StatusCode}
	}
	return nil
}
