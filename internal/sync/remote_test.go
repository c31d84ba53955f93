package sync

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/velocityfibre/fibrefield/internal/models"
	"gorm.io/datatypes"
)

func TestRemoteClientPushRoutes(t *testing.T) {
	var gotMethod, gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	rc := NewRemoteClient(server.URL)
	ctx := context.Background()

	cases := []struct {
		action models.SyncAction
		method string
		path   string
	}{
		{models.SyncActionCreate, http.MethodPost, "/api/home-drops"},
		{models.SyncActionUpdate, http.MethodPut, "/api/home-drops/HD-1"},
		{models.SyncActionDelete, http.MethodDelete, "/api/home-drops/HD-1"},
	}
	for _, tc := range cases {
		item := &models.SyncQueueItem{ID: "q-1", CaptureID: "HD-1", Action: tc.action, Payload: datatypes.JSON(`{}`)}
		if err := rc.Push(ctx, item); err != nil {
			t.Fatalf("Push %s failed: %v", tc.action, err)
		}
		if gotMethod != tc.method || gotPath != tc.path {
			t.Errorf("%s routed to %s %s, want %s %s", tc.action, gotMethod, gotPath, tc.method, tc.path)
		}
	}
}

func TestRemoteClientNon2xxIsRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	rc := NewRemoteClient(server.URL)
	item := &models.SyncQueueItem{ID: "q-1", CaptureID: "HD-1", Action: models.SyncActionUpdate, Payload: datatypes.JSON(`{}`)}

	err := rc.Push(context.Background(), item)
	var syncErr *SyncError
	if !errors.As(err, &syncErr) {
		t.Fatalf("Expected SyncError, got %v", err)
	}
	if syncErr.StatusCode != http.StatusBadGateway {
		t.Errorf("Expected status 502, got %d", syncErr.StatusCode)
	}
}

func TestRemoteClientUnknownAction(t *testing.T) {
	rc := NewRemoteClient("http://localhost:0")
	item := &models.SyncQueueItem{ID: "q-1", CaptureID: "HD-1", Action: models.SyncAction("merge")}

	err := rc.Push(context.Background(), item)
	if err == nil {
		t.Fatal("Unknown action should error")
	}
	var syncErr *SyncError
	if errors.As(err, &syncErr) {
		t.Error("Unknown action is a programming error, not a retryable SyncError")
	}
}
