package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/velocityfibre/fibrefield/internal/approval"
	"github.com/velocityfibre/fibrefield/internal/capture"
	"github.com/velocityfibre/fibrefield/internal/config"
	"github.com/velocityfibre/fibrefield/internal/database"
	"github.com/velocityfibre/fibrefield/internal/fieldops"
	"github.com/velocityfibre/fibrefield/internal/models"
	"github.com/velocityfibre/fibrefield/internal/stats"
	"github.com/velocityfibre/fibrefield/internal/storage"
	"github.com/velocityfibre/fibrefield/internal/sync"
	"github.com/velocityfibre/fibrefield/internal/utils"
	"github.com/velocityfibre/fibrefield/internal/websocket"
)

func newTestRouter(t *testing.T) (*Router, *database.DB) {
	t.Helper()

	db, err := database.OpenTest()
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	cfg := &config.Config{
		JWTSecret: "test-secret",
		GPS: config.GPSConfig{
			AccuracyThresholdM:  20,
			MaxDistanceFromPole: 500,
			DuplicateToleranceM: 10,
		},
		Sync: config.SyncConfig{
			BatchSize:     5,
			BatchPause:    time.Millisecond,
			RetryDelay:    30 * time.Second,
			MaxRetries:    3,
			DrainInterval: time.Hour,
		},
	}

	blobs, err := storage.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create blob store: %v", err)
	}

	captures := capture.NewService(db, cfg.GPS, time.Hour)
	photos := capture.NewPhotoManager(captures, blobs, nil)
	appr := approval.NewService(db, captures, photos, cfg.GPS)
	st := stats.NewService(db)
	queue := sync.NewQueue(db, cfg.Sync.MaxRetries)
	engine := sync.NewEngine(db, queue, sync.NewRemoteClient("http://localhost:0"), cfg.Sync)
	hub := websocket.NewHub()
	go hub.Run()

	ops := fieldops.New(captures, photos, appr, st, queue, hub)
	return NewRouter(db, ops, engine, hub, nil, cfg), db
}

func seedTechnician(t *testing.T, db *database.DB, role string) string {
	t.Helper()
	hash, err := utils.HashPassword("fibre-pass")
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}
	user := models.UserAuth{
		Username: role + "-user",
		Email:    role + "@velocityfibre.co.za",
		Password: hash,
		Role:     role,
		IsActive: true,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to seed user: %v", err)
	}
	access, _, err := utils.GenerateTokens(&user, "test-secret")
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}
	return access
}

func TestHealthEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Health response is not JSON: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("Expected status ok, got %v", body["status"])
	}
}

func TestAPIRequiresToken(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/captures", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Missing token should get 401, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/captures", nil)
	req.Header.Set("Authorization", "Bearer not-a-real-token")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Garbage token should get 401, got %d", rec.Code)
	}
}

func TestRegisterLoginCaptureFlow(t *testing.T) {
	router, db := newTestRouter(t)

	// Register
	regBody, _ := json.Marshal(map[string]string{
		"username": "thabo",
		"password": "fibre-pass",
		"email":    "thabo@velocityfibre.co.za",
		"name":     "Thabo M",
	})
	req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewReader(regBody))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Register failed: %d %s", rec.Code, rec.Body.String())
	}

	// Login
	loginBody, _ := json.Marshal(map[string]string{
		"email":    "thabo@velocityfibre.co.za",
		"password": "fibre-pass",
	})
	req = httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(loginBody))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("Login failed: %d %s", rec.Code, rec.Body.String())
	}
	var loginResp struct {
		Tokens struct {
			AccessToken string `json:"accessToken"`
		} `json:"tokens"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &loginResp); err != nil {
		t.Fatalf("Login response is not JSON: %v", err)
	}
	if loginResp.Tokens.AccessToken == "" {
		t.Fatal("Login should return an access token")
	}

	// Create a capture against a seeded pole with the fresh token
	lat, lon := -26.2041, 28.0473
	pole := models.Pole{PoleNumber: "LAW.P.B167", ProjectID: "PRJ-1", Status: "planted", Latitude: &lat, Longitude: &lon}
	if err := db.Create(&pole).Error; err != nil {
		t.Fatalf("Failed to seed pole: %v", err)
	}

	capBody, _ := json.Marshal(map[string]string{
		"poleNumber":   "LAW.P.B167",
		"projectId":    "PRJ-1",
		"technicianId": "thabo",
	})
	req = httptest.NewRequest(http.MethodPost, "/api/captures", bytes.NewReader(capBody))
	req.Header.Set("Authorization", "Bearer "+loginResp.Tokens.AccessToken)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Capture create failed: %d %s", rec.Code, rec.Body.String())
	}
	var created models.Capture
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("Capture response is not JSON: %v", err)
	}
	if created.PoleNumber != "LAW.P.B167" {
		t.Errorf("Capture pole wrong: %q", created.PoleNumber)
	}

	// The mutation must land in the outbox
	var queued int64
	db.Model(&models.SyncQueueItem{}).Where("capture_id = ?", created.ID).Count(&queued)
	if queued != 1 {
		t.Errorf("Expected 1 outbox entry for the new capture, got %d", queued)
	}
}

func TestApprovalRoutesNeedAdminRole(t *testing.T) {
	router, db := newTestRouter(t)

	techToken := seedTechnician(t, db, "technician")
	req := httptest.NewRequest(http.MethodGet, "/api/approvals/pending", nil)
	req.Header.Set("Authorization", "Bearer "+techToken)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("Technician should get 403 on approvals, got %d", rec.Code)
	}

	adminToken := seedTechnician(t, db, "admin")
	req = httptest.NewRequest(http.MethodGet, "/api/approvals/pending", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("Admin should reach approvals, got %d: %s", rec.Code, rec.Body.String())
	}
}
