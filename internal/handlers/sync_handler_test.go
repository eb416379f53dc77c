package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"grana/internal/middleware"
	"grana/internal/models"
	"grana/internal/services"
	"grana/internal/testutil"
	"grana/internal/validator"
)

func setupSyncRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	validator.Register()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.TeardownTestDB(t, db) })

	handler := NewSyncHandler(services.NewSyncService(db))

	router := gin.New()
	protected := router.Group("/api/v1", middleware.AuthMiddleware())
	protected.GET("/sync", handler.GetState)
	protected.POST("/sync", handler.SaveState)
	return router, db
}

func authedRequest(t *testing.T, method, path, userID string, body []byte) *http.Request {
	t.Helper()
	token, err := middleware.GenerateToken(userID)
	testutil.AssertNoError(t, err)

	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func TestSyncEndpointAuth(t *testing.T) {
	router, _ := setupSyncRouter(t)

	t.Run("missing_token", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/sync", nil))

		if w.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", w.Code)
		}
	})

	t.Run("garbage_token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/sync", nil)
		req.Header.Set("Authorization", "Bearer not-a-token")

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", w.Code)
		}
	})
}

func TestGetStateEndpoint(t *testing.T) {
	router, _ := setupSyncRouter(t)

	t.Run("fresh_user_gets_empty_bundle", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, authedRequest(t, http.MethodGet, "/api/v1/sync", uuid.NewString(), nil))

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body)
		}

		var bundle models.Bundle
		testutil.AssertNoError(t, json.Unmarshal(w.Body.Bytes(), &bundle))
		if len(bundle.Expenses) != 0 || bundle.Expenses == nil {
			t.Errorf("expected an empty expense list, got %+v", bundle.Expenses)
		}
	})
}

func TestSaveStateEndpoint(t *testing.T) {
	router, _ := setupSyncRouter(t)

	t.Run("push_then_pull_round_trip", func(t *testing.T) {
		userID := uuid.NewString()
		pushed := testutil.NewBundle()
		body, err := json.Marshal(pushed)
		testutil.AssertNoError(t, err)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, authedRequest(t, http.MethodPost, "/api/v1/sync", userID, body))
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200 on push, got %d: %s", w.Code, w.Body)
		}

		w = httptest.NewRecorder()
		router.ServeHTTP(w, authedRequest(t, http.MethodGet, "/api/v1/sync", userID, nil))
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200 on pull, got %d: %s", w.Code, w.Body)
		}

		var got models.Bundle
		testutil.AssertNoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		if len(got.Expenses) != 1 || got.Expenses[0].ID != pushed.Expenses[0].ID {
			t.Errorf("expected the pushed expense back, got %+v", got.Expenses)
		}
	})

	t.Run("rejects_invalid_bundle", func(t *testing.T) {
		body := []byte(`{"expensesData":"not-a-list","incomeData":[],"cards":[]}`)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, authedRequest(t, http.MethodPost, "/api/v1/sync", uuid.NewString(), body))

		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d: %s", w.Code, w.Body)
		}

		var resp struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		testutil.AssertNoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		if resp.Error.Code != "INVALID_BUNDLE" {
			t.Errorf("expected INVALID_BUNDLE, got %q", resp.Error.Code)
		}
	})

	t.Run("rejects_missing_collections", func(t *testing.T) {
		body := []byte(`{"expensesData":[]}`)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, authedRequest(t, http.MethodPost, "/api/v1/sync", uuid.NewString(), body))

		if w.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d: %s", w.Code, w.Body)
		}
	})
}
