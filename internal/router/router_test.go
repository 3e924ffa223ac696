package router

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/vitalog/internal/db"
	"github.com/vitalog/internal/handler"
	"gorm.io/gorm/logger"
)

func setupTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:vitalog-router-%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := db.Open(db.DriverSQLite, dsn, logger.Default.LogMode(logger.Silent))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})

	return SetupRouter(handler.NewAPI(gdb, handler.Options{}), "test-secret")
}

func TestSetupRouterPing(t *testing.T) {
	r := setupTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
}

func TestSetupRouterGuardsProtectedRoutes(t *testing.T) {
	r := setupTestRouter(t)

	tests := []struct {
		name   string
		method string
		path   string
	}{
		{name: "profile", method: http.MethodGet, path: "/api/profile"},
		{name: "habits", method: http.MethodGet, path: "/api/habits"},
		{name: "day summary", method: http.MethodGet, path: "/api/reports/summary/day/2025-03-01"},
		{name: "dashboard", method: http.MethodGet, path: "/api/reports/dashboard/today"},
		{name: "admin recompute", method: http.MethodPost, path: "/admin/api/recompute"},
		{name: "admin job", method: http.MethodGet, path: "/admin/api/recompute/jobs/abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)

			if rr.Code != http.StatusUnauthorized {
				t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rr.Code)
			}
		})
	}
}

func TestSetupRouterLoginIsPublic(t *testing.T) {
	r := setupTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/login", nil)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d for empty login body, got %d", http.StatusBadRequest, rr.Code)
	}
}
