package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWriteError(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteError(rr, http.StatusBadGateway, "upstream failed")

	if rr.Code != http.StatusBadGateway {
		t.Errorf("Expected 502, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected application/json, got %s", ct)
	}
	var body ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if body.Error != "upstream failed" {
		t.Errorf("Expected error message, got %q", body.Error)
	}
}

func TestRequireMethod(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/analyze", nil)
	rr := httptest.NewRecorder()

	if RequireMethod(rr, req, http.MethodPost) {
		t.Fatal("Expected GET to be rejected")
	}
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", rr.Code)
	}
	if allow := rr.Header().Get("Allow"); allow != "POST" {
		t.Errorf("Expected Allow: POST, got %q", allow)
	}

	rr = httptest.NewRecorder()
	if !RequireMethod(rr, req, http.MethodPost, http.MethodGet) {
		t.Error("Expected GET to be accepted")
	}
}

func TestPathTicker(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/api/chart/AAPL", "AAPL"},
		{"/api/chart/aapl", "AAPL"},
		{"/api/chart/brk.b/", "BRK.B"},
		{"/api/chart/MSFT/extra", "MSFT"},
		{"/api/chart/", ""},
		{"/api/other/AAPL", ""},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, tt.path, nil)
		if got := PathTicker(req, "/api/chart/"); got != tt.want {
			t.Errorf("PathTicker(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
