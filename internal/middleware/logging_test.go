package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLogging_RecordsRequestAndClientID(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantLevel string
	}{
		{"成功はINFO", http.StatusOK, "INFO"},
		{"4xxはWARN", http.StatusConflict, "WARN"},
		{"5xxはERROR", http.StatusBadGateway, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&buf, nil))

			inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})
			handler := NewLoggingMiddleware(logger)(NewClientIdentityMiddleware(CookieConfig{})(inner))

			handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/home/more", nil))

			var entry map[string]any
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				t.Fatalf("ログがJSONではない: %v (%s)", err, buf.String())
			}
			if entry["msg"] != "http_request" {
				t.Errorf("msg = %v", entry["msg"])
			}
			if entry["level"] != tt.wantLevel {
				t.Errorf("level = %v, want %s", entry["level"], tt.wantLevel)
			}
			if entry["method"] != http.MethodPost || entry["path"] != "/api/home/more" {
				t.Errorf("method/path = %v %v", entry["method"], entry["path"])
			}
			if int(entry["status"].(float64)) != tt.status {
				t.Errorf("status = %v, want %d", entry["status"], tt.status)
			}
			if id, _ := entry["client_id"].(string); id == "" {
				t.Error("client_idが記録されていない")
			}
			if _, ok := entry["duration_ms"]; !ok {
				t.Error("duration_msが記録されていない")
			}
		})
	}
}

func TestLogging_DefaultsToStatusOK(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	handler := NewLoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	var entry map[string]any
	json.Unmarshal(buf.Bytes(), &entry)
	if int(entry["status"].(float64)) != http.StatusOK {
		t.Errorf("status = %v, want 200", entry["status"])
	}
	if n, _ := entry["bytes"].(float64); n != 2 {
		t.Errorf("bytes = %v, want 2", entry["bytes"])
	}
	if _, ok := entry["client_id"]; ok {
		t.Error("識別前のリクエストにclient_idが記録された")
	}
}
