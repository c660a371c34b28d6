package server

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestStaticClient(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "assets"), 0o755); err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		"index.html":      "<html>tasks</html>",
		"assets/app-1.js": "console.log('app')",
		"favicon.ico":     "icon",
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	srv := New(Config{
		Store:     nil,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		StaticDir: dir,
	})

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
		wantBody   string
		wantCache  string
	}{
		{name: "root", method: http.MethodGet, path: "/", wantStatus: http.StatusOK, wantBody: "tasks", wantCache: "no-cache"},
		{name: "client route", method: http.MethodGet, path: "/settings/theme", wantStatus: http.StatusOK, wantBody: "tasks"},
		{name: "asset", method: http.MethodGet, path: "/assets/app-1.js", wantStatus: http.StatusOK, wantBody: "console.log", wantCache: "public, max-age=31536000, immutable"},
		{name: "favicon", method: http.MethodGet, path: "/favicon.ico", wantStatus: http.StatusOK, wantBody: "icon"},
		{name: "unknown api", method: http.MethodGet, path: "/api/nope", wantStatus: http.StatusNotFound, wantBody: "endpoint not found"},
		{name: "post to client route", method: http.MethodPost, path: "/settings", wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			srv.Engine().ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Errorf("body = %q, want it to contain %q", rec.Body.String(), tt.wantBody)
			}
			if tt.wantCache != "" && rec.Header().Get("Cache-Control") != tt.wantCache {
				t.Errorf("Cache-Control = %q, want %q", rec.Header().Get("Cache-Control"), tt.wantCache)
			}
		})
	}
}
