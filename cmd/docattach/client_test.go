package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"docattach/internal/api"
	"docattach/internal/config"
)

func TestAutostartDisabled(t *testing.T) {
	for raw, want := range map[string]bool{"": false, "0": false, "true": true, " YES ": true, "1": true} {
		t.Setenv(noAutostartEnvKey, raw)
		if got := autostartDisabled(); got != want {
			t.Fatalf("autostartDisabled with %q = %v, want %v", raw, got, want)
		}
	}
}

func TestWaitForServerHealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	if err := waitForServer(api.NewClient(srv.URL), time.Second); err != nil {
		t.Fatalf("wait for server: %v", err)
	}
}

func TestWaitForServerForeignService(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	err := waitForServer(api.NewClient(srv.URL), time.Second)
	if err == nil {
		t.Fatal("expected error from foreign service")
	}
	if apiErr, ok := api.AsAPIError(err); !ok || apiErr.Status != http.StatusNotFound {
		t.Fatalf("expected 404 api error, got %v", err)
	}
}

func TestEnsureServerWithoutAutostart(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	t.Setenv(noAutostartEnvKey, "true")
	cleanup, err := ensureServer(&config.Config{APIURL: url})
	if err == nil {
		t.Fatal("expected error when server is down and autostart is disabled")
	}
	if cleanup != nil {
		t.Fatal("expected no cleanup")
	}
}
