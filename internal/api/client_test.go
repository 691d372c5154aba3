package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(DaemonStatus{Running: true, PID: 4242})
	})
	mux.HandleFunc("/api/runs", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("status") == "failed" {
			json.NewEncoder(w).Encode(RunListResponse{Runs: []Run{{ID: 9, Status: "failed"}}})
			return
		}
		json.NewEncoder(w).Encode(RunListResponse{Runs: []Run{{ID: 1}, {ID: 2}}})
	})
	mux.HandleFunc("/api/runs/7", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(RunResponse{Run: Run{ID: 7, Status: "completed"}})
	})
	mux.HandleFunc("/api/scan", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			json.NewEncoder(w).Encode(map[string]string{"error": "method not allowed"})
			return
		}
		json.NewEncoder(w).Encode(ScanResponse{Run: Run{ID: 3, Status: "pending"}, Created: true})
	})
	mux.HandleFunc("/api/boom", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "database locked"})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClientStatus(t *testing.T) {
	srv := newTestServer(t)
	client := NewClient(srv.URL)

	status, err := client.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !status.Running || status.PID != 4242 {
		t.Fatalf("unexpected status: %+v", status)
	}
}

func TestClientRunsWithFilter(t *testing.T) {
	srv := newTestServer(t)
	client := NewClient(srv.URL)

	runs, err := client.Runs(context.Background(), "failed")
	if err != nil {
		t.Fatalf("Runs: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != 9 {
		t.Fatalf("unexpected runs: %+v", runs)
	}
}

func TestClientDescribe(t *testing.T) {
	srv := newTestServer(t)
	client := NewClient(srv.URL)

	run, err := client.Describe(context.Background(), 7)
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if run.ID != 7 || run.Status != "completed" {
		t.Fatalf("unexpected run: %+v", run)
	}
}

func TestClientScanPosts(t *testing.T) {
	srv := newTestServer(t)
	client := NewClient(srv.URL)

	resp, err := client.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if !resp.Created || resp.Run.ID != 3 {
		t.Fatalf("unexpected scan response: %+v", resp)
	}
}

func TestClientSurfacesErrorPayload(t *testing.T) {
	srv := newTestServer(t)
	client := NewClient(srv.URL)

	err := client.do(context.Background(), http.MethodGet, "/api/boom", nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "database locked") {
		t.Fatalf("error should carry server detail, got %v", err)
	}
}

func TestClientPromotesBareAddress(t *testing.T) {
	srv := newTestServer(t)
	bare := strings.TrimPrefix(srv.URL, "http://")

	client := NewClient(bare)
	if !client.Available() {
		t.Fatal("expected client to be available")
	}
	if _, err := client.Status(context.Background()); err != nil {
		t.Fatalf("Status over bare address: %v", err)
	}
}

func TestClientUnconfigured(t *testing.T) {
	client := NewClient("  ")
	if client.Available() {
		t.Fatal("blank address should not be available")
	}
	if _, err := client.Status(context.Background()); err == nil {
		t.Fatal("expected error for unconfigured client")
	}
}
