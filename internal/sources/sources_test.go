package sources_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"aerial/internal/config"
	"aerial/internal/logging"
	"aerial/internal/sources"
)

const remoteM3U = `#EXTM3U
#EXTINF:-1,CCTV1
http://cdn.example.com/cctv1.m3u8
#EXTINF:-1,CCTV2
http://cdn.example.com/cctv2.m3u8
`

func TestLoadMergesRemoteAndLocalSources(t *testing.T) {
	okServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Error("expected User-Agent header on source fetch")
		}
		w.Write([]byte(remoteM3U))
	}))
	defer okServer.Close()

	failServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer failServer.Close()

	localDir := t.TempDir()
	localTXT := "地方频道,#genre#\n测试台,http://local.example.com/test.m3u8\n"
	if err := os.WriteFile(filepath.Join(localDir, "extra.txt"), []byte(localTXT), 0o644); err != nil {
		t.Fatalf("write local playlist: %v", err)
	}
	if err := os.WriteFile(filepath.Join(localDir, "ignored.json"), []byte("{}"), 0o644); err != nil {
		t.Fatalf("write ignored file: %v", err)
	}

	cfg := config.Default()
	cfg.Sources.Remote = []string{okServer.URL, failServer.URL}
	cfg.Sources.LocalDir = localDir

	loader := sources.NewLoader(&cfg, logging.NewNop())
	result, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if len(result.Entries) != 3 {
		t.Fatalf("expected 3 entries, got %d: %+v", len(result.Entries), result.Entries)
	}
	if result.Entries[0].Name != "CCTV1" || result.Entries[2].Name != "测试台" {
		t.Fatalf("unexpected merge order: %+v", result.Entries)
	}

	if len(result.Details) != 3 {
		t.Fatalf("expected 3 details, got %d", len(result.Details))
	}
	if !result.Details[0].Success || result.Details[0].EntryCount != 2 {
		t.Fatalf("unexpected first detail: %+v", result.Details[0])
	}
	if result.Details[1].Success || result.Details[1].Error != "HTTP 500" {
		t.Fatalf("expected HTTP 500 failure recorded, got %+v", result.Details[1])
	}
	if result.Details[2].Type != "local" || !result.Details[2].Success {
		t.Fatalf("unexpected local detail: %+v", result.Details[2])
	}
}

func TestLoadFailsWhenNothingParses(t *testing.T) {
	failServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer failServer.Close()

	cfg := config.Default()
	cfg.Sources.Remote = []string{failServer.URL}

	loader := sources.NewLoader(&cfg, logging.NewNop())
	if _, err := loader.Load(context.Background()); err == nil {
		t.Fatal("expected error when no source yields entries")
	}
}

func TestLoadRejectsOversizedResponse(t *testing.T) {
	huge := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(remoteM3U))
		w.Write(make([]byte, 2<<20))
	}))
	defer huge.Close()

	cfg := config.Default()
	cfg.Sources.Remote = []string{huge.URL}
	cfg.Sources.MaxResponseMiB = 1

	loader := sources.NewLoader(&cfg, logging.NewNop())
	_, err := loader.Load(context.Background())
	if err == nil {
		t.Fatal("expected oversized source to leave nothing loaded")
	}
}

func TestLoadHonorsContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Sources.Remote = []string{server.URL}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	loader := sources.NewLoader(&cfg, logging.NewNop())
	if _, err := loader.Load(ctx); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}
