package notifications_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"aerial/internal/notifications"
	"aerial/internal/testsupport"
)

type capturedRequest struct {
	deviceKey string
	title     string
	body      string
	group     string
	level     string
}

func newBarkServer(t *testing.T, capture *capturedRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("unexpected method: %s", r.Method)
		}
		segments := strings.Split(strings.TrimPrefix(r.URL.EscapedPath(), "/"), "/")
		if len(segments) != 3 {
			t.Errorf("expected /key/title/body path, got %q", r.URL.EscapedPath())
			w.WriteHeader(http.StatusOK)
			return
		}
		capture.deviceKey = segments[0]
		capture.title = mustUnescape(t, segments[1])
		capture.body = mustUnescape(t, segments[2])
		capture.group = r.URL.Query().Get("group")
		capture.level = r.URL.Query().Get("level")
		w.WriteHeader(http.StatusOK)
	}))
}

func mustUnescape(t *testing.T, segment string) string {
	t.Helper()
	value, err := url.PathUnescape(segment)
	if err != nil {
		t.Fatalf("unescape %q: %v", segment, err)
	}
	return value
}

func TestNewServiceReturnsNoopWhenKeyMissing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Notifications.BarkDeviceKey = ""
	svc := notifications.NewService(cfg)
	if err := svc.NotifyScanCompleted(context.Background(), notifications.ScanSummary{}); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestScanCompletedFormatsBody(t *testing.T) {
	var captured capturedRequest
	server := newBarkServer(t, &captured)
	defer server.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithBarkKey("device-key-1"))
	cfg.Notifications.BarkServer = server.URL
	cfg.Notifications.RequestTimeout = 5

	svc := notifications.NewService(cfg)
	summary := notifications.ScanSummary{
		RawChannels:   523,
		UniqueHosts:   88,
		AliveHosts:    31,
		SurvivalRate:  35.2,
		FinalChannels: 112,
		Groups: []notifications.GroupCount{
			{Name: "央视频道", Count: 24},
			{Name: "卫视频道", Count: 41},
			{Name: "其他频道", Count: 47},
		},
		ReportName: "report.md",
	}
	if err := svc.NotifyScanCompleted(context.Background(), summary); err != nil {
		t.Fatalf("NotifyScanCompleted: %v", err)
	}

	if captured.deviceKey != "device-key-1" {
		t.Fatalf("expected device key in path, got %q", captured.deviceKey)
	}
	if captured.title != "📺 IPTV源清洗完成" {
		t.Fatalf("unexpected title: %q", captured.title)
	}
	if captured.group != "iptv" || captured.level != "active" {
		t.Fatalf("unexpected query params: group=%q level=%q", captured.group, captured.level)
	}
	for _, want := range []string{
		"原始频道: 523",
		"唯一主机: 88",
		"存活主机: 31 (35.2%)",
		"最终频道: 112",
		"• 卫视频道: 41个",
		"完整报告: report.md",
	} {
		if !strings.Contains(captured.body, want) {
			t.Fatalf("body missing %q:\n%s", want, captured.body)
		}
	}
	// Groups render largest first.
	if strings.Index(captured.body, "其他频道") > strings.Index(captured.body, "央视频道") {
		t.Fatalf("expected groups sorted by count descending:\n%s", captured.body)
	}
}

func TestScanCompletedCapsGroupLines(t *testing.T) {
	var captured capturedRequest
	server := newBarkServer(t, &captured)
	defer server.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithBarkKey("device-key-1"))
	cfg.Notifications.BarkServer = server.URL

	groups := make([]notifications.GroupCount, 0, 10)
	for i := 0; i < 10; i++ {
		groups = append(groups, notifications.GroupCount{Name: string(rune('A' + i)), Count: 10 - i})
	}

	svc := notifications.NewService(cfg)
	if err := svc.NotifyScanCompleted(context.Background(), notifications.ScanSummary{Groups: groups}); err != nil {
		t.Fatalf("NotifyScanCompleted: %v", err)
	}

	if got := strings.Count(captured.body, "个"); got != 8 {
		t.Fatalf("expected 8 group lines, got %d:\n%s", got, captured.body)
	}
	if !strings.Contains(captured.body, "（共10组）") {
		t.Fatalf("expected overflow marker:\n%s", captured.body)
	}
}

func TestScanFailedIncludesContext(t *testing.T) {
	var captured capturedRequest
	server := newBarkServer(t, &captured)
	defer server.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithBarkKey("device-key-1"))
	cfg.Notifications.BarkServer = server.URL

	svc := notifications.NewService(cfg)
	if err := svc.NotifyScanFailed(context.Background(), "run #7", context.DeadlineExceeded); err != nil {
		t.Fatalf("NotifyScanFailed: %v", err)
	}

	if captured.title != "📺 IPTV扫描失败" {
		t.Fatalf("unexpected title: %q", captured.title)
	}
	if captured.level != "timeSensitive" {
		t.Fatalf("unexpected level: %q", captured.level)
	}
	if !strings.Contains(captured.body, "run #7") || !strings.Contains(captured.body, "deadline exceeded") {
		t.Fatalf("body missing failure context:\n%s", captured.body)
	}
}

func TestSendReportsHTTPFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "device not found", http.StatusBadRequest)
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithBarkKey("missing-device"))
	cfg.Notifications.BarkServer = server.URL

	svc := notifications.NewService(cfg)
	err := svc.TestNotification(context.Background())
	if err == nil {
		t.Fatal("expected error for HTTP failure")
	}
	if !strings.Contains(err.Error(), "400") {
		t.Fatalf("expected status code in error, got %v", err)
	}
}
