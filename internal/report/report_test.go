package report_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"aerial/internal/report"
	"aerial/internal/sources"
)

func sampleData() report.Data {
	return report.Data{
		GeneratedAt:   time.Date(2026, 3, 14, 7, 30, 0, 0, time.UTC),
		SurvivalRate:  0.352,
		RawChannels:   523,
		UniqueHosts:   88,
		AliveHosts:    31,
		FinalChannels: 112,
		Sources: []sources.Detail{
			{Type: "remote", Location: "https://example.com/live.m3u", Success: true, EntryCount: 300},
			{Type: "remote", Location: "https://dead.example.com/tv.txt", Success: false, Error: "HTTP 404"},
			{Type: "local", Location: "/data/sources/backup.m3u", Success: true, EntryCount: 223},
		},
		Groups: []report.GroupCount{
			{Name: "央视频道", Count: 24},
			{Name: "卫视频道", Count: 41},
			{Name: "其他频道", Count: 47},
		},
		Available:   []string{"CCTV1", "湖南卫视", "CCTV5"},
		Unavailable: []string{"凤凰中文"},
		Ranking: []report.HostRecord{
			{Host: "slow.example.com:80", URL: "http://slow.example.com/live.m3u8", LatencyMS: 900, Kind: "hls", Trials: 2},
			{Host: "fast.example.com:80", URL: "http://fast.example.com/live.m3u8", LatencyMS: 120, Kind: "master", Trials: 1},
		},
		Failures: []report.FailureCount{
			{Kind: "not_stream", Count: 9},
			{Kind: "dead", Count: 39},
			{Kind: "error", Count: 9},
		},
	}
}

func TestRenderIncludesHeadlineStats(t *testing.T) {
	body := report.Render(sampleData())

	if !strings.HasPrefix(body, "# ✅ IPTV直播源清洗报告\n") {
		t.Fatalf("unexpected report header: %q", body[:60])
	}
	// 07:30 UTC is 15:30 in Beijing.
	if !strings.Contains(body, "**生成时间**: 2026-03-14 15:30:00") {
		t.Fatalf("expected Beijing timestamp, got:\n%s", body)
	}
	if !strings.Contains(body, "**存活率**: 35.2%") {
		t.Fatalf("expected survival rate line, got:\n%s", body)
	}
	for _, want := range []string{"原始频道", "唯一主机", "存活主机", "最终频道"} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected core stat %q in report", want)
		}
	}
}

func TestRenderFormatsSourceRows(t *testing.T) {
	body := report.Render(sampleData())

	if !strings.Contains(body, "`https://example.com/live.m3u`") {
		t.Fatal("expected remote source URL in backticks")
	}
	if !strings.Contains(body, "`backup.m3u`") {
		t.Fatal("expected local source reduced to its base name")
	}
	if strings.Contains(body, "/data/sources/backup.m3u") {
		t.Fatal("local source should not expose its full path")
	}
	if !strings.Contains(body, "❌ 失败") || !strings.Contains(body, "HTTP 404") {
		t.Fatal("expected failed source row with its error")
	}
}

func TestRenderSortsGroupsByCountDescending(t *testing.T) {
	body := report.Render(sampleData())

	first := strings.Index(body, "- **其他频道**: 47 个")
	second := strings.Index(body, "- **卫视频道**: 41 个")
	third := strings.Index(body, "- **央视频道**: 24 个")
	if first == -1 || second == -1 || third == -1 {
		t.Fatalf("expected all group lines, got:\n%s", body)
	}
	if !(first < second && second < third) {
		t.Fatal("expected groups ordered by descending count")
	}
}

func TestRenderSortsChannelLists(t *testing.T) {
	body := report.Render(sampleData())

	cctv1 := strings.Index(body, "- CCTV1\n")
	cctv5 := strings.Index(body, "- CCTV5\n")
	if cctv1 == -1 || cctv5 == -1 || cctv1 > cctv5 {
		t.Fatal("expected available channels sorted lexically")
	}
	if !strings.Contains(body, "- 凤凰中文\n") {
		t.Fatal("expected unresolved channel listed")
	}
}

func TestRenderMarksEmptyUnavailableList(t *testing.T) {
	data := sampleData()
	data.Unavailable = nil
	body := report.Render(data)

	section := body[strings.Index(body, "## ❌ 无有效源的频道"):]
	if !strings.Contains(section, "- 无\n") {
		t.Fatal("expected placeholder when every channel resolved")
	}
}

func TestRenderRanksHostsByLatency(t *testing.T) {
	body := report.Render(sampleData())

	fast := strings.Index(body, "`fast.example.com:80`")
	slow := strings.Index(body, "`slow.example.com:80`")
	if fast == -1 || slow == -1 {
		t.Fatalf("expected both hosts in ranking, got:\n%s", body)
	}
	if fast > slow {
		t.Fatal("expected ranking ordered by ascending latency")
	}
	if !strings.Contains(body, "**120**") {
		t.Fatal("expected latency rendered in milliseconds")
	}
}

func TestRenderBreaksDownFailuresByKind(t *testing.T) {
	body := report.Render(sampleData())

	dead := strings.Index(body, "- **dead**: 39 个")
	errKind := strings.Index(body, "- **error**: 9 个")
	notStream := strings.Index(body, "- **not_stream**: 9 个")
	if dead == -1 || errKind == -1 || notStream == -1 {
		t.Fatalf("expected all failure lines, got:\n%s", body)
	}
	// Descending count first, then kind name for equal counts.
	if !(dead < errKind && errKind < notStream) {
		t.Fatal("expected failures ordered by count then kind")
	}
}

func TestRenderMarksEmptyFailureList(t *testing.T) {
	data := sampleData()
	data.Failures = nil
	body := report.Render(data)

	section := body[strings.Index(body, "## ⚠️ 失效原因分布"):]
	if !strings.Contains(section, "- 无\n") {
		t.Fatal("expected placeholder when every host survived")
	}
}

func TestWritePersistsReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "report.md")
	if err := report.Write(path, sampleData()); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if !strings.Contains(string(raw), "IPTV直播源清洗报告") {
		t.Fatal("expected rendered report on disk")
	}
}
