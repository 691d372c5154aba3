package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"aerial/internal/config"
)

const userAgent = "Aerial/0.1.0"

// beijingZone matches the timezone used in report headers so notification
// timestamps line up with the written report.
var beijingZone = time.FixedZone("CST", 8*60*60)

// GroupCount pairs a playlist group with its channel count.
type GroupCount struct {
	Name  string
	Count int
}

// ScanSummary carries the statistics included in the completion notice.
type ScanSummary struct {
	RawChannels   int
	UniqueHosts   int
	AliveHosts    int
	SurvivalRate  float64
	FinalChannels int
	Groups        []GroupCount
	ReportName    string
}

// Service defines the notification surface exposed to workflow components.
type Service interface {
	NotifyScanStarted(ctx context.Context, origin string) error
	NotifyScanCompleted(ctx context.Context, summary ScanSummary) error
	NotifyScanFailed(ctx context.Context, contextLabel string, scanErr error) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by Bark when configured.
// When no device key is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	key := strings.TrimSpace(cfg.Notifications.BarkDeviceKey)
	if key == "" {
		return noopService{}
	}

	server := strings.TrimRight(strings.TrimSpace(cfg.Notifications.BarkServer), "/")
	if server == "" {
		server = "https://api.day.app"
	}
	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &barkService{
		server:    server,
		deviceKey: key,
		client:    &http.Client{Timeout: timeout},
	}
}

type payload struct {
	title string
	body  string
	level string
}

type barkService struct {
	server    string
	deviceKey string
	client    *http.Client
}

func (b *barkService) NotifyScanStarted(ctx context.Context, origin string) error {
	origin = strings.TrimSpace(origin)
	if origin == "" {
		origin = "manual"
	}
	data := payload{
		title: "📡 IPTV扫描开始",
		body:  fmt.Sprintf("⌚️ %s\n触发方式: %s", beijingNow(), origin),
		level: "passive",
	}
	return b.send(ctx, data)
}

func (b *barkService) NotifyScanCompleted(ctx context.Context, summary ScanSummary) error {
	data := payload{
		title: "📺 IPTV源清洗完成",
		body:  formatScanBody(summary),
		level: "active",
	}
	return b.send(ctx, data)
}

func (b *barkService) NotifyScanFailed(ctx context.Context, contextLabel string, scanErr error) error {
	var builder strings.Builder
	builder.WriteString("❌ 扫描失败")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" · ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString("\n")
	if scanErr != nil {
		builder.WriteString(strings.TrimSpace(scanErr.Error()))
	} else {
		builder.WriteString("unknown")
	}
	data := payload{
		title: "📺 IPTV扫描失败",
		body:  builder.String(),
		level: "timeSensitive",
	}
	return b.send(ctx, data)
}

func (b *barkService) TestNotification(ctx context.Context) error {
	data := payload{
		title: "📺 Aerial 测试",
		body:  "🧪 通知系统测试",
		level: "passive",
	}
	return b.send(ctx, data)
}

// formatScanBody renders the completion body: Beijing timestamp, core
// counters, the largest channel groups capped at eight lines, and a pointer
// to the written report.
func formatScanBody(summary ScanSummary) string {
	groups := append([]GroupCount(nil), summary.Groups...)
	sort.SliceStable(groups, func(i, j int) bool { return groups[i].Count > groups[j].Count })

	limit := len(groups)
	if limit > 8 {
		limit = 8
	}
	lines := make([]string, 0, limit+1)
	for _, group := range groups[:limit] {
		lines = append(lines, fmt.Sprintf("• %s: %d个", group.Name, group.Count))
	}
	if len(groups) > 8 {
		lines = append(lines, fmt.Sprintf("• ...（共%d组）", len(groups)))
	}

	report := strings.TrimSpace(summary.ReportName)
	if report == "" {
		report = "report.md"
	}

	var builder strings.Builder
	fmt.Fprintf(&builder, "⌚️ %s\n", beijingNow())
	builder.WriteString("━━━━━━━━━━━━━━━━\n")
	builder.WriteString("📊 核心数据\n")
	fmt.Fprintf(&builder, "  原始频道: %d\n", summary.RawChannels)
	fmt.Fprintf(&builder, "  唯一主机: %d\n", summary.UniqueHosts)
	fmt.Fprintf(&builder, "  存活主机: %d (%.1f%%)\n", summary.AliveHosts, summary.SurvivalRate)
	fmt.Fprintf(&builder, "  最终频道: %d\n", summary.FinalChannels)
	builder.WriteString("\n📺 保留频道分组\n")
	builder.WriteString(strings.Join(lines, "\n"))
	fmt.Fprintf(&builder, "\n\n💡 完整报告: %s", report)
	return builder.String()
}

func beijingNow() string {
	return time.Now().In(beijingZone).Format("2006-01-02 15:04:05")
}

func (b *barkService) send(ctx context.Context, data payload) error {
	if b == nil || b.client == nil {
		return nil
	}

	endpoint := fmt.Sprintf("%s/%s/%s/%s",
		b.server,
		url.PathEscape(b.deviceKey),
		url.PathEscape(data.title),
		url.PathEscape(data.body),
	)

	query := url.Values{}
	query.Set("group", "iptv")
	query.Set("icon", "📺")
	if data.level != "" {
		query.Set("level", data.level)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build bark request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("send bark notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("bark returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyScanStarted(context.Context, string) error        { return nil }
func (noopService) NotifyScanCompleted(context.Context, ScanSummary) error { return nil }
func (noopService) NotifyScanFailed(context.Context, string, error) error  { return nil }
func (noopService) TestNotification(context.Context) error                 { return nil }
