// Package report renders the markdown scan report written alongside the
// cleaned playlist. Sections cover headline statistics, per-source load
// results, group distribution, the published and unresolved channel lists,
// a latency ranking of surviving hosts, and a breakdown of dead hosts by
// verdict kind.
package report

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"aerial/internal/fileutil"
	"aerial/internal/sources"
)

// Report timestamps use Beijing time, matching the notification payloads.
var beijingZone = time.FixedZone("CST", 8*60*60)

// GroupCount pairs a channel group with how many channels it kept.
type GroupCount struct {
	Name  string
	Count int
}

// FailureCount pairs a dead-endpoint verdict kind with its frequency.
type FailureCount struct {
	Kind  string
	Count int
}

// HostRecord is one row of the host latency ranking.
type HostRecord struct {
	Host      string
	URL       string
	LatencyMS int
	Kind      string
	Trials    int
}

// Data carries everything the report renders.
type Data struct {
	GeneratedAt   time.Time
	SurvivalRate  float64
	RawChannels   int
	UniqueHosts   int
	AliveHosts    int
	FinalChannels int
	Sources       []sources.Detail
	Groups        []GroupCount
	Available     []string
	Unavailable   []string
	Ranking       []HostRecord
	Failures      []FailureCount
}

// Render produces the full markdown document.
func Render(data Data) string {
	var b strings.Builder

	b.WriteString("# ✅ IPTV直播源清洗报告\n")
	fmt.Fprintf(&b, "**生成时间**: %s\n", data.GeneratedAt.In(beijingZone).Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "**存活率**: %.1f%%\n", data.SurvivalRate*100)

	b.WriteString("\n## 📊 核心统计\n")
	b.WriteString(coreStatsTable(data))

	b.WriteString("\n## 🔗 源加载详情\n")
	b.WriteString(sourcesTable(data.Sources))

	b.WriteString("\n## 📺 分组分布\n")
	groups := make([]GroupCount, len(data.Groups))
	copy(groups, data.Groups)
	sort.SliceStable(groups, func(a, b int) bool { return groups[a].Count > groups[b].Count })
	for _, group := range groups {
		fmt.Fprintf(&b, "- **%s**: %d 个\n", group.Name, group.Count)
	}

	b.WriteString("\n## 📋 可用频道列表\n")
	available := make([]string, len(data.Available))
	copy(available, data.Available)
	sort.Strings(available)
	for _, channel := range available {
		fmt.Fprintf(&b, "- %s\n", channel)
	}

	b.WriteString("\n## ❌ 无有效源的频道\n")
	if len(data.Unavailable) == 0 {
		b.WriteString("- 无\n")
	} else {
		unavailable := make([]string, len(data.Unavailable))
		copy(unavailable, data.Unavailable)
		sort.Strings(unavailable)
		for _, channel := range unavailable {
			fmt.Fprintf(&b, "- %s\n", channel)
		}
	}

	b.WriteString("\n## 🚀 主机测速排名\n")
	b.WriteString(rankingTable(data.Ranking))

	b.WriteString("\n## ⚠️ 失效原因分布\n")
	if len(data.Failures) == 0 {
		b.WriteString("- 无\n")
	} else {
		failures := make([]FailureCount, len(data.Failures))
		copy(failures, data.Failures)
		sort.SliceStable(failures, func(a, b int) bool {
			if failures[a].Count != failures[b].Count {
				return failures[a].Count > failures[b].Count
			}
			return failures[a].Kind < failures[b].Kind
		})
		for _, failure := range failures {
			fmt.Fprintf(&b, "- **%s**: %d 个\n", failure.Kind, failure.Count)
		}
	}

	return b.String()
}

// Write renders the report and persists it with a size check.
func Write(path string, data Data) error {
	return fileutil.WriteFileVerified(path, []byte(Render(data)))
}

func coreStatsTable(data Data) string {
	tw := table.NewWriter()
	tw.AppendHeader(table.Row{"项目", "数量"})
	tw.AppendRow(table.Row{"原始频道", data.RawChannels})
	tw.AppendRow(table.Row{"唯一主机", data.UniqueHosts})
	tw.AppendRow(table.Row{"存活主机", data.AliveHosts})
	tw.AppendRow(table.Row{"最终频道", data.FinalChannels})
	return tw.RenderMarkdown() + "\n"
}

func sourcesTable(details []sources.Detail) string {
	tw := table.NewWriter()
	tw.AppendHeader(table.Row{"类型", "标识", "状态", "条目数", "错误信息"})
	for _, detail := range details {
		kind := "远程"
		location := fmt.Sprintf("`%s`", detail.Location)
		if detail.Type == "local" {
			kind = "本地"
			location = fmt.Sprintf("`%s`", filepath.Base(detail.Location))
		}
		status := "✅ 成功"
		if !detail.Success {
			status = "❌ 失败"
		}
		errText := detail.Error
		if errText == "" {
			errText = "-"
		}
		tw.AppendRow(table.Row{kind, location, status, detail.EntryCount, errText})
	}
	return tw.RenderMarkdown() + "\n"
}

// rankingTable lists alive hosts by ascending latency, each with the URL that
// proved the host out.
func rankingTable(records []HostRecord) string {
	ranking := make([]HostRecord, len(records))
	copy(ranking, records)
	sort.SliceStable(ranking, func(a, b int) bool { return ranking[a].LatencyMS < ranking[b].LatencyMS })

	tw := table.NewWriter()
	tw.AppendHeader(table.Row{"主机", "延迟(ms)", "类型", "尝试次数", "测速链接"})
	for _, record := range ranking {
		tw.AppendRow(table.Row{
			fmt.Sprintf("`%s`", record.Host),
			fmt.Sprintf("**%d**", record.LatencyMS),
			fmt.Sprintf("`%s`", record.Kind),
			record.Trials,
			fmt.Sprintf("`%s`", record.URL),
		})
	}
	return tw.RenderMarkdown() + "\n"
}
