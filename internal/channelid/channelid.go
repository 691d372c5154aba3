// Package channelid canonicalizes IPTV channel names so the same station
// published under different labels collapses into one channel. It also
// assigns display groups and consolidates parsed playlist entries into
// per-channel candidate lists.
package channelid

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/width"
)

// aliasEntry maps a known label fragment to its canonical channel name.
// Matching is by substring with longer aliases tried first, so specific
// labels like "CCTV-13新闻" win over the generic "CCTV-1".
type aliasEntry struct {
	alias     string
	canonical string
}

var aliasTable = []aliasEntry{
	{"CCTV1综合", "CCTV1"}, {"CCTV-1", "CCTV1"}, {"CCTV1高清", "CCTV1"}, {"CCTV1HD", "CCTV1"},
	{"CCTV-2财经", "CCTV2"}, {"CCTV2财经", "CCTV2"}, {"CCTV2高清", "CCTV2"},
	{"CCTV-3综艺", "CCTV3"}, {"CCTV3综艺", "CCTV3"},
	{"CCTV-5体育", "CCTV5"}, {"CCTV5体育", "CCTV5"},
	{"CCTV5+体育赛事", "CCTV5+"}, {"CCTV5加", "CCTV5+"},
	{"CCTV-13新闻", "CCTV13"}, {"CCTV13新闻", "CCTV13"},
	{"CGTN纪录", "CGTN Documentary"}, {"CGTN英语", "CGTN"},
	{"湖南卫视高清", "湖南卫视"}, {"浙江卫视高清", "浙江卫视"}, {"江苏卫视超清", "江苏卫视"},
	{"东方卫视高清", "东方卫视"}, {"北京卫视高清", "北京卫视"}, {"广东卫视高清", "广东卫视"}, {"深圳卫视高清", "深圳卫视"},
	{"翡翠台", "TVB Jade"}, {"明珠台", "TVB Pearl"},
	{"凤凰中文台", "Phoenix Chinese Channel"}, {"凤凰资讯台", "Phoenix InfoNews Channel"},
	{"中天综合台", "CTi Variety"}, {"中天新闻台", "CTi News"},
	{"东森新闻台", "ETTV News"}, {"东森洋片台", "ETTV Foreign Movies"},
	{"金鹰卡通高清", "金鹰卡通"}, {"卡酷少儿", "卡酷动画"}, {"哈哈炫动卫视", "哈哈炫动"}, {"新科动漫", "New Tang Dynasty TV"},
}

var sortedAliases = func() []aliasEntry {
	entries := append([]aliasEntry(nil), aliasTable...)
	sort.SliceStable(entries, func(i, j int) bool {
		return len([]rune(entries[i].alias)) > len([]rune(entries[j].alias))
	})
	return entries
}()

var (
	bracketPattern   = regexp.MustCompile(`\s*[\(（【\[][^)）】\]]*[\)）】\]]\s*`)
	connectorPattern = regexp.MustCompile(`[\s\-·•_\|]+`)
	spacePattern     = regexp.MustCompile(`\s+`)
	suffixPattern    = regexp.MustCompile(`(?i)(?:` +
		`HD|FHD|UHD|4K|超高清|高清|蓝光|标清|` +
		`综合频道?|电视频道?|直播频道?|官方频道?|` +
		`频道|TV|台|官方|正版|流畅|备用|测试|` +
		`Ch|CH|Channel|咪咕|真|极速` +
		`)$`)
	cctvPattern = regexp.MustCompile(`(?i)^CCTV[-\s]*([0-9][0-9\s\+\-kK]*)`)
	cgtnPattern = regexp.MustCompile(`(?i)^CGTN[-\s]+`)
	digitRun    = regexp.MustCompile(`[0-9]+`)
)

// Normalize produces the canonical channel name for a raw playlist label.
//
// The label runs through a fixed pipeline: full-width characters fold to
// ASCII, multi-channel splices keep their first segment, known aliases map
// directly, then bracketed annotations, connector runs, and quality suffixes
// are stripped before CCTV/CGTN numbering is standardized.
func Normalize(name string) string {
	original := strings.TrimSpace(width.Narrow.String(name))
	if original == "" {
		return "Unknown"
	}

	if strings.Count(original, "-") >= 2 {
		head, _, _ := strings.Cut(original, "-")
		original = strings.TrimSpace(head)
	}

	for _, entry := range sortedAliases {
		if strings.Contains(original, entry.alias) {
			return entry.canonical
		}
	}

	cleaned := bracketPattern.ReplaceAllString(original, "")
	cleaned = connectorPattern.ReplaceAllString(cleaned, " ")
	cleaned = strings.TrimSpace(spacePattern.ReplaceAllString(cleaned, " "))
	cleaned = strings.TrimSpace(suffixPattern.ReplaceAllString(cleaned, ""))

	cleaned = cctvPattern.ReplaceAllStringFunc(cleaned, func(match string) string {
		sub := cctvPattern.FindStringSubmatch(match)
		digits := digitRun.FindString(sub[1])
		if digits == "" {
			return match
		}
		number, err := strconv.Atoi(digits)
		if err != nil {
			return match
		}
		suffix := ""
		if strings.Contains(sub[1], "+") {
			suffix = "+"
		} else if strings.ContainsAny(sub[1], "kK") {
			suffix = "K"
		}
		return "CCTV" + strconv.Itoa(number) + suffix
	})

	cleaned = strings.TrimSpace(cgtnPattern.ReplaceAllString(cleaned, "CGTN "))
	if cleaned == "" {
		return original
	}
	return cleaned
}
