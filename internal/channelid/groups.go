package channelid

import "regexp"

// DefaultGroup collects channels no rule claims.
const DefaultGroup = "📺 其他频道"

type groupRule struct {
	pattern *regexp.Regexp
	group   string
}

// groupRules maps title keywords to display groups. Order matters: the first
// matching rule wins, so kids' programming outranks the CCTV rule and CCTV5
// lands under 央视 rather than 体育.
var groupRules = []groupRule{
	{regexp.MustCompile(`(?i)(CCTV[-]?14|哈哈炫动|卡酷|宝宝|幼教|贝瓦|巧虎|新科动漫|小猪佩奇|汪汪队|海底小纵队|米老鼠|迪士尼|熊出没|猫和老鼠|哆啦A梦|喜羊羊|青少|儿童|动画|动漫|少儿|卡通|金鹰|cartoon|disney)`), "🧸 儿童动画"},
	{regexp.MustCompile(`(?i)(央视|CCTV[0-9]*[高清]?|CGTN|CCTV|风云音乐|第一剧场|怀旧剧场|女性时尚|风云足球|世界地理|兵器科技|电视指南)`), "🇨🇳 央视频道"},
	{regexp.MustCompile(`(?i)(卫视|湖南|浙江|江苏|北京|广东|深圳|东方|安徽|山东|河南|湖北|四川|辽宁|东南|天津|内蒙古|云南)`), "📺 卫视频道"},
	{regexp.MustCompile(`(?i)(翡翠|明珠|凤凰|鳳凰|东森|莲花|AMC|龙华|澳亚|港台|寰宇|TVB|华语|中天|年代|民视|三立|星空|台视|美亚|美亞|千禧|无线|無線|VIUTV|HOY|RTHK|Now|靖天|星卫|香港|澳门|台湾)`), "🇭🇰 港澳台频道"},
	{regexp.MustCompile(`(?i)(体育|CCTV5|高尔夫|足球|NBA|英超|西甲|欧冠)`), "⚽ 体育频道"},
	{regexp.MustCompile(`(?i)(电影|影院|CHC|HBO|星空|AXN|TCM|佳片)`), "🎬 影视频道"},
	{regexp.MustCompile(`(?i)(AMC|BET|Discovery|CBS|cine|CNN|disney|epix|espn|fox|american|boomerang|cnbc|entertainment|fs|fuse|fx|hbo|国家地理|Animal Planet|BBC|NHK|DW|France24|Al Jazeera)`), "🌍 国际频道"},
	{regexp.MustCompile(`(教育|课堂|空中|大学|学习|国学|书画|考试|中学|学堂)`), "🎓 教育频道"},
}

// Latin-only titles without a CCTV/CGTN token default to the international
// group. Split into three checks because RE2 has no lookahead.
var (
	latinOnlyPattern = regexp.MustCompile(`^[a-zA-Z0-9\s\+\&\.\'\!\(\)\-]+$`)
	hasLetterPattern = regexp.MustCompile(`[a-zA-Z]`)
	cctvWordPattern  = regexp.MustCompile(`(?i)\b(cctv|cgtn)\b`)
)

// GroupFor assigns a display group based on the channel title. Titles are
// matched as published, before normalization, so decorations like 高清 can
// still influence grouping.
func GroupFor(title string) string {
	for _, rule := range groupRules {
		if rule.pattern.MatchString(title) {
			return rule.group
		}
	}
	if latinOnlyPattern.MatchString(title) && hasLetterPattern.MatchString(title) && !cctvWordPattern.MatchString(title) {
		return "🌍 国际频道"
	}
	return DefaultGroup
}
