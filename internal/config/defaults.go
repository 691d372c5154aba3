package config

const (
	defaultDataDir   = "~/.local/share/aerial"
	defaultOutputDir = "~/aerial"
	defaultAPIBind   = "127.0.0.1:7653"

	defaultFetchTimeout   = 10
	defaultFetchLimit     = 10
	defaultMaxResponseMiB = 8

	defaultProbeTimeout     = 8
	defaultProbeHeadTimeout = 4
	defaultProbeWorkers     = 15
	defaultFallbackLimit    = 3
	defaultPrefixBytes      = 2048
	defaultUserAgent        = "Mozilla/5.0"

	defaultStructuralTimeout = 8
	defaultVisualTimeout     = 15

	defaultPlaylistName = "live.m3u"
	defaultReportName   = "report.md"
	defaultEPGURL       = "https://live.fanmingming.com/europe.xml.gz"
	defaultLogoTemplate = "https://raw.githubusercontent.com/alantang1977/iptv_api/main/pic/logos/{name}.png"

	defaultBarkServer         = "https://api.day.app"
	defaultNotifyTimeout      = 10
	defaultQueuePollInterval  = 5
	defaultErrorRetryInterval = 10
	defaultHeartbeatInterval  = 15
	defaultHeartbeatTimeout   = 120
	defaultScanInterval       = 0
	defaultLogRetentionDays   = 60
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

// defaultBlockPhrases lists on-screen text that marks a stream as unusable
// when seen by the OCR inspector. Matching is case-insensitive.
var defaultBlockPhrases = []string{
	"login", "sign in", "geo-block", "not available", "invalid",
	"expired", "test stream", "demo", "black screen",
	"请登录", "区域限制", "套餐", "购买", "403", "unauthorized",
}

// defaultGroupOrder fixes the playlist section order. Groups absent from the
// list are appended after it in first-seen order.
var defaultGroupOrder = []string{
	"🇨🇳 央视频道",
	"📺 卫视频道",
	"🎬 影视频道",
	"⚽ 体育频道",
	"🧸 儿童动画",
	"🌍 国际频道",
	"🎓 教育频道",
	"🇭🇰 港澳台频道",
	"📺 其他频道",
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:   defaultDataDir,
			OutputDir: defaultOutputDir,
			APIBind:   defaultAPIBind,
		},
		Sources: Sources{
			FetchTimeout:   defaultFetchTimeout,
			FetchLimit:     defaultFetchLimit,
			MaxResponseMiB: defaultMaxResponseMiB,
		},
		Probe: Probe{
			Timeout:       defaultProbeTimeout,
			HeadTimeout:   defaultProbeHeadTimeout,
			Workers:       defaultProbeWorkers,
			FallbackLimit: defaultFallbackLimit,
			PrefixBytes:   defaultPrefixBytes,
			UserAgent:     defaultUserAgent,
		},
		Validators: Validators{
			StructuralEnabled: true,
			VisualEnabled:     true,
			FFprobeBinary:     "ffprobe",
			FFmpegBinary:      "ffmpeg",
			TesseractBinary:   "tesseract",
			StructuralTimeout: defaultStructuralTimeout,
			VisualTimeout:     defaultVisualTimeout,
			BlockPhrases:      append([]string(nil), defaultBlockPhrases...),
		},
		Output: Output{
			PlaylistName: defaultPlaylistName,
			ReportName:   defaultReportName,
			EPGURL:       defaultEPGURL,
			LogoTemplate: defaultLogoTemplate,
			GroupOrder:   append([]string(nil), defaultGroupOrder...),
		},
		Notifications: Notifications{
			BarkServer:     defaultBarkServer,
			RequestTimeout: defaultNotifyTimeout,
		},
		Workflow: Workflow{
			QueuePollInterval:  defaultQueuePollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
			HeartbeatInterval:  defaultHeartbeatInterval,
			HeartbeatTimeout:   defaultHeartbeatTimeout,
			ScanInterval:       defaultScanInterval,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
