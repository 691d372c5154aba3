package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir   string `toml:"data_dir"`
	OutputDir string `toml:"output_dir"`
	LogDir    string `toml:"log_dir"`
	APIBind   string `toml:"api_bind"`
}

// Sources contains playlist source configuration.
type Sources struct {
	Remote         []string `toml:"remote"`
	LocalDir       string   `toml:"local_dir"`
	BlacklistPath  string   `toml:"blacklist_path"`
	FetchTimeout   int      `toml:"fetch_timeout"`
	FetchLimit     int      `toml:"fetch_limit"`
	MaxResponseMiB int      `toml:"max_response_mib"`
}

// Probe contains stream liveness probing configuration.
type Probe struct {
	Timeout       int    `toml:"timeout"`
	HeadTimeout   int    `toml:"head_timeout"`
	Workers       int    `toml:"workers"`
	FallbackLimit int    `toml:"fallback_limit"`
	PrefixBytes   int    `toml:"prefix_bytes"`
	RatePerSecond int    `toml:"rate_per_second"`
	UserAgent     string `toml:"user_agent"`
}

// Validators contains deep stream validation configuration.
type Validators struct {
	StructuralEnabled bool     `toml:"structural_enabled"`
	VisualEnabled     bool     `toml:"visual_enabled"`
	FFprobeBinary     string   `toml:"ffprobe_binary"`
	FFmpegBinary      string   `toml:"ffmpeg_binary"`
	TesseractBinary   string   `toml:"tesseract_binary"`
	StructuralTimeout int      `toml:"structural_timeout"`
	VisualTimeout     int      `toml:"visual_timeout"`
	BlockPhrases      []string `toml:"block_phrases"`
}

// Output contains playlist and report rendering configuration.
type Output struct {
	PlaylistName string   `toml:"playlist_name"`
	ReportName   string   `toml:"report_name"`
	EPGURL       string   `toml:"epg_url"`
	LogoTemplate string   `toml:"logo_template"`
	GroupOrder   []string `toml:"group_order"`
}

// Notifications contains configuration for Bark push notifications.
type Notifications struct {
	BarkDeviceKey  string `toml:"bark_device_key"`
	BarkServer     string `toml:"bark_server"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Workflow contains configuration for daemon timing and intervals.
type Workflow struct {
	QueuePollInterval  int `toml:"queue_poll_interval"`
	ErrorRetryInterval int `toml:"error_retry_interval"`
	HeartbeatInterval  int `toml:"heartbeat_interval"`
	HeartbeatTimeout   int `toml:"heartbeat_timeout"`
	ScanInterval       int `toml:"scan_interval"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for Aerial.
//
// Configuration sections by subsystem:
//   - Paths: directories and API bind address
//   - Sources: remote playlist URLs, local playlist dir, host blacklist
//   - Probe: timeouts, worker budget, fallback limit, rate limiting
//   - Validators: ffprobe/ffmpeg/tesseract deep validation settings
//   - Output: playlist and report naming, EPG, logos, group ordering
//   - Notifications: Bark push notification settings
//   - Workflow: daemon polling intervals, heartbeats, scan scheduling
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	Sources       Sources       `toml:"sources"`
	Probe         Probe         `toml:"probe"`
	Validators    Validators    `toml:"validators"`
	Output        Output        `toml:"output"`
	Notifications Notifications `toml:"notifications"`
	Workflow      Workflow      `toml:"workflow"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/aerial/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path == "" {
		path = strings.TrimSpace(os.Getenv("AERIAL_CONFIG"))
	}
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath("~/.config/aerial/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("aerial.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
// OutputDir is created on a best-effort basis so the daemon can run when the
// publish target is temporarily unavailable.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.OutputDir) != "" {
		_ = os.MkdirAll(c.Paths.OutputDir, 0o755)
	}
	return nil
}

// DatabasePath returns the sqlite database location inside the data directory.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "aerial.db")
}

// PlaylistPath returns the absolute path of the published playlist.
func (c *Config) PlaylistPath() string {
	return filepath.Join(c.Paths.OutputDir, c.Output.PlaylistName)
}

// ReportPath returns the absolute path of the published report.
func (c *Config) ReportPath() string {
	return filepath.Join(c.Paths.OutputDir, c.Output.ReportName)
}

// FFprobeBinary returns the ffprobe executable used for structural validation.
func (c *Config) FFprobeBinary() string {
	if v := strings.TrimSpace(c.Validators.FFprobeBinary); v != "" {
		return v
	}
	return "ffprobe"
}

// FFmpegBinary returns the ffmpeg executable used for frame capture.
func (c *Config) FFmpegBinary() string {
	if v := strings.TrimSpace(c.Validators.FFmpegBinary); v != "" {
		return v
	}
	return "ffmpeg"
}

// TesseractBinary returns the tesseract executable used for OCR inspection.
func (c *Config) TesseractBinary() string {
	if v := strings.TrimSpace(c.Validators.TesseractBinary); v != "" {
		return v
	}
	return "tesseract"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
