package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeSources(); err != nil {
		return err
	}
	c.normalizeProbe()
	c.normalizeValidators()
	c.normalizeOutput()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(c.Paths.DataDir, "logs")
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeSources() error {
	var err error
	remotes := make([]string, 0, len(c.Sources.Remote))
	seen := make(map[string]struct{}, len(c.Sources.Remote))
	for _, raw := range c.Sources.Remote {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		remotes = append(remotes, trimmed)
	}
	c.Sources.Remote = remotes

	c.Sources.LocalDir = strings.TrimSpace(c.Sources.LocalDir)
	if c.Sources.LocalDir != "" {
		if c.Sources.LocalDir, err = expandPath(c.Sources.LocalDir); err != nil {
			return fmt.Errorf("sources.local_dir: %w", err)
		}
	}
	c.Sources.BlacklistPath = strings.TrimSpace(c.Sources.BlacklistPath)
	if c.Sources.BlacklistPath != "" {
		if c.Sources.BlacklistPath, err = expandPath(c.Sources.BlacklistPath); err != nil {
			return fmt.Errorf("sources.blacklist_path: %w", err)
		}
	}
	if c.Sources.FetchTimeout <= 0 {
		c.Sources.FetchTimeout = defaultFetchTimeout
	}
	if c.Sources.FetchLimit <= 0 {
		c.Sources.FetchLimit = defaultFetchLimit
	}
	if c.Sources.MaxResponseMiB <= 0 {
		c.Sources.MaxResponseMiB = defaultMaxResponseMiB
	}
	return nil
}

func (c *Config) normalizeProbe() {
	if c.Probe.Timeout <= 0 {
		c.Probe.Timeout = defaultProbeTimeout
	}
	if c.Probe.HeadTimeout <= 0 {
		c.Probe.HeadTimeout = c.Probe.Timeout / 2
	}
	if c.Probe.HeadTimeout <= 0 {
		c.Probe.HeadTimeout = defaultProbeHeadTimeout
	}
	if c.Probe.Workers <= 0 {
		c.Probe.Workers = defaultProbeWorkers
	}
	if c.Probe.PrefixBytes <= 0 {
		c.Probe.PrefixBytes = defaultPrefixBytes
	}
	if c.Probe.RatePerSecond < 0 {
		c.Probe.RatePerSecond = 0
	}
	c.Probe.UserAgent = strings.TrimSpace(c.Probe.UserAgent)
	if c.Probe.UserAgent == "" {
		c.Probe.UserAgent = defaultUserAgent
	}
}

func (c *Config) normalizeValidators() {
	c.Validators.FFprobeBinary = strings.TrimSpace(c.Validators.FFprobeBinary)
	c.Validators.FFmpegBinary = strings.TrimSpace(c.Validators.FFmpegBinary)
	c.Validators.TesseractBinary = strings.TrimSpace(c.Validators.TesseractBinary)
	if c.Validators.StructuralTimeout <= 0 {
		c.Validators.StructuralTimeout = defaultStructuralTimeout
	}
	if c.Validators.VisualTimeout <= 0 {
		c.Validators.VisualTimeout = defaultVisualTimeout
	}
	phrases := make([]string, 0, len(c.Validators.BlockPhrases))
	for _, phrase := range c.Validators.BlockPhrases {
		trimmed := strings.TrimSpace(phrase)
		if trimmed == "" {
			continue
		}
		phrases = append(phrases, trimmed)
	}
	if len(phrases) == 0 {
		phrases = append([]string(nil), defaultBlockPhrases...)
	}
	c.Validators.BlockPhrases = phrases
}

func (c *Config) normalizeOutput() {
	c.Output.PlaylistName = strings.TrimSpace(c.Output.PlaylistName)
	if c.Output.PlaylistName == "" {
		c.Output.PlaylistName = defaultPlaylistName
	}
	c.Output.ReportName = strings.TrimSpace(c.Output.ReportName)
	if c.Output.ReportName == "" {
		c.Output.ReportName = defaultReportName
	}
	c.Output.EPGURL = strings.TrimSpace(c.Output.EPGURL)
	c.Output.LogoTemplate = strings.TrimSpace(c.Output.LogoTemplate)
	groups := make([]string, 0, len(c.Output.GroupOrder))
	for _, group := range c.Output.GroupOrder {
		trimmed := strings.TrimSpace(group)
		if trimmed == "" {
			continue
		}
		groups = append(groups, trimmed)
	}
	if len(groups) == 0 {
		groups = append([]string(nil), defaultGroupOrder...)
	}
	c.Output.GroupOrder = groups
}

// normalizeNotifications resolves the Bark device key. An environment value
// overrides the file so CI schedulers can inject keys without editing config.
func (c *Config) normalizeNotifications() {
	if value, ok := os.LookupEnv("BARK_DEVICE_KEY"); ok && strings.TrimSpace(value) != "" {
		c.Notifications.BarkDeviceKey = strings.TrimSpace(value)
	} else {
		c.Notifications.BarkDeviceKey = strings.TrimSpace(c.Notifications.BarkDeviceKey)
	}
	c.Notifications.BarkServer = strings.TrimRight(strings.TrimSpace(c.Notifications.BarkServer), "/")
	if c.Notifications.BarkServer == "" {
		c.Notifications.BarkServer = defaultBarkServer
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
