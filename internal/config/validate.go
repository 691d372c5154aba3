package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateSources(); err != nil {
		return err
	}
	if err := c.validateProbe(); err != nil {
		return err
	}
	if err := c.validateOutput(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateSources() error {
	if len(c.Sources.Remote) == 0 && c.Sources.LocalDir == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/aerial/config.toml"
		}
		return fmt.Errorf("at least one playlist source is required. Set sources.remote or sources.local_dir in %s (create with 'aerial config init')", defaultPath)
	}
	for _, raw := range c.Sources.Remote {
		parsed, err := url.Parse(raw)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			return fmt.Errorf("sources.remote entry %q must be an http(s) URL", raw)
		}
	}
	return nil
}

func (c *Config) validateProbe() error {
	if err := ensurePositiveMap(map[string]int{
		"probe.timeout":                 c.Probe.Timeout,
		"probe.head_timeout":            c.Probe.HeadTimeout,
		"probe.workers":                 c.Probe.Workers,
		"probe.prefix_bytes":            c.Probe.PrefixBytes,
		"sources.fetch_timeout":         c.Sources.FetchTimeout,
		"sources.fetch_limit":           c.Sources.FetchLimit,
		"sources.max_response_mib":      c.Sources.MaxResponseMiB,
		"validators.structural_timeout": c.Validators.StructuralTimeout,
		"validators.visual_timeout":     c.Validators.VisualTimeout,
	}); err != nil {
		return err
	}
	if c.Probe.FallbackLimit < 0 {
		return errors.New("probe.fallback_limit must be >= 0")
	}
	if c.Probe.HeadTimeout > c.Probe.Timeout {
		return errors.New("probe.head_timeout must not exceed probe.timeout")
	}
	return nil
}

func (c *Config) validateOutput() error {
	if strings.ContainsAny(c.Output.PlaylistName, "/\\") {
		return errors.New("output.playlist_name must be a bare file name")
	}
	if strings.ContainsAny(c.Output.ReportName, "/\\") {
		return errors.New("output.report_name must be a bare file name")
	}
	if c.Output.LogoTemplate != "" && !strings.Contains(c.Output.LogoTemplate, "{name}") {
		return errors.New("output.logo_template must contain a {name} placeholder")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if err := ensurePositiveMap(map[string]int{
		"notifications.request_timeout": c.Notifications.RequestTimeout,
		"workflow.queue_poll_interval":  c.Workflow.QueuePollInterval,
		"workflow.error_retry_interval": c.Workflow.ErrorRetryInterval,
	}); err != nil {
		return err
	}
	if c.Workflow.HeartbeatInterval <= 0 {
		return errors.New("workflow.heartbeat_interval must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= 0 {
		return errors.New("workflow.heartbeat_timeout must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= c.Workflow.HeartbeatInterval {
		return errors.New("workflow.heartbeat_timeout must be greater than workflow.heartbeat_interval")
	}
	if c.Workflow.ScanInterval < 0 {
		return errors.New("workflow.scan_interval must be >= 0")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
