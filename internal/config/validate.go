package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	for _, field := range []struct {
		name  string
		value *string
	}{
		{"staging_dir", &c.Paths.StagingDir},
		{"artifact_dir", &c.Paths.ArtifactDir},
		{"log_dir", &c.Paths.LogDir},
	} {
		expanded, err := expandPath(strings.TrimSpace(*field.value))
		if err != nil {
			return fmt.Errorf("normalize %s: %w", field.name, err)
		}
		*field.value = expanded
	}

	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	c.Store.Backend = strings.ToLower(strings.TrimSpace(c.Store.Backend))
	c.Convert.Format = strings.ToLower(strings.TrimSpace(c.Convert.Format))
	c.Convert.YtdlpBinary = strings.TrimSpace(c.Convert.YtdlpBinary)
	c.Convert.FFmpegBinary = strings.TrimSpace(c.Convert.FFmpegBinary)

	hosts := make([]string, 0, len(c.Convert.AllowedHosts))
	for _, host := range c.Convert.AllowedHosts {
		host = strings.ToLower(strings.TrimSpace(host))
		if host != "" {
			hosts = append(hosts, host)
		}
	}
	if len(hosts) == 0 {
		hosts = nil
	}
	c.Convert.AllowedHosts = hosts


	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	return nil
}

// Validate checks configuration invariants after normalization.
func (c *Config) Validate() error {
	var problems []string

	if c.Paths.StagingDir == "" {
		problems = append(problems, "paths.staging_dir is required")
	}
	if c.Paths.ArtifactDir == "" {
		problems = append(problems, "paths.artifact_dir is required")
	}
	if c.Paths.LogDir == "" {
		problems = append(problems, "paths.log_dir is required")
	}
	switch c.Store.Backend {
	case StoreBackendMemory, StoreBackendSQLite:
	default:
		problems = append(problems, fmt.Sprintf("store.backend: unsupported value %q (expected memory or sqlite)", c.Store.Backend))
	}
	if c.Convert.BitrateKbps <= 0 {
		problems = append(problems, "convert.bitrate_kbps must be positive")
	}
	if c.Convert.Format != "mp3" {
		problems = append(problems, fmt.Sprintf("convert.format: unsupported value %q (only mp3 is supported)", c.Convert.Format))
	}
	if c.Convert.YtdlpBinary == "" {
		problems = append(problems, "convert.ytdlp_binary is required")
	}
	if c.Convert.FFmpegBinary == "" {
		problems = append(problems, "convert.ffmpeg_binary is required")
	}
	if c.Convert.FetchTimeout <= 0 {
		problems = append(problems, "convert.fetch_timeout must be positive")
	}
	for _, host := range c.Convert.AllowedHosts {
		if strings.ContainsAny(host, "/: ") {
			problems = append(problems, fmt.Sprintf("convert.allowed_hosts: %q is not a bare host name", host))
		}
	}
	if c.Workflow.MaxActiveJobs < 0 {
		problems = append(problems, "workflow.max_active_jobs must not be negative")
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("logging.format: unsupported value %q", c.Logging.Format))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
