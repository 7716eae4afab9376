package ctl

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/large-farva/tlecheck/internal/config"
)

// Config fetches and displays the daemon's running configuration.
func Config(baseURL string, jsonOutput bool) error {
	baseURL = strings.TrimRight(baseURL, "/")

	var raw json.RawMessage
	if err := getJSON(baseURL, "/api/config", &raw); err != nil {
		return err
	}

	if jsonOutput {
		var v any
		_ = json.Unmarshal(raw, &v)
		return printJSON(v)
	}

	var cfg config.Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return err
	}

	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, header("  DAEMON CONFIGURATION"))
	fmt.Fprintln(stdout, rule(50))

	section := func(name string) {
		fmt.Fprintf(stdout, "\n  %s\n", colorize(bold, "["+name+"]"))
	}
	field := func(key string, val any) {
		fmt.Fprintf(stdout, "    %-24s %v\n", colorize(dim, key+":"), val)
	}

	section("server")
	field("bind", cfg.Server.Bind)
	field("max_body_bytes", cfg.Server.MaxBodyBytes)

	section("logging")
	field("level", cfg.Logging.Level)
	if cfg.Logging.File != "" {
		field("file", cfg.Logging.File)
		field("max_size_mb", cfg.Logging.MaxSizeMB)
		field("max_backups", cfg.Logging.MaxBackups)
		field("max_age_days", cfg.Logging.MaxAgeDays)
		field("compress", cfg.Logging.Compress)
	}

	p := cfg.Parser
	section("parser")
	field("mode", p.Mode)
	field("validate", p.Validate)
	field("validate_ranges", p.ValidateRanges)
	field("strict_checksums", p.StrictChecksums)
	field("include_warnings", p.IncludeWarnings)
	field("include_comments", p.IncludeComments)
	field("attempt_recovery", p.AttemptRecovery)
	field("max_recovery_attempts", p.MaxRecoveryAttempts)
	field("include_partial_results", p.IncludePartialResults)
	field("strict_mode", p.StrictMode)

	section("demo")
	field("enabled", cfg.Demo.Enabled)
	field("interval_seconds", cfg.Demo.IntervalSeconds)
	catalog := cfg.Demo.Catalog
	if catalog == "" {
		catalog = "(built-in sample)"
	}
	field("catalog", catalog)

	section("metrics")
	field("enabled", cfg.Metrics.Enabled)
	field("path", cfg.Metrics.Path)

	fmt.Fprintln(stdout)
	return nil
}

// ConfigList shows the named profiles available to reload --profile.
func ConfigList(baseURL string, jsonOutput bool) error {
	baseURL = strings.TrimRight(baseURL, "/")

	var resp struct {
		ConfigDir string               `json:"config_dir"`
		Profiles  []config.ProfileInfo `json:"profiles"`
	}
	if err := getJSON(baseURL, "/api/config-list", &resp); err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(resp)
	}

	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, header("  CONFIG PROFILES  ")+colorize(dim, resp.ConfigDir))
	fmt.Fprintln(stdout, rule(60))
	if len(resp.Profiles) == 0 {
		fmt.Fprintln(stdout, "  No profiles found.")
		fmt.Fprintln(stdout)
		return nil
	}

	t := newTable("  ", "Profile", "Size", "Modified", "Status")
	t.alignRight(1)
	for _, p := range resp.Profiles {
		status, color := "valid", green
		if !p.Valid {
			status, color = "invalid: "+p.Error, red
		}
		t.rowColored([]string{"", "", "", color},
			p.Name, formatBytes(p.Size), p.Modified.Local().Format("2006-01-02 15:04"), status)
	}
	t.flush()
	fmt.Fprintln(stdout)
	return nil
}
