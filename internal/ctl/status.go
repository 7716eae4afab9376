package ctl

import (
	"fmt"
	"strings"
	"time"
)

// StatusResponse mirrors the JSON returned by GET /api/status.
type StatusResponse struct {
	Name          string `json:"name"`
	State         string `json:"state"`
	Mode          string `json:"mode"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	ConfigPath    string `json:"config_path"`
	ParserMode    string `json:"parser_mode"`
	StrictMode    bool   `json:"strict_mode"`
	DemoEnabled   bool   `json:"demo_enabled"`
	MetricsPath   string `json:"metrics_path"`
	WSClients     int    `json:"ws_clients"`
}

// Status fetches the daemon status and prints a formatted summary.
func Status(baseURL string, jsonOutput bool) error {
	baseURL = strings.TrimRight(baseURL, "/")

	var s StatusResponse
	if err := getJSON(baseURL, "/api/status", &s); err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(s)
	}

	uptime := formatDuration(time.Duration(s.UptimeSeconds) * time.Second)
	configPath := s.ConfigPath
	if configPath == "" {
		configPath = "(defaults)"
	}
	metricsPath := s.MetricsPath
	if metricsPath == "" {
		metricsPath = "disabled"
	}

	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, header("  TLECHECK STATUS"))
	fmt.Fprintln(stdout, rule(38))
	fmt.Fprintf(stdout, "  %-12s %s\n", colorize(dim, "Daemon:"), s.Name)
	fmt.Fprintf(stdout, "  %-12s %s\n", colorize(dim, "State:"), colorize(stateColor(s.State), s.State))
	fmt.Fprintf(stdout, "  %-12s %s\n", colorize(dim, "Mode:"), s.Mode)
	fmt.Fprintf(stdout, "  %-12s %s\n", colorize(dim, "Uptime:"), uptime)
	fmt.Fprintf(stdout, "  %-12s %s (strict_mode=%t)\n", colorize(dim, "Parser:"), s.ParserMode, s.StrictMode)
	fmt.Fprintf(stdout, "  %-12s %s\n", colorize(dim, "Config:"), configPath)
	fmt.Fprintf(stdout, "  %-12s %s\n", colorize(dim, "Metrics:"), metricsPath)
	fmt.Fprintf(stdout, "  %-12s %d\n", colorize(dim, "Watchers:"), s.WSClients)
	fmt.Fprintf(stdout, "  %-12s %s\n", colorize(dim, "Host:"), baseURL)
	fmt.Fprintln(stdout)

	return nil
}
