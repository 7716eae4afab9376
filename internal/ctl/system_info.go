package ctl

import (
	"fmt"
	"strings"
)

// SystemInfo shows runtime and host information from the daemon.
func SystemInfo(baseURL string, jsonOutput bool) error {
	baseURL = strings.TrimRight(baseURL, "/")

	var resp struct {
		GoVersion    string `json:"go_version"`
		OS           string `json:"os"`
		Arch         string `json:"arch"`
		NumCPU       int    `json:"num_cpu"`
		NumGoroutine int    `json:"num_goroutine"`
		ConfigDir    string `json:"config_dir"`
		LogFile      string `json:"log_file"`
		Disk         *struct {
			Path           string  `json:"path"`
			TotalBytes     uint64  `json:"total_bytes"`
			UsedBytes      uint64  `json:"used_bytes"`
			AvailableBytes uint64  `json:"available_bytes"`
			UsedPercent    float64 `json:"used_percent"`
		} `json:"disk"`
	}
	if err := getJSON(baseURL, "/api/system", &resp); err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(resp)
	}

	logFile := resp.LogFile
	if logFile == "" {
		logFile = "stdout only"
	}

	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, header("  SYSTEM INFO"))
	fmt.Fprintln(stdout, rule(50))
	fmt.Fprintf(stdout, "  Go version:  %s\n", resp.GoVersion)
	fmt.Fprintf(stdout, "  OS/Arch:     %s/%s\n", resp.OS, resp.Arch)
	fmt.Fprintf(stdout, "  CPUs:        %d\n", resp.NumCPU)
	fmt.Fprintf(stdout, "  Goroutines:  %d\n", resp.NumGoroutine)
	fmt.Fprintf(stdout, "  Config dir:  %s\n", resp.ConfigDir)
	fmt.Fprintf(stdout, "  Log file:    %s\n", logFile)

	if resp.Disk != nil {
		fmt.Fprintf(stdout, "  Log disk:    %s\n", resp.Disk.Path)
		fmt.Fprintf(stdout, "  Disk total:  %s\n", formatBytes(int64(resp.Disk.TotalBytes)))
		fmt.Fprintf(stdout, "  Disk used:   %s (%.1f%%)\n", formatBytes(int64(resp.Disk.UsedBytes)), resp.Disk.UsedPercent)
		fmt.Fprintf(stdout, "  Disk avail:  %s\n", formatBytes(int64(resp.Disk.AvailableBytes)))
	}

	fmt.Fprintln(stdout)
	return nil
}
