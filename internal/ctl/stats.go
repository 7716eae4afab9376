package ctl

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Stats shows parse counts since the daemon started.
func Stats(baseURL string, jsonOutput bool) error {
	baseURL = strings.TrimRight(baseURL, "/")

	var resp struct {
		TotalParses   int            `json:"total_parses"`
		Succeeded     int            `json:"succeeded"`
		Failed        int            `json:"failed"`
		ByFinalState  map[string]int `json:"by_final_state"`
		IssuesByCode  map[string]int `json:"issues_by_code"`
		LastParseAt   *time.Time     `json:"last_parse_at"`
		UptimeSeconds int64          `json:"uptime_seconds"`
		WSClients     int            `json:"ws_clients"`
		WSDropped     int64          `json:"ws_dropped"`
	}
	if err := getJSON(baseURL, "/api/stats", &resp); err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(resp)
	}

	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, header("  PARSE STATISTICS"))
	fmt.Fprintln(stdout, rule(42))
	fmt.Fprintf(stdout, "  Uptime:          %s\n", formatDuration(time.Duration(resp.UptimeSeconds)*time.Second))
	fmt.Fprintf(stdout, "  Total parses:    %d\n", resp.TotalParses)
	fmt.Fprintf(stdout, "  Completed:       %s\n", colorize(green, strconv.Itoa(resp.Succeeded)))
	fmt.Fprintf(stdout, "  Failed:          %s\n", colorize(red, strconv.Itoa(resp.Failed)))
	if resp.LastParseAt != nil {
		fmt.Fprintf(stdout, "  Last parse:      %s\n", resp.LastParseAt.Local().Format(time.RFC3339))
	} else {
		fmt.Fprintf(stdout, "  Last parse:      none\n")
	}
	fmt.Fprintf(stdout, "  Watchers:        %d (%d events dropped)\n", resp.WSClients, resp.WSDropped)

	if len(resp.IssuesByCode) > 0 {
		fmt.Fprintln(stdout)
		fmt.Fprintln(stdout, header("  ISSUES BY CODE"))
		codes := make([]string, 0, len(resp.IssuesByCode))
		for c := range resp.IssuesByCode {
			codes = append(codes, c)
		}
		sort.Slice(codes, func(i, j int) bool {
			if resp.IssuesByCode[codes[i]] != resp.IssuesByCode[codes[j]] {
				return resp.IssuesByCode[codes[i]] > resp.IssuesByCode[codes[j]]
			}
			return codes[i] < codes[j]
		})
		t := newTable("  ", "Code", "Count")
		t.alignRight(1)
		for _, c := range codes {
			t.row(c, strconv.Itoa(resp.IssuesByCode[c]))
		}
		t.flush()
	}

	fmt.Fprintln(stdout)
	return nil
}
