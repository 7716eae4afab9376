package ctl

import (
	"strconv"

	"github.com/large-farva/tlecheck/internal/tle"
)

type checksumLine struct {
	Line string `json:"line"`
	tle.ChecksumResult
}

// Checksum verifies the mod-10 checksum of each line. A single "-" reads
// the lines from stdin. It returns ErrFailed if any line fails.
func Checksum(lines []string, jsonOutput bool) error {
	if len(lines) == 1 && lines[0] == "-" {
		text, err := readInput("-")
		if err != nil {
			return err
		}
		lines = tle.Normalize(text).Data
	}

	results := make([]checksumLine, len(lines))
	allOK := true
	for i, l := range lines {
		results[i] = checksumLine{Line: l, ChecksumResult: tle.VerifyChecksum(l)}
		allOK = allOK && results[i].OK
	}

	if jsonOutput {
		if err := printJSON(map[string]any{"ok": allOK, "results": results}); err != nil {
			return err
		}
	} else {
		renderChecksums(results)
	}
	if !allOK {
		return ErrFailed
	}
	return nil
}

func renderChecksums(results []checksumLine) {
	t := newTable("  ", "#", "Length", "Expected", "Actual", "Status")
	t.alignRight(0, 1, 2, 3)
	for i, r := range results {
		status, color := "ok", green
		switch {
		case !r.LengthOK:
			status, color = "bad length", red
		case !r.OK:
			status, color = "mismatch", red
		}
		t.rowColored([]string{"", "", "", "", color},
			strconv.Itoa(i+1), strconv.Itoa(r.Length), digit(r.Expected), digit(r.Actual), status)
	}
	t.flush()
}

func digit(d int) string {
	if d < 0 {
		return "-"
	}
	return strconv.Itoa(d)
}
