// Package catalog handles bulk element-set text: the multi-set dumps served
// by CelesTrak and Space-Track, where 2-line and 3-line sets follow each
// other with optional "#" comments in between.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/large-farva/tlecheck/internal/tle"
)

//go:embed sample_tle.txt
var embeddedCatalog string

// SourceEmbedded is the source name reported for the built-in catalog.
const SourceEmbedded = "embedded"

// Embedded returns the sample catalog compiled into the binary.
func Embedded() string {
	return embeddedCatalog
}

// Load returns the raw catalog text at path. An empty path selects the
// embedded catalog. The second return value names where the text came from.
func Load(path string) (string, string, error) {
	if path == "" {
		return embeddedCatalog, SourceEmbedded, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("read catalog: %w", err)
	}
	if len(strings.TrimSpace(string(b))) == 0 {
		return "", "", fmt.Errorf("catalog %s is empty", path)
	}
	return string(b), path, nil
}

// Entry is one element set cut out of a bulk dump. Text holds the set's
// lines, including comments that preceded it, ready for the parser.
type Entry struct {
	Index int    `json:"index"`
	Line  int    `json:"line"` // 1-based line of the set's first line in the dump
	Name  string `json:"name,omitempty"`
	Text  string `json:"text"`
}

// Split cuts raw into entries. A line starting with "1 " opens a set, the
// next "2 " line closes it, and any other line is taken as the name of the
// set that follows. Orphan or incomplete groups are still emitted so the
// parser can report what is wrong with them.
func Split(raw string) []Entry {
	var (
		out      []Entry
		pending  []string
		comments []string
		name     string
		start    int
		hasLine1 bool
	)

	flush := func() {
		if len(pending) == 0 {
			return
		}
		text := append(append([]string{}, comments...), pending...)
		out = append(out, Entry{
			Index: len(out),
			Line:  start,
			Name:  name,
			Text:  strings.Join(text, "\n"),
		})
		pending, comments, name, hasLine1 = nil, nil, "", false
	}
	open := func(lineNo int) {
		if len(pending) == 0 {
			start = lineNo
		}
	}

	lines := strings.Split(strings.NewReplacer("\r\n", "\n", "\r", "\n").Replace(raw), "\n")
	for i, line := range lines {
		lineNo := i + 1
		line = strings.TrimSpace(line)
		switch {
		case line == "":
			continue

		case strings.HasPrefix(line, "#"):
			// A comment between a name and its line 1 stays with the set.
			if hasLine1 {
				flush()
			}
			comments = append(comments, line)

		case isDataLine(line, '1'):
			if hasLine1 {
				flush()
			}
			open(lineNo)
			pending = append(pending, line)
			hasLine1 = true

		case isDataLine(line, '2'):
			open(lineNo)
			pending = append(pending, line)
			flush()

		default:
			flush()
			open(lineNo)
			pending = append(pending, line)
			name = line
		}
	}
	flush()
	return out
}

func isDataLine(line string, marker byte) bool {
	return len(line) > 1 && line[0] == marker && line[1] == ' '
}

// Report pairs an entry with its parse result.
type Report struct {
	Entry  Entry      `json:"entry"`
	Result tle.Result `json:"result"`
}

// Summary counts outcomes across a catalog run.
type Summary struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Errors    int `json:"errors"`
	Warnings  int `json:"warnings"`
}

// ParseAll runs the state machine over every entry in raw.
func ParseAll(p *tle.Parser, raw string) ([]Report, Summary) {
	entries := Split(raw)
	reports := make([]Report, 0, len(entries))
	var sum Summary
	for _, e := range entries {
		res := p.Run(e.Text)
		reports = append(reports, Report{Entry: e, Result: res})

		sum.Total++
		if res.Success {
			sum.Succeeded++
		} else {
			sum.Failed++
		}
		sum.Errors += len(res.Errors)
		sum.Warnings += len(res.Warnings)
	}
	return reports, sum
}
