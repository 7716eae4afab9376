package tle

import "strings"

// Lines is the output of Normalize: data lines in input order and the
// "#" comment lines split out beside them.
type Lines struct {
	Data     []string
	Comments []string
}

var lineEndings = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// Normalize canonicalizes line endings (CRLF, CR, LF) to LF, turns tabs into
// spaces, trims every line and drops the ones left empty. Lines starting with
// "#" are returned as comments, without the marker, and do not count as data.
// It never fails.
func Normalize(text string) Lines {
	var out Lines
	for _, raw := range strings.Split(lineEndings.Replace(text), "\n") {
		line := strings.TrimSpace(strings.ReplaceAll(raw, "\t", " "))
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			out.Comments = append(out.Comments, strings.TrimSpace(line[1:]))
			continue
		}
		out.Data = append(out.Data, line)
	}
	return out
}
