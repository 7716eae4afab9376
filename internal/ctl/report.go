package ctl

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/large-farva/tlecheck/internal/elements"
	"github.com/large-farva/tlecheck/internal/tle"
)

// CrossCheckResult reports whether the SGP4 library's reader agreed with
// the parser about a set.
type CrossCheckResult struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// ParseReport is the state-machine result plus, when asked for, the
// numeric elements. It matches the body of POST /api/parse.
type ParseReport struct {
	RequestID string `json:"requestId,omitempty"`
	tle.Result
	Elements      *elements.Elements `json:"elements,omitempty"`
	ElementsError string             `json:"elementsError,omitempty"`
	SGP4          *CrossCheckResult  `json:"sgp4,omitempty"`
}

// addElements fills the numeric view of rep from its record and lines.
func addElements(rep *ParseReport) {
	if rep.Data == nil {
		return
	}
	el, err := elements.FromRecord(rep.Data)
	if err != nil {
		rep.ElementsError = err.Error()
	} else {
		rep.Elements = &el
	}

	ctx := rep.Context
	i, j := ctx.Line1Index, ctx.Line2Index
	if i < 0 || j < 0 || i >= len(ctx.Lines) || j >= len(ctx.Lines) {
		return
	}
	cc := CrossCheckResult{OK: true}
	if err := elements.CrossCheck(rep.Data.Value(tle.FieldSatelliteName), ctx.Lines[i], ctx.Lines[j]); err != nil {
		cc = CrossCheckResult{Error: err.Error()}
	}
	rep.SGP4 = &cc
}

func renderReport(rep ParseReport) {
	res := rep.Result
	name := res.Data.Value(tle.FieldSatelliteName)
	if name == "" {
		name = "(unnamed)"
	}
	title := "  " + name
	if n := res.Data.Value(tle.FieldSatelliteNumber1); n != "" {
		title += "  #" + n
	}

	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, header(title))
	fmt.Fprintln(stdout, rule(60))
	fmt.Fprintf(stdout, "  %-12s %s\n", colorize(dim, "State:"), colorize(finalStateColor(res.FinalState), res.FinalState.String()))
	if res.Context.Format != "" {
		fmt.Fprintf(stdout, "  %-12s %s\n", colorize(dim, "Format:"), res.Context.Format)
	}
	fmt.Fprintf(stdout, "  %-12s %d error(s), %d warning(s)\n", colorize(dim, "Issues:"), len(res.Errors), len(res.Warnings))
	if rep.RequestID != "" {
		fmt.Fprintf(stdout, "  %-12s %s\n", colorize(dim, "Request:"), rep.RequestID)
	}

	if res.Data != nil {
		fmt.Fprintln(stdout)
		fmt.Fprintln(stdout, header("  FIELDS"))
		t := newTable("  ", "Field", "Value")
		for _, f := range tle.AllFields() {
			if v, ok := res.Data.Get(f); ok {
				t.row(string(f), v)
			} else {
				t.rowColored([]string{"", dim}, string(f), "(missing)")
			}
		}
		t.flush()
	}

	if issues := res.Issues(); len(issues) > 0 {
		fmt.Fprintln(stdout)
		fmt.Fprintln(stdout, header("  ISSUES"))
		renderIssues(issues)
	}

	if len(res.RecoveryActions) > 0 {
		fmt.Fprintln(stdout)
		fmt.Fprintln(stdout, header("  RECOVERY"))
		t := newTable("  ", "#", "Action", "State", "Description")
		t.alignRight(0)
		for _, a := range res.RecoveryActions {
			t.row(strconv.Itoa(a.Seq), string(a.Action), a.State.String(), a.Description)
		}
		t.flush()
	}

	if rep.Elements != nil || rep.ElementsError != "" {
		fmt.Fprintln(stdout)
		fmt.Fprintln(stdout, header("  ELEMENTS"))
		renderElements(rep)
	}
	fmt.Fprintln(stdout)
}

func renderIssues(issues []tle.Issue) {
	t := newTable("  ", "Severity", "Code", "Line", "Message")
	for _, is := range issues {
		line := ""
		if is.Line > 0 {
			line = strconv.Itoa(is.Line)
		}
		t.rowColored([]string{severityColor(is.Severity)}, string(is.Severity), string(is.Code), line, is.Message)
	}
	t.flush()
}

func renderElements(rep ParseReport) {
	if rep.ElementsError != "" {
		fmt.Fprintf(stdout, "  %s %s\n", colorize(red, "unavailable:"), rep.ElementsError)
		return
	}
	e := rep.Elements
	field := func(key string, val any) {
		fmt.Fprintf(stdout, "  %-20s %v\n", colorize(dim, key+":"), val)
	}
	field("epoch", e.Epoch.Format(time.RFC3339))
	field("inclination", fmt.Sprintf("%.4f°", e.Inclination))
	field("raan", fmt.Sprintf("%.4f°", e.RightAscension))
	field("eccentricity", strconv.FormatFloat(e.Eccentricity, 'f', -1, 64))
	field("arg of perigee", fmt.Sprintf("%.4f°", e.ArgumentOfPerigee))
	field("mean anomaly", fmt.Sprintf("%.4f°", e.MeanAnomaly))
	field("mean motion", fmt.Sprintf("%.8f rev/day", e.MeanMotion))
	field("period", e.Period().Round(time.Second))
	field("semi-major axis", fmt.Sprintf("%.1f km", e.SemiMajorAxis()))
	field("bstar", strconv.FormatFloat(e.BStar, 'g', -1, 64))
	if rep.SGP4 != nil {
		if rep.SGP4.OK {
			field("sgp4 reader", colorize(green, "agrees"))
		} else {
			field("sgp4 reader", colorize(red, strings.TrimPrefix(rep.SGP4.Error, "crosscheck: ")))
		}
	}
}
