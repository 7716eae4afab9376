package tle

import (
	"fmt"
	"strconv"
	"strings"
)

// bound describes the numeric range check for one field.
type bound struct {
	field    Field
	line     int
	min, max float64
	integer  bool
	optional bool     // blank values are allowed and skipped
	severity Severity // severity when out of range
	prefix   string   // prepended before parsing (implied decimal point)
}

// Satellite numbers are bounded in checkSatelliteNumbers, which also owns
// the numeric-only rule for them.
var bounds = []bound{
	{field: FieldIntlDesignatorYear, line: 1, min: 0, max: 99, integer: true, optional: true, severity: SeverityError},
	{field: FieldIntlDesignatorLaunchNumber, line: 1, min: 1, max: 999, integer: true, optional: true, severity: SeverityError},
	{field: FieldEpochYear, line: 1, min: 0, max: 99, integer: true, severity: SeverityError},
	{field: FieldEpoch, line: 1, min: 1, max: 366.99999999, severity: SeverityError},
	{field: FieldEphemerisType, line: 1, min: 0, max: 9, integer: true, optional: true, severity: SeverityError},
	{field: FieldElementSetNumber, line: 1, min: 0, max: 9999, integer: true, severity: SeverityError},
	{field: FieldInclination, line: 2, min: 0, max: 180, severity: SeverityError},
	{field: FieldRightAscension, line: 2, min: 0, max: 360, severity: SeverityError},
	{field: FieldEccentricity, line: 2, min: 0, max: 1, severity: SeverityError, prefix: "0."},
	{field: FieldArgumentOfPerigee, line: 2, min: 0, max: 360, severity: SeverityError},
	{field: FieldMeanAnomaly, line: 2, min: 0, max: 360, severity: SeverityError},
	// Some valid very high or very low orbits fall outside the nominal
	// band, so mean motion is only advisory.
	{field: FieldMeanMotion, line: 2, min: 0, max: 20, severity: SeverityWarning},
	{field: FieldRevolutionNumber, line: 2, min: 0, max: 99999, integer: true, severity: SeverityError},
}

const (
	minSatelliteNumber = 1
	maxSatelliteNumber = 99999
)

var validClassifications = []string{"U", "C", "S"}

// Validate runs every structure and range check against a pair of data
// lines and the record extracted from them. It never stops at the first
// failure; one Issue is returned per failed check.
func Validate(line1, line2 string, rec *Record, opts Options) []Issue {
	var out []Issue
	for i, line := range []string{line1, line2} {
		lineNo := i + 1
		if is, bad := checkLineLength(line, lineNo, StateValidating); bad {
			out = append(out, is)
		}
		if is, bad := checkLineNumber(line, lineNo, StateValidating); bad {
			out = append(out, is)
		}
		if is, bad := checkChecksum(line, lineNo, StateValidating, opts.checksumSeverity()); bad {
			out = append(out, is)
		}
	}
	return append(out, validateRecord(rec, opts, StateValidating)...)
}

// validateRecord holds the cross-field checks run in the Validating phase.
func validateRecord(rec *Record, opts Options, state State) []Issue {
	var out []Issue
	if is, bad := checkClassification(rec, state); bad {
		out = append(out, is)
	}
	out = append(out, checkSatelliteNumbers(rec, opts.ValidateRanges, state)...)
	if opts.ValidateRanges {
		out = append(out, checkRanges(rec, state)...)
	}
	return out
}

func checkLineLength(line string, lineNo int, state State) (Issue, bool) {
	if len(line) == LineLength {
		return Issue{}, false
	}
	return Issue{
		Severity: SeverityError,
		Code:     CodeInvalidLineLength,
		Message:  fmt.Sprintf("line %d is %d characters, want %d", lineNo, len(line), LineLength),
		State:    state,
		Line:     lineNo,
		Details:  map[string]any{"expected": LineLength, "actual": len(line)},
	}, true
}

func checkLineNumber(line string, lineNo int, state State) (Issue, bool) {
	want := strconv.Itoa(lineNo)
	got := ""
	if len(line) > 0 {
		got = line[:1]
	}
	if got == want {
		return Issue{}, false
	}
	field := FieldLineNumber1
	if lineNo == 2 {
		field = FieldLineNumber2
	}
	return Issue{
		Severity: SeverityError,
		Code:     CodeInvalidLineNumber,
		Message:  fmt.Sprintf("line %d starts with %q, want %q", lineNo, got, want),
		State:    state,
		Line:     lineNo,
		Field:    field,
		Details:  map[string]any{"expected": want, "actual": got},
	}, true
}

// checkChecksum assumes the length was checked separately; a line of the
// wrong length yields no checksum issue.
func checkChecksum(line string, lineNo int, state State, sev Severity) (Issue, bool) {
	res := VerifyChecksum(line)
	if !res.LengthOK || res.OK {
		return Issue{}, false
	}
	field := FieldChecksum1
	if lineNo == 2 {
		field = FieldChecksum2
	}
	actual := string(line[checksumColumn])
	return Issue{
		Severity: sev,
		Code:     CodeChecksumMismatch,
		Message:  fmt.Sprintf("line %d checksum is %q, computed %d", lineNo, actual, res.Expected),
		State:    state,
		Line:     lineNo,
		Field:    field,
		Details:  map[string]any{"expected": res.Expected, "actual": actual},
	}, true
}

func checkClassification(rec *Record, state State) (Issue, bool) {
	v, ok := rec.Get(FieldClassification)
	if !ok {
		return Issue{}, false
	}
	for _, c := range validClassifications {
		if v == c {
			return Issue{}, false
		}
	}
	return Issue{
		Severity: SeverityError,
		Code:     CodeInvalidClassification,
		Message:  fmt.Sprintf("classification %q is not one of %s", v, strings.Join(validClassifications, ", ")),
		State:    state,
		Line:     1,
		Field:    FieldClassification,
		Details:  map[string]any{"expected": validClassifications, "actual": v},
	}, true
}

// checkSatelliteNumbers requires both catalog numbers to be purely numeric,
// within range when checkRange is set, and equal to each other. A mismatch
// is reported, never corrected.
func checkSatelliteNumbers(rec *Record, checkRange bool, state State) []Issue {
	var out []Issue
	nums := make(map[Field]int, 2)
	for i, f := range []Field{FieldSatelliteNumber1, FieldSatelliteNumber2} {
		v, ok := rec.Get(f)
		if !ok {
			continue
		}
		if !isDigits(v) {
			out = append(out, Issue{
				Severity: SeverityError,
				Code:     CodeInvalidSatelliteNumber,
				Message:  fmt.Sprintf("satellite number %q is not numeric", v),
				State:    state,
				Line:     i + 1,
				Field:    f,
				Details:  map[string]any{"actual": v},
			})
			continue
		}
		n, _ := strconv.Atoi(v)
		nums[f] = n
		if checkRange && (n < minSatelliteNumber || n > maxSatelliteNumber) {
			out = append(out, rangeIssue(f, i+1, minSatelliteNumber, maxSatelliteNumber, v, SeverityError, state))
		}
	}

	v1, ok1 := rec.Get(FieldSatelliteNumber1)
	v2, ok2 := rec.Get(FieldSatelliteNumber2)
	if !ok1 || !ok2 {
		return out
	}
	n1, num1 := nums[FieldSatelliteNumber1]
	n2, num2 := nums[FieldSatelliteNumber2]
	same := v1 == v2
	if num1 && num2 {
		same = n1 == n2
	}
	if !same {
		out = append(out, Issue{
			Severity: SeverityError,
			Code:     CodeSatelliteNumberMismatch,
			Message:  fmt.Sprintf("satellite number differs between lines: %q vs %q", v1, v2),
			State:    state,
			Field:    FieldSatelliteNumber2,
			Details:  map[string]any{"expected": v1, "actual": v2},
		})
	}
	return out
}

func checkRanges(rec *Record, state State) []Issue {
	var out []Issue
	for _, b := range bounds {
		v, ok := rec.Get(b.field)
		if !ok {
			continue
		}
		if v == "" {
			if b.optional {
				continue
			}
			out = append(out, formatIssue(b, v, state))
			continue
		}
		x, err := b.parse(v)
		if err != nil {
			out = append(out, formatIssue(b, v, state))
			continue
		}
		if x < b.min || x > b.max {
			out = append(out, rangeIssue(b.field, b.line, b.min, b.max, v, b.severity, state))
		}
	}
	return out
}

func (b bound) parse(v string) (float64, error) {
	if b.integer {
		if !isDigits(v) {
			return 0, strconv.ErrSyntax
		}
		n, err := strconv.Atoi(v)
		return float64(n), err
	}
	if b.prefix != "" && !isDigits(v) {
		return 0, strconv.ErrSyntax
	}
	return strconv.ParseFloat(b.prefix+v, 64)
}

func rangeIssue(f Field, lineNo int, min, max float64, actual string, sev Severity, state State) Issue {
	code := CodeValueOutOfRange
	if f == FieldMeanMotion {
		code = CodeMeanMotionOutOfRange
	}
	return Issue{
		Severity: sev,
		Code:     code,
		Message:  fmt.Sprintf("%s %q outside [%s, %s]", f, actual, formatBound(min), formatBound(max)),
		State:    state,
		Line:     lineNo,
		Field:    f,
		Details:  map[string]any{"min": min, "max": max, "actual": actual},
	}
}

func formatIssue(b bound, actual string, state State) Issue {
	kind := "a number"
	if b.integer {
		kind = "an integer"
	}
	return Issue{
		Severity: SeverityError,
		Code:     CodeInvalidNumberFormat,
		Message:  fmt.Sprintf("%s %q is not %s", b.field, actual, kind),
		State:    state,
		Line:     b.line,
		Field:    b.field,
		Details:  map[string]any{"min": b.min, "max": b.max, "actual": actual},
	}
}

func formatBound(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
