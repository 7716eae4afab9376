package tle

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	staleAfter             = 30 * 24 * time.Hour
	highEccentricity       = 0.25
	lowMeanMotion          = 1.0
	revolutionRolloverWarn = 90000
)

// detector inspects an extracted record and reports at most one advisory
// warning. Detectors have no side effects and never change control flow.
type detector func(rec *Record, now time.Time) (Issue, bool)

var detectors = []detector{
	detectClassified,
	detectStaleEpoch,
	detectDeprecatedEpochYear,
	detectHighEccentricity,
	detectLowMeanMotion,
	detectRevolutionRollover,
	detectZeroDrag,
	detectDecay,
	detectNonStandardEphemeris,
}

// Diagnose runs every detector against rec. All returned issues have
// warning severity.
func Diagnose(rec *Record, now time.Time) []Issue {
	return diagnose(rec, now, StateValidating)
}

func diagnose(rec *Record, now time.Time, state State) []Issue {
	var out []Issue
	for _, d := range detectors {
		if is, ok := d(rec, now); ok {
			is.Severity = SeverityWarning
			is.State = state
			out = append(out, is)
		}
	}
	return out
}

func detectClassified(rec *Record, _ time.Time) (Issue, bool) {
	v, ok := rec.Get(FieldClassification)
	if !ok || v == "" || v == "U" {
		return Issue{}, false
	}
	return Issue{
		Code:    CodeClassifiedData,
		Message: fmt.Sprintf("classification %q marks the element set as not unclassified", v),
		Line:    1,
		Field:   FieldClassification,
		Details: map[string]any{"actual": v},
	}, true
}

func detectStaleEpoch(rec *Record, now time.Time) (Issue, bool) {
	epoch, err := EpochTime(rec.Value(FieldEpochYear), rec.Value(FieldEpoch))
	if err != nil {
		return Issue{}, false
	}
	age := now.Sub(epoch)
	if age <= staleAfter {
		return Issue{}, false
	}
	days := int(age.Hours() / 24)
	return Issue{
		Code:    CodeStaleEpoch,
		Message: fmt.Sprintf("epoch %s is %d days old", epoch.Format(time.RFC3339), days),
		Line:    1,
		Field:   FieldEpoch,
		Details: map[string]any{"epoch": epoch.Format(time.RFC3339Nano), "ageDays": days, "maxAgeDays": int(staleAfter.Hours() / 24)},
	}, true
}

func detectDeprecatedEpochYear(rec *Record, _ time.Time) (Issue, bool) {
	v := rec.Value(FieldEpochYear)
	yy, err := strconv.Atoi(v)
	if err != nil || fullYear(yy) >= 2000 {
		return Issue{}, false
	}
	return Issue{
		Code:    CodeDeprecatedEpochYear,
		Message: fmt.Sprintf("epoch year %q is in the 1900s", v),
		Line:    1,
		Field:   FieldEpochYear,
		Details: map[string]any{"actual": v, "year": fullYear(yy)},
	}, true
}

func detectHighEccentricity(rec *Record, _ time.Time) (Issue, bool) {
	v := rec.Value(FieldEccentricity)
	if !isDigits(v) {
		return Issue{}, false
	}
	e, err := strconv.ParseFloat("0."+v, 64)
	if err != nil || e <= highEccentricity {
		return Issue{}, false
	}
	return Issue{
		Code:    CodeHighEccentricity,
		Message: fmt.Sprintf("eccentricity %g exceeds %g", e, highEccentricity),
		Line:    2,
		Field:   FieldEccentricity,
		Details: map[string]any{"actual": e, "threshold": highEccentricity},
	}, true
}

func detectLowMeanMotion(rec *Record, _ time.Time) (Issue, bool) {
	n, err := strconv.ParseFloat(rec.Value(FieldMeanMotion), 64)
	if err != nil || n >= lowMeanMotion {
		return Issue{}, false
	}
	return Issue{
		Code:    CodeLowMeanMotion,
		Message: fmt.Sprintf("mean motion %g rev/day is below %g", n, lowMeanMotion),
		Line:    2,
		Field:   FieldMeanMotion,
		Details: map[string]any{"actual": n, "threshold": lowMeanMotion},
	}, true
}

func detectRevolutionRollover(rec *Record, _ time.Time) (Issue, bool) {
	n, err := strconv.Atoi(rec.Value(FieldRevolutionNumber))
	if err != nil || n <= revolutionRolloverWarn {
		return Issue{}, false
	}
	return Issue{
		Code:    CodeRevolutionNumberRollover,
		Message: fmt.Sprintf("revolution number %d is close to the 5-digit rollover", n),
		Line:    2,
		Field:   FieldRevolutionNumber,
		Details: map[string]any{"actual": n, "threshold": revolutionRolloverWarn},
	}, true
}

func detectZeroDrag(rec *Record, _ time.Time) (Issue, bool) {
	v, ok := rec.Get(FieldBStarDragTerm)
	if !ok {
		return Issue{}, false
	}
	b, err := ParseImpliedDecimal(v)
	if err != nil || b != 0 {
		return Issue{}, false
	}
	return Issue{
		Code:    CodeZeroDragTerm,
		Message: "B* drag term is exactly zero",
		Line:    1,
		Field:   FieldBStarDragTerm,
		Details: map[string]any{"actual": v},
	}, true
}

func detectDecay(rec *Record, _ time.Time) (Issue, bool) {
	v := rec.Value(FieldFirstDerivativeMeanMotion)
	if !strings.HasPrefix(v, "-") {
		return Issue{}, false
	}
	d, err := strconv.ParseFloat(v, 64)
	if err != nil || d >= 0 {
		return Issue{}, false
	}
	return Issue{
		Code:    CodeOrbitalDecay,
		Message: fmt.Sprintf("first derivative of mean motion %s is negative", v),
		Line:    1,
		Field:   FieldFirstDerivativeMeanMotion,
		Details: map[string]any{"actual": v},
	}, true
}

func detectNonStandardEphemeris(rec *Record, _ time.Time) (Issue, bool) {
	v := rec.Value(FieldEphemerisType)
	if v == "" || v == "0" {
		return Issue{}, false
	}
	return Issue{
		Code:    CodeNonStandardEphemeris,
		Message: fmt.Sprintf("ephemeris type %q is not 0 (SGP4)", v),
		Line:    1,
		Field:   FieldEphemerisType,
		Details: map[string]any{"actual": v},
	}, true
}

// fullYear expands a two-digit TLE year: 57-99 are 1957-1999, 00-56 are
// 2000-2056.
func fullYear(yy int) int {
	if yy >= 57 {
		return 1900 + yy
	}
	return 2000 + yy
}

// EpochTime converts the raw epoch year and fractional day-of-year fields to
// a UTC time. Day 1.0 is midnight on January 1st.
func EpochTime(year, day string) (time.Time, error) {
	yy, err := strconv.Atoi(strings.TrimSpace(year))
	if err != nil || yy < 0 || yy > 99 {
		return time.Time{}, fmt.Errorf("invalid epoch year %q", year)
	}
	d, err := strconv.ParseFloat(strings.TrimSpace(day), 64)
	if err != nil || d < 1 || d >= 367 {
		return time.Time{}, fmt.Errorf("invalid epoch day %q", day)
	}
	start := time.Date(fullYear(yy), time.January, 1, 0, 0, 0, 0, time.UTC)
	return start.Add(time.Duration((d - 1) * float64(24*time.Hour))), nil
}

// ParseImpliedDecimal decodes the TLE exponent notation used by the B* and
// second-derivative fields: an optional sign, a mantissa with an implied
// leading decimal point, then a signed single-digit exponent. "35580-4" is
// 0.35580e-4 and "-11606-4" is -0.11606e-4.
func ParseImpliedDecimal(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty implied-decimal value")
	}
	sign := 1.0
	switch s[0] {
	case '-':
		sign = -1
		s = s[1:]
	case '+':
		s = s[1:]
	}
	if len(s) < 3 {
		return 0, fmt.Errorf("implied-decimal value %q too short", s)
	}
	expSign := s[len(s)-2]
	if expSign != '-' && expSign != '+' {
		// A few producers omit the exponent when it is zero.
		if !isDigits(s) {
			return 0, fmt.Errorf("invalid implied-decimal value %q", s)
		}
		m, err := strconv.ParseFloat("0."+s, 64)
		return sign * m, err
	}
	mantissa := strings.TrimSpace(s[:len(s)-2])
	if !isDigits(mantissa) {
		return 0, fmt.Errorf("invalid implied-decimal mantissa %q", mantissa)
	}
	return strconv.ParseFloat(fmt.Sprintf("%s0.%se%c%c", signPrefix(sign), mantissa, expSign, s[len(s)-1]), 64)
}

func signPrefix(sign float64) string {
	if sign < 0 {
		return "-"
	}
	return ""
}
