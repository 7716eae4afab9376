package tle

import (
	"fmt"
	"strings"
	"time"
)

// Severity ranks an Issue. Only critical issues are unconditionally fatal.
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// Code is the stable identifier of an Issue kind.
type Code string

const (
	// Input and format detection.
	CodeInvalidInputType   Code = "INVALID_INPUT_TYPE"
	CodeEmptyInput         Code = "EMPTY_INPUT"
	CodeInvalidLineCount   Code = "INVALID_LINE_COUNT"
	CodeAmbiguousNameLine  Code = "AMBIGUOUS_NAME_LINE"
	CodeInvalidOptions     Code = "INVALID_OPTIONS"
	CodeStateLimitExceeded Code = "STATE_LIMIT_EXCEEDED"
	CodeIllegalTransition  Code = "ILLEGAL_TRANSITION"

	// Extraction.
	CodePartialField Code = "PARTIAL_FIELD"
	CodeMissingField Code = "MISSING_FIELD"

	// Structure and ranges.
	CodeInvalidLineLength       Code = "INVALID_LINE_LENGTH"
	CodeInvalidLineNumber       Code = "INVALID_LINE_NUMBER"
	CodeChecksumMismatch        Code = "CHECKSUM_MISMATCH"
	CodeInvalidClassification   Code = "INVALID_CLASSIFICATION"
	CodeInvalidSatelliteNumber  Code = "INVALID_SATELLITE_NUMBER"
	CodeSatelliteNumberMismatch Code = "SATELLITE_NUMBER_MISMATCH"
	CodeValueOutOfRange         Code = "VALUE_OUT_OF_RANGE"
	CodeInvalidNumberFormat     Code = "INVALID_NUMBER_FORMAT"
	CodeMeanMotionOutOfRange    Code = "MEAN_MOTION_OUT_OF_RANGE"

	// Advisory diagnostics.
	CodeClassifiedData           Code = "CLASSIFIED_DATA"
	CodeStaleEpoch               Code = "STALE_EPOCH"
	CodeDeprecatedEpochYear      Code = "DEPRECATED_EPOCH_YEAR"
	CodeHighEccentricity         Code = "HIGH_ECCENTRICITY"
	CodeLowMeanMotion            Code = "LOW_MEAN_MOTION"
	CodeRevolutionNumberRollover Code = "REVOLUTION_NUMBER_ROLLOVER"
	CodeZeroDragTerm             Code = "ZERO_DRAG_TERM"
	CodeOrbitalDecay             Code = "ORBITAL_DECAY"
	CodeNonStandardEphemeris     Code = "NON_STANDARD_EPHEMERIS"
)

// Issue is one diagnostic raised while parsing. Issues are values; once
// appended to a list they are never modified in place.
type Issue struct {
	Severity Severity       `json:"severity"`
	Code     Code           `json:"code"`
	Message  string         `json:"message"`
	State    State          `json:"state"`
	Line     int            `json:"line,omitempty"` // 1 or 2 for data lines, 0 otherwise
	Field    Field          `json:"field,omitempty"`
	Details  map[string]any `json:"details,omitempty"`
}

func (i Issue) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s: %s", i.Severity, i.Code, i.Message)
	if i.Field != "" {
		fmt.Fprintf(&b, " (field %s)", i.Field)
	}
	return b.String()
}

// withSeverity returns a copy of i with a different severity. Details are
// shared; nothing mutates them after creation.
func (i Issue) withSeverity(s Severity) Issue {
	i.Severity = s
	return i
}

// ActionKind names what the parser did after an Issue.
type ActionKind string

const (
	ActionContinue   ActionKind = "continue"
	ActionSkipField  ActionKind = "skip-field"
	ActionUseDefault ActionKind = "use-default"
	ActionAttemptFix ActionKind = "attempt-fix"
	ActionAbort      ActionKind = "abort"
)

// RecoveryAction records one decision to keep going (or stop) despite an
// Issue. Seq is a per-call sequence number starting at 1.
type RecoveryAction struct {
	Action      ActionKind `json:"action"`
	Description string     `json:"description"`
	State       State      `json:"state"`
	Seq         int        `json:"seq"`
	At          time.Time  `json:"at"`
}

// ValidationError is returned by the validation-first API. It carries every
// issue found, not only the first.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	blocking := 0
	var first Issue
	for _, is := range e.Issues {
		if is.Severity == SeverityWarning {
			continue
		}
		if blocking == 0 {
			first = is
		}
		blocking++
	}
	switch blocking {
	case 0:
		return "tle: validation failed"
	case 1:
		return "tle: " + first.String()
	default:
		return fmt.Sprintf("tle: %s (and %d more)", first.String(), blocking-1)
	}
}

// Codes returns the codes of all non-warning issues, in order.
func (e *ValidationError) Codes() []Code {
	var out []Code
	for _, is := range e.Issues {
		if is.Severity != SeverityWarning {
			out = append(out, is.Code)
		}
	}
	return out
}

// HasCode reports whether any issue in list carries code.
func HasCode(list []Issue, code Code) bool {
	for _, is := range list {
		if is.Code == code {
			return true
		}
	}
	return false
}

// CountCode returns how many issues in list carry code.
func CountCode(list []Issue, code Code) int {
	n := 0
	for _, is := range list {
		if is.Code == code {
			n++
		}
	}
	return n
}
