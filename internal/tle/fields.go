package tle

import (
	"fmt"
	"strings"
)

// Column maps a Field to its fixed [Start, End) character range on a line.
type Column struct {
	Field Field
	Start int
	End   int
}

// Columns are 0-based and half-open; the published TLE layout numbers them
// from 1, so satellite number "cols 3-7" is [2, 7) here.
var line1Columns = []Column{
	{FieldLineNumber1, 0, 1},
	{FieldSatelliteNumber1, 2, 7},
	{FieldClassification, 7, 8},
	{FieldIntlDesignatorYear, 9, 11},
	{FieldIntlDesignatorLaunchNumber, 11, 14},
	{FieldIntlDesignatorPiece, 14, 17},
	{FieldEpochYear, 18, 20},
	{FieldEpoch, 20, 32},
	{FieldFirstDerivativeMeanMotion, 33, 43},
	{FieldSecondDerivativeMeanMotion, 44, 52},
	{FieldBStarDragTerm, 53, 61},
	{FieldEphemerisType, 62, 63},
	{FieldElementSetNumber, 64, 68},
	{FieldChecksum1, 68, 69},
}

var line2Columns = []Column{
	{FieldLineNumber2, 0, 1},
	{FieldSatelliteNumber2, 2, 7},
	{FieldInclination, 8, 16},
	{FieldRightAscension, 17, 25},
	{FieldEccentricity, 26, 33},
	{FieldArgumentOfPerigee, 34, 42},
	{FieldMeanAnomaly, 43, 51},
	{FieldMeanMotion, 52, 63},
	{FieldRevolutionNumber, 63, 68},
	{FieldChecksum2, 68, 69},
}

// LineColumns returns the column table for data line 1 or 2.
func LineColumns(lineNo int) []Column {
	var src []Column
	switch lineNo {
	case 1:
		src = line1Columns
	case 2:
		src = line2Columns
	default:
		return nil
	}
	out := make([]Column, len(src))
	copy(out, src)
	return out
}

// ExtractedField is the result of reading one Column from a line.
type ExtractedField struct {
	Column
	Value   string
	Present bool // false when the line ends at or before Start
	Partial bool // the line ends inside [Start, End)
}

// ExtractFields reads every column from line. Short lines never fail: a
// range cut off by the end of the line yields its available part with
// Partial set, and a range the line never reaches is left absent.
func ExtractFields(line string, cols []Column) []ExtractedField {
	out := make([]ExtractedField, 0, len(cols))
	for _, c := range cols {
		ef := ExtractedField{Column: c}
		switch {
		case len(line) >= c.End:
			ef.Value = strings.TrimSpace(line[c.Start:c.End])
			ef.Present = true
		case len(line) > c.Start:
			ef.Value = strings.TrimSpace(line[c.Start:])
			ef.Present = true
			ef.Partial = true
		}
		out = append(out, ef)
	}
	return out
}

// gapIssue returns the warning explaining why ef is incomplete, if it is.
func (ef ExtractedField) gapIssue(state State, lineNo, lineLen int) (Issue, bool) {
	details := map[string]any{
		"start":      ef.Start,
		"end":        ef.End,
		"lineLength": lineLen,
	}
	switch {
	case ef.Partial:
		return Issue{
			Severity: SeverityWarning,
			Code:     CodePartialField,
			Message:  fmt.Sprintf("line %d ends at column %d, inside %s [%d,%d)", lineNo, lineLen, ef.Field, ef.Start, ef.End),
			State:    state,
			Line:     lineNo,
			Field:    ef.Field,
			Details:  details,
		}, true
	case !ef.Present:
		return Issue{
			Severity: SeverityWarning,
			Code:     CodeMissingField,
			Message:  fmt.Sprintf("line %d ends at column %d, before %s starts at %d", lineNo, lineLen, ef.Field, ef.Start),
			State:    state,
			Line:     lineNo,
			Field:    ef.Field,
			Details:  details,
		}, true
	}
	return Issue{}, false
}
