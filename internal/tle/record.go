package tle

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Field names one entry of a parsed Record. The string value doubles as the
// JSON key.
type Field string

const (
	FieldSatelliteName Field = "satelliteName"

	FieldLineNumber1                Field = "lineNumber1"
	FieldSatelliteNumber1           Field = "satelliteNumber1"
	FieldClassification             Field = "classification"
	FieldIntlDesignatorYear         Field = "internationalDesignatorYear"
	FieldIntlDesignatorLaunchNumber Field = "internationalDesignatorLaunchNumber"
	FieldIntlDesignatorPiece        Field = "internationalDesignatorPiece"
	FieldEpochYear                  Field = "epochYear"
	FieldEpoch                      Field = "epoch"
	FieldFirstDerivativeMeanMotion  Field = "firstDerivativeMeanMotion"
	FieldSecondDerivativeMeanMotion Field = "secondDerivativeMeanMotion"
	FieldBStarDragTerm              Field = "bStarDragTerm"
	FieldEphemerisType              Field = "ephemerisType"
	FieldElementSetNumber           Field = "elementSetNumber"
	FieldChecksum1                  Field = "checksum1"

	FieldLineNumber2       Field = "lineNumber2"
	FieldSatelliteNumber2  Field = "satelliteNumber2"
	FieldInclination       Field = "inclination"
	FieldRightAscension    Field = "rightAscension"
	FieldEccentricity      Field = "eccentricity"
	FieldArgumentOfPerigee Field = "argumentOfPerigee"
	FieldMeanAnomaly       Field = "meanAnomaly"
	FieldMeanMotion        Field = "meanMotion"
	FieldRevolutionNumber  Field = "revolutionNumber"
	FieldChecksum2         Field = "checksum2"
)

// fieldOrder is the canonical order of Record entries: name first, then the
// line 1 columns left to right, then line 2.
var fieldOrder = func() []Field {
	out := []Field{FieldSatelliteName}
	for _, c := range line1Columns {
		out = append(out, c.Field)
	}
	for _, c := range line2Columns {
		out = append(out, c.Field)
	}
	return out
}()

// AllFields returns every Field in canonical order.
func AllFields() []Field {
	out := make([]Field, len(fieldOrder))
	copy(out, fieldOrder)
	return out
}

// Record is the parser output: an ordered mapping of named fields to raw,
// trimmed substrings. Values are not numerically coerced, so the original
// formatting survives (eccentricity keeps its implied leading "0.").
// A field that could not be extracted is absent, which marshals as null.
type Record struct {
	values map[Field]string

	Issues   []Issue
	Comments []string
}

func newRecord() *Record {
	return &Record{values: make(map[Field]string, len(fieldOrder))}
}

// Get returns the raw value of f and whether it was extracted.
func (r *Record) Get(f Field) (string, bool) {
	if r == nil {
		return "", false
	}
	v, ok := r.values[f]
	return v, ok
}

// Value returns the raw value of f, or "" when absent.
func (r *Record) Value(f Field) string {
	v, _ := r.Get(f)
	return v
}

// Has reports whether f was extracted (possibly as an empty string).
func (r *Record) Has(f Field) bool {
	_, ok := r.Get(f)
	return ok
}

// Fields returns the extracted fields in canonical order.
func (r *Record) Fields() []Field {
	var out []Field
	for _, f := range fieldOrder {
		if r.Has(f) {
			out = append(out, f)
		}
	}
	return out
}

// Len returns the number of extracted fields.
func (r *Record) Len() int {
	if r == nil {
		return 0
	}
	return len(r.values)
}

func (r *Record) set(f Field, v string) {
	r.values[f] = v
}

func (r *Record) clone() *Record {
	out := newRecord()
	for k, v := range r.values {
		out.values[k] = v
	}
	if r.Issues != nil {
		out.Issues = append([]Issue(nil), r.Issues...)
	}
	if r.Comments != nil {
		out.Comments = append([]string(nil), r.Comments...)
	}
	return out
}

// MarshalJSON writes the record as an object in canonical field order with
// null for absent fields. Issues and comments are appended only when
// attached.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range fieldOrder {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, _ := json.Marshal(string(f))
		buf.Write(key)
		buf.WriteByte(':')
		if v, ok := r.Get(f); ok {
			b, err := json.Marshal(v)
			if err != nil {
				return nil, err
			}
			buf.Write(b)
		} else {
			buf.WriteString("null")
		}
	}
	if r != nil && r.Issues != nil {
		b, err := json.Marshal(r.Issues)
		if err != nil {
			return nil, err
		}
		buf.WriteString(`,"issues":`)
		buf.Write(b)
	}
	if r != nil && r.Comments != nil {
		b, err := json.Marshal(r.Comments)
		if err != nil {
			return nil, err
		}
		buf.WriteString(`,"comments":`)
		buf.Write(b)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON accepts the shape produced by MarshalJSON. Unknown keys are
// rejected so a typo in a client does not silently drop a field.
func (r *Record) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	known := make(map[Field]bool, len(fieldOrder))
	for _, f := range fieldOrder {
		known[f] = true
	}

	out := newRecord()
	for k, v := range raw {
		switch k {
		case "issues":
			if err := json.Unmarshal(v, &out.Issues); err != nil {
				return fmt.Errorf("record issues: %w", err)
			}
			continue
		case "comments":
			if err := json.Unmarshal(v, &out.Comments); err != nil {
				return fmt.Errorf("record comments: %w", err)
			}
			continue
		}
		if !known[Field(k)] {
			return fmt.Errorf("record: unknown field %q", k)
		}
		var s *string
		if err := json.Unmarshal(v, &s); err != nil {
			return fmt.Errorf("record field %s: %w", k, err)
		}
		if s != nil {
			out.values[Field(k)] = *s
		}
	}
	*r = *out
	return nil
}
