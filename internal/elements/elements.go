// Package elements turns a raw parsed record into typed orbital elements.
// The parser keeps every field as the original substring; callers that want
// numbers come here.
package elements

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/akhenakh/sgp4"

	"github.com/large-farva/tlecheck/internal/tle"
)

// earthMu is the standard gravitational parameter of Earth in km^3/s^2
// (WGS-72, the constant SGP4 element sets are fitted with).
const earthMu = 398600.8

// Elements is the numeric view of one element set. Angles are in degrees,
// mean motion in revolutions per day.
type Elements struct {
	Name             string    `json:"name,omitempty"`
	SatelliteNumber  int       `json:"satelliteNumber"`
	Classification   string    `json:"classification"`
	IntlDesignator   string    `json:"internationalDesignator,omitempty"`
	Epoch            time.Time `json:"epoch"`
	MeanMotionDot    float64   `json:"meanMotionDot"`
	MeanMotionDDot   float64   `json:"meanMotionDDot"`
	BStar            float64   `json:"bstar"`
	EphemerisType    int       `json:"ephemerisType"`
	ElementSetNumber int       `json:"elementSetNumber"`

	Inclination       float64 `json:"inclination"`
	RightAscension    float64 `json:"rightAscension"`
	Eccentricity      float64 `json:"eccentricity"`
	ArgumentOfPerigee float64 `json:"argumentOfPerigee"`
	MeanAnomaly       float64 `json:"meanAnomaly"`
	MeanMotion        float64 `json:"meanMotion"`
	RevolutionNumber  int     `json:"revolutionNumber"`
}

// Period returns the orbital period implied by the mean motion.
func (e Elements) Period() time.Duration {
	if e.MeanMotion <= 0 {
		return 0
	}
	return time.Duration(float64(24*time.Hour) / e.MeanMotion)
}

// SemiMajorAxis returns the Keplerian semi-major axis in kilometres.
func (e Elements) SemiMajorAxis() float64 {
	if e.MeanMotion <= 0 {
		return 0
	}
	n := e.MeanMotion * 2 * math.Pi / 86400 // rad/s
	return math.Cbrt(earthMu / (n * n))
}

// coercer reads fields from a record and keeps the first failure.
type coercer struct {
	rec *tle.Record
	err error
}

func (c *coercer) raw(f tle.Field) string {
	v, ok := c.rec.Get(f)
	if !ok && c.err == nil {
		c.err = fmt.Errorf("elements: %s missing", f)
	}
	return v
}

func (c *coercer) number(f tle.Field) float64 {
	v := c.raw(f)
	if c.err != nil {
		return 0
	}
	x, err := strconv.ParseFloat(v, 64)
	if err != nil {
		c.err = fmt.Errorf("elements: %s: %w", f, err)
	}
	return x
}

func (c *coercer) integer(f tle.Field) int {
	v := c.raw(f)
	if c.err != nil {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		c.err = fmt.Errorf("elements: %s: %w", f, err)
	}
	return n
}

func (c *coercer) implied(f tle.Field) float64 {
	v := c.raw(f)
	if c.err != nil {
		return 0
	}
	x, err := tle.ParseImpliedDecimal(v)
	if err != nil {
		c.err = fmt.Errorf("elements: %s: %w", f, err)
	}
	return x
}

// FromRecord converts rec to numeric elements. It fails on the first field
// that is missing or does not parse; the satellite name and the optional
// designator fields may be blank.
func FromRecord(rec *tle.Record) (Elements, error) {
	if rec == nil {
		return Elements{}, fmt.Errorf("elements: nil record")
	}
	c := &coercer{rec: rec}
	e := Elements{
		Name:             rec.Value(tle.FieldSatelliteName),
		SatelliteNumber:  c.integer(tle.FieldSatelliteNumber1),
		Classification:   c.raw(tle.FieldClassification),
		IntlDesignator:   rec.Value(tle.FieldIntlDesignatorYear) + rec.Value(tle.FieldIntlDesignatorLaunchNumber) + rec.Value(tle.FieldIntlDesignatorPiece),
		MeanMotionDot:    c.number(tle.FieldFirstDerivativeMeanMotion),
		MeanMotionDDot:   c.implied(tle.FieldSecondDerivativeMeanMotion),
		BStar:            c.implied(tle.FieldBStarDragTerm),
		ElementSetNumber: c.integer(tle.FieldElementSetNumber),

		Inclination:       c.number(tle.FieldInclination),
		RightAscension:    c.number(tle.FieldRightAscension),
		ArgumentOfPerigee: c.number(tle.FieldArgumentOfPerigee),
		MeanAnomaly:       c.number(tle.FieldMeanAnomaly),
		MeanMotion:        c.number(tle.FieldMeanMotion),
		RevolutionNumber:  c.integer(tle.FieldRevolutionNumber),
	}
	if v := rec.Value(tle.FieldEphemerisType); v != "" {
		e.EphemerisType = c.integer(tle.FieldEphemerisType)
	}

	ecc := c.raw(tle.FieldEccentricity)
	if c.err == nil {
		x, err := strconv.ParseFloat("0."+ecc, 64)
		if err != nil {
			c.err = fmt.Errorf("elements: %s: %w", tle.FieldEccentricity, err)
		}
		e.Eccentricity = x
	}

	year, day := c.raw(tle.FieldEpochYear), c.raw(tle.FieldEpoch)
	if c.err == nil {
		epoch, err := tle.EpochTime(year, day)
		if err != nil {
			c.err = fmt.Errorf("elements: %w", err)
		}
		e.Epoch = epoch
	}

	if c.err != nil {
		return Elements{}, c.err
	}
	return e, nil
}

// CrossCheck hands the set to the SGP4 library's own TLE reader and
// confirms it accepts the lines and reads the same catalog number as the
// fixed-column extractor. Nothing is propagated.
func CrossCheck(name, line1, line2 string) error {
	if len(line1) < tle.LineLength || len(line2) < tle.LineLength {
		return fmt.Errorf("crosscheck: lines must be %d characters", tle.LineLength)
	}
	want, err := strconv.Atoi(strings.TrimSpace(line1[2:7]))
	if err != nil {
		return fmt.Errorf("crosscheck: satellite number %q: %w", line1[2:7], err)
	}

	if strings.TrimSpace(name) == "" {
		name = "UNNAMED"
	}
	set, err := sgp4.ParseTLE(name + "\n" + line1 + "\n" + line2)
	if err != nil {
		return fmt.Errorf("crosscheck: sgp4 rejected set: %w", err)
	}
	if set.SatelliteNumber != want {
		return fmt.Errorf("crosscheck: sgp4 read satellite %d, extractor read %d", set.SatelliteNumber, want)
	}
	return nil
}
