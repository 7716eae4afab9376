package elements

import (
	"math"
	"testing"
	"time"

	"github.com/large-farva/tlecheck/internal/tle"
)

const (
	issLine1 = "1 25544U 98067A   20300.83097691  .00001534  00000-0  35580-4 0  9996"
	issLine2 = "2 25544  51.6453  57.0843 0001671  64.9808  73.0513 15.49338189252428"
)

func parseISS(t *testing.T) *tle.Record {
	t.Helper()
	rec, err := tle.Parse("ISS (ZARYA)\n"+issLine1+"\n"+issLine2, tle.DefaultOptions())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return rec
}

func TestFromRecord(t *testing.T) {
	e, err := FromRecord(parseISS(t))
	if err != nil {
		t.Fatalf("FromRecord: %v", err)
	}
	if e.Name != "ISS (ZARYA)" || e.SatelliteNumber != 25544 || e.IntlDesignator != "98067A" {
		t.Fatalf("identity = %+v", e)
	}
	if math.Abs(e.Eccentricity-0.0001671) > 1e-12 {
		t.Errorf("eccentricity = %g", e.Eccentricity)
	}
	if math.Abs(e.BStar-0.35580e-4) > 1e-15 {
		t.Errorf("bstar = %g", e.BStar)
	}
	if e.MeanMotion != 15.49338189 || e.RevolutionNumber != 25242 || e.ElementSetNumber != 999 {
		t.Errorf("line 2 = %+v", e)
	}
	if e.Epoch.Year() != 2020 || e.Epoch.YearDay() != 300 {
		t.Errorf("epoch = %s", e.Epoch)
	}
}

func TestDerivedQuantities(t *testing.T) {
	e, err := FromRecord(parseISS(t))
	if err != nil {
		t.Fatalf("FromRecord: %v", err)
	}
	if p := e.Period(); p < 92*time.Minute || p > 94*time.Minute {
		t.Errorf("period = %s", p)
	}
	if a := e.SemiMajorAxis(); a < 6700 || a > 6850 {
		t.Errorf("semi-major axis = %g km", a)
	}
	if (Elements{}).Period() != 0 || (Elements{}).SemiMajorAxis() != 0 {
		t.Errorf("zero mean motion should give zero")
	}
}

func TestFromRecordMissingField(t *testing.T) {
	opts := tle.DefaultOptions()
	opts.Mode = tle.ModePermissive
	res := tle.Run(issLine1+"\n"+issLine2[:40], opts)
	if res.Data == nil {
		t.Fatalf("no partial data")
	}
	if _, err := FromRecord(res.Data); err == nil {
		t.Fatalf("FromRecord succeeded on truncated set")
	}
	if _, err := FromRecord(nil); err == nil {
		t.Fatalf("FromRecord(nil) succeeded")
	}
}

func TestCrossCheck(t *testing.T) {
	if err := CrossCheck("ISS (ZARYA)", issLine1, issLine2); err != nil {
		t.Fatalf("CrossCheck: %v", err)
	}
	if err := CrossCheck("", issLine1, issLine2); err != nil {
		t.Fatalf("CrossCheck without name: %v", err)
	}
	if err := CrossCheck("ISS", issLine1[:50], issLine2); err == nil {
		t.Fatalf("CrossCheck accepted a short line")
	}
}
