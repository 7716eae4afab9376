package tle

import (
	"errors"
	"strings"
	"sync"
	"testing"
)

func TestParseISS(t *testing.T) {
	rec, err := newTestParser(DefaultOptions()).Parse(join(issName, issLine1, issLine2))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if rec.Value(FieldSatelliteName) != issName || rec.Value(FieldMeanMotion) != "15.49338189" {
		t.Fatalf("record = %v", rec)
	}
	if len(rec.Issues) != 0 {
		t.Fatalf("issues = %v", rec.Issues)
	}
}

func TestParseStrictReportsEveryIssue(t *testing.T) {
	l1 := setColumn(t, issLine1, FieldClassification, "X")
	l1 = l1[:checksumColumn] + "0"
	l2 := setColumn(t, issLine2, FieldInclination, "200.0000")

	_, err := newTestParser(DefaultOptions()).Parse(join(issName, l1, l2))
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want *ValidationError", err)
	}
	got := verr.Codes()
	for _, want := range []Code{CodeChecksumMismatch, CodeInvalidClassification, CodeValueOutOfRange} {
		found := false
		for _, c := range got {
			if c == want {
				found = true
			}
		}
		if !found {
			t.Errorf("codes %v missing %s", got, want)
		}
	}
	if !strings.Contains(err.Error(), "(and 2 more)") {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestParsePermissiveDemotesErrors(t *testing.T) {
	bad := issLine1[:checksumColumn] + "5"
	opts := DefaultOptions()
	opts.Mode = ModePermissive

	rec, err := newTestParser(opts).Parse(join(issName, bad, issLine2))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(rec.Issues) != 1 || rec.Issues[0].Code != CodeChecksumMismatch || rec.Issues[0].Severity != SeverityWarning {
		t.Fatalf("issues = %v", rec.Issues)
	}
	if rec.Value(FieldChecksum1) != "5" {
		t.Fatalf("raw checksum changed: %q", rec.Value(FieldChecksum1))
	}
}

func TestParsePermissiveStillFailsOnCritical(t *testing.T) {
	opts := DefaultOptions()
	opts.Mode = ModePermissive
	_, err := newTestParser(opts).Parse(issLine1)
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Issues[0].Code != CodeInvalidLineCount {
		t.Fatalf("err = %v", err)
	}
}

func TestParseLenientChecksums(t *testing.T) {
	bad := issLine1[:checksumColumn] + "5"
	opts := DefaultOptions()
	opts.StrictChecksums = false

	rec, err := newTestParser(opts).Parse(join(issName, bad, issLine2))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !HasCode(rec.Issues, CodeChecksumMismatch) {
		t.Fatalf("issues = %v", rec.Issues)
	}
}

func TestParseIncludeFlags(t *testing.T) {
	in := "# epoch check\n" + join(molniyaName, molniyaLine1, molniyaLine2)
	p := NewParser(DefaultOptions(), WithClock(fixedClock(molniyaNow)))

	rec, err := p.Parse(in)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(rec.Issues) != 3 || rec.Comments != nil {
		t.Fatalf("issues=%v comments=%q", rec.Issues, rec.Comments)
	}

	opts := DefaultOptions()
	opts.IncludeWarnings = false
	opts.IncludeComments = true
	rec, err = NewParser(opts, WithClock(fixedClock(molniyaNow))).Parse(in)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if rec.Issues != nil {
		t.Fatalf("issues attached with IncludeWarnings off: %v", rec.Issues)
	}
	if len(rec.Comments) != 1 || rec.Comments[0] != "epoch check" {
		t.Fatalf("comments = %q", rec.Comments)
	}
}

func TestParseInvalidOptions(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxRecoveryAttempts = -1
	if _, err := Parse(join(issLine1, issLine2), opts); !errors.Is(err, ErrInvalidOptions) {
		t.Fatalf("err = %v, want ErrInvalidOptions", err)
	}
}

func TestParseIgnoresStateMachineStrictness(t *testing.T) {
	// StrictMode would stop the machine after line 1; Parse still reports
	// problems on both lines.
	l1 := issLine1[:checksumColumn] + "5"
	l2 := setColumn(t, issLine2, FieldInclination, "200.0000")
	opts := DefaultOptions()
	opts.StrictMode = true

	_, err := newTestParser(opts).Parse(join(l1, l2))
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v", err)
	}
	if !HasCode(verr.Issues, CodeChecksumMismatch) || !HasCode(verr.Issues, CodeValueOutOfRange) {
		t.Fatalf("issues = %v", codes(verr.Issues))
	}
}

func TestParseValue(t *testing.T) {
	res := ParseValue(12, DefaultOptions())
	if res.Success || !HasCode(res.Errors, CodeInvalidInputType) {
		t.Fatalf("ParseValue(12) = %+v", res)
	}
}

func TestParserConcurrentUse(t *testing.T) {
	p := newTestParser(DefaultOptions())
	good := join(issName, issLine1, issLine2)
	bad := join(issName, issLine1[:checksumColumn]+"5", issLine2)

	var wg sync.WaitGroup
	errs := make(chan string, 64)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			in, want := good, 0
			if i%2 == 1 {
				in, want = bad, 1
			}
			if got := len(p.Run(in).Errors); got != want {
				errs <- in
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for in := range errs {
		t.Errorf("unexpected error count for %q", in)
	}
}

func TestValidationErrorMessage(t *testing.T) {
	cases := []struct {
		issues []Issue
		want   string
	}{
		{nil, "tle: validation failed"},
		{[]Issue{{Severity: SeverityWarning, Code: CodeStaleEpoch}}, "tle: validation failed"},
		{[]Issue{{Severity: SeverityCritical, Code: CodeEmptyInput, Message: "input is empty"}}, "tle: critical EMPTY_INPUT: input is empty"},
	}
	for _, tc := range cases {
		if got := (&ValidationError{Issues: tc.issues}).Error(); got != tc.want {
			t.Errorf("Error() = %q, want %q", got, tc.want)
		}
	}
}
