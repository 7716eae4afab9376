package tle

import (
	"strings"
	"testing"
)

func newTestParser(opts Options) *Parser {
	return NewParser(opts, WithClock(fixedClock(issNow)))
}

func TestRunISS(t *testing.T) {
	res := newTestParser(DefaultOptions()).Run(join(issName, issLine1, issLine2))

	if !res.Success || res.FinalState != StateCompleted {
		t.Fatalf("success=%v state=%s errors=%v", res.Success, res.FinalState, res.Errors)
	}
	if len(res.Errors) != 0 {
		t.Fatalf("errors = %v", res.Errors)
	}
	if res.Context.Format != FormatThreeLine {
		t.Fatalf("format = %q", res.Context.Format)
	}
	checks := map[Field]string{
		FieldSatelliteName:    "ISS (ZARYA)",
		FieldSatelliteNumber1: "25544",
		FieldSatelliteNumber2: "25544",
		FieldChecksum1:        "6",
		FieldChecksum2:        "8",
		FieldEccentricity:     "0001671",
	}
	for f, want := range checks {
		if got := res.Data.Value(f); got != want {
			t.Errorf("%s = %q, want %q", f, got, want)
		}
	}
}

func TestRunTwoLine(t *testing.T) {
	res := newTestParser(DefaultOptions()).Run(join(issLine1, issLine2))
	if !res.Success || res.Context.Format != FormatTwoLine {
		t.Fatalf("success=%v format=%q", res.Success, res.Context.Format)
	}
	if res.Data.Has(FieldSatelliteName) {
		t.Fatalf("two-line set has a name: %q", res.Data.Value(FieldSatelliteName))
	}
	if res.Context.NameIndex != -1 || res.Context.Line1Index != 0 || res.Context.Line2Index != 1 {
		t.Fatalf("context = %+v", res.Context)
	}
}

func TestRunBadChecksumRecovers(t *testing.T) {
	bad := issLine1[:checksumColumn] + "5"
	res := newTestParser(DefaultOptions()).Run(join(issName, bad, issLine2))

	if got := CountCode(res.Issues(), CodeChecksumMismatch); got != 1 {
		t.Fatalf("got %d CHECKSUM_MISMATCH issues, want 1: %v", got, res.Issues())
	}
	if countActions(res.RecoveryActions, ActionContinue) < 1 {
		t.Fatalf("no continue action: %+v", res.RecoveryActions)
	}
	if res.Data.Value(FieldSatelliteNumber1) != "25544" || res.Data.Value(FieldInclination) != "51.6453" {
		t.Fatalf("data lost: %v / %v", res.Data.Value(FieldSatelliteNumber1), res.Data.Value(FieldInclination))
	}
	if res.FinalState != StateCompleted {
		t.Fatalf("final state = %s, want completed with partial data", res.FinalState)
	}
	if res.Errors[0].State != StateParsingLine1 || res.Errors[0].Line != 1 {
		t.Fatalf("issue context = %+v", res.Errors[0])
	}
}

func TestRunSingleLine(t *testing.T) {
	res := newTestParser(DefaultOptions()).Run(issLine1)
	if res.Success || res.FinalState != StateError {
		t.Fatalf("success=%v state=%s", res.Success, res.FinalState)
	}
	if len(res.Errors) != 1 || res.Errors[0].Code != CodeInvalidLineCount || res.Errors[0].Severity != SeverityCritical {
		t.Fatalf("errors = %v", res.Errors)
	}
	if res.Data != nil {
		t.Fatalf("data = %v, want nil", res.Data)
	}
}

func TestRunCriticalAlwaysFails(t *testing.T) {
	variants := map[string]func(*Options){
		"default":     func(*Options) {},
		"permissive":  func(o *Options) { o.Mode = ModePermissive },
		"no validate": func(o *Options) { o.Validate = false },
		"strict mode": func(o *Options) { o.StrictMode = true },
		"no recovery": func(o *Options) { o.AttemptRecovery = false },
	}
	inputs := map[string]Code{
		"":                    CodeEmptyInput,
		"  \n\t\r\n":          CodeEmptyInput,
		"# only a comment":    CodeInvalidLineCount,
		issLine2:              CodeInvalidLineCount,
		"\n" + issName + "\n": CodeInvalidLineCount,
	}
	for name, mod := range variants {
		opts := DefaultOptions()
		mod(&opts)
		p := newTestParser(opts)
		for in, code := range inputs {
			res := p.Run(in)
			if res.Success || res.FinalState != StateError {
				t.Errorf("%s %q: success=%v state=%s", name, in, res.Success, res.FinalState)
			}
			if !HasCode(res.Errors, code) {
				t.Errorf("%s %q: errors %v, want %s", name, in, codes(res.Errors), code)
			}
		}
	}
}

func TestRunValueRejectsNonText(t *testing.T) {
	p := newTestParser(DefaultOptions())
	for _, v := range []any{nil, 42, 3.5, map[string]any{"line1": issLine1}, []string{issLine1, issLine2}} {
		res := p.RunValue(v)
		if res.FinalState != StateError || len(res.Errors) != 1 || res.Errors[0].Code != CodeInvalidInputType {
			t.Errorf("RunValue(%T) = %s %v", v, res.FinalState, res.Errors)
		}
		if res.Errors[0].Severity != SeverityCritical {
			t.Errorf("severity = %s", res.Errors[0].Severity)
		}
	}

	res := p.RunValue([]byte(join(issLine1, issLine2)))
	if !res.Success {
		t.Fatalf("RunValue([]byte) failed: %v", res.Errors)
	}
}

func TestRunWarningsOnlySucceeds(t *testing.T) {
	p := NewParser(DefaultOptions(), WithClock(fixedClock(molniyaNow)))
	res := p.Run(join(molniyaName, molniyaLine1, molniyaLine2))
	if !res.Success || len(res.Errors) != 0 {
		t.Fatalf("success=%v errors=%v", res.Success, res.Errors)
	}
	if len(res.Warnings) != 3 {
		t.Fatalf("warnings = %v, want 3", codes(res.Warnings))
	}
}

func TestRunAmbiguousNameLine(t *testing.T) {
	res := newTestParser(DefaultOptions()).Run(join("1ST SAT", issLine1, issLine2))
	if !res.Success {
		t.Fatalf("errors = %v", res.Errors)
	}
	if !HasCode(res.Warnings, CodeAmbiguousNameLine) {
		t.Fatalf("warnings = %v", codes(res.Warnings))
	}
	if res.Data.Value(FieldSatelliteName) != "1ST SAT" {
		t.Fatalf("name = %q", res.Data.Value(FieldSatelliteName))
	}
}

func TestRunStripsNameLineNumber(t *testing.T) {
	res := newTestParser(DefaultOptions()).Run(join("0 ISS (ZARYA)", issLine1, issLine2))
	if got := res.Data.Value(FieldSatelliteName); got != issName {
		t.Fatalf("name = %q, want %q", got, issName)
	}
}

func TestRunRecoversFromNoise(t *testing.T) {
	in := join("ISS (ZARYA)", "fetched from mirror", issLine1, "-- separator --", issLine2)
	res := newTestParser(DefaultOptions()).Run(in)

	if !HasCode(res.Errors, CodeInvalidLineCount) {
		t.Fatalf("errors = %v, want INVALID_LINE_COUNT", codes(res.Errors))
	}
	if countActions(res.RecoveryActions, ActionAttemptFix) != 1 {
		t.Fatalf("actions = %+v", res.RecoveryActions)
	}
	if res.Context.Line1Index != 2 || res.Context.Line2Index != 4 || res.Context.RecoveryAttempts != 1 {
		t.Fatalf("context = %+v", res.Context)
	}
	if !res.Success || res.Data.Value(FieldSatelliteNumber2) != "25544" {
		t.Fatalf("success=%v data=%v", res.Success, res.Data)
	}
}

func TestRunRecoveryKeepsLeadingName(t *testing.T) {
	res := newTestParser(DefaultOptions()).Run(join(issName, issLine1, issLine2, "EOF"))

	if !res.Success || countActions(res.RecoveryActions, ActionAttemptFix) != 1 {
		t.Fatalf("success=%v actions=%+v", res.Success, res.RecoveryActions)
	}
	if res.Context.Format != FormatThreeLine || res.Context.NameIndex != 0 {
		t.Fatalf("context = %+v", res.Context)
	}
	if got := res.Data.Value(FieldSatelliteName); got != issName {
		t.Fatalf("name = %q, want %q", got, issName)
	}

	// A header separated from line 1 by noise is not a name.
	res = newTestParser(DefaultOptions()).Run(join(issName, "noise", issLine1, issLine2))
	if !res.Success || res.Data.Has(FieldSatelliteName) || res.Context.Format != FormatTwoLine {
		t.Fatalf("success=%v format=%q name=%q", res.Success, res.Context.Format, res.Data.Value(FieldSatelliteName))
	}
}

func TestRunRecoveryFails(t *testing.T) {
	cases := map[string]struct {
		in  string
		mod func(*Options)
	}{
		"two line-1 candidates": {
			in:  join(issName, issLine1, issLine1, issLine2),
			mod: func(*Options) {},
		},
		"wrong order": {
			in:  join(issName, "noise", issLine2, issLine1),
			mod: func(*Options) {},
		},
		"recovery disabled": {
			in:  join(issName, "noise", issLine1, issLine2),
			mod: func(o *Options) { o.AttemptRecovery = false },
		},
		"no attempts": {
			in:  join(issName, "noise", issLine1, issLine2),
			mod: func(o *Options) { o.MaxRecoveryAttempts = 0 },
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			opts := DefaultOptions()
			tc.mod(&opts)
			res := newTestParser(opts).Run(tc.in)
			if res.Success || res.FinalState != StateError {
				t.Fatalf("success=%v state=%s", res.Success, res.FinalState)
			}
			if countActions(res.RecoveryActions, ActionAbort) != 1 {
				t.Fatalf("actions = %+v", res.RecoveryActions)
			}
		})
	}
}

func TestRunStrictModeStopsEarly(t *testing.T) {
	bad := issLine1[:checksumColumn] + "5"
	opts := DefaultOptions()
	opts.StrictMode = true
	res := newTestParser(opts).Run(join(issName, bad, issLine2))

	if res.Success || res.FinalState != StateError {
		t.Fatalf("success=%v state=%s", res.Success, res.FinalState)
	}
	if countActions(res.RecoveryActions, ActionAbort) != 1 {
		t.Fatalf("actions = %+v", res.RecoveryActions)
	}
	// Line 2 was never reached.
	if res.Data.Has(FieldSatelliteNumber2) {
		t.Fatalf("line 2 parsed after strict abort")
	}
}

func TestRunWithoutPartialResults(t *testing.T) {
	bad := issLine1[:checksumColumn] + "5"
	opts := DefaultOptions()
	opts.IncludePartialResults = false
	res := newTestParser(opts).Run(join(issName, bad, issLine2))
	if res.Success || res.FinalState != StateError || res.Data != nil {
		t.Fatalf("success=%v state=%s data=%v", res.Success, res.FinalState, res.Data)
	}
}

func TestRunLenientChecksums(t *testing.T) {
	bad := issLine1[:checksumColumn] + "5"
	opts := DefaultOptions()
	opts.StrictChecksums = false
	opts.StrictMode = true
	res := newTestParser(opts).Run(join(issName, bad, issLine2))
	if !res.Success || !HasCode(res.Warnings, CodeChecksumMismatch) {
		t.Fatalf("success=%v warnings=%v errors=%v", res.Success, res.Warnings, res.Errors)
	}
}

func TestRunTruncatedLine(t *testing.T) {
	res := newTestParser(DefaultOptions()).Run(join(issName, issLine1[:40], issLine2))

	if !HasCode(res.Errors, CodeInvalidLineLength) {
		t.Fatalf("errors = %v", codes(res.Errors))
	}
	if !HasCode(res.Warnings, CodePartialField) || !HasCode(res.Warnings, CodeMissingField) {
		t.Fatalf("warnings = %v", codes(res.Warnings))
	}
	if countActions(res.RecoveryActions, ActionUseDefault) != 6 {
		t.Fatalf("use-default actions = %d, want 6", countActions(res.RecoveryActions, ActionUseDefault))
	}
	if res.Data.Value(FieldEpoch) != "300.83097691" || res.Data.Has(FieldBStarDragTerm) {
		t.Fatalf("data = %v", res.Data)
	}
}

func TestRunValidateDisabled(t *testing.T) {
	l2 := setColumn(t, issLine2, FieldInclination, "200.0000")
	opts := DefaultOptions()
	opts.Validate = false
	res := newTestParser(opts).Run(join(issLine1, l2))
	if !res.Success || len(res.Issues()) != 0 {
		t.Fatalf("success=%v issues=%v", res.Success, res.Issues())
	}
}

func TestRunInvalidOptions(t *testing.T) {
	opts := DefaultOptions()
	opts.Mode = "lenient"
	res := newTestParser(opts).Run(join(issLine1, issLine2))
	if res.FinalState != StateError || !HasCode(res.Errors, CodeInvalidOptions) {
		t.Fatalf("state=%s errors=%v", res.FinalState, res.Errors)
	}
}

func TestRunActionSequence(t *testing.T) {
	res := newTestParser(DefaultOptions()).Run(join(issName, issLine1[:40], issLine2[:50]))
	if len(res.RecoveryActions) == 0 {
		t.Fatalf("no actions")
	}
	for i, a := range res.RecoveryActions {
		if a.Seq != i+1 {
			t.Fatalf("action %d has seq %d", i, a.Seq)
		}
		if !a.At.Equal(issNow) {
			t.Fatalf("action time = %s", a.At)
		}
	}
}

func TestRunDoesNotLeakBetweenCalls(t *testing.T) {
	p := newTestParser(DefaultOptions())
	bad := p.Run(join(issName, "noise", issLine1[:checksumColumn]+"5", issLine2))
	if len(bad.Errors) == 0 {
		t.Fatalf("expected errors on first call")
	}
	good := p.Run(join(issName, issLine1, issLine2))
	if len(good.Errors) != 0 || len(good.RecoveryActions) != 0 || good.Context.RecoveryAttempts != 0 {
		t.Fatalf("state leaked: errors=%v actions=%v", good.Errors, good.RecoveryActions)
	}
}

func TestRunComments(t *testing.T) {
	in := "# source: test feed\n" + join(issName, issLine1, issLine2)

	res := newTestParser(DefaultOptions()).Run(in)
	if len(res.Context.Comments) != 1 || res.Context.Comments[0] != "source: test feed" {
		t.Fatalf("comments = %q", res.Context.Comments)
	}
	if res.Data.Comments != nil {
		t.Fatalf("comments attached without IncludeComments")
	}

	opts := DefaultOptions()
	opts.IncludeComments = true
	res = newTestParser(opts).Run(in)
	if len(res.Data.Comments) != 1 {
		t.Fatalf("Data.Comments = %q", res.Data.Comments)
	}
}

func TestRunResultSlicesNeverNil(t *testing.T) {
	res := newTestParser(DefaultOptions()).Run(join(issLine1, issLine2))
	if res.Errors == nil || res.Warnings == nil || res.RecoveryActions == nil {
		t.Fatalf("nil slices in %+v", res)
	}
}

func TestStateTransitions(t *testing.T) {
	allowed := [][2]State{
		{StateInitial, StateDetectingFormat},
		{StateDetectingFormat, StateParsingName},
		{StateDetectingFormat, StateParsingLine1},
		{StateParsingName, StateParsingLine1},
		{StateParsingLine1, StateParsingLine2},
		{StateParsingLine2, StateValidating},
		{StateValidating, StateCompleted},
		{StateParsingLine1, StateError},
	}
	for _, e := range allowed {
		if !canTransition(e[0], e[1]) {
			t.Errorf("%s -> %s rejected", e[0], e[1])
		}
	}
	denied := [][2]State{
		{StateParsingLine2, StateParsingLine1},
		{StateInitial, StateCompleted},
		{StateCompleted, StateError},
		{StateError, StateInitial},
		{StateValidating, StateParsingName},
	}
	for _, e := range denied {
		if canTransition(e[0], e[1]) {
			t.Errorf("%s -> %s allowed", e[0], e[1])
		}
	}
}

func TestStateText(t *testing.T) {
	for s := StateInitial; s <= StateError; s++ {
		b, err := s.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText(%d): %v", s, err)
		}
		var back State
		if err := back.UnmarshalText(b); err != nil || back != s {
			t.Fatalf("UnmarshalText(%s) = %v, %v", b, back, err)
		}
	}
	if _, err := State(42).MarshalText(); err == nil {
		t.Fatalf("MarshalText(42) succeeded")
	}
	if !strings.Contains(State(42).String(), "42") {
		t.Fatalf("String(42) = %q", State(42).String())
	}
}
