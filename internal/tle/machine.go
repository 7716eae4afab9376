package tle

import (
	"fmt"
	"strings"
	"time"
)

// Format is the detected layout of an element set.
type Format string

const (
	FormatTwoLine   Format = "2-line"
	FormatThreeLine Format = "3-line"
)

// maxSteps bounds the state loop. A correct run takes at most seven steps;
// hitting the cap means a transition bug, not bad input.
const maxSteps = 16

// ParseContext is the working state of one parse call. Indices point into
// Lines and are -1 when unset.
type ParseContext struct {
	Lines            []string `json:"lines"`
	Comments         []string `json:"comments,omitempty"`
	Format           Format   `json:"format,omitempty"`
	NameIndex        int      `json:"nameIndex"`
	Line1Index       int      `json:"line1Index"`
	Line2Index       int      `json:"line2Index"`
	RecoveryAttempts int      `json:"recoveryAttempts"`
}

// Result is everything one state-machine run produced. Errors holds error
// and critical issues; Warnings holds the rest.
type Result struct {
	Success         bool             `json:"success"`
	FinalState      State            `json:"finalState"`
	Data            *Record          `json:"data"`
	Errors          []Issue          `json:"errors"`
	Warnings        []Issue          `json:"warnings"`
	RecoveryActions []RecoveryAction `json:"recoveryActions"`
	Context         ParseContext     `json:"context"`
}

// Issues returns errors followed by warnings.
func (r Result) Issues() []Issue {
	out := make([]Issue, 0, len(r.Errors)+len(r.Warnings))
	out = append(out, r.Errors...)
	return append(out, r.Warnings...)
}

// run holds the mutable state of a single call. A new one is allocated per
// call, so nothing leaks between calls on the same Parser.
type run struct {
	opts  Options
	clock func() time.Time

	text    string
	state   State
	ctx     ParseContext
	rec     *Record
	issues  []Issue
	actions []RecoveryAction
	fatal   bool
}

func newRun(p *Parser, text string) *run {
	return &run{
		opts:  p.opts,
		clock: p.now,
		text:  text,
		state: StateInitial,
		ctx:   ParseContext{NameIndex: -1, Line1Index: -1, Line2Index: -1},
		rec:   newRecord(),
	}
}

func (r *run) exec() Result {
	for steps := 0; !r.state.Terminal(); steps++ {
		if steps >= maxSteps {
			r.raise(Issue{
				Severity: SeverityCritical,
				Code:     CodeStateLimitExceeded,
				Message:  fmt.Sprintf("state machine did not terminate within %d steps", maxSteps),
			})
			r.state = StateError
			break
		}
		r.transition(r.step())
	}
	return r.result()
}

func (r *run) transition(next State) {
	if !canTransition(r.state, next) {
		r.raise(Issue{
			Severity: SeverityCritical,
			Code:     CodeIllegalTransition,
			Message:  fmt.Sprintf("illegal transition %s -> %s", r.state, next),
			Details:  map[string]any{"from": r.state.String(), "to": next.String()},
		})
		next = StateError
	}
	r.state = next
}

func (r *run) step() State {
	switch r.state {
	case StateInitial:
		return r.initial()
	case StateDetectingFormat:
		return r.detectFormat()
	case StateParsingName:
		return r.parseName()
	case StateParsingLine1:
		return r.parseLine(1, r.ctx.Line1Index, StateParsingLine2)
	case StateParsingLine2:
		return r.parseLine(2, r.ctx.Line2Index, StateValidating)
	case StateValidating:
		return r.validate()
	}
	return StateError
}

func (r *run) initial() State {
	if err := r.opts.Check(); err != nil {
		r.raise(Issue{
			Severity: SeverityCritical,
			Code:     CodeInvalidOptions,
			Message:  err.Error(),
		})
		return StateError
	}
	if strings.TrimSpace(r.text) == "" {
		r.raise(Issue{
			Severity: SeverityCritical,
			Code:     CodeEmptyInput,
			Message:  "input is empty",
		})
		return StateError
	}
	lines := Normalize(r.text)
	r.ctx.Lines = lines.Data
	r.ctx.Comments = lines.Comments
	return StateDetectingFormat
}

func (r *run) detectFormat() State {
	n := len(r.ctx.Lines)
	switch {
	case n < 2:
		r.raise(Issue{
			Severity: SeverityCritical,
			Code:     CodeInvalidLineCount,
			Message:  fmt.Sprintf("found %d data line(s), need at least 2", n),
			Details:  map[string]any{"expected": "2 or 3", "actual": n},
		})
		return StateError

	case n == 2:
		r.ctx.Format = FormatTwoLine
		r.ctx.Line1Index, r.ctx.Line2Index = 0, 1
		return StateParsingLine1

	case n == 3:
		r.ctx.Format = FormatThreeLine
		r.ctx.NameIndex, r.ctx.Line1Index, r.ctx.Line2Index = 0, 1, 2
		return StateParsingName
	}

	r.raise(Issue{
		Severity: SeverityError,
		Code:     CodeInvalidLineCount,
		Message:  fmt.Sprintf("found %d data lines, expected 2 or 3", n),
		Details:  map[string]any{"expected": "2 or 3", "actual": n},
	})
	if !r.recoverDataLines() {
		return StateError
	}
	if r.ctx.NameIndex >= 0 {
		return r.afterPhase(StateParsingName)
	}
	return r.afterPhase(StateParsingLine1)
}

// recoverDataLines looks through an over-long input for exactly one line
// starting with "1" followed later by exactly one line starting with "2",
// treating every other line as noise. More than one candidate for either
// line is ambiguous and fails rather than guessing. The first line is kept
// as the name only when it sits directly above line 1; anything further
// away is as likely to be a feed header as a name.
func (r *run) recoverDataLines() bool {
	if !r.opts.AttemptRecovery {
		r.act(ActionAbort, "line count recovery disabled")
		return false
	}
	if r.ctx.RecoveryAttempts >= r.opts.MaxRecoveryAttempts {
		r.act(ActionAbort, fmt.Sprintf("recovery attempts exhausted (%d)", r.opts.MaxRecoveryAttempts))
		return false
	}
	r.ctx.RecoveryAttempts++

	var ones, twos []int
	for i, line := range r.ctx.Lines {
		switch line[0] {
		case '1':
			ones = append(ones, i)
		case '2':
			twos = append(twos, i)
		}
	}
	if len(ones) != 1 || len(twos) != 1 || ones[0] > twos[0] {
		r.act(ActionAbort, fmt.Sprintf("no unique line 1/line 2 pair among %d lines (%d candidates for line 1, %d for line 2)",
			len(r.ctx.Lines), len(ones), len(twos)))
		return false
	}

	r.ctx.Format = FormatTwoLine
	r.ctx.Line1Index, r.ctx.Line2Index = ones[0], twos[0]
	used := 2
	if ones[0] == 1 {
		r.ctx.Format = FormatThreeLine
		r.ctx.NameIndex = 0
		used = 3
	}
	r.act(ActionAttemptFix, fmt.Sprintf("using lines %d and %d as line 1 and line 2, ignoring %d other line(s)",
		ones[0]+1, twos[0]+1, len(r.ctx.Lines)-used))
	return true
}

func (r *run) parseName() State {
	name := r.ctx.Lines[r.ctx.NameIndex]
	if name[0] == '1' || name[0] == '2' {
		r.raise(Issue{
			Severity: SeverityWarning,
			Code:     CodeAmbiguousNameLine,
			Message:  fmt.Sprintf("name line %q starts like a data line", name),
			Field:    FieldSatelliteName,
		})
		r.act(ActionContinue, "treating the first of three lines as the satellite name")
	}
	// Three-line feeds commonly prefix the name with a "0 " line number.
	name = strings.TrimSpace(strings.TrimPrefix(name, "0 "))
	r.rec.set(FieldSatelliteName, name)
	return StateParsingLine1
}

func (r *run) parseLine(lineNo, idx int, next State) State {
	line := r.ctx.Lines[idx]

	for _, ef := range ExtractFields(line, LineColumns(lineNo)) {
		if ef.Present {
			r.rec.set(ef.Field, ef.Value)
		}
		if is, ok := ef.gapIssue(r.state, lineNo, len(line)); ok {
			r.raise(is)
			if ef.Present {
				r.act(ActionUseDefault, fmt.Sprintf("kept partial value %q for %s", ef.Value, ef.Field))
			} else {
				r.act(ActionUseDefault, fmt.Sprintf("left %s empty", ef.Field))
			}
		}
	}

	if is, bad := checkLineLength(line, lineNo, r.state); bad {
		r.raise(is)
		r.act(ActionContinue, fmt.Sprintf("continuing with line %d despite its length", lineNo))
	}
	if is, bad := checkLineNumber(line, lineNo, r.state); bad {
		r.raise(is)
		r.act(ActionContinue, fmt.Sprintf("continuing with line %d despite its line number", lineNo))
	}
	if is, bad := checkChecksum(line, lineNo, r.state, r.opts.checksumSeverity()); bad {
		r.raise(is)
		r.act(ActionContinue, fmt.Sprintf("continuing with line %d despite checksum mismatch", lineNo))
	}
	return r.afterPhase(next)
}

func (r *run) validate() State {
	if r.opts.Validate {
		before := r.countErrors()
		for _, is := range validateRecord(r.rec, r.opts, r.state) {
			r.raise(is)
		}
		for _, is := range diagnose(r.rec, r.clock(), r.state) {
			r.raise(is)
		}
		if n := r.countErrors() - before; n > 0 && !r.opts.StrictMode && r.opts.IncludePartialResults {
			r.act(ActionContinue, fmt.Sprintf("%d validation error(s); keeping partial data", n))
		}
	}

	if r.fatal {
		return StateError
	}
	if r.countErrors() > 0 && (r.opts.StrictMode || !r.opts.IncludePartialResults) {
		r.act(ActionAbort, "error-severity issues present and partial results not accepted")
		return StateError
	}
	return StateCompleted
}

// afterPhase applies the strict-mode policy between phases: any
// error-severity issue stops the machine.
func (r *run) afterPhase(next State) State {
	if r.fatal {
		return StateError
	}
	if r.opts.StrictMode && r.countErrors() > 0 {
		r.act(ActionAbort, "strict mode: stopping on error-severity issue")
		return StateError
	}
	return next
}

func (r *run) raise(is Issue) {
	if is.State == StateInitial && r.state != StateInitial {
		is.State = r.state
	}
	if is.Severity == SeverityCritical {
		r.fatal = true
	}
	r.issues = append(r.issues, is)
}

func (r *run) act(kind ActionKind, desc string) {
	r.actions = append(r.actions, RecoveryAction{
		Action:      kind,
		Description: desc,
		State:       r.state,
		Seq:         len(r.actions) + 1,
		At:          r.clock(),
	})
}

func (r *run) countErrors() int {
	n := 0
	for _, is := range r.issues {
		if is.Severity != SeverityWarning {
			n++
		}
	}
	return n
}

func (r *run) result() Result {
	res := Result{
		Success:         r.state == StateCompleted,
		FinalState:      r.state,
		Errors:          []Issue{},
		Warnings:        []Issue{},
		RecoveryActions: r.actions,
		Context:         r.ctx,
	}
	if res.RecoveryActions == nil {
		res.RecoveryActions = []RecoveryAction{}
	}
	for _, is := range r.issues {
		if is.Severity == SeverityWarning {
			res.Warnings = append(res.Warnings, is)
		} else {
			res.Errors = append(res.Errors, is)
		}
	}
	if r.rec.Len() > 0 && (res.Success || r.opts.IncludePartialResults) {
		res.Data = r.rec
		if r.opts.IncludeComments {
			res.Data.Comments = append([]string{}, r.ctx.Comments...)
		}
	}
	return res
}
