// Package tle parses and validates Two-Line Element sets.
//
// Two entry points share one state machine. Run never fails: it returns a
// Result whose Success and FinalState say how parsing ended, together with
// every issue and recovery action. Parse is validation-first: it returns a
// Record, or a *ValidationError carrying the complete issue list.
//
// Records keep raw trimmed substrings; numeric coercion is left to callers.
package tle

import (
	"fmt"
	"time"
)

// Parser holds immutable configuration. Each call builds its own working
// state, so a Parser may be reused and shared between goroutines.
type Parser struct {
	opts Options
	now  func() time.Time
}

// ParserOption customizes a Parser.
type ParserOption func(*Parser)

// WithClock sets the time source used for staleness checks and recovery
// action timestamps.
func WithClock(now func() time.Time) ParserOption {
	return func(p *Parser) {
		if now != nil {
			p.now = now
		}
	}
}

// NewParser returns a parser using opts. Invalid options are not rejected
// here; Parse returns the error and Run reports a critical issue.
func NewParser(opts Options, fns ...ParserOption) *Parser {
	p := &Parser{
		opts: opts,
		now:  func() time.Time { return time.Now().UTC() },
	}
	for _, fn := range fns {
		fn(p)
	}
	return p
}

// Options returns the parser's configuration.
func (p *Parser) Options() Options {
	return p.opts
}

// Run drives the state machine over text.
func (p *Parser) Run(text string) Result {
	return newRun(p, text).exec()
}

// RunValue is Run for dynamically typed input such as a decoded JSON value.
// Anything other than a string or byte slice yields a critical
// INVALID_INPUT_TYPE issue and the Error state.
func (p *Parser) RunValue(v any) Result {
	switch t := v.(type) {
	case string:
		return p.Run(t)
	case []byte:
		return p.Run(string(t))
	}
	r := newRun(p, "")
	r.raise(Issue{
		Severity: SeverityCritical,
		Code:     CodeInvalidInputType,
		Message:  fmt.Sprintf("input must be text, got %T", v),
		Details:  map[string]any{"actual": fmt.Sprintf("%T", v)},
	})
	r.state = StateError
	return r.result()
}

// Parse is the validation-first entry point. In strict mode any error or
// critical issue fails the call; in permissive mode only critical issues
// do, and error issues are reported as warnings on the returned record.
func (p *Parser) Parse(text string) (*Record, error) {
	if err := p.opts.Check(); err != nil {
		return nil, err
	}

	// Collect everything in one pass; the mode decides afterwards.
	machine := *p
	machine.opts.StrictMode = false
	machine.opts.IncludePartialResults = true
	machine.opts.IncludeComments = false
	res := machine.Run(text)

	issues := res.Issues()
	if blocksParse(issues, p.opts.Mode) || res.Data == nil {
		return nil, &ValidationError{Issues: issues}
	}

	rec := res.Data.clone()
	if p.opts.IncludeWarnings {
		rec.Issues = make([]Issue, 0, len(issues))
		for _, is := range issues {
			if is.Severity == SeverityError {
				is = is.withSeverity(SeverityWarning)
			}
			rec.Issues = append(rec.Issues, is)
		}
	}
	if p.opts.IncludeComments {
		rec.Comments = append([]string{}, res.Context.Comments...)
	}
	return rec, nil
}

func blocksParse(issues []Issue, mode Mode) bool {
	for _, is := range issues {
		switch is.Severity {
		case SeverityCritical:
			return true
		case SeverityError:
			if mode == ModeStrict {
				return true
			}
		}
	}
	return false
}

// Run parses text with opts using a throwaway Parser.
func Run(text string, opts Options) Result {
	return NewParser(opts).Run(text)
}

// Parse validates and parses text with opts using a throwaway Parser.
func Parse(text string, opts Options) (*Record, error) {
	return NewParser(opts).Parse(text)
}

// ParseValue is Run for dynamically typed input using a throwaway Parser.
func ParseValue(v any, opts Options) Result {
	return NewParser(opts).RunValue(v)
}
