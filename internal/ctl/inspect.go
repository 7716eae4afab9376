package ctl

import (
	"errors"
	"fmt"

	"github.com/large-farva/tlecheck/internal/tle"
)

// InspectOptions configures the inspect command.
type InspectOptions struct {
	Parser   tle.Options
	Elements bool
	JSON     bool
}

// Inspect runs the state machine on one element set read from path ("-"
// for stdin) and prints the full report. It returns ErrFailed when the run
// did not complete.
func Inspect(path string, opts InspectOptions) error {
	if err := opts.Parser.Check(); err != nil {
		return err
	}
	text, err := readInput(path)
	if err != nil {
		return err
	}

	rep := ParseReport{Result: tle.NewParser(opts.Parser).Run(text)}
	if opts.Elements {
		addElements(&rep)
	}

	if opts.JSON {
		if err := printJSON(rep); err != nil {
			return err
		}
	} else {
		renderReport(rep)
	}
	if !rep.Success {
		return ErrFailed
	}
	return nil
}

// CheckOptions configures the check command.
type CheckOptions struct {
	Parser tle.Options
	JSON   bool
}

// Check validates one element set with the validation-first API. On
// failure it prints every issue and returns ErrFailed.
func Check(path string, opts CheckOptions) error {
	text, err := readInput(path)
	if err != nil {
		return err
	}

	rec, err := tle.NewParser(opts.Parser).Parse(text)
	var ve *tle.ValidationError
	if errors.As(err, &ve) {
		if opts.JSON {
			if err := printJSON(map[string]any{"ok": false, "error": ve.Error(), "issues": ve.Issues}); err != nil {
				return err
			}
			return ErrFailed
		}
		fmt.Fprintf(stdout, "\n  %s  %s\n\n", colorize(red, "FAIL"), ve.Error())
		renderIssues(ve.Issues)
		fmt.Fprintln(stdout)
		return ErrFailed
	}
	if err != nil {
		return err
	}

	if opts.JSON {
		return printJSON(map[string]any{"ok": true, "data": rec})
	}
	name := rec.Value(tle.FieldSatelliteName)
	if name == "" {
		name = "(unnamed)"
	}
	fmt.Fprintf(stdout, "\n  %s  #%s %s\n", colorize(green, "OK"), rec.Value(tle.FieldSatelliteNumber1), name)
	if len(rec.Issues) > 0 {
		fmt.Fprintln(stdout)
		renderIssues(rec.Issues)
	}
	fmt.Fprintln(stdout)
	return nil
}
