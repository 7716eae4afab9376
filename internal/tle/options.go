package tle

import (
	"errors"
	"fmt"
)

// Mode selects how the validation-first API treats error-severity issues.
type Mode string

const (
	// ModeStrict fails on any error or critical issue.
	ModeStrict Mode = "strict"
	// ModePermissive fails only on critical issues; errors become warnings.
	ModePermissive Mode = "permissive"
)

// Options configures a Parser. Build one with DefaultOptions and override
// fields; the parser checks the result once, up front.
type Options struct {
	// Validate runs the structure/range validator and the diagnostic
	// detector. Per-line checksum and line-number checks always run.
	Validate bool `json:"validate"`
	Mode     Mode `json:"mode"`
	// StrictChecksums makes a checksum mismatch an error. When false it is
	// reported as a warning.
	StrictChecksums bool `json:"strictChecksums"`
	ValidateRanges  bool `json:"validateRanges"`
	IncludeWarnings bool `json:"includeWarnings"`
	IncludeComments bool `json:"includeComments"`

	// State machine only.
	AttemptRecovery       bool `json:"attemptRecovery"`
	MaxRecoveryAttempts   int  `json:"maxRecoveryAttempts"`
	IncludePartialResults bool `json:"includePartialResults"`
	StrictMode            bool `json:"strictMode"`
}

// DefaultOptions returns the options used when the caller supplies none.
func DefaultOptions() Options {
	return Options{
		Validate:              true,
		Mode:                  ModeStrict,
		StrictChecksums:       true,
		ValidateRanges:        true,
		IncludeWarnings:       true,
		IncludeComments:       false,
		AttemptRecovery:       true,
		MaxRecoveryAttempts:   1,
		IncludePartialResults: true,
		StrictMode:            false,
	}
}

// ErrInvalidOptions is wrapped by every error returned from Options.Check.
var ErrInvalidOptions = errors.New("invalid parser options")

// Check reports whether o is usable.
func (o Options) Check() error {
	switch o.Mode {
	case ModeStrict, ModePermissive:
	default:
		return fmt.Errorf("%w: mode must be %q or %q, got %q", ErrInvalidOptions, ModeStrict, ModePermissive, o.Mode)
	}
	if o.MaxRecoveryAttempts < 0 {
		return fmt.Errorf("%w: maxRecoveryAttempts must be >= 0, got %d", ErrInvalidOptions, o.MaxRecoveryAttempts)
	}
	return nil
}

// checksumSeverity is the severity of a checksum mismatch under o.
func (o Options) checksumSeverity() Severity {
	if o.StrictChecksums {
		return SeverityError
	}
	return SeverityWarning
}
