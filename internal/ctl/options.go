package ctl

import (
	"github.com/spf13/pflag"

	"github.com/large-farva/tlecheck/internal/tle"
)

// ParserFlags registers the parser option flags on fs and returns the
// options they fill in, starting from the parser defaults.
func ParserFlags(fs *pflag.FlagSet) *tle.Options {
	o := tle.DefaultOptions()
	fs.StringVar((*string)(&o.Mode), "mode", string(o.Mode), "Validation mode for check: strict or permissive")
	fs.BoolVar(&o.Validate, "validate", o.Validate, "Run range validation and diagnostics")
	fs.BoolVar(&o.ValidateRanges, "ranges", o.ValidateRanges, "Check numeric fields against their ranges")
	fs.BoolVar(&o.StrictChecksums, "strict-checksums", o.StrictChecksums, "Treat checksum mismatches as errors")
	fs.BoolVar(&o.IncludeWarnings, "warnings", o.IncludeWarnings, "Attach warnings to check output")
	fs.BoolVar(&o.IncludeComments, "comments", o.IncludeComments, "Keep # comment lines in the output")
	fs.BoolVar(&o.AttemptRecovery, "recover", o.AttemptRecovery, "Try to recover data lines from noisy input")
	fs.IntVar(&o.MaxRecoveryAttempts, "max-recovery", o.MaxRecoveryAttempts, "Maximum recovery attempts")
	fs.BoolVar(&o.IncludePartialResults, "partial", o.IncludePartialResults, "Return partial data when errors occur")
	fs.BoolVar(&o.StrictMode, "strict-mode", o.StrictMode, "Stop the state machine at the first error")
	return &o
}
