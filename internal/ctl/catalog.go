package ctl

import (
	"fmt"
	"strconv"

	"github.com/large-farva/tlecheck/internal/catalog"
	"github.com/large-farva/tlecheck/internal/tle"
)

// CatalogOptions configures the catalog command.
type CatalogOptions struct {
	Parser       tle.Options
	FailuresOnly bool
	JSON         bool
}

// Catalog runs every element set in a bulk file through the state machine
// and prints one row per set. An empty path checks the built-in sample
// catalog. It returns ErrFailed if any set did not complete.
func Catalog(path string, opts CatalogOptions) error {
	if err := opts.Parser.Check(); err != nil {
		return err
	}

	var raw, source string
	var err error
	if path == "-" {
		raw, err = readInput(path)
		source = "stdin"
	} else {
		raw, source, err = catalog.Load(path)
	}
	if err != nil {
		return err
	}

	reports, sum := catalog.ParseAll(tle.NewParser(opts.Parser), raw)
	if sum.Total == 0 {
		return fmt.Errorf("no element sets found in %s", source)
	}

	if opts.JSON {
		out := map[string]any{"source": source, "summary": sum}
		if opts.FailuresOnly {
			out["reports"] = failures(reports)
		} else {
			out["reports"] = reports
		}
		if err := printJSON(out); err != nil {
			return err
		}
	} else {
		renderCatalog(source, reports, sum, opts.FailuresOnly)
	}

	if sum.Failed > 0 {
		return ErrFailed
	}
	return nil
}

func failures(reports []catalog.Report) []catalog.Report {
	out := make([]catalog.Report, 0, len(reports))
	for _, r := range reports {
		if !r.Result.Success {
			out = append(out, r)
		}
	}
	return out
}

func renderCatalog(source string, reports []catalog.Report, sum catalog.Summary, failuresOnly bool) {
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, header("  CATALOG "+source))
	fmt.Fprintln(stdout, rule(70))

	if failuresOnly {
		reports = failures(reports)
	}
	t := newTable("  ", "Line", "Satellite", "Number", "State", "Err", "Warn")
	t.alignRight(0, 4, 5)
	for _, r := range reports {
		res := r.Result
		name := r.Entry.Name
		if name == "" {
			name = "(unnamed)"
		}
		t.rowColored([]string{"", "", "", finalStateColor(res.FinalState)},
			strconv.Itoa(r.Entry.Line), name, res.Data.Value(tle.FieldSatelliteNumber1),
			res.FinalState.String(), strconv.Itoa(len(res.Errors)), strconv.Itoa(len(res.Warnings)))
	}
	t.flush()

	pct := 0
	if sum.Total > 0 {
		pct = sum.Succeeded * 100 / sum.Total
	}
	fmt.Fprintln(stdout)
	fmt.Fprintf(stdout, "  [%s] %d/%d completed, %d failed, %d error(s), %d warning(s)\n",
		progressBar(pct, 20), sum.Succeeded, sum.Total, sum.Failed, sum.Errors, sum.Warnings)
	fmt.Fprintln(stdout)
}
