// Tlectl is the command-line client for tlecheck. It checks element sets
// locally with the same parser the daemon uses, and talks to a running
// tlecheckd over HTTP and WebSocket to query status and stream events.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/large-farva/tlecheck/internal/ctl"
)

func main() {
	var (
		host    = pflag.StringP("host", "H", "http://127.0.0.1:8080", "tlecheckd URL (e.g. http://192.168.8.1:8080)")
		jsonOut = pflag.Bool("json", false, "Output raw JSON instead of formatted text")
		filter  = pflag.StringSlice("filter", nil, "Event types to show in watch (e.g. --filter state,parse_result)")
	)

	// Stop parsing global flags at the first non-flag argument (the command
	// name), so subcommand-specific flags are not rejected.
	pflag.CommandLine.SetInterspersed(false)
	pflag.Parse()

	if pflag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	cmd := pflag.Arg(0)
	subArgs := pflag.Args()[1:]

	var err error
	switch cmd {
	// ── Local commands ────────────────────────────────────────────
	case "inspect":
		fs := pflag.NewFlagSet("inspect", pflag.ExitOnError)
		opts := ctl.ParserFlags(fs)
		withElements := fs.Bool("elements", false, "Also show numeric elements and the SGP4 reader cross-check")
		_ = fs.Parse(subArgs)
		err = ctl.Inspect(inputArg(fs), ctl.InspectOptions{Parser: *opts, Elements: *withElements, JSON: *jsonOut})

	case "check":
		fs := pflag.NewFlagSet("check", pflag.ExitOnError)
		opts := ctl.ParserFlags(fs)
		_ = fs.Parse(subArgs)
		err = ctl.Check(inputArg(fs), ctl.CheckOptions{Parser: *opts, JSON: *jsonOut})

	case "checksum":
		if len(subArgs) == 0 {
			subArgs = []string{"-"}
		}
		err = ctl.Checksum(subArgs, *jsonOut)

	case "catalog":
		fs := pflag.NewFlagSet("catalog", pflag.ExitOnError)
		opts := ctl.ParserFlags(fs)
		failures := fs.Bool("failures", false, "Only list sets that did not complete")
		_ = fs.Parse(subArgs)
		err = ctl.Catalog(fs.Arg(0), ctl.CatalogOptions{Parser: *opts, FailuresOnly: *failures, JSON: *jsonOut})

	// ── Daemon queries ────────────────────────────────────────────
	case "status":
		err = ctl.Status(*host, *jsonOut)

	case "health":
		err = ctl.Health(*host, *jsonOut)

	case "version":
		err = ctl.VersionInfo(*host, *jsonOut)

	case "config":
		err = ctl.Config(*host, *jsonOut)

	case "config-list":
		err = ctl.ConfigList(*host, *jsonOut)

	case "stats":
		err = ctl.Stats(*host, *jsonOut)

	case "system-info":
		err = ctl.SystemInfo(*host, *jsonOut)

	case "logs":
		opts := ctl.LogsOptions{JSON: *jsonOut}
		logFlags := pflag.NewFlagSet("logs", pflag.ContinueOnError)
		logFlags.StringVar(&opts.Level, "level", "", "Filter by log level (debug, info, warn, error)")
		logFlags.IntVar(&opts.Limit, "limit", 0, "Limit number of log entries shown")
		logFlags.BoolVar(&opts.Tail, "tail", false, "Stream live log events (like watch --filter log)")
		_ = logFlags.Parse(subArgs)
		err = ctl.Logs(*host, opts)

	case "parse":
		opts := ctl.ParseOptions{JSON: *jsonOut}
		parseFlags := pflag.NewFlagSet("parse", pflag.ContinueOnError)
		parseFlags.BoolVar(&opts.Elements, "elements", false, "Also show numeric elements and the SGP4 reader cross-check")
		_ = parseFlags.Parse(subArgs)
		err = ctl.Parse(*host, inputArg(parseFlags), opts)

	// ── Control commands ──────────────────────────────────────────
	case "reload":
		opts := ctl.ReloadOptions{JSON: *jsonOut}
		reloadFlags := pflag.NewFlagSet("reload", pflag.ContinueOnError)
		reloadFlags.StringVar(&opts.Profile, "profile", "", "Switch to a named config profile")
		_ = reloadFlags.Parse(subArgs)
		err = ctl.Reload(*host, opts)

	// ── Live streaming ────────────────────────────────────────────
	case "watch":
		err = ctl.Watch(*host, ctl.WatchOptions{
			Filter: *filter,
			JSON:   *jsonOut,
		})

	default:
		usage()
		os.Exit(2)
	}

	if errors.Is(err, ctl.ErrFailed) {
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// inputArg is the file named on the command line, or stdin.
func inputArg(fs *pflag.FlagSet) string {
	if fs.NArg() > 0 {
		return fs.Arg(0)
	}
	return "-"
}

func usage() {
	fmt.Print(`
  tlectl: tlecheck command-line client

  USAGE
    tlectl [flags] <command> [command-flags] [args]

  COMMANDS (local)
    inspect FILE    Run the parser state machine and show the full report
    check FILE      Validate a set; exits 1 if it does not pass
    checksum LINE   Verify the checksum of one or more lines
    catalog FILE    Check every set in a bulk file (built-in sample if omitted)

  COMMANDS (daemon)
    status          Show daemon state, uptime, and parser mode
    health          Check daemon and component health
    version         Show CLI and daemon version information
    config          Show the daemon's running configuration
    config-list     List available config profiles
    stats           Show parse counts since startup
    logs            Show recent daemon log messages
    system-info     Show runtime and host information
    parse FILE      Send a set to the daemon and show its report
    reload          Reload configuration from disk

  COMMANDS (live)
    watch           Stream live events from the daemon (Ctrl-C to stop)

  GLOBAL FLAGS
    -H, --host URL      Daemon base URL (default: http://127.0.0.1:8080)
        --json          Output raw JSON instead of formatted text
        --filter TYPE   Event types to show in watch (comma-separated)

  PARSER FLAGS (inspect, check, catalog)
        --mode MODE             strict or permissive (check only)
        --validate=false        Skip range validation and diagnostics
        --ranges=false          Skip numeric range checks
        --strict-checksums=false
                                Report checksum mismatches as warnings
        --warnings=false        Leave warnings out of check output
        --comments              Keep # comment lines
        --recover=false         Do not recover data lines from noisy input
        --max-recovery N        Maximum recovery attempts (default: 1)
        --partial=false         Drop partial data when errors occur
        --strict-mode           Stop at the first error

  COMMAND FLAGS
    inspect, parse:
        --elements          Show numeric elements and the SGP4 cross-check

    catalog:
        --failures          Only list sets that did not complete

    logs:
        --level LEVEL       Filter by log level (debug, info, warn, error)
        --limit N           Limit number of log entries shown
        --tail              Stream live log events

    reload:
        --profile NAME      Switch to a named config profile

  FILE may be "-" (or omitted) to read from stdin.

  EXAMPLES
    tlectl inspect iss.tle --elements
    tlectl check --mode permissive iss.tle
    cat iss.tle | tlectl check
    tlectl checksum "1 25544U 98067A   20300.83097691  .00001534  00000-0  35580-4 0  9996"
    tlectl catalog active.txt --failures
    tlectl --json status
    tlectl --host http://192.168.8.1:8080 watch
    tlectl parse iss.tle
    tlectl logs --level error --limit 20
    tlectl reload --profile strict
    tlectl watch --filter state,parse_result

`)
}
