package ctl

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// ParseOptions configures the remote parse command.
type ParseOptions struct {
	Elements bool
	JSON     bool
}

// Parse sends an element set read from path to the daemon's state machine
// and prints the report. It returns ErrFailed when the run did not
// complete.
func Parse(baseURL, path string, opts ParseOptions) error {
	text, err := readInput(path)
	if err != nil {
		return err
	}

	status, body, err := postRaw(baseURL, "/api/parse", map[string]any{"text": text, "elements": opts.Elements})
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("HTTP %d: %s", status, strings.TrimSpace(string(body)))
	}

	var rep ParseReport
	if err := json.Unmarshal(body, &rep); err != nil {
		return fmt.Errorf("decode parse response: %w", err)
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
