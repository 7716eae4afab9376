// Package telemetry defines the typed event structs that flow over the
// WebSocket connection between tlecheckd and its clients. Every event
// carries a type and an RFC 3339 timestamp; clients switch on the type.
package telemetry

import (
	"time"

	"github.com/large-farva/tlecheck/internal/catalog"
	"github.com/large-farva/tlecheck/internal/tle"
)

// EventType identifies the kind of WebSocket event.
type EventType string

const (
	EventHeartbeat   EventType = "heartbeat"
	EventState       EventType = "state"
	EventLog         EventType = "log"
	EventParseResult EventType = "parse_result"
	EventCatalog     EventType = "catalog"
)

// Event is the base envelope shared by every event type.
type Event struct {
	Type      EventType `json:"type"`
	TS        string    `json:"ts"`
	Component string    `json:"component,omitempty"`
}

// NowTS returns the current UTC time as an RFC 3339 nano string, matching the
// timestamp format used across all events.
func NowTS() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func envelope(t EventType, component string) Event {
	return Event{Type: t, TS: NowTS(), Component: component}
}

// Heartbeat is sent periodically so clients can detect connectivity and
// monitor daemon uptime.
type Heartbeat struct {
	Event
	State         string `json:"state"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Clients       int    `json:"clients"`
}

func NewHeartbeat(component, state string, uptime time.Duration, clients int) Heartbeat {
	return Heartbeat{
		Event:         envelope(EventHeartbeat, component),
		State:         state,
		UptimeSeconds: int64(uptime.Seconds()),
		Clients:       clients,
	}
}

// StateTransition is emitted whenever the daemon moves between operating
// states (e.g. IDLE -> PARSING).
type StateTransition struct {
	Event
	From string `json:"from"`
	To   string `json:"to"`
}

func NewStateTransition(component, from, to string) StateTransition {
	return StateTransition{Event: envelope(EventState, component), From: from, To: to}
}

// LogLine carries a human-readable log message at a severity level.
type LogLine struct {
	Event
	Level   string `json:"level"`
	Message string `json:"message"`
}

func NewLogLine(component, level, msg string) LogLine {
	return LogLine{Event: envelope(EventLog, component), Level: level, Message: msg}
}

// ParseResult summarizes one parser run. The full result is only returned
// to the caller that asked for it; watchers get the outline.
type ParseResult struct {
	Event
	RequestID       string     `json:"request_id"`
	Source          string     `json:"source"`
	Satellite       string     `json:"satellite,omitempty"`
	SatelliteNumber string     `json:"satellite_number,omitempty"`
	Success         bool       `json:"success"`
	FinalState      tle.State  `json:"final_state"`
	Errors          int        `json:"errors"`
	Warnings        int        `json:"warnings"`
	RecoveryActions int        `json:"recovery_actions"`
	Codes           []tle.Code `json:"codes,omitempty"`
}

// NewParseResult builds a ParseResult from a state-machine result.
func NewParseResult(component, requestID, source string, res tle.Result) ParseResult {
	ev := ParseResult{
		Event:           envelope(EventParseResult, component),
		RequestID:       requestID,
		Source:          source,
		Satellite:       res.Data.Value(tle.FieldSatelliteName),
		SatelliteNumber: res.Data.Value(tle.FieldSatelliteNumber1),
		Success:         res.Success,
		FinalState:      res.FinalState,
		Errors:          len(res.Errors),
		Warnings:        len(res.Warnings),
		RecoveryActions: len(res.RecoveryActions),
	}
	seen := make(map[tle.Code]bool)
	for _, is := range res.Issues() {
		if !seen[is.Code] {
			seen[is.Code] = true
			ev.Codes = append(ev.Codes, is.Code)
		}
	}
	return ev
}

// CatalogRun reports the outcome of a bulk catalog pass.
type CatalogRun struct {
	Event
	RequestID string `json:"request_id"`
	Source    string `json:"source"`
	Total     int    `json:"total"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
	Errors    int    `json:"errors"`
	Warnings  int    `json:"warnings"`
}

func NewCatalogRun(component, requestID, source string, sum catalog.Summary) CatalogRun {
	return CatalogRun{
		Event:     envelope(EventCatalog, component),
		RequestID: requestID,
		Source:    source,
		Total:     sum.Total,
		Succeeded: sum.Succeeded,
		Failed:    sum.Failed,
		Errors:    sum.Errors,
		Warnings:  sum.Warnings,
	}
}
