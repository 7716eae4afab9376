// Package demo replays a catalog of element sets through the parser on an
// interval so the daemon, CLI, and watchers have a live event stream to
// look at without anyone posting data. Some replays are deliberately
// corrupted so every recovery path shows up in the stream.
package demo

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/large-farva/tlecheck/internal/catalog"
	"github.com/large-farva/tlecheck/internal/telemetry"
	"github.com/large-farva/tlecheck/internal/tle"
)

const component = "demo"

// Broadcaster is the part of the WebSocket hub the runner needs.
type Broadcaster interface {
	BroadcastJSON(v any)
}

// Corruption names how a replayed set was damaged before parsing.
type Corruption string

const (
	Clean       Corruption = "clean"
	BadChecksum Corruption = "bad_checksum"
	Truncated   Corruption = "truncated"
	NoiseLines  Corruption = "noise_lines"
	Swapped     Corruption = "swapped_lines"
)

// cycle is the order corruptions are applied in; clean sets dominate.
var cycle = []Corruption{Clean, Clean, BadChecksum, Clean, Truncated, Clean, NoiseLines, Swapped}

// Runner replays catalog entries on a configurable interval.
type Runner struct {
	Hub      Broadcaster
	Parser   *tle.Parser
	Interval time.Duration // time between replays
	// Observe, if set, sees every result (the daemon feeds metrics here).
	Observe func(tle.Result)

	entries []catalog.Entry
	index   int
	rng     *rand.Rand
}

// New creates a runner over the sets in raw with a sensible default
// interval.
func New(hub Broadcaster, p *tle.Parser, raw string) *Runner {
	return &Runner{
		Hub:      hub,
		Parser:   p,
		Interval: 5 * time.Second,
		entries:  catalog.Split(raw),
		rng:      rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x746c65)),
	}
}

// Run kicks off the demo loop. It replays one set immediately, then repeats
// on the configured interval until ctx is cancelled.
func (r *Runner) Run(ctx context.Context, setState func(string)) {
	if len(r.entries) == 0 {
		r.Hub.BroadcastJSON(telemetry.NewLogLine(component, "warn", "demo catalog has no element sets; demo disabled"))
		return
	}
	r.Hub.BroadcastJSON(telemetry.NewLogLine(component, "info",
		fmt.Sprintf("demo mode active: replaying %d element sets every %s", len(r.entries), r.Interval)))

	r.Step(setState)

	t := time.NewTicker(r.Interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.Step(setState)
		}
	}
}

// Step replays the next entry and returns the event it broadcast.
func (r *Runner) Step(setState func(string)) telemetry.ParseResult {
	entry := r.entries[r.index%len(r.entries)]
	kind := cycle[r.index%len(cycle)]
	r.index++

	setState("PARSING")
	text := r.corrupt(entry.Text, kind)
	res := r.Parser.Run(text)
	if r.Observe != nil {
		r.Observe(res)
	}

	ev := telemetry.NewParseResult(component, "", "demo:"+string(kind), res)
	if ev.Satellite == "" {
		ev.Satellite = entry.Name
	}
	r.Hub.BroadcastJSON(ev)
	setState("IDLE")
	return ev
}

// corrupt damages text according to kind. Sets that lack the line a
// corruption needs come back unchanged.
func (r *Runner) corrupt(text string, kind Corruption) string {
	lines := strings.Split(text, "\n")
	l1, l2 := -1, -1
	for i, l := range lines {
		switch {
		case strings.HasPrefix(l, "1 "):
			l1 = i
		case strings.HasPrefix(l, "2 "):
			l2 = i
		}
	}
	if l1 < 0 || l2 < 0 {
		return text
	}

	switch kind {
	case BadChecksum:
		line := lines[l1]
		if n := len(line); n == tle.LineLength {
			d := line[n-1]
			if d >= '0' && d <= '9' {
				lines[l1] = line[:n-1] + string('0'+(d-'0'+1)%10)
			}
		}
	case Truncated:
		cut := 40 + r.rng.IntN(20)
		if cut < len(lines[l2]) {
			lines[l2] = lines[l2][:cut]
		}
	case NoiseLines:
		noisy := make([]string, 0, len(lines)+2)
		for i, l := range lines {
			if i == l1 {
				noisy = append(noisy, "-- relay frame boundary --")
			}
			noisy = append(noisy, l)
			if i == l2 {
				noisy = append(noisy, "EOF")
			}
		}
		lines = noisy
	case Swapped:
		lines[l1], lines[l2] = lines[l2], lines[l1]
	}
	return strings.Join(lines, "\n")
}
