// Package app wires together the HTTP server, WebSocket hub, parser, and the
// optional demo runner. It owns the daemon's lifecycle and is the single
// source of truth for the current operating state.
package app

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/large-farva/tlecheck/internal/catalog"
	"github.com/large-farva/tlecheck/internal/config"
	"github.com/large-farva/tlecheck/internal/demo"
	"github.com/large-farva/tlecheck/internal/metrics"
	"github.com/large-farva/tlecheck/internal/telemetry"
	"github.com/large-farva/tlecheck/internal/tle"
	"github.com/large-farva/tlecheck/internal/ws"
)

const component = "tlecheckd"

// Options holds everything the App needs from the caller.
type Options struct {
	Logger     *Logger
	Cfg        config.Config
	ConfigPath string
	Bind       string
}

// App is the top-level daemon process. It manages the HTTP server, the
// WebSocket event hub, the shared parser, and the demo runner.
type App struct {
	log    *Logger
	bind   string
	server *http.Server

	cfgMu      sync.RWMutex
	cfg        config.Config
	configPath string

	parser atomic.Pointer[tle.Parser]

	startedAt time.Time
	state     atomic.Value // current state string (BOOTING, IDLE, PARSING)
	inflight  atomic.Int64

	wsHub   *ws.Hub
	logs    logRing
	stats   parseStats
	handler http.Handler
}

// New creates an App in the BOOTING state. Call Run to start serving.
func New(opts Options) *App {
	if opts.Logger == nil {
		opts.Logger = NewLogger(nil, ParseLevel(opts.Cfg.Logging.Level))
	}
	a := &App{
		log:        opts.Logger,
		cfg:        opts.Cfg,
		configPath: opts.ConfigPath,
		bind:       opts.Bind,
		startedAt:  time.Now(),
		wsHub:      ws.NewHub(),
	}
	a.state.Store("BOOTING")
	a.parser.Store(tle.NewParser(opts.Cfg.ParserOptions()))
	a.stats.init()

	a.log.setSink(func(level Level, msg string) {
		a.logs.add(logEntry{TS: time.Now().UTC(), Level: level.String(), Message: msg})
		a.wsHub.BroadcastJSON(telemetry.NewLogLine(component, level.String(), msg))
	})

	a.handler = a.routes()
	return a
}

// Handler returns the daemon's HTTP handler, including metrics middleware
// when enabled.
func (a *App) Handler() http.Handler {
	return a.handler
}

func (a *App) routes() http.Handler {
	cfg := a.getConfig()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", a.handleHealthz)
	mux.HandleFunc("/api/status", a.handleStatus)
	mux.HandleFunc("/api/version", a.handleVersion)
	mux.HandleFunc("/api/config", a.handleConfig)
	mux.HandleFunc("/api/config-list", a.handleConfigProfiles)
	mux.HandleFunc("/api/logs", a.handleLogs)
	mux.HandleFunc("/api/stats", a.handleStats)
	mux.HandleFunc("/api/system", a.handleSystem)
	mux.HandleFunc("/api/parse", a.handleParse)
	mux.HandleFunc("/api/validate", a.handleValidate)
	mux.HandleFunc("/api/checksum", a.handleChecksum)
	mux.HandleFunc("/api/catalog", a.handleCatalog)
	mux.HandleFunc("/api/reload", a.handleReload)
	mux.Handle("/ws", a.wsHub.Handler())

	if !cfg.Metrics.Enabled {
		return mux
	}
	mux.Handle(cfg.Metrics.Path, metrics.Handler())
	return metrics.Middleware(mux)
}

// Run starts the HTTP server, WebSocket hub, heartbeat ticker, and the demo
// runner when enabled. It blocks until the context is cancelled or the
// server returns an error.
func (a *App) Run(ctx context.Context) error {
	cfg := a.getConfig()

	bind := a.bind
	if bind == "" && cfg.Server.Bind != "" {
		bind = cfg.Server.Bind
	}
	if bind == "" {
		bind = "0.0.0.0:8080"
	}

	a.server = &http.Server{
		Addr:              bind,
		Handler:           a.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", bind)
	if err != nil {
		return err
	}

	a.log.Infof("listening on http://%s", bind)

	go a.wsHub.Run(ctx)
	a.transition("IDLE")
	go a.heartbeatLoop(ctx)

	if cfg.Demo.Enabled {
		if err := a.startDemo(ctx, cfg.Demo); err != nil {
			a.log.Warnf("demo disabled: %v", err)
		}
	}

	go func() {
		<-ctx.Done()
		a.log.Infof("shutdown requested")
		_ = a.server.Shutdown(context.Background())
	}()

	if err := a.server.Serve(ln); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (a *App) startDemo(ctx context.Context, dc config.DemoConfig) error {
	raw, source, err := catalog.Load(dc.Catalog)
	if err != nil {
		return fmt.Errorf("load demo catalog: %w", err)
	}
	r := demo.New(a.wsHub, a.getParser(), raw)
	if dc.IntervalSeconds > 0 {
		r.Interval = time.Duration(dc.IntervalSeconds) * time.Second
	}
	r.Observe = a.observe
	a.log.Infof("demo mode: replaying %s catalog every %s", source, r.Interval)
	go r.Run(ctx, a.setStateFromDemo)
	return nil
}

// transition atomically updates the daemon state and broadcasts the change
// to all connected WebSocket clients.
func (a *App) transition(newState string) {
	old := a.state.Swap(newState).(string)
	if old == newState {
		return
	}
	a.wsHub.BroadcastJSON(telemetry.NewStateTransition(component, old, newState))
}

// beginWork and endWork bracket a parse. The daemon reports PARSING while
// at least one is in flight.
func (a *App) beginWork() {
	if a.inflight.Add(1) == 1 {
		a.transition("PARSING")
	}
}

func (a *App) endWork() {
	if a.inflight.Add(-1) == 0 {
		a.transition("IDLE")
	}
}

func (a *App) setStateFromDemo(newState string) {
	switch newState {
	case "PARSING":
		a.beginWork()
	case "IDLE":
		a.endWork()
	}
}

// heartbeatLoop sends a periodic heartbeat event so clients can detect
// connectivity and track uptime without polling.
func (a *App) heartbeatLoop(ctx context.Context) {
	t := time.NewTicker(10 * time.Second)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			a.wsHub.BroadcastJSON(telemetry.NewHeartbeat(component, a.currentState(),
				time.Since(a.startedAt), a.wsHub.ClientCount()))
		}
	}
}

func (a *App) currentState() string {
	return a.state.Load().(string)
}

func (a *App) getConfig() config.Config {
	a.cfgMu.RLock()
	defer a.cfgMu.RUnlock()
	return a.cfg
}

func (a *App) getConfigPath() string {
	a.cfgMu.RLock()
	defer a.cfgMu.RUnlock()
	return a.configPath
}

func (a *App) getParser() *tle.Parser {
	return a.parser.Load()
}

// applyConfig swaps in a new configuration. Parsers already handed out keep
// their options; new requests see the new ones.
func (a *App) applyConfig(cfg config.Config, path string) {
	a.cfgMu.Lock()
	a.cfg = cfg
	a.configPath = path
	a.cfgMu.Unlock()

	a.parser.Store(tle.NewParser(cfg.ParserOptions()))
	a.log.SetLevel(ParseLevel(cfg.Logging.Level))
}

// observe records a finished state-machine run in the daemon stats and,
// when enabled, in Prometheus.
func (a *App) observe(res tle.Result) {
	a.stats.record(res.Success, res.FinalState.String(), res.Issues())
	if a.getConfig().Metrics.Enabled {
		metrics.Observe(res)
	}
}

// parseStats counts parses served since startup.
type parseStats struct {
	mu          sync.Mutex
	total       int
	succeeded   int
	failed      int
	byState     map[string]int
	byCode      map[string]int
	lastParseAt time.Time
}

func (s *parseStats) init() {
	s.byState = make(map[string]int)
	s.byCode = make(map[string]int)
}

func (s *parseStats) record(ok bool, state string, issues []tle.Issue) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total++
	if ok {
		s.succeeded++
	} else {
		s.failed++
	}
	s.byState[state]++
	for _, is := range issues {
		s.byCode[string(is.Code)]++
	}
	s.lastParseAt = time.Now().UTC()
}

func (s *parseStats) snapshot() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	byState := make(map[string]int, len(s.byState))
	for k, v := range s.byState {
		byState[k] = v
	}
	byCode := make(map[string]int, len(s.byCode))
	for k, v := range s.byCode {
		byCode[k] = v
	}
	var last any
	if !s.lastParseAt.IsZero() {
		last = s.lastParseAt
	}
	return map[string]any{
		"total_parses":   s.total,
		"succeeded":      s.succeeded,
		"failed":         s.failed,
		"by_final_state": byState,
		"issues_by_code": byCode,
		"last_parse_at":  last,
	}
}
