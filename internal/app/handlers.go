package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/large-farva/tlecheck/internal/catalog"
	"github.com/large-farva/tlecheck/internal/config"
	"github.com/large-farva/tlecheck/internal/elements"
	"github.com/large-farva/tlecheck/internal/metrics"
	"github.com/large-farva/tlecheck/internal/telemetry"
	"github.com/large-farva/tlecheck/internal/tle"
)

// ---------------------------------------------------------------------------
// Core handlers
// ---------------------------------------------------------------------------

func (a *App) handleHealthz(w http.ResponseWriter, r *http.Request) {
	// If the client asks for JSON, return component-level health checks.
	if r.Header.Get("Accept") == "application/json" {
		a.handleHealthDetailed(w, r)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (a *App) handleStatus(w http.ResponseWriter, _ *http.Request) {
	cfg := a.getConfig()

	mode := "api"
	if cfg.Demo.Enabled {
		mode = "demo"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"name":           "tlecheck",
		"state":          a.currentState(),
		"mode":           mode,
		"uptime_seconds": int64(time.Since(a.startedAt).Seconds()),
		"config_path":    a.getConfigPath(),
		"parser_mode":    cfg.Parser.Mode,
		"strict_mode":    cfg.Parser.StrictMode,
		"demo_enabled":   cfg.Demo.Enabled,
		"metrics_path":   metricsPath(cfg),
		"ws_clients":     a.wsHub.ClientCount(),
	})
}

func metricsPath(cfg config.Config) string {
	if !cfg.Metrics.Enabled {
		return ""
	}
	return cfg.Metrics.Path
}

func (a *App) handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"version":    Version,
		"go_version": GoVersion,
		"built_at":   BuiltAt,
	})
}

func (a *App) handleConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.getConfig())
}

func (a *App) handleConfigProfiles(w http.ResponseWriter, _ *http.Request) {
	dir := config.DefaultConfigDir()
	profiles, err := config.ListProfiles(dir)
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if profiles == nil {
		profiles = []config.ProfileInfo{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"config_dir": dir,
		"profiles":   profiles,
	})
}

// ---------------------------------------------------------------------------
// Parsing
// ---------------------------------------------------------------------------

// parseRequest is the JSON body accepted by the parse endpoints. Text is
// left untyped so a non-string value reaches the parser and is reported as
// INVALID_INPUT_TYPE rather than rejected by the decoder.
type parseRequest struct {
	Text     any             `json:"text"`
	Options  json.RawMessage `json:"options,omitempty"`
	Elements bool            `json:"elements"`
}

type crossCheck struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

type parseResponse struct {
	RequestID string `json:"requestId"`
	tle.Result
	Elements      *elements.Elements `json:"elements,omitempty"`
	ElementsError string             `json:"elementsError,omitempty"`
	SGP4          *crossCheck        `json:"sgp4,omitempty"`
}

func (a *App) handleParse(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	id := requestID(w, r)

	req, ok := a.readParseRequest(w, r)
	if !ok {
		return
	}
	p, err := a.parserFor(req.Options)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	a.beginWork()
	res := p.RunValue(req.Text)
	a.endWork()

	a.observe(res)
	a.wsHub.BroadcastJSON(telemetry.NewParseResult(component, id, "api", res))
	a.log.Debugf("parse %s: %s, %d error(s), %d warning(s)", id, res.FinalState, len(res.Errors), len(res.Warnings))

	resp := parseResponse{RequestID: id, Result: res}
	if req.Elements && res.Data != nil {
		el, err := elements.FromRecord(res.Data)
		if err != nil {
			resp.ElementsError = err.Error()
		} else {
			resp.Elements = &el
		}
		if l1, l2, ok := dataLines(res.Context); ok {
			cc := crossCheck{OK: true}
			if err := elements.CrossCheck(res.Data.Value(tle.FieldSatelliteName), l1, l2); err != nil {
				cc = crossCheck{Error: err.Error()}
			}
			resp.SGP4 = &cc
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func dataLines(ctx tle.ParseContext) (string, string, bool) {
	i, j := ctx.Line1Index, ctx.Line2Index
	if i < 0 || j < 0 || i >= len(ctx.Lines) || j >= len(ctx.Lines) {
		return "", "", false
	}
	return ctx.Lines[i], ctx.Lines[j], true
}

func (a *App) handleValidate(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	id := requestID(w, r)

	req, ok := a.readParseRequest(w, r)
	if !ok {
		return
	}
	text, isText := req.Text.(string)
	if !isText {
		jsonError(w, fmt.Sprintf("text must be a string, got %T", req.Text), http.StatusBadRequest)
		return
	}
	p, err := a.parserFor(req.Options)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	a.beginWork()
	rec, err := p.Parse(text)
	a.endWork()

	var ve *tle.ValidationError
	switch {
	case errors.As(err, &ve):
		a.stats.record(false, tle.StateError.String(), ve.Issues)
		if a.getConfig().Metrics.Enabled {
			metrics.ObserveIssues(false, ve.Issues)
		}
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"ok":        false,
			"requestId": id,
			"error":     ve.Error(),
			"issues":    ve.Issues,
		})
	case err != nil:
		jsonError(w, err.Error(), http.StatusBadRequest)
	default:
		a.stats.record(true, tle.StateCompleted.String(), rec.Issues)
		if a.getConfig().Metrics.Enabled {
			metrics.ObserveIssues(true, rec.Issues)
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":        true,
			"requestId": id,
			"data":      rec,
		})
	}
}

func (a *App) handleChecksum(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	body, ok := a.readBody(w, r)
	if !ok {
		return
	}

	var lines []string
	if isJSON(r) {
		var req struct {
			Lines []string `json:"lines"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			jsonError(w, "bad request: "+err.Error(), http.StatusBadRequest)
			return
		}
		lines = req.Lines
	} else {
		lines = tle.Normalize(string(body)).Data
	}
	if len(lines) == 0 {
		jsonError(w, "no lines given", http.StatusBadRequest)
		return
	}

	type lineResult struct {
		Line string `json:"line"`
		tle.ChecksumResult
	}
	results := make([]lineResult, len(lines))
	allOK := true
	for i, l := range lines {
		results[i] = lineResult{Line: l, ChecksumResult: tle.VerifyChecksum(l)}
		allOK = allOK && results[i].OK
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": allOK, "results": results})
}

func (a *App) handleCatalog(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	id := requestID(w, r)

	req, ok := a.readParseRequest(w, r)
	if !ok {
		return
	}
	raw, isText := req.Text.(string)
	if !isText {
		jsonError(w, fmt.Sprintf("text must be a string, got %T", req.Text), http.StatusBadRequest)
		return
	}
	p, err := a.parserFor(req.Options)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	a.beginWork()
	reports, sum := catalog.ParseAll(p, raw)
	a.endWork()

	if sum.Total == 0 {
		jsonError(w, "no element sets found", http.StatusBadRequest)
		return
	}
	for _, rep := range reports {
		a.observe(rep.Result)
	}
	a.wsHub.BroadcastJSON(telemetry.NewCatalogRun(component, id, "api", sum))
	a.log.Infof("catalog %s: %d sets, %d succeeded, %d failed", id, sum.Total, sum.Succeeded, sum.Failed)

	resp := map[string]any{
		"requestId": id,
		"summary":   sum,
	}
	if r.URL.Query().Get("summary") != "true" {
		resp["reports"] = reports
	}
	writeJSON(w, http.StatusOK, resp)
}

// readParseRequest accepts either a JSON parseRequest or, for any other
// content type, the raw body as the text.
func (a *App) readParseRequest(w http.ResponseWriter, r *http.Request) (parseRequest, bool) {
	body, ok := a.readBody(w, r)
	if !ok {
		return parseRequest{}, false
	}
	if !isJSON(r) {
		return parseRequest{Text: string(body)}, true
	}
	var req parseRequest
	if err := json.Unmarshal(body, &req); err != nil {
		jsonError(w, "bad request: "+err.Error(), http.StatusBadRequest)
		return parseRequest{}, false
	}
	return req, true
}

func (a *App) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	limit := a.getConfig().Server.MaxBodyBytes
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonError(w, fmt.Sprintf("request body exceeds %d bytes", limit), http.StatusRequestEntityTooLarge)
		} else {
			jsonError(w, "read body: "+err.Error(), http.StatusBadRequest)
		}
		return nil, false
	}
	return body, true
}

// parserFor returns the shared parser, or a one-off parser when the request
// overrides options. Overrides are layered on the daemon's options, so a
// request only names the fields it wants to change.
func (a *App) parserFor(raw json.RawMessage) (*tle.Parser, error) {
	base := a.getParser()
	if len(raw) == 0 || string(raw) == "null" {
		return base, nil
	}
	opts := base.Options()
	if err := json.Unmarshal(raw, &opts); err != nil {
		return nil, fmt.Errorf("bad options: %w", err)
	}
	if err := opts.Check(); err != nil {
		return nil, err
	}
	return tle.NewParser(opts), nil
}

// ---------------------------------------------------------------------------
// Logs, stats, system
// ---------------------------------------------------------------------------

func (a *App) handleLogs(w http.ResponseWriter, r *http.Request) {
	entries := a.logs.snapshot()

	if levelFilter := r.URL.Query().Get("level"); levelFilter != "" {
		filtered := make([]logEntry, 0, len(entries))
		for _, e := range entries {
			if e.Level == levelFilter {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if n, err := strconv.Atoi(limitStr); err == nil && n > 0 && n < len(entries) {
			entries = entries[len(entries)-n:]
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"logs": entries})
}

func (a *App) handleStats(w http.ResponseWriter, _ *http.Request) {
	resp := a.stats.snapshot()
	resp["uptime_seconds"] = int64(time.Since(a.startedAt).Seconds())
	resp["ws_clients"] = a.wsHub.ClientCount()
	resp["ws_dropped"] = a.wsHub.Dropped()
	writeJSON(w, http.StatusOK, resp)
}

func (a *App) handleSystem(w http.ResponseWriter, _ *http.Request) {
	cfg := a.getConfig()

	resp := map[string]any{
		"go_version":    runtime.Version(),
		"os":            runtime.GOOS,
		"arch":          runtime.GOARCH,
		"num_cpu":       runtime.NumCPU(),
		"num_goroutine": runtime.NumGoroutine(),
		"config_dir":    config.DefaultConfigDir(),
		"log_file":      cfg.Logging.File,
	}

	if du, err := logDiskUsage(logDir(cfg)); err == nil {
		resp["disk"] = du
	} else {
		a.log.Debugf("system info: %v", err)
	}

	writeJSON(w, http.StatusOK, resp)
}

// logDir is where the daemon writes to disk: the rotated log's directory,
// or the working directory when logging only to stdout.
func logDir(cfg config.Config) string {
	if cfg.Logging.File == "" {
		return "."
	}
	return filepath.Dir(cfg.Logging.File)
}

func (a *App) handleHealthDetailed(w http.ResponseWriter, _ *http.Request) {
	cfg := a.getConfig()

	checks := map[string]any{}
	allOK := true

	if err := a.getParser().Options().Check(); err != nil {
		checks["parser"] = map[string]any{"ok": false, "error": err.Error()}
		allOK = false
	} else {
		checks["parser"] = map[string]any{"ok": true, "mode": cfg.Parser.Mode}
	}

	// Log directory writable.
	if cfg.Logging.File != "" {
		tmpPath := filepath.Join(logDir(cfg), ".healthcheck")
		if err := os.WriteFile(tmpPath, []byte("ok"), 0o644); err != nil {
			checks["log_dir"] = map[string]any{"ok": false, "error": err.Error()}
			allOK = false
		} else {
			os.Remove(tmpPath)
			checks["log_dir"] = map[string]any{"ok": true, "path": logDir(cfg)}
		}
	}

	// Config file readable.
	if path := a.getConfigPath(); path != "" {
		if _, err := os.Stat(path); err != nil {
			checks["config_file"] = map[string]any{"ok": false, "error": err.Error()}
			allOK = false
		} else {
			checks["config_file"] = map[string]any{"ok": true, "path": path}
		}
	}

	checks["websocket"] = map[string]any{
		"ok":      true,
		"clients": a.wsHub.ClientCount(),
		"dropped": a.wsHub.Dropped(),
	}

	status := http.StatusOK
	if !allOK {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]any{
		"healthy": allOK,
		"checks":  checks,
	})
}

// ---------------------------------------------------------------------------
// Reload
// ---------------------------------------------------------------------------

func (a *App) handleReload(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	// Accept optional profile name in body: {"profile": "strict"}
	var body struct {
		Profile string `json:"profile"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	loadPath := a.getConfigPath()
	if body.Profile != "" {
		if !config.ValidProfileName(body.Profile) {
			jsonError(w, fmt.Sprintf("invalid profile name %q", body.Profile), http.StatusBadRequest)
			return
		}
		candidate := config.ProfilePath(config.DefaultConfigDir(), body.Profile)
		if _, err := os.Stat(candidate); err != nil {
			jsonError(w, fmt.Sprintf("profile %q not found at %s", body.Profile, candidate), http.StatusNotFound)
			return
		}
		loadPath = candidate
	}

	if loadPath == "" {
		jsonError(w, "no config file path set", http.StatusInternalServerError)
		return
	}

	newCfg, err := config.Load(loadPath)
	if err != nil {
		jsonError(w, "config reload failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	a.applyConfig(newCfg, loadPath)
	a.log.Infof("config reloaded from %s", loadPath)

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"message": "configuration reloaded from " + loadPath,
	})
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
	return false
}

// requestID reuses the caller's X-Request-ID when present and echoes the
// chosen ID back on the response.
func requestID(w http.ResponseWriter, r *http.Request) string {
	id := strings.TrimSpace(r.Header.Get("X-Request-ID"))
	if id == "" {
		id = uuid.NewString()
	}
	w.Header().Set("X-Request-ID", id)
	return id
}

func isJSON(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]any{
		"ok":    false,
		"error": msg,
	})
}
