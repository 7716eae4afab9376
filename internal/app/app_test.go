package app

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/large-farva/tlecheck/internal/catalog"
	"github.com/large-farva/tlecheck/internal/config"
)

const (
	issLine1 = "1 25544U 98067A   20300.83097691  .00001534  00000-0  35580-4 0  9996"
	issLine2 = "2 25544  51.6453  57.0843 0001671  64.9808  73.0513 15.49338189252428"
	issText  = "ISS (ZARYA)\n" + issLine1 + "\n" + issLine2
)

func newTestApp(t *testing.T, cfg config.Config, configPath string) (*App, *httptest.Server) {
	t.Helper()
	logger := NewLogger(log.New(io.Discard, "", 0), LevelDebug)
	a := New(Options{Logger: logger, Cfg: cfg, ConfigPath: configPath})
	srv := httptest.NewServer(a.Handler())
	t.Cleanup(srv.Close)
	return a, srv
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func TestHealthz(t *testing.T) {
	_, srv := newTestApp(t, config.Default(), "")

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	b, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || string(b) != "ok\n" {
		t.Fatalf("plain healthz = %d %q", resp.StatusCode, b)
	}

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/healthz", nil)
	req.Header.Set("Accept", "application/json")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	var health struct {
		Healthy bool                      `json:"healthy"`
		Checks  map[string]map[string]any `json:"checks"`
	}
	decode(t, resp, &health)
	if !health.Healthy || health.Checks["parser"]["ok"] != true {
		t.Fatalf("detailed health = %+v", health)
	}
}

func TestParseEndpoint(t *testing.T) {
	_, srv := newTestApp(t, config.Default(), "")

	resp := postJSON(t, srv.URL+"/api/parse", map[string]any{"text": issText, "elements": true})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatalf("missing X-Request-ID")
	}
	var out struct {
		RequestID  string            `json:"requestId"`
		Success    bool              `json:"success"`
		FinalState string            `json:"finalState"`
		Data       map[string]string `json:"data"`
		Elements   *struct {
			SatelliteNumber int     `json:"satelliteNumber"`
			Eccentricity    float64 `json:"eccentricity"`
		} `json:"elements"`
		SGP4 *crossCheck `json:"sgp4"`
	}
	decode(t, resp, &out)

	if !out.Success || out.FinalState != "completed" || out.RequestID == "" {
		t.Fatalf("result = %+v", out)
	}
	if out.Data["satelliteName"] != "ISS (ZARYA)" || out.Data["checksum1"] != "6" {
		t.Fatalf("data = %v", out.Data)
	}
	if out.Elements == nil || out.Elements.SatelliteNumber != 25544 || out.Elements.Eccentricity != 0.0001671 {
		t.Fatalf("elements = %+v", out.Elements)
	}
	if out.SGP4 == nil || !out.SGP4.OK {
		t.Fatalf("sgp4 = %+v", out.SGP4)
	}
}

func TestParseEndpointPlainTextAndErrors(t *testing.T) {
	_, srv := newTestApp(t, config.Default(), "")

	resp, err := http.Post(srv.URL+"/api/parse", "text/plain", strings.NewReader(issLine1))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	var single struct {
		Success    bool   `json:"success"`
		FinalState string `json:"finalState"`
		Errors     []struct {
			Code     string `json:"code"`
			Severity string `json:"severity"`
		} `json:"errors"`
	}
	decode(t, resp, &single)
	if single.Success || single.FinalState != "error" || len(single.Errors) != 1 ||
		single.Errors[0].Code != "INVALID_LINE_COUNT" || single.Errors[0].Severity != "critical" {
		t.Fatalf("single line = %+v", single)
	}

	resp = postJSON(t, srv.URL+"/api/parse", map[string]any{"text": 42})
	var typed struct {
		Errors []struct {
			Code string `json:"code"`
		} `json:"errors"`
	}
	decode(t, resp, &typed)
	if len(typed.Errors) != 1 || typed.Errors[0].Code != "INVALID_INPUT_TYPE" {
		t.Fatalf("non-text input = %+v", typed)
	}

	resp = postJSON(t, srv.URL+"/api/parse", map[string]any{"text": issText, "options": map[string]any{"mode": "bogus"}})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad options status = %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/api/parse")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("GET /api/parse = %d", resp.StatusCode)
	}
}

func TestParseOptionOverride(t *testing.T) {
	_, srv := newTestApp(t, config.Default(), "")
	bad := strings.Replace(issText, "0  9996", "0  9990", 1)

	resp := postJSON(t, srv.URL+"/api/parse", map[string]any{"text": bad})
	var strict struct {
		Errors   []json.RawMessage `json:"errors"`
		Warnings []struct {
			Code string `json:"code"`
		} `json:"warnings"`
	}
	decode(t, resp, &strict)
	if len(strict.Errors) != 1 {
		t.Fatalf("default options: %d errors, want 1", len(strict.Errors))
	}

	resp = postJSON(t, srv.URL+"/api/parse", map[string]any{
		"text":    bad,
		"options": map[string]any{"strictChecksums": false},
	})
	var lenient struct {
		Errors   []json.RawMessage `json:"errors"`
		Warnings []struct {
			Code string `json:"code"`
		} `json:"warnings"`
	}
	decode(t, resp, &lenient)
	if len(lenient.Errors) != 0 {
		t.Fatalf("lenient checksums: %d errors, want 0", len(lenient.Errors))
	}
	found := false
	for _, w := range lenient.Warnings {
		found = found || w.Code == "CHECKSUM_MISMATCH"
	}
	if !found {
		t.Fatalf("checksum mismatch not reported as warning: %+v", lenient.Warnings)
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	_, srv := newTestApp(t, config.Default(), "")

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/parse", strings.NewReader(issText))
	req.Header.Set("X-Request-ID", "abc-123")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	var out struct {
		RequestID string `json:"requestId"`
	}
	decode(t, resp, &out)
	if out.RequestID != "abc-123" || resp.Header.Get("X-Request-ID") != "abc-123" {
		t.Fatalf("request id = %q / %q", out.RequestID, resp.Header.Get("X-Request-ID"))
	}
}

func TestValidateEndpoint(t *testing.T) {
	_, srv := newTestApp(t, config.Default(), "")

	resp := postJSON(t, srv.URL+"/api/validate", map[string]any{"text": issText})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("valid set status = %d", resp.StatusCode)
	}
	var ok struct {
		OK   bool           `json:"ok"`
		Data map[string]any `json:"data"`
	}
	decode(t, resp, &ok)
	if !ok.OK || ok.Data["satelliteNumber2"] != "25544" {
		t.Fatalf("valid set = %+v", ok)
	}

	bad := strings.Replace(issText, "0  9996", "0  9990", 1)
	resp = postJSON(t, srv.URL+"/api/validate", map[string]any{"text": bad})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("bad checksum status = %d", resp.StatusCode)
	}
	var fail struct {
		OK     bool   `json:"ok"`
		Error  string `json:"error"`
		Issues []struct {
			Code string `json:"code"`
		} `json:"issues"`
	}
	decode(t, resp, &fail)
	if fail.OK || fail.Error == "" || len(fail.Issues) == 0 || fail.Issues[0].Code != "CHECKSUM_MISMATCH" {
		t.Fatalf("bad checksum = %+v", fail)
	}

	resp = postJSON(t, srv.URL+"/api/validate", map[string]any{"text": bad, "options": map[string]any{"mode": "permissive"}})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("permissive status = %d", resp.StatusCode)
	}

	resp = postJSON(t, srv.URL+"/api/validate", map[string]any{"text": []string{"x"}})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("non-string status = %d", resp.StatusCode)
	}
}

func TestChecksumEndpoint(t *testing.T) {
	_, srv := newTestApp(t, config.Default(), "")

	resp := postJSON(t, srv.URL+"/api/checksum", map[string]any{"lines": []string{issLine1, issLine2, "short"}})
	var out struct {
		OK      bool `json:"ok"`
		Results []struct {
			Line     string `json:"line"`
			Expected int    `json:"expected"`
			OK       bool   `json:"ok"`
			LengthOK bool   `json:"lengthOk"`
		} `json:"results"`
	}
	decode(t, resp, &out)
	if out.OK || len(out.Results) != 3 {
		t.Fatalf("results = %+v", out)
	}
	if !out.Results[0].OK || out.Results[0].Expected != 6 || !out.Results[1].OK || out.Results[1].Expected != 8 {
		t.Fatalf("ISS checksums = %+v", out.Results[:2])
	}
	if out.Results[2].LengthOK {
		t.Fatalf("short line passed length check")
	}

	resp = postJSON(t, srv.URL+"/api/checksum", map[string]any{"lines": []string{}})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty lines status = %d", resp.StatusCode)
	}
}

func TestCatalogEndpoint(t *testing.T) {
	_, srv := newTestApp(t, config.Default(), "")

	resp, err := http.Post(srv.URL+"/api/catalog?summary=true", "text/plain", strings.NewReader(catalog.Embedded()))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	var out struct {
		Summary catalog.Summary   `json:"summary"`
		Reports []json.RawMessage `json:"reports"`
	}
	decode(t, resp, &out)
	if out.Summary.Total != 5 || out.Summary.Succeeded != 5 || out.Reports != nil {
		t.Fatalf("catalog = %+v", out)
	}

	resp, err = http.Post(srv.URL+"/api/catalog", "text/plain", strings.NewReader("# nothing here\n"))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty catalog status = %d", resp.StatusCode)
	}
}

func TestBodyLimit(t *testing.T) {
	cfg := config.Default()
	cfg.Server.MaxBodyBytes = 16
	_, srv := newTestApp(t, cfg, "")

	resp, err := http.Post(srv.URL+"/api/parse", "text/plain", strings.NewReader(issText))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", resp.StatusCode)
	}
}

func TestStateStatsAndLogs(t *testing.T) {
	_, srv := newTestApp(t, config.Default(), "")

	for i := 0; i < 2; i++ {
		resp, err := http.Post(srv.URL+"/api/parse", "text/plain", strings.NewReader(issText))
		if err != nil {
			t.Fatalf("POST: %v", err)
		}
		resp.Body.Close()
	}
	resp, _ := http.Post(srv.URL+"/api/parse", "text/plain", strings.NewReader("garbage"))
	resp.Body.Close()

	resp, err := http.Get(srv.URL + "/api/status")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	var status struct {
		State string `json:"state"`
		Mode  string `json:"mode"`
	}
	decode(t, resp, &status)
	if status.State != "IDLE" || status.Mode != "demo" {
		t.Fatalf("status = %+v", status)
	}

	resp, err = http.Get(srv.URL + "/api/stats")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	var stats struct {
		Total     int            `json:"total_parses"`
		Succeeded int            `json:"succeeded"`
		Failed    int            `json:"failed"`
		ByState   map[string]int `json:"by_final_state"`
	}
	decode(t, resp, &stats)
	if stats.Total != 3 || stats.Succeeded != 2 || stats.Failed != 1 || stats.ByState["error"] != 1 {
		t.Fatalf("stats = %+v", stats)
	}

	resp, err = http.Get(srv.URL + "/api/logs?level=debug&limit=2")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	var logs struct {
		Logs []logEntry `json:"logs"`
	}
	decode(t, resp, &logs)
	if len(logs.Logs) != 2 || !strings.HasPrefix(logs.Logs[1].Message, "parse ") {
		t.Fatalf("logs = %+v", logs.Logs)
	}
}

func TestReload(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TLECHECK_CONFIG_DIR", dir)

	path := filepath.Join(dir, "tlecheck.toml")
	if err := os.WriteFile(path, []byte("[parser]\nstrict_mode = true\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	profile := "[parser]\nmode = \"permissive\"\n"
	if err := os.WriteFile(filepath.Join(dir, "lenient.toml"), []byte(profile), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	a, srv := newTestApp(t, config.Default(), path)

	resp := postJSON(t, srv.URL+"/api/reload", map[string]any{})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("reload status = %d", resp.StatusCode)
	}
	if !a.getConfig().Parser.StrictMode || !a.getParser().Options().StrictMode {
		t.Fatalf("reload did not apply strict_mode")
	}

	resp = postJSON(t, srv.URL+"/api/reload", map[string]any{"profile": "lenient"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("profile reload status = %d", resp.StatusCode)
	}
	if a.getParser().Options().Mode != "permissive" || a.getConfigPath() != filepath.Join(dir, "lenient.toml") {
		t.Fatalf("profile not applied: %+v", a.getParser().Options())
	}

	for name, want := range map[string]int{
		"../etc/passwd": http.StatusBadRequest,
		"missing":       http.StatusNotFound,
	} {
		resp = postJSON(t, srv.URL+"/api/reload", map[string]any{"profile": name})
		resp.Body.Close()
		if resp.StatusCode != want {
			t.Errorf("profile %q status = %d, want %d", name, resp.StatusCode, want)
		}
	}

	resp, err := http.Get(srv.URL + "/api/config-list")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	var list struct {
		Profiles []config.ProfileInfo `json:"profiles"`
	}
	decode(t, resp, &list)
	if len(list.Profiles) != 2 {
		t.Fatalf("profiles = %+v", list.Profiles)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	_, srv := newTestApp(t, config.Default(), "")

	resp, _ := http.Post(srv.URL+"/api/parse", "text/plain", strings.NewReader(issText))
	resp.Body.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	b, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(b), `tlecheck_parses_total{final_state="completed"}`) {
		t.Fatalf("metrics output missing parse counter")
	}
}

func TestLogRingBounded(t *testing.T) {
	var r logRing
	for i := 0; i < logBufSize+10; i++ {
		r.add(logEntry{Message: "m"})
	}
	if got := len(r.snapshot()); got != logBufSize {
		t.Fatalf("ring holds %d entries, want %d", got, logBufSize)
	}
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]Level{
		"debug": LevelDebug,
		"WARN":  LevelWarn,
		"error": LevelError,
		"bogus": LevelInfo,
	} {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLogDiskUsage(t *testing.T) {
	dir := t.TempDir()
	d, err := logDiskUsage(dir)
	if err != nil {
		t.Fatalf("logDiskUsage: %v", err)
	}
	if d.Path != dir || d.TotalBytes == 0 || d.UsedBytes > d.TotalBytes {
		t.Fatalf("disk = %+v", d)
	}
	if d.UsedPercent < 0 || d.UsedPercent > 100 {
		t.Fatalf("used percent = %v", d.UsedPercent)
	}
	if _, err := logDiskUsage(filepath.Join(dir, "missing")); err == nil {
		t.Fatalf("expected error for missing directory")
	}
}

func TestSystemReportsLogDisk(t *testing.T) {
	cfg := config.Default()
	cfg.Logging.File = filepath.Join(t.TempDir(), "tlecheckd.log")
	_, srv := newTestApp(t, cfg, "")

	resp, err := http.Get(srv.URL + "/api/system")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	var body struct {
		Disk *logDisk `json:"disk"`
	}
	decode(t, resp, &body)
	if body.Disk == nil || body.Disk.Path != filepath.Dir(cfg.Logging.File) {
		t.Fatalf("disk = %+v", body.Disk)
	}
}
