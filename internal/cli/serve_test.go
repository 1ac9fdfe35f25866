package cli

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/conf2dot/pkg/cache"
	"github.com/matzehuels/conf2dot/pkg/errors"
	"github.com/matzehuels/conf2dot/pkg/observability"
	"github.com/matzehuels/conf2dot/pkg/pipeline"
)

func newTestHandler(t *testing.T, cfg Config) (http.Handler, string) {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "smile.conf", scenarioConf)
	writeFile(t, root, "nested/broken.conf", "orphan = 1\n")
	writeFile(t, root, "nested/escape.conf", "\\{../../outside.conf}\n")
	writeFile(t, root, "nested/loop.conf", "\\{loop.conf}\n")

	mc, err := cache.NewMemoryCache(16)
	if err != nil {
		t.Fatal(err)
	}
	runner := pipeline.NewRunner(mc, discardLogger())
	t.Cleanup(func() { _ = runner.Close() })
	return newGraphHandler(root, runner, cfg, discardLogger()), root
}

func get(h http.Handler, target string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func graphURL(params ...string) string {
	q := url.Values{}
	for i := 0; i+1 < len(params); i += 2 {
		q.Add(params[i], params[i+1])
	}
	return "/graph?" + q.Encode()
}

func TestServeHealth(t *testing.T) {
	h, _ := newTestHandler(t, Config{})
	rec := get(h, "/healthz", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "ok" || body["version"] == "" {
		t.Errorf("body = %v", body)
	}
	if _, err := uuid.Parse(rec.Header().Get(requestIDHeader)); err != nil {
		t.Errorf("request ID %q is not a UUID", rec.Header().Get(requestIDHeader))
	}
}

func TestServeKeepsClientRequestID(t *testing.T) {
	h, _ := newTestHandler(t, Config{})
	rec := get(h, "/healthz", http.Header{requestIDHeader: {"abc-123"}})
	if got := rec.Header().Get(requestIDHeader); got != "abc-123" {
		t.Errorf("request ID = %q, want client value", got)
	}
}

func TestServeGraph(t *testing.T) {
	h, _ := newTestHandler(t, Config{})

	tests := []struct {
		name        string
		target      string
		contentType string
		contains    string
		excludes    string
	}{
		{"dot", graphURL("path", "smile.conf"), "text/vnd.graphviz; charset=utf-8", `"nodeComponentsource" -> "nodeLevelwave";`, ""},
		{"omit levels", graphURL("path", "smile.conf", "omit_levels", "true"), "text/vnd.graphviz; charset=utf-8", `"nodeComponentsource" -> "nodeComponentframer";`, "nodeLevel"},
		{"json with set", graphURL("path", "smile.conf", "format", "json", "set", "inputfile=speech.wav"), "application/json", "speech.wav", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(h, tt.target, nil)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
			}
			if got := rec.Header().Get("Content-Type"); got != tt.contentType {
				t.Errorf("Content-Type = %q, want %q", got, tt.contentType)
			}
			if !strings.Contains(rec.Body.String(), tt.contains) {
				t.Errorf("body missing %q:\n%s", tt.contains, rec.Body)
			}
			if tt.excludes != "" && strings.Contains(rec.Body.String(), tt.excludes) {
				t.Errorf("body contains %q:\n%s", tt.excludes, rec.Body)
			}
			if rec.Header().Get(cacheStatusHeader) != "" {
				t.Error("native formats should not report cache status")
			}
		})
	}
}

func TestServeGraphConfigDefaults(t *testing.T) {
	h, _ := newTestHandler(t, Config{Format: "json", Options: map[string]string{"inputfile": "cfg.wav"}})
	rec := get(h, graphURL("path", "smile.conf"), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	if !strings.Contains(rec.Body.String(), "cfg.wav") {
		t.Errorf("config defaults not applied:\n%s", rec.Body)
	}
}

func TestServeGraphEmbeddedCached(t *testing.T) {
	h, _ := newTestHandler(t, Config{Engine: "embedded"})
	target := graphURL("path", "smile.conf", "format", "svg")

	first := get(h, target, nil)
	if first.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", first.Code, first.Body)
	}
	if got := first.Header().Get("Content-Type"); got != "image/svg+xml" {
		t.Errorf("Content-Type = %q", got)
	}
	if got := first.Header().Get(cacheStatusHeader); got != "miss" {
		t.Errorf("first %s = %q, want miss", cacheStatusHeader, got)
	}

	second := get(h, target, nil)
	if got := second.Header().Get(cacheStatusHeader); got != "hit" {
		t.Errorf("second %s = %q, want hit", cacheStatusHeader, got)
	}
	if second.Body.String() != first.Body.String() {
		t.Error("cached body differs from rendered body")
	}
}

func TestServeGraphErrors(t *testing.T) {
	h, root := newTestHandler(t, Config{Tool: filepath.Join(t.TempDir(), "no-such-dot")})

	tests := []struct {
		name   string
		target string
		status int
		code   errors.Code
	}{
		{"no path", "/graph", http.StatusBadRequest, errors.ErrCodeInvalidPath},
		{"traversal", graphURL("path", "../smile.conf"), http.StatusBadRequest, errors.ErrCodeInvalidPath},
		{"absolute", graphURL("path", filepath.Join(root, "smile.conf")), http.StatusBadRequest, errors.ErrCodeInvalidPath},
		{"missing", graphURL("path", "nope.conf"), http.StatusNotFound, errors.ErrCodeFileNotFound},
		{"invalid config", graphURL("path", "nested/broken.conf"), http.StatusBadRequest, errors.ErrCodeInvalidConfig},
		{"cyclic include", graphURL("path", "nested/loop.conf"), http.StatusBadRequest, errors.ErrCodeInvalidConfig},
		{"include outside root", graphURL("path", "nested/escape.conf"), http.StatusBadRequest, errors.ErrCodeInvalidPath},
		{"bad omit_levels", graphURL("path", "smile.conf", "omit_levels", "maybe"), http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"bad set", graphURL("path", "smile.conf", "set", "novalue"), http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"bad format", graphURL("path", "smile.conf", "format", "png -o x"), http.StatusBadRequest, errors.ErrCodeInvalidFormat},
		{"missing tool", graphURL("path", "smile.conf", "format", "png"), http.StatusServiceUnavailable, errors.ErrCodeToolNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(h, tt.target, nil)
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.status, rec.Body)
			}
			var body errorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode error body: %v", err)
			}
			if body.Code != tt.code {
				t.Errorf("code = %s, want %s", body.Code, tt.code)
			}
			if body.Message == "" || strings.Contains(body.Message, string(tt.code)) {
				t.Errorf("message = %q", body.Message)
			}
			if strings.Contains(body.Message, root) {
				t.Errorf("message %q exposes the server root %s", body.Message, root)
			}
		})
	}
}

func TestRelativeMessage(t *testing.T) {
	root := filepath.Join(string(filepath.Separator), "srv", "conf")
	sep := string(filepath.Separator)
	tests := []struct {
		msg  string
		want string
	}{
		{"parse " + root + sep + "a.conf: bad", "parse a.conf: bad"},
		{root + sep + "nested" + sep + "b.conf:3: malformed property", "nested" + sep + "b.conf:3: malformed property"},
		{"stat " + root + ": denied", "stat .: denied"},
		{"no paths here", "no paths here"},
	}
	for _, tt := range tests {
		if got := relativeMessage(root, tt.msg); got != tt.want {
			t.Errorf("relativeMessage(%q) = %q, want %q", tt.msg, got, tt.want)
		}
	}
}

func TestServeNotFoundRoute(t *testing.T) {
	h, _ := newTestHandler(t, Config{})
	if rec := get(h, "/nope", nil); rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

type recordingServerHooks struct {
	observability.NoopServerHooks
	mu       sync.Mutex
	requests []string
	statuses []int
}

func (h *recordingServerHooks) OnRequest(_ context.Context, method, path string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.requests = append(h.requests, method+" "+path)
}

func (h *recordingServerHooks) OnResponse(_ context.Context, _, _ string, status int, _ time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.statuses = append(h.statuses, status)
}

func TestServeHooks(t *testing.T) {
	hooks := &recordingServerHooks{}
	observability.SetServerHooks(hooks)
	t.Cleanup(observability.Reset)

	h, _ := newTestHandler(t, Config{})
	get(h, "/healthz", nil)
	get(h, graphURL("path", "nope.conf"), nil)

	if want := []string{"GET /healthz", "GET /graph"}; strings.Join(hooks.requests, ",") != strings.Join(want, ",") {
		t.Errorf("requests = %v, want %v", hooks.requests, want)
	}
	if len(hooks.statuses) != 2 || hooks.statuses[0] != http.StatusOK || hooks.statuses[1] != http.StatusNotFound {
		t.Errorf("statuses = %v, want [200 404]", hooks.statuses)
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{errors.New(errors.ErrCodeTimeout, "slow"), http.StatusGatewayTimeout},
		{errors.New(errors.ErrCodeRenderFailed, "boom"), http.StatusInternalServerError},
		{errors.Wrap(errors.ErrCodeInternal, context.Canceled, "gone"), 499},
		{context.DeadlineExceeded, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := httpStatus(tt.err); got != tt.want {
			t.Errorf("httpStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestContentType(t *testing.T) {
	tests := map[string]string{
		"dot":       "text/vnd.graphviz; charset=utf-8",
		"json":      "application/json",
		"svg":       "image/svg+xml",
		"svg:cairo": "image/svg+xml",
		"png":       "image/png",
		"zzz":       "application/octet-stream",
	}
	for format, want := range tests {
		if got := contentType(format); got != want {
			t.Errorf("contentType(%q) = %q, want %q", format, got, want)
		}
	}
}
