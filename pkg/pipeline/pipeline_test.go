package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/conf2dot/pkg/cache"
	"github.com/matzehuels/conf2dot/pkg/errors"
	"github.com/matzehuels/conf2dot/pkg/observability"
	"github.com/matzehuels/conf2dot/pkg/render/nodelink"
)

const scenarioConf = `[componentInstances:cComponentManager]
instance[source].type = cWaveSource
instance[framer].type = cFramer

[source:cWaveSource]
writer.dmLevel = wave
filename = \cm[inputfile(I){input.wav}:file to read]

[framer:cFramer]
reader.dmLevel = wave
writer.dmLevel = frames
`

func writeConf(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "smile.conf")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

type fakeRenderer struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeRenderer) Engine() string { return "fake" }

func (f *fakeRenderer) Render(_ context.Context, dot, format string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []byte(fmt.Sprintf("%s:%d", format, len(dot))), nil
}

func runnerWith(c cache.Cache, r nodelink.Renderer) *Runner {
	runner := NewRunner(c, log.New(os.Stderr))
	runner.NewRenderer = func(string, string, time.Duration) (nodelink.Renderer, error) { return r, nil }
	return runner
}

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		format  string
		engine  string
		wantErr bool
	}{
		{"dot", nodelink.EngineExec, false},
		{"json", nodelink.EngineEmbedded, false},
		{"png", nodelink.EngineExec, false},
		{"svg:cairo", nodelink.EngineExec, false},
		{"pdf", nodelink.EngineExec, false},
		{"pdf", nodelink.EngineEmbedded, true},
		{"svg", nodelink.EngineEmbedded, false},
		{"jpeg", nodelink.EngineEmbedded, false},
		{"-Kneato", nodelink.EngineExec, true},
		{"", nodelink.EngineExec, true},
	}

	for _, tt := range tests {
		err := ValidateFormat(tt.format, tt.engine)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateFormat(%q, %q) error = %v, wantErr %v", tt.format, tt.engine, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, errors.ErrCodeInvalidFormat) {
			t.Errorf("ValidateFormat(%q, %q) code = %s", tt.format, tt.engine, errors.GetCode(err))
		}
	}
}

func TestValidateEngine(t *testing.T) {
	for _, engine := range []string{"exec", "embedded"} {
		if err := ValidateEngine(engine); err != nil {
			t.Errorf("ValidateEngine(%q) = %v", engine, err)
		}
	}
	if err := ValidateEngine("neato"); !errors.Is(err, errors.ErrCodeInvalidEngine) {
		t.Errorf("ValidateEngine(neato) = %v, want INVALID_ENGINE", err)
	}
}

func TestOptionsDefaults(t *testing.T) {
	opts := Options{Input: "x.conf", Format: " PNG ", Engine: "Embedded"}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("ValidateAndSetDefaults: %v", err)
	}
	if opts.Format != "png" || opts.Engine != "embedded" {
		t.Errorf("format=%q engine=%q, want lowercased", opts.Format, opts.Engine)
	}
	if opts.Timeout != nodelink.DefaultTimeout {
		t.Errorf("Timeout = %s", opts.Timeout)
	}
	if opts.Logger == nil {
		t.Error("Logger not defaulted")
	}

	empty := Options{Input: "x.conf"}
	if err := empty.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	if empty.Format != FormatDOT || empty.Engine != nodelink.EngineExec {
		t.Errorf("defaults format=%q engine=%q", empty.Format, empty.Engine)
	}
	if empty.NeedsEngine() {
		t.Error("dot output should not need an engine")
	}
}

func TestOptionsRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		code errors.Code
	}{
		{"no input", Options{}, errors.ErrCodeInvalidInput},
		{"bad engine", Options{Input: "x", Engine: "cairo"}, errors.ErrCodeInvalidEngine},
		{"bad format", Options{Input: "x", Format: "p n g"}, errors.ErrCodeInvalidFormat},
		{"bad override", Options{Input: "x", Overrides: map[string]string{"a b": "1"}}, errors.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.ValidateAndSetDefaults()
			if !errors.Is(err, tt.code) {
				t.Errorf("error = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestExecuteDOT(t *testing.T) {
	runner := NewRunner(nil, nil)
	result, err := runner.Execute(context.Background(), Options{Input: writeConf(t, scenarioConf)})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if string(result.Output) != result.DOT {
		t.Error("dot output should be the generated DOT source")
	}
	for _, edge := range []string{
		`"nodeComponentsource" -> "nodeLevelwave";`,
		`"nodeLevelwave" -> "nodeComponentframer";`,
		`"nodeComponentframer" -> "nodeLevelframes";`,
	} {
		if !strings.Contains(result.DOT, edge) {
			t.Errorf("DOT missing %s", edge)
		}
	}
	if result.Stats.Components != 2 || result.Stats.Levels != 2 || result.Stats.Sections != 3 {
		t.Errorf("Stats = %+v", result.Stats)
	}
	if result.CacheHit {
		t.Error("native output should never be a cache hit")
	}
}

func TestExecuteOmitLevels(t *testing.T) {
	result, err := NewRunner(nil, nil).Execute(context.Background(), Options{
		Input:      writeConf(t, scenarioConf),
		OmitLevels: true,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if strings.Count(result.DOT, "->") != 1 || strings.Contains(result.DOT, "nodeLevel") {
		t.Errorf("unexpected DOT:\n%s", result.DOT)
	}
}

func TestExecuteJSON(t *testing.T) {
	result, err := NewRunner(nil, nil).Execute(context.Background(), Options{
		Input:     writeConf(t, scenarioConf),
		Format:    "JSON",
		Overrides: map[string]string{"inputfile": "speech.wav"},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	var out struct {
		Sections []struct {
			Name       string `json:"name"`
			Properties []struct {
				Name  string `json:"name"`
				Value any    `json:"value"`
			} `json:"properties"`
		} `json:"sections"`
	}
	if err := json.Unmarshal(result.Output, &out); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if got := out.Sections[1].Properties[1].Value; got != "speech.wav" {
		t.Errorf("override not applied, filename = %v", got)
	}
}

func TestExecuteErrorCodes(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name  string
		input string
		root  string
		code  errors.Code
	}{
		{"missing input", filepath.Join(dir, "missing.conf"), "", errors.ErrCodeFileNotFound},
		{"property before section", writeConf(t, "a = b\n"), "", errors.ErrCodeInvalidConfig},
		{"unresolved option", writeConf(t, "[s:t]\nx = \\cm[nodefault]\n"), "", errors.ErrCodeInvalidConfig},
		{"input outside root", writeConf(t, "[s:t]\n"), dir, errors.ErrCodeInvalidPath},
		{"include outside root", filepath.Join(dir, "escape.conf"), dir, errors.ErrCodeInvalidPath},
	}
	if err := os.WriteFile(filepath.Join(dir, "escape.conf"), []byte("\\{../other.conf}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRunner(nil, nil).Execute(context.Background(), Options{Input: tt.input, Root: tt.root})
			if !errors.Is(err, tt.code) {
				t.Errorf("error = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestExecuteToolMissingFailsBeforeParse(t *testing.T) {
	// The input does not exist either; the tool check must win.
	_, err := NewRunner(nil, nil).Execute(context.Background(), Options{
		Input:  filepath.Join(t.TempDir(), "missing.conf"),
		Format: "png",
		Tool:   "conf2dot-no-such-layout-tool",
	})
	if !errors.Is(err, errors.ErrCodeToolNotFound) {
		t.Errorf("error = %v, want TOOL_NOT_FOUND", err)
	}
}

func TestExecuteImageCaching(t *testing.T) {
	c, err := cache.NewMemoryCache(16)
	if err != nil {
		t.Fatal(err)
	}
	fake := &fakeRenderer{}
	runner := runnerWith(c, fake)
	opts := Options{Input: writeConf(t, scenarioConf), Format: "png", Engine: "embedded"}

	first, err := runner.Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("first Execute: %v", err)
	}
	second, err := runner.Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("second Execute: %v", err)
	}

	if first.CacheHit || !second.CacheHit {
		t.Errorf("CacheHit = %v, %v, want false, true", first.CacheHit, second.CacheHit)
	}
	if string(first.Output) != string(second.Output) {
		t.Error("cached output differs from rendered output")
	}
	if fake.calls != 1 {
		t.Errorf("renderer called %d times, want 1", fake.calls)
	}

	opts.NoCache = true
	if _, err := runner.Execute(context.Background(), opts); err != nil {
		t.Fatal(err)
	}
	if fake.calls != 2 {
		t.Errorf("NoCache should bypass the cache, calls = %d", fake.calls)
	}

	opts.NoCache = false
	opts.OmitLevels = true
	if res, _ := runner.Execute(context.Background(), opts); res == nil || res.CacheHit {
		t.Error("different DOT source must not hit the cache")
	}
}

func TestExecuteImageCachingPerTool(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not supported on windows")
	}
	dir := t.TempDir()
	for _, name := range []string{"toola", "toolb"} {
		script := "#!/bin/sh\ncat >/dev/null\necho " + name + "\n"
		if err := os.WriteFile(filepath.Join(dir, name), []byte(script), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))

	c, err := cache.NewMemoryCache(16)
	if err != nil {
		t.Fatal(err)
	}
	runner := NewRunner(c, log.New(os.Stderr))
	input := writeConf(t, scenarioConf)

	tests := []struct {
		tool     string
		want     string
		cacheHit bool
	}{
		{"toola", "toola", false},
		{"toolb", "toolb", false},
		{"toola", "toola", true},
		{"toolb", "toolb", true},
	}
	for i, tt := range tests {
		opts := Options{Input: input, Format: "png", Engine: nodelink.EngineExec, Tool: tt.tool}
		res, err := runner.Execute(context.Background(), opts)
		if err != nil {
			t.Fatalf("step %d (%s): %v", i, tt.tool, err)
		}
		if got := strings.TrimSpace(string(res.Output)); got != tt.want {
			t.Errorf("step %d (%s): output = %q, want %q", i, tt.tool, got, tt.want)
		}
		if res.CacheHit != tt.cacheHit {
			t.Errorf("step %d (%s): CacheHit = %v, want %v", i, tt.tool, res.CacheHit, tt.cacheHit)
		}
	}
}

func TestExecuteRenderErrorCodes(t *testing.T) {
	tests := []struct {
		err  error
		code errors.Code
	}{
		{nodelink.ErrTimeout, errors.ErrCodeTimeout},
		{nodelink.ErrToolNotFound, errors.ErrCodeToolNotFound},
		{fmt.Errorf("%w: pdf", nodelink.ErrUnsupportedFormat), errors.ErrCodeInvalidFormat},
		{fmt.Errorf("dot -Tpng: exit status 1"), errors.ErrCodeRenderFailed},
	}
	for _, tt := range tests {
		runner := runnerWith(nil, &fakeRenderer{err: tt.err})
		_, err := runner.Execute(context.Background(), Options{
			Input:  writeConf(t, scenarioConf),
			Format: "svg",
			Engine: "embedded",
		})
		if !errors.Is(err, tt.code) {
			t.Errorf("renderer error %v: got %v, want code %s", tt.err, err, tt.code)
		}
	}
}

type countingHooks struct {
	observability.NoopPipelineHooks
	observability.NoopCacheHooks
	mu                      sync.Mutex
	parses, graphs, renders int
	hits, misses, sets      int
}

func (h *countingHooks) OnParseComplete(context.Context, string, int, time.Duration, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.parses++
}

func (h *countingHooks) OnGraphComplete(context.Context, int, int, int, time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.graphs++
}

func (h *countingHooks) OnRenderComplete(context.Context, string, string, int, time.Duration, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.renders++
}

func (h *countingHooks) OnCacheHit(context.Context, string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hits++
}

func (h *countingHooks) OnCacheMiss(context.Context, string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.misses++
}

func (h *countingHooks) OnCacheSet(context.Context, string, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sets++
}

func TestExecuteEmitsHooks(t *testing.T) {
	hooks := &countingHooks{}
	observability.SetPipelineHooks(hooks)
	observability.SetCacheHooks(hooks)
	t.Cleanup(observability.Reset)

	c, _ := cache.NewMemoryCache(4)
	runner := runnerWith(c, &fakeRenderer{})
	opts := Options{Input: writeConf(t, scenarioConf), Format: "svg", Engine: "embedded"}
	for i := 0; i < 2; i++ {
		if _, err := runner.Execute(context.Background(), opts); err != nil {
			t.Fatal(err)
		}
	}

	if hooks.parses != 2 || hooks.graphs != 2 || hooks.renders != 1 {
		t.Errorf("parses=%d graphs=%d renders=%d", hooks.parses, hooks.graphs, hooks.renders)
	}
	if hooks.misses != 1 || hooks.hits != 1 || hooks.sets != 1 {
		t.Errorf("misses=%d hits=%d sets=%d", hooks.misses, hooks.hits, hooks.sets)
	}
}
