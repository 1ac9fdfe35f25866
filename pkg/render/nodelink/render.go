package nodelink

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-graphviz"
)

// Engine names accepted by [NewRenderer].
const (
	EngineExec     = "exec"
	EngineEmbedded = "embedded"
)

// DefaultTool is the layout program used by [ExecRenderer].
const DefaultTool = "dot"

// DefaultTimeout bounds a single run of the external layout program.
const DefaultTimeout = 30 * time.Second

var (
	// ErrToolNotFound is returned when the external layout program is not on PATH.
	ErrToolNotFound = errors.New("layout tool not found")
	// ErrUnsupportedFormat is returned for output formats an engine cannot produce.
	ErrUnsupportedFormat = errors.New("unsupported output format")
	// ErrTimeout is returned when the layout program exceeds its time limit.
	ErrTimeout = errors.New("layout tool timed out")
)

// Renderer turns DOT source into an image of the given format.
type Renderer interface {
	Render(ctx context.Context, dot, format string) ([]byte, error)
	// Engine names the rendering engine, used in cache keys and logs.
	Engine() string
}

// NewRenderer returns the renderer for engine. An empty engine selects
// [EngineExec]. tool and timeout only apply to the exec engine.
func NewRenderer(engine, tool string, timeout time.Duration) (Renderer, error) {
	switch strings.ToLower(engine) {
	case "", EngineExec:
		return &ExecRenderer{Tool: tool, Timeout: timeout}, nil
	case EngineEmbedded:
		return EmbeddedRenderer{}, nil
	default:
		return nil, fmt.Errorf("unknown engine %q (want %s or %s)", engine, EngineExec, EngineEmbedded)
	}
}

var formatRe = regexp.MustCompile(`^[a-z0-9_]+(:[a-z0-9_]+)*$`)

// ValidFormat reports whether format looks like a Graphviz -T argument,
// such as "png" or "svg:cairo".
func ValidFormat(format string) bool {
	return formatRe.MatchString(format)
}

// =============================================================================
// External layout program
// =============================================================================

// ExecRenderer pipes DOT source through an external Graphviz program.
type ExecRenderer struct {
	// Tool is the program name or path. Defaults to [DefaultTool].
	Tool string
	// Timeout bounds each run. Zero means [DefaultTimeout].
	Timeout time.Duration
}

func (r *ExecRenderer) Engine() string { return EngineExec }

func (r *ExecRenderer) tool() string {
	if r.Tool == "" {
		return DefaultTool
	}
	return r.Tool
}

// Available resolves the layout program on PATH and returns its location.
func (r *ExecRenderer) Available() (string, error) {
	path, err := exec.LookPath(r.tool())
	if err != nil {
		return "", fmt.Errorf("%w: %s: for output formats other than dot, graphviz must be installed and on the path", ErrToolNotFound, r.tool())
	}
	return path, nil
}

// Render runs "<tool> -T<format>" with dot on stdin and returns stdout.
func (r *ExecRenderer) Render(ctx context.Context, dot, format string) ([]byte, error) {
	if !ValidFormat(format) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	path, err := r.Available()
	if err != nil {
		return nil, err
	}

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, "-T"+format)
	cmd.Stdin = strings.NewReader(dot)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s", ErrTimeout, timeout)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%s -T%s: %w: %s", r.tool(), format, err, msg)
		}
		return nil, fmt.Errorf("%s -T%s: %w", r.tool(), format, err)
	}
	return stdout.Bytes(), nil
}

// =============================================================================
// Embedded Graphviz
// =============================================================================

// EmbeddedRenderer lays out graphs in-process with go-graphviz.
// It supports svg, png and jpg (also spelled jpeg) and needs no external
// program.
type EmbeddedRenderer struct{}

func (EmbeddedRenderer) Engine() string { return EngineEmbedded }

var embeddedFormats = map[string]graphviz.Format{
	"svg":  graphviz.SVG,
	"png":  graphviz.PNG,
	"jpg":  graphviz.JPG,
	"jpeg": graphviz.JPG,
}

// EmbeddedFormats lists the formats [EmbeddedRenderer] can produce.
func EmbeddedFormats() []string { return []string{"svg", "png", "jpg", "jpeg"} }

func (EmbeddedRenderer) Render(ctx context.Context, dot, format string) ([]byte, error) {
	f, ok := embeddedFormats[format]
	if !ok {
		return nil, fmt.Errorf("%w: %q with the embedded engine (want one of %s)",
			ErrUnsupportedFormat, format, strings.Join(EmbeddedFormats(), ", "))
	}

	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, f, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	if f == graphviz.SVG {
		return normalizeViewBox(buf.Bytes()), nil
	}
	return buf.Bytes(), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox rewrites the root element so the SVG scales to its container.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	root := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" xmlns:xlink="http://www.w3.org/1999/xlink" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(root))
}
