// Package pipeline runs the parse → graph → render conversion shared by the
// CLI and the HTTP server.
//
// # Stages
//
//  1. Parse: read the configuration with its includes and macro overrides
//  2. Graph: classify ".dmLevel" properties into reads and writes
//  3. Render: emit DOT, JSON, or an image produced by a Graphviz engine
//
// Images are cached by engine, format and DOT source, so re-rendering an
// unchanged configuration is a cache lookup.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Input:  "MFCC12_0_D_A.conf",
//	    Format: "png",
//	})
//	if err != nil {
//	    return err
//	}
//	os.WriteFile("mfcc.png", result.Output, 0o644)
//
// Failures carry a [github.com/matzehuels/conf2dot/pkg/errors] code such as
// INVALID_CONFIG or TOOL_NOT_FOUND.
package pipeline

import (
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/conf2dot/pkg/dataflow"
	"github.com/matzehuels/conf2dot/pkg/errors"
	"github.com/matzehuels/conf2dot/pkg/render/nodelink"
	"github.com/matzehuels/conf2dot/pkg/smileconf"
)

// =============================================================================
// Default Values
// =============================================================================

// Native output formats, produced without a layout engine.
const (
	FormatDOT  = "dot"
	FormatJSON = "json"
)

// DefaultFormat is the output format used when none is given.
const DefaultFormat = FormatDOT

// DefaultEngine renders images with the external Graphviz program.
const DefaultEngine = nodelink.EngineExec

// IsNative reports whether format is produced without a layout engine.
func IsNative(format string) bool {
	return format == FormatDOT || format == FormatJSON
}

// =============================================================================
// Options
// =============================================================================

// Options configures one conversion.
type Options struct {
	// Input is the path of the top-level configuration file.
	Input string `json:"input"`
	// Root, when set, confines the input and its includes to that directory.
	Root string `json:"root,omitempty"`
	// Overrides supplies command-line option values by long name.
	Overrides map[string]string `json:"overrides,omitempty"`
	// Format is "dot", "json", or any image format of the engine. Case-insensitive.
	Format string `json:"format,omitempty"`
	// OmitLevels connects components directly instead of through levels.
	OmitLevels bool `json:"omit_levels,omitempty"`
	// Engine is "exec" or "embedded".
	Engine string `json:"engine,omitempty"`
	// Tool overrides the external layout program.
	Tool string `json:"tool,omitempty"`
	// Timeout bounds the external layout program.
	Timeout time.Duration `json:"timeout,omitempty"`
	// NoCache skips the artifact cache for reads and writes.
	NoCache bool `json:"no_cache,omitempty"`

	Logger *log.Logger `json:"-"`

	validated bool
}

// ValidateAndSetDefaults normalizes the format and engine and checks the
// remaining fields. It is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.Input == "" {
		return errors.New(errors.ErrCodeInvalidInput, "input path is required")
	}

	o.Format = strings.ToLower(strings.TrimSpace(o.Format))
	if o.Format == "" {
		o.Format = DefaultFormat
	}
	o.Engine = strings.ToLower(strings.TrimSpace(o.Engine))
	if o.Engine == "" {
		o.Engine = DefaultEngine
	}
	if o.Timeout <= 0 {
		o.Timeout = nodelink.DefaultTimeout
	}
	if o.Logger == nil {
		o.Logger = log.New(io.Discard)
	}

	if err := ValidateEngine(o.Engine); err != nil {
		return err
	}
	if err := ValidateFormat(o.Format, o.Engine); err != nil {
		return err
	}
	for name := range o.Overrides {
		if err := errors.ValidateOverrideName(name); err != nil {
			return err
		}
	}

	o.validated = true
	return nil
}

// NeedsEngine reports whether the format requires a layout engine.
func (o *Options) NeedsEngine() bool {
	return !IsNative(strings.ToLower(o.Format))
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateEngine checks that engine names a known renderer.
func ValidateEngine(engine string) error {
	switch engine {
	case nodelink.EngineExec, nodelink.EngineEmbedded:
		return nil
	}
	return errors.New(errors.ErrCodeInvalidEngine,
		"invalid engine: %q (must be one of: %s, %s)", engine, nodelink.EngineExec, nodelink.EngineEmbedded)
}

// ValidateFormat checks that format can be produced by engine.
func ValidateFormat(format, engine string) error {
	if IsNative(format) {
		return nil
	}
	if engine == nodelink.EngineEmbedded {
		for _, f := range nodelink.EmbeddedFormats() {
			if f == format {
				return nil
			}
		}
		return errors.New(errors.ErrCodeInvalidFormat,
			"invalid format: %q (embedded engine supports: dot, json, %s)",
			format, strings.Join(nodelink.EmbeddedFormats(), ", "))
	}
	if !nodelink.ValidFormat(format) {
		return errors.New(errors.ErrCodeInvalidFormat, "invalid format: %q", format)
	}
	return nil
}

// =============================================================================
// Results
// =============================================================================

// Result holds the outputs of a pipeline run.
type Result struct {
	Document *smileconf.Document
	Graph    *dataflow.Graph

	// DOT is the generated Graphviz source.
	DOT string

	// Output is the artifact in the requested format.
	Output []byte

	// CacheHit is set when Output came from the artifact cache.
	CacheHit bool

	Stats Stats
}

// Stats contains sizes and stage timings of a run.
type Stats struct {
	Sections   int
	Files      int
	Components int
	Levels     int
	Warnings   int
	ParseTime  time.Duration
	GraphTime  time.Duration
	RenderTime time.Duration
}
