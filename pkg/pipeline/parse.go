package pipeline

import (
	"context"
	stderrors "errors"
	"io/fs"
	"time"

	"github.com/matzehuels/conf2dot/pkg/dataflow"
	"github.com/matzehuels/conf2dot/pkg/errors"
	"github.com/matzehuels/conf2dot/pkg/observability"
	"github.com/matzehuels/conf2dot/pkg/smileconf"
)

// Parse reads the input configuration and maps failures to coded errors:
// FILE_NOT_FOUND when the top-level file is missing, INVALID_CONFIG for
// grammar, macro and include errors, INVALID_PATH for files outside Root.
func Parse(ctx context.Context, opts Options) (*smileconf.Document, error) {
	hooks := observability.Pipeline()
	hooks.OnParseStart(ctx, opts.Input)
	start := time.Now()

	parseOpts := []smileconf.ParseOption{smileconf.WithLogger(opts.Logger)}
	if opts.Root != "" {
		parseOpts = append(parseOpts, smileconf.WithRoot(opts.Root))
	}
	doc, err := smileconf.Parse(opts.Input, opts.Overrides, parseOpts...)
	sections := 0
	if doc != nil {
		sections = doc.Len()
	}
	hooks.OnParseComplete(ctx, opts.Input, sections, time.Since(start), err)

	if err != nil {
		var perr *smileconf.ParseError
		switch {
		case stderrors.Is(err, smileconf.ErrOutsideRoot):
			return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "parse %s", opts.Input)
		case stderrors.As(err, &perr):
			return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse %s", opts.Input)
		case stderrors.Is(err, fs.ErrNotExist):
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "read %s", opts.Input)
		default:
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read %s", opts.Input)
		}
	}
	return doc, nil
}

// BuildGraph derives the data flow graph of doc.
func BuildGraph(ctx context.Context, doc *smileconf.Document, opts Options) *dataflow.Graph {
	start := time.Now()
	g := dataflow.Build(doc, dataflow.WithLogger(opts.Logger))
	observability.Pipeline().OnGraphComplete(ctx, len(g.Components), len(g.Levels), len(g.Warnings), time.Since(start))
	return g
}
