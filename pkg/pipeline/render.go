package pipeline

import (
	"bytes"
	"context"
	stderrors "errors"
	"time"

	"github.com/matzehuels/conf2dot/pkg/dataflow"
	"github.com/matzehuels/conf2dot/pkg/errors"
	pkgio "github.com/matzehuels/conf2dot/pkg/io"
	"github.com/matzehuels/conf2dot/pkg/observability"
	"github.com/matzehuels/conf2dot/pkg/render/nodelink"
	"github.com/matzehuels/conf2dot/pkg/smileconf"
)

// RenderNative produces the dot or json output. It needs no engine.
func RenderNative(doc *smileconf.Document, g *dataflow.Graph, dot, format string) ([]byte, error) {
	switch format {
	case FormatDOT:
		return []byte(dot), nil
	case FormatJSON:
		var buf bytes.Buffer
		if err := pkgio.WriteJSON(doc, g, &buf); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "export json")
		}
		return buf.Bytes(), nil
	default:
		return nil, errors.New(errors.ErrCodeInvalidFormat, "%q is not a native format", format)
	}
}

// RenderImage lays out dot with r and maps engine failures to coded errors.
func RenderImage(ctx context.Context, r nodelink.Renderer, dot, format string) ([]byte, error) {
	hooks := observability.Pipeline()
	hooks.OnRenderStart(ctx, r.Engine(), format)
	start := time.Now()

	data, err := r.Render(ctx, dot, format)
	hooks.OnRenderComplete(ctx, r.Engine(), format, len(data), time.Since(start), err)
	if err != nil {
		return nil, renderError(err, r.Engine(), format)
	}
	return data, nil
}

func renderError(err error, engine, format string) error {
	switch {
	case stderrors.Is(err, nodelink.ErrToolNotFound):
		return errors.Wrap(errors.ErrCodeToolNotFound, err, "render %s", format)
	case stderrors.Is(err, nodelink.ErrTimeout):
		return errors.Wrap(errors.ErrCodeTimeout, err, "render %s", format)
	case stderrors.Is(err, nodelink.ErrUnsupportedFormat):
		return errors.Wrap(errors.ErrCodeInvalidFormat, err, "render %s", format)
	case stderrors.Is(err, context.Canceled):
		return err
	default:
		return errors.Wrap(errors.ErrCodeRenderFailed, err, "render %s with %s engine", format, engine)
	}
}
