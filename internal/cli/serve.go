package cli

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/matzehuels/conf2dot/pkg/buildinfo"
	"github.com/matzehuels/conf2dot/pkg/cache"
	"github.com/matzehuels/conf2dot/pkg/errors"
	"github.com/matzehuels/conf2dot/pkg/observability"
	"github.com/matzehuels/conf2dot/pkg/pipeline"
)

const (
	defaultAddr       = "localhost:8080"
	requestIDHeader   = "X-Request-ID"
	cacheStatusHeader = "X-Cache"
	shutdownTimeout   = 5 * time.Second
)

// serveCommand creates the serve command, an HTTP front end for conversions
// of configuration files below a root directory.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr      string
		root      string
		cacheSize int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve data flow graphs over HTTP",
		Long: `Serve converts configuration files below --root on request.

  GET /healthz                          status and version
  GET /graph?path=<file>&format=svg     graph of <file>, relative to --root

/graph also accepts omit_levels=true and repeated set=name=value
parameters. Rendered images are kept in an in-memory cache, or in Redis
when redis_url is configured.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			absRoot, err := filepath.Abs(root)
			if err != nil {
				return err
			}

			runner := pipeline.NewRunner(c.serveCache(ctx, cacheSize), c.Logger)
			defer runner.Close()

			srv := newServer(addr, newGraphHandler(absRoot, runner, c.cfg, c.Logger))
			errc := make(chan error, 1)
			go func() { errc <- srv.Start() }()
			c.Logger.Info("serving", "addr", addr, "root", absRoot)

			select {
			case err := <-errc:
				return err
			case <-ctx.Done():
			}

			c.Logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", defaultAddr, "listen address")
	cmd.Flags().StringVar(&root, "root", ".", "directory that request paths are resolved against")
	cmd.Flags().IntVar(&cacheSize, "cache-size", cache.DefaultMemoryEntries, "maximum number of images held in memory")
	return cmd
}

// serveCache prefers Redis so several servers can share rendered images,
// then an in-memory LRU.
func (c *CLI) serveCache(ctx context.Context, size int) cache.Cache {
	if c.cfg.NoCache {
		return cache.NewNullCache()
	}
	if c.cfg.RedisURL != "" {
		rc, err := cache.NewRedisCache(ctx, c.cfg.RedisURL)
		if err == nil {
			return rc
		}
		c.Logger.Warn("redis cache unavailable, using memory cache", "error", err)
	}
	mc, err := cache.NewMemoryCache(size)
	if err != nil {
		c.Logger.Warn("memory cache unavailable", "error", err)
		return cache.NewNullCache()
	}
	return mc
}

// =============================================================================
// Server
// =============================================================================

type server struct {
	httpServer *http.Server
}

func newServer(addr string, handler http.Handler) *server {
	return &server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

func (s *server) Start() error {
	if err := s.httpServer.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// =============================================================================
// Handlers
// =============================================================================

type graphHandler struct {
	root   string
	runner *pipeline.Runner
	cfg    Config
	logger *log.Logger
}

// newGraphHandler returns the router for the HTTP API. Request paths are
// resolved against root; cfg supplies the defaults of every request.
func newGraphHandler(root string, runner *pipeline.Runner, cfg Config, logger *log.Logger) http.Handler {
	h := &graphHandler{root: root, runner: runner, cfg: cfg, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(h.requestID)
	r.Use(h.observe)
	r.Get("/healthz", h.health)
	r.Get("/graph", h.graph)
	return r
}

// requestID tags each request with an ID, taken from the client when
// present, and attaches a logger carrying it.
func (h *graphHandler) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		ctx := withLogger(r.Context(), h.logger.With("request_id", id))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *graphHandler) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hooks := observability.Server()
		start := time.Now()
		hooks.OnRequest(r.Context(), r.Method, r.URL.Path)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		hooks.OnResponse(r.Context(), r.Method, r.URL.Path, status, time.Since(start))
	})
}

func (h *graphHandler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": buildinfo.Version,
	})
}

func (h *graphHandler) graph(w http.ResponseWriter, r *http.Request) {
	opts, err := h.options(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	result, err := h.runner.Execute(r.Context(), opts)
	if err != nil {
		loggerFromContext(r.Context()).Warn("conversion failed", "path", opts.Input, "error", err)
		h.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", contentType(opts.Format))
	if opts.NeedsEngine() {
		status := "miss"
		if result.CacheHit {
			status = "hit"
		}
		w.Header().Set(cacheStatusHeader, status)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Output)
}

// options builds pipeline options from the query, using the config for
// anything the query leaves out.
func (h *graphHandler) options(r *http.Request) (pipeline.Options, error) {
	q := r.URL.Query()

	path := q.Get("path")
	if err := errors.ValidatePath(path); err != nil {
		return pipeline.Options{}, err
	}

	omit := h.cfg.OmitLevels
	if v := q.Get("omit_levels"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return pipeline.Options{}, errors.New(errors.ErrCodeInvalidInput, "invalid omit_levels: %q", v)
		}
		omit = b
	}

	set := make(map[string]string)
	for _, kv := range q["set"] {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			return pipeline.Options{}, errors.New(errors.ErrCodeInvalidInput, "invalid set parameter %q (want name=value)", kv)
		}
		set[name] = value
	}

	format := q.Get("format")
	if format == "" {
		format = h.cfg.Format
	}

	return pipeline.Options{
		Input:      filepath.Join(h.root, filepath.FromSlash(path)),
		Root:       h.root,
		Overrides:  h.cfg.overrides(set),
		Format:     format,
		OmitLevels: omit,
		Engine:     h.cfg.Engine,
		Tool:       h.cfg.Tool,
		Timeout:    h.cfg.Timeout,
		NoCache:    h.cfg.NoCache,
		Logger:     loggerFromContext(r.Context()),
	}, nil
}

// =============================================================================
// Responses
// =============================================================================

type errorResponse struct {
	Code    errors.Code `json:"code"`
	Message string      `json:"message"`
}

// writeError responds with the code and message of err. File paths in the
// message are made relative to the served root.
func (h *graphHandler) writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	writeJSON(w, httpStatus(err), errorResponse{Code: code, Message: relativeMessage(h.root, errors.UserMessage(err))})
}

func relativeMessage(root, msg string) string {
	msg = strings.ReplaceAll(msg, root+string(filepath.Separator), "")
	return strings.ReplaceAll(msg, root, ".")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// httpStatus maps error codes to response statuses.
func httpStatus(err error) int {
	if stderrors.Is(err, context.Canceled) {
		return 499
	}
	switch errors.GetCode(err) {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidConfig, errors.ErrCodeInvalidFormat,
		errors.ErrCodeInvalidEngine, errors.ErrCodeInvalidPath:
		return http.StatusBadRequest
	case errors.ErrCodeFileNotFound:
		return http.StatusNotFound
	case errors.ErrCodeToolNotFound:
		return http.StatusServiceUnavailable
	case errors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// contentType returns the media type of a pipeline format. Renderer
// variants such as "svg:cairo" use the type of their base format.
func contentType(format string) string {
	base, _, _ := strings.Cut(strings.ToLower(format), ":")
	switch base {
	case pipeline.FormatDOT:
		return "text/vnd.graphviz; charset=utf-8"
	case pipeline.FormatJSON:
		return "application/json"
	case "svg":
		return "image/svg+xml"
	}
	if t := mime.TypeByExtension("." + base); t != "" {
		return t
	}
	return "application/octet-stream"
}
