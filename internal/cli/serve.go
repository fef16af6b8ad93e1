package cli

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/matzehuels/wafermap/pkg/buildinfo"
	"github.com/matzehuels/wafermap/pkg/cache"
	apperr "github.com/matzehuels/wafermap/pkg/errors"
	"github.com/matzehuels/wafermap/pkg/observability"
	"github.com/matzehuels/wafermap/pkg/pipeline"
)

const (
	// maxProblemBytes bounds request bodies.
	maxProblemBytes = 4 << 20

	defaultRequestTimeout = 60 * time.Second
	shutdownTimeout       = 10 * time.Second

	// redisKeyPrefix scopes service keys in a shared Redis.
	redisKeyPrefix = appName + ":"
)

// serveOpts holds the command-line flags for the serve command.
type serveOpts struct {
	addr     string
	redisURL string
	noCache  bool
	timeout  time.Duration
}

// serveCommand creates the serve command that exposes the pipeline over HTTP.
func (c *CLI) serveCommand() *cobra.Command {
	opts := serveOpts{addr: defaultAddr, timeout: defaultRequestTimeout}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the pipeline over HTTP",
		Long: `Serve the pipeline over HTTP.

Endpoints:
  POST /v1/run                  TOML problem body, JSON result
  POST /v1/render?format=svg    TOML problem body, rendered tree (svg or dot)
  GET  /healthz                 liveness
  GET  /version                 build information

Results are cached in Redis when --redis is given, otherwise in the local
cache directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), &opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", opts.addr, "listen address")
	cmd.Flags().StringVar(&opts.redisURL, "redis", "", "Redis URL for the shared cache (redis://host:6379/0)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", opts.timeout, "per-request pipeline timeout")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, opts *serveOpts) error {
	runner, err := c.newServeRunner(ctx, opts)
	if err != nil {
		return err
	}
	defer runner.Close()

	srv := &http.Server{
		Addr:              opts.addr,
		Handler:           newServer(runner, c.Logger, opts.timeout).routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		c.Logger.Info("listening", "addr", opts.addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	c.Logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return ctx.Err()
}

// newServeRunner picks the cache backend for the service.
func (c *CLI) newServeRunner(ctx context.Context, opts *serveOpts) (*pipeline.Runner, error) {
	if opts.redisURL == "" || opts.noCache {
		return c.newRunner(opts.noCache)
	}
	if err := apperr.ValidateRedisURL(opts.redisURL); err != nil {
		return nil, err
	}
	rc, err := cache.NewRedisCache(ctx, opts.redisURL)
	if err != nil {
		return nil, err
	}
	c.Logger.Info("using redis cache", "prefix", redisKeyPrefix)
	keyer := cache.NewScopedKeyer(cache.NewDefaultKeyer(), redisKeyPrefix)
	return pipeline.NewRunner(rc, keyer, c.Logger), nil
}

// =============================================================================
// HTTP Server
// =============================================================================

type server struct {
	runner  *pipeline.Runner
	logger  *log.Logger
	timeout time.Duration
}

func newServer(runner *pipeline.Runner, logger *log.Logger, timeout time.Duration) *server {
	return &server{runner: runner, logger: logger, timeout: timeout}
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.observe)

	r.Get("/healthz", s.handleHealth)
	r.Get("/version", s.handleVersion)
	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(s.timeout))
		r.Post("/run", s.handleRun)
		r.Post("/render", s.handleRender)
	})
	return r
}

// observe reports every request to the server hooks and the logger.
func (s *server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hooks := observability.Server()
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		hooks.OnRequest(r.Context(), r.Method, route)
		hooks.OnResponse(r.Context(), r.Method, route, ww.Status(), time.Since(start))
		s.logger.Debug("request",
			"id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"route", route,
			"status", ww.Status(),
			"duration", time.Since(start))
	})
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, buildinfo.Get())
}

func (s *server) handleRun(w http.ResponseWriter, r *http.Request) {
	p, opts, err := decodeRequest(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	res, err := s.runner.Execute(r.Context(), p, opts)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *server) handleRender(w http.ResponseWriter, r *http.Request) {
	p, opts, err := decodeRequest(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	format := r.URL.Query().Get("format")
	if format == "" {
		format = pipeline.FormatSVG
	}
	opts.Formats = []string{format}
	if err := opts.ValidateForRender(); err != nil {
		s.writeError(w, err)
		return
	}

	res, err := s.runner.Execute(r.Context(), p, opts)
	if err != nil {
		s.writeError(w, err)
		return
	}
	artifacts, err := s.runner.Render(r.Context(), p, res, opts)
	if err != nil {
		s.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", contentType(format))
	w.Header().Set("X-Run-ID", res.RunID)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(artifacts[format])
}

// decodeRequest reads the TOML problem body and the option query
// parameters.
func decodeRequest(r *http.Request) (*pipeline.Problem, pipeline.Options, error) {
	q := r.URL.Query()
	opts := pipeline.Options{
		Exclusiveness: q.Get("exclusiveness"),
		Refresh:       q.Get("refresh") == "true",
		Detailed:      q.Get("detailed") == "true",
	}
	if v := q.Get("max_chain"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, opts, apperr.Wrap(apperr.ErrCodeInvalidInput, err, "max_chain must be an integer")
		}
		opts.MaxChainLength = n
	}

	p, err := pipeline.DecodeProblem(http.MaxBytesReader(nil, r.Body, maxProblemBytes))
	if err != nil {
		return nil, opts, err
	}
	return p, opts, nil
}

func contentType(format string) string {
	switch format {
	case pipeline.FormatSVG:
		return "image/svg+xml"
	case pipeline.FormatDOT:
		return "text/vnd.graphviz"
	}
	return "application/octet-stream"
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func (s *server) writeError(w http.ResponseWriter, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	writeJSON(w, status, errorBody{Error: apperr.UserMessage(err), Code: string(apperr.GetCode(err))})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
