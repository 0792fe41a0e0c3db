package fbplus

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	requestIDHeader = "X-Request-Id"
	requestIDKey    = "requestID"

	shutdownTimeout = 5 * time.Second
)

// ThreadFetcher is the part of Client the HTTP server needs.
type ThreadFetcher interface {
	FetchThread(ctx context.Context, rawURL string, firstPage, maxPages int) (Thread, error)
	Origin() string
	Location() *time.Location
}

// Server exposes threads over HTTP for the infinite scrolling reader.
type Server struct {
	fetcher        ThreadFetcher
	logger         *slog.Logger
	requestTimeout time.Duration
	router         *gin.Engine
}

// NewServer returns a server answering thread requests with fetcher. A
// positive requestTimeout bounds each thread fetch.
func NewServer(fetcher ThreadFetcher, logger *slog.Logger, requestTimeout time.Duration) *Server {
	s := &Server{
		fetcher:        fetcher,
		logger:         logger,
		requestTimeout: requestTimeout,
		router:         gin.New(),
	}

	s.router.Use(gin.Recovery(), s.logRequests)
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.router.GET("/thread", s.handleThread)
	return s
}

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	var config net.ListenConfig
	l, err := config.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("Listen: %w", err)
	}
	return s.Serve(ctx, l)
}

// Serve accepts connections on l until ctx is done, then shuts down
// gracefully. It takes ownership of l.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("listening", "addr", l.Addr().String())
		if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("Serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (s *Server) logRequests(c *gin.Context) {
	id := c.GetHeader(requestIDHeader)
	if id == "" {
		id = uuid.NewString()
	}
	c.Set(requestIDKey, id)
	c.Header(requestIDHeader, id)

	start := time.Now()
	c.Next()
	s.logger.Info("request",
		"id", id,
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"status", c.Writer.Status(),
		"duration", time.Since(start),
	)
}

// queryInt reads a non-negative integer query parameter, returning def when
// it is absent.
func queryInt(c *gin.Context, name string, def int) (int, error) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return v, nil
}

func (s *Server) handleThread(c *gin.Context) {
	c.Header("Access-Control-Allow-Origin", "*")

	threadURL := c.Query("url")
	if threadURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url is required"})
		return
	}
	start, err := queryInt(c, "start", 0)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	pages, err := queryInt(c, "pages", 0)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if c.Query("pages") != "" && pages == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "pages must be at least 1"})
		return
	}

	ctx := c.Request.Context()
	if s.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.requestTimeout)
		defer cancel()
	}

	thread, err := s.fetcher.FetchThread(ctx, threadURL, start, pages)
	if err != nil {
		s.logger.Error("unable to fetch thread",
			"id", c.GetString(requestIDKey),
			"url", threadURL,
			"start", start,
			"pages", pages,
			"err", err,
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unable to fetch thread"})
		return
	}

	if c.Query("format") != "html" {
		c.JSON(http.StatusOK, thread)
		return
	}

	var b bytes.Buffer
	if err := RenderThread(&b, thread, s.fetcher.Origin(), s.fetcher.Location()); err != nil {
		s.logger.Error("unable to render thread", "id", c.GetString(requestIDKey), "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unable to render thread"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"html":           b.String(),
		"pagesAvailable": thread.PagesAvailable,
	})
}
