// Package httpapi serves script reviews over HTTP. Submitting a review
// streams stage progress as server-sent events; stored reviews are plain
// JSON resources.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"scriptreview/internal/logging"
	"scriptreview/internal/pipeline"
	"scriptreview/internal/report"
	"scriptreview/internal/script"
	"scriptreview/internal/store"
)

const (
	// DefaultListLimit caps GET /api/reviews when no limit is given.
	DefaultListLimit = 50

	eventBuffer     = 64
	shutdownTimeout = 10 * time.Second
)

// SSE event names.
const (
	EventStage  = "stage"
	EventReport = "report"
	EventError  = "error"
)

// Reviewer runs one review. *pipeline.Orchestrator satisfies it.
type Reviewer interface {
	Run(ctx context.Context, req pipeline.Request) (*report.Report, error)
}

// Route describes one REST handler.
type Route struct {
	Method  string
	Path    string
	Handler gin.HandlerFunc
}

// Server holds the HTTP handlers.
type Server struct {
	reviewer Reviewer
	store    store.Store
	logger   *slog.Logger
}

// New returns a Server. st may be nil, in which case the read endpoints
// answer 503.
func New(reviewer Reviewer, st store.Store) *Server {
	return &Server{reviewer: reviewer, store: st, logger: logging.New("http")}
}

// Routes lists every handler under /api.
func (s *Server) Routes() []Route {
	return []Route{
		{http.MethodPost, "/reviews", s.CreateReview},
		{http.MethodGet, "/reviews", s.ListReviews},
		{http.MethodGet, "/reviews/:id", s.GetReview},
	}
}

// Handler builds the gin engine with the API mounted under /api.
func (s *Server) Handler() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLog())
	router.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	api := router.Group("/api")
	for _, r := range s.Routes() {
		api.Handle(r.Method, r.Path, r.Handler)
	}
	return router
}

// ListenAndServe runs the API on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler()}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Info("listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		s.logger.Debug("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status())
	}
}

type reviewRequest struct {
	Text     string                `json:"text" binding:"required"`
	Title    string                `json:"title"`
	Format   string                `json:"format"`
	ReviewID string                `json:"review_id"`
	Metadata pipeline.CaseMetadata `json:"metadata"`
}

type errorBody struct {
	Error string `json:"error"`
}

// CreateReview runs a review and streams its progress. Every stage event is
// sent as a "stage" event; the stream ends with exactly one "report" or
// "error" event.
func (s *Server) CreateReview(c *gin.Context) {
	var body reviewRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	switch script.Format(body.Format) {
	case "", script.FormatPlain, script.FormatMarkdown, script.FormatSRT:
	default:
		c.JSON(http.StatusBadRequest, errorBody{Error: fmt.Sprintf("unknown format %q", body.Format)})
		return
	}
	if body.Metadata.Title == "" {
		body.Metadata.Title = body.Title
	}

	ctx := c.Request.Context()
	events := make(chan pipeline.Event, eventBuffer)
	type outcome struct {
		rep *report.Report
		err error
	}
	done := make(chan outcome, 1)

	go func() {
		rep, err := s.reviewer.Run(ctx, pipeline.Request{
			ReviewID: body.ReviewID,
			Title:    body.Title,
			Text:     body.Text,
			Format:   script.Format(body.Format),
			Meta:     body.Metadata,
			Observer: channelObserver(ctx, events),
		})
		done <- outcome{rep, err}
	}()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	for {
		select {
		case ev := <-events:
			c.SSEvent(EventStage, ev)
			c.Writer.Flush()
		case out := <-done:
			// Drain events emitted before Run returned.
			for drained := false; !drained; {
				select {
				case ev := <-events:
					c.SSEvent(EventStage, ev)
				default:
					drained = true
				}
			}
			if out.err != nil {
				s.logger.Warn("review failed", "error", out.err)
				c.SSEvent(EventError, errorBody{Error: out.err.Error()})
			} else {
				c.SSEvent(EventReport, out.rep)
			}
			c.Writer.Flush()
			return
		case <-ctx.Done():
			return
		}
	}
}

// channelObserver forwards events to ch until ctx is done so a departed
// client never blocks the pipeline.
func channelObserver(ctx context.Context, ch chan<- pipeline.Event) pipeline.Observer {
	return pipeline.ObserverFunc(func(ev pipeline.Event) {
		select {
		case ch <- ev:
		case <-ctx.Done():
		}
	})
}

// GetReview returns one stored review record.
func (s *Server) GetReview(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusServiceUnavailable, errorBody{Error: "no review store configured"})
		return
	}
	id := c.Param("id")
	rec, err := s.store.Get(c.Request.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, errorBody{Error: fmt.Sprintf("review %s not found", id)})
		return
	}
	if err != nil {
		s.logger.Error("get review", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, errorBody{Error: "fetching review failed"})
		return
	}
	c.JSON(http.StatusOK, rec)
}

// ListReviews returns stored reviews newest first.
func (s *Server) ListReviews(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusServiceUnavailable, errorBody{Error: "no review store configured"})
		return
	}
	limit := DefaultListLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, errorBody{Error: fmt.Sprintf("invalid limit %q", v)})
			return
		}
		limit = n
	}
	recs, err := s.store.List(c.Request.Context(), limit)
	if err != nil {
		s.logger.Error("list reviews", "error", err)
		c.JSON(http.StatusInternalServerError, errorBody{Error: "listing reviews failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviews": recs})
}
