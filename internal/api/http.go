// Package api exposes the dashboard over HTTP (gin), websocket and gRPC.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/miradorstack/mirador-thermal/internal/hub"
	"github.com/miradorstack/mirador-thermal/internal/metrics"
	"github.com/miradorstack/mirador-thermal/internal/models"
	"github.com/miradorstack/mirador-thermal/internal/services"
	"github.com/miradorstack/mirador-thermal/internal/utils"
)

// maxUploadBytes bounds uploaded log files.
const maxUploadBytes = 10 << 20

// Dashboard is the service surface the transports depend on.
type Dashboard interface {
	LatestEnvelope(ctx context.Context) (models.LatestEnvelope, int)
	Temperature(ctx context.Context) (models.TemperatureResponse, error)
	Snapshot(ctx context.Context) (models.Snapshot, error)
	TableSnapshot(ctx context.Context) (models.Snapshot, error)
	ProcessUpload(ctx context.Context, name string, content []byte) (models.Snapshot, error)
	Sample(ctx context.Context) (models.Snapshot, error)
	ApplyAction(action string) (string, error)
	LatencyP95() time.Duration
}

// HTTPServer holds the gin engine and its dependencies.
type HTTPServer struct {
	engine  *gin.Engine
	server  *http.Server
	dash    Dashboard
	page    *hub.Hub
	table   *hub.Hub
	logger  *slog.Logger
	started time.Time
}

// NewHTTPServer builds the HTTP surface. page and table may be nil, in which
// case snapshot routes produce on demand and /ws is unavailable.
func NewHTTPServer(addr string, dash Dashboard, page, table *hub.Hub, logger *slog.Logger) *HTTPServer {
	if logger == nil {
		logger = slog.Default()
	}
	engine := gin.New()
	engine.Use(gin.Recovery(), observeRequests())
	engine.RedirectTrailingSlash = false
	engine.RedirectFixedPath = false
	engine.MaxMultipartMemory = maxUploadBytes

	s := &HTTPServer{
		engine:  engine,
		dash:    dash,
		page:    page,
		table:   table,
		logger:  logger,
		started: time.Now(),
	}
	s.server = &http.Server{
		Addr:              addr,
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.setupRoutes()
	return s
}

// Handler exposes the engine (useful for tests).
func (s *HTTPServer) Handler() http.Handler {
	return s.engine
}

// Start serves until Shutdown is called.
func (s *HTTPServer) Start() error {
	s.logger.Info("http server listening", slog.String("address", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) setupRoutes() {
	s.engine.GET("/healthz", s.handleHealth)

	group := s.engine.Group("/api")
	group.GET("/aida64", s.handleLatest)
	group.GET("/temperature", s.handleTemperature)
	group.POST("/temperature", s.handleAction)
	group.POST("/upload", s.handleUpload)
	group.GET("/sample", s.handleSample)
	group.GET("/snapshot", s.handleSnapshot(s.page, s.dash.Snapshot))
	group.GET("/table", s.handleSnapshot(s.table, s.dash.TableSnapshot))

	s.engine.GET("/ws", s.handleWebSocket)
}

func (s *HTTPServer) handleHealth(c *gin.Context) {
	var dropped int64
	for _, h := range []*hub.Hub{s.page, s.table} {
		if h != nil {
			dropped += h.Dropped()
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"status":       "ok",
		"uptime":       time.Since(s.started).Round(time.Second).String(),
		"dropped":      dropped,
		"parse_p95_ms": float64(s.dash.LatencyP95().Microseconds()) / 1000,
	})
}

func (s *HTTPServer) handleLatest(c *gin.Context) {
	env, status := s.dash.LatestEnvelope(c.Request.Context())
	c.JSON(status, env)
}

func (s *HTTPServer) handleTemperature(c *gin.Context) {
	resp, err := s.dash.Temperature(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// actionFromBody extracts the "action" member of a JSON body. Invalid JSON and
// a null body are rejected; any other non-object body yields an empty action.
func actionFromBody(raw []byte) (string, bool) {
	var body any
	if err := json.Unmarshal(raw, &body); err != nil || body == nil {
		return "", false
	}
	obj, _ := body.(map[string]any)
	action, _ := obj["action"].(string)
	return action, true
}

func (s *HTTPServer) handleAction(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request body"})
		return
	}
	action, ok := actionFromBody(raw)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request body"})
		return
	}
	msg, err := s.dash.ApplyAction(action)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid action"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": msg})
}

func (s *HTTPServer) handleUpload(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "file field is required"})
		return
	}
	if header.Size > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"success": false, "error": fmt.Sprintf("file exceeds %d bytes", maxUploadBytes)})
		return
	}
	f, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "could not open uploaded file"})
		return
	}
	defer f.Close()
	content, err := io.ReadAll(io.LimitReader(f, maxUploadBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "could not read uploaded file"})
		return
	}

	snap, err := s.dash.ProcessUpload(c.Request.Context(), header.Filename, content)
	s.writeProcessed(c, snap, err)
}

func (s *HTTPServer) handleSample(c *gin.Context) {
	snap, err := s.dash.Sample(c.Request.Context())
	s.writeProcessed(c, snap, err)
}

func (s *HTTPServer) writeProcessed(c *gin.Context, snap models.Snapshot, err error) {
	if err == nil {
		c.JSON(http.StatusOK, gin.H{"success": true, "snapshot": snap})
		return
	}
	kind := services.Kind(err)
	if kind == services.KindUnsupportedFile {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Only .csv and .txt files are supported", "message": utils.Message(err)})
		return
	}
	c.JSON(http.StatusUnprocessableEntity, gin.H{
		"success":       false,
		"error":         services.UploadFailedLabel,
		"kind":          kind,
		"message":       utils.Message(err),
		"usingMockData": true,
		"snapshot":      snap,
	})
}

func (s *HTTPServer) handleSnapshot(h *hub.Hub, produce func(context.Context) (models.Snapshot, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap, err := current(c.Request.Context(), h, produce)
		if err != nil {
			s.logger.Error("snapshot unavailable", slog.Any("error", err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "snapshot unavailable"})
			return
		}
		c.JSON(http.StatusOK, snap)
	}
}

func observeRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		metrics.ObserveHTTP(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}
