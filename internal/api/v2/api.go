// internal/api/v2/api.go
package api

import (
	"crypto/rand"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/gearmap/gearmap-go/internal/conf"
	"github.com/gearmap/gearmap-go/internal/convert"
	"github.com/gearmap/gearmap-go/internal/errors"
	"github.com/gearmap/gearmap-go/internal/filestore"
	"github.com/gearmap/gearmap-go/internal/iconstore"
	"github.com/gearmap/gearmap-go/internal/logging"
	"github.com/gearmap/gearmap-go/internal/mapping"
	"github.com/gearmap/gearmap-go/internal/observability"
	"github.com/gearmap/gearmap-go/internal/render"
)

// Controller manages the API routes and handlers.
type Controller struct {
	Echo     *echo.Echo
	Group    *echo.Group
	Store    iconstore.Interface
	Files    *filestore.Store
	Engine   *convert.Engine
	Renderer *render.Renderer
	Table    *mapping.Table
	Settings *conf.Settings

	logger *log.Logger

	// Structured logger for API operations, separate from the service log.
	apiLogger      *slog.Logger
	apiLevelVar    *slog.LevelVar
	apiLoggerClose func() error

	metrics   *observability.Metrics
	startTime time.Time
}

// Option is a functional option for configuring the Controller.
type Option func(*Controller)

// WithMetrics attaches the shared metrics instance.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Controller) {
		c.metrics = m
	}
}

// WithRenderer sets the renderer used by the image inventory and render-test
// endpoints.
func WithRenderer(r *render.Renderer) Option {
	return func(c *Controller) {
		c.Renderer = r
	}
}

// ipExtractorFromProxyHeaders resolves the client IP, honoring
// X-Forwarded-For when a reverse proxy sits in front of the service.
func ipExtractorFromProxyHeaders(req *http.Request) string {
	xff := req.Header.Get(echo.HeaderXForwardedFor)
	if xff != "" {
		for _, part := range strings.Split(xff, ",") {
			ipStr := strings.TrimSpace(part)
			if ip := net.ParseIP(ipStr); ip != nil {
				return ip.String()
			}
		}
	}

	xri := req.Header.Get(echo.HeaderXRealIP)
	if xri != "" {
		if ip := net.ParseIP(xri); ip != nil {
			return ip.String()
		}
	}

	remoteAddr, _, _ := net.SplitHostPort(req.RemoteAddr)
	if ip := net.ParseIP(remoteAddr); ip != nil {
		return ip.String()
	}
	return remoteAddr
}

// New creates the API controller and registers all routes on e.
func New(e *echo.Echo, store iconstore.Interface, files *filestore.Store,
	engine *convert.Engine, table *mapping.Table, settings *conf.Settings,
	logger *log.Logger, opts ...Option) (*Controller, error) {
	return NewWithOptions(e, store, files, engine, table, settings, logger, true, opts...)
}

// NewWithOptions creates the API controller with optional route
// initialization. Tests that exercise handlers directly pass false.
func NewWithOptions(e *echo.Echo, store iconstore.Interface, files *filestore.Store,
	engine *convert.Engine, table *mapping.Table, settings *conf.Settings,
	logger *log.Logger, initializeRoutes bool, opts ...Option) (*Controller, error) {

	if logger == nil {
		logger = log.Default()
	}

	// Behind a reverse proxy the remote address is the proxy, not the
	// client. Spoofable without a trusted-proxy check, used for logs and
	// rate limiting only.
	e.IPExtractor = ipExtractorFromProxyHeaders

	c := &Controller{
		Echo:      e,
		Store:     store,
		Files:     files,
		Engine:    engine,
		Table:     table,
		Settings:  settings,
		logger:    logger,
		startTime: time.Now(),
	}

	// Structured logger for API requests, separate file from the service log
	c.apiLevelVar = new(slog.LevelVar)
	c.apiLevelVar.Set(slog.LevelInfo)
	if settings.WebServer.Debug {
		c.apiLevelVar.Set(slog.LevelDebug)
	}

	apiLogPath := settings.WebServer.Log.Path
	if apiLogPath == "" {
		apiLogPath = "logs/web.log"
	}
	apiLogger, closeFunc, err := logging.NewFileLogger(apiLogPath, "api", c.apiLevelVar)
	if err != nil {
		logger.Printf("Warning: failed to initialize API structured logger: %v", err)
		fbHandler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: c.apiLevelVar})
		c.apiLogger = slog.New(fbHandler).With("service", "api")
		c.apiLoggerClose = func() error { return nil }
	} else {
		c.apiLogger = apiLogger
		c.apiLoggerClose = closeFunc
	}

	for _, opt := range opts {
		opt(c)
	}

	c.Group = e.Group("/api/v2")
	c.Group.Use(middleware.Recover())
	c.Group.Use(middleware.CORS())
	c.Group.Use(middleware.BodyLimit(fmt.Sprintf("%d", settings.WebServer.MaxUploadSize)))
	c.Group.Use(c.LoggingMiddleware())

	if initializeRoutes {
		c.initRoutes()
	}

	return c, nil
}

// LoggingMiddleware logs every API request with structured fields and feeds
// the HTTP metrics. The route template, not the concrete path, becomes the
// metric label so ids do not explode the cardinality.
func (c *Controller) LoggingMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()

			err := next(ctx)

			elapsed := time.Since(start)
			req := ctx.Request()
			res := ctx.Response()

			if c.metrics != nil {
				c.metrics.HTTP.RecordRequest(req.Method, ctx.Path(), res.Status, elapsed.Seconds())
			}

			if c.apiLogger == nil {
				return err
			}
			attrs := []slog.Attr{
				slog.String("method", req.Method),
				slog.String("path", req.URL.Path),
				slog.String("query", req.URL.RawQuery),
				slog.Int("status", res.Status),
				slog.String("ip", ctx.RealIP()),
				slog.String("user_agent", req.UserAgent()),
				slog.Int64("latency_ms", elapsed.Milliseconds()),
			}
			if err != nil {
				attrs = append(attrs, slog.Any("error", err))
			}
			c.apiLogger.LogAttrs(req.Context(), slog.LevelInfo, "API Request", attrs...)

			return err
		}
	}
}

// initRoutes registers all API endpoints.
func (c *Controller) initRoutes() {
	c.Group.GET("/health", c.HealthCheck)

	routeInitializers := []struct {
		name string
		fn   func()
	}{
		{"document routes", c.initDocumentRoutes},
		{"icon routes", c.initIconRoutes},
	}

	for _, initializer := range routeInitializers {
		c.Debug("Initializing %s...", initializer.name)
		initializer.fn()
	}
}

// Shutdown releases controller resources, called when the server stops.
func (c *Controller) Shutdown() {
	if c.apiLoggerClose != nil {
		if err := c.apiLoggerClose(); err != nil {
			c.logger.Printf("Error closing API log file: %v", err)
		}
	}
}

// ErrorResponse is the JSON error envelope every failed request returns.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	Timestamp     string `json:"timestamp"`
	CorrelationID string `json:"correlation_id"` // unique identifier for tracking this error
}

// NewErrorResponse creates a new API error response.
func NewErrorResponse(err error, message string, code int) *ErrorResponse {
	correlationID := generateCorrelationID()

	var errorStr string
	if err != nil {
		errorStr = err.Error()
	} else {
		errorStr = message
	}

	return &ErrorResponse{
		Error:         errorStr,
		Message:       message,
		Code:          code,
		Timestamp:     time.Now().Format(time.RFC3339),
		CorrelationID: correlationID,
	}
}

// generateCorrelationID creates a unique identifier for error tracking using
// cryptographic randomness.
func generateCorrelationID() string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	const length = 8

	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "ERR-RAND"
	}
	for i := range b {
		b[i] = charset[int(b[i])%len(charset)]
	}
	return string(b)
}

// statusForError maps an error's category onto an HTTP status code. The
// fallback applies to errors without a recognizable category.
func statusForError(err error, fallback int) int {
	switch {
	case errors.IsNotFound(err):
		return http.StatusNotFound
	case errors.IsCategory(err, errors.CategoryConflict):
		return http.StatusConflict
	case errors.IsCategory(err, errors.CategoryValidation):
		return http.StatusBadRequest
	case errors.IsCategory(err, errors.CategoryDocumentParse):
		return http.StatusUnprocessableEntity
	case errors.IsCategory(err, errors.CategoryLimit):
		return http.StatusRequestEntityTooLarge
	case errors.IsCategory(err, errors.CategoryIconConfig):
		return http.StatusInternalServerError
	default:
		return fallback
	}
}

// HandleError constructs and returns the error response for a failed
// request, deriving the HTTP status from the error's category.
func (c *Controller) HandleError(ctx echo.Context, err error, message string, fallbackCode int) error {
	code := statusForError(err, fallbackCode)
	errorResp := NewErrorResponse(err, message, code)

	ip := ctx.RealIP()
	c.logger.Printf("API Error [%s] from %s: %s: %v", errorResp.CorrelationID, ip, message, err)

	if c.apiLogger != nil {
		var errorStr string
		if err != nil {
			errorStr = err.Error()
		} else {
			errorStr = message
		}
		c.apiLogger.Error("API Error",
			"correlation_id", errorResp.CorrelationID,
			"message", message,
			"error", errorStr,
			"code", code,
			"path", ctx.Request().URL.Path,
			"method", ctx.Request().Method,
			"ip", ip,
		)
	}

	return ctx.JSON(code, errorResp)
}

// Debug logs debug messages when debug mode is enabled.
func (c *Controller) Debug(format string, v ...any) {
	if c.Settings.WebServer.Debug {
		msg := fmt.Sprintf(format, v...)
		c.logger.Printf("[DEBUG] %s", msg)
		if c.apiLogger != nil {
			c.apiLogger.Debug(msg)
		}
	}
}
