package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	apphttp "github.com/taskdeck/core/internal/adapters/http"
	"github.com/taskdeck/core/internal/application/services"
	"github.com/taskdeck/core/internal/domain/entities"
	"github.com/taskdeck/core/internal/infrastructure/config"
	"github.com/taskdeck/core/internal/infrastructure/logger"
	"github.com/taskdeck/core/internal/ports"
)

// Server represents the HTTP server
type Server struct {
	echo         *echo.Echo
	config       *config.Config
	logger       *logger.Logger
	storageCheck func() error
}

// CustomValidator wraps the validator
type CustomValidator struct {
	validator *validator.Validate
}

// Validate validates structs
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// New creates a new server instance. The task repository is chosen by the
// caller (mongo or memory driver); storageCheck reports the store's health
// for the health endpoints.
func New(cfg *config.Config, taskRepo ports.TaskRepository, storageCheck func() error, appLogger *logger.Logger) (*Server, error) {
	e := echo.New()

	// Set custom validator
	e.Validator = &CustomValidator{validator: validator.New()}

	// Configure Echo
	e.HideBanner = true
	e.HidePort = true

	// Custom error handler
	e.HTTPErrorHandler = customErrorHandler(cfg, appLogger)

	// Initialize service and handler with component-scoped loggers
	taskService := services.NewTaskService(taskRepo, appLogger.WithComponent("tasks"))
	taskHandler := apphttp.NewTaskHandler(taskService, appLogger.WithComponent("http"))

	server := &Server{
		echo:         e,
		config:       cfg,
		logger:       appLogger,
		storageCheck: storageCheck,
	}

	// Setup middleware
	server.setupMiddleware()

	// Setup routes
	server.setupRoutes(taskHandler)

	// Setup metrics
	if cfg.Metrics.Enabled {
		server.setupMetrics()
	}

	return server, nil
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware() {
	// Recovery middleware
	s.echo.Use(middleware.Recover())

	// Logger middleware
	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogError:     true,
		LogRemoteIP:  true,
		LogUserAgent: true,
		LogValuesFunc: func(c echo.Context, values middleware.RequestLoggerValues) error {
			fields := []interface{}{
				"method", values.Method,
				"uri", values.URI,
				"status", values.Status,
				"latency_ms", float64(values.Latency.Nanoseconds()) / 1000000,
				"remote_ip", values.RemoteIP,
				"user_agent", values.UserAgent,
			}

			if values.Error != nil {
				fields = append(fields, "error", values.Error.Error())
				s.logger.Errorw("HTTP request failed", fields...)
			} else {
				s.logger.Infow("HTTP request", fields...)
			}

			return nil
		},
	}))

	// CORS middleware
	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: strings.Split(s.config.Security.CORSAllowedOrigins, ","),
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowMethods: []string{echo.GET, echo.HEAD, echo.PUT, echo.PATCH, echo.POST, echo.DELETE},
	}))

	// Rate limiting middleware
	s.echo.Use(middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{Rate: rate.Limit(s.config.Security.RateLimitRequests), Burst: s.config.Security.RateLimitRequests, ExpiresIn: s.config.Security.RateLimitWindow},
		),
		IdentifierExtractor: func(ctx echo.Context) (string, error) {
			return ctx.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return c.JSON(http.StatusForbidden, apphttp.NewErrorResponse("rate limit exceeded", http.StatusForbidden, ""))
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return c.JSON(http.StatusTooManyRequests, apphttp.NewErrorResponse("rate limit exceeded", http.StatusTooManyRequests, ""))
		},
	}))

	// Security headers
	s.echo.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
		HSTSMaxAge:         31536000,
	}))

	// Request ID middleware
	s.echo.Use(middleware.RequestID())

	// Timeout middleware
	s.echo.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
		Timeout: 30 * time.Second,
	}))
}

// setupRoutes configures all routes
func (s *Server) setupRoutes(taskHandler *apphttp.TaskHandler) {
	// Service info and health routes
	s.echo.GET("/", s.serviceInfo)
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/health/detailed", s.detailedHealthCheck)
	s.echo.GET("/ready", s.readinessCheck)

	// Task routes
	tasks := s.echo.Group("/api/tasks")
	tasks.GET("", taskHandler.ListTasks)
	tasks.GET("/stats", taskHandler.GetStats)
	tasks.GET("/:id", taskHandler.GetTask)
	tasks.POST("", taskHandler.CreateTask)
	tasks.POST("/bulk", taskHandler.BulkOperations)
	tasks.PUT("/:id", taskHandler.UpdateTask)
	tasks.PATCH("/:id/toggle", taskHandler.ToggleTask)
	tasks.DELETE("/:id", taskHandler.DeleteTask)

	// Undefined routes
	s.echo.RouteNotFound("/*", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, fmt.Sprintf("Route %s not found", c.Request().URL.Path))
	})
}

// setupMetrics configures Prometheus metrics
func (s *Server) setupMetrics() {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	registry.MustRegister(requestsTotal, requestDuration)

	s.echo.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			duration := time.Since(start)
			status := c.Response().Status

			requestsTotal.WithLabelValues(
				c.Request().Method,
				c.Path(),
				fmt.Sprintf("%d", status),
			).Inc()

			requestDuration.WithLabelValues(
				c.Request().Method,
				c.Path(),
			).Observe(duration.Seconds())

			return err
		}
	})

	// Metrics endpoint
	metricsHandler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	s.echo.GET("/metrics", echo.WrapHandler(metricsHandler))
}

// serviceInfo describes the API surface for anyone hitting the root path.
func (s *Server) serviceInfo(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"message": fmt.Sprintf("%s API Server", s.config.App.Name),
		"version": s.config.App.Version,
		"endpoints": map[string]string{
			"health":  "/health",
			"tasks":   "/api/tasks",
			"stats":   "/api/tasks/stats",
			"metrics": "/metrics",
		},
	})
}

// Health check handlers
func (s *Server) healthCheck(c echo.Context) error {
	database := "connected"
	if err := s.storageCheck(); err != nil {
		database = "disconnected"
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":     true,
		"message":     fmt.Sprintf("%s API is running", s.config.App.Name),
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"environment": s.config.App.Environment,
		"database":    database,
	})
}

func (s *Server) detailedHealthCheck(c echo.Context) error {
	status := "ok"
	checks := make(map[string]interface{})

	if err := s.storageCheck(); err != nil {
		status = "error"
		checks["storage"] = map[string]interface{}{
			"status": "error",
			"error":  err.Error(),
		}
	} else {
		checks["storage"] = map[string]interface{}{
			"status": "ok",
			"driver": s.config.Storage.Driver,
		}
	}

	response := map[string]interface{}{
		"status": status,
		"time":   time.Now().UTC().Format(time.RFC3339),
		"checks": checks,
		"version": map[string]string{
			"app": s.config.App.Version,
		},
	}

	if status == "ok" {
		return c.JSON(http.StatusOK, response)
	}
	return c.JSON(http.StatusServiceUnavailable, response)
}

func (s *Server) readinessCheck(c echo.Context) error {
	if err := s.storageCheck(); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "not_ready",
			"reason": "storage_not_ready",
		})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status": "ready",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// Start starts the HTTP server
func (s *Server) Start(address string) error {
	s.echo.Server.ReadTimeout = s.config.Server.ReadTimeout
	s.echo.Server.WriteTimeout = s.config.Server.WriteTimeout
	s.echo.Server.IdleTimeout = s.config.Server.IdleTimeout

	s.logger.Infow("Starting server", "address", address)
	return s.echo.Start(address)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server")
	return s.echo.Shutdown(ctx)
}

// customErrorHandler maps the error taxonomy onto the response envelope:
// validation errors are 400 with the field-specific message, missing or
// malformed ids are 404, duplicate keys are 400, everything else is a
// generic 500. The stack trace is attached to internal errors outside
// production; every internal error is logged regardless of mode.
func customErrorHandler(cfg *config.Config, logger *logger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := http.StatusInternalServerError
		message := "Server Error"

		var ve *entities.ValidationError
		var he *echo.HTTPError
		switch {
		case errors.As(err, &ve):
			code = http.StatusBadRequest
			message = ve.Message
		case errors.Is(err, entities.ErrTaskNotFound):
			code = http.StatusNotFound
			message = "Task not found"
		case errors.Is(err, entities.ErrDuplicateField):
			code = http.StatusBadRequest
			message = "Duplicate field value entered"
		case errors.As(err, &he):
			code = he.Code
			message = fmt.Sprintf("%v", he.Message)
		}

		if code >= http.StatusInternalServerError {
			logger.Errorw("Internal server error", "error", err, "method", c.Request().Method, "path", c.Request().URL.Path)
		} else {
			logger.Debugw("Request error", "error", err, "status", code, "method", c.Request().Method, "path", c.Request().URL.Path)
		}

		stack := ""
		if code >= http.StatusInternalServerError && !cfg.App.IsProduction() {
			stack = string(debug.Stack())
		}

		var sendErr error
		if c.Request().Method == echo.HEAD {
			sendErr = c.NoContent(code)
		} else {
			sendErr = c.JSON(code, apphttp.NewErrorResponse(message, code, stack))
		}
		if sendErr != nil {
			logger.Errorw("Error sending response", "error", sendErr)
		}
	}
}
