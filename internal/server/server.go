// Package server exposes the dispatcher over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/lattiq/mailrelay"
	"github.com/lattiq/mailrelay/internal/metrics"
)

// RequestIDHeader carries the request correlation id.
const RequestIDHeader = "X-Request-ID"

// Dispatcher is the part of the relay the HTTP boundary needs.
type Dispatcher interface {
	Submit(ctx context.Context, email *mailrelay.Email) (mailrelay.DeliveryStatus, error)
	Status(id string) mailrelay.DeliveryStatus
}

// Config configures the HTTP listener.
type Config struct {
	// Addr is the listen address. Defaults to ":3000".
	Addr string `yaml:"addr"`

	// RequestsPerSecond caps accepted requests across all clients. Zero disables the cap.
	RequestsPerSecond float64 `yaml:"requests_per_second"`

	// Burst is the number of requests allowed above the steady rate. Defaults to 1.
	Burst int `yaml:"burst"`

	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// Debug puts gin in debug mode.
	Debug bool `yaml:"debug"`
}

// DefaultConfig returns the listener defaults.
func DefaultConfig() Config {
	return Config{
		Addr:         ":3000",
		Burst:        1,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

// Server serves the send and status endpoints.
type Server struct {
	engine     *gin.Engine
	http       *http.Server
	dispatcher Dispatcher
	log        *zap.Logger
}

type sendEmailRequest struct {
	ID      string `json:"id" binding:"required"`
	To      string `json:"to" binding:"required"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// New builds the gin engine and routes.
func New(cfg Config, d Dispatcher, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultConfig().Addr
	}

	engine := gin.New()
	engine.Use(
		requestID(),
		ginzap.Ginzap(log, time.RFC3339, true),
		ginzap.RecoveryWithZap(log, true),
		countRequests(),
	)
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		engine.Use(limit(rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)))
	}

	s := &Server{
		engine:     engine,
		dispatcher: d,
		log:        log.Named("server"),
	}
	s.http = &http.Server{
		Addr:         cfg.Addr,
		Handler:      engine,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	engine.POST("/send-email", s.sendEmail)
	engine.GET("/email-status/:id", s.emailStatus)
	engine.GET("/healthz", s.healthz)
	engine.GET("/version", s.version)
	engine.GET("/metrics", gin.WrapH(metrics.MetricsHandler()))

	return s
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe blocks serving requests until Shutdown is called.
func (s *Server) ListenAndServe() error {
	s.log.Info("http server listening", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) sendEmail(c *gin.Context) {
	var req sendEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	status, err := s.dispatcher.Submit(c.Request.Context(), &mailrelay.Email{
		ID:      req.ID,
		To:      req.To,
		Subject: req.Subject,
		Body:    req.Body,
	})
	if err != nil {
		var verr *mailrelay.ValidationError
		switch {
		case errors.As(err, &verr):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, mailrelay.ErrDispatcherClosed):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		default:
			s.log.Error("submit failed", zap.String("id", req.ID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": status.String()})
}

func (s *Server) emailStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": statusText(s.dispatcher.Status(c.Param("id")))})
}

func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) version(c *gin.Context) {
	c.JSON(http.StatusOK, mailrelay.GetVersionInfo())
}

// statusText renders a status the way the status endpoint reports it.
func statusText(status mailrelay.DeliveryStatus) string {
	if status == mailrelay.StatusNotFound {
		return "Not Found"
	}
	return status.String()
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set("request_id", id)
		c.Writer.Header().Set(RequestIDHeader, id)
		c.Next()
	}
}

func countRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

func limit(l *rate.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "Rate limit exceeded, please try again later",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
