package main

import (
	"net/http"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/cdnboot/cdnboot/internal/config"
	"github.com/cdnboot/cdnboot/internal/importmap"
	"github.com/cdnboot/cdnboot/internal/location"
	"github.com/cdnboot/cdnboot/internal/logging"
	"github.com/cdnboot/cdnboot/internal/manifest"
	"github.com/cdnboot/cdnboot/internal/monitoring"
	"github.com/cdnboot/cdnboot/internal/page"
	"github.com/cdnboot/cdnboot/internal/probe"
	"github.com/cdnboot/cdnboot/internal/provider"
	"github.com/cdnboot/cdnboot/internal/resolve"
	"github.com/cdnboot/cdnboot/internal/telemetry"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Server serves the app shell with its import map injected and receives
// telemetry beacons from running pages.
type Server struct {
	router    *gin.Engine
	cfg       *config.Config
	log       *logging.Logger
	metrics   *monitoring.Metrics
	cache     *manifest.Cache
	fetcher   *manifest.Fetcher
	providers *provider.Resolver
	resolver  *resolve.Resolver
}

// NewServer builds the composition root: HTTP clients, provider resolver,
// prober, module resolver, manifest cache, and routes.
func NewServer(cfg *config.Config, log *logging.Logger) (*Server, error) {
	metrics := monitoring.NewMetrics(prometheus.DefaultRegisterer)

	client := probe.NewClient(cfg.Probe.Timeout)
	tel := telemetry.NewClient(log, telemetry.SelectTransmitter(cfg.Telemetry.Endpoint, client), cfg.Telemetry.Endpoint)

	providers := provider.NewResolver()
	prober := probe.NewProber(client, probe.Options{
		Retries: cfg.Probe.Retries,
		Backoff: cfg.Probe.Backoff,
		RPS:     cfg.Probe.RPS,
	}, tel, metrics)
	resolver := resolve.NewResolver(providers, prober, log, metrics)

	manifestClient := probe.NewClient(cfg.Manifest.Timeout)
	fetcher := manifest.NewFetcher(manifestClient, cfg.Manifest.URL, metrics)

	s := &Server{
		cfg:       cfg,
		log:       log,
		metrics:   metrics,
		cache:     manifest.NewCache(),
		fetcher:   fetcher,
		providers: providers,
		resolver:  resolver,
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.Default())

	router.GET("/", s.handleShell)
	router.POST("/telemetry", s.handleTelemetry)
	router.GET("/telemetry/ws", s.handleTelemetryWS)
	router.GET("/health", s.handleHealth)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router = router
	return s, nil
}

// Run starts the HTTP server.
func (s *Server) Run(addr string) error {
	s.log.Info("shell server listening", zap.String("addr", addr))
	return s.router.Run(addr)
}

// handleShell serves the shell page with the import map injected. Each
// request is one page load: a fresh initializer over the shared manifest
// cache, so repeated loads share a single manifest fetch.
func (s *Server) handleShell(c *gin.Context) {
	raw, err := os.ReadFile(s.cfg.Manifest.ShellPath)
	if err != nil {
		c.String(http.StatusInternalServerError, "shell page unavailable")
		return
	}
	doc, err := page.ParseString(string(raw))
	if err != nil {
		c.String(http.StatusInternalServerError, "shell page unparsable")
		return
	}

	s.providers.SetLocation(location.FromURL(c.Request.URL))

	init := importmap.New(s.cache, s.fetcher.Fetch, s.providers, s.resolver, s.log)
	if err := init.Run(c.Request.Context(), doc); err != nil {
		s.log.Error("import map initialization failed", zap.Error(err))
		doc.WriteRoot("Bootstrap error: " + err.Error())
	}

	html, err := doc.Render()
	if err != nil {
		c.String(http.StatusInternalServerError, "shell render failed")
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
}

// handleTelemetry receives the HTTP fallback channel.
func (s *Server) handleTelemetry(c *gin.Context) {
	var event map[string]any
	if err := c.ShouldBindJSON(&event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	s.log.Info("client event", zap.Any("event", event))
	c.Status(http.StatusNoContent)
}

// handleTelemetryWS receives the beacon channel.
func (s *Server) handleTelemetryWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}
		s.log.Info("client event", zap.ByteString("event", payload))
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": s.metrics.Uptime().String(),
	})
}
