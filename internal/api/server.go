// Package api provides the HTTP API server implementation.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wallet-dashboard/internal/logging"
	"github.com/wallet-dashboard/internal/service"
	"github.com/wallet-dashboard/internal/types"
)

// Service interfaces for dependency injection and testing

// WalletServiceInterface defines the balance and holdings operations
type WalletServiceInterface interface {
	GetWalletBalance(ctx context.Context, address, network string) (*service.WalletBalanceView, error)
	GetHoldings(ctx context.Context, input service.HoldingsInput) (*service.HoldingsView, error)
}

// ActivityServiceInterface defines the activity operations
type ActivityServiceInterface interface {
	GetActivity(ctx context.Context, address, network string) (*service.ActivityView, error)
}

// TransferServiceInterface defines the transfer quote operation
type TransferServiceInterface interface {
	Quote(ctx context.Context, req service.TransferRequest) (*service.TransferQuote, error)
}

// HealthChecker is pinged by /health
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// UpstreamReporter is an optional HealthChecker extension whose report is
// included in the /health body
type UpstreamReporter interface {
	Upstreams(ctx context.Context) map[string]interface{}
}

// Server represents the HTTP API server.
type Server struct {
	router          *mux.Router
	httpServer      *http.Server
	walletService   WalletServiceInterface
	activityService ActivityServiceInterface
	transferService TransferServiceInterface
	health          HealthChecker
	config          *ServerConfig
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host           string
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	RequestTimeout time.Duration
	RateLimitRPS   int
	RateLimitBurst int
	DefaultNetwork types.NetworkID
}

// NewServer creates a new API server instance. health may be nil.
func NewServer(
	config *ServerConfig,
	walletService WalletServiceInterface,
	activityService ActivityServiceInterface,
	transferService TransferServiceInterface,
	health HealthChecker,
) *Server {
	s := &Server{
		router:          mux.NewRouter(),
		walletService:   walletService,
		activityService: activityService,
		transferService: transferService,
		health:          health,
		config:          config,
	}

	s.setupRouter()

	return s
}

// setupRouter configures the router with middleware and routes
func (s *Server) setupRouter() {
	rateLimiter := NewRateLimiter(s.config.RateLimitRPS, s.config.RateLimitBurst)

	// Order matters: the request logger must exist before anything logs.
	s.router.Use(RequestIDMiddleware)
	s.router.Use(LoggingMiddleware)
	s.router.Use(RecoveryMiddleware)
	s.router.Use(MetricsMiddleware)
	s.router.Use(RateLimitMiddleware(rateLimiter))
	s.router.Use(TimeoutMiddleware(s.config.RequestTimeout))

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.config.Host, s.config.Port),
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/networks", s.handleListNetworks).Methods("GET")

	// Wallet endpoints
	api.HandleFunc("/wallets/{address}/balance", s.handleGetBalance).Methods("GET")
	api.HandleFunc("/wallets/{address}/holdings", s.handleGetHoldings).Methods("GET")
	api.HandleFunc("/wallets/{address}/activity", s.handleGetActivity).Methods("GET")
	api.HandleFunc("/wallets/{address}/transfers/quote", s.handleQuoteTransfer).Methods("POST")
}

// Handler returns the root handler. CORS wraps the router so preflight
// requests are answered before route matching.
func (s *Server) Handler() http.Handler {
	return CORSMiddleware(s.router)
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status, code := "healthy", http.StatusOK
	body := map[string]interface{}{"service": "wallet-dashboard"}
	if s.health != nil {
		if err := s.health.Ping(r.Context()); err != nil {
			logging.FromContext(r.Context()).WithError(err).Warn("Cache health check failed")
			status, code = "degraded", http.StatusServiceUnavailable
		}
		if reporter, ok := s.health.(UpstreamReporter); ok {
			body["upstreams"] = reporter.Upstreams(r.Context())
		}
	}
	body["status"] = status
	respondJSON(w, code, body)
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	logging.Infof("Starting API server on %s", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down API server...")
	return s.httpServer.Shutdown(ctx)
}
