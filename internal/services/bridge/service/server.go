package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	apperrors "github.com/louisbranch/toolbridge/internal/platform/errors"
	"github.com/louisbranch/toolbridge/internal/platform/timeouts"
	"github.com/louisbranch/toolbridge/internal/services/bridge/backend"
	"github.com/louisbranch/toolbridge/internal/services/bridge/domain"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// serverVersion identifies the bridge to MCP clients.
	serverVersion = "0.1.0"

	// DefaultServerName is the name legacy clients look for.
	DefaultServerName = "hexstrike-ai"

	// DefaultBackendAddr is where the backend gateway listens by default.
	DefaultBackendAddr = "http://localhost:8080"

	defaultHTTPAddr = "localhost:8081"
)

// TransportKind identifies the MCP transport implementation.
type TransportKind string

const (
	// TransportStdio uses standard input/output for MCP.
	TransportStdio TransportKind = "stdio"
	// TransportHTTP serves MCP over streamable HTTP.
	TransportHTTP TransportKind = "http"
)

// Config configures the bridge server.
type Config struct {
	BackendAddr string
	Transport   TransportKind
	HTTPAddr    string // defaults to localhost:8081 for HTTP transport
	ServerName  string

	ManifestTimeout time.Duration
	CallTimeout     time.Duration

	// AllowedHosts extends the loopback-only Host/Origin check in HTTP mode.
	AllowedHosts []string

	// HTTPClient overrides the client used to reach the backend.
	HTTPClient *http.Client
	// Logf receives startup and health lines. Nil uses log.Printf.
	Logf func(string, ...any)
}

func (c Config) logf() func(string, ...any) {
	if c.Logf != nil {
		return c.Logf
	}
	return log.Printf
}

// backendClient is what the server needs from the backend gateway.
type backendClient interface {
	domain.ManifestSource
	domain.ToolCaller
	Health(ctx context.Context) error
	BaseURL() string
}

// Server hosts the synthesized tool surface.
type Server struct {
	mcpServer *mcp.Server
	backend   backendClient
	tools     int
	health    *backendHealth
	logf      func(string, ...any)
}

// New builds a server and registers one forwarding tool per backend manifest
// entry. An unreachable backend is not fatal: the server starts with no tools
// and logs a warning.
func New(ctx context.Context, cfg Config) (*Server, error) {
	addr := cfg.BackendAddr
	if addr == "" {
		addr = DefaultBackendAddr
	}
	client, err := backend.NewClient(addr, backend.Options{
		HTTPClient:      cfg.HTTPClient,
		ManifestTimeout: cfg.ManifestTimeout,
		CallTimeout:     cfg.CallTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("configure backend: %w", err)
	}
	return newServer(ctx, cfg, client)
}

// newServer degrades to an empty manifest only when the backend is
// unreachable; any other fetch failure is returned.
func newServer(ctx context.Context, cfg Config, client backendClient) (*Server, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	logf := cfg.logf()
	name := cfg.ServerName
	if name == "" {
		name = DefaultServerName
	}

	mcpServer := mcp.NewServer(&mcp.Implementation{Name: name, Version: serverVersion}, nil)

	manifest, err := domain.FetchManifest(ctx, client)
	switch {
	case err != nil && !apperrors.HasCode(err, apperrors.CodeBackendUnreachable):
		return nil, fmt.Errorf("fetch manifest from %s: %w", client.BaseURL(), err)
	case err != nil:
		logf("warning: no tools from backend, starting with empty manifest: %s: %v", client.BaseURL(), err)
	case len(manifest) == 0:
		logf("warning: no tools from backend, starting with empty manifest")
	}

	tools := domain.Synthesize(mcpServer, manifest, domain.NewForwarder(client), logf)
	return &Server{
		mcpServer: mcpServer,
		backend:   client,
		tools:     tools,
		health:    newBackendHealth(),
		logf:      logf,
	}, nil
}

// Tools reports how many forwarding tools were registered at startup.
func (s *Server) Tools() int {
	if s == nil {
		return 0
	}
	return s.tools
}

// Run is the service entrypoint and blocks until ctx ends or the transport
// closes.
func Run(ctx context.Context, cfg Config) error {
	if cfg.Transport == "" {
		cfg.Transport = TransportStdio
	}

	switch cfg.Transport {
	case TransportStdio:
		return runWithTransport(ctx, cfg, &mcp.StdioTransport{})
	case TransportHTTP:
		return runWithHTTPTransport(ctx, cfg)
	default:
		return fmt.Errorf("transport %q is not supported", cfg.Transport)
	}
}

func runWithTransport(ctx context.Context, cfg Config, transport mcp.Transport) error {
	server, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	return server.serveWithTransport(ctx, transport)
}

func runWithHTTPTransport(ctx context.Context, cfg Config) error {
	httpAddr := cfg.HTTPAddr
	if httpAddr == "" {
		httpAddr = defaultHTTPAddr
	}

	server, err := New(ctx, cfg)
	if err != nil {
		return err
	}

	healthCtx, healthCancel := context.WithCancel(ctx)
	defer healthCancel()
	go server.monitorHealth(healthCtx, timeouts.HealthInterval)

	return NewHTTPTransport(httpAddr, server, cfg.AllowedHosts).Start(ctx)
}

// monitorHealth probes the backend until ctx ends. Failures are logged and
// recorded for /mcp/health; serving continues regardless.
func (s *Server) monitorHealth(ctx context.Context, interval time.Duration) {
	s.probeHealth(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.probeHealth(ctx)
		}
	}
}

func (s *Server) probeHealth(ctx context.Context) {
	err := s.backend.Health(ctx)
	if ctx.Err() != nil {
		return
	}
	s.health.record(err, time.Now().UTC())
	if err != nil {
		s.logf("backend health check failed: %v", err)
	}
}

// serveWithTransport serves MCP on transport until it closes or ctx ends.
func (s *Server) serveWithTransport(ctx context.Context, transport mcp.Transport) error {
	if s == nil || s.mcpServer == nil {
		return fmt.Errorf("MCP server is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	err := s.mcpServer.Run(ctx, transport)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("serve MCP: %w", err)
	}
	return nil
}
