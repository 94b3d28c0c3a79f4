package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/louisbranch/toolbridge/internal/platform/timeouts"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var listenTCP = net.Listen

// HTTPTransport serves the bridge over streamable HTTP on /mcp, with a
// status endpoint on /mcp/health. Requests must name a loopback or
// explicitly allowed host.
type HTTPTransport struct {
	addr       string
	server     *Server
	hosts      hostGuard
	httpServer *http.Server
}

// NewHTTPTransport returns a transport for server bound to addr.
func NewHTTPTransport(addr string, server *Server, allowedHosts []string) *HTTPTransport {
	if addr == "" {
		addr = defaultHTTPAddr
	}
	return &HTTPTransport{
		addr:   addr,
		server: server,
		hosts:  newHostGuard(allowedHosts),
	}
}

// Handler returns the instrumented HTTP handler.
func (t *HTTPTransport) Handler() http.Handler {
	streamable := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return t.server.mcpServer
	}, nil)

	mux := http.NewServeMux()
	mux.Handle("/mcp", t.hosts.wrap(streamable))
	mux.Handle("/mcp/health", t.hosts.wrap(http.HandlerFunc(t.handleHealth)))
	return otelhttp.NewHandler(mux, "toolbridge.http")
}

// Start listens on the configured address and serves until ctx ends.
func (t *HTTPTransport) Start(ctx context.Context) error {
	listener, err := listenTCP("tcp", t.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", t.addr, err)
	}
	return t.serve(ctx, listener)
}

func (t *HTTPTransport) serve(ctx context.Context, listener net.Listener) error {
	t.httpServer = &http.Server{
		Handler:           t.Handler(),
		ReadHeaderTimeout: timeouts.ReadHeader,
	}
	t.server.logf("serving MCP over HTTP on %s", listener.Addr())

	errCh := make(chan error, 1)
	go func() {
		if err := t.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancel()
		if err := t.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown HTTP server: %w", err)
		}
		return nil
	case err := <-errCh:
		return fmt.Errorf("HTTP server error: %w", err)
	}
}

func (t *HTTPTransport) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(t.server.health.report(t.server.Tools())); err != nil {
		t.server.logf("write health response: %v", err)
	}
}
