package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// backendAnswer is a canned tools/call reply.
type backendAnswer struct {
	status int
	body   string
}

// fakeBackend imitates the gateway's /mcp and /health endpoints.
type fakeBackend struct {
	manifest string
	answers  map[string]backendAnswer
	healthy  atomic.Bool

	mu    sync.Mutex
	calls []forwardedCall
}

type forwardedCall struct {
	Name      string
	Arguments json.RawMessage
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/health" && r.Method == http.MethodGet:
		if !b.healthy.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, `{"status":"healthy"}`)
	case r.URL.Path == "/mcp" && r.Method == http.MethodPost:
		var req struct {
			Method string `json:"method"`
			Params struct {
				Name      string          `json:"name"`
				Arguments json.RawMessage `json:"arguments"`
			} `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch req.Method {
		case "tools/list":
			_, _ = io.WriteString(w, b.manifest)
		case "tools/call":
			b.mu.Lock()
			b.calls = append(b.calls, forwardedCall{Name: req.Params.Name, Arguments: req.Params.Arguments})
			b.mu.Unlock()
			answer, ok := b.answers[req.Params.Name]
			if !ok {
				http.Error(w, "unknown tool", http.StatusNotFound)
				return
			}
			if answer.status != 0 {
				w.WriteHeader(answer.status)
			}
			_, _ = io.WriteString(w, answer.body)
		default:
			http.Error(w, "unknown method", http.StatusBadRequest)
		}
	default:
		http.NotFound(w, r)
	}
}

func (b *fakeBackend) forwarded() []forwardedCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]forwardedCall(nil), b.calls...)
}

func startBackend(t *testing.T, backend *fakeBackend) string {
	t.Helper()
	backend.healthy.Store(true)
	server := httptest.NewServer(backend)
	t.Cleanup(server.Close)
	return server.URL
}

// unreachableAddr returns the address of a server that has already stopped.
func unreachableAddr(t *testing.T) string {
	t.Helper()
	server := httptest.NewServer(http.NotFoundHandler())
	addr := server.URL
	server.Close()
	return addr
}

type logCapture struct {
	mu    sync.Mutex
	lines []string
}

func (l *logCapture) logf(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, fmt.Sprintf(format, args...))
}

func (l *logCapture) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.lines...)
}

func (l *logCapture) contains(substr string) bool {
	for _, line := range l.snapshot() {
		if strings.Contains(line, substr) {
			return true
		}
	}
	return false
}

// connectClient serves s over an in-memory transport and returns a client
// session against it.
func connectClient(t *testing.T, s *Server) *mcp.ClientSession {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.serveWithTransport(ctx, serverTransport)
	}()

	client := mcp.NewClient(&mcp.Implementation{Name: "client", Version: "v0.0.1"}, nil)
	connectCtx, connectCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer connectCancel()
	session, err := client.Connect(connectCtx, clientTransport, nil)
	if err != nil {
		t.Fatalf("connect client: %v", err)
	}
	t.Cleanup(func() {
		_ = session.Close()
		cancel()
		select {
		case <-serveErr:
		case <-time.After(2 * time.Second):
			t.Error("server did not stop after cancel")
		}
	})
	return session
}

func callText(t *testing.T, session *mcp.ClientSession, name string, args map[string]any) string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := session.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		t.Fatalf("call %s: %v", name, err)
	}
	if res.IsError {
		t.Fatalf("call %s returned tool error: %#v", name, res.Content)
	}
	if len(res.Content) != 1 {
		t.Fatalf("call %s returned %d content blocks, want 1", name, len(res.Content))
	}
	text, ok := res.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("call %s returned %T, want text", name, res.Content[0])
	}
	return text.Text
}
