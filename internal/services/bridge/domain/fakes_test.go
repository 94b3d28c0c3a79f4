package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/louisbranch/toolbridge/internal/platform/requestctx"
	"github.com/louisbranch/toolbridge/internal/services/bridge/backend"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type fakeSource struct {
	tools []backend.Tool
	err   error
}

func (s fakeSource) ListTools(context.Context) ([]backend.Tool, error) {
	return s.tools, s.err
}

type callRecord struct {
	Name      string
	Arguments json.RawMessage
	RequestID string
}

type fakeCaller struct {
	mu       sync.Mutex
	calls    []callRecord
	response backend.CallResponse
	err      error
}

func (c *fakeCaller) CallTool(ctx context.Context, name string, arguments json.RawMessage) (backend.CallResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, callRecord{Name: name, Arguments: arguments, RequestID: requestctx.RequestIDFromContext(ctx)})
	return c.response, c.err
}

func (c *fakeCaller) recorded() []callRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]callRecord(nil), c.calls...)
}

type recordingRegistrar struct {
	tools    []*mcp.Tool
	handlers []mcp.ToolHandler
	reject   map[string]bool
}

func (r *recordingRegistrar) AddTool(tool *mcp.Tool, handler mcp.ToolHandler) {
	if r.reject[tool.Name] {
		panic("invalid tool name")
	}
	r.tools = append(r.tools, tool)
	r.handlers = append(r.handlers, handler)
}

func (r *recordingRegistrar) names() []string {
	names := make([]string, 0, len(r.tools))
	for _, tool := range r.tools {
		names = append(names, tool.Name)
	}
	return names
}

type logRecorder struct {
	lines []string
}

func (l *logRecorder) logf(format string, args ...any) {
	l.lines = append(l.lines, fmt.Sprintf(format, args...))
}
