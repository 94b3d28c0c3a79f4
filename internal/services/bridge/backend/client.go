package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/louisbranch/toolbridge/internal/platform/errors"
	"github.com/louisbranch/toolbridge/internal/platform/id"
	"github.com/louisbranch/toolbridge/internal/platform/requestctx"
	"github.com/louisbranch/toolbridge/internal/platform/timeouts"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// MethodToolsList is the manifest query method.
	MethodToolsList = "tools/list"
	// MethodToolsCall is the tool invocation method.
	MethodToolsCall = "tools/call"

	// RequestIDHeader carries a per-request correlation identifier.
	RequestIDHeader = "X-Request-Id"

	rpcPath    = "/mcp"
	healthPath = "/health"

	// maxResponseBytes bounds how much of a backend answer is read.
	maxResponseBytes = 32 << 20
)

var tracer = otel.Tracer("github.com/louisbranch/toolbridge/internal/services/bridge/backend")

var errInvalidJSON = errors.New("response body is not valid JSON")

// Options tunes a Client. Zero values select defaults.
type Options struct {
	HTTPClient      *http.Client
	ManifestTimeout time.Duration
	CallTimeout     time.Duration
	HealthTimeout   time.Duration
}

// Client is safe for concurrent use; it holds no per-call state.
type Client struct {
	baseURL         string
	httpClient      *http.Client
	manifestTimeout time.Duration
	callTimeout     time.Duration
	healthTimeout   time.Duration
	newRequestID    func() (string, error)
}

// Tool is one manifest entry as reported by the backend.
type Tool struct {
	Name        string
	Description string
	// InputSchema is set only when the backend supplied an object schema.
	InputSchema map[string]any
}

// CallResponse holds the raw top-level fields of a tools/call answer. A nil
// field was absent from the body.
type CallResponse struct {
	Result json.RawMessage
	Error  json.RawMessage
}

// StatusError reports a non-2xx HTTP answer.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("backend returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.StatusCode, e.Body)
}

type rpcRequest struct {
	Method string `json:"method"`
	Params any    `json:"params"`
}

type callParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// NewClient returns a client for the backend rooted at baseURL, for example
// http://localhost:8080.
func NewClient(baseURL string, opts Options) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, fmt.Errorf("backend address is required")
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse backend address %q: %w", baseURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("backend address %q must use http or https", baseURL)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("backend address %q has no host", baseURL)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	return &Client{
		baseURL:         trimmed,
		httpClient:      httpClient,
		manifestTimeout: durationOrDefault(opts.ManifestTimeout, timeouts.ManifestFetch),
		callTimeout:     durationOrDefault(opts.CallTimeout, timeouts.ToolCall),
		healthTimeout:   durationOrDefault(opts.HealthTimeout, timeouts.HealthProbe),
		newRequestID:    id.NewID,
	}, nil
}

// BaseURL returns the normalized backend address.
func (c *Client) BaseURL() string {
	if c == nil {
		return ""
	}
	return c.baseURL
}

// ListTools fetches the backend manifest. Failures carry
// CodeBackendUnreachable. Malformed entries decode to zero values instead of
// failing the whole manifest.
func (c *Client) ListTools(ctx context.Context) ([]Tool, error) {
	ctx, span := tracer.Start(ctx, "backend "+MethodToolsList, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	body, err := c.post(ctx, c.manifestTimeout, rpcRequest{Method: MethodToolsList, Params: struct{}{}})
	if err == nil && !gjson.ValidBytes(body) {
		err = errInvalidJSON
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list tools failed")
		return nil, apperrors.Wrap(apperrors.CodeBackendUnreachable, "list tools", err)
	}

	tools := decodeTools(gjson.GetBytes(body, "result.tools"))
	span.SetAttributes(attribute.Int("toolbridge.manifest.size", len(tools)))
	return tools, nil
}

// CallTool forwards one invocation. arguments are sent byte-for-byte; empty
// or null arguments are sent as {}. Failures carry CodeForwardingFailed.
func (c *Client) CallTool(ctx context.Context, name string, arguments json.RawMessage) (CallResponse, error) {
	ctx, span := tracer.Start(ctx, "backend "+MethodToolsCall,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("toolbridge.tool.name", name)),
	)
	defer span.End()

	body, err := c.post(ctx, c.callTimeout, rpcRequest{
		Method: MethodToolsCall,
		Params: callParams{Name: name, Arguments: normalizeArguments(arguments)},
	})
	if err == nil && !gjson.ValidBytes(body) {
		err = errInvalidJSON
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "call tool failed")
		return CallResponse{}, apperrors.Wrap(apperrors.CodeForwardingFailed, fmt.Sprintf("call tool %q", name), err)
	}

	parsed := gjson.ParseBytes(body)
	var response CallResponse
	if result := parsed.Get("result"); result.Exists() {
		response.Result = json.RawMessage(result.Raw)
	}
	if callErr := parsed.Get("error"); callErr.Exists() {
		response.Error = json.RawMessage(callErr.Raw)
	}
	return response, nil
}

// Health probes GET <backend>/health and returns nil on a 2xx answer.
func (c *Client) Health(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, c.healthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+healthPath, nil)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", healthPath, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{StatusCode: resp.StatusCode}
	}
	return nil
}

func (c *Client) post(ctx context.Context, timeout time.Duration, payload rpcRequest) ([]byte, error) {
	if c == nil || c.httpClient == nil {
		return nil, fmt.Errorf("backend client is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(payload); err != nil {
		return nil, fmt.Errorf("encode %s request: %w", payload.Method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+rpcPath, &buf)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", payload.Method, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if requestID := c.requestID(ctx); requestID != "" {
		req.Header.Set(RequestIDHeader, requestID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", rpcPath, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", payload.Method, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: snippet(body)}
	}
	return body, nil
}

// requestID prefers the caller's correlation identifier and mints one
// otherwise.
func (c *Client) requestID(ctx context.Context) string {
	if requestID := requestctx.RequestIDFromContext(ctx); requestID != "" {
		return requestID
	}
	if c.newRequestID == nil {
		return ""
	}
	requestID, err := c.newRequestID()
	if err != nil {
		return ""
	}
	return requestID
}

func decodeTools(tools gjson.Result) []Tool {
	result := make([]Tool, 0)
	if !tools.IsArray() {
		return result
	}
	tools.ForEach(func(_, entry gjson.Result) bool {
		result = append(result, decodeTool(entry))
		return true
	})
	return result
}

func decodeTool(entry gjson.Result) Tool {
	if !entry.IsObject() {
		return Tool{}
	}
	tool := Tool{
		Name:        stringField(entry, "name"),
		Description: stringField(entry, "description"),
	}
	schema := entry.Get("inputSchema")
	if schema.IsObject() && schema.Get("type").Str == "object" {
		var decoded map[string]any
		if err := json.Unmarshal([]byte(schema.Raw), &decoded); err == nil {
			tool.InputSchema = decoded
		}
	}
	return tool
}

func stringField(entry gjson.Result, key string) string {
	value := entry.Get(key)
	if value.Type != gjson.String {
		return ""
	}
	return value.Str
}

func normalizeArguments(arguments json.RawMessage) json.RawMessage {
	trimmed := bytes.TrimSpace(arguments)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return json.RawMessage("{}")
	}
	return arguments
}

func snippet(body []byte) string {
	const limit = 256
	text := strings.TrimSpace(string(body))
	if len(text) > limit {
		return text[:limit] + "..."
	}
	return text
}

func durationOrDefault(value, fallback time.Duration) time.Duration {
	if value <= 0 {
		return fallback
	}
	return value
}
