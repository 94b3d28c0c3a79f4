package domain

import (
	"bytes"
	"context"
	"encoding/json"

	apperrors "github.com/louisbranch/toolbridge/internal/platform/errors"
	"github.com/louisbranch/toolbridge/internal/platform/id"
	"github.com/louisbranch/toolbridge/internal/platform/requestctx"
	"github.com/louisbranch/toolbridge/internal/services/bridge/backend"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// errorPrefix marks a backend-reported failure in returned text.
const errorPrefix = "Error: "

var tracer = otel.Tracer("github.com/louisbranch/toolbridge/internal/services/bridge/domain")

// ToolCaller invokes a named tool on the backend.
type ToolCaller interface {
	CallTool(ctx context.Context, name string, arguments json.RawMessage) (backend.CallResponse, error)
}

// Forwarder relays tool calls to a backend. It keeps no per-call state and
// may be shared by concurrent handlers.
type Forwarder struct {
	caller ToolCaller
}

// NewForwarder returns a forwarder that calls through caller.
func NewForwarder(caller ToolCaller) *Forwarder {
	return &Forwarder{caller: caller}
}

// Forward sends arguments to the backend tool name and returns the
// translated text. Transport-level failures are returned as errors coded
// FORWARDING_FAILED; a backend-reported error comes back as "Error: ..." text.
func (f *Forwarder) Forward(ctx context.Context, name string, arguments json.RawMessage) (string, error) {
	if f == nil || f.caller == nil {
		return "", apperrors.New(apperrors.CodeForwardingFailed, "backend caller is not configured")
	}
	ctx = withInvocationID(ctx)
	ctx, span := tracer.Start(ctx, "toolbridge.forward")
	defer span.End()
	span.SetAttributes(
		attribute.String("toolbridge.tool.name", name),
		attribute.String("toolbridge.request_id", requestctx.RequestIDFromContext(ctx)),
	)

	response, err := f.caller.CallTool(ctx, name, arguments)
	if err != nil {
		if !apperrors.HasCode(err, apperrors.CodeForwardingFailed) {
			err = apperrors.Wrap(apperrors.CodeForwardingFailed, "forward "+name, err)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "forward failed")
		return "", err
	}

	text, backendErr := TranslateResponse(response)
	span.SetAttributes(attribute.Bool("toolbridge.backend_error", backendErr))
	return text, nil
}

// withInvocationID tags ctx with a fresh correlation identifier unless one is
// already present.
func withInvocationID(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if requestctx.RequestIDFromContext(ctx) != "" {
		return ctx
	}
	invocationID, err := id.NewID()
	if err != nil {
		return ctx
	}
	return requestctx.WithRequestID(ctx, invocationID)
}

// Handler adapts Forward to the MCP dispatcher for the tool name.
func (f *Forwarder) Handler(name string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var arguments json.RawMessage
		if req != nil && req.Params != nil {
			arguments = req.Params.Arguments
		}
		text, err := f.Forward(ctx, name, arguments)
		if err != nil {
			return nil, err
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: text}},
		}, nil
	}
}

// TranslateResponse collapses a backend answer to one string. The bool
// reports whether the backend flagged an error.
//
// Precedence: a truthy error field, then the text of the first content
// block, then the whole result rendered as text.
func TranslateResponse(response backend.CallResponse) (string, bool) {
	if len(response.Error) > 0 {
		if errValue := gjson.ParseBytes(response.Error); truthy(errValue) {
			return errorPrefix + stringify(errValue), true
		}
	}
	if len(response.Result) == 0 {
		return "{}", false
	}

	result := gjson.ParseBytes(response.Result)
	if content := result.Get("content"); content.IsArray() {
		if items := content.Array(); len(items) > 0 && items[0].IsObject() {
			if text := items[0].Get("text"); text.Exists() {
				return stringify(text), false
			}
		}
	}
	return stringify(result), false
}

// truthy treats null, false, 0, "", [] and {} as false.
func truthy(value gjson.Result) bool {
	switch value.Type {
	case gjson.Null:
		return false
	case gjson.False:
		return false
	case gjson.True:
		return true
	case gjson.Number:
		return value.Num != 0
	case gjson.String:
		return value.Str != ""
	case gjson.JSON:
		nonEmpty := false
		value.ForEach(func(_, _ gjson.Result) bool {
			nonEmpty = true
			return false
		})
		return nonEmpty
	default:
		return value.Exists()
	}
}

// stringify renders strings bare and anything else as compact JSON.
func stringify(value gjson.Result) string {
	if value.Type == gjson.String {
		return value.Str
	}
	if !value.Exists() {
		return "{}"
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(value.Raw)); err != nil {
		return value.Raw
	}
	return buf.String()
}
