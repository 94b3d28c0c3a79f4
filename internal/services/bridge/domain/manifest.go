package domain

import (
	"context"
	"errors"

	"github.com/louisbranch/toolbridge/internal/services/bridge/backend"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ProcedureDescriptor is one backend-advertised tool.
type ProcedureDescriptor struct {
	Name        string
	Description string
	// InputSchema is the backend's object schema, or nil to accept any object.
	InputSchema map[string]any
}

// Manifest lists descriptors in the order the backend reported them.
type Manifest []ProcedureDescriptor

// ManifestSource lists the tools a backend offers.
type ManifestSource interface {
	ListTools(ctx context.Context) ([]backend.Tool, error)
}

// FetchManifest queries source once. The returned manifest is never nil; on
// error it is empty and the error is returned for the caller to degrade on.
func FetchManifest(ctx context.Context, source ManifestSource) (Manifest, error) {
	if source == nil {
		return Manifest{}, errors.New("manifest source is required")
	}
	ctx, span := tracer.Start(ctx, "toolbridge.manifest.fetch")
	defer span.End()

	tools, err := source.ListTools(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch manifest failed")
		return Manifest{}, err
	}

	manifest := make(Manifest, 0, len(tools))
	for _, tool := range tools {
		manifest = append(manifest, ProcedureDescriptor{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: tool.InputSchema,
		})
	}
	span.SetAttributes(attribute.Int("toolbridge.manifest.size", len(manifest)))
	return manifest, nil
}

// Tool builds the MCP tool definition for d.
func (d ProcedureDescriptor) Tool() *mcp.Tool {
	schema := d.InputSchema
	if schema == nil {
		schema = map[string]any{"type": "object"}
	}
	return &mcp.Tool{
		Name:        d.Name,
		Description: d.Description,
		InputSchema: schema,
	}
}
