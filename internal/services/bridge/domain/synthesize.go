package domain

import (
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ToolRegistrar is the registry tools are added to. *mcp.Server satisfies it.
type ToolRegistrar interface {
	AddTool(tool *mcp.Tool, handler mcp.ToolHandler)
}

// Synthesize registers one forwarding tool per named descriptor, in manifest
// order, and returns how many were registered. Unnamed descriptors are skipped
// without comment. Name collisions are left to the registrar.
func Synthesize(registrar ToolRegistrar, manifest Manifest, forwarder *Forwarder, logf func(string, ...any)) int {
	if logf == nil {
		logf = func(string, ...any) {}
	}
	registered := 0
	if registrar != nil && forwarder != nil {
		for _, descriptor := range manifest {
			if descriptor.Name == "" {
				continue
			}
			if err := registerTool(registrar, descriptor.Tool(), forwarder.Handler(descriptor.Name)); err != nil {
				logf("warning: skip tool %q: %v", descriptor.Name, err)
				continue
			}
			registered++
		}
	}
	logf("registered %d tools from backend", registered)
	return registered
}

// registerTool turns a registrar panic, which is how mcp.Server rejects a
// malformed tool, into an error.
func registerTool(registrar ToolRegistrar, tool *mcp.Tool, handler mcp.ToolHandler) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("register tool: %v", recovered)
		}
	}()
	registrar.AddTool(tool, handler)
	return nil
}
