// Package domain turns a backend tool manifest into MCP tools and translates
// forwarded results back into the single-string convention legacy clients
// expect.
//
// The mapping stays explicit:
// - each manifest entry with a name becomes one registered tool,
// - each tool call is forwarded unchanged under the same name,
// - and each backend answer collapses to one text block.
package domain
