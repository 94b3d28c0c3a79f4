// Package service runs the bridge as an MCP server.
//
// It is the transport adapter layer: it builds the backend client, loads the
// manifest once, registers forwarding tools, and serves them over stdio or
// HTTP. Translation rules live in the domain package.
package service
