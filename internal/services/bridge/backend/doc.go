// Package backend speaks the backend gateway's JSON-over-HTTP RPC.
//
// Every exchange is one POST to <backend>/mcp carrying {"method", "params"}
// and one JSON body back. The package owns the wire shapes, per-request
// timeouts, and transport error classification; it does not interpret tool
// results.
package backend
