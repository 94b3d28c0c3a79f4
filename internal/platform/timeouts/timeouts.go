// Package timeouts defines shared timeout constants used across the bridge.
package timeouts

import "time"

// ManifestFetch caps the single tools/list request made at startup.
const ManifestFetch = 10 * time.Second

// ToolCall caps one forwarded tools/call request. Backend tools may run long
// scans, so this is far larger than the manifest bound.
const ToolCall = 300 * time.Second

// HealthProbe caps one backend health probe.
const HealthProbe = 5 * time.Second

// HealthInterval is the delay between backend health probes.
const HealthInterval = 30 * time.Second

// ReadHeader limits how long an HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long an HTTP server waits for in-flight requests
// during graceful shutdown.
const Shutdown = 5 * time.Second
