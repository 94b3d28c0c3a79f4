// Package errors provides coded errors for the bridge.
package errors

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// CodeBackendUnreachable marks a manifest fetch that could not reach the
	// backend or got a non-success answer.
	CodeBackendUnreachable Code = "BACKEND_UNREACHABLE"

	// CodeForwardingFailed marks a tool invocation that could not be
	// delivered to, or answered by, the backend transport.
	CodeForwardingFailed Code = "FORWARDING_FAILED"
)
