// Package types holds shared type definitions used across the backend:
// service/tool metadata for the provider registry, execution results,
// and request DTOs for the HTTP and WebSocket APIs.
package types
