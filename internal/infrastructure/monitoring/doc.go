// Package monitoring provides Prometheus metrics for HTTP traffic,
// terminal sessions, one-off command execution and WebSocket transport,
// plus a Gin middleware that records per-request metrics.
//
// Collectors live on their own registry so independent instances (and
// tests) never collide on metric registration.
package monitoring
