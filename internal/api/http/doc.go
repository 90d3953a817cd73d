// Package http provides the REST API: terminal session management,
// one-off command execution, and the service registry surface. Live
// output streaming is not served here; that is the ws package's job.
package http
