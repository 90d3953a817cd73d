// Package middleware provides Gin middleware shared across the API:
// CORS headers, per-IP rate limiting and request id assignment.
package middleware
