// Command server runs the Super IDE backend: terminal session
// management over HTTP and WebSocket plus one-off command execution.
package main
