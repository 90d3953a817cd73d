// Package server assembles the HTTP/WebSocket server: it wires
// configuration, logging, metrics, the terminal manager, and the
// service registry into a gin router and manages graceful shutdown.
package server
