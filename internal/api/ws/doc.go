// Package ws bridges browser terminals to sessions over WebSocket.
//
// One connection can attach to any number of sessions. On attach the
// client receives the session's buffered output replay, then live
// chunks in order, then a session_exited event. Input, resize and close
// requests flow the other way. Disconnecting detaches subscriptions but
// leaves sessions running so another tab can reattach.
package ws
