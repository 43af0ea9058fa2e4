// Package ipc exposes the watcher over JSON-RPC Unix sockets and ships the
// matching client used by the CLI.
//
// It owns socket lifecycle management, request/response DTOs, and conversions
// between job store records and lightweight wire representations. The server
// talks to the watcher through the Backend interface so the two packages stay
// decoupled.
package ipc
