// Package ipc implements the JSON-RPC control channel between the forge
// CLI and the daemon over a unix domain socket.
package ipc
