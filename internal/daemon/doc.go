// Package daemon wires the store, scheduler, and pipeline coordinator into
// a long-running background process guarded by a file lock.
package daemon
