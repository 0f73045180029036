// Package logs reads the daemon log file for CLI display.
//
// The CLI and daemon share a host, so log access is plain file reads: a
// bounded tail of recent lines plus offset-based resumption for follow
// mode. A missing log file reads as empty rather than failing, since the
// daemon may simply not have started yet.
package logs
