// Package jobs provides the durable queue and scheduler behind asynchronous
// stage execution.
//
// Submitting work returns an opaque handle immediately; workers claim
// pending jobs through conditional UPDATEs so at most one worker runs a
// job. Running jobs publish heartbeats and progress triples, and jobs whose
// heartbeat goes stale are reclaimed as failed by the maintenance loop.
// Execution is bounded by a soft limit that logs a warning and a hard limit
// that cancels the job context.
package jobs
