// Package services defines shared utilities consumed by the stage executors
// and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp job handles, stage names, entity IDs, and
//     correlation identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that classify failures
//     (client errors vs external/transient failures) consistently.
//
// Use these helpers when wiring new executor logic so operational behaviour
// (error handling, observability, retries) stays uniform across the pipeline.
package services
