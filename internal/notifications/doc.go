// Package notifications delivers push notifications for pipeline events.
//
// The service is backed by ntfy when a topic URL is configured and is a
// noop otherwise, so callers never need to guard notification calls.
package notifications
