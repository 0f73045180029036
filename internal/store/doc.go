// Package store persists pipeline entities in SQLite.
//
// One database file holds topics, ideas, research, blog posts, assets, and
// social posts, plus the job queue table managed by the jobs package through
// the shared connection. Schema changes ship as embedded migrations applied
// at open time.
//
// Status flips that guard workflow invariants (idea approval, research
// claiming) are expressed as conditional UPDATEs so concurrent callers
// resolve through row counts rather than application locks.
package store
