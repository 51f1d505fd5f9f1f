// Package notify schedules transient user-facing notices.
//
// A notice replaces whatever is currently showing; the newest message
// always wins, and its expiry timer supersedes any earlier one so a
// stale timer can never clear a newer notice early.
package notify
