// Package dispatch routes inbound frames to their handlers and applies
// them to the table snapshot, the session record, and the notice
// scheduler.
//
// It is also the outbound surface: user intents (join, quote, trade,
// leave, auction bids) are validated here and encoded onto the
// connection.
//
// The dispatch loop is the only writer of the snapshot and the session
// record, so frame handling needs no cross-handler locking.
package dispatch
