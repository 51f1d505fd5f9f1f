// Package protocol defines the wire types exchanged with the game server.
//
// Outbound messages are flat JSON objects discriminated by an "action"
// field. Inbound messages are discriminated by a "type" field; the
// payload shape varies per type, so the envelope keeps the raw bytes
// for per-type decoding by the dispatcher.
package protocol
