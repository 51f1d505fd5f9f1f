// Package state holds the local view of the server-authoritative game
// state. The client never builds a snapshot from scratch; it only
// applies server-sent replacements and partial merges.
//
// The Store is the single owner of the snapshot. Only the message
// dispatcher mutates it; everything else observes via Subscribe.
package state
