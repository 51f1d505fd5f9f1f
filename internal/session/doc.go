// Package session owns the durable session record: the minimal state
// needed to restore a player's seat after a restart. A record older
// than 24 hours is treated as absent and erased on load.
//
// Saves are debounced so rapid state changes coalesce into one write.
package session
