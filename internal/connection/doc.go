// Package connection implements the Connection Manager component.
//
// The Connection Manager:
//   - Owns the single websocket to the game server and its lifecycle
//   - Runs the heartbeat ping while connected
//   - Handles reconnection with exponential backoff and bounded jitter
//   - Gives up after the attempt budget and waits for an explicit retry
//   - Routes inbound frames to the Message Dispatcher
package connection
