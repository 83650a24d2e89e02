// Package relay implements the broadcast coordinator: every message received
// from one connection is fanned out to every connection currently registered,
// including the sender.
//
// Each connection runs its own receive loop inside Coordinator.Serve. Serve
// registers the connection on entry and removes it exactly once on every exit
// path, whether the peer closed cleanly, the channel broke, the server shut
// down, or the transport failed in some unexpected way. Broadcasts iterate a
// registry snapshot, so concurrent connects and disconnects never race with
// delivery.
package relay
